package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocation(t *testing.T) {
	loc, err := Config{OrderTimeZone: "Asia/Kolkata"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())

	loc, err = Config{}.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = Config{OrderTimeZone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("ORDER_TIMEZONE", "Europe/London")
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("OTEL_ENABLED", "yes")
	t.Setenv("ORDER_GUARD_RETENTION", "24h")
	t.Setenv("SCHEDULER_RUN_INTERVAL", "not-a-duration")

	cfg := Load()
	assert.Equal(t, "Europe/London", cfg.OrderTimeZone)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Otel.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.GuardRetention)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.RunInterval)
	assert.Equal(t, int64(1), cfg.NodeID)
}

func TestValidateOrderingPolicy(t *testing.T) {
	assert.NoError(t, validateOrderingPolicy(DefaultOrderingPolicy()))
	assert.NoError(t, validateOrderingPolicy(OrderingPolicy{}))

	bad := DefaultOrderingPolicy()
	bad.Placement.Burst = 0
	assert.Error(t, validateOrderingPolicy(bad))
}
