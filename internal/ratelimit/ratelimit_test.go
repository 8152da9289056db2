package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/tiffin/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *PlacementLimiter
	ctx := context.Background()

	assert.False(t, l.Enabled())

	res, err := l.AllowCustomer(ctx, "42")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	lease, err := l.LockTrial(ctx, "42", "7")
	require.NoError(t, err)
	assert.Nil(t, lease)
	assert.NoError(t, lease.Release(ctx))
	assert.Empty(t, lease.Key())
}

func TestNewPlacementLimiterWithoutRedis(t *testing.T) {
	holder := config.NewStaticPolicyHolder(config.DefaultOrderingPolicy())
	assert.Nil(t, NewPlacementLimiter(nil, holder))
}

func TestUnconfiguredPrimitives(t *testing.T) {
	var bucket *TokenBucket
	_, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrBucketNotConfigured)

	var locker *Locker
	_, err = locker.Acquire(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
}

func TestParseBucketReply(t *testing.T) {
	res, err := parseBucketReply([]interface{}{int64(1), "3.5", int64(1_700_000_000_000)}, 1, 5)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 3, res.Remaining)
	assert.Equal(t, 5, res.Limit)
	assert.Zero(t, res.RetryAfter)

	res, err = parseBucketReply([]interface{}{int64(0), "0.25", int64(1_700_000_000_000)}, 0.5, 5)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 1500*time.Millisecond, res.RetryAfter)

	_, err = parseBucketReply([]interface{}{int64(1)}, 1, 1)
	assert.Error(t, err)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 10*time.Second, bucketTTL(1, 5))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 1))
}

func TestTrialLockKey(t *testing.T) {
	assert.Equal(t, "orders:place:trial:42:7", trialLockKey(" 42", "7 "))
}
