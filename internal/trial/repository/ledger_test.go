package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tiffin/internal/clock"
	orderdomain "github.com/smallbiznis/tiffin/internal/order/domain"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	trialdomain "github.com/smallbiznis/tiffin/internal/trial/domain"
	"github.com/smallbiznis/tiffin/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	customerID = snowflake.ID(501)
	planID     = snowflake.ID(901)
)

func newTestLedger(t *testing.T) (trialdomain.Ledger, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&trialdomain.Usage{}, &orderdomain.Order{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC))
	return NewBinder(clk, node).Bind(dbConn), dbConn, clk
}

func TestRecordTrialOrderIncrements(t *testing.T) {
	ledger, _, clk := newTestLedger(t)
	ctx := context.Background()

	usage, err := ledger.GetUsage(ctx, customerID, planID)
	require.NoError(t, err)
	assert.Nil(t, usage)

	require.NoError(t, ledger.RecordTrialOrder(ctx, customerID, planID))
	first := clk.Now().UTC()
	clk.Advance(26 * time.Hour)
	require.NoError(t, ledger.RecordTrialOrder(ctx, customerID, planID))

	usage, err = ledger.GetUsage(ctx, customerID, planID)
	require.NoError(t, err)
	require.NotNil(t, usage)
	assert.Equal(t, 2, usage.OrderCount)
	assert.True(t, usage.FirstUsedAt.Equal(first))
	assert.True(t, usage.LastUsedAt.Equal(clk.Now().UTC()))

	other, err := ledger.GetUsage(ctx, customerID, planID+1)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestCountPriorOrdersIgnoresTrialAndCancelled(t *testing.T) {
	ledger, dbConn, _ := newTestLedger(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	insert := func(id int64, plan snowflake.ID, trial bool, status orderdomain.Status) {
		require.NoError(t, dbConn.Create(&orderdomain.Order{
			ID:            snowflake.ID(id),
			KitchenID:     1,
			CustomerID:    customerID,
			MealPlanID:    plan,
			MealType:      scheduledomain.Lunch,
			ScheduledDate: "2026-03-02",
			Status:        status,
			Price:         decimal.NewFromInt(10),
			IsTrial:       trial,
			CreatedAt:     now,
			UpdatedAt:     now,
		}).Error)
	}

	count, err := ledger.CountPriorOrders(ctx, customerID, planID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	insert(1, planID, true, orderdomain.StatusPlaced)
	insert(2, planID, false, orderdomain.StatusCancelled)
	insert(3, planID+1, false, orderdomain.StatusPlaced)

	count, err = ledger.CountPriorOrders(ctx, customerID, planID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	insert(4, planID, false, orderdomain.StatusPlaced)
	count, err = ledger.CountPriorOrders(ctx, customerID, planID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
