package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tiffin/internal/clock"
	orderdomain "github.com/smallbiznis/tiffin/internal/order/domain"
	trialdomain "github.com/smallbiznis/tiffin/internal/trial/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledger struct {
	db    *gorm.DB
	clock clock.Clock
	genID *snowflake.Node
}

// NewLedger returns a trial ledger over db, which may be a transaction.
func NewLedger(db *gorm.DB, clk clock.Clock, genID *snowflake.Node) trialdomain.Ledger {
	return &ledger{db: db, clock: clk, genID: genID}
}

func (l *ledger) GetUsage(ctx context.Context, customerID, planID snowflake.ID) (*trialdomain.Usage, error) {
	var items []trialdomain.Usage
	err := l.db.WithContext(ctx).
		Where("customer_id = ? AND meal_plan_id = ?", customerID, planID).
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// RecordTrialOrder inserts the usage row or increments it in one statement.
func (l *ledger) RecordTrialOrder(ctx context.Context, customerID, planID snowflake.ID) error {
	now := l.clock.Now().UTC()
	usage := &trialdomain.Usage{
		ID:          l.genID.Generate(),
		CustomerID:  customerID,
		MealPlanID:  planID,
		OrderCount:  1,
		FirstUsedAt: now,
		LastUsedAt:  now,
	}
	return l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "customer_id"}, {Name: "meal_plan_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"order_count":  gorm.Expr("trial_usages.order_count + 1"),
			"last_used_at": now,
		}),
	}).Create(usage).Error
}

// CountPriorOrders counts the customer's non-trial, non-cancelled orders for the plan.
func (l *ledger) CountPriorOrders(ctx context.Context, customerID, planID snowflake.ID) (int, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&orderdomain.Order{}).
		Where("customer_id = ? AND meal_plan_id = ? AND is_trial = ? AND status <> ?",
			customerID, planID, false, orderdomain.StatusCancelled).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// Binder builds ledgers bound to a connection or transaction.
type Binder struct {
	clock clock.Clock
	genID *snowflake.Node
}

func NewBinder(clk clock.Clock, genID *snowflake.Node) *Binder {
	return &Binder{clock: clk, genID: genID}
}

func (b *Binder) Bind(db *gorm.DB) trialdomain.Ledger {
	return NewLedger(db, b.clock, b.genID)
}
