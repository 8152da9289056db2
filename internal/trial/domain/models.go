// Package domain tracks trial-priced orders consumed per customer and meal plan.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Usage is created on the first trial order and only ever incremented.
type Usage struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	CustomerID  snowflake.ID `json:"customer_id" gorm:"not null;uniqueIndex:ux_trial_usages_key,priority:1"`
	MealPlanID  snowflake.ID `json:"meal_plan_id" gorm:"not null;uniqueIndex:ux_trial_usages_key,priority:2"`
	OrderCount  int          `json:"order_count" gorm:"not null"`
	FirstUsedAt time.Time    `json:"first_used_at" gorm:"not null"`
	LastUsedAt  time.Time    `json:"last_used_at" gorm:"not null"`
}

func (Usage) TableName() string { return "trial_usages" }

// Ledger reads and advances trial usage. Implementations bound to a transaction
// make RecordTrialOrder part of the caller's commit.
type Ledger interface {
	GetUsage(ctx context.Context, customerID, planID snowflake.ID) (*Usage, error)
	RecordTrialOrder(ctx context.Context, customerID, planID snowflake.ID) error
	CountPriorOrders(ctx context.Context, customerID, planID snowflake.ID) (int, error)
}
