// Package domain contains placed tiffin orders and the guard rows that serialize placement.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPlaced    Status = "PLACED"
	StatusCancelled Status = "CANCELLED"
)

// Order is one meal delivered on one calendar date. ScheduledDate is stored as YYYY-MM-DD.
type Order struct {
	ID                  snowflake.ID            `json:"id" gorm:"primaryKey"`
	KitchenID           snowflake.ID            `json:"kitchen_id" gorm:"not null;index"`
	CustomerID          snowflake.ID            `json:"customer_id" gorm:"not null;index:ix_orders_customer_plan,priority:1"`
	MealPlanID          snowflake.ID            `json:"meal_plan_id" gorm:"not null;index:ix_orders_customer_plan,priority:2;index:ix_orders_slot,priority:1"`
	MealType            scheduledomain.MealType `json:"meal_type" gorm:"type:varchar(16);not null;index:ix_orders_slot,priority:2"`
	ScheduledDate       string                  `json:"scheduled_date" gorm:"type:varchar(10);not null;index:ix_orders_slot,priority:3"`
	Status              Status                  `json:"status" gorm:"type:varchar(16);not null"`
	Price               decimal.Decimal         `json:"price" gorm:"type:numeric(12,2);not null"`
	IsTrial             bool                    `json:"is_trial" gorm:"not null"`
	DeliveryWindowStart *string                 `json:"delivery_window_start,omitempty" gorm:"type:text"`
	DeliveryWindowEnd   *string                 `json:"delivery_window_end,omitempty" gorm:"type:text"`
	Metadata            datatypes.JSONMap       `json:"metadata,omitempty"`
	CreatedAt           time.Time               `json:"created_at" gorm:"not null"`
	UpdatedAt           time.Time               `json:"updated_at" gorm:"not null"`
	CancelledAt         *time.Time              `json:"cancelled_at,omitempty"`
}

func (Order) TableName() string { return "orders" }

// Guard is a lock row. Bumping Version inside a transaction serializes writers on GuardKey.
type Guard struct {
	GuardKey  string    `gorm:"column:guard_key;primaryKey;type:varchar(191)"`
	Version   int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Guard) TableName() string { return "order_guards" }

func FormatDate(date civil.Date) string {
	return date.String()
}
