package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type Service interface {
	UpsertSlot(ctx context.Context, planID string, req UpsertSlotRequest) (*Slot, error)
	ListSlots(ctx context.Context, planID string) ([]Slot, error)
	DeleteSlot(ctx context.Context, planID string, day int, mealType string) error
}

type UpsertSlotRequest struct {
	DayOfWeek           *int             `json:"day_of_week"`
	MealType            string           `json:"meal_type"`
	IsAvailable         *bool            `json:"is_available"`
	PriceOverride       *decimal.Decimal `json:"price_override"`
	ServiceStartTime    *string          `json:"service_start_time"`
	ServiceEndTime      *string          `json:"service_end_time"`
	OrderDeadline       string           `json:"order_deadline"`
	DeliveryWindowStart *string          `json:"delivery_window_start"`
	DeliveryWindowEnd   *string          `json:"delivery_window_end"`
	MaxOrders           *int             `json:"max_orders"`
}

var (
	ErrInvalidMealType       = errors.New("invalid_meal_type")
	ErrInvalidDayOfWeek      = errors.New("invalid_day_of_week")
	ErrInvalidTimeOfDay      = errors.New("invalid_time_of_day")
	ErrInvalidOrderDeadline  = errors.New("invalid_order_deadline")
	ErrInvalidServiceWindow  = errors.New("invalid_service_window")
	ErrInvalidDeliveryWindow = errors.New("invalid_delivery_window")
	ErrInvalidPriceOverride  = errors.New("invalid_price_override")
	ErrInvalidMaxOrders      = errors.New("invalid_max_orders")
	ErrInvalidMealPlan       = errors.New("invalid_meal_plan")
	ErrNotFound              = errors.New("not_found")
)
