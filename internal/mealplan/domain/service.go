package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*MealPlan, error)
	Get(ctx context.Context, id string) (*MealPlan, error)
	List(ctx context.Context) ([]MealPlan, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*MealPlan, error)
	Deactivate(ctx context.Context, id string) (*MealPlan, error)
}

type TrialRequest struct {
	Enabled          bool             `json:"enabled"`
	OrderLimit       *int             `json:"order_limit"`
	Price            *decimal.Decimal `json:"price"`
	ValidityMode     *string          `json:"validity_mode"`
	NewCustomersOnly bool             `json:"new_customers_only"`
}

type CreateRequest struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	BasePrice    decimal.Decimal `json:"base_price"`
	BillingCycle string          `json:"billing_cycle"`
	Trial        *TrialRequest   `json:"trial"`
	Metadata     map[string]any  `json:"metadata"`
}

// UpdateRequest patches only the fields that are set. Trial replaces the whole trial configuration.
type UpdateRequest struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	BasePrice    *decimal.Decimal `json:"base_price"`
	BillingCycle *string          `json:"billing_cycle"`
	Trial        *TrialRequest    `json:"trial"`
	Metadata     map[string]any   `json:"metadata"`
}

var (
	ErrInvalidKitchen      = errors.New("invalid_kitchen")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidBasePrice    = errors.New("invalid_base_price")
	ErrInvalidBillingCycle = errors.New("invalid_billing_cycle")
	ErrInvalidTrialLimit   = errors.New("invalid_trial_limit")
	ErrInvalidTrialPrice   = errors.New("invalid_trial_price")
	ErrInvalidID           = errors.New("invalid_id")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not_found")
)
