package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-sql/civil"
	eligibilitydomain "github.com/smallbiznis/tiffin/internal/eligibility/domain"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	"github.com/smallbiznis/tiffin/pkg/db/pagination"
)

type Service interface {
	Quote(ctx context.Context, req PlaceRequest) (*eligibilitydomain.Verdict, error)
	Place(ctx context.Context, req PlaceRequest) (*Order, error)
	Cancel(ctx context.Context, id string) (*Order, error)
	ListForCustomer(ctx context.Context, page pagination.Pagination) (*ListResponse, error)
	Dashboard(ctx context.Context, date string) (*Dashboard, error)
}

type PlaceRequest struct {
	MealPlanID    string         `json:"meal_plan_id"`
	ScheduledDate string         `json:"scheduled_date"`
	MealType      string         `json:"meal_type"`
	IsTrial       bool           `json:"is_trial"`
	Metadata      map[string]any `json:"metadata"`
}

type ListResponse struct {
	Orders   []Order             `json:"orders"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

// Dashboard is the owner's view of one calendar date across all of a kitchen's plans.
type Dashboard struct {
	Date  civil.Date      `json:"date"`
	Slots []DashboardSlot `json:"slots"`
}

type DashboardSlot struct {
	MealPlanID   string                  `json:"meal_plan_id"`
	MealPlanName string                  `json:"meal_plan_name"`
	MealType     scheduledomain.MealType `json:"meal_type"`
	IsAvailable  bool                    `json:"is_available"`
	Placed       int                     `json:"placed"`
	MaxOrders    *int                    `json:"max_orders,omitempty"`
	Remaining    *int                    `json:"remaining,omitempty"`
	Deadline     time.Time               `json:"deadline"`
	OrderingOpen bool                    `json:"ordering_open"`
}

// RejectionError reports an order the eligibility engine turned down.
type RejectionError struct {
	Verdict *eligibilitydomain.Verdict
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("order rejected: %s", e.Verdict.Reason)
}

func (e *RejectionError) Is(target error) bool {
	return target == ErrOrderRejected
}

var (
	ErrInvalidCustomer    = errors.New("invalid_customer")
	ErrInvalidKitchen     = errors.New("invalid_kitchen")
	ErrInvalidMealPlan    = errors.New("invalid_meal_plan")
	ErrInvalidDate        = errors.New("invalid_scheduled_date")
	ErrInvalidID          = errors.New("invalid_id")
	ErrOrderRejected      = errors.New("order_rejected")
	ErrAlreadyCancelled   = errors.New("order_already_cancelled")
	ErrRateLimited        = errors.New("rate_limited")
	ErrTrialBusy          = errors.New("trial_request_in_progress")
	ErrNotFound           = errors.New("not_found")
	ErrForbidden          = errors.New("forbidden")
	ErrMealPlanNotFound   = errors.New("meal_plan_not_found")
	ErrInvalidPageRequest = errors.New("invalid_page_token")
)
