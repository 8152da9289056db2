// Package domain describes the order eligibility decision: its input, its verdict
// and the collaborators it reads from.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"
	mealplandomain "github.com/smallbiznis/tiffin/internal/mealplan/domain"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	trialdomain "github.com/smallbiznis/tiffin/internal/trial/domain"
)

// ProspectiveOrder is a request to order one meal on one date.
type ProspectiveOrder struct {
	CustomerID       snowflake.ID
	MealPlanID       snowflake.ID
	MealType         scheduledomain.MealType
	ScheduledDate    civil.Date
	RequestedAsTrial bool
}

type ReasonCode string

const (
	ReasonSlotUnavailable       ReasonCode = "SLOT_UNAVAILABLE"
	ReasonDeadlinePassed        ReasonCode = "DEADLINE_PASSED"
	ReasonTrialNotEnabled       ReasonCode = "TRIAL_NOT_ENABLED"
	ReasonTrialNewCustomersOnly ReasonCode = "TRIAL_NEW_CUSTOMERS_ONLY"
	ReasonTrialLimitReached     ReasonCode = "TRIAL_LIMIT_REACHED"
	ReasonCapacityFull          ReasonCode = "CAPACITY_FULL"
)

// Message is the customer-facing explanation of a rejection.
func (r ReasonCode) Message() string {
	switch r {
	case ReasonSlotUnavailable:
		return "This meal is not available on the selected day."
	case ReasonDeadlinePassed:
		return "The ordering deadline for this meal has passed."
	case ReasonTrialNotEnabled:
		return "This meal plan does not offer a trial."
	case ReasonTrialNewCustomersOnly:
		return "The trial is only available to new customers of this meal plan."
	case ReasonTrialLimitReached:
		return "You have used all trial orders for this meal plan."
	case ReasonCapacityFull:
		return "This meal is fully booked for the selected day."
	default:
		return "The order is not eligible."
	}
}

type DeliveryWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Verdict is the outcome of an eligibility evaluation. Exactly one of
// FinalPrice (accepted) or Reason (rejected) is set.
type Verdict struct {
	Accepted       bool             `json:"accepted"`
	FinalPrice     *decimal.Decimal `json:"final_price,omitempty"`
	IsTrial        bool             `json:"is_trial"`
	DeliveryWindow *DeliveryWindow  `json:"delivery_window,omitempty"`

	Reason     ReasonCode `json:"reason,omitempty"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	TrialLimit *int       `json:"trial_limit,omitempty"`
	MaxOrders  *int       `json:"max_orders,omitempty"`

	Plan *mealplandomain.MealPlan `json:"-"`
	Slot *scheduledomain.Slot     `json:"-"`
}

func Rejected(reason ReasonCode) *Verdict {
	return &Verdict{Reason: reason}
}

// PlanSource loads meal plans. A missing plan is (nil, nil).
type PlanSource interface {
	FindPlan(ctx context.Context, id snowflake.ID) (*mealplandomain.MealPlan, error)
}

// ScheduleCatalog is a read-only view of schedule slots. A missing slot is (nil, nil).
type ScheduleCatalog interface {
	Lookup(ctx context.Context, planID snowflake.ID, day time.Weekday, mealType scheduledomain.MealType) (*scheduledomain.Slot, error)
}

// CapacityCounter counts committed orders for one plan, meal type and calendar date.
type CapacityCounter interface {
	CountOrders(ctx context.Context, planID snowflake.ID, mealType scheduledomain.MealType, date civil.Date) (int, error)
}

type TrialLedger = trialdomain.Ledger

type Stage string

const (
	StagePlan     Stage = "plan_lookup"
	StageSlot     Stage = "slot_lookup"
	StageDeadline Stage = "deadline"
	StageTrial    Stage = "trial_history"
	StageCapacity Stage = "capacity"
	StageCommit   Stage = "trial_commit"
)

var (
	// ErrEngineFault matches every Fault: eligibility could not be determined.
	ErrEngineFault = errors.New("eligibility_engine_fault")

	ErrPlanNotFound = errors.New("meal_plan_not_found")
)

// Fault is a collaborator failure or malformed schedule data, never a rejection.
type Fault struct {
	Stage Stage
	Err   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("eligibility %s: %v", f.Stage, f.Err)
}

func (f *Fault) Unwrap() []error {
	return []error{ErrEngineFault, f.Err}
}
