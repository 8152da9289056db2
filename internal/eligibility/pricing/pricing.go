// Package pricing resolves the chargeable amount of a single meal order.
package pricing

import (
	"github.com/shopspring/decimal"
	mealplandomain "github.com/smallbiznis/tiffin/internal/mealplan/domain"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
)

const (
	// MealsPerDay is fixed regardless of how many meal types a plan offers.
	MealsPerDay = 3

	defaultCycleDays = 30
)

// Markup is applied to the amortized per-meal subscription rate.
var Markup = decimal.RequireFromString("1.20")

// DaysInCycle returns the number of days a billing cycle amortizes over.
func DaysInCycle(cycle mealplandomain.BillingCycle) int64 {
	switch cycle {
	case mealplandomain.Daily, mealplandomain.OneOff:
		return 1
	case mealplandomain.Weekly:
		return 7
	case mealplandomain.Biweekly:
		return 14
	case mealplandomain.Monthly:
		return 30
	default:
		return defaultCycleDays
	}
}

// PerMealPrice is round2(base / days / 3 * 1.20), rounded half up on the exact quotient.
func PerMealPrice(base decimal.Decimal, cycle mealplandomain.BillingCycle) decimal.Decimal {
	divisor := decimal.NewFromInt(DaysInCycle(cycle) * MealsPerDay)
	return base.Mul(Markup).DivRound(divisor, 2)
}

// Resolve prices an order whose trial eligibility, if requested, is already confirmed.
func Resolve(plan *mealplandomain.MealPlan, slot *scheduledomain.Slot, trial bool) decimal.Decimal {
	if trial {
		if plan.TrialPrice != nil {
			return *plan.TrialPrice
		}
		return decimal.Zero
	}
	if slot != nil && slot.PriceOverride != nil && slot.PriceOverride.IsPositive() {
		return *slot.PriceOverride
	}
	return PerMealPrice(plan.BasePrice, plan.BillingCycle)
}
