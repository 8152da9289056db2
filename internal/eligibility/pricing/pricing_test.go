package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	mealplandomain "github.com/smallbiznis/tiffin/internal/mealplan/domain"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	"github.com/stretchr/testify/assert"
)

func TestPerMealPrice(t *testing.T) {
	cases := []struct {
		base  string
		cycle mealplandomain.BillingCycle
		want  string
	}{
		{"150", mealplandomain.Weekly, "8.57"},
		{"1000", mealplandomain.Biweekly, "28.57"},
		{"999", mealplandomain.Weekly, "57.09"},
		{"300", mealplandomain.Monthly, "4.00"},
		{"100", mealplandomain.Daily, "40.00"},
		{"100", mealplandomain.OneOff, "40.00"},
		{"300", mealplandomain.BillingCycle("quarterly"), "4.00"},
		// 0.0125 * 1.2 / 3 = 0.005 exactly
		{"0.0125", mealplandomain.Daily, "0.01"},
	}

	for _, tc := range cases {
		t.Run(string(tc.cycle)+"/"+tc.base, func(t *testing.T) {
			got := PerMealPrice(decimal.RequireFromString(tc.base), tc.cycle)
			assert.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}

func TestPerMealPriceIsPure(t *testing.T) {
	base := decimal.NewFromInt(150)
	first := PerMealPrice(base, mealplandomain.Weekly)
	for i := 0; i < 10; i++ {
		assert.True(t, first.Equal(PerMealPrice(base, mealplandomain.Weekly)))
	}
}

func TestResolvePrecedence(t *testing.T) {
	trialPrice := decimal.RequireFromString("25.00")
	override := decimal.RequireFromString("12.00")

	plan := &mealplandomain.MealPlan{
		BasePrice:    decimal.NewFromInt(150),
		BillingCycle: mealplandomain.Weekly,
		TrialEnabled: true,
		TrialPrice:   &trialPrice,
	}
	slot := &scheduledomain.Slot{PriceOverride: &override}

	assert.Equal(t, "25.00", Resolve(plan, slot, true).StringFixed(2))
	assert.Equal(t, "12.00", Resolve(plan, slot, false).StringFixed(2))
	assert.Equal(t, "8.57", Resolve(plan, &scheduledomain.Slot{}, false).StringFixed(2))

	zero := decimal.Zero
	assert.Equal(t, "8.57", Resolve(plan, &scheduledomain.Slot{PriceOverride: &zero}, false).StringFixed(2))

	plan.TrialPrice = nil
	assert.True(t, Resolve(plan, slot, true).IsZero())
}
