package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tiffin/internal/clock"
	eligibilitydomain "github.com/smallbiznis/tiffin/internal/eligibility/domain"
	mealplandomain "github.com/smallbiznis/tiffin/internal/mealplan/domain"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	trialdomain "github.com/smallbiznis/tiffin/internal/trial/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	planID     = snowflake.ID(100)
	customerID = snowflake.ID(7)
)

var (
	ist    = time.FixedZone("IST", 5*3600+1800)
	monday = civil.Date{Year: 2026, Month: time.March, Day: 2}
)

type slotKey struct {
	day      time.Weekday
	mealType scheduledomain.MealType
}

type stubPlans struct {
	plans map[snowflake.ID]*mealplandomain.MealPlan
	err   error
}

func (s *stubPlans) FindPlan(_ context.Context, id snowflake.ID) (*mealplandomain.MealPlan, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.plans[id], nil
}

type stubCatalog struct {
	slots map[slotKey]*scheduledomain.Slot
	err   error
}

func (s *stubCatalog) Lookup(_ context.Context, _ snowflake.ID, day time.Weekday, mealType scheduledomain.MealType) (*scheduledomain.Slot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.slots[slotKey{day, mealType}], nil
}

type capacityKey struct {
	mealType scheduledomain.MealType
	date     civil.Date
}

type stubCapacity struct {
	counts map[capacityKey]int
	calls  int
}

func (s *stubCapacity) CountOrders(_ context.Context, _ snowflake.ID, mealType scheduledomain.MealType, date civil.Date) (int, error) {
	s.calls++
	return s.counts[capacityKey{mealType, date}], nil
}

type memLedger struct {
	used     int
	prior    int
	recorded int
	err      error
}

func (m *memLedger) GetUsage(context.Context, snowflake.ID, snowflake.ID) (*trialdomain.Usage, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.used == 0 {
		return nil, nil
	}
	return &trialdomain.Usage{OrderCount: m.used}, nil
}

func (m *memLedger) RecordTrialOrder(context.Context, snowflake.ID, snowflake.ID) error {
	m.used++
	m.recorded++
	return nil
}

func (m *memLedger) CountPriorOrders(context.Context, snowflake.ID, snowflake.ID) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.prior, nil
}

type harness struct {
	plan     *mealplandomain.MealPlan
	slot     *scheduledomain.Slot
	plans    *stubPlans
	catalog  *stubCatalog
	capacity *stubCapacity
	ledger   *memLedger
	clock    *clock.FakeClock
	engine   *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	start, end := "12:30", "13:30"
	h := &harness{
		plan: &mealplandomain.MealPlan{
			ID:           planID,
			BasePrice:    decimal.NewFromInt(150),
			BillingCycle: mealplandomain.Weekly,
			Active:       true,
		},
		slot: &scheduledomain.Slot{
			MealPlanID:          planID,
			DayOfWeek:           int(time.Monday),
			MealType:            scheduledomain.Lunch,
			IsAvailable:         true,
			OrderDeadline:       "10:00",
			DeliveryWindowStart: &start,
			DeliveryWindowEnd:   &end,
		},
		capacity: &stubCapacity{counts: map[capacityKey]int{}},
		ledger:   &memLedger{},
		clock:    clock.NewFakeClock(time.Date(2026, 3, 2, 8, 0, 0, 0, ist)),
	}
	h.plans = &stubPlans{plans: map[snowflake.ID]*mealplandomain.MealPlan{planID: h.plan}}
	h.catalog = &stubCatalog{slots: map[slotKey]*scheduledomain.Slot{
		{time.Monday, scheduledomain.Lunch}: h.slot,
	}}
	h.engine = NewEngine(Collaborators{
		Plans:    h.plans,
		Schedule: h.catalog,
		Capacity: h.capacity,
		Trials:   h.ledger,
	}, Options{Clock: h.clock, Location: ist})
	return h
}

func lunchOn(date civil.Date) eligibilitydomain.ProspectiveOrder {
	return eligibilitydomain.ProspectiveOrder{
		CustomerID:    customerID,
		MealPlanID:    planID,
		MealType:      scheduledomain.Lunch,
		ScheduledDate: date,
	}
}

func trialLunch() eligibilitydomain.ProspectiveOrder {
	o := lunchOn(monday)
	o.RequestedAsTrial = true
	return o
}

func TestEvaluateAcceptsWithDerivedPrice(t *testing.T) {
	h := newHarness(t)

	v, err := h.engine.Evaluate(context.Background(), lunchOn(monday))
	require.NoError(t, err)
	require.True(t, v.Accepted)
	assert.Equal(t, "8.57", v.FinalPrice.StringFixed(2))
	assert.False(t, v.IsTrial)
	require.NotNil(t, v.DeliveryWindow)
	assert.Equal(t, "12:30", v.DeliveryWindow.Start)
	assert.Empty(t, v.Reason)
	assert.Zero(t, h.capacity.calls)
}

func TestDeadlineBoundary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.clock.Set(time.Date(2026, 3, 2, 9, 59, 59, 0, ist))
	v, err := h.engine.Evaluate(ctx, lunchOn(monday))
	require.NoError(t, err)
	assert.True(t, v.Accepted)

	h.clock.Set(time.Date(2026, 3, 2, 10, 0, 0, 0, ist))
	v, err = h.engine.Evaluate(ctx, lunchOn(monday))
	require.NoError(t, err)
	assert.True(t, v.Accepted)

	h.clock.Set(time.Date(2026, 3, 2, 10, 0, 1, 0, ist))
	v, err = h.engine.Evaluate(ctx, lunchOn(monday))
	require.NoError(t, err)
	assert.False(t, v.Accepted)
	assert.Equal(t, eligibilitydomain.ReasonDeadlinePassed, v.Reason)
	require.NotNil(t, v.Deadline)
	assert.True(t, v.Deadline.Equal(time.Date(2026, 3, 2, 4, 30, 0, 0, time.UTC)))
	assert.Nil(t, v.FinalPrice)
}

func TestDeadlineUsesConfiguredZone(t *testing.T) {
	h := newHarness(t)

	// 09:00 UTC is already 14:30 in IST.
	h.clock.Set(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	v, err := h.engine.Evaluate(context.Background(), lunchOn(monday))
	require.NoError(t, err)
	assert.Equal(t, eligibilitydomain.ReasonDeadlinePassed, v.Reason)
}

func TestSlotUnavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("no slot for weekday", func(t *testing.T) {
		h := newHarness(t)
		tuesday := civil.Date{Year: 2026, Month: time.March, Day: 3}
		v, err := h.engine.Evaluate(ctx, lunchOn(tuesday))
		require.NoError(t, err)
		assert.Equal(t, eligibilitydomain.ReasonSlotUnavailable, v.Reason)
	})

	t.Run("slot switched off", func(t *testing.T) {
		h := newHarness(t)
		h.slot.IsAvailable = false
		v, err := h.engine.Evaluate(ctx, lunchOn(monday))
		require.NoError(t, err)
		assert.Equal(t, eligibilitydomain.ReasonSlotUnavailable, v.Reason)
	})

	t.Run("plan deactivated", func(t *testing.T) {
		h := newHarness(t)
		h.plan.Active = false
		v, err := h.engine.Evaluate(ctx, lunchOn(monday))
		require.NoError(t, err)
		assert.Equal(t, eligibilitydomain.ReasonSlotUnavailable, v.Reason)
	})

	t.Run("slot check precedes deadline", func(t *testing.T) {
		h := newHarness(t)
		h.slot.IsAvailable = false
		h.clock.Set(time.Date(2026, 3, 2, 23, 0, 0, 0, ist))
		v, err := h.engine.Evaluate(ctx, lunchOn(monday))
		require.NoError(t, err)
		assert.Equal(t, eligibilitydomain.ReasonSlotUnavailable, v.Reason)
	})
}

func TestCapacityCeilingExact(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	maxOrders := 3
	h.slot.MaxOrders = &maxOrders
	dinner := *h.slot
	dinner.MealType = scheduledomain.Dinner
	dinner.MaxOrders = &maxOrders
	h.catalog.slots[slotKey{time.Monday, scheduledomain.Dinner}] = &dinner

	h.capacity.counts[capacityKey{scheduledomain.Lunch, monday}] = 2
	v, err := h.engine.Evaluate(ctx, lunchOn(monday))
	require.NoError(t, err)
	assert.True(t, v.Accepted)

	h.capacity.counts[capacityKey{scheduledomain.Lunch, monday}] = 3
	v, err = h.engine.Evaluate(ctx, lunchOn(monday))
	require.NoError(t, err)
	assert.Equal(t, eligibilitydomain.ReasonCapacityFull, v.Reason)
	require.NotNil(t, v.MaxOrders)
	assert.Equal(t, 3, *v.MaxOrders)

	nextMonday := civil.Date{Year: 2026, Month: time.March, Day: 9}
	v, err = h.engine.Evaluate(ctx, lunchOn(nextMonday))
	require.NoError(t, err)
	assert.True(t, v.Accepted)

	dinnerOrder := lunchOn(monday)
	dinnerOrder.MealType = scheduledomain.Dinner
	v, err = h.engine.Evaluate(ctx, dinnerOrder)
	require.NoError(t, err)
	assert.True(t, v.Accepted)
}

func TestTrialRules(t *testing.T) {
	ctx := context.Background()

	t.Run("not enabled", func(t *testing.T) {
		h := newHarness(t)
		v, err := h.engine.Evaluate(ctx, trialLunch())
		require.NoError(t, err)
		assert.Equal(t, eligibilitydomain.ReasonTrialNotEnabled, v.Reason)
		assert.Zero(t, h.ledger.recorded)
	})

	t.Run("limit reached", func(t *testing.T) {
		h := newHarness(t)
		limit := 2
		h.plan.TrialEnabled = true
		h.plan.TrialOrderLimit = &limit

		for i := 0; i < 2; i++ {
			v, err := h.engine.Evaluate(ctx, trialLunch())
			require.NoError(t, err)
			require.True(t, v.Accepted)
			assert.True(t, v.IsTrial)
			assert.True(t, v.FinalPrice.IsZero())
		}
		assert.Equal(t, 2, h.ledger.recorded)

		v, err := h.engine.Evaluate(ctx, trialLunch())
		require.NoError(t, err)
		assert.Equal(t, eligibilitydomain.ReasonTrialLimitReached, v.Reason)
		require.NotNil(t, v.TrialLimit)
		assert.Equal(t, 2, *v.TrialLimit)
		assert.Equal(t, 2, h.ledger.recorded)

		v, err = h.engine.Evaluate(ctx, lunchOn(monday))
		require.NoError(t, err)
		assert.True(t, v.Accepted)
		assert.Equal(t, "8.57", v.FinalPrice.StringFixed(2))
	})

	t.Run("new customers only", func(t *testing.T) {
		h := newHarness(t)
		h.plan.TrialEnabled = true
		h.plan.TrialNewCustomersOnly = true
		h.ledger.prior = 1

		v, err := h.engine.Evaluate(ctx, trialLunch())
		require.NoError(t, err)
		assert.Equal(t, eligibilitydomain.ReasonTrialNewCustomersOnly, v.Reason)

		h.ledger.prior = 0
		v, err = h.engine.Evaluate(ctx, trialLunch())
		require.NoError(t, err)
		assert.True(t, v.Accepted)
	})

	t.Run("trial price", func(t *testing.T) {
		h := newHarness(t)
		price := decimal.RequireFromString("19.99")
		h.plan.TrialEnabled = true
		h.plan.TrialPrice = &price

		v, err := h.engine.Evaluate(ctx, trialLunch())
		require.NoError(t, err)
		assert.Equal(t, "19.99", v.FinalPrice.StringFixed(2))
	})

	t.Run("capacity still applies to trials", func(t *testing.T) {
		h := newHarness(t)
		maxOrders := 1
		h.plan.TrialEnabled = true
		h.slot.MaxOrders = &maxOrders
		h.capacity.counts[capacityKey{scheduledomain.Lunch, monday}] = 1

		v, err := h.engine.Evaluate(ctx, trialLunch())
		require.NoError(t, err)
		assert.Equal(t, eligibilitydomain.ReasonCapacityFull, v.Reason)
		assert.Zero(t, h.ledger.recorded)
	})
}

func TestPreviewHasNoSideEffects(t *testing.T) {
	h := newHarness(t)
	h.plan.TrialEnabled = true

	v, err := h.engine.Preview(context.Background(), trialLunch())
	require.NoError(t, err)
	assert.True(t, v.Accepted)
	assert.Zero(t, h.ledger.recorded)
}

func TestSlotOverridePrecedence(t *testing.T) {
	h := newHarness(t)
	override := decimal.RequireFromString("12.00")
	h.slot.PriceOverride = &override

	v, err := h.engine.Evaluate(context.Background(), lunchOn(monday))
	require.NoError(t, err)
	assert.Equal(t, "12.00", v.FinalPrice.StringFixed(2))
}

func TestFaultsAreDistinctFromRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed deadline", func(t *testing.T) {
		h := newHarness(t)
		h.slot.OrderDeadline = "10am"

		v, err := h.engine.Evaluate(ctx, lunchOn(monday))
		assert.Nil(t, v)
		assert.ErrorIs(t, err, eligibilitydomain.ErrEngineFault)
		assert.ErrorIs(t, err, scheduledomain.ErrInvalidTimeOfDay)

		var fault *eligibilitydomain.Fault
		require.ErrorAs(t, err, &fault)
		assert.Equal(t, eligibilitydomain.StageDeadline, fault.Stage)
	})

	t.Run("catalog unreachable", func(t *testing.T) {
		h := newHarness(t)
		boom := errors.New("connection refused")
		h.catalog.err = boom

		_, err := h.engine.Evaluate(ctx, lunchOn(monday))
		assert.ErrorIs(t, err, eligibilitydomain.ErrEngineFault)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("ledger unreachable", func(t *testing.T) {
		h := newHarness(t)
		h.plan.TrialEnabled = true
		h.plan.TrialNewCustomersOnly = true
		h.ledger.err = errors.New("timeout")

		_, err := h.engine.Evaluate(ctx, trialLunch())
		var fault *eligibilitydomain.Fault
		require.ErrorAs(t, err, &fault)
		assert.Equal(t, eligibilitydomain.StageTrial, fault.Stage)
	})

	t.Run("unknown plan", func(t *testing.T) {
		h := newHarness(t)
		order := lunchOn(monday)
		order.MealPlanID = 999

		_, err := h.engine.Evaluate(ctx, order)
		assert.ErrorIs(t, err, eligibilitydomain.ErrPlanNotFound)
		assert.NotErrorIs(t, err, eligibilitydomain.ErrEngineFault)
	})
}
