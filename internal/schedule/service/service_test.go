package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tiffin/internal/actorcontext"
	"github.com/smallbiznis/tiffin/internal/clock"
	mealplandomain "github.com/smallbiznis/tiffin/internal/mealplan/domain"
	mealplanrepo "github.com/smallbiznis/tiffin/internal/mealplan/repository"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	"github.com/smallbiznis/tiffin/internal/schedule/repository"
	"github.com/smallbiznis/tiffin/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc    scheduledomain.Service
	db     *gorm.DB
	planID snowflake.ID
	ctx    context.Context
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&mealplandomain.MealPlan{}, &scheduledomain.Slot{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	plan := &mealplandomain.MealPlan{
		ID:           node.Generate(),
		KitchenID:    snowflake.ID(10),
		Name:         "Thali",
		Slug:         "thali",
		BasePrice:    decimal.NewFromInt(150),
		BillingCycle: mealplandomain.Weekly,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	planRepo := mealplanrepo.Provide()
	require.NoError(t, planRepo.Insert(context.Background(), dbConn, plan))

	svc := New(Params{
		DB:       dbConn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(now),
		Repo:     repository.Provide(),
		PlanRepo: planRepo,
	})

	return fixture{
		svc:    svc,
		db:     dbConn,
		planID: plan.ID,
		ctx:    actorcontext.WithKitchenID(context.Background(), snowflake.ID(10)),
	}
}

func ptr[T any](v T) *T { return &v }

func TestUpsertSlotReplacesExistingKey(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.UpsertSlot(f.ctx, f.planID.String(), scheduledomain.UpsertSlotRequest{
		DayOfWeek:     ptr(1),
		MealType:      "Lunch",
		OrderDeadline: "10:00",
		MaxOrders:     ptr(20),
	})
	require.NoError(t, err)
	assert.Equal(t, scheduledomain.Lunch, first.MealType)
	assert.True(t, first.IsAvailable)

	second, err := f.svc.UpsertSlot(f.ctx, f.planID.String(), scheduledomain.UpsertSlotRequest{
		DayOfWeek:           ptr(1),
		MealType:            "lunch",
		OrderDeadline:       "09:30",
		IsAvailable:         ptr(false),
		PriceOverride:       ptr(decimal.RequireFromString("12")),
		DeliveryWindowStart: ptr("12:00"),
		DeliveryWindowEnd:   ptr("13:30"),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "09:30", second.OrderDeadline)
	assert.False(t, second.IsAvailable)
	assert.Nil(t, second.MaxOrders)
	require.NotNil(t, second.DeliveryWindowStart)
	assert.Equal(t, "12:00", *second.DeliveryWindowStart)

	slots, err := f.svc.ListSlots(f.ctx, f.planID.String())
	require.NoError(t, err)
	assert.Len(t, slots, 1)
}

func TestUpsertSlotValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		req  scheduledomain.UpsertSlotRequest
		want error
	}{
		{"missing day", scheduledomain.UpsertSlotRequest{MealType: "lunch", OrderDeadline: "10:00"}, scheduledomain.ErrInvalidDayOfWeek},
		{"day out of range", scheduledomain.UpsertSlotRequest{DayOfWeek: ptr(7), MealType: "lunch", OrderDeadline: "10:00"}, scheduledomain.ErrInvalidDayOfWeek},
		{"bad meal type", scheduledomain.UpsertSlotRequest{DayOfWeek: ptr(0), MealType: "brunch", OrderDeadline: "10:00"}, scheduledomain.ErrInvalidMealType},
		{"bad deadline", scheduledomain.UpsertSlotRequest{DayOfWeek: ptr(0), MealType: "lunch", OrderDeadline: "10am"}, scheduledomain.ErrInvalidOrderDeadline},
		{"half window", scheduledomain.UpsertSlotRequest{DayOfWeek: ptr(0), MealType: "lunch", OrderDeadline: "10:00", DeliveryWindowStart: ptr("12:00")}, scheduledomain.ErrInvalidDeliveryWindow},
		{"inverted service", scheduledomain.UpsertSlotRequest{DayOfWeek: ptr(0), MealType: "lunch", OrderDeadline: "10:00", ServiceStartTime: ptr("14:00"), ServiceEndTime: ptr("12:00")}, scheduledomain.ErrInvalidServiceWindow},
		{"negative price", scheduledomain.UpsertSlotRequest{DayOfWeek: ptr(0), MealType: "lunch", OrderDeadline: "10:00", PriceOverride: ptr(decimal.NewFromInt(-1))}, scheduledomain.ErrInvalidPriceOverride},
		{"negative max", scheduledomain.UpsertSlotRequest{DayOfWeek: ptr(0), MealType: "lunch", OrderDeadline: "10:00", MaxOrders: ptr(-1)}, scheduledomain.ErrInvalidMaxOrders},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.UpsertSlot(f.ctx, f.planID.String(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSlotAccessRequiresOwningKitchen(t *testing.T) {
	f := newFixture(t)
	other := actorcontext.WithKitchenID(context.Background(), snowflake.ID(99))

	_, err := f.svc.ListSlots(other, f.planID.String())
	assert.ErrorIs(t, err, mealplandomain.ErrForbidden)

	_, err = f.svc.ListSlots(context.Background(), f.planID.String())
	assert.ErrorIs(t, err, mealplandomain.ErrInvalidKitchen)
}

func TestDeleteSlot(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpsertSlot(f.ctx, f.planID.String(), scheduledomain.UpsertSlotRequest{
		DayOfWeek: ptr(3), MealType: "dinner", OrderDeadline: "17:00",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteSlot(f.ctx, f.planID.String(), 3, "dinner"))
	assert.ErrorIs(t, f.svc.DeleteSlot(f.ctx, f.planID.String(), 3, "dinner"), scheduledomain.ErrNotFound)

	catalog := repository.NewCatalog(f.db)
	slot, err := catalog.Lookup(context.Background(), f.planID, time.Wednesday, scheduledomain.Dinner)
	require.NoError(t, err)
	assert.Nil(t, slot)
}
