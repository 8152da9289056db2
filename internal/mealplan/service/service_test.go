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
	"github.com/smallbiznis/tiffin/internal/mealplan/repository"
	"github.com/smallbiznis/tiffin/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) mealplandomain.Service {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&mealplandomain.MealPlan{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func kitchenCtx(id int64) context.Context {
	return actorcontext.WithKitchenID(context.Background(), snowflake.ID(id))
}

func TestCreateMealPlan(t *testing.T) {
	svc := newTestService(t)
	limit := 3
	price := decimal.RequireFromString("49.5")

	plan, err := svc.Create(kitchenCtx(10), mealplandomain.CreateRequest{
		Name:         "  Veg Thali Weekly ",
		BasePrice:    decimal.RequireFromString("150"),
		BillingCycle: "Weekly",
		Trial: &mealplandomain.TrialRequest{
			Enabled:    true,
			OrderLimit: &limit,
			Price:      &price,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Veg Thali Weekly", plan.Name)
	assert.Equal(t, "veg-thali-weekly", plan.Slug)
	assert.Equal(t, mealplandomain.Weekly, plan.BillingCycle)
	assert.True(t, plan.Active)
	assert.True(t, plan.TrialEnabled)
	require.NotNil(t, plan.TrialPrice)
	assert.Equal(t, "49.5", plan.TrialPrice.String())

	got, err := svc.Get(kitchenCtx(10), plan.ID.String())
	require.NoError(t, err)
	assert.Equal(t, plan.ID, got.ID)
	assert.True(t, got.BasePrice.Equal(decimal.NewFromInt(150)))
	require.NotNil(t, got.TrialOrderLimit)
	assert.Equal(t, 3, *got.TrialOrderLimit)
}

func TestCreateMealPlanValidation(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		name string
		ctx  context.Context
		req  mealplandomain.CreateRequest
		want error
	}{
		{
			name: "missing kitchen",
			ctx:  context.Background(),
			req:  mealplandomain.CreateRequest{Name: "x", BasePrice: decimal.NewFromInt(1), BillingCycle: "daily"},
			want: mealplandomain.ErrInvalidKitchen,
		},
		{
			name: "blank name",
			ctx:  kitchenCtx(1),
			req:  mealplandomain.CreateRequest{Name: " ", BasePrice: decimal.NewFromInt(1), BillingCycle: "daily"},
			want: mealplandomain.ErrInvalidName,
		},
		{
			name: "zero price",
			ctx:  kitchenCtx(1),
			req:  mealplandomain.CreateRequest{Name: "x", BasePrice: decimal.Zero, BillingCycle: "daily"},
			want: mealplandomain.ErrInvalidBasePrice,
		},
		{
			name: "unknown cycle",
			ctx:  kitchenCtx(1),
			req:  mealplandomain.CreateRequest{Name: "x", BasePrice: decimal.NewFromInt(1), BillingCycle: "yearly"},
			want: mealplandomain.ErrInvalidBillingCycle,
		},
		{
			name: "zero trial limit",
			ctx:  kitchenCtx(1),
			req: mealplandomain.CreateRequest{
				Name: "x", BasePrice: decimal.NewFromInt(1), BillingCycle: "daily",
				Trial: &mealplandomain.TrialRequest{Enabled: true, OrderLimit: new(int)},
			},
			want: mealplandomain.ErrInvalidTrialLimit,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(tc.ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestMealPlanOwnership(t *testing.T) {
	svc := newTestService(t)

	plan, err := svc.Create(kitchenCtx(10), mealplandomain.CreateRequest{
		Name: "Lunch Box", BasePrice: decimal.NewFromInt(300), BillingCycle: "monthly",
	})
	require.NoError(t, err)

	_, err = svc.Get(kitchenCtx(11), plan.ID.String())
	assert.ErrorIs(t, err, mealplandomain.ErrForbidden)

	_, err = svc.Get(kitchenCtx(10), "not-an-id")
	assert.ErrorIs(t, err, mealplandomain.ErrInvalidID)

	_, err = svc.Get(kitchenCtx(10), "12345")
	assert.ErrorIs(t, err, mealplandomain.ErrNotFound)

	items, err := svc.List(kitchenCtx(11))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpdateAndDeactivateMealPlan(t *testing.T) {
	svc := newTestService(t)
	ctx := kitchenCtx(10)

	plan, err := svc.Create(ctx, mealplandomain.CreateRequest{
		Name: "Lunch Box", BasePrice: decimal.NewFromInt(300), BillingCycle: "monthly",
	})
	require.NoError(t, err)

	name := "Dinner Box"
	price := decimal.RequireFromString("320.456")
	updated, err := svc.Update(ctx, plan.ID.String(), mealplandomain.UpdateRequest{
		Name:      &name,
		BasePrice: &price,
	})
	require.NoError(t, err)
	assert.Equal(t, "dinner-box", updated.Slug)
	assert.Equal(t, "320.46", updated.BasePrice.StringFixed(2))
	assert.Equal(t, mealplandomain.Monthly, updated.BillingCycle)

	deactivated, err := svc.Deactivate(ctx, plan.ID.String())
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	again, err := svc.Get(ctx, plan.ID.String())
	require.NoError(t, err)
	assert.False(t, again.Active)
}
