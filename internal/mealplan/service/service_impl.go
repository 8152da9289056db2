package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tiffin/internal/actorcontext"
	"github.com/smallbiznis/tiffin/internal/clock"
	mealplandomain "github.com/smallbiznis/tiffin/internal/mealplan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  mealplandomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  mealplandomain.Repository
}

func New(p Params) mealplandomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("mealplan.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req mealplandomain.CreateRequest) (*mealplandomain.MealPlan, error) {
	kitchenID, err := kitchenFromContext(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, mealplandomain.ErrInvalidName
	}
	if !req.BasePrice.IsPositive() {
		return nil, mealplandomain.ErrInvalidBasePrice
	}
	cycle, err := mealplandomain.ParseBillingCycle(req.BillingCycle)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	plan := &mealplandomain.MealPlan{
		ID:           s.genID.Generate(),
		KitchenID:    kitchenID,
		Name:         name,
		Slug:         slug.Make(name),
		Description:  strings.TrimSpace(req.Description),
		BasePrice:    req.BasePrice.Round(2),
		BillingCycle: cycle,
		Active:       true,
		Metadata:     datatypes.JSONMap(req.Metadata),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Trial != nil {
		if err := applyTrial(plan, *req.Trial); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Insert(ctx, s.db, plan); err != nil {
		return nil, err
	}

	s.log.Info("meal plan created",
		zap.String("meal_plan_id", plan.ID.String()),
		zap.String("kitchen_id", kitchenID.String()),
		zap.String("billing_cycle", string(plan.BillingCycle)),
	)
	return plan, nil
}

func (s *Service) Get(ctx context.Context, id string) (*mealplandomain.MealPlan, error) {
	kitchenID, err := kitchenFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.loadOwned(ctx, kitchenID, id)
}

func (s *Service) List(ctx context.Context) ([]mealplandomain.MealPlan, error) {
	kitchenID, err := kitchenFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByKitchen(ctx, s.db, kitchenID)
}

func (s *Service) Update(ctx context.Context, id string, req mealplandomain.UpdateRequest) (*mealplandomain.MealPlan, error) {
	kitchenID, err := kitchenFromContext(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := s.loadOwned(ctx, kitchenID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, mealplandomain.ErrInvalidName
		}
		plan.Name = name
		plan.Slug = slug.Make(name)
	}
	if req.Description != nil {
		plan.Description = strings.TrimSpace(*req.Description)
	}
	if req.BasePrice != nil {
		if !req.BasePrice.IsPositive() {
			return nil, mealplandomain.ErrInvalidBasePrice
		}
		plan.BasePrice = req.BasePrice.Round(2)
	}
	if req.BillingCycle != nil {
		cycle, err := mealplandomain.ParseBillingCycle(*req.BillingCycle)
		if err != nil {
			return nil, err
		}
		plan.BillingCycle = cycle
	}
	if req.Trial != nil {
		if err := applyTrial(plan, *req.Trial); err != nil {
			return nil, err
		}
	}
	if req.Metadata != nil {
		plan.Metadata = datatypes.JSONMap(req.Metadata)
	}

	plan.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Deactivate hides the plan from ordering; existing orders are untouched.
func (s *Service) Deactivate(ctx context.Context, id string) (*mealplandomain.MealPlan, error) {
	kitchenID, err := kitchenFromContext(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := s.loadOwned(ctx, kitchenID, id)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return plan, nil
	}

	plan.Active = false
	plan.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, plan); err != nil {
		return nil, err
	}

	s.log.Info("meal plan deactivated", zap.String("meal_plan_id", plan.ID.String()))
	return plan, nil
}

func (s *Service) loadOwned(ctx context.Context, kitchenID snowflake.ID, id string) (*mealplandomain.MealPlan, error) {
	planID, ok := actorcontext.ParseID(id)
	if !ok {
		return nil, mealplandomain.ErrInvalidID
	}
	plan, err := s.repo.FindByID(ctx, s.db, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, mealplandomain.ErrNotFound
	}
	if plan.KitchenID != kitchenID {
		return nil, mealplandomain.ErrForbidden
	}
	return plan, nil
}

func applyTrial(plan *mealplandomain.MealPlan, req mealplandomain.TrialRequest) error {
	if req.OrderLimit != nil && *req.OrderLimit < 1 {
		return mealplandomain.ErrInvalidTrialLimit
	}
	var price *decimal.Decimal
	if req.Price != nil {
		if req.Price.IsNegative() {
			return mealplandomain.ErrInvalidTrialPrice
		}
		rounded := req.Price.Round(2)
		price = &rounded
	}
	var mode *string
	if req.ValidityMode != nil {
		if v := strings.TrimSpace(*req.ValidityMode); v != "" {
			mode = &v
		}
	}

	plan.TrialEnabled = req.Enabled
	plan.TrialOrderLimit = req.OrderLimit
	plan.TrialPrice = price
	plan.TrialValidityMode = mode
	plan.TrialNewCustomersOnly = req.NewCustomersOnly
	return nil
}

func kitchenFromContext(ctx context.Context) (snowflake.ID, error) {
	kitchenID, ok := actorcontext.KitchenIDFromContext(ctx)
	if !ok {
		return 0, mealplandomain.ErrInvalidKitchen
	}
	return kitchenID, nil
}
