package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tiffin/internal/actorcontext"
	"github.com/smallbiznis/tiffin/internal/clock"
	mealplandomain "github.com/smallbiznis/tiffin/internal/mealplan/domain"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     scheduledomain.Repository
	PlanRepo mealplandomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     scheduledomain.Repository
	planRepo mealplandomain.Repository
}

func New(p Params) scheduledomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("schedule.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		planRepo: p.PlanRepo,
	}
}

func (s *Service) UpsertSlot(ctx context.Context, planID string, req scheduledomain.UpsertSlotRequest) (*scheduledomain.Slot, error) {
	plan, err := s.ownedPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	slot, err := s.buildSlot(plan.ID, req)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	slot.ID = s.genID.Generate()
	slot.CreatedAt = now
	slot.UpdatedAt = now

	var stored *scheduledomain.Slot
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Upsert(ctx, tx, slot); err != nil {
			return err
		}
		found, err := s.repo.FindByKey(ctx, tx, plan.ID, time.Weekday(slot.DayOfWeek), slot.MealType)
		if err != nil {
			return err
		}
		stored = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, scheduledomain.ErrNotFound
	}

	s.log.Info("schedule slot saved",
		zap.String("meal_plan_id", plan.ID.String()),
		zap.Int("day_of_week", stored.DayOfWeek),
		zap.String("meal_type", string(stored.MealType)),
		zap.Bool("is_available", stored.IsAvailable),
	)
	return stored, nil
}

func (s *Service) ListSlots(ctx context.Context, planID string) ([]scheduledomain.Slot, error) {
	plan, err := s.ownedPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByPlan(ctx, s.db, plan.ID)
}

func (s *Service) DeleteSlot(ctx context.Context, planID string, day int, mealType string) error {
	plan, err := s.ownedPlan(ctx, planID)
	if err != nil {
		return err
	}
	if day < 0 || day > 6 {
		return scheduledomain.ErrInvalidDayOfWeek
	}
	mt, err := scheduledomain.ParseMealType(mealType)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, s.db, plan.ID, time.Weekday(day), mt)
	if err != nil {
		return err
	}
	if !deleted {
		return scheduledomain.ErrNotFound
	}
	return nil
}

func (s *Service) buildSlot(planID snowflake.ID, req scheduledomain.UpsertSlotRequest) (*scheduledomain.Slot, error) {
	if req.DayOfWeek == nil || *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
		return nil, scheduledomain.ErrInvalidDayOfWeek
	}
	mealType, err := scheduledomain.ParseMealType(req.MealType)
	if err != nil {
		return nil, err
	}

	deadline, err := scheduledomain.ParseClockTime(req.OrderDeadline)
	if err != nil {
		return nil, scheduledomain.ErrInvalidOrderDeadline
	}

	serviceStart, serviceEnd, err := parseWindow(req.ServiceStartTime, req.ServiceEndTime)
	if err != nil {
		return nil, scheduledomain.ErrInvalidServiceWindow
	}
	deliveryStart, deliveryEnd, err := parseWindow(req.DeliveryWindowStart, req.DeliveryWindowEnd)
	if err != nil {
		return nil, scheduledomain.ErrInvalidDeliveryWindow
	}

	if req.PriceOverride != nil && req.PriceOverride.IsNegative() {
		return nil, scheduledomain.ErrInvalidPriceOverride
	}
	if req.MaxOrders != nil && *req.MaxOrders < 1 {
		return nil, scheduledomain.ErrInvalidMaxOrders
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	slot := &scheduledomain.Slot{
		MealPlanID:          planID,
		DayOfWeek:           *req.DayOfWeek,
		MealType:            mealType,
		IsAvailable:         available,
		OrderDeadline:       deadline.String(),
		ServiceStartTime:    serviceStart,
		ServiceEndTime:      serviceEnd,
		DeliveryWindowStart: deliveryStart,
		DeliveryWindowEnd:   deliveryEnd,
		MaxOrders:           req.MaxOrders,
	}
	if req.PriceOverride != nil {
		price := req.PriceOverride.Round(2)
		slot.PriceOverride = &price
	}
	return slot, nil
}

// parseWindow normalizes an optional [start, end] pair. Both bounds are
// required together and start must precede end.
func parseWindow(start, end *string) (*string, *string, error) {
	startRaw := trimmed(start)
	endRaw := trimmed(end)
	if startRaw == "" && endRaw == "" {
		return nil, nil, nil
	}
	if startRaw == "" || endRaw == "" {
		return nil, nil, scheduledomain.ErrInvalidTimeOfDay
	}
	from, err := scheduledomain.ParseClockTime(startRaw)
	if err != nil {
		return nil, nil, err
	}
	to, err := scheduledomain.ParseClockTime(endRaw)
	if err != nil {
		return nil, nil, err
	}
	if !from.Before(to) {
		return nil, nil, scheduledomain.ErrInvalidTimeOfDay
	}
	fromStr, toStr := from.String(), to.String()
	return &fromStr, &toStr, nil
}

func (s *Service) ownedPlan(ctx context.Context, planID string) (*mealplandomain.MealPlan, error) {
	kitchenID, ok := actorcontext.KitchenIDFromContext(ctx)
	if !ok {
		return nil, mealplandomain.ErrInvalidKitchen
	}
	id, ok := actorcontext.ParseID(planID)
	if !ok {
		return nil, scheduledomain.ErrInvalidMealPlan
	}
	plan, err := s.planRepo.FindByID(ctx, s.db, id)
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

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
