package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
	"github.com/smallbiznis/tiffin/internal/actorcontext"
	"github.com/smallbiznis/tiffin/internal/clock"
	eligibilitydomain "github.com/smallbiznis/tiffin/internal/eligibility/domain"
	eligibilityservice "github.com/smallbiznis/tiffin/internal/eligibility/service"
	mealplandomain "github.com/smallbiznis/tiffin/internal/mealplan/domain"
	mealplanrepo "github.com/smallbiznis/tiffin/internal/mealplan/repository"
	"github.com/smallbiznis/tiffin/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/tiffin/internal/order/domain"
	orderrepo "github.com/smallbiznis/tiffin/internal/order/repository"
	"github.com/smallbiznis/tiffin/internal/ratelimit"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	schedulerepo "github.com/smallbiznis/tiffin/internal/schedule/repository"
	trialrepo "github.com/smallbiznis/tiffin/internal/trial/repository"
	"github.com/smallbiznis/tiffin/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Engines      *eligibilityservice.Factory
	Trials       *trialrepo.Binder
	Repo         orderdomain.Repository
	PlanRepo     mealplandomain.Repository
	ScheduleRepo scheduledomain.Repository
	Limiter      *ratelimit.PlacementLimiter `optional:"true"`
	Metrics      *metrics.OrderingMetrics    `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	engines      *eligibilityservice.Factory
	trials       *trialrepo.Binder
	repo         orderdomain.Repository
	planRepo     mealplandomain.Repository
	scheduleRepo scheduledomain.Repository
	limiter      *ratelimit.PlacementLimiter
	metrics      *metrics.OrderingMetrics
}

func New(p Params) orderdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("order.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		engines:      p.Engines,
		trials:       p.Trials,
		repo:         p.Repo,
		planRepo:     p.PlanRepo,
		scheduleRepo: p.ScheduleRepo,
		limiter:      p.Limiter,
		metrics:      p.Metrics,
	}
}

// Quote previews eligibility and price without reserving anything.
func (s *Service) Quote(ctx context.Context, req orderdomain.PlaceRequest) (*eligibilitydomain.Verdict, error) {
	customerID, err := customerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	prospect, err := toProspect(customerID, req)
	if err != nil {
		return nil, err
	}

	verdict, err := s.engines.Bind(s.collaborators(s.db)).Preview(ctx, prospect)
	if err != nil {
		return nil, translateEngineErr(err)
	}
	return verdict, nil
}

// Place evaluates and writes the order in one transaction. Guard rows for the
// trial key and the slot key are taken first, in that order, so concurrent
// placements for the same slot or trial see each other's committed rows.
func (s *Service) Place(ctx context.Context, req orderdomain.PlaceRequest) (*orderdomain.Order, error) {
	customerID, err := customerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	prospect, err := toProspect(customerID, req)
	if err != nil {
		return nil, err
	}

	if err := s.throttle(ctx, customerID); err != nil {
		return nil, err
	}
	if prospect.RequestedAsTrial {
		release, err := s.lockTrial(ctx, prospect)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var placed *orderdomain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if prospect.RequestedAsTrial {
			if err := s.acquire(ctx, tx, metrics.GuardTrial, trialGuardKey(prospect)); err != nil {
				return err
			}
		}
		if err := s.acquire(ctx, tx, metrics.GuardSlot, slotGuardKey(prospect)); err != nil {
			return err
		}

		verdict, err := s.engines.Bind(s.collaborators(tx)).Evaluate(ctx, prospect)
		if err != nil {
			return err
		}
		if !verdict.Accepted {
			return &orderdomain.RejectionError{Verdict: verdict}
		}

		now := s.clock.Now().UTC()
		order := &orderdomain.Order{
			ID:            s.genID.Generate(),
			KitchenID:     verdict.Plan.KitchenID,
			CustomerID:    customerID,
			MealPlanID:    prospect.MealPlanID,
			MealType:      prospect.MealType,
			ScheduledDate: orderdomain.FormatDate(prospect.ScheduledDate),
			Status:        orderdomain.StatusPlaced,
			Price:         verdict.FinalPrice.Round(2),
			IsTrial:       verdict.IsTrial,
			Metadata:      datatypes.JSONMap(req.Metadata),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if verdict.DeliveryWindow != nil {
			start, end := verdict.DeliveryWindow.Start, verdict.DeliveryWindow.End
			order.DeliveryWindowStart = &start
			order.DeliveryWindowEnd = &end
		}
		if err := s.repo.Insert(ctx, tx, order); err != nil {
			return err
		}
		placed = order
		return nil
	})
	if err != nil {
		if !errors.Is(err, orderdomain.ErrOrderRejected) && !errors.Is(err, eligibilitydomain.ErrPlanNotFound) {
			s.metrics.RecordPlacementError(err)
			s.log.Error("order placement failed",
				zap.String("meal_plan_id", prospect.MealPlanID.String()),
				zap.String("customer_id", customerID.String()),
				zap.Error(err),
			)
		}
		return nil, translateEngineErr(err)
	}

	s.log.Info("order placed",
		zap.String("order_id", placed.ID.String()),
		zap.String("meal_plan_id", placed.MealPlanID.String()),
		zap.String("scheduled_date", placed.ScheduledDate),
		zap.String("meal_type", string(placed.MealType)),
		zap.Bool("trial", placed.IsTrial),
	)
	return placed, nil
}

// Cancel releases the order's capacity. Trial usage is not refunded.
func (s *Service) Cancel(ctx context.Context, id string) (*orderdomain.Order, error) {
	customerID, err := customerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	orderID, ok := actorcontext.ParseID(id)
	if !ok {
		return nil, orderdomain.ErrInvalidID
	}

	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, orderdomain.ErrNotFound
	}
	if order.CustomerID != customerID {
		return nil, orderdomain.ErrForbidden
	}
	if order.Status == orderdomain.StatusCancelled {
		return nil, orderdomain.ErrAlreadyCancelled
	}

	now := s.clock.Now().UTC()
	updated, err := s.repo.MarkCancelled(ctx, s.db, orderID, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, orderdomain.ErrAlreadyCancelled
	}

	order.Status = orderdomain.StatusCancelled
	order.CancelledAt = &now
	order.UpdatedAt = now
	return order, nil
}

func (s *Service) ListForCustomer(ctx context.Context, page pagination.Pagination) (*orderdomain.ListResponse, error) {
	customerID, err := customerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var afterID snowflake.ID
	if token := strings.TrimSpace(page.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, orderdomain.ErrInvalidPageRequest
		}
		id, ok := actorcontext.ParseID(cursor.ID)
		if !ok {
			return nil, orderdomain.ErrInvalidPageRequest
		}
		afterID = id
	}

	limit := pagination.Limit(page.PageSize)
	items, err := s.repo.ListByCustomer(ctx, s.db, customerID, afterID, limit+1)
	if err != nil {
		return nil, err
	}

	items, info, err := pagination.BuildCursorPageInfo(items, limit, func(o orderdomain.Order) string {
		return o.ID.String()
	})
	if err != nil {
		return nil, err
	}
	return &orderdomain.ListResponse{Orders: items, PageInfo: info}, nil
}

// Dashboard reports load and ordering state for every slot the kitchen serves on date.
func (s *Service) Dashboard(ctx context.Context, date string) (*orderdomain.Dashboard, error) {
	kitchenID, ok := actorcontext.KitchenIDFromContext(ctx)
	if !ok {
		return nil, orderdomain.ErrInvalidKitchen
	}
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	plans, err := s.planRepo.ListByKitchen(ctx, s.db, kitchenID)
	if err != nil {
		return nil, err
	}

	loc := s.engines.Location()
	now := s.clock.Now()
	weekday := int(scheduledomain.Weekday(day))

	resp := &orderdomain.Dashboard{Date: day, Slots: []orderdomain.DashboardSlot{}}
	for i := range plans {
		plan := &plans[i]
		slots, err := s.scheduleRepo.ListByPlan(ctx, s.db, plan.ID)
		if err != nil {
			return nil, err
		}
		for j := range slots {
			slot := &slots[j]
			if slot.DayOfWeek != weekday {
				continue
			}

			deadline, err := slot.Deadline(day, loc)
			if err != nil {
				return nil, err
			}
			placed, err := s.repo.CountSlotOrders(ctx, s.db, plan.ID, slot.MealType, day)
			if err != nil {
				return nil, err
			}

			entry := orderdomain.DashboardSlot{
				MealPlanID:   plan.ID.String(),
				MealPlanName: plan.Name,
				MealType:     slot.MealType,
				IsAvailable:  plan.Active && slot.IsAvailable,
				Placed:       placed,
				MaxOrders:    slot.MaxOrders,
				Deadline:     deadline,
			}
			full := false
			if slot.MaxOrders != nil {
				remaining := *slot.MaxOrders - placed
				if remaining < 0 {
					remaining = 0
				}
				entry.Remaining = &remaining
				full = remaining == 0
			}
			entry.OrderingOpen = entry.IsAvailable && !full && !now.After(deadline)
			resp.Slots = append(resp.Slots, entry)
		}
	}
	return resp, nil
}

func (s *Service) collaborators(db *gorm.DB) eligibilityservice.Collaborators {
	return eligibilityservice.Collaborators{
		Plans:    mealplanrepo.NewPlanSource(db),
		Schedule: schedulerepo.NewCatalog(db),
		Capacity: orderrepo.NewCapacityCounter(db),
		Trials:   s.trials.Bind(db),
	}
}

func (s *Service) acquire(ctx context.Context, tx *gorm.DB, guard, key string) error {
	start := time.Now()
	err := s.repo.AcquireGuard(ctx, tx, key, s.clock.Now().UTC())
	s.metrics.ObserveGuardWait(guard, time.Since(start))
	if err != nil {
		return fmt.Errorf("acquire %s guard: %w", guard, err)
	}
	return nil
}

// throttle fails open when redis is unreachable.
func (s *Service) throttle(ctx context.Context, customerID snowflake.ID) error {
	res, err := s.limiter.AllowCustomer(ctx, customerID.String())
	if err != nil {
		s.log.Warn("placement rate limit unavailable", zap.Error(err))
		return nil
	}
	if !res.Allowed {
		return orderdomain.ErrRateLimited
	}
	return nil
}

// lockTrial keeps two instances from racing the same trial. Redis failures
// fall back to the guard rows alone.
func (s *Service) lockTrial(ctx context.Context, prospect eligibilitydomain.ProspectiveOrder) (func(), error) {
	lease, err := s.limiter.LockTrial(ctx, prospect.CustomerID.String(), prospect.MealPlanID.String())
	if errors.Is(err, ratelimit.ErrLockHeld) {
		return nil, orderdomain.ErrTrialBusy
	}
	if err != nil {
		s.log.Warn("trial lock unavailable", zap.Error(err))
		return func() {}, nil
	}
	return func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("trial lock release failed", zap.String("key", lease.Key()), zap.Error(err))
		}
	}, nil
}

func toProspect(customerID snowflake.ID, req orderdomain.PlaceRequest) (eligibilitydomain.ProspectiveOrder, error) {
	planID, ok := actorcontext.ParseID(req.MealPlanID)
	if !ok {
		return eligibilitydomain.ProspectiveOrder{}, orderdomain.ErrInvalidMealPlan
	}
	mealType, err := scheduledomain.ParseMealType(req.MealType)
	if err != nil {
		return eligibilitydomain.ProspectiveOrder{}, err
	}
	date, err := parseDate(req.ScheduledDate)
	if err != nil {
		return eligibilitydomain.ProspectiveOrder{}, err
	}
	return eligibilitydomain.ProspectiveOrder{
		CustomerID:       customerID,
		MealPlanID:       planID,
		MealType:         mealType,
		ScheduledDate:    date,
		RequestedAsTrial: req.IsTrial,
	}, nil
}

func parseDate(value string) (civil.Date, error) {
	date, err := civil.ParseDate(strings.TrimSpace(value))
	if err != nil || !date.IsValid() {
		return civil.Date{}, orderdomain.ErrInvalidDate
	}
	return date, nil
}

func trialGuardKey(p eligibilitydomain.ProspectiveOrder) string {
	return fmt.Sprintf("trial:%s:%s", p.CustomerID, p.MealPlanID)
}

func slotGuardKey(p eligibilitydomain.ProspectiveOrder) string {
	return fmt.Sprintf("slot:%s:%s:%s", p.MealPlanID, p.MealType, orderdomain.FormatDate(p.ScheduledDate))
}

func translateEngineErr(err error) error {
	if errors.Is(err, eligibilitydomain.ErrPlanNotFound) {
		return orderdomain.ErrMealPlanNotFound
	}
	return err
}

func customerFromContext(ctx context.Context) (snowflake.ID, error) {
	customerID, ok := actorcontext.CustomerIDFromContext(ctx)
	if !ok {
		return 0, orderdomain.ErrInvalidCustomer
	}
	return customerID, nil
}
