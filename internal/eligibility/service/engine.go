package service

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/tiffin/internal/clock"
	eligibilitydomain "github.com/smallbiznis/tiffin/internal/eligibility/domain"
	"github.com/smallbiznis/tiffin/internal/eligibility/pricing"
	"github.com/smallbiznis/tiffin/internal/observability/logger"
	"github.com/smallbiznis/tiffin/internal/observability/metrics"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Collaborators are the stores an Engine reads from. Bind them to one
// transaction so the verdict and the caller's order write commit together.
type Collaborators struct {
	Plans    eligibilitydomain.PlanSource
	Schedule eligibilitydomain.ScheduleCatalog
	Capacity eligibilitydomain.CapacityCounter
	Trials   eligibilitydomain.TrialLedger
}

type Options struct {
	Clock    clock.Clock
	Location *time.Location
	Log      *zap.Logger
	Metrics  *metrics.OrderingMetrics
	Tracer   trace.Tracer
}

// Engine decides whether a prospective order may be placed and at what price.
// It holds no state between calls.
type Engine struct {
	plans    eligibilitydomain.PlanSource
	schedule eligibilitydomain.ScheduleCatalog
	capacity eligibilitydomain.CapacityCounter
	trials   eligibilitydomain.TrialLedger

	clock   clock.Clock
	loc     *time.Location
	log     *zap.Logger
	metrics *metrics.OrderingMetrics
	tracer  trace.Tracer
}

func NewEngine(c Collaborators, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.NewSystemClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/smallbiznis/tiffin/internal/eligibility")
	}
	return &Engine{
		plans:    c.Plans,
		schedule: c.Schedule,
		capacity: c.Capacity,
		trials:   c.Trials,
		clock:    opts.Clock,
		loc:      opts.Location,
		log:      opts.Log,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
	}
}

// Evaluate decides the order and, when an accepted order is a trial, records
// the trial usage. The caller writes the order row exactly once per accepted verdict.
func (e *Engine) Evaluate(ctx context.Context, order eligibilitydomain.ProspectiveOrder) (*eligibilitydomain.Verdict, error) {
	return e.run(ctx, "eligibility.evaluate", order, true)
}

// Preview decides the order without any side effect.
func (e *Engine) Preview(ctx context.Context, order eligibilitydomain.ProspectiveOrder) (*eligibilitydomain.Verdict, error) {
	return e.run(ctx, "eligibility.preview", order, false)
}

func (e *Engine) run(ctx context.Context, name string, order eligibilitydomain.ProspectiveOrder, commit bool) (*eligibilitydomain.Verdict, error) {
	ctx, span := e.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("tiffin.meal_plan_id", order.MealPlanID.String()),
		attribute.String("tiffin.meal_type", string(order.MealType)),
		attribute.String("tiffin.scheduled_date", order.ScheduledDate.String()),
		attribute.Bool("tiffin.trial", order.RequestedAsTrial),
	))
	defer span.End()

	start := time.Now()
	verdict, err := e.decide(ctx, order, commit)
	elapsed := time.Since(start)

	log := logger.WithContext(ctx, e.log).With(
		zap.String("meal_plan_id", order.MealPlanID.String()),
		zap.String("meal_type", string(order.MealType)),
		zap.String("scheduled_date", order.ScheduledDate.String()),
		zap.Bool("trial", order.RequestedAsTrial),
		zap.Bool("commit", commit),
	)

	switch {
	case errors.Is(err, eligibilitydomain.ErrPlanNotFound):
		e.metrics.ObserveVerdict(metrics.OutcomeRejected, "plan_not_found", elapsed)
		log.Info("meal plan not found")
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.metrics.ObserveVerdict(metrics.OutcomeFault, "", elapsed)
		log.Error("eligibility evaluation failed", zap.Error(err))
	case verdict.Accepted:
		span.SetAttributes(attribute.String("tiffin.outcome", metrics.OutcomeAccepted))
		e.metrics.ObserveVerdict(metrics.OutcomeAccepted, "", elapsed)
		log.Debug("order accepted", zap.String("final_price", verdict.FinalPrice.StringFixed(2)))
	default:
		span.SetAttributes(
			attribute.String("tiffin.outcome", metrics.OutcomeRejected),
			attribute.String("tiffin.reason", string(verdict.Reason)),
		)
		e.metrics.ObserveVerdict(metrics.OutcomeRejected, string(verdict.Reason), elapsed)
		log.Info("order rejected", zap.String("reason", string(verdict.Reason)))
	}
	return verdict, err
}

func (e *Engine) decide(ctx context.Context, order eligibilitydomain.ProspectiveOrder, commit bool) (*eligibilitydomain.Verdict, error) {
	plan, err := e.plans.FindPlan(ctx, order.MealPlanID)
	if err != nil {
		return nil, &eligibilitydomain.Fault{Stage: eligibilitydomain.StagePlan, Err: err}
	}
	if plan == nil {
		return nil, eligibilitydomain.ErrPlanNotFound
	}
	if !plan.Active {
		return e.reject(eligibilitydomain.ReasonSlotUnavailable), nil
	}

	day := scheduledomain.Weekday(order.ScheduledDate)
	slot, err := e.schedule.Lookup(ctx, plan.ID, day, order.MealType)
	if err != nil {
		return nil, &eligibilitydomain.Fault{Stage: eligibilitydomain.StageSlot, Err: err}
	}
	if slot == nil || !slot.IsAvailable {
		return e.reject(eligibilitydomain.ReasonSlotUnavailable), nil
	}

	deadline, err := slot.Deadline(order.ScheduledDate, e.loc)
	if err != nil {
		return nil, &eligibilitydomain.Fault{Stage: eligibilitydomain.StageDeadline, Err: err}
	}
	if e.clock.Now().After(deadline) {
		v := e.reject(eligibilitydomain.ReasonDeadlinePassed)
		v.Deadline = &deadline
		return v, nil
	}

	if order.RequestedAsTrial {
		if !plan.TrialEnabled {
			return e.reject(eligibilitydomain.ReasonTrialNotEnabled), nil
		}
		if plan.TrialNewCustomersOnly {
			prior, err := e.trials.CountPriorOrders(ctx, order.CustomerID, plan.ID)
			if err != nil {
				return nil, &eligibilitydomain.Fault{Stage: eligibilitydomain.StageTrial, Err: err}
			}
			if prior > 0 {
				return e.reject(eligibilitydomain.ReasonTrialNewCustomersOnly), nil
			}
		}
		if plan.TrialOrderLimit != nil {
			usage, err := e.trials.GetUsage(ctx, order.CustomerID, plan.ID)
			if err != nil {
				return nil, &eligibilitydomain.Fault{Stage: eligibilitydomain.StageTrial, Err: err}
			}
			used := 0
			if usage != nil {
				used = usage.OrderCount
			}
			if used >= *plan.TrialOrderLimit {
				v := e.reject(eligibilitydomain.ReasonTrialLimitReached)
				limit := *plan.TrialOrderLimit
				v.TrialLimit = &limit
				return v, nil
			}
		}
	}

	if slot.MaxOrders != nil {
		placed, err := e.capacity.CountOrders(ctx, plan.ID, order.MealType, order.ScheduledDate)
		if err != nil {
			return nil, &eligibilitydomain.Fault{Stage: eligibilitydomain.StageCapacity, Err: err}
		}
		if placed >= *slot.MaxOrders {
			v := e.reject(eligibilitydomain.ReasonCapacityFull)
			ceiling := *slot.MaxOrders
			v.MaxOrders = &ceiling
			return v, nil
		}
	}

	price := pricing.Resolve(plan, slot, order.RequestedAsTrial)

	if commit && order.RequestedAsTrial {
		if err := e.trials.RecordTrialOrder(ctx, order.CustomerID, plan.ID); err != nil {
			return nil, &eligibilitydomain.Fault{Stage: eligibilitydomain.StageCommit, Err: err}
		}
	}

	verdict := &eligibilitydomain.Verdict{
		Accepted:   true,
		FinalPrice: &price,
		IsTrial:    order.RequestedAsTrial,
		Plan:       plan,
		Slot:       slot,
	}
	if slot.DeliveryWindowStart != nil && slot.DeliveryWindowEnd != nil {
		verdict.DeliveryWindow = &eligibilitydomain.DeliveryWindow{
			Start: *slot.DeliveryWindowStart,
			End:   *slot.DeliveryWindowEnd,
		}
	}
	return verdict, nil
}

func (e *Engine) reject(reason eligibilitydomain.ReasonCode) *eligibilitydomain.Verdict {
	return eligibilitydomain.Rejected(reason)
}
