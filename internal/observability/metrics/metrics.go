package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/tiffin/pkg/db"
)

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFault    = "fault"

	GuardSlot  = "slot"
	GuardTrial = "trial"
)

// OrderingMetrics captures eligibility and placement health signals.
type OrderingMetrics struct {
	verdicts        *prometheus.CounterVec
	evaluation      *prometheus.HistogramVec
	guardWait       *prometheus.HistogramVec
	placementErrors *prometheus.CounterVec
}

func NewOrderingMetrics(reg prometheus.Registerer) (*OrderingMetrics, error) {
	m := &OrderingMetrics{
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tiffin_eligibility_verdicts_total",
			Help: "Eligibility verdicts by outcome and rejection reason.",
		}, []string{"outcome", "reason"}),
		evaluation: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tiffin_eligibility_evaluation_seconds",
			Help:    "Time spent producing an eligibility verdict.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"outcome"}),
		guardWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tiffin_order_guard_wait_seconds",
			Help:    "Time spent acquiring order guard rows.",
			Buckets: prometheus.DefBuckets,
		}, []string{"guard"}),
		placementErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tiffin_order_placement_errors_total",
			Help: "Order placement storage failures by classified reason.",
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{m.verdicts, m.evaluation, m.guardWait, m.placementErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *OrderingMetrics) ObserveVerdict(outcome, reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(outcome, strings.ToLower(reason)).Inc()
	m.evaluation.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *OrderingMetrics) ObserveGuardWait(guard string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.guardWait.WithLabelValues(guard).Observe(elapsed.Seconds())
}

func (m *OrderingMetrics) RecordPlacementError(err error) {
	if m == nil || err == nil {
		return
	}
	m.placementErrors.WithLabelValues(db.ClassifyError(err)).Inc()
}

type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tiffin_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tiffin_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if err := reg.Register(m.requests); err != nil {
		return nil, err
	}
	if err := reg.Register(m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

const (
	JobReasonDeadlineExceeded = "deadline_exceeded"
	JobReasonCanceled         = "canceled"
	JobReasonError            = "error"
)

// SchedulerMetrics tracks background maintenance jobs.
type SchedulerMetrics struct {
	runs     *prometheus.CounterVec
	errors   *prometheus.CounterVec
	timeouts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	affected *prometheus.CounterVec
}

func NewSchedulerMetrics(reg prometheus.Registerer) (*SchedulerMetrics, error) {
	m := &SchedulerMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tiffin_scheduler_job_runs_total",
			Help: "Scheduler job executions.",
		}, []string{"job"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tiffin_scheduler_job_errors_total",
			Help: "Scheduler job failures by reason.",
		}, []string{"job", "reason"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tiffin_scheduler_job_timeouts_total",
			Help: "Scheduler jobs stopped by their deadline.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tiffin_scheduler_job_duration_seconds",
			Help:    "Scheduler job latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		affected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tiffin_scheduler_job_rows_total",
			Help: "Rows changed by scheduler jobs.",
		}, []string{"job"}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.errors, m.timeouts, m.duration, m.affected} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.timeouts.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobError(job, reason string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(job, reason).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
}

func (m *SchedulerMetrics) AddRows(job string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.affected.WithLabelValues(job).Add(float64(n))
}
