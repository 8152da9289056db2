package service

import (
	"time"

	"github.com/smallbiznis/tiffin/internal/clock"
	"github.com/smallbiznis/tiffin/internal/config"
	"github.com/smallbiznis/tiffin/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config  config.Config
	Clock   clock.Clock
	Log     *zap.Logger
	Metrics *metrics.OrderingMetrics `optional:"true"`
}

// Factory builds engines that share clock, time zone and telemetry.
type Factory struct {
	opts Options
}

func NewFactory(p Params) (*Factory, error) {
	loc, err := p.Config.Location()
	if err != nil {
		return nil, err
	}
	return NewFactoryWithOptions(Options{
		Clock:    p.Clock,
		Location: loc,
		Log:      p.Log.Named("eligibility.engine"),
		Metrics:  p.Metrics,
		Tracer:   otel.Tracer("github.com/smallbiznis/tiffin/internal/eligibility"),
	}), nil
}

func NewFactoryWithOptions(opts Options) *Factory {
	return &Factory{opts: opts}
}

func (f *Factory) Bind(c Collaborators) *Engine {
	return NewEngine(c, f.opts)
}

func (f *Factory) Location() *time.Location {
	if f.opts.Location == nil {
		return time.UTC
	}
	return f.opts.Location
}
