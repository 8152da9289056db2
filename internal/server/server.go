package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tiffin/internal/clock"
	"github.com/smallbiznis/tiffin/internal/config"
	"github.com/smallbiznis/tiffin/internal/eligibility"
	"github.com/smallbiznis/tiffin/internal/mealplan"
	mealplandomain "github.com/smallbiznis/tiffin/internal/mealplan/domain"
	obslogger "github.com/smallbiznis/tiffin/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tiffin/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tiffin/internal/observability/tracing"
	"github.com/smallbiznis/tiffin/internal/order"
	orderdomain "github.com/smallbiznis/tiffin/internal/order/domain"
	"github.com/smallbiznis/tiffin/internal/ratelimit"
	"github.com/smallbiznis/tiffin/internal/schedule"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	"github.com/smallbiznis/tiffin/internal/trial"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	mealplan.Module,
	schedule.Module,
	trial.Module,
	eligibility.Module,
	ratelimit.Module,
	order.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           cfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type ginParams struct {
	fx.In

	Cfg         config.Config
	HTTPMetrics *obsmetrics.HTTPMetrics `optional:"true"`
}

func registerGin(p ginParams) *gin.Engine {
	return NewEngine(p.Cfg, p.HTTPMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	clock       clock.Clock
	mealPlanSvc mealplandomain.Service
	scheduleSvc scheduledomain.Service
	orderSvc    orderdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Clock       clock.Clock
	MealPlanSvc mealplandomain.Service
	ScheduleSvc scheduledomain.Service
	OrderSvc    orderdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		clock:       p.Clock,
		mealPlanSvc: p.MealPlanSvc,
		scheduleSvc: p.ScheduleSvc,
		orderSvc:    p.OrderSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(ActorContext())

	// -------- Meal plans (kitchen) --------
	plans := api.Group("/meal-plans", KitchenRequired())
	{
		plans.POST("", s.CreateMealPlan)
		plans.GET("", s.ListMealPlans)
		plans.GET("/:id", s.GetMealPlan)
		plans.PATCH("/:id", s.UpdateMealPlan)
		plans.POST("/:id/deactivate", s.DeactivateMealPlan)

		plans.GET("/:id/schedule", s.ListScheduleSlots)
		plans.PUT("/:id/schedule", s.UpsertScheduleSlot)
		plans.DELETE("/:id/schedule/:day/:meal_type", s.DeleteScheduleSlot)
	}

	// -------- Orders (customer) --------
	orders := api.Group("/orders", CustomerRequired())
	{
		orders.POST("/quote", s.QuoteOrder)
		orders.POST("", s.PlaceOrder)
		orders.GET("", s.ListOrders)
		orders.POST("/:id/cancel", s.CancelOrder)
	}

	// -------- Owner dashboard --------
	api.GET("/dashboard", KitchenRequired(), s.GetDashboard)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
