package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/classbill/classbill/internal/attendance"
	attendancedomain "github.com/classbill/classbill/internal/attendance/domain"
	"github.com/classbill/classbill/internal/catalog"
	"github.com/classbill/classbill/internal/clock"
	"github.com/classbill/classbill/internal/config"
	"github.com/classbill/classbill/internal/migration"
	"github.com/classbill/classbill/internal/notification"
	"github.com/classbill/classbill/internal/observability"
	obslogger "github.com/classbill/classbill/internal/observability/logger"
	obsmetrics "github.com/classbill/classbill/internal/observability/metrics"
	obstracing "github.com/classbill/classbill/internal/observability/tracing"
	"github.com/classbill/classbill/internal/payment"
	paymentdomain "github.com/classbill/classbill/internal/payment/domain"
	"github.com/classbill/classbill/internal/plan"
	plandomain "github.com/classbill/classbill/internal/plan/domain"
	"github.com/classbill/classbill/internal/ratelimit"
	"github.com/classbill/classbill/internal/reconciliation"
	reconciliationdomain "github.com/classbill/classbill/internal/reconciliation/domain"
	"github.com/classbill/classbill/internal/snapshot"
	snapshotdomain "github.com/classbill/classbill/internal/snapshot/domain"
	"github.com/classbill/classbill/internal/subject"
	subjectdomain "github.com/classbill/classbill/internal/subject/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	observability.Module,
	migration.Module,
	subject.Module,
	catalog.Module,
	plan.Module,
	payment.Module,
	snapshot.Module,
	attendance.Module,
	notification.Module,
	reconciliation.Module,
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{Log: log}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	genID  *snowflake.Node

	subjectSvc        subjectdomain.Service
	planSvc           plandomain.Service
	paymentSvc        paymentdomain.Service
	snapshotSvc       snapshotdomain.Service
	attendanceSvc     attendancedomain.Service
	reconciliationSvc reconciliationdomain.Service
	attendanceLimiter *ratelimit.AttendanceIngestLimiter
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node

	SubjectSvc        subjectdomain.Service
	PlanSvc           plandomain.Service
	PaymentSvc        paymentdomain.Service
	SnapshotSvc       snapshotdomain.Service
	AttendanceSvc     attendancedomain.Service
	ReconciliationSvc reconciliationdomain.Service
	AttendanceLimiter *ratelimit.AttendanceIngestLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		db:     p.DB,
		genID:  p.GenID,

		subjectSvc:        p.SubjectSvc,
		planSvc:           p.PlanSvc,
		paymentSvc:        p.PaymentSvc,
		snapshotSvc:       p.SnapshotSvc,
		attendanceSvc:     p.AttendanceSvc,
		reconciliationSvc: p.ReconciliationSvc,
		attendanceLimiter: p.AttendanceLimiter,
	}
	svc.registerRoutes()
	return svc
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1", s.ResolveOrg())

	v1.POST("/subjects", s.createSubject)
	v1.GET("/subjects", s.listSubjects)
	v1.GET("/subjects/:id", s.getSubject)
	v1.DELETE("/subjects/:id", s.deleteSubject)
	v1.GET("/subjects/:id/snapshot", s.getFinancialSnapshot)

	v1.POST("/plans", s.createPlan)
	v1.GET("/plans/:id", s.getPlan)
	v1.POST("/plans/:id/cancel", s.cancelPlan)
	v1.POST("/plans/:id/check-completion", s.checkPlanCompletion)

	v1.POST("/payments", s.recordPayment)
	v1.POST("/payments/:id/complete", s.completePayment)
	v1.POST("/payments/:id/receipt", s.issueReceipt)
	v1.POST("/payments/receipts/backfill", s.backfillReceipts)

	v1.POST("/attendance/check-in", s.RateLimitAttendance(), s.checkIn)
	v1.POST("/attendance/check-out", s.RateLimitAttendance(), s.checkOut)
	v1.GET("/attendance/:id/usage", s.getUsageCharge)

	internal := s.engine.Group("/v1/internal", s.RequireCronSecret())
	internal.POST("/reconciliation/run", s.runReconciliation)
}
