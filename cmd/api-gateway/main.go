package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/fieldops-io/fieldops-api/api/swagger"
	"github.com/fieldops-io/fieldops-api/internal/handler"
	"github.com/fieldops-io/fieldops-api/internal/middleware"
	"github.com/fieldops-io/fieldops-api/internal/models"
	"github.com/fieldops-io/fieldops-api/internal/repository"
	"github.com/fieldops-io/fieldops-api/internal/service"
	"github.com/fieldops-io/fieldops-api/pkg/cache"
	"github.com/fieldops-io/fieldops-api/pkg/config"
	"github.com/fieldops-io/fieldops-api/pkg/database"
	"github.com/fieldops-io/fieldops-api/pkg/export"
	"github.com/fieldops-io/fieldops-api/pkg/jobs"
	"github.com/fieldops-io/fieldops-api/pkg/logger"
	corsmiddleware "github.com/fieldops-io/fieldops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fieldops-io/fieldops-api/pkg/middleware/requestid"
	"github.com/fieldops-io/fieldops-api/pkg/storage"
)

// @title FieldOps API
// @version 1.0.0
// @description Recurring visit scheduling and route-agent coverage for field operations
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// repositories
	users := repository.NewUserRepository(db)
	routes := repository.NewRouteRepository(db)
	schedules := repository.NewScheduleRepository(db)
	visits := repository.NewVisitRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	reports := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// services
	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	auditSvc := service.NewAuditService(users, logr, jobs.QueueConfig{Logger: logr})
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	authSvc := service.NewAuthService(users, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})

	dashboardSvc := service.NewDashboardService(routes, schedules, visits, cacheRepo, metricsSvc, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	routeSvc := service.NewRouteService(routes, nil, logr)
	scheduleSvc := service.NewScheduleService(schedules, visits, assignments, routes, dashboardSvc, auditSvc, metricsSvc, nil, logr, service.ScheduleSyncConfig{
		DefaultWindowDays: cfg.Sync.DefaultWindowDays,
		MaxWindowDays:     cfg.Sync.MaxWindowDays,
	})
	visitSvc := service.NewVisitService(visits, routes, dashboardSvc, auditSvc, nil, logr)
	assignmentSvc := service.NewAssignmentService(assignments, routes, users, auditSvc, nil, logr)

	// asynchronous report pipeline
	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(visits, routes, assignments, store, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())

		worker := service.NewReportWorker(reports, exportSvc, logr)
		queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		reportSvc = service.NewReportService(reports, queue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
		})
		reportSvc.StartCleanup(ctx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, authSvc, metricsSvc,
		handler.NewAuthHandler(authSvc),
		handler.NewRouteHandler(routeSvc),
		handler.NewScheduleHandler(scheduleSvc),
		handler.NewVisitHandler(visitSvc),
		handler.NewAssignmentHandler(assignmentSvc),
		handler.NewDashboardHandler(dashboardSvc),
		reportSvc,
		metricsHandler,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func registerRoutes(
	r *gin.Engine,
	cfg *config.Config,
	authSvc *service.AuthService,
	metricsSvc *service.MetricsService,
	auth *handler.AuthHandler,
	routes *handler.RouteHandler,
	schedules *handler.ScheduleHandler,
	visits *handler.VisitHandler,
	assignments *handler.AssignmentHandler,
	dashboard *handler.DashboardHandler,
	reportSvc *service.ReportService,
	metrics *handler.MetricsHandler,
) {
	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", auth.Login)
	api.POST("/auth/refresh", auth.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.POST("/auth/logout", auth.Logout)
	authed.POST("/auth/change-password", auth.ChangePassword)
	authed.GET("/auth/me", auth.Me)

	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleSupervisor)
	admin := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	authed.GET("/routes", routes.List)
	authed.GET("/routes/:id", routes.Get)
	authed.POST("/routes", admin, routes.Create)
	authed.PUT("/routes/:id", admin, routes.Update)
	authed.DELETE("/routes/:id", admin, routes.Delete)
	authed.GET("/routes/:id/customers", routes.ListCustomers)
	authed.POST("/routes/:id/customers", staff, routes.AddCustomer)
	authed.PUT("/route-customers/:id", staff, routes.UpdateCustomer)
	authed.DELETE("/route-customers/:id", staff, routes.RemoveCustomer)

	authed.GET("/schedules", schedules.List)
	authed.GET("/schedules/:id", schedules.Get)
	authed.POST("/schedules", staff, schedules.Create)
	authed.PUT("/schedules/:id", staff, schedules.Replace)
	authed.DELETE("/schedules/:id", staff, schedules.Delete)
	authed.GET("/schedules/:id/preview", schedules.Preview)
	authed.POST("/schedules/:id/sync", staff, schedules.Sync)

	authed.GET("/visits", visits.List)
	authed.GET("/visits/:id", visits.Get)
	authed.POST("/visits", staff, visits.Create)
	authed.PUT("/visits/:id/outcome", visits.SetOutcome)

	authed.GET("/routes/:id/assignments", assignments.ListByRoute)
	authed.POST("/routes/:id/assignments", staff, assignments.Create)
	authed.PUT("/assignments/:id", staff, assignments.Update)
	authed.DELETE("/assignments/:id", staff, assignments.Delete)
	authed.GET("/routes/:id/assignments/resolution", assignments.Resolve)

	if cfg.Dashboard.Enabled {
		authed.GET("/dashboard/summary", dashboard.Summary)
	}
	if metricsSvc != nil {
		authed.GET("/metrics/summary", admin, metrics.Snapshot)
	}

	if reportSvc != nil {
		reportsHandler := handler.NewReportHandler(reportSvc)
		authed.POST("/reports/generate", staff, reportsHandler.Generate)
		authed.GET("/reports", staff, reportsHandler.List)
		authed.GET("/reports/:id", reportsHandler.Status)
		authed.GET("/export/:token", reportsHandler.Download)
	}
}
