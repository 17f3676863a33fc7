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
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/yourlocalmaccas/School-Website/api/swagger"
	"github.com/yourlocalmaccas/School-Website/internal/handler"
	internalmiddleware "github.com/yourlocalmaccas/School-Website/internal/middleware"
	"github.com/yourlocalmaccas/School-Website/internal/repository"
	"github.com/yourlocalmaccas/School-Website/internal/service"
	"github.com/yourlocalmaccas/School-Website/pkg/cache"
	"github.com/yourlocalmaccas/School-Website/pkg/config"
	"github.com/yourlocalmaccas/School-Website/pkg/confirmation"
	"github.com/yourlocalmaccas/School-Website/pkg/database"
	"github.com/yourlocalmaccas/School-Website/pkg/jobs"
	"github.com/yourlocalmaccas/School-Website/pkg/logger"
	corsmiddleware "github.com/yourlocalmaccas/School-Website/pkg/middleware/cors"
	reqidmiddleware "github.com/yourlocalmaccas/School-Website/pkg/middleware/requestid"
	"github.com/yourlocalmaccas/School-Website/pkg/realtime"
	"github.com/yourlocalmaccas/School-Website/pkg/storage"
)

// @title School Sports Registration API
// @version 1.0.0
// @description Term, sport and student registration with capacity-safe admission.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	hub := realtime.NewHub(logr.Named("realtime"), cfg.CORS.AllowedOrigins)

	termRepo := repository.NewTermRepository(db)
	sportRepo := repository.NewSportRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Sports.CacheTTL, logr, redisClient != nil)
	publisher := service.NewAvailabilityPublisher(sportRepo, cacheSvc, hub, logr)
	hub.SetSnapshot(publisher.Snapshot)
	termSvc := service.NewTermService(termRepo, validate, logr)
	sportSvc := service.NewSportService(sportRepo, termRepo, studentRepo, cacheSvc, publisher, validate, logr, cfg.Sports.CacheTTL)
	admissionSvc := service.NewAdmissionService(registrationRepo, studentRepo, termRepo, validate, metrics, publisher, logr,
		service.AdmissionConfig{LockTimeout: cfg.Admission.LockTimeout})
	statusSvc := service.NewSystemStatusService(configRepo, logr)

	var ledger interface {
		Consume(ctx context.Context, id string, ttl time.Duration) (bool, error)
	}
	if redisClient != nil {
		ledger = repository.NewTokenLedgerRepository(redisClient)
	}
	confirmSvc := service.NewConfirmationService(confirmation.NewIssuer(cfg.Confirmation.Secret, cfg.Confirmation.TTL), ledger, logr)
	studentSvc := service.NewStudentService(studentRepo, termRepo, confirmSvc, publisher, validate, logr)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(termRepo, studentRepo, exportStore, signer,
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL}, logr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	exportHandler := handler.NewExportHandler(exportSvc, nil)
	if cfg.Exports.Enabled {
		exportRepo := repository.NewExportRepository(db)
		worker := service.NewExportWorker(exportRepo, exportSvc, metrics, cfg.Exports.WorkerRetries, logr)
		queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 2 * time.Second,
			Logger:     logr.Named("exports"),
		})
		queue.Start(gctx)
		defer queue.Stop()

		jobSvc := service.NewExportJobService(exportRepo, termRepo, queue, exportSvc, metrics, logr, service.ExportJobConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		})
		jobSvc.RecoverPendingJobs(gctx)
		jobSvc.StartCleanup(gctx)
		exportHandler = handler.NewExportHandler(exportSvc, jobSvc)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient))
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeHandlers{
		terms:         handler.NewTermHandler(termSvc),
		sports:        handler.NewSportHandler(sportSvc, admissionSvc),
		students:      handler.NewStudentHandler(studentSvc, admissionSvc),
		registrations: handler.NewRegistrationHandler(admissionSvc, studentSvc),
		status:        handler.NewSystemStatusHandler(statusSvc),
		exports:       exportHandler,
		realtime:      handler.NewRealtimeHandler(hub, termSvc),
		window:        internalmiddleware.RegistrationWindow(statusSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logr.Sugar().Infow("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

type routeHandlers struct {
	terms         *handler.TermHandler
	sports        *handler.SportHandler
	students      *handler.StudentHandler
	registrations *handler.RegistrationHandler
	status        *handler.SystemStatusHandler
	exports       *handler.ExportHandler
	realtime      *handler.RealtimeHandler
	window        gin.HandlerFunc
}

func registerRoutes(api *gin.RouterGroup, h routeHandlers) {
	api.GET("/terms", h.terms.List)
	api.GET("/terms/current", h.terms.Current)
	api.POST("/terms", h.terms.Create)
	api.POST("/terms/:id/activate", h.terms.Activate)
	api.GET("/terms/:id/export", h.exports.Roster)

	api.GET("/sports", h.sports.List)
	api.POST("/sports", h.sports.Create)
	api.GET("/sports/:id", h.sports.Get)
	api.PUT("/sports/:id/capacity", h.sports.UpdateCapacity)
	api.POST("/sports/:id/mark-full", h.sports.MarkFull)
	api.DELETE("/sports/:id", h.sports.Delete)
	api.GET("/sports/:id/registrations", h.sports.Registrations)

	api.GET("/students", h.students.List)
	api.GET("/students/waitlist", h.students.Waitlist)
	api.POST("/students/purge/confirmation", h.students.RequestPurge)
	api.POST("/students/purge", h.students.Purge)
	api.GET("/students/:id", h.students.Get)
	api.DELETE("/students/:id", h.students.Delete)
	api.POST("/students/:id/register", h.students.Register)
	api.POST("/students/:id/waitlist", h.students.AssignWaitlist)

	api.POST("/verify-email", h.registrations.VerifyEmail)
	api.POST("/registrations", h.window, h.registrations.Enroll)
	api.POST("/registrations/waitlist", h.window, h.registrations.JoinWaitlist)

	api.GET("/system-status", h.status.Get)
	api.PUT("/system-status", h.status.Update)

	api.POST("/exports", h.exports.Create)
	api.GET("/exports/:id", h.exports.Status)
	api.GET("/exports/download/:token", h.exports.Download)

	api.GET("/ws/sports", h.realtime.Sports)
}

func readinessChecks(db *sqlx.DB, client *redis.Client) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{"postgres": db}
	if client != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	return checks
}
