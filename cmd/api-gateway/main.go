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

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/church-schedule-api/internal/handler"
	"github.com/noah-isme/church-schedule-api/internal/repository"
	"github.com/noah-isme/church-schedule-api/internal/service"
	"github.com/noah-isme/church-schedule-api/pkg/cache"
	"github.com/noah-isme/church-schedule-api/pkg/config"
	"github.com/noah-isme/church-schedule-api/pkg/database"
	"github.com/noah-isme/church-schedule-api/pkg/jobs"
	"github.com/noah-isme/church-schedule-api/pkg/logger"
	"github.com/noah-isme/church-schedule-api/pkg/signer"
)

// @title Church Schedule API
// @version 1.0.0
// @description Recurring class scheduling with conflict detection, teacher utilization and calendar projection.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			logr.Fatal("database migration failed", zap.Error(err))
		}
	}

	// Redis is optional; without it every cache lookup is a miss.
	var redisClient redis.UniversalClient
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis, 3*time.Second)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			redisClient = client
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, "church-schedule", logr)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.DefaultTTL, logr, cfg.Cache.Enabled && redisClient != nil)

	scheduleRepo := repository.NewScheduleRepository(db)
	blackoutRepo := repository.NewBlackoutRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	validate := service.NewValidator()
	auth := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})

	var auditSvc *service.AuditService
	var auditQueue *jobs.Queue
	if cfg.Audit.Enabled {
		auditSvc = service.NewAuditService(auditRepo, logr)
		auditQueue = jobs.NewQueue("audit", auditSvc.Handle, jobs.QueueConfig{
			Workers:    cfg.Audit.Workers,
			BufferSize: cfg.Audit.BufferSize,
			MaxRetries: cfg.Audit.MaxRetries,
			RetryDelay: cfg.Audit.RetryDelay,
			Logger:     logr,
		})
		auditQueue.Start(context.Background())
		auditSvc.UseQueue(auditQueue)
	}

	calendarSvc := service.NewCalendarService(scheduleRepo, blackoutRepo, cacheSvc, service.CalendarServiceConfig{
		CacheTTL: cfg.Scheduling.CalendarCacheTTL,
	}, logr)
	utilizationSvc := service.NewUtilizationService(scheduleRepo, cacheSvc, service.UtilizationServiceConfig{
		WeeklyCapacityHours: cfg.Scheduling.WeeklyCapacityHours,
		CacheTTL:            cfg.Scheduling.UtilizationCacheTTL,
	}, logr)

	detector := service.NewConflictDetector(scheduleRepo, blackoutRepo, teacherRepo, metrics, logr)
	scheduleSvc := service.NewScheduleService(service.ScheduleServiceParams{
		Repo:   scheduleRepo,
		Locker: scheduleRepo,
		Bind: func(exec sqlx.ExtContext) (service.ScheduleWriter, service.BlackoutSource) {
			return scheduleRepo.WithExecutor(exec), blackoutRepo.WithExecutor(exec)
		},
		Detector:    detector,
		Audit:       auditSvc,
		Invalidates: []service.CacheInvalidator{calendarSvc, utilizationSvc},
		Validator:   validate,
		Logger:      logr,
	})
	blackoutSvc := service.NewBlackoutService(blackoutRepo, validate, logr, calendarSvc)

	feedSvc := service.NewCalendarFeedService(calendarSvc, signer.New(cfg.Scheduling.FeedSecret, cfg.Scheduling.FeedTTL), service.CalendarFeedConfig{
		BaseURL:  cfg.PublicURL,
		Months:   cfg.Scheduling.FeedMonths,
		Location: cfg.Scheduling.Location(),
	}, logr)

	var concludeJob *service.ConcludeJob
	if cfg.Scheduling.ConcludeEnabled {
		concludeJob = service.NewConcludeJob(scheduleRepo, service.ConcludeJobConfig{
			Spec:     cfg.Scheduling.ConcludeCron,
			Location: cfg.Scheduling.Location(),
		}, logr, calendarSvc, utilizationSvc)
		if err := concludeJob.Start(ctx); err != nil {
			logr.Fatal("conclude job schedule invalid", zap.Error(err))
		}
	}

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, nil)
	if cfg.Audit.Enabled {
		scheduleHandler = handler.NewScheduleHandler(scheduleSvc, auditRepo)
	}
	opsHandler := handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
		"database": db.PingContext,
		"cache":    cacheRepo.Ping,
	})

	engine := newRouter(cfg, logr, routerDeps{
		auth:      auth,
		metrics:   metrics,
		audit:     auditSvc,
		schedule:  scheduleHandler,
		blackout:  handler.NewBlackoutHandler(blackoutSvc),
		calendar:  handler.NewCalendarHandler(calendarSvc, feedSvc),
		dashboard: handler.NewDashboardHandler(utilizationSvc),
		ops:       opsHandler,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	if concludeJob != nil {
		concludeJob.Stop()
	}
	if auditQueue != nil {
		auditQueue.Stop()
	}
	logr.Info("server stopped")
}
