package main

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/church-schedule-api/api/swagger"
	"github.com/noah-isme/church-schedule-api/internal/handler"
	"github.com/noah-isme/church-schedule-api/internal/middleware"
	"github.com/noah-isme/church-schedule-api/internal/models"
	"github.com/noah-isme/church-schedule-api/internal/service"
	"github.com/noah-isme/church-schedule-api/pkg/config"
	"github.com/noah-isme/church-schedule-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/church-schedule-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/church-schedule-api/pkg/middleware/requestid"
)

type routerDeps struct {
	auth      middleware.TokenValidator
	metrics   *service.MetricsService
	audit     middleware.AuditRecorder
	schedule  *handler.ScheduleHandler
	blackout  *handler.BlackoutHandler
	calendar  *handler.CalendarHandler
	dashboard *handler.DashboardHandler
	ops       *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	feedPath := prefix + "/calendar/feed.ics"

	r.Use(corsmiddleware.New(corsmiddleware.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		PublicPaths:    []string{feedPath},
	}))
	r.Use(middleware.Metrics(deps.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", deps.ops.Health)
	r.GET("/ready", deps.ops.Ready)
	r.GET("/metrics", deps.ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(prefix)

	// The feed is fetched by calendar clients that only carry the signed token.
	api.GET("/calendar/feed.ics", deps.calendar.Feed)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.auth))

	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleCoordinator)
	admins := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	staffOrSelf := middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), string(models.RoleCoordinator), middleware.RoleSelf)

	schedules := secured.Group("/schedules")
	schedules.POST("/validate", staff, deps.schedule.Validate)
	schedules.GET("", staffOrSelf, deps.schedule.List)
	schedules.GET("/:id", staff, deps.schedule.Get)
	schedules.GET("/:id/history", staff, deps.schedule.History)
	schedules.POST("", staff, deps.schedule.Create)
	schedules.PUT("/:id", staff, deps.schedule.Update)
	schedules.POST("/:id/cancel", staff, deps.schedule.Cancel)

	blackouts := secured.Group("/blackouts")
	blackouts.GET("", staff, deps.blackout.List)
	blackouts.GET("/:id", staff, deps.blackout.Get)
	blackouts.POST("", admins, middleware.Audit(deps.audit, models.AuditActionBlackoutCreate, "blackout"), deps.blackout.Create)
	blackouts.PUT("/:id", admins, middleware.Audit(deps.audit, models.AuditActionBlackoutUpdate, "blackout"), deps.blackout.Update)
	blackouts.DELETE("/:id", admins, middleware.Audit(deps.audit, models.AuditActionBlackoutDelete, "blackout"), deps.blackout.Delete)

	secured.GET("/dashboard/utilization", staff, deps.dashboard.Utilization)

	calendar := secured.Group("/calendar")
	calendar.GET("/month", staffOrSelf, deps.calendar.Month)
	calendar.GET("/feed-link", staffOrSelf, deps.calendar.FeedLink)

	secured.GET("/metrics/summary", admins, deps.ops.Summary)

	return r
}
