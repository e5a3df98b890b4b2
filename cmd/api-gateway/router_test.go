package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/church-schedule-api/internal/handler"
	"github.com/noah-isme/church-schedule-api/internal/service"
	"github.com/noah-isme/church-schedule-api/pkg/config"
)

func testRouterDeps() routerDeps {
	metrics := service.NewMetricsService()
	return routerDeps{
		auth:      service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret"}),
		metrics:   metrics,
		schedule:  handler.NewScheduleHandler(nil, nil),
		blackout:  handler.NewBlackoutHandler(nil),
		calendar:  handler.NewCalendarHandler(nil, nil),
		dashboard: handler.NewDashboardHandler(nil),
		ops:       handler.NewMetricsHandler(metrics, nil),
	}
}

func TestRouterRegistersPrefixedRoutes(t *testing.T) {
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "api/v1/"}
	r := newRouter(cfg, zap.NewNop(), testRouterDeps())

	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"POST /api/v1/schedules/validate",
		"GET /api/v1/schedules",
		"PUT /api/v1/schedules/:id",
		"POST /api/v1/schedules/:id/cancel",
		"GET /api/v1/schedules/:id/history",
		"DELETE /api/v1/blackouts/:id",
		"GET /api/v1/dashboard/utilization",
		"GET /api/v1/calendar/month",
		"GET /api/v1/calendar/feed.ics",
		"GET /metrics",
	} {
		assert.True(t, registered[want], want)
	}
	assert.False(t, registered["GET /docs/*any"])
}

func TestRouterRequiresAuthentication(t *testing.T) {
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1"}
	r := newRouter(cfg, zap.NewNop(), testRouterDeps())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/schedules", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/calendar/feed.ics", nil))
	// Public route: reaches the handler, which reports the feed as unconfigured.
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
