package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/church-schedule-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	healthy := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
	})
	router := newTestRouter(nil)
	router.GET("/ready", healthy.Ready)
	rec := perform(router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)

	degraded := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	router = newTestRouter(nil)
	router.GET("/ready", degraded.Ready)
	rec = perform(router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsHandlerSummaryAndPrometheus(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), nil)
	router := newTestRouter(nil)
	router.GET("/health", h.Health)
	router.GET("/metrics", h.Prometheus)
	router.GET("/metrics/summary", h.Summary)

	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/metrics", nil).Code)

	rec := perform(router, http.MethodGet, "/metrics/summary", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "requests_total")
}
