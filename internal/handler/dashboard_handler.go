package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/church-schedule-api/internal/middleware"
	"github.com/noah-isme/church-schedule-api/internal/models"
	appErrors "github.com/noah-isme/church-schedule-api/pkg/errors"
	"github.com/noah-isme/church-schedule-api/pkg/response"
)

type utilizationService interface {
	Teachers(ctx context.Context, capacity float64) ([]models.UtilizationRecord, bool, error)
}

// DashboardHandler wires the utilization dashboard to HTTP endpoints.
type DashboardHandler struct {
	service utilizationService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service utilizationService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Utilization godoc
// @Summary Weekly teaching load per teacher
// @Tags Dashboard
// @Produce json
// @Param capacity query number false "Weekly capacity hours, defaults to the configured value"
// @Success 200 {object} response.Envelope
// @Router /dashboard/utilization [get]
func (h *DashboardHandler) Utilization(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var capacity float64
	if raw := strings.TrimSpace(c.Query("capacity")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "capacity must be a number"))
			return
		}
		capacity = parsed
	}
	records, cacheHit, err := h.service.Teachers(c.Request.Context(), capacity)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, records, nil, middleware.ExtractMeta(c))
}
