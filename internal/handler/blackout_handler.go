package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/church-schedule-api/internal/dto"
	"github.com/noah-isme/church-schedule-api/internal/models"
	appErrors "github.com/noah-isme/church-schedule-api/pkg/errors"
	"github.com/noah-isme/church-schedule-api/pkg/response"
)

type blackoutService interface {
	List(ctx context.Context, filter models.BlackoutFilter) ([]models.BlackoutPeriod, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.BlackoutPeriod, error)
	Create(ctx context.Context, req dto.BlackoutRequest) (*models.BlackoutPeriod, error)
	Update(ctx context.Context, id string, req dto.BlackoutRequest) (*models.BlackoutPeriod, error)
	Delete(ctx context.Context, id string) error
}

// BlackoutHandler administers holidays, events and closures.
type BlackoutHandler struct {
	service blackoutService
}

// NewBlackoutHandler constructs a BlackoutHandler.
func NewBlackoutHandler(svc blackoutService) *BlackoutHandler {
	return &BlackoutHandler{service: svc}
}

// List godoc
// @Summary List blackout periods
// @Tags Blackouts
// @Produce json
// @Param kind query string false "HOLIDAY, EVENT or BLACKOUT"
// @Param active query bool false "Only active periods"
// @Param from query string false "Overlapping from date (YYYY-MM-DD)"
// @Param to query string false "Overlapping until date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /blackouts [get]
func (h *BlackoutHandler) List(c *gin.Context) {
	filter := models.BlackoutFilter{Kind: models.BlackoutKind(strings.ToUpper(strings.TrimSpace(c.Query("kind"))))}
	if filter.Kind != "" && !filter.Kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown blackout kind"))
		return
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be a boolean"))
			return
		}
		filter.ActiveOnly = active
	}
	overlaps, err := dateRangeQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.Overlaps = overlaps
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get blackout period
// @Tags Blackouts
// @Produce json
// @Param id path string true "Blackout ID"
// @Success 200 {object} response.Envelope
// @Router /blackouts/{id} [get]
func (h *BlackoutHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create blackout period
// @Tags Blackouts
// @Accept json
// @Produce json
// @Param payload body dto.BlackoutRequest true "Blackout payload"
// @Success 201 {object} response.Envelope
// @Router /blackouts [post]
func (h *BlackoutHandler) Create(c *gin.Context) {
	var req dto.BlackoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Replace blackout period
// @Tags Blackouts
// @Accept json
// @Produce json
// @Param id path string true "Blackout ID"
// @Param payload body dto.BlackoutRequest true "Blackout payload"
// @Success 200 {object} response.Envelope
// @Router /blackouts/{id} [put]
func (h *BlackoutHandler) Update(c *gin.Context) {
	var req dto.BlackoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete blackout period
// @Tags Blackouts
// @Param id path string true "Blackout ID"
// @Success 204
// @Router /blackouts/{id} [delete]
func (h *BlackoutHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
