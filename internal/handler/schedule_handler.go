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

type scheduleService interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.SchedulePattern, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.SchedulePattern, error)
	Validate(ctx context.Context, actorID string, req dto.ValidateScheduleRequest) (*dto.ConflictReport, error)
	Create(ctx context.Context, actorID string, req dto.ScheduleRequest) (*dto.ScheduleCommitResult, error)
	Update(ctx context.Context, actorID, id string, req dto.UpdateScheduleRequest) (*dto.ScheduleCommitResult, error)
	Cancel(ctx context.Context, actorID, id string, req dto.CancelScheduleRequest) (*models.SchedulePattern, error)
}

type scheduleHistoryReader interface {
	ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// ScheduleHandler manages schedule endpoints.
type ScheduleHandler struct {
	service scheduleService
	history scheduleHistoryReader
}

// NewScheduleHandler constructs handler. history may be nil when auditing is disabled.
func NewScheduleHandler(svc scheduleService, history scheduleHistoryReader) *ScheduleHandler {
	return &ScheduleHandler{service: svc, history: history}
}

// Validate godoc
// @Summary Detect conflicts for a candidate schedule without committing it
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.ValidateScheduleRequest true "Candidate schedule"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /schedules/validate [post]
func (h *ScheduleHandler) Validate(c *gin.Context) {
	var req dto.ValidateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.service.Validate(c.Request.Context(), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Param teacherId query string false "Filter by teacher"
// @Param roomId query string false "Filter by room"
// @Param status query string false "Comma separated statuses"
// @Param from query string false "Overlapping from date (YYYY-MM-DD)"
// @Param to query string false "Overlapping until date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort column"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	filter := models.ScheduleFilter{
		TeacherID: strings.TrimSpace(c.Query("teacherId")),
		RoomID:    strings.TrimSpace(c.Query("roomId")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleTeacher {
		filter.TeacherID = claims.UserID
	}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		raw = strings.ToUpper(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		status := models.ScheduleStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown status "+raw))
			return
		}
		filter.Statuses = append(filter.Statuses, status)
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

	schedules, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Get godoc
// @Summary Get schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Create godoc
// @Summary Create schedule
// @Description Runs conflict detection under resource locks. Blocking conflicts return 409 with the conflict list.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update godoc
// @Summary Update schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.UpdateScheduleRequest true "Schedule payload with current version"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Update(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Cancel godoc
// @Summary Cancel schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.CancelScheduleRequest true "Current version"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /schedules/{id}/cancel [post]
func (h *ScheduleHandler) Cancel(c *gin.Context) {
	var req dto.CancelScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.service.Cancel(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// History godoc
// @Summary Audit trail of a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param limit query int false "Maximum entries"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/history [get]
func (h *ScheduleHandler) History(c *gin.Context) {
	if h.history == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "audit trail disabled"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.history.ListByResource(c.Request.Context(), "schedule", c.Param("id"), limit)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule history"))
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

func dateRangeQuery(c *gin.Context) (*models.DateRange, error) {
	fromRaw := strings.TrimSpace(c.Query("from"))
	toRaw := strings.TrimSpace(c.Query("to"))
	if fromRaw == "" && toRaw == "" {
		return nil, nil
	}
	if fromRaw == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from is required when to is set")
	}
	from, err := models.ParseDate(fromRaw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
	}
	r := &models.DateRange{Start: from}
	if toRaw != "" {
		to, err := models.ParseDate(toRaw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
		}
		r.End = &to
	}
	if err := r.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return r, nil
}
