package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/church-schedule-api/internal/dto"
	"github.com/noah-isme/church-schedule-api/internal/middleware"
	"github.com/noah-isme/church-schedule-api/internal/models"
	appErrors "github.com/noah-isme/church-schedule-api/pkg/errors"
	"github.com/noah-isme/church-schedule-api/pkg/response"
)

type calendarService interface {
	Month(ctx context.Context, year, month int, view models.CalendarView) (*models.MonthProjection, bool, error)
}

type calendarFeedService interface {
	Link(subject string, view models.CalendarView) (*dto.FeedLink, error)
	Render(ctx context.Context, token string) ([]byte, error)
}

// CalendarHandler serves month projections and the iCalendar feed.
type CalendarHandler struct {
	calendar calendarService
	feed     calendarFeedService
	now      func() time.Time
}

// NewCalendarHandler constructs a CalendarHandler.
func NewCalendarHandler(calendar calendarService, feed calendarFeedService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar, feed: feed, now: time.Now}
}

// Month godoc
// @Summary Project a calendar month
// @Tags Calendar
// @Produce json
// @Param year query int false "Year, defaults to the current year"
// @Param month query int false "Month 1-12, defaults to the current month"
// @Param teacherId query string false "Viewing teacher"
// @Param roomId query string false "Viewing room"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar/month [get]
func (h *CalendarHandler) Month(c *gin.Context) {
	now := h.now()
	year, err := intQuery(c, "year", now.Year())
	if err != nil {
		response.Error(c, err)
		return
	}
	month, err := intQuery(c, "month", int(now.Month()))
	if err != nil {
		response.Error(c, err)
		return
	}
	projection, cacheHit, err := h.calendar.Month(c.Request.Context(), year, month, h.view(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, projection, nil, middleware.ExtractMeta(c))
}

// FeedLink godoc
// @Summary Issue a signed iCalendar subscription link
// @Tags Calendar
// @Produce json
// @Param teacherId query string false "Viewing teacher"
// @Param roomId query string false "Viewing room"
// @Success 200 {object} response.Envelope
// @Router /calendar/feed-link [get]
func (h *CalendarHandler) FeedLink(c *gin.Context) {
	if h.feed == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "calendar feed disabled"))
		return
	}
	link, err := h.feed.Link(actorID(c), h.view(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Feed godoc
// @Summary iCalendar feed of projected months
// @Tags Calendar
// @Produce text/calendar
// @Param token query string true "Signed feed token"
// @Success 200 {string} string "text/calendar"
// @Failure 401 {object} response.Envelope
// @Router /calendar/feed.ics [get]
func (h *CalendarHandler) Feed(c *gin.Context) {
	if h.feed == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "calendar feed disabled"))
		return
	}
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "token is required"))
		return
	}
	body, err := h.feed.Render(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Calendar(c, "schedule.ics", body)
}

// view builds the viewing context. Teachers only ever see their own calendar.
func (h *CalendarHandler) view(c *gin.Context) models.CalendarView {
	view := models.CalendarView{
		TeacherID: strings.TrimSpace(c.Query("teacherId")),
		RoomID:    strings.TrimSpace(c.Query("roomId")),
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleTeacher {
		view.TeacherID = claims.UserID
	}
	return view
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be an integer")
	}
	return value, nil
}
