package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/church-schedule-api/internal/models"
	appErrors "github.com/noah-isme/church-schedule-api/pkg/errors"
)

const calendarCachePrefix = "cal:"

// ProjectMonth expands patterns and blackouts into concrete per-day events for one
// month. Every weekly occurrence inside a pattern's date range is emitted, and a
// day lists its schedule events before its blackout events.
func ProjectMonth(year, month int, patterns []models.SchedulePattern, blackouts []models.BlackoutPeriod, view models.CalendarView) (models.MonthProjection, error) {
	if month < 1 || month > 12 {
		return models.MonthProjection{}, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return models.MonthProjection{}, appErrors.Clone(appErrors.ErrValidation, "year is out of range")
	}

	visiblePatterns := make([]models.SchedulePattern, 0, len(patterns))
	for _, p := range patterns {
		if !p.IsActive() {
			continue
		}
		if view.TeacherID != "" && p.TeacherID != view.TeacherID {
			continue
		}
		if view.RoomID != "" && (!p.HasRoom() || *p.RoomID != view.RoomID) {
			continue
		}
		visiblePatterns = append(visiblePatterns, p)
	}
	visibleBlackouts := make([]models.BlackoutPeriod, 0, len(blackouts))
	for _, b := range blackouts {
		if b.Active && b.Scope.Matches(view.TeacherID, view.RoomID) {
			visibleBlackouts = append(visibleBlackouts, b)
		}
	}

	monthRange := models.MonthRange(year, time.Month(month))
	projection := models.MonthProjection{Year: year, Month: month, Days: make([]models.CalendarDay, 0)}
	for d := monthRange.Start; !d.After(*monthRange.End); d = d.AddDays(1) {
		var events []models.CalendarEvent
		for i := range visiblePatterns {
			p := visiblePatterns[i]
			if !p.OccursOn(d) {
				continue
			}
			window := p.Window
			events = append(events, models.CalendarEvent{
				Source: models.CalendarSourceSchedule,
				RefID:  p.ID,
				Title:  p.Title,
				Window: &window,
				RoomID: p.RoomID,
			})
		}
		for _, b := range visibleBlackouts {
			if !b.DateRange.Contains(d) {
				continue
			}
			events = append(events, models.CalendarEvent{
				Source: models.CalendarSourceBlackout,
				RefID:  b.ID,
				Title:  b.Title,
				Kind:   b.Kind,
			})
		}
		if len(events) > 0 {
			projection.Days = append(projection.Days, models.CalendarDay{Date: d, Events: events})
		}
	}
	return projection, nil
}

type calendarScheduleReader interface {
	ListActiveInRange(ctx context.Context, dateRange models.DateRange, teacherID, roomID string) ([]models.SchedulePattern, error)
}

// CalendarServiceConfig tunes calendar caching.
type CalendarServiceConfig struct {
	CacheTTL time.Duration
}

// CalendarService loads persisted data and projects it month by month.
type CalendarService struct {
	schedules calendarScheduleReader
	blackouts BlackoutSource
	cache     *CacheService
	logger    *zap.Logger
	cfg       CalendarServiceConfig
}

// NewCalendarService constructs a CalendarService.
func NewCalendarService(schedules calendarScheduleReader, blackouts BlackoutSource, cache *CacheService, cfg CalendarServiceConfig, logger *zap.Logger) *CalendarService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{schedules: schedules, blackouts: blackouts, cache: cache, logger: logger, cfg: cfg}
}

// Month returns the projection of a month for the given view and whether it came from cache.
func (s *CalendarService) Month(ctx context.Context, year, month int, view models.CalendarView) (*models.MonthProjection, bool, error) {
	if month < 1 || month > 12 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	key := fmt.Sprintf("%s%04d-%02d:t=%s:r=%s", calendarCachePrefix, year, month, view.TeacherID, view.RoomID)

	if s.cache != nil {
		var cached models.MonthProjection
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("calendar cache read failed", zap.String("key", key), zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	monthRange := models.MonthRange(year, time.Month(month))
	patterns, err := s.schedules.ListActiveInRange(ctx, monthRange, view.TeacherID, view.RoomID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrDataAccess.Code, appErrors.ErrDataAccess.Status, "failed to load schedules for month")
	}
	blackouts, err := s.blackouts.ListActiveOverlapping(ctx, monthRange)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrDataAccess.Code, appErrors.ErrDataAccess.Status, "failed to load blackouts for month")
	}

	projection, err := ProjectMonth(year, month, patterns, blackouts, view)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, projection, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("calendar cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return &projection, false, nil
}

// Invalidate drops every cached month projection.
func (s *CalendarService) Invalidate(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, calendarCachePrefix+"*")
}
