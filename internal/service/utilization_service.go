package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/church-schedule-api/internal/models"
	appErrors "github.com/noah-isme/church-schedule-api/pkg/errors"
)

const utilizationCachePrefix = "util:"

// ComputeUtilization rolls active patterns up into one record per teacher,
// sorted by teacher id. Percentages are not capped; capacity <= 0 yields 0%.
func ComputeUtilization(patterns []models.SchedulePattern, weeklyCapacityHours float64) []models.UtilizationRecord {
	byTeacher := make(map[string]*models.UtilizationRecord)
	for _, p := range patterns {
		if !p.IsActive() {
			continue
		}
		record, ok := byTeacher[p.TeacherID]
		if !ok {
			record = &models.UtilizationRecord{TeacherID: p.TeacherID, WeeklyCapacityHours: weeklyCapacityHours}
			byTeacher[p.TeacherID] = record
		}
		record.TotalWeeklyHours += p.WeeklyHours()
		record.ActiveScheduleCount++
	}

	records := make([]models.UtilizationRecord, 0, len(byTeacher))
	for _, record := range byTeacher {
		if weeklyCapacityHours > 0 {
			record.UtilizationPercent = record.TotalWeeklyHours / weeklyCapacityHours * 100
		}
		record.Overcommitted = record.UtilizationPercent > 100
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].TeacherID < records[j].TeacherID })
	return records
}

type activeScheduleLister interface {
	ListActive(ctx context.Context) ([]models.SchedulePattern, error)
}

// UtilizationServiceConfig tunes utilization behaviour.
type UtilizationServiceConfig struct {
	WeeklyCapacityHours float64
	CacheTTL            time.Duration
}

// UtilizationService serves teacher load dashboards.
type UtilizationService struct {
	schedules activeScheduleLister
	cache     *CacheService
	logger    *zap.Logger
	cfg       UtilizationServiceConfig
}

// NewUtilizationService constructs a UtilizationService with sane defaults.
func NewUtilizationService(schedules activeScheduleLister, cache *CacheService, cfg UtilizationServiceConfig, logger *zap.Logger) *UtilizationService {
	if cfg.WeeklyCapacityHours <= 0 {
		cfg.WeeklyCapacityHours = 40
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UtilizationService{schedules: schedules, cache: cache, logger: logger, cfg: cfg}
}

// Teachers returns utilization for every teacher with active schedules. A
// capacity of zero falls back to the configured weekly capacity.
func (s *UtilizationService) Teachers(ctx context.Context, capacity float64) ([]models.UtilizationRecord, bool, error) {
	if capacity < 0 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "capacity must not be negative")
	}
	if capacity == 0 {
		capacity = s.cfg.WeeklyCapacityHours
	}
	key := fmt.Sprintf("%steachers:%s", utilizationCachePrefix, strconv.FormatFloat(capacity, 'f', -1, 64))

	var cached []models.UtilizationRecord
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("utilization cache read failed", zap.String("key", key), zap.Error(err))
		} else if hit {
			return cached, true, nil
		}
	}

	patterns, err := s.schedules.ListActive(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrDataAccess.Code, appErrors.ErrDataAccess.Status, "failed to load active schedules")
	}
	records := ComputeUtilization(patterns, capacity)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, records, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("utilization cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return records, false, nil
}

// Invalidate drops cached utilization after schedule mutations.
func (s *UtilizationService) Invalidate(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, utilizationCachePrefix+"*")
}
