package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/church-schedule-api/internal/models"
	appErrors "github.com/noah-isme/church-schedule-api/pkg/errors"
)

// ScheduleSource supplies the active patterns sharing a teacher or room.
type ScheduleSource interface {
	ListActiveByTeacher(ctx context.Context, teacherID, excludeID string) ([]models.SchedulePattern, error)
	ListActiveByRoom(ctx context.Context, roomID, excludeID string) ([]models.SchedulePattern, error)
}

// BlackoutSource supplies active blackouts overlapping a date range.
type BlackoutSource interface {
	ListActiveOverlapping(ctx context.Context, dateRange models.DateRange) ([]models.BlackoutPeriod, error)
}

type teacherDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type detectionRecorder interface {
	ObserveDetection(duration time.Duration, conflicts []models.Conflict, failed bool)
	ObserveDBQuery(label string, duration time.Duration)
}

// ConflictDetector classifies the collisions of a candidate pattern against
// persisted schedules and blackouts. It holds no mutable state.
type ConflictDetector struct {
	schedules ScheduleSource
	blackouts BlackoutSource
	teachers  teacherDirectory
	metrics   detectionRecorder
	logger    *zap.Logger
}

// NewConflictDetector wires a detector. teachers and metrics are optional.
func NewConflictDetector(schedules ScheduleSource, blackouts BlackoutSource, teachers teacherDirectory, metrics detectionRecorder, logger *zap.Logger) *ConflictDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictDetector{schedules: schedules, blackouts: blackouts, teachers: teachers, metrics: metrics, logger: logger}
}

// WithSources returns a copy of the detector reading from other sources, typically
// repositories bound to a locked transaction.
func (d *ConflictDetector) WithSources(schedules ScheduleSource, blackouts BlackoutSource) *ConflictDetector {
	clone := *d
	clone.schedules = schedules
	clone.blackouts = blackouts
	return &clone
}

// Detect returns every conflict of candidate ordered by severity, highest first.
// candidate must already be valid. A lookup failure is returned as DATA_ACCESS_ERROR
// and never reported as an empty result.
func (d *ConflictDetector) Detect(ctx context.Context, candidate models.SchedulePattern, excludeID string) ([]models.Conflict, error) {
	start := time.Now()
	conflicts, err := d.detect(ctx, candidate, excludeID)
	if d.metrics != nil {
		d.metrics.ObserveDetection(time.Since(start), conflicts, err != nil)
	}
	if err != nil {
		d.logger.Error("conflict detection failed", zap.String("teacher_id", candidate.TeacherID), zap.Error(err))
		return nil, err
	}
	return conflicts, nil
}

func (d *ConflictDetector) detect(ctx context.Context, candidate models.SchedulePattern, excludeID string) ([]models.Conflict, error) {
	conflicts := make([]models.Conflict, 0)

	byTeacher, err := d.timed("schedules_by_teacher", func() ([]models.SchedulePattern, error) {
		return d.schedules.ListActiveByTeacher(ctx, candidate.TeacherID, excludeID)
	})
	if err != nil {
		return nil, dataAccessError(err, "failed to load teacher schedules")
	}
	var teacherLabel string
	for _, other := range byTeacher {
		if (excludeID != "" && other.ID == excludeID) || !other.IsActive() || !PatternsCanCollide(candidate, other) {
			continue
		}
		if teacherLabel == "" {
			teacherLabel = d.teacherLabel(ctx, candidate.TeacherID)
		}
		conflicts = append(conflicts, models.Conflict{
			Kind:        models.ConflictTeacherDoubleBooked,
			Severity:    models.SeverityBlocking,
			Description: fmt.Sprintf("%s already has %s at an overlapping time (%s)", teacherLabel, patternLabel(other), other.Window),
			RelatedID:   other.ID,
		})
	}

	if candidate.HasRoom() {
		roomID := *candidate.RoomID
		byRoom, err := d.timed("schedules_by_room", func() ([]models.SchedulePattern, error) {
			return d.schedules.ListActiveByRoom(ctx, roomID, excludeID)
		})
		if err != nil {
			return nil, dataAccessError(err, "failed to load room schedules")
		}
		for _, other := range byRoom {
			if (excludeID != "" && other.ID == excludeID) || !other.IsActive() || !PatternsCanCollide(candidate, other) {
				continue
			}
			conflicts = append(conflicts, models.Conflict{
				Kind:        models.ConflictRoomDoubleBooked,
				Severity:    models.SeverityWarning,
				Description: fmt.Sprintf("room %s is already booked by %s at an overlapping time (%s)", roomID, patternLabel(other), other.Window),
				RelatedID:   other.ID,
			})
		}
	}

	blackoutStart := time.Now()
	blackouts, err := d.blackouts.ListActiveOverlapping(ctx, candidate.DateRange)
	d.observeQuery("blackouts_overlapping", time.Since(blackoutStart))
	if err != nil {
		return nil, dataAccessError(err, "failed to load blackout periods")
	}
	for _, b := range blackouts {
		if !b.Active || !BlackoutAffectsPattern(candidate, b) {
			continue
		}
		conflicts = append(conflicts, models.Conflict{
			Kind:        models.ConflictBlackoutOverlap,
			Severity:    b.Kind.Severity(),
			Description: fmt.Sprintf("%s %q (%s, %s) falls within the schedule", blackoutNoun(b.Kind), b.Title, b.DateRange, b.Scope),
			RelatedID:   b.ID,
		})
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].Severity > conflicts[j].Severity
	})
	return conflicts, nil
}

func (d *ConflictDetector) timed(label string, fn func() ([]models.SchedulePattern, error)) ([]models.SchedulePattern, error) {
	start := time.Now()
	items, err := fn()
	d.observeQuery(label, time.Since(start))
	return items, err
}

func (d *ConflictDetector) observeQuery(label string, duration time.Duration) {
	if d.metrics != nil {
		d.metrics.ObserveDBQuery(label, duration)
	}
}

// teacherLabel prefers the directory name; lookups failing here only degrade the text.
func (d *ConflictDetector) teacherLabel(ctx context.Context, teacherID string) string {
	label := "teacher " + teacherID
	if d.teachers == nil {
		return label
	}
	teacher, err := d.teachers.FindByID(ctx, teacherID)
	if err != nil {
		d.logger.Debug("teacher lookup failed", zap.String("teacher_id", teacherID), zap.Error(err))
		return label
	}
	if teacher == nil || teacher.FullName == "" {
		return label
	}
	return teacher.FullName
}

func patternLabel(p models.SchedulePattern) string {
	if p.Title != "" {
		return fmt.Sprintf("%q", p.Title)
	}
	return "schedule " + p.ID
}

func blackoutNoun(kind models.BlackoutKind) string {
	switch kind {
	case models.BlackoutKindHoliday:
		return "holiday"
	case models.BlackoutKindEvent:
		return "event"
	default:
		return "blackout"
	}
}

func dataAccessError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrDataAccess.Code, appErrors.ErrDataAccess.Status, message)
}
