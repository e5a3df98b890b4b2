package models

import (
	"errors"
	"strings"
	"time"
)

// ScheduleStatus tracks the lifecycle of a class schedule.
type ScheduleStatus string

const (
	ScheduleStatusPlanned        ScheduleStatus = "PLANNED"
	ScheduleStatusOpenEnrollment ScheduleStatus = "OPEN_ENROLLMENT"
	ScheduleStatusActive         ScheduleStatus = "ACTIVE"
	ScheduleStatusConcluded      ScheduleStatus = "CONCLUDED"
	ScheduleStatusCancelled      ScheduleStatus = "CANCELLED"
)

// ActiveScheduleStatuses participate in conflict detection.
var ActiveScheduleStatuses = []ScheduleStatus{
	ScheduleStatusPlanned,
	ScheduleStatusOpenEnrollment,
	ScheduleStatusActive,
}

// Valid reports whether the status is known.
func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusPlanned, ScheduleStatusOpenEnrollment, ScheduleStatusActive, ScheduleStatusConcluded, ScheduleStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the status belongs to the active set.
func (s ScheduleStatus) IsActive() bool {
	switch s {
	case ScheduleStatusPlanned, ScheduleStatusOpenEnrollment, ScheduleStatusActive:
		return true
	}
	return false
}

// ParseScheduleStatus normalises a status string.
func ParseScheduleStatus(raw string) (ScheduleStatus, bool) {
	status := ScheduleStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return status, status.Valid()
}

// SchedulePattern is a recurring weekly class schedule (a "turma").
type SchedulePattern struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	TeacherID string         `json:"teacher_id"`
	RoomID    *string        `json:"room_id,omitempty"`
	Weekdays  WeekdaySet     `json:"weekdays"`
	Window    TimeWindow     `json:"window"`
	DateRange DateRange      `json:"date_range"`
	Status    ScheduleStatus `json:"status"`
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsActive reports whether the pattern takes part in conflict detection.
func (p SchedulePattern) IsActive() bool {
	return p.Status.IsActive()
}

// HasRoom reports whether the pattern occupies a physical room.
func (p SchedulePattern) HasRoom() bool {
	return p.RoomID != nil && *p.RoomID != ""
}

// WeeklyHours is the number of teaching hours per week.
func (p SchedulePattern) WeeklyHours() float64 {
	return float64(p.Weekdays.Len()) * p.Window.Hours()
}

// OccursOn reports whether a session of the pattern takes place on d.
func (p SchedulePattern) OccursOn(d Date) bool {
	return p.DateRange.Contains(d) && p.Weekdays.Contains(d.Weekday())
}

// Validation errors for SchedulePattern.
var (
	ErrEmptyWeekdays     = errors.New("weekdays must contain at least one day")
	ErrInvalidWindow     = errors.New("window start must be before window end")
	ErrInvalidDateRange  = errors.New("date range start must not be after its end")
	ErrMissingTeacher    = errors.New("teacher_id is required")
	ErrMissingRangeStart = errors.New("date range start is required")
)

// ErrStaleVersion is returned when a write targets an outdated schedule version.
var ErrStaleVersion = errors.New("schedule version is stale")

// Validate checks the pattern's own invariants. Sessions may not cross midnight.
func (p SchedulePattern) Validate() error {
	if strings.TrimSpace(p.TeacherID) == "" {
		return ErrMissingTeacher
	}
	if p.Weekdays.Empty() {
		return ErrEmptyWeekdays
	}
	if p.Window.Start >= p.Window.End {
		return ErrInvalidWindow
	}
	if p.DateRange.Start.IsZero() {
		return ErrMissingRangeStart
	}
	if err := p.DateRange.Validate(); err != nil {
		return ErrInvalidDateRange
	}
	return nil
}

// ScheduleFilter describes query params for listing schedule patterns.
type ScheduleFilter struct {
	TeacherID string
	RoomID    string
	Statuses  []ScheduleStatus
	Overlaps  *DateRange
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
