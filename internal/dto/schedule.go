package dto

import (
	"time"

	"github.com/noah-isme/church-schedule-api/internal/models"
)

// ScheduleRequest describes a candidate recurring class schedule.
type ScheduleRequest struct {
	Title     string   `json:"title" validate:"max=200"`
	TeacherID string   `json:"teacher_id" validate:"required"`
	RoomID    *string  `json:"room_id,omitempty" validate:"omitempty,min=1"`
	Weekdays  []string `json:"weekdays" validate:"required,min=1,max=7,dive,weekday"`
	StartTime string   `json:"start_time" validate:"required,hhmm"`
	EndTime   string   `json:"end_time" validate:"required,hhmm"`
	StartDate string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   *string  `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status    string   `json:"status,omitempty" validate:"omitempty,schedule_status"`
}

// UpdateScheduleRequest replaces a schedule guarded by its current version.
type UpdateScheduleRequest struct {
	ScheduleRequest
	Version int `json:"version" validate:"required,min=1"`
}

// CancelScheduleRequest carries the version being cancelled.
type CancelScheduleRequest struct {
	Version int `json:"version" validate:"required,min=1"`
}

// ValidateScheduleRequest asks for conflicts without committing. ExcludeID is
// set when re-validating an edit of an existing schedule.
type ValidateScheduleRequest struct {
	ScheduleRequest
	ExcludeID string `json:"exclude_id,omitempty"`
}

// ConflictReport is the result of a validation run.
type ConflictReport struct {
	Conflicts []models.Conflict `json:"conflicts"`
	Blocking  bool              `json:"blocking"`
}

// ScheduleCommitResult returns the stored schedule with any advisory conflicts.
type ScheduleCommitResult struct {
	Schedule *models.SchedulePattern `json:"schedule"`
	Warnings []models.Conflict       `json:"warnings,omitempty"`
}

// BlackoutRequest creates or replaces a blackout period.
type BlackoutRequest struct {
	Title     string  `json:"title" validate:"required,max=200"`
	Kind      string  `json:"kind" validate:"required,blackout_kind"`
	ScopeType string  `json:"scope_type" validate:"required,scope_type"`
	// ScopeID is required for ROOM and TEACHER scopes; see the blackout_scope struct rule.
	ScopeID   string  `json:"scope_id,omitempty"`
	StartDate string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Active    *bool   `json:"active,omitempty"`
}

// FeedLink is a signed, expiring iCalendar subscription URL.
type FeedLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
