package models

import (
	"strings"
	"time"
)

// BlackoutKind classifies a blackout period.
type BlackoutKind string

const (
	BlackoutKindHoliday  BlackoutKind = "HOLIDAY"
	BlackoutKindBlackout BlackoutKind = "BLACKOUT"
	BlackoutKindEvent    BlackoutKind = "EVENT"
)

// Valid reports whether the kind is known.
func (k BlackoutKind) Valid() bool {
	switch k {
	case BlackoutKindHoliday, BlackoutKindBlackout, BlackoutKindEvent:
		return true
	}
	return false
}

// Severity maps the kind onto the conflict severity it produces.
func (k BlackoutKind) Severity() int {
	if k == BlackoutKindEvent {
		return SeverityInfo
	}
	return SeverityBlocking
}

// ScopeType selects what a blackout applies to.
type ScopeType string

const (
	ScopeGlobal  ScopeType = "GLOBAL"
	ScopeRoom    ScopeType = "ROOM"
	ScopeTeacher ScopeType = "TEACHER"
)

// Valid reports whether the scope type is known.
func (t ScopeType) Valid() bool {
	switch t {
	case ScopeGlobal, ScopeRoom, ScopeTeacher:
		return true
	}
	return false
}

// BlackoutScope narrows a blackout to everyone, one room or one teacher.
type BlackoutScope struct {
	Type      ScopeType `json:"type"`
	RoomID    *string   `json:"room_id,omitempty"`
	TeacherID *string   `json:"teacher_id,omitempty"`
}

// GlobalScope is the unrestricted scope.
func GlobalScope() BlackoutScope { return BlackoutScope{Type: ScopeGlobal} }

// RoomScope restricts a blackout to one room.
func RoomScope(roomID string) BlackoutScope {
	return BlackoutScope{Type: ScopeRoom, RoomID: &roomID}
}

// TeacherScope restricts a blackout to one teacher.
func TeacherScope(teacherID string) BlackoutScope {
	return BlackoutScope{Type: ScopeTeacher, TeacherID: &teacherID}
}

// Matches reports whether the scope covers the given teacher or room.
// An empty roomID never matches a room scope.
func (s BlackoutScope) Matches(teacherID, roomID string) bool {
	switch s.Type {
	case ScopeGlobal:
		return true
	case ScopeRoom:
		return roomID != "" && s.RoomID != nil && *s.RoomID == roomID
	case ScopeTeacher:
		return teacherID != "" && s.TeacherID != nil && *s.TeacherID == teacherID
	}
	return false
}

// String renders the scope for descriptions.
func (s BlackoutScope) String() string {
	switch s.Type {
	case ScopeRoom:
		if s.RoomID != nil {
			return "room " + *s.RoomID
		}
	case ScopeTeacher:
		if s.TeacherID != nil {
			return "teacher " + *s.TeacherID
		}
	}
	return strings.ToLower(string(ScopeGlobal))
}

// BlackoutPeriod is an institutional period during which classes should not run.
// It covers every day of its range regardless of weekday.
type BlackoutPeriod struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	DateRange DateRange     `json:"date_range"`
	Kind      BlackoutKind  `json:"kind"`
	Scope     BlackoutScope `json:"scope"`
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// BlackoutFilter narrows blackout listings.
type BlackoutFilter struct {
	Overlaps   *DateRange
	ActiveOnly bool
	Kind       BlackoutKind
	Page       int
	PageSize   int
}
