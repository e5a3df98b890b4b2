package models

import "fmt"

// ConflictKind classifies a detected scheduling conflict.
type ConflictKind string

const (
	ConflictTeacherDoubleBooked ConflictKind = "TEACHER_DOUBLE_BOOKED"
	ConflictRoomDoubleBooked    ConflictKind = "ROOM_DOUBLE_BOOKED"
	ConflictBlackoutOverlap     ConflictKind = "BLACKOUT_OVERLAP"
)

// Conflict severities. Only SeverityBlocking prevents a commit.
const (
	SeverityInfo     = 1
	SeverityWarning  = 2
	SeverityBlocking = 3
)

// Conflict is a derived, non-persisted description of a collision.
type Conflict struct {
	Kind        ConflictKind `json:"kind"`
	Severity    int          `json:"severity"`
	Description string       `json:"description"`
	RelatedID   string       `json:"related_id"`
}

// Blocking reports whether the conflict must stop a commit.
func (c Conflict) Blocking() bool {
	return c.Severity >= SeverityBlocking
}

// HasBlocking reports whether any conflict is policy-blocking.
func HasBlocking(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Blocking() {
			return true
		}
	}
	return false
}

// ScheduleConflictError is returned when a commit is refused because of blocking conflicts.
type ScheduleConflictError struct {
	Message   string     `json:"message"`
	Conflicts []Conflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%d schedule conflicts detected", len(e.Conflicts))
}
