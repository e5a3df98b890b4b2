package models

// CalendarSource tells where a projected calendar entry came from.
type CalendarSource string

const (
	CalendarSourceSchedule CalendarSource = "SCHEDULE"
	CalendarSourceBlackout CalendarSource = "BLACKOUT"
)

// CalendarEvent is one concrete entry on a projected calendar day.
type CalendarEvent struct {
	Source CalendarSource `json:"source"`
	RefID  string         `json:"ref_id"`
	Title  string         `json:"title"`
	Kind   BlackoutKind   `json:"kind,omitempty"`
	Window *TimeWindow    `json:"window,omitempty"`
	RoomID *string        `json:"room_id,omitempty"`
}

// CalendarDay groups the events of a single date.
type CalendarDay struct {
	Date   Date            `json:"date"`
	Events []CalendarEvent `json:"events"`
}

// MonthProjection is the expanded calendar for one month. Days are in date
// order and only days with at least one event are present.
type MonthProjection struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []CalendarDay `json:"days"`
}

// EventsOn returns the events projected on d, or nil.
func (p MonthProjection) EventsOn(d Date) []CalendarEvent {
	for _, day := range p.Days {
		if day.Date.Equal(d.Time) {
			return day.Events
		}
	}
	return nil
}

// CalendarView restricts a projection to one teacher and/or room.
type CalendarView struct {
	TeacherID string `json:"teacher_id,omitempty"`
	RoomID    string `json:"room_id,omitempty"`
}
