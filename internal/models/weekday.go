package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Weekday is an ISO weekday, Monday = 1 through Sunday = 7.
type Weekday uint8

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
	Sunday:    "SUNDAY",
}

// weekdayAliases accepts the names used by the legacy scheduling forms.
var weekdayAliases = map[string]Weekday{
	"MONDAY":    Monday,
	"MON":       Monday,
	"SEGUNDA":   Monday,
	"TUESDAY":   Tuesday,
	"TUE":       Tuesday,
	"TERCA":     Tuesday,
	"TERÇA":     Tuesday,
	"WEDNESDAY": Wednesday,
	"WED":       Wednesday,
	"QUARTA":    Wednesday,
	"THURSDAY":  Thursday,
	"THU":       Thursday,
	"QUINTA":    Thursday,
	"FRIDAY":    Friday,
	"FRI":       Friday,
	"SEXTA":     Friday,
	"SATURDAY":  Saturday,
	"SAT":       Saturday,
	"SABADO":    Saturday,
	"SÁBADO":    Saturday,
	"SUNDAY":    Sunday,
	"SUN":       Sunday,
	"DOMINGO":   Sunday,
}

// Valid reports whether the weekday is inside the closed enumeration.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// String returns the canonical upper-case name.
func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", uint8(d))
	}
	return weekdayNames[d]
}

// ParseWeekday resolves a weekday name or alias.
func ParseWeekday(raw string) (Weekday, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	name = strings.TrimSuffix(name, "-FEIRA")
	if day, ok := weekdayAliases[name]; ok {
		return day, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

// WeekdayOf maps a calendar date onto the ISO weekday.
func WeekdayOf(t time.Time) Weekday {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

// MarshalJSON encodes the weekday by name.
func (d Weekday) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", uint8(d))
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a weekday name.
func (d *Weekday) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("weekday must be a string: %w", err)
	}
	parsed, err := ParseWeekday(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// WeekdaySet is a bitmask of weekdays; bit n is set for Weekday n.
type WeekdaySet uint8

const allWeekdays WeekdaySet = 0b11111110

// NewWeekdaySet builds a set from the given days, ignoring invalid values.
func NewWeekdaySet(days ...Weekday) WeekdaySet {
	var set WeekdaySet
	for _, day := range days {
		set = set.With(day)
	}
	return set
}

// With returns a copy of the set including day.
func (s WeekdaySet) With(day Weekday) WeekdaySet {
	if !day.Valid() {
		return s
	}
	return s | 1<<day
}

// Contains reports whether day is in the set.
func (s WeekdaySet) Contains(day Weekday) bool {
	return day.Valid() && s&(1<<day) != 0
}

// Intersects reports whether the two sets share at least one weekday.
func (s WeekdaySet) Intersects(other WeekdaySet) bool {
	return s&other&allWeekdays != 0
}

// Empty reports whether no weekday is set.
func (s WeekdaySet) Empty() bool {
	return s&allWeekdays == 0
}

// Len returns the number of weekdays in the set.
func (s WeekdaySet) Len() int {
	n := 0
	for day := Monday; day <= Sunday; day++ {
		if s.Contains(day) {
			n++
		}
	}
	return n
}

// Days lists the set members in week order.
func (s WeekdaySet) Days() []Weekday {
	days := make([]Weekday, 0, 7)
	for day := Monday; day <= Sunday; day++ {
		if s.Contains(day) {
			days = append(days, day)
		}
	}
	return days
}

// String renders the set as a comma separated list.
func (s WeekdaySet) String() string {
	days := s.Days()
	names := make([]string, len(days))
	for i, day := range days {
		names[i] = day.String()
	}
	return strings.Join(names, ",")
}

// WeekdaySetIntersects is true iff a and b share a weekday.
func WeekdaySetIntersects(a, b WeekdaySet) bool {
	return a.Intersects(b)
}

// MarshalJSON encodes the set as an array of names.
func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Days())
}

// UnmarshalJSON decodes an array of weekday names.
func (s *WeekdaySet) UnmarshalJSON(data []byte) error {
	var days []Weekday
	if err := json.Unmarshal(data, &days); err != nil {
		return err
	}
	*s = NewWeekdaySet(days...)
	return nil
}

// Value stores the bitmask as an integer column.
func (s WeekdaySet) Value() (driver.Value, error) {
	return int64(s & allWeekdays), nil
}

// Scan reads the bitmask from an integer column.
func (s *WeekdaySet) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*s = WeekdaySet(v) & allWeekdays
	case []byte:
		var n int64
		if _, err := fmt.Sscanf(string(v), "%d", &n); err != nil {
			return fmt.Errorf("scan weekday set: %w", err)
		}
		*s = WeekdaySet(n) & allWeekdays
	case nil:
		*s = 0
	default:
		return fmt.Errorf("scan weekday set: unsupported type %T", src)
	}
	return nil
}
