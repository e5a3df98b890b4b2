package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day normalised to midnight UTC.
type Date struct {
	time.Time
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping its local calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(raw string) (Date, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return DateOf(parsed), nil
}

// MustDate parses constant dates.
func MustDate(raw string) Date {
	d, err := ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// String renders YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// AddDays shifts the date by n days.
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// Before reports d < other.
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

// After reports d > other.
func (d Date) After(other Date) bool { return d.Time.After(other.Time) }

// Weekday returns the ISO weekday of the date.
func (d Date) Weekday() Weekday { return WeekdayOf(d.Time) }

// MarshalJSON encodes YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes YYYY-MM-DD.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as a postgres DATE.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan reads postgres DATE values.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
}

func (d *Date) scanString(raw string) error {
	if len(raw) > len(DateLayout) {
		raw = raw[:len(DateLayout)]
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return fmt.Errorf("scan date: %w", err)
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive range of days. A nil End means the range never ends.
type DateRange struct {
	Start Date  `db:"start_date" json:"start"`
	End   *Date `db:"end_date" json:"end,omitempty"`
}

// Bounded reports whether the range has an end date.
func (r DateRange) Bounded() bool {
	return r.End != nil
}

// Validate checks start <= end for bounded ranges.
func (r DateRange) Validate() error {
	if r.Start.IsZero() {
		return fmt.Errorf("date range start is required")
	}
	if r.End != nil && r.End.Before(r.Start) {
		return fmt.Errorf("date range start %s is after end %s", r.Start, r.End)
	}
	return nil
}

// Contains reports whether d falls within the range.
func (r DateRange) Contains(d Date) bool {
	if d.Before(r.Start) {
		return false
	}
	return r.End == nil || !d.After(*r.End)
}

// Overlaps applies DateRangeOverlap.
func (r DateRange) Overlaps(other DateRange) bool {
	return DateRangeOverlap(r, other)
}

// String renders start..end, with an open end shown as "..".
func (r DateRange) String() string {
	if r.End == nil {
		return r.Start.String() + ".."
	}
	return r.Start.String() + ".." + r.End.String()
}

// DateRangeOverlap is true iff a.start <= b.end and b.start <= a.end,
// where a missing end counts as +infinity.
func DateRangeOverlap(a, b DateRange) bool {
	if b.End != nil && a.Start.After(*b.End) {
		return false
	}
	if a.End != nil && b.Start.After(*a.End) {
		return false
	}
	return true
}

// MonthRange returns the inclusive range covering a calendar month.
func MonthRange(year int, month time.Month) DateRange {
	first := NewDate(year, month, 1)
	last := Date{first.AddDate(0, 1, -1)}
	return DateRange{Start: first, End: &last}
}
