package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validPattern() SchedulePattern {
	end := MustDate("2024-06-30")
	return SchedulePattern{
		ID:        "sched-1",
		TeacherID: "teacher-1",
		Weekdays:  NewWeekdaySet(Monday),
		Window:    TimeWindow{Start: MustTimeOfDay(10, 0), End: MustTimeOfDay(11, 0)},
		DateRange: DateRange{Start: MustDate("2024-01-01"), End: &end},
		Status:    ScheduleStatusActive,
	}
}

func TestSchedulePatternValidate(t *testing.T) {
	assert.NoError(t, validPattern().Validate())

	p := validPattern()
	p.Weekdays = 0
	assert.ErrorIs(t, p.Validate(), ErrEmptyWeekdays)

	p = validPattern()
	p.Window.End = p.Window.Start
	assert.ErrorIs(t, p.Validate(), ErrInvalidWindow)

	p = validPattern()
	p.Window = TimeWindow{Start: MustTimeOfDay(23, 0), End: MustTimeOfDay(1, 0)}
	assert.ErrorIs(t, p.Validate(), ErrInvalidWindow, "sessions crossing midnight are rejected")

	p = validPattern()
	before := MustDate("2023-12-31")
	p.DateRange.End = &before
	assert.ErrorIs(t, p.Validate(), ErrInvalidDateRange)

	p = validPattern()
	p.TeacherID = " "
	assert.ErrorIs(t, p.Validate(), ErrMissingTeacher)
}

func TestScheduleStatusActiveSet(t *testing.T) {
	for _, status := range ActiveScheduleStatuses {
		assert.True(t, status.IsActive(), status)
	}
	assert.False(t, ScheduleStatusConcluded.IsActive())
	assert.False(t, ScheduleStatusCancelled.IsActive())
}

func TestSchedulePatternWeeklyHours(t *testing.T) {
	p := validPattern()
	p.Weekdays = NewWeekdaySet(Tuesday, Thursday)
	p.Window = TimeWindow{Start: MustTimeOfDay(19, 0), End: MustTimeOfDay(20, 30)}
	assert.InDelta(t, 3.0, p.WeeklyHours(), 1e-9)
}

func TestBlackoutScopeMatches(t *testing.T) {
	assert.True(t, GlobalScope().Matches("t1", ""))
	assert.True(t, RoomScope("r1").Matches("t1", "r1"))
	assert.False(t, RoomScope("r1").Matches("t1", ""))
	assert.False(t, RoomScope("r1").Matches("t1", "r2"))
	assert.True(t, TeacherScope("t1").Matches("t1", "r9"))
	assert.False(t, TeacherScope("t1").Matches("t2", "r9"))
}

func TestBlackoutKindSeverity(t *testing.T) {
	assert.Equal(t, SeverityBlocking, BlackoutKindHoliday.Severity())
	assert.Equal(t, SeverityBlocking, BlackoutKindBlackout.Severity())
	assert.Equal(t, SeverityInfo, BlackoutKindEvent.Severity())
}
