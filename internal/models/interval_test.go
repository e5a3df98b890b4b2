package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeOverlapIsStrict(t *testing.T) {
	ten := MustTimeOfDay(10, 0)
	eleven := MustTimeOfDay(11, 0)
	noon := MustTimeOfDay(12, 0)

	assert.False(t, TimeOverlap(ten, eleven, eleven, noon), "back-to-back windows must not overlap")
	assert.False(t, TimeOverlap(eleven, noon, ten, eleven))
	assert.True(t, TimeOverlap(ten, eleven, MustTimeOfDay(10, 30), MustTimeOfDay(11, 30)))
	assert.True(t, TimeOverlap(ten, noon, MustTimeOfDay(10, 30), eleven), "containment overlaps")
}

func TestDateRangeOverlap(t *testing.T) {
	end := MustDate("2024-06-30")
	a := DateRange{Start: MustDate("2024-01-01"), End: &end}

	marchEnd := MustDate("2024-03-31")
	assert.True(t, DateRangeOverlap(a, DateRange{Start: MustDate("2024-03-01"), End: &marchEnd}))

	julyEnd := MustDate("2024-07-31")
	assert.False(t, DateRangeOverlap(a, DateRange{Start: MustDate("2024-07-01"), End: &julyEnd}))

	sameDay := MustDate("2024-06-30")
	assert.True(t, DateRangeOverlap(a, DateRange{Start: sameDay, End: &sameDay}), "shared boundary day overlaps")
}

func TestDateRangeOverlapUnbounded(t *testing.T) {
	open := DateRange{Start: MustDate("2020-01-01")}
	farEnd := MustDate("2099-12-31")
	future := DateRange{Start: MustDate("2099-01-01"), End: &farEnd}

	assert.True(t, DateRangeOverlap(open, future))
	assert.True(t, DateRangeOverlap(future, open))
	assert.True(t, DateRangeOverlap(open, DateRange{Start: MustDate("2150-05-05")}))

	earlierEnd := MustDate("2019-12-31")
	assert.False(t, DateRangeOverlap(open, DateRange{Start: MustDate("2019-01-01"), End: &earlierEnd}))
}

func TestDateRangeValidateAndContains(t *testing.T) {
	end := MustDate("2024-01-01")
	bad := DateRange{Start: MustDate("2024-02-01"), End: &end}
	require.Error(t, bad.Validate())

	good := DateRange{Start: MustDate("2024-01-01"), End: &end}
	require.NoError(t, good.Validate())
	assert.True(t, good.Contains(MustDate("2024-01-01")))
	assert.False(t, good.Contains(MustDate("2024-01-02")))
}

func TestWeekdaySetOperations(t *testing.T) {
	monWed := NewWeekdaySet(Monday, Wednesday)
	wedFri := NewWeekdaySet(Wednesday, Friday)
	tueThu := NewWeekdaySet(Tuesday, Thursday)

	assert.True(t, WeekdaySetIntersects(monWed, wedFri))
	assert.False(t, WeekdaySetIntersects(monWed, tueThu))
	assert.Equal(t, 2, monWed.Len())
	assert.Equal(t, []Weekday{Monday, Wednesday}, monWed.Days())
	assert.True(t, NewWeekdaySet().Empty())
	assert.True(t, NewWeekdaySet(Weekday(0), Weekday(9)).Empty(), "invalid days are ignored")
}

func TestWeekdayOfUsesISONumbering(t *testing.T) {
	assert.Equal(t, Monday, WeekdayOf(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, Sunday, WeekdayOf(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)))
}

func TestWeekdaySetJSON(t *testing.T) {
	var set WeekdaySet
	require.NoError(t, json.Unmarshal([]byte(`["monday","quarta-feira","FRI"]`), &set))
	assert.Equal(t, NewWeekdaySet(Monday, Wednesday, Friday), set)

	raw, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `["MONDAY","WEDNESDAY","FRIDAY"]`, string(raw))

	require.Error(t, json.Unmarshal([]byte(`["someday"]`), &set))
}

func TestWeekdaySetScan(t *testing.T) {
	var set WeekdaySet
	require.NoError(t, set.Scan(int64(NewWeekdaySet(Tuesday, Sunday))))
	assert.True(t, set.Contains(Tuesday))
	assert.True(t, set.Contains(Sunday))
	assert.False(t, set.Contains(Monday))
}

func TestTimeOfDayParse(t *testing.T) {
	tod, err := ParseTimeOfDay("09:45")
	require.NoError(t, err)
	assert.Equal(t, "09:45", tod.String())

	tod, err = ParseTimeOfDay("18:30:00")
	require.NoError(t, err)
	assert.Equal(t, 18, tod.Hour())
	assert.Equal(t, 30, tod.Minute())

	_, err = ParseTimeOfDay("25:00")
	require.Error(t, err)
}

func TestMonthRange(t *testing.T) {
	feb := MonthRange(2024, time.February)
	assert.Equal(t, "2024-02-01", feb.Start.String())
	require.NotNil(t, feb.End)
	assert.Equal(t, "2024-02-29", feb.End.String())
}
