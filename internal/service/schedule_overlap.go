package service

import "github.com/noah-isme/church-schedule-api/internal/models"

// PatternsCanCollide reports whether two patterns share at least one concrete
// session: their date ranges, weekday sets and time windows must all overlap.
// The check is resource agnostic; callers decide which patterns share a teacher or room.
func PatternsCanCollide(a, b models.SchedulePattern) bool {
	return models.DateRangeOverlap(a.DateRange, b.DateRange) &&
		models.WeekdaySetIntersects(a.Weekdays, b.Weekdays) &&
		a.Window.Overlaps(b.Window)
}

// BlackoutAffectsPattern reports whether a blackout blocks any day of the pattern.
// Weekdays and windows are ignored because a blackout covers whole days.
func BlackoutAffectsPattern(p models.SchedulePattern, b models.BlackoutPeriod) bool {
	roomID := ""
	if p.HasRoom() {
		roomID = *p.RoomID
	}
	return models.DateRangeOverlap(p.DateRange, b.DateRange) && b.Scope.Matches(p.TeacherID, roomID)
}
