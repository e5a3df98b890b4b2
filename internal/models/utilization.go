package models

// UtilizationRecord summarises a teacher's committed weekly load.
type UtilizationRecord struct {
	TeacherID           string  `json:"teacher_id"`
	TotalWeeklyHours    float64 `json:"total_weekly_hours"`
	ActiveScheduleCount int     `json:"active_schedule_count"`
	UtilizationPercent  float64 `json:"utilization_percent"`
	WeeklyCapacityHours float64 `json:"weekly_capacity_hours"`
	Overcommitted       bool    `json:"overcommitted"`
}
