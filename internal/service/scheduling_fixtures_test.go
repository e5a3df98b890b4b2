package service

import (
	"context"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/church-schedule-api/internal/models"
)

var errStoreDown = errors.New("connection refused")

func strPtr(s string) *string { return &s }

func datePtr(raw string) *models.Date {
	d := models.MustDate(raw)
	return &d
}

func window(startHour, startMinute, endHour, endMinute int) models.TimeWindow {
	return models.TimeWindow{
		Start: models.MustTimeOfDay(startHour, startMinute),
		End:   models.MustTimeOfDay(endHour, endMinute),
	}
}

func dateRange(start, end string) models.DateRange {
	r := models.DateRange{Start: models.MustDate(start)}
	if end != "" {
		r.End = datePtr(end)
	}
	return r
}

func pattern(id, teacherID string, days models.WeekdaySet, w models.TimeWindow, r models.DateRange) models.SchedulePattern {
	return models.SchedulePattern{
		ID:        id,
		Title:     "Class " + id,
		TeacherID: teacherID,
		Weekdays:  days,
		Window:    w,
		DateRange: r,
		Status:    models.ScheduleStatusActive,
		Version:   1,
	}
}

// memoryScheduleStore is an in-memory ScheduleWriter shared by detector and service tests.
type memoryScheduleStore struct {
	mu        sync.Mutex
	items     []models.SchedulePattern
	err       error
	created   []models.SchedulePattern
	updated   []models.SchedulePattern
	updateErr error
	calls     int
}

func (m *memoryScheduleStore) ListActiveByTeacher(ctx context.Context, teacherID, excludeID string) ([]models.SchedulePattern, error) {
	return m.filter(func(p models.SchedulePattern) bool { return p.TeacherID == teacherID }, excludeID)
}

func (m *memoryScheduleStore) ListActiveByRoom(ctx context.Context, roomID, excludeID string) ([]models.SchedulePattern, error) {
	return m.filter(func(p models.SchedulePattern) bool { return p.HasRoom() && *p.RoomID == roomID }, excludeID)
}

func (m *memoryScheduleStore) filter(match func(models.SchedulePattern) bool, excludeID string) ([]models.SchedulePattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []models.SchedulePattern
	for _, p := range m.items {
		if p.ID == excludeID || !p.IsActive() || !match(p) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryScheduleStore) Create(ctx context.Context, p *models.SchedulePattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = "new-1"
	}
	p.Version = 1
	m.items = append(m.items, *p)
	m.created = append(m.created, *p)
	return nil
}

func (m *memoryScheduleStore) Update(ctx context.Context, p *models.SchedulePattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	for i := range m.items {
		if m.items[i].ID != p.ID {
			continue
		}
		if m.items[i].Version != p.Version {
			return models.ErrStaleVersion
		}
		p.Version++
		m.items[i] = *p
		m.updated = append(m.updated, *p)
		return nil
	}
	return models.ErrStaleVersion
}

type stubBlackoutSource struct {
	items []models.BlackoutPeriod
	err   error
}

func (s *stubBlackoutSource) ListActiveOverlapping(ctx context.Context, r models.DateRange) ([]models.BlackoutPeriod, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.BlackoutPeriod
	for _, b := range s.items {
		if b.Active && models.DateRangeOverlap(b.DateRange, r) {
			out = append(out, b)
		}
	}
	return out, nil
}

type stubTeacherDirectory map[string]string

func (s stubTeacherDirectory) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	name, ok := s[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &models.Teacher{ID: id, FullName: name, Active: true}, nil
}

// stubLocker runs the callback without a database and records the keys it was asked to lock.
type stubLocker struct {
	keys [][]string
	err  error
}

func (l *stubLocker) WithResourceLock(ctx context.Context, keys []string, fn func(exec sqlx.ExtContext) error) error {
	l.keys = append(l.keys, keys)
	if l.err != nil {
		return l.err
	}
	return fn(nil)
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(ctx context.Context) { c.calls++ }
