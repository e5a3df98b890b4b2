package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/church-schedule-api/internal/models"
)

const scheduleColumns = "id, title, teacher_id, room_id, weekdays, start_time, end_time, start_date, end_date, status, version, created_at, updated_at"

type scheduleRow struct {
	ID        string            `db:"id"`
	Title     string            `db:"title"`
	TeacherID string            `db:"teacher_id"`
	RoomID    sql.NullString    `db:"room_id"`
	Weekdays  models.WeekdaySet `db:"weekdays"`
	StartTime models.TimeOfDay  `db:"start_time"`
	EndTime   models.TimeOfDay  `db:"end_time"`
	StartDate models.Date       `db:"start_date"`
	EndDate   *models.Date      `db:"end_date"`
	Status    string            `db:"status"`
	Version   int               `db:"version"`
	CreatedAt time.Time         `db:"created_at"`
	UpdatedAt time.Time         `db:"updated_at"`
}

func newScheduleRow(p *models.SchedulePattern) scheduleRow {
	row := scheduleRow{
		ID:        p.ID,
		Title:     p.Title,
		TeacherID: p.TeacherID,
		Weekdays:  p.Weekdays,
		StartTime: p.Window.Start,
		EndTime:   p.Window.End,
		StartDate: p.DateRange.Start,
		EndDate:   p.DateRange.End,
		Status:    string(p.Status),
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.HasRoom() {
		row.RoomID = sql.NullString{String: *p.RoomID, Valid: true}
	}
	return row
}

func (row scheduleRow) model() models.SchedulePattern {
	p := models.SchedulePattern{
		ID:        row.ID,
		Title:     row.Title,
		TeacherID: row.TeacherID,
		Weekdays:  row.Weekdays,
		Window:    models.TimeWindow{Start: row.StartTime, End: row.EndTime},
		DateRange: models.DateRange{Start: row.StartDate, End: row.EndDate},
		Status:    models.ScheduleStatus(row.Status),
		Version:   row.Version,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.RoomID.Valid && row.RoomID.String != "" {
		room := row.RoomID.String
		p.RoomID = &room
	}
	return p
}

func scheduleModels(rows []scheduleRow) []models.SchedulePattern {
	out := make([]models.SchedulePattern, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out
}

func activeStatuses() pq.StringArray {
	statuses := make(pq.StringArray, 0, len(models.ActiveScheduleStatuses))
	for _, s := range models.ActiveScheduleStatuses {
		statuses = append(statuses, string(s))
	}
	return statuses
}

// ScheduleRepository provides persistence for recurring schedule patterns.
type ScheduleRepository struct {
	conn *sqlx.DB
	db   sqlx.ExtContext
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{conn: db, db: db}
}

// WithExecutor returns a repository running its statements on exec, usually a transaction.
func (r *ScheduleRepository) WithExecutor(exec sqlx.ExtContext) *ScheduleRepository {
	return &ScheduleRepository{conn: r.conn, db: exec}
}

// WithResourceLock runs fn inside a transaction holding a transaction scoped
// advisory lock for every key. Keys are locked in sorted order so concurrent
// writers on overlapping resources cannot deadlock.
func (r *ScheduleRepository) WithResourceLock(ctx context.Context, keys []string, fn func(exec sqlx.ExtContext) error) (err error) {
	if r.conn == nil {
		return fmt.Errorf("resource lock requires a database connection")
	}
	tx, err := r.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule lock transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, key := range uniqueSorted(keys) {
		if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
	}

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule transaction: %w", err)
	}
	return nil
}

// ListActiveByTeacher returns the active patterns of a teacher, skipping excludeID.
func (r *ScheduleRepository) ListActiveByTeacher(ctx context.Context, teacherID, excludeID string) ([]models.SchedulePattern, error) {
	return r.listActiveBy(ctx, "teacher_id", teacherID, excludeID)
}

// ListActiveByRoom returns the active patterns booked in a room, skipping excludeID.
func (r *ScheduleRepository) ListActiveByRoom(ctx context.Context, roomID, excludeID string) ([]models.SchedulePattern, error) {
	return r.listActiveBy(ctx, "room_id", roomID, excludeID)
}

func (r *ScheduleRepository) listActiveBy(ctx context.Context, column, value, excludeID string) ([]models.SchedulePattern, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_patterns WHERE %s = $1 AND status = ANY($2)", scheduleColumns, column)
	args := []interface{}{value, activeStatuses()}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	query += " ORDER BY start_date ASC, id ASC"

	var rows []scheduleRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list active schedules by %s: %w", column, err)
	}
	return scheduleModels(rows), nil
}

// ListActive returns every active pattern.
func (r *ScheduleRepository) ListActive(ctx context.Context) ([]models.SchedulePattern, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_patterns WHERE status = ANY($1) ORDER BY teacher_id ASC, start_date ASC", scheduleColumns)
	var rows []scheduleRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, activeStatuses()); err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	return scheduleModels(rows), nil
}

// ListActiveInRange returns active patterns whose date range overlaps dateRange,
// optionally narrowed to a teacher and a room.
func (r *ScheduleRepository) ListActiveInRange(ctx context.Context, dateRange models.DateRange, teacherID, roomID string) ([]models.SchedulePattern, error) {
	conditions := []string{"status = ANY($1)", "(end_date IS NULL OR end_date >= $2)"}
	args := []interface{}{activeStatuses(), dateRange.Start}
	if dateRange.End != nil {
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d", len(args)+1))
		args = append(args, *dateRange.End)
	}
	if teacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, teacherID)
	}
	if roomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, roomID)
	}
	query := fmt.Sprintf("SELECT %s FROM schedule_patterns WHERE %s ORDER BY start_time ASC, id ASC", scheduleColumns, strings.Join(conditions, " AND "))

	var rows []scheduleRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list schedules in range: %w", err)
	}
	return scheduleModels(rows), nil
}

// List returns schedules with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.SchedulePattern, int, error) {
	base := "FROM schedule_patterns WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make(pq.StringArray, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)+1))
		args = append(args, statuses)
	}
	if filter.Overlaps != nil {
		conditions = append(conditions, fmt.Sprintf("(end_date IS NULL OR end_date >= $%d)", len(args)+1))
		args = append(args, filter.Overlaps.Start)
		if filter.Overlaps.End != nil {
			conditions = append(conditions, fmt.Sprintf("start_date <= $%d", len(args)+1))
			args = append(args, *filter.Overlaps.End)
		}
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "start_date"
	}
	allowedSorts := map[string]bool{
		"start_date": true,
		"start_time": true,
		"title":      true,
		"teacher_id": true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "start_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, id ASC LIMIT %d OFFSET %d", scheduleColumns, base, sortBy, order, size, offset)
	var rows []scheduleRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return scheduleModels(rows), total, nil
}

// FindByID loads a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.SchedulePattern, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_patterns WHERE id = $1", scheduleColumns)
	var row scheduleRow
	if err := sqlx.GetContext(ctx, r.db, &row, query, id); err != nil {
		return nil, err
	}
	p := row.model()
	return &p, nil
}

// Create stores a new schedule at version 1.
func (r *ScheduleRepository) Create(ctx context.Context, pattern *models.SchedulePattern) error {
	if pattern.ID == "" {
		pattern.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if pattern.CreatedAt.IsZero() {
		pattern.CreatedAt = now
	}
	pattern.UpdatedAt = now
	pattern.Version = 1

	const query = `INSERT INTO schedule_patterns (id, title, teacher_id, room_id, weekdays, start_time, end_time, start_date, end_date, status, version, created_at, updated_at) VALUES (:id, :title, :teacher_id, :room_id, :weekdays, :start_time, :end_time, :start_date, :end_date, :status, :version, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, newScheduleRow(pattern)); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update writes pattern when its version still matches the stored one and bumps the version.
func (r *ScheduleRepository) Update(ctx context.Context, pattern *models.SchedulePattern) error {
	now := time.Now().UTC()
	row := newScheduleRow(pattern)
	row.UpdatedAt = now

	const query = `UPDATE schedule_patterns SET title = :title, teacher_id = :teacher_id, room_id = :room_id, weekdays = :weekdays, start_time = :start_time, end_time = :end_time, start_date = :start_date, end_date = :end_date, status = :status, version = version + 1, updated_at = :updated_at WHERE id = :id AND version = :version`
	res, err := sqlx.NamedExecContext(ctx, r.db, query, row)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update schedule rows affected: %w", err)
	}
	if affected == 0 {
		return models.ErrStaleVersion
	}
	pattern.Version++
	pattern.UpdatedAt = now
	return nil
}

// UpdateStatus moves a schedule to status when version matches.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus, version int) (*models.SchedulePattern, error) {
	query := fmt.Sprintf("UPDATE schedule_patterns SET status = $1, version = version + 1, updated_at = $2 WHERE id = $3 AND version = $4 RETURNING %s", scheduleColumns)
	var row scheduleRow
	if err := sqlx.GetContext(ctx, r.db, &row, query, string(status), time.Now().UTC(), id, version); err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrStaleVersion
		}
		return nil, fmt.Errorf("update schedule status: %w", err)
	}
	p := row.model()
	return &p, nil
}

// ConcludeExpired marks active schedules that ended before asOf as CONCLUDED.
func (r *ScheduleRepository) ConcludeExpired(ctx context.Context, asOf models.Date) (int64, error) {
	const query = `UPDATE schedule_patterns SET status = $1, version = version + 1, updated_at = $2 WHERE status = ANY($3) AND end_date IS NOT NULL AND end_date < $4`
	res, err := r.db.ExecContext(ctx, query, string(models.ScheduleStatusConcluded), time.Now().UTC(), activeStatuses(), asOf)
	if err != nil {
		return 0, fmt.Errorf("conclude expired schedules: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("conclude expired schedules rows affected: %w", err)
	}
	return affected, nil
}

func uniqueSorted(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
