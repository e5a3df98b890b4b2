package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/church-schedule-api/internal/models"
)

const blackoutColumns = "id, title, kind, scope_type, scope_room_id, scope_teacher_id, start_date, end_date, active, created_at, updated_at"

type blackoutRow struct {
	ID             string         `db:"id"`
	Title          string         `db:"title"`
	Kind           string         `db:"kind"`
	ScopeType      string         `db:"scope_type"`
	ScopeRoomID    sql.NullString `db:"scope_room_id"`
	ScopeTeacherID sql.NullString `db:"scope_teacher_id"`
	StartDate      models.Date    `db:"start_date"`
	EndDate        *models.Date   `db:"end_date"`
	Active         bool           `db:"active"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func newBlackoutRow(b *models.BlackoutPeriod) blackoutRow {
	row := blackoutRow{
		ID:        b.ID,
		Title:     b.Title,
		Kind:      string(b.Kind),
		ScopeType: string(b.Scope.Type),
		StartDate: b.DateRange.Start,
		EndDate:   b.DateRange.End,
		Active:    b.Active,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Scope.RoomID != nil {
		row.ScopeRoomID = sql.NullString{String: *b.Scope.RoomID, Valid: true}
	}
	if b.Scope.TeacherID != nil {
		row.ScopeTeacherID = sql.NullString{String: *b.Scope.TeacherID, Valid: true}
	}
	return row
}

func (row blackoutRow) model() models.BlackoutPeriod {
	var scope models.BlackoutScope
	switch models.ScopeType(row.ScopeType) {
	case models.ScopeRoom:
		scope = models.RoomScope(row.ScopeRoomID.String)
	case models.ScopeTeacher:
		scope = models.TeacherScope(row.ScopeTeacherID.String)
	default:
		scope = models.GlobalScope()
	}
	return models.BlackoutPeriod{
		ID:        row.ID,
		Title:     row.Title,
		DateRange: models.DateRange{Start: row.StartDate, End: row.EndDate},
		Kind:      models.BlackoutKind(row.Kind),
		Scope:     scope,
		Active:    row.Active,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// BlackoutRepository persists blackout periods.
type BlackoutRepository struct {
	db sqlx.ExtContext
}

// NewBlackoutRepository creates a new blackout repository.
func NewBlackoutRepository(db *sqlx.DB) *BlackoutRepository {
	return &BlackoutRepository{db: db}
}

// WithExecutor returns a repository bound to exec.
func (r *BlackoutRepository) WithExecutor(exec sqlx.ExtContext) *BlackoutRepository {
	return &BlackoutRepository{db: exec}
}

// ListActiveOverlapping returns active blackouts intersecting dateRange.
func (r *BlackoutRepository) ListActiveOverlapping(ctx context.Context, dateRange models.DateRange) ([]models.BlackoutPeriod, error) {
	conditions := []string{"active = TRUE", "(end_date IS NULL OR end_date >= $1)"}
	args := []interface{}{dateRange.Start}
	if dateRange.End != nil {
		conditions = append(conditions, "start_date <= $2")
		args = append(args, *dateRange.End)
	}
	query := fmt.Sprintf("SELECT %s FROM blackout_periods WHERE %s ORDER BY start_date ASC, id ASC", blackoutColumns, strings.Join(conditions, " AND "))

	var rows []blackoutRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list overlapping blackouts: %w", err)
	}
	out := make([]models.BlackoutPeriod, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, nil
}

// List returns blackouts with optional filters and pagination.
func (r *BlackoutRepository) List(ctx context.Context, filter models.BlackoutFilter) ([]models.BlackoutPeriod, int, error) {
	base := "FROM blackout_periods WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ActiveOnly {
		conditions = append(conditions, "active = TRUE")
	}
	if filter.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, string(filter.Kind))
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

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY start_date ASC, id ASC LIMIT %d OFFSET %d", blackoutColumns, base, size, (page-1)*size)
	var rows []blackoutRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list blackouts: %w", err)
	}

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count blackouts: %w", err)
	}

	out := make([]models.BlackoutPeriod, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, total, nil
}

// FindByID loads a blackout by id.
func (r *BlackoutRepository) FindByID(ctx context.Context, id string) (*models.BlackoutPeriod, error) {
	var row blackoutRow
	query := fmt.Sprintf("SELECT %s FROM blackout_periods WHERE id = $1", blackoutColumns)
	if err := sqlx.GetContext(ctx, r.db, &row, query, id); err != nil {
		return nil, err
	}
	b := row.model()
	return &b, nil
}

// Create inserts a blackout period.
func (r *BlackoutRepository) Create(ctx context.Context, blackout *models.BlackoutPeriod) error {
	if blackout.ID == "" {
		blackout.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if blackout.CreatedAt.IsZero() {
		blackout.CreatedAt = now
	}
	blackout.UpdatedAt = now

	const query = `INSERT INTO blackout_periods (id, title, kind, scope_type, scope_room_id, scope_teacher_id, start_date, end_date, active, created_at, updated_at) VALUES (:id, :title, :kind, :scope_type, :scope_room_id, :scope_teacher_id, :start_date, :end_date, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, newBlackoutRow(blackout)); err != nil {
		return fmt.Errorf("create blackout: %w", err)
	}
	return nil
}

// Update replaces a blackout period. Returns sql.ErrNoRows when it does not exist.
func (r *BlackoutRepository) Update(ctx context.Context, blackout *models.BlackoutPeriod) error {
	blackout.UpdatedAt = time.Now().UTC()
	const query = `UPDATE blackout_periods SET title = :title, kind = :kind, scope_type = :scope_type, scope_room_id = :scope_room_id, scope_teacher_id = :scope_teacher_id, start_date = :start_date, end_date = :end_date, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.db, query, newBlackoutRow(blackout))
	if err != nil {
		return fmt.Errorf("update blackout: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a blackout period. Returns sql.ErrNoRows when it does not exist.
func (r *BlackoutRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blackout_periods WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blackout: %w", err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
