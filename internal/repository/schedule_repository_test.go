package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/church-schedule-api/internal/models"
)

var scheduleRowColumns = []string{"id", "title", "teacher_id", "room_id", "weekdays", "start_time", "end_time", "start_date", "end_date", "status", "version", "created_at", "updated_at"}

func newScheduleRepoMock(t *testing.T) (*ScheduleRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewScheduleRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestScheduleRepositoryListActiveByTeacher(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	now := time.Now()
	mondayWednesday := models.NewWeekdaySet(models.Monday, models.Wednesday)
	rows := sqlmock.NewRows(scheduleRowColumns).
		AddRow("s-1", "Doctrine I", "t-1", "r-1", int64(mondayWednesday), "18:00:00", "20:00:00", "2024-03-01", nil, "ACTIVE", 2, now, now)
	mock.ExpectQuery(`SELECT .* FROM schedule_patterns WHERE teacher_id = \$1 AND status = ANY\(\$2\) AND id <> \$3`).
		WithArgs("t-1", sqlmock.AnyArg(), "s-9").
		WillReturnRows(rows)

	patterns, err := repo.ListActiveByTeacher(context.Background(), "t-1", "s-9")
	require.NoError(t, err)
	require.Len(t, patterns, 1)

	p := patterns[0]
	assert.Equal(t, "s-1", p.ID)
	assert.Equal(t, mondayWednesday, p.Weekdays)
	assert.Equal(t, models.MustTimeOfDay(18, 0), p.Window.Start)
	assert.Equal(t, models.MustTimeOfDay(20, 0), p.Window.End)
	assert.Equal(t, "2024-03-01", p.DateRange.Start.String())
	assert.Nil(t, p.DateRange.End)
	require.NotNil(t, p.RoomID)
	assert.Equal(t, "r-1", *p.RoomID)
	assert.Equal(t, 2, p.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListActiveByRoomWithoutExclude(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .* FROM schedule_patterns WHERE room_id = \$1 AND status = ANY\(\$2\) ORDER BY`).
		WithArgs("r-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns))

	patterns, err := repo.ListActiveByRoom(context.Background(), "r-1", "")
	require.NoError(t, err)
	assert.Empty(t, patterns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListActiveInRange(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	month := models.MonthRange(2024, time.March)
	mock.ExpectQuery(`WHERE status = ANY\(\$1\) AND \(end_date IS NULL OR end_date >= \$2\) AND start_date <= \$3 AND teacher_id = \$4`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "t-1").
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).
			AddRow("s-1", "Doctrine I", "t-1", nil, int64(models.NewWeekdaySet(models.Monday)), "18:00:00", "20:00:00", "2024-01-01", "2024-06-30", "PLANNED", 1, time.Now(), time.Now()))

	patterns, err := repo.ListActiveInRange(context.Background(), month, "t-1", "")
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Nil(t, patterns[0].RoomID)
	require.NotNil(t, patterns[0].DateRange.End)
	assert.Equal(t, "2024-06-30", patterns[0].DateRange.End.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryList(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .* FROM schedule_patterns WHERE 1=1 AND teacher_id = \$1 AND status = ANY\(\$2\) ORDER BY start_date ASC, id ASC LIMIT 10 OFFSET 10`).
		WithArgs("t-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM schedule_patterns`).
		WithArgs("t-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	_, total, err := repo.List(context.Background(), models.ScheduleFilter{
		TeacherID: "t-1",
		Statuses:  []models.ScheduleStatus{models.ScheduleStatusActive},
		Page:      2,
		PageSize:  10,
		SortBy:    "drop table",
	})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateSetsVersion(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO schedule_patterns`).WillReturnResult(sqlmock.NewResult(1, 1))

	p := &models.SchedulePattern{
		Title:     "Hermeneutics",
		TeacherID: "t-1",
		Weekdays:  models.NewWeekdaySet(models.Tuesday),
		Window:    models.TimeWindow{Start: models.MustTimeOfDay(19, 0), End: models.MustTimeOfDay(21, 0)},
		DateRange: models.DateRange{Start: models.MustDate("2024-03-01")},
		Status:    models.ScheduleStatusPlanned,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 1, p.Version)
	assert.False(t, p.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateBindsSundayBit(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	anyArg := sqlmock.AnyArg()
	mock.ExpectExec(`INSERT INTO schedule_patterns \(id, title, teacher_id, room_id, weekdays,`).
		WithArgs(anyArg, "Sunday School", "t-1", anyArg, int64(128), anyArg, anyArg, anyArg, anyArg, "ACTIVE", 1, anyArg, anyArg).
		WillReturnResult(sqlmock.NewResult(1, 1))

	p := &models.SchedulePattern{
		Title:     "Sunday School",
		TeacherID: "t-1",
		Weekdays:  models.NewWeekdaySet(models.Sunday),
		Window:    models.TimeWindow{Start: models.MustTimeOfDay(9, 0), End: models.MustTimeOfDay(10, 30)},
		DateRange: models.DateRange{Start: models.MustDate("2024-03-03")},
		Status:    models.ScheduleStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateStaleVersion(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE schedule_patterns SET .* WHERE id = \? AND version = \?`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	p := &models.SchedulePattern{ID: "s-1", TeacherID: "t-1", Version: 3}
	err := repo.Update(context.Background(), p)
	assert.ErrorIs(t, err, models.ErrStaleVersion)
	assert.Equal(t, 3, p.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateBumpsVersion(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE schedule_patterns SET .*version = version \+ 1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &models.SchedulePattern{ID: "s-1", TeacherID: "t-1", Version: 3}
	require.NoError(t, repo.Update(context.Background(), p))
	assert.Equal(t, 4, p.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateStatusStale(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(`UPDATE schedule_patterns SET status = \$1.*WHERE id = \$3 AND version = \$4 RETURNING`).
		WithArgs("CANCELLED", sqlmock.AnyArg(), "s-1", 2).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateStatus(context.Background(), "s-1", models.ScheduleStatusCancelled, 2)
	assert.ErrorIs(t, err, models.ErrStaleVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryConcludeExpired(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	asOf := models.MustDate("2024-07-01")
	mock.ExpectExec(`UPDATE schedule_patterns SET status = \$1.*end_date IS NOT NULL AND end_date < \$4`).
		WithArgs("CONCLUDED", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.ConcludeExpired(context.Background(), asOf)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryWithResourceLockLocksInOrder(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).WithArgs("room:r-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).WithArgs("teacher:t-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schedule_patterns`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.WithResourceLock(context.Background(), []string{"teacher:t-1", "room:r-1", "teacher:t-1"}, func(exec sqlx.ExtContext) error {
		return repo.WithExecutor(exec).Create(context.Background(), &models.SchedulePattern{TeacherID: "t-1"})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryWithResourceLockRollsBack(t *testing.T) {
	repo, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WithArgs("teacher:t-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	boom := errors.New("blocked")
	err := repo.WithResourceLock(context.Background(), []string{"teacher:t-1"}, func(sqlx.ExtContext) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniqueSorted(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, uniqueSorted([]string{"b", "", "a", "b"}))
}
