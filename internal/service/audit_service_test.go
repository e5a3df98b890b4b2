package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/church-schedule-api/internal/models"
	"github.com/noah-isme/church-schedule-api/pkg/jobs"
)

type memoryAuditWriter struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (m *memoryAuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *log)
	return nil
}

func (m *memoryAuditWriter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type failingQueue struct{}

func (failingQueue) Enqueue(jobs.Job) error { return errors.New("queue full") }

func TestAuditServiceRecordsInlineWithoutQueue(t *testing.T) {
	writer := &memoryAuditWriter{}
	svc := NewAuditService(writer, nil)

	svc.Record(context.Background(), models.AuditLog{Action: models.AuditActionScheduleCommit, Resource: "schedule"})
	require.Equal(t, 1, writer.count())
	assert.False(t, writer.entries[0].CreatedAt.IsZero())
}

func TestAuditServiceFallsBackWhenQueueFails(t *testing.T) {
	writer := &memoryAuditWriter{}
	svc := NewAuditService(writer, nil)
	svc.UseQueue(failingQueue{})

	svc.Record(context.Background(), models.AuditLog{Action: models.AuditActionScheduleCancel})
	assert.Equal(t, 1, writer.count())
}

func TestAuditServiceThroughQueue(t *testing.T) {
	writer := &memoryAuditWriter{}
	svc := NewAuditService(writer, nil)
	queue := jobs.NewQueue("audit", svc.Handle, jobs.QueueConfig{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()
	svc.UseQueue(queue)

	conflicts := []models.Conflict{{Kind: models.ConflictTeacherDoubleBooked, Severity: models.SeverityBlocking, RelatedID: "A"}}
	candidate := pattern("B", "T1", models.NewWeekdaySet(models.Friday), window(10, 0, 11, 0), dateRange("2024-03-01", ""))
	svc.RecordConflicts(context.Background(), "user-1", models.AuditActionConflictDetected, candidate, conflicts)

	require.Eventually(t, func() bool { return writer.count() == 1 }, time.Second, 10*time.Millisecond)
	writer.mu.Lock()
	entry := writer.entries[0]
	writer.mu.Unlock()
	assert.Equal(t, models.AuditActionConflictDetected, entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "user-1", *entry.UserID)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.NewValues, &payload))
	assert.Equal(t, true, payload["blocking"])
}

func TestAuditServiceIgnoresEmptyConflictsAndNil(t *testing.T) {
	writer := &memoryAuditWriter{}
	svc := NewAuditService(writer, nil)
	svc.RecordConflicts(context.Background(), "", models.AuditActionConflictDetected, models.SchedulePattern{}, nil)
	assert.Zero(t, writer.count())

	var nilSvc *AuditService
	nilSvc.Record(context.Background(), models.AuditLog{})
	nilSvc.RecordConflicts(context.Background(), "", "", models.SchedulePattern{}, []models.Conflict{{}})
}

func TestAuditServiceHandleRejectsForeignPayload(t *testing.T) {
	svc := NewAuditService(&memoryAuditWriter{}, nil)
	assert.Error(t, svc.Handle(context.Background(), jobs.Job{ID: "j", Payload: "nope"}))
}
