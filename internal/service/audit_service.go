package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/church-schedule-api/internal/models"
	"github.com/noah-isme/church-schedule-api/pkg/jobs"
)

const auditJobType = "audit_log"

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type auditQueue interface {
	Enqueue(job jobs.Job) error
}

// AuditService writes audit entries asynchronously through a job queue.
// Without a queue it writes inline.
type AuditService struct {
	repo   auditWriter
	queue  auditQueue
	logger *zap.Logger
}

// NewAuditService constructs an AuditService. queue may be attached later with UseQueue.
func NewAuditService(repo auditWriter, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// UseQueue routes future entries through q.
func (s *AuditService) UseQueue(q auditQueue) {
	s.queue = q
}

// Handle is the jobs.Handler persisting queued entries.
func (s *AuditService) Handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		return fmt.Errorf("audit job %s: unexpected payload %T", job.ID, job.Payload)
	}
	return s.repo.CreateAuditLog(ctx, &entry)
}

// Record stores an audit entry. Failures are logged and never surface to callers.
func (s *AuditService) Record(ctx context.Context, entry models.AuditLog) {
	if s == nil || s.repo == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if s.queue != nil {
		job := jobs.Job{ID: uuid.NewString(), Type: auditJobType, Payload: entry}
		err := s.queue.Enqueue(job)
		if err == nil {
			return
		}
		s.logger.Warn("audit enqueue failed, writing inline", zap.String("action", entry.Action), zap.Error(err))
	}
	if err := s.repo.CreateAuditLog(context.WithoutCancel(ctx), &entry); err != nil {
		s.logger.Error("audit write failed", zap.String("action", entry.Action), zap.Error(err))
	}
}

// RecordConflicts logs the conflicts reported for a candidate schedule.
func (s *AuditService) RecordConflicts(ctx context.Context, actorID, action string, candidate models.SchedulePattern, conflicts []models.Conflict) {
	if s == nil || len(conflicts) == 0 {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"candidate": candidate,
		"conflicts": conflicts,
		"blocking":  models.HasBlocking(conflicts),
	})
	if err != nil {
		s.logger.Warn("audit payload encode failed", zap.Error(err))
		return
	}
	entry := models.AuditLog{Action: action, Resource: "schedule", NewValues: payload}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if candidate.ID != "" {
		id := candidate.ID
		entry.ResourceID = &id
	}
	s.Record(ctx, entry)
}
