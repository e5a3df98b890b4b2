package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/church-schedule-api/internal/dto"
	"github.com/noah-isme/church-schedule-api/internal/models"
	appErrors "github.com/noah-isme/church-schedule-api/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.SchedulePattern, int, error)
	FindByID(ctx context.Context, id string) (*models.SchedulePattern, error)
	UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus, version int) (*models.SchedulePattern, error)
}

// ScheduleWriter is the storage available while resource locks are held.
type ScheduleWriter interface {
	ScheduleSource
	Create(ctx context.Context, pattern *models.SchedulePattern) error
	Update(ctx context.Context, pattern *models.SchedulePattern) error
}

type resourceLocker interface {
	WithResourceLock(ctx context.Context, keys []string, fn func(exec sqlx.ExtContext) error) error
}

// LockedStores binds schedule and blackout storage to the executor holding the locks.
type LockedStores func(exec sqlx.ExtContext) (ScheduleWriter, BlackoutSource)

type auditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog)
	RecordConflicts(ctx context.Context, actorID, action string, candidate models.SchedulePattern, conflicts []models.Conflict)
}

// CacheInvalidator drops derived views after a mutation.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// ScheduleServiceParams groups constructor dependencies.
type ScheduleServiceParams struct {
	Repo        scheduleRepository
	Locker      resourceLocker
	Bind        LockedStores
	Detector    *ConflictDetector
	Audit       auditRecorder
	Invalidates []CacheInvalidator
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// ScheduleService validates and commits recurring class schedules.
type ScheduleService struct {
	repo        scheduleRepository
	locker      resourceLocker
	bind        LockedStores
	detector    *ConflictDetector
	audit       auditRecorder
	invalidates []CacheInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(params ScheduleServiceParams) *ScheduleService {
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	} else {
		registerSchedulingValidations(validate)
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		repo:        params.Repo,
		locker:      params.Locker,
		bind:        params.Bind,
		detector:    params.Detector,
		audit:       params.Audit,
		invalidates: params.Invalidates,
		validator:   validate,
		logger:      logger,
	}
}

// List returns paginated schedules.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.SchedulePattern, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return items, pagination, nil
}

// Get returns a schedule by id.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.SchedulePattern, error) {
	pattern, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return pattern, nil
}

// Validate reports the conflicts of a candidate without committing it.
// Conflicts are a successful result; only lookup failures are errors.
func (s *ScheduleService) Validate(ctx context.Context, actorID string, req dto.ValidateScheduleRequest) (*dto.ConflictReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	candidate, err := patternFromRequest(req.ScheduleRequest)
	if err != nil {
		return nil, err
	}
	candidate.ID = req.ExcludeID
	conflicts, err := s.detector.Detect(ctx, candidate, req.ExcludeID)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.RecordConflicts(ctx, actorID, models.AuditActionConflictDetected, candidate, conflicts)
	}
	return &dto.ConflictReport{Conflicts: conflicts, Blocking: models.HasBlocking(conflicts)}, nil
}

// Create stores a new schedule when no blocking conflict exists.
func (s *ScheduleService) Create(ctx context.Context, actorID string, req dto.ScheduleRequest) (*dto.ScheduleCommitResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	pattern, err := patternFromRequest(req)
	if err != nil {
		return nil, err
	}

	warnings, err := s.commit(ctx, actorID, &pattern, "", func(ctx context.Context, w ScheduleWriter) error {
		return w.Create(ctx, &pattern)
	})
	if err != nil {
		return nil, err
	}
	return &dto.ScheduleCommitResult{Schedule: &pattern, Warnings: warnings}, nil
}

// Update replaces a schedule. The request version must match the stored one.
func (s *ScheduleService) Update(ctx context.Context, actorID, id string, req dto.UpdateScheduleRequest) (*dto.ScheduleCommitResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.IsActive() {
		return nil, appErrors.ErrScheduleClosed
	}
	if existing.Version != req.Version {
		return nil, appErrors.ErrStaleVersion
	}

	pattern, err := patternFromRequest(req.ScheduleRequest)
	if err != nil {
		return nil, err
	}
	pattern.ID = existing.ID
	pattern.Version = req.Version
	pattern.CreatedAt = existing.CreatedAt
	if strings.TrimSpace(req.Status) == "" {
		pattern.Status = existing.Status
	}

	warnings, err := s.commit(ctx, actorID, &pattern, existing.ID, func(ctx context.Context, w ScheduleWriter) error {
		return w.Update(ctx, &pattern)
	})
	if err != nil {
		return nil, err
	}
	return &dto.ScheduleCommitResult{Schedule: &pattern, Warnings: warnings}, nil
}

// Cancel removes a schedule from the active set while keeping its history.
func (s *ScheduleService) Cancel(ctx context.Context, actorID, id string, req dto.CancelScheduleRequest) (*models.SchedulePattern, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch existing.Status {
	case models.ScheduleStatusCancelled:
		return existing, nil
	case models.ScheduleStatusConcluded:
		return nil, appErrors.ErrScheduleClosed
	}
	updated, err := s.repo.UpdateStatus(ctx, id, models.ScheduleStatusCancelled, req.Version)
	if err != nil {
		return nil, s.writeError(err)
	}
	s.recordCommit(ctx, actorID, models.AuditActionScheduleCancel, *updated)
	s.invalidate(ctx)
	return updated, nil
}

// commit re-runs detection under the teacher and room locks and writes only
// when the locked state holds no blocking conflict.
func (s *ScheduleService) commit(ctx context.Context, actorID string, pattern *models.SchedulePattern, excludeID string, write func(context.Context, ScheduleWriter) error) ([]models.Conflict, error) {
	var conflicts []models.Conflict
	err := s.locker.WithResourceLock(ctx, resourceKeys(*pattern), func(exec sqlx.ExtContext) error {
		writer, blackouts := s.bind(exec)
		if pattern.IsActive() {
			found, err := s.detector.WithSources(writer, blackouts).Detect(ctx, *pattern, excludeID)
			if err != nil {
				return err
			}
			conflicts = found
			if models.HasBlocking(found) {
				return conflictError(found)
			}
		}
		return write(ctx, writer)
	})
	if s.audit != nil {
		s.audit.RecordConflicts(ctx, actorID, models.AuditActionConflictDetected, *pattern, conflicts)
	}
	if err != nil {
		return nil, s.writeError(err)
	}
	s.recordCommit(ctx, actorID, models.AuditActionScheduleCommit, *pattern)
	s.invalidate(ctx)
	return conflicts, nil
}

func (s *ScheduleService) writeError(err error) error {
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrStaleVersion):
		return appErrors.WrapAs(err, appErrors.ErrStaleVersion, "")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	default:
		s.logger.Error("schedule write failed", zap.Error(err))
		return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to save schedule")
	}
}

func (s *ScheduleService) recordCommit(ctx context.Context, actorID, action string, pattern models.SchedulePattern) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(pattern)
	if err != nil {
		return
	}
	id := pattern.ID
	entry := models.AuditLog{Action: action, Resource: "schedule", ResourceID: &id, NewValues: payload}
	if actorID != "" {
		entry.UserID = &actorID
	}
	s.audit.Record(ctx, entry)
}

func (s *ScheduleService) invalidate(ctx context.Context) {
	for _, inv := range s.invalidates {
		if inv != nil {
			inv.Invalidate(ctx)
		}
	}
}

func conflictError(conflicts []models.Conflict) error {
	domainErr := &models.ScheduleConflictError{Message: "schedule has blocking conflicts", Conflicts: conflicts}
	return appErrors.WrapAs(domainErr, appErrors.ErrScheduleConflict, "")
}

// resourceKeys returns the lock keys of a pattern in a stable order.
func resourceKeys(p models.SchedulePattern) []string {
	keys := []string{"teacher:" + p.TeacherID}
	if p.HasRoom() {
		keys = append(keys, "room:"+*p.RoomID)
	}
	sort.Strings(keys)
	return keys
}

func patternFromRequest(req dto.ScheduleRequest) (models.SchedulePattern, error) {
	var days models.WeekdaySet
	for _, raw := range req.Weekdays {
		day, err := models.ParseWeekday(raw)
		if err != nil {
			return models.SchedulePattern{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		days = days.With(day)
	}
	start, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return models.SchedulePattern{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	end, err := models.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return models.SchedulePattern{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	dateRange, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return models.SchedulePattern{}, err
	}

	status := models.ScheduleStatusPlanned
	if strings.TrimSpace(req.Status) != "" {
		parsed, ok := models.ParseScheduleStatus(req.Status)
		if !ok {
			return models.SchedulePattern{}, appErrors.Clone(appErrors.ErrValidation, "unknown schedule status")
		}
		status = parsed
	}

	var roomID *string
	if req.RoomID != nil && strings.TrimSpace(*req.RoomID) != "" {
		room := strings.TrimSpace(*req.RoomID)
		roomID = &room
	}

	pattern := models.SchedulePattern{
		Title:     strings.TrimSpace(req.Title),
		TeacherID: strings.TrimSpace(req.TeacherID),
		RoomID:    roomID,
		Weekdays:  days,
		Window:    models.TimeWindow{Start: start, End: end},
		DateRange: dateRange,
		Status:    status,
	}
	if err := pattern.Validate(); err != nil {
		return models.SchedulePattern{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return pattern, nil
}

func parseDateRange(start string, end *string) (models.DateRange, error) {
	startDate, err := models.ParseDate(start)
	if err != nil {
		return models.DateRange{}, appErrors.Clone(appErrors.ErrValidation, "invalid start_date")
	}
	dateRange := models.DateRange{Start: startDate}
	if end != nil && strings.TrimSpace(*end) != "" {
		endDate, err := models.ParseDate(*end)
		if err != nil {
			return models.DateRange{}, appErrors.Clone(appErrors.ErrValidation, "invalid end_date")
		}
		dateRange.End = &endDate
	}
	if err := dateRange.Validate(); err != nil {
		return models.DateRange{}, appErrors.Wrap(models.ErrInvalidDateRange, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return dateRange, nil
}
