package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/church-schedule-api/internal/dto"
	"github.com/noah-isme/church-schedule-api/internal/models"
	appErrors "github.com/noah-isme/church-schedule-api/pkg/errors"
)

type blackoutRepository interface {
	List(ctx context.Context, filter models.BlackoutFilter) ([]models.BlackoutPeriod, int, error)
	FindByID(ctx context.Context, id string) (*models.BlackoutPeriod, error)
	Create(ctx context.Context, blackout *models.BlackoutPeriod) error
	Update(ctx context.Context, blackout *models.BlackoutPeriod) error
	Delete(ctx context.Context, id string) error
}

// BlackoutService administers blackout periods.
type BlackoutService struct {
	repo        blackoutRepository
	invalidates []CacheInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewBlackoutService constructs a BlackoutService.
func NewBlackoutService(repo blackoutRepository, validate *validator.Validate, logger *zap.Logger, invalidates ...CacheInvalidator) *BlackoutService {
	if validate == nil {
		validate = NewValidator()
	} else {
		registerSchedulingValidations(validate)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlackoutService{repo: repo, invalidates: invalidates, validator: validate, logger: logger}
}

// List returns paginated blackout periods.
func (s *BlackoutService) List(ctx context.Context, filter models.BlackoutFilter) ([]models.BlackoutPeriod, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blackouts")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a blackout period by id.
func (s *BlackoutService) Get(ctx context.Context, id string) (*models.BlackoutPeriod, error) {
	blackout, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blackout not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blackout")
	}
	return blackout, nil
}

// Create registers a blackout period.
func (s *BlackoutService) Create(ctx context.Context, req dto.BlackoutRequest) (*models.BlackoutPeriod, error) {
	blackout, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, blackout); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create blackout")
	}
	s.invalidate(ctx)
	return blackout, nil
}

// Update replaces a blackout period.
func (s *BlackoutService) Update(ctx context.Context, id string, req dto.BlackoutRequest) (*models.BlackoutPeriod, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	blackout, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	blackout.ID = existing.ID
	blackout.CreatedAt = existing.CreatedAt
	if req.Active == nil {
		blackout.Active = existing.Active
	}
	if err := s.repo.Update(ctx, blackout); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blackout not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update blackout")
	}
	s.invalidate(ctx)
	return blackout, nil
}

// Delete removes a blackout period.
func (s *BlackoutService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "blackout not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete blackout")
	}
	s.invalidate(ctx)
	return nil
}

func (s *BlackoutService) fromRequest(req dto.BlackoutRequest) (*models.BlackoutPeriod, error) {
	req.Kind = strings.ToUpper(strings.TrimSpace(req.Kind))
	req.ScopeType = strings.ToUpper(strings.TrimSpace(req.ScopeType))
	req.ScopeID = strings.TrimSpace(req.ScopeID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	dateRange, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	var scope models.BlackoutScope
	switch models.ScopeType(req.ScopeType) {
	case models.ScopeRoom:
		scope = models.RoomScope(req.ScopeID)
	case models.ScopeTeacher:
		scope = models.TeacherScope(req.ScopeID)
	default:
		scope = models.GlobalScope()
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &models.BlackoutPeriod{
		Title:     strings.TrimSpace(req.Title),
		DateRange: dateRange,
		Kind:      models.BlackoutKind(req.Kind),
		Scope:     scope,
		Active:    active,
	}, nil
}

func (s *BlackoutService) invalidate(ctx context.Context) {
	for _, inv := range s.invalidates {
		if inv != nil {
			inv.Invalidate(ctx)
		}
	}
}
