package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/church-schedule-api/internal/dto"
	"github.com/noah-isme/church-schedule-api/internal/models"
	appErrors "github.com/noah-isme/church-schedule-api/pkg/errors"
)

// NewValidator returns a validator with the scheduling tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	registerSchedulingValidations(v)
	return v
}

func registerSchedulingValidations(v *validator.Validate) {
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, err := models.ParseWeekday(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := models.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("blackout_kind", func(fl validator.FieldLevel) bool {
		return models.BlackoutKind(strings.ToUpper(fl.Field().String())).Valid()
	})
	_ = v.RegisterValidation("scope_type", func(fl validator.FieldLevel) bool {
		return models.ScopeType(strings.ToUpper(fl.Field().String())).Valid()
	})
	_ = v.RegisterValidation("schedule_status", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseScheduleStatus(fl.Field().String())
		return ok
	})
	v.RegisterStructValidation(blackoutScopeRule, dto.BlackoutRequest{})
}

// blackoutScopeRule requires a scope id unless the scope is GLOBAL, in any letter case.
func blackoutScopeRule(sl validator.StructLevel) {
	req := sl.Current().Interface().(dto.BlackoutRequest)
	scope := models.ScopeType(strings.ToUpper(strings.TrimSpace(req.ScopeType)))
	if scope.Valid() && scope != models.ScopeGlobal && strings.TrimSpace(req.ScopeID) == "" {
		sl.ReportError(req.ScopeID, "ScopeID", "scope_id", "blackout_scope", "")
	}
}

// validationError turns validator output into the API validation error.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, strings.ToLower(fe.Field())+" failed "+fe.Tag())
		}
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, strings.Join(parts, "; "))
	}
	return appErrors.Clone(appErrors.ErrValidation, err.Error())
}
