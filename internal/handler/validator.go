package handler

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the validator instance
type Validator struct {
	validate *validator.Validate
}

var (
	validate     *Validator
	validateOnce sync.Once
)

// GetValidator returns the shared validator instance
func GetValidator() *Validator {
	validateOnce.Do(func() {
		validate = &Validator{validate: validator.New()}
	})
	return validate
}

// ValidateStruct validates a struct using tags
func (v *Validator) ValidateStruct(s any) error {
	return v.validate.Struct(s)
}

// FormatValidationError formats validation errors into a field→message map.
// This prevents leaking internal struct names to clients.
func FormatValidationError(err error) map[string]string {
	if err == nil {
		return nil
	}

	errs := make(map[string]string)
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		errs["request"] = ErrMsgInvalidRequestSummary
		return errs
	}

	for _, fieldErr := range validationErrs {
		field := strings.ToLower(fieldErr.Field()[:1]) + fieldErr.Field()[1:]
		switch fieldErr.Tag() {
		case "required":
			errs[field] = "is required"
		case "min":
			errs[field] = "is too short"
		case "max":
			errs[field] = "is too long"
		case "oneof":
			errs[field] = "must be one of: " + fieldErr.Param()
		case "url":
			errs[field] = "must be a valid URL"
		default:
			errs[field] = "is invalid"
		}
	}
	return errs
}

// ValidationErrorResponse defines the response structure for validation errors
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
