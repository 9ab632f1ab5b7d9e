// Package validation wraps a shared go-playground/validator instance.
//
// The validator caches struct metadata, so a single instance is reused
// for config loading and request parsing alike.
package validation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError describes the first field that failed validation
type FieldError struct {
	Namespace string
	Field     string
	Tag       string
	Param     string
	Value     interface{}
}

func (e *FieldError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s failed on '%s=%s' (got %v)", e.Namespace, e.Tag, e.Param, e.Value)
	}
	return fmt.Sprintf("%s failed on '%s' (got %v)", e.Namespace, e.Tag, e.Value)
}

// Validator returns the shared validator instance
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates s and returns a *FieldError for the first
// failing field, or nil.
func ValidateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return fmt.Errorf("validation: %w", err)
	}

	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		fe := errs[0]
		return &FieldError{
			Namespace: fe.Namespace(),
			Field:     fe.Field(),
			Tag:       fe.Tag(),
			Param:     fe.Param(),
			Value:     fe.Value(),
		}
	}
	return err
}
