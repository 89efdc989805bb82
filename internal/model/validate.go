package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput is wrapped by every error returned from Validate.
var ErrInvalidInput = errors.New("invalid nesting input")

// jobInput groups everything a job needs so it can be validated in one pass.
type jobInput struct {
	Objects    []Object `validate:"min=1,dive"`
	Sheet      Sheet
	Parameters Parameters
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks a batch, sheet and parameter set before a job starts.
// The returned error wraps ErrInvalidInput and lists every offending field.
func Validate(objects []Object, sheet Sheet, params Parameters) error {
	err := structValidator().Struct(jobInput{Objects: objects, Sheet: sheet, Parameters: params})
	if err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}

		messages := make([]string, 0, len(validationErrs))
		for _, e := range validationErrs {
			messages = append(messages, formatValidationError(e))
		}
		return fmt.Errorf("%w:\n  - %s", ErrInvalidInput, strings.Join(messages, "\n  - "))
	}

	total := 0
	for _, o := range objects {
		total += o.Copies
	}
	if total == 0 {
		return fmt.Errorf("%w: no copies to place", ErrInvalidInput)
	}
	return nil
}

// formatValidationError formats a single validation error with field path and details.
func formatValidationError(e validator.FieldError) string {
	fieldPath := formatFieldPath(e.Namespace())

	switch e.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "gte":
		return fmt.Sprintf("%s must not be negative (got: %v)", fieldPath, e.Value())
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", fieldPath, e.Param())
	case "ltefield":
		return fmt.Sprintf("%s must not exceed %s (got: %v)", fieldPath, camelToSnake(e.Param()), e.Value())
	default:
		return fmt.Sprintf("%s failed validation '%s' (got: %v)", fieldPath, e.Tag(), e.Value())
	}
}

// formatFieldPath turns "jobInput.Objects[0].RemainingCopies" into "objects[0].remaining_copies".
func formatFieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) <= 1 {
		return camelToSnake(namespace)
	}
	result := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		result = append(result, camelToSnake(p))
	}
	return strings.Join(result, ".")
}

func camelToSnake(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
