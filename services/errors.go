package services

import (
	"errors"
	"strings"

	"github.com/turtlelab/labtrack/models"
)

// ErrConflict indicates a business conflict: a duplicate unique value on
// create, or an inactive account on login.
var ErrConflict = errors.New("conflict")

// ValidationError carries the per-field messages of a rejected form.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// validate turns form messages into a ValidationError, nil when clean.
func validate(form models.RecordForm) error {
	if messages := form.Validate(); len(messages) > 0 {
		return &ValidationError{Messages: messages}
	}
	return nil
}
