package monitoring

import (
	"errors"
	"fmt"
)

// ErrNoResults is returned when a subject has never been scanned
var ErrNoResults = errors.New("no scan results stored for subject")

// ValidationError reports a malformed request before any external call is made
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
