package tracker

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateUsername is returned by Register when the username is taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrInvalidCredentials is returned by Login for an unknown user or a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNotFound is returned for expenses that do not exist or belong to someone else.
	ErrNotFound = errors.New("expense not found")
)

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
