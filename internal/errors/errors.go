// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptStore means a backing file exists but could not be parsed.
	ErrCorruptStore = errors.New("store is corrupt")

	ErrScheduledEmailNotDeletable = errors.New("only pending scheduled emails can be deleted")
	ErrAccountExists              = errors.New("account already exists")
	ErrPassInProgress             = errors.New("a dispatch pass is already running")
	ErrIndexOutOfRange            = errors.New("index out of range")
)

// ValidationError is returned when a request field is missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing required field: %s", e.Field)
	}
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

type AccountNotFoundError struct {
	Username string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account %q not found", e.Username)
}

func NewAccountNotFound(username string) error {
	return &AccountNotFoundError{Username: username}
}

type ScheduledEmailNotFoundError struct {
	ID string
}

func (e *ScheduledEmailNotFoundError) Error() string {
	return fmt.Sprintf("scheduled email with ID %s not found", e.ID)
}

func NewScheduledEmailNotFound(id string) error {
	return &ScheduledEmailNotFoundError{ID: id}
}

// TransportError wraps a failure talking to the mail server.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("smtp %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func NewTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// CorruptStore tags a parse failure of the file at path with ErrCorruptStore.
func CorruptStore(path string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCorruptStore, path, err)
}
