package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTemporary        = errors.New("temporary failure")
	ErrBusy             = errors.New("operation already in flight")
	ErrBackendRejected  = errors.New("backend rejected request")
	ErrCancelled        = errors.New("cancelled by user")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// RejectionError is returned when the processing backend answers with a
// status other than "success". Message is the backend's own explanation.
type RejectionError struct {
	Operation string
	Message   string
}

func (e *RejectionError) Error() string {
	if e == nil {
		return "backend rejection"
	}
	if e.Message == "" {
		return fmt.Sprintf("backend %s: status is not success", e.Operation)
	}
	return fmt.Sprintf("backend %s: %s", e.Operation, e.Message)
}

func (e *RejectionError) Unwrap() error {
	return ErrBackendRejected
}

// RejectionMessage returns the backend message carried by err, if any.
func RejectionMessage(err error) (string, bool) {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection.Message, true
	}
	return "", false
}
