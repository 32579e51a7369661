// Package errors provides the typed error taxonomy shared by the contract
// client, the system collaborators, and the CLI. Permission-denied
// outcomes (CanEnableFailure/CanDisableFailure) are values in
// internal/status and are deliberately not errors.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Base error types
var (
	ErrNotAttached      = errors.New("machine is not attached to a contract")
	ErrLockHeld         = errors.New("another operation is in progress")
	ErrForbidden        = errors.New("forbidden")
	ErrConnectionFailed = errors.New("connection failed")
	ErrNotInstalled     = errors.New("not installed")
	ErrInstallFailed    = errors.New("install failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// Kind represents the category of error.
type Kind string

const (
	KindContract   Kind = "contract"
	KindNetwork    Kind = "network"
	KindSystem     Kind = "system"
	KindLock       Kind = "lock"
	KindValidation Kind = "validation"
)

// ClientError is a structured error for client operations.
type ClientError struct {
	Kind       Kind
	Op         string // Operation that failed (e.g., "refresh_contract", "install_packages")
	Service    string // Service name if applicable
	Err        error  // Underlying error
	StatusCode int    // HTTP status code if applicable
	Timestamp  time.Time
}

func (e *ClientError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Service, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is matching on the base error types.
func (e *ClientError) Is(target error) bool {
	if target == nil {
		return false
	}
	switch target {
	case ErrForbidden:
		return e.StatusCode == 401 || e.StatusCode == 403
	case ErrConnectionFailed:
		return e.Kind == KindNetwork
	case ErrLockHeld:
		return e.Kind == KindLock
	}
	return errors.Is(e.Err, target)
}

// New creates a new ClientError.
func New(kind Kind, op string, err error) *ClientError {
	return &ClientError{
		Kind:      kind,
		Op:        op,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// WithService adds the service name to the error.
func (e *ClientError) WithService(service string) *ClientError {
	e.Service = service
	return e
}

// WithStatusCode adds the HTTP status code to the error.
func (e *ClientError) WithStatusCode(code int) *ClientError {
	e.StatusCode = code
	return e
}

// WrapContractError wraps a contract backend error with context.
func WrapContractError(op string, err error, statusCode int) error {
	return New(KindContract, op, err).WithStatusCode(statusCode)
}

// WrapSystemError wraps a package/snap manager error with context.
func WrapSystemError(op, service string, err error) error {
	return New(KindSystem, op, err).WithService(service)
}

// UserMessage returns a message suitable for printing to users. Expected
// categories (contract denial, lock contention) get a clean one-liner;
// everything else surfaces the full error chain for diagnosis.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		switch {
		case clientErr.StatusCode == 401 || clientErr.StatusCode == 403:
			return "Contract access denied. Check that the machine's subscription is still valid."
		case clientErr.Kind == KindLock:
			return clientErr.Err.Error()
		case clientErr.Kind == KindNetwork:
			return fmt.Sprintf("Failed to connect to the contract server: %v", clientErr.Err)
		}
	}
	if errors.Is(err, ErrNotAttached) {
		return "This machine is not attached to a subscription. Run attach first."
	}
	return err.Error()
}

// IsRetryableError reports whether the operation may succeed on retry.
func IsRetryableError(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		if clientErr.Kind == KindNetwork {
			return true
		}
		return clientErr.StatusCode >= 500 || clientErr.StatusCode == 429
	}
	return errors.Is(err, ErrConnectionFailed)
}
