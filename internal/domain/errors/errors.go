package errors

import (
	"context"
	"errors"
	"fmt"

	"github.com/cassiomorais/acquiring/internal/domain/status"
)

var (
	// Transport errors
	ErrTransport          = errors.New("gateway transport failure")
	ErrGatewayUnavailable = errors.New("gateway unavailable")

	// Payment outcome errors
	ErrPaymentRejected = errors.New("payment rejected by gateway")
	ErrPaymentTimeout  = errors.New("payment status timeout")
	ErrCancelled       = errors.New("payment cancelled")

	// Process errors
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrAlreadyRunning         = errors.New("payment process already running")
	ErrProcessClosed          = errors.New("payment process is closed")
	ErrNoPaymentID            = errors.New("payment id not acquired")
	ErrNoNetwork              = errors.New("no network connection")
	ErrNoStepUpConfirmer      = errors.New("no step-up confirmer configured")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// TransportError is an I/O failure talking to the gateway. It is never
// retried by the orchestration core.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// NewTransportError wraps err as a transport failure of op.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// RejectedError is a terminal business rejection from the gateway.
type RejectedError struct {
	PaymentID int64
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("payment %d: %v", e.PaymentID, ErrPaymentRejected)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrPaymentRejected
}

func NewRejectedError(paymentID int64) *RejectedError {
	return &RejectedError{PaymentID: paymentID}
}

// TimeoutError reports an exhausted retry budget or an expired gateway
// deadline. Status holds the last known status, nil when the budget ran out.
type TimeoutError struct {
	PaymentID int64
	Status    *status.ResponseStatus
}

func (e *TimeoutError) Error() string {
	if e.Status != nil {
		return fmt.Sprintf("payment %d: %v (status %s)", e.PaymentID, ErrPaymentTimeout, *e.Status)
	}
	return fmt.Sprintf("payment %d: %v (retries count is over)", e.PaymentID, ErrPaymentTimeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrPaymentTimeout
}

func NewTimeoutError(paymentID int64, last *status.ResponseStatus) *TimeoutError {
	return &TimeoutError{PaymentID: paymentID, Status: last}
}

// NewInvalidTransition reports a state/event pair outside the transition table.
func NewInvalidTransition(from, event string) *DomainError {
	return NewDomainError(
		"invalid_transition",
		"cannot apply "+event+" in state "+from,
		ErrInvalidStateTransition,
	)
}

// IsCancelled reports whether err is a deliberate abort, either an explicit
// cancellation or a cancelled context.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
