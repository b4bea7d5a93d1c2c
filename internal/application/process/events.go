package process

import "github.com/cassiomorais/acquiring/internal/domain/payment"

// NavigationEvent is a one-shot instruction to the screen that hosts the
// payment. At most one is emitted per attempt.
type NavigationEvent interface {
	Name() string
	isNavigationEvent()
}

type CloseWithCancel struct{}

type CloseWithError struct {
	PaymentID int64
	Err       error
}

type CloseWithSuccess struct {
	Result payment.Result
}

func (CloseWithCancel) Name() string  { return "close_with_cancel" }
func (CloseWithError) Name() string   { return "close_with_error" }
func (CloseWithSuccess) Name() string { return "close_with_success" }

func (CloseWithCancel) isNavigationEvent()  {}
func (CloseWithError) isNavigationEvent()   {}
func (CloseWithSuccess) isNavigationEvent() {}
