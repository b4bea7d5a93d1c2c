package process

import (
	"context"

	"github.com/cassiomorais/acquiring/internal/domain/payment"
	"github.com/cassiomorais/acquiring/internal/domain/status"
)

// Gateway is the acquiring gateway as seen by the process.
type Gateway interface {
	// SubmitPayment sends the payment and reports which step-up, if any,
	// the gateway needs next.
	SubmitPayment(ctx context.Context, src payment.Source, opts payment.Options) (payment.Submission, error)
	// GetStatus reads the current status of a submitted payment.
	GetStatus(ctx context.Context, paymentID int64) (status.ResponseStatus, error)
}

// StepUpConfirmer completes a 3-D Secure challenge once the customer went
// through the issuer page.
type StepUpConfirmer interface {
	ConfirmStepUp(ctx context.Context, ch payment.Challenge) (payment.Result, error)
}

// ConnectionChecker reports whether the device is online.
type ConnectionChecker interface {
	IsOnline(ctx context.Context) bool
}

type ConnectionCheckerFunc func(ctx context.Context) bool

func (f ConnectionCheckerFunc) IsOnline(ctx context.Context) bool {
	return f(ctx)
}

// AlwaysOnline is the default connection checker.
var AlwaysOnline = ConnectionCheckerFunc(func(context.Context) bool { return true })

// StepUpOutcome is the result of a 3-D Secure challenge driven by the
// caller. Err is nil on success; a cancellation error aborts the payment.
type StepUpOutcome struct {
	Result payment.Result
	Err    error
}
