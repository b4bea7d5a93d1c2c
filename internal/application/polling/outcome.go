package polling

import (
	"errors"

	domainerrors "github.com/cassiomorais/acquiring/internal/domain/errors"
)

// Outcome classifies how a polling session ended.
type Outcome int

const (
	Pending Outcome = iota
	SuccessStatus
	Rejected
	TimedOut
	TransportFailure
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case SuccessStatus:
		return "success"
	case Rejected:
		return "rejected"
	case TimedOut:
		return "timed_out"
	case TransportFailure:
		return "transport_failure"
	case Cancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// Classify maps the terminal error of a session to its outcome. A nil error
// is a success status; errors the core does not know count as transport
// failures.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return SuccessStatus
	case domainerrors.IsCancelled(err):
		return Cancelled
	case errors.Is(err, domainerrors.ErrPaymentRejected):
		return Rejected
	case errors.Is(err, domainerrors.ErrPaymentTimeout):
		return TimedOut
	case errors.Is(err, errStillPending):
		return Pending
	default:
		return TransportFailure
	}
}
