package payment

import (
	"github.com/cassiomorais/acquiring/internal/domain/errors"
	"github.com/cassiomorais/acquiring/internal/domain/status"
)

// Event is an input of the attempt state machine.
type Event interface {
	Name() string
	isEvent()
}

type Start struct{}

type NeedsCvc struct {
	PaymentID int64
	Card      AttachedCard
}

type NeedsThreeDs struct {
	Challenge Challenge
}

// Pending records an accepted submission or an intermediate polling status.
type Pending struct {
	PaymentID   int64
	Status      status.ResponseStatus
	RedirectURL string
}

type CvcSubmitted struct{}

type ThreeDsUiShown struct{}

type ThreeDsSucceeded struct {
	Result Result
}

type ThreeDsFailed struct {
	Cause error
}

type Succeeded struct {
	Result Result
}

type Failed struct {
	Cause error
}

type Cancel struct{}

func (Start) Name() string            { return "start" }
func (NeedsCvc) Name() string         { return "needs_cvc" }
func (NeedsThreeDs) Name() string     { return "needs_three_ds" }
func (Pending) Name() string          { return "pending" }
func (CvcSubmitted) Name() string     { return "cvc_submitted" }
func (ThreeDsUiShown) Name() string   { return "three_ds_ui_shown" }
func (ThreeDsSucceeded) Name() string { return "three_ds_succeeded" }
func (ThreeDsFailed) Name() string    { return "three_ds_failed" }
func (Succeeded) Name() string        { return "succeeded" }
func (Failed) Name() string           { return "failed" }
func (Cancel) Name() string           { return "cancel" }

func (Start) isEvent()            {}
func (NeedsCvc) isEvent()         {}
func (NeedsThreeDs) isEvent()     {}
func (Pending) isEvent()          {}
func (CvcSubmitted) isEvent()     {}
func (ThreeDsUiShown) isEvent()   {}
func (ThreeDsSucceeded) isEvent() {}
func (ThreeDsFailed) isEvent()    {}
func (Succeeded) isEvent()        {}
func (Failed) isEvent()           {}
func (Cancel) isEvent()           {}

// Transition is the total transition function of an attempt. Pairs outside
// the table return the unchanged state and an error wrapping
// ErrInvalidStateTransition. Cancelling a terminal state is a no-op.
//
//	Created          --Start-->            Started
//	Started          --NeedsCvc-->         CvcUiNeeded
//	Started          --NeedsThreeDs-->     ThreeDsUiNeeded
//	Started          --Pending-->          Started
//	Started          --Succeeded-->        Success
//	Started          --Failed-->           Error
//	CvcUiNeeded      --CvcSubmitted-->     Started
//	ThreeDsUiNeeded  --ThreeDsUiShown-->   ThreeDsInProcess
//	ThreeDsInProcess --ThreeDsSucceeded--> Success
//	ThreeDsInProcess --ThreeDsFailed-->    Error
//	non-terminal     --Cancel-->           Error(ErrCancelled)
func Transition(s State, e Event) (State, error) {
	if _, ok := e.(Cancel); ok {
		if IsTerminal(s) {
			return s, nil
		}
		return Error{PaymentID: PaymentIDOf(s), Cause: errors.ErrCancelled}, nil
	}

	switch cur := s.(type) {
	case Created:
		if _, ok := e.(Start); ok {
			return Started{}, nil
		}

	case Started:
		switch ev := e.(type) {
		case NeedsCvc:
			return CvcUiNeeded{PaymentID: firstID(ev.PaymentID, cur.PaymentID), Card: ev.Card}, nil
		case NeedsThreeDs:
			return ThreeDsUiNeeded{PaymentID: firstID(ev.Challenge.PaymentID, cur.PaymentID), Challenge: ev.Challenge}, nil
		case Pending:
			next := cur
			next.PaymentID = firstID(ev.PaymentID, cur.PaymentID)
			if !ev.Status.IsNone() {
				next.Status = ev.Status
			}
			if ev.RedirectURL != "" {
				next.RedirectURL = ev.RedirectURL
			}
			return next, nil
		case Succeeded:
			result := ev.Result
			result.PaymentID = firstID(result.PaymentID, cur.PaymentID)
			return Success{Result: result}, nil
		case Failed:
			return Error{PaymentID: cur.PaymentID, Cause: ev.Cause}, nil
		}

	case CvcUiNeeded:
		if _, ok := e.(CvcSubmitted); ok {
			return Started{PaymentID: cur.PaymentID}, nil
		}

	case ThreeDsUiNeeded:
		if _, ok := e.(ThreeDsUiShown); ok {
			return ThreeDsInProcess{PaymentID: cur.PaymentID, Challenge: cur.Challenge}, nil
		}

	case ThreeDsInProcess:
		switch ev := e.(type) {
		case ThreeDsSucceeded:
			result := ev.Result
			result.PaymentID = firstID(result.PaymentID, cur.PaymentID)
			return Success{Result: result}, nil
		case ThreeDsFailed:
			return Error{PaymentID: cur.PaymentID, Cause: ev.Cause}, nil
		}
	}

	return s, errors.NewInvalidTransition(string(s.Kind()), e.Name())
}

func firstID(ids ...int64) int64 {
	for _, id := range ids {
		if id != 0 {
			return id
		}
	}
	return 0
}
