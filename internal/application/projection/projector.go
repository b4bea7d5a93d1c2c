// Package projection maps payment states to the status sheet shown by a
// payment screen. Texts and resources are left to the screen.
package projection

import (
	"errors"

	domainerrors "github.com/cassiomorais/acquiring/internal/domain/errors"
	"github.com/cassiomorais/acquiring/internal/domain/payment"
	"github.com/cassiomorais/acquiring/internal/domain/status"
)

type SheetKind string

const (
	SheetNotYet    SheetKind = "not_yet"
	SheetProgress  SheetKind = "progress"
	SheetChallenge SheetKind = "challenge"
	SheetSuccess   SheetKind = "success"
	SheetFailure   SheetKind = "failure"
	SheetHidden    SheetKind = "hidden"
	SheetNoNetwork SheetKind = "no_network"
)

// Sheet is the view model of the payment status sheet.
type Sheet struct {
	Kind        SheetKind
	PaymentID   int64
	Status      status.ResponseStatus
	RedirectURL string
	// Challenge is set for SheetChallenge when the 3-D Secure page has to be
	// shown; a CVC request leaves it nil and sets NeedsCvc.
	Challenge *payment.Challenge
	NeedsCvc  bool
	Result    payment.Result
	Err       error
	// Retryable tells whether the screen may offer to pay again.
	Retryable bool
}

// Project maps a payment state to a sheet.
func Project(s payment.State) Sheet {
	switch st := s.(type) {
	case payment.Created:
		return Sheet{Kind: SheetNotYet}
	case payment.Started:
		return Sheet{Kind: SheetProgress, PaymentID: st.PaymentID, Status: st.Status, RedirectURL: st.RedirectURL}
	case payment.CvcUiNeeded:
		return Sheet{Kind: SheetChallenge, PaymentID: st.PaymentID, NeedsCvc: true}
	case payment.ThreeDsUiNeeded:
		ch := st.Challenge
		return Sheet{Kind: SheetChallenge, PaymentID: st.PaymentID, Challenge: &ch}
	case payment.ThreeDsInProcess:
		return Sheet{Kind: SheetProgress, PaymentID: st.PaymentID}
	case payment.Success:
		return Sheet{Kind: SheetSuccess, PaymentID: st.Result.PaymentID, Result: st.Result}
	case payment.Error:
		return failure(st.PaymentID, st.Cause)
	default:
		return Sheet{Kind: SheetNotYet}
	}
}

// ProjectStartError maps an error returned by Manager.Start or
// StartCheckingStatus. Errors that never started an attempt keep the sheet
// hidden except for a missing connection.
func ProjectStartError(err error) Sheet {
	switch {
	case err == nil:
		return Sheet{Kind: SheetNotYet}
	case errors.Is(err, domainerrors.ErrNoNetwork):
		return Sheet{Kind: SheetNoNetwork, Err: err, Retryable: true}
	case errors.Is(err, domainerrors.ErrAlreadyRunning):
		return Sheet{Kind: SheetHidden, Err: err}
	default:
		return failure(0, err)
	}
}

func failure(paymentID int64, cause error) Sheet {
	if domainerrors.IsCancelled(cause) {
		return Sheet{Kind: SheetHidden, PaymentID: paymentID, Err: cause}
	}
	return Sheet{Kind: SheetFailure, PaymentID: paymentID, Err: cause, Retryable: Retryable(cause)}
}

// Retryable reports whether paying again may succeed after cause. Business
// rejections and validation errors are final; timeouts and transport failures
// are not.
func Retryable(cause error) bool {
	switch {
	case cause == nil:
		return false
	case errors.Is(cause, domainerrors.ErrPaymentRejected),
		errors.Is(cause, domainerrors.ErrValidationFailed),
		errors.Is(cause, domainerrors.ErrInvalidStateTransition):
		return false
	default:
		return true
	}
}
