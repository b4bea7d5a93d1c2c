package payment

import "github.com/cassiomorais/acquiring/internal/domain/status"

// Kind names a State variant.
type Kind string

const (
	KindCreated          Kind = "created"
	KindStarted          Kind = "started"
	KindCvcUiNeeded      Kind = "cvc_ui_needed"
	KindThreeDsUiNeeded  Kind = "three_ds_ui_needed"
	KindThreeDsInProcess Kind = "three_ds_in_process"
	KindSuccess          Kind = "success"
	KindError            Kind = "error"
)

// State is the lifecycle state of one attempt. Exactly one variant is active
// at a time; Success and Error are terminal.
type State interface {
	Kind() Kind
	isState()
}

type Created struct{}

// Started is an attempt that has been submitted. PaymentID is zero until the
// gateway assigns one; Status is the last status seen while polling.
type Started struct {
	PaymentID   int64
	Status      status.ResponseStatus
	RedirectURL string
}

type CvcUiNeeded struct {
	PaymentID int64
	Card      AttachedCard
}

type ThreeDsUiNeeded struct {
	PaymentID int64
	Challenge Challenge
}

type ThreeDsInProcess struct {
	PaymentID int64
	Challenge Challenge
}

type Success struct {
	Result Result
}

type Error struct {
	PaymentID int64
	Cause     error
}

func (Created) Kind() Kind          { return KindCreated }
func (Started) Kind() Kind          { return KindStarted }
func (CvcUiNeeded) Kind() Kind      { return KindCvcUiNeeded }
func (ThreeDsUiNeeded) Kind() Kind  { return KindThreeDsUiNeeded }
func (ThreeDsInProcess) Kind() Kind { return KindThreeDsInProcess }
func (Success) Kind() Kind          { return KindSuccess }
func (Error) Kind() Kind            { return KindError }

func (Created) isState()          {}
func (Started) isState()          {}
func (CvcUiNeeded) isState()      {}
func (ThreeDsUiNeeded) isState()  {}
func (ThreeDsInProcess) isState() {}
func (Success) isState()          {}
func (Error) isState()            {}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s State) bool {
	switch s.(type) {
	case Success, Error:
		return true
	default:
		return false
	}
}

// PaymentIDOf returns the gateway payment id carried by s, or zero.
func PaymentIDOf(s State) int64 {
	switch st := s.(type) {
	case Started:
		return st.PaymentID
	case CvcUiNeeded:
		return st.PaymentID
	case ThreeDsUiNeeded:
		return st.PaymentID
	case ThreeDsInProcess:
		return st.PaymentID
	case Success:
		return st.Result.PaymentID
	case Error:
		return st.PaymentID
	default:
		return 0
	}
}
