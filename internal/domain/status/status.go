package status

import "strings"

// ResponseStatus is a payment status reported by the acquiring gateway.
type ResponseStatus string

const (
	// None is the "no status" value. It is never emitted to consumers.
	None ResponseStatus = ""

	New             ResponseStatus = "NEW"
	FormShowed      ResponseStatus = "FORM_SHOWED"
	Authorizing     ResponseStatus = "AUTHORIZING"
	ThreeDsChecking ResponseStatus = "3DS_CHECKING"
	ThreeDsChecked  ResponseStatus = "3DS_CHECKED"
	Authorized      ResponseStatus = "AUTHORIZED"
	Confirming      ResponseStatus = "CONFIRMING"
	Confirmed       ResponseStatus = "CONFIRMED"
	Reversing       ResponseStatus = "REVERSING"
	Reversed        ResponseStatus = "REVERSED"
	Refunding       ResponseStatus = "REFUNDING"
	PartialRefunded ResponseStatus = "PARTIAL_REFUNDED"
	Refunded        ResponseStatus = "REFUNDED"
	Canceled        ResponseStatus = "CANCELED"
	Rejected        ResponseStatus = "REJECTED"
	DeadlineExpired ResponseStatus = "DEADLINE_EXPIRED"
	Unknown         ResponseStatus = "UNKNOWN"
)

var known = map[ResponseStatus]struct{}{
	New: {}, FormShowed: {}, Authorizing: {}, ThreeDsChecking: {}, ThreeDsChecked: {},
	Authorized: {}, Confirming: {}, Confirmed: {}, Reversing: {}, Reversed: {},
	Refunding: {}, PartialRefunded: {}, Refunded: {}, Canceled: {}, Rejected: {},
	DeadlineExpired: {}, Unknown: {},
}

// Class partitions gateway statuses into disjoint buckets.
type Class int

const (
	ClassInProgress Class = iota
	ClassSuccess
	ClassRejected
	ClassDeadlineExpired
)

func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassRejected:
		return "rejected"
	case ClassDeadlineExpired:
		return "deadline_expired"
	default:
		return "in_progress"
	}
}

// SuccessStatuses are the statuses that complete a payment.
var SuccessStatuses = []ResponseStatus{Authorized, Confirmed}

// Classify returns the bucket of s. Anything outside the success, rejected and
// deadline-expired sets is in progress, including None and unknown values.
func (s ResponseStatus) Classify() Class {
	switch s {
	case Authorized, Confirmed:
		return ClassSuccess
	case Rejected:
		return ClassRejected
	case DeadlineExpired:
		return ClassDeadlineExpired
	default:
		return ClassInProgress
	}
}

func (s ResponseStatus) IsSuccess() bool {
	return s.Classify() == ClassSuccess
}

func (s ResponseStatus) IsInProgress() bool {
	return s.Classify() == ClassInProgress
}

func (s ResponseStatus) IsNone() bool {
	return s == None
}

func (s ResponseStatus) String() string {
	return string(s)
}

// Parse maps a raw gateway value onto a ResponseStatus. Unrecognised values
// become Unknown; an empty value stays None.
func Parse(raw string) ResponseStatus {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return None
	}
	s := ResponseStatus(raw)
	if _, ok := known[s]; ok {
		return s
	}
	return Unknown
}
