package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/cassiomorais/acquiring/internal/domain/errors"
	"github.com/cassiomorais/acquiring/internal/domain/status"
	"github.com/google/uuid"
)

// SourceKind identifies how the customer pays.
type SourceKind string

const (
	SourceCard         SourceKind = "card"
	SourceAttachedCard SourceKind = "attached_card"
	SourceRedirect     SourceKind = "redirect"
)

// Source is the payment source of an attempt. The set of implementations is
// closed: CardData, AttachedCard and Redirect.
type Source interface {
	Kind() SourceKind
	isSource()
}

// CardData is a card entered by the customer for this payment.
type CardData struct {
	PAN    string `validate:"required,numeric,min=13,max=19"`
	Expiry string `validate:"required,numeric,len=4"` // MMYY
	CVC    string `validate:"required,numeric,min=3,max=4"`
}

func (CardData) Kind() SourceKind { return SourceCard }
func (CardData) isSource()        {}

// String masks the card number so card data never reaches logs.
func (c CardData) String() string {
	return "card " + MaskPAN(c.PAN)
}

// AttachedCard is a card stored on the gateway side, charged by card id or
// by a recurrent rebill id. CVC is only set after the gateway asked for it.
type AttachedCard struct {
	CardID   string `validate:"required_without=RebillID"`
	RebillID string `validate:"required_without=CardID"`
	CVC      string `validate:"omitempty,numeric,min=3,max=4"`
}

func (AttachedCard) Kind() SourceKind { return SourceAttachedCard }
func (AttachedCard) isSource()        {}

// Recurrent reports whether the card is charged without customer input.
func (c AttachedCard) Recurrent() bool {
	return c.RebillID != ""
}

// WithCVC returns a copy of the card carrying cvc.
func (c AttachedCard) WithCVC(cvc string) AttachedCard {
	c.CVC = cvc
	return c
}

// Redirect pays through an external bank application.
type Redirect struct {
	Bank string
}

func (Redirect) Kind() SourceKind { return SourceRedirect }
func (Redirect) isSource()        {}

// MaskPAN keeps the first six and the last four digits of a card number.
func MaskPAN(pan string) string {
	if len(pan) < 10 {
		return strings.Repeat("*", len(pan))
	}
	return pan[:6] + strings.Repeat("*", len(pan)-10) + pan[len(pan)-4:]
}

// Amount represents a monetary amount in the smallest currency unit (e.g. cents).
type Amount struct {
	ValueCents int64  `validate:"gt=0"`
	Currency   string `validate:"required,len=3"`
}

// String returns a human-readable representation of the amount.
func (a Amount) String() string {
	whole := a.ValueCents / 100
	frac := a.ValueCents % 100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%02d %s", whole, frac, a.Currency)
}

// Validate checks that the amount is valid.
func (a Amount) Validate() error {
	if a.ValueCents <= 0 {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	if a.Currency == "" {
		return errors.NewValidationError("currency", "cannot be empty")
	}
	if len(a.Currency) != 3 {
		return errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	return nil
}

// Options is the opaque order and customer context sent with a payment.
type Options struct {
	OrderID     string `validate:"required,max=50"`
	Amount      Amount
	Description string `validate:"max=250"`
	CustomerKey string
}

// Challenge is the step-up authentication data returned by the gateway.
// PaRes stays empty until the issuer page answers.
type Challenge struct {
	PaymentID int64
	ACSURL    string
	MD        string
	PaReq     string
	TermURL   string
	Version   string
	PaRes     string
}

// Result is the outcome of a confirmed payment.
type Result struct {
	PaymentID int64
	CardID    string
	RebillID  string
}

// Action tells the process what the gateway needs after a submission.
type Action string

const (
	ActionNone     Action = "none"
	ActionCvc      Action = "cvc"
	ActionThreeDs  Action = "3ds"
	ActionRedirect Action = "redirect"
)

// Attempt is a single payment attempt owned by a process manager.
type Attempt struct {
	ID        uuid.UUID
	PaymentID int64
	Source    Source
	Options   Options
	Email     string
	State     State
	StartedAt time.Time
}

// NewAttempt creates an attempt in the Created state.
func NewAttempt(source Source, options Options, email string) *Attempt {
	return &Attempt{
		ID:        uuid.New(),
		Source:    source,
		Options:   options,
		Email:     email,
		State:     Created{},
		StartedAt: time.Now(),
	}
}

// Apply moves the attempt through Transition. The attempt is left untouched
// when the transition is rejected.
func (a *Attempt) Apply(e Event) error {
	next, err := Transition(a.State, e)
	if err != nil {
		return err
	}
	a.State = next
	if id := PaymentIDOf(next); id != 0 {
		a.PaymentID = id
	}
	return nil
}

// IsTerminal checks if the attempt is in a terminal state
func (a *Attempt) IsTerminal() bool {
	return IsTerminal(a.State)
}

// Submission is the gateway answer to a submitted payment. Action tells
// which step-up the gateway wants; Status is set when no step-up is needed.
type Submission struct {
	PaymentID   int64
	Status      status.ResponseStatus
	Action      Action
	Challenge   Challenge
	Card        AttachedCard
	RedirectURL string
	Result      Result
}
