package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	domainerrors "github.com/cassiomorais/acquiring/internal/domain/errors"
	"github.com/cassiomorais/acquiring/internal/domain/payment"
	"github.com/cassiomorais/acquiring/internal/domain/status"
	"github.com/google/uuid"
)

// Test card suffixes understood by MockGateway and the gateway simulator.
const (
	ThreeDsCardSuffix  = "0004"
	DeclineCardSuffix  = "0002"
	FailedStepUpPaRes  = "fail"
	mockRedirectURLFmt = "https://qr.example.test/pay/%d"
)

// RequiresThreeDs reports whether a card number triggers a 3-D Secure challenge.
func RequiresThreeDs(pan string) bool { return strings.HasSuffix(pan, ThreeDsCardSuffix) }

// Declines reports whether a card number is always rejected.
func Declines(pan string) bool { return strings.HasSuffix(pan, DeclineCardSuffix) }

// MockGateway is an in-process gateway with configurable latency and
// failure injection. Payments confirm after a fixed number of status polls.
type MockGateway struct {
	latency             time.Duration
	failureRate         float64 // 0.0 to 1.0
	timeoutRate         float64 // 0.0 to 1.0
	pollsUntilConfirmed int
	rand                func() float64

	mu       sync.Mutex
	nextID   int64
	statuses map[int64]status.ResponseStatus
	polls    map[int64]int
}

type MockOption func(*MockGateway)

func WithLatency(d time.Duration) MockOption {
	return func(g *MockGateway) { g.latency = d }
}

func WithFailureRate(rate float64) MockOption {
	return func(g *MockGateway) { g.failureRate = rate }
}

func WithTimeoutRate(rate float64) MockOption {
	return func(g *MockGateway) { g.timeoutRate = rate }
}

func WithPollsUntilConfirmed(n int) MockOption {
	return func(g *MockGateway) { g.pollsUntilConfirmed = n }
}

// WithRand replaces the random source used for failure injection.
func WithRand(fn func() float64) MockOption {
	return func(g *MockGateway) { g.rand = fn }
}

func NewMockGateway(opts ...MockOption) *MockGateway {
	g := &MockGateway{
		latency:             100 * time.Millisecond,
		pollsUntilConfirmed: 2,
		rand:                rand.Float64,
		nextID:              1000,
		statuses:            make(map[int64]status.ResponseStatus),
		polls:               make(map[int64]int),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *MockGateway) SubmitPayment(ctx context.Context, src payment.Source, _ payment.Options) (payment.Submission, error) {
	if err := g.simulate(ctx, "submit_payment"); err != nil {
		return payment.Submission{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	id := g.nextID
	sub := payment.Submission{
		PaymentID: id,
		Status:    status.New,
		Action:    payment.ActionNone,
		Result:    payment.Result{PaymentID: id},
	}

	switch s := src.(type) {
	case payment.CardData:
		switch {
		case Declines(s.PAN) || g.rand() < g.failureRate:
			sub.Status = status.Rejected
		case RequiresThreeDs(s.PAN):
			sub.Status = status.ThreeDsChecking
			sub.Action = payment.ActionThreeDs
			sub.Challenge = payment.Challenge{
				PaymentID: id,
				ACSURL:    "https://acs.example.test/challenge",
				MD:        uuid.NewString(),
				PaReq:     uuid.NewString(),
				TermURL:   "https://gateway.example.test/term",
				Version:   "2.1.0",
			}
		}
	case payment.AttachedCard:
		if s.Recurrent() && s.CVC == "" {
			sub.Status = status.None
			sub.Action = payment.ActionCvc
			sub.Card = s
			return sub, nil
		}
		sub.Result.CardID = s.CardID
		sub.Result.RebillID = s.RebillID
	case payment.Redirect:
		sub.Status = status.FormShowed
		sub.Action = payment.ActionRedirect
		sub.RedirectURL = fmt.Sprintf(mockRedirectURLFmt, id)
	}

	g.statuses[id] = sub.Status
	return sub, nil
}

func (g *MockGateway) GetStatus(ctx context.Context, paymentID int64) (status.ResponseStatus, error) {
	if err := g.simulate(ctx, "get_state"); err != nil {
		return status.None, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.statuses[paymentID]
	if !ok {
		return status.None, domainerrors.NewDomainError("payment_not_found",
			fmt.Sprintf("payment %d not found", paymentID), domainerrors.ErrInvalidInput)
	}
	if !st.IsInProgress() || st == status.ThreeDsChecking {
		return st, nil
	}

	g.polls[paymentID]++
	if g.polls[paymentID] >= g.pollsUntilConfirmed {
		st = status.Confirmed
	} else {
		st = status.Authorizing
	}
	g.statuses[paymentID] = st
	return st, nil
}

func (g *MockGateway) ConfirmStepUp(ctx context.Context, ch payment.Challenge) (payment.Result, error) {
	if err := g.simulate(ctx, "submit_3ds"); err != nil {
		return payment.Result{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.statuses[ch.PaymentID]; !ok {
		return payment.Result{}, domainerrors.NewDomainError("payment_not_found",
			fmt.Sprintf("payment %d not found", ch.PaymentID), domainerrors.ErrInvalidInput)
	}
	if ch.PaRes == FailedStepUpPaRes || g.rand() < g.failureRate {
		g.statuses[ch.PaymentID] = status.Rejected
		return payment.Result{}, domainerrors.NewRejectedError(ch.PaymentID)
	}
	g.statuses[ch.PaymentID] = status.Confirmed
	return payment.Result{PaymentID: ch.PaymentID}, nil
}

// simulate waits for the configured latency and injects timeouts.
func (g *MockGateway) simulate(ctx context.Context, op string) error {
	select {
	case <-time.After(g.latency):
	case <-ctx.Done():
		return ctx.Err()
	}

	g.mu.Lock()
	timedOut := g.rand() < g.timeoutRate
	g.mu.Unlock()
	if timedOut {
		return domainerrors.NewTransportError(op, fmt.Errorf("%w: simulated timeout", domainerrors.ErrGatewayUnavailable))
	}
	return nil
}
