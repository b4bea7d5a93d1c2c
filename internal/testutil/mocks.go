package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/cassiomorais/acquiring/internal/domain/payment"
	"github.com/cassiomorais/acquiring/internal/domain/status"
)

// --- Gateway Mock ---

// StatusStep is one scripted answer of MockGateway.GetStatus.
type StatusStep struct {
	Status status.ResponseStatus
	Err    error
}

// MockGateway is a scripted gateway. The Func fields take precedence over
// the script when set.
type MockGateway struct {
	mu          sync.Mutex
	submission  payment.Submission
	submitErr   error
	steps       []StatusStep
	statusCalls int
	submits     []payment.Source
	stepUps     []payment.Challenge

	SubmitPaymentFunc func(ctx context.Context, src payment.Source, opts payment.Options) (payment.Submission, error)
	GetStatusFunc     func(ctx context.Context, paymentID int64) (status.ResponseStatus, error)
	ConfirmStepUpFunc func(ctx context.Context, ch payment.Challenge) (payment.Result, error)
}

// NewMockGateway returns a gateway that answers submissions with sub and
// status requests with the given statuses in order. Once the script runs out
// the last step is repeated.
func NewMockGateway(sub payment.Submission, statuses ...status.ResponseStatus) *MockGateway {
	g := &MockGateway{submission: sub}
	for _, s := range statuses {
		g.steps = append(g.steps, StatusStep{Status: s})
	}
	return g
}

// WithSteps replaces the status script.
func (m *MockGateway) WithSteps(steps ...StatusStep) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = steps
	return m
}

// WithSubmitError makes every submission fail with err.
func (m *MockGateway) WithSubmitError(err error) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitErr = err
	return m
}

func (m *MockGateway) SubmitPayment(ctx context.Context, src payment.Source, opts payment.Options) (payment.Submission, error) {
	m.mu.Lock()
	m.submits = append(m.submits, src)
	fn := m.SubmitPaymentFunc
	sub, err := m.submission, m.submitErr
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, src, opts)
	}
	if err := ctx.Err(); err != nil {
		return payment.Submission{}, err
	}
	return sub, err
}

func (m *MockGateway) GetStatus(ctx context.Context, paymentID int64) (status.ResponseStatus, error) {
	m.mu.Lock()
	idx := m.statusCalls
	m.statusCalls++
	fn := m.GetStatusFunc
	var step StatusStep
	if len(m.steps) > 0 {
		step = m.steps[min(idx, len(m.steps)-1)]
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, paymentID)
	}
	if err := ctx.Err(); err != nil {
		return status.None, err
	}
	return step.Status, step.Err
}

func (m *MockGateway) ConfirmStepUp(ctx context.Context, ch payment.Challenge) (payment.Result, error) {
	m.mu.Lock()
	m.stepUps = append(m.stepUps, ch)
	fn := m.ConfirmStepUpFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, ch)
	}
	return payment.Result{PaymentID: ch.PaymentID}, nil
}

// StatusCalls returns how many times GetStatus was called.
func (m *MockGateway) StatusCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCalls
}

// Submits returns the sources passed to SubmitPayment in call order.
func (m *MockGateway) Submits() []payment.Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]payment.Source(nil), m.submits...)
}

func (m *MockGateway) StepUps() []payment.Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]payment.Challenge(nil), m.stepUps...)
}

// --- Retry Timer Fakes ---

// FakeTimer fires every wait immediately and keeps a virtual clock of the
// requested delays.
type FakeTimer struct {
	mu     sync.Mutex
	delays []time.Duration
}

func NewFakeTimer() *FakeTimer {
	return &FakeTimer{}
}

func (t *FakeTimer) After(d time.Duration) <-chan time.Time {
	t.mu.Lock()
	t.delays = append(t.delays, d)
	t.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Time{}.Add(t.Elapsed())
	return ch
}

// Elapsed is the sum of all requested delays.
func (t *FakeTimer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total time.Duration
	for _, d := range t.delays {
		total += d
	}
	return total
}

func (t *FakeTimer) Waits() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.delays)
}

// HeldTimer never fires. Waiting receives a value every time a wait begins.
type HeldTimer struct {
	Waiting chan time.Duration
}

func NewHeldTimer() *HeldTimer {
	return &HeldTimer{Waiting: make(chan time.Duration, 16)}
}

func (t *HeldTimer) After(d time.Duration) <-chan time.Time {
	select {
	case t.Waiting <- d:
	default:
	}
	return make(chan time.Time)
}
