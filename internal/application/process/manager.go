// Package process drives a single payment attempt from submission to a
// terminal state.
package process

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cassiomorais/acquiring/internal/application/polling"
	domainerrors "github.com/cassiomorais/acquiring/internal/domain/errors"
	"github.com/cassiomorais/acquiring/internal/domain/payment"
	"github.com/cassiomorais/acquiring/internal/domain/status"
	"github.com/cassiomorais/acquiring/internal/infrastructure/observability"
	"github.com/cassiomorais/acquiring/pkg/observable"
	"github.com/cassiomorais/acquiring/pkg/retry"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/cassiomorais/acquiring/internal/application/process"

// Manager owns one payment attempt at a time together with its submission
// and polling work. All triggers are serialized by mu; background work
// reports back tagged with the generation it was started for, and results
// of an older generation are dropped.
type Manager struct {
	gateway   Gateway
	confirmer StepUpConfirmer
	checker   ConnectionChecker
	poller    *polling.Poller
	validate  *validator.Validate

	settings    polling.Settings
	policy      TransitionPolicy
	eventBuffer int
	timer       retry.Timer
	logger      zerolog.Logger
	metrics     *observability.Metrics
	tracer      trace.Tracer

	mu         sync.Mutex
	attempt    *payment.Attempt
	generation uint64
	attemptCtx context.Context
	cancel     context.CancelFunc
	unwatch    func() bool
	span       trace.Span
	submitting bool
	polling    bool
	confirming bool
	emitted    bool
	closed     bool

	state  *observable.Value[payment.State]
	events chan NavigationEvent
}

// NewManager creates a Manager submitting through gateway.
func NewManager(gateway Gateway, opts ...Option) *Manager {
	m := &Manager{
		gateway:     gateway,
		checker:     AlwaysOnline,
		validate:    validator.New(),
		settings:    polling.DefaultSettings(),
		policy:      Degrade,
		eventBuffer: defaultEventBuffer,
		logger:      zerolog.Nop(),
		tracer:      otel.Tracer(tracerName),
		state:       observable.NewValue[payment.State](payment.Created{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	pollerOpts := []polling.Option{
		polling.WithLogger(m.logger),
		polling.WithMetrics(m.metrics),
		polling.WithTracer(m.tracer),
	}
	if m.timer != nil {
		pollerOpts = append(pollerOpts, polling.WithTimer(m.timer))
	}
	m.poller = polling.NewPoller(gateway, pollerOpts...)
	m.events = make(chan NavigationEvent, m.eventBuffer)
	return m
}

// Start creates a new attempt and submits it in the background. The attempt
// lives until it reaches a terminal state, Stop or Shutdown is called, or ctx
// is done.
func (m *Manager) Start(ctx context.Context, src payment.Source, opts payment.Options, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domainerrors.ErrProcessClosed
	}
	if m.attempt != nil && !m.attempt.IsTerminal() {
		return domainerrors.ErrAlreadyRunning
	}
	if err := m.validateInput(src, opts); err != nil {
		return err
	}
	if !m.checker.IsOnline(ctx) {
		return domainerrors.ErrNoNetwork
	}

	attempt := payment.NewAttempt(src, opts, email)
	m.generation++
	gen := m.generation

	attemptCtx, cancel := context.WithCancel(ctx)
	attemptCtx, span := m.tracer.Start(attemptCtx, "process.attempt", trace.WithAttributes(
		attribute.String("attempt.id", attempt.ID.String()),
		attribute.String("payment.source", string(src.Kind())),
		attribute.String("order.id", opts.OrderID),
	))

	m.attempt = attempt
	m.attemptCtx = attemptCtx
	m.cancel = cancel
	m.unwatch = context.AfterFunc(attemptCtx, func() { m.abandon(gen) })
	m.span = span
	m.submitting = true
	m.polling = false
	m.confirming = false
	m.emitted = false

	m.metrics.AttemptStarted()
	m.log().Info().
		Str("source", string(src.Kind())).
		Str("amount", opts.Amount.String()).
		Msg("payment attempt started")

	m.applyLocked(payment.Start{})

	go m.submit(attemptCtx, gen, src, opts)
	return nil
}

// SubmitCvc resends the stored card with the CVC the gateway asked for.
func (m *Manager) SubmitCvc(cvc string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domainerrors.ErrProcessClosed
	}
	cur, ok := m.currentState().(payment.CvcUiNeeded)
	if !ok {
		return m.rejectTrigger(payment.CvcSubmitted{})
	}
	if err := m.validate.Var(cvc, "required,numeric,min=3,max=4"); err != nil {
		return domainerrors.NewValidationError("cvc", "must be 3 or 4 digits")
	}

	card := cur.Card.WithCVC(cvc)
	if err := m.attempt.Apply(payment.CvcSubmitted{}); err != nil {
		return err
	}
	m.attempt.Source = card
	m.publishLocked(cur)
	m.submitting = true

	go m.submit(m.attemptCtx, m.generation, card, m.attempt.Options)
	return nil
}

// OnThreeDsUiInProcess records that the 3-D Secure page is on screen.
func (m *Manager) OnThreeDsUiInProcess() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domainerrors.ErrProcessClosed
	}
	from := m.currentState()
	if _, ok := from.(payment.ThreeDsUiNeeded); !ok {
		return m.rejectTrigger(payment.ThreeDsUiShown{})
	}
	if err := m.attempt.Apply(payment.ThreeDsUiShown{}); err != nil {
		return err
	}
	m.publishLocked(from)
	return nil
}

// SubmitThreeDsResponse hands the PaRes posted by the issuer page to the
// configured StepUpConfirmer and folds its answer into the attempt. A
// confirmation already in flight makes later calls a no-op.
func (m *Manager) SubmitThreeDsResponse(paRes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domainerrors.ErrProcessClosed
	}
	if m.confirmer == nil {
		return domainerrors.ErrNoStepUpConfirmer
	}
	if paRes == "" {
		return domainerrors.NewValidationError("pa_res", "is required")
	}
	if _, ok := m.currentState().(payment.ThreeDsUiNeeded); ok {
		m.applyLocked(payment.ThreeDsUiShown{})
	}
	cur, ok := m.currentState().(payment.ThreeDsInProcess)
	if !ok {
		return m.rejectTrigger(payment.ThreeDsSucceeded{})
	}
	if m.confirming {
		return nil
	}
	m.confirming = true

	ch := cur.Challenge
	ch.PaRes = paRes
	go m.confirm(m.attemptCtx, m.generation, ch)
	return nil
}

// SetThreeDsResult folds a step-up outcome into the attempt. It only acts on
// an attempt that waits for a challenge; otherwise the outcome is ignored.
func (m *Manager) SetThreeDsResult(outcome StepUpOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.attempt == nil {
		return
	}
	switch m.attempt.State.(type) {
	case payment.ThreeDsUiNeeded:
		m.applyLocked(payment.ThreeDsUiShown{})
	case payment.ThreeDsInProcess:
	default:
		m.log().Debug().Str("state", string(m.attempt.State.Kind())).Msg("3ds result ignored")
		return
	}
	m.foldStepUpLocked(outcome)
}

// StartCheckingStatus starts polling an attempt that already has a gateway
// payment id, as needed after a bank redirect. It is a no-op when a
// submission or polling session is already running.
func (m *Manager) StartCheckingStatus(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domainerrors.ErrProcessClosed
	}
	if _, ok := m.currentState().(payment.Started); !ok {
		return domainerrors.NewInvalidTransition(string(m.currentState().Kind()), "start_checking_status")
	}
	if m.attempt.PaymentID == 0 {
		return domainerrors.ErrNoPaymentID
	}
	if m.polling || m.submitting {
		return nil
	}
	if !m.checker.IsOnline(ctx) {
		return domainerrors.ErrNoNetwork
	}
	m.startPollingLocked(m.generation)
	return nil
}

// Stop cancels a running attempt and emits CloseWithCancel. Calling it with
// nothing running does nothing.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// RequestClose turns the current state into the matching navigation event.
// Challenge states are stopped; Created and Started emit nothing.
func (m *Manager) RequestClose() {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch s := m.currentState().(type) {
	case payment.CvcUiNeeded, payment.ThreeDsUiNeeded, payment.ThreeDsInProcess:
		m.stopLocked()
	case payment.Success:
		m.emitLocked(CloseWithSuccess{Result: s.Result})
	case payment.Error:
		if domainerrors.IsCancelled(s.Cause) {
			m.emitLocked(CloseWithCancel{})
		} else {
			m.emitLocked(CloseWithError{PaymentID: s.PaymentID, Err: s.Cause})
		}
	}
}

// State returns the latest published state.
func (m *Manager) State() payment.State {
	return m.state.Load()
}

// Subscribe streams the current state followed by every later one until ctx
// is done or the manager is shut down.
func (m *Manager) Subscribe(ctx context.Context) <-chan payment.State {
	return m.state.Subscribe(ctx)
}

// Events returns the navigation event channel. It is closed by Shutdown.
func (m *Manager) Events() <-chan NavigationEvent {
	return m.events
}

// Attempt returns a snapshot of the owned attempt.
func (m *Manager) Attempt() (payment.Attempt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attempt == nil {
		return payment.Attempt{}, false
	}
	return *m.attempt, true
}

// Shutdown cancels the running attempt and closes the state stream and the
// event channel. Start fails with ErrProcessClosed afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if m.attempt != nil && !m.attempt.IsTerminal() {
		m.applyLocked(payment.Cancel{})
	}
	m.closed = true
	m.state.Close()
	close(m.events)
}

func (m *Manager) submit(ctx context.Context, gen uint64, src payment.Source, opts payment.Options) {
	ctx, span := m.tracer.Start(ctx, "process.submit", trace.WithAttributes(
		attribute.String("payment.source", string(src.Kind())),
	))
	defer span.End()

	sub, err := m.gateway.SubmitPayment(ctx, src, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
	} else {
		span.SetAttributes(
			attribute.Int64("payment.id", sub.PaymentID),
			attribute.String("payment.action", string(sub.Action)),
		)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isCurrent(gen) {
		return
	}
	m.submitting = false
	if err != nil {
		m.failLocked(err)
		return
	}
	m.handleSubmissionLocked(sub)
}

func (m *Manager) handleSubmissionLocked(sub payment.Submission) {
	switch sub.Action {
	case payment.ActionCvc:
		card := sub.Card
		if card.CardID == "" && card.RebillID == "" {
			card, _ = m.attempt.Source.(payment.AttachedCard)
		}
		m.applyLocked(payment.NeedsCvc{PaymentID: sub.PaymentID, Card: card})

	case payment.ActionThreeDs:
		ch := sub.Challenge
		if ch.PaymentID == 0 {
			ch.PaymentID = sub.PaymentID
		}
		m.applyLocked(payment.NeedsThreeDs{Challenge: ch})

	case payment.ActionRedirect:
		m.applyLocked(payment.Pending{PaymentID: sub.PaymentID, Status: sub.Status, RedirectURL: sub.RedirectURL})

	default:
		m.applyLocked(payment.Pending{PaymentID: sub.PaymentID, Status: sub.Status})
		switch sub.Status.Classify() {
		case status.ClassSuccess:
			m.applyLocked(payment.Succeeded{Result: sub.Result})
		case status.ClassRejected:
			m.applyLocked(payment.Failed{Cause: domainerrors.NewRejectedError(sub.PaymentID)})
		case status.ClassDeadlineExpired:
			st := sub.Status
			m.applyLocked(payment.Failed{Cause: domainerrors.NewTimeoutError(sub.PaymentID, &st)})
		default:
			if m.attempt.PaymentID == 0 {
				m.applyLocked(payment.Failed{Cause: domainerrors.ErrNoPaymentID})
				return
			}
			m.startPollingLocked(m.generation)
		}
	}
}

func (m *Manager) startPollingLocked(gen uint64) {
	if m.polling {
		return
	}
	m.polling = true
	go m.poll(m.attemptCtx, gen, m.attempt.PaymentID)
}

func (m *Manager) poll(ctx context.Context, gen uint64, paymentID int64) {
	for st, err := range m.poller.Start(ctx, paymentID, m.settings) {
		m.mu.Lock()
		if !m.isCurrent(gen) {
			m.mu.Unlock()
			return
		}
		if err != nil {
			m.polling = false
			m.failLocked(err)
			m.mu.Unlock()
			return
		}
		m.applyLocked(payment.Pending{Status: st})
		if st.IsSuccess() {
			m.polling = false
			m.applyLocked(payment.Succeeded{Result: payment.Result{PaymentID: paymentID}})
		}
		m.mu.Unlock()
	}

	m.mu.Lock()
	if m.isCurrent(gen) {
		m.polling = false
	}
	m.mu.Unlock()
}

func (m *Manager) confirm(ctx context.Context, gen uint64, ch payment.Challenge) {
	ctx, span := m.tracer.Start(ctx, "process.confirm_step_up", trace.WithAttributes(
		attribute.Int64("payment.id", ch.PaymentID),
		attribute.String("three_ds.version", ch.Version),
	))
	defer span.End()

	result, err := m.confirmer.ConfirmStepUp(ctx, ch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "step-up failed")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isCurrent(gen) {
		return
	}
	m.confirming = false
	if _, ok := m.attempt.State.(payment.ThreeDsInProcess); !ok {
		return
	}
	m.foldStepUpLocked(StepUpOutcome{Result: result, Err: err})
}

func (m *Manager) foldStepUpLocked(outcome StepUpOutcome) {
	switch {
	case outcome.Err == nil:
		m.applyLocked(payment.ThreeDsSucceeded{Result: outcome.Result})
	case domainerrors.IsCancelled(outcome.Err):
		m.applyLocked(payment.Cancel{})
	default:
		m.applyLocked(payment.ThreeDsFailed{Cause: outcome.Err})
	}
}

// failLocked ends the attempt with err. A cancelled context is folded into
// Error(ErrCancelled).
func (m *Manager) failLocked(err error) {
	if domainerrors.IsCancelled(err) {
		m.applyLocked(payment.Cancel{})
		return
	}
	if _, ok := m.attempt.State.(payment.ThreeDsInProcess); ok {
		m.applyLocked(payment.ThreeDsFailed{Cause: err})
		return
	}
	m.applyLocked(payment.Failed{Cause: err})
}

func (m *Manager) stopLocked() {
	if m.attempt == nil || m.attempt.IsTerminal() {
		return
	}
	m.applyLocked(payment.Cancel{})
	m.emitLocked(CloseWithCancel{})
}

// applyLocked applies an event produced by the manager itself. A rejected
// event is handled according to the transition policy.
func (m *Manager) applyLocked(e payment.Event) {
	from := m.attempt.State
	if err := m.attempt.Apply(e); err != nil {
		m.metrics.InvalidTransition(string(from.Kind()), e.Name())
		if m.policy == FailFast {
			panic(err)
		}
		m.log().Error().Err(err).
			Str("state", string(from.Kind())).
			Str("event", e.Name()).
			Msg("invalid internal transition")
		m.attempt.State = payment.Error{PaymentID: m.attempt.PaymentID, Cause: err}
	}
	m.publishLocked(from)
}

// rejectTrigger reports an external trigger the current state does not
// accept. The state is left untouched.
func (m *Manager) rejectTrigger(e payment.Event) error {
	from := m.currentState()
	_, err := payment.Transition(from, e)
	if err == nil {
		err = domainerrors.NewInvalidTransition(string(from.Kind()), e.Name())
	}
	m.metrics.InvalidTransition(string(from.Kind()), e.Name())
	return err
}

func (m *Manager) publishLocked(from payment.State) {
	to := m.attempt.State
	if prev, ok := from.(payment.Started); ok {
		if next, ok := to.(payment.Started); ok && prev == next {
			return
		}
	}

	m.metrics.Transition(string(from.Kind()), string(to.Kind()))
	ev := m.log().Info().Str("from", string(from.Kind())).Str("to", string(to.Kind()))
	if s, ok := to.(payment.Started); ok && !s.Status.IsNone() {
		ev = ev.Str("status", s.Status.String())
	}
	if e, ok := to.(payment.Error); ok {
		ev = ev.AnErr("cause", e.Cause)
	}
	ev.Msg("payment state changed")

	m.state.Store(to)
	if payment.IsTerminal(to) {
		m.finishLocked(to)
	}
}

func (m *Manager) finishLocked(final payment.State) {
	outcome := outcomeOf(final)
	m.metrics.AttemptFinished(string(m.attempt.Source.Kind()), outcome, time.Since(m.attempt.StartedAt).Seconds())

	if m.span != nil {
		m.span.SetAttributes(
			attribute.String("attempt.outcome", outcome),
			attribute.Int64("payment.id", m.attempt.PaymentID),
		)
		if e, ok := final.(payment.Error); ok && !domainerrors.IsCancelled(e.Cause) {
			m.span.RecordError(e.Cause)
			m.span.SetStatus(codes.Error, outcome)
		}
		m.span.End()
		m.span = nil
	}

	m.submitting = false
	m.polling = false
	m.confirming = false
	if m.unwatch != nil {
		m.unwatch()
		m.unwatch = nil
	}
	if m.cancel != nil {
		m.cancel()
	}
}

// abandon ends attempt gen once its context is done. Attempts waiting for
// the customer have no background work that would notice the cancellation.
func (m *Manager) abandon(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isCurrent(gen) {
		return
	}
	m.log().Info().Msg("owner context done, cancelling attempt")
	m.applyLocked(payment.Cancel{})
}

func (m *Manager) emitLocked(e NavigationEvent) {
	if m.emitted || m.closed {
		return
	}
	m.emitted = true
	m.metrics.NavigationEvent(e.Name())
	select {
	case m.events <- e:
		m.log().Debug().Str("event", e.Name()).Msg("navigation event emitted")
	default:
		m.log().Warn().Str("event", e.Name()).Msg("navigation event dropped, buffer full")
	}
}

func (m *Manager) isCurrent(gen uint64) bool {
	return gen == m.generation && m.attempt != nil && !m.attempt.IsTerminal()
}

func (m *Manager) currentState() payment.State {
	if m.attempt == nil {
		return payment.Created{}
	}
	return m.attempt.State
}

func (m *Manager) validateInput(src payment.Source, opts payment.Options) error {
	if src == nil {
		return domainerrors.NewValidationError("source", "is required")
	}
	for _, v := range []any{src, opts} {
		if err := m.validate.Struct(v); err != nil {
			var ve validator.ValidationErrors
			if errors.As(err, &ve) && len(ve) > 0 {
				return domainerrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
			}
			return domainerrors.NewValidationError("payment", err.Error())
		}
	}
	return opts.Amount.Validate()
}

func (m *Manager) log() *zerolog.Logger {
	l := m.logger
	if m.attempt != nil {
		l = l.With().
			Str("attempt_id", m.attempt.ID.String()).
			Int64("payment_id", m.attempt.PaymentID).
			Logger()
	}
	return &l
}

func outcomeOf(s payment.State) string {
	e, ok := s.(payment.Error)
	if !ok {
		return "success"
	}
	switch {
	case domainerrors.IsCancelled(e.Cause):
		return "cancelled"
	case errors.Is(e.Cause, domainerrors.ErrPaymentRejected):
		return "rejected"
	case errors.Is(e.Cause, domainerrors.ErrPaymentTimeout):
		return "timeout"
	case errors.Is(e.Cause, domainerrors.ErrInvalidStateTransition):
		return "invalid_transition"
	case errors.Is(e.Cause, domainerrors.ErrTransport):
		return "transport_error"
	default:
		return "failed"
	}
}
