package process

import (
	"github.com/cassiomorais/acquiring/internal/application/polling"
	"github.com/cassiomorais/acquiring/internal/infrastructure/observability"
	"github.com/cassiomorais/acquiring/pkg/retry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// TransitionPolicy decides what happens when the process itself produces an
// event the current state does not accept.
type TransitionPolicy int

const (
	// Degrade ends the attempt with Error(InvalidTransition).
	Degrade TransitionPolicy = iota
	// FailFast panics. Meant for development builds.
	FailFast
)

func (p TransitionPolicy) String() string {
	if p == FailFast {
		return "fail_fast"
	}
	return "degrade"
}

const defaultEventBuffer = 8

// Option configures a Manager.
type Option func(*Manager)

// WithStepUpConfirmer lets SubmitThreeDsResponse complete 3-D Secure
// challenges through c.
func WithStepUpConfirmer(c StepUpConfirmer) Option {
	return func(m *Manager) { m.confirmer = c }
}

// WithConnectionChecker is consulted before every gateway round trip. A nil
// checker keeps the default, which is always online.
func WithConnectionChecker(c ConnectionChecker) Option {
	return func(m *Manager) {
		if c != nil {
			m.checker = c
		}
	}
}

// WithPollingSettings bounds the status polling sessions.
func WithPollingSettings(s polling.Settings) Option {
	return func(m *Manager) { m.settings = s }
}

// WithTransitionPolicy sets how invalid internal transitions are handled.
func WithTransitionPolicy(p TransitionPolicy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithEventBuffer sets the capacity of the navigation event channel.
func WithEventBuffer(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.eventBuffer = n
		}
	}
}

// WithLogger sets the logger for attempt lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics records attempt metrics in metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithTracer sets the tracer used for attempt spans.
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// WithTimer replaces the clock used between status polls.
func WithTimer(t retry.Timer) Option {
	return func(m *Manager) { m.timer = t }
}
