package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all SDK metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Attempt metrics
	AttemptsTotal      *prometheus.CounterVec
	AttemptDuration    *prometheus.HistogramVec
	ActiveAttempts     prometheus.Gauge
	StateTransitions   *prometheus.CounterVec
	InvalidTransitions *prometheus.CounterVec
	NavigationEvents   *prometheus.CounterVec

	// Polling metrics
	StatusPolls     *prometheus.CounterVec
	PollingSessions *prometheus.CounterVec

	// Gateway metrics
	GatewayRequests        *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec

	// HTTP metrics (gateway simulator)
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		AttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_attempts_total",
				Help:      "Total number of finished payment attempts by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		AttemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "payment_attempt_duration_seconds",
				Help:      "Time from start to terminal state of a payment attempt",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"source", "outcome"},
		),
		ActiveAttempts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_payment_attempts",
				Help:      "Number of payment attempts not yet in a terminal state",
			},
		),
		StateTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_transitions_total",
				Help:      "Total number of applied state transitions",
			},
			[]string{"from", "to"},
		),
		InvalidTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invalid_transitions_total",
				Help:      "Total number of rejected state transitions",
			},
			[]string{"state", "event"},
		),
		NavigationEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "navigation_events_total",
				Help:      "Total number of one-shot navigation events by type",
			},
			[]string{"type"},
		),
		StatusPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_polls_total",
				Help:      "Total number of gateway status polls by status class",
			},
			[]string{"class"},
		),
		PollingSessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "polling_sessions_total",
				Help:      "Total number of finished polling sessions by outcome",
			},
			[]string{"outcome"},
		),
		GatewayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_requests_total",
				Help:      "Total number of gateway requests",
			},
			[]string{"operation", "result"},
		),
		GatewayRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gateway_request_duration_seconds",
				Help:      "Gateway request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	// Register all collectors
	factory.MustRegister(
		m.AttemptsTotal,
		m.AttemptDuration,
		m.ActiveAttempts,
		m.StateTransitions,
		m.InvalidTransitions,
		m.NavigationEvents,
		m.StatusPolls,
		m.PollingSessions,
		m.GatewayRequests,
		m.GatewayRequestDuration,
		m.CircuitBreakerState,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

func (m *Metrics) AttemptStarted() {
	if m == nil {
		return
	}
	m.ActiveAttempts.Inc()
}

func (m *Metrics) AttemptFinished(source, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ActiveAttempts.Dec()
	m.AttemptsTotal.WithLabelValues(source, outcome).Inc()
	m.AttemptDuration.WithLabelValues(source, outcome).Observe(seconds)
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.StateTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) InvalidTransition(state, event string) {
	if m == nil {
		return
	}
	m.InvalidTransitions.WithLabelValues(state, event).Inc()
}

func (m *Metrics) NavigationEvent(kind string) {
	if m == nil {
		return
	}
	m.NavigationEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) StatusPolled(class string) {
	if m == nil {
		return
	}
	m.StatusPolls.WithLabelValues(class).Inc()
}

func (m *Metrics) PollingFinished(outcome string) {
	if m == nil {
		return
	}
	m.PollingSessions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GatewayRequest(operation, result string, seconds float64) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(operation, result).Inc()
	m.GatewayRequestDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) BreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(state)
}
