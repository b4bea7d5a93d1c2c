// Package polling checks the status of a submitted payment until the gateway
// reports a final outcome or the retry budget runs out.
package polling

import (
	"context"
	"errors"
	"iter"
	"time"

	domainerrors "github.com/cassiomorais/acquiring/internal/domain/errors"
	"github.com/cassiomorais/acquiring/internal/domain/status"
	"github.com/cassiomorais/acquiring/internal/infrastructure/observability"
	"github.com/cassiomorais/acquiring/pkg/retry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/cassiomorais/acquiring/internal/application/polling"

var (
	// errStillPending marks an in-progress poll; it is the only retried error.
	errStillPending = errors.New("payment still in progress")
	// errStopped ends a session whose consumer stopped ranging.
	errStopped = errors.New("polling stopped by consumer")
)

// Settings bound a polling session.
type Settings struct {
	RetriesCount uint
	Delay        time.Duration
}

// DefaultSettings returns ten polls three seconds apart.
func DefaultSettings() Settings {
	return Settings{RetriesCount: 10, Delay: 3 * time.Second}
}

// StatusFetcher reads the current gateway status of a payment.
type StatusFetcher interface {
	GetStatus(ctx context.Context, paymentID int64) (status.ResponseStatus, error)
}

// Poller runs status polling sessions against a StatusFetcher.
type Poller struct {
	fetcher StatusFetcher
	logger  zerolog.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
	timer   retry.Timer
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger used for session events.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// WithMetrics records polls and session outcomes in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// WithTracer sets the tracer for session spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Poller) { p.tracer = t }
}

// WithTimer replaces the clock used between polls.
func WithTimer(t retry.Timer) Option {
	return func(p *Poller) { p.timer = t }
}

// NewPoller creates a Poller reading statuses from fetcher.
func NewPoller(fetcher StatusFetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher: fetcher,
		logger:  zerolog.Nop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start returns a polling session for paymentID. Nothing happens until the
// sequence is ranged over, and every range runs a fresh session.
//
// Each non-empty status is yielded with a nil error. The session ends
// silently after a success status. Otherwise the last element carries the
// terminal error: RejectedError, TimeoutError (with the status for an expired
// deadline, nil when the retries ran out), the fetcher's transport error or
// the context error.
func (p *Poller) Start(ctx context.Context, paymentID int64, settings Settings) iter.Seq2[status.ResponseStatus, error] {
	return func(yield func(status.ResponseStatus, error) bool) {
		ctx, span := p.tracer.Start(ctx, "polling.session", trace.WithAttributes(
			attribute.Int64("payment.id", paymentID),
			attribute.Int64("polling.retries", int64(settings.RetriesCount)),
			attribute.String("polling.delay", settings.Delay.String()),
		))
		defer span.End()

		log := p.logger.With().Int64("payment_id", paymentID).Logger()
		log.Debug().Uint("retries", settings.RetriesCount).Dur("delay", settings.Delay).Msg("polling started")

		err := p.run(ctx, paymentID, settings, yield)
		if errors.Is(err, errStopped) {
			log.Debug().Msg("polling stopped by consumer")
			return
		}

		outcome := Classify(err)
		p.metrics.PollingFinished(outcome.String())
		span.SetAttributes(attribute.String("polling.outcome", outcome.String()))
		if err == nil {
			log.Debug().Msg("polling finished with success status")
			return
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, outcome.String())
		log.Info().Err(err).Str("outcome", outcome.String()).Msg("polling finished")
		yield(status.None, err)
	}
}

func (p *Poller) run(ctx context.Context, paymentID int64, settings Settings, yield func(status.ResponseStatus, error) bool) error {
	if settings.RetriesCount == 0 {
		return domainerrors.NewTimeoutError(paymentID, nil)
	}

	cfg := retry.Config{
		MaxAttempts:  settings.RetriesCount,
		InitialDelay: settings.Delay,
		Fixed:        true,
	}
	opts := []retry.Option{
		retry.If(func(err error) bool { return errors.Is(err, errStillPending) }),
	}
	if p.timer != nil {
		opts = append(opts, retry.WithTimer(p.timer))
	}

	err := retry.Do(ctx, cfg, func() error {
		st, err := p.fetcher.GetStatus(ctx, paymentID)
		if err != nil {
			return err
		}

		class := st.Classify()
		p.metrics.StatusPolled(class.String())
		if !st.IsNone() {
			if !yield(st, nil) {
				return errStopped
			}
		}

		switch class {
		case status.ClassSuccess:
			return nil
		case status.ClassRejected:
			return domainerrors.NewRejectedError(paymentID)
		case status.ClassDeadlineExpired:
			return domainerrors.NewTimeoutError(paymentID, &st)
		default:
			return errStillPending
		}
	}, opts...)

	if errors.Is(err, errStillPending) {
		// The last in-progress poll is followed by a delay like every other.
		if err := p.wait(ctx, settings.Delay); err != nil {
			return err
		}
		return domainerrors.NewTimeoutError(paymentID, nil)
	}
	return err
}

func (p *Poller) wait(ctx context.Context, d time.Duration) error {
	var fired <-chan time.Time
	if p.timer != nil {
		fired = p.timer.After(d)
	} else {
		t := time.NewTimer(d)
		defer t.Stop()
		fired = t.C
	}
	select {
	case <-fired:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
