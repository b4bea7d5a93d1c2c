package polling_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cassiomorais/acquiring/internal/application/polling"
	domainerrors "github.com/cassiomorais/acquiring/internal/domain/errors"
	"github.com/cassiomorais/acquiring/internal/domain/payment"
	"github.com/cassiomorais/acquiring/internal/domain/status"
	"github.com/cassiomorais/acquiring/internal/infrastructure/observability"
	"github.com/cassiomorais/acquiring/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const paymentID = testutil.TestPaymentID

type session struct {
	statuses []status.ResponseStatus
	err      error
	items    int
}

func collect(p *polling.Poller, ctx context.Context, settings polling.Settings) session {
	var s session
	for st, err := range p.Start(ctx, paymentID, settings) {
		s.items++
		if err != nil {
			s.err = err
			continue
		}
		s.statuses = append(s.statuses, st)
	}
	return s
}

func gatewayWith(statuses ...status.ResponseStatus) *testutil.MockGateway {
	return testutil.NewMockGateway(payment.Submission{}, statuses...)
}

func TestPoller_InProgressThenSuccess(t *testing.T) {
	const delay = 3 * time.Second

	tests := []struct {
		name       string
		inProgress int
		success    status.ResponseStatus
	}{
		{"immediate success", 0, status.Confirmed},
		{"one in progress", 1, status.Authorized},
		{"several in progress", 5, status.Confirmed},
		{"last allowed attempt", 9, status.Confirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := make([]status.ResponseStatus, 0, tt.inProgress+1)
			for range tt.inProgress {
				script = append(script, status.Authorizing)
			}
			script = append(script, tt.success)

			gw := gatewayWith(script...)
			timer := testutil.NewFakeTimer()
			p := polling.NewPoller(gw, polling.WithTimer(timer))

			got := collect(p, context.Background(), polling.Settings{RetriesCount: 10, Delay: delay})

			require.NoError(t, got.err)
			assert.Equal(t, script, got.statuses)
			assert.Equal(t, tt.inProgress+1, gw.StatusCalls())
			assert.Equal(t, time.Duration(tt.inProgress)*delay, timer.Elapsed())
		})
	}
}

func TestPoller_RetriesExhausted(t *testing.T) {
	gw := gatewayWith(status.Authorizing)
	timer := testutil.NewFakeTimer()
	p := polling.NewPoller(gw, polling.WithTimer(timer))

	got := collect(p, context.Background(), polling.Settings{RetriesCount: 3, Delay: time.Second})

	var timeout *domainerrors.TimeoutError
	require.ErrorAs(t, got.err, &timeout)
	assert.Nil(t, timeout.Status)
	assert.Equal(t, paymentID, timeout.PaymentID)
	assert.Equal(t, 3, gw.StatusCalls())
	assert.Len(t, got.statuses, 3)
	assert.Equal(t, 3*time.Second, timer.Elapsed())
}

func TestPoller_CancelledDuringFinalDelay(t *testing.T) {
	gw := gatewayWith(status.Authorizing)
	timer := testutil.NewHeldTimer()
	p := polling.NewPoller(gw, polling.WithTimer(timer))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan session, 1)
	go func() { done <- collect(p, ctx, polling.Settings{RetriesCount: 1, Delay: time.Second}) }()

	select {
	case <-timer.Waiting:
	case <-time.After(time.Second):
		t.Fatal("poller did not wait after the last poll")
	}
	cancel()

	select {
	case got := <-done:
		assert.ErrorIs(t, got.err, context.Canceled)
		assert.NotErrorIs(t, got.err, domainerrors.ErrPaymentTimeout)
		assert.Equal(t, 1, gw.StatusCalls())
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}

func TestPoller_ZeroRetriesTimesOutWithoutCall(t *testing.T) {
	gw := gatewayWith(status.Confirmed)
	p := polling.NewPoller(gw, polling.WithTimer(testutil.NewFakeTimer()))

	got := collect(p, context.Background(), polling.Settings{RetriesCount: 0, Delay: time.Second})

	assert.ErrorIs(t, got.err, domainerrors.ErrPaymentTimeout)
	assert.Equal(t, 0, gw.StatusCalls())
	assert.Empty(t, got.statuses)
}

func TestPoller_FirstRejected(t *testing.T) {
	gw := gatewayWith(status.Rejected)
	timer := testutil.NewFakeTimer()
	p := polling.NewPoller(gw, polling.WithTimer(timer))

	got := collect(p, context.Background(), polling.DefaultSettings())

	var rejected *domainerrors.RejectedError
	require.ErrorAs(t, got.err, &rejected)
	assert.Equal(t, paymentID, rejected.PaymentID)
	assert.Equal(t, []status.ResponseStatus{status.Rejected}, got.statuses)
	assert.Equal(t, 1, gw.StatusCalls())
	assert.Zero(t, timer.Elapsed())
}

func TestPoller_FirstDeadlineExpired(t *testing.T) {
	gw := gatewayWith(status.DeadlineExpired)
	timer := testutil.NewFakeTimer()
	p := polling.NewPoller(gw, polling.WithTimer(timer))

	got := collect(p, context.Background(), polling.DefaultSettings())

	var timeout *domainerrors.TimeoutError
	require.ErrorAs(t, got.err, &timeout)
	require.NotNil(t, timeout.Status)
	assert.Equal(t, status.DeadlineExpired, *timeout.Status)
	assert.Equal(t, 1, gw.StatusCalls())
	assert.Zero(t, timer.Elapsed())
}

func TestPoller_EmptyStatusNotEmitted(t *testing.T) {
	gw := gatewayWith(status.None, status.None, status.Confirmed)
	p := polling.NewPoller(gw, polling.WithTimer(testutil.NewFakeTimer()))

	got := collect(p, context.Background(), polling.DefaultSettings())

	require.NoError(t, got.err)
	assert.Equal(t, []status.ResponseStatus{status.Confirmed}, got.statuses)
	assert.Equal(t, 3, gw.StatusCalls())
}

func TestPoller_TransportErrorNotRetried(t *testing.T) {
	boom := domainerrors.NewTransportError("get state", errors.New("connection reset"))
	gw := gatewayWith().WithSteps(
		testutil.StatusStep{Status: status.Authorizing},
		testutil.StatusStep{Err: boom},
		testutil.StatusStep{Status: status.Confirmed},
	)
	p := polling.NewPoller(gw, polling.WithTimer(testutil.NewFakeTimer()))

	got := collect(p, context.Background(), polling.DefaultSettings())

	assert.Same(t, boom, got.err)
	assert.Equal(t, 2, gw.StatusCalls())
	assert.Equal(t, polling.TransportFailure, polling.Classify(got.err))
}

func TestPoller_CancelledBeforeStart(t *testing.T) {
	gw := gatewayWith(status.Confirmed)
	p := polling.NewPoller(gw, polling.WithTimer(testutil.NewFakeTimer()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := collect(p, ctx, polling.DefaultSettings())

	assert.ErrorIs(t, got.err, context.Canceled)
	assert.Equal(t, 0, gw.StatusCalls())
	assert.Equal(t, polling.Cancelled, polling.Classify(got.err))
}

func TestPoller_CancelledDuringWait(t *testing.T) {
	gw := gatewayWith(status.Authorizing)
	timer := testutil.NewHeldTimer()
	p := polling.NewPoller(gw, polling.WithTimer(timer))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan session, 1)
	go func() { done <- collect(p, ctx, polling.DefaultSettings()) }()

	select {
	case <-timer.Waiting:
	case <-time.After(time.Second):
		t.Fatal("poller never started waiting")
	}
	cancel()

	select {
	case got := <-done:
		assert.ErrorIs(t, got.err, context.Canceled)
		assert.Equal(t, 1, gw.StatusCalls())
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}

func TestPoller_BreakStopsSession(t *testing.T) {
	gw := gatewayWith(status.Authorizing)
	p := polling.NewPoller(gw, polling.WithTimer(testutil.NewFakeTimer()))

	seen := 0
	for _, err := range p.Start(context.Background(), paymentID, polling.DefaultSettings()) {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}

	assert.Equal(t, 2, seen)
	assert.Equal(t, 2, gw.StatusCalls())
}

func TestPoller_SequenceIsRestartable(t *testing.T) {
	gw := gatewayWith(status.Confirmed)
	p := polling.NewPoller(gw, polling.WithTimer(testutil.NewFakeTimer()))

	seq := p.Start(context.Background(), paymentID, polling.DefaultSettings())
	assert.Equal(t, 0, gw.StatusCalls(), "session must be lazy")

	for range 2 {
		for _, err := range seq {
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 2, gw.StatusCalls())
}

func TestPoller_RecordsMetricsAndSpan(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	gw := gatewayWith(status.Authorizing, status.Authorizing, status.Rejected)
	p := polling.NewPoller(gw,
		polling.WithTimer(testutil.NewFakeTimer()),
		polling.WithMetrics(metrics),
		polling.WithTracer(tp.Tracer("test")),
	)

	got := collect(p, context.Background(), polling.DefaultSettings())
	require.ErrorIs(t, got.err, domainerrors.ErrPaymentRejected)

	assert.Equal(t, 2.0, promtestutil.ToFloat64(metrics.StatusPolls.WithLabelValues("in_progress")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.StatusPolls.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.PollingSessions.WithLabelValues("rejected")))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "polling.session", spans[0].Name())
}

func TestClassify(t *testing.T) {
	expired := status.DeadlineExpired

	tests := []struct {
		name string
		err  error
		want polling.Outcome
	}{
		{"nil", nil, polling.SuccessStatus},
		{"rejected", domainerrors.NewRejectedError(1), polling.Rejected},
		{"retries over", domainerrors.NewTimeoutError(1, nil), polling.TimedOut},
		{"deadline", domainerrors.NewTimeoutError(1, &expired), polling.TimedOut},
		{"context canceled", context.Canceled, polling.Cancelled},
		{"explicit cancel", domainerrors.ErrCancelled, polling.Cancelled},
		{"transport", domainerrors.NewTransportError("op", errors.New("x")), polling.TransportFailure},
		{"unknown", errors.New("x"), polling.TransportFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, polling.Classify(tt.err))
		})
	}
}
