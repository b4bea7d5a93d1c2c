package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestComponentAndContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := WithContext(Component(InitLogger("debug", &buf), "poller"), map[string]any{"payment_id": 42})

	logger.Debug().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "poller", entry["component"])
	assert.EqualValues(t, 42, entry["payment_id"])
	assert.Equal(t, "hello", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestInitLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger("error", &buf)

	logger.Info().Msg("dropped")
	assert.Zero(t, buf.Len())
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.AttemptStarted()
	m.AttemptStarted()
	m.AttemptFinished("card", "success", 0.5)
	m.Transition("created", "started")
	m.InvalidTransition("success", "cvc_submitted")
	m.NavigationEvent("close_with_success")
	m.StatusPolled("in_progress")
	m.PollingFinished("success")
	m.GatewayRequest("get_state", "success", 0.01)
	m.BreakerState("acquiring-gateway", 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("card", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StateTransitions.WithLabelValues("created", "started")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvalidTransitions.WithLabelValues("success", "cvc_submitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NavigationEvents.WithLabelValues("close_with_success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusPolls.WithLabelValues("in_progress")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollingSessions.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayRequests.WithLabelValues("get_state", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("acquiring-gateway")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AttemptStarted()
		m.AttemptFinished("card", "success", 1)
		m.Transition("created", "started")
		m.GatewayRequest("init", "error", 0)
		m.BreakerState("x", 1)
	})
}

func TestShutdown_NilProvider(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background(), nil))
}
