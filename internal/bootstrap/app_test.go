package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/cassiomorais/acquiring/internal/domain/payment"
	"github.com/cassiomorais/acquiring/internal/infrastructure/config"
	"github.com/cassiomorais/acquiring/internal/infrastructure/gateway"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(mode string) *App {
	return &App{
		Config: &config.Config{
			Gateway: config.GatewayConfig{
				Mode:                    mode,
				BaseURL:                 "http://localhost:8081",
				Timeout:                 time.Second,
				MaxAttempts:             1,
				CircuitBreakerThreshold: 1,
			},
			Polling:   config.PollingConfig{RetriesCount: 5, Delay: time.Millisecond},
			Process:   config.ProcessConfig{EventBuffer: 4},
			Simulator: config.SimulatorConfig{PollsUntilConfirmed: 1},
		},
		Logger: zerolog.Nop(),
	}
}

func TestApp_Gateway(t *testing.T) {
	_, isClient := testApp(config.GatewayModeHTTP).Gateway().(*gateway.Client)
	assert.True(t, isClient)

	_, isMock := testApp(config.GatewayModeMock).Gateway().(*gateway.MockGateway)
	assert.True(t, isMock)
}

func TestApp_NewManager_MockGateway(t *testing.T) {
	app := testApp(config.GatewayModeMock)
	gw := gateway.NewMockGateway(gateway.WithLatency(0), gateway.WithPollsUntilConfirmed(1))

	m := app.NewManager(gw)
	t.Cleanup(m.Shutdown)

	opts := payment.Options{OrderID: "order-1", Amount: payment.Amount{ValueCents: 1000, Currency: "RUB"}}
	require.NoError(t, m.Start(context.Background(), payment.AttachedCard{CardID: "card-1"}, opts, ""))

	require.Eventually(t, func() bool {
		return m.State().Kind() == payment.KindSuccess
	}, 2*time.Second, 5*time.Millisecond)
}

func TestApp_Close_WithoutTracer(t *testing.T) {
	assert.NotPanics(t, func() { testApp(config.GatewayModeHTTP).Close(context.Background()) })
}
