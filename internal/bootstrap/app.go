package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/cassiomorais/acquiring/internal/application/polling"
	"github.com/cassiomorais/acquiring/internal/application/process"
	"github.com/cassiomorais/acquiring/internal/infrastructure/config"
	"github.com/cassiomorais/acquiring/internal/infrastructure/gateway"
	"github.com/cassiomorais/acquiring/internal/infrastructure/observability"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *observability.Metrics
	tracer  *sdktrace.TracerProvider
}

// Gateway is a gateway that can also complete 3-D Secure challenges.
type Gateway interface {
	process.Gateway
	process.StepUpConfirmer
}

func New(ctx context.Context, serviceName string, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info().Str("service", serviceName).Msg("Starting")

	app := &App{Config: cfg, Logger: logger}

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			app.tracer = tp
			logger.Info().Msg("Tracing enabled")
		}
	}

	if cfg.Observability.EnableMetrics {
		app.Metrics = observability.NewMetrics(metricsNamespace, nil)
		logger.Info().Msg("Metrics initialized")
	}

	return app, nil
}

// Gateway builds the gateway selected by gateway.mode.
func (a *App) Gateway() Gateway {
	logger := observability.Component(a.Logger, "gateway")
	if a.Config.Gateway.Mode == config.GatewayModeMock {
		logger.Info().Msg("Using in-process mock gateway")
		return gateway.NewMockGateway(gateway.WithPollsUntilConfirmed(a.Config.Simulator.PollsUntilConfirmed))
	}
	logger.Info().Str("base_url", a.Config.Gateway.BaseURL).Msg("Using HTTP gateway")
	return gateway.NewClient(a.Config.Gateway,
		gateway.WithLogger(logger),
		gateway.WithMetrics(a.Metrics),
	)
}

// NewManager wires a payment process manager from the config. opts are
// applied after the configured ones.
func (a *App) NewManager(gw Gateway, opts ...process.Option) *process.Manager {
	return process.NewManager(gw, append(a.ManagerOptions(gw), opts...)...)
}

func (a *App) ManagerOptions(confirmer process.StepUpConfirmer) []process.Option {
	policy := process.Degrade
	if a.Config.Process.StrictTransitions {
		policy = process.FailFast
	}
	return []process.Option{
		process.WithStepUpConfirmer(confirmer),
		process.WithPollingSettings(polling.Settings{
			RetriesCount: a.Config.Polling.RetriesCount,
			Delay:        a.Config.Polling.Delay,
		}),
		process.WithTransitionPolicy(policy),
		process.WithEventBuffer(a.Config.Process.EventBuffer),
		process.WithLogger(observability.Component(a.Logger, "process")),
		process.WithMetrics(a.Metrics),
		process.WithTracer(otel.Tracer("github.com/cassiomorais/acquiring/process")),
	}
}

func (a *App) Close(ctx context.Context) {
	if err := observability.Shutdown(ctx, a.tracer); err != nil {
		a.Logger.Error().Err(err).Msg("Failed to flush traces")
	}
}
