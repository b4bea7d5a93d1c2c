package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/acquiring/internal/bootstrap"
	"github.com/cassiomorais/acquiring/internal/controller"
	"github.com/cassiomorais/acquiring/internal/infrastructure/observability"
	"github.com/cassiomorais/acquiring/internal/service"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "acquiring-gateway-sim", "acquiring_gateway_sim")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close(ctx)

	simCfg := app.Config.Simulator
	addr := simCfg.Addr()

	// --- Application services ---
	gatewayService := service.NewGatewayService(service.GatewayConfig{
		PollsUntilConfirmed: simCfg.PollsUntilConfirmed,
		PublicURL:           "http://localhost" + addr,
	}, observability.Component(app.Logger, "simulator"))

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		GatewayService: gatewayService,
		Metrics:        app.Metrics,
		Logger:         observability.Component(app.Logger, "http"),
		CORSConfig:     simCfg.CORS,
	})

	// --- HTTP server ---
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  simCfg.ReadTimeout,
		WriteTimeout: simCfg.WriteTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting gateway simulator")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), simCfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
