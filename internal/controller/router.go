package controller

import (
	"time"

	"github.com/cassiomorais/acquiring/internal/infrastructure/config"
	"github.com/cassiomorais/acquiring/internal/infrastructure/gateway"
	"github.com/cassiomorais/acquiring/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/acquiring/internal/middleware"
	"github.com/cassiomorais/acquiring/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	GatewayService *service.GatewayService
	Metrics        *observability.Metrics
	Logger         zerolog.Logger
	CORSConfig     config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(customMW.Logger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.GatewayService.Count)
	gatewayH := NewGatewayController(deps.GatewayService)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Post(gateway.PathInit, gatewayH.Init)
	r.Post(gateway.PathFinishAuthorize, gatewayH.FinishAuthorize)
	r.Post(gateway.PathGetState, gatewayH.GetState)
	r.Post(gateway.PathSubmit3DS, gatewayH.Submit3DS)

	return r
}
