package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/voicereach/voicereach/internal/agent"
	"github.com/voicereach/voicereach/internal/calls"
	"github.com/voicereach/voicereach/internal/dispatch"
	httpmiddleware "github.com/voicereach/voicereach/internal/http/middleware"
	"github.com/voicereach/voicereach/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	CallsHandler       *calls.Handler
	TokenHandler       *dispatch.TokenHandler
	SimulatorHandler   *agent.SimulatorHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.CallsHandler.HealthCheck)

	r.Route("/calls", func(r chi.Router) {
		r.Post("/", cfg.CallsHandler.SubmitCalls)
		r.Get("/{id}", cfg.CallsHandler.GetCallStatus)
	})
	r.Get("/contexts/{id}", cfg.CallsHandler.GetContext)

	if cfg.TokenHandler != nil {
		r.Post("/token", cfg.TokenHandler.CreateToken)
	}
	if cfg.SimulatorHandler != nil {
		r.Get("/demo/simulator", cfg.SimulatorHandler.ServeHTTP)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
