package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicereach/voicereach/internal/agent"
	"github.com/voicereach/voicereach/internal/api/router"
	"github.com/voicereach/voicereach/internal/calls"
	appconfig "github.com/voicereach/voicereach/internal/config"
	"github.com/voicereach/voicereach/internal/contextbuilder"
	"github.com/voicereach/voicereach/internal/dispatch"
	"github.com/voicereach/voicereach/internal/notify"
	"github.com/voicereach/voicereach/internal/observability/metrics"
	"github.com/voicereach/voicereach/pkg/logging"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting voicereach API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	registry := prometheus.NewRegistry()
	callMetrics := metrics.NewCallMetrics(registry)

	store := calls.NewStore(logger)
	store.SetCleanupHook(func(removed int) {
		callMetrics.AddCleanupRemoved(removed)
		callMetrics.SetActiveJobs(store.CountJobs())
	})
	store.StartCleanup(cfg.CleanupInterval)

	dispatchCfg := dispatch.Config{
		URL:              cfg.PlatformURL,
		APIKey:           cfg.PlatformAPIKey,
		APISecret:        cfg.PlatformAPISecret,
		SIPOutboundTrunk: cfg.SIPOutboundTrunk,
		AgentName:        cfg.AgentName,
	}
	dispatcher := dispatch.NewDispatcher(dispatchCfg, logger)
	builder := contextbuilder.New()

	orchestrator := calls.NewOrchestrator(store, builder, dispatcher, calls.RateLimitConfig{
		Window:      cfg.RateLimitWindow,
		MaxRequests: cfg.RateLimitMaxRequests,
	}, callMetrics, logger)

	var emailSender notify.EmailSender
	if cfg.SendGridAPIKey != "" && cfg.SendGridFromEmail != "" {
		emailSender = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	} else {
		emailSender = notify.NewStubEmailSender(logger)
		logger.Warn("post-call emails disabled (SENDGRID_API_KEY or SENDGRID_FROM_EMAIL not set)")
	}
	reports := notify.NewReportService(emailSender, logger)

	onResult := func(ctx context.Context, result *agent.CallResult) {
		callMetrics.ObserveCall(string(result.Goal), string(result.Outcome), float64(result.DurationSeconds))
		inst, ok := store.GetContext(result.ContextID)
		if !ok {
			logger.Warn("context gone before post-call emails", "context_id", result.ContextID)
			return
		}
		report := reports.SendPostCallEmails(ctx, inst, result)
		result.LeadEmailSent = report.LeadEmailSent
	}

	routerCfg := &router.Config{
		Logger:             logger,
		CallsHandler:       calls.NewHandler(orchestrator, store, logger),
		TokenHandler:       dispatch.NewTokenHandler(dispatchCfg, logger),
		SimulatorHandler:   agent.NewSimulatorHandler(store, logger, onResult),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	store.StopCleanup()
	logger.Info("server stopped")
}
