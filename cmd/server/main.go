package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mplattner/supportline/internal/api"
	"github.com/mplattner/supportline/internal/calllog"
	"github.com/mplattner/supportline/internal/config"
	"github.com/mplattner/supportline/internal/directory"
	"github.com/mplattner/supportline/internal/hub"
	"github.com/mplattner/supportline/internal/metrics"
	"github.com/mplattner/supportline/internal/store"
	"github.com/mplattner/supportline/internal/webhook"
	"github.com/mplattner/supportline/pkg/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Msg("starting supportline server")

	// Open the call record store
	st, err := store.New(cfg.DBPath, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	// Create services
	customers := directory.NewService(st, log.Logger)
	calls := calllog.NewService(st, customers, log.Logger)

	// Create the realtime call hub
	callHub := hub.NewHub(log.Logger)
	go callHub.Run()

	// Create handlers
	wsHandler := hub.NewHandler(callHub, cfg, log.Logger)
	webhookHandler := webhook.NewHandler(calls, callHub, log.Logger)
	customersHandler := api.NewCustomersHandler(customers, log.Logger)
	callLogsHandler := api.NewCallLogsHandler(calls, log.Logger)
	agentsHandler := api.NewAgentsHandler(callHub, log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Public routes
	r.Get("/health", healthHandler)
	r.Get("/metrics", metrics.Get().Handler())

	// Agent console websocket
	r.Get("/ws", wsHandler.ServeHTTP)

	// Telephony provider webhooks
	r.Route("/api/incomingcall", func(r chi.Router) {
		r.Post("/", webhookHandler.HandleIncomingCall)
		r.Post("/status", webhookHandler.HandleCallStatus)
		r.Post("/test", webhookHandler.HandleSimulate)
	})

	// REST API
	r.Route("/api/customers", customersHandler.Routes)
	r.Route("/api/calllogs", callLogsHandler.Routes)
	r.Get("/api/agents", agentsHandler.List)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"supportline"}`)
}
