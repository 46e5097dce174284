package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mplattner/supportline/internal/console"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// CLI flags
	var (
		serverURL = flag.String("server-url", "http://localhost:8080", "Supportline server URL")
		agentID   = flag.String("agent-id", "agent001", "Agent identifier to register as")
		logLevel  = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	// Setup logger
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Str("service", "console").
		Logger()

	logger.Info().Str("agent_id", *agentID).Msg("starting agent console")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Backend REST client for lookups and call log writes
	backend := console.NewBackend(*serverURL, logger)

	// Session state machine and hub connection
	session := console.NewSession(*agentID, backend, backend, logger)
	conn := console.NewConnection(session, *serverURL, logger)
	go conn.Run(ctx)

	// Log state changes once a second so the console is observable
	// without a frontend attached
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		var last console.CallState
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				state := session.State()
				if state.Status != last.Status {
					event := logger.Info().Str("status", string(state.Status))
					if state.Call != nil {
						event = event.Str("from", state.Call.From).
							Str("correlation_id", state.Call.CorrelationID)
					}
					if state.Customer != nil {
						event = event.Str("customer", state.Customer.Name)
					}
					event.Msg("call state changed")
				}
				last = state
			}
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down console")
	cancel()
	conn.Close()
}
