package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Start runs the HTTP server, the event relay subscription, and the invoice
// watcher, then blocks until an interrupt triggers a graceful shutdown.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire the bus to the websocket fan-out before any events can flow.
	if err := s.bridge.RelayInvoiceEvents(ctx, s.bus); err != nil {
		s.E.Logger.Fatalf("starting event relay: %v", err)
	}

	go func() {
		if err := s.watcher.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Invoice watcher stopped", "error", err)
		}
	}()

	go func() {
		if err := s.E.Start(s.Cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			s.E.Logger.Fatalf("shutting down the server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server with a timeout.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := s.bus.Close(); err != nil {
		slog.Warn("Failed to close pub/sub bus", "error", err)
	}
	s.DB.Close(shutdownCtx)
	if err := s.E.Shutdown(shutdownCtx); err != nil {
		s.E.Logger.Fatal(err)
	}
}
