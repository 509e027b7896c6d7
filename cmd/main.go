/*
Package main is the entry point for the EstateChat messaging server.

It is responsible for loading configuration, initializing the global logging
system, connecting to the database, starting the WebSocket server and the
fallback polling API, and gracefully handling operating system interrupt
signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estatechat/internal/app/chat"
	"estatechat/internal/app/db"
	"estatechat/internal/app/store"
	"estatechat/internal/configs"
	"estatechat/internal/handler"
	"estatechat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("ws_addr", cfg.WSAddr()).
		Int("http_port", cfg.HTTPPort).
		Int("max_connections", cfg.MaxConnections).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the database and run migrations
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to database")
	}
	defer pool.Close()

	messageStore := store.NewPostgresStore(pool)

	// Wire the realtime layer
	registry := chat.NewRegistry()
	router := chat.NewRouter(messageStore, registry, cfg.JWTSecret)
	wsServer := chat.NewServer(cfg.WSAddr(), cfg.MaxConnections, registry, router)

	if err := wsServer.Listen(); err != nil {
		logx.Fatal(err, "WebSocket server failed to bind")
	}

	go func() {
		if err := wsServer.Run(); err != nil {
			logx.Fatal(err, "WebSocket server failed")
		}
	}()

	// Setup the fallback polling API
	deps := &handler.AppDeps{
		Config:   cfg,
		Store:    messageStore,
		Router:   router,
		Registry: registry,
	}

	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	httpServer := &http.Server{
		Addr:         httpAddr,
		Handler:      handler.Router(deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Polling API starting on http://localhost%s", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Polling API failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown both servers.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Polling API forced to shutdown")
	}

	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "WebSocket server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
