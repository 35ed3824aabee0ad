package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whatsapp-console/internal/api"
	"whatsapp-console/internal/backend"
	"whatsapp-console/internal/config"
	"whatsapp-console/internal/conversations"
	"whatsapp-console/internal/logger"
	"whatsapp-console/internal/ws"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	client := backend.NewClient(cfg, zl)

	// Each websocket connection polls its own selected conversation.
	hub := ws.NewHub(cfg.AllowedOrigins, func(listener func(conversations.Update)) *conversations.Poller {
		return conversations.NewPoller(client, cfg.PollInterval, zl, listener)
	}, zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go hub.Run(ctx)

	server := api.NewServer(client, hub, cfg, zl)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("console starting",
			zap.String("port", cfg.Port),
			zap.String("backend", cfg.BackendURL),
			zap.Duration("poll_interval", cfg.PollInterval),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down console")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}
}
