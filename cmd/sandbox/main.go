// Command sandbox serves a local stand-in for the marketing backend.
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

	"whatsapp-console/internal/config"
	"whatsapp-console/internal/database"
	"whatsapp-console/internal/logger"
	"whatsapp-console/internal/sandbox"
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

	db, err := database.Open(cfg.Sandbox, zl)
	if err != nil {
		zl.Fatal("Failed to open database", zap.Error(err))
	}

	server := sandbox.NewServer(db, zl)
	if err := server.Seed(); err != nil {
		zl.Fatal("Failed to seed database", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Sandbox.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		zl.Info("sandbox backend starting",
			zap.String("port", cfg.Sandbox.Port),
			zap.String("driver", cfg.Sandbox.DBDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Failed to run sandbox", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down sandbox")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Sandbox forced to shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
