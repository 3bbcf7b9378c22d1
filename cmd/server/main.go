// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/filestore/internal/api"
	"github.com/andresuchdata/filestore/internal/cache"
	"github.com/andresuchdata/filestore/internal/config"
	"github.com/andresuchdata/filestore/internal/storage"
	"github.com/andresuchdata/filestore/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	if cfg.Log.JSON {
		logger.UseJSON()
	}
	logger.SetLevel(cfg.Log.Level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	opts := []storage.Option{storage.WithLogger(logger.Log)}
	urlCache, err := cache.NewURLCache(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to url cache")
	}
	if urlCache != nil {
		defer urlCache.Close()
		opts = append(opts, storage.WithURLCache(urlCache))
	}

	// Initialize storage
	router, err := storage.NewRouter(ctx, cfg.Storage, opts...)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	// Initialize HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(&api.Services{Storage: router}, cfg.Server.AllowedOrigins),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Str("backend", string(router.Backend())).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
