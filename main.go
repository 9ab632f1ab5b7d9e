package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"animerelay/api"
	"animerelay/config"
	"animerelay/logging"
	"animerelay/metadata"
)

func newRelay(cfg *config.Config) *api.Relay {
	var breaker *metadata.BreakerSettings
	if cfg.Breaker.Enabled {
		breaker = &metadata.BreakerSettings{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			OpenTimeout:      cfg.Breaker.OpenTimeout,
			HalfOpenMax:      cfg.Breaker.HalfOpenMax,
		}
	}

	provider := metadata.NewMetadataProvider(metadata.Config{
		APIKey:  cfg.TMDB.APIKey,
		BaseURL: cfg.TMDB.BaseURL,
		Timeout: cfg.TMDB.Timeout,
		Breaker: breaker,
	})
	logging.Info().
		Str("base_url", cfg.TMDB.BaseURL).
		Dur("timeout", cfg.TMDB.Timeout).
		Bool("circuit_breaker", cfg.Breaker.Enabled).
		Msg("✅ TMDB metadata provider initialized")

	return api.NewRelay(provider, api.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		Metrics:     cfg.Metrics.Enabled,
	})
}

func gracefulShutdown(server *http.Server, cfg *config.Config) {
	logging.Info().Msg("🛑 Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("⚠️ Server shutdown error")
		return
	}
	logging.Info().Msg("✅ Graceful shutdown complete")
}

func main() {
	fmt.Println("===========================================")
	fmt.Println("  Anime Relay (TMDb)")
	fmt.Println("===========================================")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			logging.Fatal().Msg("❌ TMDB_API_KEY environment variable is required")
		}
		logging.Fatal().Err(err).Msg("❌ Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	relay := newRelay(cfg)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      relay,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("🚀 Server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	fmt.Printf("📝 Routes:      http://localhost:%d/\n", cfg.Server.Port)
	fmt.Printf("📺 Series Test: http://localhost:%d/api/anime/by-tmdb/1429?type=tv\n", cfg.Server.Port)
	fmt.Printf("🎬 Movie Test:  http://localhost:%d/api/anime/by-tmdb/129?type=movie\n", cfg.Server.Port)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop the server")

	select {
	case err := <-serverErr:
		logging.Fatal().Err(err).Msg("❌ Server failed")
	case <-sigChan:
		gracefulShutdown(server, cfg)
	}
}
