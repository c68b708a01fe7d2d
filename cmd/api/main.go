package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"portfolio/internal/auth"
	"portfolio/internal/config"
	transporthttp "portfolio/internal/http"
	"portfolio/internal/platform/database"
	"portfolio/internal/platform/logging"
	"portfolio/internal/platform/metrics"
	"portfolio/internal/session"
	"portfolio/internal/spotify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New("error", false).Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.IsProduction())

	if cfg.MetricsEnabled {
		metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	}

	spotifyHTTP := &http.Client{Timeout: cfg.SpotifyHTTPTimeout}
	tokenClient, err := spotify.NewTokenClient(
		cfg.SpotifyClientID,
		cfg.SpotifyClientSecret,
		cfg.SpotifyRedirectURI,
		cfg.SpotifyScopes,
		spotify.WithTokenHTTPClient(spotifyHTTP),
	)
	if err != nil {
		logger.Error("failed to initialize spotify token client", "error", err)
		os.Exit(1)
	}
	apiClient := spotify.NewClient(spotifyHTTP)

	store := session.NewStore(session.DeriveKey(cookieSecret(cfg, logger)), cfg.IsProduction())

	coordinator, cleanup, err := buildCoordinator(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize refresh coordination", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	guard := auth.NewGuard(tokenClient, store, logger, auth.WithCoordinator(coordinator))
	router := transporthttp.NewRouter(cfg, tokenClient, apiClient, guard, store, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("portfolio API listening", "addr", srv.Addr, "environment", cfg.Environment, "refresh_coordination", cfg.RefreshCoordination)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func cookieSecret(cfg config.Config, logger *slog.Logger) string {
	if cfg.CookieSecret != "" {
		return cfg.CookieSecret
	}
	logger.Warn("COOKIE_SECRET not set; deriving the cookie signing key from the Spotify client secret")
	return cfg.SpotifyClientSecret
}

func buildCoordinator(ctx context.Context, cfg config.Config, logger *slog.Logger) (auth.RefreshCoordinator, func(), error) {
	switch cfg.RefreshCoordination {
	case config.RefreshCoordinationLocal:
		logger.Info("coordinating token refreshes in process")
		return auth.NewLocalRefresh(), nil, nil
	case config.RefreshCoordinationRedis:
		client, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("coordinating token refreshes through redis")
		return auth.NewRedisRefresh(client, logger), func() { _ = client.Close() }, nil
	default:
		return auth.IndependentRefresh{}, nil, nil
	}
}
