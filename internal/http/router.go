package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portfolio/internal/config"
	"portfolio/internal/session"
)

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, authenticator spotifyAuthenticator, api spotifyResources, guard accessTokenGuard, store *session.Store, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if cfg.IsProduction() {
		// Behind the hosting proxy; take the client address from X-Forwarded-For.
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSlogMiddleware(logger))
	r.Use(newSecurityHeadersMiddleware(cfg.IsProduction()))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	oauthHandler := NewOAuthHandler(cfg, authenticator, store, logger)
	sessionHandler := NewSessionHandler(store)
	spotifyHandler := NewSpotifyHandler(api, guard, logger)
	diagnosticsHandler := NewDiagnosticsHandler(cfg)

	r.Route("/api", func(r chi.Router) {
		r.Use(newRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

		r.Get("/diagnostics", diagnosticsHandler.Get)

		r.Route("/spotify", func(r chi.Router) {
			r.Get("/login", oauthHandler.Login)
			r.Get("/callback", oauthHandler.Callback)
			r.Post("/logout", sessionHandler.Logout)

			r.Get("/me", spotifyHandler.Me)
			r.Get("/now-playing", spotifyHandler.NowPlaying)
			r.Get("/top-tracks", spotifyHandler.TopTracks)
		})

		r.NotFound(http.NotFoundHandler().ServeHTTP)
	})

	if cfg.StaticDir != "" {
		r.NotFound(newSPAHandler(cfg.StaticDir).ServeHTTP)
	} else {
		r.NotFound(http.NotFoundHandler().ServeHTTP)
	}

	return r
}
