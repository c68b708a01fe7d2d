package http

import (
	"net/http"
	"runtime"

	"portfolio/internal/config"
)

type diagnosticsEnv struct {
	Environment         string  `json:"APP_ENV"`
	Origin              string  `json:"ORIGIN"`
	FrontendURL         string  `json:"FRONTEND_URL"`
	SpotifyClientID     bool    `json:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret bool    `json:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRedirectURI  *string `json:"SPOTIFY_REDIRECT_URI"`
	CookieSecret        bool    `json:"COOKIE_SECRET"`
	RefreshCoordination string  `json:"REFRESH_COORDINATION"`
}

type diagnosticsStatic struct {
	Dir          string `json:"dir"`
	HasIndexHTML bool   `json:"hasIndexHtml"`
}

type diagnosticsResponse struct {
	OK     bool              `json:"ok"`
	Go     string            `json:"go"`
	Env    diagnosticsEnv    `json:"env"`
	Static diagnosticsStatic `json:"static"`
}

// DiagnosticsHandler reports how the service is configured. Secrets are only reported as
// present or absent.
type DiagnosticsHandler struct {
	cfg config.Config
}

// NewDiagnosticsHandler creates a handler for the given configuration.
func NewDiagnosticsHandler(cfg config.Config) *DiagnosticsHandler {
	return &DiagnosticsHandler{cfg: cfg}
}

// Get handles GET /api/diagnostics.
func (h *DiagnosticsHandler) Get(w http.ResponseWriter, _ *http.Request) {
	var redirectURI *string
	if h.cfg.SpotifyRedirectURI != "" {
		redirectURI = &h.cfg.SpotifyRedirectURI
	}

	writeJSON(w, http.StatusOK, diagnosticsResponse{
		OK: true,
		Go: runtime.Version(),
		Env: diagnosticsEnv{
			Environment:         h.cfg.Environment,
			Origin:              h.cfg.AllowedOrigin,
			FrontendURL:         h.cfg.FrontendURL,
			SpotifyClientID:     h.cfg.SpotifyClientID != "",
			SpotifyClientSecret: h.cfg.SpotifyClientSecret != "",
			SpotifyRedirectURI:  redirectURI,
			CookieSecret:        h.cfg.CookieSecret != "",
			RefreshCoordination: h.cfg.RefreshCoordination,
		},
		Static: diagnosticsStatic{
			Dir:          h.cfg.StaticDir,
			HasIndexHTML: hasIndex(h.cfg.StaticDir),
		},
	})
}
