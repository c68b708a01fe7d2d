package http

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"portfolio/internal/config"
	"portfolio/internal/platform/metrics"
	"portfolio/internal/session"
	"portfolio/internal/spotify"
)

// stateNonceBytes is the amount of randomness in the OAuth state nonce.
const stateNonceBytes = 32

type spotifyAuthenticator interface {
	AuthURL(state string) string
	RedirectURI() string
	Scopes() []string
	Exchange(ctx context.Context, code string) (spotify.Token, error)
}

// OAuthHandler runs the Spotify authorization code flow.
type OAuthHandler struct {
	spotify             spotifyAuthenticator
	store               *session.Store
	logger              *slog.Logger
	frontendURL         string
	clientIDPresent     bool
	clientSecretPresent bool
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(cfg config.Config, authenticator spotifyAuthenticator, store *session.Store, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		spotify:             authenticator,
		store:               store,
		logger:              logger,
		frontendURL:         strings.TrimSuffix(cfg.FrontendURL, "/"),
		clientIDPresent:     cfg.SpotifyClientID != "",
		clientSecretPresent: cfg.SpotifyClientSecret != "",
	}
}

type loginDebugResponse struct {
	AuthorizeURL        string   `json:"authorizeUrl"`
	RedirectURI         string   `json:"redirectUri"`
	Scopes              []string `json:"scopes"`
	ClientIDPresent     bool     `json:"clientIdPresent"`
	ClientSecretPresent bool     `json:"clientSecretPresent"`
	SecureCookies       bool     `json:"secureCookies"`
}

// Login handles GET /api/spotify/login.
// Stores a fresh state nonce and redirects to Spotify's consent screen. With ?debug=1 the
// computed authorize URL is returned as JSON instead.
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		h.logger.Error("failed to generate state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to start login")
		return
	}

	h.store.SetState(w, state)
	authURL := h.spotify.AuthURL(state)

	if r.URL.Query().Get("debug") == "1" {
		writeJSON(w, http.StatusOK, loginDebugResponse{
			AuthorizeURL:        authURL,
			RedirectURI:         h.spotify.RedirectURI(),
			Scopes:              h.spotify.Scopes(),
			ClientIDPresent:     h.clientIDPresent,
			ClientSecretPresent: h.clientSecretPresent,
			SecureCookies:       h.store.Secure(),
		})
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles GET /api/spotify/callback.
// Verifies state, exchanges the code and stores the session cookies.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	stateParam := query.Get("state")
	expectedState, stateOK := h.store.ReadState(r)

	// The state cookie is single use whatever happens next.
	h.store.ClearState(w)

	if errParam := query.Get("error"); errParam != "" && stateParam != "" && stateOK && statesMatch(stateParam, expectedState) {
		h.logger.Warn("oauth callback: provider error", "error", errParam)
		metrics.OAuthCallbacks.WithLabelValues("provider_error").Inc()
		h.redirectToMusic(w, r, url.Values{"error": {errParam}})
		return
	}

	if code == "" || stateParam == "" || !stateOK || !statesMatch(stateParam, expectedState) {
		h.logger.Warn("oauth callback: state check failed", "has_code", code != "", "has_state", stateParam != "", "has_cookie", stateOK)
		metrics.OAuthCallbacks.WithLabelValues("state_mismatch").Inc()
		h.redirectToMusic(w, r, url.Values{"error": {"state"}})
		return
	}

	token, err := h.spotify.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed", "error", err)
		metrics.OAuthCallbacks.WithLabelValues("exchange_failed").Inc()
		writeError(w, http.StatusInternalServerError, "token_exchange_failed", err.Error())
		return
	}

	h.store.SetSession(w, token.AccessToken, token.RefreshToken, token.ExpiresIn)
	metrics.OAuthCallbacks.WithLabelValues("success").Inc()
	h.logger.Info("spotify login successful", "scope", token.Scope, "expires_in", token.ExpiresIn)

	h.redirectToMusic(w, r, url.Values{"from": {"spotify"}})
}

func (h *OAuthHandler) redirectToMusic(w http.ResponseWriter, r *http.Request, params url.Values) {
	http.Redirect(w, r, h.frontendURL+"/music?"+params.Encode(), http.StatusFound)
}

func statesMatch(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func generateState() (string, error) {
	buf := make([]byte, stateNonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
