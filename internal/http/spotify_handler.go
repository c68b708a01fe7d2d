package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"portfolio/internal/auth"
	"portfolio/internal/spotify"
)

type spotifyResources interface {
	Profile(ctx context.Context, accessToken string) (*spotify.User, error)
	CurrentlyPlaying(ctx context.Context, accessToken string) (*spotify.CurrentlyPlaying, error)
	TopTracks(ctx context.Context, accessToken string, timeRange spotify.TimeRange, limit int) (*spotify.TopTracksPage, error)
}

type accessTokenGuard interface {
	EnsureAccessToken(w http.ResponseWriter, r *http.Request) auth.Result
}

// SpotifyHandler proxies the signed-in user's Spotify data in the shapes the front end renders.
type SpotifyHandler struct {
	api    spotifyResources
	guard  accessTokenGuard
	logger *slog.Logger
}

// NewSpotifyHandler creates a handler.
func NewSpotifyHandler(api spotifyResources, guard accessTokenGuard, logger *slog.Logger) *SpotifyHandler {
	return &SpotifyHandler{api: api, guard: guard, logger: logger}
}

// Me handles GET /api/spotify/me.
func (h *SpotifyHandler) Me(w http.ResponseWriter, r *http.Request) {
	token, ok := h.accessToken(w, r)
	if !ok {
		return
	}

	user, err := h.api.Profile(r.Context(), token)
	if err != nil {
		h.upstreamFailure(w, "profile", err)
		return
	}
	writeJSON(w, http.StatusOK, spotify.ToProfile(user))
}

// NowPlaying handles GET /api/spotify/now-playing. An idle player is {"isPlaying":false},
// not an error.
func (h *SpotifyHandler) NowPlaying(w http.ResponseWriter, r *http.Request) {
	token, ok := h.accessToken(w, r)
	if !ok {
		return
	}

	playing, err := h.api.CurrentlyPlaying(r.Context(), token)
	if err != nil {
		h.upstreamFailure(w, "now playing", err)
		return
	}
	writeJSON(w, http.StatusOK, spotify.ToNowPlaying(playing))
}

// TopTracks handles GET /api/spotify/top-tracks?range=short_term|medium_term|long_term.
func (h *SpotifyHandler) TopTracks(w http.ResponseWriter, r *http.Request) {
	token, ok := h.accessToken(w, r)
	if !ok {
		return
	}

	timeRange := spotify.ParseTimeRange(r.URL.Query().Get("range"))
	page, err := h.api.TopTracks(r.Context(), token, timeRange, spotify.TopTracksLimit)
	if err != nil {
		h.upstreamFailure(w, "top tracks", err)
		return
	}
	writeJSON(w, http.StatusOK, spotify.ToTopTracks(page))
}

func (h *SpotifyHandler) accessToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	result := h.guard.EnsureAccessToken(w, r)
	if !result.Authenticated() {
		unauthorized(w)
		return "", false
	}
	return result.AccessToken, true
}

func (h *SpotifyHandler) upstreamFailure(w http.ResponseWriter, resource string, err error) {
	var upstream *spotify.UpstreamError
	if errors.As(err, &upstream) {
		h.logger.Error("spotify api error", "resource", resource, "status", upstream.StatusCode)
		writeError(w, http.StatusInternalServerError, "upstream_error", upstream.Error())
		return
	}
	h.logger.Error("spotify request failed", "resource", resource, "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}
