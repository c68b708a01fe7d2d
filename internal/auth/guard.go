// Package auth hands out usable Spotify access tokens for a browser session, refreshing them
// when the cached one is about to expire.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"portfolio/internal/platform/metrics"
	"portfolio/internal/session"
	"portfolio/internal/spotify"
)

// expirySkew is how long before the recorded expiry a cached token stops being used.
const expirySkew = 15 * time.Second

// Outcome describes how EnsureAccessToken resolved.
type Outcome int

const (
	// OutcomeNoSession means there is neither a usable access token nor a refresh token.
	OutcomeNoSession Outcome = iota
	// OutcomeCached means the access token cookie was still valid.
	OutcomeCached
	// OutcomeRefreshed means a new access token was minted and the cookies rewritten.
	OutcomeRefreshed
	// OutcomeRefreshFailed means the refresh grant failed; the caller should ask the user to
	// reconnect.
	OutcomeRefreshFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCached:
		return "cached"
	case OutcomeRefreshed:
		return "refreshed"
	case OutcomeRefreshFailed:
		return "refresh_failed"
	default:
		return "no_session"
	}
}

// Result is the outcome of EnsureAccessToken. Err is set only for OutcomeRefreshFailed.
type Result struct {
	AccessToken string
	Outcome     Outcome
	Err         error
}

// Authenticated reports whether AccessToken can be used.
func (r Result) Authenticated() bool {
	return r.Outcome == OutcomeCached || r.Outcome == OutcomeRefreshed
}

// TokenRefresher performs the refresh_token grant.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (spotify.Token, error)
}

// Guard resolves the access token for an inbound request.
type Guard struct {
	refresher   TokenRefresher
	store       *session.Store
	coordinator RefreshCoordinator
	logger      *slog.Logger
	now         func() time.Time
}

// GuardOption configures the Guard during construction.
type GuardOption func(*Guard)

// WithCoordinator sets how concurrent refreshes of one session are coordinated.
func WithCoordinator(c RefreshCoordinator) GuardOption {
	return func(g *Guard) {
		if c != nil {
			g.coordinator = c
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) {
		g.now = now
	}
}

// NewGuard creates a Guard. Without WithCoordinator every request refreshes independently.
func NewGuard(refresher TokenRefresher, store *session.Store, logger *slog.Logger, opts ...GuardOption) *Guard {
	g := &Guard{
		refresher:   refresher,
		store:       store,
		coordinator: IndependentRefresh{},
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EnsureAccessToken returns a currently valid access token for the request's session. When
// a refresh happens the new token is written to w as session cookies.
func (g *Guard) EnsureAccessToken(w http.ResponseWriter, r *http.Request) Result {
	sess := g.store.ReadSession(r)

	if sess.AccessToken != "" && g.now().Before(sess.Expiry.Add(-expirySkew)) {
		return Result{AccessToken: sess.AccessToken, Outcome: OutcomeCached}
	}

	if sess.RefreshToken == "" {
		return Result{Outcome: OutcomeNoSession}
	}

	token, err := g.coordinator.Do(r.Context(), sess.RefreshToken, g.refresher.Refresh)
	if err != nil {
		g.logger.Warn("spotify token refresh failed", "error", err)
		metrics.TokenRefreshes.WithLabelValues(OutcomeRefreshFailed.String()).Inc()
		return Result{Outcome: OutcomeRefreshFailed, Err: err}
	}

	g.store.SetSession(w, token.AccessToken, token.RefreshToken, token.ExpiresIn)
	metrics.TokenRefreshes.WithLabelValues(OutcomeRefreshed.String()).Inc()
	g.logger.Debug("spotify access token refreshed", "expires_in", token.ExpiresIn, "rotated", token.RefreshToken != "")

	return Result{AccessToken: token.AccessToken, Outcome: OutcomeRefreshed}
}
