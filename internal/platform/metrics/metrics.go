package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portfolio", Name: "spotify_token_refreshes_total", Help: "Access token refresh attempts by outcome."},
		[]string{"outcome"},
	)
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portfolio", Name: "spotify_upstream_requests_total", Help: "Spotify Web API calls by path and status code."},
		[]string{"path", "status"},
	)
	OAuthCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portfolio", Name: "spotify_oauth_callbacks_total", Help: "OAuth callbacks by result."},
		[]string{"result"},
	)
	RateLimitRejected = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "portfolio", Name: "rate_limit_rejected_total", Help: "Requests rejected by the per-client rate limiter."},
	)
)

// RegisterCollectors registers every collector with reg.
func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(TokenRefreshes)
	reg.MustRegister(UpstreamRequests)
	reg.MustRegister(OAuthCallbacks)
	reg.MustRegister(RateLimitRejected)
}
