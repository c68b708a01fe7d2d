package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"portfolio/internal/auth"
	"portfolio/internal/config"
	"portfolio/internal/session"
	"portfolio/internal/spotify"
)

var testNow = time.Unix(1_700_000_000, 0)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	return config.Config{
		Environment:         "development",
		FrontendURL:         "http://frontend.test",
		AllowedOrigin:       "http://frontend.test",
		SpotifyClientID:     "client-id",
		SpotifyClientSecret: "client-secret",
		SpotifyRedirectURI:  "http://api.test/api/spotify/callback",
		SpotifyScopes:       []string{"user-read-currently-playing", "user-top-read"},
		RefreshCoordination: config.RefreshCoordinationNone,
		MetricsEnabled:      true,
	}
}

func newTestStore() *session.Store {
	return session.NewStore(session.DeriveKey("http-test"), false, session.WithClock(func() time.Time { return testNow }))
}

type fakeAuthenticator struct {
	authURLBase string
	lastState   string
	codes       []string
	token       spotify.Token
	exchangeErr error
}

func (f *fakeAuthenticator) AuthURL(state string) string {
	f.lastState = state
	if f.authURLBase == "" {
		f.authURLBase = "https://accounts.spotify.test/authorize?state="
	}
	return f.authURLBase + state
}

func (f *fakeAuthenticator) RedirectURI() string {
	return "http://api.test/api/spotify/callback"
}

func (f *fakeAuthenticator) Scopes() []string {
	return []string{"user-read-currently-playing", "user-top-read"}
}

func (f *fakeAuthenticator) Exchange(_ context.Context, code string) (spotify.Token, error) {
	f.codes = append(f.codes, code)
	if f.exchangeErr != nil {
		return spotify.Token{}, f.exchangeErr
	}
	return f.token, nil
}

type fakeResources struct {
	user       *spotify.User
	playing    *spotify.CurrentlyPlaying
	page       *spotify.TopTracksPage
	err        error
	lastToken  string
	lastRange  spotify.TimeRange
	lastLimit  int
	callsCount int
}

func (f *fakeResources) Profile(_ context.Context, accessToken string) (*spotify.User, error) {
	f.lastToken = accessToken
	f.callsCount++
	return f.user, f.err
}

func (f *fakeResources) CurrentlyPlaying(_ context.Context, accessToken string) (*spotify.CurrentlyPlaying, error) {
	f.lastToken = accessToken
	f.callsCount++
	return f.playing, f.err
}

func (f *fakeResources) TopTracks(_ context.Context, accessToken string, timeRange spotify.TimeRange, limit int) (*spotify.TopTracksPage, error) {
	f.lastToken = accessToken
	f.lastRange = timeRange
	f.lastLimit = limit
	f.callsCount++
	return f.page, f.err
}

type fakeGuard struct {
	result auth.Result
}

func (f fakeGuard) EnsureAccessToken(http.ResponseWriter, *http.Request) auth.Result {
	return f.result
}

func authenticatedGuard(token string) fakeGuard {
	return fakeGuard{result: auth.Result{AccessToken: token, Outcome: auth.OutcomeCached}}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// withCookies copies every non-expired cookie written to rec onto req.
func withCookies(req *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	return req
}

func strPtr(s string) *string {
	return &s
}
