// Package session keeps the Spotify session in signed browser cookies. Nothing is stored
// server-side.
package session

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Cookie names shared by login, callback, the access token guard and logout.
const (
	AccessCookieName  = "sp_access"
	ExpiryCookieName  = "sp_access_exp"
	RefreshCookieName = "sp_refresh"
	StateCookieName   = "sp_oauth_state"
)

const (
	// RefreshTTL is the lifetime of the refresh token cookie regardless of access token lifetime.
	RefreshTTL = 30 * 24 * time.Hour
	// StateTTL is the lifetime of the OAuth state cookie.
	StateTTL = 10 * time.Minute
)

// Session is the cookie-held Spotify session.
type Session struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Store reads and writes the session and OAuth state cookies.
type Store struct {
	signer signer
	secure bool
	now    func() time.Time
}

// Option configures the Store during construction.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store. secure marks every cookie Secure and must be set in production.
func NewStore(key []byte, secure bool, opts ...Option) *Store {
	s := &Store{
		signer: signer{key: key},
		secure: secure,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Secure reports whether cookies carry the Secure attribute.
func (s *Store) Secure() bool {
	return s.secure
}

// SetSession writes the access token and its expiry with a TTL of expiresIn seconds. The
// refresh token cookie is only written when refreshToken is non-empty, so a refresh that
// did not rotate it leaves the stored one in place.
func (s *Store) SetSession(w http.ResponseWriter, accessToken, refreshToken string, expiresIn int64) {
	ttl := time.Duration(expiresIn) * time.Second
	expiry := s.now().Add(ttl).Unix()

	s.set(w, AccessCookieName, accessToken, ttl)
	s.set(w, ExpiryCookieName, strconv.FormatInt(expiry, 10), ttl)
	if refreshToken != "" {
		s.set(w, RefreshCookieName, refreshToken, RefreshTTL)
	}
}

// ReadSession returns the session carried by the request. Missing or tampered cookies
// yield empty fields.
func (s *Store) ReadSession(r *http.Request) Session {
	sess := Session{
		AccessToken:  s.get(r, AccessCookieName),
		RefreshToken: s.get(r, RefreshCookieName),
	}
	if raw := s.get(r, ExpiryCookieName); raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			sess.Expiry = time.Unix(unix, 0)
		}
	}
	return sess
}

// ClearSession expires the three session cookies.
func (s *Store) ClearSession(w http.ResponseWriter) {
	s.clear(w, AccessCookieName)
	s.clear(w, ExpiryCookieName)
	s.clear(w, RefreshCookieName)
}

// SetState stores the OAuth state nonce together with its issue time.
func (s *Store) SetState(w http.ResponseWriter, nonce string) {
	value := nonce + "." + strconv.FormatInt(s.now().Unix(), 10)
	s.set(w, StateCookieName, value, StateTTL)
}

// ReadState returns the pending state nonce. It reports false when the cookie is absent,
// forged, malformed or older than StateTTL.
func (s *Store) ReadState(r *http.Request) (string, bool) {
	value := s.get(r, StateCookieName)
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return "", false
	}
	issued, err := strconv.ParseInt(value[i+1:], 10, 64)
	if err != nil {
		return "", false
	}
	if s.now().Sub(time.Unix(issued, 0)) > StateTTL {
		return "", false
	}
	return value[:i], true
}

// ClearState expires the OAuth state cookie.
func (s *Store) ClearState(w http.ResponseWriter) {
	s.clear(w, StateCookieName)
}

func (s *Store) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    s.signer.sign(name, value),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  s.now().Add(ttl),
	})
}

func (s *Store) get(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return ""
	}
	value, ok := s.signer.verify(name, cookie.Value)
	if !ok {
		return ""
	}
	return value
}

func (s *Store) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
