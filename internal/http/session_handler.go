package http

import (
	"net/http"

	"portfolio/internal/session"
)

// SessionHandler ends browser sessions held in cookies.
type SessionHandler struct {
	store *session.Store
}

// NewSessionHandler returns a handler backed by the cookie store.
func NewSessionHandler(store *session.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

// Logout handles POST /api/spotify/logout. It expires the session cookies and is safe to
// call without a session.
func (h *SessionHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.store.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}
