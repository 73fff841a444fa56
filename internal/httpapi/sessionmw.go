package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/mindorah/interviewd/internal/session"
)

// sessionHandler is a handler that runs inside an open session. It returns
// the response to send; the wrapper persists the session and sets the
// identity cookie before anything is written.
type sessionHandler func(r *http.Request, sess *session.Session) (int, any)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.cfg.CookieName); err == nil {
			id = c.Value
		}

		sess, err := s.store.Open(r.Context(), id)
		if err != nil {
			if errors.Is(err, session.ErrUnavailable) {
				s.logger.Error("session store unavailable", "error", err)
				respondError(w, http.StatusServiceUnavailable, "session store unavailable")
				return
			}
			s.logger.Error("session open failed", "error", err)
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		status, body := h(r, sess)

		stored, err := s.store.Save(r.Context(), sess)
		if err != nil {
			s.logger.Error("session save failed", "session_id", sess.ID, "error", err)
		}
		s.setSessionCookie(w, sess.ID, stored)

		respondJSON(w, status, body)
	}
}

// setSessionCookie refreshes the identity cookie alongside every session
// save. Cleared sessions expire the cookie instead. SameSite=None because
// the interview page is embedded cross-site; that forces Secure.
func (s *Server) setSessionCookie(w http.ResponseWriter, id string, stored bool) {
	cookie := &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
	if stored {
		cookie.MaxAge = int(s.store.TTL() / time.Second)
	} else {
		cookie.Value = ""
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
}

// cancelRegistry tracks the cancel function of each session's in-flight
// model call so a cleanup request can stop it. One in-flight call per
// session; a second registration replaces (and cancels) the first.
type cancelRegistry struct {
	mu sync.Mutex
	m  map[string]*cancelEntry
}

type cancelEntry struct {
	cancel context.CancelFunc
}

func newCancelRegistry() *cancelRegistry {
	return &cancelRegistry{m: make(map[string]*cancelEntry)}
}

// register stores cancel for sessionID and returns a release function the
// caller must invoke when the call finishes.
func (c *cancelRegistry) register(sessionID string, cancel context.CancelFunc) func() {
	entry := &cancelEntry{cancel: cancel}
	c.mu.Lock()
	if prev, ok := c.m[sessionID]; ok {
		prev.cancel()
	}
	c.m[sessionID] = entry
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.m[sessionID] == entry {
			delete(c.m, sessionID)
		}
	}
}

// cancel stops the session's in-flight call, if any.
func (c *cancelRegistry) cancel(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.m[sessionID]; ok {
		entry.cancel()
		delete(c.m, sessionID)
	}
}
