package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sparkmates/sparkmates/internal/auth"
)

type contextKey string

const sessionKey contextKey = "session"

// currentSession returns the authenticated session attached by
// requireSession, or nil.
func currentSession(r *http.Request) *auth.Session {
	if s, ok := r.Context().Value(sessionKey).(*auth.Session); ok {
		return s
	}
	return nil
}

// currentUserID is only valid behind requireSession.
func currentUserID(r *http.Request) string {
	s := currentSession(r)
	if s == nil {
		return ""
	}
	u, _ := s.User()
	return u.ID
}

// bearerToken returns the JWT from the Authorization header, falling back
// to the session cookie.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(auth.SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// resolveSession turns the request's token into an authenticated session.
func (h *Handler) resolveSession(r *http.Request) (*auth.Session, error) {
	tok := bearerToken(r)
	if tok == "" {
		return nil, auth.ErrInvalidToken
	}
	claims, err := h.auth.ParseToken(tok)
	if err != nil {
		return nil, err
	}
	sess, err := h.auth.Resume(r.Context(), claims.ID)
	if err != nil {
		return nil, err
	}
	if u, _ := sess.User(); u.ID != claims.Subject {
		return nil, auth.ErrInvalidToken
	}
	return sess, nil
}

func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.resolveSession(r)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				h.log.WithError(err).Error("resolve session")
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if _, cerr := r.Cookie(auth.SessionCookie); cerr == nil {
				auth.ClearSessionCookie(w)
			}
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		entry := h.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request")
			return
		}
		entry.Debug("request")
	})
}
