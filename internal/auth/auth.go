// Package auth carries the opaque Authorization value of a browser session
// from the credential store to outgoing reporting API calls.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/csg33k/visits-dashboard/internal/ports"
)

const (
	// CookieName holds the dashboard session id.
	CookieName = "dash_session"
	// LoginPath is the login entry point.
	LoginPath = "/login"
)

type ctxKey int

const (
	headerKey ctxKey = iota
	sessionKey
)

// WithHeader returns ctx carrying the Authorization header value.
func WithHeader(ctx context.Context, authorization string) context.Context {
	return context.WithValue(ctx, headerKey, authorization)
}

// Header returns the Authorization header value in ctx, if any.
func Header(ctx context.Context) string {
	v, _ := ctx.Value(headerKey).(string)
	return v
}

// SessionID returns the dashboard session id set by Middleware.
func SessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionKey).(string)
	return v
}

// BasicHeader builds a Basic Authorization value from a login form.
func BasicHeader(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

// TokenHeader builds a Bearer Authorization value unless the token already
// names its scheme.
func TokenHeader(token string) string {
	token = strings.TrimSpace(token)
	if strings.Contains(token, " ") {
		return token
	}
	return "Bearer " + token
}

// Sessions assigns session cookies and resolves stored credentials.
type Sessions struct {
	store  ports.CredentialStore
	ttl    time.Duration
	secure bool
	log    *slog.Logger
}

func NewSessions(store ports.CredentialStore, ttl time.Duration, secure bool, log *slog.Logger) *Sessions {
	return &Sessions{store: store, ttl: ttl, secure: secure, log: log}
}

// Middleware guarantees every request has a session id and attaches the
// stored Authorization value to the request context.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(CookieName); err == nil {
			if _, perr := uuid.Parse(c.Value); perr == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.secure,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int(s.ttl.Seconds()),
			})
		}
		ctx := context.WithValue(r.Context(), sessionKey, id)

		header, err := s.store.Get(ctx, id)
		switch {
		case err == nil:
			ctx = WithHeader(ctx, header)
		case !errors.Is(err, ports.ErrNoCredentials):
			s.log.Warn("credential lookup failed", "session", id, "err", err)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Login stores authorization for the request's session.
func (s *Sessions) Login(ctx context.Context, authorization string) error {
	return s.store.Put(ctx, SessionID(ctx), authorization)
}

// Logout forgets the session's credentials.
func (s *Sessions) Logout(ctx context.Context) error {
	return s.store.Delete(ctx, SessionID(ctx))
}

// RequireLogin redirects to the login page when an auth page is requested
// without stored credentials. htmx requests get an HX-Redirect instead.
func RequireLogin(w http.ResponseWriter, r *http.Request) bool {
	if Header(r.Context()) != "" || r.URL.Path == LoginPath {
		return true
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", LoginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	http.Redirect(w, r, LoginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
	return false
}
