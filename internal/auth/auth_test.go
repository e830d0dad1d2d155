package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/csg33k/visits-dashboard/internal/ports"
)

type mapStore map[string]string

func (m mapStore) Get(_ context.Context, id string) (string, error) {
	v, ok := m[id]
	if !ok {
		return "", ports.ErrNoCredentials
	}
	return v, nil
}
func (m mapStore) Put(_ context.Context, id, v string) error { m[id] = v; return nil }
func (m mapStore) Delete(_ context.Context, id string) error { delete(m, id); return nil }
func (m mapStore) Close() error                              { return nil }

type brokenStore struct{ mapStore }

func (brokenStore) Get(context.Context, string) (string, error) {
	return "", errors.New("disk on fire")
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestTokenHeader(t *testing.T) {
	tests := []struct{ in, want string }{
		{"abc", "Bearer abc"},
		{"  abc\n", "Bearer abc"},
		{"Token abc", "Token abc"},
	}
	for _, tt := range tests {
		if got := TokenHeader(tt.in); got != tt.want {
			t.Errorf("TokenHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := BasicHeader("ana", "s3cret"); got != "Basic YW5hOnMzY3JldA==" {
		t.Errorf("BasicHeader = %q", got)
	}
}

func TestMiddlewareAssignsSession(t *testing.T) {
	store := mapStore{}
	s := NewSessions(store, time.Hour, true, quiet())

	var gotID, gotHeader string
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotHeader = SessionID(r.Context()), Header(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || !cookies[0].HttpOnly || !cookies[0].Secure {
		t.Fatalf("cookies = %+v", cookies)
	}
	if _, err := uuid.Parse(gotID); err != nil || gotID != cookies[0].Value {
		t.Fatalf("session id %q, cookie %q", gotID, cookies[0].Value)
	}
	if gotHeader != "" {
		t.Errorf("header = %q before login", gotHeader)
	}

	store[gotID] = "Bearer abc"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if len(rec.Result().Cookies()) != 0 {
		t.Error("a known session should not get a new cookie")
	}
	if gotHeader != "Bearer abc" {
		t.Errorf("header = %q", gotHeader)
	}
}

func TestMiddlewareReplacesForgedCookie(t *testing.T) {
	s := NewSessions(mapStore{}, time.Hour, false, quiet())
	var gotID string
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = SessionID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "../../etc"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if _, err := uuid.Parse(gotID); err != nil {
		t.Errorf("session id %q should be a fresh uuid", gotID)
	}
}

func TestMiddlewareStoreFailure(t *testing.T) {
	s := NewSessions(brokenStore{mapStore{}}, time.Hour, false, quiet())
	called := false
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if Header(r.Context()) != "" {
			t.Error("no header expected when the store fails")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("request should still be served")
	}
}

func TestRequireLogin(t *testing.T) {
	rec := httptest.NewRecorder()
	if RequireLogin(rec, httptest.NewRequest(http.MethodGet, "/secure?x=1", nil)) {
		t.Fatal("expected redirect")
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login?next=%2Fsecure%3Fx%3D1" {
		t.Errorf("got %d to %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/p/secure/totals", nil)
	req.Header.Set("HX-Request", "true")
	if RequireLogin(rec, req) {
		t.Fatal("expected htmx redirect")
	}
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("HX-Redirect") != LoginPath {
		t.Errorf("got %d HX-Redirect %q", rec.Code, rec.Header().Get("HX-Redirect"))
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req = req.WithContext(WithHeader(req.Context(), "Bearer abc"))
	if !RequireLogin(rec, req) {
		t.Error("logged in request should pass")
	}
}
