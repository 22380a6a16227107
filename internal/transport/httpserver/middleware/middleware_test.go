package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dondog-go/internal/identity"
	"dondog-go/pkg/logger"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type stubVerifier struct {
	user *identity.Identity
	err  error
}

func (s stubVerifier) Verify(ctx context.Context, token string) (*identity.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	cases := []struct {
		name   string
		header string
		err    error
	}{
		{name: "missing header"},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "invalid token", header: "Bearer abc", err: identity.ErrInvalidToken},
		{name: "provider down", header: "Bearer abc", err: errors.New("dial tcp: refused")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := NewAuth(stubVerifier{err: tc.err}, logger.Discard())
			req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			auth.Middleware(next).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if called {
				t.Fatalf("next handler must not run")
			}
		})
	}
}

func TestAuthStoresUserInContext(t *testing.T) {
	auth := NewAuth(stubVerifier{user: &identity.Identity{ID: "u1", Email: "u1@example.com"}}, logger.Discard())

	var got identity.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserFromContext(r.Context())
	})
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "bearer token-1")
	rec := httptest.NewRecorder()

	auth.Middleware(next).ServeHTTP(rec, req)

	if got.ID != "u1" || got.Email != "u1@example.com" {
		t.Fatalf("unexpected user %+v", got)
	}
}

func TestUserFromContextRequiresID(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Fatalf("expected no user")
	}
	if _, ok := UserFromContext(WithUser(context.Background(), identity.Identity{})); ok {
		t.Fatalf("expected empty identity to be ignored")
	}
}

func TestCORSAllowsListedOrigins(t *testing.T) {
	handler := NewCORS([]string{"https://app.example/", " "})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Fatalf("expected origin to be allowed, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected next handler to run, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected unknown origin to be ignored")
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := NewCORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("preflight must not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "https://any.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://any.example" {
		t.Fatalf("expected wildcard to allow origin")
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	var scoped logger.Logger
	handler := chimw.RequestID(RequestLogger(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scoped = logger.FromContext(r.Context(), nil)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
	if scoped == nil {
		t.Fatalf("expected request logger in context")
	}
}
