package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dondog-go/internal/config"
	accountdomain "dondog-go/internal/domain/account"
	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestJWTVerifierUsesAMRTimestamp(t *testing.T) {
	signedIn := time.Now().Add(-2 * time.Minute).Unix()
	token := signToken(t, Claims{
		Email: "a@example.com",
		Role:  "authenticated",
		AMR:   []authMethod{{Method: "password", Timestamp: signedIn}},
		UserMetadata: map[string]any{
			"full_name": "Alice",
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-a",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	id, err := NewJWTVerifier(testSecret).Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id.ID != "user-a" || id.Email != "a@example.com" || id.Name != "Alice" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if id.AuthenticatedAt.Unix() != signedIn {
		t.Fatalf("expected auth time from amr, got %v", id.AuthenticatedAt)
	}
}

func TestJWTVerifierRejects(t *testing.T) {
	expired := signToken(t, Claims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-a",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	anon := signToken(t, Claims{
		Role: "anon",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-a",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	wrongKey, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-a",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("another-secret"))

	verifier := NewJWTVerifier(testSecret)
	for name, token := range map[string]string{"expired": expired, "anon": anon, "wrong key": wrongKey, "garbage": "abc"} {
		if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestSupabaseVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" || r.Header.Get("apikey") != "anon-key" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-b","email":"b@example.com","last_sign_in_at":"2025-03-01T12:00:00Z","user_metadata":{"name":"Bob"}}`))
	}))
	defer server.Close()

	client := NewSupabase(config.SupabaseConfig{URL: server.URL, PublishableKey: "anon-key"}, 5*time.Minute)

	id, err := client.Verify(context.Background(), "good")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id.ID != "user-b" || id.Name != "Bob" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if !id.AuthenticatedAt.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected auth time %v", id.AuthenticatedAt)
	}

	if _, err := client.Verify(context.Background(), "bad"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSupabaseDeleteIdentity(t *testing.T) {
	var deleted []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.Header.Get("Authorization") != "Bearer service-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/auth/v1/admin/users/user-a":
			deleted = append(deleted, "user-a")
			w.WriteHeader(http.StatusOK)
		case "/auth/v1/admin/users/gone":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	client := NewSupabase(config.SupabaseConfig{URL: server.URL, ServiceRoleKey: "service-key"}, 5*time.Minute)
	client.now = func() time.Time { return now }

	if err := client.DeleteIdentity(context.Background(), "user-a", now.Add(-10*time.Minute)); !errors.Is(err, accountdomain.ErrRecentLoginRequired) {
		t.Fatalf("expected ErrRecentLoginRequired, got %v", err)
	}
	if len(deleted) != 0 {
		t.Fatalf("stale session must not reach the provider")
	}

	if err := client.DeleteIdentity(context.Background(), "user-a", now.Add(-time.Minute)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := client.DeleteIdentity(context.Background(), "gone", now); err != nil {
		t.Fatalf("expected missing user to count as deleted, got %v", err)
	}
	if err := client.DeleteIdentity(context.Background(), "broken", now); err == nil {
		t.Fatalf("expected error on provider failure")
	}
}

func TestChainFallsBack(t *testing.T) {
	token := signToken(t, Claims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-a",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	chain := Chain{NewJWTVerifier("not-the-secret"), NewJWTVerifier(testSecret)}
	id, err := chain.Verify(context.Background(), token)
	if err != nil || id.ID != "user-a" {
		t.Fatalf("expected second verifier to accept, got %v %v", id, err)
	}

	if _, err := (Chain{}).Verify(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken from empty chain, got %v", err)
	}
}
