package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"dondog-go/internal/identity"
	"dondog-go/pkg/logger"
)

type Auth struct {
	verifier identity.Verifier
	log      logger.Logger
}

type contextKey int

const (
	userKey contextKey = iota
)

func NewAuth(verifier identity.Verifier, log logger.Logger) *Auth {
	return &Auth{verifier: verifier, log: log}
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.verifier == nil {
			writeError(w, http.StatusInternalServerError, "auth_not_configured", "auth not configured")
			return
		}

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			unauthorized(w)
			return
		}

		user, err := a.verifier.Verify(r.Context(), token)
		if err != nil {
			log := logger.FromContext(r.Context(), a.log)
			if errors.Is(err, identity.ErrInvalidToken) {
				log.BusinessError("auth: token rejected", err)
			} else {
				log.InternalError("auth: verify token failed", err)
			}
			unauthorized(w)
			return
		}

		ctx := WithUser(r.Context(), *user)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx, a.log).With("user_id", user.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(value string) (string, bool) {
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
}

func WithUser(ctx context.Context, user identity.Identity) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (identity.Identity, bool) {
	user, ok := ctx.Value(userKey).(identity.Identity)
	if !ok || user.ID == "" {
		return identity.Identity{}, false
	}
	return user, true
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
