package identity

import (
	"context"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type authMethod struct {
	Method    string `json:"method"`
	Timestamp int64  `json:"timestamp"`
}

// Claims mirrors the Supabase access token payload.
type Claims struct {
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	AMR          []authMethod   `json:"amr"`
	SessionID    string         `json:"session_id"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// authenticatedAt is the newest sign-in recorded in amr. Tokens without amr
// fall back to their issue time.
func (c Claims) authenticatedAt() time.Time {
	var newest int64
	for _, m := range c.AMR {
		if m.Timestamp > newest {
			newest = m.Timestamp
		}
	}
	if newest > 0 {
		return time.Unix(newest, 0).UTC()
	}
	if c.IssuedAt != nil {
		return c.IssuedAt.UTC()
	}
	return time.Time{}
}

// JWTVerifier checks HS256 tokens signed with the project JWT secret.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	parsed, err := v.parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.Role == "anon" || claims.Role == "service_role" {
		return nil, fmt.Errorf("%w: role %s is not a user", ErrInvalidToken, claims.Role)
	}

	return &Identity{
		ID:              claims.Subject,
		Email:           claims.Email,
		Name:            firstNonEmpty(stringFromMap(claims.UserMetadata, "name"), stringFromMap(claims.UserMetadata, "full_name")),
		AvatarURL:       stringFromMap(claims.UserMetadata, "avatar_url"),
		AuthenticatedAt: claims.authenticatedAt(),
	}, nil
}
