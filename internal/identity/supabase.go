package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dondog-go/internal/config"
	accountdomain "dondog-go/internal/domain/account"
)

const defaultTimeout = 5 * time.Second

type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Sub          string         `json:"sub"`
	LastSignInAt *time.Time     `json:"last_sign_in_at"`
	UserMetadata map[string]any `json:"user_metadata"`
	User         struct {
		ID  string `json:"id"`
		Sub string `json:"sub"`
	} `json:"user"`
}

// Supabase talks to the Supabase auth API: it resolves bearer tokens through
// /auth/v1/user and deletes users through the admin endpoint.
type Supabase struct {
	baseURL        string
	apiKey         string
	serviceRoleKey string
	reauthMaxAge   time.Duration
	client         *http.Client
	now            func() time.Time
}

func NewSupabase(cfg config.SupabaseConfig, reauthMaxAge time.Duration) *Supabase {
	timeout := cfg.AuthTimeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Supabase{
		baseURL:        strings.TrimRight(cfg.URL, "/"),
		apiKey:         cfg.PublishableKey,
		serviceRoleKey: cfg.ServiceRoleKey,
		reauthMaxAge:   reauthMaxAge,
		client: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

func (s *Supabase) Verify(ctx context.Context, token string) (*Identity, error) {
	if s.baseURL == "" || s.apiKey == "" {
		return nil, fmt.Errorf("supabase auth not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase user request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: supabase status %d", ErrInvalidToken, resp.StatusCode)
	}

	var payload userResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode user: %v", ErrInvalidToken, err)
	}

	userID := firstNonEmpty(payload.ID, payload.Sub, payload.User.ID, payload.User.Sub)
	if userID == "" {
		return nil, ErrInvalidToken
	}

	id := &Identity{
		ID:        userID,
		Email:     payload.Email,
		Name:      firstNonEmpty(stringFromMap(payload.UserMetadata, "name"), stringFromMap(payload.UserMetadata, "full_name")),
		AvatarURL: stringFromMap(payload.UserMetadata, "avatar_url"),
	}
	if payload.LastSignInAt != nil {
		id.AuthenticatedAt = payload.LastSignInAt.UTC()
	}
	return id, nil
}

// DeleteIdentity removes the auth user. It refuses with
// account.ErrRecentLoginRequired when the caller signed in longer ago than
// the configured maximum age. A user that is already gone counts as deleted.
func (s *Supabase) DeleteIdentity(ctx context.Context, userID string, authenticatedAt time.Time) error {
	if s.reauthMaxAge > 0 && (authenticatedAt.IsZero() || s.now().Sub(authenticatedAt) > s.reauthMaxAge) {
		return accountdomain.ErrRecentLoginRequired
	}
	if s.baseURL == "" || s.serviceRoleKey == "" {
		return fmt.Errorf("supabase admin not configured")
	}

	endpoint := s.baseURL + "/auth/v1/admin/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceRoleKey)
	req.Header.Set("apikey", s.serviceRoleKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("supabase delete user: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return fmt.Errorf("supabase delete user: status %d", resp.StatusCode)
	}
}

// Mock accepts every request as one configured user. It backs AUTH_SKIP in
// development, so identity deletion always succeeds.
type Mock struct {
	User Identity
}

func (m Mock) Verify(ctx context.Context, token string) (*Identity, error) {
	if m.User.ID == "" {
		return nil, fmt.Errorf("auth mock user id not configured")
	}
	id := m.User
	id.AuthenticatedAt = time.Now().UTC()
	return &id, nil
}

func (m Mock) DeleteIdentity(ctx context.Context, userID string, authenticatedAt time.Time) error {
	return nil
}
