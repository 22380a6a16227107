package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"dondog-go/internal/config"
	accountdomain "dondog-go/internal/domain/account"
	"dondog-go/internal/identity"
	"dondog-go/internal/metrics"
	"dondog-go/internal/repository/inmemory"
	"dondog-go/internal/storage"
	"dondog-go/pkg/logger"
)

// tokenVerifier treats the bearer token as the user id.
type tokenVerifier struct{}

func (tokenVerifier) Verify(ctx context.Context, token string) (*identity.Identity, error) {
	if token == "" || token == "bad" {
		return nil, identity.ErrInvalidToken
	}
	return &identity.Identity{ID: token, Email: token + "@example.com", AuthenticatedAt: time.Now()}, nil
}

type fakeProvider struct {
	stale   map[string]bool
	deleted []string
}

func (p *fakeProvider) DeleteIdentity(ctx context.Context, userID string, authenticatedAt time.Time) error {
	if p.stale[userID] {
		return accountdomain.ErrRecentLoginRequired
	}
	p.deleted = append(p.deleted, userID)
	return nil
}

type testEnv struct {
	server   *httptest.Server
	store    *inmemory.Store
	blobs    *storage.Memory
	provider *fakeProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := inmemory.NewStore()
	blobs := storage.NewMemory("https://blob.example")
	provider := &fakeProvider{stale: map[string]bool{}}
	handler := NewHandler(config.Config{}, Deps{
		Stores:   storesOf(store),
		Blobs:    blobs,
		Verifier: tokenVerifier{},
		Identity: provider,
		Metrics:  metrics.New("test"),
	}, logger.Discard())

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &testEnv{server: server, store: store, blobs: blobs, provider: provider}
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, req, token)
}

func (e *testEnv) send(t *testing.T, req *http.Request, token string) (*http.Response, []byte) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", string(data), err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, string(body))
	}
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Category string `json:"category"`
}

type setupResponse struct {
	Created bool `json:"created"`
	Invite  *struct {
		Code string `json:"code"`
	} `json:"invite"`
}

type sessionResponse struct {
	Route  string `json:"route"`
	RoomID string `json:"room_id"`
	Invite *struct {
		Code string `json:"code"`
	} `json:"invite"`
}

// pair creates profiles for both users and joins joiner into inviter's room.
func (e *testEnv) pair(t *testing.T, inviter, joiner string) string {
	t.Helper()

	resp, body := e.do(t, http.MethodPut, "/api/profile", inviter, map[string]string{"name": "Mom", "role": "parent"})
	expectStatus(t, resp, body, http.StatusCreated)
	setup := decode[setupResponse](t, body)
	if !setup.Created || setup.Invite == nil || len(setup.Invite.Code) != 6 {
		t.Fatalf("expected created profile with invite, got %s", string(body))
	}

	resp, body = e.do(t, http.MethodPut, "/api/profile", joiner, map[string]string{"name": "Kid", "role": "child"})
	expectStatus(t, resp, body, http.StatusCreated)

	resp, body = e.do(t, http.MethodPost, "/api/rooms/join", joiner, map[string]string{"code": setup.Invite.Code})
	expectStatus(t, resp, body, http.StatusCreated)
	joined := decode[struct {
		RoomID       string   `json:"room_id"`
		Participants []string `json:"participants"`
	}](t, body)
	if joined.RoomID == "" || len(joined.Participants) != 2 {
		t.Fatalf("unexpected join result %s", string(body))
	}
	return joined.RoomID
}

func (e *testEnv) createPost(t *testing.T, token, caption string) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for _, side := range []string{"front", "back"} {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="%s.jpg"`, side, side))
		h.Set("Content-Type", "image/jpeg")
		part, err := form.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write([]byte("jpeg-" + side))
	}
	_ = form.WriteField("caption", caption)
	_ = form.WriteField("stickers", `[{"emoji":"🐶","x":0.2,"y":0.3}]`)
	_ = form.Close()

	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/api/posts", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, body := e.send(t, req, token)
	expectStatus(t, resp, body, http.StatusCreated)
	return decode[map[string]any](t, body)
}

func TestHealthAndAuth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/health", "", nil)
	expectStatus(t, resp, body, http.StatusOK)

	resp, body = env.do(t, http.MethodGet, "/api/auth/me", "", nil)
	expectStatus(t, resp, body, http.StatusUnauthorized)
	if decode[errorEnvelope](t, body).Error.Code != "invalid_token" {
		t.Fatalf("expected invalid_token, got %s", string(body))
	}

	resp, body = env.do(t, http.MethodGet, "/api/auth/me", "bad", nil)
	expectStatus(t, resp, body, http.StatusUnauthorized)

	resp, body = env.do(t, http.MethodGet, "/api/auth/me", "user-a", nil)
	expectStatus(t, resp, body, http.StatusOK)
	me := decode[map[string]any](t, body)
	if me["id"] != "user-a" || me["email"] != "user-a@example.com" {
		t.Fatalf("unexpected me %v", me)
	}
}

func TestSessionRoutesFollowPairing(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/session", "mom", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if got := decode[sessionResponse](t, body).Route; got != "profile_setup" {
		t.Fatalf("expected profile_setup, got %q", got)
	}

	resp, body = env.do(t, http.MethodPut, "/api/profile", "mom", map[string]string{"name": "Mom", "role": "parent"})
	expectStatus(t, resp, body, http.StatusCreated)
	issued := decode[setupResponse](t, body).Invite.Code

	resp, body = env.do(t, http.MethodGet, "/api/session", "mom", nil)
	expectStatus(t, resp, body, http.StatusOK)
	state := decode[sessionResponse](t, body)
	if state.Route != "pairing" || state.Invite == nil || state.Invite.Code != issued {
		t.Fatalf("expected pairing with the issued code, got %s", string(body))
	}

	resp, body = env.do(t, http.MethodPut, "/api/profile", "kid", map[string]string{"name": "Kid", "role": "child"})
	expectStatus(t, resp, body, http.StatusCreated)
	resp, body = env.do(t, http.MethodPost, "/api/rooms/join", "kid", map[string]string{"code": issued})
	expectStatus(t, resp, body, http.StatusCreated)

	for _, uid := range []string{"mom", "kid"} {
		resp, body = env.do(t, http.MethodGet, "/api/session", uid, nil)
		expectStatus(t, resp, body, http.StatusOK)
		state := decode[sessionResponse](t, body)
		if state.Route != "feed" || state.RoomID == "" {
			t.Fatalf("expected feed for %s, got %s", uid, string(body))
		}
	}
}

func TestProfileValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPut, "/api/profile", "mom", map[string]string{"name": " ", "role": "parent"})
	expectStatus(t, resp, body, http.StatusBadRequest)
	if decode[errorEnvelope](t, body).Error.Code != "invalid_name" {
		t.Fatalf("expected invalid_name, got %s", string(body))
	}

	resp, body = env.do(t, http.MethodPut, "/api/profile", "mom", map[string]string{"name": "Mom", "role": "uncle"})
	expectStatus(t, resp, body, http.StatusBadRequest)

	resp, body = env.do(t, http.MethodGet, "/api/profile", "mom", nil)
	expectStatus(t, resp, body, http.StatusNotFound)

	resp, body = env.do(t, http.MethodPut, "/api/profile", "mom", map[string]string{"name": "Mom", "role": "parent"})
	expectStatus(t, resp, body, http.StatusCreated)
	resp, body = env.do(t, http.MethodPut, "/api/profile", "mom", map[string]string{"name": "Mother", "role": "parent"})
	expectStatus(t, resp, body, http.StatusOK)
	if decode[setupResponse](t, body).Invite != nil {
		t.Fatalf("expected no new invite on update, got %s", string(body))
	}
}

func TestJoinRoomErrors(t *testing.T) {
	env := newTestEnv(t)
	env.pair(t, "mom", "kid")

	resp, body := env.do(t, http.MethodPost, "/api/rooms/join", "kid", map[string]string{"code": "ZZZZZZ"})
	expectStatus(t, resp, body, http.StatusNotFound)
	errResp := decode[errorEnvelope](t, body)
	if errResp.Error.Code != "invalid_code" || errResp.Category != "not_found" {
		t.Fatalf("unexpected error %s", string(body))
	}

	resp, body = env.do(t, http.MethodPost, "/api/invite", "mom", nil)
	expectStatus(t, resp, body, http.StatusCreated)
	code := decode[map[string]any](t, body)["code"].(string)

	resp, body = env.do(t, http.MethodPut, "/api/profile", "stranger", map[string]string{"name": "Other", "role": "parent"})
	expectStatus(t, resp, body, http.StatusCreated)
	resp, body = env.do(t, http.MethodPost, "/api/rooms/join", "stranger", map[string]string{"code": code})
	expectStatus(t, resp, body, http.StatusConflict)
	if decode[errorEnvelope](t, body).Error.Code != "room_full" {
		t.Fatalf("expected room_full, got %s", string(body))
	}

	resp, body = env.do(t, http.MethodPost, "/api/rooms/join", "mom", map[string]string{"code": code})
	expectStatus(t, resp, body, http.StatusConflict)
	if decode[errorEnvelope](t, body).Error.Code != "self_invite" {
		t.Fatalf("expected self_invite, got %s", string(body))
	}

	resp, body = env.do(t, http.MethodPost, "/api/rooms/join", "kid", map[string]string{})
	expectStatus(t, resp, body, http.StatusBadRequest)

	resp, body = env.do(t, http.MethodGet, "/api/rooms/me", "stranger", nil)
	expectStatus(t, resp, body, http.StatusNotFound)
	if decode[errorEnvelope](t, body).Error.Code != "not_paired" {
		t.Fatalf("expected not_paired, got %s", string(body))
	}
}

func TestPostsFlow(t *testing.T) {
	env := newTestEnv(t)
	roomID := env.pair(t, "mom", "kid")

	post := env.createPost(t, "mom", "<b>first</b> day")
	if post["caption"] != "first day" || post["room_id"] != roomID {
		t.Fatalf("unexpected post %v", post)
	}
	if !strings.HasPrefix(post["front_image_url"].(string), "https://blob.example/rooms/"+roomID+"/posts/") {
		t.Fatalf("unexpected front url %v", post["front_image_url"])
	}
	if env.blobs.Len() != 2 {
		t.Fatalf("expected 2 stored objects, got %d", env.blobs.Len())
	}
	postID := post["id"].(string)

	resp, body := env.do(t, http.MethodGet, "/api/posts?limit=10", "kid", nil)
	expectStatus(t, resp, body, http.StatusOK)
	feed := decode[struct {
		Items      []map[string]any `json:"items"`
		NextBefore *time.Time       `json:"next_before"`
	}](t, body)
	if len(feed.Items) != 1 || feed.NextBefore != nil {
		t.Fatalf("unexpected feed %s", string(body))
	}

	resp, body = env.do(t, http.MethodGet, "/api/posts?before_id="+postID, "kid", nil)
	expectStatus(t, resp, body, http.StatusBadRequest)

	resp, body = env.do(t, http.MethodGet, "/api/posts/archive?tz=UTC", "kid", nil)
	expectStatus(t, resp, body, http.StatusOK)
	archive := decode[struct {
		Days []struct {
			Posts []map[string]any `json:"posts"`
		} `json:"days"`
	}](t, body)
	if len(archive.Days) != 1 || len(archive.Days[0].Posts) != 1 {
		t.Fatalf("unexpected archive %s", string(body))
	}

	resp, body = env.do(t, http.MethodGet, "/api/posts/archive?month=2025-13", "kid", nil)
	expectStatus(t, resp, body, http.StatusBadRequest)

	resp, body = env.do(t, http.MethodPatch, "/api/posts/"+postID, "kid", map[string]string{"caption": "mine now"})
	expectStatus(t, resp, body, http.StatusForbidden)

	resp, body = env.do(t, http.MethodPatch, "/api/posts/"+postID, "mom", map[string]string{"caption": "edited"})
	expectStatus(t, resp, body, http.StatusOK)
	if decode[map[string]any](t, body)["caption"] != "edited" {
		t.Fatalf("expected edited caption, got %s", string(body))
	}

	resp, body = env.do(t, http.MethodDelete, "/api/posts/"+postID, "mom", nil)
	expectStatus(t, resp, body, http.StatusNoContent)
	if env.blobs.Len() != 0 {
		t.Fatalf("expected media deleted, got %d objects", env.blobs.Len())
	}

	resp, body = env.do(t, http.MethodGet, "/api/posts/"+postID, "mom", nil)
	expectStatus(t, resp, body, http.StatusNotFound)
}

func TestCreatePostRequiresPairing(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodPut, "/api/profile", "solo", map[string]string{"name": "Solo", "role": "parent"})
	expectStatus(t, resp, body, http.StatusCreated)

	resp, body = env.do(t, http.MethodGet, "/api/posts", "solo", nil)
	expectStatus(t, resp, body, http.StatusConflict)
	if decode[errorEnvelope](t, body).Error.Code != "not_paired" {
		t.Fatalf("expected not_paired, got %s", string(body))
	}
}

func TestDeleteAccountKeepsSharedRoom(t *testing.T) {
	env := newTestEnv(t)
	roomID := env.pair(t, "mom", "kid")
	env.createPost(t, "mom", "hello")

	resp, body := env.do(t, http.MethodDelete, "/api/account", "kid", nil)
	expectStatus(t, resp, body, http.StatusOK)
	report := decode[accountdomain.DeletionReport](t, body)
	if report.Status != accountdomain.StatusCompleted || len(report.DeletedRoomIDs) != 0 {
		t.Fatalf("unexpected report %s", string(body))
	}

	room, err := env.store.GetRoom(context.Background(), roomID)
	if err != nil {
		t.Fatalf("expected room to survive, got %v", err)
	}
	if len(room.Participants) != 1 || room.Participants[0] != "mom" {
		t.Fatalf("expected only mom left, got %v", room.Participants)
	}
	if env.blobs.Len() != 2 {
		t.Fatalf("expected media kept, got %d", env.blobs.Len())
	}

	resp, body = env.do(t, http.MethodGet, "/api/session", "kid", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if got := decode[sessionResponse](t, body).Route; got != "signed_out" {
		t.Fatalf("expected signed_out, got %q", got)
	}

	resp, body = env.do(t, http.MethodDelete, "/api/account", "mom", nil)
	expectStatus(t, resp, body, http.StatusOK)
	report = decode[accountdomain.DeletionReport](t, body)
	if len(report.DeletedRoomIDs) != 1 || report.DeletedRoomIDs[0] != roomID || report.MediaDeleted != 2 {
		t.Fatalf("expected the room and its media deleted, got %s", string(body))
	}
	if env.blobs.Len() != 0 {
		t.Fatalf("expected no media left, got %d", env.blobs.Len())
	}
	if len(env.provider.deleted) != 2 {
		t.Fatalf("expected both identities deleted, got %v", env.provider.deleted)
	}
}

func TestDeleteAccountRequiresRecentLogin(t *testing.T) {
	env := newTestEnv(t)
	env.pair(t, "mom", "kid")
	env.provider.stale["kid"] = true

	resp, body := env.do(t, http.MethodDelete, "/api/account", "kid", nil)
	expectStatus(t, resp, body, http.StatusConflict)
	errResp := decode[struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		Deletion *accountdomain.DeletionReport `json:"deletion"`
	}](t, body)
	if errResp.Error.Code != "reauthentication_required" || errResp.Deletion == nil {
		t.Fatalf("unexpected response %s", string(body))
	}
	if errResp.Deletion.Status != accountdomain.StatusAwaitingReauth {
		t.Fatalf("expected awaiting_reauth, got %q", errResp.Deletion.Status)
	}

	resp, body = env.do(t, http.MethodGet, "/api/session", "kid", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if got := decode[sessionResponse](t, body).Route; got != "account_deletion" {
		t.Fatalf("expected account_deletion, got %q", got)
	}

	resp, body = env.do(t, http.MethodGet, "/api/account/deletion", "kid", nil)
	expectStatus(t, resp, body, http.StatusOK)

	// Writes are refused until the deletion finishes.
	resp, body = env.do(t, http.MethodPut, "/api/profile", "kid", map[string]string{"name": "Kid", "role": "child"})
	expectStatus(t, resp, body, http.StatusConflict)
	if code := decode[errorEnvelope](t, body).Error.Code; code != "deletion_pending" {
		t.Fatalf("expected deletion_pending, got %q", code)
	}
	resp, body = env.do(t, http.MethodPost, "/api/invite", "kid", nil)
	expectStatus(t, resp, body, http.StatusConflict)
	if code := decode[errorEnvelope](t, body).Error.Code; code != "deletion_pending" {
		t.Fatalf("expected deletion_pending for invite, got %q", code)
	}
	resp, body = env.do(t, http.MethodGet, "/api/invite", "mom", nil)
	expectStatus(t, resp, body, http.StatusOK)
	code := decode[struct {
		Code string `json:"code"`
	}](t, body).Code
	resp, body = env.do(t, http.MethodPost, "/api/rooms/join", "kid", map[string]string{"code": code})
	expectStatus(t, resp, body, http.StatusConflict)
	if got := decode[errorEnvelope](t, body).Error.Code; got != "deletion_pending" {
		t.Fatalf("expected deletion_pending for join, got %q", got)
	}
	if _, err := env.store.GetUser(context.Background(), "kid"); err == nil {
		t.Fatalf("expected no profile recreated")
	}

	delete(env.provider.stale, "kid")
	resp, body = env.do(t, http.MethodDelete, "/api/account", "kid", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if decode[accountdomain.DeletionReport](t, body).Status != accountdomain.StatusCompleted {
		t.Fatalf("expected completed, got %s", string(body))
	}
	if _, err := env.store.GetUser(context.Background(), "kid"); err == nil {
		t.Fatalf("expected profile gone after resume")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/health", "", nil)

	resp, body := env.do(t, http.MethodGet, "/metrics", "", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(string(body), `test_http_requests_total{method="GET",route="/api/health",status="200"}`) {
		t.Fatalf("expected request counter in metrics output")
	}
}
