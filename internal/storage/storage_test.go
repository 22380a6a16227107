package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestPrefixKeyRoundTrip(t *testing.T) {
	p := newPrefix("https://cdn.example/media/")
	url := p.url("rooms/r 1/posts/p1/front.jpg")
	if url != "https://cdn.example/media/rooms/r%201/posts/p1/front.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
	key, err := p.key(url + "?token=abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if key != "rooms/r 1/posts/p1/front.jpg" {
		t.Fatalf("unexpected key %q", key)
	}
	if _, err := p.key("https://other.example/x.jpg"); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("expected ErrNotOwned, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory("")
	ctx := context.Background()

	url, err := store.Upload(ctx, "rooms/r1/posts/p1/front.jpg", "image/jpeg", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !store.Owns(url) || store.Owns("https://elsewhere.example/front.jpg") {
		t.Fatalf("unexpected ownership for %q", url)
	}
	if key, err := store.Key(url); err != nil || key != "rooms/r1/posts/p1/front.jpg" {
		t.Fatalf("unexpected key %q, %v", key, err)
	}
	obj, ok := store.Get("rooms/r1/posts/p1/front.jpg")
	if !ok || string(obj.Data) != "data" || obj.ContentType != "image/jpeg" {
		t.Fatalf("unexpected object %+v", obj)
	}

	if existed, err := store.Delete(ctx, url); err != nil || !existed {
		t.Fatalf("expected existing object deleted, got %v, %v", existed, err)
	}
	if existed, err := store.Delete(ctx, url); err != nil || existed {
		t.Fatalf("deleting a missing object must succeed and report absence, got %v, %v", existed, err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestSupabaseStore(t *testing.T) {
	var (
		mu      sync.Mutex
		objects = map[string]string{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer service-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		key := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/media/")
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodPost:
			data, _ := io.ReadAll(r.Body)
			objects[key] = string(data)
			_, _ = w.Write([]byte(`{"Key":"media/` + key + `"}`))
		case http.MethodDelete:
			if _, ok := objects[key]; !ok {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"statusCode":"404","error":"not_found","message":"Object not found"}`))
				return
			}
			delete(objects, key)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	store := NewSupabase(server.URL, "media", "service-key", 0)
	ctx := context.Background()

	url, err := store.Upload(ctx, "rooms/r1/posts/p1/back.png", "image/png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if url != server.URL+"/storage/v1/object/public/media/rooms/r1/posts/p1/back.png" {
		t.Fatalf("unexpected url %q", url)
	}
	if objects["rooms/r1/posts/p1/back.png"] != "png" {
		t.Fatalf("expected object uploaded, got %v", objects)
	}

	if existed, err := store.Delete(ctx, url); err != nil || !existed {
		t.Fatalf("expected existing object deleted, got %v, %v", existed, err)
	}
	if existed, err := store.Delete(ctx, url); err != nil || existed {
		t.Fatalf("deleting a missing object must succeed and report absence, got %v, %v", existed, err)
	}
	if len(objects) != 0 {
		t.Fatalf("expected object deleted")
	}
}

func TestS3DeleteReportsMissingObjects(t *testing.T) {
	var (
		mu      sync.Mutex
		objects = map[string]bool{}
		deletes int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/media/")
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			_, _ = io.Copy(io.Discard, r.Body)
			objects[key] = true
		case http.MethodHead:
			if !objects[key] {
				w.WriteHeader(http.StatusNotFound)
				return
			}
		case http.MethodDelete:
			deletes++
			delete(objects, key)
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	store, err := NewS3(context.Background(), S3Config{
		Bucket:          "media",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	ctx := context.Background()

	url, err := store.Upload(ctx, "rooms/r1/posts/p1/front.jpg", "image/jpeg", strings.NewReader("jpeg"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if key, err := store.Key(url); err != nil || key != "rooms/r1/posts/p1/front.jpg" {
		t.Fatalf("unexpected key %q, %v", key, err)
	}

	if existed, err := store.Delete(ctx, url); err != nil || !existed {
		t.Fatalf("expected existing object deleted, got %v, %v", existed, err)
	}
	if existed, err := store.Delete(ctx, url); err != nil || existed {
		t.Fatalf("expected missing object reported, got %v, %v", existed, err)
	}
	if deletes != 1 {
		t.Fatalf("expected one delete request, got %d", deletes)
	}
}
