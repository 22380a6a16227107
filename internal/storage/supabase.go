package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Supabase stores objects through the Supabase storage REST API in a public
// bucket.
type Supabase struct {
	baseURL    string
	bucket     string
	serviceKey string
	client     *http.Client
	prefix     prefix
}

func NewSupabase(baseURL, bucket, serviceKey string, timeout time.Duration) *Supabase {
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Supabase{
		baseURL:    baseURL,
		bucket:     bucket,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: timeout},
		prefix:     newPrefix(baseURL + "/storage/v1/object/public/" + bucket),
	}
}

func (s *Supabase) objectURL(path string) string {
	return s.baseURL + "/storage/v1/object/" + s.bucket + "/" + escapePath(path)
}

func (s *Supabase) Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(path), body)
	if err != nil {
		return "", err
	}
	s.authorize(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("supabase upload: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return s.prefix.url(path), nil
}

func (s *Supabase) Owns(rawURL string) bool {
	return s.prefix.owns(rawURL)
}

func (s *Supabase) Key(rawURL string) (string, error) {
	return s.prefix.key(rawURL)
}

func (s *Supabase) Delete(ctx context.Context, rawURL string) (bool, error) {
	key, err := s.prefix.key(rawURL)
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(key), nil)
	if err != nil {
		return false, err
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("supabase delete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	// Storage reports missing objects as 400 with a not_found error body.
	if resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(string(msg)), "not_found") {
		return false, nil
	}
	return false, fmt.Errorf("supabase delete: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}

func (s *Supabase) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
}
