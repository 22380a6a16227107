package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const firebaseStorageHost = "https://firebasestorage.googleapis.com/v0/b/"

// GCS stores objects in a Firebase Storage bucket and hands out token-based
// download URLs, the same links the Firebase SDKs produce.
type GCS struct {
	client *storage.Client
	bucket string
	prefix prefix
}

func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{
		client: client,
		bucket: bucket,
		prefix: newPrefix(firebaseStorageHost + bucket + "/o"),
	}, nil
}

func (g *GCS) Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	token := uuid.NewString()
	w := g.client.Bucket(g.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object: %w", err)
	}

	// Firebase download URLs escape the whole object path, slashes included.
	return string(g.prefix) + url.PathEscape(path) + "?alt=media&token=" + token, nil
}

func (g *GCS) Owns(rawURL string) bool {
	return g.prefix.owns(rawURL)
}

func (g *GCS) Key(rawURL string) (string, error) {
	key, err := g.prefix.key(rawURL)
	if err != nil {
		return "", err
	}
	return strings.TrimLeft(key, "/"), nil
}

func (g *GCS) Delete(ctx context.Context, rawURL string) (bool, error) {
	key, err := g.Key(rawURL)
	if err != nil {
		return false, err
	}
	err = g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
