// Package storage holds the blob store drivers for post media.
package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
)

var ErrNotOwned = errors.New("url does not belong to this blob store")

type Store interface {
	// Upload writes body to path and returns the download URL.
	Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error)
	// Owns reports whether url points into this store.
	Owns(url string) bool
	// Key returns the object path behind url.
	Key(url string) (string, error)
	// Delete removes the object behind url and reports whether it existed.
	// A missing object is not an error.
	Delete(ctx context.Context, url string) (bool, error)
}

// prefix maps object paths to public URLs that share one prefix.
type prefix string

func newPrefix(base string) prefix {
	return prefix(strings.TrimRight(base, "/") + "/")
}

func (p prefix) url(path string) string {
	return string(p) + escapePath(path)
}

func (p prefix) owns(rawURL string) bool {
	return len(p) > 1 && strings.HasPrefix(rawURL, string(p))
}

// key returns the object path of rawURL, dropping any query string.
func (p prefix) key(rawURL string) (string, error) {
	if !p.owns(rawURL) {
		return "", ErrNotOwned
	}
	rest := strings.TrimPrefix(rawURL, string(p))
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	return url.PathUnescape(rest)
}

func escapePath(path string) string {
	parts := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
