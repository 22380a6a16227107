package posts

import (
	"context"
	"io"
	"time"

	userdomain "dondog-go/internal/domain/user"
)

type Repository interface {
	GetUser(ctx context.Context, userID string) (*userdomain.User, error)

	CreatePost(ctx context.Context, post *Post) error
	// GetPost fails with ErrPostNotFound.
	GetPost(ctx context.Context, postID string) (*Post, error)
	// ListPosts returns up to limit posts of the room that come after before
	// in feed order, newest first. A zero cursor means no upper bound.
	ListPosts(ctx context.Context, roomID string, before Cursor, limit int) ([]Post, error)
	// ListPostsBetween returns the posts created in [from, to), oldest first.
	ListPostsBetween(ctx context.Context, roomID string, from, to time.Time) ([]Post, error)
	UpdatePost(ctx context.Context, post *Post) error
	DeletePost(ctx context.Context, postID string) error
}

type BlobStore interface {
	// Upload stores body at path and returns its download URL.
	Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error)
	Owns(url string) bool
	Key(url string) (string, error)
	Delete(ctx context.Context, url string) (bool, error)
}
