package account

import (
	"context"
	"time"

	pairingdomain "dondog-go/internal/domain/pairing"
	userdomain "dondog-go/internal/domain/user"
)

type Repository interface {
	GetUser(ctx context.Context, userID string) (*userdomain.User, error)
	// ListRoomIDsByParticipant is the reverse lookup of every room whose
	// participants contain userID.
	ListRoomIDsByParticipant(ctx context.Context, userID string) ([]string, error)
	// DetachUser deletes the user document and every invite code authored by
	// the user, and removes the user from the participants of roomIDs, all in
	// one atomic write. Missing documents are not an error.
	DetachUser(ctx context.Context, userID string, roomIDs []string) error

	// GetRoom fails with pairing.ErrRoomNotFound.
	GetRoom(ctx context.Context, roomID string) (*pairingdomain.Room, error)
	// ListPostDocuments returns the room's post documents as generic maps so
	// media references can be collected from any field.
	ListPostDocuments(ctx context.Context, roomID string) ([]map[string]any, error)
	// DeleteRoomPosts removes every post of the room in one batch.
	DeleteRoomPosts(ctx context.Context, roomID string) error
	DeleteRoom(ctx context.Context, roomID string) error

	// GetDeletion fails with ErrDeletionNotFound.
	GetDeletion(ctx context.Context, userID string) (*AccountDeletion, error)
	SaveDeletion(ctx context.Context, deletion *AccountDeletion) error
}

type MediaStore interface {
	// Owns reports whether url points into this blob store.
	Owns(url string) bool
	// Key returns the object path behind url.
	Key(url string) (string, error)
	// Delete removes the object behind url and reports whether it existed.
	// A missing object is not an error.
	Delete(ctx context.Context, url string) (bool, error)
}

type IdentityProvider interface {
	// DeleteIdentity fails with ErrRecentLoginRequired when authenticatedAt
	// is too old for a destructive operation.
	DeleteIdentity(ctx context.Context, userID string, authenticatedAt time.Time) error
}

// Guard marks users with a deletion running in this process. Begin reports
// false when a deletion for userID is already marked.
type Guard interface {
	Begin(userID string) bool
	End(userID string)
}
