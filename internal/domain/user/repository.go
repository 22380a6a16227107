package user

import (
	"context"
	"fmt"
)

type Repository interface {
	GetUser(ctx context.Context, userID string) (*User, error)
	// CreateUser fails with ErrUserExists when the document already exists.
	CreateUser(ctx context.Context, user *User) error
	UpdateProfile(ctx context.Context, userID, name string, role Role) error
}

// DeletionChecker reports whether an account deletion was started for userID.
type DeletionChecker interface {
	DeletionPending(ctx context.Context, userID string) (bool, error)
}

// CheckNotDeleting fails with ErrDeletionPending when checker knows of a
// deletion for userID. A nil checker allows every write.
func CheckNotDeleting(ctx context.Context, checker DeletionChecker, userID string) error {
	if checker == nil {
		return nil
	}
	pending, err := checker.DeletionPending(ctx, userID)
	if err != nil {
		return fmt.Errorf("check account deletion: %w", err)
	}
	if pending {
		return ErrDeletionPending
	}
	return nil
}
