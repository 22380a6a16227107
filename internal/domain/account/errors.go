package account

import "errors"

var (
	ErrReauthenticationRequired = errors.New("reauthentication required")
	ErrDeletionIncomplete       = errors.New("deletion incomplete, retry or contact support")
	ErrDeletionInProgress       = errors.New("account deletion already in progress")
	ErrDeletionNotFound         = errors.New("account deletion not found")

	// ErrRecentLoginRequired is returned by an IdentityProvider that refuses
	// to delete an identity whose last sign-in is too old.
	ErrRecentLoginRequired = errors.New("identity requires recent login")
)
