package user

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrInvalidName  = errors.New("invalid name")
	ErrInvalidRole  = errors.New("invalid role")

	// ErrDeletionPending refuses writes for an account that is being deleted.
	ErrDeletionPending = errors.New("account deletion pending")
)
