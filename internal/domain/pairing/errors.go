package pairing

import (
	"errors"

	userdomain "dondog-go/internal/domain/user"
)

var (
	ErrInvalidCode         = errors.New("invalid invite code")
	ErrCodeExpired         = errors.New("invite code expired")
	ErrCorruptInviteData   = errors.New("corrupt invite data")
	ErrInviterNotFound     = errors.New("inviter not found")
	ErrProfileRequired     = errors.New("profile required")
	ErrSelfInvite          = errors.New("cannot redeem own invite code")
	ErrAlreadyInRoom       = errors.New("already in another room")
	ErrRoomFull            = errors.New("room is full")
	ErrRoomNotFound        = errors.New("room not found")
	ErrNotPaired           = errors.New("user is not paired")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrGenerationExhausted = errors.New("identifier generation exhausted")

	// Conditional write conflicts reported by repositories.
	ErrCodeTaken       = errors.New("invite code already exists")
	ErrRoomExists      = errors.New("room id already exists")
	ErrPairingConflict = errors.New("participant paired concurrently")
)

type Category string

const (
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryPermission Category = "permission"
	CategoryNetwork    Category = "network"
)

// CategoryOf classifies a pairing failure. Anything unrecognized is treated
// as a network or backend failure.
func CategoryOf(err error) Category {
	switch {
	case errors.Is(err, ErrInvalidCode),
		errors.Is(err, ErrInviterNotFound),
		errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrProfileRequired),
		errors.Is(err, ErrNotPaired):
		return CategoryNotFound
	case errors.Is(err, ErrCodeExpired),
		errors.Is(err, ErrCorruptInviteData),
		errors.Is(err, ErrSelfInvite),
		errors.Is(err, ErrAlreadyInRoom),
		errors.Is(err, ErrRoomFull),
		errors.Is(err, ErrGenerationExhausted),
		errors.Is(err, userdomain.ErrDeletionPending):
		return CategoryValidation
	case errors.Is(err, ErrPermissionDenied):
		return CategoryPermission
	default:
		return CategoryNetwork
	}
}

// Message returns the text shown under the code entry field.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return "This invite code does not exist."
	case errors.Is(err, ErrCodeExpired):
		return "This invite code has expired. Ask for a new one."
	case errors.Is(err, ErrCorruptInviteData):
		return "This invite code is damaged. Ask for a new one."
	case errors.Is(err, ErrInviterNotFound):
		return "The person who shared this code no longer has an account."
	case errors.Is(err, ErrProfileRequired):
		return "Finish setting up your profile first."
	case errors.Is(err, ErrSelfInvite):
		return "You cannot use your own invite code."
	case errors.Is(err, ErrAlreadyInRoom):
		return "You are already connected to someone."
	case errors.Is(err, ErrRoomFull):
		return "This family room is already full."
	case errors.Is(err, ErrGenerationExhausted):
		return "Could not create a room right now. Please try again."
	case errors.Is(err, userdomain.ErrDeletionPending):
		return "This account is being deleted."
	case errors.Is(err, ErrPermissionDenied):
		return "You do not have permission to do that."
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrNotPaired):
		return "You are not connected to anyone yet."
	default:
		return "Something went wrong. Check your connection and try again."
	}
}
