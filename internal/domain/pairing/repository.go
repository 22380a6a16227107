package pairing

import (
	"context"

	userdomain "dondog-go/internal/domain/user"
)

type Repository interface {
	GetUser(ctx context.Context, userID string) (*userdomain.User, error)

	InviteCodeExists(ctx context.Context, code string) (bool, error)
	// CreateInviteCode is a create-if-absent write; it fails with ErrCodeTaken.
	CreateInviteCode(ctx context.Context, invite *InviteCode) error
	// GetInviteCode fails with ErrInvalidCode when no document exists.
	GetInviteCode(ctx context.Context, code string) (*InviteCode, error)
	ListInviteCodesByInviter(ctx context.Context, inviterUID string) ([]InviteCode, error)

	// GetRoom fails with ErrRoomNotFound.
	GetRoom(ctx context.Context, roomID string) (*Room, error)
	// AddParticipant adds userID to the room's participant set and sets the
	// user's roomId in one atomic write. Adding an existing member is a no-op.
	// It fails with ErrRoomFull when the set would exceed MaxParticipants and
	// with ErrPairingConflict when the user already points at another room.
	AddParticipant(ctx context.Context, roomID, userID string) error
	// CreateRoom creates the room if its id is free (ErrRoomExists otherwise)
	// and sets roomId on every participant in the same atomic write. It fails
	// with ErrPairingConflict when a participant already has a roomId.
	CreateRoom(ctx context.Context, room *Room) error
}
