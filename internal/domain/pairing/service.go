package pairing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	userdomain "dondog-go/internal/domain/user"
	"dondog-go/internal/events"
	"github.com/google/uuid"
)

const (
	defaultInviteTTL      = 24 * time.Hour
	defaultCodeAttempts   = 10
	defaultRoomIDAttempts = 5
)

// Join outcomes reported to Metrics.
const (
	OutcomeJoinedExisting = "joined_existing"
	OutcomeCreatedRoom    = "created_room"
)

type Metrics interface {
	ObserveJoin(outcome string)
	ObserveInviteIssued()
}

type Options struct {
	InviteTTL      time.Duration
	CodeAttempts   int
	RoomIDAttempts int
	// Deletions refuses invites and joins for accounts being deleted.
	Deletions userdomain.DeletionChecker
}

type Service struct {
	repo      Repository
	events    events.Emitter
	metrics   Metrics
	deletions userdomain.DeletionChecker

	inviteTTL      time.Duration
	codeAttempts   int
	roomIDAttempts int

	now       func() time.Time
	newCode   func() (string, error)
	newRoomID func() string
}

func NewService(repo Repository, opts Options, emitter events.Emitter, metrics Metrics) *Service {
	if opts.InviteTTL <= 0 {
		opts.InviteTTL = defaultInviteTTL
	}
	if opts.CodeAttempts <= 0 {
		opts.CodeAttempts = defaultCodeAttempts
	}
	if opts.RoomIDAttempts <= 0 {
		opts.RoomIDAttempts = defaultRoomIDAttempts
	}
	if emitter == nil {
		emitter = events.Noop{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Service{
		repo:           repo,
		events:         emitter,
		metrics:        metrics,
		deletions:      opts.Deletions,
		inviteTTL:      opts.InviteTTL,
		codeAttempts:   opts.CodeAttempts,
		roomIDAttempts: opts.RoomIDAttempts,
		now:            time.Now,
		newCode:        generateCode,
		newRoomID:      uuid.NewString,
	}
}

// GenerateUniqueCode returns a code that did not exist at lookup time. It
// does not persist anything.
func (s *Service) GenerateUniqueCode(ctx context.Context) (string, error) {
	code, _, err := generateUniqueCode(ctx, s.repo, s.newCode, s.codeAttempts)
	return code, err
}

// IssueInviteCode persists a fresh code for inviterUID that expires after
// the configured TTL.
func (s *Service) IssueInviteCode(ctx context.Context, inviterUID string) (*InviteCode, error) {
	if inviterUID == "" {
		return nil, fmt.Errorf("inviter id is required")
	}
	if err := userdomain.CheckNotDeleting(ctx, s.deletions, inviterUID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUser(ctx, inviterUID); err != nil {
		if errors.Is(err, userdomain.ErrUserNotFound) {
			return nil, ErrProfileRequired
		}
		return nil, fmt.Errorf("get inviter: %w", err)
	}

	remaining := s.codeAttempts
	for remaining > 0 {
		code, used, err := generateUniqueCode(ctx, s.repo, s.newCode, remaining)
		if err != nil {
			return nil, err
		}
		remaining -= used

		now := s.now().UTC()
		expire := now.Add(s.inviteTTL)
		invite := InviteCode{
			Code:       code,
			InviterUID: inviterUID,
			ExpireDate: &expire,
			CreatedAt:  now,
		}
		err = s.repo.CreateInviteCode(ctx, &invite)
		if errors.Is(err, ErrCodeTaken) {
			// Another issuer took the code between the lookup and the write.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create invite code: %w", err)
		}

		s.metrics.ObserveInviteIssued()
		s.events.Emit(ctx, events.RKInviteIssued, events.InviteIssued{
			Code:       invite.Code,
			InviterUID: inviterUID,
			ExpireDate: expire,
		})
		return &invite, nil
	}

	return nil, ErrGenerationExhausted
}

// ActiveInviteCode returns the newest unexpired code of inviterUID, issuing
// a new one when none is left.
func (s *Service) ActiveInviteCode(ctx context.Context, inviterUID string) (*InviteCode, error) {
	codes, err := s.repo.ListInviteCodesByInviter(ctx, inviterUID)
	if err != nil {
		return nil, fmt.Errorf("list invite codes: %w", err)
	}

	now := s.now()
	var active *InviteCode
	for i := range codes {
		if codes[i].Expired(now) {
			continue
		}
		if active == nil || codes[i].CreatedAt.After(active.CreatedAt) {
			active = &codes[i]
		}
	}
	if active != nil {
		return active, nil
	}

	return s.IssueInviteCode(ctx, inviterUID)
}

func (s *Service) JoinRoom(ctx context.Context, code, userID string) (*JoinResult, error) {
	result, err := s.joinRoom(ctx, strings.TrimSpace(code), userID)
	switch {
	case err != nil:
		s.metrics.ObserveJoin(string(CategoryOf(err)))
	case result.Created:
		s.metrics.ObserveJoin(OutcomeCreatedRoom)
	default:
		s.metrics.ObserveJoin(OutcomeJoinedExisting)
	}
	return result, err
}

func (s *Service) joinRoom(ctx context.Context, code, userID string) (*JoinResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if !ValidCode(code) {
		return nil, ErrInvalidCode
	}

	invite, err := s.repo.GetInviteCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if invite.Expired(s.now()) {
		return nil, ErrCodeExpired
	}
	inviterUID := strings.TrimSpace(invite.InviterUID)
	if inviterUID == "" {
		return nil, ErrCorruptInviteData
	}
	if inviterUID == userID {
		return nil, ErrSelfInvite
	}
	if err := userdomain.CheckNotDeleting(ctx, s.deletions, userID); err != nil {
		return nil, err
	}
	// An inviter whose deletion started is treated as already gone.
	switch err := userdomain.CheckNotDeleting(ctx, s.deletions, inviterUID); {
	case errors.Is(err, userdomain.ErrDeletionPending):
		return nil, ErrInviterNotFound
	case err != nil:
		return nil, err
	}

	// A conflict means one side was paired between our reads and the write;
	// the second pass sees the new state and usually joins that room.
	for attempt := 0; attempt < 2; attempt++ {
		joiner, err := s.repo.GetUser(ctx, userID)
		if err != nil {
			if errors.Is(err, userdomain.ErrUserNotFound) {
				return nil, ErrProfileRequired
			}
			return nil, fmt.Errorf("get joiner: %w", err)
		}

		inviter, err := s.repo.GetUser(ctx, inviterUID)
		if err != nil {
			if errors.Is(err, userdomain.ErrUserNotFound) {
				return nil, ErrInviterNotFound
			}
			return nil, fmt.Errorf("get inviter: %w", err)
		}

		if joiner.RoomID != "" && joiner.RoomID != inviter.RoomID {
			return nil, ErrAlreadyInRoom
		}

		var result *JoinResult
		if inviter.RoomID != "" {
			result, err = s.joinExistingRoom(ctx, inviter.RoomID, userID)
		} else {
			result, err = s.createRoom(ctx, inviterUID, userID)
		}
		if errors.Is(err, ErrPairingConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.events.Emit(ctx, events.RKRoomJoined, events.RoomJoined{
			RoomID:       result.RoomID,
			UserID:       userID,
			InviterUID:   inviterUID,
			Participants: result.Participants,
			Created:      result.Created,
			At:           s.now().UTC(),
		})
		return result, nil
	}

	return nil, ErrAlreadyInRoom
}

func (s *Service) joinExistingRoom(ctx context.Context, roomID, userID string) (*JoinResult, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil, fmt.Errorf("%w: inviter room %s is missing", ErrCorruptInviteData, roomID)
		}
		return nil, fmt.Errorf("get room: %w", err)
	}

	participants := append([]string(nil), room.Participants...)
	if !room.HasParticipant(userID) {
		if len(room.Participants) >= MaxParticipants {
			return nil, ErrRoomFull
		}
		participants = append(participants, userID)
	}

	if err := s.repo.AddParticipant(ctx, room.ID, userID); err != nil {
		return nil, err
	}

	return &JoinResult{RoomID: room.ID, Participants: participants}, nil
}

func (s *Service) createRoom(ctx context.Context, inviterUID, userID string) (*JoinResult, error) {
	for i := 0; i < s.roomIDAttempts; i++ {
		room := Room{
			ID:           s.newRoomID(),
			Participants: []string{inviterUID, userID},
			CreatedAt:    s.now().UTC(),
		}
		err := s.repo.CreateRoom(ctx, &room)
		if errors.Is(err, ErrRoomExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &JoinResult{RoomID: room.ID, Participants: room.Participants, Created: true}, nil
	}
	return nil, ErrGenerationExhausted
}

// GetRoom returns the room userID currently belongs to.
func (s *Service) GetRoom(ctx context.Context, userID string) (*Room, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, userdomain.ErrUserNotFound) {
			return nil, ErrProfileRequired
		}
		return nil, err
	}
	if u.RoomID == "" {
		return nil, ErrNotPaired
	}
	return s.repo.GetRoom(ctx, u.RoomID)
}

type noopMetrics struct{}

func (noopMetrics) ObserveJoin(string) {}

func (noopMetrics) ObserveInviteIssued() {}
