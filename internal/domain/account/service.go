package account

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	pairingdomain "dondog-go/internal/domain/pairing"
	userdomain "dondog-go/internal/domain/user"
	"dondog-go/internal/events"
	"dondog-go/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const defaultMediaConcurrency = 8

// Deletion outcomes reported to Metrics.
const (
	OutcomeCompleted      = "completed"
	OutcomeIncomplete     = "incomplete"
	OutcomeAwaitingReauth = "awaiting_reauth"
	OutcomeInProgress     = "in_progress"
	OutcomeFailed         = "failed"
)

type Metrics interface {
	ObserveDeletion(outcome string)
	AddMediaDeleted(count int)
}

type Options struct {
	MediaConcurrency int
}

type Service struct {
	repo     Repository
	media    MediaStore
	identity IdentityProvider
	guard    Guard
	events   events.Emitter
	metrics  Metrics
	log      logger.Logger

	mediaConcurrency int
	now              func() time.Time
}

func NewService(repo Repository, media MediaStore, identity IdentityProvider, guard Guard, emitter events.Emitter, metrics Metrics, log logger.Logger, opts Options) *Service {
	if opts.MediaConcurrency <= 0 {
		opts.MediaConcurrency = defaultMediaConcurrency
	}
	if guard == nil {
		guard = &localGuard{active: make(map[string]struct{})}
	}
	if emitter == nil {
		emitter = events.Noop{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = logger.Discard()
	}

	return &Service{
		repo:             repo,
		media:            media,
		identity:         identity,
		guard:            guard,
		events:           emitter,
		metrics:          metrics,
		log:              log,
		mediaConcurrency: opts.MediaConcurrency,
		now:              time.Now,
	}
}

// DeleteAccount removes every trace of userID and finally its identity. It
// resumes from the stored checkpoint when an earlier run stopped half way.
// The returned report is non-nil whenever a checkpoint exists, including on
// ErrReauthenticationRequired and ErrDeletionIncomplete.
func (s *Service) DeleteAccount(ctx context.Context, userID string, authenticatedAt time.Time) (*DeletionReport, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if !s.guard.Begin(userID) {
		s.metrics.ObserveDeletion(OutcomeInProgress)
		return nil, ErrDeletionInProgress
	}
	defer s.guard.End(userID)

	deletion, err := s.repo.GetDeletion(ctx, userID)
	switch {
	case errors.Is(err, ErrDeletionNotFound):
		now := s.now().UTC()
		deletion = &AccountDeletion{
			UserID:    userID,
			Status:    StatusDetaching,
			StartedAt: now,
			UpdatedAt: now,
		}
	case err != nil:
		s.metrics.ObserveDeletion(OutcomeFailed)
		return nil, fmt.Errorf("get deletion checkpoint: %w", err)
	}

	if deletion.Completed() {
		return reportOf(deletion), nil
	}
	deletion.Attempts++

	report, err := s.run(ctx, deletion, authenticatedAt)
	switch {
	case err == nil:
		s.metrics.ObserveDeletion(OutcomeCompleted)
	case errors.Is(err, ErrReauthenticationRequired):
		s.metrics.ObserveDeletion(OutcomeAwaitingReauth)
	case errors.Is(err, ErrDeletionIncomplete):
		s.metrics.ObserveDeletion(OutcomeIncomplete)
	default:
		s.metrics.ObserveDeletion(OutcomeFailed)
	}
	return report, err
}

func (s *Service) run(ctx context.Context, deletion *AccountDeletion, authenticatedAt time.Time) (*DeletionReport, error) {
	// Detach runs on every attempt so a profile or room written between
	// attempts is removed before the identity goes.
	if err := s.detach(ctx, deletion); err != nil {
		return reportOf(deletion), err
	}
	if err := s.cleanRooms(ctx, deletion); err != nil {
		return reportOf(deletion), err
	}

	if err := s.deleteIdentity(ctx, deletion, authenticatedAt); err != nil {
		return reportOf(deletion), err
	}
	return reportOf(deletion), nil
}

// detach collects the rooms to touch and commits the user-side batch. Rooms
// found on a later attempt join both the room list and the pending list.
func (s *Service) detach(ctx context.Context, deletion *AccountDeletion) error {
	var found []string

	u, err := s.repo.GetUser(ctx, deletion.UserID)
	switch {
	case err == nil:
		if u.RoomID != "" {
			found = appendUnique(found, u.RoomID)
		}
	case errors.Is(err, userdomain.ErrUserNotFound):
		// Already detached or never set up a profile.
	default:
		return fmt.Errorf("get user: %w", err)
	}

	// The pointer and the participant arrays can diverge; both are honored.
	reverse, err := s.repo.ListRoomIDsByParticipant(ctx, deletion.UserID)
	if err != nil {
		return fmt.Errorf("list rooms by participant: %w", err)
	}
	for _, id := range reverse {
		found = appendUnique(found, id)
	}

	for _, id := range found {
		deletion.RoomIDs = appendUnique(deletion.RoomIDs, id)
		deletion.PendingRoomIDs = appendUnique(deletion.PendingRoomIDs, id)
	}
	if err := s.save(ctx, deletion); err != nil {
		return err
	}

	if err := s.repo.DetachUser(ctx, deletion.UserID, deletion.RoomIDs); err != nil {
		return fmt.Errorf("detach user: %w", err)
	}

	deletion.Status = StatusCleaningRooms
	return s.save(ctx, deletion)
}

// cleanRooms processes every pending room independently. Rooms that fail
// stay pending and the checkpoint moves to StatusIncomplete.
func (s *Service) cleanRooms(ctx context.Context, deletion *AccountDeletion) error {
	var (
		pending []string
		errs    []error
	)
	for _, roomID := range deletion.PendingRoomIDs {
		deleted, mediaCount, err := s.cleanupRoom(ctx, roomID)
		deletion.MediaDeleted += mediaCount
		if err != nil {
			s.log.InternalError("account.delete: room cleanup failed", err, "user_id", deletion.UserID, "room_id", roomID)
			pending = append(pending, roomID)
			errs = append(errs, fmt.Errorf("room %s: %w", roomID, err))
			continue
		}
		if deleted {
			deletion.DeletedRoomIDs = appendUnique(deletion.DeletedRoomIDs, roomID)
		}
	}
	deletion.PendingRoomIDs = pending

	if len(errs) > 0 {
		cause := errors.Join(errs...)
		deletion.Status = StatusIncomplete
		deletion.LastError = cause.Error()
		if err := s.save(ctx, deletion); err != nil {
			return errors.Join(ErrDeletionIncomplete, cause, err)
		}
		s.events.Emit(ctx, events.RKAccountDeletionIncomplete, events.AccountDeletionIncomplete{
			UserID:       deletion.UserID,
			Status:       string(deletion.Status),
			PendingRooms: pending,
			Error:        deletion.LastError,
			At:           s.now().UTC(),
		})
		return fmt.Errorf("%w: %w", ErrDeletionIncomplete, cause)
	}

	deletion.Status = StatusDeletingIdentity
	deletion.LastError = ""
	return s.save(ctx, deletion)
}

// cleanupRoom deletes the room, its posts and their media once nobody is
// left in it. A room that is already gone counts as cleaned.
func (s *Service) cleanupRoom(ctx context.Context, roomID string) (bool, int, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, pairingdomain.ErrRoomNotFound) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("get room: %w", err)
	}
	if len(room.Participants) > 0 {
		return false, 0, nil
	}

	docs, err := s.repo.ListPostDocuments(ctx, roomID)
	if err != nil {
		return false, 0, fmt.Errorf("list posts: %w", err)
	}

	urls := collectMediaURLs(docs, func(url string) bool { return s.inRoom(roomID, url) })
	deleted, err := s.deleteMedia(ctx, urls)
	if err != nil {
		return false, deleted, err
	}

	if err := s.repo.DeleteRoomPosts(ctx, roomID); err != nil {
		return false, deleted, fmt.Errorf("delete posts: %w", err)
	}
	if err := s.repo.DeleteRoom(ctx, roomID); err != nil {
		return false, deleted, fmt.Errorf("delete room: %w", err)
	}
	return true, deleted, nil
}

// inRoom reports whether url names an object of the media store under the
// folder of roomID. Posts of one room never own media of another.
func (s *Service) inRoom(roomID, url string) bool {
	if !s.media.Owns(url) {
		return false
	}
	key, err := s.media.Key(url)
	return err == nil && strings.HasPrefix(path.Clean(key), "rooms/"+roomID+"/")
}

// deleteMedia removes every url concurrently and waits for all of them. The
// count covers objects that still existed, so a retry does not recount.
func (s *Service) deleteMedia(ctx context.Context, urls []string) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	var (
		mu      sync.Mutex
		errs    []error
		deleted int
	)
	var group errgroup.Group
	group.SetLimit(s.mediaConcurrency)
	for _, url := range urls {
		group.Go(func() error {
			existed, err := s.media.Delete(ctx, url)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("delete media %s: %w", url, err))
				return nil
			}
			if existed {
				deleted++
			}
			return nil
		})
	}
	_ = group.Wait()

	s.metrics.AddMediaDeleted(deleted)
	return deleted, errors.Join(errs...)
}

func (s *Service) deleteIdentity(ctx context.Context, deletion *AccountDeletion, authenticatedAt time.Time) error {
	err := s.identity.DeleteIdentity(ctx, deletion.UserID, authenticatedAt)
	if errors.Is(err, ErrRecentLoginRequired) {
		deletion.Status = StatusAwaitingReauth
		deletion.LastError = err.Error()
		if saveErr := s.save(ctx, deletion); saveErr != nil {
			return errors.Join(ErrReauthenticationRequired, saveErr)
		}
		return ErrReauthenticationRequired
	}
	if err != nil {
		deletion.Status = StatusDeletingIdentity
		deletion.LastError = err.Error()
		if saveErr := s.save(ctx, deletion); saveErr != nil {
			return errors.Join(ErrDeletionIncomplete, err, saveErr)
		}
		return fmt.Errorf("%w: delete identity: %w", ErrDeletionIncomplete, err)
	}

	now := s.now().UTC()
	deletion.Status = StatusCompleted
	deletion.LastError = ""
	deletion.CompletedAt = &now
	if err := s.save(ctx, deletion); err != nil {
		return err
	}

	s.events.Emit(ctx, events.RKAccountDeleted, events.AccountDeleted{
		UserID:       deletion.UserID,
		RoomIDs:      deletion.RoomIDs,
		DeletedRooms: deletion.DeletedRoomIDs,
		At:           now,
	})
	return nil
}

func (s *Service) save(ctx context.Context, deletion *AccountDeletion) error {
	deletion.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveDeletion(ctx, deletion); err != nil {
		return fmt.Errorf("save deletion checkpoint: %w", err)
	}
	return nil
}

// DeletionStatus returns the checkpoint of userID's deletion.
func (s *Service) DeletionStatus(ctx context.Context, userID string) (*AccountDeletion, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return s.repo.GetDeletion(ctx, userID)
}

// DeletionPending reports whether a deletion checkpoint exists for userID,
// finished or not. Profile and pairing writes are refused while it does.
func (s *Service) DeletionPending(ctx context.Context, userID string) (bool, error) {
	_, err := s.repo.GetDeletion(ctx, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrDeletionNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("get deletion checkpoint: %w", err)
	}
}

func appendUnique(values []string, value string) []string {
	if slices.Contains(values, value) {
		return values
	}
	return append(values, value)
}

type localGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func (g *localGuard) Begin(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.active[userID]; ok {
		return false
	}
	g.active[userID] = struct{}{}
	return true
}

func (g *localGuard) End(userID string) {
	g.mu.Lock()
	delete(g.active, userID)
	g.mu.Unlock()
}

type noopMetrics struct{}

func (noopMetrics) ObserveDeletion(string) {}

func (noopMetrics) AddMediaDeleted(int) {}
