package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	accountdomain "dondog-go/internal/domain/account"
	pairingdomain "dondog-go/internal/domain/pairing"
	postsdomain "dondog-go/internal/domain/posts"
	userdomain "dondog-go/internal/domain/user"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collUsers     = "users"
	collInvites   = "inviteCodes"
	collRooms     = "rooms"
	collPosts     = "posts"
	collDeletions = "accountDeletions"
)

// Store maps the domain onto Firestore documents. Posts live in the
// rooms/{roomId}/posts subcollection and carry their id as a field so they
// can be found through a collection group query.
type Store struct {
	client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) user(id string) *firestore.DocumentRef {
	return s.client.Collection(collUsers).Doc(id)
}

func (s *Store) invite(code string) *firestore.DocumentRef {
	return s.client.Collection(collInvites).Doc(code)
}

func (s *Store) room(id string) *firestore.DocumentRef {
	return s.client.Collection(collRooms).Doc(id)
}

func (s *Store) roomPosts(roomID string) *firestore.CollectionRef {
	return s.room(roomID).Collection(collPosts)
}

func (s *Store) deletion(userID string) *firestore.DocumentRef {
	return s.client.Collection(collDeletions).Doc(userID)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// wrap maps rejected security rules onto the pairing permission error and
// leaves every other error alone.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.PermissionDenied {
		return fmt.Errorf("%w: %v", pairingdomain.ErrPermissionDenied, err)
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, userID string) (*userdomain.User, error) {
	snap, err := s.user(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, userdomain.ErrUserNotFound
		}
		return nil, wrap(err)
	}
	return decodeUser(snap)
}

func decodeUser(snap *firestore.DocumentSnapshot) (*userdomain.User, error) {
	var u userdomain.User
	if err := snap.DataTo(&u); err != nil {
		return nil, err
	}
	u.ID = snap.Ref.ID
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *userdomain.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if _, err := s.user(user.ID).Create(ctx, user); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return userdomain.ErrUserExists
		}
		return wrap(err)
	}
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID, name string, role userdomain.Role) error {
	_, err := s.user(userID).Update(ctx, []firestore.Update{
		{Path: "name", Value: name},
		{Path: "role", Value: role},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if isNotFound(err) {
			return userdomain.ErrUserNotFound
		}
		return wrap(err)
	}
	return nil
}

func (s *Store) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := s.invite(code).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, wrap(err)
	}
	return true, nil
}

func (s *Store) CreateInviteCode(ctx context.Context, invite *pairingdomain.InviteCode) error {
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now().UTC()
	}
	if _, err := s.invite(invite.Code).Create(ctx, invite); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return pairingdomain.ErrCodeTaken
		}
		return wrap(err)
	}
	return nil
}

func (s *Store) GetInviteCode(ctx context.Context, code string) (*pairingdomain.InviteCode, error) {
	snap, err := s.invite(code).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, pairingdomain.ErrInvalidCode
		}
		return nil, wrap(err)
	}
	var invite pairingdomain.InviteCode
	if err := snap.DataTo(&invite); err != nil {
		return nil, err
	}
	invite.Code = snap.Ref.ID
	return &invite, nil
}

func (s *Store) ListInviteCodesByInviter(ctx context.Context, inviterUID string) ([]pairingdomain.InviteCode, error) {
	snaps, err := s.client.Collection(collInvites).
		Where("inviterUid", "==", inviterUID).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, wrap(err)
	}

	invites := make([]pairingdomain.InviteCode, 0, len(snaps))
	for _, snap := range snaps {
		var invite pairingdomain.InviteCode
		if err := snap.DataTo(&invite); err != nil {
			return nil, err
		}
		invite.Code = snap.Ref.ID
		invites = append(invites, invite)
	}
	// Sorted here so the query needs no composite index.
	sort.Slice(invites, func(i, j int) bool { return invites[i].CreatedAt.After(invites[j].CreatedAt) })
	return invites, nil
}

func (s *Store) GetRoom(ctx context.Context, roomID string) (*pairingdomain.Room, error) {
	snap, err := s.room(roomID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, pairingdomain.ErrRoomNotFound
		}
		return nil, wrap(err)
	}
	return decodeRoom(snap)
}

func decodeRoom(snap *firestore.DocumentSnapshot) (*pairingdomain.Room, error) {
	var room pairingdomain.Room
	if err := snap.DataTo(&room); err != nil {
		return nil, err
	}
	room.ID = snap.Ref.ID
	return &room, nil
}

func (s *Store) AddParticipant(ctx context.Context, roomID, userID string) error {
	roomRef := s.room(roomID)
	userRef := s.user(userID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		roomSnap, err := tx.Get(roomRef)
		if err != nil {
			if isNotFound(err) {
				return pairingdomain.ErrRoomNotFound
			}
			return err
		}
		room, err := decodeRoom(roomSnap)
		if err != nil {
			return err
		}

		userSnap, err := tx.Get(userRef)
		if err != nil {
			if isNotFound(err) {
				return userdomain.ErrUserNotFound
			}
			return err
		}
		u, err := decodeUser(userSnap)
		if err != nil {
			return err
		}
		if u.RoomID != "" && u.RoomID != roomID {
			return pairingdomain.ErrPairingConflict
		}

		if !room.HasParticipant(userID) {
			if len(room.Participants) >= pairingdomain.MaxParticipants {
				return pairingdomain.ErrRoomFull
			}
			if err := tx.Update(roomRef, []firestore.Update{
				{Path: "participants", Value: firestore.ArrayUnion(userID)},
			}); err != nil {
				return err
			}
		}
		return tx.Update(userRef, []firestore.Update{
			{Path: "roomId", Value: roomID},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
	return wrap(err)
}

func (s *Store) CreateRoom(ctx context.Context, room *pairingdomain.Room) error {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	roomRef := s.room(room.ID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(roomRef); err == nil {
			return pairingdomain.ErrRoomExists
		} else if !isNotFound(err) {
			return err
		}

		refs := make([]*firestore.DocumentRef, 0, len(room.Participants))
		for _, id := range room.Participants {
			ref := s.user(id)
			snap, err := tx.Get(ref)
			if err != nil {
				if isNotFound(err) {
					return userdomain.ErrUserNotFound
				}
				return err
			}
			u, err := decodeUser(snap)
			if err != nil {
				return err
			}
			if u.RoomID != "" {
				return pairingdomain.ErrPairingConflict
			}
			refs = append(refs, ref)
		}

		if err := tx.Create(roomRef, room); err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, ref := range refs {
			if err := tx.Update(ref, []firestore.Update{
				{Path: "roomId", Value: room.ID},
				{Path: "updatedAt", Value: now},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return wrap(err)
}

func (s *Store) ListRoomIDsByParticipant(ctx context.Context, userID string) ([]string, error) {
	snaps, err := s.client.Collection(collRooms).
		Where("participants", "array-contains", userID).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, wrap(err)
	}
	ids := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		ids = append(ids, snap.Ref.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) DetachUser(ctx context.Context, userID string, roomIDs []string) error {
	invitesQuery := s.client.Collection(collInvites).Where("inviterUid", "==", userID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		inviteSnaps, err := tx.Documents(invitesQuery).GetAll()
		if err != nil {
			return err
		}

		var rooms []*firestore.DocumentRef
		for _, id := range roomIDs {
			ref := s.room(id)
			if _, err := tx.Get(ref); err != nil {
				if isNotFound(err) {
					continue
				}
				return err
			}
			rooms = append(rooms, ref)
		}

		for _, ref := range rooms {
			if err := tx.Update(ref, []firestore.Update{
				{Path: "participants", Value: firestore.ArrayRemove(userID)},
			}); err != nil {
				return err
			}
		}
		for _, snap := range inviteSnaps {
			if err := tx.Delete(snap.Ref); err != nil {
				return err
			}
		}
		return tx.Delete(s.user(userID))
	})
	return wrap(err)
}

// ListPostDocuments returns the raw document data so every stored field is
// walked for media, including ones the Post type does not declare.
func (s *Store) ListPostDocuments(ctx context.Context, roomID string) ([]map[string]any, error) {
	snaps, err := s.roomPosts(roomID).Documents(ctx).GetAll()
	if err != nil {
		return nil, wrap(err)
	}

	docs := make([]map[string]any, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, snap.Data())
	}
	return docs, nil
}

func (s *Store) DeleteRoomPosts(ctx context.Context, roomID string) error {
	refs, err := s.roomPosts(roomID).DocumentRefs(ctx).GetAll()
	if err != nil {
		return wrap(err)
	}
	if len(refs) == 0 {
		return nil
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	for _, ref := range refs {
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			return err
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil && !isNotFound(err) {
			return wrap(err)
		}
	}
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := s.room(roomID).Delete(ctx)
	return wrap(err)
}

func (s *Store) GetDeletion(ctx context.Context, userID string) (*accountdomain.AccountDeletion, error) {
	snap, err := s.deletion(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, accountdomain.ErrDeletionNotFound
		}
		return nil, wrap(err)
	}
	var d accountdomain.AccountDeletion
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	d.UserID = snap.Ref.ID
	return &d, nil
}

func (s *Store) SaveDeletion(ctx context.Context, deletion *accountdomain.AccountDeletion) error {
	_, err := s.deletion(deletion.UserID).Set(ctx, deletion)
	return wrap(err)
}

func decodePost(snap *firestore.DocumentSnapshot) (*postsdomain.Post, error) {
	var p postsdomain.Post
	if err := snap.DataTo(&p); err != nil {
		return nil, err
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

func decodePosts(snaps []*firestore.DocumentSnapshot) ([]postsdomain.Post, error) {
	list := make([]postsdomain.Post, 0, len(snaps))
	for _, snap := range snaps {
		p, err := decodePost(snap)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, nil
}

func (s *Store) CreatePost(ctx context.Context, post *postsdomain.Post) error {
	_, err := s.roomPosts(post.RoomID).Doc(post.ID).Create(ctx, post)
	return wrap(err)
}

func (s *Store) findPost(ctx context.Context, postID string) (*firestore.DocumentSnapshot, error) {
	snaps, err := s.client.CollectionGroup(collPosts).
		Where("id", "==", postID).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, wrap(err)
	}
	if len(snaps) == 0 {
		return nil, postsdomain.ErrPostNotFound
	}
	return snaps[0], nil
}

func (s *Store) GetPost(ctx context.Context, postID string) (*postsdomain.Post, error) {
	snap, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return decodePost(snap)
}

func (s *Store) ListPosts(ctx context.Context, roomID string, before postsdomain.Cursor, limit int) ([]postsdomain.Post, error) {
	q := s.roomPosts(roomID).Query
	if !before.IsZero() && before.ID == "" {
		q = q.Where("createdAt", "<", before.CreatedAt)
	}
	q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
	if !before.IsZero() && before.ID != "" {
		q = q.StartAfter(before.CreatedAt, before.ID)
	}
	snaps, err := q.Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, wrap(err)
	}
	return decodePosts(snaps)
}

func (s *Store) ListPostsBetween(ctx context.Context, roomID string, from, to time.Time) ([]postsdomain.Post, error) {
	snaps, err := s.roomPosts(roomID).
		Where("createdAt", ">=", from).
		Where("createdAt", "<", to).
		OrderBy("createdAt", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, wrap(err)
	}
	return decodePosts(snaps)
}

func (s *Store) UpdatePost(ctx context.Context, post *postsdomain.Post) error {
	_, err := s.roomPosts(post.RoomID).Doc(post.ID).Update(ctx, []firestore.Update{
		{Path: "caption", Value: post.Caption},
		{Path: "stickers", Value: post.Stickers},
		{Path: "updatedAt", Value: post.UpdatedAt},
	})
	if err != nil {
		if isNotFound(err) {
			return postsdomain.ErrPostNotFound
		}
		return wrap(err)
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, postID string) error {
	snap, err := s.findPost(ctx, postID)
	if err != nil {
		if errors.Is(err, postsdomain.ErrPostNotFound) {
			return nil
		}
		return err
	}
	_, err = snap.Ref.Delete(ctx)
	return wrap(err)
}
