package inmemory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	accountdomain "dondog-go/internal/domain/account"
	pairingdomain "dondog-go/internal/domain/pairing"
	postsdomain "dondog-go/internal/domain/posts"
	userdomain "dondog-go/internal/domain/user"
)

// Store keeps every collection in process memory behind one mutex, which
// makes each multi-document write atomic.
type Store struct {
	mu        sync.RWMutex
	users     map[string]userdomain.User
	invites   map[string]pairingdomain.InviteCode
	rooms     map[string]pairingdomain.Room
	posts     map[string]postsdomain.Post
	deletions map[string]accountdomain.AccountDeletion
}

func NewStore() *Store {
	return &Store{
		users:     make(map[string]userdomain.User),
		invites:   make(map[string]pairingdomain.InviteCode),
		rooms:     make(map[string]pairingdomain.Room),
		posts:     make(map[string]postsdomain.Post),
		deletions: make(map[string]accountdomain.AccountDeletion),
	}
}

func (s *Store) GetUser(ctx context.Context, userID string) (*userdomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, userdomain.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *userdomain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return userdomain.ErrUserExists
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID, name string, role userdomain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return userdomain.ErrUserNotFound
	}
	u.Name = name
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return nil
}

func (s *Store) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.invites[code]
	return ok, nil
}

func (s *Store) CreateInviteCode(ctx context.Context, invite *pairingdomain.InviteCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invites[invite.Code]; ok {
		return pairingdomain.ErrCodeTaken
	}
	s.invites[invite.Code] = *invite
	return nil
}

func (s *Store) GetInviteCode(ctx context.Context, code string) (*pairingdomain.InviteCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	invite, ok := s.invites[code]
	if !ok {
		return nil, pairingdomain.ErrInvalidCode
	}
	return &invite, nil
}

func (s *Store) ListInviteCodesByInviter(ctx context.Context, inviterUID string) ([]pairingdomain.InviteCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []pairingdomain.InviteCode
	for _, invite := range s.invites {
		if invite.InviterUID == inviterUID {
			result = append(result, invite)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) GetRoom(ctx context.Context, roomID string) (*pairingdomain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, pairingdomain.ErrRoomNotFound
	}
	room.Participants = slices.Clone(room.Participants)
	return &room, nil
}

func (s *Store) AddParticipant(ctx context.Context, roomID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return pairingdomain.ErrRoomNotFound
	}
	u, ok := s.users[userID]
	if !ok {
		return userdomain.ErrUserNotFound
	}
	if u.RoomID != "" && u.RoomID != roomID {
		return pairingdomain.ErrPairingConflict
	}
	if !room.HasParticipant(userID) {
		if len(room.Participants) >= pairingdomain.MaxParticipants {
			return pairingdomain.ErrRoomFull
		}
		room.Participants = append(slices.Clone(room.Participants), userID)
		s.rooms[roomID] = room
	}
	u.RoomID = roomID
	s.users[userID] = u
	return nil
}

func (s *Store) CreateRoom(ctx context.Context, room *pairingdomain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return pairingdomain.ErrRoomExists
	}
	for _, id := range room.Participants {
		u, ok := s.users[id]
		if !ok {
			return userdomain.ErrUserNotFound
		}
		if u.RoomID != "" {
			return pairingdomain.ErrPairingConflict
		}
	}

	stored := *room
	stored.Participants = slices.Clone(room.Participants)
	s.rooms[room.ID] = stored
	for _, id := range room.Participants {
		u := s.users[id]
		u.RoomID = room.ID
		s.users[id] = u
	}
	return nil
}

func (s *Store) ListRoomIDsByParticipant(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, room := range s.rooms {
		if room.HasParticipant(userID) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) DetachUser(ctx context.Context, userID string, roomIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	for code, invite := range s.invites {
		if invite.InviterUID == userID {
			delete(s.invites, code)
		}
	}
	for _, id := range roomIDs {
		room, ok := s.rooms[id]
		if !ok {
			continue
		}
		room.Participants = slices.DeleteFunc(slices.Clone(room.Participants), func(p string) bool { return p == userID })
		s.rooms[id] = room
	}
	return nil
}

func (s *Store) ListPostDocuments(ctx context.Context, roomID string) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []map[string]any
	for _, p := range s.posts {
		if p.RoomID != roomID {
			continue
		}
		doc, err := p.Document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store) DeleteRoomPosts(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.posts {
		if p.RoomID == roomID {
			delete(s.posts, id)
		}
	}
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}

func (s *Store) GetDeletion(ctx context.Context, userID string) (*accountdomain.AccountDeletion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deletions[userID]
	if !ok {
		return nil, accountdomain.ErrDeletionNotFound
	}
	return cloneDeletion(d), nil
}

func (s *Store) SaveDeletion(ctx context.Context, deletion *accountdomain.AccountDeletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletions[deletion.UserID] = *cloneDeletion(*deletion)
	return nil
}

func cloneDeletion(d accountdomain.AccountDeletion) *accountdomain.AccountDeletion {
	d.RoomIDs = slices.Clone(d.RoomIDs)
	d.PendingRoomIDs = slices.Clone(d.PendingRoomIDs)
	d.DeletedRoomIDs = slices.Clone(d.DeletedRoomIDs)
	return &d
}

func (s *Store) CreatePost(ctx context.Context, post *postsdomain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *post
	stored.Stickers = slices.Clone(post.Stickers)
	s.posts[post.ID] = stored
	return nil
}

func (s *Store) GetPost(ctx context.Context, postID string) (*postsdomain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[postID]
	if !ok {
		return nil, postsdomain.ErrPostNotFound
	}
	p.Stickers = slices.Clone(p.Stickers)
	return &p, nil
}

func (s *Store) roomPosts(roomID string) []postsdomain.Post {
	var result []postsdomain.Post
	for _, p := range s.posts {
		if p.RoomID == roomID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *Store) ListPosts(ctx context.Context, roomID string, before postsdomain.Cursor, limit int) ([]postsdomain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.roomPosts(roomID)
	result := make([]postsdomain.Post, 0, limit)
	for i := len(all) - 1; i >= 0 && len(result) < limit; i-- {
		if before.Admits(all[i]) {
			result = append(result, all[i])
		}
	}
	return result, nil
}

func (s *Store) ListPostsBetween(ctx context.Context, roomID string, from, to time.Time) ([]postsdomain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []postsdomain.Post
	for _, p := range s.roomPosts(roomID) {
		if !p.CreatedAt.Before(from) && p.CreatedAt.Before(to) {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *Store) UpdatePost(ctx context.Context, post *postsdomain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[post.ID]; !ok {
		return postsdomain.ErrPostNotFound
	}
	stored := *post
	stored.Stickers = slices.Clone(post.Stickers)
	s.posts[post.ID] = stored
	return nil
}

func (s *Store) DeletePost(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, postID)
	return nil
}
