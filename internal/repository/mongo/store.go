package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	accountdomain "dondog-go/internal/domain/account"
	pairingdomain "dondog-go/internal/domain/pairing"
	postsdomain "dondog-go/internal/domain/posts"
	userdomain "dondog-go/internal/domain/user"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collUsers     = "users"
	collInvites   = "invite_codes"
	collRooms     = "rooms"
	collPosts     = "posts"
	collDeletions = "account_deletions"
)

// Store keeps one document per user, invite code, room, post and deletion
// checkpoint. Multi-document writes run in session transactions, so the
// deployment must be a replica set.
type Store struct {
	client    *mongo.Client
	users     *mongo.Collection
	invites   *mongo.Collection
	rooms     *mongo.Collection
	posts     *mongo.Collection
	deletions *mongo.Collection
}

func NewStore(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:    client,
		users:     db.Collection(collUsers),
		invites:   db.Collection(collInvites),
		rooms:     db.Collection(collRooms),
		posts:     db.Collection(collPosts),
		deletions: db.Collection(collDeletions),
	}
}

// EnsureIndexes creates the secondary indexes the queries below rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.invites, mongo.IndexModel{Keys: bson.D{{Key: "inviterUid", Value: 1}}}},
		{s.rooms, mongo.IndexModel{Keys: bson.D{{Key: "participants", Value: 1}}}},
		{s.posts, mongo.IndexModel{
			Keys:    bson.D{{Key: "roomId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("room_created"),
		}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *Store) GetUser(ctx context.Context, userID string) (*userdomain.User, error) {
	var u userdomain.User
	if err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, userdomain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user *userdomain.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return userdomain.ErrUserExists
		}
		return err
	}
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID, name string, role userdomain.Role) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"name": name, "role": role, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return userdomain.ErrUserNotFound
	}
	return nil
}

func (s *Store) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	n, err := s.invites.CountDocuments(ctx, bson.M{"_id": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) CreateInviteCode(ctx context.Context, invite *pairingdomain.InviteCode) error {
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now().UTC()
	}
	if _, err := s.invites.InsertOne(ctx, invite); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pairingdomain.ErrCodeTaken
		}
		return err
	}
	return nil
}

func (s *Store) GetInviteCode(ctx context.Context, code string) (*pairingdomain.InviteCode, error) {
	var invite pairingdomain.InviteCode
	if err := s.invites.FindOne(ctx, bson.M{"_id": code}).Decode(&invite); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, pairingdomain.ErrInvalidCode
		}
		return nil, err
	}
	return &invite, nil
}

func (s *Store) ListInviteCodesByInviter(ctx context.Context, inviterUID string) ([]pairingdomain.InviteCode, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.invites.Find(ctx, bson.M{"inviterUid": inviterUID}, opts)
	if err != nil {
		return nil, err
	}
	var invites []pairingdomain.InviteCode
	if err := cur.All(ctx, &invites); err != nil {
		return nil, err
	}
	return invites, nil
}

func (s *Store) GetRoom(ctx context.Context, roomID string) (*pairingdomain.Room, error) {
	var room pairingdomain.Room
	if err := s.rooms.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, pairingdomain.ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// capacityFilter matches a room that still has a free participant slot.
func capacityFilter(roomID string) bson.M {
	return bson.M{
		"_id": roomID,
		fmt.Sprintf("participants.%d", pairingdomain.MaxParticipants-1): bson.M{"$exists": false},
	}
}

// unpairedFilter matches the user only while its roomId is empty or roomID.
func unpairedFilter(userID, roomID string) bson.M {
	allowed := bson.A{""}
	if roomID != "" {
		allowed = append(allowed, roomID)
	}
	return bson.M{"_id": userID, "roomId": bson.M{"$in": allowed}}
}

func (s *Store) AddParticipant(ctx context.Context, roomID, userID string) error {
	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		room, err := s.GetRoom(sc, roomID)
		if err != nil {
			return err
		}

		if !room.HasParticipant(userID) {
			res, err := s.rooms.UpdateOne(sc, capacityFilter(roomID),
				bson.M{"$addToSet": bson.M{"participants": userID}})
			if err != nil {
				return err
			}
			if res.MatchedCount == 0 {
				return pairingdomain.ErrRoomFull
			}
		}

		return s.pointUserAt(sc, userID, roomID, roomID)
	})
}

func (s *Store) CreateRoom(ctx context.Context, room *pairingdomain.Room) error {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := s.rooms.InsertOne(sc, room); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return pairingdomain.ErrRoomExists
			}
			return err
		}
		for _, id := range room.Participants {
			if err := s.pointUserAt(sc, id, "", room.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// pointUserAt sets the user's roomId to roomID when it currently holds
// allowed or nothing.
func (s *Store) pointUserAt(sc mongo.SessionContext, userID, allowed, roomID string) error {
	res, err := s.users.UpdateOne(sc, unpairedFilter(userID, allowed),
		bson.M{"$set": bson.M{"roomId": roomID, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := s.users.CountDocuments(sc, bson.M{"_id": userID})
	if err != nil {
		return err
	}
	if n == 0 {
		return userdomain.ErrUserNotFound
	}
	return pairingdomain.ErrPairingConflict
}

func (s *Store) ListRoomIDsByParticipant(ctx context.Context, userID string) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.rooms.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *Store) DetachUser(ctx context.Context, userID string, roomIDs []string) error {
	return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if len(roomIDs) > 0 {
			if _, err := s.rooms.UpdateMany(sc,
				bson.M{"_id": bson.M{"$in": roomIDs}},
				bson.M{"$pull": bson.M{"participants": userID}},
			); err != nil {
				return err
			}
		}
		if _, err := s.invites.DeleteMany(sc, bson.M{"inviterUid": userID}); err != nil {
			return err
		}
		_, err := s.users.DeleteOne(sc, bson.M{"_id": userID})
		return err
	})
}

// ListPostDocuments returns the stored documents as decoded, so fields the
// Post type does not know about are still walked for media.
func (s *Store) ListPostDocuments(ctx context.Context, roomID string) ([]map[string]any, error) {
	cur, err := s.posts.Find(ctx, bson.M{"roomId": roomID})
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, err
	}

	docs := make([]map[string]any, 0, len(raw))
	for _, doc := range raw {
		docs = append(docs, plainValue(doc).(map[string]any))
	}
	return docs, nil
}

// plainValue converts decoded bson containers into plain maps and slices.
func plainValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		return plainMap(t)
	case map[string]any:
		return plainMap(t)
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = plainValue(e.Value)
		}
		return m
	case bson.A:
		return plainSlice(t)
	case []any:
		return plainSlice(t)
	default:
		return v
	}
}

func plainMap(in map[string]any) map[string]any {
	m := make(map[string]any, len(in))
	for k, v := range in {
		m[k] = plainValue(v)
	}
	return m
}

func plainSlice(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = plainValue(v)
	}
	return out
}

func (s *Store) DeleteRoomPosts(ctx context.Context, roomID string) error {
	_, err := s.posts.DeleteMany(ctx, bson.M{"roomId": roomID})
	return err
}

func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := s.rooms.DeleteOne(ctx, bson.M{"_id": roomID})
	return err
}

func (s *Store) GetDeletion(ctx context.Context, userID string) (*accountdomain.AccountDeletion, error) {
	var d accountdomain.AccountDeletion
	if err := s.deletions.FindOne(ctx, bson.M{"_id": userID}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, accountdomain.ErrDeletionNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *Store) SaveDeletion(ctx context.Context, deletion *accountdomain.AccountDeletion) error {
	_, err := s.deletions.ReplaceOne(ctx, bson.M{"_id": deletion.UserID}, deletion, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) CreatePost(ctx context.Context, post *postsdomain.Post) error {
	_, err := s.posts.InsertOne(ctx, post)
	return err
}

func (s *Store) GetPost(ctx context.Context, postID string) (*postsdomain.Post, error) {
	var p postsdomain.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, postsdomain.ErrPostNotFound
		}
		return nil, err
	}
	return &p, nil
}

// feedFilter selects the room's posts that come after before in feed order.
func feedFilter(roomID string, before postsdomain.Cursor) bson.M {
	filter := bson.M{"roomId": roomID}
	switch {
	case before.IsZero():
	case before.ID == "":
		filter["createdAt"] = bson.M{"$lt": before.CreatedAt}
	default:
		filter["$or"] = bson.A{
			bson.M{"createdAt": bson.M{"$lt": before.CreatedAt}},
			bson.M{"createdAt": before.CreatedAt, "_id": bson.M{"$lt": before.ID}},
		}
	}
	return filter
}

func (s *Store) ListPosts(ctx context.Context, roomID string, before postsdomain.Cursor, limit int) ([]postsdomain.Post, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	return s.findPosts(ctx, feedFilter(roomID, before), opts)
}

func (s *Store) ListPostsBetween(ctx context.Context, roomID string, from, to time.Time) ([]postsdomain.Post, error) {
	filter := bson.M{"roomId": roomID, "createdAt": bson.M{"$gte": from, "$lt": to}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	return s.findPosts(ctx, filter, opts)
}

func (s *Store) findPosts(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]postsdomain.Post, error) {
	cur, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	list := []postsdomain.Post{}
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) UpdatePost(ctx context.Context, post *postsdomain.Post) error {
	res, err := s.posts.UpdateOne(ctx,
		bson.M{"_id": post.ID},
		bson.M{"$set": bson.M{
			"caption":   post.Caption,
			"stickers":  post.Stickers,
			"updatedAt": post.UpdatedAt,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return postsdomain.ErrPostNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, postID string) error {
	_, err := s.posts.DeleteOne(ctx, bson.M{"_id": postID})
	return err
}
