package events

import (
	"context"
	"time"

	"dondog-go/pkg/logger"
)

// Routing keys published on the events exchange.
const (
	RKInviteIssued              = "invite.issued"
	RKRoomJoined                = "room.joined"
	RKPostCreated               = "post.created"
	RKAccountDeleted            = "account.deleted"
	RKAccountDeletionIncomplete = "account.deletion_incomplete"
)

type InviteIssued struct {
	Code       string    `json:"code"`
	InviterUID string    `json:"inviter_uid"`
	ExpireDate time.Time `json:"expire_date"`
}

type RoomJoined struct {
	RoomID       string    `json:"room_id"`
	UserID       string    `json:"user_id"`
	InviterUID   string    `json:"inviter_uid"`
	Participants []string  `json:"participants"`
	Created      bool      `json:"created"`
	At           time.Time `json:"at"`
}

type PostCreated struct {
	PostID   string    `json:"post_id"`
	RoomID   string    `json:"room_id"`
	AuthorID string    `json:"author_id"`
	At       time.Time `json:"at"`
}

type AccountDeleted struct {
	UserID       string    `json:"user_id"`
	RoomIDs      []string  `json:"room_ids"`
	DeletedRooms []string  `json:"deleted_rooms"`
	At           time.Time `json:"at"`
}

type AccountDeletionIncomplete struct {
	UserID       string    `json:"user_id"`
	Status       string    `json:"status"`
	PendingRooms []string  `json:"pending_rooms"`
	Error        string    `json:"error"`
	At           time.Time `json:"at"`
}

// Publisher delivers one JSON event under a routing key.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
	Close() error
}

// Emitter is what domain services depend on. Delivery is best effort: a
// broker outage must never fail a join or a deletion.
type Emitter interface {
	Emit(ctx context.Context, key string, v any)
}

type bestEffort struct {
	publisher Publisher
	log       logger.Logger
}

func NewEmitter(publisher Publisher, log logger.Logger) Emitter {
	if publisher == nil {
		return Noop{}
	}
	return &bestEffort{publisher: publisher, log: log}
}

func (e *bestEffort) Emit(ctx context.Context, key string, v any) {
	if err := e.publisher.PublishJSON(ctx, key, v); err != nil {
		e.log.InternalError("events: publish failed", err, "routing_key", key)
	}
}

type Noop struct{}

func (Noop) Emit(context.Context, string, any) {}

func (Noop) PublishJSON(context.Context, string, any) error { return nil }

func (Noop) Close() error { return nil }
