package account

import "time"

type Status string

const (
	StatusDetaching        Status = "detaching"
	StatusCleaningRooms    Status = "cleaning_rooms"
	StatusDeletingIdentity Status = "deleting_identity"
	StatusAwaitingReauth   Status = "awaiting_reauth"
	StatusIncomplete       Status = "incomplete"
	StatusCompleted        Status = "completed"
)

// AccountDeletion is the persisted checkpoint of one account deletion. Every
// step it records is idempotent, so a rerun continues from Status.
type AccountDeletion struct {
	UserID         string     `gorm:"type:text;primaryKey" bson:"_id" firestore:"-" json:"user_id"`
	Status         Status     `gorm:"type:varchar(32);not null" bson:"status" firestore:"status" json:"status"`
	RoomIDs        []string   `gorm:"type:jsonb;serializer:json" bson:"roomIds" firestore:"roomIds" json:"room_ids"`
	PendingRoomIDs []string   `gorm:"type:jsonb;serializer:json" bson:"pendingRoomIds" firestore:"pendingRoomIds" json:"pending_room_ids"`
	DeletedRoomIDs []string   `gorm:"type:jsonb;serializer:json" bson:"deletedRoomIds" firestore:"deletedRoomIds" json:"deleted_room_ids"`
	MediaDeleted   int        `gorm:"not null;default:0" bson:"mediaDeleted" firestore:"mediaDeleted" json:"media_deleted"`
	Attempts       int        `gorm:"not null;default:0" bson:"attempts" firestore:"attempts" json:"attempts"`
	LastError      string     `gorm:"type:text" bson:"lastError,omitempty" firestore:"lastError,omitempty" json:"last_error,omitempty"`
	StartedAt      time.Time  `bson:"startedAt" firestore:"startedAt" json:"started_at"`
	UpdatedAt      time.Time  `bson:"updatedAt" firestore:"updatedAt" json:"updated_at"`
	CompletedAt    *time.Time `bson:"completedAt,omitempty" firestore:"completedAt,omitempty" json:"completed_at,omitempty"`
}

func (AccountDeletion) TableName() string {
	return "account_deletions"
}

func (d AccountDeletion) Completed() bool {
	return d.Status == StatusCompleted
}

// DeletionReport is what a DeleteAccount call returns, successful or not.
type DeletionReport struct {
	UserID         string   `json:"user_id"`
	Status         Status   `json:"status"`
	RoomIDs        []string `json:"room_ids"`
	DeletedRoomIDs []string `json:"deleted_room_ids"`
	PendingRoomIDs []string `json:"pending_room_ids"`
	MediaDeleted   int      `json:"media_deleted"`
}

func reportOf(d *AccountDeletion) *DeletionReport {
	return &DeletionReport{
		UserID:         d.UserID,
		Status:         d.Status,
		RoomIDs:        append([]string{}, d.RoomIDs...),
		DeletedRoomIDs: append([]string{}, d.DeletedRoomIDs...),
		PendingRoomIDs: append([]string{}, d.PendingRoomIDs...),
		MediaDeleted:   d.MediaDeleted,
	}
}
