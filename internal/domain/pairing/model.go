package pairing

import (
	"slices"
	"time"
)

// MaxParticipants is the size of a family room.
const MaxParticipants = 2

type InviteCode struct {
	Code       string     `gorm:"type:varchar(6);primaryKey" bson:"_id" firestore:"-"`
	InviterUID string     `gorm:"column:inviter_uid;type:text;not null;index" bson:"inviterUid" firestore:"inviterUid"`
	ExpireDate *time.Time `gorm:"column:expire_date" bson:"expireDate,omitempty" firestore:"expireDate,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" bson:"createdAt" firestore:"createdAt"`
}

func (InviteCode) TableName() string {
	return "invite_codes"
}

// Expired reports whether the code can no longer be redeemed at now.
// Codes without an expiry never expire.
func (c InviteCode) Expired(now time.Time) bool {
	return c.ExpireDate != nil && now.After(*c.ExpireDate)
}

type Room struct {
	ID           string    `gorm:"type:text;primaryKey" bson:"_id" firestore:"-"`
	Participants []string  `gorm:"-" bson:"participants" firestore:"participants"`
	CreatedAt    time.Time `gorm:"autoCreateTime" bson:"createdAt" firestore:"createdAt"`
}

func (Room) TableName() string {
	return "rooms"
}

func (r Room) HasParticipant(userID string) bool {
	return slices.Contains(r.Participants, userID)
}

type JoinResult struct {
	RoomID       string
	Participants []string
	Created      bool
}
