package user

import "time"

type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

func (r Role) Valid() bool {
	return r == RoleParent || r == RoleChild
}

// User is the identity-scoped profile document. RoomID is empty until the
// user is paired and is only ever written by the pairing workflow.
type User struct {
	ID        string    `gorm:"type:text;primaryKey" bson:"_id" firestore:"-"`
	Name      string    `gorm:"type:text;not null" bson:"name" firestore:"name"`
	Role      Role      `gorm:"type:varchar(16);not null" bson:"role" firestore:"role"`
	RoomID    string    `gorm:"type:text;not null;default:'';index" bson:"roomId" firestore:"roomId"`
	CreatedAt time.Time `gorm:"autoCreateTime" bson:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" bson:"updatedAt" firestore:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u User) Paired() bool {
	return u.RoomID != ""
}
