package posts

import (
	"encoding/json"
	"io"
	"time"
)

const (
	MaxCaptionLength = 100
	MaxStickers      = 10
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

type Sticker struct {
	Emoji    string  `json:"emoji,omitempty" bson:"emoji,omitempty" firestore:"emoji,omitempty"`
	ImageURL string  `json:"imageUrl,omitempty" bson:"imageUrl,omitempty" firestore:"imageUrl,omitempty"`
	X        float64 `json:"x" bson:"x" firestore:"x"`
	Y        float64 `json:"y" bson:"y" firestore:"y"`
	Scale    float64 `json:"scale" bson:"scale" firestore:"scale"`
	Rotation float64 `json:"rotation" bson:"rotation" firestore:"rotation"`
}

// Post lives under a room. Image URLs always point into the blob store.
type Post struct {
	ID            string    `gorm:"type:text;primaryKey" json:"id" bson:"_id" firestore:"id"`
	RoomID        string    `gorm:"type:text;not null;index:idx_posts_room_created,priority:1" json:"roomId" bson:"roomId" firestore:"roomId"`
	AuthorID      string    `gorm:"type:text;not null" json:"authorId" bson:"authorId" firestore:"authorId"`
	FrontImageURL string    `gorm:"type:text;not null" json:"frontImageUrl" bson:"frontImageUrl" firestore:"frontImageUrl"`
	BackImageURL  string    `gorm:"type:text;not null" json:"backImageUrl" bson:"backImageUrl" firestore:"backImageUrl"`
	Caption       string    `gorm:"type:text;not null;default:''" json:"caption" bson:"caption" firestore:"caption"`
	Stickers      []Sticker `gorm:"type:jsonb;serializer:json" json:"stickers" bson:"stickers" firestore:"stickers"`
	CreatedAt     time.Time `gorm:"not null;index:idx_posts_room_created,priority:2" json:"createdAt" bson:"createdAt" firestore:"createdAt"`
	UpdatedAt     time.Time `gorm:"not null" json:"updatedAt" bson:"updatedAt" firestore:"updatedAt"`
}

func (Post) TableName() string {
	return "posts"
}

// Document returns the post as a generic document, the shape media
// collection walks during room teardown.
func (p Post) Document() (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// MediaURLs lists every blob reference of the post.
func (p Post) MediaURLs() []string {
	urls := []string{p.FrontImageURL, p.BackImageURL}
	for _, s := range p.Stickers {
		if s.ImageURL != "" {
			urls = append(urls, s.ImageURL)
		}
	}
	return urls
}

type Image struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

type CreateInput struct {
	AuthorID string
	Front    Image
	Back     Image
	Caption  string
	Stickers []Sticker
}

// UpdateInput changes only the non-nil fields.
type UpdateInput struct {
	Caption  *string
	Stickers *[]Sticker
}

// Cursor is the position of the last post of a feed page. The feed sorts by
// CreatedAt, then ID, both descending. An empty ID compares by time only.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

func CursorOf(p Post) Cursor {
	return Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
}

func (c Cursor) IsZero() bool {
	return c.CreatedAt.IsZero()
}

// Admits reports whether p comes after c in the feed.
func (c Cursor) Admits(p Post) bool {
	if c.IsZero() || p.CreatedAt.Before(c.CreatedAt) {
		return true
	}
	return c.ID != "" && p.CreatedAt.Equal(c.CreatedAt) && p.ID < c.ID
}

type Page struct {
	Posts []Post
	// Next is the cursor of the following page, nil on the last one.
	Next *Cursor
}

type Day struct {
	Date  string
	Posts []Post
}

type Archive struct {
	Month    string
	Location string
	Days     []Day
}
