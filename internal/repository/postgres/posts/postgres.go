package posts

import (
	"context"
	"errors"
	"time"

	postsdomain "dondog-go/internal/domain/posts"
	userdomain "dondog-go/internal/domain/user"
	"gorm.io/gorm"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetUser(ctx context.Context, userID string) (*userdomain.User, error) {
	var u userdomain.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, userdomain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) CreatePost(ctx context.Context, post *postsdomain.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *PostgresRepository) GetPost(ctx context.Context, postID string) (*postsdomain.Post, error) {
	var post postsdomain.Post
	if err := r.db.WithContext(ctx).Where("id = ?", postID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, postsdomain.ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (r *PostgresRepository) ListPosts(ctx context.Context, roomID string, before postsdomain.Cursor, limit int) ([]postsdomain.Post, error) {
	query := r.db.WithContext(ctx).Where("room_id = ?", roomID)
	switch {
	case before.IsZero():
	case before.ID == "":
		query = query.Where("created_at < ?", before.CreatedAt)
	default:
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", before.CreatedAt, before.CreatedAt, before.ID)
	}

	var items []postsdomain.Post
	if err := query.Order("created_at desc").Order("id desc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PostgresRepository) ListPostsBetween(ctx context.Context, roomID string, from, to time.Time) ([]postsdomain.Post, error) {
	var items []postsdomain.Post
	if err := r.db.WithContext(ctx).
		Where("room_id = ? AND created_at >= ? AND created_at < ?", roomID, from, to).
		Order("created_at asc").
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PostgresRepository) UpdatePost(ctx context.Context, post *postsdomain.Post) error {
	result := r.db.WithContext(ctx).
		Model(post).
		Select("caption", "stickers", "updated_at").
		Updates(post)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return postsdomain.ErrPostNotFound
	}
	return nil
}

func (r *PostgresRepository) DeletePost(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Delete(&postsdomain.Post{}, "id = ?", postID).Error
}
