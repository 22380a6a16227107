package account

import (
	"context"
	"errors"

	accountdomain "dondog-go/internal/domain/account"
	pairingdomain "dondog-go/internal/domain/pairing"
	postsdomain "dondog-go/internal/domain/posts"
	userdomain "dondog-go/internal/domain/user"
	pairingrepo "dondog-go/internal/repository/postgres/pairing"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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

func (r *PostgresRepository) ListRoomIDsByParticipant(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&pairingrepo.Participant{}).
		Where("user_id = ?", userID).
		Order("room_id asc").
		Pluck("room_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PostgresRepository) DetachUser(ctx context.Context, userID string, roomIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&userdomain.User{}, "id = ?", userID).Error; err != nil {
			return err
		}
		if err := tx.Where("inviter_uid = ?", userID).Delete(&pairingdomain.InviteCode{}).Error; err != nil {
			return err
		}
		if len(roomIDs) == 0 {
			return nil
		}
		return tx.Where("user_id = ? AND room_id IN ?", userID, roomIDs).Delete(&pairingrepo.Participant{}).Error
	})
}

func (r *PostgresRepository) GetRoom(ctx context.Context, roomID string) (*pairingdomain.Room, error) {
	return pairingrepo.LoadRoom(ctx, r.db, roomID)
}

func (r *PostgresRepository) ListPostDocuments(ctx context.Context, roomID string) ([]map[string]any, error) {
	var items []postsdomain.Post
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Find(&items).Error; err != nil {
		return nil, err
	}

	docs := make([]map[string]any, 0, len(items))
	for _, p := range items {
		doc, err := p.Document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *PostgresRepository) DeleteRoomPosts(ctx context.Context, roomID string) error {
	return r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&postsdomain.Post{}).Error
}

func (r *PostgresRepository) DeleteRoom(ctx context.Context, roomID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&pairingrepo.Participant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&pairingdomain.Room{}, "id = ?", roomID).Error
	})
}

func (r *PostgresRepository) GetDeletion(ctx context.Context, userID string) (*accountdomain.AccountDeletion, error) {
	var deletion accountdomain.AccountDeletion
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&deletion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accountdomain.ErrDeletionNotFound
		}
		return nil, err
	}
	return &deletion, nil
}

func (r *PostgresRepository) SaveDeletion(ctx context.Context, deletion *accountdomain.AccountDeletion) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(deletion).Error
}
