package pairing

import (
	"context"
	"errors"
	"time"

	pairingdomain "dondog-go/internal/domain/pairing"
	userdomain "dondog-go/internal/domain/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Participant is one row of the room_participants set. Its primary key keeps
// membership free of duplicates.
type Participant struct {
	RoomID   string    `gorm:"type:text;primaryKey"`
	UserID   string    `gorm:"type:text;primaryKey;index"`
	JoinedAt time.Time `gorm:"not null"`
}

func (Participant) TableName() string {
	return "room_participants"
}

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

func (r *PostgresRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&pairingdomain.InviteCode{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresRepository) CreateInviteCode(ctx context.Context, invite *pairingdomain.InviteCode) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).
		Create(invite)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pairingdomain.ErrCodeTaken
	}
	return nil
}

func (r *PostgresRepository) GetInviteCode(ctx context.Context, code string) (*pairingdomain.InviteCode, error) {
	var invite pairingdomain.InviteCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pairingdomain.ErrInvalidCode
		}
		return nil, err
	}
	return &invite, nil
}

func (r *PostgresRepository) ListInviteCodesByInviter(ctx context.Context, inviterUID string) ([]pairingdomain.InviteCode, error) {
	var invites []pairingdomain.InviteCode
	if err := r.db.WithContext(ctx).
		Where("inviter_uid = ?", inviterUID).
		Order("created_at desc").
		Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

func (r *PostgresRepository) GetRoom(ctx context.Context, roomID string) (*pairingdomain.Room, error) {
	return LoadRoom(ctx, r.db, roomID)
}

// LoadRoom reads a room with its participant set.
func LoadRoom(ctx context.Context, db *gorm.DB, roomID string) (*pairingdomain.Room, error) {
	var room pairingdomain.Room
	if err := db.WithContext(ctx).Where("id = ?", roomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pairingdomain.ErrRoomNotFound
		}
		return nil, err
	}

	var participants []string
	if err := db.WithContext(ctx).
		Model(&Participant{}).
		Where("room_id = ?", roomID).
		Order("joined_at asc").
		Pluck("user_id", &participants).Error; err != nil {
		return nil, err
	}
	room.Participants = participants
	return &room, nil
}

func (r *PostgresRepository) AddParticipant(ctx context.Context, roomID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room pairingdomain.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", roomID).First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pairingdomain.ErrRoomNotFound
			}
			return err
		}

		var u userdomain.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", userID).First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return userdomain.ErrUserNotFound
			}
			return err
		}
		if u.RoomID != "" && u.RoomID != roomID {
			return pairingdomain.ErrPairingConflict
		}

		var members []string
		if err := tx.Model(&Participant{}).Where("room_id = ?", roomID).Pluck("user_id", &members).Error; err != nil {
			return err
		}
		if !contains(members, userID) {
			if len(members) >= pairingdomain.MaxParticipants {
				return pairingdomain.ErrRoomFull
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&Participant{RoomID: roomID, UserID: userID, JoinedAt: time.Now().UTC()}).Error; err != nil {
				return err
			}
		}

		return tx.Model(&userdomain.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"room_id":    roomID,
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

func (r *PostgresRepository) CreateRoom(ctx context.Context, room *pairingdomain.Room) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(room)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pairingdomain.ErrRoomExists
		}

		now := time.Now().UTC()
		for _, userID := range room.Participants {
			// Compare-and-set: only an unpaired user may be claimed.
			updated := tx.Model(&userdomain.User{}).
				Where("id = ? AND room_id = ''", userID).
				Updates(map[string]interface{}{
					"room_id":    room.ID,
					"updated_at": now,
				})
			if updated.Error != nil {
				return updated.Error
			}
			if updated.RowsAffected == 0 {
				var count int64
				if err := tx.Model(&userdomain.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
					return err
				}
				if count == 0 {
					return userdomain.ErrUserNotFound
				}
				return pairingdomain.ErrPairingConflict
			}

			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&Participant{RoomID: room.ID, UserID: userID, JoinedAt: now}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
