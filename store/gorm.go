package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"snapserver/models"

	"gorm.io/gorm"
)

// GormStore はPostgreSQL上のGORM実装です。
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) RoomByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := s.db.WithContext(ctx).Where("code = ?", strings.ToLower(code)).First(&room).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &room, nil
}

func (s *GormStore) RoomByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &room, nil
}

func (s *GormStore) PlayerByID(ctx context.Context, id uint) (*models.Player, error) {
	var player models.Player
	if err := s.db.WithContext(ctx).First(&player, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &player, nil
}

func (s *GormStore) SessionByToken(ctx context.Context, token string) (*models.PlayerSession, error) {
	var session models.PlayerSession
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&session).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &session, nil
}

func (s *GormStore) MembershipRole(ctx context.Context, roomID, playerID uint) (string, error) {
	var membership models.RoomMembership
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND player_id = ?", roomID, playerID).
		First(&membership).Error
	if err != nil {
		return "", wrapNotFound(err)
	}
	return membership.Role, nil
}

func (s *GormStore) PlayersByRoom(ctx context.Context, roomID uint) ([]models.Player, error) {
	var players []models.Player
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&players).Error
	if err != nil {
		return nil, err
	}
	return players, nil
}

func (s *GormStore) ChallengeByID(ctx context.Context, id uint) (*models.PlayerChallenge, error) {
	var challenge models.PlayerChallenge
	if err := s.db.WithContext(ctx).First(&challenge, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &challenge, nil
}

func (s *GormStore) UpdateRoomFields(ctx context.Context, roomID uint, filters map[string]interface{}, fields map[string]interface{}) (int64, error) {
	tx := s.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", roomID)
	for column, value := range filters {
		tx = tx.Where(column+" = ?", value)
	}
	result := tx.Updates(fields)
	return result.RowsAffected, result.Error
}

func (s *GormStore) UpdateChallengeMedia(ctx context.Context, challengeID uint, url, mediaType, mime string, uploadedAt time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.PlayerChallenge{}).
		Where("id = ?", challengeID).
		Updates(map[string]interface{}{
			"media_url":         url,
			"media_type":        mediaType,
			"media_mime":        mime,
			"media_uploaded_at": uploadedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteRoomCascade(ctx context.Context, roomID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var playerIDs []uint
		if err := tx.Model(&models.Player{}).Where("room_id = ?", roomID).Pluck("id", &playerIDs).Error; err != nil {
			return err
		}
		if len(playerIDs) > 0 {
			if err := tx.Where("player_id IN ?", playerIDs).Delete(&models.PlayerSession{}).Error; err != nil {
				return err
			}
			if err := tx.Where("player_id IN ?", playerIDs).Delete(&models.PlayerChallenge{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.RoomMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.Player{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Room{}, roomID).Error
	})
}

func (s *GormStore) StaleLobbyRooms(ctx context.Context, cutoff time.Time) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.WithContext(ctx).
		Where("status = ? AND updated_at <= ?", models.RoomStatusLobby, cutoff).
		Find(&rooms).Error
	return rooms, err
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
