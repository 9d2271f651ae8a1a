package store

import (
	"context"
	"errors"
	"time"

	"snapserver/models"
)

// ErrNotFound は等値検索が1行もヒットしなかったことを示します。
var ErrNotFound = errors.New("store: row not found")

// Store はバックエンドのデータストアに対する型付きアクセスを定義します。
// 検索は全て等値フィルターで高々1行（PlayersByRoomを除く）を返します。
// 行レベルの直列化はストア側のフィルター付きUPDATEに委ねます。
type Store interface {
	RoomByCode(ctx context.Context, code string) (*models.Room, error)
	RoomByID(ctx context.Context, id uint) (*models.Room, error)
	PlayerByID(ctx context.Context, id uint) (*models.Player, error)
	SessionByToken(ctx context.Context, token string) (*models.PlayerSession, error)
	MembershipRole(ctx context.Context, roomID, playerID uint) (string, error)
	PlayersByRoom(ctx context.Context, roomID uint) ([]models.Player, error)
	ChallengeByID(ctx context.Context, id uint) (*models.PlayerChallenge, error)

	// UpdateRoomFields はfiltersに一致した場合のみfieldsを書き込み、
	// 影響行数を返します。0行は「状態が既に遷移済み」を意味します。
	UpdateRoomFields(ctx context.Context, roomID uint, filters map[string]interface{}, fields map[string]interface{}) (int64, error)

	// UpdateChallengeMedia はメディア関連カラムを一括で上書きします。
	UpdateChallengeMedia(ctx context.Context, challengeID uint, url, mediaType, mime string, uploadedAt time.Time) error

	// DeleteRoomCascade はルームと従属する全行（メンバーシップ、プレイヤー、
	// セッション、チャレンジ）を1トランザクションで削除します。
	DeleteRoomCascade(ctx context.Context, roomID uint) error

	// StaleLobbyRooms はcutoff以前から更新のないlobby状態のルームを返します。
	StaleLobbyRooms(ctx context.Context, cutoff time.Time) ([]models.Room, error)
}
