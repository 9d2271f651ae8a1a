package roster

import (
	"context"
	"errors"

	"snapserver/store"

	"go.uber.org/zap"
)

var ErrRoomNotFound = errors.New("roster: room not found")

// Entry はポーリングクライアントに返す1プレイヤー分の表示情報です。
type Entry struct {
	ID       uint   `json:"id"`
	Nickname string `json:"nickname"`
	Points   int    `json:"points"`
}

// Service はルームの現在メンバーと得点の読み取り専用ビューです。
// 副作用が無いため高頻度のポーリングに安全です。
type Service struct {
	store  store.Store
	logger *zap.Logger
}

func NewService(st store.Store, logger *zap.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// List は参加順のプレイヤー一覧を返します。closeで消えたルームは
// ErrRoomNotFoundとなり、呼び出し側は次のポーリングまで無視できます。
func (s *Service) List(ctx context.Context, code string) ([]Entry, error) {
	room, err := s.store.RoomByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	players, err := s.store.PlayersByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(players))
	for _, player := range players {
		entries = append(entries, Entry{
			ID:       player.ID,
			Nickname: player.Nickname,
			Points:   player.Points,
		})
	}
	return entries, nil
}
