package utils

import (
	"context"
	"time"

	"snapserver/store"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// 24時間動きのないlobbyは放置されたとみなす
const staleLobbyAge = 24 * time.Hour

// SweepStaleLobbies はcutoff以前から更新のないlobbyルームを削除し、
// 削除できた件数を返します。削除はcloseと同じカスケードで、
// セッションやチャレンジも残しません。
func SweepStaleLobbies(ctx context.Context, st store.Store, cutoff time.Time, logger *zap.Logger) int {
	rooms, err := st.StaleLobbyRooms(ctx, cutoff)
	if err != nil {
		logger.Error("放置ルームの取得に失敗しました", zap.Error(err))
		return 0
	}

	deleted := 0
	for _, room := range rooms {
		if err := st.DeleteRoomCascade(ctx, room.ID); err != nil {
			logger.Error("放置ルームの削除に失敗しました",
				zap.Uint("roomID", room.ID), zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted
}

// CronCleaner は放置されたルームを定期的に掃除するジョブを起動します。
func CronCleaner(st store.Store, logger *zap.Logger) {
	c := cron.New()

	// 放置されたlobbyルームを削除するジョブ（毎日実行）
	c.AddFunc("@daily", func() {
		logger.Info("放置ルームの削除処理を開始")
		deleted := SweepStaleLobbies(context.Background(), st, time.Now().Add(-staleLobbyAge), logger)
		logger.Info("放置ルームの削除完了", zap.Int("rooms_deleted", deleted))
	})

	c.Start()
}
