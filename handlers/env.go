package handlers

import (
	"errors"
	"net/http"

	"snapserver/auth"
	"snapserver/models"
	"snapserver/rooms"
	"snapserver/roster"
	"snapserver/store"
	"snapserver/upload"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Env は各ハンドラーが共有する依存の束です。ルーティング時にメソッドを
// そのままginに渡せるよう、ハンドラーは全てEnvのメソッドとして定義します。
type Env struct {
	Store  store.Store
	RDB    *redis.Client
	DB     *gorm.DB // ヘルスチェック用。テストではnil。
	Rooms  *rooms.Manager
	Roster *roster.Service
	Upload *upload.Protocol
	Logger *zap.Logger
}

// currentPlayer はリクエストの認証を解決し、失敗時は401を書き込みます。
// 戻り値がnilの場合、レスポンスは送信済みです。
func (e *Env) currentPlayer(c *gin.Context) *models.Player {
	player, err := auth.Resolve(c.Request.Context(), c, e.Store, e.RDB, e.Logger)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			fail(c, http.StatusUnauthorized, CodeUnauthorized, "認証に失敗しました")
		} else {
			e.Logger.Error("Failed to resolve session", zap.Error(err))
			fail(c, http.StatusInternalServerError, CodeInternal, err.Error())
		}
		return nil
	}
	return player
}

// lifecycleError はルーム操作の共通エラーを§7のタクソノミーに写します。
func (e *Env) lifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound):
		fail(c, http.StatusNotFound, CodeRoomNotFound, "ルームが見つかりません")
	case errors.Is(err, rooms.ErrNotOwner):
		fail(c, http.StatusForbidden, CodeNotAllowed, "この操作はオーナーのみ可能です")
	case errors.Is(err, rooms.ErrInvalidRounds):
		fail(c, http.StatusBadRequest, CodeInvalidRounds, "ラウンド数は1〜10で指定してください")
	default:
		e.Logger.Error("Room operation failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, CodeInternal, err.Error())
	}
}
