package handlers

import (
	"errors"
	"net/http"

	"snapserver/roster"
	"snapserver/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListPlayers は参加順のプレイヤー一覧を返します。読み取り専用で、
// クライアントは数秒間隔でポーリングします。closeされたルームは404になり、
// ポーリング側は次のティックで打ち切れます。
func (e *Env) ListPlayers(c *gin.Context) {
	player := e.currentPlayer(c)
	if player == nil {
		return
	}

	entries, err := e.Roster.List(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, roster.ErrRoomNotFound) {
			fail(c, http.StatusNotFound, CodeRoomNotFound, "ルームが見つかりません")
			return
		}
		e.Logger.Error("Failed to list players", zap.Error(err))
		fail(c, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	ok(c, gin.H{"players": entries})
}

// Me は現在のプレイヤーと所属ルームでのロールを返します。
func (e *Env) Me(c *gin.Context) {
	player := e.currentPlayer(c)
	if player == nil {
		return
	}

	ctx := c.Request.Context()
	payload := gin.H{
		"player": gin.H{
			"id":       player.ID,
			"nickname": player.Nickname,
			"points":   player.Points,
		},
	}

	room, err := e.Store.RoomByID(ctx, player.RoomID)
	if err == nil {
		payload["roomCode"] = room.Code
		if role, roleErr := e.Store.MembershipRole(ctx, room.ID, player.ID); roleErr == nil {
			payload["role"] = role
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		e.Logger.Error("Failed to load player's room", zap.Error(err))
		fail(c, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	ok(c, payload)
}
