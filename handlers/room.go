package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"snapserver/rooms"
	"snapserver/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RenameRequest はルーム名変更リクエストのボディです。
type RenameRequest struct {
	Name string `json:"name"`
}

// RoundsRequest はラウンド数設定リクエストのボディです。
type RoundsRequest struct {
	Rounds int `json:"rounds"`
}

// RoomInfo はコード指定でルーム情報を返します。開始済みの場合は
// 現在ラウンドとそのブロック開始時刻も導出して返します。
func (e *Env) RoomInfo(c *gin.Context) {
	player := e.currentPlayer(c)
	if player == nil {
		return
	}

	room, err := e.Store.RoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, CodeRoomNotFound, "ルームが見つかりません")
			return
		}
		e.Logger.Error("Failed to load room", zap.Error(err))
		fail(c, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}

	payload := gin.H{
		"room": gin.H{
			"code":     room.Code,
			"name":     room.Name,
			"status":   room.Status,
			"rounds":   room.Rounds,
			"startsAt": room.StartsAt,
			"endsAt":   room.EndsAt,
		},
	}
	if round, blockStart, inProgress := rooms.CurrentRound(room, time.Now()); inProgress {
		payload["currentRound"] = round
		payload["blockStart"] = blockStart
	}
	ok(c, payload)
}

// Rename はルームの表示名を変更します。オーナー専用で、状態の制限はありません。
func (e *Env) Rename(c *gin.Context) {
	player := e.currentPlayer(c)
	if player == nil {
		return
	}

	var request RenameRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "リクエストボディが不正です")
		return
	}
	request.Name = strings.TrimSpace(request.Name)
	if request.Name == "" || len(request.Name) > 64 {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "ルーム名は1〜64文字で指定してください")
		return
	}

	if err := e.Rooms.Rename(c.Request.Context(), c.Param("code"), player.ID, request.Name); err != nil {
		e.lifecycleError(c, err)
		return
	}
	ok(c, nil)
}

// SetRounds はラウンド数を設定します。開始済みならCONFLICTを返し、
// クライアントは「確定済み」として無視できます。
func (e *Env) SetRounds(c *gin.Context) {
	player := e.currentPlayer(c)
	if player == nil {
		return
	}

	var request RoundsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "リクエストボディが不正です")
		return
	}

	outcome, err := e.Rooms.SetRounds(c.Request.Context(), c.Param("code"), player.ID, request.Rounds)
	if err != nil {
		e.lifecycleError(c, err)
		return
	}
	if outcome == rooms.AlreadyApplied {
		fail(c, http.StatusConflict, CodeConflict, "ルームは開始済みのため設定を変更できません")
		return
	}
	ok(c, gin.H{"rounds": request.Rounds})
}

// StartRoom はルームを開始します。二重送信の遅れた方はCONFLICTを観測し、
// タイマーが再設定されることはありません。
func (e *Env) StartRoom(c *gin.Context) {
	player := e.currentPlayer(c)
	if player == nil {
		return
	}

	outcome, room, err := e.Rooms.Start(c.Request.Context(), c.Param("code"), player.ID)
	if err != nil {
		e.lifecycleError(c, err)
		return
	}
	if outcome == rooms.AlreadyApplied {
		fail(c, http.StatusConflict, CodeConflict, "ルームは既に開始されています")
		return
	}
	ok(c, gin.H{
		"status":   room.Status,
		"startsAt": room.StartsAt,
		"endsAt":   room.EndsAt,
	})
}

// EndRoom はルームを終了します。未開始・終了済みでも成功として返します。
func (e *Env) EndRoom(c *gin.Context) {
	player := e.currentPlayer(c)
	if player == nil {
		return
	}

	if _, err := e.Rooms.End(c.Request.Context(), c.Param("code"), player.ID); err != nil {
		e.lifecycleError(c, err)
		return
	}
	ok(c, nil)
}

// CloseRoom はルームと従属データを完全に削除します。
// 実行前の確認はクライアント側の責務です。
func (e *Env) CloseRoom(c *gin.Context) {
	player := e.currentPlayer(c)
	if player == nil {
		return
	}

	if err := e.Rooms.Close(c.Request.Context(), c.Param("code"), player.ID); err != nil {
		e.lifecycleError(c, err)
		return
	}
	ok(c, nil)
}
