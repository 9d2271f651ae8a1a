package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"snapserver/upload"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReserveRequest はアップロード予約（フェーズ1）のボディです。
type ReserveRequest struct {
	Mime string `json:"mime"`
}

// CommitRequest はアップロード確定（フェーズ2）のボディです。
// pathはフェーズ1で発行されたものをそのまま返す想定ですが、
// サーバー側で必ず再検証されます。
type CommitRequest struct {
	Path string `json:"path"`
	Mime string `json:"mime"`
}

func challengeIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, CodeInvalidID, "チャレンジIDが不正です")
		return 0, false
	}
	return uint(id), true
}

// ReserveUpload はチャレンジへのメディア添付を予約し、パス限定の
// アップロード資格情報を返します。
func (e *Env) ReserveUpload(c *gin.Context) {
	player := e.currentPlayer(c)
	if player == nil {
		return
	}
	challengeID, valid := challengeIDParam(c)
	if !valid {
		return
	}

	var request ReserveRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "リクエストボディが不正です")
		return
	}

	credential, err := e.Upload.Reserve(c.Request.Context(), challengeID, player.ID, request.Mime)
	if err != nil {
		e.uploadError(c, err)
		return
	}
	ok(c, gin.H{"credential": credential})
}

// CommitUpload はアップロード済みメディアをチャレンジに記録します。
func (e *Env) CommitUpload(c *gin.Context) {
	player := e.currentPlayer(c)
	if player == nil {
		return
	}
	challengeID, valid := challengeIDParam(c)
	if !valid {
		return
	}

	var request CommitRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.Path == "" {
		fail(c, http.StatusBadRequest, CodeInvalidInput, "リクエストボディが不正です")
		return
	}

	challenge, err := e.Upload.Commit(c.Request.Context(), challengeID, player.ID, request.Path, request.Mime)
	if err != nil {
		e.uploadError(c, err)
		return
	}
	ok(c, gin.H{
		"challenge": gin.H{
			"id":         challenge.ID,
			"mediaUrl":   challenge.MediaURL,
			"mediaType":  challenge.MediaType,
			"mediaMime":  challenge.MediaMime,
			"uploadedAt": challenge.MediaUploadedAt,
		},
	})
}

func (e *Env) uploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, upload.ErrNotFound):
		fail(c, http.StatusNotFound, CodeNotFound, "チャレンジが見つかりません")
	case errors.Is(err, upload.ErrInvalidMime):
		fail(c, http.StatusBadRequest, CodeInvalidMime, "画像または動画のmimeタイプを指定してください")
	case errors.Is(err, upload.ErrNotAllowed):
		fail(c, http.StatusForbidden, CodeNotAllowed, "このパスへの書き込みは許可されていません")
	default:
		e.Logger.Error("Upload operation failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, CodeInternal, err.Error())
	}
}
