package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 機械可読なエラーコード。HTTPステータスと併せてレスポンスに載せます。
const (
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeNotAllowed    = "NOT_ALLOWED"
	CodeRoomNotFound  = "ROOM_NOT_FOUND"
	CodeNotFound      = "NOT_FOUND"
	CodeInvalidID     = "INVALID_ID"
	CodeInvalidMime   = "INVALID_MIME"
	CodeInvalidRounds = "INVALID_ROUNDS"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeConflict      = "CONFLICT"
	CodeInternal      = "INTERNAL"
)

// ok は成功レスポンスを返します。payloadは省略可能です。
func ok(c *gin.Context, payload gin.H) {
	body := gin.H{"success": true}
	for key, value := range payload {
		body[key] = value
	}
	c.JSON(http.StatusOK, body)
}

// fail は失敗レスポンスを返します。CONFLICTも同じ封筒で返すため、
// クライアントは再試行時の競合を無害なシグナルとして読めます。
func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"code":    code,
		"error":   message,
	})
}
