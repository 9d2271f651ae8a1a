package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health はDBとRedisの到達性を返します。認証は不要です。
func (e *Env) Health(c *gin.Context) {
	status := gin.H{"ok": true}

	if e.DB != nil {
		if sqlDB, err := e.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status["ok"] = false
			status["db"] = "unreachable"
		}
	}
	if e.RDB != nil {
		if err := e.RDB.Ping(c.Request.Context()).Err(); err != nil {
			status["ok"] = false
			status["redis"] = "unreachable"
		}
	}

	if status["ok"] == false {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}
