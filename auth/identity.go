package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"snapserver/models"
	"snapserver/store"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrUnauthorized はセッショントークンの欠落・無効を示します。
// トークンの存在有無を区別しないため、どちらの場合も同じエラーです。
var ErrUnauthorized = errors.New("auth: missing or invalid session token")

const (
	sessionCookie  = "session_token"
	cacheKeyPrefix = "session:"
	cacheTTL       = 5 * time.Minute
	contextKey     = "currentPlayer"
)

// TokenFromRequest はAuthorizationヘッダーまたはクッキーからトークンを取得します。
func TokenFromRequest(c *gin.Context) string {
	tokenString := c.GetHeader("Authorization")
	if strings.HasPrefix(tokenString, "Bearer ") {
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	}
	if tokenString == "" {
		if cookie, err := c.Cookie(sessionCookie); err == nil {
			tokenString = cookie
		}
	}
	return strings.TrimSpace(tokenString)
}

// Resolve はリクエストのセッショントークンをプレイヤーに解決します。
// 同一リクエスト内の2回目以降はginコンテキストのキャッシュを返します。
// rdbがあればトークン→プレイヤーIDの照会結果を短時間キャッシュしますが、
// ストアが常に正となります。
func Resolve(ctx context.Context, c *gin.Context, st store.Store, rdb *redis.Client, logger *zap.Logger) (*models.Player, error) {
	if cached, ok := c.Get(contextKey); ok {
		return cached.(*models.Player), nil
	}

	tokenString := TokenFromRequest(c)
	if tokenString == "" {
		return nil, ErrUnauthorized
	}

	playerID, ok := cachedPlayerID(ctx, rdb, tokenString)
	if !ok {
		session, err := st.SessionByToken(ctx, tokenString)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrUnauthorized
			}
			logger.Error("Failed to look up session token", zap.Error(err))
			return nil, err
		}
		playerID = session.PlayerID
		cachePlayerID(ctx, rdb, tokenString, playerID)
	}

	player, err := st.PlayerByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// セッションだけ残っている場合も認証失敗として扱う
			return nil, ErrUnauthorized
		}
		logger.Error("Failed to load player for session", zap.Error(err))
		return nil, err
	}

	c.Set(contextKey, player)
	return player, nil
}

func cachedPlayerID(ctx context.Context, rdb *redis.Client, token string) (uint, bool) {
	if rdb == nil {
		return 0, false
	}
	value, err := rdb.Get(ctx, cacheKeyPrefix+token).Result()
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func cachePlayerID(ctx context.Context, rdb *redis.Client, token string, playerID uint) {
	if rdb == nil {
		return
	}
	// キャッシュ更新の失敗は無視してストア参照にフォールバックさせる
	rdb.Set(ctx, cacheKeyPrefix+token, strconv.FormatUint(uint64(playerID), 10), cacheTTL)
}
