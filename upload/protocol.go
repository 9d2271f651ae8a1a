package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"snapserver/auth"
	"snapserver/models"
	"snapserver/storage"
	"snapserver/store"

	"go.uber.org/zap"
)

var (
	// ErrNotFound はチャレンジが存在しないか、呼び出し元の所有でない場合です。
	ErrNotFound = errors.New("upload: challenge not found")
	// ErrInvalidMime はimage/videoファミリー以外のmimeを示します。
	ErrInvalidMime = errors.New("upload: mime type must be image or video")
	// ErrNotAllowed はコミットされたパスが本人の領域外であることを示します。
	ErrNotAllowed = errors.New("upload: path does not belong to the caller")
)

// サブタイプから機械的に導けない拡張子だけをここで固定する
var mimeExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/svg+xml":   ".svg",
	"video/quicktime": ".mov",
}

// Protocol はメディア添付の2段階ハンドシェイク（reserve→commit）です。
// バイト列はクライアントがストレージへ直接転送するため、サーバーの役割は
// パスの認可と結果の記録だけです。2つのフェーズは信頼を共有せず、
// それぞれ独立に所有権を検証します。
type Protocol struct {
	store   store.Store
	storage storage.Storage
	logger  *zap.Logger
	now     func() time.Time
}

func NewProtocol(st store.Store, backend storage.Storage, logger *zap.Logger) *Protocol {
	return &Protocol{store: st, storage: backend, logger: logger, now: time.Now}
}

// MediaFamily はmimeをメディア種別に分類します。
func MediaFamily(mimeType string) (string, bool) {
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return models.MediaTypeVideo, true
	case strings.HasPrefix(mimeType, "image/"):
		return models.MediaTypeImage, true
	default:
		return "", false
	}
}

func extensionFor(mimeType string) string {
	if ext, ok := mimeExtensions[mimeType]; ok {
		return ext
	}
	if i := strings.Index(mimeType, "/"); i >= 0 {
		return "." + mimeType[i+1:]
	}
	return ""
}

// ObjectPath はアップロード先のパスを決定的に導出します。
// 形は {player_id}/{block_start RFC3339}/{challenge_id}{ext} で、
// 先頭のプレイヤーIDがcommit時のプレフィックス検査を支えます。
// パスをクライアントから受け取ることはありません。
func ObjectPath(playerID uint, blockStart time.Time, challengeID uint, mimeType string) string {
	return fmt.Sprintf("%d/%s/%d%s",
		playerID,
		blockStart.UTC().Format(time.RFC3339),
		challengeID,
		extensionFor(mimeType),
	)
}

// playerPrefix はプレイヤーに許可されたパスの名前空間です。
func playerPrefix(playerID uint) string {
	return fmt.Sprintf("%d/", playerID)
}

// Reserve はフェーズ1です。所有権とmimeを検証し、導出したパス専用の
// アップロード資格情報を発行して返します。
func (p *Protocol) Reserve(ctx context.Context, challengeID, actorID uint, mimeType string) (storage.UploadCredential, error) {
	challenge, decision, err := auth.ChallengeForOwner(ctx, p.store, challengeID, actorID)
	if err != nil {
		return storage.UploadCredential{}, err
	}
	if decision != auth.Allowed {
		return storage.UploadCredential{}, ErrNotFound
	}

	if _, ok := MediaFamily(mimeType); !ok {
		return storage.UploadCredential{}, ErrInvalidMime
	}

	objectPath := ObjectPath(challenge.PlayerID, challenge.BlockStart, challenge.ID, mimeType)

	// 再提出は置き換えなので上書きを許可する
	credential, err := p.storage.CreateUploadCredential(ctx, objectPath, true)
	if err != nil {
		p.logger.Error("Failed to create upload credential", zap.Error(err))
		return storage.UploadCredential{}, err
	}

	p.logger.Info("upload reserved",
		zap.Uint("challengeID", challenge.ID),
		zap.String("path", objectPath),
	)
	return credential, nil
}

// Commit はフェーズ2です。所有権を再検証し、パスが本人の名前空間に
// 収まっていることを確認した上でメディア情報を記録します。
// 同一チャレンジへの再コミットは前回の提出を置き換えます。
func (p *Protocol) Commit(ctx context.Context, challengeID, actorID uint, objectPath, mimeType string) (*models.PlayerChallenge, error) {
	challenge, decision, err := auth.ChallengeForOwner(ctx, p.store, challengeID, actorID)
	if err != nil {
		return nil, err
	}
	if decision != auth.Allowed {
		return nil, ErrNotFound
	}

	mediaType, ok := MediaFamily(mimeType)
	if !ok {
		return nil, ErrInvalidMime
	}

	// 資格情報の出どころに関わらず、他人の領域を指すパスは拒否する
	objectPath = strings.TrimPrefix(objectPath, "/")
	if !strings.HasPrefix(objectPath, playerPrefix(challenge.PlayerID)) {
		p.logger.Warn("upload commit outside player namespace",
			zap.Uint("playerID", challenge.PlayerID),
			zap.String("path", objectPath),
		)
		return nil, ErrNotAllowed
	}

	publicURL := p.storage.PublicURL(objectPath)
	uploadedAt := p.now().UTC()
	if err := p.store.UpdateChallengeMedia(ctx, challenge.ID, publicURL, mediaType, mimeType, uploadedAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	challenge.MediaURL = publicURL
	challenge.MediaType = mediaType
	challenge.MediaMime = mimeType
	challenge.MediaUploadedAt = &uploadedAt

	p.logger.Info("upload committed",
		zap.Uint("challengeID", challenge.ID),
		zap.String("mediaType", mediaType),
	)
	return challenge, nil
}
