package storage

import (
	"context"
	"time"
)

// UploadCredential は特定パスへの直接アップロードを許可する短命の資格情報です。
type UploadCredential struct {
	Path      string    `json:"path"`
	Token     string    `json:"token"`
	SignedURL string    `json:"signedUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Storage はオブジェクトストレージとの契約です。バイト列の転送は
// クライアントとストレージの間で直接行われ、コアはこの2操作しか使いません。
type Storage interface {
	// CreateUploadCredential は指定パス専用のアップロード資格情報を発行します。
	CreateUploadCredential(ctx context.Context, objectPath string, allowOverwrite bool) (UploadCredential, error)

	// PublicURL はパスを公開取得可能なURLに解決します。
	PublicURL(objectPath string) string
}
