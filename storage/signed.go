package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// CredentialTTL はアップロード資格情報の有効期間です。
const CredentialTTL = 15 * time.Minute

var ErrInvalidUploadToken = errors.New("storage: invalid upload token")

// uploadClaims はアップロードトークンに内包するデータです。
type uploadClaims struct {
	Path      string `json:"pth"`
	Overwrite bool   `json:"ovr"`
	jwt.RegisteredClaims
}

// SignedStorage はHS256署名付きトークンでパス単位のアップロードを許可する
// Storage実装です。ストレージゲートウェイが同じシークレットでトークンを
// 検証する前提で、バイト列はサーバーを経由しません。
type SignedStorage struct {
	baseURL *url.URL
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

func NewSignedStorage(baseURL string, secret []byte) (*SignedStorage, error) {
	if len(secret) == 0 {
		return nil, errors.New("storage: signing secret is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("storage: invalid base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("storage: base URL must be absolute: %q", baseURL)
	}
	return &SignedStorage{
		baseURL: parsed,
		secret:  secret,
		ttl:     CredentialTTL,
		now:     time.Now,
	}, nil
}

func (s *SignedStorage) CreateUploadCredential(ctx context.Context, objectPath string, allowOverwrite bool) (UploadCredential, error) {
	objectPath = strings.TrimPrefix(objectPath, "/")
	if objectPath == "" {
		return UploadCredential{}, errors.New("storage: object path is required")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := uploadClaims{
		Path:      objectPath,
		Overwrite: allowOverwrite,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return UploadCredential{}, err
	}

	signedURL := s.baseURL.JoinPath("upload", objectPath)
	query := signedURL.Query()
	query.Set("token", tokenString)
	signedURL.RawQuery = query.Encode()

	return UploadCredential{
		Path:      objectPath,
		Token:     tokenString,
		SignedURL: signedURL.String(),
		ExpiresAt: expiresAt,
	}, nil
}

func (s *SignedStorage) PublicURL(objectPath string) string {
	return s.baseURL.JoinPath(strings.TrimPrefix(objectPath, "/")).String()
}

// VerifyUploadToken はトークンを検証し、許可されたパスを返します。
// ストレージゲートウェイ側の検証と同じロジックです。
func (s *SignedStorage) VerifyUploadToken(tokenString string) (string, error) {
	claims := &uploadClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("storage: unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.Path == "" {
		return "", ErrInvalidUploadToken
	}
	return claims.Path, nil
}
