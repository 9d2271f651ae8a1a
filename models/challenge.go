package models

import (
	"time"

	"gorm.io/gorm"
)

// メディア種別。mimeのファミリーから導出され、クライアントからは受け取りません。
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// PlayerChallenge モデルの定義
// メディア関連のカラムはアップロードのコミットまで全てnullです。
type PlayerChallenge struct {
	gorm.Model
	PlayerID        uint      `gorm:"not null;index"`
	BlockStart      time.Time `gorm:"not null"` // このチャレンジが属するラウンドの開始時刻
	MediaURL        string
	MediaType       string // "image" または "video"
	MediaMime       string
	MediaUploadedAt *time.Time
}
