package models

import (
	"gorm.io/gorm"
)

// Player モデルの定義
type Player struct {
	gorm.Model
	Nickname string `gorm:"not null"`
	Points   int    `gorm:"not null;default:0"`
	RoomID   uint   `gorm:"not null;index"`
}
