package models

import (
	"gorm.io/gorm"
)

// PlayerSession モデルの定義
// トークンは参加時に発行される推測不能な文字列で、コアは参照のみ行います。
type PlayerSession struct {
	gorm.Model
	Token    string `gorm:"uniqueIndex;not null"`
	PlayerID uint   `gorm:"not null;index"`
}
