package models

import (
	"gorm.io/gorm"
)

// メンバーシップのロール。権限判定はこのロールのみを参照します。
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// RoomMembership モデルの定義
type RoomMembership struct {
	gorm.Model
	RoomID   uint   `gorm:"not null;uniqueIndex:idx_room_player"`
	PlayerID uint   `gorm:"not null;uniqueIndex:idx_room_player"`
	Role     string `gorm:"not null;default:member"` // "owner" または "member"
}
