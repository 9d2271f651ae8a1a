package models

import (
	"time"

	"gorm.io/gorm"
)

// Room status values. A closed room is deleted outright and has no status.
const (
	RoomStatusLobby  = "lobby"
	RoomStatusActive = "active"
	RoomStatusEnded  = "ended"
)

const (
	MinRounds = 1
	MaxRounds = 10
)

// RoundDuration is the fixed length of one challenge round.
const RoundDuration = 30 * time.Minute

// Room モデルの定義
type Room struct {
	gorm.Model
	Code     string `gorm:"uniqueIndex;not null"` // human join key, stored lowercase
	Name     string
	Status   string `gorm:"not null;default:lobby"`
	Rounds   int    `gorm:"not null;default:3"`
	StartsAt *time.Time
	EndsAt   *time.Time
}

// Schedule returns the end time implied by a start time and the room's
// round count.
func (r *Room) Schedule(startsAt time.Time) time.Time {
	return startsAt.Add(time.Duration(r.Rounds) * RoundDuration)
}
