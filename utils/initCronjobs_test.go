package utils

import (
	"context"
	"testing"
	"time"

	"snapserver/models"
	"snapserver/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestSweepStaleLobbies(t *testing.T) {
	st := store.NewMemStore()
	ctx := context.Background()
	now := time.Now()

	// 25時間放置されたlobby、新しいlobby、古いが進行中のルーム
	stale := st.AddRoom(models.Room{Code: "OLDL", Model: gorm.Model{CreatedAt: now.Add(-25 * time.Hour)}})
	fresh := st.AddRoom(models.Room{Code: "NEWL"})
	active := st.AddRoom(models.Room{
		Code:   "PLAY",
		Status: models.RoomStatusActive,
		Model:  gorm.Model{CreatedAt: now.Add(-48 * time.Hour)},
	})

	stalePlayer := st.AddPlayer(models.Player{Nickname: "gone", RoomID: stale.ID})
	st.AddMembership(models.RoomMembership{RoomID: stale.ID, PlayerID: stalePlayer.ID, Role: models.RoleOwner})
	session := st.AddSession(models.PlayerSession{Token: "stale-token", PlayerID: stalePlayer.ID})
	challenge := st.AddChallenge(models.PlayerChallenge{PlayerID: stalePlayer.ID, BlockStart: now})

	deleted := SweepStaleLobbies(ctx, st, now.Add(-staleLobbyAge), zap.NewNop())
	assert.Equal(t, 1, deleted)

	// 放置されたlobbyはcloseと同じカスケードで消える
	_, err := st.RoomByID(ctx, stale.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.PlayerByID(ctx, stalePlayer.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.SessionByToken(ctx, session.Token)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.ChallengeByID(ctx, challenge.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// 新しいlobbyと進行中のルームは残る
	_, err = st.RoomByID(ctx, fresh.ID)
	assert.NoError(t, err)
	_, err = st.RoomByID(ctx, active.ID)
	assert.NoError(t, err)
}

func TestSweepCutoffBoundary(t *testing.T) {
	st := store.NewMemStore()
	ctx := context.Background()
	now := time.Now()
	cutoff := now.Add(-staleLobbyAge)

	// cutoffより少しだけ新しいlobbyは対象外
	recent := st.AddRoom(models.Room{Code: "EDGE", Model: gorm.Model{CreatedAt: cutoff.Add(time.Minute)}})

	deleted := SweepStaleLobbies(ctx, st, cutoff, zap.NewNop())
	assert.Equal(t, 0, deleted)

	room, err := st.RoomByID(ctx, recent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusLobby, room.Status)
}
