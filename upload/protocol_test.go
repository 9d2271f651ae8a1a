package upload

import (
	"context"
	"fmt"
	"testing"
	"time"

	"snapserver/models"
	"snapserver/storage"
	"snapserver/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStorage は発行されたパスを記録するだけのStorage実装です。
type fakeStorage struct {
	reserved []string
}

func (f *fakeStorage) CreateUploadCredential(ctx context.Context, objectPath string, allowOverwrite bool) (storage.UploadCredential, error) {
	f.reserved = append(f.reserved, objectPath)
	return storage.UploadCredential{
		Path:      objectPath,
		Token:     "fake-token",
		SignedURL: "https://cdn.test/upload/" + objectPath + "?token=fake-token",
		ExpiresAt: time.Now().Add(storage.CredentialTTL),
	}, nil
}

func (f *fakeStorage) PublicURL(objectPath string) string {
	return "https://cdn.test/" + objectPath
}

type uploadFixture struct {
	protocol  *Protocol
	store     *store.MemStore
	backend   *fakeStorage
	player    models.Player
	other     models.Player
	challenge models.PlayerChallenge
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()
	st := store.NewMemStore()
	backend := &fakeStorage{}
	player := st.AddPlayer(models.Player{Nickname: "uploader", RoomID: 1})
	other := st.AddPlayer(models.Player{Nickname: "bystander", RoomID: 1})
	challenge := st.AddChallenge(models.PlayerChallenge{
		PlayerID:   player.ID,
		BlockStart: time.Date(2024, 6, 7, 20, 30, 0, 0, time.UTC),
	})
	return &uploadFixture{
		protocol:  NewProtocol(st, backend, zap.NewNop()),
		store:     st,
		backend:   backend,
		player:    player,
		other:     other,
		challenge: challenge,
	}
}

func TestReserveDerivesSandboxedPath(t *testing.T) {
	f := newUploadFixture(t)

	credential, err := f.protocol.Reserve(context.Background(), f.challenge.ID, f.player.ID, "image/png")
	require.NoError(t, err)

	wantPath := fmt.Sprintf("%d/2024-06-07T20:30:00Z/%d.png", f.player.ID, f.challenge.ID)
	assert.Equal(t, wantPath, credential.Path)
	assert.Equal(t, []string{wantPath}, f.backend.reserved)
}

func TestReserveRejectsUnknownMimeFamily(t *testing.T) {
	f := newUploadFixture(t)

	_, err := f.protocol.Reserve(context.Background(), f.challenge.ID, f.player.ID, "application/pdf")
	assert.ErrorIs(t, err, ErrInvalidMime)
	// 資格情報は発行されない
	assert.Empty(t, f.backend.reserved)
}

func TestReserveByNonOwner(t *testing.T) {
	f := newUploadFixture(t)

	// 他人のチャレンジは存在しない扱い
	_, err := f.protocol.Reserve(context.Background(), f.challenge.ID, f.other.ID, "image/png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReserveUnknownChallenge(t *testing.T) {
	f := newUploadFixture(t)

	_, err := f.protocol.Reserve(context.Background(), 9999, f.player.ID, "image/png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommitClassifiesMediaFamily(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	path := ObjectPath(f.player.ID, f.challenge.BlockStart, f.challenge.ID, "video/mp4")
	challenge, err := f.protocol.Commit(ctx, f.challenge.ID, f.player.ID, path, "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeVideo, challenge.MediaType)
	assert.Equal(t, "https://cdn.test/"+path, challenge.MediaURL)
	require.NotNil(t, challenge.MediaUploadedAt)

	path = ObjectPath(f.player.ID, f.challenge.BlockStart, f.challenge.ID, "image/png")
	challenge, err = f.protocol.Commit(ctx, f.challenge.ID, f.player.ID, path, "image/png")
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeImage, challenge.MediaType)

	// 再提出は追記ではなく置き換え
	stored, err := f.store.ChallengeByID(ctx, f.challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeImage, stored.MediaType)
	assert.Equal(t, "image/png", stored.MediaMime)
}

func TestCommitRejectsForeignPath(t *testing.T) {
	f := newUploadFixture(t)

	// 所有権の検査だけなら通る呼び出しでも、他人の名前空間のパスは拒否する
	foreignPath := fmt.Sprintf("%d/2024-06-07T20:30:00Z/%d.png", f.other.ID, f.challenge.ID)
	_, err := f.protocol.Commit(context.Background(), f.challenge.ID, f.player.ID, foreignPath, "image/png")
	assert.ErrorIs(t, err, ErrNotAllowed)

	stored, storeErr := f.store.ChallengeByID(context.Background(), f.challenge.ID)
	require.NoError(t, storeErr)
	assert.Empty(t, stored.MediaURL)
}

func TestCommitReauthorizesIndependently(t *testing.T) {
	f := newUploadFixture(t)

	path := ObjectPath(f.player.ID, f.challenge.BlockStart, f.challenge.ID, "image/png")
	_, err := f.protocol.Commit(context.Background(), f.challenge.ID, f.other.ID, path, "image/png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommitRejectsUnknownMime(t *testing.T) {
	f := newUploadFixture(t)

	path := ObjectPath(f.player.ID, f.challenge.BlockStart, f.challenge.ID, "image/png")
	_, err := f.protocol.Commit(context.Background(), f.challenge.ID, f.player.ID, path, "text/plain")
	assert.ErrorIs(t, err, ErrInvalidMime)
}

func TestObjectPathExtensions(t *testing.T) {
	blockStart := time.Date(2024, 6, 7, 20, 30, 0, 0, time.UTC)

	assert.Equal(t, "7/2024-06-07T20:30:00Z/12.jpg", ObjectPath(7, blockStart, 12, "image/jpeg"))
	assert.Equal(t, "7/2024-06-07T20:30:00Z/12.mov", ObjectPath(7, blockStart, 12, "video/quicktime"))
	assert.Equal(t, "7/2024-06-07T20:30:00Z/12.webm", ObjectPath(7, blockStart, 12, "video/webm"))
}
