package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"snapserver/models"
	"snapserver/rooms"
	"snapserver/roster"
	"snapserver/storage"
	"snapserver/store"
	"snapserver/upload"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// stubStorage はテスト用の決定的なStorage実装です。
type stubStorage struct{}

func (stubStorage) CreateUploadCredential(ctx context.Context, objectPath string, allowOverwrite bool) (storage.UploadCredential, error) {
	return storage.UploadCredential{
		Path:      objectPath,
		Token:     "stub-token",
		SignedURL: "https://cdn.test/upload/" + objectPath + "?token=stub-token",
		ExpiresAt: time.Now().Add(storage.CredentialTTL),
	}, nil
}

func (stubStorage) PublicURL(objectPath string) string {
	return "https://cdn.test/" + objectPath
}

type testServer struct {
	router *gin.Engine
	store  *store.MemStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	st := store.NewMemStore()

	env := &Env{
		Store:  st,
		Rooms:  rooms.NewManager(st, logger),
		Roster: roster.NewService(st, logger),
		Upload: upload.NewProtocol(st, stubStorage{}, logger),
		Logger: logger,
	}

	router := gin.New()
	router.GET("/healthz", env.Health)
	router.GET("/me", env.Me)
	router.GET("/rooms/:code", env.RoomInfo)
	router.GET("/rooms/:code/players", env.ListPlayers)
	router.PUT("/rooms/:code/name", env.Rename)
	router.PUT("/rooms/:code/rounds", env.SetRounds)
	router.POST("/rooms/:code/start", env.StartRoom)
	router.POST("/rooms/:code/end", env.EndRoom)
	router.DELETE("/rooms/:code", env.CloseRoom)
	router.POST("/challenges/:id/media/reserve", env.ReserveUpload)
	router.POST("/challenges/:id/media/commit", env.CommitUpload)

	return &testServer{router: router, store: st}
}

// seedRoom はルームとオーナー・メンバー各1名、それぞれのセッションを投入します。
func (ts *testServer) seedRoom(code string) (models.Room, models.Player, models.Player) {
	room := ts.store.AddRoom(models.Room{Code: code, Rounds: 3})
	owner := ts.store.AddPlayer(models.Player{Nickname: "host", RoomID: room.ID})
	member := ts.store.AddPlayer(models.Player{Nickname: "guest", RoomID: room.ID})
	ts.store.AddMembership(models.RoomMembership{RoomID: room.ID, PlayerID: owner.ID, Role: models.RoleOwner})
	ts.store.AddMembership(models.RoomMembership{RoomID: room.ID, PlayerID: member.ID, Role: models.RoleMember})
	ts.store.AddSession(models.PlayerSession{Token: "owner-" + code, PlayerID: owner.ID})
	ts.store.AddSession(models.PlayerSession{Token: "member-" + code, PlayerID: member.ID})
	return room, owner, member
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func assertCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d (body: %s)", status, w.Code, w.Body.String())
	}
	if code != "" && !strings.Contains(w.Body.String(), `"code":"`+code+`"`) {
		t.Fatalf("expected error code %q in body: %s", code, w.Body.String())
	}
}
