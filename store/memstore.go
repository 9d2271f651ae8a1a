package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"snapserver/models"
)

// MemStore はテスト用のインメモリ実装です。直列化はミューテックスで行い、
// フィルター付きUPDATEのセマンティクス（影響行数）を忠実に再現します。
type MemStore struct {
	mu         sync.Mutex
	nextID     uint
	rooms      map[uint]*models.Room
	players    map[uint]*models.Player
	members    map[uint]*models.RoomMembership
	sessions   map[uint]*models.PlayerSession
	challenges map[uint]*models.PlayerChallenge
}

func NewMemStore() *MemStore {
	return &MemStore{
		nextID:     1,
		rooms:      make(map[uint]*models.Room),
		players:    make(map[uint]*models.Player),
		members:    make(map[uint]*models.RoomMembership),
		sessions:   make(map[uint]*models.PlayerSession),
		challenges: make(map[uint]*models.PlayerChallenge),
	}
}

func (s *MemStore) allocID() uint {
	id := s.nextID
	s.nextID++
	return id
}

// AddRoom はテストデータを投入し、採番済みのコピーを返します。
func (s *MemStore) AddRoom(room models.Room) models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	room.ID = s.allocID()
	room.Code = strings.ToLower(room.Code)
	if room.Status == "" {
		room.Status = models.RoomStatusLobby
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	room.UpdatedAt = room.CreatedAt
	s.rooms[room.ID] = &room
	return room
}

func (s *MemStore) AddPlayer(player models.Player) models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	player.ID = s.allocID()
	if player.CreatedAt.IsZero() {
		player.CreatedAt = time.Now()
	}
	s.players[player.ID] = &player
	return player
}

func (s *MemStore) AddMembership(m models.RoomMembership) models.RoomMembership {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.allocID()
	s.members[m.ID] = &m
	return m
}

func (s *MemStore) AddSession(session models.PlayerSession) models.PlayerSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.ID = s.allocID()
	s.sessions[session.ID] = &session
	return session
}

func (s *MemStore) AddChallenge(c models.PlayerChallenge) models.PlayerChallenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.allocID()
	s.challenges[c.ID] = &c
	return c
}

func (s *MemStore) RoomByCode(ctx context.Context, code string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = strings.ToLower(code)
	for _, room := range s.rooms {
		if room.Code == code {
			clone := *room
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) RoomByID(ctx context.Context, id uint) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *room
	return &clone, nil
}

func (s *MemStore) PlayerByID(ctx context.Context, id uint) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *player
	return &clone, nil
}

func (s *MemStore) SessionByToken(ctx context.Context, token string) (*models.PlayerSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.Token == token {
			clone := *session
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) MembershipRole(ctx context.Context, roomID, playerID uint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.RoomID == roomID && m.PlayerID == playerID {
			return m.Role, nil
		}
	}
	return "", ErrNotFound
}

func (s *MemStore) PlayersByRoom(ctx context.Context, roomID uint) ([]models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var players []models.Player
	for _, player := range s.players {
		if player.RoomID == roomID {
			players = append(players, *player)
		}
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].CreatedAt.Equal(players[j].CreatedAt) {
			return players[i].ID < players[j].ID
		}
		return players[i].CreatedAt.Before(players[j].CreatedAt)
	})
	return players, nil
}

func (s *MemStore) ChallengeByID(ctx context.Context, id uint) (*models.PlayerChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *challenge
	return &clone, nil
}

func (s *MemStore) UpdateRoomFields(ctx context.Context, roomID uint, filters map[string]interface{}, fields map[string]interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return 0, nil
	}
	for column, value := range filters {
		if !roomColumnEquals(room, column, value) {
			return 0, nil
		}
	}
	for column, value := range fields {
		setRoomColumn(room, column, value)
	}
	room.UpdatedAt = time.Now()
	return 1, nil
}

func roomColumnEquals(room *models.Room, column string, value interface{}) bool {
	switch column {
	case "status":
		return room.Status == value.(string)
	case "rounds":
		return room.Rounds == value.(int)
	default:
		return false
	}
}

func setRoomColumn(room *models.Room, column string, value interface{}) {
	switch column {
	case "name":
		room.Name = value.(string)
	case "status":
		room.Status = value.(string)
	case "rounds":
		room.Rounds = value.(int)
	case "starts_at":
		t := value.(time.Time)
		room.StartsAt = &t
	case "ends_at":
		t := value.(time.Time)
		room.EndsAt = &t
	}
}

func (s *MemStore) UpdateChallengeMedia(ctx context.Context, challengeID uint, url, mediaType, mime string, uploadedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[challengeID]
	if !ok {
		return ErrNotFound
	}
	challenge.MediaURL = url
	challenge.MediaType = mediaType
	challenge.MediaMime = mime
	uploaded := uploadedAt
	challenge.MediaUploadedAt = &uploaded
	return nil
}

func (s *MemStore) DeleteRoomCascade(ctx context.Context, roomID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	playerIDs := make(map[uint]bool)
	for id, player := range s.players {
		if player.RoomID == roomID {
			playerIDs[id] = true
			delete(s.players, id)
		}
	}
	for id, session := range s.sessions {
		if playerIDs[session.PlayerID] {
			delete(s.sessions, id)
		}
	}
	for id, challenge := range s.challenges {
		if playerIDs[challenge.PlayerID] {
			delete(s.challenges, id)
		}
	}
	for id, m := range s.members {
		if m.RoomID == roomID {
			delete(s.members, id)
		}
	}
	delete(s.rooms, roomID)
	return nil
}

func (s *MemStore) StaleLobbyRooms(ctx context.Context, cutoff time.Time) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rooms []models.Room
	for _, room := range s.rooms {
		if room.Status == models.RoomStatusLobby && !room.UpdatedAt.After(cutoff) {
			rooms = append(rooms, *room)
		}
	}
	return rooms, nil
}
