// internal/lobby/lobby_store.go
package lobby

import (
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mtgbuilder/tabletop/internal/game"
	"github.com/mtgbuilder/tabletop/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

var (
	ErrRoomNotFound  = errors.New("Game not found")
	ErrRoomStarted   = game.ErrAlreadyStarted
	ErrRoomFull      = errors.New("Game is full")
	ErrAlreadySeated = errors.New("Already in this game")
	ErrInAnotherRoom = errors.New("Already in another game")
	ErrNotInRoom     = errors.New("Not in a game")
)

// ActionSink receives every recorded action. Implementations must not block.
type ActionSink interface {
	PublishAction(code string, action models.GameAction)
}

// roomEntry pairs a room with the connections routed to it. conns is
// guarded by room.Mu.
type roomEntry struct {
	room  *game.Room
	conns map[uuid.UUID]*Connection
}

// RoomStore owns every live room.
//
// Lock order is s.mu, then a room's Mu. s.mu guards the rooms and playerRoom
// maps; everything inside a room, including its connection set, is guarded
// by that room's Mu.
type RoomStore struct {
	mu         sync.Mutex
	rooms      map[string]*roomEntry
	playerRoom map[uuid.UUID]string

	logger            *logrus.Logger
	sink              ActionSink
	defaultMaxPlayers int
}

// NewRoomStore initializes an empty store. sink may be nil.
func NewRoomStore(logger *logrus.Logger, sink ActionSink, defaultMaxPlayers int) *RoomStore {
	if defaultMaxPlayers <= 0 {
		defaultMaxPlayers = game.DefaultMaxPlayers
	}
	return &RoomStore{
		rooms:             make(map[string]*roomEntry),
		playerRoom:        make(map[uuid.UUID]string),
		logger:            logger,
		sink:              sink,
		defaultMaxPlayers: defaultMaxPlayers,
	}
}

// generateCodeLocked returns a code no live room uses. Caller holds s.mu,
// which makes the check and the later insert one atomic step.
func (s *RoomStore) generateCodeLocked() string {
	buf := make([]byte, codeLength)
	for {
		for i := range buf {
			buf[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
		}
		code := string(buf)
		if _, taken := s.rooms[code]; !taken {
			return code
		}
	}
}

// NormalizeCode upper-cases and trims a user-entered room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateRoom opens a new room in the lobby state with user as host.
// maxPlayers <= 0 selects the store default.
func (s *RoomStore) CreateRoom(user models.User, deck models.Deck, maxPlayers int) (*game.Room, error) {
	if maxPlayers <= 0 {
		maxPlayers = s.defaultMaxPlayers
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seated := s.playerRoom[user.ID]; seated {
		return nil, ErrInAnotherRoom
	}

	code := s.generateCodeLocked()
	room := game.NewRoom(code, user.ID, maxPlayers, nil)
	if s.sink != nil {
		room.OnAction = s.sink.PublishAction
	}
	room.Seat(user, deck)

	s.rooms[code] = &roomEntry{room: room, conns: make(map[uuid.UUID]*Connection)}
	s.playerRoom[user.ID] = code

	s.logger.WithFields(logrus.Fields{
		"game_code":   code,
		"user_id":     user.ID,
		"max_players": room.MaxPlayers,
	}).Info("room created")
	return room, nil
}

// JoinRoom seats user in the room with the given code.
func (s *RoomStore) JoinRoom(code string, user models.User, deck models.Deck) (*game.Room, error) {
	code = NormalizeCode(code)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if current, seated := s.playerRoom[user.ID]; seated && current != code {
		return nil, ErrInAnotherRoom
	}

	room := entry.room
	room.Mu.Lock()
	defer room.Mu.Unlock()

	switch {
	case room.Started:
		return nil, ErrRoomStarted
	case room.Full():
		return nil, ErrRoomFull
	}
	if _, ok := room.Players[user.ID]; ok {
		return nil, ErrAlreadySeated
	}

	room.Seat(user, deck)
	s.playerRoom[user.ID] = code

	s.logger.WithFields(logrus.Fields{
		"game_code": code,
		"user_id":   user.ID,
		"players":   len(room.Players),
	}).Info("player joined room")
	return room, nil
}

// LeaveRoom removes the player from whatever room they are in. It returns
// the room code and the remaining seats, or ok=false if the player was not
// seated anywhere. An emptied room is deleted immediately.
func (s *RoomStore) LeaveRoom(userID uuid.UUID) (code string, remaining []game.LobbySeat, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok = s.playerRoom[userID]
	if !ok {
		return "", nil, false
	}
	delete(s.playerRoom, userID)

	entry, exists := s.rooms[code]
	if !exists {
		return code, nil, true
	}

	room := entry.room
	room.Mu.Lock()
	empty := room.Unseat(userID)
	delete(entry.conns, userID)
	remaining = room.LobbySeats()
	room.Mu.Unlock()

	fields := logrus.Fields{"game_code": code, "user_id": userID}
	if empty {
		delete(s.rooms, code)
		s.logger.WithFields(fields).Info("last player left, room removed")
	} else {
		s.logger.WithFields(fields).Info("player left room")
	}
	return code, remaining, true
}

// StartGame moves a room from lobby to active.
func (s *RoomStore) StartGame(code string) error {
	entry, ok := s.entry(NormalizeCode(code))
	if !ok {
		return ErrRoomNotFound
	}
	entry.room.Mu.Lock()
	defer entry.room.Mu.Unlock()
	return entry.room.Start()
}

// RegisterConnection routes room broadcasts for conn.UserID to conn.
func (s *RoomStore) RegisterConnection(code string, conn *Connection) error {
	entry, ok := s.entry(NormalizeCode(code))
	if !ok {
		return ErrRoomNotFound
	}
	entry.room.Mu.Lock()
	entry.conns[conn.UserID] = conn
	entry.room.Mu.Unlock()
	return nil
}

// UnregisterConnection stops routing to conn. A newer connection for the
// same user is left alone, and superseded reports that one exists.
func (s *RoomStore) UnregisterConnection(userID uuid.UUID, conn *Connection) (superseded bool) {
	s.mu.Lock()
	code, ok := s.playerRoom[userID]
	entry := s.rooms[code]
	s.mu.Unlock()
	if !ok || entry == nil {
		return false
	}

	entry.room.Mu.Lock()
	defer entry.room.Mu.Unlock()
	current, ok := entry.conns[userID]
	if !ok {
		return false
	}
	if current == conn {
		delete(entry.conns, userID)
		return false
	}
	return true
}

// HandleAction applies an action for the player in whatever room they are
// seated in. It returns the room code so the caller can broadcast.
func (s *RoomStore) HandleAction(userID uuid.UUID, action game.Action) (string, error) {
	s.mu.Lock()
	code, ok := s.playerRoom[userID]
	entry := s.rooms[code]
	s.mu.Unlock()
	if !ok {
		return "", ErrNotInRoom
	}
	if entry == nil {
		return code, ErrRoomNotFound
	}

	entry.room.Mu.Lock()
	defer entry.room.Mu.Unlock()
	if err := entry.room.Apply(userID, action); err != nil {
		return code, err
	}
	return code, nil
}

// RoomCode reports which room the player is seated in.
func (s *RoomStore) RoomCode(userID uuid.UUID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.playerRoom[userID]
	return code, ok
}

// Snapshot projects a room for one viewer.
func (s *RoomStore) Snapshot(code string, viewer uuid.UUID) (game.StateView, bool) {
	entry, ok := s.entry(NormalizeCode(code))
	if !ok {
		return game.StateView{}, false
	}
	entry.room.Mu.Lock()
	defer entry.room.Mu.Unlock()
	return entry.room.Project(viewer), true
}

// LobbySeats lists who is seated in a room.
func (s *RoomStore) LobbySeats(code string) []game.LobbySeat {
	entry, ok := s.entry(NormalizeCode(code))
	if !ok {
		return []game.LobbySeat{}
	}
	entry.room.Mu.Lock()
	defer entry.room.Mu.Unlock()
	return entry.room.LobbySeats()
}

// OpenRooms lists rooms that have not started and still have a free seat,
// ordered by code.
func (s *RoomStore) OpenRooms() []game.LobbySummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	open := make([]game.LobbySummary, 0)
	for _, entry := range s.rooms {
		entry.room.Mu.Lock()
		if entry.room.Open() {
			open = append(open, entry.room.LobbyView())
		}
		entry.room.Mu.Unlock()
	}
	slices.SortFunc(open, func(a, b game.LobbySummary) int {
		return strings.Compare(a.GameCode, b.GameCode)
	})
	return open
}

// Count returns the number of live rooms.
func (s *RoomStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

func (s *RoomStore) entry(code string) (*roomEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rooms[code]
	return e, ok
}
