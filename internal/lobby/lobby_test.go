// internal/lobby/lobby_test.go
package lobby

import (
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mtgbuilder/tabletop/internal/game"
	"github.com/mtgbuilder/tabletop/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	actions []models.GameAction
}

func (rs *recordingSink) PublishAction(code string, action models.GameAction) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.actions = append(rs.actions, action)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestStore() *RoomStore {
	return NewRoomStore(quietLogger(), nil, 0)
}

func user(name string) models.User {
	return models.User{ID: uuid.New(), Username: name}
}

func deck() models.Deck {
	d := models.Deck{ID: uuid.New(), Name: "Mono Green"}
	d.Cards = append(d.Cards,
		models.DeckCard{CardID: "cmdr", Quantity: 1, IsCommander: true, Data: models.CardData{Name: "Commander"}},
		models.DeckCard{CardID: "forest", Quantity: 30, Data: models.CardData{Name: "Forest", TypeLine: "Basic Land — Forest"}},
		models.DeckCard{CardID: "bear", Quantity: 30, Data: models.CardData{Name: "Bear", TypeLine: "Creature — Bear", ManaCost: "{1}{G}"}},
	)
	return d
}

// drain returns every message queued on conn so far.
func drain(conn *Connection) []map[string]interface{} {
	var out []map[string]interface{}
	for {
		select {
		case msg := <-conn.OutChan:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestCreateAndJoin(t *testing.T) {
	s := newTestStore()
	host, guest := user("host"), user("guest")

	room, err := s.CreateRoom(host, deck(), 0)
	require.NoError(t, err)
	assert.Len(t, room.Code, codeLength)
	assert.Equal(t, host.ID, room.HostID)
	assert.Equal(t, game.DefaultMaxPlayers, room.MaxPlayers)

	joined, err := s.JoinRoom(" "+strings.ToLower(room.Code)+" ", guest, deck())
	require.NoError(t, err)
	assert.Same(t, room, joined)
	assert.Len(t, room.Players, 2)

	code, ok := s.RoomCode(guest.ID)
	require.True(t, ok)
	assert.Equal(t, room.Code, code)
}

func TestJoinFailures(t *testing.T) {
	s := newTestStore()
	host := user("host")
	room, err := s.CreateRoom(host, deck(), 2)
	require.NoError(t, err)

	_, err = s.JoinRoom("ZZZZZZ", user("lost"), deck())
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.EqualError(t, err, "Game not found")

	_, err = s.JoinRoom(room.Code, host, deck())
	assert.ErrorIs(t, err, ErrAlreadySeated)

	_, err = s.JoinRoom(room.Code, user("second"), deck())
	require.NoError(t, err)

	_, err = s.JoinRoom(room.Code, user("third"), deck())
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.EqualError(t, err, "Game is full")

	other, err := s.CreateRoom(user("other host"), deck(), 4)
	require.NoError(t, err)
	_, err = s.JoinRoom(other.Code, host, deck())
	assert.ErrorIs(t, err, ErrInAnotherRoom)

	_, err = s.CreateRoom(host, deck(), 4)
	assert.ErrorIs(t, err, ErrInAnotherRoom)
}

func TestJoinStartedRoom(t *testing.T) {
	s := newTestStore()
	a, b := user("a"), user("b")
	room, err := s.CreateRoom(a, deck(), 4)
	require.NoError(t, err)
	_, err = s.JoinRoom(room.Code, b, deck())
	require.NoError(t, err)

	assert.EqualError(t, s.StartGame(room.Code), "Not all players are ready")

	for _, u := range []models.User{a, b} {
		_, err := s.HandleAction(u.ID, game.Action{Type: game.ActionKeepHand})
		require.NoError(t, err)
	}
	assert.True(t, room.Started)
	assert.ErrorIs(t, s.StartGame(room.Code), ErrRoomStarted)

	_, err = s.JoinRoom(room.Code, user("late"), deck())
	assert.EqualError(t, err, "Game already started")
	assert.ErrorIs(t, s.StartGame("NOPE00"), ErrRoomNotFound)
}

func TestLeaveRemovesEmptyRoom(t *testing.T) {
	s := newTestStore()
	a, b := user("a"), user("b")
	room, err := s.CreateRoom(a, deck(), 4)
	require.NoError(t, err)
	_, err = s.JoinRoom(room.Code, b, deck())
	require.NoError(t, err)

	code, remaining, ok := s.LeaveRoom(a.ID)
	require.True(t, ok)
	assert.Equal(t, room.Code, code)
	require.Len(t, remaining, 1)
	assert.Equal(t, b.ID, remaining[0].ID)
	assert.Equal(t, 1, s.Count())

	_, _, ok = s.LeaveRoom(a.ID)
	assert.False(t, ok, "leaving twice is a no-op")

	_, remaining, ok = s.LeaveRoom(b.ID)
	require.True(t, ok)
	assert.Empty(t, remaining)
	assert.Equal(t, 0, s.Count())
	_, found := s.Snapshot(room.Code, a.ID)
	assert.False(t, found)
}

func TestHandleActionNotInRoom(t *testing.T) {
	s := newTestStore()
	_, err := s.HandleAction(uuid.New(), game.Action{Type: game.ActionDrawCard})
	assert.ErrorIs(t, err, ErrNotInRoom)
	assert.EqualError(t, err, "Not in a game")
}

// TestRoomCodeUniqueness generates 10,000 codes against 5,000 live rooms.
func TestRoomCodeUniqueness(t *testing.T) {
	s := newTestStore()
	s.mu.Lock()
	defer s.mu.Unlock()

	for range 5000 {
		code := s.generateCodeLocked()
		s.rooms[code] = &roomEntry{room: game.NewRoom(code, uuid.Nil, 4, nil)}
	}
	require.Len(t, s.rooms, 5000)

	for range 10000 {
		code := s.generateCodeLocked()
		_, taken := s.rooms[code]
		require.False(t, taken, "code %s collides with a live room", code)
		require.Len(t, code, codeLength)
		for _, ch := range code {
			require.Contains(t, codeAlphabet, string(ch))
		}
	}
}

func TestConcurrentCreateUniqueCodes(t *testing.T) {
	s := newTestStore()
	var wg sync.WaitGroup
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateRoom(user("h"), deck(), 4)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, s.Count())
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	s := newTestStore()
	room, err := s.CreateRoom(user("host"), deck(), 4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	joined := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.JoinRoom(room.Code, user("g"), deck()); err == nil {
				mu.Lock()
				joined++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, joined)
	room.Mu.Lock()
	assert.Len(t, room.Players, 4)
	room.Mu.Unlock()
}

// TestBroadcastStateRedactsPerViewer checks each connection gets its own view.
func TestBroadcastStateRedactsPerViewer(t *testing.T) {
	s := newTestStore()
	a, b := user("a"), user("b")
	room, err := s.CreateRoom(a, deck(), 4)
	require.NoError(t, err)
	_, err = s.JoinRoom(room.Code, b, deck())
	require.NoError(t, err)

	connA, connB := NewConnection(a, nil), NewConnection(b, nil)
	require.NoError(t, s.RegisterConnection(room.Code, connA))
	require.NoError(t, s.RegisterConnection(room.Code, connB))

	_, err = s.HandleAction(a.ID, game.Action{Type: game.ActionDrawOpeningHand})
	require.NoError(t, err)
	s.BroadcastState(room.Code)

	msgsA, msgsB := drain(connA), drain(connB)
	require.Len(t, msgsA, 1)
	require.Len(t, msgsB, 1)

	viewA := msgsA[0]["game_state"].(game.StateView)
	viewB := msgsB[0]["game_state"].(game.StateView)
	assert.Equal(t, "game_state_update", msgsB[0]["type"])

	assert.Len(t, viewA.Players[0].Hand, 7)
	assert.Empty(t, viewB.Players[0].Hand)
	assert.Equal(t, 7, viewB.Players[0].HandCount)
}

func TestBroadcastDropsFailedConnections(t *testing.T) {
	s := newTestStore()
	a, b := user("a"), user("b")
	room, err := s.CreateRoom(a, deck(), 4)
	require.NoError(t, err)
	_, err = s.JoinRoom(room.Code, b, deck())
	require.NoError(t, err)

	good, dead := NewConnection(a, nil), NewConnection(b, nil)
	dead.Close()
	require.NoError(t, s.RegisterConnection(room.Code, good))
	require.NoError(t, s.RegisterConnection(room.Code, dead))

	s.BroadcastMessage(room.Code, map[string]interface{}{"type": "ping"}, uuid.Nil)
	assert.Len(t, drain(good), 1, "a dead peer does not stop delivery")

	room.Mu.Lock()
	_, stillThere := s.rooms[room.Code].conns[b.ID]
	room.Mu.Unlock()
	assert.False(t, stillThere)

	s.BroadcastMessage(room.Code, map[string]interface{}{"type": "ping"}, a.ID)
	assert.Empty(t, drain(good), "excluded connection gets nothing")
}

func TestDroppedConnectionStaysSeated(t *testing.T) {
	s := newTestStore()
	a, b := user("a"), user("b")
	room, err := s.CreateRoom(a, deck(), 4)
	require.NoError(t, err)
	_, err = s.JoinRoom(room.Code, b, deck())
	require.NoError(t, err)

	slow := NewConnection(b, nil)
	require.NoError(t, s.RegisterConnection(room.Code, slow))
	for range outBuffer {
		require.True(t, slow.Write(map[string]interface{}{"type": "filler"}))
	}

	s.BroadcastState(room.Code)
	assert.Len(t, drain(slow), outBuffer)

	s.BroadcastState(room.Code)
	assert.Empty(t, drain(slow), "dropped connection is no longer routed")

	code, seated := s.RoomCode(b.ID)
	assert.True(t, seated)
	assert.Equal(t, room.Code, code)

	require.NoError(t, s.RegisterConnection(room.Code, slow))
	s.BroadcastState(room.Code)
	assert.Len(t, drain(slow), 1, "re-registering restores delivery")
}

func TestConnectionWriteFull(t *testing.T) {
	conn := NewConnection(user("slow"), nil)
	for range outBuffer {
		require.True(t, conn.Write(map[string]interface{}{"type": "x"}))
	}
	assert.False(t, conn.Write(map[string]interface{}{"type": "overflow"}))

	conn.Close()
	conn.Close()
	assert.False(t, conn.WriteError("closed"))
}

func TestUnregisterKeepsNewerConnection(t *testing.T) {
	s := newTestStore()
	a := user("a")
	room, err := s.CreateRoom(a, deck(), 4)
	require.NoError(t, err)

	old, fresh := NewConnection(a, nil), NewConnection(a, nil)
	require.NoError(t, s.RegisterConnection(room.Code, old))
	require.NoError(t, s.RegisterConnection(room.Code, fresh))

	assert.True(t, s.UnregisterConnection(a.ID, old))
	s.BroadcastMessage(room.Code, map[string]interface{}{"type": "hello"}, uuid.Nil)
	assert.Len(t, drain(fresh), 1)

	assert.False(t, s.UnregisterConnection(a.ID, fresh))
	assert.False(t, s.UnregisterConnection(a.ID, fresh), "nothing left to remove")
}

func TestOpenRooms(t *testing.T) {
	s := newTestStore()
	open, err := s.CreateRoom(user("open"), deck(), 4)
	require.NoError(t, err)

	full, err := s.CreateRoom(user("full"), deck(), 2)
	require.NoError(t, err)
	_, err = s.JoinRoom(full.Code, user("second"), deck())
	require.NoError(t, err)

	rooms := s.OpenRooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, open.Code, rooms[0].GameCode)
	assert.Equal(t, "open", rooms[0].Players[0].Username)
	assert.False(t, rooms[0].Started)
}

func TestActionSinkReceivesHistory(t *testing.T) {
	sink := &recordingSink{}
	s := NewRoomStore(quietLogger(), sink, 4)
	a := user("a")
	_, err := s.CreateRoom(a, deck(), 0)
	require.NoError(t, err)

	_, err = s.HandleAction(a.ID, game.Action{Type: game.ActionDrawOpeningHand})
	require.NoError(t, err)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.actions, 1)
	assert.Equal(t, "draw_opening_hand", sink.actions[0].Type)
}
