// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/mtgbuilder/tabletop/internal/database"
	"github.com/mtgbuilder/tabletop/internal/game"
	"github.com/mtgbuilder/tabletop/internal/lobby"
	"github.com/mtgbuilder/tabletop/internal/middleware"
	"github.com/mtgbuilder/tabletop/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	subprotocol  = "game"
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
	deckTimeout  = 5 * time.Second

	// maxDeckCards bounds how many card instances one seat may bring.
	maxDeckCards = 250
)

// DeckLoader fetches a player's deck. database.DeckStore satisfies it.
type DeckLoader interface {
	LoadDeck(ctx context.Context, deckID, userID uuid.UUID) (models.Deck, error)
}

// TokenVerifier resolves a session token to the player it identifies.
type TokenVerifier interface {
	AuthenticateJWT(token string) (models.User, error)
}

// ClientMessage is an inbound frame on the game socket.
type ClientMessage struct {
	Type       string          `json:"type"`
	DeckID     string          `json:"deck_id,omitempty"`
	GameCode   string          `json:"game_code,omitempty"`
	MaxPlayers int             `json:"max_players,omitempty"`
	Action     json.RawMessage `json:"action,omitempty"`
}

// GameWSHandler serves /ws/game. The client authenticates with a token, then
// creates or joins rooms and submits actions over the one socket.
func GameWSHandler(logger *logrus.Logger, store *lobby.RoomStore, decks DeckLoader, verifier TokenVerifier, origins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, authErr := verifier.AuthenticateJWT(extractToken(r))

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{subprotocol},
			OriginPatterns: origins,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != subprotocol {
			c.Close(BadSubprotocolError, "client must speak the game subprotocol")
			return
		}
		if authErr != nil {
			logger.WithField("remote", r.RemoteAddr).Warnf("rejecting game socket: %v", authErr)
			c.Close(InvalidAuthTokenError, "invalid auth token")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		s := &session{
			logger: logger.WithField("user_id", user.ID),
			store:  store,
			decks:  decks,
			user:   user,
			conn:   lobby.NewConnection(user, cancel),
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, user.ID.String())

		go writePump(ctx, c, s.conn, s.logger)
		readErr := s.readPump(ctx, c)

		s.disconnect()
		s.conn.Close()
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, user.ID.String(), readErr)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// session is one authenticated socket. Its fields are only touched by the
// read loop.
type session struct {
	logger *logrus.Entry
	store  *lobby.RoomStore
	decks  DeckLoader
	user   models.User
	conn   *lobby.Connection

	// code of the room this socket created or joined
	code string
}

// readPump handles inbound frames until the socket closes. A normal close
// returns nil.
func (s *session) readPump(ctx context.Context, c *websocket.Conn) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			s.logger.Debugf("ignoring non-text frame type %d", typ)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.conn.WriteError("Invalid JSON")
			continue
		}
		s.handle(ctx, msg)
	}
}

func (s *session) handle(ctx context.Context, msg ClientMessage) {
	switch msg.Type {
	case "create_game":
		s.createGame(ctx, msg)
	case "join_game":
		s.joinGame(ctx, msg)
	case "leave_game":
		s.leaveGame()
	case "game_action":
		s.gameAction(msg)
	case "ping":
		s.conn.Write(map[string]interface{}{"type": "pong"})
	default:
		s.conn.WriteError(fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (s *session) loadDeck(ctx context.Context, raw string) (models.Deck, bool) {
	deckID, err := uuid.Parse(raw)
	if err != nil {
		s.conn.WriteError("Invalid deck_id")
		return models.Deck{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, deckTimeout)
	defer cancel()

	deck, err := s.decks.LoadDeck(ctx, deckID, s.user.ID)
	if err != nil {
		if errors.Is(err, database.ErrDeckNotFound) {
			s.conn.WriteError(database.ErrDeckNotFound.Error())
		} else {
			s.logger.WithField("deck_id", deckID).Errorf("failed to load deck: %v", err)
			s.conn.WriteError("Failed to load deck")
		}
		return models.Deck{}, false
	}
	switch size := deck.Size(); {
	case size == 0:
		s.conn.WriteError(database.ErrDeckNotFound.Error())
		return models.Deck{}, false
	case size > maxDeckCards:
		s.conn.WriteError(fmt.Sprintf("Deck is too large (%d cards, limit %d)", size, maxDeckCards))
		return models.Deck{}, false
	}
	return deck, true
}

func (s *session) createGame(ctx context.Context, msg ClientMessage) {
	deck, ok := s.loadDeck(ctx, msg.DeckID)
	if !ok {
		return
	}
	s.leaveCurrent()

	room, err := s.store.CreateRoom(s.user, deck, msg.MaxPlayers)
	if err != nil {
		s.conn.WriteError(err.Error())
		return
	}
	s.attach(room.Code)

	view, _ := s.store.Snapshot(room.Code, s.user.ID)
	s.conn.Write(map[string]interface{}{
		"type":       "game_created",
		"game_code":  room.Code,
		"game_state": view,
	})
}

func (s *session) joinGame(ctx context.Context, msg ClientMessage) {
	code := lobby.NormalizeCode(msg.GameCode)
	if code == "" {
		s.conn.WriteError("Missing game_code")
		return
	}
	current, seated := s.store.RoomCode(s.user.ID)
	if seated && current == code {
		s.resync(code)
		return
	}
	deck, ok := s.loadDeck(ctx, msg.DeckID)
	if !ok {
		return
	}
	if seated {
		s.leaveCurrent()
	}

	if _, err := s.store.JoinRoom(code, s.user, deck); err != nil {
		s.conn.WriteError(err.Error())
		return
	}
	s.attach(code)

	s.store.BroadcastMessage(code, map[string]interface{}{
		"type":        "player_joined",
		"player_id":   s.user.ID,
		"player_name": s.user.Username,
		"players":     s.store.LobbySeats(code),
	}, uuid.Nil)
	s.store.BroadcastState(code)
}

// resync reattaches this socket to a room the player is already seated in,
// for a reconnect or a socket that stopped receiving broadcasts.
func (s *session) resync(code string) {
	s.attach(code)
	view, ok := s.store.Snapshot(code, s.user.ID)
	if !ok {
		s.conn.WriteError(lobby.ErrRoomNotFound.Error())
		return
	}
	s.conn.Write(map[string]interface{}{
		"type":       "game_state_update",
		"game_state": view,
	})
}

func (s *session) leaveGame() {
	if !s.leaveCurrent() {
		s.conn.WriteError(lobby.ErrNotInRoom.Error())
		return
	}
	s.conn.Write(map[string]interface{}{"type": "left_game"})
}

func (s *session) gameAction(msg ClientMessage) {
	reject := func(reason string) {
		s.conn.Write(map[string]interface{}{
			"type":   "action_rejected",
			"reason": reason,
			"action": msg.Action,
		})
	}
	if len(msg.Action) == 0 {
		reject("Missing action")
		return
	}
	var action game.Action
	if err := json.Unmarshal(msg.Action, &action); err != nil {
		reject("Invalid action payload")
		return
	}

	code, err := s.store.HandleAction(s.user.ID, action)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"game_code": code,
			"action":    action.Type,
		}).Debugf("action rejected: %v", err)
		reject(err.Error())
		return
	}
	s.store.BroadcastState(code)
}

// attach routes room broadcasts for code to this socket.
func (s *session) attach(code string) {
	s.code = code
	if err := s.store.RegisterConnection(code, s.conn); err != nil {
		s.logger.WithField("game_code", code).Warnf("failed to register connection: %v", err)
	}
}

// leaveCurrent unseats the player from whatever room they are in and tells
// the rest of that room. It reports whether the player was seated.
func (s *session) leaveCurrent() bool {
	code, remaining, ok := s.store.LeaveRoom(s.user.ID)
	if !ok {
		return false
	}
	s.code = ""
	if len(remaining) == 0 {
		return true
	}
	s.store.BroadcastMessage(code, map[string]interface{}{
		"type":      "player_left",
		"player_id": s.user.ID,
		"players":   remaining,
	}, uuid.Nil)
	s.store.BroadcastState(code)
	return true
}

// disconnect runs when the socket goes away. The player only leaves if the
// room they are seated in is the one this socket joined and no newer socket
// has taken over.
func (s *session) disconnect() {
	if s.store.UnregisterConnection(s.user.ID, s.conn) || s.code == "" {
		return
	}
	if current, ok := s.store.RoomCode(s.user.ID); ok && current == s.code {
		s.leaveCurrent()
	}
}

// writePump drains conn.OutChan to the socket and pings periodically.
func writePump(ctx context.Context, c *websocket.Conn, conn *lobby.Connection, logger *logrus.Entry) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal outgoing msg: %v", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("write failed: %v", err)
				conn.Close()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Debugf("ping failed: %v", err)
				conn.Close()
				return
			}
		}
	}
}
