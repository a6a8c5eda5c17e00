// internal/lobby/broadcast.go
package lobby

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BroadcastState sends every connection in the room its own projection of
// the room state. Connections that cannot accept the message are dropped
// from the room once the pass is complete.
func (s *RoomStore) BroadcastState(code string) {
	entry, ok := s.entry(NormalizeCode(code))
	if !ok {
		return
	}
	room := entry.room
	room.Mu.Lock()
	defer room.Mu.Unlock()

	var failed []uuid.UUID
	for userID, conn := range entry.conns {
		msg := map[string]interface{}{
			"type":       "game_state_update",
			"game_state": room.Project(userID),
		}
		if !conn.Write(msg) {
			failed = append(failed, userID)
		}
	}
	s.dropLocked(entry, code, failed)
}

// BroadcastMessage sends the same msg to every connection in the room
// except exclude (pass uuid.Nil to include everyone).
func (s *RoomStore) BroadcastMessage(code string, msg map[string]interface{}, exclude uuid.UUID) {
	entry, ok := s.entry(NormalizeCode(code))
	if !ok {
		return
	}
	entry.room.Mu.Lock()
	defer entry.room.Mu.Unlock()

	var failed []uuid.UUID
	for userID, conn := range entry.conns {
		if userID == exclude {
			continue
		}
		if !conn.Write(msg) {
			failed = append(failed, userID)
		}
	}
	s.dropLocked(entry, code, failed)
}

// dropLocked removes connections after a failed send. Caller holds room.Mu.
func (s *RoomStore) dropLocked(entry *roomEntry, code string, failed []uuid.UUID) {
	for _, userID := range failed {
		delete(entry.conns, userID)
		s.logger.WithFields(logrus.Fields{
			"game_code": code,
			"user_id":   userID,
		}).Warn("dropping connection after failed send")
	}
}
