package models

import (
	"time"

	"github.com/google/uuid"
)

// GameAction is one history entry: a successful action taken in a room.
// Entries are never modified after they are recorded.
type GameAction struct {
	ID             uuid.UUID  `json:"id"`
	Timestamp      time.Time  `json:"timestamp"`
	PlayerID       uuid.UUID  `json:"playerId"`
	Type           string     `json:"type"`
	CardInstanceID *uuid.UUID `json:"cardInstanceId,omitempty"`
	FromZone       string     `json:"fromZone,omitempty"`
	ToZone         string     `json:"toZone,omitempty"`
	Details        string     `json:"details,omitempty"`
}
