// internal/game/card.go
package game

import (
	"strings"

	"github.com/google/uuid"
	"github.com/mtgbuilder/tabletop/internal/models"
)

// Zone is a named container a card instance occupies.
type Zone string

const (
	ZoneLibrary     Zone = "library"
	ZoneHand        Zone = "hand"
	ZoneBattlefield Zone = "battlefield"
	ZoneGraveyard   Zone = "graveyard"
	ZoneExile       Zone = "exile"
	ZoneCommand     Zone = "command"
)

// AllZones lists zones in the order they are searched.
var AllZones = []Zone{ZoneLibrary, ZoneHand, ZoneBattlefield, ZoneGraveyard, ZoneExile, ZoneCommand}

// ParseZone validates a client-supplied zone name.
func ParseZone(s string) (Zone, bool) {
	z := Zone(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllZones {
		if z == known {
			return z, true
		}
	}
	return "", false
}

// Hidden reports whether the zone's contents are private to the owner.
func (z Zone) Hidden() bool {
	return z == ZoneLibrary || z == ZoneHand
}

// Card is one physical card instance in a room. InstanceID is unique for the
// life of the room and never reused.
type Card struct {
	InstanceID  uuid.UUID      `json:"instanceId"`
	CardID      string         `json:"cardId"`
	Name        string         `json:"name"`
	ManaCost    string         `json:"mana_cost"`
	CMC         float64        `json:"cmc"`
	TypeLine    string         `json:"type_line"`
	OracleText  string         `json:"oracle_text"`
	Power       string         `json:"power,omitempty"`
	Toughness   string         `json:"toughness,omitempty"`
	Colors      []string       `json:"colors"`
	Rarity      string         `json:"rarity"`
	ImageURI    string         `json:"image_uri,omitempty"`
	Zone        Zone           `json:"zone"`
	Tapped      bool           `json:"isTapped"`
	Counters    map[string]int `json:"counters"`
	AttachedTo  *uuid.UUID     `json:"attachedTo"`
	FaceDown    bool           `json:"faceDown"`
	IsCommander bool           `json:"isCommander"`
}

// HiddenCard is what other players see of a face-down card.
type HiddenCard struct {
	InstanceID uuid.UUID `json:"instanceId"`
	FaceDown   bool      `json:"faceDown"`
	Zone       Zone      `json:"zone"`
}

// newCard builds a fresh instance of a deck entry in zone z.
func newCard(dc models.DeckCard, z Zone) *Card {
	name := dc.Data.Name
	if name == "" {
		name = "Unknown"
	}
	rarity := dc.Data.Rarity
	if rarity == "" {
		rarity = "common"
	}
	return &Card{
		InstanceID:  uuid.Must(uuid.NewV7()),
		CardID:      dc.CardID,
		Name:        name,
		ManaCost:    dc.Data.ManaCost,
		CMC:         dc.Data.CMC,
		TypeLine:    dc.Data.TypeLine,
		OracleText:  dc.Data.OracleText,
		Power:       dc.Data.Power,
		Toughness:   dc.Data.Toughness,
		Colors:      dc.Data.Colors,
		Rarity:      rarity,
		ImageURI:    dc.Data.ImageURI,
		Zone:        z,
		Counters:    make(map[string]int),
		IsCommander: dc.IsCommander,
	}
}

// expandDeckCards creates one Card per copy. A non-positive quantity counts
// as a single copy.
func expandDeckCards(entries []models.DeckCard, z Zone) []*Card {
	var cards []*Card
	for _, dc := range entries {
		for range max(dc.Quantity, 1) {
			cards = append(cards, newCard(dc, z))
		}
	}
	return cards
}
