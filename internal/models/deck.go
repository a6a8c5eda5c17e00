package models

import "github.com/google/uuid"

// CardData is the resolved catalog record stored alongside a deck entry.
type CardData struct {
	Name       string   `json:"name"`
	ManaCost   string   `json:"mana_cost,omitempty"`
	CMC        float64  `json:"cmc"`
	TypeLine   string   `json:"type_line"`
	OracleText string   `json:"oracle_text,omitempty"`
	Power      string   `json:"power,omitempty"`
	Toughness  string   `json:"toughness,omitempty"`
	Colors     []string `json:"colors,omitempty"`
	Rarity     string   `json:"rarity,omitempty"`
	ImageURI   string   `json:"image_uri,omitempty"`
}

// DeckCard is one deck_cards row: a catalog card, how many copies, and
// whether it starts in the command zone.
type DeckCard struct {
	CardID      string   `json:"card_id"`
	Quantity    int      `json:"quantity"`
	Zone        string   `json:"zone"`
	Tags        []string `json:"tags"`
	IsCommander bool     `json:"is_commander"`
	Data        CardData `json:"card_data"`
}

// Deck is everything needed to seat a player.
type Deck struct {
	ID     uuid.UUID  `json:"id"`
	Name   string     `json:"name"`
	Format string     `json:"format"`
	Cards  []DeckCard `json:"cards"`
}

// Size counts physical cards, quantity included.
func (d Deck) Size() int {
	n := 0
	for _, c := range d.Cards {
		n += max(c.Quantity, 1)
	}
	return n
}
