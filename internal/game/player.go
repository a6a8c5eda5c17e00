// internal/game/player.go
package game

import (
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/mtgbuilder/tabletop/internal/mana"
	"github.com/mtgbuilder/tabletop/internal/models"
)

const (
	startingLife    = 40
	openingHandSize = 7
	maxMulligans    = 6
)

// PlayerState is everything one seated player owns in a room.
type PlayerState struct {
	ID       uuid.UUID
	Name     string
	DeckID   uuid.UUID
	DeckName string

	Life            int
	Poison          int
	CommanderDamage map[uuid.UUID]int
	Pool            mana.Pool

	Library     []*Card
	Hand        []*Card
	Battlefield []*Card
	Graveyard   []*Card
	Exile       []*Card
	Command     []*Card

	MulliganCount   int
	HasDrawnOpening bool
	Ready           bool
}

// NewPlayerState seats user with deck. Commander-flagged entries go to the
// command zone; everything else is expanded and shuffled into the library.
func NewPlayerState(user models.User, deck models.Deck, rng *rand.Rand) *PlayerState {
	var commanders, rest []models.DeckCard
	for _, dc := range deck.Cards {
		if dc.IsCommander {
			commanders = append(commanders, dc)
		} else {
			rest = append(rest, dc)
		}
	}

	p := &PlayerState{
		ID:              user.ID,
		Name:            user.Username,
		DeckID:          deck.ID,
		DeckName:        deck.Name,
		Life:            startingLife,
		CommanderDamage: make(map[uuid.UUID]int),
		Library:         expandDeckCards(rest, ZoneLibrary),
		Command:         expandDeckCards(commanders, ZoneCommand),
	}
	shuffleCards(rng, p.Library)
	return p
}

// zone returns a pointer to the slice backing z.
func (p *PlayerState) zone(z Zone) *[]*Card {
	switch z {
	case ZoneLibrary:
		return &p.Library
	case ZoneHand:
		return &p.Hand
	case ZoneBattlefield:
		return &p.Battlefield
	case ZoneGraveyard:
		return &p.Graveyard
	case ZoneExile:
		return &p.Exile
	case ZoneCommand:
		return &p.Command
	}
	return nil
}

// findCard locates an instance across every zone.
func (p *PlayerState) findCard(id uuid.UUID) (*Card, Zone, bool) {
	for _, z := range AllZones {
		for _, c := range *p.zone(z) {
			if c.InstanceID == id {
				return c, z, true
			}
		}
	}
	return nil, "", false
}

// findIn looks for an instance in one zone only.
func (p *PlayerState) findIn(z Zone, id uuid.UUID) *Card {
	for _, c := range *p.zone(z) {
		if c.InstanceID == id {
			return c
		}
	}
	return nil
}

// takeFrom removes the instance from z and returns it, or nil if absent.
func (p *PlayerState) takeFrom(z Zone, id uuid.UUID) *Card {
	list := p.zone(z)
	for i, c := range *list {
		if c.InstanceID == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return c
		}
	}
	return nil
}

// put appends c to z and updates its zone. Cards entering a hidden zone
// lose their tapped state.
func (p *PlayerState) put(c *Card, z Zone) {
	c.Zone = z
	if z.Hidden() {
		c.Tapped = false
	}
	list := p.zone(z)
	*list = append(*list, c)
}

// moveTop moves up to n cards from the front of the library into z.
func (p *PlayerState) moveTop(n int, z Zone) int {
	n = min(n, len(p.Library))
	for range n {
		c := p.Library[0]
		p.Library = p.Library[1:]
		p.put(c, z)
	}
	return n
}

func (p *PlayerState) drawOpeningHand() {
	p.moveTop(max(0, openingHandSize-p.MulliganCount), ZoneHand)
	p.HasDrawnOpening = true
}

func (p *PlayerState) untapAll() {
	for _, c := range p.Battlefield {
		c.Tapped = false
	}
}

// cardCount is the number of card instances across all zones.
func (p *PlayerState) cardCount() int {
	n := 0
	for _, z := range AllZones {
		n += len(*p.zone(z))
	}
	return n
}

func shuffleCards(rng *rand.Rand, cards []*Card) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
