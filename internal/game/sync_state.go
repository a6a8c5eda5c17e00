// internal/game/sync_state.go
package game

import (
	"maps"

	"github.com/google/uuid"
	"github.com/mtgbuilder/tabletop/internal/mana"
	"github.com/mtgbuilder/tabletop/internal/models"
)

// PlayerView is one player's state as a particular viewer may see it.
// Hand and Library are empty for anyone but the owner; the counts are
// always filled in.
type PlayerView struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	DeckName        string            `json:"deck_name"`
	Life            int               `json:"life"`
	Poison          int               `json:"poison"`
	CommanderDamage map[uuid.UUID]int `json:"commanderDamage"`
	ManaPool        mana.Pool         `json:"manaPool"`
	Library         []any             `json:"library"`
	Hand            []any             `json:"hand"`
	LibraryCount    int               `json:"library_count"`
	HandCount       int               `json:"hand_count"`
	Battlefield     []any             `json:"battlefield"`
	Graveyard       []any             `json:"graveyard"`
	Exile           []any             `json:"exile"`
	Command         []any             `json:"command"`
	MulliganCount   int               `json:"mulliganCount"`
	HasDrawnOpening bool              `json:"hasDrawnOpening"`
	Ready           bool              `json:"ready"`
}

// StateView is the full room snapshot for one viewer.
type StateView struct {
	ID             uuid.UUID           `json:"id"`
	GameCode       string              `json:"game_code"`
	Format         string              `json:"format"`
	HostID         uuid.UUID           `json:"host_id"`
	MaxPlayers     int                 `json:"max_players"`
	Players        []PlayerView        `json:"players"`
	ActivePlayerID *uuid.UUID          `json:"active_player_id"`
	TurnNumber     int                 `json:"turn_number"`
	Phase          Phase               `json:"phase"`
	TurnOrder      []uuid.UUID         `json:"turn_order"`
	Started        bool                `json:"started"`
	History        []models.GameAction `json:"history"`
}

// LobbySeat is the card-free summary of a seated player.
type LobbySeat struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	DeckName string    `json:"deck_name"`
	Ready    bool      `json:"ready"`
}

// LobbySummary is what the open-games listing shows for a room.
type LobbySummary struct {
	GameCode   string      `json:"game_code"`
	Host       uuid.UUID   `json:"host"`
	Players    []LobbySeat `json:"players"`
	MaxPlayers int         `json:"max_players"`
	Started    bool        `json:"started"`
}

// Project builds the state as seen by viewer. The result shares no mutable
// memory with the room, so it can be serialized after Mu is released.
func (r *Room) Project(viewer uuid.UUID) StateView {
	view := StateView{
		ID:         r.ID,
		GameCode:   r.Code,
		Format:     r.Format,
		HostID:     r.HostID,
		MaxPlayers: r.MaxPlayers,
		TurnNumber: r.TurnNumber,
		Phase:      r.Phase,
		TurnOrder:  append([]uuid.UUID{}, r.TurnOrder...),
		Started:    r.Started,
		History:    r.RecentHistory(),
		Players:    make([]PlayerView, 0, len(r.Seats)),
	}
	if r.ActivePlayerID != uuid.Nil {
		id := r.ActivePlayerID
		view.ActivePlayerID = &id
	}
	for _, id := range r.Seats {
		view.Players = append(view.Players, r.Players[id].view(viewer == id))
	}
	return view
}

// LobbyView summarizes the room for the lobby listing.
func (r *Room) LobbyView() LobbySummary {
	return LobbySummary{
		GameCode:   r.Code,
		Host:       r.HostID,
		Players:    r.LobbySeats(),
		MaxPlayers: r.MaxPlayers,
		Started:    r.Started,
	}
}

// LobbySeats lists seated players in join order.
func (r *Room) LobbySeats() []LobbySeat {
	seats := make([]LobbySeat, 0, len(r.Seats))
	for _, id := range r.Seats {
		p := r.Players[id]
		seats = append(seats, LobbySeat{ID: p.ID, Username: p.Name, DeckName: p.DeckName, Ready: p.Ready})
	}
	return seats
}

func (p *PlayerState) view(owner bool) PlayerView {
	v := PlayerView{
		ID:              p.ID,
		Name:            p.Name,
		DeckName:        p.DeckName,
		Life:            p.Life,
		Poison:          p.Poison,
		CommanderDamage: maps.Clone(p.CommanderDamage),
		ManaPool:        p.Pool,
		Library:         []any{},
		Hand:            []any{},
		LibraryCount:    len(p.Library),
		HandCount:       len(p.Hand),
		Battlefield:     publicCards(p.Battlefield, owner),
		Graveyard:       publicCards(p.Graveyard, owner),
		Exile:           publicCards(p.Exile, owner),
		Command:         publicCards(p.Command, owner),
		MulliganCount:   p.MulliganCount,
		HasDrawnOpening: p.HasDrawnOpening,
		Ready:           p.Ready,
	}
	if v.CommanderDamage == nil {
		v.CommanderDamage = map[uuid.UUID]int{}
	}
	if owner {
		v.Library = publicCards(p.Library, true)
		v.Hand = publicCards(p.Hand, true)
	}
	return v
}

// publicCards copies a zone for output. Face-down cards are reduced to
// their instance id unless the viewer owns them.
func publicCards(cards []*Card, owner bool) []any {
	out := make([]any, 0, len(cards))
	for _, c := range cards {
		if c.FaceDown && !owner {
			out = append(out, HiddenCard{InstanceID: c.InstanceID, FaceDown: true, Zone: c.Zone})
			continue
		}
		out = append(out, c.snapshot())
	}
	return out
}

func (c *Card) snapshot() Card {
	cp := *c
	cp.Counters = maps.Clone(c.Counters)
	if cp.Counters == nil {
		cp.Counters = map[string]int{}
	}
	if c.AttachedTo != nil {
		id := *c.AttachedTo
		cp.AttachedTo = &id
	}
	return cp
}
