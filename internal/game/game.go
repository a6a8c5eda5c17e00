// internal/game/game.go
package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mtgbuilder/tabletop/internal/models"
)

const (
	DefaultFormat     = "Commander"
	DefaultMinPlayers = 2
	DefaultMaxPlayers = 4

	// historyWindow is how many recent actions are sent to clients.
	historyWindow = 20
)

// Phase is a step of the turn structure.
type Phase string

const (
	PhaseUntap           Phase = "untap"
	PhaseUpkeep          Phase = "upkeep"
	PhaseDraw            Phase = "draw"
	PhaseMain1           Phase = "main1"
	PhaseCombatBegin     Phase = "combat_begin"
	PhaseCombatAttackers Phase = "combat_attackers"
	PhaseCombatBlockers  Phase = "combat_blockers"
	PhaseCombatDamage    Phase = "combat_damage"
	PhaseCombatEnd       Phase = "combat_end"
	PhaseMain2           Phase = "main2"
	PhaseEnd             Phase = "end"
	PhaseCleanup         Phase = "cleanup"
)

var phases = []Phase{
	PhaseUntap, PhaseUpkeep, PhaseDraw, PhaseMain1,
	PhaseCombatBegin, PhaseCombatAttackers, PhaseCombatBlockers, PhaseCombatDamage, PhaseCombatEnd,
	PhaseMain2, PhaseEnd, PhaseCleanup,
}

// ParsePhase validates a client-supplied phase name.
func ParsePhase(s string) (Phase, bool) {
	p := Phase(s)
	return p, slices.Contains(phases, p)
}

var (
	ErrAlreadyStarted = errors.New("Game already started")
	ErrNotAllReady    = errors.New("Not all players are ready")
)

// Room is one game session: seated players, turn state, and history.
//
// Every exported method other than NewRoom expects the caller to hold Mu.
type Room struct {
	Mu sync.Mutex

	ID         uuid.UUID
	Code       string
	HostID     uuid.UUID
	Format     string
	MinPlayers int
	MaxPlayers int

	Players map[uuid.UUID]*PlayerState
	// Seats is join order, used to keep projections stable.
	Seats []uuid.UUID

	TurnOrder      []uuid.UUID
	ActivePlayerID uuid.UUID
	TurnNumber     int
	Phase          Phase
	Started        bool

	History []models.GameAction

	// OnAction is called with each recorded history entry while Mu is held.
	// It must not block.
	OnAction func(code string, action models.GameAction)

	rng *rand.Rand
}

// NewRoom creates an empty room in the lobby state. maxPlayers is clamped to
// [DefaultMinPlayers, DefaultMaxPlayers]. A nil rng gets a randomly seeded one.
func NewRoom(code string, hostID uuid.UUID, maxPlayers int, rng *rand.Rand) *Room {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	return &Room{
		ID:         uuid.New(),
		Code:       code,
		HostID:     hostID,
		Format:     DefaultFormat,
		MinPlayers: DefaultMinPlayers,
		MaxPlayers: min(max(maxPlayers, DefaultMinPlayers), DefaultMaxPlayers),
		Players:    make(map[uuid.UUID]*PlayerState),
		Phase:      PhaseMain1,
		rng:        rng,
	}
}

// Seat creates the player's state from deck and adds them to the room.
// Capacity and duplicate checks belong to the caller.
func (r *Room) Seat(user models.User, deck models.Deck) *PlayerState {
	p := NewPlayerState(user, deck, r.rng)
	r.Players[user.ID] = p
	r.Seats = append(r.Seats, user.ID)
	return p
}

// Unseat removes a player. Turn order is left as it was; if the departing
// player held the active seat, it passes to the next seated player.
// Returns true when the room is now empty.
func (r *Room) Unseat(id uuid.UUID) bool {
	if _, ok := r.Players[id]; !ok {
		return len(r.Players) == 0
	}
	delete(r.Players, id)
	r.Seats = slices.DeleteFunc(r.Seats, func(s uuid.UUID) bool { return s == id })

	if r.Started && r.ActivePlayerID == id {
		if next, ok := r.nextSeated(id); ok {
			r.ActivePlayerID = next
		} else {
			r.ActivePlayerID = uuid.Nil
		}
	}
	return len(r.Players) == 0
}

// Full reports whether the room is at capacity.
func (r *Room) Full() bool {
	return len(r.Players) >= r.MaxPlayers
}

// Open reports whether the room still accepts joins.
func (r *Room) Open() bool {
	return !r.Started && !r.Full()
}

func (r *Room) allReady() bool {
	for _, p := range r.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// Start moves the room from lobby to active: every seated player must be
// ready and the minimum count met. Turn order is a shuffle of the seated ids.
func (r *Room) Start() error {
	if r.Started {
		return ErrAlreadyStarted
	}
	if len(r.Players) < r.MinPlayers {
		return fmt.Errorf("Need at least %d players", r.MinPlayers)
	}
	if !r.allReady() {
		return ErrNotAllReady
	}

	order := slices.Clone(r.Seats)
	r.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	r.TurnOrder = order
	r.ActivePlayerID = order[0]
	r.TurnNumber = 1
	r.Phase = PhaseMain1
	r.Started = true
	return nil
}

// nextSeated walks TurnOrder cyclically from after id and returns the first
// player still seated. id itself need not be seated or in TurnOrder.
func (r *Room) nextSeated(id uuid.UUID) (uuid.UUID, bool) {
	n := len(r.TurnOrder)
	if n == 0 {
		return uuid.Nil, false
	}
	start := slices.Index(r.TurnOrder, id)
	for step := 1; step <= n; step++ {
		cand := r.TurnOrder[(start+step+n)%n]
		if _, ok := r.Players[cand]; ok {
			return cand, true
		}
	}
	return uuid.Nil, false
}

// record appends a history entry and hands it to OnAction.
func (r *Room) record(entry models.GameAction) {
	entry.ID = uuid.Must(uuid.NewV7())
	entry.Timestamp = time.Now().UTC()
	r.History = append(r.History, entry)
	if r.OnAction != nil {
		r.OnAction(r.Code, entry)
	}
}

// RecentHistory returns up to the last 20 entries.
func (r *Room) RecentHistory() []models.GameAction {
	if len(r.History) <= historyWindow {
		return slices.Clone(r.History)
	}
	return slices.Clone(r.History[len(r.History)-historyWindow:])
}
