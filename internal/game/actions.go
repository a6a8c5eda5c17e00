// internal/game/actions.go
package game

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mtgbuilder/tabletop/internal/mana"
	"github.com/mtgbuilder/tabletop/internal/models"
)

// ActionType tags a player action.
type ActionType string

const (
	ActionMulligan        ActionType = "mulligan"
	ActionKeepHand        ActionType = "keep_hand"
	ActionDrawOpeningHand ActionType = "draw_opening_hand"

	ActionDrawCard        ActionType = "draw_card"
	ActionPlayCard        ActionType = "play_card"
	ActionMoveCard        ActionType = "move_card"
	ActionDiscardCard     ActionType = "discard_card"
	ActionTapCard         ActionType = "tap_card"
	ActionTapForMana      ActionType = "tap_for_mana"
	ActionUntapAll        ActionType = "untap_all"
	ActionAddMana         ActionType = "add_mana"
	ActionRemoveMana      ActionType = "remove_mana"
	ActionClearManaPool   ActionType = "clear_mana_pool"
	ActionPayMana         ActionType = "pay_mana"
	ActionShuffleLibrary  ActionType = "shuffle_library"
	ActionMill            ActionType = "mill"
	ActionUpdateLife      ActionType = "update_life"
	ActionUpdatePoison    ActionType = "update_poison"
	ActionCommanderDamage ActionType = "commander_damage"
	ActionAddCounter      ActionType = "add_counter"
	ActionRemoveCounter   ActionType = "remove_counter"
	ActionFlipCard        ActionType = "flip_card"
	ActionAttachCard      ActionType = "attach_card"
	ActionSetPhase        ActionType = "set_phase"
	ActionNextTurn        ActionType = "next_turn"
)

const defaultCounterType = "+1/+1"

// Action is the decoded body of a game_action message. Optional numeric
// fields are pointers so an absent value can fall back to its default.
type Action struct {
	Type           ActionType     `json:"action"`
	InstanceID     string         `json:"instance_id,omitempty"`
	TargetID       string         `json:"target_id,omitempty"`
	ToZone         string         `json:"to_zone,omitempty"`
	Color          string         `json:"color,omitempty"`
	Amount         *int           `json:"amount,omitempty"`
	Count          *int           `json:"count,omitempty"`
	Change         int            `json:"change,omitempty"`
	CounterType    string         `json:"counter_type,omitempty"`
	Phase          string         `json:"phase,omitempty"`
	ManaCost       string         `json:"mana_cost,omitempty"`
	Allocation     map[string]int `json:"allocation,omitempty"`
	SourcePlayerID string         `json:"source_player_id,omitempty"`
	Details        string         `json:"details,omitempty"`
}

func (a Action) amount() int {
	if a.Amount == nil {
		return 1
	}
	return *a.Amount
}

func (a Action) count() int {
	if a.Count == nil {
		return 1
	}
	return *a.Count
}

func (a Action) counterType() string {
	if a.CounterType == "" {
		return defaultCounterType
	}
	return a.CounterType
}

var (
	ErrNotStarted       = errors.New("Game has not started yet")
	ErrPlayerNotInGame  = errors.New("Player not in game")
	ErrOpeningHandDrawn = errors.New("Opening hand already drawn")
	ErrCannotMulligan   = errors.New("Cannot mulligan further")
	ErrLibraryEmpty     = errors.New("Library is empty")
	ErrNotInHand        = errors.New("Card not found in hand")
	ErrCardNotFound     = errors.New("Card not found")
	ErrNotOnBattlefield = errors.New("Card not found on battlefield")
	ErrAlreadyTapped    = errors.New("Card is already tapped")
	ErrNoTurnOrder      = errors.New("No turn order set")
	ErrInvalidZone      = errors.New("Invalid zone")
	ErrInvalidAmount    = errors.New("Invalid amount")
	ErrUnknownPlayer    = errors.New("Unknown player")
	ErrInsufficientMana = mana.ErrInsufficientMana
)

// actionContext is what a handler works on. The room lock is held.
type actionContext struct {
	room   *Room
	player *PlayerState
	action Action
	// entry is pre-filled from the action and may be enriched by the handler
	// before it is recorded.
	entry *models.GameAction
}

type actionHandler func(ctx *actionContext) error

var (
	preGameHandlers map[ActionType]actionHandler
	inGameHandlers  map[ActionType]actionHandler
)

func init() {
	preGameHandlers = map[ActionType]actionHandler{
		ActionMulligan:        handleMulligan,
		ActionKeepHand:        handleKeepHand,
		ActionDrawOpeningHand: handleDrawOpeningHand,
	}
	inGameHandlers = map[ActionType]actionHandler{
		ActionDrawCard:        handleDrawCard,
		ActionPlayCard:        handlePlayCard,
		ActionMoveCard:        handleMoveCard,
		ActionDiscardCard:     handleDiscardCard,
		ActionTapCard:         handleTapCard,
		ActionTapForMana:      handleTapForMana,
		ActionUntapAll:        handleUntapAll,
		ActionAddMana:         handleAddMana,
		ActionRemoveMana:      handleRemoveMana,
		ActionClearManaPool:   handleClearManaPool,
		ActionPayMana:         handlePayMana,
		ActionShuffleLibrary:  handleShuffleLibrary,
		ActionMill:            handleMill,
		ActionUpdateLife:      handleUpdateLife,
		ActionUpdatePoison:    handleUpdatePoison,
		ActionCommanderDamage: handleCommanderDamage,
		ActionAddCounter:      handleAddCounter,
		ActionRemoveCounter:   handleRemoveCounter,
		ActionFlipCard:        handleFlipCard,
		ActionAttachCard:      handleAttachCard,
		ActionSetPhase:        handleSetPhase,
		ActionNextTurn:        handleNextTurn,
	}
}

// Apply validates and performs an action for playerID. A non-nil error is a
// user-facing rejection and the room is left exactly as it was. Successful
// actions are appended to History. Caller must hold r.Mu.
func (r *Room) Apply(playerID uuid.UUID, a Action) error {
	p, ok := r.Players[playerID]
	if !ok {
		return ErrPlayerNotInGame
	}

	table := inGameHandlers
	if !r.Started {
		table = preGameHandlers
	}
	handler, ok := table[a.Type]
	if !ok {
		if !r.Started {
			return ErrNotStarted
		}
		return fmt.Errorf("Unknown action: %s", a.Type)
	}

	entry := &models.GameAction{
		PlayerID: playerID,
		Type:     string(a.Type),
		ToZone:   a.ToZone,
		Details:  a.Details,
	}
	if id, err := uuid.Parse(a.InstanceID); err == nil {
		entry.CardInstanceID = &id
	}

	if err := handler(&actionContext{room: r, player: p, action: a, entry: entry}); err != nil {
		return err
	}
	r.record(*entry)
	return nil
}

// instanceID parses the action's card reference. An unparseable id can
// never match a card, so it reports the handler's not-found error.
func (c *actionContext) instanceID(notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(c.action.InstanceID)
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

func (c *actionContext) battlefieldCard() (*Card, error) {
	id, err := c.instanceID(ErrNotOnBattlefield)
	if err != nil {
		return nil, err
	}
	card := c.player.findIn(ZoneBattlefield, id)
	if card == nil {
		return nil, ErrNotOnBattlefield
	}
	return card, nil
}

func (c *actionContext) color() (mana.Color, error) {
	sym := c.action.Color
	if sym == "" {
		sym = "C"
	}
	col, ok := mana.ParseColor(sym)
	if !ok {
		return 0, fmt.Errorf("Invalid mana color: %s", c.action.Color)
	}
	return col, nil
}

// Pre-game.

func handleDrawOpeningHand(c *actionContext) error {
	if c.player.HasDrawnOpening {
		return ErrOpeningHandDrawn
	}
	c.player.drawOpeningHand()
	return nil
}

func handleMulligan(c *actionContext) error {
	p := c.player
	if p.MulliganCount >= maxMulligans {
		return ErrCannotMulligan
	}
	for _, card := range p.Hand {
		card.Zone = ZoneLibrary
		card.Tapped = false
	}
	p.Library = append(p.Library, p.Hand...)
	p.Hand = nil
	shuffleCards(c.room.rng, p.Library)
	p.MulliganCount++
	p.drawOpeningHand()
	return nil
}

// handleKeepHand marks the player ready and starts the game once everyone
// seated is ready and the room has enough players.
func handleKeepHand(c *actionContext) error {
	c.player.Ready = true
	r := c.room
	if r.allReady() && len(r.Players) >= r.MinPlayers {
		// Preconditions were just checked, so Start cannot fail here.
		_ = r.Start()
	}
	return nil
}

// In-game.

func handleDrawCard(c *actionContext) error {
	if c.player.moveTop(1, ZoneHand) == 0 {
		return ErrLibraryEmpty
	}
	c.entry.FromZone = string(ZoneLibrary)
	c.entry.ToZone = string(ZoneHand)
	return nil
}

func handlePlayCard(c *actionContext) error {
	id, err := c.instanceID(ErrNotInHand)
	if err != nil {
		return err
	}
	card := c.player.takeFrom(ZoneHand, id)
	if card == nil {
		return ErrNotInHand
	}
	card.Tapped = false
	c.player.put(card, ZoneBattlefield)
	c.entry.FromZone = string(ZoneHand)
	c.entry.ToZone = string(ZoneBattlefield)
	return nil
}

func handleMoveCard(c *actionContext) error {
	target := ZoneBattlefield
	if c.action.ToZone != "" {
		z, ok := ParseZone(c.action.ToZone)
		if !ok {
			return ErrInvalidZone
		}
		target = z
	}
	id, err := c.instanceID(ErrCardNotFound)
	if err != nil {
		return err
	}
	_, from, ok := c.player.findCard(id)
	if !ok {
		return ErrCardNotFound
	}
	card := c.player.takeFrom(from, id)
	c.player.put(card, target)
	c.entry.FromZone = string(from)
	c.entry.ToZone = string(target)
	return nil
}

func handleDiscardCard(c *actionContext) error {
	id, err := c.instanceID(ErrNotInHand)
	if err != nil {
		return err
	}
	card := c.player.takeFrom(ZoneHand, id)
	if card == nil {
		return ErrNotInHand
	}
	c.player.put(card, ZoneGraveyard)
	c.entry.FromZone = string(ZoneHand)
	c.entry.ToZone = string(ZoneGraveyard)
	return nil
}

func handleTapCard(c *actionContext) error {
	card, err := c.battlefieldCard()
	if err != nil {
		return err
	}
	card.Tapped = !card.Tapped
	return nil
}

// handleTapForMana taps a permanent and adds one mana. Without an explicit
// color the first color the card's text suggests is used.
func handleTapForMana(c *actionContext) error {
	card, err := c.battlefieldCard()
	if err != nil {
		return err
	}
	var col mana.Color
	if c.action.Color == "" {
		col = mana.DetectLandMana(card.TypeLine, card.OracleText)[0]
	} else if col, err = c.color(); err != nil {
		return err
	}
	if card.Tapped {
		return ErrAlreadyTapped
	}
	card.Tapped = true
	c.player.Pool.Add(col, 1)
	c.entry.Details = col.String()
	return nil
}

func handleUntapAll(c *actionContext) error {
	c.player.untapAll()
	return nil
}

func handleAddMana(c *actionContext) error {
	col, err := c.color()
	if err != nil {
		return err
	}
	n := c.action.amount()
	if n < 0 || n > mana.MaxAmount {
		return ErrInvalidAmount
	}
	c.player.Pool.Add(col, n)
	return nil
}

func handleRemoveMana(c *actionContext) error {
	col, err := c.color()
	if err != nil {
		return err
	}
	n := c.action.amount()
	if n < 0 || n > mana.MaxAmount {
		return ErrInvalidAmount
	}
	c.player.Pool.Remove(col, n)
	return nil
}

func handleClearManaPool(c *actionContext) error {
	c.player.Pool.Clear()
	return nil
}

// handlePayMana pays either an explicit mana_cost or the cost printed on
// instance_id, spending any allocation first.
func handlePayMana(c *actionContext) error {
	costText := c.action.ManaCost
	if costText == "" {
		id, err := c.instanceID(ErrCardNotFound)
		if err != nil {
			return err
		}
		card, _, ok := c.player.findCard(id)
		if !ok {
			return ErrCardNotFound
		}
		costText = card.ManaCost
	}

	alloc := make(mana.Allocation, len(c.action.Allocation))
	for sym, n := range c.action.Allocation {
		col, ok := mana.ParseColor(sym)
		if !ok {
			return fmt.Errorf("Invalid mana color: %s", sym)
		}
		alloc[col] = n
	}

	next, err := mana.Pay(c.player.Pool, mana.ParseCost(costText), alloc)
	if err != nil {
		return err
	}
	c.player.Pool = next
	if c.entry.Details == "" {
		c.entry.Details = costText
	}
	return nil
}

func handleShuffleLibrary(c *actionContext) error {
	shuffleCards(c.room.rng, c.player.Library)
	return nil
}

func handleMill(c *actionContext) error {
	if c.action.count() < 0 {
		return ErrInvalidAmount
	}
	c.player.moveTop(c.action.count(), ZoneGraveyard)
	c.entry.FromZone = string(ZoneLibrary)
	c.entry.ToZone = string(ZoneGraveyard)
	return nil
}

func handleUpdateLife(c *actionContext) error {
	c.player.Life += c.action.Change
	return nil
}

func handleUpdatePoison(c *actionContext) error {
	c.player.Poison = max(0, c.player.Poison+c.action.Change)
	return nil
}

// handleCommanderDamage records damage dealt to the acting player by the
// commander of source_player_id. Life moves by the same amount the tally does.
func handleCommanderDamage(c *actionContext) error {
	src, err := uuid.Parse(c.action.SourcePlayerID)
	if err != nil || src == c.player.ID {
		return ErrUnknownPlayer
	}
	if _, ok := c.room.Players[src]; !ok {
		return ErrUnknownPlayer
	}
	before := c.player.CommanderDamage[src]
	after := max(0, before+c.action.Change)
	if after == 0 {
		delete(c.player.CommanderDamage, src)
	} else {
		c.player.CommanderDamage[src] = after
	}
	c.player.Life -= after - before
	return nil
}

func handleAddCounter(c *actionContext) error {
	card, err := c.battlefieldCard()
	if err != nil {
		return err
	}
	card.Counters[c.action.counterType()]++
	return nil
}

func handleRemoveCounter(c *actionContext) error {
	card, err := c.battlefieldCard()
	if err != nil {
		return err
	}
	kind := c.action.counterType()
	if card.Counters[kind] <= 1 {
		delete(card.Counters, kind)
	} else {
		card.Counters[kind]--
	}
	return nil
}

func handleFlipCard(c *actionContext) error {
	card, err := c.battlefieldCard()
	if err != nil {
		return err
	}
	card.FaceDown = !card.FaceDown
	return nil
}

// handleAttachCard attaches instance_id to target_id on the battlefield, or
// detaches it when target_id is empty.
func handleAttachCard(c *actionContext) error {
	card, err := c.battlefieldCard()
	if err != nil {
		return err
	}
	if c.action.TargetID == "" {
		card.AttachedTo = nil
		return nil
	}
	target, err := uuid.Parse(c.action.TargetID)
	if err != nil || target == card.InstanceID || !c.room.onAnyBattlefield(target) {
		return ErrNotOnBattlefield
	}
	card.AttachedTo = &target
	return nil
}

// handleSetPhase moves the room to phase, main1 when none is given.
func handleSetPhase(c *actionContext) error {
	name := c.action.Phase
	if name == "" {
		name = string(PhaseMain1)
	}
	ph, ok := ParsePhase(name)
	if !ok {
		return fmt.Errorf("Invalid phase: %s", c.action.Phase)
	}
	c.room.Phase = ph
	c.entry.Details = string(ph)
	return nil
}

// handleNextTurn cleans up after the active player (not the caller), then
// hands the turn to the next seated player in turn order.
func handleNextTurn(c *actionContext) error {
	r := c.room
	if len(r.TurnOrder) == 0 {
		return ErrNoTurnOrder
	}
	next, ok := r.nextSeated(r.ActivePlayerID)
	if !ok {
		return ErrNoTurnOrder
	}
	if active, ok := r.Players[r.ActivePlayerID]; ok {
		active.untapAll()
		active.Pool.Clear()
	}
	r.ActivePlayerID = next
	r.TurnNumber++
	r.Phase = PhaseUntap
	return nil
}

func (r *Room) onAnyBattlefield(id uuid.UUID) bool {
	for _, p := range r.Players {
		if p.findIn(ZoneBattlefield, id) != nil {
			return true
		}
	}
	return false
}
