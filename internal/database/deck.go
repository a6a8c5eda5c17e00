package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtgbuilder/tabletop/internal/models"
)

// ErrDeckNotFound covers a missing deck, a deck owned by someone else, and a
// deck with no cards. Its text is shown to players as is.
var ErrDeckNotFound = errors.New("Deck not found or empty")

// DeckStore reads decks for seating players. It never writes.
type DeckStore struct {
	pool *pgxpool.Pool
}

// NewDeckStore wraps a pool.
func NewDeckStore(pool *pgxpool.Pool) *DeckStore {
	return &DeckStore{pool: pool}
}

// LoadDeck fetches a deck owned by userID together with its resolved cards.
// Both reads happen in one read-only transaction.
func (s *DeckStore) LoadDeck(ctx context.Context, deckID, userID uuid.UUID) (models.Deck, error) {
	deck := models.Deck{ID: deckID}

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		q := `SELECT name, COALESCE(format, '') FROM decks WHERE id = $1 AND user_id = $2`
		if err := tx.QueryRow(ctx, q, deckID, userID).Scan(&deck.Name, &deck.Format); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrDeckNotFound
			}
			return err
		}

		rows, err := tx.Query(ctx, `
			SELECT card_id, quantity, COALESCE(zone, 'mainboard'), COALESCE(tags, '{}'),
			       COALESCE(is_commander, false), card_data
			FROM deck_cards
			WHERE deck_id = $1
			ORDER BY is_commander DESC, card_id`, deckID)
		if err != nil {
			return err
		}
		cards, err := pgx.CollectRows(rows, scanDeckCard)
		if err != nil {
			return err
		}
		deck.Cards = cards
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDeckNotFound) {
			return models.Deck{}, err
		}
		return models.Deck{}, fmt.Errorf("load deck %s: %w", deckID, err)
	}
	if len(deck.Cards) == 0 {
		return models.Deck{}, ErrDeckNotFound
	}
	return deck, nil
}

func scanDeckCard(row pgx.CollectableRow) (models.DeckCard, error) {
	var (
		dc  models.DeckCard
		raw []byte
	)
	if err := row.Scan(&dc.CardID, &dc.Quantity, &dc.Zone, &dc.Tags, &dc.IsCommander, &raw); err != nil {
		return dc, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &dc.Data); err != nil {
			return dc, fmt.Errorf("card_data for %s: %w", dc.CardID, err)
		}
	}
	return dc, nil
}
