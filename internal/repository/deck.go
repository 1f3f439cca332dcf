package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edhtable/edh-server-go/internal/deck"
)

// DeckRepository implements deck.Provider on PostgreSQL. Decks are written
// by the deck-building service; this server only reads them at game start
// and deck selection.
type DeckRepository struct {
	pool *pgxpool.Pool
}

// NewDeckRepository creates a deck repository.
func NewDeckRepository(db *DB) *DeckRepository {
	return &DeckRepository{pool: db.Pool()}
}

func (s *DeckRepository) GetDeck(ctx context.Context, deckID string) (*deck.Deck, error) {
	var d deck.Deck
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, name FROM decks WHERE id = $1`, deckID).
		Scan(&d.ID, &d.OwnerID, &d.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading deck: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT scryfall_id, quantity, is_commander
		FROM deck_cards WHERE deck_id = $1`, deckID)
	if err != nil {
		return nil, fmt.Errorf("loading deck cards: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e deck.Entry
		if err := rows.Scan(&e.ScryfallID, &e.Quantity, &e.IsCommander); err != nil {
			return nil, fmt.Errorf("scanning deck card: %w", err)
		}
		d.Entries = append(d.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &d, nil
}
