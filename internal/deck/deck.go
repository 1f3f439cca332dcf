// Package deck defines the contract with the deck-building collaborator.
// The session core never edits decks; it only reads the card list a player
// has chosen for a game.
package deck

import "context"

// Entry is one line of a deck list: a printed card and how many copies of it
// the deck runs. Commander entries are dealt into the command zone instead of
// the shuffled library.
type Entry struct {
	ScryfallID  string
	Quantity    int
	IsCommander bool
}

// Deck is the resolved deck list for one saved deck.
type Deck struct {
	ID      string
	OwnerID string
	Name    string
	Entries []Entry
}

// TotalCards returns the number of physical copies the deck deals, commanders
// included.
func (d *Deck) TotalCards() int {
	total := 0
	for _, e := range d.Entries {
		total += e.Quantity
	}
	return total
}

// Provider exposes saved decks to the session core. A (nil, nil) return means
// the deck does not exist.
type Provider interface {
	GetDeck(ctx context.Context, deckID string) (*Deck, error)
}
