package game_test

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edhtable/edh-server-go/internal/cards"
	"github.com/edhtable/edh-server-go/internal/deck"
	"github.com/edhtable/edh-server-go/internal/game"
	"github.com/edhtable/edh-server-go/internal/repository/inmem"
)

// stubResolver serves synthetic metadata for any id not listed as missing.
type stubResolver struct {
	missing map[string]bool
}

func (r *stubResolver) Resolve(_ context.Context, scryfallID string) (*cards.CardMetadata, error) {
	if r.missing[scryfallID] {
		return nil, nil
	}
	return &cards.CardMetadata{
		ScryfallID: scryfallID,
		Name:       "Card " + scryfallID,
		TypeLine:   "Creature — Test",
		ManaCost:   "{1}{G}",
		CMC:        2,
	}, nil
}

func (r *stubResolver) ResolveMany(ctx context.Context, scryfallIDs []string) (map[string]*cards.CardMetadata, error) {
	out := make(map[string]*cards.CardMetadata, len(scryfallIDs))
	for _, id := range scryfallIDs {
		meta, err := r.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		if meta != nil {
			out[id] = meta
		}
	}
	return out, nil
}

// buildDeck seeds a deck of n distinct singleton cards plus one commander.
func buildDeck(store *inmem.Store, deckID, ownerID string, n int, withCommander bool) *deck.Deck {
	d := &deck.Deck{ID: deckID, OwnerID: ownerID, Name: "Deck " + deckID}
	for i := 0; i < n; i++ {
		d.Entries = append(d.Entries, deck.Entry{
			ScryfallID: fmt.Sprintf("%s-card-%03d", deckID, i),
			Quantity:   1,
		})
	}
	if withCommander {
		d.Entries = append(d.Entries, deck.Entry{
			ScryfallID:  deckID + "-commander",
			Quantity:    1,
			IsCommander: true,
		})
	}
	store.PutDeck(d)
	return d
}

func newTestManager() (*game.Manager, *inmem.Store, *stubResolver) {
	store := inmem.NewStore()
	resolver := &stubResolver{missing: map[string]bool{}}
	mgr := game.NewManager(store, store, resolver, zap.NewNop())
	return mgr, store, resolver
}

func zoneNames(cardsInZone []*game.Card) []string {
	names := make([]string, 0, len(cardsInZone))
	for _, c := range cardsInZone {
		names = append(names, c.Name)
	}
	return names
}
