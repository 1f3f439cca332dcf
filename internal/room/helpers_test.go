package room_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edhtable/edh-server-go/internal/cards"
	"github.com/edhtable/edh-server-go/internal/deck"
	"github.com/edhtable/edh-server-go/internal/game"
	"github.com/edhtable/edh-server-go/internal/notify"
	"github.com/edhtable/edh-server-go/internal/repository/inmem"
	"github.com/edhtable/edh-server-go/internal/room"
)

// stubResolver serves synthetic metadata for every id.
type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, scryfallID string) (*cards.CardMetadata, error) {
	return &cards.CardMetadata{
		ScryfallID: scryfallID,
		Name:       "Card " + scryfallID,
		TypeLine:   "Legendary Creature — Test",
	}, nil
}

func (r stubResolver) ResolveMany(ctx context.Context, scryfallIDs []string) (map[string]*cards.CardMetadata, error) {
	out := make(map[string]*cards.CardMetadata, len(scryfallIDs))
	for _, id := range scryfallIDs {
		meta, _ := r.Resolve(ctx, id)
		out[id] = meta
	}
	return out, nil
}

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Publish(_ string, event notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Name)
	}
	return out
}

type fixture struct {
	mgr      *room.Manager
	games    *game.Manager
	store    *inmem.Store
	notifier *recordingNotifier
}

func newFixture() *fixture {
	store := inmem.NewStore()
	notifier := &recordingNotifier{}
	games := game.NewManager(store, store, stubResolver{}, zap.NewNop())
	mgr := room.NewManager(store, store, stubResolver{}, games, notifier, zap.NewNop())
	return &fixture{mgr: mgr, games: games, store: store, notifier: notifier}
}

// seedDeck registers a Commander deck of n singletons plus one commander.
func (f *fixture) seedDeck(deckID, ownerID string, n int) {
	d := &deck.Deck{ID: deckID, OwnerID: ownerID, Name: "Deck " + deckID}
	for i := 0; i < n; i++ {
		d.Entries = append(d.Entries, deck.Entry{
			ScryfallID: fmt.Sprintf("%s-%03d", deckID, i),
			Quantity:   1,
		})
	}
	d.Entries = append(d.Entries, deck.Entry{
		ScryfallID:  deckID + "-cmd",
		Quantity:    1,
		IsCommander: true,
	})
	f.store.PutDeck(d)
}

// createRoom makes a public 4-seat room hosted by hostID.
func (f *fixture) createRoom(t *testing.T, hostID string) *room.Detail {
	t.Helper()
	detail, err := f.mgr.Create(context.Background(), hostID, room.CreateInput{
		Name:       "Friday Pod",
		MaxPlayers: 4,
		IsPublic:   true,
	})
	require.NoError(t, err)
	return detail
}

// admit joins userID and has the host accept them, returning the membership id.
func (f *fixture) admit(t *testing.T, roomID, hostID, userID string) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.mgr.Join(ctx, roomID, userID))

	detail, err := f.mgr.Get(ctx, roomID, hostID)
	require.NoError(t, err)
	for _, p := range detail.Players {
		if p.UserID == userID {
			_, err := f.mgr.Accept(ctx, roomID, hostID, p.ID)
			require.NoError(t, err)
			return p.ID
		}
	}
	t.Fatalf("membership for %s not found", userID)
	return ""
}
