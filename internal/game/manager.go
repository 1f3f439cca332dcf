package game

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/edhtable/edh-server-go/internal/cards"
	"github.com/edhtable/edh-server-go/internal/deck"
)

// Seat is one accepted room player entering a game: who they are and which
// deck they bring. The room lifecycle guarantees every seat has a deck before
// a session is started.
type Seat struct {
	UserID string
	DeckID string
}

// Manager owns all live game sessions. Every mutating entry point serializes
// per room through a keyed lock, so two concurrent starts or a start racing a
// zone operation can never interleave on the same table.
type Manager struct {
	store    Store
	decks    deck.Provider
	resolver cards.Resolver
	locks    *roomLocks
	logger   *zap.Logger
}

// NewManager creates a game session manager.
func NewManager(store Store, decks deck.Provider, resolver cards.Resolver, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		decks:    decks,
		resolver: resolver,
		locks:    newRoomLocks(),
		logger:   logger,
	}
}

// StartSession deals a fresh game for the room: any previous session is
// discarded, seating and the starting player are randomized, each deck is
// materialized into a shuffled library, commanders go to the command zone,
// and every player draws an opening hand.
//
// Deck entries whose card metadata cannot be resolved are skipped with a
// warning; one bad catalog entry must not block the whole table.
func (m *Manager) StartSession(ctx context.Context, roomID string, seats []Seat) (*Session, error) {
	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	decks := make([]*deck.Deck, len(seats))
	uniqueIDs := make([]string, 0, len(seats)*100)
	seen := make(map[string]bool)
	for i, seat := range seats {
		d, err := m.decks.GetDeck(ctx, seat.DeckID)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "load deck %s: %v", seat.DeckID, err)
		}
		if d == nil {
			return nil, status.Errorf(codes.NotFound, "deck %s not found", seat.DeckID)
		}
		decks[i] = d
		for _, entry := range d.Entries {
			if !seen[entry.ScryfallID] {
				seen[entry.ScryfallID] = true
				uniqueIDs = append(uniqueIDs, entry.ScryfallID)
			}
		}
	}

	metadata, err := m.resolver.ResolveMany(ctx, uniqueIDs)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "resolve card metadata: %v", err)
	}

	starting := seats[rand.Intn(len(seats))]
	session := &Session{
		ID:               uuid.NewString(),
		RoomID:           roomID,
		CurrentTurn:      1,
		ActivePlayerID:   starting.UserID,
		CurrentPhase:     PhaseUntap,
		StartingPlayerID: starting.UserID,
		CreatedAt:        time.Now().UTC(),
	}

	// Seating order is a fresh random permutation each game, not join order.
	order := rand.Perm(len(seats))
	skipped := 0

	for i, seat := range seats {
		player := &PlayerState{
			ID:             uuid.NewString(),
			SessionID:      session.ID,
			UserID:         seat.UserID,
			PlayerOrder:    order[i],
			IsActive:       seat.UserID == starting.UserID,
			LifeTotal:      StartingLife,
			PoisonCounters: 0,
		}

		for _, entry := range decks[i].Entries {
			meta, ok := metadata[entry.ScryfallID]
			if !ok {
				skipped++
				m.logger.Warn("skipping unresolvable deck entry",
					zap.String("room_id", roomID),
					zap.String("deck_id", decks[i].ID),
					zap.String("scryfall_id", entry.ScryfallID),
					zap.Int("quantity", entry.Quantity),
				)
				continue
			}
			for q := 0; q < entry.Quantity; q++ {
				player.Cards = append(player.Cards, newCard(session.ID, player.ID, meta, entry.IsCommander))
			}
		}

		shuffleLibrary(player)
		moveCommandersOut(player)
		drawOpeningHand(player)

		session.Players = append(session.Players, player)
	}

	if err := m.store.ReplaceSession(ctx, session); err != nil {
		return nil, status.Errorf(codes.Internal, "persist game session: %v", err)
	}

	m.logger.Info("game session started",
		zap.String("room_id", roomID),
		zap.String("session_id", session.ID),
		zap.Int("players", len(session.Players)),
		zap.Int("cards", session.CardCount()),
		zap.Int("skipped_entries", skipped),
		zap.String("starting_player", starting.UserID),
	)

	return session, nil
}

// EndSession discards the room's session and all of its state. Ending a room
// that has no session is a no-op.
func (m *Manager) EndSession(ctx context.Context, roomID string) error {
	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.store.DeleteSession(ctx, roomID); err != nil {
		return status.Errorf(codes.Internal, "delete game session: %v", err)
	}

	m.logger.Info("game session ended", zap.String("room_id", roomID))
	return nil
}

// State builds the requesting player's projection of the table.
func (m *Manager) State(ctx context.Context, roomID, viewerUserID string) (*SessionView, error) {
	lock := m.locks.get(roomID)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.loadSession(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return Project(session, viewerUserID), nil
}

func newCard(sessionID, playerStateID string, meta *cards.CardMetadata, isCommander bool) *Card {
	return &Card{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		PlayerStateID: playerStateID,
		ScryfallID:    meta.ScryfallID,
		Name:          meta.Name,
		ManaCost:      meta.ManaCost,
		CMC:           meta.CMC,
		TypeLine:      meta.TypeLine,
		OracleText:    meta.OracleText,
		Colors:        meta.Colors,
		Power:         meta.Power,
		Toughness:     meta.Toughness,
		Keywords:      meta.Keywords,
		ImageURIs:     meta.ImageURIs,
		CardFaces:     meta.CardFaces,
		IsCommander:   isCommander,
		Zone:          ZoneLibrary,
		Position:      0,
		IsFaceUp:      true,
	}
}

// shuffleLibrary assigns the player's library a uniformly random permutation
// of positions.
func shuffleLibrary(p *PlayerState) {
	library := p.CardsInZone(ZoneLibrary)
	perm := rand.Perm(len(library))
	for i, c := range library {
		c.Position = perm[i]
	}
}

// moveCommandersOut sets commander-flagged instances aside into the command
// zone, then renumbers both zones dense.
func moveCommandersOut(p *PlayerState) {
	for _, c := range p.CardsInZone(ZoneLibrary) {
		if c.IsCommander {
			c.Zone = ZoneCommander
		}
	}
	renumberZone(p, ZoneCommander)
	renumberZone(p, ZoneLibrary)
}

// drawOpeningHand moves the lowest-position library cards into the hand,
// keeping library order. Short libraries draw whatever is available.
func drawOpeningHand(p *PlayerState) {
	library := p.CardsInZone(ZoneLibrary)
	n := OpeningHandSize
	if len(library) < n {
		n = len(library)
	}
	for i := 0; i < n; i++ {
		library[i].Zone = ZoneHand
		library[i].Position = i
	}
	renumberZone(p, ZoneLibrary)
}

// renumberZone rewrites a zone's positions to 0..n-1 preserving the current
// ordering, keeping the (owner, zone, position) tuple dense and unique.
func renumberZone(p *PlayerState, zone Zone) []*Card {
	var changed []*Card
	for i, c := range p.CardsInZone(zone) {
		if c.Position != i {
			c.Position = i
			changed = append(changed, c)
		}
	}
	return changed
}

func (m *Manager) loadSession(ctx context.Context, roomID string) (*Session, error) {
	session, err := m.store.GetSession(ctx, roomID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "load game state: %v", err)
	}
	if session == nil {
		return nil, status.Errorf(codes.NotFound, "game state not found")
	}
	return session, nil
}
