// Package game holds the live state of one Commander playthrough: the
// session aggregate, per-player zones, card instances, the dealing
// algorithm, and the zone operations players perform at the table. It is a
// shared-table simulator, not a rules engine: operations are rejected only
// on ownership and zone grounds, never on whose turn it is.
package game

import (
	"sort"
	"time"

	"github.com/edhtable/edh-server-go/internal/cards"
)

const (
	// StartingLife is the Commander-format starting life total.
	StartingLife = 40
	// OpeningHandSize is how many cards are drawn at session start.
	OpeningHandSize = 7
)

// Card is one physical copy dealt into a running game. Catalog metadata is
// copied in at dealing time; later catalog changes never alter a game in
// progress.
type Card struct {
	ID            string
	SessionID     string
	PlayerStateID string

	ScryfallID string
	Name       string
	ManaCost   string
	CMC        float64
	TypeLine   string
	OracleText string
	Colors     []string
	Power      string
	Toughness  string
	Keywords   []string
	ImageURIs  map[string]string
	CardFaces  []cards.CardFace

	// IsCommander records that the instance came from a commander-flagged
	// deck entry, independent of the zone it currently occupies.
	IsCommander bool

	Zone Zone
	// Position is the card's index within its (owner, zone) partition. It is
	// kept dense and unique by renumbering on every zone-changing operation.
	Position int

	IsTapped bool
	IsFaceUp bool

	// Battlefield coordinates; nil outside the battlefield.
	BattlefieldX *float64
	BattlefieldY *float64

	IsAttacking    bool
	IsBlocking     bool
	DamageReceived int
}

// PlayerState is one player's half of the table: counters plus the partition
// of card instances they were dealt.
type PlayerState struct {
	ID        string
	SessionID string
	UserID    string

	PlayerOrder    int
	IsActive       bool
	LifeTotal      int
	PoisonCounters int

	Cards []*Card
}

// CardsInZone returns the player's cards in a zone, ordered by position.
func (p *PlayerState) CardsInZone(zone Zone) []*Card {
	var out []*Card
	for _, c := range p.Cards {
		if c.Zone == zone {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Session is the aggregate for one room's single playthrough.
type Session struct {
	ID     string
	RoomID string

	CurrentTurn      int
	ActivePlayerID   string
	CurrentPhase     TurnPhase
	StartingPlayerID string
	CreatedAt        time.Time

	Players []*PlayerState
}

// PlayerByUser returns the participant record for a user, or nil.
func (s *Session) PlayerByUser(userID string) *PlayerState {
	for _, p := range s.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// CardByID finds a card instance anywhere in the session, along with its
// owning player state.
func (s *Session) CardByID(cardID string) (*Card, *PlayerState) {
	for _, p := range s.Players {
		for _, c := range p.Cards {
			if c.ID == cardID {
				return c, p
			}
		}
	}
	return nil, nil
}

// CardCount returns the total number of card instances in the session.
func (s *Session) CardCount() int {
	total := 0
	for _, p := range s.Players {
		total += len(p.Cards)
	}
	return total
}
