// Package inmem is an in-memory implementation of the room, game, and deck
// store contracts. It backs the server's memory storage driver and every
// service-level test; the Postgres repositories implement the same
// interfaces for production.
package inmem

import (
	"context"
	"sync"

	"github.com/edhtable/edh-server-go/internal/deck"
	"github.com/edhtable/edh-server-go/internal/game"
	"github.com/edhtable/edh-server-go/internal/room"
)

// Store holds everything behind one mutex. Every method hands out deep
// copies so callers can never mutate shared state outside a store write.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]*room.Room
	players  map[string]*room.Player  // keyed by membership id
	sessions map[string]*game.Session // keyed by room id
	decks    map[string]*deck.Deck
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		rooms:    make(map[string]*room.Room),
		players:  make(map[string]*room.Player),
		sessions: make(map[string]*game.Session),
		decks:    make(map[string]*deck.Deck),
	}
}

// ==================== room.Store ====================

func (s *Store) CreateRoom(_ context.Context, r *room.Room, host *room.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms[r.ID] = copyRoom(r)
	s.players[host.ID] = copyPlayer(host)
	return nil
}

func (s *Store) GetRoom(_ context.Context, roomID string) (*room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	return copyRoom(r), nil
}

func (s *Store) GetRoomByInviteCode(_ context.Context, code string) (*room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rooms {
		if r.InviteCode == code {
			return copyRoom(r), nil
		}
	}
	return nil, nil
}

func (s *Store) ListPublicWaiting(_ context.Context) ([]*room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*room.Room
	for _, r := range s.rooms {
		if r.IsPublic && r.Status == room.StatusWaiting {
			out = append(out, copyRoom(r))
		}
	}
	return out, nil
}

func (s *Store) ListByUser(_ context.Context, userID string) ([]*room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*room.Room
	for _, p := range s.players {
		if p.UserID != userID {
			continue
		}
		if r, ok := s.rooms[p.RoomID]; ok {
			out = append(out, copyRoom(r))
		}
	}
	return out, nil
}

func (s *Store) UpdateRoomStatus(_ context.Context, roomID string, st room.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.rooms[roomID]; ok {
		r.Status = st
	}
	return nil
}

func (s *Store) DeleteRoom(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, roomID)
	for id, p := range s.players {
		if p.RoomID == roomID {
			delete(s.players, id)
		}
	}
	delete(s.sessions, roomID)
	return nil
}

func (s *Store) AddPlayer(_ context.Context, p *room.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.players[p.ID] = copyPlayer(p)
	return nil
}

func (s *Store) GetPlayer(_ context.Context, roomID, userID string) (*room.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.players {
		if p.RoomID == roomID && p.UserID == userID {
			return copyPlayer(p), nil
		}
	}
	return nil, nil
}

func (s *Store) GetPlayerByID(_ context.Context, roomID, playerID string) (*room.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[playerID]
	if !ok || p.RoomID != roomID {
		return nil, nil
	}
	return copyPlayer(p), nil
}

func (s *Store) ListPlayers(_ context.Context, roomID string) ([]*room.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*room.Player
	for _, p := range s.players {
		if p.RoomID == roomID {
			out = append(out, copyPlayer(p))
		}
	}
	return out, nil
}

func (s *Store) CountAccepted(_ context.Context, roomID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.players {
		if p.RoomID == roomID && p.Status == room.PlayerAccepted {
			count++
		}
	}
	return count, nil
}

func (s *Store) UpdatePlayerStatus(_ context.Context, playerID string, st room.PlayerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.players[playerID]; ok {
		p.Status = st
	}
	return nil
}

func (s *Store) SetPlayerDeck(_ context.Context, playerID, deckID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.players[playerID]; ok {
		p.DeckID = deckID
	}
	return nil
}

func (s *Store) RemovePlayer(_ context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.players, playerID)
	return nil
}

// ==================== game.Store ====================

func (s *Store) ReplaceSession(_ context.Context, session *game.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.RoomID] = copySession(session)
	return nil
}

func (s *Store) GetSession(_ context.Context, roomID string) (*game.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[roomID]
	if !ok {
		return nil, nil
	}
	return copySession(session), nil
}

func (s *Store) DeleteSession(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, roomID)
	return nil
}

func (s *Store) UpdateCards(_ context.Context, cards []*game.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, updated := range cards {
		session, ok := s.sessions[roomIDOfSession(s.sessions, updated.SessionID)]
		if !ok {
			continue
		}
		for _, p := range session.Players {
			for i, c := range p.Cards {
				if c.ID == updated.ID {
					p.Cards[i] = copyCard(updated)
				}
			}
		}
	}
	return nil
}

// SessionCount reports how many sessions are live; used by tests to assert
// restart discards prior state.
func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ==================== deck.Provider ====================

func (s *Store) GetDeck(_ context.Context, deckID string) (*deck.Deck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.decks[deckID]
	if !ok {
		return nil, nil
	}
	return copyDeck(d), nil
}

// PutDeck seeds a deck; decks are owned by the external deck collaborator in
// production, so only the memory driver exposes writes.
func (s *Store) PutDeck(d *deck.Deck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decks[d.ID] = copyDeck(d)
}

// ==================== copies ====================

func copyRoom(r *room.Room) *room.Room {
	cp := *r
	return &cp
}

func copyPlayer(p *room.Player) *room.Player {
	cp := *p
	return &cp
}

func copyDeck(d *deck.Deck) *deck.Deck {
	cp := *d
	cp.Entries = append([]deck.Entry(nil), d.Entries...)
	return &cp
}

func copySession(s *game.Session) *game.Session {
	cp := *s
	cp.Players = make([]*game.PlayerState, 0, len(s.Players))
	for _, p := range s.Players {
		pc := *p
		pc.Cards = make([]*game.Card, 0, len(p.Cards))
		for _, c := range p.Cards {
			pc.Cards = append(pc.Cards, copyCard(c))
		}
		cp.Players = append(cp.Players, &pc)
	}
	return &cp
}

func copyCard(c *game.Card) *game.Card {
	cp := *c
	cp.Colors = append([]string(nil), c.Colors...)
	cp.Keywords = append([]string(nil), c.Keywords...)
	if c.ImageURIs != nil {
		cp.ImageURIs = make(map[string]string, len(c.ImageURIs))
		for k, v := range c.ImageURIs {
			cp.ImageURIs[k] = v
		}
	}
	if c.BattlefieldX != nil {
		x := *c.BattlefieldX
		cp.BattlefieldX = &x
	}
	if c.BattlefieldY != nil {
		y := *c.BattlefieldY
		cp.BattlefieldY = &y
	}
	return &cp
}

func roomIDOfSession(sessions map[string]*game.Session, sessionID string) string {
	for roomID, session := range sessions {
		if session.ID == sessionID {
			return roomID
		}
	}
	return ""
}
