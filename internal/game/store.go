package game

import "context"

// Store persists session aggregates. Implementations must make each method
// atomic: a failed call leaves the previous state intact.
//
// Get methods return (nil, nil) when no session exists for the room.
type Store interface {
	// ReplaceSession atomically discards any existing session for the
	// aggregate's room and persists the new one with all player states and
	// cards. Used by the initializer so a restart never leaves orphans.
	ReplaceSession(ctx context.Context, session *Session) error

	// GetSession loads the full aggregate for a room.
	GetSession(ctx context.Context, roomID string) (*Session, error)

	// DeleteSession removes the room's session and everything it owns.
	// Deleting a room with no session is not an error.
	DeleteSession(ctx context.Context, roomID string) error

	// UpdateCards persists the mutated fields of the given card instances in
	// one atomic write.
	UpdateCards(ctx context.Context, cards []*Card) error
}
