package room

import "context"

// Store persists rooms and memberships. Get methods return (nil, nil) when
// the record does not exist. Implementations must make CreateRoom atomic
// (room plus host membership) and DeleteRoom cascading (memberships and any
// game session state go with the room).
type Store interface {
	CreateRoom(ctx context.Context, room *Room, host *Player) error
	GetRoom(ctx context.Context, roomID string) (*Room, error)
	GetRoomByInviteCode(ctx context.Context, code string) (*Room, error)
	ListPublicWaiting(ctx context.Context) ([]*Room, error)
	ListByUser(ctx context.Context, userID string) ([]*Room, error)
	UpdateRoomStatus(ctx context.Context, roomID string, status Status) error
	DeleteRoom(ctx context.Context, roomID string) error

	AddPlayer(ctx context.Context, player *Player) error
	GetPlayer(ctx context.Context, roomID, userID string) (*Player, error)
	GetPlayerByID(ctx context.Context, roomID, playerID string) (*Player, error)
	ListPlayers(ctx context.Context, roomID string) ([]*Player, error)
	CountAccepted(ctx context.Context, roomID string) (int, error)
	UpdatePlayerStatus(ctx context.Context, playerID string, status PlayerStatus) error
	SetPlayerDeck(ctx context.Context, playerID, deckID string) error
	RemovePlayer(ctx context.Context, playerID string) error
}
