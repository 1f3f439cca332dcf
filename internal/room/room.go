// Package room manages game lobbies: creation with invite codes, the
// join/accept/reject approval workflow, deck selection, and the start/stop
// transitions that bound when a game session may exist.
package room

import "time"

// Status is the lifecycle state of a room.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
)

// PlayerStatus is the approval state of a room membership.
type PlayerStatus string

const (
	PlayerPending  PlayerStatus = "pending"
	PlayerAccepted PlayerStatus = "accepted"
	PlayerRejected PlayerStatus = "rejected"
)

// PowerBracket is the self-declared power level of the table.
type PowerBracket string

const (
	BracketPrecon    PowerBracket = "precon"
	BracketCasual    PowerBracket = "casual"
	BracketOptimized PowerBracket = "optimized"
	BracketCEDH      PowerBracket = "cedh"
)

// Valid reports whether b is a known power bracket.
func (b PowerBracket) Valid() bool {
	switch b {
	case BracketPrecon, BracketCasual, BracketOptimized, BracketCEDH:
		return true
	default:
		return false
	}
}

const (
	// MinPlayers and MaxPlayers bound a room's seat count.
	MinPlayers = 2
	MaxPlayers = 4

	inviteCodeLength = 8
)

// Room is a lobby grouping players before and during one game.
type Room struct {
	ID           string
	Name         string
	Description  string
	HostID       string
	InviteCode   string
	IsPublic     bool
	MaxPlayers   int
	PowerBracket PowerBracket
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Player is a room membership, distinct from in-game player state. Admission
// here is the precondition for being dealt into a session.
type Player struct {
	ID       string
	RoomID   string
	UserID   string
	Status   PlayerStatus
	IsHost   bool
	DeckID   string
	JoinedAt time.Time
}

// Summary is a room as shown in listings.
type Summary struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	HostID         string       `json:"host_id"`
	IsPublic       bool         `json:"is_public"`
	MaxPlayers     int          `json:"max_players"`
	CurrentPlayers int          `json:"current_players"`
	PowerBracket   PowerBracket `json:"power_bracket"`
	Status         Status       `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	IsMember       bool         `json:"is_in_game"`
}

// DeckInfo is the lobby's glimpse of a selected deck: enough to show who is
// bringing what to the table.
type DeckInfo struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	CommanderName      string            `json:"commander_name,omitempty"`
	CommanderImageURIs map[string]string `json:"commander_image_uris,omitempty"`
}

// PlayerDetail is a membership with its deck selection resolved.
type PlayerDetail struct {
	ID       string       `json:"id"`
	UserID   string       `json:"user_id"`
	Status   PlayerStatus `json:"status"`
	IsHost   bool         `json:"is_host"`
	DeckID   string       `json:"deck_id,omitempty"`
	Deck     *DeckInfo    `json:"deck,omitempty"`
	JoinedAt time.Time    `json:"joined_at"`
}

// Detail is the full outward representation of a room, pending requests
// included so hosts can act on them.
type Detail struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	HostID       string         `json:"host_id"`
	InviteCode   string         `json:"invite_code"`
	IsPublic     bool           `json:"is_public"`
	MaxPlayers   int            `json:"max_players"`
	PowerBracket PowerBracket   `json:"power_bracket"`
	Status       Status         `json:"status"`
	Players      []PlayerDetail `json:"players"`
	CreatedAt    time.Time      `json:"created_at"`
}
