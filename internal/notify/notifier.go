// Package notify delivers room-scoped events to connected clients. Delivery
// is fire-and-forget: a failure to reach a client never fails the operation
// that produced the event.
package notify

// Event names emitted by the room lifecycle.
const (
	EventPlayerJoinRequest = "player_join_request"
	EventPlayerAccepted    = "player_accepted"
	EventPlayerRejected    = "player_rejected"
	EventPlayerLeft        = "player_left"
	EventDeckSelected      = "deck_selected"
	EventGameStarted       = "game_started"
	EventGameStopped       = "game_stopped"
	EventGameDeleted       = "game_deleted"
)

// Event is a named notification scoped to one room. Payload carries the
// operation-specific identifiers and nothing else.
type Event struct {
	Name    string         `json:"event"`
	RoomID  string         `json:"room_id"`
	UserID  string         `json:"user_id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Notifier publishes events to everyone subscribed to a room.
type Notifier interface {
	Publish(roomID string, event Event)
}

// NopNotifier discards all events. Used when the server runs without the
// websocket sidecar and throughout tests.
type NopNotifier struct{}

func (NopNotifier) Publish(string, Event) {}
