package notify

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// sender is the transport half of a registered connection. The websocket
// handler implements it; tests substitute their own.
type sender interface {
	Send(message []byte) bool
	Close()
}

type client struct {
	userID string
	conn   sender
	rooms  map[string]bool
}

// Hub is the connection registry and fan-out point for room events. Every
// connection is registered under its authenticated user id with an explicit
// lifecycle: Register on authenticate, Unregister on disconnect. Room
// subscriptions are tracked per connection so Publish can target a room
// without scanning every client.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]*client
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]*client),
		logger:  logger,
	}
}

// Register binds a connection to a user id. A previous connection for the
// same user is closed and replaced; its room subscriptions do not carry over.
func (h *Hub) Register(userID string, conn sender) {
	h.mu.Lock()
	if old, ok := h.clients[userID]; ok {
		h.detachLocked(old)
		old.conn.Close()
	}
	h.clients[userID] = &client{
		userID: userID,
		conn:   conn,
		rooms:  make(map[string]bool),
	}
	h.mu.Unlock()

	h.logger.Debug("client registered", zap.String("user_id", userID))
}

// Unregister removes a user's connection and all of its room subscriptions.
func (h *Hub) Unregister(userID string) {
	h.mu.Lock()
	c, ok := h.clients[userID]
	if ok {
		h.detachLocked(c)
		delete(h.clients, userID)
	}
	h.mu.Unlock()

	if ok {
		h.logger.Debug("client unregistered", zap.String("user_id", userID))
	}
}

// Connected reports whether a user currently has a registered connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// JoinRoom subscribes a registered user to a room's events.
func (h *Hub) JoinRoom(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[userID]
	if !ok {
		return
	}
	c.rooms[roomID] = true

	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*client)
		h.rooms[roomID] = members
	}
	members[userID] = c
}

// LeaveRoom drops a user's subscription to a room.
func (h *Hub) LeaveRoom(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[userID]; ok {
		delete(c.rooms, roomID)
	}
	if members, ok := h.rooms[roomID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// RoomMembers returns the user ids subscribed to a room.
func (h *Hub) RoomMembers(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]string, 0, len(h.rooms[roomID]))
	for userID := range h.rooms[roomID] {
		members = append(members, userID)
	}
	return members
}

// Publish sends an event to every connection subscribed to the room. Slow or
// dead connections are skipped; delivery is best-effort.
func (h *Hub) Publish(roomID string, event Event) {
	event.RoomID = roomID

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode event",
			zap.String("event", event.Name),
			zap.String("room_id", roomID),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.conn.Send(data) {
			h.logger.Debug("dropped event for slow client",
				zap.String("event", event.Name),
				zap.String("room_id", roomID),
				zap.String("user_id", c.userID),
			)
		}
	}
}

// detachLocked removes a client from every room index. Caller holds h.mu.
func (h *Hub) detachLocked(c *client) {
	for roomID := range c.rooms {
		if members, ok := h.rooms[roomID]; ok {
			delete(members, c.userID)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}
