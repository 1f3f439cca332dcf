package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The outer gateway terminates auth and origin policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Authorizer decides whether a user may subscribe to a room's event stream.
// A nil Authorizer admits everyone.
type Authorizer interface {
	CanSubscribe(ctx context.Context, roomID, userID string) bool
}

// clientMessage is the small control protocol clients speak: authenticate
// once, then join/leave rooms to scope which events they receive.
type clientMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id,omitempty"`
	RoomID string `json:"room_id,omitempty"`
}

// wsConn adapts a gorilla websocket connection to the hub's sender interface
// with a buffered outbound queue drained by a single writer goroutine.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func (w *wsConn) Send(message []byte) bool {
	select {
	case w.send <- message:
		return true
	default:
		return false
	}
}

func (w *wsConn) Close() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}

// Handler returns the HTTP handler that upgrades connections and bridges them
// into the hub.
func Handler(hub *Hub, auth Authorizer, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		c := &wsConn{
			conn: conn,
			send: make(chan []byte, sendBufferSize),
			done: make(chan struct{}),
		}

		go writePump(c, logger)
		readPump(r.Context(), c, hub, auth, logger)
	})
}

// StartServer runs the notification sidecar's websocket endpoint until the
// listener fails.
func StartServer(addr string, hub *Hub, auth Authorizer, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", Handler(hub, auth, logger))

	logger.Info("starting websocket server", zap.String("address", addr))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

func readPump(ctx context.Context, c *wsConn, hub *Hub, auth Authorizer, logger *zap.Logger) {
	defer func() {
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	userID := ""
	defer func() {
		if userID != "" {
			hub.Unregister(userID)
		}
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug("ignoring malformed client message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case "authenticate":
			if msg.UserID == "" {
				continue
			}
			userID = msg.UserID
			hub.Register(userID, c)
			ack, _ := json.Marshal(map[string]string{"event": "authenticated", "user_id": userID})
			c.Send(ack)
		case "join_game":
			if userID == "" || msg.RoomID == "" {
				continue
			}
			if auth != nil && !auth.CanSubscribe(ctx, msg.RoomID, userID) {
				logger.Debug("subscription refused",
					zap.String("room_id", msg.RoomID),
					zap.String("user_id", userID),
				)
				continue
			}
			hub.JoinRoom(msg.RoomID, userID)
		case "leave_game":
			if userID != "" && msg.RoomID != "" {
				hub.LeaveRoom(msg.RoomID, userID)
			}
		default:
			logger.Debug("ignoring unknown client message", zap.String("type", msg.Type))
		}
	}
}

func writePump(c *wsConn, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
