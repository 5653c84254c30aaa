// Package ws provides real-time delivery over WebSockets. It implements a
// hub-and-spoke pattern where connections are keyed by user identity, so any
// component can push a payload to every open connection a user holds.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/platform/auth"
)

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single WebSocket connection owned by a user. A user may
// hold several clients at once (one per device or tab).
type Client struct {
	UserID uuid.UUID
	Send   chan []byte
	hub    *Hub
	conn   Conn
}

// Hub is the central connection manager that tracks clients by user identity.
// All operations are thread-safe via sync.RWMutex.
type Hub struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]map[*Client]struct{} // user id -> set of clients
	logger zerolog.Logger
}

// NewHub creates a new Hub ready to manage WebSocket clients.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		users:  make(map[uuid.UUID]map[*Client]struct{}),
		logger: logger,
	}
}

// Register adds a client to the hub under its user identity.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[client.UserID] == nil {
		h.users[client.UserID] = make(map[*Client]struct{})
	}
	h.users[client.UserID][client] = struct{}{}
}

// Unregister removes a client from the hub and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.users[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	if len(clients) == 0 {
		delete(h.users, client.UserID)
	}
	close(client.Send)
}

// SendToUser delivers data to every open connection the user holds. It
// reports whether at least one connection accepted the payload.
func (h *Hub) SendToUser(userID uuid.UUID, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.users[userID]
	if !ok {
		return false
	}

	delivered := false
	for client := range clients {
		select {
		case client.Send <- data:
			delivered = true
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
	return delivered
}

// SendJSON marshals v and delivers it to every open connection the user holds.
func (h *Hub) SendJSON(userID uuid.UUID, v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("ws: failed to marshal payload")
		return false
	}
	return h.SendToUser(userID, data)
}

// IsOnline reports whether the user has at least one open connection.
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, clients := range h.users {
		n += len(clients)
	}
	return n
}

// ---------------------------------------------------------------------------
// Handler — Echo HTTP handler for WebSocket connections
// ---------------------------------------------------------------------------

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// MessageFunc handles an inbound message from a connected client.
type MessageFunc func(client *Client, data []byte)

// Handler handles HTTP-to-WebSocket upgrades and message routing. Inbound
// messages are passed to the configured MessageFunc.
type Handler struct {
	hub       *Hub
	onMessage MessageFunc
}

// NewHandler creates a new handler bound to the given Hub. onMessage may be
// nil for push-only endpoints.
func NewHandler(hub *Hub, onMessage MessageFunc) *Handler {
	return &Handler{hub: hub, onMessage: onMessage}
}

// HandleConnect upgrades an HTTP connection to WebSocket, registers the
// client with the hub under the authenticated user, and starts read/write
// pumps.
func (h *Handler) HandleConnect(c echo.Context) error {
	userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		UserID: userID,
		Send:   make(chan []byte, 256),
		hub:    h.hub,
		conn:   &gorillaConnAdapter{ws},
	}

	h.hub.Register(client)

	go h.writePump(client, ws)
	go h.readPump(client, ws)

	return nil
}

// readPump reads messages from the WebSocket connection and dispatches them.
func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			break
		}

		if h.onMessage != nil {
			h.onMessage(client, message)
		}
	}
}

// writePump writes messages from the Send channel to the WebSocket connection.
func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for message := range client.Send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy the Conn interface.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
