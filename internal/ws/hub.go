// Package ws is the primary live transport: one websocket connection per
// device (or broadcaster), registered into the shared connection registry
// and pushed to by the dispatch, daypart and live engines.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Luminet-Displays/luminet/internal/http/middleware"
	"github.com/Luminet-Displays/luminet/internal/live"
	"github.com/Luminet-Displays/luminet/internal/model"
	"github.com/Luminet-Displays/luminet/internal/registry"
	"github.com/Luminet-Displays/luminet/internal/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// DeviceStore is the lookup the registration handshake needs.
type DeviceStore interface {
	GetDeviceBySerial(serial string) (model.Device, error)
}

// Hub tracks open connections by transport session id. It implements
// transport.Pusher; a push to an unknown session is dropped.
type Hub struct {
	store       DeviceStore
	registry    *registry.Registry
	coordinator *live.Coordinator
	secret      string

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(store DeviceStore, reg *registry.Registry, secret string) *Hub {
	return &Hub{
		store:    store,
		registry: reg,
		secret:   secret,
		clients:  make(map[string]*Client),
	}
}

// AttachCoordinator wires the live coordinator after construction; the
// coordinator itself only needs the hub as a transport.Pusher.
func (h *Hub) AttachCoordinator(c *live.Coordinator) {
	h.coordinator = c
}

// Serve upgrades the request. An admin token in the query authenticates a
// broadcaster connection; devices authenticate later with a register
// message carrying their serial.
func (h *Hub) Serve(c *gin.Context) {
	var userID int
	if token := c.Query("token"); token != "" {
		id, err := middleware.ParseToken(token, h.secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID = id
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 64),
		userID: userID,
	}

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()
	log.Info().Str("session", client.id).Int("user", userID).Msg("websocket connected")

	go client.writePump()
	go client.readPump()
}

// remove tears a connection down: registry entry, live-session roles, then
// the client map itself.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	h.mu.Unlock()

	close(client.send)
	h.registry.RemoveBySession(client.id)
	if h.coordinator != nil {
		h.coordinator.HandleDisconnect(client.id)
	}
	log.Info().Str("session", client.id).Msg("websocket disconnected")
}

// SessionUser reports the authenticated user behind a dashboard session.
// Device connections and anonymous connections never match, so a transport
// session id supplied over HTTP cannot be borrowed from another role.
func (h *Hub) SessionUser(sessionID string) (int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[sessionID]
	if !ok || client.device != nil || client.userID == 0 {
		return 0, false
	}
	return client.userID, true
}

// Push implements transport.Pusher. Sends are fire-and-forget: an unknown
// or saturated session drops the message.
func (h *Hub) Push(sessionID string, msg transport.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	client, ok := h.clients[sessionID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	select {
	case client.send <- payload:
	default:
		log.Warn().Str("session", sessionID).Msg("send buffer full, dropping message")
	}
	return nil
}
