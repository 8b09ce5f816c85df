package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Luminet-Displays/luminet/internal/live"
	"github.com/Luminet-Displays/luminet/internal/registry"
	"github.com/Luminet-Displays/luminet/internal/transport"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one websocket connection. A device client gains a registry
// entry after its register message; a broadcaster client carries a user id
// from the upgrade token.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID int

	// set after a successful register handshake
	device *registry.ConnectedDevice
}

// inbound is the envelope of every client-to-server message.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type registerData struct {
	Serial   string `json:"serial"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type broadcastStartData struct {
	Title           string `json:"title"`
	Emergency       bool   `json:"emergency"`
	TargetDeviceIDs []int  `json:"target_device_ids"`
}

type sessionData struct {
	SessionID int    `json:"session_id"`
	Quality   string `json:"quality,omitempty"`
}

type relayData struct {
	Target  string          `json:"target"`
	Payload json.RawMessage `json:"payload"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("malformed message")
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(msg inbound) {
	switch msg.Event {
	case "register":
		c.handleRegister(msg.Data)
	case "broadcast.start":
		c.handleBroadcastStart(msg.Data)
	case "broadcast.end":
		c.handleBroadcastEnd(msg.Data)
	case "session.join":
		c.handleJoin(msg.Data)
	case "session.leave":
		c.handleLeave(msg.Data)
	case "session.quality":
		c.handleQuality(msg.Data)
	case transport.EventWebRTCOffer, transport.EventWebRTCAnswer, transport.EventWebRTCICE:
		c.handleRelay(msg.Event, msg.Data)
	default:
		c.sendError("unknown event")
	}
}

// handleRegister binds this connection to a paired device. Unknown or
// unpaired serials are rejected with no registry entry, and a connection
// already bound to one serial may not claim another.
func (c *Client) handleRegister(data json.RawMessage) {
	var req registerData
	if err := json.Unmarshal(data, &req); err != nil || req.Serial == "" {
		c.sendError("serial is required")
		return
	}

	if c.device != nil && c.device.Serial != req.Serial {
		c.sendError("connection already registered to another device")
		return
	}

	device, err := c.hub.store.GetDeviceBySerial(req.Serial)
	if err != nil || !device.Paired {
		log.Warn().Str("serial", req.Serial).Msg("registration rejected: unknown or unpaired serial")
		c.sendError("unknown or unpaired device")
		return
	}

	name := device.Name
	if req.Name != "" {
		name = req.Name
	}
	timezone := device.Timezone
	if req.Timezone != "" {
		timezone = req.Timezone
	}

	entry := registry.ConnectedDevice{
		Serial:      req.Serial,
		SessionID:   c.id,
		UserID:      device.CreatedBy,
		DeviceID:    device.ID,
		Name:        name,
		Timezone:    timezone,
		ConnectedAt: time.Now().UTC(),
	}
	c.hub.registry.Register(entry)
	c.hub.mu.Lock()
	c.device = &entry
	c.userID = device.CreatedBy
	c.hub.mu.Unlock()

	c.reply(transport.Message{Event: "registered", Data: map[string]any{"device_id": device.ID}})
}

func (c *Client) handleBroadcastStart(data json.RawMessage) {
	if c.userID == 0 || c.device != nil {
		c.sendError("broadcast requires an authenticated user connection")
		return
	}
	var req broadcastStartData
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("malformed broadcast.start")
		return
	}

	sess, err := c.hub.coordinator.StartBroadcast(c.userID, c.id, live.StartParams{
		Title:           req.Title,
		Emergency:       req.Emergency,
		TargetDeviceIDs: req.TargetDeviceIDs,
	})
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.reply(transport.Message{Event: "broadcast.started", Data: map[string]any{"session_id": sess.ID}})
}

func (c *Client) handleBroadcastEnd(data json.RawMessage) {
	var req sessionData
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("malformed broadcast.end")
		return
	}
	if err := c.hub.coordinator.EndBroadcast(req.SessionID, c.id); err != nil {
		c.sendError(err.Error())
		return
	}
	c.reply(transport.Message{Event: "broadcast.ended", Data: map[string]any{"session_id": req.SessionID}})
}

func (c *Client) handleJoin(data json.RawMessage) {
	if c.device == nil {
		c.sendError("join requires a registered device")
		return
	}
	var req sessionData
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("malformed session.join")
		return
	}
	count, err := c.hub.coordinator.Join(req.SessionID, *c.device)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.reply(transport.Message{Event: "session.joined", Data: map[string]any{"session_id": req.SessionID, "viewers": count}})
}

func (c *Client) handleLeave(data json.RawMessage) {
	if c.device == nil {
		c.sendError("leave requires a registered device")
		return
	}
	var req sessionData
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("malformed session.leave")
		return
	}
	if err := c.hub.coordinator.Leave(req.SessionID, c.device.DeviceID); err != nil {
		c.sendError(err.Error())
	}
}

func (c *Client) handleQuality(data json.RawMessage) {
	if c.device == nil {
		return
	}
	var req sessionData
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	c.hub.coordinator.Quality(req.SessionID, c.device.DeviceID, req.Quality)
}

// handleRelay forwards WebRTC signaling untouched to the target session.
func (c *Client) handleRelay(event string, data json.RawMessage) {
	var req relayData
	if err := json.Unmarshal(data, &req); err != nil || req.Target == "" {
		c.sendError("malformed signaling message")
		return
	}
	c.hub.coordinator.Relay(event, req.Target, req.Payload)
}

func (c *Client) reply(msg transport.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) sendError(message string) {
	c.reply(transport.Message{Event: "error", Data: map[string]any{"message": message}})
}
