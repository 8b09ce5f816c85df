// Package transport defines the push capability used by the dispatch,
// daypart and live engines, plus the wire payloads sent to devices.
// Delivery is at-most-once: a push to a stale session is dropped by the
// transport and never retried.
package transport

import "time"

// Pusher sends one message to one transport session, fire-and-forget.
// Implemented by the websocket hub (session id = connection uuid) and by
// the MQTT publisher (session id = device serial).
type Pusher interface {
	Push(sessionID string, msg Message) error
}

// Message is the envelope of every outbound device message.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Outbound events.
const (
	EventContentChange = "content.change"
	EventContentClear  = "content.clear"
	EventContentLayout = "content.layout"

	EventBroadcastStarted = "broadcast.started"
	EventBroadcastEnded   = "broadcast.ended"
	EventViewerCount      = "broadcast.viewer_count"

	EventWebRTCOffer  = "webrtc.offer"
	EventWebRTCAnswer = "webrtc.answer"
	EventWebRTCICE    = "webrtc.ice"
)

// ContentChange tells a device what to show and when to clear it.
type ContentChange struct {
	Type         string    `json:"type"`
	URL          string    `json:"url"`
	Rotation     int       `json:"rotation"`
	Mirror       bool      `json:"mirror"`
	DurationMs   int64     `json:"duration"`
	DisplayedAt  time.Time `json:"displayedAt"`
	ClearAt      time.Time `json:"clearAt"`
	ThumbnailURL *string   `json:"thumbnailUrl,omitempty"`
	Muted        bool      `json:"muted"`
}

// Zone is one region of a multi-zone layout message.
type Zone struct {
	ID      string        `json:"id"`
	X       int           `json:"x"`
	Y       int           `json:"y"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Content ContentChange `json:"content"`
}

// Layout is the multi-zone variant of a content change.
type Layout struct {
	Type  string `json:"type"`
	Zones []Zone `json:"zones"`
}

// BroadcastStarted notifies a target device that a live session is on air.
type BroadcastStarted struct {
	SessionID int    `json:"session_id"`
	Title     string `json:"title"`
	Emergency bool   `json:"emergency"`
}

// BroadcastEnded notifies a joined viewer that the session is over.
type BroadcastEnded struct {
	SessionID int    `json:"session_id"`
	Reason    string `json:"reason"`
}

// ViewerCount is pushed to the broadcaster as viewers join and leave.
type ViewerCount struct {
	SessionID int `json:"session_id"`
	Count     int `json:"count"`
}
