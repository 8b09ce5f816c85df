package model

import "time"

const (
	LiveSessionActive = "active"
	LiveSessionEnded  = "ended"
)

// LiveSession is an ephemeral broadcast from one owner to their devices,
// tracked durably here and in the coordinator's in-memory table while active.
type LiveSession struct {
	ID           int        `db:"id"            json:"id"`
	CreatedBy    int        `db:"created_by"    json:"created_by"`
	Title        string     `db:"title"         json:"title"`
	Emergency    bool       `db:"emergency"     json:"emergency"`
	Status       string     `db:"status"        json:"status"`
	StartedAt    time.Time  `db:"started_at"    json:"started_at"`
	EndedAt      *time.Time `db:"ended_at"      json:"ended_at"`
	ViewerCount  int        `db:"viewer_count"  json:"viewer_count"`
	PeakViewers  int        `db:"peak_viewers"  json:"peak_viewers"`
	RecordingURL *string    `db:"recording_url" json:"recording_url"`
}

// Targets (live_session_targets rows) are the explicit device fan-out
// list; no rows means "all of the owner's devices", resolved fresh at push
// time. They surface as plain device ids.

type LiveSessionViewer struct {
	ID         int        `db:"id"          json:"id"`
	SessionID  int        `db:"session_id"  json:"session_id"`
	DeviceID   int        `db:"device_id"   json:"device_id"`
	JoinedAt   time.Time  `db:"joined_at"   json:"joined_at"`
	LeftAt     *time.Time `db:"left_at"     json:"left_at"`
	WatchedMs  *int64     `db:"watched_ms"  json:"watched_ms"`
	Quality    *string    `db:"quality"     json:"quality"`
}

// LiveSessionEvent is the append-only audit log of session lifecycle and
// quality events.
type LiveSessionEvent struct {
	ID        int       `db:"id"         json:"id"`
	SessionID int       `db:"session_id" json:"session_id"`
	Kind      string    `db:"kind"       json:"kind"`
	Detail    *string   `db:"detail"     json:"detail"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
