package model

import "time"

// DisplayHistory is the shared audit ledger for both scheduled and
// immediate pushes. A failed write here never blocks the push itself.
type DisplayHistory struct {
	ID          int       `db:"id"           json:"id"`
	UserID      int       `db:"user_id"      json:"user_id"`
	DeviceID    *int      `db:"device_id"    json:"device_id"`
	ScheduleID  *int      `db:"schedule_id"  json:"schedule_id"`
	ContentURL  string    `db:"content_url"  json:"content_url"`
	ContentType string    `db:"content_type" json:"content_type"`
	Source      string    `db:"source"       json:"source"`
	DisplayedAt time.Time `db:"displayed_at" json:"displayed_at"`
	Displays    int       `db:"displays"     json:"displays"`
}

// Sources recorded in display history.
const (
	HistorySourceSweep     = "sweep"
	HistorySourceImmediate = "immediate"
	HistorySourceDaypart   = "daypart"
)

// CurrentDisplay is the process-wide "now showing" snapshot. Exactly one
// durable row exists so a restart can restore content whose clear-at has
// not yet passed.
type CurrentDisplay struct {
	UserID      int       `db:"user_id"      json:"user_id"`
	ContentURL  string    `db:"content_url"  json:"content_url"`
	ContentType string    `db:"content_type" json:"content_type"`
	DisplayedAt time.Time `db:"displayed_at" json:"displayed_at"`
	ClearAt     time.Time `db:"clear_at"     json:"clear_at"`
}

// DaypartHistory records one daypart application to one device.
type DaypartHistory struct {
	ID        int       `db:"id"         json:"id"`
	DeviceID  int       `db:"device_id"  json:"device_id"`
	Window    string    `db:"window"     json:"window"`
	ContentID int       `db:"content_id" json:"content_id"`
	AppliedAt time.Time `db:"applied_at" json:"applied_at"`
}
