package model

import "time"

// Repeat classes for a schedule entry.
const (
	RepeatOnce    = "once"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
	RepeatYearly  = "yearly"
)

// Lifecycle states for a schedule entry. There is no transition out of
// completed or cancelled.
const (
	ScheduleStatusPending   = "pending"
	ScheduleStatusCompleted = "completed"
	ScheduleStatusCancelled = "cancelled"
)

// ScheduleEntry is one row of the schedule repository: a request to show a
// piece of content at an absolute instant, for a fixed duration, optionally
// repeating. ScheduledAt is authoritative in UTC; Timezone is kept only for
// presentation.
type ScheduleEntry struct {
	ID        int  `db:"id"         json:"id"`
	CreatedBy int  `db:"created_by" json:"created_by"`
	DeviceID  *int `db:"device_id"  json:"device_id"`
	GroupID   *int `db:"group_id"   json:"group_id"`
	FromGroup bool `db:"from_group" json:"from_group"`

	ContentURL   string  `db:"content_url"   json:"content_url"`
	ContentType  string  `db:"content_type"  json:"content_type"`
	Title        *string `db:"title"         json:"title"`
	Rotation     int     `db:"rotation"      json:"rotation"`
	Mirror       bool    `db:"mirror"        json:"mirror"`
	Muted        bool    `db:"muted"         json:"muted"`
	ThumbnailURL *string `db:"thumbnail_url" json:"thumbnail_url"`

	VideoFormat     *string `db:"video_format"      json:"video_format"`
	VideoWidth      *int    `db:"video_width"       json:"video_width"`
	VideoHeight     *int    `db:"video_height"      json:"video_height"`
	VideoSizeBytes  *int64  `db:"video_size_bytes"  json:"video_size_bytes"`
	VideoDurationMs *int64  `db:"video_duration_ms" json:"video_duration_ms"`

	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	Timezone    string    `db:"timezone"     json:"timezone"`
	DurationMs  int64     `db:"duration_ms"  json:"duration_ms"`
	Repeat      string    `db:"repeat"       json:"repeat"`
	Status      string    `db:"status"       json:"status"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Window returns the half-open display window [ScheduledAt, ScheduledAt+Duration).
func (e ScheduleEntry) Window() (time.Time, time.Time) {
	return e.ScheduledAt, e.ScheduledAt.Add(time.Duration(e.DurationMs) * time.Millisecond)
}
