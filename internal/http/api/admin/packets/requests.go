package packets

import (
	"time"

	"github.com/Luminet-Displays/luminet/internal/transport"
)

type SignupRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8"`
	Name     *string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateDeviceRequest struct {
	Name     string  `json:"name" binding:"required"`
	Location *string `json:"location"`
	Timezone string  `json:"timezone"`
}

type UpdateDeviceRequest struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
	Timezone *string `json:"timezone"`
}

type PairDeviceRequest struct {
	PairingCode string `json:"code" binding:"required"`
	DeviceID    int    `json:"device_id" binding:"required"`
}

type CreateGroupRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

type GroupMemberRequest struct {
	DeviceID int `json:"device_id" binding:"required"`
}

type SetDefaultContentRequest struct {
	ContentID int `json:"content_id" binding:"required"`
}

type CreateScheduleRequest struct {
	ContentURL   string  `json:"content_url" binding:"required"`
	ContentType  string  `json:"content_type" binding:"required,oneof=image video"`
	Title        *string `json:"title"`
	Rotation     int     `json:"rotation"`
	Mirror       bool    `json:"mirror"`
	Muted        bool    `json:"muted"`
	ThumbnailURL *string `json:"thumbnail_url"`

	VideoFormat     *string `json:"video_format"`
	VideoWidth      *int    `json:"video_width"`
	VideoHeight     *int    `json:"video_height"`
	VideoSizeBytes  *int64  `json:"video_size_bytes"`
	VideoDurationMs *int64  `json:"video_duration_ms"`

	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Timezone    string    `json:"timezone"`
	DurationMs  int64     `json:"duration_ms" binding:"required,gt=0"`
	Repeat      string    `json:"repeat"`

	DeviceID *int `json:"device_id"`
	GroupID  *int `json:"group_id"`
}

type UpdateScheduleRequest struct {
	ContentURL   *string    `json:"content_url"`
	ContentType  *string    `json:"content_type"`
	Title        *string    `json:"title"`
	Rotation     *int       `json:"rotation"`
	Mirror       *bool      `json:"mirror"`
	Muted        *bool      `json:"muted"`
	ThumbnailURL *string    `json:"thumbnail_url"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
	Timezone     *string    `json:"timezone"`
	DurationMs   *int64     `json:"duration_ms"`
	Repeat       *string    `json:"repeat"`
}

type ShowNowRequest struct {
	ContentURL   string  `json:"content_url" binding:"required"`
	ContentType  string  `json:"content_type" binding:"required,oneof=image video"`
	Title        *string `json:"title"`
	Rotation     int     `json:"rotation"`
	Mirror       bool    `json:"mirror"`
	Muted        bool    `json:"muted"`
	ThumbnailURL *string `json:"thumbnail_url"`
	Timezone     string  `json:"timezone"`
	DurationMs   int64   `json:"duration_ms" binding:"required,gt=0"`

	DeviceID *int `json:"device_id"`
	GroupID  *int `json:"group_id"`
}

type ShowLayoutRequest struct {
	DeviceID *int             `json:"device_id"`
	Type     string           `json:"type" binding:"required"`
	Zones    []transport.Zone `json:"zones" binding:"required,min=1"`
}

type DaypartToggleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type DaypartContentRequest struct {
	Window    string `json:"window" binding:"required,oneof=morning afternoon evening late_night"`
	ContentID int    `json:"content_id" binding:"required"`
	Priority  int    `json:"priority"`
}

type StartLiveSessionRequest struct {
	Title            string `json:"title" binding:"required"`
	Emergency        bool   `json:"emergency"`
	TargetDeviceIDs  []int  `json:"target_device_ids"`
	TransportSession string `json:"transport_session"`
}
