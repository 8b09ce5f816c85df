package model

import "time"

type Content struct {
	ID           int       `db:"id"            json:"id"`
	Name         string    `db:"name"          json:"name"`
	Type         string    `db:"type"          json:"type"`
	URL          string    `db:"url"           json:"url"`
	SizeBytes    *int64    `db:"size_bytes"    json:"size_bytes"`
	DurationMs   *int64    `db:"duration_ms"   json:"duration_ms"`
	ThumbnailURL *string   `db:"thumbnail_url" json:"thumbnail_url"`
	IsDefault    bool      `db:"is_default"    json:"is_default"`
	CreatedBy    int       `db:"created_by"    json:"created_by"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}
