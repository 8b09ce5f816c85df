package model

import "time"

// Device represents a physical screen-attached unit. Serial is assigned
// during pairing and stays stable across reconnects.
type Device struct {
	ID             int       `db:"id"              json:"id"`
	Serial         *string   `db:"serial"          json:"serial"`
	Name           string    `db:"name"            json:"name"`
	Location       *string   `db:"location"        json:"location"`
	Timezone       string    `db:"timezone"        json:"timezone"`
	Paired         bool      `db:"paired"          json:"paired"`
	DaypartEnabled bool      `db:"daypart_enabled" json:"daypart_enabled"`
	CreatedBy      int       `db:"created_by"      json:"created_by"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}

type DeviceGroup struct {
	ID          int       `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Description *string   `db:"description" json:"description"`
	CreatedBy   int       `db:"created_by"  json:"created_by"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}
