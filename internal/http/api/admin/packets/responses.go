package packets

import "github.com/Luminet-Displays/luminet/internal/model"

type TokenResponse struct {
	Token string `json:"token"`
}

type ProfileResponse struct {
	ID    int     `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// DeviceResponse decorates the stored device with its live connection state.
type DeviceResponse struct {
	model.Device
	Connected bool `json:"connected"`
}

type GroupResponse struct {
	model.DeviceGroup
	Devices []model.Device `json:"devices"`
}

// ShowNowResponse reports how many connected displays received the push.
type ShowNowResponse struct {
	Displays int `json:"displays"`
}

type FanOutResponse struct {
	Entries []model.ScheduleEntry `json:"entries"`
}

type LiveSessionResponse struct {
	model.LiveSession
	Active bool `json:"active"`
}

// LiveSessionDetailResponse is the single-session view with its fan-out
// list, viewer rows and event log.
type LiveSessionDetailResponse struct {
	LiveSessionResponse
	TargetDeviceIDs []int                     `json:"target_device_ids"`
	Viewers         []model.LiveSessionViewer `json:"viewers"`
	Events          []model.LiveSessionEvent  `json:"events"`
}

type StatusResponse struct {
	Status string `json:"status"`
}
