package packets

type PairingCodeRequest struct {
	Serial string `json:"serial" binding:"required"`
}

type PairingCodeResponse struct {
	Code       string `json:"code"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type DeviceStateResponse struct {
	Paired   bool   `json:"paired"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}
