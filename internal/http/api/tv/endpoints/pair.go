// Package endpoints holds the display-facing surface: everything a screen
// needs before it has an authenticated realtime connection.
package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Luminet-Displays/luminet/internal/db"
	"github.com/Luminet-Displays/luminet/internal/http/api"
	"github.com/Luminet-Displays/luminet/internal/http/api/tv/packets"
	"github.com/Luminet-Displays/luminet/internal/redis"
)

type PairModule struct {
	Store db.Store
}

func (m *PairModule) Mount(c *api.Controller) {
	c.Public("POST", "/pairing-code", m.pairingCode)
	c.Public("GET", "/state", m.state)
}

// pairingCode issues the short-lived code the display renders on screen.
// Asking again before pairing simply issues a fresh code.
func (m *PairModule) pairingCode(ctx *gin.Context) (any, *api.APIError) {
	var req packets.PairingCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	code, err := redis.NewPairingCode(ctx.Request.Context(), req.Serial)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not issue pairing code"}
	}
	return packets.PairingCodeResponse{Code: code, TTLSeconds: int(redis.PairingTTL.Seconds())}, nil
}

// state lets a display poll whether its serial has been claimed yet.
func (m *PairModule) state(ctx *gin.Context) (any, *api.APIError) {
	serial := ctx.Query("serial")
	if serial == "" {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "missing serial"}
	}

	device, err := m.Store.GetDeviceBySerial(serial)
	if err != nil {
		return packets.DeviceStateResponse{Paired: false}, nil
	}
	return packets.DeviceStateResponse{
		Paired:   device.Paired,
		Name:     device.Name,
		Timezone: device.Timezone,
	}, nil
}
