package endpoints

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Luminet-Displays/luminet/internal/db"
	"github.com/Luminet-Displays/luminet/internal/http/api"
	"github.com/Luminet-Displays/luminet/internal/http/api/admin/packets"
	"github.com/Luminet-Displays/luminet/internal/model"
	"github.com/Luminet-Displays/luminet/internal/redis"
	"github.com/Luminet-Displays/luminet/internal/registry"
)

type DevicesModule struct {
	Store    db.Store
	Registry *registry.Registry
}

func (m *DevicesModule) Mount(c *api.Controller) {
	c.GET("/devices", m.list)
	c.POST("/devices", m.create)
	c.GET("/devices/:id", m.get)
	c.PUT("/devices/:id", m.update)
	c.DELETE("/devices/:id", m.delete)
	c.POST("/pair", m.pair)
}

func pathID(ctx *gin.Context) (int, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, &api.APIError{Code: http.StatusBadRequest, Message: "invalid id"}
	}
	return id, nil
}

func pathParamInt(ctx *gin.Context, name string) (int, error) {
	return strconv.Atoi(ctx.Param(name))
}

func (m *DevicesModule) decorate(d model.Device) packets.DeviceResponse {
	connected := false
	if d.Serial != nil {
		_, connected = m.Registry.BySerial(*d.Serial)
	}
	return packets.DeviceResponse{Device: d, Connected: connected}
}

func (m *DevicesModule) list(_ *gin.Context, user *model.User) (any, *api.APIError) {
	devices, err := m.Store.ListDevices(user.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not list devices"}
	}
	out := make([]packets.DeviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, m.decorate(d))
	}
	return out, nil
}

func (m *DevicesModule) create(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var req packets.CreateDeviceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	device, err := m.Store.CreateDevice(req.Name, req.Location, req.Timezone, user.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not create device"}
	}
	return m.decorate(device), nil
}

func (m *DevicesModule) get(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	device, err := m.Store.GetDeviceByID(id)
	if err != nil || device.CreatedBy != user.ID {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "device not found"}
	}
	return m.decorate(device), nil
}

func (m *DevicesModule) update(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	device, err := m.Store.GetDeviceByID(id)
	if err != nil || device.CreatedBy != user.ID {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "device not found"}
	}

	var req packets.UpdateDeviceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if err := m.Store.UpdateDevice(id, req.Name, req.Location, req.Timezone); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not update device"}
	}
	device, err = m.Store.GetDeviceByID(id)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not load device"}
	}
	return m.decorate(device), nil
}

func (m *DevicesModule) delete(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := m.Store.DeleteDevice(id, user.ID); err != nil {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "device not found"}
	}
	return packets.StatusResponse{Status: "deleted"}, nil
}

// pair claims the code shown on a display's screen, binding that display's
// serial to one of the user's device records.
func (m *DevicesModule) pair(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var req packets.PairDeviceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	device, err := m.Store.GetDeviceByID(req.DeviceID)
	if err != nil || device.CreatedBy != user.ID {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "device not found"}
	}

	serial, err := redis.ClaimPairingCode(ctx.Request.Context(), req.PairingCode)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "pairing code expired or unknown"}
	}

	if err := m.Store.AssignSerialToDevice(req.DeviceID, serial); err != nil {
		return nil, &api.APIError{Code: http.StatusConflict, Message: "serial already assigned"}
	}
	if err := m.Store.PairDevice(req.DeviceID); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not mark device paired"}
	}

	device, err = m.Store.GetDeviceByID(req.DeviceID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not load device"}
	}
	return m.decorate(device), nil
}
