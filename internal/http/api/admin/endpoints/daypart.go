package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Luminet-Displays/luminet/internal/daypart"
	"github.com/Luminet-Displays/luminet/internal/db"
	"github.com/Luminet-Displays/luminet/internal/http/api"
	"github.com/Luminet-Displays/luminet/internal/http/api/admin/packets"
	"github.com/Luminet-Displays/luminet/internal/model"
)

// DaypartModule configures per-device time-of-day content rotation.
type DaypartModule struct {
	Store db.Store
}

func (m *DaypartModule) Mount(c *api.Controller) {
	c.PUT("/devices/:id/daypart", m.toggle)
	c.POST("/devices/:id/daypart/content", m.setContent)
	c.DELETE("/devices/:id/daypart/content", m.removeContent)
	c.GET("/daypart/windows", m.windows)
}

func (m *DaypartModule) ownedDevice(ctx *gin.Context, user *model.User) (model.Device, *api.APIError) {
	id, apiErr := pathID(ctx)
	if apiErr != nil {
		return model.Device{}, apiErr
	}
	device, err := m.Store.GetDeviceByID(id)
	if err != nil || device.CreatedBy != user.ID {
		return model.Device{}, &api.APIError{Code: http.StatusNotFound, Message: "device not found"}
	}
	return device, nil
}

func (m *DaypartModule) toggle(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	device, apiErr := m.ownedDevice(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.DaypartToggleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if err := m.Store.SetDaypartEnabled(device.ID, *req.Enabled); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not update device"}
	}
	return packets.StatusResponse{Status: "updated"}, nil
}

func (m *DaypartModule) setContent(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	device, apiErr := m.ownedDevice(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.DaypartContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	content, err := m.Store.GetContentByID(req.ContentID)
	if err != nil || content.CreatedBy != user.ID {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "content not found"}
	}
	if err := m.Store.SetDaypartContent(device.ID, req.Window, req.ContentID, req.Priority); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not save daypart content"}
	}
	return packets.StatusResponse{Status: "saved"}, nil
}

func (m *DaypartModule) removeContent(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	device, apiErr := m.ownedDevice(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.DaypartContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if err := m.Store.RemoveDaypartContent(device.ID, req.Window, req.ContentID); err != nil {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "daypart content not found"}
	}
	return packets.StatusResponse{Status: "removed"}, nil
}

func (m *DaypartModule) windows(_ *gin.Context, _ *model.User) (any, *api.APIError) {
	return daypart.Windows(), nil
}
