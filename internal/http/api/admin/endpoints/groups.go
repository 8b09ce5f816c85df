package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Luminet-Displays/luminet/internal/db"
	"github.com/Luminet-Displays/luminet/internal/http/api"
	"github.com/Luminet-Displays/luminet/internal/http/api/admin/packets"
	"github.com/Luminet-Displays/luminet/internal/model"
)

type GroupsModule struct {
	Store db.Store
}

func (m *GroupsModule) Mount(c *api.Controller) {
	c.GET("/groups", m.list)
	c.POST("/groups", m.create)
	c.GET("/groups/:id", m.get)
	c.DELETE("/groups/:id", m.delete)
	c.POST("/groups/:id/devices", m.addDevice)
	c.DELETE("/groups/:id/devices/:device_id", m.removeDevice)
}

func (m *GroupsModule) list(_ *gin.Context, user *model.User) (any, *api.APIError) {
	groups, err := m.Store.ListDeviceGroups(user.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not list groups"}
	}
	return groups, nil
}

func (m *GroupsModule) create(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var req packets.CreateGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	group, err := m.Store.CreateDeviceGroup(user.ID, req.Name, req.Description)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not create group"}
	}
	return group, nil
}

func (m *GroupsModule) get(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	group, err := m.Store.GetDeviceGroupByID(id)
	if err != nil || group.CreatedBy != user.ID {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "group not found"}
	}
	devices, err := m.Store.DevicesInGroup(user.ID, id)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not list group devices"}
	}
	return packets.GroupResponse{DeviceGroup: group, Devices: devices}, nil
}

func (m *GroupsModule) delete(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := m.Store.DeleteDeviceGroup(user.ID, id); err != nil {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "group not found"}
	}
	return packets.StatusResponse{Status: "deleted"}, nil
}

func (m *GroupsModule) addDevice(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.GroupMemberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if err := m.Store.AddDeviceToGroup(user.ID, id, req.DeviceID); err != nil {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "group or device not found"}
	}
	return packets.StatusResponse{Status: "added"}, nil
}

func (m *GroupsModule) removeDevice(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	deviceID, err := pathParamInt(ctx, "device_id")
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid device id"}
	}
	if err := m.Store.RemoveDeviceFromGroup(user.ID, id, deviceID); err != nil {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "group or device not found"}
	}
	return packets.StatusResponse{Status: "removed"}, nil
}
