package endpoints

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Luminet-Displays/luminet/internal/dispatch"
	"github.com/Luminet-Displays/luminet/internal/http/api"
	"github.com/Luminet-Displays/luminet/internal/http/api/admin/packets"
	"github.com/Luminet-Displays/luminet/internal/model"
	"github.com/Luminet-Displays/luminet/internal/transport"
)

// DisplayModule is the immediate-display surface: push content to
// connected screens right now, bypassing the schedule queue.
type DisplayModule struct {
	Engine *dispatch.Engine
}

func (m *DisplayModule) Mount(c *api.Controller) {
	c.POST("/display", m.showNow)
	c.POST("/display/layout", m.showLayout)
	c.GET("/display/current", m.current)
}

func (m *DisplayModule) showNow(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var req packets.ShowNowRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	displays, err := m.Engine.ShowNow(user.ID, dispatch.ShowRequest{
		ContentURL:   req.ContentURL,
		ContentType:  req.ContentType,
		Title:        req.Title,
		DurationMs:   req.DurationMs,
		Rotation:     req.Rotation,
		Mirror:       req.Mirror,
		Muted:        req.Muted,
		ThumbnailURL: req.ThumbnailURL,
		Timezone:     req.Timezone,
		DeviceID:     req.DeviceID,
		GroupID:      req.GroupID,
	})
	if err != nil {
		if errors.Is(err, dispatch.ErrNoDisplaysConnected) {
			return nil, &api.APIError{Code: http.StatusConflict, Message: "display is offline"}
		}
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not push content"}
	}
	return packets.ShowNowResponse{Displays: displays}, nil
}

func (m *DisplayModule) showLayout(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var req packets.ShowLayoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	displays, err := m.Engine.ShowLayout(user.ID, req.DeviceID, transport.Layout{
		Type:  req.Type,
		Zones: req.Zones,
	})
	if err != nil {
		if errors.Is(err, dispatch.ErrNoDisplaysConnected) {
			return nil, &api.APIError{Code: http.StatusConflict, Message: "display is offline"}
		}
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not push layout"}
	}
	return packets.ShowNowResponse{Displays: displays}, nil
}

func (m *DisplayModule) current(_ *gin.Context, user *model.User) (any, *api.APIError) {
	current := m.Engine.Current()
	if current == nil || current.UserID != user.ID {
		return gin.H{"showing": false}, nil
	}
	return gin.H{"showing": true, "current": current}, nil
}
