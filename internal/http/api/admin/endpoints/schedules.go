package endpoints

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Luminet-Displays/luminet/internal/db"
	"github.com/Luminet-Displays/luminet/internal/dispatch"
	"github.com/Luminet-Displays/luminet/internal/http/api"
	"github.com/Luminet-Displays/luminet/internal/http/api/admin/packets"
	"github.com/Luminet-Displays/luminet/internal/model"
)

type SchedulesModule struct {
	Store  db.Store
	Engine *dispatch.Engine
}

func (m *SchedulesModule) Mount(c *api.Controller) {
	c.GET("/schedules", m.list)
	c.POST("/schedules", m.create)
	c.GET("/schedules/:id", m.get)
	c.PATCH("/schedules/:id", m.update)
	c.DELETE("/schedules/:id", m.delete)
}

func conflictResponse(err error) *api.APIError {
	var hit *dispatch.ConflictError
	if errors.As(err, &hit) {
		return &api.APIError{Code: http.StatusConflict, Message: hit.Error()}
	}
	return nil
}

func (m *SchedulesModule) list(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var (
		entries []model.ScheduleEntry
		err     error
	)
	switch {
	case ctx.Query("device_id") != "":
		deviceID, convErr := strconv.Atoi(ctx.Query("device_id"))
		if convErr != nil {
			return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid device_id"}
		}
		entries, err = m.Store.ListSchedulesForDevice(user.ID, deviceID)
	case ctx.Query("group_id") != "":
		groupID, convErr := strconv.Atoi(ctx.Query("group_id"))
		if convErr != nil {
			return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid group_id"}
		}
		entries, err = m.Store.ListSchedulesForGroup(user.ID, groupID)
	default:
		entries, err = m.Store.ListSchedules(user.ID)
	}
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not list schedules"}
	}
	return entries, nil
}

func (m *SchedulesModule) create(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var req packets.CreateScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if req.Repeat == "" {
		req.Repeat = model.RepeatOnce
	}
	if !dispatch.ValidRepeat(req.Repeat) {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid repeat class"}
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	entry := model.ScheduleEntry{
		DeviceID:        req.DeviceID,
		ContentURL:      req.ContentURL,
		ContentType:     req.ContentType,
		Title:           req.Title,
		Rotation:        req.Rotation,
		Mirror:          req.Mirror,
		Muted:           req.Muted,
		ThumbnailURL:    req.ThumbnailURL,
		VideoFormat:     req.VideoFormat,
		VideoWidth:      req.VideoWidth,
		VideoHeight:     req.VideoHeight,
		VideoSizeBytes:  req.VideoSizeBytes,
		VideoDurationMs: req.VideoDurationMs,
		ScheduledAt:     req.ScheduledAt.UTC(),
		Timezone:        req.Timezone,
		DurationMs:      req.DurationMs,
		Repeat:          req.Repeat,
	}

	// a group target fans out to one independent row per member device
	if req.GroupID != nil {
		entries, err := m.Engine.FanOutGroup(user.ID, *req.GroupID, entry)
		if err != nil {
			return nil, &api.APIError{Code: http.StatusNotFound, Message: "group not found"}
		}
		return packets.FanOutResponse{Entries: entries}, nil
	}

	created, err := m.Engine.CreateSchedule(user.ID, entry)
	if err != nil {
		if apiErr := conflictResponse(err); apiErr != nil {
			return nil, apiErr
		}
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not create schedule"}
	}
	return created, nil
}

func (m *SchedulesModule) get(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	entry, err := m.Store.GetScheduleEntry(id)
	if err != nil || entry.CreatedBy != user.ID {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "schedule not found"}
	}
	return entry, nil
}

func (m *SchedulesModule) update(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.UpdateScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if req.Repeat != nil && !dispatch.ValidRepeat(*req.Repeat) {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid repeat class"}
	}

	updated, err := m.Engine.UpdateSchedule(id, user.ID, db.SchedulePatch{
		ContentURL:   req.ContentURL,
		ContentType:  req.ContentType,
		Title:        req.Title,
		Rotation:     req.Rotation,
		Mirror:       req.Mirror,
		Muted:        req.Muted,
		ThumbnailURL: req.ThumbnailURL,
		ScheduledAt:  req.ScheduledAt,
		Timezone:     req.Timezone,
		DurationMs:   req.DurationMs,
		Repeat:       req.Repeat,
	})
	if err != nil {
		if apiErr := conflictResponse(err); apiErr != nil {
			return nil, apiErr
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &api.APIError{Code: http.StatusNotFound, Message: "schedule not found"}
		}
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not update schedule"}
	}
	return updated, nil
}

func (m *SchedulesModule) delete(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := pathID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	deleted, err := m.Engine.DeleteSchedule(id, user.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "schedule not found"}
	}
	return deleted, nil
}
