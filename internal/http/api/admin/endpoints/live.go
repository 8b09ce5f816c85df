package endpoints

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Luminet-Displays/luminet/internal/db"
	"github.com/Luminet-Displays/luminet/internal/http/api"
	"github.com/Luminet-Displays/luminet/internal/http/api/admin/packets"
	"github.com/Luminet-Displays/luminet/internal/live"
	"github.com/Luminet-Displays/luminet/internal/model"
)

// SessionAuthority resolves a transport session id to the dashboard user
// it is authenticated as.
type SessionAuthority interface {
	SessionUser(sessionID string) (int, bool)
}

// LiveModule is the request-driven side of live sessions: history, status
// and forced teardown. Broadcast start/end and WebRTC signalling flow over
// the realtime connection; HTTP start is offered for dashboards that hold
// a transport session from a prior connect.
type LiveModule struct {
	Store       db.Store
	Coordinator *live.Coordinator
	Sessions    SessionAuthority
}

func (m *LiveModule) Mount(c *api.Controller) {
	c.GET("/live", m.list)
	c.POST("/live", m.start)
	c.GET("/live/:id", m.get)
	c.POST("/live/:id/end", m.end)
	c.DELETE("/live/:id", m.delete)
}

func (m *LiveModule) list(_ *gin.Context, user *model.User) (any, *api.APIError) {
	sessions, err := m.Store.ListLiveSessions(user.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not list sessions"}
	}
	out := make([]packets.LiveSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, packets.LiveSessionResponse{LiveSession: s, Active: m.Coordinator.IsActive(s.ID)})
	}
	return out, nil
}

func (m *LiveModule) start(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var req packets.StartLiveSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	// the broadcaster session gains end-rights and receives viewer counts,
	// so it must belong to a connection authenticated as this user
	if req.TransportSession != "" {
		uid, ok := m.Sessions.SessionUser(req.TransportSession)
		if !ok || uid != user.ID {
			return nil, &api.APIError{Code: http.StatusForbidden, Message: "transport session does not belong to this user"}
		}
	}

	sess, err := m.Coordinator.StartBroadcast(user.ID, req.TransportSession, live.StartParams{
		Title:           req.Title,
		Emergency:       req.Emergency,
		TargetDeviceIDs: req.TargetDeviceIDs,
	})
	if err != nil {
		if errors.Is(err, live.ErrEmergencyActive) {
			return nil, &api.APIError{Code: http.StatusConflict, Message: "an emergency broadcast is already active"}
		}
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not start broadcast"}
	}
	return packets.LiveSessionResponse{LiveSession: sess, Active: true}, nil
}

func (m *LiveModule) owned(ctx *gin.Context, user *model.User) (model.LiveSession, *api.APIError) {
	id, apiErr := pathID(ctx)
	if apiErr != nil {
		return model.LiveSession{}, apiErr
	}
	sess, err := m.Store.GetLiveSession(id)
	if err != nil || sess.CreatedBy != user.ID {
		return model.LiveSession{}, &api.APIError{Code: http.StatusNotFound, Message: "session not found"}
	}
	return sess, nil
}

func (m *LiveModule) get(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	sess, apiErr := m.owned(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}

	targets, err := m.Store.ListLiveSessionTargets(sess.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not load session targets"}
	}
	viewers, err := m.Store.ListLiveSessionViewers(sess.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not load session viewers"}
	}
	events, err := m.Store.ListLiveSessionEvents(sess.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not load session events"}
	}

	return packets.LiveSessionDetailResponse{
		LiveSessionResponse: packets.LiveSessionResponse{LiveSession: sess, Active: m.Coordinator.IsActive(sess.ID)},
		TargetDeviceIDs:     targets,
		Viewers:             viewers,
		Events:              events,
	}, nil
}

// end force-ends the caller's own session. Ownership is checked here, so
// the coordinator's broadcaster-session check is bypassed on purpose.
func (m *LiveModule) end(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	sess, apiErr := m.owned(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := m.Coordinator.ForceEnd(sess.ID); err != nil {
		if errors.Is(err, live.ErrSessionNotActive) {
			return nil, &api.APIError{Code: http.StatusConflict, Message: "session is not active"}
		}
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not end session"}
	}
	return packets.StatusResponse{Status: "ended"}, nil
}

func (m *LiveModule) delete(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	sess, apiErr := m.owned(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}
	if m.Coordinator.IsActive(sess.ID) {
		return nil, &api.APIError{Code: http.StatusConflict, Message: "session is still active"}
	}
	if err := m.Store.DeleteLiveSession(sess.ID, user.ID); err != nil {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "session not found"}
	}
	return packets.StatusResponse{Status: "deleted"}, nil
}
