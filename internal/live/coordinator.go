// Package live coordinates ephemeral broadcast/viewer pairings over the
// live transport. The coordinator is a signaling relay, not a media server:
// WebRTC payloads pass through untouched.
package live

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Luminet-Displays/luminet/internal/model"
	"github.com/Luminet-Displays/luminet/internal/registry"
	"github.com/Luminet-Displays/luminet/internal/transport"
)

var (
	// ErrSessionNotActive is returned for operations against a session id
	// missing from the in-memory active table.
	ErrSessionNotActive = errors.New("live session is not active")
	// ErrNotBroadcaster is returned when a transport session other than the
	// registered broadcaster tries to end a broadcast.
	ErrNotBroadcaster = errors.New("only the broadcaster may end this session")
	// ErrEmergencyActive is returned when the owner already has an active
	// emergency broadcast.
	ErrEmergencyActive = errors.New("an emergency broadcast is already active")
)

// End reasons recorded in the session event log.
const (
	EndReasonExplicit   = "explicit"
	EndReasonDisconnect = "broadcaster_disconnect"
	EndReasonForced     = "forced"
)

// Store is the durable side of the coordinator.
type Store interface {
	CreateLiveSession(ownerID int, title string, emergency bool, targets []int) (model.LiveSession, error)
	HasActiveEmergencySession(ownerID int) (bool, error)
	EndLiveSession(id int, endedAt time.Time, reason string) error
	AddLiveSessionViewer(sessionID, deviceID int, joinedAt time.Time) (int, error)
	CloseLiveSessionViewer(sessionID, deviceID int, leftAt time.Time) (int, error)
	SetViewerQuality(sessionID, deviceID int, quality string) error
	RecordLiveSessionEvent(sessionID int, kind string, detail *string) error
}

// activeSession is the in-memory tracking entry for one on-air broadcast.
type activeSession struct {
	id                 int
	ownerID            int
	emergency          bool
	broadcasterSession string
	targetDeviceIDs    []int          // empty: all of owner's devices, resolved fresh each push
	viewers            map[int]string // device id -> transport session
}

// Coordinator owns the active-session table. Durable status lives in the
// store; reachability comes from the shared connection registry.
//
// Two transports are involved: devices receives target-device fan-out
// (started notices) over whichever transport the fleet uses, while control
// carries broadcaster- and viewer-facing traffic (viewer counts, ended
// notices, WebRTC relays), which only ever flows over the websocket hub.
type Coordinator struct {
	store    Store
	registry *registry.Registry
	devices  transport.Pusher
	control  transport.Pusher

	mu     sync.Mutex
	active map[int]*activeSession

	now func() time.Time
}

func New(store Store, reg *registry.Registry, devices, control transport.Pusher) *Coordinator {
	return &Coordinator{
		store:    store,
		registry: reg,
		devices:  devices,
		control:  control,
		active:   make(map[int]*activeSession),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// StartParams describes a broadcast-start request.
type StartParams struct {
	Title           string
	Emergency       bool
	TargetDeviceIDs []int
}

// StartBroadcast creates the durable session (session + targets + start
// event in one transaction), registers the in-memory entry bound to the
// broadcaster's transport session, and fans out the started notification.
// Devices not currently connected never receive it; there is no queuing.
//
// The emergency uniqueness check is query-time only: two near-simultaneous
// starts can both pass it. Known race, kept as-is.
func (c *Coordinator) StartBroadcast(ownerID int, broadcasterSession string, p StartParams) (model.LiveSession, error) {
	if p.Emergency {
		active, err := c.store.HasActiveEmergencySession(ownerID)
		if err != nil {
			return model.LiveSession{}, err
		}
		if active {
			return model.LiveSession{}, ErrEmergencyActive
		}
	}

	sess, err := c.store.CreateLiveSession(ownerID, p.Title, p.Emergency, p.TargetDeviceIDs)
	if err != nil {
		return model.LiveSession{}, err
	}

	c.mu.Lock()
	c.active[sess.ID] = &activeSession{
		id:                 sess.ID,
		ownerID:            ownerID,
		emergency:          p.Emergency,
		broadcasterSession: broadcasterSession,
		targetDeviceIDs:    p.TargetDeviceIDs,
		viewers:            make(map[int]string),
	}
	c.mu.Unlock()

	started := transport.Message{
		Event: transport.EventBroadcastStarted,
		Data:  transport.BroadcastStarted{SessionID: sess.ID, Title: p.Title, Emergency: p.Emergency},
	}
	for _, dev := range c.resolveTargets(ownerID, p.TargetDeviceIDs) {
		_ = c.devices.Push(dev.SessionID, started)
	}

	log.Info().Int("session_id", sess.ID).Int("owner", ownerID).Bool("emergency", p.Emergency).Msg("broadcast started")
	return sess, nil
}

// resolveTargets maps the explicit target list (or, when empty, all of the
// owner's devices) to currently connected entries. Re-evaluated fresh on
// every push so a device connecting mid-broadcast is findable for a join.
func (c *Coordinator) resolveTargets(ownerID int, targetDeviceIDs []int) []registry.ConnectedDevice {
	connected := c.registry.OwnedBy(ownerID)
	if len(targetDeviceIDs) == 0 {
		return connected
	}

	wanted := make(map[int]struct{}, len(targetDeviceIDs))
	for _, id := range targetDeviceIDs {
		wanted[id] = struct{}{}
	}
	var out []registry.ConnectedDevice
	for _, dev := range connected {
		if _, ok := wanted[dev.DeviceID]; ok {
			out = append(out, dev)
		}
	}
	return out
}

// EndBroadcast ends a session on behalf of a transport session. Only the
// registered broadcaster may end its own session; forced ends go through
// ForceEnd.
func (c *Coordinator) EndBroadcast(sessionID int, bySession string) error {
	c.mu.Lock()
	sess, ok := c.active[sessionID]
	if !ok {
		c.mu.Unlock()
		return ErrSessionNotActive
	}
	if sess.broadcasterSession != bySession {
		c.mu.Unlock()
		return ErrNotBroadcaster
	}
	delete(c.active, sessionID)
	c.mu.Unlock()

	c.finish(sess, EndReasonExplicit)
	return nil
}

// ForceEnd ends a session administratively, bypassing the broadcaster
// check.
func (c *Coordinator) ForceEnd(sessionID int) error {
	c.mu.Lock()
	sess, ok := c.active[sessionID]
	if ok {
		delete(c.active, sessionID)
	}
	c.mu.Unlock()
	if !ok {
		return ErrSessionNotActive
	}

	c.finish(sess, EndReasonForced)
	return nil
}

// finish pushes the ended notice to every joined viewer and persists the
// end (which also finalizes viewer watch durations server-side).
func (c *Coordinator) finish(sess *activeSession, reason string) {
	ended := transport.Message{
		Event: transport.EventBroadcastEnded,
		Data:  transport.BroadcastEnded{SessionID: sess.id, Reason: reason},
	}
	for _, viewerSession := range sess.viewers {
		_ = c.control.Push(viewerSession, ended)
	}

	if err := c.store.EndLiveSession(sess.id, c.now(), reason); err != nil {
		log.Error().Err(err).Int("session_id", sess.id).Msg("failed to persist broadcast end")
	}
	log.Info().Int("session_id", sess.id).Str("reason", reason).Msg("broadcast ended")
}

// Join adds a connected device as a viewer, persists the join, and notifies
// the broadcaster of the new count.
func (c *Coordinator) Join(sessionID int, dev registry.ConnectedDevice) (int, error) {
	c.mu.Lock()
	sess, ok := c.active[sessionID]
	if !ok {
		c.mu.Unlock()
		return 0, ErrSessionNotActive
	}
	sess.viewers[dev.DeviceID] = dev.SessionID
	broadcaster := sess.broadcasterSession
	c.mu.Unlock()

	count, err := c.store.AddLiveSessionViewer(sessionID, dev.DeviceID, c.now())
	if err != nil {
		log.Warn().Err(err).Int("session_id", sessionID).Msg("viewer join write failed")
		count = c.viewerCount(sessionID)
	}

	_ = c.control.Push(broadcaster, transport.Message{
		Event: transport.EventViewerCount,
		Data:  transport.ViewerCount{SessionID: sessionID, Count: count},
	})
	return count, nil
}

// Leave mirrors Join for an explicit viewer departure.
func (c *Coordinator) Leave(sessionID, deviceID int) error {
	c.mu.Lock()
	sess, ok := c.active[sessionID]
	if !ok {
		c.mu.Unlock()
		return ErrSessionNotActive
	}
	if _, joined := sess.viewers[deviceID]; !joined {
		c.mu.Unlock()
		return ErrSessionNotActive
	}
	delete(sess.viewers, deviceID)
	broadcaster := sess.broadcasterSession
	c.mu.Unlock()

	count, err := c.store.CloseLiveSessionViewer(sessionID, deviceID, c.now())
	if err != nil {
		log.Warn().Err(err).Int("session_id", sessionID).Msg("viewer leave write failed")
		count = c.viewerCount(sessionID)
	}

	_ = c.control.Push(broadcaster, transport.Message{
		Event: transport.EventViewerCount,
		Data:  transport.ViewerCount{SessionID: sessionID, Count: count},
	})
	return nil
}

// Quality tags the viewer's open row; failures are audit-only.
func (c *Coordinator) Quality(sessionID, deviceID int, quality string) {
	c.mu.Lock()
	_, ok := c.active[sessionID]
	c.mu.Unlock()
	if !ok {
		return
	}
	if err := c.store.SetViewerQuality(sessionID, deviceID, quality); err != nil {
		log.Warn().Err(err).Int("session_id", sessionID).Msg("quality write failed")
	}
	detail := quality
	if err := c.store.RecordLiveSessionEvent(sessionID, "quality", &detail); err != nil {
		log.Warn().Err(err).Int("session_id", sessionID).Msg("quality event write failed")
	}
}

// Relay forwards a WebRTC signaling payload to a target transport session
// with no interpretation of its contents.
func (c *Coordinator) Relay(event, targetSession string, payload json.RawMessage) {
	_ = c.control.Push(targetSession, transport.Message{Event: event, Data: payload})
}

// HandleDisconnect reconciles a dropped transport session against every
// active broadcast: a broadcaster's sessions are force-ended (treated
// identically to an explicit end, reason annotated) and a viewer's joins
// are closed as if it had left.
func (c *Coordinator) HandleDisconnect(transportSession string) {
	var ended []*activeSession
	type departure struct {
		sessionID, deviceID int
		broadcaster         string
	}
	var departures []departure

	c.mu.Lock()
	for id, sess := range c.active {
		if sess.broadcasterSession == transportSession {
			delete(c.active, id)
			ended = append(ended, sess)
			continue
		}
		for deviceID, viewerSession := range sess.viewers {
			if viewerSession == transportSession {
				delete(sess.viewers, deviceID)
				departures = append(departures, departure{id, deviceID, sess.broadcasterSession})
			}
		}
	}
	c.mu.Unlock()

	for _, sess := range ended {
		c.finish(sess, EndReasonDisconnect)
	}
	for _, d := range departures {
		count, err := c.store.CloseLiveSessionViewer(d.sessionID, d.deviceID, c.now())
		if err != nil {
			log.Warn().Err(err).Int("session_id", d.sessionID).Msg("disconnect leave write failed")
			count = c.viewerCount(d.sessionID)
		}
		_ = c.control.Push(d.broadcaster, transport.Message{
			Event: transport.EventViewerCount,
			Data:  transport.ViewerCount{SessionID: d.sessionID, Count: count},
		})
	}
}

// IsActive reports whether the session is in the in-memory table.
func (c *Coordinator) IsActive(sessionID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[sessionID]
	return ok
}

func (c *Coordinator) viewerCount(sessionID int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sess, ok := c.active[sessionID]; ok {
		return len(sess.viewers)
	}
	return 0
}
