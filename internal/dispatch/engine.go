// Package dispatch decides which content is on screen for which device:
// conflict-gated schedule creation, the periodic due-schedule sweep, the
// immediate-display path and the process-wide now-showing snapshot.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Luminet-Displays/luminet/internal/db"
	"github.com/Luminet-Displays/luminet/internal/model"
	"github.com/Luminet-Displays/luminet/internal/registry"
	"github.com/Luminet-Displays/luminet/internal/transport"
)

// ErrNoDisplaysConnected is returned by the immediate-display path when no
// targeted device resolves to a live session. The caller tells the end user
// the display is offline; nothing is queued.
var ErrNoDisplaysConnected = errors.New("no displays connected")

// SweepInterval is the fixed period of the due-schedule scan. It must stay
// above the expected sweep duration; sweeps never overlap because the run
// loop is sequential.
const SweepInterval = 10 * time.Second

// Store is the slice of the persistence layer the engine needs.
type Store interface {
	CreateScheduleEntry(e model.ScheduleEntry) (model.ScheduleEntry, error)
	PendingSchedules(ownerID int, deviceID *int) ([]model.ScheduleEntry, error)
	DueSchedules(ownerID int, now time.Time) ([]model.ScheduleEntry, error)
	UpdateScheduleEntry(id, ownerID int, patch db.SchedulePatch) (model.ScheduleEntry, error)
	UpdateScheduleStatus(id int, status string) error
	RescheduleEntry(id int, next time.Time) error
	DeleteScheduleEntry(id, ownerID int) (model.ScheduleEntry, error)
	DevicesInGroup(ownerID, groupID int) ([]model.Device, error)
	RecordDisplayHistory(h model.DisplayHistory) error
	SaveCurrentDisplay(c model.CurrentDisplay) error
	ClearCurrentDisplay() error
	LoadCurrentDisplay() (*model.CurrentDisplay, error)
}

// Engine runs the sweep and the request-driven display paths. The
// now-showing singleton is owned here: loaded from the durable snapshot at
// startup, set by immediate-display pushes, cleared by the sweep's expiry
// check.
type Engine struct {
	store    Store
	registry *registry.Registry
	pusher   transport.Pusher
	interval time.Duration

	mu      sync.Mutex
	current *model.CurrentDisplay

	now func() time.Time
}

func New(store Store, reg *registry.Registry, pusher transport.Pusher) *Engine {
	return &Engine{
		store:    store,
		registry: reg,
		pusher:   pusher,
		interval: SweepInterval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run restores the now-showing snapshot and sweeps on the fixed interval
// until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	snapshot, err := e.store.LoadCurrentDisplay()
	if err != nil {
		log.Error().Err(err).Msg("failed to restore now-showing snapshot")
	} else if snapshot != nil {
		e.mu.Lock()
		e.current = snapshot
		e.mu.Unlock()
		log.Info().Str("url", snapshot.ContentURL).Time("clear_at", snapshot.ClearAt).Msg("restored now-showing snapshot")
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweep(e.now())
		}
	}
}

// sweep is one pass of the due-schedule scan: fire due entries for every
// owner with at least one connected device, then expire the now-showing
// singleton.
func (e *Engine) sweep(now time.Time) {
	for _, ownerID := range e.registry.OwnerIDs() {
		due, err := e.store.DueSchedules(ownerID, now)
		if err != nil {
			log.Error().Err(err).Int("owner", ownerID).Msg("sweep: due fetch failed")
			continue
		}
		if len(due) == 0 {
			continue
		}

		sessions := e.registry.OwnedBy(ownerID)
		for _, entry := range due {
			e.fire(entry, sessions, now)
		}
	}

	e.expireCurrent(now)
}

// fire pushes one due entry to the owner's live sessions and applies
// repeat bookkeeping.
func (e *Engine) fire(entry model.ScheduleEntry, sessions []registry.ConnectedDevice, now time.Time) {
	msg := contentChangeMessage(entry, now)
	for _, dev := range sessions {
		// fire-and-forget: reachability was decided by registry membership
		_ = e.pusher.Push(dev.SessionID, msg)
	}

	// audit write is secondary: log and swallow
	if err := e.store.RecordDisplayHistory(model.DisplayHistory{
		UserID:      entry.CreatedBy,
		DeviceID:    entry.DeviceID,
		ScheduleID:  &entry.ID,
		ContentURL:  entry.ContentURL,
		ContentType: entry.ContentType,
		Source:      model.HistorySourceSweep,
		DisplayedAt: now,
		Displays:    len(sessions),
	}); err != nil {
		log.Warn().Err(err).Int("schedule_id", entry.ID).Msg("display-history write failed")
	}

	if next, ok := NextOccurrence(entry.Repeat, entry.ScheduledAt); ok {
		if err := e.store.RescheduleEntry(entry.ID, next); err != nil {
			log.Error().Err(err).Int("schedule_id", entry.ID).Msg("repeat advance failed")
		}
	} else {
		if err := e.store.UpdateScheduleStatus(entry.ID, model.ScheduleStatusCompleted); err != nil {
			log.Error().Err(err).Int("schedule_id", entry.ID).Msg("completion update failed")
		}
	}
}

// expireCurrent clears the now-showing singleton once its clear-at passes,
// removing the durable snapshot and broadcasting a clear signal to the
// owner's sessions.
func (e *Engine) expireCurrent(now time.Time) {
	e.mu.Lock()
	current := e.current
	if current == nil || now.Before(current.ClearAt) {
		e.mu.Unlock()
		return
	}
	e.current = nil
	e.mu.Unlock()

	if err := e.store.ClearCurrentDisplay(); err != nil {
		log.Warn().Err(err).Msg("failed to clear now-showing snapshot")
	}
	clearMsg := transport.Message{Event: transport.EventContentClear}
	for _, dev := range e.registry.OwnedBy(current.UserID) {
		_ = e.pusher.Push(dev.SessionID, clearMsg)
	}
}

// ShowRequest is the immediate-display input. Exactly one of DeviceID and
// GroupID may be set; neither means "all of the owner's connected devices".
type ShowRequest struct {
	ContentURL   string
	ContentType  string
	Title        *string
	DurationMs   int64
	Rotation     int
	Mirror       bool
	Muted        bool
	ThumbnailURL *string
	Timezone     string
	DeviceID     *int
	GroupID      *int
}

// ShowNow resolves the targets against the registry, pushes the content
// change to every resolved session and records the push as a completed
// one-shot entry plus a history row. Fails synchronously with
// ErrNoDisplaysConnected when nothing is reachable.
func (e *Engine) ShowNow(ownerID int, req ShowRequest) (int, error) {
	now := e.now()

	var targets []registry.ConnectedDevice
	switch {
	case req.DeviceID != nil:
		for _, dev := range e.registry.OwnedBy(ownerID) {
			if dev.DeviceID == *req.DeviceID {
				targets = append(targets, dev)
			}
		}
	case req.GroupID != nil:
		devices, err := e.store.DevicesInGroup(ownerID, *req.GroupID)
		if err != nil {
			return 0, err
		}
		for _, d := range devices {
			if d.Serial == nil {
				continue
			}
			if dev, ok := e.registry.BySerial(*d.Serial); ok && dev.UserID == ownerID {
				targets = append(targets, dev)
			}
		}
	default:
		targets = e.registry.OwnedBy(ownerID)
	}

	if len(targets) == 0 {
		return 0, ErrNoDisplaysConnected
	}

	entry := model.ScheduleEntry{
		CreatedBy:    ownerID,
		DeviceID:     req.DeviceID,
		GroupID:      req.GroupID,
		ContentURL:   req.ContentURL,
		ContentType:  req.ContentType,
		Title:        req.Title,
		Rotation:     req.Rotation,
		Mirror:       req.Mirror,
		Muted:        req.Muted,
		ThumbnailURL: req.ThumbnailURL,
		ScheduledAt:  now,
		Timezone:     req.Timezone,
		DurationMs:   req.DurationMs,
		Repeat:       model.RepeatOnce,
		Status:       model.ScheduleStatusCompleted,
	}

	msg := contentChangeMessage(entry, now)
	for _, dev := range targets {
		_ = e.pusher.Push(dev.SessionID, msg)
	}

	// immediate-display and scheduled display share one historical ledger;
	// failures here never roll back the push
	if err := e.store.RecordDisplayHistory(model.DisplayHistory{
		UserID:      ownerID,
		DeviceID:    req.DeviceID,
		ContentURL:  req.ContentURL,
		ContentType: req.ContentType,
		Source:      model.HistorySourceImmediate,
		DisplayedAt: now,
		Displays:    len(targets),
	}); err != nil {
		log.Warn().Err(err).Msg("display-history write failed")
	}
	if _, err := e.store.CreateScheduleEntry(entry); err != nil {
		log.Warn().Err(err).Msg("completed one-shot entry write failed")
	}

	e.setCurrent(model.CurrentDisplay{
		UserID:      ownerID,
		ContentURL:  req.ContentURL,
		ContentType: req.ContentType,
		DisplayedAt: now,
		ClearAt:     now.Add(time.Duration(req.DurationMs) * time.Millisecond),
	})

	return len(targets), nil
}

// ShowLayout pushes a multi-zone layout to the owner's connected devices.
// Layouts are transient: no schedule row, history or snapshot is written.
func (e *Engine) ShowLayout(ownerID int, deviceID *int, layout transport.Layout) (int, error) {
	var targets []registry.ConnectedDevice
	if deviceID != nil {
		for _, dev := range e.registry.OwnedBy(ownerID) {
			if dev.DeviceID == *deviceID {
				targets = append(targets, dev)
			}
		}
	} else {
		targets = e.registry.OwnedBy(ownerID)
	}
	if len(targets) == 0 {
		return 0, ErrNoDisplaysConnected
	}

	msg := transport.Message{Event: transport.EventContentLayout, Data: layout}
	for _, dev := range targets {
		_ = e.pusher.Push(dev.SessionID, msg)
	}
	return len(targets), nil
}

func (e *Engine) setCurrent(c model.CurrentDisplay) {
	e.mu.Lock()
	e.current = &c
	e.mu.Unlock()
	if err := e.store.SaveCurrentDisplay(c); err != nil {
		log.Warn().Err(err).Msg("failed to persist now-showing snapshot")
	}
}

// CreateSchedule gates the entry through the conflict resolver and persists
// it pending.
func (e *Engine) CreateSchedule(ownerID int, entry model.ScheduleEntry) (model.ScheduleEntry, error) {
	pending, err := e.store.PendingSchedules(ownerID, entry.DeviceID)
	if err != nil {
		return model.ScheduleEntry{}, err
	}
	if hit := FindConflict(pending, entry.ScheduledAt, entry.DurationMs, entry.DeviceID, 0); hit != nil {
		return model.ScheduleEntry{}, &ConflictError{With: *hit}
	}

	entry.CreatedBy = ownerID
	entry.Status = model.ScheduleStatusPending
	return e.store.CreateScheduleEntry(entry)
}

// UpdateSchedule merges the patch after re-running the conflict check with
// the entry's own window excluded.
func (e *Engine) UpdateSchedule(id, ownerID int, patch db.SchedulePatch) (model.ScheduleEntry, error) {
	pending, err := e.store.PendingSchedules(ownerID, nil)
	if err != nil {
		return model.ScheduleEntry{}, err
	}

	var existing *model.ScheduleEntry
	for i := range pending {
		if pending[i].ID == id {
			existing = &pending[i]
			break
		}
	}

	if existing != nil {
		at := existing.ScheduledAt
		if patch.ScheduledAt != nil {
			at = patch.ScheduledAt.UTC()
		}
		durationMs := existing.DurationMs
		if patch.DurationMs != nil {
			durationMs = *patch.DurationMs
		}
		if hit := FindConflict(pending, at, durationMs, existing.DeviceID, id); hit != nil {
			return model.ScheduleEntry{}, &ConflictError{With: *hit}
		}
	}

	return e.store.UpdateScheduleEntry(id, ownerID, patch)
}

// DeleteSchedule hard-deletes the entry. If the deleted row is what the
// singleton currently shows, the snapshot is cleared and a clear signal
// pushed.
func (e *Engine) DeleteSchedule(id, ownerID int) (model.ScheduleEntry, error) {
	deleted, err := e.store.DeleteScheduleEntry(id, ownerID)
	if err != nil {
		return model.ScheduleEntry{}, err
	}

	e.mu.Lock()
	showing := e.current != nil && e.current.UserID == ownerID && e.current.ContentURL == deleted.ContentURL
	if showing {
		e.current = nil
	}
	e.mu.Unlock()

	if showing {
		if err := e.store.ClearCurrentDisplay(); err != nil {
			log.Warn().Err(err).Msg("failed to clear now-showing snapshot")
		}
		clearMsg := transport.Message{Event: transport.EventContentClear}
		for _, dev := range e.registry.OwnedBy(ownerID) {
			_ = e.pusher.Push(dev.SessionID, clearMsg)
		}
	}
	return deleted, nil
}

// FanOutGroup creates one independent pending row per device in the group.
// Per-device conflict checking is deliberately bypassed here; each row is
// created as-is.
func (e *Engine) FanOutGroup(ownerID, groupID int, entry model.ScheduleEntry) ([]model.ScheduleEntry, error) {
	devices, err := e.store.DevicesInGroup(ownerID, groupID)
	if err != nil {
		return nil, err
	}

	out := make([]model.ScheduleEntry, 0, len(devices))
	for _, d := range devices {
		row := entry
		deviceID := d.ID
		row.CreatedBy = ownerID
		row.DeviceID = &deviceID
		row.GroupID = &groupID
		row.FromGroup = true
		row.Status = model.ScheduleStatusPending
		created, err := e.store.CreateScheduleEntry(row)
		if err != nil {
			log.Error().Err(err).Int("device_id", d.ID).Int("group_id", groupID).Msg("group fan-out row failed")
			continue
		}
		out = append(out, created)
	}
	return out, nil
}

// Current returns a copy of the now-showing singleton, if any.
func (e *Engine) Current() *model.CurrentDisplay {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	c := *e.current
	return &c
}

func contentChangeMessage(entry model.ScheduleEntry, now time.Time) transport.Message {
	return transport.Message{
		Event: transport.EventContentChange,
		Data: transport.ContentChange{
			Type:         entry.ContentType,
			URL:          entry.ContentURL,
			Rotation:     entry.Rotation,
			Mirror:       entry.Mirror,
			DurationMs:   entry.DurationMs,
			DisplayedAt:  now,
			ClearAt:      now.Add(time.Duration(entry.DurationMs) * time.Millisecond),
			ThumbnailURL: entry.ThumbnailURL,
			Muted:        entry.Muted,
		},
	}
}
