// Package daypart switches device content by fixed time-of-day windows
// instead of explicit schedule rows. Four named windows cover the full
// 24-hour clock with no gaps; late night wraps across midnight.
package daypart

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Luminet-Displays/luminet/internal/model"
	"github.com/Luminet-Displays/luminet/internal/registry"
	"github.com/Luminet-Displays/luminet/internal/transport"
)

const (
	WindowMorning   = "morning"    // 06:00 – 12:00
	WindowAfternoon = "afternoon"  // 12:00 – 18:00
	WindowEvening   = "evening"    // 18:00 – 23:00
	WindowLateNight = "late_night" // 23:00 – 06:00, wraps midnight
)

// ApplyInterval is the fixed re-evaluation period; window boundaries also
// trigger an immediate pass.
const ApplyInterval = 10 * time.Minute

// boundaryHours are the wall-clock start hours of the four windows.
var boundaryHours = []int{6, 12, 18, 23}

// Windows lists the window names in clock order.
func Windows() []string {
	return []string{WindowMorning, WindowAfternoon, WindowEvening, WindowLateNight}
}

// Current maps a local wall-clock time to its window. The late-night
// window is matched by hour >= 23 OR hour < 6; the others by
// start <= hour < end.
func Current(nowLocal time.Time) string {
	hour := nowLocal.Hour()
	switch {
	case hour >= 6 && hour < 12:
		return WindowMorning
	case hour >= 12 && hour < 18:
		return WindowAfternoon
	case hour >= 18 && hour < 23:
		return WindowEvening
	default:
		return WindowLateNight
	}
}

// NextBoundary returns the next window-start instant after now, in now's
// location.
func NextBoundary(now time.Time) time.Time {
	for _, h := range boundaryHours {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), h, 0, 0, 0, now.Location())
		if candidate.After(now) {
			return candidate
		}
	}
	// next day's first boundary
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), boundaryHours[0], 0, 0, 0, now.Location())
}

// Store is the configuration slice the engine reads.
type Store interface {
	DaypartDevices() ([]model.Device, error)
	ResolveDaypartContent(deviceID int, window string) (*model.Content, error)
	RecordDaypartHistory(h model.DaypartHistory) error
	RecordDisplayHistory(h model.DisplayHistory) error
}

// Engine applies the current window's content to every daypart-enabled,
// paired, connected device through the same push primitive the dispatch
// engine uses.
type Engine struct {
	store    Store
	registry *registry.Registry
	pusher   transport.Pusher

	now func() time.Time
}

func New(store Store, reg *registry.Registry, pusher transport.Pusher) *Engine {
	return &Engine{
		store:    store,
		registry: reg,
		pusher:   pusher,
		now:      func() time.Time { return time.Now() },
	}
}

// Run applies on the fixed interval and on each window boundary until the
// context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(ApplyInterval)
	defer ticker.Stop()

	boundary := time.NewTimer(time.Until(NextBoundary(e.now())))
	defer boundary.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.apply(e.now())
		case <-boundary.C:
			now := e.now()
			e.apply(now)
			boundary.Reset(time.Until(NextBoundary(now)))
		}
	}
}

// apply resolves and pushes content for every eligible connected device.
// A device with no resolvable content for the active window is skipped with
// a warning, not an error.
func (e *Engine) apply(now time.Time) {
	devices, err := e.store.DaypartDevices()
	if err != nil {
		log.Error().Err(err).Msg("daypart: device fetch failed")
		return
	}

	for _, d := range devices {
		if d.Serial == nil {
			continue
		}
		conn, ok := e.registry.BySerial(*d.Serial)
		if !ok {
			continue
		}

		window := Current(localTime(now, d.Timezone))
		content, err := e.store.ResolveDaypartContent(d.ID, window)
		if err != nil {
			log.Error().Err(err).Int("device_id", d.ID).Str("window", window).Msg("daypart: resolve failed")
			continue
		}
		if content == nil {
			log.Warn().Int("device_id", d.ID).Str("window", window).Msg("daypart: no content configured, skipping")
			continue
		}

		var durationMs int64
		if content.DurationMs != nil {
			durationMs = *content.DurationMs
		}
		_ = e.pusher.Push(conn.SessionID, transport.Message{
			Event: transport.EventContentChange,
			Data: transport.ContentChange{
				Type:         content.Type,
				URL:          content.URL,
				DurationMs:   durationMs,
				DisplayedAt:  now.UTC(),
				ClearAt:      now.UTC().Add(time.Duration(durationMs) * time.Millisecond),
				ThumbnailURL: content.ThumbnailURL,
			},
		})

		if err := e.store.RecordDaypartHistory(model.DaypartHistory{
			DeviceID:  d.ID,
			Window:    window,
			ContentID: content.ID,
			AppliedAt: now.UTC(),
		}); err != nil {
			log.Warn().Err(err).Int("device_id", d.ID).Msg("daypart: history write failed")
		}

		// daypart pushes land in the shared display ledger too
		deviceID := d.ID
		if err := e.store.RecordDisplayHistory(model.DisplayHistory{
			UserID:      d.CreatedBy,
			DeviceID:    &deviceID,
			ContentURL:  content.URL,
			ContentType: content.Type,
			Source:      model.HistorySourceDaypart,
			DisplayedAt: now.UTC(),
			Displays:    1,
		}); err != nil {
			log.Warn().Err(err).Int("device_id", d.ID).Msg("daypart: display-history write failed")
		}
	}
}

// localTime converts to the device's configured timezone, falling back to
// the instant unchanged when the name does not load.
func localTime(now time.Time, timezone string) time.Time {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return now
	}
	return now.In(loc)
}
