package dispatch

import (
	"fmt"
	"time"

	"github.com/Luminet-Displays/luminet/internal/model"
)

// ConflictError identifies the competing pending window so callers can
// render direct feedback.
type ConflictError struct {
	With model.ScheduleEntry
}

func (e *ConflictError) Error() string {
	start, end := e.With.Window()
	scope := "owner"
	if e.With.DeviceID != nil {
		scope = fmt.Sprintf("device %d", *e.With.DeviceID)
	}
	return fmt.Sprintf("time window overlaps pending schedule %d (%s, %s – %s)",
		e.With.ID, scope, start.Format(time.RFC3339), end.Format(time.RFC3339))
}

// FindConflict checks the candidate window [at, at+duration) against every
// other pending entry in the given set. Windows are half-open: back-to-back
// entries where one ends exactly when the next begins do not conflict.
//
// When deviceID is set the check is scoped to that device's entries; when
// nil every pending entry of the owner competes. excludeID lets an
// update-in-place ignore its own prior window.
//
// The returned entry is the first conflicting one, or nil.
func FindConflict(pending []model.ScheduleEntry, at time.Time, durationMs int64, deviceID *int, excludeID int) *model.ScheduleEntry {
	candStart := at
	candEnd := at.Add(time.Duration(durationMs) * time.Millisecond)

	for i := range pending {
		e := pending[i]
		if e.ID == excludeID || e.Status != model.ScheduleStatusPending {
			continue
		}
		if deviceID != nil {
			if e.DeviceID == nil || *e.DeviceID != *deviceID {
				continue
			}
		}
		start, end := e.Window()
		if candStart.Before(end) && start.Before(candEnd) {
			return &pending[i]
		}
	}
	return nil
}
