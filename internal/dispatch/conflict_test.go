package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Luminet-Displays/luminet/internal/model"
)

func entryAt(id int, at time.Time, durationMs int64, deviceID *int) model.ScheduleEntry {
	return model.ScheduleEntry{
		ID:          id,
		ContentURL:  "https://cdn.example.com/a.png",
		ContentType: "image",
		ScheduledAt: at,
		DurationMs:  durationMs,
		Repeat:      model.RepeatOnce,
		Status:      model.ScheduleStatusPending,
		DeviceID:    deviceID,
	}
}

func TestFindConflict_BackToBackWindowsDoNotOverlap(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	pending := []model.ScheduleEntry{entryAt(1, base, 30_000, nil)}

	// second entry starts exactly where the first ends
	hit := FindConflict(pending, base.Add(30*time.Second), 30_000, nil, 0)
	assert.Nil(t, hit)
}

func TestFindConflict_OneExtraSecondOverlaps(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	pending := []model.ScheduleEntry{entryAt(1, base, 31_000, nil)}

	hit := FindConflict(pending, base.Add(30*time.Second), 30_000, nil, 0)
	if assert.NotNil(t, hit) {
		assert.Equal(t, 1, hit.ID)
	}
}

func TestFindConflict_NewEntryStartsBeforeExisting(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	pending := []model.ScheduleEntry{entryAt(7, base.Add(10*time.Second), 60_000, nil)}

	hit := FindConflict(pending, base, 30_000, nil, 0)
	assert.NotNil(t, hit)
}

func TestFindConflict_DisjointDevicesNeverConflict(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	devA, devB := 1, 2
	pending := []model.ScheduleEntry{entryAt(1, base, 60_000, &devA)}

	hit := FindConflict(pending, base, 60_000, &devB, 0)
	assert.Nil(t, hit)
}

func TestFindConflict_AllDevicesEntryConflictsWithScoped(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	devA := 1
	pending := []model.ScheduleEntry{entryAt(1, base, 60_000, &devA)}

	// an unscoped entry targets every device, overlap applies
	hit := FindConflict(pending, base, 60_000, nil, 0)
	assert.NotNil(t, hit)
}

func TestFindConflict_ExcludesOwnID(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	pending := []model.ScheduleEntry{entryAt(5, base, 60_000, nil)}

	// re-checking entry 5's own window against itself must not trip
	hit := FindConflict(pending, base, 60_000, nil, 5)
	assert.Nil(t, hit)
}

func TestFindConflict_IgnoresNonPending(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	done := entryAt(3, base, 60_000, nil)
	done.Status = model.ScheduleStatusCompleted
	pending := []model.ScheduleEntry{done}

	hit := FindConflict(pending, base, 60_000, nil, 0)
	assert.Nil(t, hit)
}

func TestConflictError_NamesTheBlockingEntry(t *testing.T) {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	err := &ConflictError{With: entryAt(42, base, 30_000, nil)}
	assert.Contains(t, err.Error(), "42")
}
