package dispatch

import (
	"time"

	"github.com/Luminet-Displays/luminet/internal/model"
)

// Fixed calendar offsets for repeat advance. Monthly and yearly are
// deliberately the 30-day / 365-day approximations; they drift against real
// month and year boundaries, and downstream behavior depends on exactly
// these offsets.
var repeatOffsets = map[string]time.Duration{
	model.RepeatDaily:   24 * time.Hour,
	model.RepeatWeekly:  7 * 24 * time.Hour,
	model.RepeatMonthly: 30 * 24 * time.Hour,
	model.RepeatYearly:  365 * 24 * time.Hour,
}

// ValidRepeat reports whether the repeat class is one this engine knows.
func ValidRepeat(repeat string) bool {
	if repeat == model.RepeatOnce {
		return true
	}
	_, ok := repeatOffsets[repeat]
	return ok
}

// NextOccurrence returns the advanced instant for a repeating entry, or
// false for one-shot entries.
func NextOccurrence(repeat string, from time.Time) (time.Time, bool) {
	offset, ok := repeatOffsets[repeat]
	if !ok {
		return time.Time{}, false
	}
	return from.Add(offset), true
}
