package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Luminet-Displays/luminet/internal/model"
)

func TestValidRepeat(t *testing.T) {
	for _, repeat := range []string{"once", "daily", "weekly", "monthly", "yearly"} {
		assert.True(t, ValidRepeat(repeat), repeat)
	}
	assert.False(t, ValidRepeat("hourly"))
	assert.False(t, ValidRepeat(""))
}

func TestNextOccurrence_FixedOffsets(t *testing.T) {
	from := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)

	cases := map[string]time.Duration{
		model.RepeatDaily:   24 * time.Hour,
		model.RepeatWeekly:  7 * 24 * time.Hour,
		model.RepeatMonthly: 30 * 24 * time.Hour,
		model.RepeatYearly:  365 * 24 * time.Hour,
	}
	for repeat, offset := range cases {
		next, ok := NextOccurrence(repeat, from)
		assert.True(t, ok, repeat)
		assert.Equal(t, from.Add(offset), next, repeat)
	}
}

func TestNextOccurrence_OnceNeverAdvances(t *testing.T) {
	_, ok := NextOccurrence(model.RepeatOnce, time.Now())
	assert.False(t, ok)
}
