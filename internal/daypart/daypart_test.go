package daypart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luminet-Displays/luminet/internal/model"
	"github.com/Luminet-Displays/luminet/internal/registry"
	"github.com/Luminet-Displays/luminet/internal/transport"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestCurrent_WindowMapping(t *testing.T) {
	cases := []struct {
		hour, minute int
		want         string
	}{
		{6, 0, WindowMorning},
		{11, 59, WindowMorning},
		{12, 0, WindowAfternoon},
		{17, 59, WindowAfternoon},
		{18, 0, WindowEvening},
		{22, 59, WindowEvening},
		{23, 0, WindowLateNight},
		{0, 0, WindowLateNight},
		{5, 59, WindowLateNight},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Current(at(c.hour, c.minute)), "%02d:%02d", c.hour, c.minute)
	}
}

func TestNextBoundary(t *testing.T) {
	// mid-morning rolls to noon
	assert.Equal(t, at(12, 0), NextBoundary(at(9, 30)))
	// a boundary instant itself rolls to the next one
	assert.Equal(t, at(12, 0), NextBoundary(at(6, 0)))
	// late night rolls past midnight to tomorrow 06:00
	next := NextBoundary(at(23, 30))
	assert.Equal(t, time.Date(2025, 3, 11, 6, 0, 0, 0, time.UTC), next)
}

func TestWindowsCoverTheClock(t *testing.T) {
	assert.Equal(t, []string{WindowMorning, WindowAfternoon, WindowEvening, WindowLateNight}, Windows())
	for hour := 0; hour < 24; hour++ {
		assert.NotEmpty(t, Current(at(hour, 0)))
	}
}

type fakeStore struct {
	devices []model.Device
	content map[int]map[string]*model.Content
	history []model.DaypartHistory
	ledger  []model.DisplayHistory
}

func (s *fakeStore) DaypartDevices() ([]model.Device, error) {
	return s.devices, nil
}

func (s *fakeStore) ResolveDaypartContent(deviceID int, window string) (*model.Content, error) {
	if byWindow, ok := s.content[deviceID]; ok {
		return byWindow[window], nil
	}
	return nil, nil
}

func (s *fakeStore) RecordDaypartHistory(h model.DaypartHistory) error {
	s.history = append(s.history, h)
	return nil
}

func (s *fakeStore) RecordDisplayHistory(h model.DisplayHistory) error {
	s.ledger = append(s.ledger, h)
	return nil
}

type fakePusher struct {
	pushes map[string][]transport.Message
}

func (p *fakePusher) Push(sessionID string, msg transport.Message) error {
	if p.pushes == nil {
		p.pushes = make(map[string][]transport.Message)
	}
	p.pushes[sessionID] = append(p.pushes[sessionID], msg)
	return nil
}

func TestApply_PushesWindowContentToConnectedDevices(t *testing.T) {
	serial := "SN-1"
	store := &fakeStore{
		devices: []model.Device{
			{ID: 10, Serial: &serial, Timezone: "UTC", Paired: true, DaypartEnabled: true},
		},
		content: map[int]map[string]*model.Content{
			10: {WindowMorning: {ID: 7, Type: "image", URL: "https://cdn.example.com/morning.png"}},
		},
	}
	reg := registry.New()
	reg.Register(registry.ConnectedDevice{Serial: serial, SessionID: "sess-1", UserID: 1, DeviceID: 10})
	pusher := &fakePusher{}

	engine := New(store, reg, pusher)
	engine.apply(at(9, 0))

	require.Len(t, pusher.pushes["sess-1"], 1)
	msg := pusher.pushes["sess-1"][0]
	assert.Equal(t, transport.EventContentChange, msg.Event)

	change, ok := msg.Data.(transport.ContentChange)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/morning.png", change.URL)

	require.Len(t, store.history, 1)
	assert.Equal(t, WindowMorning, store.history[0].Window)
	assert.Equal(t, 7, store.history[0].ContentID)

	require.Len(t, store.ledger, 1)
	assert.Equal(t, model.HistorySourceDaypart, store.ledger[0].Source)
}

func TestApply_SkipsDisconnectedAndUnconfigured(t *testing.T) {
	connected := "SN-1"
	offline := "SN-2"
	store := &fakeStore{
		devices: []model.Device{
			// connected but nothing configured for the window
			{ID: 10, Serial: &connected, Timezone: "UTC", Paired: true, DaypartEnabled: true},
			// configured but not connected
			{ID: 11, Serial: &offline, Timezone: "UTC", Paired: true, DaypartEnabled: true},
			// no serial at all
			{ID: 12, Timezone: "UTC", Paired: false, DaypartEnabled: true},
		},
		content: map[int]map[string]*model.Content{
			11: {WindowMorning: {ID: 7, Type: "image", URL: "https://cdn.example.com/morning.png"}},
		},
	}
	reg := registry.New()
	reg.Register(registry.ConnectedDevice{Serial: connected, SessionID: "sess-1", UserID: 1, DeviceID: 10})
	pusher := &fakePusher{}

	engine := New(store, reg, pusher)
	engine.apply(at(9, 0))

	assert.Empty(t, pusher.pushes)
	assert.Empty(t, store.history)
}

func TestApply_UsesDeviceLocalTime(t *testing.T) {
	serial := "SN-1"
	store := &fakeStore{
		devices: []model.Device{
			{ID: 10, Serial: &serial, Timezone: "America/New_York", Paired: true, DaypartEnabled: true},
		},
		content: map[int]map[string]*model.Content{
			10: {
				WindowMorning:   {ID: 1, Type: "image", URL: "https://cdn.example.com/morning.png"},
				WindowLateNight: {ID: 2, Type: "image", URL: "https://cdn.example.com/night.png"},
			},
		},
	}
	reg := registry.New()
	reg.Register(registry.ConnectedDevice{Serial: serial, SessionID: "sess-1", UserID: 1, DeviceID: 10})
	pusher := &fakePusher{}

	engine := New(store, reg, pusher)
	// 08:00 UTC is 03:00/04:00 in New York: late night there, morning in UTC
	engine.apply(at(8, 0))

	require.Len(t, store.history, 1)
	assert.Equal(t, WindowLateNight, store.history[0].Window)
}
