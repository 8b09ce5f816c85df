package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luminet-Displays/luminet/internal/db"
	"github.com/Luminet-Displays/luminet/internal/model"
	"github.com/Luminet-Displays/luminet/internal/registry"
	"github.com/Luminet-Displays/luminet/internal/transport"
)

// fakeStore is an in-memory Store covering what the engine touches.
type fakeStore struct {
	entries map[int]*model.ScheduleEntry
	nextID  int

	groups  map[int][]model.Device
	history []model.DisplayHistory
	current *model.CurrentDisplay
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries: make(map[int]*model.ScheduleEntry),
		nextID:  1,
		groups:  make(map[int][]model.Device),
	}
}

func (s *fakeStore) CreateScheduleEntry(e model.ScheduleEntry) (model.ScheduleEntry, error) {
	e.ID = s.nextID
	s.nextID++
	copied := e
	s.entries[e.ID] = &copied
	return e, nil
}

func (s *fakeStore) PendingSchedules(ownerID int, deviceID *int) ([]model.ScheduleEntry, error) {
	var out []model.ScheduleEntry
	for _, e := range s.entries {
		if e.CreatedBy != ownerID || e.Status != model.ScheduleStatusPending {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *fakeStore) DueSchedules(ownerID int, now time.Time) ([]model.ScheduleEntry, error) {
	var out []model.ScheduleEntry
	for _, e := range s.entries {
		if e.CreatedBy == ownerID && e.Status == model.ScheduleStatusPending && !e.ScheduledAt.After(now) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateScheduleEntry(id, ownerID int, patch db.SchedulePatch) (model.ScheduleEntry, error) {
	e := s.entries[id]
	if patch.ScheduledAt != nil {
		e.ScheduledAt = *patch.ScheduledAt
	}
	if patch.DurationMs != nil {
		e.DurationMs = *patch.DurationMs
	}
	return *e, nil
}

func (s *fakeStore) UpdateScheduleStatus(id int, status string) error {
	s.entries[id].Status = status
	return nil
}

func (s *fakeStore) RescheduleEntry(id int, next time.Time) error {
	s.entries[id].ScheduledAt = next
	s.entries[id].Status = model.ScheduleStatusPending
	return nil
}

func (s *fakeStore) DeleteScheduleEntry(id, ownerID int) (model.ScheduleEntry, error) {
	e := *s.entries[id]
	delete(s.entries, id)
	return e, nil
}

func (s *fakeStore) DevicesInGroup(ownerID, groupID int) ([]model.Device, error) {
	return s.groups[groupID], nil
}

func (s *fakeStore) RecordDisplayHistory(h model.DisplayHistory) error {
	s.history = append(s.history, h)
	return nil
}

func (s *fakeStore) SaveCurrentDisplay(c model.CurrentDisplay) error {
	s.current = &c
	return nil
}

func (s *fakeStore) ClearCurrentDisplay() error {
	s.current = nil
	return nil
}

func (s *fakeStore) LoadCurrentDisplay() (*model.CurrentDisplay, error) {
	return s.current, nil
}

// fakePusher records every push keyed by session.
type fakePusher struct {
	pushes map[string][]transport.Message
}

func newFakePusher() *fakePusher {
	return &fakePusher{pushes: make(map[string][]transport.Message)}
}

func (p *fakePusher) Push(sessionID string, msg transport.Message) error {
	p.pushes[sessionID] = append(p.pushes[sessionID], msg)
	return nil
}

func connect(reg *registry.Registry, serial, session string, userID, deviceID int) {
	reg.Register(registry.ConnectedDevice{
		Serial:    serial,
		SessionID: session,
		UserID:    userID,
		DeviceID:  deviceID,
		Timezone:  "UTC",
	})
}

func testEngine(store *fakeStore, reg *registry.Registry, pusher *fakePusher, now time.Time) *Engine {
	e := New(store, reg, pusher)
	e.now = func() time.Time { return now }
	return e
}

func TestSweep_FiresDueEntryAndCompletesOneShot(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := registry.New()
	pusher := newFakePusher()
	engine := testEngine(store, reg, pusher, now)

	connect(reg, "SN-A", "sess-a", 1, 10)

	created, err := engine.CreateSchedule(1, entryAt(0, now.Add(-time.Second), 30_000, nil))
	require.NoError(t, err)

	engine.sweep(now)

	assert.Len(t, pusher.pushes["sess-a"], 1)
	assert.Equal(t, transport.EventContentChange, pusher.pushes["sess-a"][0].Event)
	assert.Equal(t, model.ScheduleStatusCompleted, store.entries[created.ID].Status)

	require.Len(t, store.history, 1)
	assert.Equal(t, model.HistorySourceSweep, store.history[0].Source)
	assert.Equal(t, 1, store.history[0].Displays)
}

func TestSweep_RepeatingEntryAdvancesAndStaysPending(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := registry.New()
	pusher := newFakePusher()
	engine := testEngine(store, reg, pusher, now)

	connect(reg, "SN-A", "sess-a", 1, 10)

	entry := entryAt(0, now.Add(-time.Minute), 30_000, nil)
	entry.Repeat = model.RepeatDaily
	created, err := engine.CreateSchedule(1, entry)
	require.NoError(t, err)

	engine.sweep(now)

	got := store.entries[created.ID]
	assert.Equal(t, model.ScheduleStatusPending, got.Status)
	assert.Equal(t, now.Add(-time.Minute).Add(24*time.Hour), got.ScheduledAt)
}

func TestSweep_SkipsOwnersWithNoConnectedDevices(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := registry.New()
	pusher := newFakePusher()
	engine := testEngine(store, reg, pusher, now)

	// owner 2 has a due entry but no connected device
	_, err := engine.CreateSchedule(2, entryAt(0, now.Add(-time.Second), 30_000, nil))
	require.NoError(t, err)

	connect(reg, "SN-A", "sess-a", 1, 10)

	engine.sweep(now)

	assert.Empty(t, pusher.pushes)
	assert.Empty(t, store.history)
}

func TestSweep_EmptyPassIsIdempotent(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := registry.New()
	pusher := newFakePusher()
	engine := testEngine(store, reg, pusher, now)

	connect(reg, "SN-A", "sess-a", 1, 10)

	engine.sweep(now)
	engine.sweep(now.Add(SweepInterval))

	assert.Empty(t, pusher.pushes)
	assert.Empty(t, store.history)
}

func TestSweep_ExpiresNowShowingSnapshot(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := registry.New()
	pusher := newFakePusher()
	engine := testEngine(store, reg, pusher, now)

	connect(reg, "SN-A", "sess-a", 1, 10)

	_, err := engine.ShowNow(1, ShowRequest{
		ContentURL:  "https://cdn.example.com/now.png",
		ContentType: "image",
		DurationMs:  30_000,
		Timezone:    "UTC",
	})
	require.NoError(t, err)
	require.NotNil(t, engine.Current())
	require.NotNil(t, store.current)

	// before clear-at: untouched
	engine.sweep(now.Add(10 * time.Second))
	assert.NotNil(t, engine.Current())

	// past clear-at: snapshot cleared, clear pushed
	engine.sweep(now.Add(31 * time.Second))
	assert.Nil(t, engine.Current())
	assert.Nil(t, store.current)

	msgs := pusher.pushes["sess-a"]
	require.NotEmpty(t, msgs)
	assert.Equal(t, transport.EventContentClear, msgs[len(msgs)-1].Event)
}

func TestShowNow_NoDisplaysConnectedWritesNothing(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := registry.New()
	pusher := newFakePusher()
	engine := testEngine(store, reg, pusher, now)

	_, err := engine.ShowNow(1, ShowRequest{
		ContentURL:  "https://cdn.example.com/now.png",
		ContentType: "image",
		DurationMs:  30_000,
	})

	assert.ErrorIs(t, err, ErrNoDisplaysConnected)
	assert.Empty(t, store.history)
	assert.Empty(t, store.entries)
	assert.Nil(t, engine.Current())
}

func TestShowNow_TargetsOnlyRequestedDevice(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := registry.New()
	pusher := newFakePusher()
	engine := testEngine(store, reg, pusher, now)

	connect(reg, "SN-A", "sess-a", 1, 10)
	connect(reg, "SN-B", "sess-b", 1, 11)

	deviceID := 10
	displays, err := engine.ShowNow(1, ShowRequest{
		ContentURL:  "https://cdn.example.com/now.png",
		ContentType: "image",
		DurationMs:  30_000,
		DeviceID:    &deviceID,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, displays)
	assert.Len(t, pusher.pushes["sess-a"], 1)
	assert.Empty(t, pusher.pushes["sess-b"])
}

func TestShowNow_RecordsCompletedEntryAndHistory(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := registry.New()
	pusher := newFakePusher()
	engine := testEngine(store, reg, pusher, now)

	connect(reg, "SN-A", "sess-a", 1, 10)

	_, err := engine.ShowNow(1, ShowRequest{
		ContentURL:  "https://cdn.example.com/now.png",
		ContentType: "image",
		DurationMs:  30_000,
	})
	require.NoError(t, err)

	require.Len(t, store.entries, 1)
	for _, e := range store.entries {
		assert.Equal(t, model.ScheduleStatusCompleted, e.Status)
		assert.Equal(t, model.RepeatOnce, e.Repeat)
	}
	require.Len(t, store.history, 1)
	assert.Equal(t, model.HistorySourceImmediate, store.history[0].Source)
}

func TestCreateSchedule_RejectsOverlap(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := registry.New()
	pusher := newFakePusher()
	engine := testEngine(store, reg, pusher, now)

	_, err := engine.CreateSchedule(1, entryAt(0, now, 60_000, nil))
	require.NoError(t, err)

	_, err = engine.CreateSchedule(1, entryAt(0, now.Add(30*time.Second), 60_000, nil))
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestUpdateSchedule_ReCheckExcludesOwnWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := registry.New()
	pusher := newFakePusher()
	engine := testEngine(store, reg, pusher, now)

	created, err := engine.CreateSchedule(1, entryAt(0, now, 60_000, nil))
	require.NoError(t, err)

	// shifting within its own old window is fine
	shifted := now.Add(10 * time.Second)
	_, err = engine.UpdateSchedule(created.ID, 1, db.SchedulePatch{ScheduledAt: &shifted})
	assert.NoError(t, err)
}

func TestUpdateSchedule_RejectsMoveOntoNeighbor(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := registry.New()
	pusher := newFakePusher()
	engine := testEngine(store, reg, pusher, now)

	_, err := engine.CreateSchedule(1, entryAt(0, now, 60_000, nil))
	require.NoError(t, err)
	second, err := engine.CreateSchedule(1, entryAt(0, now.Add(2*time.Minute), 60_000, nil))
	require.NoError(t, err)

	onto := now.Add(30 * time.Second)
	_, err = engine.UpdateSchedule(second.ID, 1, db.SchedulePatch{ScheduledAt: &onto})
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestDeleteSchedule_ClearsMatchingNowShowing(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := registry.New()
	pusher := newFakePusher()
	engine := testEngine(store, reg, pusher, now)

	connect(reg, "SN-A", "sess-a", 1, 10)

	_, err := engine.ShowNow(1, ShowRequest{
		ContentURL:  "https://cdn.example.com/now.png",
		ContentType: "image",
		DurationMs:  60_000,
	})
	require.NoError(t, err)

	var id int
	for _, e := range store.entries {
		id = e.ID
	}
	_, err = engine.DeleteSchedule(id, 1)
	require.NoError(t, err)

	assert.Nil(t, engine.Current())
	msgs := pusher.pushes["sess-a"]
	require.NotEmpty(t, msgs)
	assert.Equal(t, transport.EventContentClear, msgs[len(msgs)-1].Event)
}

func TestShowLayout_PushesToTargetsOnly(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := registry.New()
	pusher := newFakePusher()
	engine := testEngine(store, reg, pusher, now)

	connect(reg, "SN-A", "sess-a", 1, 10)
	connect(reg, "SN-B", "sess-b", 1, 11)

	deviceID := 11
	displays, err := engine.ShowLayout(1, &deviceID, transport.Layout{
		Type: "layout",
		Zones: []transport.Zone{
			{ID: "main", Width: 1920, Height: 1080, Content: transport.ContentChange{Type: "image", URL: "https://cdn.example.com/a.png"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, displays)
	assert.Empty(t, pusher.pushes["sess-a"])
	require.Len(t, pusher.pushes["sess-b"], 1)
	assert.Equal(t, transport.EventContentLayout, pusher.pushes["sess-b"][0].Event)
	// layouts are transient
	assert.Empty(t, store.entries)
	assert.Empty(t, store.history)
}

func TestShowLayout_NoDisplays(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	engine := testEngine(newFakeStore(), registry.New(), newFakePusher(), now)

	_, err := engine.ShowLayout(1, nil, transport.Layout{Type: "layout"})
	assert.ErrorIs(t, err, ErrNoDisplaysConnected)
}

func TestFanOutGroup_OneRowPerDevice(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	reg := registry.New()
	pusher := newFakePusher()
	engine := testEngine(store, reg, pusher, now)

	store.groups[5] = []model.Device{{ID: 10}, {ID: 11}, {ID: 12}}

	entries, err := engine.FanOutGroup(1, 5, entryAt(0, now.Add(time.Hour), 30_000, nil))
	require.NoError(t, err)

	require.Len(t, entries, 3)
	seen := map[int]bool{}
	for _, e := range entries {
		require.NotNil(t, e.DeviceID)
		seen[*e.DeviceID] = true
		assert.True(t, e.FromGroup)
		assert.Equal(t, model.ScheduleStatusPending, e.Status)
		require.NotNil(t, e.GroupID)
		assert.Equal(t, 5, *e.GroupID)
	}
	assert.Len(t, seen, 3)
}
