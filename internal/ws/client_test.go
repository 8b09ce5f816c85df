package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luminet-Displays/luminet/internal/model"
	"github.com/Luminet-Displays/luminet/internal/registry"
	"github.com/Luminet-Displays/luminet/internal/transport"
)

type fakeDeviceStore struct {
	devices map[string]model.Device
}

func (s *fakeDeviceStore) GetDeviceBySerial(serial string) (model.Device, error) {
	d, ok := s.devices[serial]
	if !ok {
		return model.Device{}, errors.New("device not found")
	}
	return d, nil
}

func pairedDevice(id, ownerID int) model.Device {
	return model.Device{ID: id, Name: "lobby", Timezone: "UTC", Paired: true, CreatedBy: ownerID}
}

func testHub(store *fakeDeviceStore) *Hub {
	return NewHub(store, registry.New(), "secret")
}

func addClient(h *Hub, id string, userID int) *Client {
	c := &Client{id: id, hub: h, send: make(chan []byte, 8), userID: userID}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return c
}

func lastReply(t *testing.T, c *Client) transport.Message {
	t.Helper()
	var msg transport.Message
	select {
	case payload := <-c.send:
		require.NoError(t, json.Unmarshal(payload, &msg))
	default:
		t.Fatal("no reply queued")
	}
	return msg
}

func registerPayload(serial string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"serial":%q}`, serial))
}

func TestRegister_UnknownSerialRejected(t *testing.T) {
	hub := testHub(&fakeDeviceStore{devices: map[string]model.Device{}})
	c := addClient(hub, "sess-1", 0)

	c.handleRegister(registerPayload("SN-GHOST"))

	assert.Equal(t, "error", lastReply(t, c).Event)
	assert.Equal(t, 0, hub.registry.Len())
	assert.Nil(t, c.device)
}

func TestRegister_UnpairedSerialRejected(t *testing.T) {
	hub := testHub(&fakeDeviceStore{devices: map[string]model.Device{
		"SN-1": {ID: 10, Paired: false, CreatedBy: 7},
	}})
	c := addClient(hub, "sess-1", 0)

	c.handleRegister(registerPayload("SN-1"))

	assert.Equal(t, "error", lastReply(t, c).Event)
	assert.Equal(t, 0, hub.registry.Len())
	assert.Nil(t, c.device)
}

func TestRegister_PairedSerialCreatesOneEntry(t *testing.T) {
	hub := testHub(&fakeDeviceStore{devices: map[string]model.Device{
		"SN-1": pairedDevice(10, 7),
	}})
	c := addClient(hub, "sess-1", 0)

	c.handleRegister(registerPayload("SN-1"))

	assert.Equal(t, "registered", lastReply(t, c).Event)
	require.Equal(t, 1, hub.registry.Len())
	entry, ok := hub.registry.BySerial("SN-1")
	require.True(t, ok)
	assert.Equal(t, "sess-1", entry.SessionID)
	assert.Equal(t, 10, entry.DeviceID)
	assert.Equal(t, 7, entry.UserID)
}

func TestRegister_SecondSerialOnSameConnectionRejected(t *testing.T) {
	hub := testHub(&fakeDeviceStore{devices: map[string]model.Device{
		"SN-1": pairedDevice(10, 7),
		"SN-2": pairedDevice(11, 7),
	}})
	c := addClient(hub, "sess-1", 0)

	c.handleRegister(registerPayload("SN-1"))
	require.Equal(t, "registered", lastReply(t, c).Event)

	c.handleRegister(registerPayload("SN-2"))
	assert.Equal(t, "error", lastReply(t, c).Event)

	// the first binding stays, the second never lands
	assert.Equal(t, 1, hub.registry.Len())
	_, ok := hub.registry.BySerial("SN-2")
	assert.False(t, ok)

	// disconnect leaves nothing behind
	hub.remove(c)
	assert.Equal(t, 0, hub.registry.Len())
}

func TestSessionUser_OnlyDashboardConnectionsMatch(t *testing.T) {
	hub := testHub(&fakeDeviceStore{devices: map[string]model.Device{
		"SN-1": pairedDevice(10, 7),
	}})
	addClient(hub, "dash", 5)
	addClient(hub, "anon", 0)
	device := addClient(hub, "tv", 0)
	device.handleRegister(registerPayload("SN-1"))

	uid, ok := hub.SessionUser("dash")
	assert.True(t, ok)
	assert.Equal(t, 5, uid)

	_, ok = hub.SessionUser("anon")
	assert.False(t, ok)

	// a registered device carries its owner's id but is not a dashboard
	_, ok = hub.SessionUser("tv")
	assert.False(t, ok)

	_, ok = hub.SessionUser("nope")
	assert.False(t, ok)
}
