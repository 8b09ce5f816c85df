package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luminet-Displays/luminet/internal/model"
	"github.com/Luminet-Displays/luminet/internal/registry"
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

func statusSetup(devices map[string]model.Device) (*statusRegistrar, *registry.Registry) {
	reg := registry.New()
	return &statusRegistrar{store: &fakeDeviceStore{devices: devices}, reg: reg}, reg
}

func TestStatusOnline_RegistersSerialAsSession(t *testing.T) {
	r, reg := statusSetup(map[string]model.Device{
		"SN-1": {ID: 10, Name: "lobby", Timezone: "UTC", Paired: true, CreatedBy: 7},
	})

	r.handle("tv/SN-1/status", []byte(`{"status":"online"}`))

	require.Equal(t, 1, reg.Len())
	entry, ok := reg.BySerial("SN-1")
	require.True(t, ok)
	assert.Equal(t, "SN-1", entry.SessionID)
	assert.Equal(t, 10, entry.DeviceID)
	assert.Equal(t, 7, entry.UserID)
	assert.Equal(t, commandTopic(entry.SessionID), "tv/SN-1/commands")
}

func TestStatusOnline_UnknownOrUnpairedRejected(t *testing.T) {
	r, reg := statusSetup(map[string]model.Device{
		"SN-2": {ID: 11, Paired: false, CreatedBy: 7},
	})

	r.handle("tv/SN-GHOST/status", []byte(`{"status":"online"}`))
	r.handle("tv/SN-2/status", []byte(`{"status":"online"}`))

	assert.Equal(t, 0, reg.Len())
}

func TestStatusOffline_RemovesEntry(t *testing.T) {
	r, reg := statusSetup(map[string]model.Device{
		"SN-1": {ID: 10, Paired: true, CreatedBy: 7},
	})

	r.handle("tv/SN-1/status", []byte(`{"status":"online"}`))
	require.Equal(t, 1, reg.Len())

	r.handle("tv/SN-1/status", []byte(`{"status":"offline"}`))
	assert.Equal(t, 0, reg.Len())
}

func TestStatusHandle_IgnoresMalformedTopicsAndPayloads(t *testing.T) {
	r, reg := statusSetup(map[string]model.Device{
		"SN-1": {ID: 10, Paired: true, CreatedBy: 7},
	})

	r.handle("tv/status", []byte(`{"status":"online"}`))
	r.handle("tv//status", []byte(`{"status":"online"}`))
	r.handle("tv/SN-1/status", []byte(`not json`))

	assert.Equal(t, 0, reg.Len())
}

func TestStatusOnline_OverridesNameAndTimezone(t *testing.T) {
	r, reg := statusSetup(map[string]model.Device{
		"SN-1": {ID: 10, Name: "lobby", Timezone: "UTC", Paired: true, CreatedBy: 7},
	})

	r.handle("tv/SN-1/status", []byte(`{"status":"online","name":"atrium","timezone":"America/New_York"}`))

	entry, ok := reg.BySerial("SN-1")
	require.True(t, ok)
	assert.Equal(t, "atrium", entry.Name)
	assert.Equal(t, "America/New_York", entry.Timezone)
}
