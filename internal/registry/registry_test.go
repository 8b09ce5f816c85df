package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	r.Register(ConnectedDevice{Serial: "SN-1", SessionID: "sess-1", UserID: 1, DeviceID: 10})

	d, ok := r.BySerial("SN-1")
	require.True(t, ok)
	assert.Equal(t, "sess-1", d.SessionID)
	assert.Equal(t, 1, r.Len())

	_, ok = r.BySerial("SN-2")
	assert.False(t, ok)
}

func TestReRegisterSupersedesOldSession(t *testing.T) {
	r := New()
	r.Register(ConnectedDevice{Serial: "SN-1", SessionID: "old", UserID: 1, DeviceID: 10})
	r.Register(ConnectedDevice{Serial: "SN-1", SessionID: "new", UserID: 1, DeviceID: 10})

	d, ok := r.BySerial("SN-1")
	require.True(t, ok)
	assert.Equal(t, "new", d.SessionID)
	assert.Equal(t, 1, r.Len())

	// the superseded session no longer maps to anything
	_, removed := r.RemoveBySession("old")
	assert.False(t, removed)
	assert.Equal(t, 1, r.Len())
}

func TestRemoveBySession(t *testing.T) {
	r := New()
	r.Register(ConnectedDevice{Serial: "SN-1", SessionID: "sess-1", UserID: 1, DeviceID: 10})

	d, ok := r.RemoveBySession("sess-1")
	require.True(t, ok)
	assert.Equal(t, "SN-1", d.Serial)
	assert.Equal(t, 0, r.Len())

	_, ok = r.BySerial("SN-1")
	assert.False(t, ok)
}

func TestOwnedByFiltersOtherUsers(t *testing.T) {
	r := New()
	r.Register(ConnectedDevice{Serial: "SN-1", SessionID: "a", UserID: 1, DeviceID: 10})
	r.Register(ConnectedDevice{Serial: "SN-2", SessionID: "b", UserID: 1, DeviceID: 11})
	r.Register(ConnectedDevice{Serial: "SN-3", SessionID: "c", UserID: 2, DeviceID: 12})

	assert.Len(t, r.OwnedBy(1), 2)
	assert.Len(t, r.OwnedBy(2), 1)
	assert.Empty(t, r.OwnedBy(3))
}

func TestOwnerIDsSortedAndDistinct(t *testing.T) {
	r := New()
	r.Register(ConnectedDevice{Serial: "SN-1", SessionID: "a", UserID: 3})
	r.Register(ConnectedDevice{Serial: "SN-2", SessionID: "b", UserID: 1})
	r.Register(ConnectedDevice{Serial: "SN-3", SessionID: "c", UserID: 1})

	assert.Equal(t, []int{1, 3}, r.OwnerIDs())
}

func TestConcurrentRegistration(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			serial := fmt.Sprintf("SN-%d", i)
			r.Register(ConnectedDevice{Serial: serial, SessionID: serial, UserID: i % 5})
			r.BySerial(serial)
			r.OwnedBy(i % 5)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
	assert.Len(t, r.OwnerIDs(), 5)
}
