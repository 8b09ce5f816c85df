// Package registry tracks which devices are currently reachable over the
// live transport. It is process-local memory only: a restart empties it and
// devices must re-register before they are reachable again.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ConnectedDevice maps a device's stable serial to its current transport
// session.
type ConnectedDevice struct {
	Serial      string
	SessionID   string
	UserID      int
	DeviceID    int
	Name        string
	Timezone    string
	ConnectedAt time.Time
}

// Registry is the single source of truth for "is this device reachable".
// Mutated only by the registration/deregistration handlers; read by the
// dispatch, daypart and live engines.
type Registry struct {
	mu       sync.RWMutex
	bySerial map[string]ConnectedDevice
}

func New() *Registry {
	return &Registry{bySerial: make(map[string]ConnectedDevice)}
}

// Register upserts the live entry for the serial. A re-registration
// supersedes the previous entry; the old transport session is stale from
// that point on.
func (r *Registry) Register(d ConnectedDevice) {
	r.mu.Lock()
	prev, existed := r.bySerial[d.Serial]
	r.bySerial[d.Serial] = d
	r.mu.Unlock()

	if existed {
		log.Info().
			Str("serial", d.Serial).
			Str("old_session", prev.SessionID).
			Str("new_session", d.SessionID).
			Msg("device re-registered, superseding previous session")
	} else {
		log.Info().Str("serial", d.Serial).Str("session", d.SessionID).Msg("device registered")
	}
}

// BySerial returns the live entry for a serial, if any.
func (r *Registry) BySerial(serial string) (ConnectedDevice, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.bySerial[serial]
	return d, ok
}

// RemoveBySession reverse-scans for the entry bound to a transport session
// and removes it. O(n) in connected-device count, which is fine at expected
// fleet sizes. A superseded session no longer matches and is a no-op.
func (r *Registry) RemoveBySession(sessionID string) (ConnectedDevice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for serial, d := range r.bySerial {
		if d.SessionID == sessionID {
			delete(r.bySerial, serial)
			log.Info().Str("serial", serial).Str("session", sessionID).Msg("device deregistered")
			return d, true
		}
	}
	return ConnectedDevice{}, false
}

// OwnedBy returns every connected device belonging to a user.
func (r *Registry) OwnedBy(userID int) []ConnectedDevice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ConnectedDevice
	for _, d := range r.bySerial {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out
}

// OwnerIDs returns the distinct user ids with at least one connected
// device, sorted for deterministic sweep order.
func (r *Registry) OwnerIDs() []int {
	r.mu.RLock()
	seen := make(map[int]struct{})
	for _, d := range r.bySerial {
		seen[d.UserID] = struct{}{}
	}
	r.mu.RUnlock()

	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Len reports the number of connected devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySerial)
}
