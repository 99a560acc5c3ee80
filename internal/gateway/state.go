// FilePath: internal/gateway/state.go
package gateway

import (
	"time"

	"github.com/FajarFE/Waterm-sub001/internal/models"
)

// StateStore holds the last-known reading per device. It is owned and mutated
// exclusively by the gateway event loop, so it carries no locking. Entries are
// keyed by device code; the owning user id is part of the stored value, so a
// later reading that resolves to a different owner simply overwrites the
// earlier claim (last-write-wins).
//
// maxEntries bounds the map; zero means entries live for the process lifetime.
// When the bound is hit, the least-recently-updated entry is evicted.
type StateStore struct {
	maxEntries int
	entries    map[string]*stateEntry
}

type stateEntry struct {
	userID string
	state  models.DeviceState
}

func NewStateStore(maxEntries int) *StateStore {
	return &StateStore{
		maxEntries: maxEntries,
		entries:    make(map[string]*stateEntry),
	}
}

// Apply overwrites the entry for deviceCode with the given reading and
// timestamp, creating it on first sight, and returns the resulting state.
func (s *StateStore) Apply(userID, deviceCode string, data models.SensorData, at time.Time) models.DeviceState {
	entry, ok := s.entries[deviceCode]
	if !ok {
		if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
			s.evictOldest()
		}
		entry = &stateEntry{}
		s.entries[deviceCode] = entry
	}
	entry.userID = userID
	entry.state = models.DeviceState{DataSensor: data, Date: at}
	return entry.state
}

// Get returns the current state for a device code
func (s *StateStore) Get(deviceCode string) (models.DeviceUpdate, bool) {
	entry, ok := s.entries[deviceCode]
	if !ok {
		return models.DeviceUpdate{}, false
	}
	return models.DeviceUpdate{
		UserID:     entry.userID,
		DeviceCode: deviceCode,
		Data:       entry.state,
	}, true
}

// Snapshot returns one update per known device, for late-joining clients
func (s *StateStore) Snapshot() []models.DeviceUpdate {
	updates := make([]models.DeviceUpdate, 0, len(s.entries))
	for code, entry := range s.entries {
		updates = append(updates, models.DeviceUpdate{
			UserID:     entry.userID,
			DeviceCode: code,
			Data:       entry.state,
		})
	}
	return updates
}

// Len returns the number of tracked devices
func (s *StateStore) Len() int {
	return len(s.entries)
}

func (s *StateStore) evictOldest() {
	var oldestCode string
	var oldestAt time.Time
	first := true
	for code, entry := range s.entries {
		if first || entry.state.Date.Before(oldestAt) {
			oldestCode = code
			oldestAt = entry.state.Date
			first = false
		}
	}
	if !first {
		delete(s.entries, oldestCode)
	}
}
