package gateway

import (
	"fmt"
	"testing"
	"time"

	"github.com/FajarFE/Waterm-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStoreApplyAndGet(t *testing.T) {
	store := NewStateStore(0)
	at := time.Now()

	state := store.Apply("u1", "ABC123", models.SensorData{PhWater: 7.1}, at)
	assert.Equal(t, at, state.Date)

	update, ok := store.Get("ABC123")
	require.True(t, ok)
	assert.Equal(t, "u1", update.UserID)
	assert.Equal(t, "ABC123", update.DeviceCode)
	assert.Equal(t, 7.1, update.Data.DataSensor.PhWater.Float())

	_, ok = store.Get("unknown")
	assert.False(t, ok)
}

func TestStateStoreLastWriteWins(t *testing.T) {
	store := NewStateStore(0)

	store.Apply("u1", "ABC123", models.SensorData{PhWater: 7.0}, time.Now())
	store.Apply("u1", "ABC123", models.SensorData{PhWater: 7.5}, time.Now())

	update, ok := store.Get("ABC123")
	require.True(t, ok)
	assert.Equal(t, 7.5, update.Data.DataSensor.PhWater.Float())
	assert.Equal(t, 1, store.Len())
}

func TestStateStoreLaterOwnerClaimWins(t *testing.T) {
	store := NewStateStore(0)

	store.Apply("u1", "ABC123", models.SensorData{PhWater: 7.0}, time.Now())
	store.Apply("u2", "ABC123", models.SensorData{PhWater: 6.5}, time.Now())

	update, ok := store.Get("ABC123")
	require.True(t, ok)
	assert.Equal(t, "u2", update.UserID)
	assert.Equal(t, 1, store.Len())
}

func TestStateStoreSnapshot(t *testing.T) {
	store := NewStateStore(0)
	store.Apply("u1", "dev-a", models.SensorData{}, time.Now())
	store.Apply("u1", "dev-b", models.SensorData{}, time.Now())

	snapshot := store.Snapshot()
	assert.Len(t, snapshot, 2)

	codes := map[string]bool{}
	for _, update := range snapshot {
		codes[update.DeviceCode] = true
	}
	assert.True(t, codes["dev-a"])
	assert.True(t, codes["dev-b"])
}

func TestStateStoreEvictsOldestWhenBounded(t *testing.T) {
	store := NewStateStore(2)
	base := time.Now()

	store.Apply("u1", "dev-a", models.SensorData{}, base)
	store.Apply("u1", "dev-b", models.SensorData{}, base.Add(time.Second))
	store.Apply("u1", "dev-c", models.SensorData{}, base.Add(2*time.Second))

	assert.Equal(t, 2, store.Len())
	_, ok := store.Get("dev-a")
	assert.False(t, ok, "least-recently-updated entry should be evicted")
	_, ok = store.Get("dev-c")
	assert.True(t, ok)
}

func TestStateStoreUnboundedNeverEvicts(t *testing.T) {
	store := NewStateStore(0)
	for i := 0; i < 500; i++ {
		store.Apply("u1", fmt.Sprintf("dev-%03d", i), models.SensorData{}, time.Now())
	}
	assert.Equal(t, 500, store.Len())
}
