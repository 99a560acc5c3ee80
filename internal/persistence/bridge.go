// FilePath: internal/persistence/bridge.go

// Package persistence decides which in-memory device state updates are worth
// a durable write. Devices can tick sub-second; the bridge samples them down
// to one write per device per save interval and performs the write off the
// gateway's event loop, fire-and-forget.
package persistence

import (
	"context"
	"time"

	"github.com/FajarFE/Waterm-sub001/internal/errors"
	"github.com/FajarFE/Waterm-sub001/internal/models"
	"github.com/FajarFE/Waterm-sub001/internal/registry"
	"github.com/FajarFE/Waterm-sub001/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

const writeTimeout = 10 * time.Second

// Bridge applies the sampling policy and writes accepted samples through the
// sample repository. MaybePersist must only be called from the gateway event
// loop; the write itself runs on its own goroutine so a slow or failing store
// never backpressures ingestion.
type Bridge struct {
	registry registry.Registry
	samples  repository.SampleRepository
	interval time.Duration
	now      func() time.Time

	lastSaved map[string]time.Time
}

func NewBridge(reg registry.Registry, samples repository.SampleRepository, interval time.Duration) *Bridge {
	return &Bridge{
		registry:  reg,
		samples:   samples,
		interval:  interval,
		now:       time.Now,
		lastSaved: make(map[string]time.Time),
	}
}

// MaybePersist schedules a durable write for the reading if the save interval
// for this device has elapsed. Returns whether a write was scheduled. The
// sampling slot is consumed at decision time, before resolution, so an
// unknown device still waits a full interval before the next attempt.
func (b *Bridge) MaybePersist(userID, deviceCode string, state models.DeviceState) bool {
	now := b.now()
	if last, ok := b.lastSaved[deviceCode]; ok && now.Sub(last) < b.interval {
		return false
	}
	b.lastSaved[deviceCode] = now

	go b.persist(deviceCode, state)
	return true
}

func (b *Bridge) persist(deviceCode string, state models.DeviceState) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	monitoring, err := b.registry.Resolve(ctx, deviceCode)
	if err != nil {
		if errors.IsNotFound(err) {
			nuts.L.Warnf("[Bridge] Unknown device code %s, dropping sample", deviceCode)
		} else {
			nuts.L.Errorf("[Bridge] Failed to resolve device %s: %v", deviceCode, err)
		}
		return
	}

	sample := &models.Sample{
		MonitoringID:     monitoring.ID,
		TemperatureWater: state.DataSensor.TemperatureWater.Float(),
		PhWater:          state.DataSensor.PhWater.Float(),
		TurbidityWater:   state.DataSensor.TurbidityWater.Float(),
		CreatedAt:        state.Date,
	}

	if err := b.samples.InsertSample(ctx, sample); err != nil {
		nuts.L.Errorf("[Bridge] Failed to persist sample for device %s: %v", deviceCode, err)
		return
	}

	nuts.L.Infof("[Bridge] Persisted sample for monitoring %s (device %s)", monitoring.ID, deviceCode)
}
