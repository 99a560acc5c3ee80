package gateway

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/FajarFE/Waterm-sub001/internal/config"
	"github.com/FajarFE/Waterm-sub001/internal/database"
	apierrors "github.com/FajarFE/Waterm-sub001/internal/errors"
	"github.com/FajarFE/Waterm-sub001/internal/models"
	"github.com/FajarFE/Waterm-sub001/internal/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegistry resolves a fixed set of device codes
type fakeRegistry struct {
	known map[string]*models.Monitoring
}

func (f *fakeRegistry) Resolve(_ context.Context, deviceCode string) (*models.Monitoring, error) {
	if monitoring, ok := f.known[deviceCode]; ok {
		return monitoring, nil
	}
	return nil, apierrors.NewNotFoundError("monitoring not found", nil)
}

// fakeSampleRepo records inserted samples
type fakeSampleRepo struct {
	mu       sync.Mutex
	inserted []*models.Sample
}

func (f *fakeSampleRepo) InsertSample(_ context.Context, sample *models.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, sample)
	return nil
}

func (f *fakeSampleRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

func (f *fakeSampleRepo) ListByMonitoring(context.Context, string, time.Time, time.Time, int) ([]*models.Sample, error) {
	return nil, nil
}
func (f *fakeSampleRepo) GetLatestByMonitoring(context.Context, string) (*models.Sample, error) {
	return nil, apierrors.NewNotFoundError("no samples", nil)
}
func (f *fakeSampleRepo) DeleteOldSamples(context.Context, time.Time) error     { return nil }
func (f *fakeSampleRepo) DeleteByMonitoringID(context.Context, string) error    { return nil }
func (f *fakeSampleRepo) BeginTx(context.Context) (database.Transaction, error) { return nil, nil }

func testConfig() config.GatewayConfig {
	return config.GatewayConfig{
		SaveInterval:   time.Minute,
		BroadcastScope: config.BroadcastScopeGlobal,
		SendBuffer:     32,
	}
}

func startGateway(t *testing.T, cfg config.GatewayConfig, bridge *persistence.Bridge) (*Gateway, *StateStore) {
	t.Helper()
	states := NewStateStore(cfg.MaxDeviceStates)
	gw := New(cfg, states, bridge, nil, "http://localhost:3000")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go gw.Run(ctx)
	return gw, states
}

func newFakeClient(role Role, userID string) *Client {
	return &Client{
		send:   make(chan []byte, 32),
		role:   role,
		userID: userID,
	}
}

func readingFrame(t *testing.T, userID, deviceCode string, data map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"userId":     userID,
		"deviceCode": deviceCode,
		"dataSensor": data,
	})
	require.NoError(t, err)
	frame, err := json.Marshal(models.Envelope{Event: models.EventDeviceReading, Payload: payload})
	require.NoError(t, err)
	return frame
}

func recvFrame(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case frame := <-c.send:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast frame")
		return nil
	}
}

func decodeUpdate(t *testing.T, frame []byte) models.DeviceUpdate {
	t.Helper()
	var envelope models.Envelope
	require.NoError(t, json.Unmarshal(frame, &envelope))
	require.Equal(t, models.EventDeviceUpdate, envelope.Event)

	var update models.DeviceUpdate
	require.NoError(t, json.Unmarshal(envelope.Payload, &update))
	return update
}

func TestReadingAppliedCoercedAndBroadcast(t *testing.T) {
	gw, states := startGateway(t, testConfig(), nil)

	device := newFakeClient(RoleDevice, "")
	dashboard := newFakeClient(RoleDashboard, "u1")
	gw.register <- device
	gw.register <- dashboard

	before := time.Now()
	gw.inbound <- inboundMessage{client: device, data: readingFrame(t, "u1", "ABC123", map[string]interface{}{
		"temperatureWater": "25.3",
		"phWater":          7.1,
		"turbidityWater":   1.2,
	})}

	update := decodeUpdate(t, recvFrame(t, dashboard))
	assert.Equal(t, "u1", update.UserID)
	assert.Equal(t, "ABC123", update.DeviceCode)
	assert.Equal(t, 25.3, update.Data.DataSensor.TemperatureWater.Float())
	assert.Equal(t, 7.1, update.Data.DataSensor.PhWater.Float())
	assert.Equal(t, 1.2, update.Data.DataSensor.TurbidityWater.Float())
	assert.False(t, update.Data.Date.Before(before.Truncate(time.Second)))

	stored, ok := states.Get("ABC123")
	require.True(t, ok)
	assert.Equal(t, 25.3, stored.Data.DataSensor.TemperatureWater.Float())
}

func TestPerDeviceOrderingAndLastWriteWins(t *testing.T) {
	gw, states := startGateway(t, testConfig(), nil)

	device := newFakeClient(RoleDevice, "")
	dashboard := newFakeClient(RoleDashboard, "u1")
	gw.register <- device
	gw.register <- dashboard

	gw.inbound <- inboundMessage{client: device, data: readingFrame(t, "u1", "ABC123", map[string]interface{}{
		"temperatureWater": 20.0, "phWater": 7.0, "turbidityWater": 1.0,
	})}
	gw.inbound <- inboundMessage{client: device, data: readingFrame(t, "u1", "ABC123", map[string]interface{}{
		"temperatureWater": 21.0, "phWater": 7.2, "turbidityWater": 1.1,
	})}

	first := decodeUpdate(t, recvFrame(t, dashboard))
	second := decodeUpdate(t, recvFrame(t, dashboard))
	assert.Equal(t, 20.0, first.Data.DataSensor.TemperatureWater.Float())
	assert.Equal(t, 21.0, second.Data.DataSensor.TemperatureWater.Float())

	stored, ok := states.Get("ABC123")
	require.True(t, ok)
	assert.Equal(t, 21.0, stored.Data.DataSensor.TemperatureWater.Float())
	assert.Equal(t, 1, states.Len())

	// No further broadcasts beyond the two readings
	select {
	case frame := <-dashboard.send:
		t.Fatalf("unexpected extra broadcast: %s", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMalformedReadingsDroppedSilently(t *testing.T) {
	gw, states := startGateway(t, testConfig(), nil)

	device := newFakeClient(RoleDevice, "")
	dashboard := newFakeClient(RoleDashboard, "u1")
	gw.register <- device
	gw.register <- dashboard

	// Missing deviceCode, missing userId, missing sensor envelope, junk bytes
	gw.inbound <- inboundMessage{client: device, data: readingFrame(t, "u1", "", map[string]interface{}{"phWater": 7.0})}
	gw.inbound <- inboundMessage{client: device, data: readingFrame(t, "", "ABC123", map[string]interface{}{"phWater": 7.0})}
	gw.inbound <- inboundMessage{client: device, data: []byte(`{"event":"device-reading","payload":{"userId":"u1","deviceCode":"ABC123"}}`)}
	gw.inbound <- inboundMessage{client: device, data: []byte(`not json at all`)}

	// A valid reading afterwards must be the first thing broadcast
	gw.inbound <- inboundMessage{client: device, data: readingFrame(t, "u1", "OK1", map[string]interface{}{
		"temperatureWater": 1.0, "phWater": 2.0, "turbidityWater": 3.0,
	})}

	update := decodeUpdate(t, recvFrame(t, dashboard))
	assert.Equal(t, "OK1", update.DeviceCode)
	assert.Equal(t, 1, states.Len(), "malformed payloads must not create state entries")
}

func TestReadingFromDashboardConnectionIgnored(t *testing.T) {
	gw, states := startGateway(t, testConfig(), nil)

	dashboard := newFakeClient(RoleDashboard, "u1")
	gw.register <- dashboard

	gw.inbound <- inboundMessage{client: dashboard, data: readingFrame(t, "u1", "ABC123", map[string]interface{}{
		"phWater": 7.0,
	})}

	select {
	case frame := <-dashboard.send:
		t.Fatalf("unexpected broadcast: %s", frame)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, 0, states.Len())
}

func TestIdempotentStateButNotBroadcast(t *testing.T) {
	gw, states := startGateway(t, testConfig(), nil)

	device := newFakeClient(RoleDevice, "")
	dashboard := newFakeClient(RoleDashboard, "u1")
	gw.register <- device
	gw.register <- dashboard

	frame := readingFrame(t, "u1", "ABC123", map[string]interface{}{
		"temperatureWater": 25.0, "phWater": 7.0, "turbidityWater": 1.0,
	})
	gw.inbound <- inboundMessage{client: device, data: frame}
	gw.inbound <- inboundMessage{client: device, data: frame}

	first := decodeUpdate(t, recvFrame(t, dashboard))
	second := decodeUpdate(t, recvFrame(t, dashboard))
	assert.Equal(t, first.Data.DataSensor, second.Data.DataSensor)
	assert.Equal(t, 1, states.Len())
}

func TestBroadcastIsByteIdenticalForAllClients(t *testing.T) {
	gw, _ := startGateway(t, testConfig(), nil)

	device := newFakeClient(RoleDevice, "")
	dashA := newFakeClient(RoleDashboard, "u1")
	dashB := newFakeClient(RoleDashboard, "u2")
	gw.register <- device
	gw.register <- dashA
	gw.register <- dashB

	gw.inbound <- inboundMessage{client: device, data: readingFrame(t, "u1", "ABC123", map[string]interface{}{
		"temperatureWater": 25.3, "phWater": 7.1, "turbidityWater": 1.2,
	})}

	frameA := recvFrame(t, dashA)
	frameB := recvFrame(t, dashB)
	assert.Equal(t, frameA, frameB)

	// Global scope: the device connection receives the update too
	frameDevice := recvFrame(t, device)
	assert.Equal(t, frameA, frameDevice)
}

func TestOwnerScopedBroadcast(t *testing.T) {
	cfg := testConfig()
	cfg.BroadcastScope = config.BroadcastScopeOwner
	gw, _ := startGateway(t, cfg, nil)

	device := newFakeClient(RoleDevice, "")
	owner := newFakeClient(RoleDashboard, "u1")
	other := newFakeClient(RoleDashboard, "u2")
	gw.register <- device
	gw.register <- owner
	gw.register <- other

	gw.inbound <- inboundMessage{client: device, data: readingFrame(t, "u1", "ABC123", map[string]interface{}{
		"phWater": 7.0,
	})}

	update := decodeUpdate(t, recvFrame(t, owner))
	assert.Equal(t, "u1", update.UserID)

	select {
	case frame := <-other.send:
		t.Fatalf("non-owner received scoped broadcast: %s", frame)
	case <-time.After(100 * time.Millisecond):
	}
	select {
	case frame := <-device.send:
		t.Fatalf("device received scoped broadcast: %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLateJoinerReceivesSnapshot(t *testing.T) {
	gw, _ := startGateway(t, testConfig(), nil)

	device := newFakeClient(RoleDevice, "")
	gw.register <- device
	gw.inbound <- inboundMessage{client: device, data: readingFrame(t, "u1", "ABC123", map[string]interface{}{
		"temperatureWater": 25.3, "phWater": 7.1, "turbidityWater": 1.2,
	})}
	// Drain the broadcast delivered to the device itself
	recvFrame(t, device)

	late := newFakeClient(RoleDashboard, "u1")
	gw.register <- late

	update := decodeUpdate(t, recvFrame(t, late))
	assert.Equal(t, "ABC123", update.DeviceCode)
	assert.Equal(t, 25.3, update.Data.DataSensor.TemperatureWater.Float())
}

func TestNonNumericValueBroadcastAsNull(t *testing.T) {
	gw, states := startGateway(t, testConfig(), nil)

	device := newFakeClient(RoleDevice, "")
	dashboard := newFakeClient(RoleDashboard, "u1")
	gw.register <- device
	gw.register <- dashboard

	gw.inbound <- inboundMessage{client: device, data: readingFrame(t, "u1", "ABC123", map[string]interface{}{
		"temperatureWater": "garbage", "phWater": 7.0, "turbidityWater": 1.0,
	})}

	frame := recvFrame(t, dashboard)
	assert.Contains(t, string(frame), `"temperatureWater":null`)

	stored, ok := states.Get("ABC123")
	require.True(t, ok)
	assert.True(t, math.IsNaN(stored.Data.DataSensor.TemperatureWater.Float()))
}

func TestUnknownDeviceBroadcastsButNeverPersists(t *testing.T) {
	samples := &fakeSampleRepo{}
	bridge := persistence.NewBridge(&fakeRegistry{known: map[string]*models.Monitoring{}}, samples, time.Millisecond)
	gw, _ := startGateway(t, testConfig(), bridge)

	device := newFakeClient(RoleDevice, "")
	dashboard := newFakeClient(RoleDashboard, "u1")
	gw.register <- device
	gw.register <- dashboard

	gw.inbound <- inboundMessage{client: device, data: readingFrame(t, "u1", "GHOST", map[string]interface{}{
		"temperatureWater": 25.0, "phWater": 7.0, "turbidityWater": 1.0,
	})}

	update := decodeUpdate(t, recvFrame(t, dashboard))
	assert.Equal(t, "GHOST", update.DeviceCode)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, samples.count(), "unknown devices must not be persisted")
}

func TestKnownDevicePersistedThroughBridge(t *testing.T) {
	samples := &fakeSampleRepo{}
	reg := &fakeRegistry{known: map[string]*models.Monitoring{
		"ABC123": {ID: "mon_1", UserID: "u1", DeviceCode: "ABC123"},
	}}
	bridge := persistence.NewBridge(reg, samples, time.Minute)
	gw, _ := startGateway(t, testConfig(), bridge)

	device := newFakeClient(RoleDevice, "")
	gw.register <- device

	gw.inbound <- inboundMessage{client: device, data: readingFrame(t, "u1", "ABC123", map[string]interface{}{
		"temperatureWater": 25.3, "phWater": 7.1, "turbidityWater": 1.2,
	})}
	recvFrame(t, device)

	assert.Eventually(t, func() bool { return samples.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	samples.mu.Lock()
	sample := samples.inserted[0]
	samples.mu.Unlock()
	assert.Equal(t, "mon_1", sample.MonitoringID)
	assert.Equal(t, 25.3, sample.TemperatureWater)
}

func TestDisconnectLeavesStateIntact(t *testing.T) {
	gw, states := startGateway(t, testConfig(), nil)

	device := newFakeClient(RoleDevice, "")
	gw.register <- device
	gw.inbound <- inboundMessage{client: device, data: readingFrame(t, "u1", "ABC123", map[string]interface{}{
		"phWater": 7.0,
	})}
	recvFrame(t, device)

	gw.unregister <- device

	// Register another client to prove the loop is still serving
	dashboard := newFakeClient(RoleDashboard, "u1")
	gw.register <- dashboard
	update := decodeUpdate(t, recvFrame(t, dashboard))
	assert.Equal(t, "ABC123", update.DeviceCode)
	assert.Equal(t, 1, states.Len())
}
