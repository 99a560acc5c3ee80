// FilePath: internal/models/models.reading.go
package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Metric is a sensor value as it arrives off the wire. Devices send numbers
// or numeric strings; anything else decodes to NaN and is kept as-is rather
// than rejected. NaN serializes as JSON null.
type Metric float64

// UnmarshalJSON implements the json.Unmarshaler interface
func (m *Metric) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		*m = Metric(math.NaN())
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*m = Metric(math.NaN())
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*m = Metric(math.NaN())
			return nil
		}
		*m = Metric(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*m = Metric(math.NaN())
		return nil
	}
	*m = Metric(v)
	return nil
}

// MarshalJSON implements the json.Marshaler interface
func (m Metric) MarshalJSON() ([]byte, error) {
	f := float64(m)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// Float returns the metric as a plain float64
func (m Metric) Float() float64 {
	return float64(m)
}

// SensorData holds one set of water-quality measurements
type SensorData struct {
	TemperatureWater Metric `json:"temperatureWater"`
	PhWater          Metric `json:"phWater"`
	TurbidityWater   Metric `json:"turbidityWater"`
}

// DeviceReading is a single telemetry sample as sent by a device
type DeviceReading struct {
	UserID     string      `json:"userId"`
	DeviceCode string      `json:"deviceCode"`
	DataSensor *SensorData `json:"dataSensor"`
}

// Valid reports whether the reading carries the minimum required fields.
// Sensor values themselves are never validated here.
func (r *DeviceReading) Valid() bool {
	return r != nil && r.UserID != "" && r.DeviceCode != "" && r.DataSensor != nil
}

// DeviceState is the last-known reading for a device, timestamped by the
// gateway on arrival
type DeviceState struct {
	DataSensor SensorData `json:"dataSensor"`
	Date       time.Time  `json:"date"`
}

// DeviceUpdate is the broadcast payload sent to connected clients after a
// reading is applied
type DeviceUpdate struct {
	UserID     string      `json:"userId"`
	DeviceCode string      `json:"deviceCode"`
	Data       DeviceState `json:"data"`
}

// Wire protocol event names
const (
	EventDeviceReading = "device-reading"
	EventDeviceUpdate  = "device-update"
)

// Envelope frames every application message on a gateway connection
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}
