// FilePath: internal/models/models.monitoring.go
package models

import "time"

// Monitoring is a registered monitoring device. DeviceCode is the opaque code
// the physical unit identifies itself with; it is scoped to the owning user,
// not globally unique.
type Monitoring struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Name       string    `json:"name" db:"name"`
	DeviceCode string    `json:"device_code" db:"device_code"`
	Location   string    `json:"location" db:"location"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Sample is a durably persisted water-quality measurement
type Sample struct {
	ID               string    `json:"id" db:"id"`
	MonitoringID     string    `json:"monitoring_id" db:"monitoring_id"`
	TemperatureWater float64   `json:"temperature_water" db:"temperature_water"`
	PhWater          float64   `json:"ph_water" db:"ph_water"`
	TurbidityWater   float64   `json:"turbidity_water" db:"turbidity_water"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// SampleFilters are the query parameters accepted by the sample listing
// endpoint. Start and End are RFC3339 strings, parsed by the handler.
type SampleFilters struct {
	Start string `schema:"start"`
	End   string `schema:"end"`
	Limit int    `schema:"limit"`
}
