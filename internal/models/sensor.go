package models

import (
	"time"

	"parking-bknd/internal/geo"

	"github.com/uptrace/bun"
)

// Sensor is an occupancy sensor point, optionally tied to a bay. The bay
// reference is a weak lookup key, not ownership; sensors without one skip the
// proximity invariant.
type Sensor struct {
	bun.BaseModel `bun:"table:sensors,alias:s"`

	SensorID            int64     `bun:"sensor_id,pk,autoincrement" json:"sensor_id"`
	BayID               *int64    `bun:"bay_id" json:"bay_id,omitempty"`
	SensorType          string    `bun:"sensor_type,notnull" json:"sensor_type"`
	IsActive            bool      `bun:"is_active,default:true" json:"is_active"`
	BatteryLevelPercent *int      `bun:"battery_level_percent" json:"battery_level_percent,omitempty"`
	CreatedAt           time.Time `bun:"created_at,nullzero,default:now()" json:"created_at"`
	UpdatedAt           time.Time `bun:"updated_at,nullzero,default:now()" json:"updated_at"`
}

// SensorWrite is the payload for creating or editing a sensor.
type SensorWrite struct {
	BayID               *int64       `json:"bay_id,omitempty"`
	SensorType          string       `json:"sensor_type"`
	IsActive            *bool        `json:"is_active,omitempty"`
	BatteryLevelPercent *int         `json:"battery_level_percent,omitempty"`
	Geometry            geo.Geometry `json:"geometry"`
}
