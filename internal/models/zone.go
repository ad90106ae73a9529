package models

import (
	"time"

	"parking-bknd/internal/geo"

	"github.com/uptrace/bun"
)

// Zone categories. Lot and garage are area-based (grid bay layout);
// on_street and off_street are boundary-based (perimeter bay layout).
const (
	ZoneTypeLot       = "lot"
	ZoneTypeGarage    = "garage"
	ZoneTypeOnStreet  = "on_street"
	ZoneTypeOffStreet = "off_street"
)

// ValidZoneType reports whether t is a recognized zone category.
func ValidZoneType(t string) bool {
	switch t {
	case ZoneTypeLot, ZoneTypeGarage, ZoneTypeOnStreet, ZoneTypeOffStreet:
		return true
	}
	return false
}

// ParkingZone is a managed parking area with a polygon boundary.
// The geometry column is read and written through ST_AsGeoJSON /
// ST_GeomFromGeoJSON expressions, never mapped directly.
type ParkingZone struct {
	bun.BaseModel `bun:"table:parking_zones,alias:pz"`

	ZoneID    int64     `bun:"zone_id,pk,autoincrement" json:"zone_id"`
	Name      string    `bun:"name,notnull" json:"name"`
	ZoneType  string    `bun:"zone_type,notnull" json:"zone_type"`
	Capacity  *int      `bun:"capacity" json:"capacity,omitempty"`
	IsActive  bool      `bun:"is_active,default:true" json:"is_active"`
	Source    string    `bun:"source,default:'manual'" json:"source"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:now()" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:now()" json:"updated_at"`
}

// ZoneWrite is the payload for creating or updating a zone.
type ZoneWrite struct {
	Name     string       `json:"name"`
	ZoneType string       `json:"zone_type"`
	Capacity *int         `json:"capacity,omitempty"`
	IsActive *bool        `json:"is_active,omitempty"`
	Geometry geo.Geometry `json:"geometry"`
}
