package models

import (
	"time"

	"parking-bknd/internal/geo"

	"github.com/uptrace/bun"
)

// StreetSegment is a road centerline used for street context.
type StreetSegment struct {
	bun.BaseModel `bun:"table:street_segments,alias:ss"`

	StreetID      int64     `bun:"street_id,pk,autoincrement" json:"street_id"`
	Name          string    `bun:"name,notnull" json:"name"`
	RoadType      string    `bun:"road_type" json:"road_type,omitempty"`
	SpeedLimitKph *int      `bun:"speed_limit_kph" json:"speed_limit_kph,omitempty"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:now()" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,default:now()" json:"updated_at"`
}

// StreetWrite is the payload for creating or editing a street segment.
type StreetWrite struct {
	Name          string       `json:"name"`
	RoadType      string       `json:"road_type,omitempty"`
	SpeedLimitKph *int         `json:"speed_limit_kph,omitempty"`
	Geometry      geo.Geometry `json:"geometry"`
}
