package models

import (
	"time"

	"parking-bknd/internal/geo"

	"github.com/uptrace/bun"
)

// PointOfInterest is a destination point used by accessibility analysis.
type PointOfInterest struct {
	bun.BaseModel `bun:"table:points_of_interest,alias:poi"`

	POIID     int64     `bun:"poi_id,pk,autoincrement" json:"poi_id"`
	Name      string    `bun:"name,notnull" json:"name"`
	POIType   string    `bun:"poi_type,notnull" json:"poi_type"`
	Address   string    `bun:"address" json:"address,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:now()" json:"created_at"`
}

// POIWrite is the payload for creating a point of interest.
type POIWrite struct {
	Name     string       `json:"name"`
	POIType  string       `json:"poi_type"`
	Address  string       `json:"address,omitempty"`
	Geometry geo.Geometry `json:"geometry"`
}
