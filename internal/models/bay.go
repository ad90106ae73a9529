package models

import (
	"time"

	"parking-bknd/internal/geo"

	"github.com/uptrace/bun"
)

// Bay statuses. Transitions driven by the session-lifecycle collaborator go
// through the check-and-set contract in BayService.SetStatus.
const (
	BayStatusAvailable = "available"
	BayStatusOccupied  = "occupied"
	BayStatusReserved  = "reserved"
	BayStatusClosed    = "closed"
)

// ValidBayStatus reports whether s is a recognized bay status.
func ValidBayStatus(s string) bool {
	switch s {
	case BayStatusAvailable, BayStatusOccupied, BayStatusReserved, BayStatusClosed:
		return true
	}
	return false
}

// ParkingBay is a single parking spot polygon inside a zone.
type ParkingBay struct {
	bun.BaseModel `bun:"table:parking_bays,alias:pb"`

	BayID            int64     `bun:"bay_id,pk,autoincrement" json:"bay_id"`
	ZoneID           int64     `bun:"zone_id,notnull" json:"zone_id"`
	BayNumber        string    `bun:"bay_number,notnull" json:"bay_number"`
	IsDisabledOnly   bool      `bun:"is_disabled_only,default:false" json:"is_disabled_only"`
	IsElectric       bool      `bun:"is_electric,default:false" json:"is_electric"`
	Status           string    `bun:"status,default:'available'" json:"status"`
	Source           string    `bun:"source,default:'manual'" json:"source"`
	Generated        bool      `bun:"generated,default:false" json:"generated"`
	LastStatusUpdate time.Time `bun:"last_status_update,nullzero,default:now()" json:"last_status_update"`
	CreatedAt        time.Time `bun:"created_at,nullzero,default:now()" json:"created_at"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,default:now()" json:"updated_at"`
}

// BayWrite is the payload for creating or editing a bay. Geometry edits
// re-trigger the containment invariant against the parent zone and the
// proximity invariants of dependent sensors and violations.
type BayWrite struct {
	ZoneID         int64        `json:"zone_id"`
	BayNumber      string       `json:"bay_number"`
	IsDisabledOnly bool         `json:"is_disabled_only"`
	IsElectric     bool         `json:"is_electric"`
	Status         string       `json:"status,omitempty"`
	Geometry       geo.Geometry `json:"geometry"`
}

// BayStatusChange is the atomic check-and-set request for bay status.
type BayStatusChange struct {
	Expected string `json:"expected_current"`
	New      string `json:"new_status"`
}
