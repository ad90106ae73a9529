package models

import (
	"time"

	"parking-bknd/internal/geo"

	"github.com/uptrace/bun"
)

// Violation is a parking violation issued at a point inside (or within
// tolerance of) its bay. Geometry is immutable after creation.
type Violation struct {
	bun.BaseModel `bun:"table:violations,alias:v"`

	ViolationID   int64     `bun:"violation_id,pk,autoincrement" json:"violation_id"`
	BayID         int64     `bun:"bay_id,notnull" json:"bay_id"`
	ViolationType string    `bun:"violation_type,notnull" json:"violation_type"`
	IssuedAt      time.Time `bun:"issued_at,nullzero,default:now()" json:"issued_at"`
	FineAmount    float64   `bun:"fine_amount,notnull" json:"fine_amount"`
	Notes         string    `bun:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:now()" json:"created_at"`
}

// ViolationWrite is the payload for issuing a violation.
type ViolationWrite struct {
	BayID         int64        `json:"bay_id"`
	ViolationType string       `json:"violation_type"`
	FineAmount    float64      `json:"fine_amount"`
	Notes         string       `json:"notes,omitempty"`
	Geometry      geo.Geometry `json:"geometry"`
}
