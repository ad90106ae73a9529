package models

import (
	"time"

	"parking-bknd/internal/geo"

	"github.com/uptrace/bun"
)

// PaymentTerminal is a pay station point, optionally associated with a zone.
type PaymentTerminal struct {
	bun.BaseModel `bun:"table:payment_terminals,alias:pt"`

	TerminalID   int64     `bun:"terminal_id,pk,autoincrement" json:"terminal_id"`
	ZoneID       *int64    `bun:"zone_id" json:"zone_id,omitempty"`
	TerminalCode string    `bun:"terminal_code,notnull,unique" json:"terminal_code"`
	Status       string    `bun:"status,default:'operational'" json:"status"`
	CreatedAt    time.Time `bun:"created_at,nullzero,default:now()" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,default:now()" json:"updated_at"`
}

// TerminalWrite is the payload for creating or editing a terminal.
type TerminalWrite struct {
	ZoneID       *int64       `json:"zone_id,omitempty"`
	TerminalCode string       `json:"terminal_code"`
	Status       string       `json:"status,omitempty"`
	Geometry     geo.Geometry `json:"geometry"`
}
