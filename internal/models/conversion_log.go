package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ConversionLog records one normalization attempt from the import pipeline,
// queryable by outcome for operational visibility.
type ConversionLog struct {
	bun.BaseModel `bun:"table:conversion_log,alias:cl"`

	ID         uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	BatchID    uuid.UUID `bun:"batch_id,type:uuid,notnull" json:"batch_id"`
	Source     string    `bun:"source,notnull" json:"source"`
	SourceRef  string    `bun:"source_ref,notnull" json:"source_ref"`
	SourceKind string    `bun:"source_kind" json:"source_kind"`
	TargetKind string    `bun:"target_kind" json:"target_kind"`
	Outcome    string    `bun:"outcome,notnull" json:"outcome"`
	Detail     string    `bun:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time `bun:"created_at,nullzero,default:now()" json:"created_at"`
}
