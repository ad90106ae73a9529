package models

import (
	"parking-bknd/internal/geo"

	"github.com/google/uuid"
)

// ImportRecord is one raw feature harvested from an external map dataset.
// Tags carry the source's loosely-typed key/value properties; only the keys
// in the import allow-list are interpreted, the rest are ignored.
type ImportRecord struct {
	SourceRef string            `json:"source_ref"`
	Entity    string            `json:"entity"`
	Geometry  geo.Geometry      `json:"geometry"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// ImportRecordResult is the per-record outcome of an import batch.
type ImportRecordResult struct {
	SourceRef string `json:"source_ref"`
	Outcome   string `json:"outcome"` // imported | skipped | error
	Detail    string `json:"detail,omitempty"`
	EntityID  int64  `json:"entity_id,omitempty"`
}

// ImportSummary aggregates an import batch.
type ImportSummary struct {
	BatchID  uuid.UUID            `json:"batch_id"`
	Source   string               `json:"source"`
	Imported int                  `json:"imported"`
	Skipped  int                  `json:"skipped"`
	Errors   int                  `json:"errors"`
	Records  []ImportRecordResult `json:"records"`
}
