package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"parking-bknd/internal/engine"
	"parking-bknd/internal/geo"
	"parking-bknd/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ImportService ingests raw features from external map datasets. Each record
// is normalized to the canonical geometry kind of its target entity, validated,
// and inserted; every normalization attempt lands in the conversion log under
// the batch id. One import per source runs at a time.
type ImportService struct {
	db          *bun.DB
	sourceLocks sync.Map // source -> *sync.Mutex
}

func NewImportService(db *bun.DB) *ImportService {
	return &ImportService{db: db}
}

func (s *ImportService) sourceLock(source string) *sync.Mutex {
	mu, _ := s.sourceLocks.LoadOrStore(source, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// entityFromString maps a wire entity name onto the engine's entity kind.
func entityFromString(entity string) (engine.EntityKind, bool) {
	switch entity {
	case "zone":
		return engine.EntityZone, true
	case "street":
		return engine.EntityStreet, true
	case "poi":
		return engine.EntityPOI, true
	case "terminal":
		return engine.EntityTerminal, true
	}
	return "", false
}

// ImportBatch normalizes and ingests a batch of raw records from one source.
// Records that cannot be converted are skipped, not fatal; each record's
// outcome is reported and logged. Duplicate source refs within the batch, or
// already imported from the same source, are skipped.
func (s *ImportService) ImportBatch(ctx context.Context, source string, records []models.ImportRecord) (*models.ImportSummary, error) {
	if source == "" {
		return nil, fmt.Errorf("import source is required")
	}
	mu := s.sourceLock(source)
	mu.Lock()
	defer mu.Unlock()

	batchID := uuid.New()
	summary := &models.ImportSummary{
		BatchID: batchID,
		Source:  source,
		Records: make([]models.ImportRecordResult, 0, len(records)),
	}

	imported, err := s.importedRefs(ctx, source)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(records))

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, rec := range records {
			res := s.importOne(ctx, tx, batchID, source, rec, seen, imported)
			summary.Records = append(summary.Records, res)
			switch res.Outcome {
			case "imported":
				summary.Imported++
			case "skipped":
				summary.Skipped++
			default:
				summary.Errors++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *ImportService) importOne(ctx context.Context, tx bun.Tx, batchID uuid.UUID, source string, rec models.ImportRecord, seen, imported map[string]bool) models.ImportRecordResult {
	result := models.ImportRecordResult{SourceRef: rec.SourceRef}

	if rec.SourceRef == "" {
		result.Outcome = "error"
		result.Detail = "missing source_ref"
		s.logConversion(ctx, tx, batchID, source, rec, engine.Conversion{
			Outcome: engine.OutcomeError, Detail: result.Detail,
		})
		return result
	}
	if seen[rec.SourceRef] || imported[rec.SourceRef] {
		result.Outcome = "skipped"
		result.Detail = "duplicate source_ref"
		s.logConversion(ctx, tx, batchID, source, rec, engine.Conversion{
			SourceKind: rec.Geometry.Kind,
			Outcome:    engine.OutcomeSkipped,
			Detail:     result.Detail,
		})
		return result
	}
	seen[rec.SourceRef] = true

	entity, ok := entityFromString(rec.Entity)
	if !ok {
		result.Outcome = "error"
		result.Detail = fmt.Sprintf("unknown entity %q", rec.Entity)
		s.logConversion(ctx, tx, batchID, source, rec, engine.Conversion{
			SourceKind: rec.Geometry.Kind,
			Outcome:    engine.OutcomeError,
			Detail:     result.Detail,
		})
		return result
	}

	normalized, conv := engine.NormalizeFor(entity, rec.SourceRef, rec.Geometry)
	if conv.Outcome != engine.OutcomeConverted {
		result.Outcome = string(conv.Outcome)
		result.Detail = conv.Detail
		s.logConversion(ctx, tx, batchID, source, rec, conv)
		return result
	}
	if err := engine.ValidateGeometry(entity, normalized); err != nil {
		conv.Outcome = engine.OutcomeError
		conv.Detail = err.Error()
		result.Outcome = "error"
		result.Detail = err.Error()
		s.logConversion(ctx, tx, batchID, source, rec, conv)
		return result
	}

	id, err := s.insertEntity(ctx, tx, entity, source, rec, normalized)
	if err != nil {
		conv.Outcome = engine.OutcomeError
		conv.Detail = err.Error()
		result.Outcome = "error"
		result.Detail = err.Error()
		s.logConversion(ctx, tx, batchID, source, rec, conv)
		return result
	}

	result.Outcome = "imported"
	result.EntityID = id
	s.logConversion(ctx, tx, batchID, source, rec, conv)
	return result
}

func (s *ImportService) insertEntity(ctx context.Context, tx bun.Tx, entity engine.EntityKind, source string, rec models.ImportRecord, g geo.Geometry) (int64, error) {
	gj, err := encodeGeom(g)
	if err != nil {
		return 0, err
	}

	switch entity {
	case engine.EntityZone:
		zoneType := rec.Tags["zone_type"]
		if !models.ValidZoneType(zoneType) {
			zoneType = models.ZoneTypeOffStreet
		}
		zone := &models.ParkingZone{
			Name:     tagOr(rec.Tags, "name", rec.SourceRef),
			ZoneType: zoneType,
			IsActive: true,
			Source:   source,
		}
		if c, err := strconv.Atoi(rec.Tags["capacity"]); err == nil && c > 0 {
			zone.Capacity = &c
		}
		_, err := tx.NewInsert().
			Model(zone).
			Value("geom", geomFromJSONExpr, gj, geo.SRID).
			Returning("zone_id").
			Exec(ctx)
		return zone.ZoneID, err

	case engine.EntityStreet:
		seg := &models.StreetSegment{
			Name:     tagOr(rec.Tags, "name", rec.SourceRef),
			RoadType: rec.Tags["road_type"],
		}
		if kph, err := strconv.Atoi(rec.Tags["speed_limit_kph"]); err == nil && kph > 0 {
			seg.SpeedLimitKph = &kph
		}
		_, err := tx.NewInsert().
			Model(seg).
			Value("geom", geomFromJSONExpr, gj, geo.SRID).
			Returning("street_id").
			Exec(ctx)
		return seg.StreetID, err

	case engine.EntityPOI:
		poi := &models.PointOfInterest{
			Name:    tagOr(rec.Tags, "name", rec.SourceRef),
			POIType: tagOr(rec.Tags, "poi_type", "unknown"),
			Address: rec.Tags["address"],
		}
		_, err := tx.NewInsert().
			Model(poi).
			Value("geom", geomFromJSONExpr, gj, geo.SRID).
			Returning("poi_id").
			Exec(ctx)
		return poi.POIID, err

	case engine.EntityTerminal:
		t := &models.PaymentTerminal{
			TerminalCode: tagOr(rec.Tags, "terminal_code", rec.SourceRef),
			Status:       "operational",
		}
		_, err := tx.NewInsert().
			Model(t).
			Value("geom", geomFromJSONExpr, gj, geo.SRID).
			Returning("terminal_id").
			Exec(ctx)
		return t.TerminalID, err
	}
	return 0, fmt.Errorf("entity %q is not importable", entity)
}

func tagOr(tags map[string]string, key, fallback string) string {
	if v := tags[key]; v != "" {
		return v
	}
	return fallback
}

// logConversion writes one conversion-log row. Log failures are swallowed so
// a logging hiccup never fails the record it describes.
func (s *ImportService) logConversion(ctx context.Context, tx bun.Tx, batchID uuid.UUID, source string, rec models.ImportRecord, conv engine.Conversion) {
	row := &models.ConversionLog{
		ID:         uuid.New(),
		BatchID:    batchID,
		Source:     source,
		SourceRef:  rec.SourceRef,
		SourceKind: string(conv.SourceKind),
		TargetKind: string(conv.TargetKind),
		Outcome:    string(conv.Outcome),
		Detail:     conv.Detail,
	}
	_, _ = tx.NewInsert().Model(row).Exec(ctx)
}

// importedRefs collects source refs already converted from this source, so a
// re-run of the same batch is idempotent.
func (s *ImportService) importedRefs(ctx context.Context, source string) (map[string]bool, error) {
	var refs []string
	err := s.db.NewSelect().
		Model((*models.ConversionLog)(nil)).
		Column("cl.source_ref").
		Where("cl.source = ?", source).
		Where("cl.outcome = ?", string(engine.OutcomeConverted)).
		Scan(ctx, &refs)
	if err != nil {
		return nil, fmt.Errorf("load imported refs for %s: %w", source, err)
	}
	out := make(map[string]bool, len(refs))
	for _, r := range refs {
		out[r] = true
	}
	return out, nil
}

// QueryLog returns conversion-log entries, optionally filtered by outcome and
// batch.
func (s *ImportService) QueryLog(ctx context.Context, outcome string, batchID *uuid.UUID, limit int) ([]models.ConversionLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	var rows []models.ConversionLog
	q := s.db.NewSelect().
		Model(&rows).
		OrderExpr("cl.created_at DESC").
		Limit(limit)
	if outcome != "" {
		q = q.Where("cl.outcome = ?", outcome)
	}
	if batchID != nil {
		q = q.Where("cl.batch_id = ?", *batchID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("query conversion log: %w", err)
	}
	return rows, nil
}
