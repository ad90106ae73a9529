package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking-bknd/internal/engine"
	"parking-bknd/internal/geo"
	"parking-bknd/internal/models"

	"github.com/uptrace/bun"
)

// ViolationService owns violation persistence. Every violation must name an
// existing bay and sit within the issuance tolerance of it. Geometry is
// immutable once issued; only the descriptive fields can change.
type ViolationService struct {
	db       *bun.DB
	enforcer *engine.Enforcer
}

func NewViolationService(db *bun.DB, enf *engine.Enforcer) *ViolationService {
	return &ViolationService{db: db, enforcer: enf}
}

type violationRow struct {
	models.Violation
	GeoJSON string `bun:"geojson"`
}

// ListViolations returns violations as a FeatureCollection, optionally
// filtered by bay and an issued-after cutoff.
func (s *ViolationService) ListViolations(ctx context.Context, bayID *int64, since *time.Time) (*models.FeatureCollection, error) {
	q := s.db.NewSelect().
		Model((*models.Violation)(nil)).
		ColumnExpr("v.*").
		ColumnExpr("ST_AsGeoJSON(v.geom) AS geojson")
	if bayID != nil {
		q = q.Where("v.bay_id = ?", *bayID)
	}
	if since != nil {
		q = q.Where("v.issued_at >= ?", *since)
	}
	var rows []violationRow
	if err := q.OrderExpr("v.issued_at DESC").Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	features := make([]models.Feature, 0, len(rows))
	for _, row := range rows {
		g, err := decodeGeom(row.GeoJSON)
		if err != nil {
			continue
		}
		features = append(features, models.NewFeature(g, violationProps(&row.Violation)))
	}
	return models.NewFeatureCollection(features), nil
}

// GetViolation returns one violation as a GeoJSON feature.
func (s *ViolationService) GetViolation(ctx context.Context, id int64) (*models.Feature, error) {
	var row violationRow
	err := s.db.NewSelect().
		Model((*models.Violation)(nil)).
		ColumnExpr("v.*").
		ColumnExpr("ST_AsGeoJSON(v.geom) AS geojson").
		Where("v.violation_id = ?", id).
		Scan(ctx, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.Errf(engine.ReferencedEntityNotFound, "violation %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load violation %d: %w", id, err)
	}
	g, err := decodeGeom(row.GeoJSON)
	if err != nil {
		return nil, err
	}
	f := models.NewFeature(g, violationProps(&row.Violation))
	return &f, nil
}

// IssueViolation validates the point against the named bay and inserts in one
// transaction.
func (s *ViolationService) IssueViolation(ctx context.Context, w models.ViolationWrite) (*models.Violation, error) {
	if err := engine.ValidateGeometry(engine.EntityViolation, w.Geometry); err != nil {
		return nil, err
	}
	if w.ViolationType == "" {
		return nil, fmt.Errorf("violation_type is required")
	}
	gj, err := encodeGeom(w.Geometry)
	if err != nil {
		return nil, err
	}

	v := &models.Violation{
		BayID:         w.BayID,
		ViolationType: w.ViolationType,
		FineAmount:    w.FineAmount,
		Notes:         w.Notes,
	}
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		bayGeom, err := loadBayGeom(ctx, tx, w.BayID)
		if err != nil {
			return err
		}
		if err := s.enforcer.CheckViolationInBay(w.Geometry, bayGeom); err != nil {
			return err
		}
		_, err = tx.NewInsert().
			Model(v).
			Value("geom", geomFromJSONExpr, gj, geo.SRID).
			Returning("violation_id, issued_at, created_at").
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateViolation edits the descriptive fields only. The issuance point and
// bay reference are part of the evidentiary record and stay fixed.
func (s *ViolationService) UpdateViolation(ctx context.Context, id int64, violationType string, fineAmount float64, notes string) (*models.Violation, error) {
	if violationType == "" {
		return nil, fmt.Errorf("violation_type is required")
	}
	v := &models.Violation{ViolationID: id}
	res, err := s.db.NewUpdate().
		Model(v).
		Set("violation_type = ?", violationType).
		Set("fine_amount = ?", fineAmount).
		Set("notes = ?", notes).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update violation %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, engine.Errf(engine.ReferencedEntityNotFound, "violation %d does not exist", id)
	}
	return v, nil
}

// DeleteViolation removes a violation.
func (s *ViolationService) DeleteViolation(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().
		Model((*models.Violation)(nil)).
		Where("violation_id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete violation %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.Errf(engine.ReferencedEntityNotFound, "violation %d does not exist", id)
	}
	return nil
}

func violationProps(v *models.Violation) map[string]any {
	return map[string]any{
		"violation_id":   v.ViolationID,
		"bay_id":         v.BayID,
		"violation_type": v.ViolationType,
		"issued_at":      v.IssuedAt,
		"fine_amount":    v.FineAmount,
		"notes":          v.Notes,
	}
}
