package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parking-bknd/internal/engine"
	"parking-bknd/internal/geo"
	"parking-bknd/internal/models"

	"github.com/uptrace/bun"
)

// TerminalService owns payment-terminal persistence. Terminals are free
// points; the optional zone reference must exist but carries no containment
// requirement since pay stations often sit on the sidewalk outside the zone.
type TerminalService struct {
	db *bun.DB
}

func NewTerminalService(db *bun.DB) *TerminalService {
	return &TerminalService{db: db}
}

type terminalRow struct {
	models.PaymentTerminal
	GeoJSON string `bun:"geojson"`
}

// ListTerminals returns terminals as a FeatureCollection, optionally filtered
// by zone.
func (s *TerminalService) ListTerminals(ctx context.Context, zoneID *int64) (*models.FeatureCollection, error) {
	q := s.db.NewSelect().
		Model((*models.PaymentTerminal)(nil)).
		ColumnExpr("pt.*").
		ColumnExpr("ST_AsGeoJSON(pt.geom) AS geojson")
	if zoneID != nil {
		q = q.Where("pt.zone_id = ?", *zoneID)
	}
	var rows []terminalRow
	if err := q.OrderExpr("pt.terminal_id ASC").Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list terminals: %w", err)
	}
	features := make([]models.Feature, 0, len(rows))
	for _, row := range rows {
		g, err := decodeGeom(row.GeoJSON)
		if err != nil {
			continue
		}
		features = append(features, models.NewFeature(g, terminalProps(&row.PaymentTerminal)))
	}
	return models.NewFeatureCollection(features), nil
}

// GetTerminal returns one terminal as a GeoJSON feature.
func (s *TerminalService) GetTerminal(ctx context.Context, id int64) (*models.Feature, error) {
	var row terminalRow
	err := s.db.NewSelect().
		Model((*models.PaymentTerminal)(nil)).
		ColumnExpr("pt.*").
		ColumnExpr("ST_AsGeoJSON(pt.geom) AS geojson").
		Where("pt.terminal_id = ?", id).
		Scan(ctx, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.Errf(engine.ReferencedEntityNotFound, "terminal %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load terminal %d: %w", id, err)
	}
	g, err := decodeGeom(row.GeoJSON)
	if err != nil {
		return nil, err
	}
	f := models.NewFeature(g, terminalProps(&row.PaymentTerminal))
	return &f, nil
}

// CreateTerminal validates the point and the zone reference, then inserts.
func (s *TerminalService) CreateTerminal(ctx context.Context, w models.TerminalWrite) (*models.PaymentTerminal, error) {
	if err := engine.ValidateGeometry(engine.EntityTerminal, w.Geometry); err != nil {
		return nil, err
	}
	if w.TerminalCode == "" {
		return nil, fmt.Errorf("terminal_code is required")
	}
	gj, err := encodeGeom(w.Geometry)
	if err != nil {
		return nil, err
	}

	status := w.Status
	if status == "" {
		status = "operational"
	}
	t := &models.PaymentTerminal{
		ZoneID:       w.ZoneID,
		TerminalCode: w.TerminalCode,
		Status:       status,
	}
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if w.ZoneID != nil {
			if _, err := loadZoneGeom(ctx, tx, *w.ZoneID); err != nil {
				return err
			}
		}
		_, err := tx.NewInsert().
			Model(t).
			Value("geom", geomFromJSONExpr, gj, geo.SRID).
			Returning("terminal_id, created_at, updated_at").
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTerminal rewrites a terminal.
func (s *TerminalService) UpdateTerminal(ctx context.Context, id int64, w models.TerminalWrite) (*models.PaymentTerminal, error) {
	if err := engine.ValidateGeometry(engine.EntityTerminal, w.Geometry); err != nil {
		return nil, err
	}
	gj, err := encodeGeom(w.Geometry)
	if err != nil {
		return nil, err
	}

	t := &models.PaymentTerminal{TerminalID: id}
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if w.ZoneID != nil {
			if _, err := loadZoneGeom(ctx, tx, *w.ZoneID); err != nil {
				return err
			}
		}
		q := tx.NewUpdate().
			Model(t).
			Set("zone_id = ?", w.ZoneID).
			Set("terminal_code = ?", w.TerminalCode).
			Set("geom = "+geomFromJSONExpr, gj, geo.SRID).
			Set("updated_at = now()").
			WherePK()
		if w.Status != "" {
			q = q.Set("status = ?", w.Status)
		}
		res, err := q.Exec(ctx)
		if err != nil {
			return fmt.Errorf("update terminal %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return engine.Errf(engine.ReferencedEntityNotFound, "terminal %d does not exist", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTerminal removes a terminal.
func (s *TerminalService) DeleteTerminal(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().
		Model((*models.PaymentTerminal)(nil)).
		Where("terminal_id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete terminal %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.Errf(engine.ReferencedEntityNotFound, "terminal %d does not exist", id)
	}
	return nil
}

func terminalProps(t *models.PaymentTerminal) map[string]any {
	props := map[string]any{
		"terminal_id":   t.TerminalID,
		"terminal_code": t.TerminalCode,
		"status":        t.Status,
	}
	if t.ZoneID != nil {
		props["zone_id"] = *t.ZoneID
	}
	return props
}
