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

// StreetService owns street-segment persistence. Segments are plain
// LineStrings with road metadata, kept for map context and nearby-street
// lookups.
type StreetService struct {
	db *bun.DB
}

func NewStreetService(db *bun.DB) *StreetService {
	return &StreetService{db: db}
}

type streetRow struct {
	models.StreetSegment
	GeoJSON string `bun:"geojson"`
}

// ListStreets returns street segments as a FeatureCollection, optionally
// filtered by road type.
func (s *StreetService) ListStreets(ctx context.Context, roadTypes []string) (*models.FeatureCollection, error) {
	q := s.db.NewSelect().
		Model((*models.StreetSegment)(nil)).
		ColumnExpr("ss.*").
		ColumnExpr("ST_AsGeoJSON(ss.geom) AS geojson")
	if len(roadTypes) > 0 {
		q = q.Where("ss.road_type IN (?)", bun.In(roadTypes))
	}
	var rows []streetRow
	if err := q.OrderExpr("ss.street_id ASC").Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list streets: %w", err)
	}
	features := make([]models.Feature, 0, len(rows))
	for _, row := range rows {
		g, err := decodeGeom(row.GeoJSON)
		if err != nil {
			continue
		}
		features = append(features, models.NewFeature(g, streetProps(&row.StreetSegment)))
	}
	return models.NewFeatureCollection(features), nil
}

// GetStreet returns one street segment as a GeoJSON feature.
func (s *StreetService) GetStreet(ctx context.Context, id int64) (*models.Feature, error) {
	var row streetRow
	err := s.db.NewSelect().
		Model((*models.StreetSegment)(nil)).
		ColumnExpr("ss.*").
		ColumnExpr("ST_AsGeoJSON(ss.geom) AS geojson").
		Where("ss.street_id = ?", id).
		Scan(ctx, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.Errf(engine.ReferencedEntityNotFound, "street %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load street %d: %w", id, err)
	}
	g, err := decodeGeom(row.GeoJSON)
	if err != nil {
		return nil, err
	}
	f := models.NewFeature(g, streetProps(&row.StreetSegment))
	return &f, nil
}

// CreateStreet validates the centerline and inserts.
func (s *StreetService) CreateStreet(ctx context.Context, w models.StreetWrite) (*models.StreetSegment, error) {
	if err := engine.ValidateGeometry(engine.EntityStreet, w.Geometry); err != nil {
		return nil, err
	}
	if w.Name == "" {
		return nil, fmt.Errorf("street name is required")
	}
	gj, err := encodeGeom(w.Geometry)
	if err != nil {
		return nil, err
	}

	seg := &models.StreetSegment{
		Name:          w.Name,
		RoadType:      w.RoadType,
		SpeedLimitKph: w.SpeedLimitKph,
	}
	_, err = s.db.NewInsert().
		Model(seg).
		Value("geom", geomFromJSONExpr, gj, geo.SRID).
		Returning("street_id, created_at, updated_at").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("create street: %w", err)
	}
	return seg, nil
}

// UpdateStreet rewrites a street segment.
func (s *StreetService) UpdateStreet(ctx context.Context, id int64, w models.StreetWrite) (*models.StreetSegment, error) {
	if err := engine.ValidateGeometry(engine.EntityStreet, w.Geometry); err != nil {
		return nil, err
	}
	gj, err := encodeGeom(w.Geometry)
	if err != nil {
		return nil, err
	}

	seg := &models.StreetSegment{StreetID: id}
	res, err := s.db.NewUpdate().
		Model(seg).
		Set("name = ?", w.Name).
		Set("road_type = ?", w.RoadType).
		Set("speed_limit_kph = ?", w.SpeedLimitKph).
		Set("geom = "+geomFromJSONExpr, gj, geo.SRID).
		Set("updated_at = now()").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update street %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, engine.Errf(engine.ReferencedEntityNotFound, "street %d does not exist", id)
	}
	return seg, nil
}

// DeleteStreet removes a street segment.
func (s *StreetService) DeleteStreet(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().
		Model((*models.StreetSegment)(nil)).
		Where("street_id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete street %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.Errf(engine.ReferencedEntityNotFound, "street %d does not exist", id)
	}
	return nil
}

func streetProps(m *models.StreetSegment) map[string]any {
	props := map[string]any{
		"street_id": m.StreetID,
		"name":      m.Name,
		"road_type": m.RoadType,
	}
	if m.SpeedLimitKph != nil {
		props["speed_limit_kph"] = *m.SpeedLimitKph
	}
	return props
}
