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

// POIService owns points of interest, the destinations that accessibility
// analysis measures parking coverage against.
type POIService struct {
	db *bun.DB
}

func NewPOIService(db *bun.DB) *POIService {
	return &POIService{db: db}
}

type poiRow struct {
	models.PointOfInterest
	GeoJSON string `bun:"geojson"`
}

// ListPOIs returns points of interest as a FeatureCollection, optionally
// filtered by type.
func (s *POIService) ListPOIs(ctx context.Context, poiTypes []string) (*models.FeatureCollection, error) {
	q := s.db.NewSelect().
		Model((*models.PointOfInterest)(nil)).
		ColumnExpr("poi.*").
		ColumnExpr("ST_AsGeoJSON(poi.geom) AS geojson")
	if len(poiTypes) > 0 {
		q = q.Where("poi.poi_type IN (?)", bun.In(poiTypes))
	}
	var rows []poiRow
	if err := q.OrderExpr("poi.poi_id ASC").Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list pois: %w", err)
	}
	features := make([]models.Feature, 0, len(rows))
	for _, row := range rows {
		g, err := decodeGeom(row.GeoJSON)
		if err != nil {
			continue
		}
		features = append(features, models.NewFeature(g, poiProps(&row.PointOfInterest)))
	}
	return models.NewFeatureCollection(features), nil
}

// GetPOI returns one point of interest as a GeoJSON feature.
func (s *POIService) GetPOI(ctx context.Context, id int64) (*models.Feature, error) {
	var row poiRow
	err := s.db.NewSelect().
		Model((*models.PointOfInterest)(nil)).
		ColumnExpr("poi.*").
		ColumnExpr("ST_AsGeoJSON(poi.geom) AS geojson").
		Where("poi.poi_id = ?", id).
		Scan(ctx, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.Errf(engine.ReferencedEntityNotFound, "poi %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load poi %d: %w", id, err)
	}
	g, err := decodeGeom(row.GeoJSON)
	if err != nil {
		return nil, err
	}
	f := models.NewFeature(g, poiProps(&row.PointOfInterest))
	return &f, nil
}

// CreatePOI validates the point and inserts.
func (s *POIService) CreatePOI(ctx context.Context, w models.POIWrite) (*models.PointOfInterest, error) {
	if err := engine.ValidateGeometry(engine.EntityPOI, w.Geometry); err != nil {
		return nil, err
	}
	if w.Name == "" || w.POIType == "" {
		return nil, fmt.Errorf("poi name and poi_type are required")
	}
	gj, err := encodeGeom(w.Geometry)
	if err != nil {
		return nil, err
	}

	poi := &models.PointOfInterest{
		Name:    w.Name,
		POIType: w.POIType,
		Address: w.Address,
	}
	_, err = s.db.NewInsert().
		Model(poi).
		Value("geom", geomFromJSONExpr, gj, geo.SRID).
		Returning("poi_id, created_at").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("create poi: %w", err)
	}
	return poi, nil
}

// DeletePOI removes a point of interest.
func (s *POIService) DeletePOI(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().
		Model((*models.PointOfInterest)(nil)).
		Where("poi_id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete poi %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.Errf(engine.ReferencedEntityNotFound, "poi %d does not exist", id)
	}
	return nil
}

func poiProps(m *models.PointOfInterest) map[string]any {
	return map[string]any{
		"poi_id":   m.POIID,
		"name":     m.Name,
		"poi_type": m.POIType,
		"address":  m.Address,
	}
}
