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

// SensorService owns sensor persistence. Sensors tied to a bay must sit
// within the proximity tolerance of that bay; unassigned sensors only need a
// valid point.
type SensorService struct {
	db       *bun.DB
	enforcer *engine.Enforcer
}

func NewSensorService(db *bun.DB, enf *engine.Enforcer) *SensorService {
	return &SensorService{db: db, enforcer: enf}
}

type sensorRow struct {
	models.Sensor
	GeoJSON string `bun:"geojson"`
}

// ListSensors returns sensors as a FeatureCollection, optionally filtered by
// bay and active flag.
func (s *SensorService) ListSensors(ctx context.Context, bayID *int64, activeOnly bool) (*models.FeatureCollection, error) {
	q := s.db.NewSelect().
		Model((*models.Sensor)(nil)).
		ColumnExpr("s.*").
		ColumnExpr("ST_AsGeoJSON(s.geom) AS geojson")
	if bayID != nil {
		q = q.Where("s.bay_id = ?", *bayID)
	}
	if activeOnly {
		q = q.Where("s.is_active")
	}
	var rows []sensorRow
	if err := q.OrderExpr("s.sensor_id ASC").Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list sensors: %w", err)
	}
	features := make([]models.Feature, 0, len(rows))
	for _, row := range rows {
		g, err := decodeGeom(row.GeoJSON)
		if err != nil {
			continue
		}
		features = append(features, models.NewFeature(g, sensorProps(&row.Sensor)))
	}
	return models.NewFeatureCollection(features), nil
}

// GetSensor returns one sensor as a GeoJSON feature.
func (s *SensorService) GetSensor(ctx context.Context, id int64) (*models.Feature, error) {
	var row sensorRow
	err := s.db.NewSelect().
		Model((*models.Sensor)(nil)).
		ColumnExpr("s.*").
		ColumnExpr("ST_AsGeoJSON(s.geom) AS geojson").
		Where("s.sensor_id = ?", id).
		Scan(ctx, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.Errf(engine.ReferencedEntityNotFound, "sensor %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load sensor %d: %w", id, err)
	}
	g, err := decodeGeom(row.GeoJSON)
	if err != nil {
		return nil, err
	}
	f := models.NewFeature(g, sensorProps(&row.Sensor))
	return &f, nil
}

// CreateSensor validates the point and, when a bay is referenced, checks the
// proximity invariant against it inside the insert transaction.
func (s *SensorService) CreateSensor(ctx context.Context, w models.SensorWrite) (*models.Sensor, error) {
	if err := engine.ValidateGeometry(engine.EntitySensor, w.Geometry); err != nil {
		return nil, err
	}
	gj, err := encodeGeom(w.Geometry)
	if err != nil {
		return nil, err
	}

	active := true
	if w.IsActive != nil {
		active = *w.IsActive
	}
	sensor := &models.Sensor{
		BayID:               w.BayID,
		SensorType:          w.SensorType,
		IsActive:            active,
		BatteryLevelPercent: w.BatteryLevelPercent,
	}
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if w.BayID != nil {
			bayGeom, err := loadBayGeom(ctx, tx, *w.BayID)
			if err != nil {
				return err
			}
			if err := s.enforcer.CheckSensorNearBay(w.Geometry, bayGeom); err != nil {
				return err
			}
		}
		_, err := tx.NewInsert().
			Model(sensor).
			Value("geom", geomFromJSONExpr, gj, geo.SRID).
			Returning("sensor_id, created_at, updated_at").
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sensor, nil
}

// UpdateSensor rewrites a sensor, re-running the proximity check against the
// (possibly new) bay reference.
func (s *SensorService) UpdateSensor(ctx context.Context, id int64, w models.SensorWrite) (*models.Sensor, error) {
	if err := engine.ValidateGeometry(engine.EntitySensor, w.Geometry); err != nil {
		return nil, err
	}
	gj, err := encodeGeom(w.Geometry)
	if err != nil {
		return nil, err
	}

	sensor := &models.Sensor{SensorID: id}
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.Sensor)(nil)).
			Where("s.sensor_id = ?", id).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("load sensor %d: %w", id, err)
		}
		if !exists {
			return engine.Errf(engine.ReferencedEntityNotFound, "sensor %d does not exist", id)
		}
		if w.BayID != nil {
			bayGeom, err := loadBayGeom(ctx, tx, *w.BayID)
			if err != nil {
				return err
			}
			if err := s.enforcer.CheckSensorNearBay(w.Geometry, bayGeom); err != nil {
				return err
			}
		}

		q := tx.NewUpdate().
			Model(sensor).
			Set("bay_id = ?", w.BayID).
			Set("sensor_type = ?", w.SensorType).
			Set("battery_level_percent = ?", w.BatteryLevelPercent).
			Set("geom = "+geomFromJSONExpr, gj, geo.SRID).
			Set("updated_at = now()").
			WherePK()
		if w.IsActive != nil {
			q = q.Set("is_active = ?", *w.IsActive)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("update sensor %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sensor, nil
}

// DeleteSensor removes a sensor.
func (s *SensorService) DeleteSensor(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().
		Model((*models.Sensor)(nil)).
		Where("sensor_id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete sensor %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.Errf(engine.ReferencedEntityNotFound, "sensor %d does not exist", id)
	}
	return nil
}

func sensorProps(m *models.Sensor) map[string]any {
	props := map[string]any{
		"sensor_id":   m.SensorID,
		"sensor_type": m.SensorType,
		"is_active":   m.IsActive,
	}
	if m.BayID != nil {
		props["bay_id"] = *m.BayID
	}
	if m.BatteryLevelPercent != nil {
		props["battery_level_percent"] = *m.BatteryLevelPercent
	}
	return props
}
