package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parking-bknd/internal/engine"
	"parking-bknd/internal/geo"
	"parking-bknd/internal/models"
	"parking-bknd/internal/spatialindex"

	"github.com/uptrace/bun"
)

// BayService owns parking-bay persistence: validated writes, the atomic
// status check-and-set used by the session-lifecycle collaborator, and the
// bay-side spatial queries.
type BayService struct {
	db       *bun.DB
	enforcer *engine.Enforcer
}

func NewBayService(db *bun.DB, enf *engine.Enforcer) *BayService {
	return &BayService{db: db, enforcer: enf}
}

type bayRow struct {
	models.ParkingBay
	GeoJSON string `bun:"geojson"`
}

func (s *BayService) selectBays() *bun.SelectQuery {
	return s.db.NewSelect().
		Model((*models.ParkingBay)(nil)).
		ColumnExpr("pb.*").
		ColumnExpr("ST_AsGeoJSON(pb.geom) AS geojson")
}

// ListBays returns bays as a FeatureCollection, filtered by zone and status.
func (s *BayService) ListBays(ctx context.Context, zoneID *int64, statuses []string) (*models.FeatureCollection, error) {
	q := s.selectBays()
	if zoneID != nil {
		q = q.Where("pb.zone_id = ?", *zoneID)
	}
	if len(statuses) > 0 {
		q = q.Where("pb.status IN (?)", bun.In(statuses))
	}
	var rows []bayRow
	if err := q.OrderExpr("pb.bay_id ASC").Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list bays: %w", err)
	}
	features := make([]models.Feature, 0, len(rows))
	for _, row := range rows {
		g, err := decodeGeom(row.GeoJSON)
		if err != nil {
			continue
		}
		features = append(features, models.NewFeature(g, bayProps(&row.ParkingBay)))
	}
	return models.NewFeatureCollection(features), nil
}

// GetBay returns one bay as a GeoJSON feature.
func (s *BayService) GetBay(ctx context.Context, id int64) (*models.Feature, error) {
	row, err := s.loadBay(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	g, err := decodeGeom(row.GeoJSON)
	if err != nil {
		return nil, err
	}
	f := models.NewFeature(g, bayProps(&row.ParkingBay))
	return &f, nil
}

func (s *BayService) loadBay(ctx context.Context, db bun.IDB, id int64) (*bayRow, error) {
	var row bayRow
	err := db.NewSelect().
		Model((*models.ParkingBay)(nil)).
		ColumnExpr("pb.*").
		ColumnExpr("ST_AsGeoJSON(pb.geom) AS geojson").
		Where("pb.bay_id = ?", id).
		Scan(ctx, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.Errf(engine.ReferencedEntityNotFound, "bay %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load bay %d: %w", id, err)
	}
	return &row, nil
}

// CreateBay validates the polygon, checks containment against the parent
// zone, and inserts, all in one transaction.
func (s *BayService) CreateBay(ctx context.Context, w models.BayWrite) (*models.ParkingBay, error) {
	if err := engine.ValidateGeometry(engine.EntityBay, w.Geometry); err != nil {
		return nil, err
	}
	status := w.Status
	if status == "" {
		status = models.BayStatusAvailable
	}
	if !models.ValidBayStatus(status) {
		return nil, fmt.Errorf("invalid bay status %q", status)
	}
	gj, err := encodeGeom(w.Geometry)
	if err != nil {
		return nil, err
	}

	bay := &models.ParkingBay{
		ZoneID:         w.ZoneID,
		BayNumber:      w.BayNumber,
		IsDisabledOnly: w.IsDisabledOnly,
		IsElectric:     w.IsElectric,
		Status:         status,
	}
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		zoneGeom, err := loadZoneGeom(ctx, tx, w.ZoneID)
		if err != nil {
			return err
		}
		if err := s.enforcer.CheckBayInZone(w.Geometry, zoneGeom); err != nil {
			return err
		}
		_, err = tx.NewInsert().
			Model(bay).
			Value("geom", geomFromJSONExpr, gj, geo.SRID).
			Returning("bay_id, created_at, updated_at, last_status_update").
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bay, nil
}

// UpdateBay rewrites a bay. Geometry or zone changes re-run the containment
// invariant and re-validate every dependent sensor and violation in the same
// transaction.
func (s *BayService) UpdateBay(ctx context.Context, id int64, w models.BayWrite) (*models.ParkingBay, error) {
	if err := engine.ValidateGeometry(engine.EntityBay, w.Geometry); err != nil {
		return nil, err
	}
	gj, err := encodeGeom(w.Geometry)
	if err != nil {
		return nil, err
	}

	bay := &models.ParkingBay{BayID: id}
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.loadBay(ctx, tx, id); err != nil {
			return err
		}
		zoneGeom, err := loadZoneGeom(ctx, tx, w.ZoneID)
		if err != nil {
			return err
		}
		if err := s.enforcer.CheckBayInZone(w.Geometry, zoneGeom); err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model(bay).
			Set("zone_id = ?", w.ZoneID).
			Set("bay_number = ?", w.BayNumber).
			Set("is_disabled_only = ?", w.IsDisabledOnly).
			Set("is_electric = ?", w.IsElectric).
			Set("geom = "+geomFromJSONExpr, gj, geo.SRID).
			Set("updated_at = now()").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update bay %d: %w", id, err)
		}

		// Dependent sensors must still sit on or near the new polygon.
		sensorPts, err := loadSensorPoints(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, sp := range sensorPts {
			if err := s.enforcer.CheckSensorNearBay(sp.geom, w.Geometry); err != nil {
				return fmt.Errorf("sensor %d invalidated by bay %d edit: %w", sp.id, id, err)
			}
		}

		// Same for issued violations.
		violationPts, err := loadViolationPoints(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, vp := range violationPts {
			if err := s.enforcer.CheckViolationInBay(vp.geom, w.Geometry); err != nil {
				return fmt.Errorf("violation %d invalidated by bay %d edit: %w", vp.id, id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bay, nil
}

// SetStatus is the atomic check-and-set for bay status: the update applies
// only when the current status equals expected, so exactly one of two racing
// transitions wins and the loser gets a StatusConflict.
func (s *BayService) SetStatus(ctx context.Context, id int64, change models.BayStatusChange) error {
	if !models.ValidBayStatus(change.New) {
		return fmt.Errorf("invalid bay status %q", change.New)
	}
	if !models.ValidBayStatus(change.Expected) {
		return fmt.Errorf("invalid expected status %q", change.Expected)
	}

	res, err := s.db.NewUpdate().
		Model((*models.ParkingBay)(nil)).
		Set("status = ?", change.New).
		Set("last_status_update = now()").
		Set("updated_at = now()").
		Where("bay_id = ?", id).
		Where("status = ?", change.Expected).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set bay %d status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either the bay is missing or another writer moved the status first.
		exists, err := s.db.NewSelect().
			Model((*models.ParkingBay)(nil)).
			Where("bay_id = ?", id).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("set bay %d status: %w", id, err)
		}
		if !exists {
			return engine.Errf(engine.ReferencedEntityNotFound, "bay %d does not exist", id)
		}
		return engine.Errf(engine.StatusConflict,
			"bay %d is not %q anymore", id, change.Expected)
	}
	return nil
}

// Nearby returns bays within radiusM meters of the center, sorted ascending
// by distance, optionally restricted to one status. The grid index narrows
// candidates; the query engine re-checks every hit exactly.
func (s *BayService) Nearby(ctx context.Context, center geo.Point, radiusM float64, status string) (*models.FeatureCollection, error) {
	q := s.selectBays()
	if status != "" {
		if !models.ValidBayStatus(status) {
			return nil, fmt.Errorf("invalid bay status %q", status)
		}
	}
	var rows []bayRow
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("nearby bays: %w", err)
	}

	idx := spatialindex.NewGrid(100, center.Lat)
	features := make([]engine.Feature, 0, len(rows))
	byID := make(map[int64]*bayRow, len(rows))
	for i := range rows {
		g, err := decodeGeom(rows[i].GeoJSON)
		if err != nil {
			continue
		}
		f := engine.Feature{
			ID:       rows[i].BayID,
			Kind:     engine.EntityBay,
			Geometry: g,
			Props:    map[string]string{"status": rows[i].Status},
		}
		features = append(features, f)
		byID[f.ID] = &rows[i]
		idx.Insert(f.ID, f.RepresentativePoint())
	}

	qe := engine.NewQueryEngine(features, idx)
	filters := map[string]string{}
	if status != "" {
		filters["status"] = status
	}

	var out []models.Feature
	for _, m := range qe.WithinRadius(engine.EntityBay, center, radiusM, filters) {
		props := bayProps(&byID[m.Feature.ID].ParkingBay)
		props["distance_meters"] = round2(m.DistanceM)
		out = append(out, models.NewFeature(m.Feature.Geometry, props))
	}
	return models.NewFeatureCollection(out), nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func loadZoneGeom(ctx context.Context, db bun.IDB, zoneID int64) (geo.Geometry, error) {
	var row struct {
		GeoJSON string `bun:"geojson"`
	}
	err := db.NewSelect().
		Model((*models.ParkingZone)(nil)).
		ColumnExpr("ST_AsGeoJSON(pz.geom) AS geojson").
		Where("pz.zone_id = ?", zoneID).
		Scan(ctx, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return geo.Geometry{}, engine.Errf(engine.ReferencedEntityNotFound, "zone %d does not exist", zoneID)
	}
	if err != nil {
		return geo.Geometry{}, fmt.Errorf("load zone %d geometry: %w", zoneID, err)
	}
	return decodeGeom(row.GeoJSON)
}

func loadBayGeom(ctx context.Context, db bun.IDB, bayID int64) (geo.Geometry, error) {
	var row struct {
		GeoJSON string `bun:"geojson"`
	}
	err := db.NewSelect().
		Model((*models.ParkingBay)(nil)).
		ColumnExpr("ST_AsGeoJSON(pb.geom) AS geojson").
		Where("pb.bay_id = ?", bayID).
		Scan(ctx, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return geo.Geometry{}, engine.Errf(engine.ReferencedEntityNotFound, "bay %d does not exist", bayID)
	}
	if err != nil {
		return geo.Geometry{}, fmt.Errorf("load bay %d geometry: %w", bayID, err)
	}
	return decodeGeom(row.GeoJSON)
}

type pointRef struct {
	id   int64
	geom geo.Geometry
}

func loadSensorPoints(ctx context.Context, db bun.IDB, bayID int64) ([]pointRef, error) {
	var rows []struct {
		SensorID int64  `bun:"sensor_id"`
		GeoJSON  string `bun:"geojson"`
	}
	err := db.NewSelect().
		Model((*models.Sensor)(nil)).
		Column("s.sensor_id").
		ColumnExpr("ST_AsGeoJSON(s.geom) AS geojson").
		Where("s.bay_id = ?", bayID).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("load sensors of bay %d: %w", bayID, err)
	}
	out := make([]pointRef, 0, len(rows))
	for _, r := range rows {
		g, err := decodeGeom(r.GeoJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, pointRef{id: r.SensorID, geom: g})
	}
	return out, nil
}

func loadViolationPoints(ctx context.Context, db bun.IDB, bayID int64) ([]pointRef, error) {
	var rows []struct {
		ViolationID int64  `bun:"violation_id"`
		GeoJSON     string `bun:"geojson"`
	}
	err := db.NewSelect().
		Model((*models.Violation)(nil)).
		Column("v.violation_id").
		ColumnExpr("ST_AsGeoJSON(v.geom) AS geojson").
		Where("v.bay_id = ?", bayID).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("load violations of bay %d: %w", bayID, err)
	}
	out := make([]pointRef, 0, len(rows))
	for _, r := range rows {
		g, err := decodeGeom(r.GeoJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, pointRef{id: r.ViolationID, geom: g})
	}
	return out, nil
}

func bayProps(b *models.ParkingBay) map[string]any {
	return map[string]any{
		"bay_id":           b.BayID,
		"zone_id":          b.ZoneID,
		"bay_number":       b.BayNumber,
		"status":           b.Status,
		"is_disabled_only": b.IsDisabledOnly,
		"is_electric":      b.IsElectric,
		"generated":        b.Generated,
	}
}
