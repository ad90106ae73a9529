package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"parking-bknd/internal/engine"
	"parking-bknd/internal/geo"
	"parking-bknd/internal/models"

	"github.com/uptrace/bun"
)

// ZoneService owns parking-zone persistence and the bay layout workflow.
// Every geometry-touching write runs inside one transaction together with all
// invariant checks, so no check ever observes a half-written state.
type ZoneService struct {
	db        *bun.DB
	enforcer  *engine.Enforcer
	generator *engine.Generator

	// Bay generation is serialized per zone to avoid duplicate-insert races
	// between concurrent re-synchronization calls.
	genLocks sync.Map // zoneID → *sync.Mutex
}

func NewZoneService(db *bun.DB, enf *engine.Enforcer, gen *engine.Generator) *ZoneService {
	return &ZoneService{db: db, enforcer: enf, generator: gen}
}

type zoneRow struct {
	models.ParkingZone
	GeoJSON string `bun:"geojson"`
}

func (s *ZoneService) selectZones() *bun.SelectQuery {
	return s.db.NewSelect().
		Model((*models.ParkingZone)(nil)).
		ColumnExpr("pz.*").
		ColumnExpr("ST_AsGeoJSON(pz.geom) AS geojson")
}

// ListZones returns zones as a GeoJSON FeatureCollection, optionally filtered
// by zone type and active flag.
func (s *ZoneService) ListZones(ctx context.Context, zoneTypes []string, activeOnly bool) (*models.FeatureCollection, error) {
	q := s.selectZones()
	if len(zoneTypes) > 0 {
		q = q.Where("pz.zone_type IN (?)", bun.In(zoneTypes))
	}
	if activeOnly {
		q = q.Where("pz.is_active")
	}
	var rows []zoneRow
	if err := q.OrderExpr("pz.zone_id ASC").Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}

	features := make([]models.Feature, 0, len(rows))
	for _, row := range rows {
		g, err := decodeGeom(row.GeoJSON)
		if err != nil {
			continue
		}
		features = append(features, models.NewFeature(g, zoneProps(&row.ParkingZone)))
	}
	return models.NewFeatureCollection(features), nil
}

// GetZone returns one zone as a GeoJSON feature.
func (s *ZoneService) GetZone(ctx context.Context, id int64) (*models.Feature, error) {
	row, err := s.loadZone(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	g, err := decodeGeom(row.GeoJSON)
	if err != nil {
		return nil, err
	}
	f := models.NewFeature(g, zoneProps(&row.ParkingZone))
	return &f, nil
}

func (s *ZoneService) loadZone(ctx context.Context, db bun.IDB, id int64) (*zoneRow, error) {
	var row zoneRow
	err := db.NewSelect().
		Model((*models.ParkingZone)(nil)).
		ColumnExpr("pz.*").
		ColumnExpr("ST_AsGeoJSON(pz.geom) AS geojson").
		Where("pz.zone_id = ?", id).
		Scan(ctx, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.Errf(engine.ReferencedEntityNotFound, "zone %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load zone %d: %w", id, err)
	}
	return &row, nil
}

// CreateZone validates the polygon and inserts the zone.
func (s *ZoneService) CreateZone(ctx context.Context, w models.ZoneWrite) (*models.ParkingZone, error) {
	if !models.ValidZoneType(w.ZoneType) {
		return nil, fmt.Errorf("invalid zone type %q", w.ZoneType)
	}
	if err := engine.ValidateGeometry(engine.EntityZone, w.Geometry); err != nil {
		return nil, err
	}
	gj, err := encodeGeom(w.Geometry)
	if err != nil {
		return nil, err
	}

	zone := &models.ParkingZone{
		Name:     w.Name,
		ZoneType: w.ZoneType,
		Capacity: w.Capacity,
		IsActive: w.IsActive == nil || *w.IsActive,
	}
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(zone).
			Value("geom", geomFromJSONExpr, gj, geo.SRID).
			Returning("zone_id, created_at, updated_at").
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create zone: %w", err)
	}
	return zone, nil
}

// UpdateZone rewrites a zone. A geometry change re-validates every dependent
// bay against the new boundary inside the same transaction; one failing bay
// aborts the whole update.
func (s *ZoneService) UpdateZone(ctx context.Context, id int64, w models.ZoneWrite) (*models.ParkingZone, error) {
	if !models.ValidZoneType(w.ZoneType) {
		return nil, fmt.Errorf("invalid zone type %q", w.ZoneType)
	}
	if err := engine.ValidateGeometry(engine.EntityZone, w.Geometry); err != nil {
		return nil, err
	}
	gj, err := encodeGeom(w.Geometry)
	if err != nil {
		return nil, err
	}

	zone := &models.ParkingZone{ZoneID: id}
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.loadZone(ctx, tx, id); err != nil {
			return err
		}

		q := tx.NewUpdate().
			Model(zone).
			Set("name = ?", w.Name).
			Set("zone_type = ?", w.ZoneType).
			Set("capacity = ?", w.Capacity).
			Set("geom = "+geomFromJSONExpr, gj, geo.SRID).
			Set("updated_at = now()").
			WherePK()
		if w.IsActive != nil {
			q = q.Set("is_active = ?", *w.IsActive)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("update zone %d: %w", id, err)
		}

		// Cascading re-check: the new boundary must still hold every bay.
		bays, err := loadBayGeoms(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, bay := range bays {
			if err := s.enforcer.CheckBayInZone(bay.geom, w.Geometry); err != nil {
				return fmt.Errorf("bay %d no longer fits zone %d: %w", bay.id, id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return zone, nil
}

// DeleteZone removes a zone and its bays (FK cascade).
func (s *ZoneService) DeleteZone(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().
		Model((*models.ParkingZone)(nil)).
		Where("zone_id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete zone %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.Errf(engine.ReferencedEntityNotFound, "zone %d does not exist", id)
	}
	return nil
}

type bayGeom struct {
	id   int64
	geom geo.Geometry
}

func loadBayGeoms(ctx context.Context, db bun.IDB, zoneID int64) ([]bayGeom, error) {
	var rows []struct {
		BayID   int64  `bun:"bay_id"`
		GeoJSON string `bun:"geojson"`
	}
	err := db.NewSelect().
		Model((*models.ParkingBay)(nil)).
		Column("pb.bay_id").
		ColumnExpr("ST_AsGeoJSON(pb.geom) AS geojson").
		Where("pb.zone_id = ?", zoneID).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("load bays of zone %d: %w", zoneID, err)
	}
	out := make([]bayGeom, 0, len(rows))
	for _, r := range rows {
		g, err := decodeGeom(r.GeoJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, bayGeom{id: r.BayID, geom: g})
	}
	return out, nil
}

// GenerateBays synthesizes bays for a zone and persists them. Every generated
// bay goes through the same validation and containment checks as a manual
// one; generation never bypasses the invariants. With clearExisting, bays
// from a previous generation run are dropped first (re-synchronization).
func (s *ZoneService) GenerateBays(ctx context.Context, zoneID int64, clearExisting bool) ([]models.ParkingBay, error) {
	lock, _ := s.genLocks.LoadOrStore(zoneID, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	row, err := s.loadZone(ctx, s.db, zoneID)
	if err != nil {
		return nil, err
	}
	zoneGeom, err := decodeGeom(row.GeoJSON)
	if err != nil {
		return nil, err
	}

	generated := s.generator.GenerateBays(row.Name, row.ZoneType, zoneGeom, row.Capacity)

	var inserted []models.ParkingBay
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if clearExisting {
			_, err := tx.NewDelete().
				Model((*models.ParkingBay)(nil)).
				Where("zone_id = ? AND generated", zoneID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("clear generated bays: %w", err)
			}
		}
		for _, gb := range generated {
			if err := engine.ValidateGeometry(engine.EntityBay, gb.Geometry); err != nil {
				return err
			}
			if err := s.enforcer.CheckBayInZone(gb.Geometry, zoneGeom); err != nil {
				return err
			}
			gj, err := encodeGeom(gb.Geometry)
			if err != nil {
				return err
			}
			bay := models.ParkingBay{
				ZoneID:         zoneID,
				BayNumber:      gb.Number,
				IsDisabledOnly: gb.Accessible,
				IsElectric:     gb.Electric,
				Status:         models.BayStatusAvailable,
				Source:         row.Source,
				Generated:      true,
			}
			_, err = tx.NewInsert().
				Model(&bay).
				Value("geom", geomFromJSONExpr, gj, geo.SRID).
				Returning("bay_id, created_at, updated_at, last_status_update").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("insert generated bay %s: %w", gb.Number, err)
			}
			inserted = append(inserted, bay)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// Occupancy returns per-status bay counts for one zone, with the percentage
// computed over non-closed bays.
func (s *ZoneService) Occupancy(ctx context.Context, zoneID int64) (*engine.Occupancy, error) {
	if _, err := s.loadZone(ctx, s.db, zoneID); err != nil {
		return nil, err
	}
	var rows []struct {
		BayID  int64  `bun:"bay_id"`
		Status string `bun:"status"`
	}
	err := s.db.NewSelect().
		Model((*models.ParkingBay)(nil)).
		Column("pb.bay_id", "pb.status").
		Where("pb.zone_id = ?", zoneID).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("zone %d occupancy: %w", zoneID, err)
	}
	features := make([]engine.Feature, 0, len(rows))
	for _, r := range rows {
		features = append(features, engine.Feature{
			ID:    r.BayID,
			Kind:  engine.EntityBay,
			Props: map[string]string{"status": r.Status},
		})
	}
	occ := engine.ZoneOccupancy(features)
	return &occ, nil
}

// ContainingZones returns all zones whose polygon contains the point.
func (s *ZoneService) ContainingZones(ctx context.Context, p geo.Point) (*models.FeatureCollection, error) {
	q := s.selectZones().Where("pz.is_active")
	var rows []zoneRow
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("containing zones: %w", err)
	}

	features := make([]engine.Feature, 0, len(rows))
	byID := make(map[int64]*zoneRow, len(rows))
	for i := range rows {
		g, err := decodeGeom(rows[i].GeoJSON)
		if err != nil {
			continue
		}
		features = append(features, engine.Feature{ID: rows[i].ZoneID, Kind: engine.EntityZone, Geometry: g})
		byID[rows[i].ZoneID] = &rows[i]
	}

	qe := engine.NewQueryEngine(features, nil)
	var out []models.Feature
	for _, f := range qe.ContainingZones(p) {
		out = append(out, models.NewFeature(f.Geometry, zoneProps(&byID[f.ID].ParkingZone)))
	}
	return models.NewFeatureCollection(out), nil
}

func zoneProps(z *models.ParkingZone) map[string]any {
	props := map[string]any{
		"zone_id":   z.ZoneID,
		"name":      z.Name,
		"zone_type": z.ZoneType,
		"is_active": z.IsActive,
		"source":    z.Source,
	}
	if z.Capacity != nil {
		props["capacity"] = *z.Capacity
	}
	return props
}
