package services

import (
	"context"
	"fmt"
	"math"

	"parking-bknd/internal/engine"
	"parking-bknd/internal/geo"
	"parking-bknd/internal/models"
	"parking-bknd/internal/spatialindex"

	"github.com/uptrace/bun"
)

// AnalysisService computes read-only spatial analytics over snapshots of the
// stored entities. All geometry math runs in the engine; the database only
// supplies rows.
type AnalysisService struct {
	db *bun.DB
}

func NewAnalysisService(db *bun.DB) *AnalysisService {
	return &AnalysisService{db: db}
}

// OccupancyHeatmap returns one feature per active zone, carrying the zone
// polygon and its occupancy breakdown, ready for choropleth rendering.
func (s *AnalysisService) OccupancyHeatmap(ctx context.Context) (*models.FeatureCollection, error) {
	zones, err := s.loadZoneRows(ctx)
	if err != nil {
		return nil, err
	}
	baysByZone, err := s.bayFeaturesByZone(ctx)
	if err != nil {
		return nil, err
	}

	features := make([]models.Feature, 0, len(zones))
	for _, z := range zones {
		g, err := decodeGeom(z.GeoJSON)
		if err != nil {
			continue
		}
		occ := engine.ZoneOccupancy(baysByZone[z.ZoneID])
		features = append(features, models.NewFeature(g, map[string]any{
			"zone_id":           z.ZoneID,
			"name":              z.Name,
			"zone_type":         z.ZoneType,
			"total_bays":        occ.Total,
			"occupied_bays":     occ.Occupied,
			"occupancy_percent": occ.OccupancyPercent,
			"intensity":         occ.OccupancyPercent / 100,
		}))
	}
	return models.NewFeatureCollection(features), nil
}

// OccupancyGrid aggregates bay occupancy into square cells of the given size
// over the covered extent.
func (s *AnalysisService) OccupancyGrid(ctx context.Context, cellSizeM float64) (*models.FeatureCollection, error) {
	if cellSizeM <= 0 {
		cellSizeM = 100
	}
	bays, err := s.loadBayFeatures(ctx)
	if err != nil {
		return nil, err
	}
	qe := engine.NewQueryEngine(bays, nil)
	box, ok := featureExtent(bays)
	if !ok {
		return models.NewFeatureCollection(nil), nil
	}
	cells := qe.GridAggregate(box.Expand(cellSizeM/2), cellSizeM, engine.EntityBay, engine.OccupancyAggregator)
	return gridToCollection(cells), nil
}

// ViolationHotspots aggregates violation counts into square cells, largest
// counts first by construction of the aggregator props.
func (s *AnalysisService) ViolationHotspots(ctx context.Context, cellSizeM float64) (*models.FeatureCollection, error) {
	if cellSizeM <= 0 {
		cellSizeM = 100
	}
	var rows []struct {
		ViolationID int64  `bun:"violation_id"`
		GeoJSON     string `bun:"geojson"`
	}
	err := s.db.NewSelect().
		Model((*models.Violation)(nil)).
		Column("v.violation_id").
		ColumnExpr("ST_AsGeoJSON(v.geom) AS geojson").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("load violations: %w", err)
	}
	features := make([]engine.Feature, 0, len(rows))
	for _, r := range rows {
		g, err := decodeGeom(r.GeoJSON)
		if err != nil {
			continue
		}
		features = append(features, engine.Feature{
			ID:       r.ViolationID,
			Kind:     engine.EntityViolation,
			Geometry: g,
		})
	}
	qe := engine.NewQueryEngine(features, nil)
	box, ok := featureExtent(features)
	if !ok {
		return models.NewFeatureCollection(nil), nil
	}
	cells := qe.GridAggregate(box.Expand(cellSizeM/2), cellSizeM, engine.EntityViolation, engine.ViolationCountAggregator)
	return gridToCollection(cells), nil
}

// AccessibilityReport describes parking coverage around a destination point.
type AccessibilityReport struct {
	Center            geo.Point `json:"center"`
	RadiusMeters      float64   `json:"radius_meters"`
	TotalBays         int       `json:"total_bays"`
	AvailableBays     int       `json:"available_bays"`
	AccessibleBays    int       `json:"accessible_bays"`
	ElectricBays      int       `json:"electric_bays"`
	NearestAvailableM float64   `json:"nearest_available_meters"`
	MeanDistanceM     float64   `json:"mean_distance_meters"`
}

// Accessibility measures bay coverage within radiusM of a destination.
// NearestAvailableM is -1 when no available bay is in range.
func (s *AnalysisService) Accessibility(ctx context.Context, center geo.Point, radiusM float64) (*AccessibilityReport, error) {
	if radiusM <= 0 {
		radiusM = 400
	}
	bays, err := s.loadBayFeatures(ctx)
	if err != nil {
		return nil, err
	}

	idx := spatialindex.NewGrid(100, center.Lat)
	for _, f := range bays {
		idx.Insert(f.ID, f.RepresentativePoint())
	}
	qe := engine.NewQueryEngine(bays, idx)
	matches := qe.WithinRadius(engine.EntityBay, center, radiusM, nil)

	report := &AccessibilityReport{
		Center:            center,
		RadiusMeters:      radiusM,
		NearestAvailableM: -1,
	}
	var sum float64
	for _, m := range matches {
		report.TotalBays++
		sum += m.DistanceM
		if m.Feature.Props["status"] == models.BayStatusAvailable {
			report.AvailableBays++
			if report.NearestAvailableM < 0 {
				// Matches come back sorted ascending by distance.
				report.NearestAvailableM = math.Round(m.DistanceM*10) / 10
			}
		}
		if m.Feature.Props["accessible"] == "true" {
			report.AccessibleBays++
		}
		if m.Feature.Props["electric"] == "true" {
			report.ElectricBays++
		}
	}
	if report.TotalBays > 0 {
		report.MeanDistanceM = math.Round(sum/float64(report.TotalBays)*10) / 10
	}
	return report, nil
}

// ZoneOccupancySummary pairs a zone with its occupancy tallies.
type ZoneOccupancySummary struct {
	ZoneID   int64  `json:"zone_id"`
	ZoneName string `json:"zone_name"`
	engine.Occupancy
}

// Dashboard is the headline-number summary for the operations view.
type Dashboard struct {
	Zones           int                    `json:"zones"`
	Bays            int                    `json:"bays"`
	Sensors         int                    `json:"sensors"`
	Terminals       int                    `json:"terminals"`
	OpenViolations  int                    `json:"violations"`
	BaysByStatus    map[string]int         `json:"bays_by_status"`
	OccupancyByZone []ZoneOccupancySummary `json:"occupancy_by_zone"`
}

// DashboardSummary gathers entity counts and per-zone occupancy.
func (s *AnalysisService) DashboardSummary(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{BaysByStatus: map[string]int{}}

	var err error
	if d.Zones, err = s.db.NewSelect().Model((*models.ParkingZone)(nil)).Count(ctx); err != nil {
		return nil, fmt.Errorf("count zones: %w", err)
	}
	if d.Sensors, err = s.db.NewSelect().Model((*models.Sensor)(nil)).Count(ctx); err != nil {
		return nil, fmt.Errorf("count sensors: %w", err)
	}
	if d.Terminals, err = s.db.NewSelect().Model((*models.PaymentTerminal)(nil)).Count(ctx); err != nil {
		return nil, fmt.Errorf("count terminals: %w", err)
	}
	if d.OpenViolations, err = s.db.NewSelect().Model((*models.Violation)(nil)).Count(ctx); err != nil {
		return nil, fmt.Errorf("count violations: %w", err)
	}

	baysByZone, err := s.bayFeaturesByZone(ctx)
	if err != nil {
		return nil, err
	}
	zones, err := s.loadZoneRows(ctx)
	if err != nil {
		return nil, err
	}
	for _, z := range zones {
		d.OccupancyByZone = append(d.OccupancyByZone, ZoneOccupancySummary{
			ZoneID:    z.ZoneID,
			ZoneName:  z.Name,
			Occupancy: engine.ZoneOccupancy(baysByZone[z.ZoneID]),
		})
	}
	for _, bays := range baysByZone {
		for _, f := range bays {
			d.Bays++
			d.BaysByStatus[f.Props["status"]]++
		}
	}
	return d, nil
}

func gridToCollection(cells []engine.CellSummary) *models.FeatureCollection {
	features := make([]models.Feature, 0, len(cells))
	for _, c := range cells {
		props := map[string]any{
			"row":   c.Row,
			"col":   c.Col,
			"count": c.Count,
		}
		for k, v := range c.Props {
			props[k] = v
		}
		features = append(features, models.NewFeature(c.Polygon, props))
	}
	return models.NewFeatureCollection(features)
}

type zoneSummaryRow struct {
	ZoneID   int64  `bun:"zone_id"`
	Name     string `bun:"name"`
	ZoneType string `bun:"zone_type"`
	GeoJSON  string `bun:"geojson"`
}

func (s *AnalysisService) loadZoneRows(ctx context.Context) ([]zoneSummaryRow, error) {
	var rows []zoneSummaryRow
	err := s.db.NewSelect().
		Model((*models.ParkingZone)(nil)).
		Column("pz.zone_id", "pz.name", "pz.zone_type").
		ColumnExpr("ST_AsGeoJSON(pz.geom) AS geojson").
		Where("pz.is_active").
		OrderExpr("pz.zone_id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("load zones: %w", err)
	}
	return rows, nil
}

func (s *AnalysisService) bayFeaturesByZone(ctx context.Context) (map[int64][]engine.Feature, error) {
	var rows []struct {
		BayID  int64  `bun:"bay_id"`
		ZoneID int64  `bun:"zone_id"`
		Status string `bun:"status"`
	}
	err := s.db.NewSelect().
		Model((*models.ParkingBay)(nil)).
		Column("pb.bay_id", "pb.zone_id", "pb.status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("load bay statuses: %w", err)
	}
	out := make(map[int64][]engine.Feature)
	for _, r := range rows {
		out[r.ZoneID] = append(out[r.ZoneID], engine.Feature{
			ID:    r.BayID,
			Kind:  engine.EntityBay,
			Props: map[string]string{"status": r.Status},
		})
	}
	return out, nil
}

// featureExtent returns the bounding box of all representative points.
func featureExtent(features []engine.Feature) (geo.BBox, bool) {
	if len(features) == 0 {
		return geo.BBox{}, false
	}
	p := features[0].RepresentativePoint()
	box := geo.BBox{MinLon: p.Lon, MinLat: p.Lat, MaxLon: p.Lon, MaxLat: p.Lat}
	for _, f := range features[1:] {
		rp := f.RepresentativePoint()
		box.MinLon = math.Min(box.MinLon, rp.Lon)
		box.MinLat = math.Min(box.MinLat, rp.Lat)
		box.MaxLon = math.Max(box.MaxLon, rp.Lon)
		box.MaxLat = math.Max(box.MaxLat, rp.Lat)
	}
	return box, true
}

func (s *AnalysisService) loadBayFeatures(ctx context.Context) ([]engine.Feature, error) {
	var rows []struct {
		BayID          int64  `bun:"bay_id"`
		Status         string `bun:"status"`
		IsDisabledOnly bool   `bun:"is_disabled_only"`
		IsElectric     bool   `bun:"is_electric"`
		GeoJSON        string `bun:"geojson"`
	}
	err := s.db.NewSelect().
		Model((*models.ParkingBay)(nil)).
		Column("pb.bay_id", "pb.status", "pb.is_disabled_only", "pb.is_electric").
		ColumnExpr("ST_AsGeoJSON(pb.geom) AS geojson").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("load bays: %w", err)
	}
	features := make([]engine.Feature, 0, len(rows))
	for _, r := range rows {
		g, err := decodeGeom(r.GeoJSON)
		if err != nil {
			continue
		}
		features = append(features, engine.Feature{
			ID:       r.BayID,
			Kind:     engine.EntityBay,
			Geometry: g,
			Props: map[string]string{
				"status":     r.Status,
				"accessible": boolString(r.IsDisabledOnly),
				"electric":   boolString(r.IsElectric),
			},
		})
	}
	return features, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
