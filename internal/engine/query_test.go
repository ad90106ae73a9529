package engine

import (
	"math"
	"testing"

	"parking-bknd/internal/geo"
	"parking-bknd/internal/spatialindex"
)

// bayFeatureAt builds a bay feature centered offsetX/offsetY meters from the
// test center.
func bayFeatureAt(id int64, offsetX, offsetY float64, status string) Feature {
	pr := geo.NewProjection(testCenter)
	return Feature{
		ID:       id,
		Kind:     EntityBay,
		Geometry: rectAt(pr.Unproject(offsetX, offsetY), 2.5, 5.0),
		Props:    map[string]string{"status": status},
	}
}

func TestWithinRadiusSortedAscending(t *testing.T) {
	features := []Feature{
		bayFeatureAt(1, 200, 0, "available"),
		bayFeatureAt(2, 50, 0, "occupied"),
		bayFeatureAt(3, 120, 0, "available"),
		bayFeatureAt(4, 900, 0, "available"), // out of range
	}
	qe := NewQueryEngine(features, nil)

	matches := qe.WithinRadius(EntityBay, testCenter, 300, nil)
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	wantOrder := []int64{2, 3, 1}
	for i, m := range matches {
		if m.Feature.ID != wantOrder[i] {
			t.Fatalf("match %d is feature %d, want %d", i, m.Feature.ID, wantOrder[i])
		}
		if i > 0 && matches[i-1].DistanceM > m.DistanceM {
			t.Fatalf("distances not ascending at %d", i)
		}
	}
}

func TestWithinRadiusZeroOnlyCoincident(t *testing.T) {
	pr := geo.NewProjection(testCenter)
	near := pr.Unproject(0.5, 0)
	features := []Feature{
		{ID: 1, Kind: EntitySensor, Geometry: geo.NewPoint(testCenter.Lon, testCenter.Lat)},
		{ID: 2, Kind: EntitySensor, Geometry: geo.NewPoint(near.Lon, near.Lat)},
	}
	qe := NewQueryEngine(features, nil)

	matches := qe.WithinRadius(EntitySensor, testCenter, 0, nil)
	if len(matches) != 1 {
		t.Fatalf("got %d matches at radius 0, want only the coincident point", len(matches))
	}
	if matches[0].Feature.ID != 1 {
		t.Fatalf("radius 0 matched feature %d, want 1", matches[0].Feature.ID)
	}
	if matches[0].DistanceM != 0 {
		t.Fatalf("coincident distance = %v, want 0", matches[0].DistanceM)
	}
}

func TestWithinRadiusMonotonic(t *testing.T) {
	features := []Feature{
		bayFeatureAt(1, 40, 30, "available"),
		bayFeatureAt(2, 150, 0, "available"),
		bayFeatureAt(3, 280, -90, "available"),
		bayFeatureAt(4, 420, 100, "available"),
	}
	qe := NewQueryEngine(features, nil)

	// A wider radius must return a superset.
	prev := 0
	for _, radius := range []float64{50, 200, 350, 600} {
		n := len(qe.WithinRadius(EntityBay, testCenter, radius, nil))
		if n < prev {
			t.Fatalf("radius %.0f returned %d matches, fewer than smaller radius (%d)", radius, n, prev)
		}
		prev = n
	}
}

func TestWithinRadiusFilters(t *testing.T) {
	features := []Feature{
		bayFeatureAt(1, 10, 0, "available"),
		bayFeatureAt(2, 20, 0, "occupied"),
		bayFeatureAt(3, 30, 0, "available"),
	}
	qe := NewQueryEngine(features, nil)

	matches := qe.WithinRadius(EntityBay, testCenter, 100, map[string]string{"status": "available"})
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2 available", len(matches))
	}
	for _, m := range matches {
		if m.Feature.Props["status"] != "available" {
			t.Fatalf("filter leaked status %s", m.Feature.Props["status"])
		}
	}

	// Kind filter: a zone feature at the same spot never matches a bay query.
	withZone := append(features, Feature{
		ID:       9,
		Kind:     EntityZone,
		Geometry: squareAt(testCenter, 100),
	})
	qe = NewQueryEngine(withZone, nil)
	matches = qe.WithinRadius(EntityBay, testCenter, 100, nil)
	for _, m := range matches {
		if m.Feature.Kind != EntityBay {
			t.Fatalf("kind filter leaked %s", m.Feature.Kind)
		}
	}
}

func TestWithinRadiusIndexAgreesWithFullScan(t *testing.T) {
	var features []Feature
	idx := spatialindex.NewGrid(100, testCenter.Lat)
	for i := int64(1); i <= 40; i++ {
		f := bayFeatureAt(i, float64(i*37%500), float64(i*91%400), "available")
		features = append(features, f)
		idx.Insert(f.ID, f.RepresentativePoint())
	}

	plain := NewQueryEngine(features, nil)
	indexed := NewQueryEngine(features, idx)

	for _, radius := range []float64{60, 220, 480} {
		a := plain.WithinRadius(EntityBay, testCenter, radius, nil)
		b := indexed.WithinRadius(EntityBay, testCenter, radius, nil)
		if len(a) != len(b) {
			t.Fatalf("radius %.0f: full scan %d, indexed %d", radius, len(a), len(b))
		}
		got := map[int64]bool{}
		for _, m := range b {
			got[m.Feature.ID] = true
		}
		for _, m := range a {
			if !got[m.Feature.ID] {
				t.Fatalf("radius %.0f: indexed scan missed feature %d", radius, m.Feature.ID)
			}
		}
	}
}

func TestContainingZones(t *testing.T) {
	pr := geo.NewProjection(testCenter)
	features := []Feature{
		{ID: 1, Kind: EntityZone, Geometry: squareAt(testCenter, 100), Props: map[string]string{"name": "inner"}},
		{ID: 2, Kind: EntityZone, Geometry: squareAt(testCenter, 400), Props: map[string]string{"name": "outer"}},
		{ID: 3, Kind: EntityZone, Geometry: squareAt(pr.Unproject(1000, 0), 100)},
		bayFeatureAt(4, 0, 0, "available"), // bays never match
	}
	qe := NewQueryEngine(features, nil)

	zones := qe.ContainingZones(testCenter)
	if len(zones) != 2 {
		t.Fatalf("got %d zones, want 2 (nested)", len(zones))
	}
	for _, z := range zones {
		if z.ID != 1 && z.ID != 2 {
			t.Fatalf("unexpected zone %d", z.ID)
		}
	}

	outside := pr.Unproject(5000, 0)
	if got := qe.ContainingZones(outside); len(got) != 0 {
		t.Fatalf("point outside all zones matched %d", len(got))
	}
}

func TestGridAggregateOccupancy(t *testing.T) {
	// Two clusters 300 m apart, one fully occupied, one fully available.
	var features []Feature
	for i := int64(0); i < 4; i++ {
		features = append(features, bayFeatureAt(i+1, float64(i)*5, 0, "occupied"))
		features = append(features, bayFeatureAt(i+10, 300+float64(i)*5, 0, "available"))
	}
	qe := NewQueryEngine(features, nil)
	box := geo.BoundingBox(squareAt(testCenter, 900))

	cells := qe.GridAggregate(box, 100, EntityBay, OccupancyAggregator)
	if len(cells) != 2 {
		t.Fatalf("got %d cells, want 2", len(cells))
	}

	// Row-major order: both clusters share a row, west cluster first.
	first, second := cells[0], cells[1]
	if first.Count != 4 || second.Count != 4 {
		t.Fatalf("cell counts = %d, %d, want 4 each", first.Count, second.Count)
	}
	if first.Props["occupancy_percent"].(float64) != 100 {
		t.Fatalf("west cell occupancy = %v, want 100", first.Props["occupancy_percent"])
	}
	if second.Props["occupancy_percent"].(float64) != 0 {
		t.Fatalf("east cell occupancy = %v, want 0", second.Props["occupancy_percent"])
	}

	// Cell polygons contain their centers.
	for _, c := range cells {
		if !geo.Contains(c.Polygon.Rings, c.Center) {
			t.Fatalf("cell (%d,%d) does not contain its center", c.Row, c.Col)
		}
	}
}

func TestGridAggregateDropsEmptyAndRejectedCells(t *testing.T) {
	features := []Feature{bayFeatureAt(1, 0, 0, "available")}
	qe := NewQueryEngine(features, nil)
	box := geo.BoundingBox(squareAt(testCenter, 500))

	reject := func(cell []Feature) (map[string]any, bool) { return nil, false }
	if cells := qe.GridAggregate(box, 50, EntityBay, reject); len(cells) != 0 {
		t.Fatalf("rejecting aggregator still returned %d cells", len(cells))
	}
	if cells := qe.GridAggregate(box, 0, EntityBay, OccupancyAggregator); cells != nil {
		t.Fatalf("zero cell size should return nil")
	}
}

func TestZoneOccupancy(t *testing.T) {
	mk := func(status string) Feature {
		return Feature{Kind: EntityBay, Props: map[string]string{"status": status}}
	}
	bays := []Feature{
		mk("available"), mk("available"),
		mk("occupied"), mk("occupied"), mk("occupied"),
		mk("reserved"),
		mk("closed"), mk("closed"),
	}
	occ := ZoneOccupancy(bays)
	if occ.Total != 8 || occ.Available != 2 || occ.Occupied != 3 || occ.Reserved != 1 || occ.Closed != 2 {
		t.Fatalf("tallies = %+v", occ)
	}
	// Percent over non-closed: 3 of 6 = 50%.
	if math.Abs(occ.OccupancyPercent-50) > 0.01 {
		t.Fatalf("occupancy percent = %.1f, want 50", occ.OccupancyPercent)
	}

	empty := ZoneOccupancy(nil)
	if empty.Total != 0 || empty.OccupancyPercent != 0 {
		t.Fatalf("empty zone occupancy = %+v", empty)
	}

	allClosed := ZoneOccupancy([]Feature{mk("closed"), mk("closed")})
	if allClosed.OccupancyPercent != 0 {
		t.Fatalf("all-closed zone percent = %.1f, want 0", allClosed.OccupancyPercent)
	}
}

func TestRepresentativePoint(t *testing.T) {
	p := Feature{Kind: EntitySensor, Geometry: geo.NewPoint(13.4, 52.5)}
	if rp := p.RepresentativePoint(); rp != (geo.Point{Lon: 13.4, Lat: 52.5}) {
		t.Fatalf("point representative = %v", rp)
	}
	poly := Feature{Kind: EntityBay, Geometry: squareAt(testCenter, 20)}
	if d := geo.Haversine(poly.RepresentativePoint(), testCenter); d > 1 {
		t.Fatalf("polygon representative drifted %.2f m", d)
	}
}
