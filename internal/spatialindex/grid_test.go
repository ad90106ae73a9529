package spatialindex

import (
	"testing"

	"parking-bknd/internal/geo"
)

var center = geo.Point{Lon: 13.405, Lat: 52.52}

func TestGridNearNeverMissesInRadiusPoints(t *testing.T) {
	g := NewGrid(100, center.Lat)
	pr := geo.NewProjection(center)

	points := map[int64]geo.Point{
		1: pr.Unproject(10, 10),
		2: pr.Unproject(-80, 40),
		3: pr.Unproject(250, 0),
		4: pr.Unproject(0, -600),
		5: pr.Unproject(1500, 1500),
	}
	for id, p := range points {
		g.Insert(id, p)
	}
	if g.Len() != 5 {
		t.Fatalf("Len = %d, want 5", g.Len())
	}

	for _, radius := range []float64{50, 150, 400, 1000} {
		candidates := g.Near(center, radius)
		got := map[int64]bool{}
		for _, id := range candidates {
			got[id] = true
		}
		for id, p := range points {
			if geo.Haversine(center, p) <= radius && !got[id] {
				t.Fatalf("radius %.0f: candidate set misses id %d at %.0f m",
					radius, id, geo.Haversine(center, p))
			}
		}
	}
}

func TestGridWithin(t *testing.T) {
	g := NewGrid(50, center.Lat)
	pr := geo.NewProjection(center)

	g.Insert(1, pr.Unproject(0, 0))
	g.Insert(2, pr.Unproject(200, 200))
	g.Insert(3, pr.Unproject(-900, 0))

	box := geo.BBox{
		MinLon: center.Lon, MaxLon: center.Lon,
		MinLat: center.Lat, MaxLat: center.Lat,
	}.Expand(300)

	got := map[int64]bool{}
	for _, id := range g.Within(box) {
		got[id] = true
	}
	if !got[1] || !got[2] {
		t.Fatalf("box candidates missing in-box points: %v", got)
	}
	if got[3] {
		t.Fatalf("point 900 m west should not be a candidate for a 300 m box")
	}
}

func TestGridMultiplePointsPerCell(t *testing.T) {
	g := NewGrid(1000, center.Lat)
	pr := geo.NewProjection(center)
	for i := int64(1); i <= 10; i++ {
		g.Insert(i, pr.Unproject(float64(i), float64(i)))
	}
	candidates := g.Near(center, 100)
	if len(candidates) != 10 {
		t.Fatalf("got %d candidates, want all 10 co-located points", len(candidates))
	}
}
