package geo

import (
	"math"
	"testing"
)

// squareAround builds a closed rectangular ring of the given dimensions in
// meters, centered on p.
func squareAround(p Point, widthM, heightM float64) Geometry {
	pr := NewProjection(p)
	hw, hh := widthM/2, heightM/2
	ring := Ring{
		pr.Unproject(-hw, -hh),
		pr.Unproject(hw, -hh),
		pr.Unproject(hw, hh),
		pr.Unproject(-hw, hh),
		pr.Unproject(-hw, -hh),
	}
	return NewPolygon([]Ring{ring})
}

var testCenter = Point{Lon: 13.405, Lat: 52.52}

func TestHaversineKnownDistance(t *testing.T) {
	berlin := Point{Lon: 13.405, Lat: 52.52}
	hamburg := Point{Lon: 9.9937, Lat: 53.5511}

	d := Haversine(berlin, hamburg)
	// Roughly 255 km between the two city centers.
	if d < 250_000 || d > 260_000 {
		t.Fatalf("Haversine(berlin, hamburg) = %.0f m, want ~255 km", d)
	}
	if Haversine(berlin, berlin) != 0 {
		t.Fatalf("distance to self should be zero")
	}
}

func TestProjectionRoundTrip(t *testing.T) {
	pr := NewProjection(testCenter)
	cases := []struct{ x, y float64 }{
		{0, 0},
		{100, 0},
		{0, -250},
		{1234.5, 987.6},
	}
	for _, c := range cases {
		p := pr.Unproject(c.x, c.y)
		x, y := pr.Forward(p)
		if math.Abs(x-c.x) > 1e-6 || math.Abs(y-c.y) > 1e-6 {
			t.Errorf("roundtrip (%.1f, %.1f) -> (%f, %f)", c.x, c.y, x, y)
		}
	}
}

func TestProjectionDistanceAgreesWithHaversine(t *testing.T) {
	pr := NewProjection(testCenter)
	p := pr.Unproject(300, 400)
	want := 500.0
	got := Haversine(testCenter, p)
	if math.Abs(got-want) > 1.0 {
		t.Fatalf("projected 500 m offset measured %.2f m by haversine", got)
	}
}

func TestPolygonArea(t *testing.T) {
	g := squareAround(testCenter, 50, 30)
	area := PolygonArea(g.Rings)
	if math.Abs(area-1500) > 5 {
		t.Fatalf("area of 50x30 m rectangle = %.2f, want ~1500", area)
	}
}

func TestPolygonAreaSubtractsHoles(t *testing.T) {
	outer := squareAround(testCenter, 100, 100).Rings[0]
	hole := squareAround(testCenter, 20, 20).Rings[0]
	area := PolygonArea([]Ring{outer, hole})
	if math.Abs(area-(10000-400)) > 20 {
		t.Fatalf("area with hole = %.2f, want ~9600", area)
	}
}

func TestLineLength(t *testing.T) {
	pr := NewProjection(testCenter)
	line := []Point{
		pr.Unproject(0, 0),
		pr.Unproject(100, 0),
		pr.Unproject(100, 50),
	}
	length := LineLength(line)
	if math.Abs(length-150) > 0.5 {
		t.Fatalf("line length = %.2f, want ~150", length)
	}
}

func TestCentroid(t *testing.T) {
	g := squareAround(testCenter, 80, 40)
	c := Centroid(g)
	if Haversine(c, testCenter) > 1.0 {
		t.Fatalf("centroid %.6f,%.6f drifted %.2f m from center",
			c.Lon, c.Lat, Haversine(c, testCenter))
	}
}

func TestContains(t *testing.T) {
	g := squareAround(testCenter, 100, 100)
	pr := NewProjection(testCenter)

	cases := []struct {
		name string
		p    Point
		want bool
	}{
		{"center", testCenter, true},
		{"near corner inside", pr.Unproject(49, 49), true},
		{"outside east", pr.Unproject(60, 0), false},
		{"far away", Point{Lon: 0, Lat: 0}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Contains(g.Rings, c.p); got != c.want {
				t.Errorf("Contains = %v, want %v", got, c.want)
			}
		})
	}
}

func TestContainsRespectsHoles(t *testing.T) {
	outer := squareAround(testCenter, 100, 100).Rings[0]
	hole := squareAround(testCenter, 20, 20).Rings[0]
	rings := []Ring{outer, hole}

	if Contains(rings, testCenter) {
		t.Fatalf("point inside hole reported as contained")
	}
	pr := NewProjection(testCenter)
	if !Contains(rings, pr.Unproject(40, 0)) {
		t.Fatalf("point between hole and exterior should be contained")
	}
}

func TestContainsPolygon(t *testing.T) {
	zone := squareAround(testCenter, 100, 100)
	inner := squareAround(testCenter, 10, 10)
	pr := NewProjection(testCenter)
	shifted := squareAround(pr.Unproject(95, 0), 10, 10)

	if !ContainsPolygon(zone.Rings, inner.Rings) {
		t.Fatalf("small centered square should be contained")
	}
	if ContainsPolygon(zone.Rings, shifted.Rings) {
		t.Fatalf("square straddling the edge should not be contained")
	}
}

func TestIntersectionArea(t *testing.T) {
	pr := NewProjection(testCenter)
	a := squareAround(testCenter, 100, 100)
	// Second square shifted 50 m east: overlap is 50x100 = 5000 m².
	b := squareAround(pr.Unproject(50, 0), 100, 100)

	area := IntersectionArea(a.Rings, b.Rings)
	if math.Abs(area-5000) > 100 {
		t.Fatalf("intersection area = %.2f, want ~5000", area)
	}

	// Disjoint squares intersect nowhere.
	far := squareAround(pr.Unproject(500, 0), 100, 100)
	if got := IntersectionArea(a.Rings, far.Rings); got > 1 {
		t.Fatalf("disjoint squares intersect by %.2f m²", got)
	}

	// Full containment: intersection equals the smaller area.
	small := squareAround(testCenter, 20, 20)
	got := IntersectionArea(small.Rings, a.Rings)
	if math.Abs(got-400) > 10 {
		t.Fatalf("contained square intersection = %.2f, want ~400", got)
	}
}

func TestValidatePolygon(t *testing.T) {
	good := squareAround(testCenter, 50, 50)
	if ok, reason := ValidatePolygon(good.Rings); !ok {
		t.Fatalf("valid square rejected: %s", reason)
	}

	open := Ring{
		{Lon: 13.0, Lat: 52.0},
		{Lon: 13.1, Lat: 52.0},
		{Lon: 13.1, Lat: 52.1},
		{Lon: 13.0, Lat: 52.1},
	}
	if ok, _ := ValidatePolygon([]Ring{open}); ok {
		t.Fatalf("unclosed ring accepted")
	}

	tooFew := Ring{
		{Lon: 13.0, Lat: 52.0},
		{Lon: 13.1, Lat: 52.0},
		{Lon: 13.0, Lat: 52.0},
	}
	if ok, _ := ValidatePolygon([]Ring{tooFew}); ok {
		t.Fatalf("two-point ring accepted")
	}

	// Bowtie: edges cross, not simple.
	bowtie := Ring{
		{Lon: 13.0, Lat: 52.0},
		{Lon: 13.1, Lat: 52.1},
		{Lon: 13.1, Lat: 52.0},
		{Lon: 13.0, Lat: 52.1},
		{Lon: 13.0, Lat: 52.0},
	}
	if ok, _ := ValidatePolygon([]Ring{bowtie}); ok {
		t.Fatalf("self-intersecting ring accepted")
	}
}

func TestValidateLineString(t *testing.T) {
	if ok, _ := ValidateLineString([]Point{{Lon: 13, Lat: 52}}); ok {
		t.Fatalf("single-point line accepted")
	}
	ok, _ := ValidateLineString([]Point{{Lon: 13, Lat: 52}, {Lon: 13.1, Lat: 52.1}})
	if !ok {
		t.Fatalf("two-point line rejected")
	}
}

func TestDistancePointToPolygon(t *testing.T) {
	g := squareAround(testCenter, 100, 100)
	pr := NewProjection(testCenter)

	if d := DistancePointToPolygon(testCenter, g.Rings); d != 0 {
		t.Fatalf("interior point distance = %.2f, want 0", d)
	}

	// 10 m east of the eastern edge.
	p := pr.Unproject(60, 0)
	d := DistancePointToPolygon(p, g.Rings)
	if math.Abs(d-10) > 0.5 {
		t.Fatalf("distance to edge = %.2f, want ~10", d)
	}
}

func TestDistanceBetweenGeometries(t *testing.T) {
	pr := NewProjection(testCenter)
	a := NewPoint(testCenter.Lon, testCenter.Lat)
	b := NewPoint(pr.Unproject(300, 400).Lon, pr.Unproject(300, 400).Lat)

	d := Distance(a, b)
	if math.Abs(d-500) > 1 {
		t.Fatalf("point-point distance = %.2f, want ~500", d)
	}

	poly := squareAround(pr.Unproject(200, 0), 100, 100)
	d = Distance(a, poly)
	if math.Abs(d-150) > 1 {
		t.Fatalf("point-polygon distance = %.2f, want ~150", d)
	}
}

func TestBoundingBox(t *testing.T) {
	g := squareAround(testCenter, 100, 100)
	box := BoundingBox(g)
	if !box.Contains(testCenter) {
		t.Fatalf("bounding box misses the polygon center")
	}
	pr := NewProjection(testCenter)
	outside := pr.Unproject(100, 0)
	if box.Contains(outside) {
		t.Fatalf("bounding box contains a point 100 m east of a 100 m square")
	}
	grown := box.Expand(100)
	if !grown.Contains(outside) {
		t.Fatalf("expanded box should contain the point")
	}
}
