package engine

import (
	"math"
	"testing"

	"parking-bknd/internal/geo"
)

func TestNormalizeToPolygonIdentity(t *testing.T) {
	poly := squareAt(testCenter, 20)
	out, ok := NormalizeToPolygon(poly)
	if !ok {
		t.Fatalf("polygon input rejected")
	}
	if out.Kind != geo.KindPolygon {
		t.Fatalf("kind = %s", out.Kind)
	}
	// Identity: normalizing again changes nothing.
	again, ok := NormalizeToPolygon(out)
	if !ok || geo.PolygonArea(again.Rings) != geo.PolygonArea(out.Rings) {
		t.Fatalf("normalization is not idempotent")
	}
}

func TestNormalizeToPolygonPicksLargestMember(t *testing.T) {
	pr := geo.NewProjection(testCenter)
	big := squareAt(testCenter, 50)
	small := squareAt(pr.Unproject(200, 0), 10)

	multi := geo.Geometry{
		Kind:     geo.KindMultiPolygon,
		Polygons: [][]geo.Ring{small.Rings, big.Rings},
	}
	out, ok := NormalizeToPolygon(multi)
	if !ok {
		t.Fatalf("multipolygon rejected")
	}
	area := geo.PolygonArea(out.Rings)
	if math.Abs(area-2500) > 50 {
		t.Fatalf("selected member area = %.1f, want ~2500 (the larger)", area)
	}
}

func TestNormalizeToPolygonBuffersPoint(t *testing.T) {
	out, ok := NormalizeToPolygon(geo.NewPoint(testCenter.Lon, testCenter.Lat))
	if !ok {
		t.Fatalf("point rejected")
	}
	if valid, reason := geo.ValidatePolygon(out.Rings); !valid {
		t.Fatalf("buffered point polygon invalid: %s", reason)
	}
	// A regular 16-gon of radius 2.5 m has area close to pi*r^2.
	area := geo.PolygonArea(out.Rings)
	want := math.Pi * PointBufferRadiusM * PointBufferRadiusM
	if math.Abs(area-want)/want > 0.05 {
		t.Fatalf("buffer area = %.2f, want within 5%% of %.2f", area, want)
	}
	if !geo.Contains(out.Rings, testCenter) {
		t.Fatalf("buffer does not contain its seed point")
	}
}

func TestNormalizeToPolygonCollectionSkipsPoints(t *testing.T) {
	poly := squareAt(testCenter, 30)
	coll := geo.Geometry{
		Kind: geo.KindGeometryCollection,
		Members: []geo.Geometry{
			geo.NewPoint(13.4, 52.5),
			poly,
		},
	}
	out, ok := NormalizeToPolygon(coll)
	if !ok {
		t.Fatalf("collection rejected")
	}
	if math.Abs(geo.PolygonArea(out.Rings)-900) > 20 {
		t.Fatalf("collection should pick the real polygon, not buffer the point")
	}
}

func TestNormalizeToPolygonNoRendition(t *testing.T) {
	line := geo.NewLineString([]geo.Point{{Lon: 13.4, Lat: 52.5}, {Lon: 13.41, Lat: 52.51}})
	if _, ok := NormalizeToPolygon(line); ok {
		t.Fatalf("linestring should have no polygon rendition")
	}
	onlyPoints := geo.Geometry{
		Kind:    geo.KindGeometryCollection,
		Members: []geo.Geometry{geo.NewPoint(13.4, 52.5)},
	}
	if _, ok := NormalizeToPolygon(onlyPoints); ok {
		t.Fatalf("point-only collection should have no polygon rendition")
	}
}

func TestNormalizeToLineStringPicksLongest(t *testing.T) {
	pr := geo.NewProjection(testCenter)
	short := []geo.Point{pr.Unproject(0, 0), pr.Unproject(10, 0)}
	long := []geo.Point{pr.Unproject(0, 0), pr.Unproject(0, 500)}

	multi := geo.Geometry{Kind: geo.KindMultiLineString, Lines: [][]geo.Point{short, long}}
	out, ok := NormalizeToLineString(multi)
	if !ok {
		t.Fatalf("multilinestring rejected")
	}
	if l := geo.LineLength(out.Line); math.Abs(l-500) > 1 {
		t.Fatalf("selected length = %.1f, want ~500", l)
	}
}

func TestNormalizeToPointCollapsesToCentroid(t *testing.T) {
	poly := squareAt(testCenter, 40)
	out := NormalizeToPoint(poly)
	if out.Kind != geo.KindPoint {
		t.Fatalf("kind = %s", out.Kind)
	}
	if geo.Haversine(out.Point, testCenter) > 1 {
		t.Fatalf("centroid drifted %.2f m", geo.Haversine(out.Point, testCenter))
	}
}

func TestNormalizeFor(t *testing.T) {
	poly := squareAt(testCenter, 30)
	line := geo.NewLineString([]geo.Point{{Lon: 13.4, Lat: 52.5}, {Lon: 13.41, Lat: 52.51}})

	cases := []struct {
		name    string
		entity  EntityKind
		g       geo.Geometry
		outcome ConversionOutcome
	}{
		{"zone from polygon", EntityZone, poly, OutcomeConverted},
		{"zone from point buffers", EntityZone, geo.NewPoint(13.4, 52.5), OutcomeConverted},
		{"zone from line skipped", EntityZone, line, OutcomeSkipped},
		{"street from line", EntityStreet, line, OutcomeConverted},
		{"street from polygon skipped", EntityStreet, poly, OutcomeSkipped},
		{"poi from polygon collapses", EntityPOI, poly, OutcomeConverted},
		{"unknown entity errors", EntityKind("session"), poly, OutcomeError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, conv := NormalizeFor(c.entity, "ref-1", c.g)
			if conv.Outcome != c.outcome {
				t.Fatalf("outcome = %s, want %s (detail: %s)", conv.Outcome, c.outcome, conv.Detail)
			}
			if conv.SourceRef != "ref-1" {
				t.Fatalf("source ref not carried through")
			}
			if c.outcome == OutcomeConverted {
				required, _ := RequiredKind(c.entity)
				if out.Kind != required {
					t.Fatalf("converted kind = %s, want %s", out.Kind, required)
				}
				if err := ValidateGeometry(c.entity, out); err != nil {
					t.Fatalf("converted geometry fails validation: %v", err)
				}
			}
		})
	}
}
