package engine

import (
	"testing"

	"parking-bknd/internal/geo"
)

// squareAt builds a closed square polygon of sideM meters centered on p.
func squareAt(p geo.Point, sideM float64) geo.Geometry {
	return rectAt(p, sideM, sideM)
}

func rectAt(p geo.Point, widthM, heightM float64) geo.Geometry {
	pr := geo.NewProjection(p)
	hw, hh := widthM/2, heightM/2
	ring := geo.Ring{
		pr.Unproject(-hw, -hh),
		pr.Unproject(hw, -hh),
		pr.Unproject(hw, hh),
		pr.Unproject(-hw, hh),
		pr.Unproject(-hw, -hh),
	}
	return geo.NewPolygon([]geo.Ring{ring})
}

var testCenter = geo.Point{Lon: 13.405, Lat: 52.52}

func TestValidateGeometryKindMatch(t *testing.T) {
	point := geo.NewPoint(13.405, 52.52)
	polygon := squareAt(testCenter, 20)
	line := geo.NewLineString([]geo.Point{{Lon: 13.4, Lat: 52.5}, {Lon: 13.41, Lat: 52.51}})

	cases := []struct {
		name   string
		entity EntityKind
		g      geo.Geometry
		kind   Kind // "" means accepted
	}{
		{"zone polygon ok", EntityZone, polygon, ""},
		{"bay polygon ok", EntityBay, polygon, ""},
		{"street line ok", EntityStreet, line, ""},
		{"sensor point ok", EntitySensor, point, ""},
		{"violation point ok", EntityViolation, point, ""},
		{"zone rejects point", EntityZone, point, GeometryTypeMismatch},
		{"bay rejects line", EntityBay, line, GeometryTypeMismatch},
		{"sensor rejects polygon", EntitySensor, polygon, GeometryTypeMismatch},
		{"street rejects polygon", EntityStreet, polygon, GeometryTypeMismatch},
		{"unknown entity", EntityKind("meter"), point, GeometryTypeMismatch},
		{"empty geometry", EntityZone, geo.Geometry{}, InvalidGeometry},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateGeometry(c.entity, c.g)
			if c.kind == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !IsKind(err, c.kind) {
				t.Fatalf("error = %v, want kind %s", err, c.kind)
			}
		})
	}
}

func TestValidateGeometryReferenceSystem(t *testing.T) {
	// Coordinates in a projected system (meters) land far outside lon/lat
	// bounds and must be rejected, not silently misinterpreted.
	projected := geo.NewPoint(392000.5, 5820000.1)
	err := ValidateGeometry(EntitySensor, projected)
	if !IsKind(err, ReferenceSystemMismatch) {
		t.Fatalf("error = %v, want reference_system_mismatch", err)
	}

	// Boundary values are still inside the reference system.
	edge := geo.NewPoint(180, -90)
	if err := ValidateGeometry(EntitySensor, edge); err != nil {
		t.Fatalf("boundary coordinate rejected: %v", err)
	}
}

func TestValidateGeometryStructure(t *testing.T) {
	open := geo.NewPolygon([]geo.Ring{{
		{Lon: 13.0, Lat: 52.0},
		{Lon: 13.1, Lat: 52.0},
		{Lon: 13.1, Lat: 52.1},
		{Lon: 13.0, Lat: 52.1},
	}})
	if err := ValidateGeometry(EntityZone, open); !IsKind(err, InvalidGeometry) {
		t.Fatalf("unclosed ring: error = %v, want invalid_geometry", err)
	}

	bowtie := geo.NewPolygon([]geo.Ring{{
		{Lon: 13.0, Lat: 52.0},
		{Lon: 13.1, Lat: 52.1},
		{Lon: 13.1, Lat: 52.0},
		{Lon: 13.0, Lat: 52.1},
		{Lon: 13.0, Lat: 52.0},
	}})
	if err := ValidateGeometry(EntityZone, bowtie); !IsKind(err, InvalidGeometry) {
		t.Fatalf("self-intersecting ring: error = %v, want invalid_geometry", err)
	}

	shortLine := geo.NewLineString([]geo.Point{{Lon: 13.0, Lat: 52.0}})
	if err := ValidateGeometry(EntityStreet, shortLine); !IsKind(err, InvalidGeometry) {
		t.Fatalf("single-point line: error = %v, want invalid_geometry", err)
	}
}

func TestRequiredKind(t *testing.T) {
	k, ok := RequiredKind(EntityZone)
	if !ok || k != geo.KindPolygon {
		t.Fatalf("RequiredKind(zone) = %s, %v", k, ok)
	}
	if _, ok := RequiredKind(EntityKind("tariff")); ok {
		t.Fatalf("unknown entity should have no required kind")
	}
}
