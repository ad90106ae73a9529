package geo

import (
	"encoding/json"
	"testing"
)

func TestGeometryRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"point", `{"type":"Point","coordinates":[13.405,52.52]}`},
		{"linestring", `{"type":"LineString","coordinates":[[13.4,52.5],[13.41,52.51]]}`},
		{"polygon", `{"type":"Polygon","coordinates":[[[13.4,52.5],[13.41,52.5],[13.41,52.51],[13.4,52.5]]]}`},
		{"multipolygon", `{"type":"MultiPolygon","coordinates":[[[[13.4,52.5],[13.41,52.5],[13.41,52.51],[13.4,52.5]]]]}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var g Geometry
			if err := json.Unmarshal([]byte(c.raw), &g); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			out, err := json.Marshal(g)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var again Geometry
			if err := json.Unmarshal(out, &again); err != nil {
				t.Fatalf("re-unmarshal: %v", err)
			}
			if again.Kind != g.Kind {
				t.Fatalf("kind changed across roundtrip: %s != %s", again.Kind, g.Kind)
			}
		})
	}
}

func TestGeometryUnmarshalPoint(t *testing.T) {
	var g Geometry
	err := json.Unmarshal([]byte(`{"type":"Point","coordinates":[13.405,52.52]}`), &g)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if g.Kind != KindPoint {
		t.Fatalf("kind = %s, want Point", g.Kind)
	}
	if g.Point.Lon != 13.405 || g.Point.Lat != 52.52 {
		t.Fatalf("coordinates = %v", g.Point)
	}
}

func TestGeometryUnmarshalCollection(t *testing.T) {
	raw := `{"type":"GeometryCollection","geometries":[
		{"type":"Point","coordinates":[13.4,52.5]},
		{"type":"Polygon","coordinates":[[[13.4,52.5],[13.41,52.5],[13.41,52.51],[13.4,52.5]]]}
	]}`
	var g Geometry
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if g.Kind != KindGeometryCollection || len(g.Members) != 2 {
		t.Fatalf("kind = %s, members = %d", g.Kind, len(g.Members))
	}
	if g.Members[1].Kind != KindPolygon {
		t.Fatalf("second member kind = %s, want Polygon", g.Members[1].Kind)
	}
}

func TestGeometryUnmarshalRejectsUnknownType(t *testing.T) {
	var g Geometry
	if err := json.Unmarshal([]byte(`{"type":"Circle","coordinates":[0,0]}`), &g); err == nil {
		t.Fatalf("unknown geometry type accepted")
	}
}

func TestGeometryIsEmpty(t *testing.T) {
	var g Geometry
	if !g.IsEmpty() {
		t.Fatalf("zero geometry should be empty")
	}
	if NewPoint(13.4, 52.5).IsEmpty() {
		t.Fatalf("point should not be empty")
	}
}
