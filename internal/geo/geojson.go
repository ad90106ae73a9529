package geo

import (
	"encoding/json"
	"fmt"
)

// SRID is the single spatial reference system used across the schema.
// Mixing reference systems is forbidden; coordinates outside WGS84 lon/lat
// range are rejected at validation time.
const SRID = 4326

// Kind discriminates the geometry variants.
type Kind string

const (
	KindPoint      Kind = "Point"
	KindLineString Kind = "LineString"
	KindPolygon    Kind = "Polygon"

	// Multi-part kinds appear only on the import path; the normalizer
	// collapses them into the canonical single-part kinds above.
	KindMultiPoint         Kind = "MultiPoint"
	KindMultiLineString    Kind = "MultiLineString"
	KindMultiPolygon       Kind = "MultiPolygon"
	KindGeometryCollection Kind = "GeometryCollection"
)

// Point is a lon/lat coordinate pair in degrees.
type Point struct {
	Lon float64
	Lat float64
}

// Ring is an ordered, closed sequence of points (first == last).
type Ring []Point

// Geometry is a tagged union over the GeoJSON geometry variants. Exactly one
// payload field is populated, selected by Kind:
//
//	Point              → Point
//	LineString         → Line
//	Polygon            → Rings (Rings[0] is the exterior)
//	MultiPoint         → Points
//	MultiLineString    → Lines
//	MultiPolygon       → Polygons
//	GeometryCollection → Members
type Geometry struct {
	Kind     Kind
	Point    Point
	Line     []Point
	Rings    []Ring
	Points   []Point
	Lines    [][]Point
	Polygons [][]Ring
	Members  []Geometry
}

// IsEmpty reports whether the geometry carries no coordinates.
func (g Geometry) IsEmpty() bool {
	switch g.Kind {
	case KindPoint:
		return false
	case KindLineString:
		return len(g.Line) == 0
	case KindPolygon:
		return len(g.Rings) == 0 || len(g.Rings[0]) == 0
	case KindMultiPoint:
		return len(g.Points) == 0
	case KindMultiLineString:
		return len(g.Lines) == 0
	case KindMultiPolygon:
		return len(g.Polygons) == 0
	case KindGeometryCollection:
		return len(g.Members) == 0
	}
	return true
}

// NewPoint builds a Point geometry.
func NewPoint(lon, lat float64) Geometry {
	return Geometry{Kind: KindPoint, Point: Point{Lon: lon, Lat: lat}}
}

// NewLineString builds a LineString geometry.
func NewLineString(pts []Point) Geometry {
	return Geometry{Kind: KindLineString, Line: pts}
}

// NewPolygon builds a Polygon geometry from its rings.
func NewPolygon(rings []Ring) Geometry {
	return Geometry{Kind: KindPolygon, Rings: rings}
}

type geojsonEnvelope struct {
	Type        string            `json:"type"`
	Coordinates json.RawMessage   `json:"coordinates,omitempty"`
	Geometries  []json.RawMessage `json:"geometries,omitempty"`
}

// MarshalJSON encodes the geometry as a GeoJSON geometry object.
func (g Geometry) MarshalJSON() ([]byte, error) {
	switch g.Kind {
	case KindPoint:
		return json.Marshal(struct {
			Type        string     `json:"type"`
			Coordinates [2]float64 `json:"coordinates"`
		}{string(g.Kind), [2]float64{g.Point.Lon, g.Point.Lat}})
	case KindLineString:
		return json.Marshal(struct {
			Type        string       `json:"type"`
			Coordinates [][2]float64 `json:"coordinates"`
		}{string(g.Kind), encodeLine(g.Line)})
	case KindPolygon:
		return json.Marshal(struct {
			Type        string         `json:"type"`
			Coordinates [][][2]float64 `json:"coordinates"`
		}{string(g.Kind), encodeRings(g.Rings)})
	case KindMultiPoint:
		return json.Marshal(struct {
			Type        string       `json:"type"`
			Coordinates [][2]float64 `json:"coordinates"`
		}{string(g.Kind), encodeLine(g.Points)})
	case KindMultiLineString:
		coords := make([][][2]float64, len(g.Lines))
		for i, l := range g.Lines {
			coords[i] = encodeLine(l)
		}
		return json.Marshal(struct {
			Type        string         `json:"type"`
			Coordinates [][][2]float64 `json:"coordinates"`
		}{string(g.Kind), coords})
	case KindMultiPolygon:
		coords := make([][][][2]float64, len(g.Polygons))
		for i, p := range g.Polygons {
			coords[i] = encodeRings(p)
		}
		return json.Marshal(struct {
			Type        string           `json:"type"`
			Coordinates [][][][2]float64 `json:"coordinates"`
		}{string(g.Kind), coords})
	case KindGeometryCollection:
		return json.Marshal(struct {
			Type       string     `json:"type"`
			Geometries []Geometry `json:"geometries"`
		}{string(g.Kind), g.Members})
	}
	return nil, fmt.Errorf("geo: cannot marshal geometry of kind %q", g.Kind)
}

// UnmarshalJSON decodes a GeoJSON geometry object, including the multi-part
// variants accepted on the import path.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var env geojsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("geo: invalid geometry payload: %w", err)
	}

	switch Kind(env.Type) {
	case KindPoint:
		var c [2]float64
		if err := json.Unmarshal(env.Coordinates, &c); err != nil {
			return fmt.Errorf("geo: invalid Point coordinates: %w", err)
		}
		*g = NewPoint(c[0], c[1])
	case KindLineString:
		var c [][2]float64
		if err := json.Unmarshal(env.Coordinates, &c); err != nil {
			return fmt.Errorf("geo: invalid LineString coordinates: %w", err)
		}
		*g = NewLineString(decodeLine(c))
	case KindPolygon:
		var c [][][2]float64
		if err := json.Unmarshal(env.Coordinates, &c); err != nil {
			return fmt.Errorf("geo: invalid Polygon coordinates: %w", err)
		}
		*g = NewPolygon(decodeRings(c))
	case KindMultiPoint:
		var c [][2]float64
		if err := json.Unmarshal(env.Coordinates, &c); err != nil {
			return fmt.Errorf("geo: invalid MultiPoint coordinates: %w", err)
		}
		*g = Geometry{Kind: KindMultiPoint, Points: decodeLine(c)}
	case KindMultiLineString:
		var c [][][2]float64
		if err := json.Unmarshal(env.Coordinates, &c); err != nil {
			return fmt.Errorf("geo: invalid MultiLineString coordinates: %w", err)
		}
		lines := make([][]Point, len(c))
		for i, l := range c {
			lines[i] = decodeLine(l)
		}
		*g = Geometry{Kind: KindMultiLineString, Lines: lines}
	case KindMultiPolygon:
		var c [][][][2]float64
		if err := json.Unmarshal(env.Coordinates, &c); err != nil {
			return fmt.Errorf("geo: invalid MultiPolygon coordinates: %w", err)
		}
		polys := make([][]Ring, len(c))
		for i, p := range c {
			polys[i] = decodeRings(p)
		}
		*g = Geometry{Kind: KindMultiPolygon, Polygons: polys}
	case KindGeometryCollection:
		members := make([]Geometry, 0, len(env.Geometries))
		for _, raw := range env.Geometries {
			var m Geometry
			if err := m.UnmarshalJSON(raw); err != nil {
				return err
			}
			members = append(members, m)
		}
		*g = Geometry{Kind: KindGeometryCollection, Members: members}
	default:
		return fmt.Errorf("geo: unsupported geometry type %q", env.Type)
	}
	return nil
}

func encodeLine(pts []Point) [][2]float64 {
	out := make([][2]float64, len(pts))
	for i, p := range pts {
		out[i] = [2]float64{p.Lon, p.Lat}
	}
	return out
}

func decodeLine(c [][2]float64) []Point {
	out := make([]Point, len(c))
	for i, p := range c {
		out[i] = Point{Lon: p[0], Lat: p[1]}
	}
	return out
}

func encodeRings(rings []Ring) [][][2]float64 {
	out := make([][][2]float64, len(rings))
	for i, r := range rings {
		out[i] = encodeLine(r)
	}
	return out
}

func decodeRings(c [][][2]float64) []Ring {
	out := make([]Ring, len(c))
	for i, r := range c {
		out[i] = Ring(decodeLine(r))
	}
	return out
}
