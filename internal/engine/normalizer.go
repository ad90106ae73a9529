package engine

import (
	"math"

	"parking-bknd/internal/geo"
)

// PointBufferRadiusM is the radius of the regular polygon synthesized around
// a Point that stands in for a feature with no recorded footprint.
const PointBufferRadiusM = 2.5

// pointBufferSegments is the vertex count of the synthesized polygon.
const pointBufferSegments = 16

// ConversionOutcome classifies one normalization attempt.
type ConversionOutcome string

const (
	OutcomeConverted ConversionOutcome = "converted"
	OutcomeSkipped   ConversionOutcome = "skipped"
	OutcomeError     ConversionOutcome = "error"
)

// Conversion records one normalization attempt for the conversion log.
type Conversion struct {
	SourceRef  string
	SourceKind geo.Kind
	TargetKind geo.Kind
	Outcome    ConversionOutcome
	Detail     string
}

// NormalizeToPolygon collapses an arbitrary imported geometry into a single
// Polygon: identity for polygons, the largest member by geodesic area for
// multi-part input, and a small synthesized footprint for points. Returns
// ok=false for geometries with no polygon rendition.
func NormalizeToPolygon(g geo.Geometry) (geo.Geometry, bool) {
	switch g.Kind {
	case geo.KindPolygon:
		return g, true
	case geo.KindMultiPolygon:
		var best []geo.Ring
		bestArea := -1.0
		for _, rings := range g.Polygons {
			if a := geo.PolygonArea(rings); a > bestArea {
				bestArea = a
				best = rings
			}
		}
		if len(best) == 0 {
			return geo.Geometry{}, false
		}
		return geo.NewPolygon(best), true
	case geo.KindGeometryCollection:
		var best geo.Geometry
		bestArea := -1.0
		for _, m := range g.Members {
			if p, ok := NormalizeToPolygon(m); ok && m.Kind != geo.KindPoint {
				if a := geo.PolygonArea(p.Rings); a > bestArea {
					bestArea = a
					best = p
				}
			}
		}
		if bestArea < 0 {
			return geo.Geometry{}, false
		}
		return best, true
	case geo.KindPoint:
		return BufferPoint(g.Point, PointBufferRadiusM), true
	}
	return geo.Geometry{}, false
}

// NormalizeToLineString collapses an arbitrary imported geometry into a single
// LineString, picking the longest member for multi-part input.
func NormalizeToLineString(g geo.Geometry) (geo.Geometry, bool) {
	switch g.Kind {
	case geo.KindLineString:
		return g, true
	case geo.KindMultiLineString:
		var best []geo.Point
		bestLen := -1.0
		for _, l := range g.Lines {
			if length := geo.LineLength(l); length > bestLen {
				bestLen = length
				best = l
			}
		}
		if len(best) == 0 {
			return geo.Geometry{}, false
		}
		return geo.NewLineString(best), true
	case geo.KindGeometryCollection:
		var best geo.Geometry
		bestLen := -1.0
		for _, m := range g.Members {
			if l, ok := NormalizeToLineString(m); ok {
				if length := geo.LineLength(l.Line); length > bestLen {
					bestLen = length
					best = l
				}
			}
		}
		if bestLen < 0 {
			return geo.Geometry{}, false
		}
		return best, true
	}
	return geo.Geometry{}, false
}

// NormalizeToPoint collapses any geometry to a single Point. Always succeeds:
// non-point input becomes its centroid.
func NormalizeToPoint(g geo.Geometry) geo.Geometry {
	if g.Kind == geo.KindPoint {
		return g
	}
	c := geo.Centroid(g)
	return geo.NewPoint(c.Lon, c.Lat)
}

// BufferPoint synthesizes a regular polygon of the given radius (meters)
// centered on p.
func BufferPoint(p geo.Point, radiusM float64) geo.Geometry {
	pr := geo.NewProjection(p)
	ring := make(geo.Ring, 0, pointBufferSegments+1)
	for i := 0; i < pointBufferSegments; i++ {
		angle := 2 * math.Pi * float64(i) / pointBufferSegments
		ring = append(ring, pr.Unproject(radiusM*math.Cos(angle), radiusM*math.Sin(angle)))
	}
	ring = append(ring, ring[0])
	return geo.NewPolygon([]geo.Ring{ring})
}

// NormalizeFor normalizes a raw geometry to the canonical kind the target
// entity requires and reports the conversion outcome. A skipped conversion is
// never fatal; the import pipeline records it and moves on.
func NormalizeFor(entity EntityKind, sourceRef string, g geo.Geometry) (geo.Geometry, Conversion) {
	required, ok := RequiredKind(entity)
	if !ok {
		return geo.Geometry{}, Conversion{
			SourceRef:  sourceRef,
			SourceKind: g.Kind,
			Outcome:    OutcomeError,
			Detail:     "unknown entity kind " + string(entity),
		}
	}
	conv := Conversion{SourceRef: sourceRef, SourceKind: g.Kind, TargetKind: required}

	var out geo.Geometry
	converted := false
	switch required {
	case geo.KindPolygon:
		out, converted = NormalizeToPolygon(g)
	case geo.KindLineString:
		out, converted = NormalizeToLineString(g)
	case geo.KindPoint:
		out, converted = NormalizeToPoint(g), true
	}
	if !converted {
		conv.Outcome = OutcomeSkipped
		conv.Detail = "no " + string(required) + " rendition of " + string(g.Kind)
		return geo.Geometry{}, conv
	}
	conv.Outcome = OutcomeConverted
	return out, conv
}
