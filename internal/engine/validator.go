package engine

import (
	"parking-bknd/internal/geo"
)

// EntityKind names a schema entity for geometry validation purposes.
type EntityKind string

const (
	EntityZone      EntityKind = "parking_zone"
	EntityBay       EntityKind = "parking_bay"
	EntityStreet    EntityKind = "street_segment"
	EntitySensor    EntityKind = "sensor"
	EntityTerminal  EntityKind = "payment_terminal"
	EntityViolation EntityKind = "violation"
	EntityPOI       EntityKind = "point_of_interest"
)

// geometryRequirements maps each entity to the single canonical geometry kind
// its schema column accepts.
var geometryRequirements = map[EntityKind]geo.Kind{
	EntityZone:      geo.KindPolygon,
	EntityBay:       geo.KindPolygon,
	EntityStreet:    geo.KindLineString,
	EntitySensor:    geo.KindPoint,
	EntityTerminal:  geo.KindPoint,
	EntityViolation: geo.KindPoint,
	EntityPOI:       geo.KindPoint,
}

// RequiredKind returns the canonical geometry kind for an entity.
func RequiredKind(entity EntityKind) (geo.Kind, bool) {
	k, ok := geometryRequirements[entity]
	return k, ok
}

// ValidateGeometry checks an incoming geometry against the entity's schema
// requirements: kind match, reference-system membership, and structural
// validity. It is pure; a non-nil result must abort the surrounding write.
func ValidateGeometry(entity EntityKind, g geo.Geometry) error {
	required, ok := geometryRequirements[entity]
	if !ok {
		return Errf(GeometryTypeMismatch, "unknown entity kind %q", entity)
	}
	if g.IsEmpty() {
		return Errf(InvalidGeometry, "%s geometry is empty", entity)
	}
	if g.Kind != required {
		return Errf(GeometryTypeMismatch, "%s geometry must be %s, got %s", entity, required, g.Kind)
	}
	if err := validateReference(g); err != nil {
		return err
	}

	switch g.Kind {
	case geo.KindPolygon:
		if ok, reason := geo.ValidatePolygon(g.Rings); !ok {
			return Errf(InvalidGeometry, "%s geometry is not valid: %s", entity, reason)
		}
	case geo.KindLineString:
		if ok, reason := geo.ValidateLineString(g.Line); !ok {
			return Errf(InvalidGeometry, "%s geometry is not valid: %s", entity, reason)
		}
	}
	return nil
}

// validateReference rejects coordinates outside the lon/lat value space of
// the global reference system. A payload in a projected system (meters,
// national grids) lands far outside these ranges and is caught here.
func validateReference(g geo.Geometry) error {
	var bad *geo.Point
	check := func(p geo.Point) {
		if bad != nil {
			return
		}
		if p.Lon < -180 || p.Lon > 180 || p.Lat < -90 || p.Lat > 90 {
			q := p
			bad = &q
		}
	}
	forEachPoint(g, check)
	if bad != nil {
		return Errf(ReferenceSystemMismatch,
			"coordinate (%.4f, %.4f) is outside SRID %d bounds", bad.Lon, bad.Lat, geo.SRID)
	}
	return nil
}

func forEachPoint(g geo.Geometry, fn func(geo.Point)) {
	switch g.Kind {
	case geo.KindPoint:
		fn(g.Point)
	case geo.KindLineString:
		for _, p := range g.Line {
			fn(p)
		}
	case geo.KindPolygon:
		for _, r := range g.Rings {
			for _, p := range r {
				fn(p)
			}
		}
	case geo.KindMultiPoint:
		for _, p := range g.Points {
			fn(p)
		}
	case geo.KindMultiLineString:
		for _, l := range g.Lines {
			for _, p := range l {
				fn(p)
			}
		}
	case geo.KindMultiPolygon:
		for _, rings := range g.Polygons {
			for _, r := range rings {
				for _, p := range r {
					fn(p)
				}
			}
		}
	case geo.KindGeometryCollection:
		for _, m := range g.Members {
			forEachPoint(m, fn)
		}
	}
}
