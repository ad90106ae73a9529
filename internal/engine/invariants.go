package engine

import (
	"parking-bknd/internal/geo"
)

// Thresholds are the spatial consistency tolerances. They come from
// configuration; the values below are the operational defaults and have no
// documented derivation, so they stay tunable.
type Thresholds struct {
	BayZoneOverlapRatio float64 // minimum share of a bay's area inside its zone
	SensorBayMeters     float64 // sensor-to-bay proximity tolerance
	ViolationBayMeters  float64 // violation-to-bay proximity tolerance
}

// DefaultThresholds returns the operational default tolerances.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BayZoneOverlapRatio: 0.90,
		SensorBayMeters:     3.0,
		ViolationBayMeters:  2.0,
	}
}

// Enforcer evaluates cross-entity containment and proximity invariants.
// It is state-free; callers run it inside the same transaction as the write
// it guards and abort on any non-nil result.
type Enforcer struct {
	thresholds Thresholds
}

// NewEnforcer builds an enforcer with the given tolerances.
func NewEnforcer(t Thresholds) *Enforcer {
	return &Enforcer{thresholds: t}
}

// CheckBayInZone accepts a bay polygon fully contained in its zone, or one
// whose overlap with the zone covers at least the configured share of the
// bay's own area.
func (e *Enforcer) CheckBayInZone(bay, zone geo.Geometry) error {
	if bay.Kind != geo.KindPolygon || zone.Kind != geo.KindPolygon {
		return Errf(InvalidGeometry, "bay-in-zone check requires polygons, got %s in %s", bay.Kind, zone.Kind)
	}
	if geo.ContainsPolygon(zone.Rings, bay.Rings) {
		return nil
	}
	bayArea := geo.PolygonArea(bay.Rings)
	if bayArea <= 0 {
		return Errf(InvalidGeometry, "bay polygon has zero area")
	}
	ratio := geo.IntersectionArea(bay.Rings, zone.Rings) / bayArea
	if ratio >= e.thresholds.BayZoneOverlapRatio {
		return nil
	}
	return &Error{
		Kind:      ContainmentViolation,
		Detail:    "bay polygon overlaps its zone by too little of its own area",
		Threshold: e.thresholds.BayZoneOverlapRatio,
		Measured:  ratio,
	}
}

// CheckSensorNearBay accepts a sensor point inside its bay polygon or within
// the configured tolerance of it. Sensors without a bay reference skip this
// check entirely; the caller must not invoke it for them.
func (e *Enforcer) CheckSensorNearBay(sensor, bay geo.Geometry) error {
	return e.checkPointNearBay(sensor, bay, e.thresholds.SensorBayMeters, "sensor")
}

// CheckViolationInBay accepts a violation point inside its bay polygon or
// within the configured tolerance of it. A bay reference is mandatory for
// violations.
func (e *Enforcer) CheckViolationInBay(violation, bay geo.Geometry) error {
	return e.checkPointNearBay(violation, bay, e.thresholds.ViolationBayMeters, "violation")
}

func (e *Enforcer) checkPointNearBay(pt, bay geo.Geometry, tolerance float64, what string) error {
	if pt.Kind != geo.KindPoint {
		return Errf(InvalidGeometry, "%s geometry must be a point, got %s", what, pt.Kind)
	}
	if bay.Kind != geo.KindPolygon {
		return Errf(InvalidGeometry, "bay geometry must be a polygon, got %s", bay.Kind)
	}
	if geo.Contains(bay.Rings, pt.Point) {
		return nil
	}
	d := geo.DistancePointToPolygon(pt.Point, bay.Rings)
	if d <= tolerance {
		return nil
	}
	return &Error{
		Kind:      ProximityViolation,
		Detail:    what + " point is outside its bay polygon and beyond the tolerance",
		Threshold: tolerance,
		Measured:  d,
	}
}
