package engine

import (
	"errors"
	"testing"

	"parking-bknd/internal/geo"
)

func TestCheckBayInZoneFullContainment(t *testing.T) {
	enf := NewEnforcer(DefaultThresholds())
	zone := squareAt(testCenter, 100)
	bay := rectAt(testCenter, 2.5, 5.0)

	if err := enf.CheckBayInZone(bay, zone); err != nil {
		t.Fatalf("fully contained bay rejected: %v", err)
	}
}

func TestCheckBayInZoneOverlapRatio(t *testing.T) {
	enf := NewEnforcer(DefaultThresholds())
	zone := squareAt(testCenter, 100)
	pr := geo.NewProjection(testCenter)

	// Bay straddling the zone edge with ~95% of its area inside: the edge is
	// 50 m east of center, a 10 m wide bay centered 4.5 m inside sticks out
	// 0.5 m, leaving 95% inside.
	mostlyIn := rectAt(pr.Unproject(45.5, 0), 10, 10)
	if err := enf.CheckBayInZone(mostlyIn, zone); err != nil {
		t.Fatalf("95%% overlap rejected: %v", err)
	}

	// Bay centered on the edge: only half its area is inside.
	halfIn := rectAt(pr.Unproject(50, 0), 10, 10)
	err := enf.CheckBayInZone(halfIn, zone)
	if !IsKind(err, ContainmentViolation) {
		t.Fatalf("error = %v, want containment_violation", err)
	}

	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("containment error is not *engine.Error")
	}
	if e.Threshold != 0.90 {
		t.Fatalf("threshold = %.2f, want 0.90", e.Threshold)
	}
	if e.Measured < 0.3 || e.Measured > 0.7 {
		t.Fatalf("measured ratio = %.2f, want ~0.5", e.Measured)
	}
}

func TestCheckBayInZoneConfigurableRatio(t *testing.T) {
	loose := NewEnforcer(Thresholds{BayZoneOverlapRatio: 0.40, SensorBayMeters: 3, ViolationBayMeters: 2})
	zone := squareAt(testCenter, 100)
	pr := geo.NewProjection(testCenter)
	halfIn := rectAt(pr.Unproject(50, 0), 10, 10)

	if err := loose.CheckBayInZone(halfIn, zone); err != nil {
		t.Fatalf("half-overlap bay rejected by 0.40 threshold: %v", err)
	}
}

func TestCheckSensorNearBay(t *testing.T) {
	enf := NewEnforcer(DefaultThresholds())
	bay := rectAt(testCenter, 2.5, 5.0)
	pr := geo.NewProjection(testCenter)

	cases := []struct {
		name    string
		offsetX float64 // meters east of bay center
		ok      bool
	}{
		{"inside bay", 0, true},
		{"2m outside east edge", 1.25 + 2.0, true},
		{"just inside tolerance", 1.25 + 2.9, true},
		{"beyond tolerance", 1.25 + 3.6, false},
		{"far away", 50, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := pr.Unproject(c.offsetX, 0)
			sensor := geo.NewPoint(p.Lon, p.Lat)
			err := enf.CheckSensorNearBay(sensor, bay)
			if c.ok && err != nil {
				t.Fatalf("unexpected rejection: %v", err)
			}
			if !c.ok && !IsKind(err, ProximityViolation) {
				t.Fatalf("error = %v, want proximity_violation", err)
			}
		})
	}
}

func TestCheckViolationInBay(t *testing.T) {
	enf := NewEnforcer(DefaultThresholds())
	bay := rectAt(testCenter, 2.5, 5.0)
	pr := geo.NewProjection(testCenter)

	inside := geo.NewPoint(testCenter.Lon, testCenter.Lat)
	if err := enf.CheckViolationInBay(inside, bay); err != nil {
		t.Fatalf("violation inside bay rejected: %v", err)
	}

	// 1.5 m outside the east edge is within the 2 m tolerance.
	nearP := pr.Unproject(1.25+1.5, 0)
	if err := enf.CheckViolationInBay(geo.NewPoint(nearP.Lon, nearP.Lat), bay); err != nil {
		t.Fatalf("violation within tolerance rejected: %v", err)
	}

	// 4 m outside exceeds it.
	farP := pr.Unproject(1.25+4, 0)
	err := enf.CheckViolationInBay(geo.NewPoint(farP.Lon, farP.Lat), bay)
	if !IsKind(err, ProximityViolation) {
		t.Fatalf("error = %v, want proximity_violation", err)
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Threshold != 2.0 {
			t.Fatalf("threshold = %.2f, want 2.0", e.Threshold)
		}
		if e.Measured < 3.5 || e.Measured > 4.5 {
			t.Fatalf("measured = %.2f, want ~4", e.Measured)
		}
	}
}

func TestInvariantChecksRejectWrongKinds(t *testing.T) {
	enf := NewEnforcer(DefaultThresholds())
	point := geo.NewPoint(13.4, 52.5)
	poly := squareAt(testCenter, 10)

	if err := enf.CheckBayInZone(point, poly); !IsKind(err, InvalidGeometry) {
		t.Fatalf("point bay: error = %v, want invalid_geometry", err)
	}
	if err := enf.CheckSensorNearBay(poly, poly); !IsKind(err, InvalidGeometry) {
		t.Fatalf("polygon sensor: error = %v, want invalid_geometry", err)
	}
	if err := enf.CheckSensorNearBay(point, point); !IsKind(err, InvalidGeometry) {
		t.Fatalf("point bay polygon: error = %v, want invalid_geometry", err)
	}
}
