package engine

import (
	"errors"
	"fmt"
)

// Kind classifies engine rejections. Every error crossing the engine boundary
// carries exactly one of these so callers can branch without string matching.
type Kind string

const (
	GeometryTypeMismatch     Kind = "geometry_type_mismatch"
	ReferenceSystemMismatch  Kind = "reference_system_mismatch"
	InvalidGeometry          Kind = "invalid_geometry"
	ContainmentViolation     Kind = "containment_violation"
	ProximityViolation       Kind = "proximity_violation"
	ReferencedEntityNotFound Kind = "referenced_entity_not_found"
	UnconvertibleGeometry    Kind = "unconvertible_geometry"
	StatusConflict           Kind = "status_conflict"
)

// Error is a typed engine rejection. Threshold and Measured are populated for
// containment/proximity failures so the caller sees how far off the write was.
type Error struct {
	Kind      Kind
	Detail    string
	Threshold float64
	Measured  float64
}

func (e *Error) Error() string {
	if e.Threshold != 0 || e.Measured != 0 {
		return fmt.Sprintf("%s: %s (threshold %.2f, measured %.2f)", e.Kind, e.Detail, e.Threshold, e.Measured)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Errf builds a typed engine error.
func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the engine error kind from err, or "" if err is not an
// engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an engine error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
