package services

import (
	"encoding/json"
	"fmt"

	"parking-bknd/internal/geo"
)

// geomFromJSONExpr is the SQL expression used to write engine geometries into
// PostGIS columns. Reads go through ST_AsGeoJSON, so the engine only ever
// sees GeoJSON.
const geomFromJSONExpr = "ST_SetSRID(ST_GeomFromGeoJSON(?), ?)"

// encodeGeom renders a geometry as a GeoJSON string for ST_GeomFromGeoJSON.
func encodeGeom(g geo.Geometry) (string, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("encode geometry: %w", err)
	}
	return string(b), nil
}

// decodeGeom parses ST_AsGeoJSON output back into an engine geometry.
func decodeGeom(s string) (geo.Geometry, error) {
	var g geo.Geometry
	if err := json.Unmarshal([]byte(s), &g); err != nil {
		return geo.Geometry{}, fmt.Errorf("decode geometry: %w", err)
	}
	return g, nil
}
