package models

import (
	"parking-bknd/internal/geo"
)

// Feature is a GeoJSON Feature: one geometry plus a property bag.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   geo.Geometry   `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// NewFeature builds a Feature from a geometry and its properties.
func NewFeature(g geo.Geometry, props map[string]any) Feature {
	return Feature{Type: "Feature", Geometry: g, Properties: props}
}

// FeatureCollection is the standard list response for spatial entities.
type FeatureCollection struct {
	Type     string         `json:"type"`
	Features []Feature      `json:"features"`
	Count    int            `json:"count"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewFeatureCollection wraps features into a FeatureCollection response.
func NewFeatureCollection(features []Feature) *FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return &FeatureCollection{Type: "FeatureCollection", Features: features, Count: len(features)}
}
