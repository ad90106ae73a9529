package engine

import (
	"math"
	"sort"

	"parking-bknd/internal/geo"
)

// Feature is one spatially-indexed entity snapshot handed to the query
// engine: its geometry plus the flat attributes queries filter on.
type Feature struct {
	ID       int64
	Kind     EntityKind
	Geometry geo.Geometry
	Props    map[string]string
}

// RepresentativePoint is the point queries measure distances against: the
// geometry itself for points, the centroid otherwise.
func (f Feature) RepresentativePoint() geo.Point {
	if f.Geometry.Kind == geo.KindPoint {
		return f.Geometry.Point
	}
	return geo.Centroid(f.Geometry)
}

// Index supplies candidate ids near a location. The grid index in
// internal/spatialindex satisfies this; a nil index degrades to a full scan
// with identical results.
type Index interface {
	Near(center geo.Point, radiusM float64) []int64
	Within(b geo.BBox) []int64
}

// QueryEngine answers read-only spatial queries over a consistent feature
// snapshot. Safe for unlimited concurrent use; nothing here mutates state.
type QueryEngine struct {
	features map[int64]Feature
	order    []int64 // insertion order, for deterministic scans
	index    Index
}

// NewQueryEngine builds a query engine over a snapshot. idx may be nil.
func NewQueryEngine(features []Feature, idx Index) *QueryEngine {
	qe := &QueryEngine{
		features: make(map[int64]Feature, len(features)),
		order:    make([]int64, 0, len(features)),
		index:    idx,
	}
	for _, f := range features {
		qe.features[f.ID] = f
		qe.order = append(qe.order, f.ID)
	}
	return qe
}

// Match is one radius-search hit.
type Match struct {
	Feature   Feature
	DistanceM float64
}

// WithinRadius returns features of the given kind whose representative point
// lies within radiusM meters of center, matching all filter key/values,
// sorted ascending by distance. A radius of zero matches only coincident
// points.
func (qe *QueryEngine) WithinRadius(kind EntityKind, center geo.Point, radiusM float64, filters map[string]string) []Match {
	var matches []Match
	for _, id := range qe.candidates(center, radiusM) {
		f, ok := qe.features[id]
		if !ok || f.Kind != kind {
			continue
		}
		if !matchesFilters(f, filters) {
			continue
		}
		d := geo.Haversine(center, f.RepresentativePoint())
		if d > radiusM {
			continue
		}
		matches = append(matches, Match{Feature: f, DistanceM: d})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceM < matches[j].DistanceM
	})
	return matches
}

func (qe *QueryEngine) candidates(center geo.Point, radiusM float64) []int64 {
	if qe.index == nil {
		return qe.order
	}
	return qe.index.Near(center, radiusM)
}

func matchesFilters(f Feature, filters map[string]string) bool {
	for k, v := range filters {
		if f.Props[k] != v {
			return false
		}
	}
	return true
}

// ContainingZones returns every zone feature whose polygon contains the
// point. Normally zero or one, but overlapping zones are representable.
func (qe *QueryEngine) ContainingZones(p geo.Point) []Feature {
	var out []Feature
	for _, id := range qe.order {
		f := qe.features[id]
		if f.Kind != EntityZone || f.Geometry.Kind != geo.KindPolygon {
			continue
		}
		if geo.Contains(f.Geometry.Rings, p) {
			out = append(out, f)
		}
	}
	return out
}

// CellSummary is one non-empty grid-aggregation cell.
type CellSummary struct {
	Row, Col int
	Polygon  geo.Geometry
	Center   geo.Point
	Count    int
	Props    map[string]any
}

// Aggregator summarizes the features of one cell. Returning ok=false drops
// the cell from the result.
type Aggregator func(cell []Feature) (props map[string]any, ok bool)

// GridAggregate partitions the bounding box into square cells of cellSizeM in
// the local projection and applies agg to the features whose representative
// point falls in each cell. Only non-empty cells are returned, in row-major
// order.
func (qe *QueryEngine) GridAggregate(box geo.BBox, cellSizeM float64, kind EntityKind, agg Aggregator) []CellSummary {
	if cellSizeM <= 0 {
		return nil
	}
	origin := geo.Point{Lon: box.MinLon, Lat: box.MinLat}
	pr := geo.NewProjection(origin)
	maxX, maxY := pr.Forward(geo.Point{Lon: box.MaxLon, Lat: box.MaxLat})
	if maxX <= 0 || maxY <= 0 {
		return nil
	}
	cols := int(math.Ceil(maxX / cellSizeM))
	rows := int(math.Ceil(maxY / cellSizeM))

	buckets := make(map[[2]int][]Feature)
	var candidates []int64
	if qe.index != nil {
		candidates = qe.index.Within(box)
	} else {
		candidates = qe.order
	}
	for _, id := range candidates {
		f, ok := qe.features[id]
		if !ok || f.Kind != kind {
			continue
		}
		rp := f.RepresentativePoint()
		if !box.Contains(rp) {
			continue
		}
		x, y := pr.Forward(rp)
		col := int(x / cellSizeM)
		row := int(y / cellSizeM)
		if col < 0 || col >= cols || row < 0 || row >= rows {
			continue
		}
		buckets[[2]int{row, col}] = append(buckets[[2]int{row, col}], f)
	}

	var out []CellSummary
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			cell, ok := buckets[[2]int{row, col}]
			if !ok {
				continue
			}
			props, keep := agg(cell)
			if !keep {
				continue
			}
			x0 := float64(col) * cellSizeM
			y0 := float64(row) * cellSizeM
			ring := geo.Ring{
				pr.Unproject(x0, y0),
				pr.Unproject(x0+cellSizeM, y0),
				pr.Unproject(x0+cellSizeM, y0+cellSizeM),
				pr.Unproject(x0, y0+cellSizeM),
				pr.Unproject(x0, y0),
			}
			out = append(out, CellSummary{
				Row:     row,
				Col:     col,
				Polygon: geo.NewPolygon([]geo.Ring{ring}),
				Center:  pr.Unproject(x0+cellSizeM/2, y0+cellSizeM/2),
				Count:   len(cell),
				Props:   props,
			})
		}
	}
	return out
}

// OccupancyAggregator summarizes bay statuses per cell: occupied/total counts
// and an intensity in [0,1]. Cells with no bays are dropped.
func OccupancyAggregator(cell []Feature) (map[string]any, bool) {
	if len(cell) == 0 {
		return nil, false
	}
	occupied := 0
	for _, f := range cell {
		if f.Props["status"] == "occupied" {
			occupied++
		}
	}
	ratio := float64(occupied) / float64(len(cell))
	return map[string]any{
		"total_bays":        len(cell),
		"occupied_bays":     occupied,
		"occupancy_percent": math.Round(ratio*10000) / 100,
		"intensity":         ratio,
	}, true
}

// ViolationCountAggregator counts violations and sums fines per cell.
func ViolationCountAggregator(cell []Feature) (map[string]any, bool) {
	if len(cell) == 0 {
		return nil, false
	}
	return map[string]any{
		"violation_count": len(cell),
	}, true
}

// Occupancy summarizes bay statuses for one zone. The percentage is computed
// over bays whose status is not closed.
type Occupancy struct {
	Total            int     `json:"total_bays"`
	Available        int     `json:"available_bays"`
	Occupied         int     `json:"occupied_bays"`
	Reserved         int     `json:"reserved_bays"`
	Closed           int     `json:"closed_bays"`
	OccupancyPercent float64 `json:"occupancy_percent"`
}

// ZoneOccupancy tallies bay features by status.
func ZoneOccupancy(bays []Feature) Occupancy {
	var o Occupancy
	for _, f := range bays {
		o.Total++
		switch f.Props["status"] {
		case "available":
			o.Available++
		case "occupied":
			o.Occupied++
		case "reserved":
			o.Reserved++
		case "closed":
			o.Closed++
		}
	}
	if active := o.Total - o.Closed; active > 0 {
		o.OccupancyPercent = math.Round(float64(o.Occupied)/float64(active)*1000) / 10
	}
	return o
}
