// Package spatialindex provides a fixed-cell grid index over representative
// points. It is a candidate pre-filter only: callers re-check every candidate
// exactly, so query correctness never depends on the index.
package spatialindex

import (
	"math"

	"parking-bknd/internal/geo"
)

type cellKey struct {
	i, j int
}

// Grid buckets points into square cells of a fixed nominal size in meters.
type Grid struct {
	cellDegLat float64
	cellDegLon float64
	cells      map[cellKey][]int64
}

// NewGrid builds an empty grid with the given cell size. Cell width in
// degrees is fixed at the reference latitude so bucket shape stays roughly
// square over a city extent.
func NewGrid(cellSizeM float64, refLat float64) *Grid {
	dLat := cellSizeM / 111320.0
	dLon := dLat / math.Max(math.Cos(refLat*math.Pi/180), 1e-9)
	return &Grid{
		cellDegLat: dLat,
		cellDegLon: dLon,
		cells:      make(map[cellKey][]int64),
	}
}

func (g *Grid) keyFor(p geo.Point) cellKey {
	return cellKey{
		i: int(math.Floor(p.Lon / g.cellDegLon)),
		j: int(math.Floor(p.Lat / g.cellDegLat)),
	}
}

// Insert registers an id at its representative point.
func (g *Grid) Insert(id int64, p geo.Point) {
	k := g.keyFor(p)
	g.cells[k] = append(g.cells[k], id)
}

// Len returns the number of indexed entries.
func (g *Grid) Len() int {
	n := 0
	for _, ids := range g.cells {
		n += len(ids)
	}
	return n
}

// Near returns candidate ids whose cells intersect the radius around center.
// Candidates may lie outside the radius; callers filter exactly.
func (g *Grid) Near(center geo.Point, radiusM float64) []int64 {
	box := geo.BBox{
		MinLon: center.Lon, MaxLon: center.Lon,
		MinLat: center.Lat, MaxLat: center.Lat,
	}.Expand(radiusM)
	return g.Within(box)
}

// Within returns candidate ids for all cells overlapping the box.
func (g *Grid) Within(b geo.BBox) []int64 {
	lo := g.keyFor(geo.Point{Lon: b.MinLon, Lat: b.MinLat})
	hi := g.keyFor(geo.Point{Lon: b.MaxLon, Lat: b.MaxLat})
	var out []int64
	for i := lo.i; i <= hi.i; i++ {
		for j := lo.j; j <= hi.j; j++ {
			out = append(out, g.cells[cellKey{i, j}]...)
		}
	}
	return out
}
