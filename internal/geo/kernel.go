package geo

import (
	"math"
)

// Mean earth radius in meters (IUGG).
const earthRadiusM = 6371008.8

// BBox is an axis-aligned lon/lat bounding box.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Contains reports whether the point lies inside the box (inclusive).
func (b BBox) Contains(p Point) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon &&
		p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// Expand grows the box by roughly meters on every side.
func (b BBox) Expand(meters float64) BBox {
	midLat := (b.MinLat + b.MaxLat) / 2
	dLat := meters / 111320.0
	dLon := dLat / math.Max(math.Cos(midLat*math.Pi/180), 1e-9)
	return BBox{b.MinLon - dLon, b.MinLat - dLat, b.MaxLon + dLon, b.MaxLat + dLat}
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	la1 := a.Lat * math.Pi / 180
	la2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(s)))
}

// xy is a coordinate in the local projected plane, in meters.
type xy struct {
	x, y float64
}

// Projection is an equirectangular projection about a local origin. Within a
// city-scale extent it keeps meter distances accurate to well under a percent,
// which is what makes the 2 m / 3 m / 90% thresholds latitude-independent.
type Projection struct {
	origin Point
	cosLat float64
}

// NewProjection builds a local projection centered on origin.
func NewProjection(origin Point) Projection {
	return Projection{origin: origin, cosLat: math.Cos(origin.Lat * math.Pi / 180)}
}

func (pr Projection) project(p Point) xy {
	return xy{
		x: (p.Lon - pr.origin.Lon) * math.Pi / 180 * earthRadiusM * pr.cosLat,
		y: (p.Lat - pr.origin.Lat) * math.Pi / 180 * earthRadiusM,
	}
}

// Forward maps a lon/lat point into the local plane, in meters.
func (pr Projection) Forward(p Point) (x, y float64) {
	q := pr.project(p)
	return q.x, q.y
}

// Unproject maps local plane coordinates (meters) back to lon/lat.
func (pr Projection) Unproject(x, y float64) Point {
	return Point{
		Lon: pr.origin.Lon + x/(earthRadiusM*math.Max(pr.cosLat, 1e-12))*180/math.Pi,
		Lat: pr.origin.Lat + y/earthRadiusM*180/math.Pi,
	}
}

func (pr Projection) projectRing(r Ring) []xy {
	out := make([]xy, len(r))
	for i, p := range r {
		out[i] = pr.project(p)
	}
	return out
}

// BoundingBox returns the lon/lat bounding box of any geometry kind.
func BoundingBox(g Geometry) BBox {
	b := BBox{MinLon: math.Inf(1), MinLat: math.Inf(1), MaxLon: math.Inf(-1), MaxLat: math.Inf(-1)}
	add := func(p Point) {
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
	}
	eachPoint(g, add)
	return b
}

func eachPoint(g Geometry, fn func(Point)) {
	switch g.Kind {
	case KindPoint:
		fn(g.Point)
	case KindLineString:
		for _, p := range g.Line {
			fn(p)
		}
	case KindPolygon:
		for _, r := range g.Rings {
			for _, p := range r {
				fn(p)
			}
		}
	case KindMultiPoint:
		for _, p := range g.Points {
			fn(p)
		}
	case KindMultiLineString:
		for _, l := range g.Lines {
			for _, p := range l {
				fn(p)
			}
		}
	case KindMultiPolygon:
		for _, rings := range g.Polygons {
			for _, r := range rings {
				for _, p := range r {
					fn(p)
				}
			}
		}
	case KindGeometryCollection:
		for _, m := range g.Members {
			eachPoint(m, fn)
		}
	}
}

// PolygonArea returns the geodesic area of a polygon in square meters.
// Holes (rings past the first) are subtracted.
func PolygonArea(rings []Ring) float64 {
	if len(rings) == 0 || len(rings[0]) < 4 {
		return 0
	}
	pr := NewProjection(rings[0][0])
	area := ringArea(pr.projectRing(rings[0]))
	for _, hole := range rings[1:] {
		area -= ringArea(pr.projectRing(hole))
	}
	return math.Max(area, 0)
}

// ringArea is the shoelace area (absolute) of a projected ring.
func ringArea(pts []xy) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < len(pts)-1; i++ {
		sum += pts[i].x*pts[i+1].y - pts[i+1].x*pts[i].y
	}
	return math.Abs(sum) / 2
}

// LineLength returns the geodesic length of a linestring in meters.
func LineLength(line []Point) float64 {
	var total float64
	for i := 0; i+1 < len(line); i++ {
		total += Haversine(line[i], line[i+1])
	}
	return total
}

// Centroid returns a representative point for any canonical geometry:
// the point itself, the length-weighted midpoint of a linestring, or the
// area centroid of a polygon's exterior ring.
func Centroid(g Geometry) Point {
	switch g.Kind {
	case KindPoint:
		return g.Point
	case KindLineString:
		return lineCentroid(g.Line)
	case KindPolygon:
		if len(g.Rings) == 0 {
			return Point{}
		}
		return ringCentroid(g.Rings[0])
	case KindMultiPoint:
		return averagePoint(g.Points)
	case KindMultiLineString:
		var all []Point
		for _, l := range g.Lines {
			all = append(all, l...)
		}
		return averagePoint(all)
	case KindMultiPolygon:
		// Centroid of the largest member keeps the result inside something.
		var best []Ring
		bestArea := -1.0
		for _, rings := range g.Polygons {
			if a := PolygonArea(rings); a > bestArea {
				bestArea = a
				best = rings
			}
		}
		if len(best) > 0 {
			return ringCentroid(best[0])
		}
		return Point{}
	case KindGeometryCollection:
		var pts []Point
		for _, m := range g.Members {
			pts = append(pts, Centroid(m))
		}
		return averagePoint(pts)
	}
	return Point{}
}

func averagePoint(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var lon, lat float64
	for _, p := range pts {
		lon += p.Lon
		lat += p.Lat
	}
	return Point{Lon: lon / float64(len(pts)), Lat: lat / float64(len(pts))}
}

func lineCentroid(line []Point) Point {
	if len(line) == 0 {
		return Point{}
	}
	if len(line) == 1 {
		return line[0]
	}
	var total, lon, lat float64
	for i := 0; i+1 < len(line); i++ {
		seg := Haversine(line[i], line[i+1])
		lon += (line[i].Lon + line[i+1].Lon) / 2 * seg
		lat += (line[i].Lat + line[i+1].Lat) / 2 * seg
		total += seg
	}
	if total == 0 {
		return line[0]
	}
	return Point{Lon: lon / total, Lat: lat / total}
}

func ringCentroid(r Ring) Point {
	if len(r) < 4 {
		return averagePoint(r)
	}
	pr := NewProjection(r[0])
	pts := pr.projectRing(r)
	var a, cx, cy float64
	for i := 0; i < len(pts)-1; i++ {
		cross := pts[i].x*pts[i+1].y - pts[i+1].x*pts[i].y
		a += cross
		cx += (pts[i].x + pts[i+1].x) * cross
		cy += (pts[i].y + pts[i+1].y) * cross
	}
	if math.Abs(a) < 1e-12 {
		return averagePoint(r)
	}
	return pr.Unproject(cx/(3*a), cy/(3*a))
}

// Contains reports whether the point lies inside the polygon, honoring holes.
// Ray casting in lon/lat is stable at city scale; boundary points count as
// inside because every invariant pairs containment with a distance tolerance.
func Contains(rings []Ring, p Point) bool {
	if len(rings) == 0 {
		return false
	}
	if !pointInRing(rings[0], p) {
		return false
	}
	for _, hole := range rings[1:] {
		if pointInRing(hole, p) {
			return false
		}
	}
	return true
}

func pointInRing(r Ring, p Point) bool {
	n := len(r)
	if n < 4 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := r[i].Lon, r[i].Lat
		xj, yj := r[j].Lon, r[j].Lat
		if (yi > p.Lat) != (yj > p.Lat) &&
			p.Lon < (xj-xi)*(p.Lat-yi)/(yj-yi+1e-18)+xi {
			inside = !inside
		}
	}
	return inside
}

// ContainsPolygon reports whether every vertex of inner lies inside outer.
func ContainsPolygon(outer, inner []Ring) bool {
	if len(inner) == 0 {
		return false
	}
	for _, p := range inner[0] {
		if !Contains(outer, p) {
			return false
		}
	}
	return true
}

// IntersectionArea returns the overlap area of two polygons in square meters.
// When either exterior ring is convex the overlap is computed exactly with
// Sutherland–Hodgman clipping; otherwise a deterministic sampling estimate
// over the tighter bounding box is used.
func IntersectionArea(a, b []Ring) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	pr := NewProjection(a[0][0])
	subj := pr.projectRing(a[0])
	clip := pr.projectRing(b[0])

	if isConvex(clip) {
		return ringArea(clipPolygon(subj, clip))
	}
	if isConvex(subj) {
		return ringArea(clipPolygon(clip, subj))
	}
	return sampledIntersectionArea(a, b)
}

// isConvex reports whether a closed projected ring is convex.
func isConvex(pts []xy) bool {
	n := len(pts) - 1 // closing vertex repeats the first
	if n < 3 {
		return false
	}
	var sign float64
	for i := 0; i < n; i++ {
		p0 := pts[i]
		p1 := pts[(i+1)%n]
		p2 := pts[(i+2)%n]
		cross := (p1.x-p0.x)*(p2.y-p1.y) - (p1.y-p0.y)*(p2.x-p1.x)
		if math.Abs(cross) < 1e-12 {
			continue
		}
		if sign == 0 {
			sign = cross
		} else if sign*cross < 0 {
			return false
		}
	}
	return true
}

// clipPolygon clips subject against a convex clip ring (Sutherland–Hodgman)
// and returns the resulting closed ring.
func clipPolygon(subject, clip []xy) []xy {
	output := append([]xy(nil), subject...)
	if len(output) > 1 && output[0] == output[len(output)-1] {
		output = output[:len(output)-1]
	}
	clipOpen := clip
	if len(clipOpen) > 1 && clipOpen[0] == clipOpen[len(clipOpen)-1] {
		clipOpen = clipOpen[:len(clipOpen)-1]
	}
	orient := signedRingArea(clipOpen)

	for i := 0; i < len(clipOpen) && len(output) > 0; i++ {
		edgeA := clipOpen[i]
		edgeB := clipOpen[(i+1)%len(clipOpen)]
		input := output
		output = nil

		inside := func(p xy) bool {
			cross := (edgeB.x-edgeA.x)*(p.y-edgeA.y) - (edgeB.y-edgeA.y)*(p.x-edgeA.x)
			if orient >= 0 {
				return cross >= 0
			}
			return cross <= 0
		}
		for j := 0; j < len(input); j++ {
			cur := input[j]
			prev := input[(j+len(input)-1)%len(input)]
			curIn := inside(cur)
			prevIn := inside(prev)
			if curIn {
				if !prevIn {
					output = append(output, lineIntersection(prev, cur, edgeA, edgeB))
				}
				output = append(output, cur)
			} else if prevIn {
				output = append(output, lineIntersection(prev, cur, edgeA, edgeB))
			}
		}
	}
	if len(output) == 0 {
		return nil
	}
	return append(output, output[0])
}

func signedRingArea(pts []xy) float64 {
	var sum float64
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += pts[i].x*pts[j].y - pts[j].x*pts[i].y
	}
	return sum / 2
}

func lineIntersection(p1, p2, p3, p4 xy) xy {
	d := (p1.x-p2.x)*(p3.y-p4.y) - (p1.y-p2.y)*(p3.x-p4.x)
	if math.Abs(d) < 1e-18 {
		return p2
	}
	t := ((p1.x-p3.x)*(p3.y-p4.y) - (p1.y-p3.y)*(p3.x-p4.x)) / d
	return xy{x: p1.x + t*(p2.x-p1.x), y: p1.y + t*(p2.y-p1.y)}
}

// sampledIntersectionArea estimates overlap with a fixed 64×64 grid over the
// bounding box of the smaller polygon. Deterministic for identical input.
func sampledIntersectionArea(a, b []Ring) float64 {
	inner, outer := a, b
	if PolygonArea(b) < PolygonArea(a) {
		inner, outer = b, a
	}
	box := BoundingBox(NewPolygon(inner))
	const n = 64
	dLon := (box.MaxLon - box.MinLon) / n
	dLat := (box.MaxLat - box.MinLat) / n
	if dLon <= 0 || dLat <= 0 {
		return 0
	}
	hits := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			p := Point{
				Lon: box.MinLon + (float64(i)+0.5)*dLon,
				Lat: box.MinLat + (float64(j)+0.5)*dLat,
			}
			if Contains(inner, p) && Contains(outer, p) {
				hits++
			}
		}
	}
	boxArea := PolygonArea([]Ring{{
		{box.MinLon, box.MinLat}, {box.MaxLon, box.MinLat},
		{box.MaxLon, box.MaxLat}, {box.MinLon, box.MaxLat},
		{box.MinLon, box.MinLat},
	}})
	return boxArea * float64(hits) / (n * n)
}

// ValidatePolygon checks structural validity of a polygon: a closed exterior
// ring of at least four points, no degenerate rings, non-zero area, and a
// simple (non-self-intersecting) exterior. Returns a human-readable reason
// when invalid.
func ValidatePolygon(rings []Ring) (bool, string) {
	if len(rings) == 0 {
		return false, "polygon has no rings"
	}
	for idx, r := range rings {
		if len(r) < 4 {
			return false, "ring has fewer than 4 points"
		}
		if r[0] != r[len(r)-1] {
			return false, "ring is not closed"
		}
		distinct := make(map[Point]struct{}, len(r))
		for _, p := range r[:len(r)-1] {
			distinct[p] = struct{}{}
		}
		if len(distinct) < 3 {
			return false, "ring has fewer than 3 distinct points"
		}
		if idx == 0 && !ringIsSimple(r) {
			return false, "exterior ring is self-intersecting"
		}
	}
	if PolygonArea(rings) <= 0 {
		return false, "polygon has zero area"
	}
	return true, ""
}

// ValidateLineString checks that a linestring has at least two points and
// non-zero length.
func ValidateLineString(line []Point) (bool, string) {
	if len(line) < 2 {
		return false, "linestring has fewer than 2 points"
	}
	if LineLength(line) == 0 {
		return false, "linestring has zero length"
	}
	return true, ""
}

// ringIsSimple checks a closed ring for self-intersection by testing every
// non-adjacent segment pair. Quadratic, fine for schema-sized rings.
func ringIsSimple(r Ring) bool {
	n := len(r) - 1
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			// Skip adjacent segments (they share an endpoint by construction).
			if j == i || j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if segmentsCross(r[i], r[i+1], r[j], r[j+1]) {
				return false
			}
		}
	}
	return true
}

func segmentsCross(a1, a2, b1, b2 Point) bool {
	d1 := cross2(b1, b2, a1)
	d2 := cross2(b1, b2, a2)
	d3 := cross2(a1, a2, b1)
	d4 := cross2(a1, a2, b2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross2(o, a, b Point) float64 {
	return (a.Lon-o.Lon)*(b.Lat-o.Lat) - (a.Lat-o.Lat)*(b.Lon-o.Lon)
}

// DistancePointToPolygon returns the geodesic distance in meters from a point
// to a polygon: zero when inside, otherwise the distance to the nearest edge
// of the exterior ring.
func DistancePointToPolygon(p Point, rings []Ring) float64 {
	if Contains(rings, p) {
		return 0
	}
	if len(rings) == 0 {
		return math.Inf(1)
	}
	return distanceToPath(p, []Point(rings[0]))
}

// DistancePointToLine returns the geodesic distance in meters from a point to
// a linestring.
func DistancePointToLine(p Point, line []Point) float64 {
	return distanceToPath(p, line)
}

func distanceToPath(p Point, path []Point) float64 {
	if len(path) == 0 {
		return math.Inf(1)
	}
	if len(path) == 1 {
		return Haversine(p, path[0])
	}
	pr := NewProjection(p)
	pp := pr.project(p)
	best := math.Inf(1)
	for i := 0; i+1 < len(path); i++ {
		d := pointSegmentDistance(pp, pr.project(path[i]), pr.project(path[i+1]))
		if d < best {
			best = d
		}
	}
	return best
}

func pointSegmentDistance(p, a, b xy) float64 {
	dx := b.x - a.x
	dy := b.y - a.y
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = ((p.x-a.x)*dx + (p.y-a.y)*dy) / lenSq
		t = math.Max(0, math.Min(1, t))
	}
	cx := a.x + t*dx
	cy := a.y + t*dy
	return math.Hypot(p.x-cx, p.y-cy)
}

// Distance returns the geodesic distance in meters between two canonical
// geometries. Overlapping or touching geometries are at distance zero.
func Distance(a, b Geometry) float64 {
	switch {
	case a.Kind == KindPoint && b.Kind == KindPoint:
		return Haversine(a.Point, b.Point)
	case a.Kind == KindPoint && b.Kind == KindPolygon:
		return DistancePointToPolygon(a.Point, b.Rings)
	case a.Kind == KindPolygon && b.Kind == KindPoint:
		return DistancePointToPolygon(b.Point, a.Rings)
	case a.Kind == KindPoint && b.Kind == KindLineString:
		return DistancePointToLine(a.Point, b.Line)
	case a.Kind == KindLineString && b.Kind == KindPoint:
		return DistancePointToLine(b.Point, a.Line)
	case a.Kind == KindPolygon && b.Kind == KindPolygon:
		return polygonPolygonDistance(a.Rings, b.Rings)
	case a.Kind == KindLineString && b.Kind == KindPolygon:
		return linePolygonDistance(a.Line, b.Rings)
	case a.Kind == KindPolygon && b.Kind == KindLineString:
		return linePolygonDistance(b.Line, a.Rings)
	case a.Kind == KindLineString && b.Kind == KindLineString:
		return lineLineDistance(a.Line, b.Line)
	}
	return Haversine(Centroid(a), Centroid(b))
}

func polygonPolygonDistance(a, b []Ring) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}
	if IntersectionArea(a, b) > 0 {
		return 0
	}
	best := math.Inf(1)
	for _, p := range a[0] {
		if d := DistancePointToPolygon(p, b); d < best {
			best = d
		}
	}
	for _, p := range b[0] {
		if d := DistancePointToPolygon(p, a); d < best {
			best = d
		}
	}
	return best
}

func linePolygonDistance(line []Point, rings []Ring) float64 {
	best := math.Inf(1)
	for _, p := range line {
		if d := DistancePointToPolygon(p, rings); d < best {
			best = d
		}
	}
	if len(rings) > 0 {
		for _, p := range rings[0] {
			if d := DistancePointToLine(p, line); d < best {
				best = d
			}
		}
	}
	return best
}

func lineLineDistance(a, b []Point) float64 {
	best := math.Inf(1)
	for _, p := range a {
		if d := DistancePointToLine(p, b); d < best {
			best = d
		}
	}
	for _, p := range b {
		if d := DistancePointToLine(p, a); d < best {
			best = d
		}
	}
	return best
}
