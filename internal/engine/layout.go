package engine

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"

	"parking-bknd/internal/geo"
)

// LayoutConfig controls procedural bay generation. All values are meters or
// counts and come from configuration.
type LayoutConfig struct {
	BayWidthM    float64
	BayLengthM   float64
	BaySpacingM  float64
	AvgBayAreaM2 float64
	MinBays      int
	MaxBays      int

	// MinZoneOverlap is the minimum share of a candidate bay's area that must
	// lie inside the zone. It must match the enforcer's bay-in-zone ratio so
	// generation never emits a bay that persistence would reject.
	MinZoneOverlap float64
}

// DefaultLayoutConfig returns the operational defaults (2.5 m × 5.0 m bays,
// 0.5 m spacing, 15 m² gross area per bay, 3–50 bays per zone).
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		BayWidthM:      2.5,
		BayLengthM:     5.0,
		BaySpacingM:    0.5,
		AvgBayAreaM2:   15.0,
		MinBays:        3,
		MaxBays:        50,
		MinZoneOverlap: 0.90,
	}
}

// GeneratedBay is one synthesized bay polygon with its sampled attributes.
type GeneratedBay struct {
	Number     string
	Geometry   geo.Geometry
	Accessible bool
	Electric   bool
}

// ZoneCategory groups zone types by placement strategy.
func areaBasedZone(zoneType string) bool {
	return zoneType == "lot" || zoneType == "garage"
}

// Generator synthesizes bay polygons from a zone polygon.
type Generator struct {
	cfg LayoutConfig
}

// NewGenerator builds a bay layout generator.
func NewGenerator(cfg LayoutConfig) *Generator {
	return &Generator{cfg: cfg}
}

// GenerateBays derives bay polygons for a zone. Area-based zones (lot/garage)
// are tiled with a grid over the zone's oriented bounding rectangle;
// boundary-based zones get bays walked along the perimeter. Candidate cells
// the zone cannot hold are dropped, so the result may fall short of the
// target. A degenerate or too-small zone yields an empty slice, never an
// error. Output is deterministic for identical input.
func (g *Generator) GenerateBays(zoneName, zoneType string, zone geo.Geometry, capacityHint *int) []GeneratedBay {
	if zone.Kind != geo.KindPolygon {
		return nil
	}
	if ok, _ := geo.ValidatePolygon(zone.Rings); !ok {
		return nil
	}
	area := geo.PolygonArea(zone.Rings)
	if area <= 0 {
		return nil
	}

	target := g.resolveTargetCount(zoneName, area, capacityHint)
	if target <= 0 {
		return nil
	}

	var cells []geo.Geometry
	if areaBasedZone(zoneType) {
		cells = g.gridCells(zone, target)
	} else {
		cells = g.perimeterCells(zone, target)
	}
	if len(cells) == 0 {
		cells = g.fallbackCells(zone, target)
	}
	cells = g.keepContained(zone, cells)

	prefix := bayPrefix(zoneName)
	bays := make([]GeneratedBay, 0, len(cells))
	for i, cell := range cells {
		bays = append(bays, GeneratedBay{
			Number:   fmt.Sprintf("%s-%03d", prefix, i+1),
			Geometry: cell,
			// Every 20th bay accessible, EV offset by 10: a fixed 5% of each.
			Accessible: i%20 == 0,
			Electric:   i%20 == 10,
		})
	}
	return bays
}

// resolveTargetCount picks the bay count: the capacity hint when it is inside
// the configured clamp range, otherwise an area estimate clamped to the range.
// Zones too small for the estimate get a small seeded pseudo-random count so
// re-synchronization reproduces the same layout.
func (g *Generator) resolveTargetCount(zoneName string, area float64, hint *int) int {
	if hint != nil && *hint >= g.cfg.MinBays && *hint <= g.cfg.MaxBays {
		return *hint
	}
	estimated := int(area / g.cfg.AvgBayAreaM2)
	if estimated >= 1 {
		return clamp(estimated, g.cfg.MinBays, g.cfg.MaxBays)
	}
	rng := rand.New(rand.NewSource(int64(seedFor(zoneName))))
	return clamp(g.cfg.MinBays+rng.Intn(3), g.cfg.MinBays, g.cfg.MaxBays)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func seedFor(name string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return h.Sum32()
}

func bayPrefix(zoneName string) string {
	clean := strings.ToUpper(strings.ReplaceAll(zoneName, " ", ""))
	if len(clean) >= 3 {
		return clean[:3]
	}
	if clean != "" {
		return clean
	}
	return "BAY"
}

// gridCells tiles the zone's oriented bounding rectangle with bay-sized cells
// and keeps cells whose centroid falls inside the zone, in row-major order.
func (g *Generator) gridCells(zone geo.Geometry, target int) []geo.Geometry {
	pr := geo.NewProjection(geo.Centroid(zone))
	ring := projectExterior(pr, zone.Rings[0])

	angle, minX, minY, maxX, maxY := orientedBoundingRect(ring)
	cos, sin := math.Cos(angle), math.Sin(angle)

	stepX := g.cfg.BayWidthM + g.cfg.BaySpacingM
	stepY := g.cfg.BayLengthM + g.cfg.BaySpacingM
	cols := int((maxX - minX) / stepX)
	rows := int((maxY - minY) / stepY)

	var cells []geo.Geometry
	for row := 0; row < rows && len(cells) < target; row++ {
		for col := 0; col < cols && len(cells) < target; col++ {
			x0 := minX + float64(col)*stepX + g.cfg.BaySpacingM/2
			y0 := minY + float64(row)*stepY + g.cfg.BaySpacingM/2
			cx := x0 + g.cfg.BayWidthM/2
			cy := y0 + g.cfg.BayLengthM/2

			centroid := pr.Unproject(rotate(cx, cy, cos, sin))
			if !geo.Contains(zone.Rings, centroid) {
				continue
			}
			cells = append(cells, rectPolygon(pr, cos, sin,
				x0, y0, x0+g.cfg.BayWidthM, y0+g.cfg.BayLengthM))
		}
	}
	return cells
}

// perimeterCells walks the exterior ring at a fixed arc-length step and emits
// a bay rectangle tangent to the boundary at each step, offset toward the
// zone interior.
func (g *Generator) perimeterCells(zone geo.Geometry, target int) []geo.Geometry {
	ext := zone.Rings[0]
	pr := geo.NewProjection(geo.Centroid(zone))
	ring := projectExterior(pr, ext)

	// Interior is left of travel for a counterclockwise ring.
	ccw := signedArea(ring) > 0
	step := g.cfg.BayLengthM + 2*g.cfg.BaySpacingM
	inset := g.cfg.BayWidthM * 0.6

	var cells []geo.Geometry
	carried := step / 2 // start half a step in so bays stay off corners
	for i := 0; i+1 < len(ring) && len(cells) < target; i++ {
		ax, ay := ring[i][0], ring[i][1]
		bx, by := ring[i+1][0], ring[i+1][1]
		segLen := math.Hypot(bx-ax, by-ay)
		if segLen < 1e-9 {
			continue
		}
		ux, uy := (bx-ax)/segLen, (by-ay)/segLen
		nx, ny := -uy, ux // left normal
		if !ccw {
			nx, ny = uy, -ux
		}

		pos := carried
		for pos+g.cfg.BayLengthM/2 <= segLen && len(cells) < target {
			cx := ax + ux*pos + nx*inset
			cy := ay + uy*pos + ny*inset

			cell := tangentRect(pr, cx, cy, ux, uy, nx, ny, g.cfg.BayLengthM, g.cfg.BayWidthM)
			if geo.Contains(zone.Rings, geo.Centroid(cell)) {
				cells = append(cells, cell)
			}
			pos += step
		}
		carried = pos - segLen
		if carried < 0 {
			carried = 0
		}
	}
	return cells
}

// fallbackCells covers zones whose shape defeats both strategies: a small
// cluster of buffered footprints around an interior point.
func (g *Generator) fallbackCells(zone geo.Geometry, target int) []geo.Geometry {
	center := geo.Centroid(zone)
	if !geo.Contains(zone.Rings, center) {
		return nil
	}
	pr := geo.NewProjection(center)
	count := target
	if count > 8 {
		count = 8
	}
	var cells []geo.Geometry
	for i := 0; i < count; i++ {
		dx := float64(i) * 3.5
		if i%2 == 1 {
			dx = -dx
		}
		dy := float64(i%3) * 2.0
		at := pr.Unproject(dx, dy)
		if !geo.Contains(zone.Rings, at) {
			at = center
		}
		cells = append(cells, BufferPoint(at, g.cfg.BayWidthM/2))
	}
	return cells
}

// keepContained drops candidate cells the zone cannot hold, mirroring the
// bay-in-zone invariant: full containment, or at least MinZoneOverlap of the
// cell's own area inside the zone. A zone too small for any bay footprint
// yields an empty layout rather than cells a later write would reject.
func (g *Generator) keepContained(zone geo.Geometry, cells []geo.Geometry) []geo.Geometry {
	kept := cells[:0]
	for _, cell := range cells {
		if geo.ContainsPolygon(zone.Rings, cell.Rings) {
			kept = append(kept, cell)
			continue
		}
		area := geo.PolygonArea(cell.Rings)
		if area <= 0 {
			continue
		}
		if geo.IntersectionArea(cell.Rings, zone.Rings)/area >= g.cfg.MinZoneOverlap {
			kept = append(kept, cell)
		}
	}
	return kept
}

func projectExterior(pr geo.Projection, ext geo.Ring) [][2]float64 {
	out := make([][2]float64, len(ext))
	for i, p := range ext {
		x, y := pr.Forward(p)
		out[i] = [2]float64{x, y}
	}
	return out
}

func signedArea(ring [][2]float64) float64 {
	var sum float64
	for i := 0; i+1 < len(ring); i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum / 2
}

// orientedBoundingRect finds the rotation angle whose axis-aligned bounding
// box over the ring has minimal area, scanning each edge direction.
func orientedBoundingRect(ring [][2]float64) (angle, minX, minY, maxX, maxY float64) {
	bestArea := math.Inf(1)
	for i := 0; i+1 < len(ring); i++ {
		dx := ring[i+1][0] - ring[i][0]
		dy := ring[i+1][1] - ring[i][1]
		if dx == 0 && dy == 0 {
			continue
		}
		a := math.Atan2(dy, dx)
		cos, sin := math.Cos(-a), math.Sin(-a)
		loX, loY := math.Inf(1), math.Inf(1)
		hiX, hiY := math.Inf(-1), math.Inf(-1)
		for _, p := range ring {
			x, y := rotate(p[0], p[1], cos, sin)
			loX = math.Min(loX, x)
			loY = math.Min(loY, y)
			hiX = math.Max(hiX, x)
			hiY = math.Max(hiY, y)
		}
		if area := (hiX - loX) * (hiY - loY); area < bestArea {
			bestArea = area
			angle, minX, minY, maxX, maxY = a, loX, loY, hiX, hiY
		}
	}
	if math.IsInf(bestArea, 1) {
		// Degenerate ring: fall back to the axis-aligned box.
		for _, p := range ring {
			minX = math.Min(minX, p[0])
			minY = math.Min(minY, p[1])
			maxX = math.Max(maxX, p[0])
			maxY = math.Max(maxY, p[1])
		}
	}
	return angle, minX, minY, maxX, maxY
}

func rotate(x, y, cos, sin float64) (float64, float64) {
	return x*cos - y*sin, x*sin + y*cos
}

// rectPolygon builds a closed lon/lat rectangle from corners given in the
// rotated grid frame.
func rectPolygon(pr geo.Projection, cos, sin, x0, y0, x1, y1 float64) geo.Geometry {
	corners := [][2]float64{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
	ring := make(geo.Ring, len(corners))
	for i, c := range corners {
		ring[i] = pr.Unproject(rotate(c[0], c[1], cos, sin))
	}
	return geo.NewPolygon([]geo.Ring{ring})
}

// tangentRect builds a closed rectangle centered at (cx, cy) with its long
// side along (ux, uy) and short side along (nx, ny).
func tangentRect(pr geo.Projection, cx, cy, ux, uy, nx, ny, length, width float64) geo.Geometry {
	hl, hw := length/2, width/2
	corners := [][2]float64{
		{cx - ux*hl - nx*hw, cy - uy*hl - ny*hw},
		{cx + ux*hl - nx*hw, cy + uy*hl - ny*hw},
		{cx + ux*hl + nx*hw, cy + uy*hl + ny*hw},
		{cx - ux*hl + nx*hw, cy - uy*hl + ny*hw},
	}
	ring := make(geo.Ring, 0, 5)
	for _, c := range corners {
		ring = append(ring, pr.Unproject(c[0], c[1]))
	}
	ring = append(ring, ring[0])
	return geo.NewPolygon([]geo.Ring{ring})
}
