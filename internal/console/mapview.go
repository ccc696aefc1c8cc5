package console

import (
	"fmt"
	"math"
	"strings"

	"rover-console/internal/telemetry"
)

// MapRenderer draws the rover's surroundings on a 2-D character surface.
type MapRenderer interface {
	Plot(s telemetry.Snapshot)
	Render(width, height int) string
}

const (
	defaultTrailLen = 64
	minMapSpan      = 2.0
	gridDivisions   = 4
)

// GridMap is an ASCII MapRenderer. It keeps a bounded trail of plotted
// positions and fits the view to it.
type GridMap struct {
	trail []telemetry.Position
	max   int
	last  telemetry.Snapshot
}

// NewGridMap creates a map keeping up to trail positions. Non-positive
// values select the default length.
func NewGridMap(trail int) *GridMap {
	if trail <= 0 {
		trail = defaultTrailLen
	}
	return &GridMap{max: trail}
}

// Plot records the snapshot's position. Repeated positions are not added to
// the trail twice in a row.
func (g *GridMap) Plot(s telemetry.Snapshot) {
	g.last = s
	if n := len(g.trail); n > 0 && g.trail[n-1] == s.Position {
		return
	}
	g.trail = append(g.trail, s.Position)
	if len(g.trail) > g.max {
		g.trail = g.trail[len(g.trail)-g.max:]
	}
}

// Render draws the map into width columns and height grid rows, followed by a
// scale bar and legend.
func (g *GridMap) Render(width, height int) string {
	if len(g.trail) == 0 {
		return "No position data"
	}
	if width < 2 {
		width = 2
	}
	if height < 1 {
		height = 1
	}
	minX, maxX, minY, maxY := g.bounds()

	grid := make([][]byte, height)
	for i := range grid {
		grid[i] = []byte(strings.Repeat(".", width))
	}
	for i := 1; i < gridDivisions; i++ {
		x := int(float64(width-1) * float64(i) / gridDivisions)
		for y := 0; y < height; y++ {
			grid[y][x] = '|'
		}
		y := int(float64(height-1) * float64(i) / gridDivisions)
		for x2 := 0; x2 < width; x2++ {
			if grid[y][x2] == '|' {
				grid[y][x2] = '+'
			} else {
				grid[y][x2] = '-'
			}
		}
	}

	cell := func(p telemetry.Position) (int, int) {
		x := int(math.Round(frac(p.X, minX, maxX) * float64(width-1)))
		y := int(math.Round((1 - frac(p.Y, minY, maxY)) * float64(height-1)))
		return x, y
	}
	for _, p := range g.trail[:len(g.trail)-1] {
		x, y := cell(p)
		grid[y][x] = '*'
	}
	x, y := cell(g.trail[len(g.trail)-1])
	grid[y][x] = g.marker()

	var b strings.Builder
	fmt.Fprintf(&b, "x %.2f..%.2f y %.2f..%.2f N↑\n", minX, maxX, minY, maxY)
	for _, row := range grid {
		b.Write(row)
		b.WriteByte('\n')
	}
	perChar := 2 * (maxX/2 - minX/2) / float64(width)
	barChars := int(math.Min(10, float64(width)/3))
	if barChars < 1 {
		barChars = 1
	}
	fmt.Fprintf(&b, "Scale: |%s| %.2f\n", strings.Repeat("-", barChars), perChar*float64(barChars))
	b.WriteString("R=rover ^>v<=heading *=trail C=charging")
	return b.String()
}

// bounds fits the trail with a margin, never narrower than minMapSpan.
func (g *GridMap) bounds() (minX, maxX, minY, maxY float64) {
	minX, maxX = math.Inf(1), math.Inf(-1)
	minY, maxY = math.Inf(1), math.Inf(-1)
	for _, p := range g.trail {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	minX, maxX = widen(minX, maxX)
	minY, maxY = widen(minY, maxY)
	return
}

// widen adds a 20% margin around [lo, hi], at least minMapSpan wide. A margin
// that cannot be represented leaves the range unchanged.
func widen(lo, hi float64) (float64, float64) {
	half := (hi/2 - lo/2) * 1.2
	if half < minMapSpan/2 {
		half = minMapSpan / 2
	}
	mid := lo/2 + hi/2
	wlo, whi := mid-half, mid+half
	if math.IsInf(wlo, 0) || math.IsInf(whi, 0) || wlo > lo || whi < hi || wlo >= whi {
		return lo, hi
	}
	return wlo, whi
}

// frac is v's position within [lo, hi] clamped to [0, 1]. A degenerate range
// maps to the centre.
func frac(v, lo, hi float64) float64 {
	den := hi/2 - lo/2
	if !(den > 0) {
		return 0.5
	}
	r := (v/2 - lo/2) / den
	switch {
	case math.IsNaN(r):
		return 0.5
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

// marker picks the rover glyph: C while charging, a heading arrow while
// moving, R otherwise.
func (g *GridMap) marker() byte {
	if g.last.IsCharging {
		return 'C'
	}
	n := len(g.trail)
	if !g.last.IsMoving || n < 2 {
		return 'R'
	}
	dx := g.trail[n-1].X - g.trail[n-2].X
	dy := g.trail[n-1].Y - g.trail[n-2].Y
	return headingIcon(math.Atan2(dx, dy) * 180 / math.Pi)
}

// headingIcon maps a compass heading in degrees to an arrow.
func headingIcon(h float64) byte {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	switch {
	case h >= 45 && h < 135:
		return '>'
	case h >= 135 && h < 225:
		return 'v'
	case h >= 225 && h < 315:
		return '<'
	default:
		return '^'
	}
}
