package console

import (
	"math"
	"strings"
	"testing"

	"rover-console/internal/telemetry"
)

func TestGridMapEmpty(t *testing.T) {
	var m MapRenderer = NewGridMap(0)
	if got := m.Render(40, 10); got != "No position data" {
		t.Fatalf("got %q", got)
	}
}

func TestGridMapPlotsRover(t *testing.T) {
	g := NewGridMap(0)
	g.Plot(telemetry.Snapshot{Position: telemetry.Position{X: 0, Y: 0}})
	out := g.Render(21, 11)
	lines := strings.Split(out, "\n")
	// header + 11 rows + scale + legend
	if len(lines) != 14 {
		t.Fatalf("expected 14 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "x -1.00..1.00 y -1.00..1.00") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if got := lines[1+5][10]; got != 'R' {
		t.Fatalf("expected rover at the centre, got %q\n%s", got, out)
	}
	for _, row := range lines[1:12] {
		if len(row) != 21 {
			t.Fatalf("row width %d: %q", len(row), row)
		}
	}
}

func TestGridMapTrailAndHeading(t *testing.T) {
	g := NewGridMap(3)
	for i := 0; i < 5; i++ {
		g.Plot(telemetry.Snapshot{Position: telemetry.Position{X: float64(i), Y: 0}, IsMoving: true})
	}
	g.Plot(telemetry.Snapshot{Position: telemetry.Position{X: 4, Y: 0}, IsMoving: true})
	if len(g.trail) != 3 {
		t.Fatalf("trail length %d", len(g.trail))
	}
	grid := gridRows(g.Render(30, 5), 5)
	if strings.Count(grid, "*") != 2 {
		t.Fatalf("expected 2 trail marks:\n%s", grid)
	}
	if !strings.Contains(grid, ">") {
		t.Fatalf("expected east heading marker:\n%s", grid)
	}

	g.Plot(telemetry.Snapshot{Position: telemetry.Position{X: 4, Y: 0}, IsCharging: true})
	if grid := gridRows(g.Render(30, 5), 5); !strings.Contains(grid, "C") || strings.Contains(grid, ">") {
		t.Fatalf("expected charging marker:\n%s", grid)
	}
}

func gridRows(out string, height int) string {
	lines := strings.Split(out, "\n")
	return strings.Join(lines[1:1+height], "\n")
}

func TestHeadingIcon(t *testing.T) {
	cases := map[float64]byte{0: '^', 90: '>', 180: 'v', 270: '<', -90: '<', 359: '^'}
	for h, want := range cases {
		if got := headingIcon(h); got != want {
			t.Errorf("headingIcon(%v) = %q, want %q", h, got, want)
		}
	}
}

func TestGridMapExtremeCoordinates(t *testing.T) {
	cases := []struct {
		name  string
		trail []telemetry.Position
	}{
		{"single large point", []telemetry.Position{{X: 1e17, Y: 0}}},
		{"identical large points", []telemetry.Position{{X: 1e17, Y: -1e17}, {X: 1e17, Y: -1e17}}},
		{"opposite extremes", []telemetry.Position{{X: 1e308, Y: -1e308}, {X: -1e308, Y: 1e308}}},
		{"max float", []telemetry.Position{{X: math.MaxFloat64, Y: -math.MaxFloat64}, {X: -math.MaxFloat64, Y: math.MaxFloat64}}},
		{"large and small", []telemetry.Position{{X: 0, Y: 0}, {X: 1e300, Y: 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGridMap(0)
			for _, p := range tc.trail {
				g.Plot(telemetry.Snapshot{Position: p})
			}
			grid := gridRows(g.Render(40, 10), 10)
			if strings.Count(grid, "R") != 1 {
				t.Fatalf("expected one rover marker:\n%s", grid)
			}
			for _, row := range strings.Split(grid, "\n") {
				if len(row) != 40 {
					t.Fatalf("row width %d: %q", len(row), row)
				}
			}
		})
	}
}

func TestGridMapLargePointCentred(t *testing.T) {
	g := NewGridMap(0)
	g.Plot(telemetry.Snapshot{Position: telemetry.Position{X: 1e17, Y: 1e17}})
	lines := strings.Split(g.Render(21, 11), "\n")
	if got := lines[1+5][10]; got != 'R' {
		t.Fatalf("expected rover at the centre, got %q", got)
	}
}
