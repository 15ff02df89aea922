package mcpserver

import (
	"math"

	"pagebuilder/internal/domain"
)

const (
	GridSize = 30.0
	Padding  = 60.0 // 2 grid cells between components
	MaxRowW  = 1800.0
)

// LayoutEngine places components added without a position so that they do
// not overlap the ones already on the page.
type LayoutEngine struct {
	gridSize float64
	padding  float64
	maxRowW  float64
}

func NewLayoutEngine() *LayoutEngine {
	return &LayoutEngine{
		gridSize: GridSize,
		padding:  Padding,
		maxRowW:  MaxRowW,
	}
}

// snap rounds v to the nearest grid point.
func (le *LayoutEngine) snap(v float64) float64 {
	return math.Round(v/le.gridSize) * le.gridSize
}

// rect is an axis-aligned bounding box.
type rect struct {
	x, y, w, h float64
}

func (a rect) intersects(b rect) bool {
	return a.x < b.x+b.w && a.x+a.w > b.x &&
		a.y < b.y+b.h && a.y+a.h > b.y
}

// occupied returns the absolute default-tier boxes of the visible components
// of p. Grouped members are shifted by their frame origin.
func occupied(p *domain.PageSchema) []rect {
	out := make([]rect, 0, len(p.Components))
	for i := range p.Components {
		n := &p.Components[i]
		l := n.Layout.Default
		if !l.Visible {
			continue
		}
		if f, ok := p.Groups[n.GroupID]; ok && f.Breakpoint == domain.BreakpointDefault {
			l.X += f.X
			l.Y += f.Y
		}
		out = append(out, rect{l.X, l.Y, l.Width, l.Height})
	}
	return out
}

// NextPosition returns a free default-tier position on p for a component of
// size (newW, newH).
func (le *LayoutEngine) NextPosition(p *domain.PageSchema, newW, newH float64) (float64, float64) {
	return le.place(occupied(p), newW, newH)
}

// place finds the first grid position, scanning rows top to bottom, where a
// box of size (newW, newH) keeps Padding clear of every box.
func (le *LayoutEngine) place(boxes []rect, newW, newH float64) (float64, float64) {
	if len(boxes) == 0 {
		return 0, 0
	}

	candidate := rect{w: newW, h: newH}
	for y := 0.0; y < 100000; y += le.gridSize {
		for x := 0.0; x == 0 || x+newW <= le.maxRowW; x += le.gridSize {
			candidate.x = le.snap(x)
			candidate.y = le.snap(y)

			overlaps := false
			for _, occ := range boxes {
				padded := rect{
					x: occ.x - le.padding,
					y: occ.y - le.padding,
					w: occ.w + le.padding*2,
					h: occ.h + le.padding*2,
				}
				if candidate.intersects(padded) {
					overlaps = true
					break
				}
			}
			if !overlaps {
				return candidate.x, candidate.y
			}
		}
	}

	// Fallback: below everything
	maxY := 0.0
	for _, r := range boxes {
		maxY = max(maxY, r.y+r.h)
	}
	return 0, le.snap(maxY + le.padding)
}
