package tui

import (
	"math"
	"strings"

	"github.com/matzehuels/nodewire/pkg/geometry"
	"github.com/matzehuels/nodewire/pkg/projection"
)

// One terminal cell stands for a cellWidth x cellHeight block of screen
// pixels. The canvas starts below the title, status and blank rows.
const (
	cellWidth  = 10
	cellHeight = 20
	canvasTop  = 3
)

// cellToScreen returns the screen point at the center of a terminal cell and
// whether the cell lies on the canvas.
func (m *Model) cellToScreen(col, row int) (geometry.Point, bool) {
	p := geometry.Point{
		X: (float64(col) + 0.5) * cellWidth,
		Y: (float64(row-canvasTop) + 0.5) * cellHeight,
	}
	inside := col >= 0 && col < m.width && row >= canvasTop && row < canvasTop+m.canvasRows
	return p, inside
}

// grid is a rune raster of the canvas.
type grid struct {
	w, h  int
	cells [][]rune
}

func newGrid(w, h int) *grid {
	g := &grid{w: w, h: h, cells: make([][]rune, h)}
	for i := range g.cells {
		g.cells[i] = []rune(strings.Repeat(" ", w))
	}
	return g
}

func (g *grid) set(col, row int, r rune) {
	if col >= 0 && col < g.w && row >= 0 && row < g.h {
		g.cells[row][col] = r
	}
}

// plot sets the cell containing screen point p.
func (g *grid) plot(p geometry.Point, r rune) {
	g.set(int(math.Floor(p.X/cellWidth)), int(math.Floor(p.Y/cellHeight)), r)
}

func (g *grid) text(col, row int, s string, limit int) {
	for i, r := range []rune(s) {
		if i >= limit {
			return
		}
		g.set(col+i, row, r)
	}
}

func (g *grid) String() string {
	lines := make([]string, g.h)
	for i, row := range g.cells {
		lines[i] = strings.TrimRight(string(row), " ")
	}
	return strings.Join(lines, "\n")
}

// renderCanvas rasterizes the scene into m.width x m.canvasRows cells.
func (m *Model) renderCanvas(s projection.Scene) string {
	g := newGrid(m.width, m.canvasRows)
	screen := func(p geometry.Point) geometry.Point {
		return projection.ToScreen(s.Canvas, s.Transform.Zoom, p)
	}

	for _, c := range s.Connections {
		mark := '·'
		if c.Selected {
			mark = '•'
		}
		for _, seg := range c.Segments {
			n := max(8, int(seg.P0.Dist(seg.P3)*s.Transform.Zoom/cellWidth)*2)
			for _, p := range seg.Sample(n) {
				g.plot(screen(p), mark)
			}
		}
		for _, w := range c.Waypoints {
			g.plot(screen(w.At), '◆')
		}
	}

	for _, n := range s.Nodes {
		drawNode(g, n, screen)
	}

	if s.DeleteBox != nil {
		g.plot(screen(s.DeleteBox.Rect.Center()), '✕')
	}
	return styleDim.Render(g.String())
}

func drawNode(g *grid, n projection.NodeView, screen func(geometry.Point) geometry.Point) {
	tl := screen(geometry.Point{X: n.Rect.X, Y: n.Rect.Y})
	br := screen(geometry.Point{X: n.Rect.X + n.Rect.W, Y: n.Rect.Y + n.Rect.H})
	x0, y0 := int(math.Floor(tl.X/cellWidth)), int(math.Floor(tl.Y/cellHeight))
	x1, y1 := int(math.Floor(br.X/cellWidth)), int(math.Floor(br.Y/cellHeight))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}

	border := []rune("┌┐└┘─│")
	if n.Selected {
		border = []rune("╔╗╚╝═║")
	}
	for x := x0 + 1; x < x1; x++ {
		g.set(x, y0, border[4])
		g.set(x, y1, border[4])
	}
	for y := y0 + 1; y < y1; y++ {
		g.set(x0, y, border[5])
		g.set(x1, y, border[5])
		for x := x0 + 1; x < x1; x++ {
			g.set(x, y, ' ')
		}
	}
	g.set(x0, y0, border[0])
	g.set(x1, y0, border[1])
	g.set(x0, y1, border[2])
	g.set(x1, y1, border[3])
	if y1-y0 > 1 {
		g.text(x0+1, y0+1, n.Name, x1-x0-1)
	} else {
		g.text(x0+1, y0, n.Name, x1-x0-1)
	}

	for _, p := range n.Inputs {
		g.plot(screen(p.Anchor), '○')
	}
	for _, p := range n.Outputs {
		g.plot(screen(p.Anchor), '●')
	}
}
