package projection

import (
	"math"

	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/geometry"
)

// Metrics sizes the boxes drawn by [Layout], in content units.
type Metrics struct {
	NodeWidth    float64 // width of every node box
	HeaderHeight float64 // space above the first port row
	PortSpacing  float64 // vertical distance between port rows
	PortSize     float64 // side of the square port marker
	MinHeight    float64 // minimum node height

	// Origin is the on-screen position of the viewport's top-left corner.
	Origin geometry.Point
	// Viewport is the visible area in screen pixels.
	ViewportWidth, ViewportHeight float64
}

// DefaultMetrics returns metrics that resemble the classic editor look.
func DefaultMetrics() Metrics {
	return Metrics{
		NodeWidth:      160,
		HeaderHeight:   30,
		PortSpacing:    24,
		PortSize:       14,
		MinHeight:      60,
		ViewportWidth:  1280,
		ViewportHeight: 800,
	}
}

// Layout is a [Surface] that derives every element's geometry from node
// positions in the document. Nodes are fixed-width boxes with inputs down the
// left edge and outputs down the right edge.
type Layout struct {
	doc *document.Document
	m   Metrics
	t   Transform
}

// NewLayout returns a layout surface over doc.
func NewLayout(doc *document.Document, m Metrics) *Layout {
	return &Layout{doc: doc, m: m, t: Identity}
}

// Metrics returns the layout metrics.
func (l *Layout) Metrics() Metrics { return l.m }

// Resize changes the viewport size.
func (l *Layout) Resize(w, h float64) {
	l.m.ViewportWidth, l.m.ViewportHeight = w, h
}

// Transform returns the last applied transform.
func (l *Layout) Transform() Transform { return l.t }

// Canvas implements Surface.
func (l *Layout) Canvas() geometry.Rect {
	return geometry.Rect{
		X: l.m.Origin.X + l.t.X,
		Y: l.m.Origin.Y + l.t.Y,
		W: l.m.ViewportWidth,
		H: l.m.ViewportHeight,
	}
}

// Apply implements Surface.
func (l *Layout) Apply(t Transform) { l.t = t }

// Element implements Surface.
func (l *Layout) Element(el Element) (geometry.Rect, bool) {
	n, ok := l.doc.Node(el.Node)
	if !ok {
		return geometry.Rect{}, false
	}
	var r geometry.Rect
	switch el.Kind {
	case ElementNode:
		r = l.NodeRect(&n)
	case ElementInput, ElementOutput:
		dir := document.Input
		if el.Kind == ElementOutput {
			dir = document.Output
		}
		i := n.PortIndex(dir, el.Port)
		if i < 0 {
			return geometry.Rect{}, false
		}
		r = l.PortRect(&n, dir, i)
	default:
		return geometry.Rect{}, false
	}
	return l.toScreen(r), true
}

// NodeRect returns the content-space box of n.
func (l *Layout) NodeRect(n *document.Node) geometry.Rect {
	rows := math.Max(float64(len(n.Inputs)), float64(len(n.Outputs)))
	h := math.Max(l.m.MinHeight, l.m.HeaderHeight+rows*l.m.PortSpacing+l.m.PortSpacing/2)
	return geometry.Rect{X: n.X, Y: n.Y, W: l.m.NodeWidth, H: h}
}

// PortRect returns the content-space marker of the i-th port of n in direction dir.
func (l *Layout) PortRect(n *document.Node, dir document.Direction, i int) geometry.Rect {
	cx := n.X
	if dir == document.Output {
		cx = n.X + l.m.NodeWidth
	}
	cy := n.Y + l.m.HeaderHeight + (float64(i)+0.5)*l.m.PortSpacing
	s := l.m.PortSize
	return geometry.Rect{X: cx - s/2, Y: cy - s/2, W: s, H: s}
}

func (l *Layout) toScreen(r geometry.Rect) geometry.Rect {
	c := l.Canvas()
	z := l.t.Zoom
	return geometry.Rect{X: c.X + r.X*z, Y: c.Y + r.Y*z, W: r.W * z, H: r.H * z}
}
