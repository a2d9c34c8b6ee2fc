// Package projection derives what a host should draw from a document and the
// current view state, and classifies pointer positions against it.
//
// The engine never measures anything itself. A host supplies a [Surface]
// that reports where nodes and ports currently sit on screen and accepts the
// content-layer transform. [Layout] is a pure Surface computed from node
// positions, used by headless hosts, the SVG sink and tests.
//
// A [Projector] turns document state into a [Scene]: node boxes, port anchors,
// wire paths and overlays, all in content coordinates. Wire paths are cached
// per connection and recomputed only when one of their endpoints moves, a
// port changes or a waypoint is edited. Zooming and panning never invalidate
// the cache because paths live in content space.
package projection

import (
	"fmt"
	"strconv"

	"github.com/matzehuels/nodewire/pkg/geometry"
)

// ElementKind identifies the kind of measured element.
type ElementKind int

const (
	ElementNode ElementKind = iota
	ElementInput
	ElementOutput
)

// Element names a node or one of its ports.
type Element struct {
	Kind ElementKind
	Node string
	Port string
}

// NodeElement returns the element for node id.
func NodeElement(id string) Element { return Element{Kind: ElementNode, Node: id} }

// InputElement returns the element for an input port.
func InputElement(node, port string) Element {
	return Element{Kind: ElementInput, Node: node, Port: port}
}

// OutputElement returns the element for an output port.
func OutputElement(node, port string) Element {
	return Element{Kind: ElementOutput, Node: node, Port: port}
}

// Transform is the translate-then-scale transform applied to the content layer.
type Transform struct {
	X, Y float64
	Zoom float64
}

// Identity is the transform of an unpanned, unzoomed canvas.
var Identity = Transform{Zoom: 1}

// CSS formats t as a CSS transform value.
func (t Transform) CSS() string {
	return fmt.Sprintf("translate(%spx, %spx) scale(%s)", num(t.X), num(t.Y), num(t.Zoom))
}

// SVG formats t as an SVG transform attribute value.
func (t Transform) SVG() string {
	return fmt.Sprintf("translate(%s %s) scale(%s)", num(t.X), num(t.Y), num(t.Zoom))
}

func num(v float64) string {
	v = geometry.Finite(v)
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Surface is what the engine needs from a visual host.
type Surface interface {
	// Canvas returns the on-screen origin of the content layer (X, Y) and the
	// size of the visible viewport in screen pixels (W, H). A zero size is
	// allowed; scale ratios then degrade to 0.
	Canvas() geometry.Rect

	// Element returns the on-screen bounding box of a node or port, or false
	// if the host does not know the element.
	Element(el Element) (geometry.Rect, bool)

	// Apply sets the content-layer transform.
	Apply(t Transform)
}

// ScreenRatio is the factor converting screen distances to content distances
// on canvas c at zoom. It is 0 for a zero-sized viewport.
func ScreenRatio(c geometry.Rect, zoom float64) float64 {
	return geometry.Ratio(c.W, c.W*zoom)
}

// ToContent converts a screen point to content coordinates.
func ToContent(c geometry.Rect, zoom float64, p geometry.Point) geometry.Point {
	r := ScreenRatio(c, zoom)
	return geometry.Point{X: (p.X - c.X) * r, Y: (p.Y - c.Y) * r}
}

// ToScreen converts a content point to screen coordinates.
func ToScreen(c geometry.Rect, zoom float64, p geometry.Point) geometry.Point {
	return geometry.Point{X: c.X + p.X*zoom, Y: c.Y + p.Y*zoom}
}

// contentRect converts an on-screen element rectangle to content coordinates.
func contentRect(c geometry.Rect, zoom float64, r geometry.Rect) geometry.Rect {
	k := ScreenRatio(c, zoom)
	return geometry.Rect{X: (r.X - c.X) * k, Y: (r.Y - c.Y) * k, W: r.W * k, H: r.H * k}
}

// anchor returns the content-space center of an on-screen element rectangle.
func anchor(c geometry.Rect, zoom float64, r geometry.Rect) geometry.Point {
	k := ScreenRatio(c, zoom)
	return geometry.Point{
		X: (r.X-c.X)*k + r.W*k/2,
		Y: (r.Y-c.Y)*k + r.H*k/2,
	}
}
