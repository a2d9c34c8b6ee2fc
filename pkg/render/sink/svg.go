package sink

import (
	"bytes"
	"fmt"
	"html"
	"strconv"

	"github.com/matzehuels/nodewire/pkg/geometry"
	"github.com/matzehuels/nodewire/pkg/projection"
)

// DefaultPadding is the space left around the scene bounds.
const DefaultPadding = 20

// SVGOption configures RenderSVG.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	theme        Theme
	padding      float64
	segmentPaths bool
	waypoints    bool
	title        string
	portRadius   float64
}

// WithTheme sets the colors.
func WithTheme(t Theme) SVGOption { return func(r *svgRenderer) { r.theme = t } }

// WithPadding sets the margin around the drawing.
func WithPadding(p float64) SVGOption { return func(r *svgRenderer) { r.padding = p } }

// WithSegmentPaths draws each wire segment as its own path.
func WithSegmentPaths() SVGOption { return func(r *svgRenderer) { r.segmentPaths = true } }

// WithWaypoints draws waypoint markers.
func WithWaypoints() SVGOption { return func(r *svgRenderer) { r.waypoints = true } }

// WithTitle adds a <title> element.
func WithTitle(s string) SVGOption { return func(r *svgRenderer) { r.title = s } }

// RenderSVG draws s in content coordinates. The scene's transform is ignored
// so exports do not depend on where the user had scrolled.
func RenderSVG(s projection.Scene, opts ...SVGOption) []byte {
	r := svgRenderer{theme: Light, padding: DefaultPadding, portRadius: 5}
	for _, opt := range opts {
		opt(&r)
	}

	box := viewBox(s.Bounds, r.padding)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s" width="%s" height="%s">`+"\n",
		num(box.X), num(box.Y), num(box.W), num(box.H), num(box.W), num(box.H))
	if r.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", html.EscapeString(r.title))
	}
	fmt.Fprintf(&buf, `  <rect class="background" x="%s" y="%s" width="%s" height="%s" fill="%s"/>`+"\n",
		num(box.X), num(box.Y), num(box.W), num(box.H), r.theme.Background)

	buf.WriteString(`  <g class="connections">` + "\n")
	for _, c := range s.Connections {
		r.renderConnection(&buf, c)
	}
	buf.WriteString("  </g>\n")

	buf.WriteString(`  <g class="nodes">` + "\n")
	for _, n := range s.Nodes {
		r.renderNode(&buf, n)
	}
	buf.WriteString("  </g>\n")

	if r.waypoints {
		buf.WriteString(`  <g class="waypoints">` + "\n")
		for _, c := range s.Connections {
			for _, w := range c.Waypoints {
				fmt.Fprintf(&buf, `    <circle class="point" cx="%s" cy="%s" r="%s" fill="%s"/>`+"\n",
					num(w.At.X), num(w.At.Y), num(projection.DefaultWaypointRadius), r.theme.Waypoint)
			}
		}
		buf.WriteString("  </g>\n")
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *svgRenderer) renderConnection(buf *bytes.Buffer, c projection.ConnectionView) {
	stroke := r.theme.Wire
	if c.Selected {
		stroke = r.theme.WireSelected
	}
	k := c.Key
	class := fmt.Sprintf("connection node_in_%s node_out_%s %s %s", k.InputNode, k.OutputNode, k.OutputPort, k.InputPort)
	paths := []string{c.Path}
	if r.segmentPaths && len(c.SegmentPaths) > 0 {
		paths = c.SegmentPaths
	}
	for _, p := range paths {
		fmt.Fprintf(buf, `    <path class="%s" d="%s" fill="none" stroke="%s" stroke-width="3"/>`+"\n",
			html.EscapeString(class), p, stroke)
	}
}

func (r *svgRenderer) renderNode(buf *bytes.Buffer, n projection.NodeView) {
	stroke := r.theme.NodeStroke
	if n.Selected {
		stroke = r.theme.SelectedStroke
	}
	rc := n.Rect
	fmt.Fprintf(buf, `    <g class="node" id="node-%s">`+"\n", html.EscapeString(n.ID))
	fmt.Fprintf(buf, `      <rect x="%s" y="%s" width="%s" height="%s" rx="4" fill="%s" stroke="%s" stroke-width="1"/>`+"\n",
		num(rc.X), num(rc.Y), num(rc.W), num(rc.H), r.theme.NodeFill, stroke)
	fmt.Fprintf(buf, `      <text x="%s" y="%s" font-family="%s" font-size="13" fill="%s">%s</text>`+"\n",
		num(rc.X+10), num(rc.Y+20), r.theme.FontFamily, r.theme.Text, html.EscapeString(n.Name))
	for _, p := range n.Inputs {
		r.renderPort(buf, "input", p)
	}
	for _, p := range n.Outputs {
		r.renderPort(buf, "output", p)
	}
	buf.WriteString("    </g>\n")
}

func (r *svgRenderer) renderPort(buf *bytes.Buffer, class string, p projection.PortView) {
	fmt.Fprintf(buf, `      <circle class="%s %s" cx="%s" cy="%s" r="%s" fill="%s"/>`+"\n",
		class, html.EscapeString(p.ID), num(p.Anchor.X), num(p.Anchor.Y), num(r.portRadius), r.theme.Port)
}

// viewBox pads bounds, falling back to a padded unit box for empty scenes.
func viewBox(b geometry.Rect, pad float64) geometry.Rect {
	if b.Empty() {
		return geometry.Rect{X: -pad, Y: -pad, W: 2 * pad, H: 2 * pad}
	}
	return geometry.Rect{X: b.X - pad, Y: b.Y - pad, W: b.W + 2*pad, H: b.H + 2*pad}
}

func num(v float64) string {
	v = geometry.Finite(v)
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
