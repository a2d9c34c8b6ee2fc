package projection

import (
	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/events"
	"github.com/matzehuels/nodewire/pkg/geometry"
)

// Wire is the computed geometry of one connection, in content coordinates.
type Wire struct {
	Key      document.ConnectionKey
	Start    geometry.Point
	End      geometry.Point
	Points   []geometry.Point
	Segments []geometry.Segment
	// Path is the full wire as one SVG path.
	Path string
	// SegmentPaths holds one SVG path per segment.
	SegmentPaths []string
}

// Projector computes scenes and caches wire geometry.
type Projector struct {
	doc     *document.Document
	surface Surface
	curv    geometry.Curvature
	t       Transform

	wires map[document.ConnectionKey]*Wire
	subs  []events.Subscription
}

// ProjectorOption configures a Projector.
type ProjectorOption func(*Projector)

// WithCurvature overrides the default curvature factors.
func WithCurvature(c geometry.Curvature) ProjectorOption {
	return func(p *Projector) { p.curv = c }
}

// NewProjector returns a projector over doc drawing onto surface. It
// subscribes to the document's bus to keep its wire cache current; call
// Close to detach.
func NewProjector(doc *document.Document, surface Surface, opts ...ProjectorOption) *Projector {
	p := &Projector{
		doc:     doc,
		surface: surface,
		curv:    geometry.DefaultCurvatures(),
		t:       Identity,
		wires:   make(map[document.ConnectionKey]*Wire),
	}
	for _, opt := range opts {
		opt(p)
	}

	bus := doc.Bus()
	byNode := func(e events.Event) {
		if id, ok := e.Payload.(string); ok {
			p.InvalidateNode(id)
		}
	}
	byPort := func(e events.Event) {
		if ref, ok := e.Payload.(document.PortRef); ok {
			p.InvalidateNode(ref.Node)
		}
	}
	byKey := func(e events.Event) {
		switch v := e.Payload.(type) {
		case document.ConnectionKey:
			p.InvalidateConnection(v)
		case document.WaypointRef:
			p.InvalidateConnection(v.Key)
		}
	}
	all := func(events.Event) { p.InvalidateAll() }

	p.subs = []events.Subscription{
		bus.Subscribe(events.NodeRemoved, byNode),
		bus.Subscribe(events.NodeMoved, byNode),
		bus.Subscribe(events.InputAdded, byPort),
		bus.Subscribe(events.OutputAdded, byPort),
		bus.Subscribe(events.InputRemoved, byPort),
		bus.Subscribe(events.OutputRemoved, byPort),
		bus.Subscribe(events.ConnectionCreated, byKey),
		bus.Subscribe(events.ConnectionRemoved, byKey),
		bus.Subscribe(events.RerouteAdded, byKey),
		bus.Subscribe(events.RerouteRemoved, byKey),
		bus.Subscribe(events.RerouteMoved, byKey),
		bus.Subscribe(events.Import, all),
		bus.Subscribe(events.ModuleChanged, all),
		bus.Subscribe(events.ModuleRemoved, all),
	}
	return p
}

// Close unsubscribes the projector from the document bus.
func (p *Projector) Close() {
	for _, s := range p.subs {
		p.doc.Bus().Unsubscribe(s)
	}
	p.subs = nil
}

// Document returns the projected document.
func (p *Projector) Document() *document.Document { return p.doc }

// Surface returns the surface the projector measures.
func (p *Projector) Surface() Surface { return p.surface }

// Curvature returns the curvature factors in use.
func (p *Projector) Curvature() geometry.Curvature { return p.curv }

// Transform returns the current content-layer transform.
func (p *Projector) Transform() Transform { return p.t }

// SetTransform stores t and applies it to the surface.
func (p *Projector) SetTransform(t Transform) {
	p.t = t
	p.surface.Apply(t)
}

// InvalidateNode drops the cached wires attached to node.
func (p *Projector) InvalidateNode(node string) {
	for _, k := range p.doc.ConnectionsOf(node) {
		delete(p.wires, k)
	}
	// removed nodes are gone from the index; sweep their leftovers
	for k := range p.wires {
		if k.Touches(node) {
			delete(p.wires, k)
		}
	}
}

// InvalidateConnection drops the cached wire for key.
func (p *Projector) InvalidateConnection(key document.ConnectionKey) {
	delete(p.wires, key)
}

// InvalidateAll empties the wire cache.
func (p *Projector) InvalidateAll() {
	clear(p.wires)
}

// Cached reports whether the wire for key is currently cached.
func (p *Projector) Cached(key document.ConnectionKey) bool {
	_, ok := p.wires[key]
	return ok
}

// Anchor returns the content-space attachment point of a port.
func (p *Projector) Anchor(node string, dir document.Direction, port string) (geometry.Point, bool) {
	el := InputElement(node, port)
	if dir == document.Output {
		el = OutputElement(node, port)
	}
	r, ok := p.surface.Element(el)
	if !ok {
		return geometry.Point{}, false
	}
	return anchor(p.surface.Canvas(), p.t.Zoom, r), true
}

// NodeRect returns the content-space box of node.
func (p *Projector) NodeRect(node string) (geometry.Rect, bool) {
	r, ok := p.surface.Element(NodeElement(node))
	if !ok {
		return geometry.Rect{}, false
	}
	return contentRect(p.surface.Canvas(), p.t.Zoom, r), true
}

// ToContent converts a screen point to content coordinates.
func (p *Projector) ToContent(pt geometry.Point) geometry.Point {
	return ToContent(p.surface.Canvas(), p.t.Zoom, pt)
}

// Ratio returns the current screen-to-content factor.
func (p *Projector) Ratio() float64 {
	return ScreenRatio(p.surface.Canvas(), p.t.Zoom)
}

// Wire returns the geometry of connection key, computing it if needed.
func (p *Projector) Wire(key document.ConnectionKey) (*Wire, bool) {
	if w, ok := p.wires[key]; ok {
		return w, true
	}
	pts, err := p.doc.Waypoints(key)
	if err != nil {
		return nil, false
	}
	start, ok := p.Anchor(key.OutputNode, document.Output, key.OutputPort)
	if !ok {
		return nil, false
	}
	end, ok := p.Anchor(key.InputNode, document.Input, key.InputPort)
	if !ok {
		return nil, false
	}
	segs := geometry.Chain(start, pts, end, p.curv)
	w := &Wire{
		Key:          key,
		Start:        start,
		End:          end,
		Points:       pts,
		Segments:     segs,
		Path:         geometry.JoinPaths(segs),
		SegmentPaths: geometry.SegmentPaths(segs),
	}
	p.wires[key] = w
	return w, true
}

// Preview returns the path of a wire being dragged out of an output port
// toward the content-space point to.
func (p *Projector) Preview(node, port string, to geometry.Point) (string, bool) {
	start, ok := p.Anchor(node, document.Output, port)
	if !ok {
		return "", false
	}
	return geometry.CurvedPath(start.X, start.Y, to.X, to.Y, p.curv.Direct, geometry.OpenClose), true
}
