package projection

import (
	"encoding/json"

	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/geometry"
)

// Hit-testing tolerances, in screen pixels.
const (
	DefaultWaypointRadius = 6
	DefaultWireTolerance  = 6
	DefaultDeleteBoxSize  = 24
)

// WaypointSelection names the selected waypoint.
type WaypointSelection struct {
	Key   document.ConnectionKey
	Index int
}

// DeleteBox is the delete affordance shown next to a selected element.
type DeleteBox struct {
	// At is the content-space position of the affordance's top-left corner.
	At geometry.Point
	// Node is set when the affordance removes a node; otherwise it removes
	// the selected connection.
	Node string
}

// View is the interaction state a scene is drawn for.
type View struct {
	// Module is the module to project. Empty means the active module.
	Module             string
	SelectedNode       string
	SelectedConnection *document.ConnectionKey
	SelectedWaypoint   *WaypointSelection
	DeleteBox          *DeleteBox
	// Preview is the path of a wire currently being dragged, if any.
	Preview string
	// WaypointRadius is the drawn radius of waypoint markers. Zero means default.
	WaypointRadius float64
}

// Scene is everything a host needs to draw one module.
type Scene struct {
	Module      string
	Transform   Transform
	Canvas      geometry.Rect
	Nodes       []NodeView
	Connections []ConnectionView
	Preview     string
	DeleteBox   *DeleteBoxView
	// Bounds encloses every node and wire in content coordinates.
	Bounds geometry.Rect

	waypointRadius float64
}

// NodeView is a drawable node.
type NodeView struct {
	ID       string
	Name     string
	Data     json.RawMessage
	Rect     geometry.Rect
	Selected bool
	Inputs   []PortView
	Outputs  []PortView
}

// PortView is a drawable port marker.
type PortView struct {
	ID          string
	Anchor      geometry.Point
	Rect        geometry.Rect
	Connections int
}

// ConnectionView is a drawable wire.
type ConnectionView struct {
	Key          document.ConnectionKey
	Path         string
	SegmentPaths []string
	Segments     []geometry.Segment
	Waypoints    []WaypointView
	Selected     bool
}

// WaypointView is a drawable waypoint marker.
type WaypointView struct {
	Index    int
	At       geometry.Point
	Selected bool
}

// DeleteBoxView is the drawable delete affordance.
type DeleteBoxView struct {
	Rect geometry.Rect
	Node string
}

// Scene projects v.Module, or the active module, for view v.
func (p *Projector) Scene(v View) Scene {
	module := v.Module
	if module == "" {
		module = p.doc.ActiveModule()
	}
	radius := v.WaypointRadius
	if radius <= 0 {
		radius = DefaultWaypointRadius
	}
	s := Scene{
		Module:         module,
		Transform:      p.t,
		Canvas:         p.surface.Canvas(),
		Preview:        v.Preview,
		waypointRadius: radius,
	}

	for _, n := range p.doc.Nodes(module) {
		rect, _ := p.NodeRect(n.ID)
		nv := NodeView{
			ID:       n.ID,
			Name:     n.Name,
			Data:     n.Data,
			Rect:     rect,
			Selected: n.ID == v.SelectedNode,
			Inputs:   p.portViews(&n, document.Input),
			Outputs:  p.portViews(&n, document.Output),
		}
		s.Nodes = append(s.Nodes, nv)
		s.Bounds = s.Bounds.Union(rect)
	}

	for _, c := range p.doc.Connections(module) {
		w, ok := p.Wire(c.Key)
		if !ok {
			continue
		}
		cv := ConnectionView{
			Key:          c.Key,
			Path:         w.Path,
			SegmentPaths: w.SegmentPaths,
			Segments:     w.Segments,
			Selected:     v.SelectedConnection != nil && *v.SelectedConnection == c.Key,
		}
		for i, pt := range w.Points {
			sel := v.SelectedWaypoint != nil && v.SelectedWaypoint.Key == c.Key && v.SelectedWaypoint.Index == i
			cv.Waypoints = append(cv.Waypoints, WaypointView{Index: i, At: pt, Selected: sel})
		}
		s.Connections = append(s.Connections, cv)
		for _, seg := range w.Segments {
			s.Bounds = s.Bounds.Union(seg.Bounds())
		}
	}

	if v.DeleteBox != nil {
		size := DefaultDeleteBoxSize * ScreenRatio(s.Canvas, p.t.Zoom)
		s.DeleteBox = &DeleteBoxView{
			Rect: geometry.Rect{X: v.DeleteBox.At.X, Y: v.DeleteBox.At.Y, W: size, H: size},
			Node: v.DeleteBox.Node,
		}
	}
	return s
}

func (p *Projector) portViews(n *document.Node, dir document.Direction) []PortView {
	ports := n.Ports(dir)
	out := make([]PortView, 0, len(ports))
	for _, port := range ports {
		pv := PortView{ID: port.ID, Connections: len(port.Connections)}
		el := InputElement(n.ID, port.ID)
		if dir == document.Output {
			el = OutputElement(n.ID, port.ID)
		}
		if r, ok := p.surface.Element(el); ok {
			c := p.surface.Canvas()
			pv.Rect = contentRect(c, p.t.Zoom, r)
			pv.Anchor = anchor(c, p.t.Zoom, r)
		}
		out = append(out, pv)
	}
	return out
}

// Node returns the view of node id.
func (s *Scene) Node(id string) (NodeView, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeView{}, false
}

// Connection returns the view of wire key.
func (s *Scene) Connection(key document.ConnectionKey) (ConnectionView, bool) {
	for _, c := range s.Connections {
		if c.Key == key {
			return c, true
		}
	}
	return ConnectionView{}, false
}
