package projection

import (
	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/geometry"
)

// TargetKind classifies what a pointer event landed on.
type TargetKind int

const (
	TargetCanvas TargetKind = iota
	TargetNode
	TargetOutput
	TargetInput
	TargetConnection
	TargetWaypoint
	TargetDeleteBox
)

var targetNames = [...]string{"canvas", "node", "output", "input", "connection", "waypoint", "delete"}

// String returns the target kind name.
func (k TargetKind) String() string {
	if int(k) < len(targetNames) {
		return targetNames[k]
	}
	return "unknown"
}

// Control describes a form control inside a node's content that received the
// event. Hosts set it; hit-testing never does.
type Control int

const (
	ControlNone Control = iota
	ControlInput
	ControlTextArea
	ControlSelect
	ControlEditable
)

// TextLike reports whether c accepts typed text.
func (c Control) TextLike() bool {
	return c == ControlInput || c == ControlTextArea || c == ControlEditable
}

// Target is a classified pointer target.
type Target struct {
	Kind       TargetKind
	Node       string
	Port       string
	Connection document.ConnectionKey
	// Waypoint is the waypoint index for TargetWaypoint.
	Waypoint int
	// Segment is the wire segment for TargetConnection, or -1 if unknown.
	Segment int
	Control Control
}

// CanvasTarget is the empty-canvas target.
var CanvasTarget = Target{Kind: TargetCanvas, Segment: -1}

// HitTest classifies the screen point pt. Overlays win over ports, ports over
// node bodies, node bodies over wires.
func (s *Scene) HitTest(pt geometry.Point) Target {
	r := ScreenRatio(s.Canvas, s.Transform.Zoom)
	c := ToContent(s.Canvas, s.Transform.Zoom, pt)

	if s.DeleteBox != nil && s.DeleteBox.Rect.Contains(c) {
		return Target{Kind: TargetDeleteBox, Node: s.DeleteBox.Node, Segment: -1}
	}

	radius := s.waypointRadius
	if radius <= 0 {
		radius = DefaultWaypointRadius
	}
	for i := len(s.Connections) - 1; i >= 0; i-- {
		cv := s.Connections[i]
		for _, w := range cv.Waypoints {
			if w.At.Dist(c) <= radius*r {
				return Target{Kind: TargetWaypoint, Connection: cv.Key, Waypoint: w.Index, Segment: -1}
			}
		}
	}

	for i := len(s.Nodes) - 1; i >= 0; i-- {
		n := s.Nodes[i]
		for _, p := range n.Outputs {
			if p.Rect.Contains(c) {
				return Target{Kind: TargetOutput, Node: n.ID, Port: p.ID, Segment: -1}
			}
		}
		for _, p := range n.Inputs {
			if p.Rect.Contains(c) {
				return Target{Kind: TargetInput, Node: n.ID, Port: p.ID, Segment: -1}
			}
		}
	}

	for i := len(s.Nodes) - 1; i >= 0; i-- {
		if s.Nodes[i].Rect.Contains(c) {
			return Target{Kind: TargetNode, Node: s.Nodes[i].ID, Segment: -1}
		}
	}

	tol := DefaultWireTolerance * r
	best, bestDist := -1, tol
	bestSeg := -1
	for i, cv := range s.Connections {
		seg, d := geometry.NearestSegment(cv.Segments, c)
		if seg >= 0 && d <= bestDist {
			best, bestDist, bestSeg = i, d, seg
		}
	}
	if best >= 0 {
		return Target{Kind: TargetConnection, Connection: s.Connections[best].Key, Segment: bestSeg}
	}
	return CanvasTarget
}
