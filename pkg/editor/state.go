package editor

import (
	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/geometry"
	"github.com/matzehuels/nodewire/pkg/projection"
)

// Viewport is the pan offset and zoom factor of the canvas.
type Viewport struct {
	X, Y float64
	Zoom float64
}

// Transform returns the content-layer transform for v.
func (v Viewport) Transform() projection.Transform {
	return projection.Transform{X: v.X, Y: v.Y, Zoom: v.Zoom}
}

// SelectionKind says what, if anything, is selected.
type SelectionKind int

const (
	SelectNone SelectionKind = iota
	SelectNode
	SelectConnection
	SelectWaypoint
)

// Selection is the current selection. At most one element is selected.
type Selection struct {
	Kind       SelectionKind
	Node       string
	Connection document.ConnectionKey
	Waypoint   int
}

// GestureKind names the state of the pointer state machine.
type GestureKind int

const (
	Idle GestureKind = iota
	DraggingNode
	DraggingConnection
	DraggingWaypoint
	PanningCanvas
)

var gestureNames = [...]string{"idle", "dragNode", "dragConnection", "dragWaypoint", "pan"}

// String returns the gesture name.
func (k GestureKind) String() string {
	if int(k) < len(gestureNames) {
		return gestureNames[k]
	}
	return "unknown"
}

// gesture is the per-state data of an in-progress pointer interaction.
type gesture interface {
	kind() GestureKind
}

type idle struct{}

func (idle) kind() GestureKind { return Idle }

type dragNode struct {
	node  string
	last  geometry.Point // screen
	start geometry.Point // node position at press
}

func (*dragNode) kind() GestureKind { return DraggingNode }

type dragConnection struct {
	node, port string
	to         geometry.Point // content
}

func (*dragConnection) kind() GestureKind { return DraggingConnection }

type dragWaypoint struct {
	key   document.ConnectionKey
	index int
	start geometry.Point // content
	at    geometry.Point
}

func (*dragWaypoint) kind() GestureKind { return DraggingWaypoint }

type panCanvas struct {
	start  geometry.Point // screen
	origin Viewport
}

func (*panCanvas) kind() GestureKind { return PanningCanvas }

// State is a read-only snapshot of the editor's interaction state.
type State struct {
	Mode      Mode
	Module    string
	Viewport  Viewport
	Selection Selection
	Gesture   GestureKind
	// Preview is the path of a wire being dragged, empty otherwise.
	Preview string
	// DeleteBox is set while the delete affordance is shown.
	DeleteBox *projection.DeleteBox
}
