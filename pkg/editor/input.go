package editor

import (
	"slices"

	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/events"
	"github.com/matzehuels/nodewire/pkg/geometry"
	"github.com/matzehuels/nodewire/pkg/projection"
)

// Button identifies a pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// Modifiers are the keyboard modifiers held during an event.
type Modifiers struct {
	Ctrl, Meta, Shift, Alt bool
}

// PointerEvent is a press, move or release of one pointer, in screen
// coordinates.
type PointerEvent struct {
	// ID distinguishes simultaneous pointers (touch points). Mouse hosts
	// leave it 0.
	ID     int
	X, Y   float64
	Button Button
	Modifiers
	// Target is the classified element under the pointer. When nil the
	// editor hit-tests the current scene.
	Target *projection.Target
}

// Point returns the event position.
func (ev PointerEvent) Point() geometry.Point { return geometry.Point{X: ev.X, Y: ev.Y} }

// WheelEvent is a scroll wheel step.
type WheelEvent struct {
	X, Y   float64
	DeltaY float64
	Modifiers
}

// KeyEvent is a key press. Key uses the DOM key names ("Delete",
// "Backspace", "a", ...).
type KeyEvent struct {
	Key string
	Modifiers
}

// MouseMoveEvent is the payload of "mouseMove" events.
type MouseMoveEvent struct {
	X, Y float64
}

// ContextMenuEvent is the payload of "contextmenu" events.
type ContextMenuEvent struct {
	X, Y   float64
	Target projection.Target
}

func (e *Editor) classify(ev PointerEvent) projection.Target {
	if ev.Target != nil {
		return *ev.Target
	}
	s := e.Scene()
	return s.HitTest(ev.Point())
}

// =============================================================================
// Pointer down
// =============================================================================

// PointerDown handles a pointer press.
func (e *Editor) PointerDown(ev PointerEvent) {
	e.trackPointer(ev)
	if len(e.pointers) > 1 {
		// a second finger turns the interaction into a pinch
		e.abortGesture()
		return
	}

	t := e.classify(ev)
	e.lastPointer = ev.Point()
	e.lastControl = t.Control
	e.publish(events.Click, ev)

	switch e.cfg.Mode {
	case ModeFixed:
		if t.Kind == projection.TargetCanvas {
			e.startPan(ev)
		}
		return
	case ModeView:
		switch t.Kind {
		case projection.TargetNode, projection.TargetInput, projection.TargetOutput:
			e.selectNode(t.Node)
		case projection.TargetConnection:
			e.selectConnection(t.Connection)
		case projection.TargetCanvas:
			e.clearSelection()
		}
		e.startPan(ev)
		return
	}

	if t.Kind != projection.TargetDeleteBox {
		e.deleteBox = nil
	}

	switch t.Kind {
	case projection.TargetDeleteBox:
		if err := e.removeSelection(); err != nil {
			e.publish(events.Error, err)
		}

	case projection.TargetNode:
		e.selectNode(t.Node)
		if !e.canDragFrom(t.Control) {
			return
		}
		n, ok := e.doc.Node(t.Node)
		if !ok {
			return
		}
		e.begin(&dragNode{node: t.Node, last: ev.Point(), start: n.Position()})

	case projection.TargetInput:
		e.selectNode(t.Node)

	case projection.TargetOutput:
		e.clearSelection()
		to := e.proj.ToContent(ev.Point())
		e.begin(&dragConnection{node: t.Node, port: t.Port, to: to})
		e.preview, _ = e.proj.Preview(t.Node, t.Port, to)
		e.publish(events.ConnectionStart, document.PortRef{Node: t.Node, Port: t.Port})

	case projection.TargetConnection:
		e.selectConnection(t.Connection)

	case projection.TargetWaypoint:
		pts, err := e.doc.Waypoints(t.Connection)
		if err != nil || t.Waypoint < 0 || t.Waypoint >= len(pts) {
			return
		}
		e.selectWaypoint(t.Connection, t.Waypoint)
		e.begin(&dragWaypoint{key: t.Connection, index: t.Waypoint, start: pts[t.Waypoint], at: pts[t.Waypoint]})

	default:
		e.clearSelection()
		e.startPan(ev)
	}
}

// canDragFrom reports whether a press on control may start a node drag.
func (e *Editor) canDragFrom(c projection.Control) bool {
	if c == projection.ControlSelect {
		return false
	}
	if !e.cfg.DraggableInputs && c.TextLike() {
		return false
	}
	return true
}

func (e *Editor) startPan(ev PointerEvent) {
	e.begin(&panCanvas{start: ev.Point(), origin: e.viewport})
}

// =============================================================================
// Pointer move
// =============================================================================

// PointerMove handles pointer motion.
func (e *Editor) PointerMove(ev PointerEvent) {
	if e.updatePointer(ev) && len(e.pointers) > 1 {
		e.pinch()
		return
	}
	e.publish(events.MouseMove, MouseMoveEvent{X: ev.X, Y: ev.Y})

	switch g := e.gesture.(type) {
	case *dragNode:
		r := e.proj.Ratio()
		dx := (g.last.X - ev.X) * r
		dy := (g.last.Y - ev.Y) * r
		g.last = ev.Point()
		n, ok := e.doc.Node(g.node)
		if !ok {
			return
		}
		_ = e.doc.SetNodePosition(g.node, n.X-dx, n.Y-dy)
		e.proj.InvalidateNode(g.node)

	case *dragConnection:
		g.to = e.proj.ToContent(ev.Point())
		e.preview, _ = e.proj.Preview(g.node, g.port, g.to)

	case *dragWaypoint:
		g.at = e.proj.ToContent(ev.Point())
		if err := e.doc.MoveWaypoint(g.key, g.index, g.at); err == nil {
			e.proj.InvalidateConnection(g.key)
		}

	case *panCanvas:
		e.viewport.X = g.origin.X + (ev.X - g.start.X)
		e.viewport.Y = g.origin.Y + (ev.Y - g.start.Y)
		e.applyViewport()
		e.publish(events.Translate, e.viewport)
	}
}

// =============================================================================
// Pointer up
// =============================================================================

// PointerUp handles a pointer release and commits the gesture in progress.
func (e *Editor) PointerUp(ev PointerEvent) {
	wasPinch := len(e.pointers) > 1
	e.untrackPointer(ev.ID)
	if wasPinch {
		if len(e.pointers) < 2 {
			e.pinchPrev = 0
		}
		return
	}

	committed := false
	switch g := e.gesture.(type) {
	case *dragNode:
		if n, ok := e.doc.Node(g.node); ok && n.Position() != g.start {
			committed = true
			e.publish(events.NodeMoved, g.node)
		}

	case *dragConnection:
		committed = e.finishConnection(g, ev)

	case *dragWaypoint:
		if g.at != g.start {
			committed = true
			e.publish(events.RerouteMoved, document.WaypointRef{Key: g.key, Index: g.index})
		}

	case *panCanvas:
		committed = e.viewport != g.origin
	}
	e.end(committed)

	e.publish(events.MouseUp, ev)
	e.publish(events.ClickEnd, ev)
}

// finishConnection resolves the release target of a wire drag and creates
// the wire when it lands on a usable input.
func (e *Editor) finishConnection(g *dragConnection, ev PointerEvent) bool {
	cancel := func() bool {
		e.publish(events.ConnectionCancel, document.PortRef{Node: g.node, Port: g.port})
		return false
	}

	t := e.classify(ev)

	var node, port string
	switch {
	case t.Kind == projection.TargetInput:
		node, port = t.Node, t.Port
	case t.Kind == projection.TargetNode && e.cfg.ForceFirstInput:
		n, ok := e.doc.Node(t.Node)
		if !ok {
			return cancel()
		}
		first, ok := n.FirstInput()
		if !ok {
			return cancel()
		}
		node, port = t.Node, first
	default:
		return cancel()
	}
	if node == g.node {
		return cancel()
	}

	key := document.ConnectionKey{OutputNode: g.node, OutputPort: g.port, InputNode: node, InputPort: port}
	created, err := e.doc.AddConnection(key)
	if err != nil || !created {
		return cancel()
	}
	return true
}

// =============================================================================
// Double click, keyboard, context menu
// =============================================================================

// DoubleClick removes a double-clicked waypoint, or inserts one on the
// selected wire at the segment that was double-clicked. It returns the
// document error when the change cannot be applied.
func (e *Editor) DoubleClick(ev PointerEvent) error {
	if e.cfg.Mode != ModeEdit {
		return nil
	}
	t := e.classify(ev)
	e.lastPointer = ev.Point()

	switch t.Kind {
	case projection.TargetWaypoint:
		return e.doc.RemoveWaypoint(t.Connection, t.Waypoint)

	case projection.TargetConnection:
		if !e.cfg.Reroute || e.sel.Kind != SelectConnection || e.sel.Connection != t.Connection {
			return nil
		}
		at := e.proj.ToContent(ev.Point())
		seg := t.Segment
		if seg < 0 {
			w, ok := e.proj.Wire(t.Connection)
			if !ok {
				return nil
			}
			seg, _ = geometry.NearestSegment(w.Segments, at)
		}
		return e.doc.AddWaypoint(t.Connection, at, max(seg, 0))
	}
	return nil
}

// KeyDown handles a key press. Delete and Backspace remove the selection in
// edit mode unless the last press landed in a text control. The selection is
// cleared even when removing it fails.
func (e *Editor) KeyDown(ev KeyEvent) error {
	e.publish(events.KeyDown, ev)
	if e.cfg.Mode != ModeEdit {
		return nil
	}
	if ev.Key != "Delete" && ev.Key != "Backspace" {
		return nil
	}
	if e.lastControl.TextLike() {
		return nil
	}
	return e.removeSelection()
}

// ContextMenu shows the delete affordance for the element under the pointer.
func (e *Editor) ContextMenu(ev PointerEvent) {
	t := e.classify(ev)
	e.publish(events.ContextMenu, ContextMenuEvent{X: ev.X, Y: ev.Y, Target: t})
	if e.cfg.Mode != ModeEdit {
		return
	}

	switch t.Kind {
	case projection.TargetNode, projection.TargetInput, projection.TargetOutput:
		e.selectNode(t.Node)
		rect, _ := e.proj.NodeRect(t.Node)
		e.deleteBox = &projection.DeleteBox{At: geometry.Point{X: rect.X + rect.W, Y: rect.Y}, Node: t.Node}
	case projection.TargetConnection:
		e.selectConnection(t.Connection)
		e.deleteBox = &projection.DeleteBox{At: e.proj.ToContent(ev.Point())}
	default:
		e.deleteBox = nil
	}
}

// removeSelection deletes whatever is selected and clears the selection.
func (e *Editor) removeSelection() error {
	sel := e.sel
	e.sel = Selection{}
	e.deleteBox = nil

	switch sel.Kind {
	case SelectNode:
		return e.doc.RemoveNode(sel.Node)
	case SelectConnection:
		return e.doc.RemoveConnection(sel.Connection)
	case SelectWaypoint:
		return e.doc.RemoveWaypoint(sel.Connection, sel.Waypoint)
	}
	return nil
}

// =============================================================================
// Pointer cache
// =============================================================================

func (e *Editor) trackPointer(ev PointerEvent) {
	for i := range e.pointers {
		if e.pointers[i].id == ev.ID {
			e.pointers[i].at = ev.Point()
			return
		}
	}
	e.pointers = append(e.pointers, pointer{id: ev.ID, at: ev.Point()})
}

// updatePointer refreshes a tracked pointer and reports whether it was tracked.
func (e *Editor) updatePointer(ev PointerEvent) bool {
	for i := range e.pointers {
		if e.pointers[i].id == ev.ID {
			e.pointers[i].at = ev.Point()
			return true
		}
	}
	return false
}

func (e *Editor) untrackPointer(id int) {
	e.pointers = slices.DeleteFunc(e.pointers, func(p pointer) bool { return p.id == id })
}
