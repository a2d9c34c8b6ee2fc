package editor

import (
	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/events"
	"github.com/matzehuels/nodewire/pkg/geometry"
	"github.com/matzehuels/nodewire/pkg/projection"
)

// API is the mutation and query surface handed to a host once at start-up
// (see [OnReady]). *Editor implements it.
type API interface {
	AddNode(name string, inputs, outputs int, x, y float64, data any, content Content) (string, error)
	RemoveNode(id string) error
	MoveNode(id string, x, y float64) error
	UpdateNodeData(id string, data any) error
	Node(id string) (document.Node, bool)
	NodesByName(name string) []string
	ModuleOf(id string) (string, bool)

	AddPort(node string, dir document.Direction) (string, error)
	RemovePort(node string, dir document.Direction, port string) error

	AddConnection(key document.ConnectionKey) (bool, error)
	RemoveConnection(key document.ConnectionKey) error
	AddWaypoint(key document.ConnectionKey, at geometry.Point, index int) error
	RemoveWaypoint(key document.ConnectionKey, index int) error

	AddModule(name string) error
	RemoveModule(name string) error
	SwitchModule(name string) error
	ClearModule()
	Clear()

	Export() document.Snapshot
	Import(s document.Snapshot, notify bool) error

	ZoomIn()
	ZoomOut()
	ZoomReset()
	Pan(x, y float64)
	Mode() Mode
	SetMode(m Mode)
	State() State
	Scene() projection.Scene

	Subscribe(name events.Name, fn events.Handler) events.Subscription
	Unsubscribe(sub events.Subscription) bool
}

var _ API = (*Editor)(nil)

// AddNode creates a node in the active module and attaches content to it.
// content may be nil.
func (e *Editor) AddNode(name string, inputs, outputs int, x, y float64, data any, content Content) (string, error) {
	id, err := e.doc.AddNode(name, inputs, outputs, x, y, data)
	if err != nil {
		return "", err
	}
	if content != nil {
		e.SetContent(id, content)
	}
	return id, nil
}

// RemoveNode removes a node and its wires.
func (e *Editor) RemoveNode(id string) error { return e.doc.RemoveNode(id) }

// MoveNode places a node at (x, y) and announces the move.
func (e *Editor) MoveNode(id string, x, y float64) error {
	if err := e.doc.SetNodePosition(id, x, y); err != nil {
		return err
	}
	e.proj.InvalidateNode(id)
	e.publish(events.NodeMoved, id)
	return nil
}

// UpdateNodeData replaces a node's payload.
func (e *Editor) UpdateNodeData(id string, data any) error { return e.doc.UpdateNodeData(id, data) }

// Node returns a deep copy of a node.
func (e *Editor) Node(id string) (document.Node, bool) { return e.doc.Node(id) }

// NodesByName returns the ids of every node called name.
func (e *Editor) NodesByName(name string) []string { return e.doc.NodesByName(name) }

// ModuleOf returns the module holding node id.
func (e *Editor) ModuleOf(id string) (string, bool) { return e.doc.ModuleOf(id) }

// AddPort appends a port to a node.
func (e *Editor) AddPort(node string, dir document.Direction) (string, error) {
	return e.doc.AddPort(node, dir)
}

// RemovePort removes a port and its wires.
func (e *Editor) RemovePort(node string, dir document.Direction, port string) error {
	return e.doc.RemovePort(node, dir, port)
}

// AddConnection wires two ports. Mode does not gate programmatic calls.
func (e *Editor) AddConnection(key document.ConnectionKey) (bool, error) {
	return e.doc.AddConnection(key)
}

// RemoveConnection removes a wire.
func (e *Editor) RemoveConnection(key document.ConnectionKey) error {
	return e.doc.RemoveConnection(key)
}

// AddWaypoint inserts a waypoint on a wire.
func (e *Editor) AddWaypoint(key document.ConnectionKey, at geometry.Point, index int) error {
	return e.doc.AddWaypoint(key, at, index)
}

// RemoveWaypoint deletes a waypoint from a wire.
func (e *Editor) RemoveWaypoint(key document.ConnectionKey, index int) error {
	return e.doc.RemoveWaypoint(key, index)
}

// AddModule creates a module.
func (e *Editor) AddModule(name string) error { return e.doc.AddModule(name) }

// RemoveModule deletes a module.
func (e *Editor) RemoveModule(name string) error { return e.doc.RemoveModule(name) }

// SwitchModule activates a module. The viewport and selection are reset.
func (e *Editor) SwitchModule(name string) error { return e.doc.SwitchModule(name) }

// ClearModule empties the active module.
func (e *Editor) ClearModule() {
	for _, id := range e.doc.NodeIDs(e.doc.ActiveModule()) {
		e.unmount(id)
		delete(e.contents, id)
	}
	e.doc.ClearModule()
	e.proj.InvalidateAll()
	e.abortGesture()
	e.sel = Selection{}
	e.deleteBox = nil
}

// Clear resets the document to an empty "Home" module and the view to its
// defaults.
func (e *Editor) Clear() {
	for id := range e.contents {
		e.unmount(id)
	}
	clear(e.contents)
	e.doc.Clear()
	e.proj.InvalidateAll()
	e.resetView()
}

// Export returns a snapshot of the document.
func (e *Editor) Export() document.Snapshot { return e.doc.Export() }

// Import replaces the document with s.
func (e *Editor) Import(s document.Snapshot, notify bool) error {
	if err := e.doc.Import(s, notify); err != nil {
		return err
	}
	if !notify {
		// no event reached the projector or the editor
		e.proj.InvalidateAll()
		e.onImport()
	}
	return nil
}
