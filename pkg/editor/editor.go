// Package editor implements the pointer-driven interaction engine.
//
// An [Editor] turns host input (pointer presses, moves and releases, wheel,
// keys, double-clicks and context-menu requests) into document mutations,
// view changes and bus events. All interaction state lives in one place: the
// mode, the viewport, the selection and the gesture in progress. A gesture is
// one of Idle, DraggingNode, DraggingConnection, DraggingWaypoint or
// PanningCanvas, and each carries only the data that state needs.
//
// Hosts that already know what was clicked pass a classified
// [projection.Target] with each event; hosts that only have coordinates leave
// it nil and the editor hit-tests the current scene.
//
// The editor is single-threaded. Every method runs to completion before the
// next input is processed.
package editor

import (
	"time"

	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/events"
	"github.com/matzehuels/nodewire/pkg/geometry"
	"github.com/matzehuels/nodewire/pkg/observability"
	"github.com/matzehuels/nodewire/pkg/projection"
)

// Editor is the interaction engine for one document and one surface.
type Editor struct {
	doc  *document.Document
	proj *projection.Projector
	cfg  Config

	viewport  Viewport
	sel       Selection
	gesture   gesture
	started   time.Time
	deleteBox *projection.DeleteBox
	preview   string

	pointers    []pointer
	pinchPrev   float64
	lastPointer geometry.Point
	lastControl projection.Control

	contents map[string]Content
	mounted  map[string]bool

	ready func(API)
	subs  []events.Subscription
}

type pointer struct {
	id int
	at geometry.Point
}

// New returns an editor over doc drawing onto surface.
func New(doc *document.Document, surface projection.Surface, opts ...Option) *Editor {
	e := &Editor{
		doc:      doc,
		cfg:      DefaultConfig(),
		gesture:  idle{},
		contents: make(map[string]Content),
		mounted:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg.normalize()
	e.viewport = e.homeViewport()
	e.proj = projection.NewProjector(doc, surface, projection.WithCurvature(e.cfg.Curvature))
	e.proj.SetTransform(e.viewport.Transform())

	bus := doc.Bus()
	e.subs = []events.Subscription{
		bus.Subscribe(events.ModuleChanged, func(events.Event) { e.onModuleChanged() }),
		bus.Subscribe(events.Import, func(events.Event) { e.onImport() }),
		bus.Subscribe(events.NodeRemoved, func(ev events.Event) {
			if id, ok := ev.Payload.(string); ok {
				e.onNodeRemoved(id)
			}
		}),
		bus.Subscribe(events.ConnectionRemoved, func(ev events.Event) {
			if k, ok := ev.Payload.(document.ConnectionKey); ok {
				e.onConnectionRemoved(k)
			}
		}),
		bus.Subscribe(events.RerouteRemoved, func(ev events.Event) {
			if ref, ok := ev.Payload.(document.WaypointRef); ok {
				e.onWaypointRemoved(ref)
			}
		}),
	}

	if e.ready != nil {
		e.ready(e)
	}
	return e
}

// Close detaches the editor and its projector from the document bus.
func (e *Editor) Close() {
	for _, s := range e.subs {
		e.doc.Bus().Unsubscribe(s)
	}
	e.subs = nil
	e.proj.Close()
}

// Document returns the edited document.
func (e *Editor) Document() *document.Document { return e.doc }

// Projector returns the editor's projector.
func (e *Editor) Projector() *projection.Projector { return e.proj }

// Config returns the editor configuration.
func (e *Editor) Config() Config { return e.cfg }

// Mode returns the interaction mode.
func (e *Editor) Mode() Mode { return e.cfg.Mode }

// SetMode changes the interaction mode and abandons any gesture in progress.
func (e *Editor) SetMode(m Mode) {
	e.abortGesture()
	e.cfg.Mode = m
	e.deleteBox = nil
}

// State returns a snapshot of the interaction state.
func (e *Editor) State() State {
	s := State{
		Mode:      e.cfg.Mode,
		Module:    e.doc.ActiveModule(),
		Viewport:  e.viewport,
		Selection: e.sel,
		Gesture:   e.gesture.kind(),
		Preview:   e.preview,
	}
	if e.deleteBox != nil {
		db := *e.deleteBox
		s.DeleteBox = &db
	}
	return s
}

// Scene projects the active module with the current selection and overlays.
func (e *Editor) Scene() projection.Scene {
	v := projection.View{
		DeleteBox:      e.deleteBox,
		Preview:        e.preview,
		WaypointRadius: e.cfg.WaypointRadius,
	}
	switch e.sel.Kind {
	case SelectNode:
		v.SelectedNode = e.sel.Node
	case SelectConnection:
		k := e.sel.Connection
		v.SelectedConnection = &k
	case SelectWaypoint:
		v.SelectedWaypoint = &projection.WaypointSelection{Key: e.sel.Connection, Index: e.sel.Waypoint}
	}
	return e.proj.Scene(v)
}

// Subscribe registers fn on the document bus.
func (e *Editor) Subscribe(name events.Name, fn events.Handler) events.Subscription {
	return e.doc.Bus().Subscribe(name, fn)
}

// Unsubscribe removes a handler registered with Subscribe.
func (e *Editor) Unsubscribe(sub events.Subscription) bool {
	return e.doc.Bus().Unsubscribe(sub)
}

func (e *Editor) publish(name events.Name, payload any) {
	e.doc.Bus().Publish(name, payload)
}

// =============================================================================
// Selection
// =============================================================================

func (e *Editor) selectNode(id string) {
	if e.sel.Kind == SelectNode && e.sel.Node == id {
		return
	}
	e.clearSelection()
	e.sel = Selection{Kind: SelectNode, Node: id}
	e.publish(events.NodeSelected, id)
}

func (e *Editor) selectConnection(k document.ConnectionKey) {
	if e.sel.Kind == SelectConnection && e.sel.Connection == k {
		return
	}
	e.clearSelection()
	e.sel = Selection{Kind: SelectConnection, Connection: k}
	e.publish(events.ConnectionSelected, k)
}

func (e *Editor) selectWaypoint(k document.ConnectionKey, i int) {
	e.clearSelection()
	e.sel = Selection{Kind: SelectWaypoint, Connection: k, Waypoint: i}
}

// clearSelection drops the selection and announces what was unselected.
func (e *Editor) clearSelection() {
	prev := e.sel
	e.sel = Selection{}
	switch prev.Kind {
	case SelectNode:
		e.publish(events.NodeUnselected, prev.Node)
	case SelectConnection:
		e.publish(events.ConnectionUnselected, prev.Connection)
	}
}

// =============================================================================
// Document event reactions
// =============================================================================

func (e *Editor) resetView() {
	e.abortGesture()
	e.sel = Selection{}
	e.deleteBox = nil
	e.viewport = e.homeViewport()
	e.proj.SetTransform(e.viewport.Transform())
}

// homeViewport is the unpanned viewport at zoom 1, or the nearest zoom the
// configured range allows.
func (e *Editor) homeViewport() Viewport {
	return Viewport{Zoom: e.clampZoom(1)}
}

func (e *Editor) onModuleChanged() {
	e.resetView()
	e.remount()
}

func (e *Editor) onImport() {
	e.abortGesture()
	e.sel = Selection{}
	e.deleteBox = nil
	for id := range e.contents {
		if _, ok := e.doc.ModuleOf(id); !ok {
			e.unmount(id)
			delete(e.contents, id)
		}
	}
	e.remount()
}

func (e *Editor) onNodeRemoved(id string) {
	if e.sel.Kind == SelectNode && e.sel.Node == id {
		e.sel = Selection{}
	}
	if e.deleteBox != nil && e.deleteBox.Node == id {
		e.deleteBox = nil
	}
	if g, ok := e.gesture.(*dragNode); ok && g.node == id {
		e.gesture = idle{}
	}
	e.unmount(id)
	delete(e.contents, id)
}

func (e *Editor) onConnectionRemoved(k document.ConnectionKey) {
	if (e.sel.Kind == SelectConnection || e.sel.Kind == SelectWaypoint) && e.sel.Connection == k {
		e.sel = Selection{}
		if e.deleteBox != nil && e.deleteBox.Node == "" {
			e.deleteBox = nil
		}
	}
	if g, ok := e.gesture.(*dragWaypoint); ok && g.key == k {
		e.gesture = idle{}
	}
}

func (e *Editor) onWaypointRemoved(ref document.WaypointRef) {
	if e.sel.Kind != SelectWaypoint || e.sel.Connection != ref.Key {
		return
	}
	switch {
	case e.sel.Waypoint == ref.Index:
		e.sel = Selection{}
	case e.sel.Waypoint > ref.Index:
		e.sel.Waypoint--
	}
}

// =============================================================================
// Gesture bookkeeping
// =============================================================================

func (e *Editor) begin(g gesture) {
	e.gesture = g
	e.started = time.Now()
	observability.Editor().OnGestureStart(g.kind().String())
}

func (e *Editor) end(committed bool) {
	k := e.gesture.kind()
	e.gesture = idle{}
	e.preview = ""
	if k != Idle {
		observability.Editor().OnGestureEnd(k.String(), committed, time.Since(e.started))
	}
}

// abortGesture drops the gesture in progress without committing it.
func (e *Editor) abortGesture() {
	if g, ok := e.gesture.(*dragConnection); ok {
		e.publish(events.ConnectionCancel, document.PortRef{Node: g.node, Port: g.port})
	}
	e.end(false)
}
