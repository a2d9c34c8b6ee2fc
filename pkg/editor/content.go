package editor

import (
	"github.com/matzehuels/nodewire/pkg/geometry"
	"github.com/matzehuels/nodewire/pkg/projection"
)

// Container is the box the editor hands to node content for rendering.
type Container interface {
	// Node returns the id of the node the container belongs to.
	Node() string
	// Rect returns the node's box in content coordinates.
	Rect() geometry.Rect
}

// Content renders the inside of a node. The editor treats it as opaque and
// only sizes and positions its container.
type Content interface {
	Render(c Container)
}

// Mounter is implemented by content that wants to know when its node starts
// being displayed.
type Mounter interface {
	OnMount(node string)
}

// Destroyer is implemented by content that wants to know when its node stops
// being displayed or is removed.
type Destroyer interface {
	OnDestroy(node string)
}

// ContentFunc adapts a function to Content.
type ContentFunc func(c Container)

// Render implements Content.
func (f ContentFunc) Render(c Container) { f(c) }

type container struct {
	node string
	rect geometry.Rect
}

func (c container) Node() string        { return c.node }
func (c container) Rect() geometry.Rect { return c.rect }

// SetContent attaches c to node, replacing any previous content. A nil c
// detaches the current content.
func (e *Editor) SetContent(node string, c Content) {
	if _, ok := e.contents[node]; ok {
		e.unmount(node)
		delete(e.contents, node)
	}
	if c == nil {
		return
	}
	e.contents[node] = c
	if mod, ok := e.doc.ModuleOf(node); ok && mod == e.doc.ActiveModule() {
		e.mount(node)
	}
}

// Content returns the content attached to node.
func (e *Editor) Content(node string) (Content, bool) {
	c, ok := e.contents[node]
	return c, ok
}

func (e *Editor) mount(id string) {
	if e.mounted[id] {
		return
	}
	e.mounted[id] = true
	if m, ok := e.contents[id].(Mounter); ok {
		m.OnMount(id)
	}
}

func (e *Editor) unmount(id string) {
	if !e.mounted[id] {
		return
	}
	delete(e.mounted, id)
	if d, ok := e.contents[id].(Destroyer); ok {
		d.OnDestroy(id)
	}
}

// remount brings the mounted set in line with the active module.
func (e *Editor) remount() {
	active := e.doc.ActiveModule()
	for id := range e.mounted {
		if mod, ok := e.doc.ModuleOf(id); !ok || mod != active {
			e.unmount(id)
		}
	}
	for _, id := range e.doc.NodeIDs(active) {
		if _, ok := e.contents[id]; ok {
			e.mount(id)
		}
	}
}

// Paint renders every mounted node's content into its container and returns
// the scene it drew.
func (e *Editor) Paint() projection.Scene {
	s := e.Scene()
	for _, n := range s.Nodes {
		if c, ok := e.contents[n.ID]; ok {
			c.Render(container{node: n.ID, rect: n.Rect})
		}
	}
	return s
}
