package document

import (
	"slices"
	"strings"

	"github.com/matzehuels/nodewire/pkg/errors"
	"github.com/matzehuels/nodewire/pkg/events"
	"github.com/matzehuels/nodewire/pkg/geometry"
)

// AddConnection wires key.OutputPort on key.OutputNode to key.InputPort on
// key.InputNode and reports whether a wire was created.
//
// Self loops, wires between modules and duplicates are refused with
// created=false and a nil error. Unknown nodes or ports return an error.
func (d *Document) AddConnection(key ConnectionKey) (bool, error) {
	outNode, err := d.mustNode(key.OutputNode)
	if err != nil {
		return false, err
	}
	inNode, err := d.mustNode(key.InputNode)
	if err != nil {
		return false, err
	}
	outPort, ok := outNode.Port(Output, key.OutputPort)
	if !ok {
		return false, errors.New(errors.ErrCodePortNotFound, "output %q on node %q", key.OutputPort, key.OutputNode)
	}
	inPort, ok := inNode.Port(Input, key.InputPort)
	if !ok {
		return false, errors.New(errors.ErrCodePortNotFound, "input %q on node %q", key.InputPort, key.InputNode)
	}

	if key.OutputNode == key.InputNode {
		return false, nil
	}
	if d.nodeModule[key.OutputNode] != d.nodeModule[key.InputNode] {
		return false, nil
	}
	if outPort.find(key.InputNode, key.InputPort) >= 0 {
		return false, nil
	}

	outPort.Connections = append(outPort.Connections, End{Node: key.InputNode, Port: key.InputPort})
	inPort.Connections = append(inPort.Connections, End{Node: key.OutputNode, Port: key.OutputPort})
	d.index(key)
	d.bus.Publish(events.ConnectionCreated, key)
	return true, nil
}

// RemoveConnection deletes both halves of a wire.
//
// If neither half exists the result is a CONNECTION_NOT_FOUND error. If only
// one half exists the document is corrupt and CORRUPT_MODEL is returned
// without modifying anything.
func (d *Document) RemoveConnection(key ConnectionKey) error {
	outPort, oi := d.outputHalf(key)
	inPort, ii := d.inputHalf(key)

	switch {
	case oi < 0 && ii < 0:
		return errors.New(errors.ErrCodeConnectionNotFound, "connection %s", key)
	case oi < 0 || ii < 0:
		return errors.New(errors.ErrCodeCorruptModel, "connection %s is stored on one side only", key)
	}

	outPort.Connections = slices.Delete(outPort.Connections, oi, oi+1)
	inPort.Connections = slices.Delete(inPort.Connections, ii, ii+1)
	d.unindex(key)
	d.bus.Publish(events.ConnectionRemoved, key)
	return nil
}

// HasConnection reports whether the output-side half of key exists.
func (d *Document) HasConnection(key ConnectionKey) bool {
	_, i := d.outputHalf(key)
	return i >= 0
}

func (d *Document) outputHalf(key ConnectionKey) (*Port, int) {
	n, ok := d.node(key.OutputNode)
	if !ok {
		return nil, -1
	}
	p, ok := n.Port(Output, key.OutputPort)
	if !ok {
		return nil, -1
	}
	return p, p.find(key.InputNode, key.InputPort)
}

func (d *Document) inputHalf(key ConnectionKey) (*Port, int) {
	n, ok := d.node(key.InputNode)
	if !ok {
		return nil, -1
	}
	p, ok := n.Port(Input, key.InputPort)
	if !ok {
		return nil, -1
	}
	return p, p.find(key.OutputNode, key.OutputPort)
}

func (d *Document) index(key ConnectionKey) {
	for _, id := range []string{key.OutputNode, key.InputNode} {
		set, ok := d.touching[id]
		if !ok {
			set = make(map[ConnectionKey]struct{})
			d.touching[id] = set
		}
		set[key] = struct{}{}
	}
}

func (d *Document) unindex(key ConnectionKey) {
	for _, id := range []string{key.OutputNode, key.InputNode} {
		if set, ok := d.touching[id]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(d.touching, id)
			}
		}
	}
}

// ConnectionsOf returns the keys of every wire attached to node, sorted.
func (d *Document) ConnectionsOf(node string) []ConnectionKey {
	set := d.touching[node]
	out := make([]ConnectionKey, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b ConnectionKey) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

// Connections returns every wire in module in a stable order: by output node
// insertion order, then output port order, then connection order.
func (d *Document) Connections(module string) []Connection {
	m, ok := d.modules[module]
	if !ok {
		return nil
	}
	var out []Connection
	for _, id := range m.order {
		n := m.nodes[id]
		for _, p := range n.Outputs {
			for _, e := range p.Connections {
				out = append(out, Connection{
					Key:    ConnectionKey{OutputNode: id, OutputPort: p.ID, InputNode: e.Node, InputPort: e.Port},
					Points: slices.Clone(e.Points),
				})
			}
		}
	}
	return out
}

// ConnectionCount returns the number of wires in module.
func (d *Document) ConnectionCount(module string) int {
	return len(d.Connections(module))
}

// =============================================================================
// Waypoints
// =============================================================================

func (d *Document) mustOutputHalf(key ConnectionKey) (*End, error) {
	p, i := d.outputHalf(key)
	if i < 0 {
		return nil, errors.New(errors.ErrCodeConnectionNotFound, "connection %s", key)
	}
	return &p.Connections[i], nil
}

// Waypoints returns a copy of the waypoints of wire key.
func (d *Document) Waypoints(key ConnectionKey) ([]geometry.Point, error) {
	e, err := d.mustOutputHalf(key)
	if err != nil {
		return nil, err
	}
	return slices.Clone(e.Points), nil
}

// AddWaypoint inserts p at position index of wire key. A negative index
// appends. Existing waypoints at or after index shift up by one.
func (d *Document) AddWaypoint(key ConnectionKey, p geometry.Point, index int) error {
	e, err := d.mustOutputHalf(key)
	if err != nil {
		return err
	}
	if index < 0 {
		index = len(e.Points)
	}
	if index > len(e.Points) {
		return errors.New(errors.ErrCodeInvalidInput, "waypoint index %d out of range [0,%d]", index, len(e.Points))
	}
	e.Points = slices.Insert(e.Points, index, p)
	d.bus.Publish(events.RerouteAdded, WaypointRef{Key: key, Index: index})
	return nil
}

// RemoveWaypoint deletes waypoint index of wire key.
func (d *Document) RemoveWaypoint(key ConnectionKey, index int) error {
	e, err := d.mustOutputHalf(key)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(e.Points) {
		return errors.New(errors.ErrCodeWaypointNotFound, "waypoint %d on %s", index, key)
	}
	e.Points = slices.Delete(e.Points, index, index+1)
	if len(e.Points) == 0 {
		e.Points = nil
	}
	d.bus.Publish(events.RerouteRemoved, WaypointRef{Key: key, Index: index})
	return nil
}

// MoveWaypoint sets the coordinates of waypoint index of wire key.
// It publishes nothing; interactive hosts report the move once the drag ends.
func (d *Document) MoveWaypoint(key ConnectionKey, index int, p geometry.Point) error {
	e, err := d.mustOutputHalf(key)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(e.Points) {
		return errors.New(errors.ErrCodeWaypointNotFound, "waypoint %d on %s", index, key)
	}
	e.Points[index] = p
	return nil
}
