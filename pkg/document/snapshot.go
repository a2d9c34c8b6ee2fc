package document

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/nodewire/pkg/errors"
	"github.com/matzehuels/nodewire/pkg/events"
	"github.com/matzehuels/nodewire/pkg/geometry"
)

// Snapshot is the serialized form of a document:
//
//	{ "<module>": { "data": { "<nodeId>": NodeRecord, ... } }, ... }
type Snapshot map[string]ModuleRecord

// ModuleRecord is the serialized form of one module.
type ModuleRecord struct {
	Data map[string]NodeRecord `json:"data"`
}

// NodeRecord is the serialized form of one node.
type NodeRecord struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Data      json.RawMessage       `json:"data"`
	Inputs    map[string]PortRecord `json:"inputs"`
	Outputs   map[string]PortRecord `json:"outputs"`
	PositionX float64               `json:"positionX"`
	PositionY float64               `json:"positionY"`
}

// UnmarshalJSON also accepts the older pos_x/pos_y position keys.
func (r *NodeRecord) UnmarshalJSON(b []byte) error {
	type plain NodeRecord
	aux := struct {
		*plain
		PosX *float64 `json:"pos_x"`
		PosY *float64 `json:"pos_y"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.PosX != nil && r.PositionX == 0 {
		r.PositionX = *aux.PosX
	}
	if aux.PosY != nil && r.PositionY == 0 {
		r.PositionY = *aux.PosY
	}
	return nil
}

// PortRecord is the serialized form of one port.
type PortRecord struct {
	Connections []EndRecord `json:"connections"`
}

// EndRecord is one serialized connection half. Output-side records set Output
// (the id of the input port they point at) and may carry Points; input-side
// records set Input (the id of the output port they point back at).
type EndRecord struct {
	Node   string        `json:"node"`
	Output string        `json:"output,omitempty"`
	Input  string        `json:"input,omitempty"`
	Points []PointRecord `json:"points,omitempty"`
}

// PointRecord is a serialized waypoint.
type PointRecord struct {
	PositionX float64 `json:"positionX"`
	PositionY float64 `json:"positionY"`
}

// UnmarshalJSON also accepts the older pos_x/pos_y keys.
func (p *PointRecord) UnmarshalJSON(b []byte) error {
	var aux struct {
		PositionX *float64 `json:"positionX"`
		PositionY *float64 `json:"positionY"`
		PosX      *float64 `json:"pos_x"`
		PosY      *float64 `json:"pos_y"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = PointRecord{}
	switch {
	case aux.PositionX != nil:
		p.PositionX = *aux.PositionX
	case aux.PosX != nil:
		p.PositionX = *aux.PosX
	}
	switch {
	case aux.PositionY != nil:
		p.PositionY = *aux.PositionY
	case aux.PosY != nil:
		p.PositionY = *aux.PosY
	}
	return nil
}

// NewSnapshot returns the snapshot of an empty document.
func NewSnapshot() Snapshot {
	return Snapshot{HomeModule: {Data: map[string]NodeRecord{}}}
}

// NodeCount returns the number of nodes across all modules.
func (s Snapshot) NodeCount() int {
	n := 0
	for _, m := range s {
		n += len(m.Data)
	}
	return n
}

// =============================================================================
// Export
// =============================================================================

// Export returns a deep copy of the whole document and publishes it as the
// payload of an "export" event.
func (d *Document) Export() Snapshot {
	s := d.snapshot()
	d.bus.Publish(events.Export, s)
	return s
}

func (d *Document) snapshot() Snapshot {
	s := make(Snapshot, len(d.modules))
	for name, m := range d.modules {
		data := make(map[string]NodeRecord, len(m.nodes))
		for id, n := range m.nodes {
			data[id] = nodeRecord(n)
		}
		s[name] = ModuleRecord{Data: data}
	}
	return s
}

func nodeRecord(n *Node) NodeRecord {
	data := bytes.Clone(n.Data)
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	return NodeRecord{
		ID:        n.ID,
		Name:      n.Name,
		Data:      data,
		Inputs:    portRecords(n.Inputs, Input),
		Outputs:   portRecords(n.Outputs, Output),
		PositionX: n.X,
		PositionY: n.Y,
	}
}

func portRecords(ports []*Port, dir Direction) map[string]PortRecord {
	out := make(map[string]PortRecord, len(ports))
	for _, p := range ports {
		ends := make([]EndRecord, 0, len(p.Connections))
		for _, e := range p.Connections {
			rec := EndRecord{Node: e.Node}
			if dir == Output {
				rec.Output = e.Port
				for _, pt := range e.Points {
					rec.Points = append(rec.Points, PointRecord{PositionX: pt.X, PositionY: pt.Y})
				}
			} else {
				rec.Input = e.Port
			}
			ends = append(ends, rec)
		}
		out[p.ID] = PortRecord{Connections: ends}
	}
	return out
}

// =============================================================================
// Import
// =============================================================================

// Import replaces the document contents with s. The snapshot is validated
// first; a corrupt snapshot is rejected and the document is left untouched.
// The active module is kept if s contains it and falls back to "Home"
// otherwise. When notify is set an "import" event is published.
func (d *Document) Import(s Snapshot, notify bool) error {
	st, err := build(s)
	if err != nil {
		return err
	}
	d.modules = st.modules
	d.nodeModule = st.nodeModule
	d.touching = st.touching
	if !d.HasModule(d.active) {
		d.active = HomeModule
	}
	if notify {
		d.bus.Publish(events.Import, nil)
	}
	return nil
}

// Validate checks every structural invariant of the document: unique node
// ids, wires stored on both sides, wires within one module and no self loops.
func (d *Document) Validate() error {
	_, err := build(d.snapshot())
	return err
}

type state struct {
	modules    map[string]*Module
	nodeModule map[string]string
	touching   map[string]map[ConnectionKey]struct{}
}

func (st *state) index(key ConnectionKey) {
	for _, id := range []string{key.OutputNode, key.InputNode} {
		set, ok := st.touching[id]
		if !ok {
			set = make(map[ConnectionKey]struct{})
			st.touching[id] = set
		}
		set[key] = struct{}{}
	}
}

func corrupt(format string, args ...any) error {
	return errors.New(errors.ErrCodeCorruptModel, format, args...)
}

func build(s Snapshot) (*state, error) {
	st := &state{
		modules:    make(map[string]*Module, len(s)),
		nodeModule: make(map[string]string),
		touching:   make(map[string]map[ConnectionKey]struct{}),
	}

	for _, name := range slices.Sorted(maps.Keys(s)) {
		if name == "" {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "module name must not be empty")
		}
		rec := s[name]
		m := newModule(name)
		for _, id := range slices.Sorted(maps.Keys(rec.Data)) {
			nr := rec.Data[id]
			if id == "" {
				return nil, corrupt("module %q has a node with an empty id", name)
			}
			if nr.ID != "" && nr.ID != id {
				return nil, corrupt("node keyed %q declares id %q", id, nr.ID)
			}
			if other, dup := st.nodeModule[id]; dup {
				return nil, corrupt("node %q appears in modules %q and %q", id, other, name)
			}
			n, err := buildNode(id, nr)
			if err != nil {
				return nil, err
			}
			m.add(n)
			st.nodeModule[id] = name
		}
		st.modules[name] = m
	}
	if _, ok := st.modules[HomeModule]; !ok {
		st.modules[HomeModule] = newModule(HomeModule)
	}

	if err := st.checkWires(); err != nil {
		return nil, err
	}
	return st, nil
}

func buildNode(id string, nr NodeRecord) (*Node, error) {
	data := bytes.Clone(nr.Data)
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	} else if !json.Valid(data) {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "node %q data is not valid JSON", id)
	}
	n := &Node{ID: id, Name: nr.Name, X: nr.PositionX, Y: nr.PositionY, Data: data}

	var err error
	if n.Inputs, n.nextInput, err = buildPorts(id, nr.Inputs, Input); err != nil {
		return nil, err
	}
	if n.Outputs, n.nextOutput, err = buildPorts(id, nr.Outputs, Output); err != nil {
		return nil, err
	}
	return n, nil
}

func buildPorts(node string, recs map[string]PortRecord, dir Direction) ([]*Port, int, error) {
	prefix := dir.String() + "_"
	ids := slices.Collect(maps.Keys(recs))
	slices.SortFunc(ids, func(a, b string) int { return comparePortIDs(a, b, prefix) })

	next := 0
	ports := make([]*Port, 0, len(ids))
	for _, pid := range ids {
		if n, ok := portOrdinal(pid, prefix); ok && n > next {
			next = n
		}
		p := &Port{ID: pid}
		for _, er := range recs[pid].Connections {
			e := End{Node: er.Node}
			if dir == Output {
				e.Port = er.Output
				for _, pt := range er.Points {
					e.Points = append(e.Points, geometry.Point{X: pt.PositionX, Y: pt.PositionY})
				}
			} else {
				e.Port = er.Input
			}
			if e.Node == "" || e.Port == "" {
				return nil, 0, corrupt("%s %q on node %q has an incomplete connection", dir, pid, node)
			}
			p.Connections = append(p.Connections, e)
		}
		ports = append(ports, p)
	}
	if next < len(ports) {
		next = len(ports)
	}
	return ports, next, nil
}

func portOrdinal(id, prefix string) (int, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(prefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// comparePortIDs orders generated ids numerically and places any other ids
// after them, lexicographically.
func comparePortIDs(a, b, prefix string) int {
	na, oka := portOrdinal(a, prefix)
	nb, okb := portOrdinal(b, prefix)
	switch {
	case oka && okb:
		return na - nb
	case oka:
		return -1
	case okb:
		return 1
	}
	return strings.Compare(a, b)
}

func (st *state) checkWires() error {
	for _, name := range slices.Sorted(maps.Keys(st.modules)) {
		m := st.modules[name]
		for _, id := range m.order {
			n := m.nodes[id]
			for _, p := range n.Outputs {
				seen := make(map[PortRef]bool, len(p.Connections))
				for _, e := range p.Connections {
					key := ConnectionKey{OutputNode: id, OutputPort: p.ID, InputNode: e.Node, InputPort: e.Port}
					ref := PortRef{Node: e.Node, Port: e.Port}
					if seen[ref] {
						return corrupt("duplicate connection %s", key)
					}
					seen[ref] = true
					if e.Node == id {
						return corrupt("connection %s is a self loop", key)
					}
					target, ok := m.nodes[e.Node]
					if !ok {
						return corrupt("connection %s points outside module %q", key, name)
					}
					in, ok := target.Port(Input, e.Port)
					if !ok {
						return corrupt("connection %s points at a missing input", key)
					}
					if in.find(id, p.ID) < 0 {
						return corrupt("connection %s has no input-side half", key)
					}
					st.index(key)
				}
			}
			for _, p := range n.Inputs {
				seen := make(map[PortRef]bool, len(p.Connections))
				for _, e := range p.Connections {
					key := ConnectionKey{OutputNode: e.Node, OutputPort: e.Port, InputNode: id, InputPort: p.ID}
					ref := PortRef{Node: e.Node, Port: e.Port}
					if seen[ref] {
						return corrupt("duplicate connection %s", key)
					}
					seen[ref] = true
					src, ok := m.nodes[e.Node]
					if !ok {
						return corrupt("connection %s points outside module %q", key, name)
					}
					out, ok := src.Port(Output, e.Port)
					if !ok || out.find(id, p.ID) < 0 {
						return corrupt("connection %s has no output-side half", key)
					}
				}
			}
		}
	}
	return nil
}
