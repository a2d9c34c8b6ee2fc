package document

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/matzehuels/nodewire/pkg/errors"
	"github.com/matzehuels/nodewire/pkg/events"
)

// Document is a collection of modules plus the indexes needed to answer
// relationship queries without scanning.
//
// The zero value is not usable; create documents with [New].
type Document struct {
	modules map[string]*Module
	active  string

	nodeModule map[string]string                     // node id -> module name
	touching   map[string]map[ConnectionKey]struct{} // node id -> wires at that node

	ids IDGenerator
	bus *events.Bus
}

// Option configures a Document.
type Option func(*Document)

// WithIDGenerator overrides the default UUID node id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(d *Document) {
		if g != nil {
			d.ids = g
		}
	}
}

// WithBus makes the document publish on b instead of a private bus.
func WithBus(b *events.Bus) Option {
	return func(d *Document) {
		if b != nil {
			d.bus = b
		}
	}
}

// New returns a document containing only the empty "Home" module.
func New(opts ...Option) *Document {
	d := &Document{
		ids: UUIDGenerator{},
		bus: events.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.reset()
	return d
}

func (d *Document) reset() {
	d.modules = map[string]*Module{HomeModule: newModule(HomeModule)}
	d.active = HomeModule
	d.nodeModule = make(map[string]string)
	d.touching = make(map[string]map[ConnectionKey]struct{})
}

// Bus returns the bus the document publishes on.
func (d *Document) Bus() *events.Bus { return d.bus }

// NewID returns a fresh id from the document's generator.
func (d *Document) NewID() string { return d.ids.NewID() }

// ActiveModule returns the name of the module new nodes are added to.
func (d *Document) ActiveModule() string { return d.active }

// Modules returns the module names in sorted order.
func (d *Document) Modules() []string {
	return slices.Sorted(maps.Keys(d.modules))
}

// HasModule reports whether a module called name exists.
func (d *Document) HasModule(name string) bool {
	_, ok := d.modules[name]
	return ok
}

// =============================================================================
// Nodes
// =============================================================================

// AddNode creates a node in the active module with the given number of input
// and output ports and returns its id. data is marshaled to JSON; nil becomes
// an empty object.
func (d *Document) AddNode(name string, inputs, outputs int, x, y float64, data any) (string, error) {
	if inputs < 0 || outputs < 0 {
		return "", errors.New(errors.ErrCodeInvalidInput, "port counts must not be negative")
	}
	raw, err := marshalData(data)
	if err != nil {
		return "", err
	}

	id := d.ids.NewID()
	for id == "" || d.nodeModule[id] != "" {
		id = d.ids.NewID()
	}

	n := &Node{ID: id, Name: name, X: x, Y: y, Data: raw}
	for range inputs {
		n.Inputs = append(n.Inputs, &Port{ID: n.newPortID(Input)})
	}
	for range outputs {
		n.Outputs = append(n.Outputs, &Port{ID: n.newPortID(Output)})
	}

	d.modules[d.active].add(n)
	d.nodeModule[id] = d.active
	d.bus.Publish(events.NodeCreated, id)
	return id, nil
}

func marshalData(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "node data is not valid JSON")
		}
		return slices.Clone(v), nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "marshal node data")
	}
	return raw, nil
}

// Node returns a deep copy of the node with id.
func (d *Document) Node(id string) (Node, bool) {
	n, ok := d.node(id)
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

func (d *Document) node(id string) (*Node, bool) {
	mod, ok := d.nodeModule[id]
	if !ok {
		return nil, false
	}
	n, ok := d.modules[mod].nodes[id]
	return n, ok
}

func (d *Document) mustNode(id string) (*Node, error) {
	n, ok := d.node(id)
	if !ok {
		return nil, errors.New(errors.ErrCodeNodeNotFound, "node %q", id)
	}
	return n, nil
}

// Nodes returns deep copies of the nodes in module, in insertion order.
func (d *Document) Nodes(module string) []Node {
	m, ok := d.modules[module]
	if !ok {
		return nil
	}
	out := make([]Node, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.nodes[id].clone())
	}
	return out
}

// NodeIDs returns the node ids in module, in insertion order.
func (d *Document) NodeIDs(module string) []string {
	m, ok := d.modules[module]
	if !ok {
		return nil
	}
	return slices.Clone(m.order)
}

// NodeCount returns the number of nodes in module.
func (d *Document) NodeCount(module string) int {
	if m, ok := d.modules[module]; ok {
		return m.Len()
	}
	return 0
}

// NodesByName returns the ids of every node called name, across all modules.
func (d *Document) NodesByName(name string) []string {
	var out []string
	for _, mod := range d.Modules() {
		m := d.modules[mod]
		for _, id := range m.order {
			if m.nodes[id].Name == name {
				out = append(out, id)
			}
		}
	}
	return out
}

// ModuleOf returns the module containing node id.
func (d *Document) ModuleOf(id string) (string, bool) {
	mod, ok := d.nodeModule[id]
	return mod, ok
}

// SetNodePosition moves node id to (x, y). It publishes nothing; interactive
// hosts report the move once the drag ends.
func (d *Document) SetNodePosition(id string, x, y float64) error {
	n, err := d.mustNode(id)
	if err != nil {
		return err
	}
	n.X, n.Y = x, y
	return nil
}

// UpdateNodeData replaces the payload of node id.
func (d *Document) UpdateNodeData(id string, data any) error {
	n, err := d.mustNode(id)
	if err != nil {
		return err
	}
	raw, err := marshalData(data)
	if err != nil {
		return err
	}
	n.Data = raw
	d.bus.Publish(events.NodeDataChanged, id)
	return nil
}

// RemoveNode removes node id together with every wire attached to it.
func (d *Document) RemoveNode(id string) error {
	if _, err := d.mustNode(id); err != nil {
		return err
	}
	for _, key := range d.ConnectionsOf(id) {
		if err := d.RemoveConnection(key); err != nil {
			return err
		}
	}
	mod := d.nodeModule[id]
	d.modules[mod].remove(id)
	delete(d.nodeModule, id)
	delete(d.touching, id)
	d.bus.Publish(events.NodeRemoved, id)
	return nil
}

// =============================================================================
// Ports
// =============================================================================

// AddPort appends a port in direction dir to node and returns its id.
func (d *Document) AddPort(node string, dir Direction) (string, error) {
	n, err := d.mustNode(node)
	if err != nil {
		return "", err
	}
	id := n.newPortID(dir)
	n.setPorts(dir, append(n.Ports(dir), &Port{ID: id}))

	ev := events.InputAdded
	if dir == Output {
		ev = events.OutputAdded
	}
	d.bus.Publish(ev, PortRef{Node: node, Port: id})
	return id, nil
}

// RemovePort removes a port and every wire attached to it. Removing a port
// that does not exist is a no-op. Remaining ports keep their ids.
func (d *Document) RemovePort(node string, dir Direction, port string) error {
	n, err := d.mustNode(node)
	if err != nil {
		return err
	}
	p, ok := n.Port(dir, port)
	if !ok {
		return nil
	}

	for _, e := range slices.Clone(p.Connections) {
		key := ConnectionKey{OutputNode: node, OutputPort: port, InputNode: e.Node, InputPort: e.Port}
		if dir == Input {
			key = ConnectionKey{OutputNode: e.Node, OutputPort: e.Port, InputNode: node, InputPort: port}
		}
		if err := d.RemoveConnection(key); err != nil {
			return err
		}
	}

	ports := n.Ports(dir)
	i := n.PortIndex(dir, port)
	n.setPorts(dir, slices.Delete(slices.Clone(ports), i, i+1))

	ev := events.InputRemoved
	if dir == Output {
		ev = events.OutputRemoved
	}
	d.bus.Publish(ev, PortRef{Node: node, Port: port})
	return nil
}

// =============================================================================
// Modules
// =============================================================================

// AddModule creates an empty module. Adding an existing module is a no-op.
func (d *Document) AddModule(name string) error {
	if err := errors.ValidateModuleName(name); err != nil {
		return err
	}
	if d.HasModule(name) {
		return nil
	}
	d.modules[name] = newModule(name)
	d.bus.Publish(events.ModuleCreated, name)
	return nil
}

// RemoveModule deletes a module and its nodes. If it is the active module the
// document switches to "Home" first. Removing an unknown module is a no-op;
// removing "Home" is rejected.
func (d *Document) RemoveModule(name string) error {
	if name == HomeModule {
		return errors.New(errors.ErrCodeInvalidInput, "module %q cannot be removed", HomeModule)
	}
	m, ok := d.modules[name]
	if !ok {
		return nil
	}
	if d.active == name {
		if err := d.SwitchModule(HomeModule); err != nil {
			return err
		}
	}
	for id := range m.nodes {
		delete(d.nodeModule, id)
		delete(d.touching, id)
	}
	delete(d.modules, name)
	d.bus.Publish(events.ModuleRemoved, name)
	return nil
}

// SwitchModule makes name the active module.
func (d *Document) SwitchModule(name string) error {
	if !d.HasModule(name) {
		return errors.New(errors.ErrCodeModuleNotFound, "module %q", name)
	}
	d.active = name
	d.bus.Publish(events.ModuleChanged, name)
	return nil
}

// ClearModule removes every node of the active module without publishing
// per-node events.
func (d *Document) ClearModule() {
	m := d.modules[d.active]
	for id := range m.nodes {
		delete(d.nodeModule, id)
		delete(d.touching, id)
	}
	d.modules[d.active] = newModule(d.active)
}

// Clear resets the document to a single empty "Home" module.
func (d *Document) Clear() {
	d.reset()
}
