package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/nodewire/pkg/geometry"
)

// HomeModule is the module every document starts with. It cannot be removed.
const HomeModule = "Home"

// Direction distinguishes input ports from output ports.
type Direction int

const (
	Input Direction = iota
	Output
)

// String returns "input" or "output".
func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// ParseDirection maps "input"/"output" (case-insensitive) to a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(s) {
	case "input", "in":
		return Input, true
	case "output", "out":
		return Output, true
	}
	return Input, false
}

// End is one half of a stored connection.
//
// On an output port, Node and Port name the input node and input port, and
// Points holds the wire's waypoints. On an input port, Node and Port name the
// output node and output port, and Points is always empty.
type End struct {
	Node   string
	Port   string
	Points []geometry.Point
}

// Port is a single connection point on a node.
type Port struct {
	ID          string
	Connections []End
}

func (p *Port) find(node, port string) int {
	for i, e := range p.Connections {
		if e.Node == node && e.Port == port {
			return i
		}
	}
	return -1
}

// Node is a diagram node. Values returned by [Document.Node] are deep copies.
type Node struct {
	ID   string
	Name string
	X, Y float64
	// Data is the host payload, stored as JSON. The engine never interprets it.
	Data    json.RawMessage
	Inputs  []*Port
	Outputs []*Port

	nextInput  int
	nextOutput int
}

// Position returns the node's top-left corner in canvas coordinates.
func (n *Node) Position() geometry.Point { return geometry.Point{X: n.X, Y: n.Y} }

// Ports returns the ports in direction d.
func (n *Node) Ports(d Direction) []*Port {
	if d == Output {
		return n.Outputs
	}
	return n.Inputs
}

// Port returns the port with id in direction d.
func (n *Node) Port(d Direction, id string) (*Port, bool) {
	for _, p := range n.Ports(d) {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// PortIndex returns the position of port id among the node's ports in
// direction d, or -1.
func (n *Node) PortIndex(d Direction, id string) int {
	for i, p := range n.Ports(d) {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// FirstInput returns the id of the node's first input port in port order.
func (n *Node) FirstInput() (string, bool) {
	if len(n.Inputs) == 0 {
		return "", false
	}
	return n.Inputs[0].ID, true
}

func (n *Node) clone() Node {
	c := *n
	c.Data = bytes.Clone(n.Data)
	c.Inputs = clonePorts(n.Inputs)
	c.Outputs = clonePorts(n.Outputs)
	return c
}

func clonePorts(ports []*Port) []*Port {
	out := make([]*Port, len(ports))
	for i, p := range ports {
		cp := &Port{ID: p.ID, Connections: make([]End, len(p.Connections))}
		for j, e := range p.Connections {
			cp.Connections[j] = End{Node: e.Node, Port: e.Port, Points: slices.Clone(e.Points)}
		}
		out[i] = cp
	}
	return out
}

func (n *Node) newPortID(d Direction) string {
	if d == Output {
		n.nextOutput++
		return "output_" + strconv.Itoa(n.nextOutput)
	}
	n.nextInput++
	return "input_" + strconv.Itoa(n.nextInput)
}

func (n *Node) setPorts(d Direction, ports []*Port) {
	if d == Output {
		n.Outputs = ports
	} else {
		n.Inputs = ports
	}
}

// ConnectionKey identifies a wire by its four endpoints.
type ConnectionKey struct {
	OutputNode string `json:"outputNode"`
	OutputPort string `json:"outputPort"`
	InputNode  string `json:"inputNode"`
	InputPort  string `json:"inputPort"`
}

// String renders the key as "outNode:outPort->inNode:inPort".
func (k ConnectionKey) String() string {
	return fmt.Sprintf("%s:%s->%s:%s", k.OutputNode, k.OutputPort, k.InputNode, k.InputPort)
}

// Touches reports whether node is either endpoint of the wire.
func (k ConnectionKey) Touches(node string) bool {
	return k.OutputNode == node || k.InputNode == node
}

// Connection is a wire together with its waypoints.
type Connection struct {
	Key    ConnectionKey
	Points []geometry.Point
}

// PortRef names a port on a node. It is the payload of port events.
type PortRef struct {
	Node string
	Port string
}

// WaypointRef names a waypoint on a wire. It is the payload of reroute events.
type WaypointRef struct {
	Key   ConnectionKey
	Index int
}

// Module is a named canvas of nodes.
type Module struct {
	Name  string
	nodes map[string]*Node
	order []string
}

func newModule(name string) *Module {
	return &Module{Name: name, nodes: make(map[string]*Node)}
}

func (m *Module) add(n *Node) {
	m.nodes[n.ID] = n
	m.order = append(m.order, n.ID)
}

func (m *Module) remove(id string) {
	delete(m.nodes, id)
	if i := slices.Index(m.order, id); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	}
}

// Len returns the number of nodes in the module.
func (m *Module) Len() int { return len(m.nodes) }
