// Package document holds the node-and-wire diagram model.
//
// A [Document] is a set of named modules (independent canvases). Each module
// owns nodes; each node owns ordered input and output ports; ports hold the
// connection ends that make up wires. A wire is stored twice: once on the
// output port (pointing at the input node and port) and once on the input
// port (pointing back at the output node and port). The two halves are always
// added and removed together.
//
// # Identifiers
//
// Node ids are produced by the document's [IDGenerator] and are unique across
// every module. Port ids have the form "input_N" or "output_N", where N comes
// from a per-node counter that never reuses a value: removing a port leaves a
// hole rather than renumbering its siblings, so wires referencing the other
// ports keep working.
//
// # Waypoints
//
// A wire may be rerouted through an ordered list of waypoints. Only the
// output-side half stores them.
//
// # Rejected Requests
//
// Some requests are refused without an error: connecting a node to itself,
// connecting nodes in different modules, and connecting an already-connected
// pair of ports all leave the document unchanged and report created=false.
// Requests that reference unknown nodes or ports return a coded error from
// [github.com/matzehuels/nodewire/pkg/errors].
//
// # Events
//
// Every mutation publishes on the document's [events.Bus] after the mutation
// has been applied. The document is not safe for concurrent use.
package document
