package sink

import (
	"encoding/json"

	"github.com/matzehuels/nodewire/pkg/projection"
)

type jsonOutput struct {
	Module      string           `json:"module"`
	Bounds      jsonRect         `json:"bounds"`
	Nodes       []jsonNode       `json:"nodes"`
	Connections []jsonConnection `json:"connections"`
}

type jsonRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type jsonPort struct {
	ID     string    `json:"id"`
	Anchor jsonPoint `json:"anchor"`
}

type jsonNode struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Data    json.RawMessage `json:"data,omitempty"`
	Rect    jsonRect        `json:"rect"`
	Inputs  []jsonPort      `json:"inputs"`
	Outputs []jsonPort      `json:"outputs"`
}

type jsonConnection struct {
	OutputNode   string      `json:"output_node"`
	OutputPort   string      `json:"output_port"`
	InputNode    string      `json:"input_node"`
	InputPort    string      `json:"input_port"`
	Path         string      `json:"path"`
	SegmentPaths []string    `json:"segment_paths"`
	Waypoints    []jsonPoint `json:"waypoints,omitempty"`
}

// RenderJSON serializes the drawable parts of s.
func RenderJSON(s projection.Scene) ([]byte, error) {
	out := jsonOutput{
		Module:      s.Module,
		Bounds:      jsonRect{X: s.Bounds.X, Y: s.Bounds.Y, W: s.Bounds.W, H: s.Bounds.H},
		Nodes:       make([]jsonNode, 0, len(s.Nodes)),
		Connections: make([]jsonConnection, 0, len(s.Connections)),
	}
	for _, n := range s.Nodes {
		jn := jsonNode{
			ID:      n.ID,
			Name:    n.Name,
			Data:    n.Data,
			Rect:    jsonRect{X: n.Rect.X, Y: n.Rect.Y, W: n.Rect.W, H: n.Rect.H},
			Inputs:  ports(n.Inputs),
			Outputs: ports(n.Outputs),
		}
		out.Nodes = append(out.Nodes, jn)
	}
	for _, c := range s.Connections {
		jc := jsonConnection{
			OutputNode:   c.Key.OutputNode,
			OutputPort:   c.Key.OutputPort,
			InputNode:    c.Key.InputNode,
			InputPort:    c.Key.InputPort,
			Path:         c.Path,
			SegmentPaths: c.SegmentPaths,
		}
		for _, w := range c.Waypoints {
			jc.Waypoints = append(jc.Waypoints, jsonPoint{X: w.At.X, Y: w.At.Y})
		}
		out.Connections = append(out.Connections, jc)
	}
	return json.MarshalIndent(out, "", "  ")
}

func ports(pv []projection.PortView) []jsonPort {
	out := make([]jsonPort, 0, len(pv))
	for _, p := range pv {
		out = append(out, jsonPort{ID: p.ID, Anchor: jsonPoint{X: p.Anchor.X, Y: p.Anchor.Y}})
	}
	return out
}
