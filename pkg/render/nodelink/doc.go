// Package nodelink renders diagram modules as Graphviz node-link diagrams.
//
// # Overview
//
// Where [github.com/matzehuels/nodewire/pkg/render/sink] draws a module
// exactly as the editor shows it, this package hands the nodes and wires to
// Graphviz. The result is either an automatic left-to-right layout or, with
// [Options.Pinned], the editor's own node positions routed by neato.
//
// # Usage
//
//	dot, err := nodelink.ToDOT(doc, "Home", nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot, false)
//
// For PDF or PNG output:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot, false)
//	png, err := nodelink.RenderPNG(ctx, dot, false, 2.0)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
