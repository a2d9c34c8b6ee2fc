package nodelink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/errors"
	"github.com/matzehuels/nodewire/pkg/render"
)

// pointsPerInch converts canvas pixels to Graphviz's inch-based positions.
const pointsPerInch = 72

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the node id, top-level payload keys and port labels.
	// When false, only the node name is shown.
	Detailed bool

	// Pinned keeps every node at its canvas position. The DOT output then
	// needs the neato engine, which [RenderSVG] selects when pinned is set.
	Pinned bool
}

// ToDOT converts one module of a document to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
func ToDOT(doc *document.Document, module string, opts Options) (string, error) {
	if !doc.HasModule(module) {
		return "", errors.New(errors.ErrCodeModuleNotFound, "module %q not found", module)
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [arrowsize=0.7];\n")
	if opts.Pinned {
		buf.WriteString("  splines=true;\n")
		buf.WriteString("  overlap=true;\n")
	} else {
		buf.WriteString("  ranksep=0.6;\n")
		buf.WriteString("  nodesep=0.3;\n")
	}
	buf.WriteString("\n")

	for _, n := range doc.Nodes(module) {
		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed))}
		if opts.Pinned {
			// Graphviz's y axis points up.
			attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s!\"", inches(n.X), inches(-n.Y)))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, c := range doc.Connections(module) {
		k := c.Key
		if !opts.Detailed {
			fmt.Fprintf(&buf, "  %q -> %q;\n", k.OutputNode, k.InputNode)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [taillabel=%q, headlabel=%q, fontsize=9];\n",
			k.OutputNode, k.InputNode, k.OutputPort, k.InputPort)
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func fmtLabel(n document.Node, detailed bool) string {
	if !detailed {
		return n.Name
	}

	parts := []string{
		"id: " + n.ID,
		fmt.Sprintf("ports: %d in, %d out", len(n.Inputs), len(n.Outputs)),
	}
	var data map[string]any
	if json.Unmarshal(n.Data, &data) == nil {
		for _, k := range slices.Sorted(maps.Keys(data)) {
			parts = append(parts, fmt.Sprintf("%s: %v", k, data[k]))
		}
	}
	return n.Name + "\n" + strings.Join(parts, "\n")
}

func inches(px float64) string {
	v := px / pointsPerInch
	if v == 0 {
		v = 0 // no "-0.000"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// RenderSVG renders a DOT graph to SVG using Graphviz. Pinned graphs are laid
// out with neato so node positions are kept.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string, pinned bool) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	if pinned {
		gv.SetLayout(graphviz.NEATO)
	}

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="(-?[0-9.]+)\s+(-?[0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPDF].
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string, pinned bool) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot, pinned)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, pinned bool, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot, pinned)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
