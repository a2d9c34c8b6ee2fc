// Package render turns projected scenes into files.
//
// # Overview
//
// Rendering happens in two layers:
//
//   - [sink] draws a [projection.Scene] as SVG, or serializes it as JSON
//   - [nodelink] hands the document's graph to Graphviz
//
// Both produce SVG first. [ToPDF] and [ToPNG] convert any SVG to other
// formats using the external rsvg-convert tool (from librsvg).
//
//	svg := sink.RenderSVG(scene, sink.WithTheme(sink.Dark))
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// [sink]: github.com/matzehuels/nodewire/pkg/render/sink
// [nodelink]: github.com/matzehuels/nodewire/pkg/render/nodelink
// [projection.Scene]: github.com/matzehuels/nodewire/pkg/projection#Scene
package render
