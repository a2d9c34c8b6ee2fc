// Package sink writes projected scenes to output formats.
//
// [RenderSVG] draws a [projection.Scene] as a standalone SVG document: wires
// first, then node boxes with their titles and port markers, then waypoint
// markers. [RenderJSON] serializes the same scene for hosts that draw it
// themselves. [RenderPDF] and [RenderPNG] go through SVG.
//
// Visual appearance comes from a [Theme]; [Light] and [Dark] are built in.
//
// [projection.Scene]: github.com/matzehuels/nodewire/pkg/projection#Scene
package sink
