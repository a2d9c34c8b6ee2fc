package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/projection"
	"github.com/matzehuels/nodewire/pkg/render/nodelink"
	"github.com/matzehuels/nodewire/pkg/render/sink"
)

// source is everything the format renderers read. It is built once per run
// and shared read-only between the per-format goroutines.
type source struct {
	scene projection.Scene
	dot   string
}

// prepare projects the options' module of doc and, for nodelink runs, builds
// its DOT source. doc's active module is switched to opts.Module.
func prepare(doc *document.Document, opts Options) (source, error) {
	if err := doc.SwitchModule(opts.Module); err != nil {
		return source{}, err
	}

	layout := projection.NewLayout(doc, opts.Metrics)
	proj := projection.NewProjector(doc, layout, projection.WithCurvature(opts.Curvature))
	defer proj.Close()

	src := source{scene: proj.Scene(projection.View{})}
	if opts.IsNodelink() {
		dot, err := nodelink.ToDOT(doc, opts.Module, nodelink.Options{Detailed: opts.Detailed, Pinned: opts.Pinned})
		if err != nil {
			return source{}, err
		}
		src.dot = dot
	}
	return src, nil
}

// Render draws doc in every requested format without touching a cache.
func Render(ctx context.Context, doc *document.Document, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	src, err := prepare(doc, opts)
	if err != nil {
		return nil, err
	}
	return renderFormats(ctx, src, opts.Formats, opts)
}

// renderFormats renders formats concurrently. The first failure cancels the
// remaining renders.
func renderFormats(ctx context.Context, src source, formats []string, opts Options) (map[string][]byte, error) {
	var (
		mu        sync.Mutex
		artifacts = make(map[string][]byte, len(formats))
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, format := range formats {
		g.Go(func() error {
			data, err := renderFormat(ctx, src, format, opts)
			if err != nil {
				return fmt.Errorf("render %s: %w", format, err)
			}
			mu.Lock()
			artifacts[format] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func renderFormat(ctx context.Context, src source, format string, opts Options) ([]byte, error) {
	if format == FormatJSON {
		return sink.RenderJSON(src.scene)
	}
	if opts.IsNodelink() {
		return renderNodelink(ctx, src.dot, format, opts)
	}
	return renderScene(ctx, src.scene, format, opts)
}

func renderScene(ctx context.Context, s projection.Scene, format string, opts Options) ([]byte, error) {
	svgOpts := buildSVGOptions(opts)
	switch format {
	case FormatSVG:
		return sink.RenderSVG(s, svgOpts...), nil
	case FormatPNG:
		return sink.RenderPNG(ctx, s, sink.WithPNGSVGOptions(svgOpts...), sink.WithScale(opts.Scale))
	case FormatPDF:
		return sink.RenderPDF(ctx, s, sink.WithPDFSVGOptions(svgOpts...))
	default:
		return nil, fmt.Errorf("unsupported scene format: %s", format)
	}
}

func renderNodelink(ctx context.Context, dot, format string, opts Options) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return nodelink.RenderSVG(ctx, dot, opts.Pinned)
	case FormatPNG:
		return nodelink.RenderPNG(ctx, dot, opts.Pinned, opts.Scale)
	case FormatPDF:
		return nodelink.RenderPDF(ctx, dot, opts.Pinned)
	default:
		return nil, fmt.Errorf("unsupported nodelink format: %s", format)
	}
}

// buildSVGOptions builds scene SVG rendering options.
func buildSVGOptions(opts Options) []sink.SVGOption {
	var svgOpts []sink.SVGOption
	if theme, ok := sink.ThemeByName(opts.Style); ok {
		svgOpts = append(svgOpts, sink.WithTheme(theme))
	}
	if opts.SegmentPaths {
		svgOpts = append(svgOpts, sink.WithSegmentPaths())
	}
	if opts.Waypoints {
		svgOpts = append(svgOpts, sink.WithWaypoints())
	}
	return svgOpts
}
