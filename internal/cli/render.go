package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodewire/pkg/io"
	"github.com/matzehuels/nodewire/pkg/pipeline"
)

// renderOpts holds the command-line flags of the render command that are not
// pipeline options.
type renderOpts struct {
	output  string // output file (single format) or base path (multiple)
	formats string // comma-separated output formats
	noCache bool   // bypass the cache entirely
}

// renderCommand creates the render command for generating artifacts from a
// document.
func (c *CLI) renderCommand() *cobra.Command {
	var ro renderOpts
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a document to SVG, PNG, PDF, JSON or DOT",
		Long: `Render one module of a document.

The scene type (default) draws the diagram the way the editor shows it:
node boxes, ports and curved wires. The nodelink type lays the module out
with Graphviz instead; add --pinned to keep the saved node positions.

Results are cached by document content and options, so rendering an
unchanged document again is instant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Formats = parseFormats(ro.formats)
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], opts, ro)
		},
	}

	cmd.Flags().StringVarP(&ro.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&ro.formats, "format", "f", "", "output format(s): svg (default), png, pdf, json, dot (comma-separated)")
	cmd.Flags().BoolVar(&ro.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "re-render even when cached")

	cmd.Flags().StringVarP(&opts.VizType, "type", "t", pipeline.DefaultVizType, "visualization type: scene, nodelink")
	cmd.Flags().StringVarP(&opts.Module, "module", "m", "", `module to render (default "Home")`)
	cmd.Flags().StringVar(&opts.Style, "style", pipeline.DefaultStyle, "color theme: light, dark")
	cmd.Flags().Float64Var(&opts.Scale, "scale", pipeline.DefaultScale, "pixel scale for png output")

	cmd.Flags().BoolVar(&opts.SegmentPaths, "segments", false, "draw one path per wire segment (scene)")
	cmd.Flags().BoolVar(&opts.Waypoints, "waypoints", false, "draw waypoint handles (scene)")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "show ids, ports and data in labels (nodelink)")
	cmd.Flags().BoolVar(&opts.Pinned, "pinned", false, "keep saved node positions (nodelink)")

	registerCompletions(cmd)
	return cmd
}

// runRender loads the document and renders it through the cached pipeline.
func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, ro renderOpts) error {
	logger := loggerFromContext(ctx)

	snap, err := io.ImportSnapshot(input)
	if err != nil {
		return fmt.Errorf("load %s: %w", input, err)
	}
	cfg, err := c.config()
	if err != nil {
		return err
	}
	opts.Metrics = cfg.Metrics()
	opts.Curvature = cfg.EditorConfig().Curvature
	opts.Logger = logger

	runner, err := c.newRunner(ctx, ro.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, os.Stderr, fmt.Sprintf("Rendering %s...", opts.Module))
	spinner.Start()

	result, err := runner.Execute(ctx, snap, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return fmt.Errorf("render: %w", err)
	}
	spinner.Stop()

	paths, err := writeArtifacts(result.Artifacts, opts.Formats, input, ro.output)
	if err != nil {
		return err
	}
	printSuccess("Rendered %s", opts.Module)
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Stats.NodeCount, result.Stats.ConnectionCount, result.CacheInfo.RenderHit)
	return nil
}

// writeArtifacts writes each artifact in formats order and returns the paths
// written. A single format goes to output verbatim when it is set.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) ([]string, error) {
	if len(formats) == 1 && output != "" {
		if err := os.WriteFile(output, artifacts[formats[0]], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", output, err)
		}
		return []string{output}, nil
	}

	base := basePath(output, input)
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := base + "." + f
		if f == pipeline.FormatJSON && path == input {
			path = base + ".scene.json"
		}
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
