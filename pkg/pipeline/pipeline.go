// Package pipeline renders diagram snapshots into export artifacts.
//
// The CLI, the terminal editor and the HTTP host all export the same way: a
// snapshot is loaded into a fresh document, one module is projected, and the
// projection is written out in every requested format. Centralizing that here
// keeps the entry points consistent and lets them share the artifact cache.
//
// # Visualization types
//
//   - scene: the module drawn exactly as the editor lays it out (see
//     [github.com/matzehuels/nodewire/pkg/render/sink])
//   - nodelink: the module handed to Graphviz (see
//     [github.com/matzehuels/nodewire/pkg/render/nodelink])
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, snapshot, pipeline.Options{
//	    Module:  "Home",
//	    Formats: []string{"svg", "json"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodewire/pkg/cache"
	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/errors"
	"github.com/matzehuels/nodewire/pkg/geometry"
	"github.com/matzehuels/nodewire/pkg/projection"
	"github.com/matzehuels/nodewire/pkg/render/sink"
)

// =============================================================================
// Default Values
// =============================================================================

// Visualization types.
const (
	VizTypeScene    = "scene"
	VizTypeNodelink = "nodelink"
)

const (
	// DefaultVizType is the default visualization type.
	DefaultVizType = VizTypeScene

	// DefaultStyle is the default color theme.
	DefaultStyle = "light"

	// DefaultScale is the PNG scale factor.
	DefaultScale = 2.0
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
	FormatDOT  = "dot"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
	FormatDOT:  true,
}

// ValidVizTypes is the set of supported visualization types.
var ValidVizTypes = map[string]bool{
	VizTypeScene:    true,
	VizTypeNodelink: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a render run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Module is the module to draw. Empty means "Home".
	Module  string   `json:"module,omitempty"`
	VizType string   `json:"viz_type,omitempty"`
	Formats []string `json:"formats,omitempty"`
	Style   string   `json:"style,omitempty"`
	Scale   float64  `json:"scale,omitempty"`
	Refresh bool     `json:"refresh,omitempty"`

	// Scene options
	Curvature    geometry.Curvature `json:"curvature"`
	SegmentPaths bool               `json:"segment_paths,omitempty"`
	Waypoints    bool               `json:"waypoints,omitempty"`

	// Nodelink options
	Detailed bool `json:"detailed,omitempty"`
	Pinned   bool `json:"pinned,omitempty"`

	// Runtime options (not serialized)
	Metrics projection.Metrics `json:"-"`
	Logger  *log.Logger        `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// SnapshotHash is the content hash of the rendered snapshot.
	SnapshotHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which artifacts came from the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount       int
	ConnectionCount int
	RenderTime      time.Duration
}

// CacheInfo tracks cache hits per format.
type CacheInfo struct {
	Hits      []string // Formats served from cache
	RenderHit bool     // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: svg, png, pdf, json, dot)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStyle checks that a style names a built-in theme.
func ValidateStyle(style string) error {
	if _, ok := sink.ThemeByName(style); !ok {
		names := make([]string, 0, len(sink.Themes))
		for n := range sink.Themes {
			names = append(names, n)
		}
		slices.Sort(names)
		return errors.New(errors.ErrCodeInvalidInput, "invalid style: %q (must be one of: %s)", style, strings.Join(names, ", "))
	}
	return nil
}

// ValidateVizType checks that a visualization type is valid.
func ValidateVizType(vizType string) error {
	if !ValidVizTypes[vizType] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid viz_type: %q (must be one of: scene, nodelink)", vizType)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if err := ValidateVizType(o.VizType); err != nil {
		return err
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := ValidateStyle(o.Style); err != nil {
		return err
	}
	if o.IsScene() && slices.Contains(o.Formats, FormatDOT) {
		return errors.New(errors.ErrCodeInvalidInput, "format %q requires viz_type %q", FormatDOT, VizTypeNodelink)
	}
	if o.Scale < 0 || geometry.Finite(o.Scale) != o.Scale {
		return errors.New(errors.ErrCodeInvalidInput, "invalid scale: %v", o.Scale)
	}
	o.validated = true
	return nil
}

// SetDefaults fills every unset field.
func (o *Options) SetDefaults() {
	if o.Module == "" {
		o.Module = document.HomeModule
	}
	if o.VizType == "" {
		o.VizType = DefaultVizType
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	o.Formats = dedupe(o.Formats)
	if o.Style == "" {
		o.Style = DefaultStyle
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Curvature == (geometry.Curvature{}) {
		o.Curvature = geometry.DefaultCurvatures()
	}
	if o.Metrics == (projection.Metrics{}) {
		o.Metrics = projection.DefaultMetrics()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

func dedupe(formats []string) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// IsScene returns true if this is a scene export.
func (o *Options) IsScene() bool {
	return o.VizType == "" || o.VizType == VizTypeScene
}

// IsNodelink returns true if this is a nodelink visualization.
func (o *Options) IsNodelink() bool {
	return o.VizType == VizTypeNodelink
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{
		Format:  format,
		VizType: o.VizType,
		Style:   o.Style,
		Module:  o.Module,
	}
	if format == FormatPNG {
		k.Scale = o.Scale
	}
	if o.IsNodelink() {
		k.Detailed = o.Detailed
		k.Pinned = o.Pinned
		return k
	}
	k.Curvature = [3]float64{o.Curvature.Direct, o.Curvature.StartEnd, o.Curvature.Reroute}
	k.SegmentPaths = o.SegmentPaths
	k.Waypoints = o.Waypoints
	return k
}
