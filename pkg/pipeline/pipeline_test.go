package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/nodewire/pkg/cache"
	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/errors"
	"github.com/matzehuels/nodewire/pkg/geometry"
	"github.com/matzehuels/nodewire/pkg/observability"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", false},
		{"dot", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "png"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"svg", "invalid"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Invalid format should fail with INVALID_INPUT, got %v", err)
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidateStyle(t *testing.T) {
	tests := []struct {
		style   string
		wantErr bool
	}{
		{"light", false},
		{"dark", false},
		{"Dark", false},
		{"handdrawn", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateStyle(tt.style)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateStyle(%q) error = %v, wantErr %v", tt.style, err, tt.wantErr)
		}
	}
}

func TestValidateVizType(t *testing.T) {
	tests := []struct {
		vizType string
		wantErr bool
	}{
		{"scene", false},
		{"nodelink", false},
		{"radial", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateVizType(tt.vizType)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateVizType(%q) error = %v, wantErr %v", tt.vizType, err, tt.wantErr)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{Formats: []string{"SVG", " json", "svg"}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}

	if opts.Module != document.HomeModule {
		t.Errorf("Module = %q, want %q", opts.Module, document.HomeModule)
	}
	if opts.VizType != DefaultVizType {
		t.Errorf("VizType = %q, want %q", opts.VizType, DefaultVizType)
	}
	if opts.Style != DefaultStyle {
		t.Errorf("Style = %q, want %q", opts.Style, DefaultStyle)
	}
	if opts.Scale != DefaultScale {
		t.Errorf("Scale = %v, want %v", opts.Scale, DefaultScale)
	}
	if opts.Curvature != geometry.DefaultCurvatures() {
		t.Errorf("Curvature = %v, want defaults", opts.Curvature)
	}
	if strings.Join(opts.Formats, ",") != "svg,json" {
		t.Errorf("Formats = %v, want [svg json]", opts.Formats)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}
}

func TestOptionsInvalid(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"dot needs nodelink", Options{Formats: []string{"dot"}}},
		{"negative scale", Options{Scale: -1}},
		{"unknown style", Options{Style: "neon"}},
		{"unknown viz", Options{VizType: "radial"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("ValidateAndSetDefaults() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestOptionsVizType(t *testing.T) {
	opts := Options{}
	if !opts.IsScene() || opts.IsNodelink() {
		t.Error("Empty VizType should be scene")
	}

	opts.VizType = "nodelink"
	if opts.IsScene() || !opts.IsNodelink() {
		t.Error("nodelink VizType should be nodelink")
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	opts := Options{SegmentPaths: true}
	opts.SetDefaults()

	svg := opts.ArtifactKeyOpts(FormatSVG)
	if svg.Scale != 0 {
		t.Errorf("svg Scale = %v, want 0", svg.Scale)
	}
	if !svg.SegmentPaths || svg.Curvature[0] != geometry.DefaultCurvature {
		t.Errorf("svg key = %+v", svg)
	}
	if png := opts.ArtifactKeyOpts(FormatPNG); png.Scale != DefaultScale {
		t.Errorf("png Scale = %v, want %v", png.Scale, DefaultScale)
	}

	opts.VizType = VizTypeNodelink
	opts.Pinned = true
	nl := opts.ArtifactKeyOpts(FormatSVG)
	if !nl.Pinned || nl.SegmentPaths || nl.Curvature != [3]float64{} {
		t.Errorf("nodelink key = %+v", nl)
	}
}

func testSnapshot(t *testing.T) document.Snapshot {
	t.Helper()
	d := document.New(document.WithIDGenerator(&document.Sequential{}))
	a, _ := d.AddNode("read", 0, 1, 0, 0, nil)
	b, _ := d.AddNode("write", 1, 0, 300, 0, nil)
	key := document.ConnectionKey{OutputNode: a, OutputPort: "output_1", InputNode: b, InputPort: "input_1"}
	if _, err := d.AddConnection(key); err != nil {
		t.Fatal(err)
	}
	return d.Export()
}

func TestRunnerExecute(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, nil)
	defer r.Close()

	ctx := context.Background()
	snap := testSnapshot(t)
	opts := Options{Formats: []string{"svg", "json"}}

	first, err := r.Execute(ctx, snap, opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if first.CacheInfo.RenderHit || len(first.CacheInfo.Hits) != 0 {
		t.Errorf("first run CacheInfo = %+v, want misses", first.CacheInfo)
	}
	if first.Stats.NodeCount != 2 || first.Stats.ConnectionCount != 1 {
		t.Errorf("Stats = %+v", first.Stats)
	}
	if !strings.Contains(string(first.Artifacts["svg"]), `class="connection node_in_n2 node_out_n1`) {
		t.Error("svg artifact missing connection")
	}
	if !strings.Contains(string(first.Artifacts["json"]), `"module": "Home"`) {
		t.Error("json artifact missing module")
	}

	second, err := r.Execute(ctx, snap, opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !second.CacheInfo.RenderHit {
		t.Errorf("second run CacheInfo = %+v, want full hit", second.CacheInfo)
	}
	if second.SnapshotHash != first.SnapshotHash {
		t.Error("SnapshotHash should be stable")
	}
	if string(second.Artifacts["svg"]) != string(first.Artifacts["svg"]) {
		t.Error("cached svg differs from rendered svg")
	}

	opts.Refresh = true
	third, err := r.Execute(ctx, snap, opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if third.CacheInfo.RenderHit {
		t.Error("Refresh should bypass the cache")
	}
}

func TestRunnerExecuteOptionsChangeKey(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, nil)
	ctx := context.Background()
	snap := testSnapshot(t)

	if _, err := r.Execute(ctx, snap, Options{}); err != nil {
		t.Fatal(err)
	}
	res, err := r.Execute(ctx, snap, Options{Style: "dark"})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.RenderHit {
		t.Error("a different style should not hit the light artifact")
	}
}

func TestRunnerExecuteErrors(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	ctx := context.Background()

	if _, err := r.Execute(ctx, testSnapshot(t), Options{Module: "Missing"}); !errors.Is(err, errors.ErrCodeModuleNotFound) {
		t.Errorf("unknown module error = %v, want MODULE_NOT_FOUND", err)
	}

	bad := document.Snapshot{"Home": {Data: map[string]document.NodeRecord{
		"1": {ID: "1", Name: "x", Outputs: map[string]document.PortRecord{
			"output_1": {Connections: []document.EndRecord{{Node: "9", Output: "input_1"}}},
		}},
	}}}
	if _, err := r.Execute(ctx, bad, Options{}); !errors.Is(err, errors.ErrCodeCorruptModel) {
		t.Errorf("corrupt snapshot error = %v, want CORRUPT_MODEL", err)
	}

	if _, err := r.Execute(ctx, testSnapshot(t), Options{Formats: []string{"gif"}}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad format error = %v, want INVALID_INPUT", err)
	}
}

func TestRunnerNodelink(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), testSnapshot(t), Options{
		VizType: VizTypeNodelink,
		Formats: []string{"dot", "svg"},
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(string(res.Artifacts["dot"]), `"n1" -> "n2";`) {
		t.Errorf("dot artifact = %s", res.Artifacts["dot"])
	}
	if !strings.Contains(string(res.Artifacts["svg"]), "<svg") {
		t.Error("svg artifact missing")
	}
}

type renderHooks struct {
	observability.NoopRenderHooks
	started, completed int
	lastErr            error
}

func (h *renderHooks) OnRenderStart(context.Context, []string) { h.started++ }
func (h *renderHooks) OnRenderComplete(_ context.Context, _ []string, _ time.Duration, err error) {
	h.completed++
	h.lastErr = err
}

func TestRunnerRenderHooks(t *testing.T) {
	defer observability.Reset()
	h := &renderHooks{}
	observability.SetRenderHooks(h)

	r := NewRunner(nil, nil, nil)
	if _, err := r.Execute(context.Background(), testSnapshot(t), Options{}); err != nil {
		t.Fatal(err)
	}
	if h.started != 1 || h.completed != 1 || h.lastErr != nil {
		t.Errorf("hooks started=%d completed=%d err=%v", h.started, h.completed, h.lastErr)
	}
}

func TestRender(t *testing.T) {
	d := document.New()
	if err := d.Import(testSnapshot(t), false); err != nil {
		t.Fatal(err)
	}
	out, err := Render(context.Background(), d, Options{Formats: []string{"svg"}, Waypoints: true})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(string(out["svg"]), `class="waypoints"`) {
		t.Error("Waypoints option not applied")
	}
}
