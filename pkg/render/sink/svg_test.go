package sink

import (
	"strings"
	"testing"

	"github.com/matzehuels/nodewire/pkg/document"
	"github.com/matzehuels/nodewire/pkg/geometry"
	"github.com/matzehuels/nodewire/pkg/projection"
)

func testScene(t *testing.T, waypoint bool) projection.Scene {
	t.Helper()
	d := document.New(document.WithIDGenerator(&document.Sequential{}))
	a, _ := d.AddNode("source <a>", 0, 1, 0, 0, map[string]int{"v": 1})
	b, _ := d.AddNode("sink", 1, 0, 300, 0, nil)
	key := document.ConnectionKey{OutputNode: a, OutputPort: "output_1", InputNode: b, InputPort: "input_1"}
	if _, err := d.AddConnection(key); err != nil {
		t.Fatal(err)
	}
	if waypoint {
		if err := d.AddWaypoint(key, geometry.Point{X: 230, Y: 120}, 0); err != nil {
			t.Fatal(err)
		}
	}
	p := projection.NewProjector(d, projection.NewLayout(d, projection.DefaultMetrics()))
	return p.Scene(projection.View{SelectedNode: a})
}

func TestRenderSVG(t *testing.T) {
	svg := string(RenderSVG(testScene(t, false)))

	checks := []string{
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="-20 -20 500 106"`,
		`class="connection node_in_n2 node_out_n1 output_1 input_1"`,
		`d=" M 160 42 C 230 42 230 42 300  42"`,
		`id="node-n1"`,
		`source &lt;a&gt;`,
		`class="output output_1" cx="160" cy="42"`,
		`class="input input_1" cx="300" cy="42"`,
		`stroke="` + Light.SelectedStroke + `"`,
	}
	for _, want := range checks {
		if !strings.Contains(svg, want) {
			t.Errorf("RenderSVG() missing %q", want)
		}
	}
	if !strings.HasSuffix(svg, "</svg>\n") {
		t.Error("RenderSVG() not closed")
	}
	if strings.Contains(svg, `class="waypoints"`) {
		t.Error("waypoints drawn without WithWaypoints")
	}
}

func TestRenderSVGOptions(t *testing.T) {
	s := testScene(t, true)
	svg := string(RenderSVG(s, WithTheme(Dark), WithSegmentPaths(), WithWaypoints(), WithTitle("demo & co"), WithPadding(0)))

	if !strings.Contains(svg, Dark.Background) {
		t.Error("dark background missing")
	}
	if n := strings.Count(svg, `class="connection `); n != 2 {
		t.Errorf("connection paths = %d, want 2 with segment paths", n)
	}
	if !strings.Contains(svg, `<circle class="point" cx="230" cy="120"`) {
		t.Error("waypoint marker missing")
	}
	if !strings.Contains(svg, "<title>demo &amp; co</title>") {
		t.Error("escaped title missing")
	}
}

func TestRenderSVGEmptyScene(t *testing.T) {
	svg := string(RenderSVG(projection.Scene{}))
	if !strings.Contains(svg, `viewBox="-20 -20 40 40"`) {
		t.Errorf("empty scene viewBox wrong:\n%s", svg)
	}
}

func TestThemeByName(t *testing.T) {
	if th, ok := ThemeByName("DARK"); !ok || th.Name != "dark" {
		t.Errorf("ThemeByName(DARK) = %v, %v", th.Name, ok)
	}
	if _, ok := ThemeByName("neon"); ok {
		t.Error("ThemeByName(neon) should fail")
	}
}
