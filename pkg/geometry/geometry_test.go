package geometry

import (
	"math"
	"strings"
	"testing"
)

func TestCurvedPath(t *testing.T) {
	tests := []struct {
		name    string
		x1, x2  float64
		variant Variant
		want    string
	}{
		{"openclose forward", 0, 100, OpenClose, " M 0 0 C 50 0 50 50 100  50"},
		{"openclose backward", 100, 0, OpenClose, " M 100 0 C 150 0 -50 50 0  50"},
		{"open forward", 0, 100, Open, " M 0 0 C 50 0 50 50 100  50"},
		{"open backward", 100, 0, Open, " M 100 0 C 150 0 50 50 0  50"},
		{"close forward", 0, 100, Close, " M 0 0 C 50 0 50 50 100  50"},
		{"close backward", 100, 0, Close, " M 100 0 C 50 0 -50 50 0  50"},
		{"other forward", 0, 100, Other, " M 0 0 C 50 0 50 50 100  50"},
		{"other backward", 100, 0, Other, " M 100 0 C 50 0 50 50 0  50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CurvedPath(tt.x1, 0, tt.x2, 50, 0.5, tt.variant)
			if got != tt.want {
				t.Errorf("CurvedPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCurvedPathDeterministic(t *testing.T) {
	a := CurvedPath(12.5, 7.25, 300.75, 99, 0.5, OpenClose)
	b := CurvedPath(12.5, 7.25, 300.75, 99, 0.5, OpenClose)
	if a != b {
		t.Errorf("CurvedPath not deterministic: %q != %q", a, b)
	}
}

func TestCurvedPathDegenerate(t *testing.T) {
	got := CurvedPath(10, 20, 10, 20, 0.5, OpenClose)
	want := " M 10 20 C 10 20 10 20 10  20"
	if got != want {
		t.Errorf("CurvedPath(same point) = %q, want %q", got, want)
	}
}

func TestCurvedPathNonFinite(t *testing.T) {
	got := CurvedPath(math.NaN(), math.Inf(1), 100, math.Inf(-1), math.NaN(), OpenClose)
	for _, bad := range []string{"NaN", "Inf"} {
		if strings.Contains(got, bad) {
			t.Errorf("CurvedPath() = %q, contains %s", got, bad)
		}
	}
}

func TestCurvedPathNegativeZero(t *testing.T) {
	got := CurvedPath(math.Copysign(0, -1), 0, 0, 0, 0.5, OpenClose)
	if strings.Contains(got, "-0") {
		t.Errorf("CurvedPath() = %q, want no negative zero", got)
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		num, den, want float64
	}{
		{800, 800, 1},
		{800, 1600, 0.5},
		{0, 0, 0},
		{100, 0, 0},
		{math.Inf(1), 1, 0},
	}
	for _, tt := range tests {
		if got := Ratio(tt.num, tt.den); got != tt.want {
			t.Errorf("Ratio(%v, %v) = %v, want %v", tt.num, tt.den, got, tt.want)
		}
	}
}

func TestSegmentEndpoints(t *testing.T) {
	s := NewSegment(0, 0, 100, 50, 0.5, OpenClose)
	if p := s.At(0); p != s.P0 {
		t.Errorf("At(0) = %v, want %v", p, s.P0)
	}
	if p := s.At(1); p != s.P3 {
		t.Errorf("At(1) = %v, want %v", p, s.P3)
	}
	if d := s.Distance(Point{50, 25}); d > 1 {
		t.Errorf("Distance(midpoint) = %v, want < 1", d)
	}
}

func TestChain(t *testing.T) {
	c := DefaultCurvatures()
	start, end := Point{0, 0}, Point{300, 0}

	t.Run("no waypoints", func(t *testing.T) {
		segs := Chain(start, nil, end, c)
		if len(segs) != 1 {
			t.Fatalf("len(segs) = %d, want 1", len(segs))
		}
		if got, want := ChainPath(start, nil, end, c), CurvedPath(0, 0, 300, 0, 0.5, OpenClose); got != want {
			t.Errorf("ChainPath() = %q, want %q", got, want)
		}
	})

	t.Run("two waypoints", func(t *testing.T) {
		wps := []Point{{100, 50}, {200, -50}}
		segs := Chain(start, wps, end, c)
		if len(segs) != 3 {
			t.Fatalf("len(segs) = %d, want 3", len(segs))
		}
		want := []string{
			CurvedPath(0, 0, 100, 50, 0.5, Open),
			CurvedPath(100, 50, 200, -50, 0.5, Other),
			CurvedPath(200, -50, 300, 0, 0.5, Close),
		}
		for i, p := range SegmentPaths(segs) {
			if p != want[i] {
				t.Errorf("segment %d = %q, want %q", i, p, want[i])
			}
		}
		if got := ChainPath(start, wps, end, c); got != strings.Join(want, "") {
			t.Errorf("ChainPath() = %q, want concatenation", got)
		}
	})

	t.Run("segment curvature", func(t *testing.T) {
		c := Curvature{Direct: 0.5, StartEnd: 0, Reroute: 1}
		segs := Chain(start, []Point{{100, 0}, {200, 0}}, end, c)
		if segs[0].C1 != segs[0].P0 {
			t.Errorf("start segment C1 = %v, want %v (zero curvature)", segs[0].C1, segs[0].P0)
		}
		if segs[1].C1.X != 200 {
			t.Errorf("middle segment C1.X = %v, want 200", segs[1].C1.X)
		}
	})
}

func TestNearestSegment(t *testing.T) {
	segs := Chain(Point{0, 0}, []Point{{100, 0}, {200, 0}}, Point{300, 0}, DefaultCurvatures())
	tests := []struct {
		p    Point
		want int
	}{
		{Point{50, 2}, 0},
		{Point{150, -3}, 1},
		{Point{260, 1}, 2},
	}
	for _, tt := range tests {
		if got, _ := NearestSegment(segs, tt.p); got != tt.want {
			t.Errorf("NearestSegment(%v) = %d, want %d", tt.p, got, tt.want)
		}
	}
	if got, _ := NearestSegment(nil, Point{}); got != -1 {
		t.Errorf("NearestSegment(nil) = %d, want -1", got)
	}
}

func TestRect(t *testing.T) {
	r := Rect{X: 10, Y: 10, W: 20, H: 10}
	if !r.Contains(Point{10, 10}) || !r.Contains(Point{30, 20}) {
		t.Error("Contains() should include edges")
	}
	if r.Contains(Point{31, 15}) {
		t.Error("Contains() = true for outside point")
	}
	if c := r.Center(); c != (Point{20, 15}) {
		t.Errorf("Center() = %v, want {20 15}", c)
	}
	u := r.Union(Rect{X: 0, Y: 0, W: 5, H: 5})
	if u != (Rect{X: 0, Y: 0, W: 30, H: 20}) {
		t.Errorf("Union() = %v", u)
	}
}

func TestParseVariant(t *testing.T) {
	for _, v := range []Variant{OpenClose, Open, Close, Other} {
		if got := ParseVariant(v.String()); got != v {
			t.Errorf("ParseVariant(%q) = %v, want %v", v.String(), got, v)
		}
	}
}
