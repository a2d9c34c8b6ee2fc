// Package geometry computes the curved wire paths drawn between node ports.
//
// Every wire in a diagram is one or more cubic bezier segments. A wire without
// waypoints is a single segment whose control points extend horizontally out of
// the output port and into the input port. A wire with waypoints is a chain of
// segments: the first leaves the output port, the last enters the input port,
// and the ones in between connect consecutive waypoints.
//
// # Variants
//
// The control point placement depends on which end of the chain a segment sits
// at (see [Variant]). When a segment runs "backwards" (x1 >= x2), the control
// points flip so the curve still leaves and enters its endpoints horizontally.
//
// # Path Strings
//
// [CurvedPath] and [ChainPath] emit SVG path data in the exact textual form the
// editor has always produced:
//
//	 M x1 y1 C hx1 y1 hx2 y2 x2  y2
//
// Numbers use the shortest representation that round-trips, and non-finite
// inputs are mapped to 0 so a path string never contains NaN or Inf.
//
// All functions in this package are pure.
package geometry

import (
	"math"
	"strconv"
	"strings"
)

// Default curvature values.
const (
	DefaultCurvature        = 0.5
	DefaultRerouteCurvature = 0.5
	DefaultRerouteStartEnd  = 0.5
)

// Variant selects the control-point rule for a segment.
type Variant int

const (
	// OpenClose is a complete wire from an output port to an input port.
	OpenClose Variant = iota
	// Open is the first segment of a chain, leaving the output port.
	Open
	// Close is the last segment of a chain, entering the input port.
	Close
	// Other is a middle segment between two waypoints.
	Other
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case Open:
		return "open"
	case Close:
		return "close"
	case Other:
		return "other"
	default:
		return "openclose"
	}
}

// ParseVariant returns the Variant for name. Unknown names map to OpenClose.
func ParseVariant(name string) Variant {
	switch strings.ToLower(name) {
	case "open":
		return Open
	case "close":
		return Close
	case "other":
		return Other
	default:
		return OpenClose
	}
}

// Point is a 2D coordinate.
type Point struct {
	X, Y float64
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by k.
func (p Point) Scale(k float64) Point { return Point{p.X * k, p.Y * k} }

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether p lies inside r (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Center returns the midpoint of r.
func (r Rect) Center() Point { return Point{r.X + r.W/2, r.Y + r.H/2} }

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Union returns the smallest rectangle containing r and s.
// An empty receiver is ignored.
func (r Rect) Union(s Rect) Rect {
	if r.W == 0 && r.H == 0 {
		return s
	}
	x0, y0 := math.Min(r.X, s.X), math.Min(r.Y, s.Y)
	x1, y1 := math.Max(r.X+r.W, s.X+s.W), math.Max(r.Y+r.H, s.Y+s.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Finite returns v, or 0 when v is NaN or infinite.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Ratio returns num/den, or 0 when den is zero or the result is not finite.
// It is used for screen-to-content scale factors, which degrade to 0 on a
// zero-sized viewport instead of producing NaN.
func Ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return Finite(num / den)
}

// Segment is a single cubic bezier: P0 with control points C1 and C2, ending at P3.
type Segment struct {
	P0, C1, C2, P3 Point
}

// NewSegment builds the segment between (x1,y1) and (x2,y2) for variant.
func NewSegment(x1, y1, x2, y2, curvature float64, variant Variant) Segment {
	x1, y1, x2, y2 = Finite(x1), Finite(y1), Finite(x2), Finite(y2)
	curvature = Finite(curvature)
	d := math.Abs(x2-x1) * curvature

	var hx1, hx2 float64
	switch variant {
	case Open:
		if x1 >= x2 {
			hx1, hx2 = x1+d, x2+d
		} else {
			hx1, hx2 = x1+d, x2-d
		}
	case Close:
		if x1 >= x2 {
			hx1, hx2 = x1-d, x2-d
		} else {
			hx1, hx2 = x1+d, x2-d
		}
	case Other:
		if x1 >= x2 {
			hx1, hx2 = x1-d, x2+d
		} else {
			hx1, hx2 = x1+d, x2-d
		}
	default:
		hx1, hx2 = x1+d, x2-d
	}

	return Segment{
		P0: Point{x1, y1},
		C1: Point{hx1, y1},
		C2: Point{hx2, y2},
		P3: Point{x2, y2},
	}
}

// Path returns the SVG path data for s.
func (s Segment) Path() string {
	var b strings.Builder
	b.WriteString(" M ")
	b.WriteString(formatNum(s.P0.X))
	b.WriteByte(' ')
	b.WriteString(formatNum(s.P0.Y))
	b.WriteString(" C ")
	b.WriteString(formatNum(s.C1.X))
	b.WriteByte(' ')
	b.WriteString(formatNum(s.C1.Y))
	b.WriteByte(' ')
	b.WriteString(formatNum(s.C2.X))
	b.WriteByte(' ')
	b.WriteString(formatNum(s.C2.Y))
	b.WriteByte(' ')
	b.WriteString(formatNum(s.P3.X))
	b.WriteString("  ")
	b.WriteString(formatNum(s.P3.Y))
	return b.String()
}

// At evaluates the segment at parameter t in [0,1].
func (s Segment) At(t float64) Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return Point{
		X: a*s.P0.X + b*s.C1.X + c*s.C2.X + d*s.P3.X,
		Y: a*s.P0.Y + b*s.C1.Y + c*s.C2.Y + d*s.P3.Y,
	}
}

// Sample returns n+1 evenly parameterized points along s.
func (s Segment) Sample(n int) []Point {
	if n < 1 {
		n = 1
	}
	pts := make([]Point, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = s.At(float64(i) / float64(n))
	}
	return pts
}

// Distance approximates the shortest distance from p to the curve.
func (s Segment) Distance(p Point) float64 {
	const samples = 32
	best := math.Inf(1)
	prev := s.P0
	for i := 1; i <= samples; i++ {
		cur := s.At(float64(i) / samples)
		if d := distToLine(p, prev, cur); d < best {
			best = d
		}
		prev = cur
	}
	return best
}

// Bounds returns the bounding box of the segment's control polygon.
func (s Segment) Bounds() Rect {
	minX := math.Min(math.Min(s.P0.X, s.C1.X), math.Min(s.C2.X, s.P3.X))
	maxX := math.Max(math.Max(s.P0.X, s.C1.X), math.Max(s.C2.X, s.P3.X))
	minY := math.Min(math.Min(s.P0.Y, s.C1.Y), math.Min(s.C2.Y, s.P3.Y))
	maxY := math.Max(math.Max(s.P0.Y, s.C1.Y), math.Max(s.C2.Y, s.P3.Y))
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// CurvedPath returns the SVG path for a single segment from (x1,y1) to (x2,y2).
func CurvedPath(x1, y1, x2, y2, curvature float64, variant Variant) string {
	return NewSegment(x1, y1, x2, y2, curvature, variant).Path()
}

func distToLine(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(Point{a.X + t*dx, a.Y + t*dy})
}

func formatNum(v float64) string {
	v = Finite(v)
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
