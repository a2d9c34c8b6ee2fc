package geometry

import (
	"math"
	"strings"
)

// Curvature holds the curvature factors used when building wires.
type Curvature struct {
	// Direct is used for wires without waypoints.
	Direct float64
	// StartEnd is used for the first and last segment of a rerouted wire.
	StartEnd float64
	// Reroute is used for segments between two waypoints.
	Reroute float64
}

// DefaultCurvatures returns the editor's default curvature factors.
func DefaultCurvatures() Curvature {
	return Curvature{
		Direct:   DefaultCurvature,
		StartEnd: DefaultRerouteStartEnd,
		Reroute:  DefaultRerouteCurvature,
	}
}

// Chain returns the segments of a wire from start to end through waypoints.
//
// With no waypoints the result is a single OpenClose segment. Otherwise it has
// len(waypoints)+1 segments: Open from start to the first waypoint, Other
// between consecutive waypoints, and Close from the last waypoint to end.
func Chain(start Point, waypoints []Point, end Point, c Curvature) []Segment {
	if len(waypoints) == 0 {
		return []Segment{NewSegment(start.X, start.Y, end.X, end.Y, c.Direct, OpenClose)}
	}

	segs := make([]Segment, 0, len(waypoints)+1)
	first := waypoints[0]
	segs = append(segs, NewSegment(start.X, start.Y, first.X, first.Y, c.StartEnd, Open))
	for i := 1; i < len(waypoints); i++ {
		a, b := waypoints[i-1], waypoints[i]
		segs = append(segs, NewSegment(a.X, a.Y, b.X, b.Y, c.Reroute, Other))
	}
	last := waypoints[len(waypoints)-1]
	segs = append(segs, NewSegment(last.X, last.Y, end.X, end.Y, c.StartEnd, Close))
	return segs
}

// ChainPath returns the concatenated SVG path of a wire through waypoints.
func ChainPath(start Point, waypoints []Point, end Point, c Curvature) string {
	return JoinPaths(Chain(start, waypoints, end, c))
}

// SegmentPaths returns one SVG path per segment.
func SegmentPaths(segs []Segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Path()
	}
	return out
}

// JoinPaths concatenates segment paths into one path string.
func JoinPaths(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Path())
	}
	return b.String()
}

// NearestSegment returns the index of the segment closest to p and its distance.
// It returns -1 for an empty slice.
func NearestSegment(segs []Segment, p Point) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for i, s := range segs {
		if d := s.Distance(p); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}
