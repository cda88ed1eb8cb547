package gesture

import (
	"math"
	"sort"
	"time"
)

// PathPoint is one sample of a tracked body-part trajectory.
type PathPoint struct {
	X, Y float64
	At   time.Time
}

// Template is a reference trajectory matched with DTW.
type Template struct {
	Name      string
	Kind      Type
	Path      []PathPoint
	Tolerance float64 // maximum normalized DTW distance for a match
}

// Match is a template that matched a trajectory.
type Match struct {
	Template *Template
	Score    float64 // 1/(1+distance), higher is better
	Distance float64
}

// DTWDistance returns the dynamic time warping distance between two paths,
// normalized by the longer path length. Empty paths are infinitely far apart.
func DTWDistance(a, b []PathPoint) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	prev := make([]float64, m+1)
	cur := make([]float64, m+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		cur[0] = math.Inf(1)
		for j := 1; j <= m; j++ {
			cur[j] = pointDistance(a[i-1], b[j-1]) + min(prev[j], cur[j-1], prev[j-1])
		}
		prev, cur = cur, prev
	}
	return prev[m] / float64(max(n, m))
}

func pointDistance(a, b PathPoint) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PathMatcher matches trajectories against templates.
type PathMatcher struct {
	templates []*Template
}

// NewPathMatcher creates a matcher with the given templates.
func NewPathMatcher(templates ...*Template) *PathMatcher {
	m := &PathMatcher{}
	for _, t := range templates {
		m.AddTemplate(t)
	}
	return m
}

// AddTemplate registers a template. Nil and empty templates are ignored.
func (m *PathMatcher) AddTemplate(t *Template) {
	if t == nil || len(t.Path) == 0 {
		return
	}
	m.templates = append(m.templates, t)
}

// Len returns the number of templates.
func (m *PathMatcher) Len() int {
	return len(m.templates)
}

// Match returns the templates within tolerance of path, best first. Both the
// path and the templates are scaled to the unit square before comparison.
func (m *PathMatcher) Match(path []PathPoint) []Match {
	input := normalizePath(path)
	if len(input) == 0 {
		return nil
	}

	var matches []Match
	for _, t := range m.templates {
		d := DTWDistance(input, normalizePath(t.Path))
		if math.IsInf(d, 1) || d > t.Tolerance {
			continue
		}
		matches = append(matches, Match{Template: t, Score: 1 / (1 + d), Distance: d})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// normalizePath scales the path into [0,1] on each axis. A flat axis maps to 0.
func normalizePath(path []PathPoint) []PathPoint {
	if len(path) == 0 {
		return nil
	}
	minX, maxX := path[0].X, path[0].X
	minY, maxY := path[0].Y, path[0].Y
	for _, p := range path[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	rangeX, rangeY := maxX-minX, maxY-minY
	out := make([]PathPoint, len(path))
	for i, p := range path {
		out[i].At = p.At
		if rangeX > 0 {
			out[i].X = (p.X - minX) / rangeX
		}
		if rangeY > 0 {
			out[i].Y = (p.Y - minY) / rangeY
		}
	}
	return out
}

// pathExtent returns the larger side of the path's bounding box.
func pathExtent(path []PathPoint) float64 {
	if len(path) == 0 {
		return 0
	}
	minX, maxX := path[0].X, path[0].X
	minY, maxY := path[0].Y, path[0].Y
	for _, p := range path[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return max(maxX-minX, maxY-minY)
}

// CircleTemplates returns one full-turn circle template per starting phase
// and direction, so a circle drawn from any point in either direction matches.
func CircleTemplates(points, phases int, tolerance float64) []*Template {
	var out []*Template
	for _, dir := range []float64{1, -1} {
		for ph := 0; ph < phases; ph++ {
			start := 2 * math.Pi * float64(ph) / float64(phases)
			path := make([]PathPoint, points)
			for i := range path {
				a := start + dir*2*math.Pi*float64(i)/float64(points)
				path[i] = PathPoint{X: 0.5 + 0.5*math.Cos(a), Y: 0.5 + 0.5*math.Sin(a)}
			}
			out = append(out, &Template{Name: "circle", Kind: Circle, Path: path, Tolerance: tolerance})
		}
	}
	return out
}
