package harp

import "math"

// Layout places strings evenly across a width, in the same units as the
// tracked x coordinates.
type Layout struct {
	// Strings holds the indices into Strings of the displayed strings.
	Strings []int
	Width   float64
}

// NewLayout returns a layout over width. A reduced layout keeps every other
// string for constrained devices.
func NewLayout(width float64, reduced bool) Layout {
	l := Layout{Width: width}
	for i := 0; i < NumStrings; i++ {
		if reduced && i%2 != 0 {
			continue
		}
		l.Strings = append(l.Strings, i)
	}
	return l
}

// Len returns the number of displayed strings.
func (l Layout) Len() int {
	return len(l.Strings)
}

// Spacing returns the distance between adjacent strings.
func (l Layout) Spacing() float64 {
	return l.Width / float64(len(l.Strings)+1)
}

// StringX returns the x position of displayed string i.
func (l Layout) StringX(i int) float64 {
	return l.Spacing() * float64(i+1)
}

// Base returns the natural name of displayed string i.
func (l Layout) Base(i int) string {
	return Strings[l.Strings[i]]
}

// Note returns the sounding note of displayed string i.
func (l Layout) Note(i int, pedals Pedals) (string, error) {
	if i < 0 || i >= len(l.Strings) {
		return "", ErrInvalidString
	}
	return StringNote(l.Strings[i], pedals)
}

// IndexAt returns the string within half a spacing of x, or -1.
func (l Layout) IndexAt(x float64) int {
	if len(l.Strings) == 0 || math.IsNaN(x) {
		return -1
	}
	sp := l.Spacing()
	i := int(math.Round(x/sp)) - 1
	if i < 0 || i >= len(l.Strings) {
		return -1
	}
	if math.Abs(x-l.StringX(i)) >= sp/2 {
		return -1
	}
	return i
}

// Crossings returns the strings passed when moving from prevX to curX, in
// traversal order. Moving right a string counts when prevX < x <= curX, moving
// left when curX <= x < prevX, so a string sitting exactly at prevX is not
// reported again.
func (l Layout) Crossings(prevX, curX float64) []int {
	if math.IsNaN(prevX) || math.IsNaN(curX) || prevX == curX || len(l.Strings) == 0 {
		return nil
	}
	sp := l.Spacing()
	n := len(l.Strings)

	var out []int
	if curX > prevX {
		lo := clampIndex(int(math.Floor(prevX/sp))-2, n)
		for i := lo; i < n; i++ {
			x := l.StringX(i)
			if x > curX {
				break
			}
			if prevX < x {
				out = append(out, i)
			}
		}
		return out
	}

	hi := clampIndex(int(math.Ceil(prevX/sp)), n-1)
	for i := hi; i >= 0; i-- {
		x := l.StringX(i)
		if x < curX {
			break
		}
		if x < prevX {
			out = append(out, i)
		}
	}
	return out
}

// Update is Crossings with the re-trigger guard applied. lastCrossed is the
// string most recently played by this point, or -1. Strings equal to
// lastCrossed are not reported; the guard clears once the point is more than
// half a spacing away from that string.
func (l Layout) Update(curX, prevX float64, lastCrossed int) ([]int, int) {
	var out []int
	for _, i := range l.Crossings(prevX, curX) {
		if i != lastCrossed {
			out = append(out, i)
		}
	}
	if len(out) > 0 {
		return out, out[len(out)-1]
	}
	if lastCrossed >= 0 && lastCrossed < len(l.Strings) &&
		math.Abs(curX-l.StringX(lastCrossed)) > l.Spacing()/2 {
		return nil, -1
	}
	return nil, lastCrossed
}

func clampIndex(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}
