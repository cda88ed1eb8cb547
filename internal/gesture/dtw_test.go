package gesture

import (
	"math"
	"testing"
	"time"
)

func TestDTW_IdenticalPaths(t *testing.T) {
	path := []PathPoint{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}

	if d := DTWDistance(path, path); d != 0 {
		t.Errorf("expected distance 0 for identical paths, got %f", d)
	}
}

func TestDTW_DifferentPaths(t *testing.T) {
	a := []PathPoint{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	b := []PathPoint{{X: 0, Y: 2}, {X: 1, Y: 2}, {X: 2, Y: 2}}

	if d := DTWDistance(a, b); math.Abs(d-2) > 1e-9 {
		t.Errorf("expected distance 2, got %f", d)
	}
}

func TestDTW_SpeedInvariant(t *testing.T) {
	fast := []PathPoint{{X: 0}, {X: 1}, {X: 2}}
	slow := []PathPoint{{X: 0}, {X: 0.5}, {X: 1}, {X: 1.5}, {X: 2}}
	other := []PathPoint{{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}}

	if DTWDistance(fast, slow) >= DTWDistance(fast, other) {
		t.Error("resampled path should be closer than a shifted one")
	}
}

func TestDTW_EmptyPaths(t *testing.T) {
	path := []PathPoint{{X: 0, Y: 0}}
	tests := []struct {
		name string
		a, b []PathPoint
	}{
		{"both empty", nil, nil},
		{"first empty", nil, path},
		{"second empty", path, []PathPoint{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := DTWDistance(tt.a, tt.b); !math.IsInf(d, 1) {
				t.Errorf("expected +Inf, got %f", d)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	at := time.Unix(100, 0)
	got := normalizePath([]PathPoint{{X: 10, Y: 5, At: at}, {X: 20, Y: 5}, {X: 15, Y: 5}})

	want := []PathPoint{{X: 0, Y: 0, At: at}, {X: 1, Y: 0}, {X: 0.5, Y: 0}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: got %+v, want %+v", i, got[i], want[i])
		}
	}

	if normalizePath(nil) != nil {
		t.Error("expected nil for empty path")
	}
}

func TestPathMatcher_Match(t *testing.T) {
	line := &Template{Name: "line", Path: []PathPoint{{X: 0, Y: 0}, {X: 1, Y: 0}}, Tolerance: 0.1}
	m := NewPathMatcher(line, nil, &Template{Name: "empty"})
	if m.Len() != 1 {
		t.Fatalf("expected 1 template, got %d", m.Len())
	}

	matches := m.Match([]PathPoint{{X: 3, Y: 7}, {X: 5, Y: 7}})
	if len(matches) != 1 || matches[0].Template != line {
		t.Fatalf("expected line match, got %+v", matches)
	}
	if matches[0].Score <= 0.9 {
		t.Errorf("expected high score, got %f", matches[0].Score)
	}

	if got := m.Match([]PathPoint{{X: 0, Y: 0}, {X: 0, Y: 1}}); len(got) != 0 {
		t.Errorf("vertical path should not match, got %+v", got)
	}
	if got := m.Match(nil); got != nil {
		t.Error("expected nil for empty input")
	}
}

func TestCircleTemplates(t *testing.T) {
	tpl := CircleTemplates(16, 8, 0.15)
	if len(tpl) != 16 {
		t.Fatalf("expected 16 templates, got %d", len(tpl))
	}
	for _, tp := range tpl {
		if len(tp.Path) != 16 || tp.Kind != Circle {
			t.Fatalf("bad template %+v", tp)
		}
	}
}
