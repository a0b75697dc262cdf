package graph

import (
	"testing"
	"time"

	"github.com/jcolby/sprintloom/pkg/models"
)

func TestCriticalPath_Diamond(t *testing.T) {
	g := buildDiamond(t)

	// A(10) -> B(20) -> D(5) = 35m beats A -> C(15) -> D = 30m.
	want := []string{"A", "B", "D"}
	got := g.CriticalPath()
	if len(got) != len(want) {
		t.Fatalf("critical path = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("critical path = %v, want %v", got, want)
		}
	}

	if dur := g.CriticalPathDuration(); dur != 35*time.Minute {
		t.Errorf("critical path duration = %v, want 35m", dur)
	}

	for _, id := range want {
		if !g.OnCriticalPath(id) {
			t.Errorf("expected %s on critical path", id)
		}
	}
	if g.OnCriticalPath("C") {
		t.Error("C should not be on the critical path")
	}
}

func TestCriticalPath_IsValidPath(t *testing.T) {
	g := buildDiamond(t)

	path := g.CriticalPath()
	for i := 1; i < len(path); i++ {
		deps := g.Dependencies(path[i])
		found := false
		for _, dep := range deps {
			if dep == path[i-1] {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("critical path edge %s -> %s is not a graph edge", path[i-1], path[i])
		}
	}
}

func TestCriticalPath_DominatesAllPaths(t *testing.T) {
	g := buildDiamond(t)

	// Enumerate root-to-leaf paths and check none exceeds the critical duration.
	critical := g.CriticalPathDuration()
	var walk func(id string, dur time.Duration)
	walk = func(id string, dur time.Duration) {
		dur += g.Sprint(id).EstimatedDuration
		next := g.Dependents(id)
		if len(next) == 0 {
			if dur > critical {
				t.Errorf("path ending at %s has duration %v > critical %v", id, dur, critical)
			}
			return
		}
		for _, n := range next {
			walk(n, dur)
		}
	}
	walk("A", 0)
}

func TestCriticalPath_LexicalTieBreak(t *testing.T) {
	g := New()
	// Two equal-duration chains; the lexically smaller sequence must win.
	for _, s := range []*models.Sprint{
		sprint("a1", nil, 10*time.Minute),
		sprint("a2", []string{"a1"}, 10*time.Minute),
		sprint("b1", nil, 10*time.Minute),
		sprint("b2", []string{"b1"}, 10*time.Minute),
	} {
		if err := g.AddNode(s); err != nil {
			t.Fatal(err)
		}
	}

	got := g.CriticalPath()
	if len(got) != 2 || got[0] != "a1" || got[1] != "a2" {
		t.Errorf("critical path = %v, want [a1 a2]", got)
	}
}

func TestCriticalPath_RecomputedOnAdd(t *testing.T) {
	g := New()
	if err := g.AddNode(sprint("A", nil, 10*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if dur := g.CriticalPathDuration(); dur != 10*time.Minute {
		t.Fatalf("duration = %v, want 10m", dur)
	}

	if err := g.AddNode(sprint("B", []string{"A"}, 25*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if dur := g.CriticalPathDuration(); dur != 35*time.Minute {
		t.Errorf("duration after add = %v, want 35m", dur)
	}
}
