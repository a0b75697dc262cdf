package claim

import (
	"errors"
	"sync"
	"testing"
)

func TestClaim_Basic(t *testing.T) {
	r := NewRegistry()

	if err := r.Claim("w1", "s1"); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if owner := r.Owner("s1"); owner != "w1" {
		t.Errorf("Owner(s1) = %q, want w1", owner)
	}
	if held := r.Held("w1"); held != "s1" {
		t.Errorf("Held(w1) = %q, want s1", held)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestClaim_Conflict(t *testing.T) {
	r := NewRegistry()

	if err := r.Claim("w1", "s1"); err != nil {
		t.Fatal(err)
	}

	err := r.Claim("w2", "s1")
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("expected ErrAlreadyClaimed, got %v", err)
	}
	var claimErr *AlreadyClaimedError
	if !errors.As(err, &claimErr) {
		t.Fatalf("expected *AlreadyClaimedError, got %T", err)
	}
	if claimErr.CurrentOwner != "w1" {
		t.Errorf("CurrentOwner = %q, want w1", claimErr.CurrentOwner)
	}
}

func TestClaim_ReclaimByOwnerIsNoop(t *testing.T) {
	r := NewRegistry()
	if err := r.Claim("w1", "s1"); err != nil {
		t.Fatal(err)
	}
	if err := r.Claim("w1", "s1"); err != nil {
		t.Errorf("re-claim by owner should succeed, got %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestClaim_WorkerHoldsOneSprint(t *testing.T) {
	r := NewRegistry()
	if err := r.Claim("w1", "s1"); err != nil {
		t.Fatal(err)
	}
	if err := r.Claim("w1", "s2"); err == nil {
		t.Error("worker holding a sprint should not claim a second one")
	}
}

func TestRelease_OwnerOnly(t *testing.T) {
	r := NewRegistry()
	if err := r.Claim("w1", "s1"); err != nil {
		t.Fatal(err)
	}

	if r.Release("w2", "s1") {
		t.Error("non-owner release should return false")
	}
	if owner := r.Owner("s1"); owner != "w1" {
		t.Errorf("claim should survive non-owner release, owner = %q", owner)
	}

	if !r.Release("w1", "s1") {
		t.Error("owner release should return true")
	}
	if owner := r.Owner("s1"); owner != "" {
		t.Errorf("Owner after release = %q, want empty", owner)
	}
	if held := r.Held("w1"); held != "" {
		t.Errorf("Held after release = %q, want empty", held)
	}
}

func TestRelease_Unclaimed(t *testing.T) {
	r := NewRegistry()
	if r.Release("w1", "s1") {
		t.Error("releasing an unclaimed sprint should return false")
	}
}

func TestClaim_ConcurrentRace(t *testing.T) {
	// Many workers race to claim the same sprint; exactly one must win.
	r := NewRegistry()

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			workerID := string(rune('a' + n%26))
			if err := r.Claim(workerID, "contested"); err == nil {
				wins <- workerID
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	// Duplicate worker IDs re-claiming count as the same winner.
	unique := make(map[string]bool)
	for _, w := range winners {
		unique[w] = true
	}
	if len(unique) != 1 {
		t.Errorf("expected exactly one winning worker, got %v", winners)
	}
	if owner := r.Owner("contested"); !unique[owner] {
		t.Errorf("registry owner %q is not the recorded winner", owner)
	}
}

func TestReleaseAll(t *testing.T) {
	r := NewRegistry()
	for _, pair := range [][2]string{{"w1", "s1"}, {"w2", "s2"}, {"w3", "s3"}} {
		if err := r.Claim(pair[0], pair[1]); err != nil {
			t.Fatal(err)
		}
	}

	released := r.ReleaseAll()
	if len(released) != 3 {
		t.Fatalf("released = %v, want 3 sprints", released)
	}
	if released[0] != "s1" || released[1] != "s2" || released[2] != "s3" {
		t.Errorf("released = %v, want sorted [s1 s2 s3]", released)
	}
	if r.Count() != 0 {
		t.Errorf("Count after ReleaseAll = %d, want 0", r.Count())
	}
}
