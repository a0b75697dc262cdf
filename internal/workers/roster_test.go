package workers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jcolby/sprintloom/pkg/models"
)

const testRoster = `
workers:
  - id: w1
    name: alice
    type: manager
    skills: [planning, review]
  - id: w2
    name: bob
    skills: [go, sql]
  - name: carol
    type: worker
`

func TestParseRoster(t *testing.T) {
	pool, err := ParseRoster([]byte(testRoster))
	if err != nil {
		t.Fatalf("ParseRoster: %v", err)
	}

	if pool.Size() != 3 {
		t.Fatalf("size = %d, want 3", pool.Size())
	}

	alice := pool.Worker("w1")
	if alice == nil {
		t.Fatal("w1 not registered")
	}
	if alice.Type != models.WorkerTypeManager {
		t.Errorf("alice type = %s, want manager", alice.Type)
	}
	if !alice.HasSkill("planning") {
		t.Error("alice should have planning skill")
	}

	bob := pool.Worker("w2")
	if bob == nil {
		t.Fatal("w2 not registered")
	}
	if bob.Type != models.WorkerTypeWorker {
		t.Errorf("bob type = %s, want worker", bob.Type)
	}

	// Registration order is preserved for tie-breaking.
	available := pool.Available()
	if available[0].ID != "w1" || available[1].ID != "w2" {
		t.Errorf("order = [%s %s ...], want [w1 w2 ...]", available[0].ID, available[1].ID)
	}

	// carol had no id; one must have been generated.
	if available[2].ID == "" {
		t.Error("expected generated id for carol")
	}
}

func TestParseRosterErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty roster", "workers: []"},
		{"missing name", "workers:\n  - id: w1"},
		{"unknown type", "workers:\n  - name: dave\n    type: wizard"},
		{"malformed yaml", "workers: [---"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRoster([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(testRoster), 0644); err != nil {
		t.Fatalf("write roster: %v", err)
	}

	pool, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("LoadRoster: %v", err)
	}
	if pool.Size() != 3 {
		t.Errorf("size = %d, want 3", pool.Size())
	}

	if _, err := LoadRoster(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
