package workers

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jcolby/sprintloom/pkg/models"
)

// rosterFile is the YAML shape of a worker roster.
type rosterFile struct {
	Workers []rosterWorker `yaml:"workers"`
}

type rosterWorker struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"`
	Skills []string `yaml:"skills"`
}

// LoadRoster reads a worker roster from a YAML file and registers every
// worker into a new pool, preserving file order.
func LoadRoster(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(data)
}

// ParseRoster builds a pool from raw roster YAML.
func ParseRoster(data []byte) (*Pool, error) {
	var rf rosterFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(rf.Workers) == 0 {
		return nil, fmt.Errorf("parse roster: no workers defined")
	}

	pool := NewPool()
	for i, rw := range rf.Workers {
		if rw.Name == "" {
			return nil, fmt.Errorf("parse roster: worker %d has no name", i)
		}

		workerType := models.WorkerTypeWorker
		switch rw.Type {
		case "", "worker":
		case "manager":
			workerType = models.WorkerTypeManager
		default:
			return nil, fmt.Errorf("parse roster: worker %q has unknown type %q", rw.Name, rw.Type)
		}

		skills := make([]models.Skill, 0, len(rw.Skills))
		for _, s := range rw.Skills {
			skills = append(skills, models.Skill(s))
		}

		pool.Register(&models.Worker{
			ID:     rw.ID,
			Name:   rw.Name,
			Type:   workerType,
			Skills: skills,
			Status: models.WorkerStatusAvailable,
		})
	}
	return pool, nil
}
