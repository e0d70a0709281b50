package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Snapshot is the full set of table descriptors fetched for one schema of
// one connection. It can be written to disk for offline diagramming.
type Snapshot struct {
	ConnectionID string    `yaml:"connection_id" json:"connection_id"`
	Engine       string    `yaml:"engine" json:"engine"`
	Schema       string    `yaml:"schema" json:"schema"`
	FetchedAt    time.Time `yaml:"fetched_at" json:"fetched_at"`
	Tables       []Table   `yaml:"tables" json:"tables"`
}

// LoadSnapshot reads a snapshot from a YAML file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	s := &Snapshot{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return s, nil
}

// WriteSnapshot writes the snapshot to a YAML file at the given path.
func WriteSnapshot(path string, s *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := s.ToYAML()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// ToYAML returns the snapshot as a YAML byte slice.
func (s *Snapshot) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshot: %w", err)
	}
	return data, nil
}

// Summary returns a human-readable summary of the tables.
func Summary(tables []Table) string {
	var totalCols, totalFKs, renderable int

	for _, t := range tables {
		totalCols += len(t.Columns)
		totalFKs += len(t.ForeignKeys)
		for _, fk := range t.ForeignKeys {
			if fk.Renderable() {
				renderable++
			}
		}
	}

	s := fmt.Sprintf("Found %d tables, %d columns, %d foreign keys", len(tables), totalCols, totalFKs)
	if skipped := totalFKs - renderable; skipped > 0 {
		s += fmt.Sprintf(" (%d without usable column lists)", skipped)
	}
	return s
}
