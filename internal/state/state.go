// Package state persists the console workspace between runs.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tablewright/tablewright/internal/config"
)

const (
	DefaultPath = "~/.tablewright/workspace.yaml"
	maxRecent   = 10
)

// Workspace remembers what the user last looked at.
type Workspace struct {
	LastConnection string          `yaml:"last_connection,omitempty" json:"last_connection,omitempty"`
	LastSchema     string          `yaml:"last_schema,omitempty" json:"last_schema,omitempty"`
	LayoutStrategy string          `yaml:"layout_strategy,omitempty" json:"layout_strategy,omitempty"`
	Recent         []RecentDiagram `yaml:"recent,omitempty" json:"recent,omitempty"`
	LastUpdated    time.Time       `yaml:"last_updated" json:"last_updated"`
}

// RecentDiagram is one previously opened diagram.
type RecentDiagram struct {
	ConnectionID string    `yaml:"connection_id" json:"connection_id"`
	Schema       string    `yaml:"schema" json:"schema"`
	OpenedAt     time.Time `yaml:"opened_at" json:"opened_at"`
}

// Load reads the workspace from disk. A missing file yields an empty
// workspace.
func Load(path string) (*Workspace, error) {
	if path == "" {
		path = config.ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading workspace: %w", err)
	}

	w := &Workspace{}
	if err := yaml.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("parsing workspace: %w", err)
	}
	return w, nil
}

// Save writes the workspace to disk.
func (w *Workspace) Save(path string) error {
	if path == "" {
		path = config.ExpandHome(DefaultPath)
	}

	w.LastUpdated = time.Now()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating workspace directory: %w", err)
	}

	data, err := yaml.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshaling workspace: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// New creates an empty workspace.
func New() *Workspace {
	return &Workspace{LastUpdated: time.Now()}
}

// Opened records that a diagram was opened, moving it to the front of the
// recent list.
func (w *Workspace) Opened(connectionID, schemaName string, at time.Time) {
	w.LastConnection = connectionID
	w.LastSchema = schemaName

	recent := []RecentDiagram{{ConnectionID: connectionID, Schema: schemaName, OpenedAt: at}}
	for _, r := range w.Recent {
		if r.ConnectionID == connectionID && r.Schema == schemaName {
			continue
		}
		recent = append(recent, r)
	}
	if len(recent) > maxRecent {
		recent = recent[:maxRecent]
	}
	w.Recent = recent
}
