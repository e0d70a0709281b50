// Package export publishes diagram bundles to object storage.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/tablewright/tablewright/internal/diagram"
	"github.com/tablewright/tablewright/internal/graph"
	"github.com/tablewright/tablewright/internal/render"
)

// Exporter stores one object.
type Exporter interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Object names inside a bundle.
const (
	SnapshotObject = "snapshot.yaml"
	MermaidObject  = "diagram.mmd"
	LayoutObject   = "layout.json"
)

// layoutDoc is the layout.json document.
type layoutDoc struct {
	ConnectionID string       `json:"connection_id"`
	Schema       string       `json:"schema"`
	Engine       string       `json:"engine"`
	Layout       string       `json:"layout"`
	ExportedAt   time.Time    `json:"exported_at"`
	Nodes        []graph.Node `json:"nodes"`
	Edges        []graph.Edge `json:"edges"`
	Cycles       [][]string   `json:"cycles,omitempty"`
}

// Prefix returns the key prefix <prefix>/<connection>/<schema>.
func Prefix(prefix, connectionID, schemaName string) string {
	return path.Join(prefix, connectionID, schemaName)
}

// Bundle writes the snapshot, Mermaid diagram and layout of a session under
// Prefix(prefix, ...). It returns the keys written.
func Bundle(ctx context.Context, exp Exporter, prefix string, s *diagram.Session) ([]string, error) {
	view := s.View()
	g := s.Graph()
	if view == nil || g == nil {
		return nil, fmt.Errorf("diagram %s/%s has not been loaded", s.ConnectionID(), s.Schema())
	}
	snap := s.Snapshot()
	base := Prefix(prefix, snap.ConnectionID, snap.Schema)

	snapYAML, err := snap.ToYAML()
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	layoutJSON, err := json.MarshalIndent(layoutDoc{
		ConnectionID: view.ConnectionID,
		Schema:       view.Schema,
		Engine:       string(view.Engine),
		Layout:       view.Layout,
		ExportedAt:   time.Now().UTC(),
		Nodes:        view.Nodes,
		Edges:        view.Edges,
		Cycles:       view.Cycles,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding layout: %w", err)
	}

	objects := []struct {
		name, contentType string
		body              []byte
	}{
		{SnapshotObject, "application/yaml", snapYAML},
		{MermaidObject, "text/plain; charset=utf-8", []byte(render.Mermaid(g))},
		{LayoutObject, "application/json", layoutJSON},
	}

	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		key := path.Join(base, o.name)
		if err := exp.Put(ctx, key, o.body, o.contentType); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
