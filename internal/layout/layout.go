// Package layout places diagram nodes. Every strategy is a pure function of
// the graph and options; nothing carries over between calls.
package layout

import (
	"fmt"
	"strings"

	"github.com/tablewright/tablewright/internal/graph"
)

const (
	StrategyTree     = "tree"
	StrategyCircular = "circular"
)

// Options controls node geometry. Zero values fall back to the defaults.
type Options struct {
	Strategy       string  `yaml:"strategy" json:"strategy"`
	NodeWidth      float64 `yaml:"node_width" json:"node_width"`
	NodeHeight     float64 `yaml:"node_height" json:"node_height"`
	HorizontalGap  float64 `yaml:"horizontal_gap" json:"horizontal_gap"`
	VerticalGap    float64 `yaml:"vertical_gap" json:"vertical_gap"`
	CenterX        float64 `yaml:"center_x" json:"center_x"`
	CenterY        float64 `yaml:"center_y" json:"center_y"`
	MinRadius      float64 `yaml:"min_radius" json:"min_radius"`
	RadiusPerTable float64 `yaml:"radius_per_table" json:"radius_per_table"`
}

// DefaultOptions returns the standard grid and circle geometry.
func DefaultOptions() Options {
	return Options{
		Strategy:       StrategyTree,
		NodeWidth:      250,
		NodeHeight:     150,
		HorizontalGap:  80,
		VerticalGap:    120,
		MinRadius:      300,
		RadiusPerTable: 40,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Strategy == "" {
		o.Strategy = d.Strategy
	}
	if o.NodeWidth <= 0 {
		o.NodeWidth = d.NodeWidth
	}
	if o.NodeHeight <= 0 {
		o.NodeHeight = d.NodeHeight
	}
	if o.HorizontalGap <= 0 {
		o.HorizontalGap = d.HorizontalGap
	}
	if o.VerticalGap <= 0 {
		o.VerticalGap = d.VerticalGap
	}
	if o.MinRadius <= 0 {
		o.MinRadius = d.MinRadius
	}
	if o.RadiusPerTable <= 0 {
		o.RadiusPerTable = d.RadiusPerTable
	}
	return o
}

// Strategy computes a position per table.
type Strategy interface {
	Name() string
	Layout(g *graph.Graph, opts Options) map[string]graph.Position
}

// ForName returns the strategy registered under name.
func ForName(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", StrategyTree, "leveled":
		return Tree{}, nil
	case StrategyCircular:
		return Circular{}, nil
	}
	return nil, fmt.Errorf("unknown layout strategy %q (expected tree or circular)", name)
}

// Apply lays out g with the strategy named in opts.
func Apply(g *graph.Graph, opts Options) (map[string]graph.Position, error) {
	opts = opts.withDefaults()
	s, err := ForName(opts.Strategy)
	if err != nil {
		return nil, err
	}
	return s.Layout(g, opts), nil
}
