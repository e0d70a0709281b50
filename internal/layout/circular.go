package layout

import (
	"math"

	"github.com/tablewright/tablewright/internal/graph"
)

// Circular spaces tables evenly around a circle, in input order, starting
// at the top.
type Circular struct{}

func (Circular) Name() string { return StrategyCircular }

func (Circular) Layout(g *graph.Graph, opts Options) map[string]graph.Position {
	opts = opts.withDefaults()
	n := len(g.Nodes)
	pos := make(map[string]graph.Position, n)
	if n == 0 {
		return pos
	}

	r := Radius(n, opts)
	for i, node := range g.Nodes {
		theta := 2*math.Pi*float64(i)/float64(n) - math.Pi/2
		pos[node.Table] = graph.Position{
			X: opts.CenterX + r*math.Cos(theta),
			Y: opts.CenterY + r*math.Sin(theta),
		}
	}
	return pos
}

// Radius is max(MinRadius, n*RadiusPerTable).
func Radius(n int, opts Options) float64 {
	opts = opts.withDefaults()
	return math.Max(opts.MinRadius, float64(n)*opts.RadiusPerTable)
}
