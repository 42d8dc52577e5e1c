package graphs

import (
	"github.com/pkg/errors"
)

// Graph is a single graph whose sender and receiver indices are local to
// the graph. Edges may be nil for a graph without edge features, and
// Globals may be nil for a graph without global features.
type Graph struct {
	Nodes   *Features
	Edges   *Features
	Globals []float64

	Senders   []int
	Receivers []int
}

// NumNodes returns the number of nodes in the graph
func (g Graph) NumNodes() int {
	if g.Nodes == nil {
		return 0
	}
	return g.Nodes.Rows
}

// NumEdges returns the number of edges in the graph
func (g Graph) NumEdges() int {
	return len(g.Senders)
}

// FromGraphs batches the argument graphs into a single GraphBatch.
//
// Node indices of graph i are offset by the number of nodes in graphs
// 0, 1, ..., i-1. A graph without edges contributes an n_edge of 0 and
// nothing else. Either all graphs have globals or none do. Graphs
// without edges may omit edge features even if other graphs have them.
func FromGraphs(gs []Graph) (*GraphBatch, error) {
	if len(gs) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "fromGraphs: no graphs")
	}

	b := &GraphBatch{
		NNode: make([]int, len(gs)),
		NEdge: make([]int, len(gs)),
	}

	var nodes, edges []*Features
	var globals [][]float64
	nodeOffset := 0
	for i, g := range gs {
		if g.Nodes == nil {
			return nil, errors.Wrapf(ErrShapeMismatch, "fromGraphs: graph "+
				"%d has no node features", i)
		}
		if len(g.Senders) != len(g.Receivers) {
			return nil, errors.Wrapf(ErrShapeMismatch, "fromGraphs: graph "+
				"%d has %d senders but %d receivers", i, len(g.Senders),
				len(g.Receivers))
		}
		if g.Edges != nil && g.Edges.Rows != g.NumEdges() {
			return nil, errors.Wrapf(ErrShapeMismatch, "fromGraphs: graph "+
				"%d has %d edges but %d edge features", i, g.NumEdges(),
				g.Edges.Rows)
		}
		if (g.Globals == nil) != (gs[0].Globals == nil) {
			return nil, errors.Wrapf(ErrShapeMismatch, "fromGraphs: graph "+
				"%d disagrees with graph 0 on the presence of globals", i)
		}

		b.NNode[i] = g.NumNodes()
		b.NEdge[i] = g.NumEdges()
		nodes = append(nodes, g.Nodes)

		for e := range g.Senders {
			b.Senders = append(b.Senders, g.Senders[e]+nodeOffset)
			b.Receivers = append(b.Receivers, g.Receivers[e]+nodeOffset)
		}
		if g.Edges != nil {
			edges = append(edges, g.Edges)
		} else if g.NumEdges() > 0 {
			edges = append(edges, nil)
		}
		if g.Globals != nil {
			globals = append(globals, g.Globals)
		}

		nodeOffset += g.NumNodes()
	}

	var err error
	if b.Nodes, err = ConcatRows(nodes...); err != nil {
		return nil, errors.Wrap(err, "fromGraphs: node features")
	}
	if b.Edges, err = batchEdges(edges); err != nil {
		return nil, errors.Wrap(err, "fromGraphs: edge features")
	}
	if len(globals) > 0 {
		b.Globals, err = NewFeatures(len(globals), len(globals[0]), nil)
		if err != nil {
			return nil, errors.Wrap(err, "fromGraphs: global features")
		}
		for i, glob := range globals {
			if len(glob) != b.Globals.Cols {
				return nil, errors.Wrapf(ErrShapeMismatch, "fromGraphs: "+
					"graph %d has %d globals, want %d", i, len(glob),
					b.Globals.Cols)
			}
			copy(b.Globals.Row(i), glob)
		}
	}

	if b.NumEdges() == 0 {
		b.Senders, b.Receivers = []int{}, []int{}
	}

	return b, b.Validate()
}

// batchEdges concatenates edge features. A nil entry marks a graph
// with edges but no edge features, which is only valid if no graph has
// edge features.
func batchEdges(edges []*Features) (*Features, error) {
	var present []*Features
	missing := false
	for _, e := range edges {
		if e == nil {
			missing = true
		} else {
			present = append(present, e)
		}
	}

	switch {
	case len(present) == 0:
		return nil, nil
	case missing:
		return nil, errors.Wrap(ErrShapeMismatch, "batchEdges: some graphs "+
			"with edges have no edge features")
	default:
		return ConcatRows(present...)
	}
}

// Graph returns graph i of the batch with local indices
func (b *GraphBatch) Graph(i int) Graph {
	nodeOffsets, edgeOffsets := b.NodeOffsets(), b.EdgeOffsets()
	n0, n1 := nodeOffsets[i], nodeOffsets[i+1]
	e0, e1 := edgeOffsets[i], edgeOffsets[i+1]

	g := Graph{
		Nodes:     b.Nodes.Slice(n0, n1),
		Senders:   make([]int, 0, e1-e0),
		Receivers: make([]int, 0, e1-e0),
	}
	if b.Edges != nil {
		g.Edges = b.Edges.Slice(e0, e1)
	}
	if b.Globals != nil {
		g.Globals = append([]float64(nil), b.Globals.Row(i)...)
	}
	for e := e0; e < e1; e++ {
		g.Senders = append(g.Senders, b.Senders[e]-n0)
		g.Receivers = append(g.Receivers, b.Receivers[e]-n0)
	}
	return g
}

// Split unbatches b into its graphs
func (b *GraphBatch) Split() []Graph {
	gs := make([]Graph, b.NumGraphs())
	for i := range gs {
		gs[i] = b.Graph(i)
	}
	return gs
}
