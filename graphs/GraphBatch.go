package graphs

import (
	"fmt"

	"github.com/pkg/errors"
)

// GraphBatch is a flat encoding of one or more graphs.
//
// Nodes holds the node features of all graphs, graph 0's nodes first.
// Edges, if not nil, holds the edge features of all graphs in the same
// way, and Globals, if not nil, holds one row per graph. Senders[e] and
// Receivers[e] index rows of Nodes and must fall within the node range
// of the graph that owns edge e. NNode[g] and NEdge[g] are the number of
// nodes and edges of graph g.
//
// A GraphBatch is never changed in place once built: transformations
// return new batches.
type GraphBatch struct {
	Nodes   *Features
	Edges   *Features
	Globals *Features

	Senders   []int
	Receivers []int

	NNode []int
	NEdge []int
}

// NumGraphs returns the number of graphs in the batch
func (b *GraphBatch) NumGraphs() int {
	return len(b.NNode)
}

// NumNodes returns the total number of nodes in the batch
func (b *GraphBatch) NumNodes() int {
	return sum(b.NNode)
}

// NumEdges returns the total number of edges in the batch
func (b *GraphBatch) NumEdges() int {
	return sum(b.NEdge)
}

// Validate checks the invariants of the batch. Any violation is
// returned wrapping ErrShapeMismatch.
func (b *GraphBatch) Validate() error {
	if len(b.NNode) == 0 {
		return errors.Wrap(ErrShapeMismatch, "validate: batch holds no graphs")
	}
	if len(b.NEdge) != len(b.NNode) {
		return errors.Wrapf(ErrShapeMismatch, "validate: n_node has %d "+
			"graphs but n_edge has %d", len(b.NNode), len(b.NEdge))
	}
	for g := range b.NNode {
		if b.NNode[g] < 0 || b.NEdge[g] < 0 {
			return errors.Wrapf(ErrShapeMismatch, "validate: negative count "+
				"for graph %d (n_node=%d, n_edge=%d)", g, b.NNode[g], b.NEdge[g])
		}
	}

	numNodes, numEdges := b.NumNodes(), b.NumEdges()
	if numNodes == 0 {
		return errors.Wrap(ErrShapeMismatch, "validate: batch holds no nodes")
	}
	if b.Nodes == nil {
		return errors.Wrap(ErrShapeMismatch, "validate: missing node features")
	}
	if err := b.Nodes.validate("node"); err != nil {
		return err
	}
	if b.Nodes.Rows != numNodes {
		return errors.Wrapf(ErrShapeMismatch, "validate: sum(n_node) = %d "+
			"but there are %d nodes", numNodes, b.Nodes.Rows)
	}

	if b.Edges != nil {
		if err := b.Edges.validate("edge"); err != nil {
			return err
		}
		if b.Edges.Rows != numEdges {
			return errors.Wrapf(ErrShapeMismatch, "validate: sum(n_edge) = "+
				"%d but there are %d edges", numEdges, b.Edges.Rows)
		}
	}
	if len(b.Senders) != numEdges || len(b.Receivers) != numEdges {
		return errors.Wrapf(ErrShapeMismatch, "validate: sum(n_edge) = %d "+
			"but there are %d senders and %d receivers", numEdges,
			len(b.Senders), len(b.Receivers))
	}

	if b.Globals != nil {
		if err := b.Globals.validate("global"); err != nil {
			return err
		}
		if b.Globals.Rows != b.NumGraphs() {
			return errors.Wrapf(ErrShapeMismatch, "validate: %d graphs but "+
				"%d global feature rows", b.NumGraphs(), b.Globals.Rows)
		}
	}

	// Edges may only connect nodes of their own graph
	nodeOffsets, edgeOffsets := b.NodeOffsets(), b.EdgeOffsets()
	for g := 0; g < b.NumGraphs(); g++ {
		lo, hi := nodeOffsets[g], nodeOffsets[g+1]
		for e := edgeOffsets[g]; e < edgeOffsets[g+1]; e++ {
			s, r := b.Senders[e], b.Receivers[e]
			if s < lo || s >= hi || r < lo || r >= hi {
				return errors.Wrapf(ErrShapeMismatch, "validate: edge %d "+
					"(%d -> %d) leaves the node range [%d, %d) of graph %d",
					e, s, r, lo, hi, g)
			}
		}
	}

	return nil
}

// NodeOffsets returns the index of the first node of each graph. The
// returned slice has one extra trailing entry holding the total number
// of nodes so that graph g owns nodes [off[g], off[g+1]).
func (b *GraphBatch) NodeOffsets() []int {
	return offsets(b.NNode)
}

// EdgeOffsets returns the index of the first edge of each graph, with a
// trailing entry as in NodeOffsets.
func (b *GraphBatch) EdgeOffsets() []int {
	return offsets(b.NEdge)
}

// NodeGraphIndex returns, for each node, the index of its graph
func (b *GraphBatch) NodeGraphIndex() []int {
	return segmentIDs(b.NNode)
}

// EdgeGraphIndex returns, for each edge, the index of its graph
func (b *GraphBatch) EdgeGraphIndex() []int {
	return segmentIDs(b.NEdge)
}

// WithFeatures returns a new batch with the same topology as b but with
// the argument features. The topology slices are copied.
func (b *GraphBatch) WithFeatures(nodes, edges, globals *Features) *GraphBatch {
	return &GraphBatch{
		Nodes:     nodes,
		Edges:     edges,
		Globals:   globals,
		Senders:   copyInts(b.Senders),
		Receivers: copyInts(b.Receivers),
		NNode:     copyInts(b.NNode),
		NEdge:     copyInts(b.NEdge),
	}
}

// Clone returns a deep copy of the batch
func (b *GraphBatch) Clone() *GraphBatch {
	return b.WithFeatures(b.Nodes.Clone(), b.Edges.Clone(), b.Globals.Clone())
}

// String implements the fmt.Stringer interface
func (b *GraphBatch) String() string {
	width := func(f *Features) int {
		if f == nil {
			return 0
		}
		return f.Cols
	}
	return fmt.Sprintf("GraphBatch{graphs: %d, nodes: %d x %d, edges: %d "+
		"x %d, globals: %d}", b.NumGraphs(), b.NumNodes(), width(b.Nodes),
		b.NumEdges(), width(b.Edges), width(b.Globals))
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func offsets(counts []int) []int {
	off := make([]int, len(counts)+1)
	for i, c := range counts {
		off[i+1] = off[i] + c
	}
	return off
}

func segmentIDs(counts []int) []int {
	ids := make([]int, 0, sum(counts))
	for g, c := range counts {
		for i := 0; i < c; i++ {
			ids = append(ids, g)
		}
	}
	return ids
}

func copyInts(in []int) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	return out
}
