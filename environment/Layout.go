package environment

import (
	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/graphs"
	"gonum.org/v1/gonum/mat"
)

// Layout is the fixed observation layout of the mapping and radio
// coverage environments. Each observation is a single graph padded to
// MaxNodes nodes and MaxEdges edges:
//
//	[n_node, n_edge,
//	 nodes     (MaxNodes * NodeSize),
//	 edges     (MaxEdges * EdgeSize),
//	 senders   (MaxEdges),
//	 receivers (MaxEdges),
//	 globals   (GlobalSize)]
//
// Padding beyond n_node nodes and n_edge edges is ignored. EdgeSize and
// GlobalSize may be 0, in which case the batch has no edge or global
// features.
type Layout struct {
	MaxNodes   int
	MaxEdges   int
	NodeSize   int
	EdgeSize   int
	GlobalSize int
}

// Validate returns an error if the layout is malformed
func (l Layout) Validate() error {
	if l.MaxNodes < 1 || l.NodeSize < 1 {
		return errors.Errorf("validate: layout needs at least one node and "+
			"one node feature, have %d nodes of %d features", l.MaxNodes,
			l.NodeSize)
	}
	if l.MaxEdges < 0 || l.EdgeSize < 0 || l.GlobalSize < 0 {
		return errors.Errorf("validate: negative layout size in %+v", l)
	}
	return nil
}

// Size returns the number of values in one observation
func (l Layout) Size() int {
	return 2 + l.MaxNodes*l.NodeSize + l.MaxEdges*(l.EdgeSize+2) +
		l.GlobalSize
}

// Widths implements the Unpacker interface
func (l Layout) Widths() Widths {
	return Widths{Node: l.NodeSize, Edge: l.EdgeSize, Global: l.GlobalSize}
}

// offsets returns the start of each block of an observation
func (l Layout) offsets() (nodes, edges, senders, receivers, globals int) {
	nodes = 2
	edges = nodes + l.MaxNodes*l.NodeSize
	senders = edges + l.MaxEdges*l.EdgeSize
	receivers = senders + l.MaxEdges
	globals = receivers + l.MaxEdges
	return
}

// Unpack converts each row of obs into a graph of the returned batch
func (l Layout) Unpack(obs mat.Matrix) (*graphs.GraphBatch, error) {
	rows, err := checkRows(l, obs)
	if err != nil {
		return nil, err
	}

	gs := make([]graphs.Graph, rows)
	row := make([]float64, l.Size())
	for i := 0; i < rows; i++ {
		mat.Row(row, i, obs)
		if gs[i], err = l.unpackRow(row); err != nil {
			return nil, errors.Wrapf(err, "unpack: observation %d", i)
		}
	}
	return graphs.FromGraphs(gs)
}

// unpackRow unpacks a single observation
func (l Layout) unpackRow(row []float64) (graphs.Graph, error) {
	nNode, err := count(row[0], "n_node", l.MaxNodes)
	if err != nil {
		return graphs.Graph{}, err
	}
	nEdge, err := count(row[1], "n_edge", l.MaxEdges)
	if err != nil {
		return graphs.Graph{}, err
	}
	if nNode == 0 {
		return graphs.Graph{}, errors.Wrap(graphs.ErrShapeMismatch,
			"unpackRow: graph has no nodes")
	}

	nodeOff, edgeOff, senderOff, receiverOff, globalOff := l.offsets()

	g := graphs.Graph{
		Nodes:     graphs.ZeroFeatures(nNode, l.NodeSize),
		Senders:   make([]int, nEdge),
		Receivers: make([]int, nEdge),
	}
	copy(g.Nodes.Data, row[nodeOff:nodeOff+nNode*l.NodeSize])

	if l.EdgeSize > 0 {
		g.Edges = graphs.ZeroFeatures(nEdge, l.EdgeSize)
		copy(g.Edges.Data, row[edgeOff:edgeOff+nEdge*l.EdgeSize])
	}
	for e := 0; e < nEdge; e++ {
		if g.Senders[e], err = count(row[senderOff+e], "sender",
			nNode-1); err != nil {
			return graphs.Graph{}, err
		}
		if g.Receivers[e], err = count(row[receiverOff+e], "receiver",
			nNode-1); err != nil {
			return graphs.Graph{}, err
		}
	}

	if l.GlobalSize > 0 {
		g.Globals = make([]float64, l.GlobalSize)
		copy(g.Globals, row[globalOff:globalOff+l.GlobalSize])
	}
	return g, nil
}

// Pack converts a graph into an observation. It is the inverse of
// Unpack for a single row.
func (l Layout) Pack(g graphs.Graph) ([]float64, error) {
	switch {
	case g.Nodes == nil || g.NumNodes() == 0 || g.NumNodes() > l.MaxNodes:
		return nil, errors.Wrapf(graphs.ErrShapeMismatch, "pack: graph "+
			"must have between 1 and %d nodes", l.MaxNodes)
	case g.Nodes.Cols != l.NodeSize:
		return nil, errors.Wrapf(graphs.ErrShapeMismatch, "pack: invalid "+
			"node size \n\twant(%d)\n\thave(%d)", l.NodeSize, g.Nodes.Cols)
	case g.NumEdges() > l.MaxEdges || len(g.Receivers) != g.NumEdges():
		return nil, errors.Wrapf(graphs.ErrShapeMismatch, "pack: graph "+
			"must have at most %d edges with one receiver each", l.MaxEdges)
	case l.EdgeSize > 0 && (g.Edges == nil || g.Edges.Cols != l.EdgeSize ||
		g.Edges.Rows != g.NumEdges()):
		return nil, errors.Wrapf(graphs.ErrShapeMismatch, "pack: graph "+
			"needs %d features per edge", l.EdgeSize)
	case len(g.Globals) != l.GlobalSize:
		return nil, errors.Wrapf(graphs.ErrShapeMismatch, "pack: invalid "+
			"global size \n\twant(%d)\n\thave(%d)", l.GlobalSize,
			len(g.Globals))
	}

	nodeOff, edgeOff, senderOff, receiverOff, globalOff := l.offsets()

	row := make([]float64, l.Size())
	row[0], row[1] = float64(g.NumNodes()), float64(g.NumEdges())
	copy(row[nodeOff:], g.Nodes.Data)
	if l.EdgeSize > 0 {
		copy(row[edgeOff:], g.Edges.Data)
	}
	for e := range g.Senders {
		row[senderOff+e] = float64(g.Senders[e])
		row[receiverOff+e] = float64(g.Receivers[e])
	}
	copy(row[globalOff:], g.Globals)

	return row, nil
}
