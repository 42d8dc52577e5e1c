// Package gnn implements graph networks over batches of graphs: the
// graph independent transform, the message passing core and the
// aggregation network built from them.
//
// Message passing is expressed as matrix products with the incidence
// matrices of the batch, so the forward pass of a whole batch is a
// single computational graph whose size does not depend on the number
// of graphs in the batch.
package gnn

import (
	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/graphs"
	"github.com/samuelfneumann/rlcomm/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ErrConfiguration is returned when a graph network cannot be built
// from its configuration
var ErrConfiguration = errors.New("invalid configuration")

// Topology holds the incidence matrices of one GraphBatch, bound as
// constants into a Context. Every matrix over edges is nil when the
// batch has no edges.
type Topology struct {
	batch *graphs.GraphBatch

	senderGather    *G.Node // E x N
	receiverGather  *G.Node // E x N
	receiverScatter *G.Node // N x E
	nodeMembership  *G.Node // G x N
	edgeMembership  *G.Node // G x E
	nodeBroadcast   *G.Node // N x G
	edgeBroadcast   *G.Node // E x G
}

// NewTopology validates batch and binds its incidence matrices into c
func NewTopology(c *network.Context, batch *graphs.GraphBatch) (*Topology,
	error) {
	if err := batch.Validate(); err != nil {
		return nil, errors.Wrap(err, "newTopology")
	}

	input := func(name string, t *tensor.Dense) *G.Node {
		if t == nil {
			return nil
		}
		return c.Input(name, t)
	}

	return &Topology{
		batch:           batch,
		senderGather:    input("senders", batch.SenderGather()),
		receiverGather:  input("receivers", batch.ReceiverGather()),
		receiverScatter: input("received", batch.ReceiverScatter()),
		nodeMembership:  input("node_membership", batch.NodeMembership()),
		edgeMembership:  input("edge_membership", batch.EdgeMembership()),
		nodeBroadcast:   input("node_broadcast", batch.NodeBroadcast()),
		edgeBroadcast:   input("edge_broadcast", batch.EdgeBroadcast()),
	}, nil
}

// Batch returns the GraphBatch the Topology was built from
func (t *Topology) Batch() *graphs.GraphBatch {
	return t.batch
}

// NumGraphs returns the number of graphs in the batch
func (t *Topology) NumGraphs() int {
	return t.batch.NumGraphs()
}

// NumNodes returns the number of nodes in the batch
func (t *Topology) NumNodes() int {
	return t.batch.NumNodes()
}

// NumEdges returns the number of edges in the batch
func (t *Topology) NumEdges() int {
	return t.batch.NumEdges()
}

// HasEdges returns whether the batch has at least one edge
func (t *Topology) HasEdges() bool {
	return t.NumEdges() > 0
}

// gather multiplies an incidence matrix with a feature matrix. If either
// is absent the result is a zero matrix of rows x cols, the value of an
// empty sum.
func gather(c *network.Context, name string, incidence, x *G.Node,
	rows, cols int) (*G.Node, error) {
	if incidence == nil || x == nil {
		return c.Zeros(name, rows, cols), nil
	}

	out, err := G.Mul(incidence, x)
	if err != nil {
		return nil, errors.Wrapf(err, "gather: could not compute %v", name)
	}
	return out, nil
}
