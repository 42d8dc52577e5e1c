package gnn

import (
	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/graphs"
	"github.com/samuelfneumann/rlcomm/network"
	G "gorgonia.org/gorgonia"
)

// Latent is a GraphBatch whose features are nodes of a computational
// graph. Transforms never modify a Latent; each returns a new one over
// the same Topology.
//
// Edges is nil when the batch has no edges or no edge features, and
// Globals is nil when the batch has no globals. The widths of absent
// features are still tracked so that empty outputs have the right
// number of columns.
type Latent struct {
	*Topology

	Nodes   *G.Node
	Edges   *G.Node
	Globals *G.Node

	NodeSize   int
	EdgeSize   int
	GlobalSize int
}

// NewLatent binds the features of the Topology's batch into c
func NewLatent(c *network.Context, t *Topology) *Latent {
	batch := t.Batch()
	l := &Latent{
		Topology: t,
		Nodes:    c.Features("nodes", batch.Nodes),
		NodeSize: batch.Nodes.Cols,
	}
	if batch.Edges != nil && batch.Edges.Cols > 0 {
		l.Edges = c.Features("edges", batch.Edges)
		l.EdgeSize = batch.Edges.Cols
	}
	if batch.Globals != nil && batch.Globals.Cols > 0 {
		l.Globals = c.Features("globals", batch.Globals)
		l.GlobalSize = batch.Globals.Cols
	}
	return l
}

// with returns a new Latent over the same Topology
func (l *Latent) with(nodes, edges, globals *G.Node, nodeSize, edgeSize,
	globalSize int) *Latent {
	return &Latent{
		Topology:   l.Topology,
		Nodes:      nodes,
		Edges:      edges,
		Globals:    globals,
		NodeSize:   nodeSize,
		EdgeSize:   edgeSize,
		GlobalSize: globalSize,
	}
}

// Read returns the computed features of the Latent as a GraphBatch with
// the topology of the input batch. The Context must have been run.
//
// Edge features are returned whenever the Latent has an edge width, so
// a batch without edges has a zero-row edge block. Nodes and globals
// are nil if the Latent has none.
func (l *Latent) Read() (*graphs.GraphBatch, error) {
	var err error
	var nodes *graphs.Features
	if l.Nodes != nil {
		nodes, err = network.ReadFeatures(l.Nodes, l.NodeSize)
		if err != nil {
			return nil, errors.Wrap(err, "read: nodes")
		}
	}

	var edges *graphs.Features
	if l.Edges != nil || l.EdgeSize > 0 {
		edges, err = network.ReadFeatures(l.Edges, l.EdgeSize)
		if err != nil {
			return nil, errors.Wrap(err, "read: edges")
		}
	}

	var globals *graphs.Features
	if l.Globals != nil {
		globals, err = network.ReadFeatures(l.Globals, l.GlobalSize)
		if err != nil {
			return nil, errors.Wrap(err, "read: globals")
		}
	}

	return l.Batch().WithFeatures(nodes, edges, globals), nil
}
