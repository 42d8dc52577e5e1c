package gnn

import (
	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/network"
	"github.com/samuelfneumann/rlcomm/utils/op"
	G "gorgonia.org/gorgonia"
)

// EdgeBlockOptions selects the inputs of an EdgeBlock
type EdgeBlockOptions struct {
	UseEdges         bool
	UseReceiverNodes bool
	UseSenderNodes   bool
	UseGlobals       bool
}

// DefaultEdgeBlockOptions uses every input
func DefaultEdgeBlockOptions() EdgeBlockOptions {
	return EdgeBlockOptions{
		UseEdges:         true,
		UseReceiverNodes: true,
		UseSenderNodes:   true,
		UseGlobals:       true,
	}
}

// InSize returns the input width of the edge transform for the given
// feature widths
func (o EdgeBlockOptions) InSize(edge, node, global int) int {
	return width(o.UseEdges, edge) + width(o.UseReceiverNodes, node) +
		width(o.UseSenderNodes, node) + width(o.UseGlobals, global)
}

// EdgeBlock updates each edge from its own features, the features of
// its sender and receiver and the globals of its graph
type EdgeBlock struct {
	EdgeBlockOptions
	Fn network.Transform
}

// Fwd adds the edge update of l to c. A batch without edges has no edge
// update; its edge width becomes the output width of Fn.
func (b *EdgeBlock) Fwd(c *network.Context, l *Latent) (*Latent, error) {
	if !l.HasEdges() {
		return l.with(l.Nodes, nil, l.Globals, l.NodeSize, b.Fn.OutSize(),
			l.GlobalSize), nil
	}

	var inputs []*G.Node
	if b.UseEdges {
		inputs = append(inputs, l.Edges)
	}
	if b.UseReceiverNodes {
		received, err := gather(c, "receiver_nodes", l.receiverGather,
			l.Nodes, l.NumEdges(), l.NodeSize)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, received)
	}
	if b.UseSenderNodes {
		sent, err := gather(c, "sender_nodes", l.senderGather, l.Nodes,
			l.NumEdges(), l.NodeSize)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, sent)
	}
	if b.UseGlobals {
		inputs = append(inputs, broadcastGlobals(l, l.edgeBroadcast))
	}

	edges, err := transform(c, b.Fn, inputs)
	if err != nil {
		return nil, errors.Wrap(err, "edge block")
	}
	return l.with(l.Nodes, edges, l.Globals, l.NodeSize, b.Fn.OutSize(),
		l.GlobalSize), nil
}

// NodeBlockOptions selects the inputs of a NodeBlock
type NodeBlockOptions struct {
	UseReceivedEdges bool
	UseNodes         bool
	UseGlobals       bool
}

// DefaultNodeBlockOptions uses every input
func DefaultNodeBlockOptions() NodeBlockOptions {
	return NodeBlockOptions{
		UseReceivedEdges: true,
		UseNodes:         true,
		UseGlobals:       true,
	}
}

// InSize returns the input width of the node transform for the given
// feature widths
func (o NodeBlockOptions) InSize(edge, node, global int) int {
	return width(o.UseReceivedEdges, edge) + width(o.UseNodes, node) +
		width(o.UseGlobals, global)
}

// NodeBlock updates each node from the sum of the edges it receives,
// its own features and the globals of its graph
type NodeBlock struct {
	NodeBlockOptions
	Fn network.Transform
}

// Fwd adds the node update of l to c. A node that receives no edges,
// including every node of a batch without edges, aggregates to zero.
func (b *NodeBlock) Fwd(c *network.Context, l *Latent) (*Latent, error) {
	var inputs []*G.Node
	if b.UseReceivedEdges {
		received, err := gather(c, "received_edges", l.receiverScatter,
			l.Edges, l.NumNodes(), l.EdgeSize)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, received)
	}
	if b.UseNodes {
		inputs = append(inputs, l.Nodes)
	}
	if b.UseGlobals {
		inputs = append(inputs, broadcastGlobals(l, l.nodeBroadcast))
	}

	nodes, err := transform(c, b.Fn, inputs)
	if err != nil {
		return nil, errors.Wrap(err, "node block")
	}
	return l.with(nodes, l.Edges, l.Globals, b.Fn.OutSize(), l.EdgeSize,
		l.GlobalSize), nil
}

// GlobalBlockOptions selects the inputs of a GlobalBlock
type GlobalBlockOptions struct {
	UseEdges   bool
	UseNodes   bool
	UseGlobals bool
}

// DefaultGlobalBlockOptions uses every input
func DefaultGlobalBlockOptions() GlobalBlockOptions {
	return GlobalBlockOptions{
		UseEdges:   true,
		UseNodes:   true,
		UseGlobals: true,
	}
}

// InSize returns the input width of the global transform for the given
// feature widths
func (o GlobalBlockOptions) InSize(edge, node, global int) int {
	return width(o.UseEdges, edge) + width(o.UseNodes, node) +
		width(o.UseGlobals, global)
}

// GlobalBlock updates the globals of each graph from the sums of its
// edges and nodes and its current globals
type GlobalBlock struct {
	GlobalBlockOptions
	Fn network.Transform
}

// Fwd adds the global update of l to c. A graph without edges or nodes
// aggregates them to zero.
func (b *GlobalBlock) Fwd(c *network.Context, l *Latent) (*Latent, error) {
	var inputs []*G.Node
	if b.UseEdges {
		edges, err := gather(c, "graph_edges", l.edgeMembership, l.Edges,
			l.NumGraphs(), l.EdgeSize)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, edges)
	}
	if b.UseNodes {
		nodes, err := gather(c, "graph_nodes", l.nodeMembership, l.Nodes,
			l.NumGraphs(), l.NodeSize)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, nodes)
	}
	if b.UseGlobals {
		inputs = append(inputs, l.Globals)
	}

	globals, err := transform(c, b.Fn, inputs)
	if err != nil {
		return nil, errors.Wrap(err, "global block")
	}
	return l.with(l.Nodes, l.Edges, globals, l.NodeSize, l.EdgeSize,
		b.Fn.OutSize()), nil
}

// broadcastGlobals copies the globals of each graph to the rows selected
// by broadcast, or returns nil if there are no globals
func broadcastGlobals(l *Latent, broadcast *G.Node) *G.Node {
	if l.Globals == nil || broadcast == nil {
		return nil
	}
	return G.Must(G.Mul(broadcast, l.Globals))
}

// transform concatenates inputs along the feature dimension and applies
// fn. Absent inputs are skipped, so a width mismatch surfaces in fn.
func transform(c *network.Context, fn network.Transform,
	inputs []*G.Node) (*G.Node, error) {
	x, err := op.Concat(inputs...)
	if err != nil {
		return nil, err
	}
	return fn.Fwd(c, x)
}

func width(use bool, size int) int {
	if use {
		return size
	}
	return 0
}
