package gnn

import (
	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/network"
	"golang.org/x/exp/rand"
)

// GraphNetworkOptions configures the inputs of the blocks of a
// GraphNetwork
type GraphNetworkOptions struct {
	Edge   EdgeBlockOptions
	Node   NodeBlockOptions
	Global GlobalBlockOptions

	// UpdateGlobals adds the global block. Without it, the globals of
	// the input pass through unchanged.
	UpdateGlobals bool
}

// CoreOptions returns the options of the message passing core of an
// aggregation network: edges are updated from their senders but not
// their receivers, and globals take part only if useGlobals is set.
func CoreOptions(useReceiverNodes, useGlobals bool) GraphNetworkOptions {
	opts := GraphNetworkOptions{
		Edge:          DefaultEdgeBlockOptions(),
		Node:          DefaultNodeBlockOptions(),
		Global:        DefaultGlobalBlockOptions(),
		UpdateGlobals: useGlobals,
	}
	opts.Edge.UseReceiverNodes = useReceiverNodes
	opts.Edge.UseGlobals = useGlobals
	opts.Node.UseGlobals = useGlobals
	return opts
}

// GraphNetwork performs one hop of message passing: an edge update,
// then a node update, then optionally a global update.
//
// A GraphNetwork keeps no state between calls to Fwd. Sharing one
// GraphNetwork over several hops shares its parameters.
type GraphNetwork struct {
	Name   string
	Edges  *EdgeBlock
	Nodes  *NodeBlock
	Global *GlobalBlock
}

// NewGraphNetwork creates a GraphNetwork whose edge, node and global
// transforms are created from fn. The transforms map latent features of
// width latent to latent features of the output width of fn.
func NewGraphNetwork(name string, fn network.Config, latent int,
	opts GraphNetworkOptions, src rand.Source) (*GraphNetwork, error) {
	out := fn.OutSize()
	if out != latent {
		return nil, errors.Wrapf(ErrConfiguration, "newGraphNetwork: core "+
			"output width must equal its input width\n\twant(%d)\n\thave(%d)",
			latent, out)
	}

	globalSize := 0
	if opts.UpdateGlobals {
		globalSize = latent
	}

	edgeFn, err := fn.New(name+"/edge", opts.Edge.InSize(latent, latent,
		globalSize), src)
	if err != nil {
		return nil, errors.Wrap(err, "newGraphNetwork")
	}
	nodeFn, err := fn.New(name+"/node", opts.Node.InSize(out, latent,
		globalSize), src)
	if err != nil {
		return nil, errors.Wrap(err, "newGraphNetwork")
	}

	g := &GraphNetwork{
		Name:  name,
		Edges: &EdgeBlock{EdgeBlockOptions: opts.Edge, Fn: edgeFn},
		Nodes: &NodeBlock{NodeBlockOptions: opts.Node, Fn: nodeFn},
	}

	if opts.UpdateGlobals {
		globalFn, err := fn.New(name+"/global", opts.Global.InSize(out, out,
			globalSize), src)
		if err != nil {
			return nil, errors.Wrap(err, "newGraphNetwork")
		}
		g.Global = &GlobalBlock{GlobalBlockOptions: opts.Global, Fn: globalFn}
	}
	return g, nil
}

// Fwd adds one hop of message passing over l to c
func (g *GraphNetwork) Fwd(c *network.Context, l *Latent) (*Latent, error) {
	l, err := g.Edges.Fwd(c, l)
	if err != nil {
		return nil, errors.Wrapf(err, "fwd: %v", g.Name)
	}
	l, err = g.Nodes.Fwd(c, l)
	if err != nil {
		return nil, errors.Wrapf(err, "fwd: %v", g.Name)
	}

	if g.Global == nil {
		return l, nil
	}
	l, err = g.Global.Fwd(c, l)
	if err != nil {
		return nil, errors.Wrapf(err, "fwd: %v", g.Name)
	}
	return l, nil
}

// Params returns the parameters of all blocks
func (g *GraphNetwork) Params() []*network.Param {
	var fns = []network.Transform{g.Edges.Fn, g.Nodes.Fn}
	if g.Global != nil {
		fns = append(fns, g.Global.Fn)
	}
	return params(fns...)
}
