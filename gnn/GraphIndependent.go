package gnn

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/network"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
)

// GraphIndependent applies separate transforms to the edges, nodes and
// globals of a Latent with no message passing between them. A nil
// transform leaves its features unchanged.
type GraphIndependent struct {
	Name   string
	Edge   network.Transform
	Node   network.Transform
	Global network.Transform
}

// NewGraphIndependent creates a GraphIndependent whose transforms are
// created from the given configurations. A nil configuration or an
// input size of 0 disables the corresponding transform.
func NewGraphIndependent(name string, edge, node, global *network.Config,
	edgeIn, nodeIn, globalIn int, src rand.Source) (*GraphIndependent, error) {
	create := func(kind string, c *network.Config, in int) (
		network.Transform, error) {
		if c == nil || in == 0 {
			return nil, nil
		}
		return c.New(fmt.Sprintf("%s/%s", name, kind), in, src)
	}

	var err error
	g := &GraphIndependent{Name: name}
	if g.Edge, err = create("edge", edge, edgeIn); err != nil {
		return nil, err
	}
	if g.Node, err = create("node", node, nodeIn); err != nil {
		return nil, err
	}
	if g.Global, err = create("global", global, globalIn); err != nil {
		return nil, err
	}
	return g, nil
}

// Fwd adds the transforms of the GraphIndependent on l to c
func (g *GraphIndependent) Fwd(c *network.Context, l *Latent) (*Latent,
	error) {
	edges, edgeSize, err := apply(c, g.Edge, l.Edges, l.EdgeSize)
	if err != nil {
		return nil, errors.Wrapf(err, "fwd: %v edges", g.Name)
	}
	nodes, nodeSize, err := apply(c, g.Node, l.Nodes, l.NodeSize)
	if err != nil {
		return nil, errors.Wrapf(err, "fwd: %v nodes", g.Name)
	}
	globals, globalSize, err := apply(c, g.Global, l.Globals, l.GlobalSize)
	if err != nil {
		return nil, errors.Wrapf(err, "fwd: %v globals", g.Name)
	}

	if l.Globals == nil {
		globalSize = 0
	}
	return l.with(nodes, edges, globals, nodeSize, edgeSize, globalSize), nil
}

// Params returns the parameters of all transforms
func (g *GraphIndependent) Params() []*network.Param {
	return params(g.Edge, g.Node, g.Global)
}

// apply applies fn to x if both are present. An absent x of known width
// keeps its place with the output width of fn.
func apply(c *network.Context, fn network.Transform, x *G.Node,
	size int) (*G.Node, int, error) {
	if fn == nil {
		return x, size, nil
	}
	if x == nil {
		if size == 0 {
			return nil, 0, nil
		}
		return nil, fn.OutSize(), nil
	}

	out, err := fn.Fwd(c, x)
	if err != nil {
		return nil, 0, err
	}
	return out, fn.OutSize(), nil
}

// params collects the parameters of the non-nil transforms
func params(fns ...network.Transform) []*network.Param {
	var out []*network.Param
	for _, fn := range fns {
		if fn != nil {
			out = append(out, fn.Params()...)
		}
	}
	return out
}
