package network

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/graphs"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Context is the computational graph of a single forward pass.
//
// Layers add their operations to a Context rather than to a graph of
// their own. A Param is bound to at most one node per Context, so a
// layer applied several times in the same forward pass reuses the same
// learnable node, and gradients with respect to that node accumulate
// over every application.
type Context struct {
	g     *G.ExprGraph
	bound map[*Param]*G.Node
	order []*Param
	count int

	vm G.VM
}

// NewContext returns a new, empty Context
func NewContext() *Context {
	return &Context{
		g:     G.NewGraph(),
		bound: make(map[*Param]*G.Node),
	}
}

// Graph returns the computational graph of the Context
func (c *Context) Graph() *G.ExprGraph {
	return c.g
}

// name makes node names unique within the graph
func (c *Context) name(name string) string {
	c.count++
	return fmt.Sprintf("%s#%d", name, c.count)
}

// Bind returns the node holding p in the Context, adding it if needed
func (c *Context) Bind(p *Param) *G.Node {
	if n, ok := c.bound[p]; ok {
		return n
	}

	n := G.NewMatrix(
		c.g,
		tensor.Float64,
		G.WithShape(p.Shape()...),
		G.WithName(c.name(p.Name())),
		G.WithValue(p.Value()),
	)
	c.bound[p] = n
	c.order = append(c.order, p)
	return n
}

// Params returns the Params bound in the Context, in binding order
func (c *Context) Params() []*Param {
	return append([]*Param(nil), c.order...)
}

// Learnables returns the learnable nodes of the Context, in the order
// of Params()
func (c *Context) Learnables() G.Nodes {
	learnables := make(G.Nodes, len(c.order))
	for i, p := range c.order {
		learnables[i] = c.bound[p]
	}
	return learnables
}

// Input adds a constant matrix input to the Context
func (c *Context) Input(name string, value *tensor.Dense) *G.Node {
	return G.NewMatrix(
		c.g,
		tensor.Float64,
		G.WithShape(value.Shape()...),
		G.WithName(c.name(name)),
		G.WithValue(value),
	)
}

// Features adds a block of features as an input, or returns nil if
// there are no rows
func (c *Context) Features(name string, f *graphs.Features) *G.Node {
	if f == nil || f.Rows == 0 {
		return nil
	}
	return c.Input(name, f.Tensor())
}

// Zeros adds a rows x cols matrix of zeroes
func (c *Context) Zeros(name string, rows, cols int) *G.Node {
	value := tensor.New(
		tensor.WithShape(rows, cols),
		tensor.WithBacking(make([]float64, rows*cols)),
	)
	return c.Input(name, value)
}

// Run computes every node of the Context. It may be called again after
// inputs are changed with G.Let.
func (c *Context) Run() error {
	if c.vm == nil {
		c.vm = G.NewTapeMachine(c.g)
	} else {
		c.vm.Reset()
	}

	if err := c.vm.RunAll(); err != nil {
		return errors.Wrap(err, "run: could not compute forward pass")
	}
	return nil
}

// Close releases the resources of the Context
func (c *Context) Close() error {
	if c.vm == nil {
		return nil
	}
	return c.vm.Close()
}

// Value returns the computed value of n as a row-major slice. Run must
// be called first.
func Value(n *G.Node) ([]float64, error) {
	v := n.Value()
	if v == nil {
		return nil, errors.Errorf("value: node %v has not been computed",
			n.Name())
	}

	switch data := v.Data().(type) {
	case []float64:
		out := make([]float64, len(data))
		copy(out, data)
		return out, nil
	case float64:
		return []float64{data}, nil
	default:
		return nil, errors.Errorf("value: node %v holds %T, want float64",
			n.Name(), data)
	}
}

// ReadFeatures returns the computed value of a matrix node as Features.
// A nil node yields an empty block of width cols.
func ReadFeatures(n *G.Node, cols int) (*graphs.Features, error) {
	if n == nil {
		return graphs.ZeroFeatures(0, cols), nil
	}

	data, err := Value(n)
	if err != nil {
		return nil, err
	}
	shape := n.Shape()
	if len(shape) != 2 {
		return nil, errors.Errorf("readFeatures: node %v has shape %v, "+
			"want a matrix", n.Name(), shape)
	}
	return graphs.NewFeatures(shape[0], shape[1], data)
}
