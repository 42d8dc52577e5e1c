// Package network implements learned transforms of feature matrices:
// multi-layered perceptrons and linear projections.
//
// A transform owns its parameters. Applying a transform adds operations
// to a Context, so the same transform may be applied any number of
// times, in any number of forward passes, without ever copying or
// modifying its parameters.
package network

import (
	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/graphs"
	G "gorgonia.org/gorgonia"
)

// Transform is a learned function applied independently to each row of
// a feature matrix
type Transform interface {
	// Fwd adds the forward pass of the Transform on the rows of x to
	// the Context and returns the output node
	Fwd(c *Context, x *G.Node) (*G.Node, error)

	// InSize returns the number of input features
	InSize() int

	// OutSize returns the number of output features
	OutSize() int

	// Params returns the parameters owned by the Transform
	Params() []*Param
}

// checkInput ensures x is a matrix of in columns
func checkInput(x *G.Node, in int) error {
	if x == nil {
		return errors.Wrap(graphs.ErrShapeMismatch, "fwd: nil input")
	}
	if !x.IsMatrix() {
		return errors.Wrapf(graphs.ErrShapeMismatch, "fwd: input must be a "+
			"matrix but has shape %v", x.Shape())
	}
	if cols := x.Shape()[1]; cols != in {
		return errors.Wrapf(graphs.ErrShapeMismatch, "fwd: invalid number "+
			"of input features\n\twant(%d)\n\thave(%d)", in, cols)
	}
	return nil
}
