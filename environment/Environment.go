// Package environment describes the observations and actions of the
// multi-agent coordination environments and unpacks their flat, fixed
// layout observations into batches of graphs.
//
// The environments themselves run elsewhere; this package only knows
// the layout of what they emit.
package environment

import (
	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/graphs"
	"gonum.org/v1/gonum/mat"
)

// Unpacker converts a batch of flat observations into a GraphBatch.
// Each row of the observation matrix is the observation of one
// environment and becomes one graph of the batch.
type Unpacker interface {
	// Size returns the number of values in a single observation
	Size() int

	// Widths returns the feature widths of the unpacked graphs
	Widths() Widths

	// Unpack converts each row of obs into a graph
	Unpack(obs mat.Matrix) (*graphs.GraphBatch, error)
}

// Widths holds the widths of the node, edge and global features of a
// GraphBatch. A width of 0 means the features are absent.
type Widths struct {
	Node   int
	Edge   int
	Global int
}

// ActionSpacer is implemented by layouts whose action space follows
// from the layout itself
type ActionSpacer interface {
	ActionSpace() ActionSpace
}

// Packer converts single graphs into flat observations
type Packer interface {
	Unpacker
	Pack(g graphs.Graph) ([]float64, error)
}

// checkRows ensures obs has the row width expected by an Unpacker and at
// least one row.
func checkRows(u Unpacker, obs mat.Matrix) (int, error) {
	r, c := obs.Dims()
	if c != u.Size() {
		return 0, errors.Wrapf(graphs.ErrShapeMismatch, "unpack: invalid "+
			"observation size \n\twant(%d)\n\thave(%d)", u.Size(), c)
	}
	if r == 0 {
		return 0, errors.Wrap(graphs.ErrShapeMismatch, "unpack: no "+
			"observations")
	}
	return r, nil
}

// count converts a float stored in an observation to a non-negative
// integer count or index
func count(v float64, name string, max int) (int, error) {
	n := int(v)
	if float64(n) != v || n < 0 || n > max {
		return 0, errors.Wrapf(graphs.ErrShapeMismatch, "unpack: invalid %s "+
			"%v, must be an integer in [0, %d]", name, v, max)
	}
	return n, nil
}
