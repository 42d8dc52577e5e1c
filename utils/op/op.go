// Package op provides extended Gorgonia graph operations.
//
// Reductions in this package keep the reduced axis, so that a row-wise
// reduction of an N x D matrix is an N x 1 matrix which can be
// broadcast back over the D columns.
package op

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// LogSumExp calculates the log of the summation of exponentials of
// all logits along each row. The result of an N x D input is N x 1.
//
// Use this in place of Gorgonia's LogSumExp, which has the final sum
// and log interchanged, which is incorrect.
func LogSumExp(logits *G.Node) *G.Node {
	max := RowMax(logits)

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := keepRows(G.Must(G.Sum(exponent, 1)), logits)
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// LogSoftmax returns logits normalised along each row so that the
// exponentials of each row sum to one
func LogSoftmax(logits *G.Node) *G.Node {
	return G.Must(G.BroadcastSub(logits, LogSumExp(logits), nil, []byte{1}))
}

// RowMax returns the maximum of each row of an N x D matrix as an
// N x 1 matrix
func RowMax(x *G.Node) *G.Node {
	return keepRows(G.Must(G.Max(x, 1)), x)
}

// RowMean returns the mean of each row of an N x D matrix as an N x 1
// matrix
func RowMean(x *G.Node) *G.Node {
	return keepRows(G.Must(G.Mean(x, 1)), x)
}

// keepRows reshapes a row-wise reduction of x to a column matrix
func keepRows(reduced, x *G.Node) *G.Node {
	return G.Must(G.Reshape(reduced, []int{x.Shape()[0], 1}))
}

// LayerNorm normalises each row of x to zero mean and unit variance.
// The variance is offset by eps before its square root is taken.
func LayerNorm(x *G.Node, eps float64) (*G.Node, error) {
	if !x.IsMatrix() {
		return nil, errors.Errorf("layerNorm: expected a matrix but got "+
			"shape %v", x.Shape())
	}

	centered, err := G.BroadcastSub(x, RowMean(x), nil, []byte{1})
	if err != nil {
		return nil, errors.Wrap(err, "layerNorm: could not center rows")
	}

	squared, err := G.Square(centered)
	if err != nil {
		return nil, errors.Wrap(err, "layerNorm: could not square")
	}
	variance := RowMean(squared)
	variance, err = G.Add(variance, G.NewConstant(eps))
	if err != nil {
		return nil, errors.Wrap(err, "layerNorm: could not offset variance")
	}
	std, err := G.Sqrt(variance)
	if err != nil {
		return nil, errors.Wrap(err, "layerNorm: could not compute std")
	}

	return G.BroadcastHadamardDiv(centered, std, nil, []byte{1})
}

// Concat concatenates nodes along the feature (column) dimension,
// skipping nil nodes. It returns nil if every node is nil.
func Concat(nodes ...*G.Node) (*G.Node, error) {
	var present G.Nodes
	for _, n := range nodes {
		if n != nil {
			present = append(present, n)
		}
	}

	switch len(present) {
	case 0:
		return nil, nil
	case 1:
		return present[0], nil
	default:
		return G.Concat(1, present...)
	}
}
