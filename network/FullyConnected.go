package network

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/initwfn"
	"github.com/samuelfneumann/rlcomm/utils/op"
	G "gorgonia.org/gorgonia"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *Param
	bias    *Param
	act     *Activation
}

// newFCLayer returns a new in -> out fully connected layer. If biasInit
// is nil, the layer has no bias.
func newFCLayer(name string, in, out int, init, biasInit G.InitWFn,
	act *Activation) *fcLayer {
	layer := &fcLayer{
		weights: NewParam(name+"/w", in, out, init),
		act:     act,
	}
	if biasInit != nil {
		layer.bias = NewParam(name+"/b", 1, out, biasInit)
	}
	return layer
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(c *Context, x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, c.Bind(f.weights))
	if err != nil {
		return nil, errors.Wrapf(err, "fwd: could not apply %v", f.weights)
	}

	if f.bias != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x, err = G.BroadcastAdd(x, c.Bind(f.bias), nil, []byte{0})
		if err != nil {
			return nil, errors.Wrapf(err, "fwd: could not apply %v", f.bias)
		}
	}
	return f.act.fwd(x)
}

func (f *fcLayer) params() []*Param {
	if f.bias == nil {
		return []*Param{f.weights}
	}
	return []*Param{f.weights, f.bias}
}

func (f *fcLayer) outSize() int {
	return f.weights.Shape()[1]
}

// layerNorm implements a learned layer normalisation over the feature
// (column) dimension
type layerNorm struct {
	gamma *Param
	beta  *Param
	eps   float64
}

func newLayerNorm(name string, size int) *layerNorm {
	return &layerNorm{
		gamma: NewParam(name+"/gamma", 1, size, initwfn.NewOnes().InitWFn(nil)),
		beta:  NewParam(name+"/beta", 1, size, initwfn.NewZeroes().InitWFn(nil)),
		eps:   layerNormEps,
	}
}

// layerNormEps is the variance epsilon of layer normalisation
const layerNormEps = 1e-5

func (l *layerNorm) fwd(c *Context, x *G.Node) (*G.Node, error) {
	normed, err := op.LayerNorm(x, l.eps)
	if err != nil {
		return nil, err
	}

	scaled, err := G.BroadcastHadamardProd(normed, c.Bind(l.gamma), nil,
		[]byte{0})
	if err != nil {
		return nil, errors.Wrap(err, "fwd: could not scale layer norm")
	}
	return G.BroadcastAdd(scaled, c.Bind(l.beta), nil, []byte{0})
}

func (l *layerNorm) params() []*Param {
	return []*Param{l.gamma, l.beta}
}

func (l *layerNorm) String() string {
	return fmt.Sprintf("LayerNorm(%d)", l.gamma.Shape()[1])
}
