package op

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func run(t *testing.T, g *G.ExprGraph) {
	vm := G.NewTapeMachine(g)
	defer vm.Close()
	require.NoError(t, vm.RunAll())
}

func matrix(g *G.ExprGraph, name string, rows, cols int, data []float64) *G.Node {
	return G.NewMatrix(g, tensor.Float64, G.WithShape(rows, cols),
		G.WithName(name), G.WithValue(tensor.New(
			tensor.WithShape(rows, cols), tensor.WithBacking(data))))
}

func TestLogSumExp(t *testing.T) {
	data := []float64{1, 2, 3, 1000, 1001, 999}
	g := G.NewGraph()
	logits := matrix(g, "logits", 2, 3, data)
	lse := LogSumExp(logits)
	logProbs := LogSoftmax(logits)
	run(t, g)

	assert.Equal(t, []int{2, 1}, []int(lse.Shape()))
	got := lse.Value().Data().([]float64)
	assert.InDelta(t, floats.LogSumExp(data[:3]), got[0], 1e-9)
	assert.InDelta(t, floats.LogSumExp(data[3:]), got[1], 1e-9)

	probs := logProbs.Value().Data().([]float64)
	for row := 0; row < 2; row++ {
		assert.InDelta(t, 0.0, floats.LogSumExp(probs[row*3:row*3+3]), 1e-9)
	}
}

func TestLayerNorm(t *testing.T) {
	g := G.NewGraph()
	x := matrix(g, "x", 2, 4, []float64{1, 2, 3, 4, -2, -2, 6, 6})
	normed, err := LayerNorm(x, 1e-12)
	require.NoError(t, err)
	run(t, g)

	got := normed.Value().Data().([]float64)
	s := 1 / 1.118033988749895
	assert.InDeltaSlice(t, []float64{-1.5 * s, -0.5 * s, 0.5 * s, 1.5 * s,
		-1, -1, 1, 1}, got, 1e-6)
}

func TestConcat(t *testing.T) {
	g := G.NewGraph()
	a := matrix(g, "a", 2, 1, []float64{1, 2})
	b := matrix(g, "b", 2, 2, []float64{3, 4, 5, 6})

	none, err := Concat(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	single, err := Concat(nil, a)
	require.NoError(t, err)
	assert.Same(t, a, single)

	both, err := Concat(a, nil, b)
	require.NoError(t, err)
	run(t, g)
	assert.Equal(t, []float64{1, 3, 4, 2, 5, 6}, both.Value().Data())
}
