package graphs

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFeatures(t *testing.T, rows, cols int, data ...float64) *Features {
	t.Helper()
	f, err := NewFeatures(rows, cols, data)
	require.NoError(t, err)
	return f
}

// twoGraphs returns a 3-node, 2-edge graph and a 2-node graph with no
// edges
func twoGraphs(t *testing.T) []Graph {
	return []Graph{
		{
			Nodes:     mustFeatures(t, 3, 2, 1, 2, 3, 4, 5, 6),
			Edges:     mustFeatures(t, 2, 1, 10, 20),
			Globals:   []float64{100},
			Senders:   []int{0, 1},
			Receivers: []int{1, 2},
		},
		{
			Nodes:     mustFeatures(t, 2, 2, 7, 8, 9, 10),
			Globals:   []float64{200},
			Senders:   []int{},
			Receivers: []int{},
		},
	}
}

func TestFromGraphs(t *testing.T) {
	b, err := FromGraphs(twoGraphs(t))
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2}, b.NNode)
	assert.Equal(t, []int{2, 0}, b.NEdge)
	assert.Equal(t, []int{0, 1}, b.Senders)
	assert.Equal(t, []int{1, 2}, b.Receivers)
	assert.Equal(t, 5, b.Nodes.Rows)
	assert.Equal(t, []float64{10, 20}, b.Edges.Data)
	assert.Equal(t, []float64{100, 200}, b.Globals.Data)
	assert.Equal(t, []int{0, 3, 5}, b.NodeOffsets())
	assert.Equal(t, []int{0, 2, 2}, b.EdgeOffsets())
	assert.Equal(t, []int{0, 0, 0, 1, 1}, b.NodeGraphIndex())
	assert.Equal(t, []int{0, 0}, b.EdgeGraphIndex())
}

func TestFromGraphsOffsetsIndices(t *testing.T) {
	gs := twoGraphs(t)
	gs[0], gs[1] = gs[1], gs[0]

	b, err := FromGraphs(gs)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, b.Senders)
	assert.Equal(t, []int{3, 4}, b.Receivers)
	assert.Equal(t, []int{0, 2}, b.NEdge)
}

func TestFromGraphsAllEdgeless(t *testing.T) {
	gs := []Graph{
		{Nodes: mustFeatures(t, 1, 3, 1, 2, 3)},
		{Nodes: mustFeatures(t, 1, 3, 4, 5, 6)},
	}
	b, err := FromGraphs(gs)
	require.NoError(t, err)
	assert.Nil(t, b.Edges)
	assert.Empty(t, b.Senders)
	assert.Equal(t, []int{0, 0}, b.NEdge)
	assert.Nil(t, b.SenderGather())
	assert.Nil(t, b.ReceiverScatter())
}

func TestSplit(t *testing.T) {
	gs := twoGraphs(t)
	b, err := FromGraphs(gs)
	require.NoError(t, err)

	split := b.Split()
	require.Len(t, split, 2)
	for i := range gs {
		assert.Equal(t, gs[i].Nodes.Data, split[i].Nodes.Data)
		assert.Equal(t, gs[i].Senders, split[i].Senders)
		assert.Equal(t, gs[i].Receivers, split[i].Receivers)
		assert.Equal(t, gs[i].Globals, split[i].Globals)
	}
	assert.Equal(t, 0, split[1].Edges.Rows)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(b *GraphBatch){
		"node count": func(b *GraphBatch) { b.NNode[0] = 4 },
		"edge count": func(b *GraphBatch) { b.NEdge[1] = 1 },
		"cross graph edge": func(b *GraphBatch) {
			b.Receivers[1] = 3
		},
		"globals": func(b *GraphBatch) {
			b.Globals = ZeroFeatures(1, 1)
		},
		"edge features": func(b *GraphBatch) {
			b.Edges = ZeroFeatures(3, 1)
		},
		"no graphs": func(b *GraphBatch) {
			b.NNode, b.NEdge = nil, nil
		},
		"bad data": func(b *GraphBatch) {
			b.Nodes.Data = b.Nodes.Data[1:]
		},
	}

	for name, corrupt := range tests {
		t.Run(name, func(t *testing.T) {
			b, err := FromGraphs(twoGraphs(t))
			require.NoError(t, err)

			corrupt(b)
			err = b.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrShapeMismatch), err.Error())
		})
	}
}

func TestWithFeaturesCopiesTopology(t *testing.T) {
	b, err := FromGraphs(twoGraphs(t))
	require.NoError(t, err)

	c := b.WithFeatures(ZeroFeatures(5, 4), nil, nil)
	c.Senders[0] = 2
	c.NNode[0] = 10
	assert.Equal(t, 0, b.Senders[0])
	assert.Equal(t, 3, b.NNode[0])
	assert.Equal(t, 2, b.Nodes.Cols)
}

func TestIncidence(t *testing.T) {
	b, err := FromGraphs(twoGraphs(t))
	require.NoError(t, err)

	s := b.SenderGather()
	assert.Equal(t, []int{2, 5}, []int(s.Shape()))
	assert.Equal(t, []float64{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
	}, s.Data())

	r := b.ReceiverScatter()
	assert.Equal(t, []int{5, 2}, []int(r.Shape()))
	assert.Equal(t, []float64{
		0, 0,
		1, 0,
		0, 1,
		0, 0,
		0, 0,
	}, r.Data())

	m := b.NodeMembership()
	assert.Equal(t, []float64{
		1, 1, 1, 0, 0,
		0, 0, 0, 1, 1,
	}, m.Data())

	e := b.EdgeBroadcast()
	assert.Equal(t, []float64{
		1, 0,
		1, 0,
	}, e.Data())
}

func TestConcatCols(t *testing.T) {
	a := mustFeatures(t, 2, 1, 1, 2)
	c := mustFeatures(t, 2, 2, 3, 4, 5, 6)
	out, err := ConcatCols(a, c)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Cols)
	assert.Equal(t, []float64{1, 3, 4, 2, 5, 6}, out.Data)

	_, err = ConcatCols(a, mustFeatures(t, 1, 1, 0))
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}
