package environment

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/graphs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLayoutPackUnpack(t *testing.T) {
	l := Layout{MaxNodes: 4, MaxEdges: 3, NodeSize: 2, EdgeSize: 1,
		GlobalSize: 1}
	require.NoError(t, l.Validate())
	assert.Equal(t, 2+8+3+3+3+1, l.Size())

	g0 := graphs.Graph{
		Nodes:     &graphs.Features{Rows: 2, Cols: 2, Data: []float64{1, 2, 3, 4}},
		Edges:     &graphs.Features{Rows: 1, Cols: 1, Data: []float64{5}},
		Globals:   []float64{6},
		Senders:   []int{1},
		Receivers: []int{0},
	}
	g1 := graphs.Graph{
		Nodes:   &graphs.Features{Rows: 1, Cols: 2, Data: []float64{7, 8}},
		Edges:   &graphs.Features{Rows: 0, Cols: 1},
		Globals: []float64{9},
	}

	r0, err := l.Pack(g0)
	require.NoError(t, err)
	r1, err := l.Pack(g1)
	require.NoError(t, err)

	obs := mat.NewDense(2, l.Size(), append(r0, r1...))
	b, err := l.Unpack(obs)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 1}, b.NNode)
	assert.Equal(t, []int{1, 0}, b.NEdge)
	assert.Equal(t, []float64{1, 2, 3, 4, 7, 8}, b.Nodes.Data)
	assert.Equal(t, []float64{5}, b.Edges.Data)
	assert.Equal(t, []float64{6, 9}, b.Globals.Data)
	assert.Equal(t, []int{1}, b.Senders)
	assert.Equal(t, []int{0}, b.Receivers)
}

func TestLayoutUnpackErrors(t *testing.T) {
	l := Layout{MaxNodes: 2, MaxEdges: 1, NodeSize: 1}

	_, err := l.Unpack(mat.NewDense(1, l.Size()+1, nil))
	assert.True(t, errors.Is(err, graphs.ErrShapeMismatch))

	// Too many nodes
	row := make([]float64, l.Size())
	row[0] = 3
	_, err = l.Unpack(mat.NewDense(1, l.Size(), row))
	assert.True(t, errors.Is(err, graphs.ErrShapeMismatch))

	// Receiver outside of the graph
	row = make([]float64, l.Size())
	row[0], row[1] = 1, 1
	_, _, _, receivers, _ := l.offsets()
	row[receivers] = 1
	_, err = l.Unpack(mat.NewDense(1, l.Size(), row))
	assert.True(t, errors.Is(err, graphs.ErrShapeMismatch))
}

func TestPDefense(t *testing.T) {
	p := NewPDefense(2, 3)
	require.NoError(t, p.Validate())
	nA, nT := 2, 3
	assert.Equal(t, nA*nA+nA*1+nA*nT+nT*2+nA*nT*2, p.Size())

	row := make([]float64, p.Size())
	// comm_adj: agent 0 talks to agent 1 only
	row[1] = 1
	// agent data
	row[4], row[5] = 0.5, 0.25
	// obs_adj: agent 1 sees target 2
	row[6+5] = 1
	// target data for target 0
	row[12], row[13] = -1, -2
	// obs data for (agent 1, target 2), the last pair
	row[p.Size()-2], row[p.Size()-1] = 3, 4

	b, err := p.Unpack(mat.NewDense(1, p.Size(), row))
	require.NoError(t, err)

	assert.Equal(t, []int{5}, b.NNode)
	assert.Equal(t, []int{1 + nA*nT}, b.NEdge)
	assert.Equal(t, 3, b.Nodes.Cols)
	assert.Equal(t, []float64{1, 0.5, 0}, b.Nodes.Row(0))
	assert.Equal(t, []float64{1, 0.25, 0}, b.Nodes.Row(1))
	assert.Equal(t, []float64{0, -1, -2}, b.Nodes.Row(2))

	// Communication edge first, then agent-major observation edges
	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1}, b.Senders)
	assert.Equal(t, []int{1, 2, 3, 4, 2, 3, 4}, b.Receivers)
	assert.Equal(t, []float64{0, 1, 0, 0}, b.Edges.Row(0))
	assert.Equal(t, []float64{1, 1, 3, 4}, b.Edges.Row(6))

	space := p.ActionSpace()
	assert.Equal(t, MultiDiscrete, space.Cardinality)
	assert.Equal(t, 6, space.Size())
}

func TestActionSpaceValidate(t *testing.T) {
	assert.NoError(t, NewDiscrete(4).Validate())
	assert.NoError(t, NewMultiDiscrete(2, 3).Validate())
	assert.Error(t, NewDiscrete(0).Validate())
	assert.Error(t, ActionSpace{Cardinality: Discrete, N: []int{1, 2}}.Validate())
	assert.Error(t, NewMultiDiscrete().Validate())
	assert.Equal(t, "Discrete(4)", NewDiscrete(4).String())
}

func TestCentralized(t *testing.T) {
	c := Centralized{NewPDefense(2, 1)}
	// agent data 2, obs data 2 pairs of 2
	assert.Equal(t, 2+4, c.NodeSize())

	row := make([]float64, c.Size())
	for i := range row {
		row[i] = float64(i)
	}
	// comm_adj 4, agent data 2, obs_adj 2, target data 2, obs data 4
	b, err := c.Unpack(mat.NewDense(2, c.Size(), append(row, row...)))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1}, b.NNode)
	assert.Equal(t, []int{0, 0}, b.NEdge)
	assert.Equal(t, 0, b.NumEdges())
	assert.Equal(t, []float64{4, 5, 10, 11, 12, 13}, b.Nodes.Row(0))
	assert.Equal(t, b.Nodes.Row(0), b.Nodes.Row(1))
}

func TestPDefenseStarter(t *testing.T) {
	p := NewPDefense(3, 2)
	s := p.Starter(4)
	assert.Equal(t, p.Size(), s.Size())

	obs := s.Start(5)
	r, c := obs.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, p.Size(), c)

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := obs.At(i, j)
			if j < 9 {
				assert.True(t, v == 0 || v == 1, "comm_adj %v", v)
			} else {
				assert.True(t, v >= -1 && v <= 1)
			}
		}
	}

	// The same seed draws the same observations
	assert.True(t, mat.Equal(obs, p.Starter(4).Start(5)))

	b, err := p.Unpack(obs)
	require.NoError(t, err)
	assert.Equal(t, 5, b.NumGraphs())
}
