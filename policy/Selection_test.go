package policy

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/environment"
	"github.com/samuelfneumann/rlcomm/gnn"
	"github.com/samuelfneumann/rlcomm/graphs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// pdefenseObs returns rows random observations of p with a random
// communication graph
func pdefenseObs(p environment.PDefense, rows int, seed uint64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	nA := p.NumAgents

	obs := mat.NewDense(rows, p.Size(), nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < p.Size(); j++ {
			if j < nA*nA {
				obs.Set(i, j, float64(rng.Intn(2)))
			} else {
				obs.Set(i, j, rng.Float64()*2-1)
			}
		}
	}
	return obs
}

func TestActionEdgesPDefense(t *testing.T) {
	for _, size := range []struct{ agents, targets int }{
		{1, 1}, {2, 3}, {3, 2}, {4, 4},
	} {
		p := environment.NewPDefense(size.agents, size.targets)
		batch, err := p.Unpack(pdefenseObs(p, 3, 7))
		require.NoError(t, err)

		sel, err := ActionEdges(batch, 0, p.ActionSpace())
		require.NoError(t, err)

		n := size.agents * size.targets
		assert.Equal(t, n, sel.Width)
		assert.Equal(t, 3*n, sel.Len())
		assert.Equal(t, batch.NumEdges(), sel.NumEdges)

		nodeOffsets := batch.NodeOffsets()
		for g := 0; g < 3; g++ {
			for j := 0; j < n; j++ {
				e := sel.Edges[g*n+j]
				agent, target := j/size.targets, j%size.targets
				assert.Equal(t, nodeOffsets[g]+agent, batch.Senders[e])
				assert.Equal(t, nodeOffsets[g]+size.agents+target,
					batch.Receivers[e])
			}
		}
	}
}

func TestActionEdgesOrder(t *testing.T) {
	// Action edges are listed out of order, around an edge between the
	// uncontrolled nodes
	g := graphs.Graph{
		Nodes: &graphs.Features{Rows: 3, Cols: 2,
			Data: []float64{1, 0, 0, 1, 0, 2}},
		Edges:     graphs.ZeroFeatures(3, 1),
		Senders:   []int{0, 1, 0},
		Receivers: []int{2, 2, 1},
	}
	batch, err := graphs.FromGraphs([]graphs.Graph{g, g})
	require.NoError(t, err)

	sel, err := ActionEdges(batch, 0, environment.NewDiscrete(2))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 5, 3}, sel.Edges)

	m := sel.Matrix()
	assert.Equal(t, []int{4, 6}, []int(m.Shape()))
	assert.Equal(t, []float64{
		0, 0, 1, 0, 0, 0,
		1, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 1,
		0, 0, 0, 1, 0, 0,
	}, m.Data())
}

func TestActionEdgesMismatch(t *testing.T) {
	p := environment.NewPDefense(2, 2)
	batch, err := p.Unpack(pdefenseObs(p, 2, 3))
	require.NoError(t, err)

	for name, space := range map[string]environment.ActionSpace{
		"too many logits":  environment.NewDiscrete(5),
		"too few logits":   environment.NewDiscrete(3),
		"wrong owners":     environment.NewMultiDiscrete(3, 1),
		"too many agents":  environment.NewMultiDiscrete(1, 1, 2),
		"invalid space":    environment.NewMultiDiscrete(),
		"no choices":       environment.NewDiscrete(0),
		"unknown":          {Cardinality: "Box", N: []int{4}},
		"one agent of two": environment.NewMultiDiscrete(4),
	} {
		_, err := ActionEdges(batch, 0, space)
		assert.True(t, errors.Is(err, gnn.ErrConfiguration), name)
	}

	// A flat space over every action edge is valid
	_, err = ActionEdges(batch, 0, environment.NewDiscrete(4))
	assert.NoError(t, err)

	_, err = ActionEdges(batch, p.NodeSize(), p.ActionSpace())
	assert.True(t, errors.Is(err, gnn.ErrConfiguration))
}
