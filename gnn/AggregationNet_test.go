package gnn

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/graphs"
	"github.com/samuelfneumann/rlcomm/network"
	"github.com/samuelfneumann/rlcomm/utils/op"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// features returns rows x cols deterministic, non-trivial features
func features(t *testing.T, rows, cols int, seed float64) *graphs.Features {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = math.Sin(seed + float64(i)*0.7)
	}
	f, err := graphs.NewFeatures(rows, cols, data)
	require.NoError(t, err)
	return f
}

// pair returns the graph of two nodes with features of width 4 and a
// single edge from node 0 to node 1 with features of width 2
func pair(t *testing.T, seed float64) graphs.Graph {
	return graphs.Graph{
		Nodes:     features(t, 2, 4, seed),
		Edges:     features(t, 1, 2, seed+10),
		Senders:   []int{0},
		Receivers: []int{1},
	}
}

func pairConfig() Config {
	return Config{
		Variant:            Shared,
		NumProcessingSteps: 1,
		LatentSize:         8,
		NumLayers:          2,
		CoreType:           network.MLPType,
		NodeInputSize:      4,
		EdgeInputSize:      2,
		EdgeOutputSize:     3,
		NodeOutputSize:     5,
	}
}

func noNaN(t *testing.T, f *graphs.Features) {
	require.NotNil(t, f)
	for _, v := range f.Data {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestEndToEndPair(t *testing.T) {
	net, err := New("net", pairConfig(), rand.NewSource(1))
	require.NoError(t, err)

	batch, err := graphs.FromGraphs([]graphs.Graph{pair(t, 0)})
	require.NoError(t, err)
	out, err := net.Apply(batch)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Nodes.Rows)
	assert.Equal(t, 5, out.Nodes.Cols)
	assert.Equal(t, 1, out.Edges.Rows)
	assert.Equal(t, 3, out.Edges.Cols)
	assert.Nil(t, out.Globals)
	noNaN(t, out.Nodes)
	noNaN(t, out.Edges)

	// The same graph without its edge
	edgeless := pair(t, 0)
	edgeless.Edges = graphs.ZeroFeatures(0, 2)
	edgeless.Senders, edgeless.Receivers = nil, nil
	batch, err = graphs.FromGraphs([]graphs.Graph{edgeless})
	require.NoError(t, err)

	out, err = net.Apply(batch)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Nodes.Cols)
	assert.Equal(t, 0, out.Edges.Rows)
	assert.Equal(t, 3, out.Edges.Cols)
	noNaN(t, out.Nodes)
}

func TestCountsUnchanged(t *testing.T) {
	config := pairConfig()
	config.NumProcessingSteps = 3
	config.UseGlobals = true
	config.GlobalOutputSize = 2

	for _, variant := range []Variant{Shared, PerStep} {
		config.Variant = variant
		net, err := New("net", config, rand.NewSource(2))
		require.NoError(t, err)

		third := graphs.Graph{
			Nodes:     features(t, 3, 4, 7),
			Edges:     features(t, 3, 2, 8),
			Senders:   []int{0, 1, 2},
			Receivers: []int{1, 2, 0},
		}
		edgeless := graphs.Graph{Nodes: features(t, 1, 4, 9)}
		batch, err := graphs.FromGraphs([]graphs.Graph{pair(t, 0), edgeless,
			third})
		require.NoError(t, err)

		out, err := net.Apply(batch)
		require.NoError(t, err)
		require.NoError(t, out.Validate())

		assert.Equal(t, batch.NNode, out.NNode)
		assert.Equal(t, batch.NEdge, out.NEdge)
		assert.Equal(t, batch.Senders, out.Senders)
		assert.Equal(t, batch.Receivers, out.Receivers)
		assert.Equal(t, 5, out.Nodes.Cols)
		assert.Equal(t, 3, out.Edges.Cols)
		assert.Equal(t, 3, out.Globals.Rows)
		assert.Equal(t, 2, out.Globals.Cols)
		noNaN(t, out.Globals)
	}
}

func TestZeroEdgeNodeUpdate(t *testing.T) {
	const latent = 6
	core, err := NewGraphNetwork("core", network.LatentMLP(latent, 2), latent,
		CoreOptions(false, false), rand.NewSource(3))
	require.NoError(t, err)

	g := graphs.Graph{Nodes: features(t, 3, latent, 1)}
	batch, err := graphs.FromGraphs([]graphs.Graph{g})
	require.NoError(t, err)

	c := network.NewContext()
	defer c.Close()
	topology, err := NewTopology(c, batch)
	require.NoError(t, err)

	// Three hops over a batch without edges
	l := NewLatent(c, topology)
	hops := make([]*Latent, 3)
	for i := range hops {
		l, err = core.Fwd(c, l)
		require.NoError(t, err)
		assert.Nil(t, l.Edges)
		assert.Equal(t, latent, l.EdgeSize)
		hops[i] = l
	}

	// The node function evaluated with a zero aggregate
	x := c.Features("x", batch.Nodes)
	in, err := op.Concat(c.Zeros("zero", 3, latent), x)
	require.NoError(t, err)
	want, err := core.Nodes.Fn.Fwd(c, in)
	require.NoError(t, err)

	require.NoError(t, c.Run())
	for _, hop := range hops {
		out, err := hop.Read()
		require.NoError(t, err)
		noNaN(t, out.Nodes)
	}

	first, err := hops[0].Read()
	require.NoError(t, err)
	wantValues, err := network.Value(want)
	require.NoError(t, err)
	assert.InDeltaSlice(t, wantValues, first.Nodes.Data, 1e-12)
}

func TestGlobalsIndependentOfBatch(t *testing.T) {
	config := Config{
		Variant:            Shared,
		NumProcessingSteps: 2,
		LatentSize:         4,
		NumLayers:          2,
		CoreType:           network.MLPType,
		NodeInputSize:      3,
		GlobalOutputSize:   2,
		UseGlobals:         true,
	}
	net, err := New("value", config, rand.NewSource(4))
	require.NoError(t, err)

	const n = 4
	gs := make([]graphs.Graph, n)
	reversed := make([]graphs.Graph, n)
	for i := range gs {
		gs[i] = graphs.Graph{Nodes: features(t, 1, 3, float64(i))}
		reversed[n-1-i] = gs[i]
	}

	apply := func(gs ...graphs.Graph) *graphs.Features {
		batch, err := graphs.FromGraphs(gs)
		require.NoError(t, err)
		out, err := net.Apply(batch)
		require.NoError(t, err)
		return out.Globals
	}

	all := apply(gs...)
	rev := apply(reversed...)
	for i := range gs {
		single := apply(gs[i])
		assert.InDeltaSlice(t, single.Row(0), all.Row(i), 1e-9)
		assert.InDeltaSlice(t, all.Row(i), rev.Row(n-1-i), 1e-9)
	}
}

func TestSingleStepComposition(t *testing.T) {
	net, err := New("net", pairConfig(), rand.NewSource(5))
	require.NoError(t, err)
	require.Len(t, net.cores, 1)
	assert.Equal(t, net.config.LatentSize, net.aggregation.Node.InSize())
	assert.Equal(t, net.config.LatentSize, net.aggregation.Edge.InSize())

	batch, err := graphs.FromGraphs([]graphs.Graph{pair(t, 1), pair(t, 2)})
	require.NoError(t, err)
	got, err := net.Apply(batch)
	require.NoError(t, err)

	c := network.NewContext()
	defer c.Close()
	topology, err := NewTopology(c, batch)
	require.NoError(t, err)
	l, err := net.encode(c, NewLatent(c, topology))
	require.NoError(t, err)
	for _, stage := range []func(*network.Context, *Latent) (*Latent, error){
		net.cores[0].Fwd,
		net.decoder.Fwd,
		net.aggregation.Fwd,
		net.output.Fwd,
	} {
		l, err = stage(c, l)
		require.NoError(t, err)
	}
	require.NoError(t, c.Run())
	want, err := net.heads(l).Read()
	require.NoError(t, err)

	assert.InDeltaSlice(t, want.Nodes.Data, got.Nodes.Data, 1e-12)
	assert.InDeltaSlice(t, want.Edges.Data, got.Edges.Data, 1e-12)
}

func TestSharedCoreDeterministic(t *testing.T) {
	config := pairConfig()
	config.NumProcessingSteps = 4
	net, err := New("net", config, rand.NewSource(6))
	require.NoError(t, err)

	params := make([][]float64, 0)
	for _, p := range net.Params() {
		params = append(params, p.Data())
	}

	batch, err := graphs.FromGraphs([]graphs.Graph{pair(t, 3)})
	require.NoError(t, err)
	first, err := net.Apply(batch)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := net.Apply(batch)
		require.NoError(t, err)
		assert.Equal(t, first.Nodes.Data, again.Nodes.Data)
		assert.Equal(t, first.Edges.Data, again.Edges.Data)
	}

	for i, p := range net.Params() {
		assert.Equal(t, params[i], p.Data())
	}
}

func TestVariantsShareShapes(t *testing.T) {
	config := pairConfig()
	config.NumProcessingSteps = 5
	shared, err := New("shared", config, rand.NewSource(7))
	require.NoError(t, err)

	config.Variant = PerStep
	assert.Equal(t, DiffNetHops, config.HopSchedule())
	perStep, err := New("perstep", config, rand.NewSource(7))
	require.NoError(t, err)
	assert.Len(t, perStep.cores, 5)

	coreParams := network.NumParams(shared.cores[0].Params())
	assert.Equal(t, network.NumParams(shared.Params())+4*coreParams,
		network.NumParams(perStep.Params()))

	batch, err := graphs.FromGraphs([]graphs.Graph{pair(t, 4), pair(t, 5)})
	require.NoError(t, err)
	a, err := shared.Apply(batch)
	require.NoError(t, err)
	b, err := perStep.Apply(batch)
	require.NoError(t, err)

	assert.Equal(t, a.Nodes.Rows, b.Nodes.Rows)
	assert.Equal(t, a.Nodes.Cols, b.Nodes.Cols)
	assert.Equal(t, a.Edges.Rows, b.Edges.Rows)
	assert.Equal(t, a.Edges.Cols, b.Edges.Cols)
}

func TestLinearCore(t *testing.T) {
	config := pairConfig()
	config.CoreType = network.LinearType
	config.Hops = []int{3}
	net, err := New("net", config, rand.NewSource(8))
	require.NoError(t, err)

	batch, err := graphs.FromGraphs([]graphs.Graph{pair(t, 6)})
	require.NoError(t, err)
	out, err := net.Apply(batch)
	require.NoError(t, err)
	noNaN(t, out.Nodes)
	assert.False(t, floats.HasNaN(out.Edges.Data))
}

func TestInputMismatch(t *testing.T) {
	net, err := New("net", pairConfig(), rand.NewSource(9))
	require.NoError(t, err)

	wide := pair(t, 0)
	wide.Nodes = features(t, 2, 5, 0)
	batch, err := graphs.FromGraphs([]graphs.Graph{wide})
	require.NoError(t, err)
	_, err = net.Apply(batch)
	assert.True(t, errors.Is(err, graphs.ErrShapeMismatch))

	broken, err := graphs.FromGraphs([]graphs.Graph{pair(t, 0)})
	require.NoError(t, err)
	broken.NNode[0] = 3
	_, err = net.Apply(broken)
	assert.True(t, errors.Is(err, graphs.ErrShapeMismatch))
}

func TestConfigValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"no steps":          func(c *Config) { c.NumProcessingSteps = 0 },
		"hops length":       func(c *Config) { c.Hops = []int{1, 1} },
		"zero hops":         func(c *Config) { c.Hops = []int{0} },
		"no latent":         func(c *Config) { c.LatentSize = 0 },
		"no layers":         func(c *Config) { c.NumLayers = 0 },
		"no node input":     func(c *Config) { c.NodeInputSize = 0 },
		"negative output":   func(c *Config) { c.NodeOutputSize = -1 },
		"unknown variant":   func(c *Config) { c.Variant = "Recurrent" },
		"unknown core type": func(c *Config) { c.CoreType = "Conv" },
		"no output head": func(c *Config) {
			c.EdgeOutputSize, c.NodeOutputSize = 0, 0
		},
		"global head without globals": func(c *Config) {
			c.GlobalOutputSize = 1
		},
	} {
		config := pairConfig()
		mutate(&config)
		_, err := New("net", config, rand.NewSource(1))
		assert.True(t, errors.Is(err, ErrConfiguration), name)
	}
}
