package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/rlcomm/agent"
	"github.com/samuelfneumann/rlcomm/environment"
	"github.com/samuelfneumann/rlcomm/gnn"
	"github.com/samuelfneumann/rlcomm/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"gonum.org/v1/gonum/mat"
)

const pdefenseRun = `
seed = var.seed

layout "pdefense" {
  num_agents  = 2
  num_targets = var.targets
}

policy "gnnfwd" {
  variant              = "AggregationDiffNet"
  num_processing_steps = 2
  hops                 = [1, 2]
  latent_size          = 8
  num_layers           = 1
}
`

func TestParsePDefense(t *testing.T) {
	run, err := Parse([]byte(pdefenseRun), "run.hcl", map[string]cty.Value{
		"seed":    cty.NumberIntVal(3),
		"targets": cty.NumberIntVal(4),
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(3), run.Seed)
	assert.Equal(t, environment.NewPDefense(2, 4), run.Unpacker)
	assert.Equal(t, environment.NewMultiDiscrete(4, 4), run.Space)
	assert.Equal(t, &policy.GnnFwdConfig{
		Variant:            gnn.PerStep,
		NumProcessingSteps: 2,
		Hops:               []int{1, 2},
		LatentSize:         8,
		NumLayers:          1,
	}, run.Policy)

	pol, err := run.CreatePolicy()
	require.NoError(t, err)

	obs := mat.NewDense(2, run.Unpacker.Size(), nil)
	obs.Set(1, 1, 1)
	result, err := pol.Step(obs, true)
	require.NoError(t, err)
	r, c := result.Actions.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
}

func TestParseMapping(t *testing.T) {
	src := `
layout "mapping" {
  max_nodes   = 4
  max_edges   = 6
  node_size   = 3
  edge_size   = 2
  global_size = 1
}

policy "gnnfwd" {
  control_channel = 2

  action_space {
    cardinality = "Discrete"
    n           = [3]
  }
}
`
	run, err := Parse([]byte(src), "mapping.hcl", nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), run.Seed)
	assert.Equal(t, environment.Layout{MaxNodes: 4, MaxEdges: 6,
		NodeSize: 3, EdgeSize: 2, GlobalSize: 1}, run.Unpacker)
	assert.Equal(t, environment.NewDiscrete(3), run.Space)
	assert.Equal(t, agent.GnnFwd, run.Policy.Type())
	assert.Equal(t, 2, run.Policy.(*policy.GnnFwdConfig).ControlChannel)
}

func TestLoadCentralized(t *testing.T) {
	src := `
seed = 7

layout "centralized" {
  num_agents  = 3
  num_targets = 2
  obs_size    = 1
}

policy "onenode" {
  pi_layers = [32]
}
`
	path := filepath.Join(t.TempDir(), "onenode.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	run, err := Load(path, nil)
	require.NoError(t, err)

	p := environment.NewPDefense(3, 2)
	p.ObsSize = 1
	assert.Equal(t, environment.Centralized{PDefense: p}, run.Unpacker)
	assert.Equal(t, environment.NewMultiDiscrete(2, 2, 2), run.Space)
	assert.Equal(t, &policy.OneNodeConfig{PiLayers: []int{32}}, run.Policy)

	pol, err := run.CreatePolicy()
	require.NoError(t, err)
	probs, err := pol.ProbaStep(mat.NewDense(1, p.Size(), nil))
	require.NoError(t, err)
	_, c := probs.Dims()
	assert.Equal(t, 6, c)
}

func TestParseMLP(t *testing.T) {
	src := `
layout "centralized" {
  num_agents  = 2
  num_targets = 2
}

policy "mlp" {
  vf_layers = [var.width, var.width]
}
`
	run, err := Parse([]byte(src), "mlp.hcl", map[string]cty.Value{
		"width": cty.NumberIntVal(12),
	})
	require.NoError(t, err)
	assert.Equal(t, &policy.MLPConfig{VfLayers: []int{12, 12}}, run.Policy)

	pol, err := run.CreatePolicy()
	require.NoError(t, err)
	values, err := pol.Value(mat.NewDense(3, run.Unpacker.Size(), nil))
	require.NoError(t, err)
	assert.Equal(t, 3, values.Len())
}

const pdefenseLayout = `
layout "pdefense" {
  num_agents  = 1
  num_targets = 1
}
`

const mappingLayout = `
layout "mapping" {
  max_nodes = 2
  max_edges = 1
  node_size = 1
}
`

func TestParseErrors(t *testing.T) {
	for name, src := range map[string]string{
		"syntax":  `layout "pdefense" {`,
		"layout":  `policy "gnnfwd" {}`,
		"policy":  pdefenseLayout,
		"unknown layout": `
layout "grid" {}
policy "gnnfwd" {}`,
		"unknown policy": `
` + pdefenseLayout + `
policy "dqn" {}`,
		"unknown attribute": `
` + pdefenseLayout + `
policy "gnnfwd" { learning_rate = 0.1 }`,
		"invalid config": `
` + pdefenseLayout + `
policy "gnnfwd" {
  num_processing_steps = 2
  hops                 = [1]
}`,
		"no action space": `
` + mappingLayout + `
policy "gnnfwd" {}`,
		"invalid action space": `
` + mappingLayout + `
policy "gnnfwd" {
  action_space {
    cardinality = "Discrete"
    n           = [1, 2]
  }
}`,
		"undefined variable": `
layout "pdefense" {
  num_agents  = var.agents
  num_targets = 1
}
policy "gnnfwd" {}`,
	} {
		_, err := Parse([]byte(src), name+".hcl", nil)
		assert.Error(t, err, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.hcl"), nil)
	assert.Error(t, err)
}
