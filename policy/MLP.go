package policy

import (
	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/agent"
	"github.com/samuelfneumann/rlcomm/environment"
	"github.com/samuelfneumann/rlcomm/gnn"
	"github.com/samuelfneumann/rlcomm/graphs"
	"github.com/samuelfneumann/rlcomm/initwfn"
	"github.com/samuelfneumann/rlcomm/network"
	"golang.org/x/exp/rand"
	"k8s.io/klog/v2"
)

// logitScale is the gain of the orthogonal weights of the MLP logits
const logitScale = 0.01

// MLP is a centralized feed forward baseline policy. Like OneNode it
// reads graphs of a single node holding the whole observation, but the
// logits and the value are linear maps of two separate MLP latents.
type MLP struct {
	*actorCritic

	piLatent, vfLatent network.Transform
	logits, value      network.Transform
}

// NewMLP returns a new MLP policy for observations unpacked by u.
// Parameters are drawn from seed, and actions are sampled from a source
// seeded with seed + 1.
func NewMLP(c MLPConfig, u environment.Unpacker,
	space environment.ActionSpace, seed uint64) (*MLP, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "newMLP")
	}
	if err := space.Validate(); err != nil {
		return nil, errors.Wrapf(gnn.ErrConfiguration, "newMLP: %v", err)
	}
	c.defaults()

	in := u.Widths().Node
	src := rand.NewSource(seed)
	latent := func(sizes []int) network.Config {
		return network.Config{
			Type:          network.MLPType,
			Sizes:         sizes,
			Activation:    network.ReLU(),
			ActivateFinal: true,
			Bias:          true,
			Init:          initwfn.NewOrthogonal(1.0),
		}
	}

	m := &MLP{}
	var err error
	if m.piLatent, err = latent(c.PiLayers).New("pi", in, src); err != nil {
		return nil, errors.Wrap(err, "newMLP")
	}
	if m.vfLatent, err = latent(c.VfLayers).New("vf", in, src); err != nil {
		return nil, errors.Wrap(err, "newMLP")
	}

	logits := network.OutputLinear(space.Size())
	logits.Init = initwfn.NewOrthogonal(logitScale)
	if m.logits, err = logits.New("pi/logits", m.piLatent.OutSize(),
		src); err != nil {
		return nil, errors.Wrap(err, "newMLP")
	}
	if m.value, err = network.OutputLinear(1).New("vf/value",
		m.vfLatent.OutSize(), src); err != nil {
		return nil, errors.Wrap(err, "newMLP")
	}

	m.actorCritic = newActorCritic(m, u, space, rand.NewSource(seed+1))

	klog.V(1).Infof("created MLP policy over %v with %d parameters",
		space, network.NumParams(m.Params()))
	return m, nil
}

// Forward adds the forward pass of the policy over batch to c
func (m *MLP) Forward(c *network.Context, batch *graphs.GraphBatch) (
	*agent.Output, error) {
	if batch.NumNodes() != batch.NumGraphs() {
		return nil, errors.Wrapf(gnn.ErrConfiguration, "forward: need one "+
			"node per graph, have %d nodes in %d graphs", batch.NumNodes(),
			batch.NumGraphs())
	}
	obs := c.Features("obs", batch.Nodes)

	pi, err := m.piLatent.Fwd(c, obs)
	if err != nil {
		return nil, errors.Wrap(err, "forward: policy")
	}
	logits, err := m.logits.Fwd(c, pi)
	if err != nil {
		return nil, errors.Wrap(err, "forward: policy")
	}

	vf, err := m.vfLatent.Fwd(c, obs)
	if err != nil {
		return nil, errors.Wrap(err, "forward: value")
	}
	values, err := m.value.Fwd(c, vf)
	if err != nil {
		return nil, errors.Wrap(err, "forward: value")
	}

	logProbs, err := logSoftmax(c, logits, m.space)
	if err != nil {
		return nil, errors.Wrap(err, "forward")
	}
	return &agent.Output{Logits: logits, LogProbs: logProbs, Values: values},
		nil
}

// Params implements the agent.ActorCritic interface
func (m *MLP) Params() []*network.Param {
	var ps []*network.Param
	for _, t := range []network.Transform{m.piLatent, m.logits, m.vfLatent,
		m.value} {
		ps = append(ps, t.Params()...)
	}
	return ps
}

// MLPConfig configures an MLP policy. Unset layers default to
// DefaultHiddenLayers.
type MLPConfig struct {
	PiLayers []int `hcl:"pi_layers,optional" json:"pi_layers"`
	VfLayers []int `hcl:"vf_layers,optional" json:"vf_layers"`
}

func (c *MLPConfig) defaults() {
	if c.PiLayers == nil {
		c.PiLayers = append([]int(nil), DefaultHiddenLayers...)
	}
	if c.VfLayers == nil {
		c.VfLayers = append([]int(nil), DefaultHiddenLayers...)
	}
}

// Validate implements the agent.Config interface
func (c MLPConfig) Validate() error {
	c.defaults()
	for _, layers := range [][]int{c.PiLayers, c.VfLayers} {
		if len(layers) == 0 {
			return errors.Wrap(gnn.ErrConfiguration, "validate: MLP "+
				"latents need at least one hidden layer")
		}
		for i, size := range layers {
			if size < 1 {
				return errors.Wrapf(gnn.ErrConfiguration, "validate: layer "+
					"%d has size %d", i, size)
			}
		}
	}
	return nil
}

// CreatePolicy implements the agent.Config interface
func (c MLPConfig) CreatePolicy(u environment.Unpacker,
	space environment.ActionSpace, seed uint64) (agent.ActorCritic, error) {
	m, err := NewMLP(c, u, space, seed)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Type implements the agent.Config interface
func (c MLPConfig) Type() agent.Type {
	return agent.MLP
}

func init() {
	agent.Register(agent.MLP, MLPConfig{})
}
