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

// OneNode is a centralized baseline policy over graphs of a single node
// holding the whole observation, such as those of
// environment.Centralized. The logits are an MLP of the node, and the
// value is a linear map of the summed output of a second MLP.
type OneNode struct {
	*actorCritic

	pi       *gnn.NodeBlock
	vfNodes  *gnn.NodeBlock
	vfGlobal *gnn.GlobalBlock
}

// NewOneNode returns a new OneNode policy for observations unpacked by
// u. Parameters are drawn from seed, and actions are sampled from a
// source seeded with seed + 1.
func NewOneNode(c OneNodeConfig, u environment.Unpacker,
	space environment.ActionSpace, seed uint64) (*OneNode, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "newOneNode")
	}
	if err := space.Validate(); err != nil {
		return nil, errors.Wrapf(gnn.ErrConfiguration, "newOneNode: %v", err)
	}
	c.defaults()

	in := u.Widths().Node
	src := rand.NewSource(seed)

	piConfig := network.Config{
		Type:       network.MLPType,
		Sizes:      append(append([]int(nil), c.PiLayers...), space.Size()),
		Activation: network.ReLU(),
		Bias:       true,
		Init:       initwfn.NewGlorotU(1.0),
	}
	pi, err := piConfig.New("pi", in, src)
	if err != nil {
		return nil, errors.Wrap(err, "newOneNode")
	}

	vfConfig := network.Config{
		Type:          network.MLPType,
		Sizes:         c.VfLayers,
		Activation:    network.ReLU(),
		ActivateFinal: true,
		Bias:          true,
		Init:          initwfn.NewGlorotU(1.0),
	}
	vf, err := vfConfig.New("vf", in, src)
	if err != nil {
		return nil, errors.Wrap(err, "newOneNode")
	}
	value, err := network.OutputLinear(1).New("vf/value", vf.OutSize(), src)
	if err != nil {
		return nil, errors.Wrap(err, "newOneNode")
	}

	o := &OneNode{
		pi: &gnn.NodeBlock{
			NodeBlockOptions: gnn.NodeBlockOptions{UseNodes: true},
			Fn:               pi,
		},
		vfNodes: &gnn.NodeBlock{
			NodeBlockOptions: gnn.NodeBlockOptions{UseNodes: true},
			Fn:               vf,
		},
		vfGlobal: &gnn.GlobalBlock{
			GlobalBlockOptions: gnn.GlobalBlockOptions{UseNodes: true},
			Fn:                 value,
		},
	}
	o.actorCritic = newActorCritic(o, u, space, rand.NewSource(seed+1))

	klog.V(1).Infof("created OneNode policy over %v with %d parameters",
		space, network.NumParams(o.Params()))
	return o, nil
}

// Forward adds the forward pass of the policy over batch to c
func (o *OneNode) Forward(c *network.Context, batch *graphs.GraphBatch) (
	*agent.Output, error) {
	if batch.NumNodes() != batch.NumGraphs() {
		return nil, errors.Wrapf(gnn.ErrConfiguration, "forward: need one "+
			"node per graph, have %d nodes in %d graphs", batch.NumNodes(),
			batch.NumGraphs())
	}

	t, err := gnn.NewTopology(c, batch)
	if err != nil {
		return nil, errors.Wrap(err, "forward")
	}
	in := gnn.NewLatent(c, t)

	pi, err := o.pi.Fwd(c, in)
	if err != nil {
		return nil, errors.Wrap(err, "forward: policy")
	}
	vf, err := o.vfNodes.Fwd(c, in)
	if err != nil {
		return nil, errors.Wrap(err, "forward: value")
	}
	vf, err = o.vfGlobal.Fwd(c, vf)
	if err != nil {
		return nil, errors.Wrap(err, "forward: value")
	}

	// With one node per graph, node i holds the logits of graph i
	logProbs, err := logSoftmax(c, pi.Nodes, o.space)
	if err != nil {
		return nil, errors.Wrap(err, "forward")
	}

	return &agent.Output{
		Logits:   pi.Nodes,
		LogProbs: logProbs,
		Values:   vf.Globals,
	}, nil
}

// Params implements the agent.ActorCritic interface
func (o *OneNode) Params() []*network.Param {
	ps := o.pi.Fn.Params()
	ps = append(ps, o.vfNodes.Fn.Params()...)
	return append(ps, o.vfGlobal.Fn.Params()...)
}

// DefaultHiddenLayers are the default hidden layer sizes of the
// centralized baselines
var DefaultHiddenLayers = []int{64, 64}

// OneNodeConfig configures a OneNode policy
type OneNodeConfig struct {
	PiLayers []int `hcl:"pi_layers,optional" json:"pi_layers"`
	VfLayers []int `hcl:"vf_layers,optional" json:"vf_layers"`
}

// defaults fills in unset fields
func (c *OneNodeConfig) defaults() {
	if c.PiLayers == nil {
		c.PiLayers = append([]int(nil), DefaultHiddenLayers...)
	}
	if c.VfLayers == nil {
		c.VfLayers = append([]int(nil), DefaultHiddenLayers...)
	}
}

// Validate implements the agent.Config interface
func (c OneNodeConfig) Validate() error {
	c.defaults()
	if len(c.VfLayers) == 0 {
		return errors.Wrap(gnn.ErrConfiguration, "validate: value network "+
			"needs at least one hidden layer")
	}
	for _, layers := range [][]int{c.PiLayers, c.VfLayers} {
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
func (c OneNodeConfig) CreatePolicy(u environment.Unpacker,
	space environment.ActionSpace, seed uint64) (agent.ActorCritic, error) {
	o, err := NewOneNode(c, u, space, seed)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Type implements the agent.Config interface
func (c OneNodeConfig) Type() agent.Type {
	return agent.OneNode
}

func init() {
	agent.Register(agent.OneNode, OneNodeConfig{})
}
