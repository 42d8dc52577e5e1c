package policy

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/agent"
	"github.com/samuelfneumann/rlcomm/environment"
	"github.com/samuelfneumann/rlcomm/gnn"
	"github.com/samuelfneumann/rlcomm/graphs"
	"github.com/samuelfneumann/rlcomm/network"
	"github.com/samuelfneumann/rlcomm/utils/op"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
	"k8s.io/klog/v2"
)

// GnnFwd is an actor-critic policy made of two aggregation networks
// with independent parameters. The policy network scores every edge of
// the observation graph and the logits of a graph are the scores of its
// action edges. The value network reduces each graph to a single global
// value estimate.
type GnnFwd struct {
	*actorCritic

	policyNet *gnn.AggregationNet
	valueNet  *gnn.AggregationNet
	channel   int
}

// NewGnnFwd returns a new GnnFwd policy for observations unpacked by u.
// Parameters of both networks are drawn from seed, and actions are
// sampled from a source seeded with seed + 1.
func NewGnnFwd(c GnnFwdConfig, u environment.Unpacker,
	space environment.ActionSpace, seed uint64) (*GnnFwd, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "newGnnFwd")
	}
	if err := space.Validate(); err != nil {
		return nil, errors.Wrapf(gnn.ErrConfiguration, "newGnnFwd: %v", err)
	}

	widths := u.Widths()
	if c.ControlChannel >= widths.Node {
		return nil, errors.Wrapf(gnn.ErrConfiguration, "newGnnFwd: control "+
			"channel %d outside of %d node features", c.ControlChannel,
			widths.Node)
	}

	src := rand.NewSource(seed)
	policyNet, err := gnn.New("pi", c.net(widths, false), src)
	if err != nil {
		return nil, errors.Wrap(err, "newGnnFwd: policy network")
	}
	valueNet, err := gnn.New("vf", c.net(widths, true), src)
	if err != nil {
		return nil, errors.Wrap(err, "newGnnFwd: value network")
	}

	g := &GnnFwd{
		policyNet: policyNet,
		valueNet:  valueNet,
		channel:   c.ControlChannel,
	}
	g.actorCritic = newActorCritic(g, u, space, rand.NewSource(seed+1))

	klog.V(1).Infof("created GnnFwd policy over %v with %d parameters",
		space, network.NumParams(g.Params()))
	return g, nil
}

// Forward adds the forward pass of the policy over batch to c. Both
// networks are added to the same Context, so a single run computes the
// logits and the values.
func (g *GnnFwd) Forward(c *network.Context, batch *graphs.GraphBatch) (
	*agent.Output, error) {
	sel, err := ActionEdges(batch, g.channel, g.space)
	if err != nil {
		return nil, errors.Wrap(err, "forward")
	}

	pi, err := g.policyNet.Fwd(c, batch)
	if err != nil {
		return nil, errors.Wrap(err, "forward: policy network")
	}
	vf, err := g.valueNet.Fwd(c, batch)
	if err != nil {
		return nil, errors.Wrap(err, "forward: value network")
	}

	// Every graph has at least one action edge, so pi.Edges is not nil
	gathered, err := G.Mul(c.Input("action_edges", sel.Matrix()), pi.Edges)
	if err != nil {
		return nil, errors.Wrap(err, "forward: could not gather logits")
	}
	logits, err := G.Reshape(gathered, []int{batch.NumGraphs(), sel.Width})
	if err != nil {
		return nil, errors.Wrap(err, "forward: could not reshape logits")
	}

	logProbs, err := logSoftmax(c, logits, g.space)
	if err != nil {
		return nil, errors.Wrap(err, "forward")
	}

	return &agent.Output{
		Logits:   logits,
		LogProbs: logProbs,
		Values:   vf.Globals,
	}, nil
}

// Params implements the agent.ActorCritic interface
func (g *GnnFwd) Params() []*network.Param {
	return append(g.policyNet.Params(), g.valueNet.Params()...)
}

// logSoftmax normalises a B x n matrix of logits separately over the
// choices of each sub-action of space
func logSoftmax(c *network.Context, logits *G.Node,
	space environment.ActionSpace) (*G.Node, error) {
	if space.Cardinality != environment.MultiDiscrete {
		return op.LogSoftmax(logits), nil
	}

	n := space.Size()
	segments := make([]*G.Node, len(space.N))
	start := 0
	for k, size := range space.N {
		// Columns of sub-action k are gathered by a one-hot n x size
		// matrix so that every segment stays a matrix
		data := make([]float64, n*size)
		for j := 0; j < size; j++ {
			data[(start+j)*size+j] = 1
		}
		pick := c.Input(fmt.Sprintf("sub_action_%d", k), tensor.New(
			tensor.WithShape(n, size),
			tensor.WithBacking(data),
		))

		segment, err := G.Mul(logits, pick)
		if err != nil {
			return nil, errors.Wrapf(err, "logSoftmax: sub-action %d", k)
		}
		segments[k] = op.LogSoftmax(segment)
		start += size
	}
	return op.Concat(segments...)
}

// GnnFwdConfig configures a GnnFwd policy. The policy and value
// networks share every setting, except that only the value network
// reads globals.
type GnnFwdConfig struct {
	Variant            gnn.Variant  `hcl:"variant,optional" json:"variant"`
	NumProcessingSteps int          `hcl:"num_processing_steps,optional" json:"num_processing_steps"`
	Hops               []int        `hcl:"hops,optional" json:"hops"`
	LatentSize         int          `hcl:"latent_size,optional" json:"latent_size"`
	NumLayers          int          `hcl:"num_layers,optional" json:"num_layers"`
	CoreType           network.Type `hcl:"core_type,optional" json:"core_type"`
	UseReceiverNodes   bool         `hcl:"use_receiver_nodes,optional" json:"use_receiver_nodes"`

	// ControlChannel is the node feature which marks controlled nodes
	ControlChannel int `hcl:"control_channel,optional" json:"control_channel"`
}

// DefaultGnnFwdConfig returns the default GnnFwd configuration
func DefaultGnnFwdConfig() *GnnFwdConfig {
	c := &GnnFwdConfig{}
	c.defaults()
	return c
}

// defaults fills in unset fields
func (c *GnnFwdConfig) defaults() {
	if c.Variant == "" {
		c.Variant = gnn.Shared
	}
	if c.NumProcessingSteps == 0 {
		c.NumProcessingSteps = 5
	}
	if c.LatentSize == 0 {
		c.LatentSize = gnn.LatentSize
	}
	if c.NumLayers == 0 {
		c.NumLayers = gnn.NumLayers
	}
	if c.CoreType == "" {
		c.CoreType = network.MLPType
	}
}

// net returns the configuration of the policy network, or of the value
// network if value is true
func (c GnnFwdConfig) net(widths environment.Widths, value bool) gnn.Config {
	c.defaults()
	net := gnn.Config{
		Variant:            c.Variant,
		NumProcessingSteps: c.NumProcessingSteps,
		Hops:               c.Hops,
		LatentSize:         c.LatentSize,
		NumLayers:          c.NumLayers,
		CoreType:           c.CoreType,
		NodeInputSize:      widths.Node,
		EdgeInputSize:      widths.Edge,
		UseReceiverNodes:   c.UseReceiverNodes,
	}
	if value {
		net.UseGlobals = true
		net.GlobalInputSize = widths.Global
		net.GlobalOutputSize = 1
	} else {
		net.EdgeOutputSize = 1
	}
	return net
}

// Validate implements the agent.Config interface
func (c GnnFwdConfig) Validate() error {
	if c.ControlChannel < 0 {
		return errors.Wrapf(gnn.ErrConfiguration, "validate: negative "+
			"control channel %d", c.ControlChannel)
	}
	return c.net(environment.Widths{Node: 1}, false).Validate()
}

// CreatePolicy implements the agent.Config interface
func (c GnnFwdConfig) CreatePolicy(u environment.Unpacker,
	space environment.ActionSpace, seed uint64) (agent.ActorCritic, error) {
	g, err := NewGnnFwd(c, u, space, seed)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Type implements the agent.Config interface
func (c GnnFwdConfig) Type() agent.Type {
	return agent.GnnFwd
}

func init() {
	agent.Register(agent.GnnFwd, GnnFwdConfig{})
}
