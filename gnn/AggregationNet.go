package gnn

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/graphs"
	"github.com/samuelfneumann/rlcomm/network"
	"github.com/samuelfneumann/rlcomm/utils/op"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"k8s.io/klog/v2"
)

// AggregationNet encodes a batch of graphs, runs a number of processing
// steps of message passing over the encoding, decodes the latent state
// after every step and combines the decoded snapshots of all steps into
// its outputs.
//
// The decoded snapshots of each entity are concatenated along the
// feature dimension in step order before a learned aggregation and a
// linear output projection, so the outputs may weigh every intermediate
// representation rather than only the last one.
type AggregationNet struct {
	config Config
	hops   []int

	encoder     *GraphIndependent
	cores       []*GraphNetwork
	decoder     *GraphIndependent
	aggregation *GraphIndependent
	output      *GraphIndependent
}

// New creates a new AggregationNet. Parameters are drawn from src.
func New(name string, c Config, src rand.Source) (*AggregationNet, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "new %v", name)
	}

	latent := c.latent()
	globalInput := 0
	if c.UseGlobals {
		globalInput = c.GlobalInputSize
	}
	globalLatent := 0
	if c.UseGlobals {
		globalLatent = c.LatentSize
	}

	net := &AggregationNet{config: c, hops: c.HopSchedule()}

	var err error
	net.encoder, err = NewGraphIndependent(name+"/encoder", &latent, &latent,
		&latent, c.EdgeInputSize, c.NodeInputSize, globalInput, src)
	if err != nil {
		return nil, errors.Wrapf(err, "new %v", name)
	}

	numCores := 1
	if c.Variant == PerStep {
		numCores = c.NumProcessingSteps
	}
	opts := CoreOptions(c.UseReceiverNodes, c.UseGlobals)
	for i := 0; i < numCores; i++ {
		core, err := NewGraphNetwork(fmt.Sprintf("%s/core/%d", name, i),
			c.core(), c.LatentSize, opts, src)
		if err != nil {
			return nil, errors.Wrapf(err, "new %v", name)
		}
		net.cores = append(net.cores, core)
	}

	net.decoder, err = NewGraphIndependent(name+"/decoder", &latent,
		&latent, &latent, c.LatentSize, c.LatentSize, globalLatent, src)
	if err != nil {
		return nil, errors.Wrapf(err, "new %v", name)
	}

	stacked := c.StackedSize()
	globalStacked := 0
	if c.UseGlobals {
		globalStacked = stacked
	}
	net.aggregation, err = NewGraphIndependent(name+"/agg", &latent,
		&latent, &latent, stacked, stacked, globalStacked, src)
	if err != nil {
		return nil, errors.Wrapf(err, "new %v", name)
	}

	net.output, err = NewGraphIndependent(name+"/output",
		output(c.EdgeOutputSize), output(c.NodeOutputSize),
		output(c.GlobalOutputSize), c.LatentSize, c.LatentSize,
		globalLatent, src)
	if err != nil {
		return nil, errors.Wrapf(err, "new %v", name)
	}

	klog.V(1).Infof("created %s: %v with %d parameters", name, c,
		network.NumParams(net.Params()))
	return net, nil
}

// Config returns the configuration of the network
func (a *AggregationNet) Config() Config {
	return a.config
}

// core returns the message passing core of processing step i
func (a *AggregationNet) core(i int) *GraphNetwork {
	if len(a.cores) == 1 {
		return a.cores[0]
	}
	return a.cores[i]
}

// Params returns the parameters of the network, each exactly once
func (a *AggregationNet) Params() []*network.Param {
	ps := a.encoder.Params()
	for _, core := range a.cores {
		ps = append(ps, core.Params()...)
	}
	ps = append(ps, a.decoder.Params()...)
	ps = append(ps, a.aggregation.Params()...)
	return append(ps, a.output.Params()...)
}

// Fwd adds the forward pass of the network on batch to c and returns
// the output Latent. Disabled output heads are absent from the output.
func (a *AggregationNet) Fwd(c *network.Context, batch *graphs.GraphBatch) (
	*Latent, error) {
	if err := a.checkInput(batch); err != nil {
		return nil, err
	}
	t, err := NewTopology(c, batch)
	if err != nil {
		return nil, errors.Wrap(err, "fwd")
	}

	in := NewLatent(c, t)
	if !a.config.UseGlobals {
		in = in.with(in.Nodes, in.Edges, nil, in.NodeSize, in.EdgeSize, 0)
	}

	latent, err := a.encode(c, in)
	if err != nil {
		return nil, err
	}

	steps := make([]*Latent, 0, a.config.NumProcessingSteps)
	for i, hops := range a.hops {
		for j := 0; j < hops; j++ {
			latent, err = a.core(i).Fwd(c, latent)
			if err != nil {
				return nil, errors.Wrapf(err, "fwd: step %d hop %d", i, j)
			}
		}

		// Decoding reads the running latent state without replacing it
		decoded, err := a.decoder.Fwd(c, latent)
		if err != nil {
			return nil, errors.Wrapf(err, "fwd: step %d", i)
		}
		steps = append(steps, decoded)
	}

	stacked, err := a.stack(latent, steps)
	if err != nil {
		return nil, err
	}

	aggregated, err := a.aggregation.Fwd(c, stacked)
	if err != nil {
		return nil, errors.Wrap(err, "fwd")
	}
	out, err := a.output.Fwd(c, aggregated)
	if err != nil {
		return nil, errors.Wrap(err, "fwd")
	}

	klog.V(2).Infof("forward pass over %v", batch)
	return a.heads(out), nil
}

// Apply runs the network on batch in a fresh Context and returns the
// output features with the topology of batch
func (a *AggregationNet) Apply(batch *graphs.GraphBatch) (*graphs.GraphBatch,
	error) {
	c := network.NewContext()
	defer c.Close()

	out, err := a.Fwd(c, batch)
	if err != nil {
		return nil, err
	}
	if err := c.Run(); err != nil {
		return nil, errors.Wrap(err, "apply")
	}
	return out.Read()
}

// checkInput ensures the feature widths of batch match the Config
func (a *AggregationNet) checkInput(batch *graphs.GraphBatch) error {
	fail := func(format string, args ...interface{}) error {
		return errors.Wrapf(graphs.ErrShapeMismatch, "fwd: "+format, args...)
	}
	c := a.config

	if batch.Nodes == nil || batch.Nodes.Cols != c.NodeInputSize {
		return fail("invalid node features\n\twant(%d)\n\thave(%v)",
			c.NodeInputSize, batch)
	}

	if c.EdgeInputSize == 0 && batch.Edges != nil && batch.Edges.Cols > 0 {
		return fail("unexpected edge features\n\twant(0)\n\thave(%d)",
			batch.Edges.Cols)
	}
	if c.EdgeInputSize > 0 {
		if batch.Edges == nil && batch.NumEdges() > 0 {
			return fail("missing edge features of width %d", c.EdgeInputSize)
		}
		if batch.Edges != nil && batch.Edges.Cols != c.EdgeInputSize {
			return fail("invalid edge features\n\twant(%d)\n\thave(%d)",
				c.EdgeInputSize, batch.Edges.Cols)
		}
	}

	if c.UseGlobals && c.GlobalInputSize > 0 {
		if batch.Globals == nil || batch.Globals.Cols != c.GlobalInputSize {
			return fail("invalid global features\n\twant(%d)\n\thave(%v)",
				c.GlobalInputSize, batch)
		}
	}
	return nil
}

// encode encodes the input into latent space. Entities without input
// features start from a zero latent so that the core always sees inputs
// of the same width.
func (a *AggregationNet) encode(c *network.Context, in *Latent) (*Latent,
	error) {
	latent, err := a.encoder.Fwd(c, in)
	if err != nil {
		return nil, errors.Wrap(err, "fwd")
	}

	size := a.config.LatentSize
	edges, globals := latent.Edges, latent.Globals
	if a.encoder.Edge == nil && in.HasEdges() {
		edges = c.Zeros("edge_latent", in.NumEdges(), size)
	}
	if a.config.UseGlobals && a.encoder.Global == nil {
		globals = c.Zeros("global_latent", in.NumGraphs(), size)
	}

	globalSize := 0
	if a.config.UseGlobals {
		globalSize = size
	}
	return latent.with(latent.Nodes, edges, globals, size, size,
		globalSize), nil
}

// stack concatenates the features of the decoded steps along the
// feature dimension in step order
func (a *AggregationNet) stack(latent *Latent, steps []*Latent) (*Latent,
	error) {
	var nodes, edges, globals G.Nodes
	for _, step := range steps {
		nodes = append(nodes, step.Nodes)
		edges = append(edges, step.Edges)
		globals = append(globals, step.Globals)
	}

	stackedNodes, err := op.Concat(nodes...)
	if err != nil {
		return nil, errors.Wrap(err, "fwd: could not stack nodes")
	}
	stackedEdges, err := op.Concat(edges...)
	if err != nil {
		return nil, errors.Wrap(err, "fwd: could not stack edges")
	}
	stackedGlobals, err := op.Concat(globals...)
	if err != nil {
		return nil, errors.Wrap(err, "fwd: could not stack globals")
	}

	size := a.config.StackedSize()
	globalSize := 0
	if stackedGlobals != nil {
		globalSize = size
	}
	return latent.with(stackedNodes, stackedEdges, stackedGlobals, size, size,
		globalSize), nil
}

// heads removes the features of disabled output heads
func (a *AggregationNet) heads(out *Latent) *Latent {
	c := a.config
	nodes, edges, globals := out.Nodes, out.Edges, out.Globals
	nodeSize, edgeSize, globalSize := c.NodeOutputSize, c.EdgeOutputSize,
		c.GlobalOutputSize

	if nodeSize == 0 {
		nodes = nil
	}
	if edgeSize == 0 {
		edges = nil
	}
	if globalSize == 0 {
		globals = nil
	}
	return out.with(nodes, edges, globals, nodeSize, edgeSize, globalSize)
}
