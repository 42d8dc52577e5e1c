package gnn

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/network"
)

// Variant describes how an aggregation network shares its message
// passing core between processing steps
type Variant string

const (
	// Shared uses one core for every processing step
	Shared Variant = "AggregationNet"

	// PerStep uses a separately parameterised core for each processing
	// step
	PerStep Variant = "AggregationDiffNet"
)

// Default sizes of the learned transforms
const (
	LatentSize = 16
	NumLayers  = 2
)

// DiffNetHops is the default hop schedule of the PerStep variant
var DiffNetHops = []int{1, 1, 2, 2, 2}

// Config configures an aggregation network.
//
// An output size of 0 disables the corresponding output head, and an
// input size of 0 means the batch has no such features: absent edge
// features of a batch with edges, and absent globals when UseGlobals is
// set, start from a zero latent.
type Config struct {
	Variant Variant

	NumProcessingSteps int

	// Hops holds the number of core applications of each processing
	// step. If nil, the Shared variant applies the core once per step
	// and the PerStep variant follows DiffNetHops.
	Hops []int

	LatentSize int
	NumLayers  int

	// CoreType selects the transforms of the message passing core.
	// Encoders, decoders and the aggregation stage are always MLPs.
	CoreType network.Type

	NodeInputSize   int
	EdgeInputSize   int
	GlobalInputSize int

	EdgeOutputSize   int
	NodeOutputSize   int
	GlobalOutputSize int

	UseGlobals       bool
	UseReceiverNodes bool
}

// HopSchedule returns the number of hops of each processing step
func (c Config) HopSchedule() []int {
	if c.Hops != nil {
		return append([]int(nil), c.Hops...)
	}

	hops := make([]int, c.NumProcessingSteps)
	for i := range hops {
		switch {
		case c.Variant != PerStep:
			hops[i] = 1
		case i < len(DiffNetHops):
			hops[i] = DiffNetHops[i]
		default:
			hops[i] = DiffNetHops[len(DiffNetHops)-1]
		}
	}
	return hops
}

// StackedSize returns the width of the per-step decoded features once
// stacked along the feature dimension
func (c Config) StackedSize() int {
	return c.LatentSize * c.NumProcessingSteps
}

// Validate returns an error wrapping ErrConfiguration if an aggregation
// network cannot be built from the Config
func (c Config) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return errors.Wrapf(ErrConfiguration, "validate: "+format, args...)
	}

	switch c.Variant {
	case Shared, PerStep:
	default:
		return fail("unknown variant %q", c.Variant)
	}

	if c.NumProcessingSteps < 1 {
		return fail("number of processing steps must be positive but got %d",
			c.NumProcessingSteps)
	}
	if c.Hops != nil && len(c.Hops) != c.NumProcessingSteps {
		return fail("one hop count is needed per processing step"+
			"\n\twant(%d)\n\thave(%d)", c.NumProcessingSteps, len(c.Hops))
	}
	for i, hops := range c.HopSchedule() {
		if hops < 1 {
			return fail("step %d has %d hops", i, hops)
		}
	}

	if c.LatentSize < 1 {
		return fail("latent size must be positive but got %d", c.LatentSize)
	}
	if c.NumLayers < 1 {
		return fail("number of layers must be positive but got %d",
			c.NumLayers)
	}
	switch c.CoreType {
	case network.MLPType, network.LinearType:
	default:
		return fail("unknown core type %q", c.CoreType)
	}

	if c.NodeInputSize < 1 {
		return fail("node input size must be positive but got %d",
			c.NodeInputSize)
	}
	for name, size := range map[string]int{
		"edge input":    c.EdgeInputSize,
		"global input":  c.GlobalInputSize,
		"edge output":   c.EdgeOutputSize,
		"node output":   c.NodeOutputSize,
		"global output": c.GlobalOutputSize,
	} {
		if size < 0 {
			return fail("%s size must not be negative but got %d", name, size)
		}
	}

	if c.EdgeOutputSize == 0 && c.NodeOutputSize == 0 &&
		c.GlobalOutputSize == 0 {
		return fail("no output head")
	}
	if c.GlobalOutputSize > 0 && !c.UseGlobals {
		return fail("global output of size %d requested with globals "+
			"disabled", c.GlobalOutputSize)
	}
	return nil
}

// latent returns the configuration of the encoder, decoder and
// aggregation transforms
func (c Config) latent() network.Config {
	return network.LatentMLP(c.LatentSize, c.NumLayers)
}

// core returns the configuration of the core transforms
func (c Config) core() network.Config {
	if c.CoreType == network.LinearType {
		return network.LatentLinear(c.LatentSize)
	}
	return network.LatentMLP(c.LatentSize, c.NumLayers)
}

// output returns the configuration of an output head of the given size,
// or nil if the head is disabled
func output(size int) *network.Config {
	if size == 0 {
		return nil
	}
	c := network.OutputLinear(size)
	return &c
}

// String implements the fmt.Stringer interface
func (c Config) String() string {
	return fmt.Sprintf("%v{steps: %v, latent: %d x %d, core: %v, "+
		"outputs: (edge %d, node %d, global %d), globals: %v}", c.Variant,
		c.HopSchedule(), c.LatentSize, c.NumLayers, c.CoreType,
		c.EdgeOutputSize, c.NodeOutputSize, c.GlobalOutputSize, c.UseGlobals)
}
