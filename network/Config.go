package network

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/initwfn"
	"golang.org/x/exp/rand"
)

// Type describes the kind of Transform a Config creates
type Type string

// Available Transform types
const (
	MLPType    Type = "MLP"
	LinearType Type = "Linear"
)

// ErrInvalidConfig is returned when a Config cannot create a Transform
var ErrInvalidConfig = errors.New("invalid transform configuration")

// Config is a factory of Transforms. Each call to New creates a fresh
// Transform owning its own parameters.
type Config struct {
	Type Type

	// Sizes holds the output size of each layer. A Linear Config must
	// have exactly one size.
	Sizes []int

	// Activation applied after each hidden layer of an MLP
	Activation *Activation

	// ActivateFinal applies Activation after the last layer of an MLP
	// as well
	ActivateFinal bool

	Bias      bool
	LayerNorm bool

	Init     *initwfn.InitWFn
	BiasInit *initwfn.InitWFn
}

// LatentMLP returns the Config of a bias-free tanh MLP of layers layers
// of width latent, activated on every layer and layer normalised
func LatentMLP(latent, layers int) Config {
	sizes := make([]int, layers)
	for i := range sizes {
		sizes[i] = latent
	}
	return Config{
		Type:          MLPType,
		Sizes:         sizes,
		Activation:    TanH(),
		ActivateFinal: true,
		LayerNorm:     true,
		Init:          initwfn.NewGlorotU(1.0),
	}
}

// LatentLinear returns the Config of a bias-free linear map to latent
// features
func LatentLinear(latent int) Config {
	return Config{
		Type:  LinearType,
		Sizes: []int{latent},
		Init:  initwfn.NewGlorotU(1.0),
	}
}

// OutputLinear returns the Config of an output projection: a biased
// linear map with orthogonal weights and zero bias
func OutputLinear(size int) Config {
	return Config{
		Type:     LinearType,
		Sizes:    []int{size},
		Bias:     true,
		Init:     initwfn.NewOrthogonal(1.0),
		BiasInit: initwfn.NewZeroes(),
	}
}

// Validate returns an error if the Config cannot create a Transform
func (c Config) Validate() error {
	switch c.Type {
	case MLPType:
		if len(c.Sizes) == 0 {
			return errors.Wrap(ErrInvalidConfig, "validate: MLP must have "+
				"at least one layer")
		}
	case LinearType:
		if len(c.Sizes) != 1 {
			return errors.Wrapf(ErrInvalidConfig, "validate: invalid "+
				"number of Linear sizes\n\twant(1)\n\thave(%d)", len(c.Sizes))
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "validate: unknown type %q",
			c.Type)
	}

	for i, size := range c.Sizes {
		if size < 1 {
			return errors.Wrapf(ErrInvalidConfig, "validate: layer %d has "+
				"size %d", i, size)
		}
	}
	return nil
}

// OutSize returns the number of output features of Transforms created
// by the Config
func (c Config) OutSize() int {
	if len(c.Sizes) == 0 {
		return 0
	}
	return c.Sizes[len(c.Sizes)-1]
}

// New returns a new Transform of in input features. Parameters are
// drawn from src in construction order.
func (c Config) New(name string, in int, src rand.Source) (Transform, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "new %v", name)
	}
	if in < 1 {
		return nil, errors.Wrapf(ErrInvalidConfig, "new %v: invalid number "+
			"of input features %d", name, in)
	}

	weightInit := c.Init
	if weightInit == nil {
		weightInit = initwfn.NewGlorotU(1.0)
	}
	var biasInit *initwfn.InitWFn
	if c.Bias {
		biasInit = c.BiasInit
		if biasInit == nil {
			biasInit = initwfn.NewZeroes()
		}
	}

	newLayer := func(i, in, out int, act *Activation) *fcLayer {
		layerName := fmt.Sprintf("%s/%d", name, i)
		if biasInit == nil {
			return newFCLayer(layerName, in, out, weightInit.InitWFn(src),
				nil, act)
		}
		return newFCLayer(layerName, in, out, weightInit.InitWFn(src),
			biasInit.InitWFn(src), act)
	}

	if c.Type == LinearType {
		return &Linear{
			name:  name,
			in:    in,
			layer: newLayer(0, in, c.Sizes[0], Identity()),
		}, nil
	}

	act := c.Activation
	if act == nil {
		act = Identity()
	}

	mlp := &MLP{name: name, in: in}
	prev := in
	for i, size := range c.Sizes {
		layerAct := act
		if i == len(c.Sizes)-1 && !c.ActivateFinal {
			layerAct = Identity()
		}
		mlp.layers = append(mlp.layers, newLayer(i, prev, size, layerAct))
		prev = size
	}
	if c.LayerNorm {
		mlp.norm = newLayerNorm(name+"/norm", prev)
	}
	return mlp, nil
}
