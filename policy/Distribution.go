package policy

import (
	"math"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/environment"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution is a distribution over the actions of a single
// observation. Actions have one entry per sub-action.
type Distribution interface {
	Mode() []int
	Sample() []int
	LogProb(action []int) float64
	Entropy() float64

	// Probs returns the probability of each logit's action
	Probs() []float64
}

// Categorical is a softmax distribution over a single set of logits
type Categorical struct {
	logits []float64
	lse    float64
	dist   distuv.Categorical
}

// NewCategorical returns a new Categorical distribution with the given
// logits, sampling from src
func NewCategorical(logits []float64, src rand.Source) *Categorical {
	lse := floats.LogSumExp(logits)
	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = math.Exp(l - lse)
	}

	return &Categorical{
		logits: append([]float64(nil), logits...),
		lse:    lse,
		dist:   distuv.NewCategorical(probs, src),
	}
}

// Mode returns the most likely action
func (c *Categorical) Mode() []int {
	return []int{floats.MaxIdx(c.logits)}
}

// Sample draws an action
func (c *Categorical) Sample() []int {
	return []int{int(c.dist.Rand())}
}

// LogProb returns the log probability of action
func (c *Categorical) LogProb(action []int) float64 {
	if len(action) != 1 || action[0] < 0 || action[0] >= len(c.logits) {
		return math.Inf(-1)
	}
	return c.logits[action[0]] - c.lse
}

// Entropy returns the entropy of the distribution
func (c *Categorical) Entropy() float64 {
	return c.dist.Entropy()
}

// Probs implements the Distribution interface
func (c *Categorical) Probs() []float64 {
	probs := make([]float64, len(c.logits))
	for i, l := range c.logits {
		probs[i] = math.Exp(l - c.lse)
	}
	return probs
}

// MultiCategorical is a product of independent Categorical
// distributions, one per sub-action, over consecutive runs of logits
type MultiCategorical struct {
	dists []*Categorical
}

// NewMultiCategorical returns a new MultiCategorical distribution with
// nvec[k] logits for sub-action k
func NewMultiCategorical(logits []float64, nvec []int,
	src rand.Source) *MultiCategorical {
	m := &MultiCategorical{dists: make([]*Categorical, len(nvec))}
	start := 0
	for k, n := range nvec {
		m.dists[k] = NewCategorical(logits[start:start+n], src)
		start += n
	}
	return m
}

// Mode implements the Distribution interface
func (m *MultiCategorical) Mode() []int {
	out := make([]int, len(m.dists))
	for k, d := range m.dists {
		out[k] = d.Mode()[0]
	}
	return out
}

// Sample implements the Distribution interface
func (m *MultiCategorical) Sample() []int {
	out := make([]int, len(m.dists))
	for k, d := range m.dists {
		out[k] = d.Sample()[0]
	}
	return out
}

// LogProb implements the Distribution interface
func (m *MultiCategorical) LogProb(action []int) float64 {
	if len(action) != len(m.dists) {
		return math.Inf(-1)
	}
	logProb := 0.0
	for k, d := range m.dists {
		logProb += d.LogProb(action[k : k+1])
	}
	return logProb
}

// Entropy implements the Distribution interface
func (m *MultiCategorical) Entropy() float64 {
	entropy := 0.0
	for _, d := range m.dists {
		entropy += d.Entropy()
	}
	return entropy
}

// Probs implements the Distribution interface
func (m *MultiCategorical) Probs() []float64 {
	var probs []float64
	for _, d := range m.dists {
		probs = append(probs, d.Probs()...)
	}
	return probs
}

// NewDistribution returns the distribution over space with the given
// logits
func NewDistribution(space environment.ActionSpace, logits []float64,
	src rand.Source) (Distribution, error) {
	if len(logits) != space.Size() {
		return nil, errors.Errorf("newDistribution: invalid number of "+
			"logits\n\twant(%d)\n\thave(%d)", space.Size(), len(logits))
	}

	if space.Cardinality == environment.MultiDiscrete {
		return NewMultiCategorical(logits, space.N, src), nil
	}
	return NewCategorical(logits, src), nil
}
