package environment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// Starter draws batches of random observations, one per row
type Starter interface {
	Size() int
	Start(rows int) *mat.Dense
}

// UniformStarter samples observations from a multi-dimensional uniform
// distribution
type UniformStarter struct {
	features int
	rand     *distmv.Uniform
}

// NewUniformStarter returns a new UniformStarter, sampling dimension i
// uniformly from bounds[i]
func NewUniformStarter(bounds []r1.Interval, seed uint64) UniformStarter {
	source := rand.NewSource(seed)
	return UniformStarter{len(bounds), distmv.NewUniform(bounds, source)}
}

// Size returns the number of values of each observation
func (u UniformStarter) Size() int {
	return u.features
}

// Start returns rows observations
func (u UniformStarter) Start(rows int) *mat.Dense {
	obs := mat.NewDense(rows, u.features, nil)
	for i := 0; i < rows; i++ {
		u.rand.Rand(obs.RawRowView(i))
	}
	return obs
}

// CategoricalStarter samples observations whose values are drawn from
// uniform categorical distributions over (0, 1, 2, ... N)
type CategoricalStarter struct {
	rand []distuv.Categorical
}

// NewCategoricalStarter returns a new CategoricalStarter, sampling
// dimension i from (0, 1, 2, ... bounds[i]-1)
func NewCategoricalStarter(bounds []int, seed uint64) CategoricalStarter {
	source := rand.NewSource(seed)

	dists := make([]distuv.Categorical, len(bounds))
	for i := range dists {
		weights := make([]float64, bounds[i])
		for j := range weights {
			weights[j] = 1.0 / float64(len(weights))
		}
		dists[i] = distuv.NewCategorical(weights, source)
	}
	return CategoricalStarter{dists}
}

// Size returns the number of values of each observation
func (c CategoricalStarter) Size() int {
	return len(c.rand)
}

// Start returns rows observations
func (c CategoricalStarter) Start(rows int) *mat.Dense {
	obs := mat.NewDense(rows, len(c.rand), nil)
	for i := 0; i < rows; i++ {
		for j := range c.rand {
			obs.Set(i, j, c.rand[j].Rand())
		}
	}
	return obs
}

// ConcatStarter samples the columns of each of its Starters in turn
type ConcatStarter []Starter

// Size returns the number of values of each observation
func (c ConcatStarter) Size() int {
	size := 0
	for _, s := range c {
		size += s.Size()
	}
	return size
}

// Start returns rows observations
func (c ConcatStarter) Start(rows int) *mat.Dense {
	obs := mat.NewDense(rows, c.Size(), nil)
	col := 0
	for _, s := range c {
		if s.Size() == 0 {
			continue
		}
		obs.Slice(0, rows, col, col+s.Size()).(*mat.Dense).Copy(s.Start(rows))
		col += s.Size()
	}
	return obs
}

// Starter returns a Starter of perimeter defense observations with a
// random communication graph and data uniform in [-1, 1]
func (p PDefense) Starter(seed uint64) Starter {
	nA := p.NumAgents
	adj := make([]int, nA*nA)
	for i := range adj {
		adj[i] = 2
	}

	data := make([]r1.Interval, p.Size()-nA*nA)
	for i := range data {
		data[i] = r1.Interval{Min: -1, Max: 1}
	}

	starter := ConcatStarter{NewCategoricalStarter(adj, seed)}
	if len(data) > 0 {
		starter = append(starter, NewUniformStarter(data, seed+1))
	}
	return starter
}
