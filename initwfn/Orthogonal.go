package initwfn

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// OrthogonalConfig implements a configuration of the orthogonal
// initialization algorithm: weights form a (semi-)orthogonal matrix
// scaled by Gain.
type OrthogonalConfig struct {
	Gain float64
}

// NewOrthogonal returns a new orthogonal weight initializer
func NewOrthogonal(gain float64) *InitWFn {
	return newInitWFn(OrthogonalConfig{Gain: gain})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (o OrthogonalConfig) Type() Type {
	return Orthogonal
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn. The weight tensor is flattened to rows = s[0] and columns =
// the product of the remaining dimensions. If rows >= columns the
// columns are orthonormal, otherwise the rows are.
func (o OrthogonalConfig) Create(src rand.Source) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		n := size(s...)
		rows := 1
		if len(s) > 0 {
			rows = s[0]
		}
		if n == 0 {
			return draw(dt, 0, nil)
		}
		cols := n / rows

		// Orthonormalise the smaller set of vectors
		count, length := cols, rows
		if rows < cols {
			count, length = rows, cols
		}

		normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
		vectors := make([][]float64, count)
		for i := range vectors {
			vectors[i] = gramSchmidt(vectors[:i], length, normal.Rand)
		}

		values := make([]float64, n)
		for i := range vectors {
			floats.Scale(o.Gain, vectors[i])
			for j, v := range vectors[i] {
				if rows >= cols {
					values[j*cols+i] = v
				} else {
					values[i*cols+j] = v
				}
			}
		}

		next := 0
		return draw(dt, n, func() float64 {
			next++
			return values[next-1]
		})
	}
}

// gramSchmidt draws a random vector of the given length and returns it
// orthogonalised against basis and normalised. A vector that collapses
// numerically is redrawn.
func gramSchmidt(basis [][]float64, length int, next func() float64) []float64 {
	v := make([]float64, length)
	for {
		for i := range v {
			v[i] = next()
		}
		for _, b := range basis {
			floats.AddScaled(v, -floats.Dot(v, b), b)
		}

		norm := floats.Norm(v, 2)
		if norm > 1e-8 {
			floats.Scale(1/norm, v)
			return v
		}
	}
}
