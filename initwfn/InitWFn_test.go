package initwfn

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

func TestSeededInitIsReproducible(t *testing.T) {
	for _, init := range []*InitWFn{
		NewGlorotU(1.0), NewGlorotN(1.0), NewHeU(1.0), NewHeN(1.0),
		NewGaussian(0, 1), NewUniform(-1, 1), NewOrthogonal(1.0),
	} {
		a := init.InitWFn(rand.NewSource(7))(tensor.Float64, 4, 3).([]float64)
		b := init.InitWFn(rand.NewSource(7))(tensor.Float64, 4, 3).([]float64)
		c := init.InitWFn(rand.NewSource(8))(tensor.Float64, 4, 3).([]float64)

		assert.Len(t, a, 12, init.String())
		assert.Equal(t, a, b, init.String())
		assert.NotEqual(t, a, c, init.String())
	}
}

func TestConstants(t *testing.T) {
	zeroes := NewZeroes().InitWFn(nil)(tensor.Float64, 2, 2)
	assert.Equal(t, []float64{0, 0, 0, 0}, zeroes)

	ones := NewOnes().InitWFn(nil)(tensor.Float32, 3)
	assert.Equal(t, []float32{1, 1, 1}, ones)

	c := NewConstant(2.5).InitWFn(nil)(tensor.Float64, 1, 2)
	assert.Equal(t, []float64{2.5, 2.5}, c)
}

func TestOrthogonal(t *testing.T) {
	// Tall: columns are orthonormal
	w := NewOrthogonal(1.0).InitWFn(rand.NewSource(1))(tensor.Float64, 5, 3).([]float64)
	col := func(j int) []float64 {
		c := make([]float64, 5)
		for i := range c {
			c[i] = w[i*3+j]
		}
		return c
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, floats.Dot(col(i), col(j)), 1e-9)
		}
	}

	// Wide with gain: rows have norm equal to the gain
	w = NewOrthogonal(2.0).InitWFn(rand.NewSource(1))(tensor.Float64, 2, 4).([]float64)
	assert.InDelta(t, 2.0, floats.Norm(w[:4], 2), 1e-9)
	assert.InDelta(t, 0.0, floats.Dot(w[:4], w[4:]), 1e-9)
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(NewGlorotU(0.5))
	require.NoError(t, err)

	var init InitWFn
	require.NoError(t, json.Unmarshal(data, &init))
	assert.Equal(t, GlorotU, init.Type)
	assert.Equal(t, GlorotUConfig{Gain: 0.5}, init.Config)

	require.NoError(t, json.Unmarshal([]byte(`{"Type": "Zeroes"}`), &init))
	assert.Equal(t, ZeroesConfig{}, init.Config)

	assert.Error(t, json.Unmarshal([]byte(`{"Type": "Bogus"}`), &init))
}
