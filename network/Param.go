package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Param is a named, learnable weight matrix.
//
// Each Param belongs to exactly one layer. Forward passes only read a
// Param's value; it is changed solely by whoever trains the network,
// between forward passes.
type Param struct {
	name  string
	value *tensor.Dense
}

// NewParam returns a new rows x cols Param initialized by init
func NewParam(name string, rows, cols int, init G.InitWFn) *Param {
	data := init(tensor.Float64, rows, cols)
	value := tensor.New(
		tensor.WithShape(rows, cols),
		tensor.WithBacking(data),
	)
	return &Param{name: name, value: value}
}

// Name returns the name of the Param
func (p *Param) Name() string {
	return p.name
}

// Value returns the tensor holding the Param's weights
func (p *Param) Value() *tensor.Dense {
	return p.value
}

// Shape returns the shape of the Param
func (p *Param) Shape() []int {
	return []int(p.value.Shape().Clone())
}

// Len returns the number of weights in the Param
func (p *Param) Len() int {
	return p.value.Shape().TotalSize()
}

// Data returns a copy of the Param's weights in row-major order
func (p *Param) Data() []float64 {
	data := p.value.Data().([]float64)
	out := make([]float64, len(data))
	copy(out, data)
	return out
}

// String implements the fmt.Stringer interface
func (p *Param) String() string {
	return fmt.Sprintf("%s%v", p.name, p.value.Shape())
}

// NumParams returns the total number of weights in ps
func NumParams(ps []*Param) int {
	n := 0
	for _, p := range ps {
		n += p.Len()
	}
	return n
}
