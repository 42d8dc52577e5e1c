// Package graphs implements a flat, batched representation of one or
// more variable-size graphs.
//
// Graphs in a GraphBatch are concatenated: the node features of all
// graphs are stacked into a single block of rows, as are the edge
// features, and sender and receiver indices refer to rows of the
// concatenated node block. Per-graph node and edge counts record where
// one graph ends and the next begins.
package graphs

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// Features is a row-major block of feature vectors, one row per node,
// edge, or graph. Unlike a gonum matrix, a Features may have zero rows,
// which is how a batch of graphs without edges stores its edges.
type Features struct {
	Rows int
	Cols int
	Data []float64
}

// NewFeatures returns a new Features with the given number of rows and
// columns. If data is nil, the features are zero.
func NewFeatures(rows, cols int, data []float64) (*Features, error) {
	if rows < 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "newFeatures: negative "+
			"number of rows %d", rows)
	}
	if cols <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "newFeatures: features "+
			"must have at least one column, have %d", cols)
	}

	if data == nil {
		data = make([]float64, rows*cols)
	} else if len(data) != rows*cols {
		return nil, errors.Wrapf(ErrShapeMismatch, "newFeatures: invalid "+
			"data length \n\twant(%d)\n\thave(%d)", rows*cols, len(data))
	}
	return &Features{Rows: rows, Cols: cols, Data: data}, nil
}

// ZeroFeatures returns a rows x cols block of zeroes
func ZeroFeatures(rows, cols int) *Features {
	return &Features{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// FeaturesFromMatrix copies a gonum matrix into a new Features
func FeaturesFromMatrix(m mat.Matrix) *Features {
	r, c := m.Dims()
	f := ZeroFeatures(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			f.Data[i*c+j] = m.At(i, j)
		}
	}
	return f
}

// validate checks that the backing data agrees with the shape
func (f *Features) validate(name string) error {
	if f.Rows < 0 || f.Cols <= 0 || len(f.Data) != f.Rows*f.Cols {
		return errors.Wrapf(ErrShapeMismatch, "validate: %s features of "+
			"shape (%d, %d) have %d values", name, f.Rows, f.Cols, len(f.Data))
	}
	return nil
}

// Row returns row i. The returned slice shares memory with f.
func (f *Features) Row(i int) []float64 {
	return f.Data[i*f.Cols : (i+1)*f.Cols]
}

// At returns the feature in row i and column j
func (f *Features) At(i, j int) float64 {
	return f.Data[i*f.Cols+j]
}

// Clone returns a deep copy of f
func (f *Features) Clone() *Features {
	if f == nil {
		return nil
	}
	data := make([]float64, len(f.Data))
	copy(data, f.Data)
	return &Features{Rows: f.Rows, Cols: f.Cols, Data: data}
}

// Slice returns a copy of rows [from, to)
func (f *Features) Slice(from, to int) *Features {
	out := ZeroFeatures(to-from, f.Cols)
	copy(out.Data, f.Data[from*f.Cols:to*f.Cols])
	return out
}

// Dense returns the features as a gonum matrix, or nil if there are
// no rows.
func (f *Features) Dense() *mat.Dense {
	if f.Rows == 0 {
		return nil
	}
	return mat.NewDense(f.Rows, f.Cols, f.Clone().Data)
}

// Tensor returns the features as a Rows x Cols tensor, or nil if there
// are no rows.
func (f *Features) Tensor() *tensor.Dense {
	if f.Rows == 0 {
		return nil
	}
	return tensor.New(
		tensor.WithShape(f.Rows, f.Cols),
		tensor.WithBacking(f.Clone().Data),
	)
}

// ConcatRows stacks feature blocks vertically. All blocks must have the
// same number of columns.
func ConcatRows(fs ...*Features) (*Features, error) {
	if len(fs) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "concatRows: no features")
	}

	rows := 0
	for _, f := range fs {
		if f.Cols != fs[0].Cols {
			return nil, errors.Wrapf(ErrShapeMismatch, "concatRows: "+
				"column mismatch \n\twant(%d)\n\thave(%d)", fs[0].Cols, f.Cols)
		}
		rows += f.Rows
	}

	data := make([]float64, 0, rows*fs[0].Cols)
	for _, f := range fs {
		data = append(data, f.Data...)
	}
	return &Features{Rows: rows, Cols: fs[0].Cols, Data: data}, nil
}

// ConcatCols joins feature blocks horizontally so that row i of the
// output is the concatenation of row i of each block, in order. All
// blocks must have the same number of rows.
func ConcatCols(fs ...*Features) (*Features, error) {
	if len(fs) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "concatCols: no features")
	}

	cols := 0
	for _, f := range fs {
		if f.Rows != fs[0].Rows {
			return nil, errors.Wrapf(ErrShapeMismatch, "concatCols: row "+
				"mismatch \n\twant(%d)\n\thave(%d)", fs[0].Rows, f.Rows)
		}
		cols += f.Cols
	}

	out := ZeroFeatures(fs[0].Rows, cols)
	for i := 0; i < out.Rows; i++ {
		row := out.Row(i)[:0]
		for _, f := range fs {
			row = append(row, f.Row(i)...)
		}
	}
	return out, nil
}
