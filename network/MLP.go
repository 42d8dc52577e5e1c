package network

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// MLP implements a multi-layered perceptron, optionally followed by a
// learned layer normalisation
type MLP struct {
	name   string
	in     int
	layers []*fcLayer
	norm   *layerNorm
}

// Fwd implements the Transform interface
func (m *MLP) Fwd(c *Context, x *G.Node) (*G.Node, error) {
	if err := checkInput(x, m.in); err != nil {
		return nil, errors.Wrapf(err, "%v", m.name)
	}

	var err error
	for i, layer := range m.layers {
		x, err = layer.fwd(c, x)
		if err != nil {
			return nil, errors.Wrapf(err, "fwd: %v layer %d", m.name, i)
		}
	}

	if m.norm != nil {
		x, err = m.norm.fwd(c, x)
		if err != nil {
			return nil, errors.Wrapf(err, "fwd: %v layer norm", m.name)
		}
	}
	return x, nil
}

// InSize implements the Transform interface
func (m *MLP) InSize() int {
	return m.in
}

// OutSize implements the Transform interface
func (m *MLP) OutSize() int {
	return m.layers[len(m.layers)-1].outSize()
}

// Params implements the Transform interface
func (m *MLP) Params() []*Param {
	var params []*Param
	for _, layer := range m.layers {
		params = append(params, layer.params()...)
	}
	if m.norm != nil {
		params = append(params, m.norm.params()...)
	}
	return params
}

// String implements the fmt.Stringer interface
func (m *MLP) String() string {
	sizes := make([]string, 0, len(m.layers)+1)
	sizes = append(sizes, fmt.Sprint(m.in))
	for _, layer := range m.layers {
		sizes = append(sizes, fmt.Sprintf("%d(%v)", layer.outSize(),
			layer.act))
	}
	s := fmt.Sprintf("%s: MLP[%s]", m.name, strings.Join(sizes, " -> "))
	if m.norm != nil {
		s += " + " + m.norm.String()
	}
	return s
}

// Linear implements a single fully connected layer with no activation
type Linear struct {
	name  string
	in    int
	layer *fcLayer
}

// Fwd implements the Transform interface
func (l *Linear) Fwd(c *Context, x *G.Node) (*G.Node, error) {
	if err := checkInput(x, l.in); err != nil {
		return nil, errors.Wrapf(err, "%v", l.name)
	}

	out, err := l.layer.fwd(c, x)
	if err != nil {
		return nil, errors.Wrapf(err, "fwd: %v", l.name)
	}
	return out, nil
}

// InSize implements the Transform interface
func (l *Linear) InSize() int {
	return l.in
}

// OutSize implements the Transform interface
func (l *Linear) OutSize() int {
	return l.layer.outSize()
}

// Params implements the Transform interface
func (l *Linear) Params() []*Param {
	return l.layer.params()
}

// String implements the fmt.Stringer interface
func (l *Linear) String() string {
	return fmt.Sprintf("%s: Linear[%d -> %d]", l.name, l.in, l.OutSize())
}
