package environment

import (
	"fmt"

	"github.com/pkg/errors"
)

// Cardinality determines whether an action space holds one discrete
// choice or several independent ones
type Cardinality string

const (
	Discrete      Cardinality = "Discrete"
	MultiDiscrete Cardinality = "MultiDiscrete"
)

// ActionSpace describes the discrete actions of an environment.
//
// For a Discrete space, N[0] is the number of actions. For a
// MultiDiscrete space, N[i] is the number of choices of the i-th
// sub-action, which is usually the i-th controlled agent.
type ActionSpace struct {
	Cardinality
	N []int
}

// NewDiscrete returns a Discrete action space with n actions
func NewDiscrete(n int) ActionSpace {
	return ActionSpace{Cardinality: Discrete, N: []int{n}}
}

// NewMultiDiscrete returns a MultiDiscrete action space with nvec[i]
// choices for sub-action i
func NewMultiDiscrete(nvec ...int) ActionSpace {
	n := make([]int, len(nvec))
	copy(n, nvec)
	return ActionSpace{Cardinality: MultiDiscrete, N: n}
}

// Size returns the total number of action logits of the space
func (a ActionSpace) Size() int {
	size := 0
	for _, n := range a.N {
		size += n
	}
	return size
}

// Dims returns the number of sub-actions, which is 1 for a Discrete
// space
func (a ActionSpace) Dims() int {
	return len(a.N)
}

// Validate returns an error if the action space is malformed
func (a ActionSpace) Validate() error {
	switch a.Cardinality {
	case Discrete:
		if len(a.N) != 1 {
			return errors.Errorf("validate: discrete action space must have "+
				"a single size, have %v", a.N)
		}
	case MultiDiscrete:
		if len(a.N) == 0 {
			return errors.New("validate: multi-discrete action space has no " +
				"sub-actions")
		}
	default:
		return errors.Errorf("validate: unknown cardinality %q",
			a.Cardinality)
	}

	for i, n := range a.N {
		if n < 1 {
			return errors.Errorf("validate: sub-action %d has %d choices", i,
				n)
		}
	}
	return nil
}

// String implements the fmt.Stringer interface
func (a ActionSpace) String() string {
	if a.Cardinality == Discrete && len(a.N) == 1 {
		return fmt.Sprintf("Discrete(%d)", a.N[0])
	}
	return fmt.Sprintf("%v%v", a.Cardinality, a.N)
}
