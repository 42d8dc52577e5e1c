package agent

import (
	"github.com/samuelfneumann/rlcomm/environment"
)

// Config represents a configuration for creating a policy
type Config interface {
	// CreatePolicy creates the policy that the config describes for
	// observations unpacked by u and actions in space. The seed
	// determines both the initial parameters and the sampled actions.
	CreatePolicy(u environment.Unpacker, space environment.ActionSpace,
		seed uint64) (ActorCritic, error)

	// Validate returns an error describing whether or not the
	// configuration is valid or not.
	Validate() error

	// Type returns the type of policy the Config creates
	Type() Type
}

// PolicyType represents a type of distribution that a policy could be
type PolicyType string

const (
	Categorical      PolicyType = "Softmax"
	MultiCategorical PolicyType = "MultiSoftmax"
)

// PolicyTypeOf returns the type of distribution over actions in space
func PolicyTypeOf(space environment.ActionSpace) PolicyType {
	if space.Cardinality == environment.MultiDiscrete {
		return MultiCategorical
	}
	return Categorical
}
