// Package agent defines the interfaces of actor-critic policies
package agent

import (
	"github.com/samuelfneumann/rlcomm/network"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. In training mode a
// Policy samples its actions; in evaluation mode it takes the most
// likely action.
type Policy interface {
	// SelectAction returns the action to take for a single flat
	// observation
	SelectAction(obs mat.Vector) (*mat.VecDense, error)

	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

// StepResult holds the outcome of one Step over a batch of B
// observations
type StepResult struct {
	// Actions is B x D, one row of D sub-actions per observation
	Actions *mat.Dense

	// Values holds the state value estimate of each observation
	Values []float64

	// NegLogProbs holds the negative log probability of each row of
	// Actions under the policy
	NegLogProbs []float64
}

// ActorCritic is a Policy with a state value estimate, as consumed by
// an actor-critic trainer. Each row of a batch of observations is the
// flat observation of one environment.
type ActorCritic interface {
	Policy

	// Step selects an action for each observation and returns it with
	// the value estimate and the negative log probability of the action.
	// If deterministic is true, the most likely action is selected.
	Step(obs mat.Matrix, deterministic bool) (*StepResult, error)

	// ProbaStep returns the action probabilities of each observation
	ProbaStep(obs mat.Matrix) (*mat.Dense, error)

	// Value returns the state value estimate of each observation
	Value(obs mat.Matrix) (*mat.VecDense, error)

	// Params returns the learnable parameters of the policy
	Params() []*network.Param
}

// Output holds the nodes computed by the forward pass of an ActorCritic
// over a batch of B observations with n action logits each.
//
// The nodes live in the Context the forward pass was added to, so that
// a trainer can differentiate through them with respect to the
// Learnables of that Context.
type Output struct {
	Logits   *G.Node // B x n
	LogProbs *G.Node // B x n, normalised per sub-action
	Values   *G.Node // B x 1
}
