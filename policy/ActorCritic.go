package policy

import (
	"math"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/agent"
	"github.com/samuelfneumann/rlcomm/environment"
	"github.com/samuelfneumann/rlcomm/graphs"
	"github.com/samuelfneumann/rlcomm/network"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"
)

// forwarder adds the forward pass of a policy over a batch of graphs to
// a Context
type forwarder interface {
	Forward(c *network.Context, batch *graphs.GraphBatch) (*agent.Output,
		error)
}

// actorCritic implements agent.ActorCritic on top of the forward pass
// of a concrete policy. It is not safe for concurrent use, since
// sampling advances a shared source.
type actorCritic struct {
	fwd      forwarder
	unpacker environment.Unpacker
	space    environment.ActionSpace
	src      rand.Source
	eval     bool
}

// newActorCritic returns an actorCritic drawing its samples from src
func newActorCritic(fwd forwarder, u environment.Unpacker,
	space environment.ActionSpace, src rand.Source) *actorCritic {
	return &actorCritic{
		fwd:      fwd,
		unpacker: u,
		space:    space,
		src:      src,
	}
}

// pass holds the computed outputs of one forward pass over B
// observations
type pass struct {
	rows     int
	logits   []float64
	logProbs []float64
	values   []float64
}

// run unpacks obs and computes the forward pass over it in a fresh
// Context
func (a *actorCritic) run(obs mat.Matrix) (*pass, error) {
	batch, err := a.unpacker.Unpack(obs)
	if err != nil {
		return nil, errors.Wrap(err, "run")
	}

	c := network.NewContext()
	defer c.Close()

	out, err := a.fwd.Forward(c, batch)
	if err != nil {
		return nil, errors.Wrap(err, "run")
	}
	if err := c.Run(); err != nil {
		return nil, errors.Wrap(err, "run")
	}

	p := &pass{rows: batch.NumGraphs()}
	if p.logits, err = network.Value(out.Logits); err != nil {
		return nil, errors.Wrap(err, "run")
	}
	if p.logProbs, err = network.Value(out.LogProbs); err != nil {
		return nil, errors.Wrap(err, "run")
	}
	if p.values, err = network.Value(out.Values); err != nil {
		return nil, errors.Wrap(err, "run")
	}
	return p, nil
}

// Step implements the agent.ActorCritic interface
func (a *actorCritic) Step(obs mat.Matrix, deterministic bool) (
	*agent.StepResult, error) {
	p, err := a.run(obs)
	if err != nil {
		return nil, errors.Wrap(err, "step")
	}

	n, dims := a.space.Size(), a.space.Dims()
	offsets := make([]int, dims)
	for k := 1; k < dims; k++ {
		offsets[k] = offsets[k-1] + a.space.N[k-1]
	}

	result := &agent.StepResult{
		Actions:     mat.NewDense(p.rows, dims, nil),
		Values:      p.values,
		NegLogProbs: make([]float64, p.rows),
	}
	for b := 0; b < p.rows; b++ {
		dist, err := NewDistribution(a.space, p.logits[b*n:(b+1)*n], a.src)
		if err != nil {
			return nil, errors.Wrap(err, "step")
		}

		var action []int
		if deterministic || a.eval {
			action = dist.Mode()
		} else {
			action = dist.Sample()
		}

		logProb := 0.0
		for k, choice := range action {
			result.Actions.Set(b, k, float64(choice))
			logProb += p.logProbs[b*n+offsets[k]+choice]
		}
		result.NegLogProbs[b] = -logProb
	}

	klog.V(2).Infof("stepped %d observations (deterministic: %v)", p.rows,
		deterministic || a.eval)
	return result, nil
}

// ProbaStep implements the agent.ActorCritic interface
func (a *actorCritic) ProbaStep(obs mat.Matrix) (*mat.Dense, error) {
	p, err := a.run(obs)
	if err != nil {
		return nil, errors.Wrap(err, "probaStep")
	}

	n := a.space.Size()
	probs := mat.NewDense(p.rows, n, nil)
	probs.Apply(func(i, j int, _ float64) float64 {
		return math.Exp(p.logProbs[i*n+j])
	}, probs)
	return probs, nil
}

// Value implements the agent.ActorCritic interface
func (a *actorCritic) Value(obs mat.Matrix) (*mat.VecDense, error) {
	p, err := a.run(obs)
	if err != nil {
		return nil, errors.Wrap(err, "value")
	}
	return mat.NewVecDense(p.rows, p.values), nil
}

// SelectAction implements the agent.Policy interface
func (a *actorCritic) SelectAction(obs mat.Vector) (*mat.VecDense, error) {
	row := mat.NewDense(1, obs.Len(), nil)
	row.Copy(obs.T())

	result, err := a.Step(row, a.eval)
	if err != nil {
		return nil, errors.Wrap(err, "selectAction")
	}
	return mat.VecDenseCopyOf(result.Actions.RowView(0)), nil
}

// Eval implements the agent.Policy interface
func (a *actorCritic) Eval() { a.eval = true }

// Train implements the agent.Policy interface
func (a *actorCritic) Train() { a.eval = false }

// IsEval implements the agent.Policy interface
func (a *actorCritic) IsEval() bool { return a.eval }
