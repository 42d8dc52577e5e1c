// Package config loads run files, which describe the observation layout
// of an environment and the policy acting on it in HCL:
//
//	seed = 42
//
//	layout "pdefense" {
//	  num_agents  = 3
//	  num_targets = var.targets
//	}
//
//	policy "gnnfwd" {
//	  num_processing_steps = 5
//	  latent_size          = 16
//	}
//
// The label of the layout block selects the layout: "mapping" for a
// generic environment.Layout, "pdefense" or "centralized" for the
// perimeter defense game. The label of the policy block is a registered
// agent.Type and its body is decoded into the Config of that type. A
// policy block may hold an action_space block; without one, the action
// space is that of the layout.
package config

import (
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/agent"
	"github.com/samuelfneumann/rlcomm/environment"
	_ "github.com/samuelfneumann/rlcomm/policy" // registers policy types
	"github.com/zclconf/go-cty/cty"
	"k8s.io/klog/v2"
)

// Layout kinds
const (
	Mapping     = "mapping"
	PDefense    = "pdefense"
	Centralized = "centralized"
)

// Run is a decoded run file
type Run struct {
	Seed     uint64
	Unpacker environment.Unpacker
	Space    environment.ActionSpace
	Policy   agent.Config
}

// CreatePolicy creates the policy of the run
func (r *Run) CreatePolicy() (agent.ActorCritic, error) {
	return r.Policy.CreatePolicy(r.Unpacker, r.Space, r.Seed)
}

// fileRoot holds the top-level blocks of a run file
type fileRoot struct {
	Seed   *uint64      `hcl:"seed,optional"`
	Layout *layoutBlock `hcl:"layout,block"`
	Policy *policyBlock `hcl:"policy,block"`
}

type layoutBlock struct {
	Kind string   `hcl:"kind,label"`
	Body hcl.Body `hcl:",remain"`
}

type policyBlock struct {
	Type        string            `hcl:"type,label"`
	ActionSpace *actionSpaceBlock `hcl:"action_space,block"`
	Body        hcl.Body          `hcl:",remain"`
}

type actionSpaceBlock struct {
	Cardinality string `hcl:"cardinality"`
	N           []int  `hcl:"n"`
}

type mappingBlock struct {
	MaxNodes   int `hcl:"max_nodes"`
	MaxEdges   int `hcl:"max_edges"`
	NodeSize   int `hcl:"node_size"`
	EdgeSize   int `hcl:"edge_size,optional"`
	GlobalSize int `hcl:"global_size,optional"`
}

type pdefenseBlock struct {
	NumAgents  int  `hcl:"num_agents"`
	NumTargets int  `hcl:"num_targets"`
	AgentSize  *int `hcl:"agent_size,optional"`
	TargetSize *int `hcl:"target_size,optional"`
	ObsSize    *int `hcl:"obs_size,optional"`
}

// Load reads and decodes the run file at path. Each entry of vars is
// available as var.<name> in expressions.
func Load(path string, vars map[string]cty.Value) (*Run, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}
	return Parse(src, path, vars)
}

// Parse decodes a run file. The filename is only used in diagnostics.
func Parse(src []byte, filename string, vars map[string]cty.Value) (*Run,
	error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "parse %s", filename)
	}

	ctx := evalContext(vars)
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, ctx, &root); diags.HasErrors() {
		return nil, errors.Wrapf(diags, "parse %s", filename)
	}
	if root.Layout == nil {
		return nil, errors.Errorf("parse %s: missing layout block", filename)
	}
	if root.Policy == nil {
		return nil, errors.Errorf("parse %s: missing policy block", filename)
	}

	run := &Run{}
	if root.Seed != nil {
		run.Seed = *root.Seed
	}

	var err error
	run.Unpacker, err = decodeLayout(root.Layout, ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", filename)
	}
	run.Space, err = actionSpace(root.Policy.ActionSpace, run.Unpacker)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", filename)
	}
	run.Policy, err = decodePolicy(root.Policy, ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", filename)
	}

	klog.V(1).Infof("loaded %s: %T over %v, %v policy", filename,
		run.Unpacker, run.Space, run.Policy.Type())
	return run, nil
}

// evalContext exposes vars as the var object
func evalContext(vars map[string]cty.Value) *hcl.EvalContext {
	v := cty.EmptyObjectVal
	if len(vars) > 0 {
		v = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": v},
	}
}

// decodeLayout decodes the body of a layout block into the Unpacker of
// its kind
func decodeLayout(block *layoutBlock, ctx *hcl.EvalContext) (
	environment.Unpacker, error) {
	switch block.Kind {
	case Mapping:
		var m mappingBlock
		if diags := gohcl.DecodeBody(block.Body, ctx, &m); diags.HasErrors() {
			return nil, errors.Wrap(diags, "decodeLayout")
		}
		l := environment.Layout{
			MaxNodes:   m.MaxNodes,
			MaxEdges:   m.MaxEdges,
			NodeSize:   m.NodeSize,
			EdgeSize:   m.EdgeSize,
			GlobalSize: m.GlobalSize,
		}
		if err := l.Validate(); err != nil {
			return nil, errors.Wrap(err, "decodeLayout")
		}
		return l, nil

	case PDefense, Centralized:
		var b pdefenseBlock
		if diags := gohcl.DecodeBody(block.Body, ctx, &b); diags.HasErrors() {
			return nil, errors.Wrap(diags, "decodeLayout")
		}
		p := environment.NewPDefense(b.NumAgents, b.NumTargets)
		if b.AgentSize != nil {
			p.AgentSize = *b.AgentSize
		}
		if b.TargetSize != nil {
			p.TargetSize = *b.TargetSize
		}
		if b.ObsSize != nil {
			p.ObsSize = *b.ObsSize
		}
		if err := p.Validate(); err != nil {
			return nil, errors.Wrap(err, "decodeLayout")
		}

		if block.Kind == Centralized {
			return environment.Centralized{PDefense: p}, nil
		}
		return p, nil

	default:
		return nil, errors.Errorf("decodeLayout: unknown layout %q",
			block.Kind)
	}
}

// actionSpace returns the action space of the block, or that of the
// layout if there is no block
func actionSpace(block *actionSpaceBlock, u environment.Unpacker) (
	environment.ActionSpace, error) {
	if block == nil {
		spacer, ok := u.(environment.ActionSpacer)
		if !ok {
			return environment.ActionSpace{}, errors.Errorf("actionSpace: "+
				"layout %T has no action space, add an action_space block", u)
		}
		return spacer.ActionSpace(), nil
	}

	space := environment.ActionSpace{
		Cardinality: environment.Cardinality(block.Cardinality),
		N:           block.N,
	}
	if err := space.Validate(); err != nil {
		return environment.ActionSpace{}, errors.Wrap(err, "actionSpace")
	}
	return space, nil
}

// decodePolicy decodes the body of a policy block into a new Config of
// the block's type
func decodePolicy(block *policyBlock, ctx *hcl.EvalContext) (agent.Config,
	error) {
	config, err := agent.NewConfig(agent.Type(block.Type))
	if err != nil {
		return nil, errors.Wrap(err, "decodePolicy")
	}
	if diags := gohcl.DecodeBody(block.Body, ctx, config); diags.HasErrors() {
		return nil, errors.Wrapf(diags, "decodePolicy: %v", block.Type)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "decodePolicy")
	}
	return config, nil
}
