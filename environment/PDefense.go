package environment

import (
	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/graphs"
	"gonum.org/v1/gonum/mat"
)

// Default feature widths of the perimeter defense game
const (
	PDefenseAgentSize  = 1
	PDefenseTargetSize = 2
	PDefenseObsSize    = 2
)

// PDefense unpacks observations of the perimeter defense game. Each
// observation is laid out as
//
//	[comm_adj    (NumAgents * NumAgents),
//	 agent_data  (NumAgents * AgentSize),
//	 obs_adj     (NumAgents * NumTargets),
//	 target_data (NumTargets * TargetSize),
//	 obs_data    (NumAgents * NumTargets * ObsSize)]
//
// and is turned into a graph whose first NumAgents nodes are the
// (controlled) agents and whose remaining nodes are the targets. Node
// features are [controlled, data...], zero padded to a common width.
// There is an agent -> agent edge wherever comm_adj is non-zero, with
// features [0, 1, 0...], followed by one agent -> target edge for every
// pair, with features [1, obs_adj, obs_data...]. Agent -> target edges
// are emitted agent-major, so the policy sees NumTargets choices per
// agent.
type PDefense struct {
	NumAgents  int
	NumTargets int
	AgentSize  int
	TargetSize int
	ObsSize    int
}

// NewPDefense returns the perimeter defense layout with the default
// feature widths
func NewPDefense(agents, targets int) PDefense {
	return PDefense{
		NumAgents:  agents,
		NumTargets: targets,
		AgentSize:  PDefenseAgentSize,
		TargetSize: PDefenseTargetSize,
		ObsSize:    PDefenseObsSize,
	}
}

// Validate returns an error if the layout is malformed
func (p PDefense) Validate() error {
	if p.NumAgents < 1 || p.NumTargets < 0 {
		return errors.Errorf("validate: need at least one agent, have %d "+
			"agents and %d targets", p.NumAgents, p.NumTargets)
	}
	if p.AgentSize < 0 || p.TargetSize < 0 || p.ObsSize < 0 {
		return errors.Errorf("validate: negative feature size in %+v", p)
	}
	return nil
}

// Size returns the number of values in one observation
func (p PDefense) Size() int {
	nA, nT := p.NumAgents, p.NumTargets
	return nA*nA + nA*p.AgentSize + nA*nT + nT*p.TargetSize +
		nA*nT*p.ObsSize
}

// NodeSize returns the width of the node features produced by Unpack
func (p PDefense) NodeSize() int {
	if p.AgentSize > p.TargetSize {
		return 1 + p.AgentSize
	}
	return 1 + p.TargetSize
}

// EdgeSize returns the width of the edge features produced by Unpack
func (p PDefense) EdgeSize() int {
	return 2 + p.ObsSize
}

// Widths implements the Unpacker interface
func (p PDefense) Widths() Widths {
	return Widths{Node: p.NodeSize(), Edge: p.EdgeSize()}
}

// ActionSpace returns the action space of the game: each agent picks
// one target
func (p PDefense) ActionSpace() ActionSpace {
	nvec := make([]int, p.NumAgents)
	for i := range nvec {
		nvec[i] = p.NumTargets
	}
	return NewMultiDiscrete(nvec...)
}

// Unpack converts each row of obs into a graph of the returned batch
func (p PDefense) Unpack(obs mat.Matrix) (*graphs.GraphBatch, error) {
	rows, err := checkRows(p, obs)
	if err != nil {
		return nil, err
	}

	gs := make([]graphs.Graph, rows)
	row := make([]float64, p.Size())
	for i := 0; i < rows; i++ {
		mat.Row(row, i, obs)
		gs[i] = p.unpackRow(row)
	}
	return graphs.FromGraphs(gs)
}

// unpackRow unpacks a single observation
func (p PDefense) unpackRow(row []float64) graphs.Graph {
	nA, nT := p.NumAgents, p.NumTargets

	commAdj := row[:nA*nA]
	agentData := row[nA*nA : nA*nA+nA*p.AgentSize]
	off := nA*nA + nA*p.AgentSize
	obsAdj := row[off : off+nA*nT]
	off += nA * nT
	targetData := row[off : off+nT*p.TargetSize]
	off += nT * p.TargetSize
	obsData := row[off : off+nA*nT*p.ObsSize]

	nodes := graphs.ZeroFeatures(nA+nT, p.NodeSize())
	for a := 0; a < nA; a++ {
		node := nodes.Row(a)
		node[0] = 1.0
		copy(node[1:], agentData[a*p.AgentSize:(a+1)*p.AgentSize])
	}
	for t := 0; t < nT; t++ {
		node := nodes.Row(nA + t)
		copy(node[1:], targetData[t*p.TargetSize:(t+1)*p.TargetSize])
	}

	var edgeData []float64
	var senders, receivers []int
	for i := 0; i < nA; i++ {
		for j := 0; j < nA; j++ {
			if commAdj[i*nA+j] == 0 {
				continue
			}
			edge := make([]float64, p.EdgeSize())
			edge[1] = 1.0
			edgeData = append(edgeData, edge...)
			senders = append(senders, i)
			receivers = append(receivers, j)
		}
	}
	for a := 0; a < nA; a++ {
		for t := 0; t < nT; t++ {
			edge := make([]float64, p.EdgeSize())
			edge[0] = 1.0
			edge[1] = obsAdj[a*nT+t]
			pair := a*nT + t
			copy(edge[2:], obsData[pair*p.ObsSize:(pair+1)*p.ObsSize])
			edgeData = append(edgeData, edge...)
			senders = append(senders, a)
			receivers = append(receivers, nA+t)
		}
	}

	edges := graphs.ZeroFeatures(len(senders), p.EdgeSize())
	copy(edges.Data, edgeData)

	return graphs.Graph{
		Nodes:     nodes,
		Edges:     edges,
		Senders:   senders,
		Receivers: receivers,
	}
}

// Centralized unpacks perimeter defense observations into graphs of a
// single node and no edges. The node holds the agent data followed by
// the observation data of every agent and target pair, the input of a
// centralized, non-relational policy.
type Centralized struct {
	PDefense
}

// NodeSize returns the width of the single node of each graph
func (c Centralized) NodeSize() int {
	return c.NumAgents*c.AgentSize + c.NumAgents*c.NumTargets*c.ObsSize
}

// Widths implements the Unpacker interface
func (c Centralized) Widths() Widths {
	return Widths{Node: c.NodeSize()}
}

// Unpack converts each row of obs into a single node graph
func (c Centralized) Unpack(obs mat.Matrix) (*graphs.GraphBatch, error) {
	rows, err := checkRows(c, obs)
	if err != nil {
		return nil, err
	}

	nA, nT := c.NumAgents, c.NumTargets
	agentOff := nA * nA
	obsOff := agentOff + nA*c.AgentSize + nA*nT + nT*c.TargetSize
	agentLen := nA * c.AgentSize

	nodes := graphs.ZeroFeatures(rows, c.NodeSize())
	row := make([]float64, c.Size())
	for i := 0; i < rows; i++ {
		mat.Row(row, i, obs)
		node := nodes.Row(i)
		copy(node, row[agentOff:agentOff+agentLen])
		copy(node[agentLen:], row[obsOff:])
	}

	nNode := make([]int, rows)
	for i := range nNode {
		nNode[i] = 1
	}
	batch := &graphs.GraphBatch{
		Nodes:     nodes,
		Senders:   []int{},
		Receivers: []int{},
		NNode:     nNode,
		NEdge:     make([]int, rows),
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	return batch, nil
}
