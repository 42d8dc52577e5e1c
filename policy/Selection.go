// Package policy implements actor-critic policies over graph
// observations: the graph network policy, whose action logits are the
// outputs of the edges from controlled agents to the entities they may
// act on, and a centralized single node baseline.
package policy

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/rlcomm/environment"
	"github.com/samuelfneumann/rlcomm/gnn"
	"github.com/samuelfneumann/rlcomm/graphs"
	"gorgonia.org/tensor"
)

// Selection maps the action edges of a batch to action logits. Row
// b*n + j of the batch's logits is the output of edge Edges[b*n + j],
// where n is the size of the action space.
type Selection struct {
	Edges    []int
	NumEdges int
	Width    int
}

// ActionEdges selects the action edges of each graph of batch: the
// edges whose sender is a controlled node, with a non-zero feature in
// the given channel, and whose receiver is not.
//
// Within a graph, action edges are ordered by local sender and then by
// local receiver, so the k-th controlled node owns a contiguous run of
// logits. Every graph must have exactly space.Size() action edges, and
// for a MultiDiscrete space the k-th controlled node must send exactly
// space.N[k] of them. Otherwise an error wrapping gnn.ErrConfiguration
// is returned.
func ActionEdges(batch *graphs.GraphBatch, channel int,
	space environment.ActionSpace) (*Selection, error) {
	if err := space.Validate(); err != nil {
		return nil, errors.Wrapf(gnn.ErrConfiguration, "actionEdges: %v", err)
	}
	if channel < 0 || channel >= batch.Nodes.Cols {
		return nil, errors.Wrapf(gnn.ErrConfiguration, "actionEdges: "+
			"control channel %d outside of %d node features", channel,
			batch.Nodes.Cols)
	}

	controlled := func(node int) bool {
		return batch.Nodes.At(node, channel) != 0
	}

	n := space.Size()
	sel := &Selection{
		Edges:    make([]int, 0, batch.NumGraphs()*n),
		NumEdges: batch.NumEdges(),
		Width:    n,
	}

	nodeOffsets := batch.NodeOffsets()
	edgeOffsets := batch.EdgeOffsets()
	for g := 0; g < batch.NumGraphs(); g++ {
		var edges []int
		for e := edgeOffsets[g]; e < edgeOffsets[g+1]; e++ {
			if controlled(batch.Senders[e]) && !controlled(batch.Receivers[e]) {
				edges = append(edges, e)
			}
		}
		sort.SliceStable(edges, func(i, j int) bool {
			a, b := edges[i], edges[j]
			if batch.Senders[a] != batch.Senders[b] {
				return batch.Senders[a] < batch.Senders[b]
			}
			return batch.Receivers[a] < batch.Receivers[b]
		})

		if len(edges) != n {
			return nil, errors.Wrapf(gnn.ErrConfiguration, "actionEdges: "+
				"graph %d has an invalid number of action edges\n\twant(%d)"+
				"\n\thave(%d)", g, n, len(edges))
		}

		if space.Cardinality == environment.MultiDiscrete {
			var agents []int
			for node := nodeOffsets[g]; node < nodeOffsets[g+1]; node++ {
				if controlled(node) {
					agents = append(agents, node)
				}
			}
			if err := checkOwners(g, agents, edges, batch.Senders,
				space.N); err != nil {
				return nil, err
			}
		}
		sel.Edges = append(sel.Edges, edges...)
	}
	return sel, nil
}

// checkOwners ensures the k-th controlled node sends the k-th run of
// nvec[k] action edges
func checkOwners(g int, agents, edges, senders, nvec []int) error {
	if len(agents) != len(nvec) {
		return errors.Wrapf(gnn.ErrConfiguration, "checkOwners: graph %d "+
			"has an invalid number of controlled nodes\n\twant(%d)\n\t"+
			"have(%d)", g, len(nvec), len(agents))
	}

	start := 0
	for k, agent := range agents {
		for _, e := range edges[start : start+nvec[k]] {
			if senders[e] != agent {
				return errors.Wrapf(gnn.ErrConfiguration, "checkOwners: "+
					"graph %d: controlled node %d must send %d action "+
					"edges", g, k, nvec[k])
			}
		}
		start += nvec[k]
	}
	return nil
}

// Len returns the number of selected edges
func (s *Selection) Len() int {
	return len(s.Edges)
}

// Matrix returns the Len() x NumEdges matrix which gathers the selected
// edges in action order
func (s *Selection) Matrix() *tensor.Dense {
	data := make([]float64, s.Len()*s.NumEdges)
	for i, e := range s.Edges {
		data[i*s.NumEdges+e] = 1
	}
	return tensor.New(
		tensor.WithShape(s.Len(), s.NumEdges),
		tensor.WithBacking(data),
	)
}
