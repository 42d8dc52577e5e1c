package graphs

import "gorgonia.org/tensor"

// The matrices below turn the index arithmetic of message passing into
// matrix products: gathering the sender features of every edge is
// SenderGather() · nodes, summing incoming edge features at every node
// is ReceiverScatter() · edges, and so on. A row of zeroes (a node with
// no incoming edges, a graph without nodes) yields a zero vector.
//
// Edge matrices are nil when the batch has no edges since tensors
// cannot have a zero dimension.

// SenderGather returns the E x N matrix S with S[e, senders[e]] = 1
func (b *GraphBatch) SenderGather() *tensor.Dense {
	return oneHot(b.Senders, b.NumNodes(), false)
}

// ReceiverGather returns the E x N matrix R with R[e, receivers[e]] = 1
func (b *GraphBatch) ReceiverGather() *tensor.Dense {
	return oneHot(b.Receivers, b.NumNodes(), false)
}

// ReceiverScatter returns the N x E transpose of ReceiverGather, which
// sums the features of all edges received by each node.
func (b *GraphBatch) ReceiverScatter() *tensor.Dense {
	return oneHot(b.Receivers, b.NumNodes(), true)
}

// NodeMembership returns the G x N matrix M with M[g, n] = 1 if node n
// belongs to graph g. M · nodes sums the node features of each graph.
func (b *GraphBatch) NodeMembership() *tensor.Dense {
	return oneHot(b.NodeGraphIndex(), b.NumGraphs(), true)
}

// EdgeMembership returns the G x E matrix M with M[g, e] = 1 if edge e
// belongs to graph g.
func (b *GraphBatch) EdgeMembership() *tensor.Dense {
	return oneHot(b.EdgeGraphIndex(), b.NumGraphs(), true)
}

// NodeBroadcast returns the N x G transpose of NodeMembership, which
// copies each graph's globals to all of its nodes.
func (b *GraphBatch) NodeBroadcast() *tensor.Dense {
	return oneHot(b.NodeGraphIndex(), b.NumGraphs(), false)
}

// EdgeBroadcast returns the E x G transpose of EdgeMembership
func (b *GraphBatch) EdgeBroadcast() *tensor.Dense {
	return oneHot(b.EdgeGraphIndex(), b.NumGraphs(), false)
}

// oneHot returns the len(index) x width matrix with a one in column
// index[i] of row i, or its transpose if transpose is true. If index
// is empty or width is zero, nil is returned.
func oneHot(index []int, width int, transpose bool) *tensor.Dense {
	if len(index) == 0 || width == 0 {
		return nil
	}

	rows, cols := len(index), width
	if transpose {
		rows, cols = cols, rows
	}

	data := make([]float64, rows*cols)
	for i, j := range index {
		if transpose {
			data[j*cols+i] = 1.0
		} else {
			data[i*cols+j] = 1.0
		}
	}

	return tensor.New(
		tensor.WithShape(rows, cols),
		tensor.WithBacking(data),
	)
}
