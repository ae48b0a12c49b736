// Package nn builds evaluable phenotype networks from genomes.
package nn

import (
	"math"
	"sort"

	"github.com/aryavolkan/tile-empire/neat"
)

type link struct {
	source int // index into the network's node arenas
	weight float64
}

// Network is a feedforward phenotype compiled from a genome: flat arenas
// indexed by node position, a precomputed per-node incoming adjacency over
// enabled connections, and a fixed evaluation order. Activations persist
// across Forward calls, which gives recurrent connections (when the genome
// allows them) one-step-delayed state; Reset clears it.
type Network struct {
	types    []neat.NodeType
	biases   []float64
	incoming [][]link
	order    []int
	inputs   []int
	outputs  []int

	values []float64
	outBuf []float64
}

// FromGenome compiles a genome into a network. Only enabled connections
// contribute. Node evaluation order is a topological sort over enabled
// connections; if a cycle prevents ordering every node, the order falls
// back to type order (inputs, hidden, outputs) instead of failing.
func FromGenome(g *neat.Genome) *Network {
	n := len(g.Nodes)
	net := &Network{
		types:    make([]neat.NodeType, n),
		biases:   make([]float64, n),
		incoming: make([][]link, n),
		values:   make([]float64, n),
	}

	index := make(map[int]int, n)
	for i, node := range g.Nodes {
		index[node.ID] = i
		net.types[i] = node.Type
		net.biases[i] = node.Bias
		switch node.Type {
		case neat.NodeInput:
			net.inputs = append(net.inputs, i)
		case neat.NodeOutput:
			net.outputs = append(net.outputs, i)
		}
	}

	outgoing := make([][]int, n)
	indegree := make([]int, n)
	for _, c := range g.Connections {
		if !c.Enabled {
			continue
		}
		src, okSrc := index[c.Source]
		tgt, okTgt := index[c.Target]
		if !okSrc || !okTgt {
			continue
		}
		net.incoming[tgt] = append(net.incoming[tgt], link{source: src, weight: c.Weight})
		outgoing[src] = append(outgoing[src], tgt)
		indegree[tgt]++
	}

	net.order = topoOrder(net.types, outgoing, indegree)
	net.outBuf = make([]float64, len(net.outputs))
	return net
}

// topoOrder runs Kahn's algorithm over the enabled-connection graph,
// processing ready nodes in index order for determinism. A partial order
// (cycle) triggers the type-order fallback.
func topoOrder(types []neat.NodeType, outgoing [][]int, indegree []int) []int {
	n := len(types)
	ready := make([]int, 0, n)
	degree := append([]int(nil), indegree...)
	for i := 0; i < n; i++ {
		if degree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, n)
	for len(ready) > 0 {
		sort.Ints(ready)
		node := ready[0]
		ready = ready[1:]
		order = append(order, node)
		for _, next := range outgoing[node] {
			degree[next]--
			if degree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(order) == n {
		return order
	}

	// Cycle present: evaluate by node type instead. Stale activations from
	// the previous Forward call stand in for in-cycle inputs.
	order = order[:0]
	for _, want := range []neat.NodeType{neat.NodeInput, neat.NodeBias, neat.NodeHidden, neat.NodeOutput} {
		for i, t := range types {
			if t == want {
				order = append(order, i)
			}
		}
	}
	return order
}

// Forward evaluates the network. Input node activations are taken directly
// from inputs (zero-padded if short); bias nodes are pinned to 1.0; every
// other node computes tanh(bias + Σ incoming×weight). The returned slice is
// an internal buffer reused across calls.
func (net *Network) Forward(inputs []float64) []float64 {
	for k, i := range net.inputs {
		if k < len(inputs) {
			net.values[i] = inputs[k]
		} else {
			net.values[i] = 0
		}
	}

	for _, i := range net.order {
		switch net.types[i] {
		case neat.NodeInput:
			// set above, no activation function
		case neat.NodeBias:
			net.values[i] = 1.0
		default:
			sum := net.biases[i]
			for _, in := range net.incoming[i] {
				sum += net.values[in.source] * in.weight
			}
			net.values[i] = math.Tanh(sum)
		}
	}

	for k, i := range net.outputs {
		net.outBuf[k] = net.values[i]
	}
	return net.outBuf
}

// Reset zeroes all cached activations.
func (net *Network) Reset() {
	for i := range net.values {
		net.values[i] = 0
	}
}

// InputCount returns the number of input nodes.
func (net *Network) InputCount() int { return len(net.inputs) }

// OutputCount returns the number of output nodes.
func (net *Network) OutputCount() int { return len(net.outputs) }
