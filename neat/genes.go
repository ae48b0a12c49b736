package neat

import "fmt"

// NodeType classifies a node gene within a genome.
type NodeType int

const (
	NodeInput NodeType = iota
	NodeBias
	NodeHidden
	NodeOutput
)

// String returns the serialized name of the node type.
func (t NodeType) String() string {
	switch t {
	case NodeInput:
		return "input"
	case NodeBias:
		return "bias"
	case NodeOutput:
		return "output"
	default:
		return "hidden"
	}
}

// ParseNodeType maps a serialized type name back to a NodeType.
// Unrecognized names fall back to hidden rather than failing the load.
func ParseNodeType(s string) NodeType {
	switch s {
	case "input":
		return NodeInput
	case "bias":
		return NodeBias
	case "output":
		return NodeOutput
	default:
		return NodeHidden
	}
}

// NodeGene represents a neuron in the genome. The bias is fixed at creation;
// only connection weights drift under mutation.
type NodeGene struct {
	ID   int
	Type NodeType
	Bias float64
}

// Copy creates a deep copy of the NodeGene.
func (ng *NodeGene) Copy() *NodeGene {
	c := *ng
	return &c
}

func (ng *NodeGene) String() string {
	return fmt.Sprintf("NodeGene(ID: %d, Type: %s, Bias: %.3f)", ng.ID, ng.Type, ng.Bias)
}

// ConnectionGene represents a weighted, directed connection between two node
// genes. The innovation number is the historical marker used to align genes
// between genomes during crossover and distance calculations; it is immutable
// once assigned.
type ConnectionGene struct {
	Source     int
	Target     int
	Weight     float64
	Enabled    bool
	Innovation int
}

// Copy creates a deep copy of the ConnectionGene.
func (cg *ConnectionGene) Copy() *ConnectionGene {
	c := *cg
	return &c
}

func (cg *ConnectionGene) String() string {
	return fmt.Sprintf("ConnGene(%d->%d, Weight: %.3f, Enabled: %t, Innov: %d)",
		cg.Source, cg.Target, cg.Weight, cg.Enabled, cg.Innovation)
}
