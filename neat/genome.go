package neat

import (
	"math"
	"math/rand"
	"sort"
)

// fitnessEpsilon is the tolerance within which two parent fitnesses are
// considered equal during crossover gene inheritance.
const fitnessEpsilon = 1e-6

// compatibilitySizeCutoff: genomes with fewer connection genes than this on
// both sides skip gene-count normalization in the distance formula, so small
// genomes are not over-penalized.
const compatibilitySizeCutoff = 20

// addConnectionAttempts bounds the random search for a valid new connection.
const addConnectionAttempts = 10

// Genome represents an individual: an ordered arena of node genes plus a set
// of connection genes addressed by integer ids. Every connection's source
// and target refer to a node gene present in the same genome.
type Genome struct {
	Nodes       []*NodeGene
	Connections []*ConnectionGene

	Fitness         float64
	AdjustedFitness float64
	// Objectives, when set by the caller before Evolve, is converted into a
	// scalar Fitness via non-dominated ranking.
	Objectives []float64
}

// NewGenome creates a genome with input and output node genes (plus one bias
// node when configured) and no connections. The layout is deterministic:
// inputs first, then the bias node, then outputs, with sequential ids. The
// used ids are registered with the tracker so later AllocateNodeID calls
// never collide.
func NewGenome(cfg *Config, tracker *InnovationTracker, rng *rand.Rand) *Genome {
	g := &Genome{}
	id := 0
	for i := 0; i < cfg.Genome.InputCount; i++ {
		g.Nodes = append(g.Nodes, &NodeGene{ID: id, Type: NodeInput})
		id++
	}
	if cfg.Genome.UseBias {
		g.Nodes = append(g.Nodes, &NodeGene{ID: id, Type: NodeBias})
		id++
	}
	for i := 0; i < cfg.Genome.OutputCount; i++ {
		g.Nodes = append(g.Nodes, &NodeGene{ID: id, Type: NodeOutput, Bias: rng.Float64()*2 - 1})
		id++
	}
	tracker.ReserveNodeID(id - 1)
	return g
}

// ConfigureDense wires each input (and the bias node, if present) to each
// output with probability initial_connection_fraction, weights uniform in
// [-2, 2]. Identical pairs across genomes share innovation numbers through
// the tracker's generation cache.
func (g *Genome) ConfigureDense(cfg *Config, tracker *InnovationTracker, rng *rand.Rand) {
	fraction := cfg.Genome.InitialConnectionFraction
	for _, src := range g.Nodes {
		if src.Type != NodeInput && src.Type != NodeBias {
			continue
		}
		for _, tgt := range g.Nodes {
			if tgt.Type != NodeOutput {
				continue
			}
			if rng.Float64() >= fraction {
				continue
			}
			g.Connections = append(g.Connections, &ConnectionGene{
				Source:     src.ID,
				Target:     tgt.ID,
				Weight:     randomWeight(rng),
				Enabled:    true,
				Innovation: tracker.Innovation(src.ID, tgt.ID),
			})
		}
	}
}

// randomWeight draws a fresh connection weight uniform in [-2, 2].
func randomWeight(rng *rand.Rand) float64 {
	return rng.Float64()*4 - 2
}

// Clone creates a deep copy of the genome.
func (g *Genome) Clone() *Genome {
	c := &Genome{
		Nodes:           make([]*NodeGene, len(g.Nodes)),
		Connections:     make([]*ConnectionGene, len(g.Connections)),
		Fitness:         g.Fitness,
		AdjustedFitness: g.AdjustedFitness,
	}
	for i, n := range g.Nodes {
		c.Nodes[i] = n.Copy()
	}
	for i, conn := range g.Connections {
		c.Connections[i] = conn.Copy()
	}
	if g.Objectives != nil {
		c.Objectives = append([]float64(nil), g.Objectives...)
	}
	return c
}

// nodeByID returns the node gene with the given id, or nil.
func (g *Genome) nodeByID(id int) *NodeGene {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// hasConnection reports whether a direct source->target connection gene
// exists, enabled or not.
func (g *Genome) hasConnection(source, target int) bool {
	for _, c := range g.Connections {
		if c.Source == source && c.Target == target {
			return true
		}
	}
	return false
}

// connectionsByInnovation indexes the connection genes by innovation number.
func (g *Genome) connectionsByInnovation() map[int]*ConnectionGene {
	byInno := make(map[int]*ConnectionGene, len(g.Connections))
	for _, c := range g.Connections {
		byInno[c.Innovation] = c
	}
	return byInno
}

// maxInnovation returns the highest innovation number in the genome, or -1
// when it has no connections.
func (g *Genome) maxInnovation() int {
	maxInno := -1
	for _, c := range g.Connections {
		if c.Innovation > maxInno {
			maxInno = c.Innovation
		}
	}
	return maxInno
}

// pathExists reports whether `to` is reachable from `from` over enabled
// connections, via depth-first search.
func (g *Genome) pathExists(from, to int) bool {
	if from == to {
		return true
	}
	visited := make(map[int]bool)
	stack := []int{from}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == to {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, c := range g.Connections {
			if c.Enabled && c.Source == current && !visited[c.Target] {
				stack = append(stack, c.Target)
			}
		}
	}
	return false
}

// MutateAddConnection attempts to add a connection between a random
// non-output source and a random non-input target. Self-loops, duplicate
// connections and (unless recurrent connections are allowed) cycle-creating
// pairs are rejected; after a bounded number of failed attempts the mutation
// is a no-op.
func (g *Genome) MutateAddConnection(cfg *Config, tracker *InnovationTracker, rng *rand.Rand) {
	var sources, targets []*NodeGene
	for _, n := range g.Nodes {
		if n.Type != NodeOutput {
			sources = append(sources, n)
		}
		if n.Type == NodeHidden || n.Type == NodeOutput {
			targets = append(targets, n)
		}
	}
	if len(sources) == 0 || len(targets) == 0 {
		return
	}

	for attempt := 0; attempt < addConnectionAttempts; attempt++ {
		src := sources[rng.Intn(len(sources))]
		tgt := targets[rng.Intn(len(targets))]
		if src.ID == tgt.ID {
			continue
		}
		if g.hasConnection(src.ID, tgt.ID) {
			continue
		}
		// A src->tgt edge closes a cycle exactly when src is already
		// reachable from tgt.
		if !cfg.Genome.AllowRecurrent && g.pathExists(tgt.ID, src.ID) {
			continue
		}
		g.Connections = append(g.Connections, &ConnectionGene{
			Source:     src.ID,
			Target:     tgt.ID,
			Weight:     randomWeight(rng),
			Enabled:    true,
			Innovation: tracker.Innovation(src.ID, tgt.ID),
		})
		return
	}
}

// MutateAddNode splits a random enabled connection: the original is
// disabled, a new hidden node is allocated, and two connections are added.
// The incoming connection gets weight 1.0 and the outgoing one inherits the
// original weight, so the new structure initially computes (nearly) the same
// function.
func (g *Genome) MutateAddNode(cfg *Config, tracker *InnovationTracker, rng *rand.Rand) {
	var enabled []*ConnectionGene
	for _, c := range g.Connections {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}
	if len(enabled) == 0 {
		return
	}
	split := enabled[rng.Intn(len(enabled))]
	split.Enabled = false

	nodeID := tracker.AllocateNodeID()
	g.Nodes = append(g.Nodes, &NodeGene{ID: nodeID, Type: NodeHidden})

	g.Connections = append(g.Connections,
		&ConnectionGene{
			Source:     split.Source,
			Target:     nodeID,
			Weight:     1.0,
			Enabled:    true,
			Innovation: tracker.Innovation(split.Source, nodeID),
		},
		&ConnectionGene{
			Source:     nodeID,
			Target:     split.Target,
			Weight:     split.Weight,
			Enabled:    true,
			Innovation: tracker.Innovation(nodeID, split.Target),
		},
	)
}

// MutateWeights perturbs or resets each connection weight independently.
// With probability weight_mutate_rate a connection is touched at all; a
// touched connection is Gaussian-perturbed with probability
// weight_perturb_rate and otherwise fully reset to a fresh uniform value.
func (g *Genome) MutateWeights(cfg *Config, rng *rand.Rand) {
	gc := cfg.Genome
	for _, c := range g.Connections {
		if rng.Float64() >= gc.WeightMutateRate {
			continue
		}
		if rng.Float64() < gc.WeightPerturbRate {
			c.Weight += rng.NormFloat64() * gc.WeightPerturbStrength
		} else {
			c.Weight = rng.Float64()*2*gc.WeightResetRange - gc.WeightResetRange
		}
	}
}

// MutateDisableConnection disables one randomly chosen enabled connection.
// No-op when none are enabled.
func (g *Genome) MutateDisableConnection(rng *rand.Rand) {
	var enabled []*ConnectionGene
	for _, c := range g.Connections {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}
	if len(enabled) == 0 {
		return
	}
	enabled[rng.Intn(len(enabled))].Enabled = false
}

// Mutate applies the mutation operators. Each fires independently according
// to its own configured probability; they are not mutually exclusive within
// one call. Weight mutation carries its rate per connection and therefore
// always runs.
func (g *Genome) Mutate(cfg *Config, tracker *InnovationTracker, rng *rand.Rand) {
	g.MutateWeights(cfg, rng)
	if rng.Float64() < cfg.Genome.AddNodeRate {
		g.MutateAddNode(cfg, tracker, rng)
	}
	if rng.Float64() < cfg.Genome.AddConnectionRate {
		g.MutateAddConnection(cfg, tracker, rng)
	}
	if rng.Float64() < cfg.Genome.DisableConnectionRate {
		g.MutateDisableConnection(rng)
	}
}

// Compatibility calculates the genetic distance to another genome by
// aligning connection genes on innovation numbers:
//
//	d = c1*E/N + c2*D/N + c3*W
//
// where E counts excess genes (unmatched, beyond the smaller genome's
// maximum innovation), D counts disjoint genes (unmatched, within it), and W
// is the mean absolute weight difference over matching genes. N is the
// larger genome's connection-gene count, except that genomes that are both
// small are compared unnormalized (N = 1). Enabled status does not
// contribute. The distance of a genome to itself is 0.
func (g *Genome) Compatibility(other *Genome, cfg *Config) float64 {
	if len(g.Connections) == 0 && len(other.Connections) == 0 {
		return 0
	}

	smallerMax := g.maxInnovation()
	if m := other.maxInnovation(); m < smallerMax {
		smallerMax = m
	}

	byInnoA := g.connectionsByInnovation()
	byInnoB := other.connectionsByInnovation()

	excess, disjoint, matches := 0, 0, 0
	weightDiffSum := 0.0
	for inno, ca := range byInnoA {
		if cb, ok := byInnoB[inno]; ok {
			weightDiffSum += math.Abs(ca.Weight - cb.Weight)
			matches++
		} else if inno > smallerMax {
			excess++
		} else {
			disjoint++
		}
	}
	for inno := range byInnoB {
		if _, ok := byInnoA[inno]; ok {
			continue
		}
		if inno > smallerMax {
			excess++
		} else {
			disjoint++
		}
	}

	n := 1.0
	if len(g.Connections) >= compatibilitySizeCutoff || len(other.Connections) >= compatibilitySizeCutoff {
		if len(g.Connections) > len(other.Connections) {
			n = float64(len(g.Connections))
		} else {
			n = float64(len(other.Connections))
		}
	}

	sc := cfg.Speciation
	d := sc.C1Excess*float64(excess)/n + sc.C2Disjoint*float64(disjoint)/n
	if matches > 0 {
		d += sc.C3WeightDiff * weightDiffSum / float64(matches)
	}
	return d
}

// Crossover combines two parents into a child genome. The higher-fitness
// parent is primary. Matching genes (same innovation number) are inherited
// from a randomly chosen parent; if the gene is disabled in either parent
// the child's copy is disabled with probability disabled_gene_inherit_rate
// and re-enabled otherwise. Genes present only in the primary are always
// inherited; genes present only in the secondary are inherited only when
// the parents' fitnesses are equal within a small epsilon.
func Crossover(parentA, parentB *Genome, cfg *Config, rng *rand.Rand) *Genome {
	equal := math.Abs(parentA.Fitness-parentB.Fitness) <= fitnessEpsilon
	primary, secondary := parentA, parentB
	if !equal && parentB.Fitness > parentA.Fitness {
		primary, secondary = parentB, parentA
	}

	bySecondary := secondary.connectionsByInnovation()

	child := &Genome{}
	for _, cp := range primary.Connections {
		cs, matched := bySecondary[cp.Innovation]
		var conn *ConnectionGene
		if matched {
			if rng.Float64() < 0.5 {
				conn = cp.Copy()
			} else {
				conn = cs.Copy()
			}
			if !cp.Enabled || !cs.Enabled {
				conn.Enabled = rng.Float64() >= cfg.Reproduction.DisabledGeneInheritRate
			}
		} else {
			conn = cp.Copy()
		}
		child.Connections = append(child.Connections, conn)
	}
	if equal {
		byPrimary := primary.connectionsByInnovation()
		for _, cs := range secondary.Connections {
			if _, ok := byPrimary[cs.Innovation]; !ok {
				child.Connections = append(child.Connections, cs.Copy())
			}
		}
	}

	// Assemble node genes: every id referenced by the child's connections,
	// plus all of the primary parent's input, bias and output nodes.
	needed := make(map[int]*NodeGene)
	for _, n := range primary.Nodes {
		if n.Type != NodeHidden {
			needed[n.ID] = n
		}
	}
	for _, c := range child.Connections {
		for _, id := range [2]int{c.Source, c.Target} {
			if _, ok := needed[id]; ok {
				continue
			}
			if n := primary.nodeByID(id); n != nil {
				needed[id] = n
			} else if n := secondary.nodeByID(id); n != nil {
				needed[id] = n
			}
		}
	}
	for _, n := range needed {
		child.Nodes = append(child.Nodes, n.Copy())
	}
	sortNodes(child.Nodes)
	return child
}

// sortNodes orders node genes input, bias, hidden, output, by id within
// each type. The order is part of the genome's contract: phenotype input
// and output vectors follow it.
func sortNodes(nodes []*NodeGene) {
	rank := func(t NodeType) int {
		switch t {
		case NodeInput:
			return 0
		case NodeBias:
			return 1
		case NodeHidden:
			return 2
		default:
			return 3
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		ri, rj := rank(nodes[i].Type), rank(nodes[j].Type)
		if ri != rj {
			return ri < rj
		}
		return nodes[i].ID < nodes[j].ID
	})
}
