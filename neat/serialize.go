package neat

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"
)

type nodeJSON struct {
	ID   int     `json:"id"`
	Type string  `json:"type"`
	Bias float64 `json:"bias"`
}

type connectionJSON struct {
	In         int     `json:"in"`
	Out        int     `json:"out"`
	Weight     float64 `json:"weight"`
	Enabled    *bool   `json:"enabled"`
	Innovation int     `json:"innovation"`
}

type genomeJSON struct {
	Nodes       []nodeJSON       `json:"nodes"`
	Connections []connectionJSON `json:"connections"`
	Fitness     float64          `json:"fitness"`
}

// MarshalJSON serializes the genome's node and connection genes together
// with its fitness. Innovation numbers are preserved so a reloaded genome
// stays crossover-compatible with live ones.
func (g *Genome) MarshalJSON() ([]byte, error) {
	out := genomeJSON{
		Nodes:       make([]nodeJSON, 0, len(g.Nodes)),
		Connections: make([]connectionJSON, 0, len(g.Connections)),
		Fitness:     g.Fitness,
	}
	for _, n := range g.Nodes {
		out.Nodes = append(out.Nodes, nodeJSON{ID: n.ID, Type: n.Type.String(), Bias: n.Bias})
	}
	for _, c := range g.Connections {
		enabled := c.Enabled
		out.Connections = append(out.Connections, connectionJSON{
			In:         c.Source,
			Out:        c.Target,
			Weight:     c.Weight,
			Enabled:    &enabled,
			Innovation: c.Innovation,
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON reconstructs a genome from its serialized form. Malformed
// fields fall back to per-field defaults instead of aborting the load: an
// unknown node type becomes hidden, a missing enabled flag means enabled,
// and connections referring to absent nodes are dropped.
func (g *Genome) UnmarshalJSON(data []byte) error {
	var in genomeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decoding genome: %w", err)
	}

	g.Nodes = make([]*NodeGene, 0, len(in.Nodes))
	known := make(map[int]bool, len(in.Nodes))
	for _, n := range in.Nodes {
		g.Nodes = append(g.Nodes, &NodeGene{ID: n.ID, Type: ParseNodeType(n.Type), Bias: n.Bias})
		known[n.ID] = true
	}

	g.Connections = make([]*ConnectionGene, 0, len(in.Connections))
	for _, c := range in.Connections {
		if !known[c.In] || !known[c.Out] {
			continue
		}
		enabled := true
		if c.Enabled != nil {
			enabled = *c.Enabled
		}
		g.Connections = append(g.Connections, &ConnectionGene{
			Source:     c.In,
			Target:     c.Out,
			Weight:     c.Weight,
			Enabled:    enabled,
			Innovation: c.Innovation,
		})
	}

	g.Fitness = in.Fitness
	g.AdjustedFitness = 0
	g.Objectives = nil
	sortNodes(g.Nodes)
	return nil
}

type populationJSON struct {
	Generation         int       `json:"generation"`
	BestFitness        float64   `json:"best_fitness"`
	AllTimeBestFitness float64   `json:"all_time_best_fitness"`
	AllTimeBestGenome  *Genome   `json:"all_time_best_genome,omitempty"`
	Genomes            []*Genome `json:"genomes"`

	// Tracker counters ride along so a resumed run keeps issuing fresh
	// node ids and innovation numbers instead of colliding with loaded
	// genomes. Loaders tolerate their absence by rebuilding both from the
	// maxima found in the genomes.
	NodeCounter       int `json:"node_counter,omitempty"`
	InnovationCounter int `json:"innovation_counter,omitempty"`
}

// MarshalJSON serializes the population: generation counter, best
// fitnesses, the all-time-best genome, every current genome, and the
// innovation tracker's counters.
func (p *Population) MarshalJSON() ([]byte, error) {
	out := populationJSON{
		Generation:        p.Generation,
		AllTimeBestGenome: p.AllTimeBest,
		Genomes:           p.Genomes,
	}
	if p.BestGenome != nil {
		out.BestFitness = p.BestGenome.Fitness
	}
	if p.AllTimeBest != nil {
		out.AllTimeBestFitness = p.AllTimeBest.Fitness
	}
	if p.Tracker != nil {
		out.NodeCounter, out.InnovationCounter = p.Tracker.Counters()
	}
	return json.Marshal(out)
}

// UnmarshalPopulation reconstructs a population from serialized data. The
// given config governs the resumed run; a nil config uses DefaultConfig.
func UnmarshalPopulation(data []byte, cfg *Config) (*Population, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var in populationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decoding population: %w", err)
	}

	seed := cfg.NEAT.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	p := &Population{
		Config:        cfg,
		Genomes:       in.Genomes,
		Generation:    in.Generation,
		Tracker:       NewInnovationTracker(),
		AllTimeBest:   in.AllTimeBestGenome,
		nextSpeciesID: 1,
		rng:           rand.New(rand.NewSource(seed)),
		logger:        newDefaultLogger(),
	}
	if p.Genomes == nil {
		p.Genomes = []*Genome{}
	}

	if in.NodeCounter > 0 || in.InnovationCounter > 0 {
		p.Tracker.SetCounters(in.NodeCounter, in.InnovationCounter)
	} else {
		// Older saves carry no counters; resume past the highest ids seen.
		maxNode, maxInnov := -1, -1
		for _, g := range p.Genomes {
			for _, n := range g.Nodes {
				if n.ID > maxNode {
					maxNode = n.ID
				}
			}
			if m := g.maxInnovation(); m > maxInnov {
				maxInnov = m
			}
		}
		p.Tracker.SetCounters(maxNode+1, maxInnov+1)
	}
	return p, nil
}

// Save writes the population as JSON to the given path.
func (p *Population) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding population: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing population file: %w", err)
	}
	return nil
}

// LoadPopulation reads a population saved with Save.
func LoadPopulation(path string, cfg *Config) (*Population, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading population file: %w", err)
	}
	return UnmarshalPopulation(data, cfg)
}
