package neat

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Population holds the state of one evolutionary run: the current
// generation of genomes, the species list, the innovation tracker and the
// best genomes seen so far. It is single-threaded: Evolve performs one
// generation transition per call and returns. Fitness or objective
// evaluation happens outside, between calls; the engine never invokes an
// evaluator and has no opinion on how evaluation is scheduled.
type Population struct {
	Config      *Config
	Genomes     []*Genome
	SpeciesList []*Species
	Generation  int
	Tracker     *InnovationTracker

	// BestGenome is a deep copy of the best genome of the last completed
	// generation; AllTimeBest is a deep copy of the best genome ever seen.
	// They are detached: replacing the population does not invalidate them.
	BestGenome  *Genome
	AllTimeBest *Genome

	nextSpeciesID int
	rng           *rand.Rand
	logger        *logrus.Logger
}

// NewPopulation creates a population of population_size genomes with the
// configured initial wiring. A nil config uses DefaultConfig.
func NewPopulation(cfg *Config) (*Population, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.NEAT.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	p := &Population{
		Config:        cfg,
		Tracker:       NewInnovationTracker(),
		nextSpeciesID: 1,
		rng:           rand.New(rand.NewSource(seed)),
		logger:        newDefaultLogger(),
	}
	p.Genomes = make([]*Genome, 0, cfg.NEAT.PopulationSize)
	for i := 0; i < cfg.NEAT.PopulationSize; i++ {
		p.Genomes = append(p.Genomes, p.newInitialGenome())
	}
	// Initial wiring shares innovation numbers across genomes through the
	// generation cache; clear it before the first mutations.
	p.Tracker.ResetGenerationCache()
	return p, nil
}

func newDefaultLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	return logger
}

// SetLogger replaces the population's logger.
func (p *Population) SetLogger(logger *logrus.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

func (p *Population) newInitialGenome() *Genome {
	g := NewGenome(p.Config, p.Tracker, p.rng)
	g.ConfigureDense(p.Config, p.Tracker, p.rng)
	return g
}

// Size returns the number of genomes in the current generation.
func (p *Population) Size() int {
	return len(p.Genomes)
}

// Genome returns the genome at index i, or nil when i is out of range.
// The lenient boundary is deliberate: this is a pure in-memory loop and a
// bad index self-corrects next generation.
func (p *Population) Genome(i int) *Genome {
	if i < 0 || i >= len(p.Genomes) {
		return nil
	}
	return p.Genomes[i]
}

// Fitness returns the scalar fitness of the genome at index i, or 0.0 when
// i is out of range.
func (p *Population) Fitness(i int) float64 {
	if g := p.Genome(i); g != nil {
		return g.Fitness
	}
	return 0.0
}

// SetFitness assigns a scalar fitness to the genome at index i. Out-of-range
// indices are ignored.
func (p *Population) SetFitness(i int, fitness float64) {
	if g := p.Genome(i); g != nil {
		g.Fitness = fitness
	}
}

// Objectives returns the objective vector of the genome at index i, or an
// empty slice when i is out of range.
func (p *Population) Objectives(i int) []float64 {
	if g := p.Genome(i); g != nil {
		return g.Objectives
	}
	return nil
}

// SetObjectives assigns a multi-objective score vector to the genome at
// index i. When any genome carries objectives at the next Evolve call, the
// whole population is ranked with non-dominated sorting and the scalar
// fitness is derived from it. Out-of-range indices are ignored.
func (p *Population) SetObjectives(i int, objectives []float64) {
	if g := p.Genome(i); g != nil {
		g.Objectives = append([]float64(nil), objectives...)
	}
}

// Evolve advances the population by one generation: rank objectives into
// scalar fitness, speciate, share fitness and update stagnation, cull
// stagnant species, allocate offspring, reproduce, and adjust the
// compatibility threshold. Degenerate states (empty species, zero adjusted
// fitness) are absorbed by fallback arithmetic; the only recovery action is
// the full reinitialization taken when culling leaves no species at all.
func (p *Population) Evolve() {
	p.applyFitness()

	p.SpeciesList = Speciate(p.Genomes, p.SpeciesList, p.Config, &p.nextSpeciesID, p.rng)

	for _, s := range p.SpeciesList {
		s.CalculateAdjustedFitness()
		s.UpdateBestFitness()
	}
	p.trackBest()
	meanFitness := p.MeanFitness()

	survivors := p.cullStagnant()
	if len(survivors) == 0 {
		p.logger.WithField("generation", p.Generation).Warn("all species extinct, reinitializing population")
		p.reinitialize()
		return
	}
	p.SpeciesList = survivors

	offspring := p.allocateOffspring(survivors)
	next := p.reproduce(survivors, offspring)
	next = p.normalizeSize(next)
	p.Genomes = next

	p.Generation++
	p.Tracker.ResetGenerationCache()
	AdjustCompatibilityThreshold(len(p.SpeciesList), p.Config)

	p.logger.WithFields(logrus.Fields{
		"generation":   p.Generation,
		"species":      len(p.SpeciesList),
		"best_fitness": p.BestGenome.Fitness,
		"mean_fitness": meanFitness,
		"threshold":    p.Config.Speciation.CompatibilityThreshold,
	}).Info("generation complete")
}

// applyFitness converts multi-objective scores, when any were set this
// generation, into scalar fitness:
//
//	scalar = raw_sum + rank_bonus + crowd_bonus
//
// where rank_bonus halves per front and crowd_bonus is the crowding
// distance capped at 10% of the population's maximum raw sum. The scalar
// stays usable by rank-agnostic downstream code (fitness sharing, offspring
// allocation) while still reflecting Pareto structure. The parsimony
// penalty applies to both the ranked and the directly-assigned path.
func (p *Population) applyFitness() {
	hasObjectives := false
	dims := 0
	for _, g := range p.Genomes {
		if len(g.Objectives) > 0 {
			hasObjectives = true
			if len(g.Objectives) > dims {
				dims = len(g.Objectives)
			}
		}
	}

	if hasObjectives {
		objectives := make([][]float64, len(p.Genomes))
		rawSums := make([]float64, len(p.Genomes))
		for i, g := range p.Genomes {
			vec := make([]float64, dims)
			copy(vec, g.Objectives)
			objectives[i] = vec
			for _, v := range vec {
				rawSums[i] += v
			}
		}

		bonusBase := MaxFloat(rawSums)
		if bonusBase <= 0 {
			bonusBase = 1.0
		}
		crowdCap := 0.1 * bonusBase

		for rank, front := range NonDominatedSort(objectives) {
			rankBonus := bonusBase / math.Pow(2, float64(rank))
			dist := CrowdingDistance(front, objectives)
			for k, idx := range front {
				crowdBonus := dist[k]
				if crowdBonus > crowdCap {
					crowdBonus = crowdCap
				}
				p.Genomes[idx].Fitness = rawSums[idx] + rankBonus + crowdBonus
			}
		}
	}

	if pc := p.Config.NEAT.ParsimonyCoefficient; pc > 0 {
		for _, g := range p.Genomes {
			g.Fitness -= pc * float64(len(g.Connections))
		}
	}
}

// trackBest deep-copies this generation's best genome and updates the
// all-time record. The population is about to be replaced, so the copies
// must be independent of it.
func (p *Population) trackBest() {
	var best *Genome
	for _, g := range p.Genomes {
		if best == nil || g.Fitness > best.Fitness {
			best = g
		}
	}
	if best == nil {
		return
	}
	p.BestGenome = best.Clone()
	if p.AllTimeBest == nil || p.BestGenome.Fitness > p.AllTimeBest.Fitness {
		p.AllTimeBest = p.BestGenome.Clone()
	}
}

// cullStagnant drops species stagnant beyond the kill threshold, always
// protecting the top min_species_protected species by best-ever fitness.
func (p *Population) cullStagnant() []*Species {
	protected := make(map[*Species]bool)
	if n := p.Config.Speciation.MinSpeciesProtected; n > 0 {
		ranked := append([]*Species(nil), p.SpeciesList...)
		sort.Slice(ranked, func(i, j int) bool {
			return ranked[i].BestFitnessEver > ranked[j].BestFitnessEver
		})
		if n > len(ranked) {
			n = len(ranked)
		}
		for _, s := range ranked[:n] {
			protected[s] = true
		}
	}

	survivors := make([]*Species, 0, len(p.SpeciesList))
	for _, s := range p.SpeciesList {
		if s.IsStagnant(p.Config.Speciation.StagnationKillThreshold) && !protected[s] {
			p.logger.WithFields(logrus.Fields{
				"species":  s.ID,
				"stagnant": s.GenerationsWithoutImprovement,
			}).Info("culling stagnant species")
			continue
		}
		survivors = append(survivors, s)
	}
	return survivors
}

// reinitialize replaces the whole population with fresh genomes after a
// total extinction. Node ids and innovation numbers keep counting from
// where they were; the all-time best survives the restart.
func (p *Population) reinitialize() {
	p.Genomes = p.Genomes[:0]
	for i := 0; i < p.Config.NEAT.PopulationSize; i++ {
		p.Genomes = append(p.Genomes, p.newInitialGenome())
	}
	p.SpeciesList = nil
	p.Generation++
	p.Tracker.ResetGenerationCache()
}

// allocateOffspring distributes the next generation's slots across species
// proportional to each species' share of total adjusted fitness. A zero (or
// negative) total divides the population evenly instead. Species stagnant
// beyond the soft threshold get half an allocation, and every species
// receives at least one slot.
func (p *Population) allocateOffspring(species []*Species) []int {
	popSize := p.Config.NEAT.PopulationSize
	weights := make([]float64, len(species))
	total := 0.0
	for i, s := range species {
		for _, g := range s.Members {
			if g.AdjustedFitness > 0 {
				weights[i] += g.AdjustedFitness
			}
		}
		total += weights[i]
	}

	slots := make([]int, len(species))
	for i := range species {
		var share float64
		if total > 0 {
			share = weights[i] / total * float64(popSize)
		} else {
			share = float64(popSize) / float64(len(species))
		}
		n := int(math.Round(share))
		if species[i].IsStagnant(p.Config.Speciation.StagnationThreshold) {
			n /= 2
		}
		if n < 1 {
			n = 1
		}
		slots[i] = n
	}
	return slots
}

// reproduce builds the next generation: per species, an elite fraction of
// the top-sorted members is copied unchanged, and the remaining slots are
// filled by crossover within a top survival-fraction breeding pool (rarely
// across species) or by cloning, always followed by mutation.
func (p *Population) reproduce(species []*Species, slots []int) []*Genome {
	rc := p.Config.Reproduction

	pools := make([][]*Genome, len(species))
	for i, s := range species {
		members := append([]*Genome(nil), s.Members...)
		sort.Slice(members, func(a, b int) bool {
			return members[a].Fitness > members[b].Fitness
		})
		poolSize := int(math.Ceil(rc.SurvivalFraction * float64(len(members))))
		if poolSize < 1 {
			poolSize = 1
		}
		if poolSize > len(members) {
			poolSize = len(members)
		}
		pools[i] = members[:poolSize]
		// resort the species' own view too, for elite transfer below
		s.Members = members
	}

	next := make([]*Genome, 0, p.Config.NEAT.PopulationSize)
	for i, s := range species {
		slot := slots[i]
		elites := int(rc.EliteFraction * float64(len(s.Members)))
		if elites > slot {
			elites = slot
		}
		for j := 0; j < elites; j++ {
			next = append(next, p.newMember(s.Members[j].Clone()))
		}

		pool := pools[i]
		for j := elites; j < slot; j++ {
			var child *Genome
			if p.rng.Float64() < rc.CrossoverRate {
				parent1 := pool[p.rng.Intn(len(pool))]
				matePool := pool
				if len(species) > 1 && p.rng.Float64() < rc.InterspeciesCrossoverRate {
					other := p.rng.Intn(len(species) - 1)
					if other >= i {
						other++
					}
					matePool = pools[other]
				}
				parent2 := matePool[p.rng.Intn(len(matePool))]
				child = Crossover(parent1, parent2, p.Config, p.rng)
			} else {
				child = pool[p.rng.Intn(len(pool))].Clone()
			}
			child.Mutate(p.Config, p.Tracker, p.rng)
			next = append(next, p.newMember(child))
		}
	}
	return next
}

// newMember resets the evaluation state carried over from a parent; every
// member of the new generation starts unevaluated.
func (p *Population) newMember(g *Genome) *Genome {
	g.Fitness = 0
	g.AdjustedFitness = 0
	g.Objectives = nil
	return g
}

// normalizeSize trims the new population to the configured size, or pads it
// by cloning and mutating randomly chosen existing individuals.
func (p *Population) normalizeSize(next []*Genome) []*Genome {
	target := p.Config.NEAT.PopulationSize
	if len(next) > target {
		next = next[:target]
	}
	if len(next) == 0 {
		next = append(next, p.newInitialGenome())
	}
	for len(next) < target {
		clone := next[p.rng.Intn(len(next))].Clone()
		clone.Mutate(p.Config, p.Tracker, p.rng)
		next = append(next, p.newMember(clone))
	}
	return next
}

// MeanFitness returns the average raw fitness of the current generation.
func (p *Population) MeanFitness() float64 {
	fitnesses := make([]float64, len(p.Genomes))
	for i, g := range p.Genomes {
		fitnesses[i] = g.Fitness
	}
	return Mean(fitnesses)
}
