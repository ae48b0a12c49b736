package neat

import (
	"math"
	"math/rand"
)

// Species is a cluster of genomes within the compatibility threshold of a
// shared representative. Membership is rebuilt every generation; the
// representative, best-ever fitness, stagnation counter and age persist
// across generations.
type Species struct {
	ID             int
	Representative *Genome
	Members        []*Genome

	BestFitnessEver               float64
	GenerationsWithoutImprovement int
	Age                           int
}

// NewSpecies creates a species represented by (a detached copy of) the
// founding genome, which also becomes its first member.
func NewSpecies(id int, founder *Genome) *Species {
	return &Species{
		ID:              id,
		Representative:  founder.Clone(),
		Members:         []*Genome{founder},
		BestFitnessEver: math.Inf(-1),
	}
}

// Speciate partitions the population against the previous generation's
// species. Each existing species keeps its representative but starts with an
// empty member list; each genome joins the first species whose
// representative is within the compatibility threshold, or founds a new one
// with a freshly allocated id. Species left empty are dropped, and each
// survivor picks a new random representative from its membership for the
// next round's comparisons.
func Speciate(population []*Genome, existing []*Species, cfg *Config, nextID *int, rng *rand.Rand) []*Species {
	speciesList := make([]*Species, 0, len(existing))
	for _, s := range existing {
		s.Members = s.Members[:0]
		speciesList = append(speciesList, s)
	}

	for _, g := range population {
		placed := false
		for _, s := range speciesList {
			if g.Compatibility(s.Representative, cfg) < cfg.Speciation.CompatibilityThreshold {
				s.Members = append(s.Members, g)
				placed = true
				break
			}
		}
		if !placed {
			s := NewSpecies(*nextID, g)
			*nextID++
			speciesList = append(speciesList, s)
		}
	}

	survivors := speciesList[:0]
	for _, s := range speciesList {
		if len(s.Members) == 0 {
			continue
		}
		s.Representative = s.Members[rng.Intn(len(s.Members))].Clone()
		survivors = append(survivors, s)
	}
	return survivors
}

// CalculateAdjustedFitness applies explicit fitness sharing: each member's
// adjusted fitness is its raw fitness divided by the species size.
func (s *Species) CalculateAdjustedFitness() {
	size := float64(len(s.Members))
	if size == 0 {
		return
	}
	for _, g := range s.Members {
		g.AdjustedFitness = g.Fitness / size
	}
}

// UpdateBestFitness records this generation's best raw member fitness. A new
// species record resets the stagnation counter; otherwise it increments.
// Age increments unconditionally.
func (s *Species) UpdateBestFitness() {
	fitnesses := make([]float64, len(s.Members))
	for i, g := range s.Members {
		fitnesses[i] = g.Fitness
	}
	best := MaxFloat(fitnesses)
	if best > s.BestFitnessEver {
		s.BestFitnessEver = best
		s.GenerationsWithoutImprovement = 0
	} else {
		s.GenerationsWithoutImprovement++
	}
	s.Age++
}

// IsStagnant reports whether the species has gone at least threshold
// generations without improving its best fitness.
func (s *Species) IsStagnant(threshold int) bool {
	return s.GenerationsWithoutImprovement >= threshold
}

// BestMember returns the member with the highest raw fitness, or nil when
// the species is empty.
func (s *Species) BestMember() *Genome {
	var best *Genome
	for _, g := range s.Members {
		if best == nil || g.Fitness > best.Fitness {
			best = g
		}
	}
	return best
}

// AdjustCompatibilityThreshold nudges the global compatibility threshold
// toward the configured target species count: one step down when there are
// too few species, one step up when there are too many, clamped to the
// configured minimum.
func AdjustCompatibilityThreshold(speciesCount int, cfg *Config) {
	sc := &cfg.Speciation
	switch {
	case speciesCount < sc.TargetSpeciesCount:
		sc.CompatibilityThreshold -= sc.ThresholdStep
	case speciesCount > sc.TargetSpeciesCount:
		sc.CompatibilityThreshold += sc.ThresholdStep
	}
	if sc.CompatibilityThreshold < sc.MinCompatibilityThreshold {
		sc.CompatibilityThreshold = sc.MinCompatibilityThreshold
	}
}
