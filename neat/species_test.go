package neat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeciateAssignsEveryGenome(t *testing.T) {
	cfg := testConfig()
	tracker := NewInnovationTracker()
	rng := rand.New(rand.NewSource(1))

	genomes := make([]*Genome, 10)
	for i := range genomes {
		genomes[i] = newTestGenome(t, cfg, tracker, rng)
	}

	nextID := 1
	species := Speciate(genomes, nil, cfg, &nextID, rng)

	require.NotEmpty(t, species)
	total := 0
	for _, s := range species {
		assert.NotEmpty(t, s.Members)
		assert.NotNil(t, s.Representative)
		total += len(s.Members)
	}
	assert.Equal(t, len(genomes), total)
}

func TestSpeciateSplitsDistantGenomes(t *testing.T) {
	cfg := testConfig()
	cfg.Speciation.CompatibilityThreshold = 0.5
	tracker := NewInnovationTracker()
	rng := rand.New(rand.NewSource(1))

	near := newTestGenome(t, cfg, tracker, rng)
	twin := near.Clone()

	far := near.Clone()
	tracker.ResetGenerationCache()
	for i := 0; i < 6; i++ {
		far.MutateAddNode(cfg, tracker, rng)
	}

	nextID := 1
	species := Speciate([]*Genome{near, twin, far}, nil, cfg, &nextID, rng)

	require.Len(t, species, 2)
}

func TestSpeciateDropsEmptySpecies(t *testing.T) {
	cfg := testConfig()
	tracker := NewInnovationTracker()
	rng := rand.New(rand.NewSource(1))

	g := newTestGenome(t, cfg, tracker, rng)
	nextID := 1
	species := Speciate([]*Genome{g}, nil, cfg, &nextID, rng)
	require.Len(t, species, 1)

	// Next round with an unrelated population: the old species keeps its
	// representative but ends with zero members and is dropped.
	distant := g.Clone()
	tracker.ResetGenerationCache()
	for i := 0; i < 8; i++ {
		distant.MutateAddNode(cfg, tracker, rng)
	}
	cfg.Speciation.CompatibilityThreshold = 0.5

	species = Speciate([]*Genome{distant}, species, cfg, &nextID, rng)
	require.Len(t, species, 1)
	assert.Equal(t, []*Genome{distant}, species[0].Members)
}

func TestAdjustedFitnessSharing(t *testing.T) {
	cfg := testConfig()
	tracker := NewInnovationTracker()
	rng := rand.New(rand.NewSource(1))

	s := NewSpecies(1, newTestGenome(t, cfg, tracker, rng))
	second := newTestGenome(t, cfg, tracker, rng)
	s.Members = append(s.Members, second)
	s.Members[0].Fitness = 4.0
	s.Members[1].Fitness = 2.0

	s.CalculateAdjustedFitness()

	assert.Equal(t, 2.0, s.Members[0].AdjustedFitness)
	assert.Equal(t, 1.0, s.Members[1].AdjustedFitness)
}

func TestUpdateBestFitnessAndStagnation(t *testing.T) {
	cfg := testConfig()
	tracker := NewInnovationTracker()
	rng := rand.New(rand.NewSource(1))

	s := NewSpecies(1, newTestGenome(t, cfg, tracker, rng))
	s.Members[0].Fitness = 1.0

	s.UpdateBestFitness()
	assert.Equal(t, 1.0, s.BestFitnessEver)
	assert.Equal(t, 0, s.GenerationsWithoutImprovement)
	assert.Equal(t, 1, s.Age)

	// No improvement increments the counter.
	s.UpdateBestFitness()
	assert.Equal(t, 1, s.GenerationsWithoutImprovement)
	assert.Equal(t, 2, s.Age)
	assert.False(t, s.IsStagnant(2))
	assert.True(t, s.IsStagnant(1))

	// A new record resets it.
	s.Members[0].Fitness = 5.0
	s.UpdateBestFitness()
	assert.Equal(t, 5.0, s.BestFitnessEver)
	assert.Equal(t, 0, s.GenerationsWithoutImprovement)
}

func TestAdjustCompatibilityThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.Speciation.CompatibilityThreshold = 3.0
	cfg.Speciation.TargetSpeciesCount = 10
	cfg.Speciation.ThresholdStep = 0.1

	// Below target: loosen the threshold downward to split species.
	AdjustCompatibilityThreshold(5, cfg)
	assert.InDelta(t, 2.9, cfg.Speciation.CompatibilityThreshold, 1e-9)

	// Above target: raise it to merge species.
	AdjustCompatibilityThreshold(15, cfg)
	AdjustCompatibilityThreshold(15, cfg)
	assert.InDelta(t, 3.1, cfg.Speciation.CompatibilityThreshold, 1e-9)

	// At target: unchanged.
	AdjustCompatibilityThreshold(10, cfg)
	assert.InDelta(t, 3.1, cfg.Speciation.CompatibilityThreshold, 1e-9)
}

func TestAdjustCompatibilityThresholdClampsToFloor(t *testing.T) {
	cfg := testConfig()
	cfg.Speciation.CompatibilityThreshold = 0.55
	cfg.Speciation.MinCompatibilityThreshold = 0.5
	cfg.Speciation.ThresholdStep = 0.1

	AdjustCompatibilityThreshold(1, cfg)
	assert.Equal(t, 0.5, cfg.Speciation.CompatibilityThreshold)
	AdjustCompatibilityThreshold(1, cfg)
	assert.Equal(t, 0.5, cfg.Speciation.CompatibilityThreshold)
}
