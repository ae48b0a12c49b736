package neat

import (
	"encoding/json"
	"io"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenomeRoundTrip(t *testing.T) {
	cfg := testConfig()
	tracker := NewInnovationTracker()
	rng := rand.New(rand.NewSource(1))

	g := newTestGenome(t, cfg, tracker, rng)
	g.MutateAddNode(cfg, tracker, rng)
	g.Fitness = 2.5

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var loaded Genome
	require.NoError(t, json.Unmarshal(data, &loaded))

	require.Len(t, loaded.Nodes, len(g.Nodes))
	require.Len(t, loaded.Connections, len(g.Connections))
	assert.Equal(t, 2.5, loaded.Fitness)

	// Innovation numbers survive the round trip, so a reloaded genome stays
	// crossover-compatible with live ones.
	byInno := loaded.connectionsByInnovation()
	for _, c := range g.Connections {
		lc, ok := byInno[c.Innovation]
		require.True(t, ok)
		assert.Equal(t, c.Source, lc.Source)
		assert.Equal(t, c.Target, lc.Target)
		assert.Equal(t, c.Weight, lc.Weight)
		assert.Equal(t, c.Enabled, lc.Enabled)
	}
	assert.Equal(t, 0.0, g.Compatibility(&loaded, cfg))
}

func TestGenomeUnmarshalLenient(t *testing.T) {
	data := []byte(`{
		"nodes": [
			{"id": 0, "type": "input", "bias": 0},
			{"id": 1, "type": "mystery", "bias": 0.5},
			{"id": 2, "type": "output", "bias": 0.1}
		],
		"connections": [
			{"in": 0, "out": 2, "weight": 1.5, "innovation": 0},
			{"in": 0, "out": 99, "weight": 1.0, "enabled": false, "innovation": 1}
		],
		"fitness": 1.0
	}`)

	var g Genome
	require.NoError(t, json.Unmarshal(data, &g))

	// Unknown node type falls back to hidden; the connection referencing a
	// missing node is dropped; a missing enabled flag means enabled.
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, NodeHidden, g.nodeByID(1).Type)
	require.Len(t, g.Connections, 1)
	assert.True(t, g.Connections[0].Enabled)
	assert.Equal(t, 0, g.Connections[0].Innovation)
}

func TestPopulationSaveLoad(t *testing.T) {
	cfg := testConfig()
	cfg.NEAT.PopulationSize = 6
	p := quietPopulation(t, cfg)

	for i := 0; i < p.Size(); i++ {
		p.SetFitness(i, float64(i))
	}
	p.Evolve()

	path := filepath.Join(t.TempDir(), "population.json")
	require.NoError(t, p.Save(path))

	loaded, err := LoadPopulation(path, cfg)
	require.NoError(t, err)

	assert.Equal(t, p.Generation, loaded.Generation)
	assert.Equal(t, p.Size(), loaded.Size())
	require.NotNil(t, loaded.AllTimeBest)
	assert.Equal(t, p.AllTimeBest.Fitness, loaded.AllTimeBest.Fitness)

	// The tracker counters ride along, so resumed runs keep issuing fresh
	// ids past everything in the loaded genomes.
	wantNode, wantInno := p.Tracker.Counters()
	gotNode, gotInno := loaded.Tracker.Counters()
	assert.Equal(t, wantNode, gotNode)
	assert.Equal(t, wantInno, gotInno)

	// A loaded population must be able to keep evolving.
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	loaded.SetLogger(quiet)
	for i := 0; i < loaded.Size(); i++ {
		loaded.SetFitness(i, 1.0)
	}
	loaded.Evolve()
	assert.Equal(t, p.Generation+1, loaded.Generation)
}

func TestUnmarshalPopulationWithoutCounters(t *testing.T) {
	data := []byte(`{
		"generation": 3,
		"best_fitness": 2.0,
		"all_time_best_fitness": 2.0,
		"genomes": [
			{
				"nodes": [
					{"id": 0, "type": "input", "bias": 0},
					{"id": 7, "type": "output", "bias": 0.2}
				],
				"connections": [
					{"in": 0, "out": 7, "weight": 1.0, "enabled": true, "innovation": 11}
				],
				"fitness": 2.0
			}
		]
	}`)

	p, err := UnmarshalPopulation(data, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 3, p.Generation)
	require.Equal(t, 1, p.Size())

	// Without persisted counters the tracker resumes past the maxima found
	// in the genomes.
	nodeID, inno := p.Tracker.Counters()
	assert.Equal(t, 8, nodeID)
	assert.Equal(t, 12, inno)
}

func TestLoadPopulationMissingFile(t *testing.T) {
	_, err := LoadPopulation(filepath.Join(t.TempDir(), "nope.json"), testConfig())
	assert.Error(t, err)
}
