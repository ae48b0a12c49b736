package neat

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *CheckpointStore {
	t.Helper()
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	store.SetLogger(quiet)
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCheckpointSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	cfg := testConfig()
	cfg.NEAT.PopulationSize = 5
	p := quietPopulation(t, cfg)
	for i := 0; i < p.Size(); i++ {
		p.SetFitness(i, float64(i))
	}
	p.Evolve()

	runID, err := store.SaveCheckpoint(ctx, "", p)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	loaded, err := store.LoadCheckpoint(ctx, runID, p.Generation, cfg)
	require.NoError(t, err)
	assert.Equal(t, p.Generation, loaded.Generation)
	assert.Equal(t, p.Size(), loaded.Size())
}

func TestCheckpointLoadLatest(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	cfg := testConfig()
	cfg.NEAT.PopulationSize = 5
	p := quietPopulation(t, cfg)

	runID := ""
	var err error
	for gen := 0; gen < 3; gen++ {
		for i := 0; i < p.Size(); i++ {
			p.SetFitness(i, 1.0)
		}
		p.Evolve()
		runID, err = store.SaveCheckpoint(ctx, runID, p)
		require.NoError(t, err)
	}

	loaded, err := store.LoadLatest(ctx, runID, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Generation)

	generations, err := store.Generations(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, generations)

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{runID}, runs)
}

func TestCheckpointOverwriteSameGeneration(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	cfg := testConfig()
	cfg.NEAT.PopulationSize = 5
	p := quietPopulation(t, cfg)

	runID, err := store.SaveCheckpoint(ctx, "run-a", p)
	require.NoError(t, err)
	assert.Equal(t, "run-a", runID)

	// Saving the same generation twice replaces the row instead of failing.
	_, err = store.SaveCheckpoint(ctx, "run-a", p)
	require.NoError(t, err)

	generations, err := store.Generations(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, generations)
}

func TestCheckpointMissingRun(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	_, err := store.LoadLatest(ctx, "missing", testConfig())
	assert.Error(t, err)
	_, err = store.LoadCheckpoint(ctx, "missing", 0, testConfig())
	assert.Error(t, err)
}

func TestCheckpointUninitializedStore(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "never-opened.db"))
	_, err := store.SaveCheckpoint(context.Background(), "run", &Population{})
	assert.Error(t, err)
}
