package neat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const checkpointSchemaVersion = 1

const checkpointSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	run_id         TEXT    NOT NULL,
	generation     INTEGER NOT NULL,
	schema_version INTEGER NOT NULL,
	saved_at       TEXT    NOT NULL,
	payload        BLOB    NOT NULL,
	PRIMARY KEY (run_id, generation)
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_run ON checkpoints(run_id, generation DESC);
`

// CheckpointStore persists population snapshots to a SQLite database, one
// row per (run, generation). It lets a long evolutionary run resume from
// the latest saved generation after a crash or restart.
type CheckpointStore struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	logger *logrus.Logger
}

// NewCheckpointStore creates a store backed by the SQLite file at path.
// Call Init before use.
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path, logger: newDefaultLogger()}
}

// SetLogger replaces the store's logger.
func (s *CheckpointStore) SetLogger(logger *logrus.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Init opens the database and creates the schema if needed.
func (s *CheckpointStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("opening checkpoint database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("pinging checkpoint database: %w", err)
	}
	if _, err := db.ExecContext(ctx, checkpointSchema); err != nil {
		db.Close()
		return fmt.Errorf("creating checkpoint schema: %w", err)
	}
	s.db = db
	return nil
}

// Close closes the underlying database.
func (s *CheckpointStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// SaveCheckpoint writes a snapshot of the population under runID at its
// current generation, replacing any prior snapshot for that generation.
// An empty runID allocates a fresh one; the used id is returned either way.
func (s *CheckpointStore) SaveCheckpoint(ctx context.Context, runID string, p *Population) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return "", fmt.Errorf("checkpoint store not initialized")
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding checkpoint payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, generation, schema_version, saved_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			schema_version = excluded.schema_version,
			saved_at       = excluded.saved_at,
			payload        = excluded.payload`,
		runID, p.Generation, checkpointSchemaVersion, time.Now().UTC().Format(time.RFC3339), payload)
	if err != nil {
		return "", fmt.Errorf("saving checkpoint: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"run":        runID,
		"generation": p.Generation,
		"bytes":      len(payload),
	}).Info("checkpoint saved")
	return runID, nil
}

// LoadCheckpoint restores the snapshot of runID at the given generation.
func (s *CheckpointStore) LoadCheckpoint(ctx context.Context, runID string, generation int, cfg *Config) (*Population, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("checkpoint store not initialized")
	}

	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM checkpoints WHERE run_id = ? AND generation = ?`,
		runID, generation).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no checkpoint for run %s at generation %d", runID, generation)
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	return UnmarshalPopulation(payload, cfg)
}

// LoadLatest restores runID's snapshot with the highest generation.
func (s *CheckpointStore) LoadLatest(ctx context.Context, runID string, cfg *Config) (*Population, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("checkpoint store not initialized")
	}

	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM checkpoints WHERE run_id = ? ORDER BY generation DESC LIMIT 1`,
		runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no checkpoints for run %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest checkpoint: %w", err)
	}
	return UnmarshalPopulation(payload, cfg)
}

// Generations lists the saved generations for runID, ascending.
func (s *CheckpointStore) Generations(ctx context.Context, runID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("checkpoint store not initialized")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT generation FROM checkpoints WHERE run_id = ? ORDER BY generation`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing generations: %w", err)
	}
	defer rows.Close()

	var generations []int
	for rows.Next() {
		var g int
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scanning generation: %w", err)
		}
		generations = append(generations, g)
	}
	return generations, rows.Err()
}

// Runs lists the distinct run ids present in the store.
func (s *CheckpointStore) Runs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("checkpoint store not initialized")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT run_id FROM checkpoints ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning run id: %w", err)
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}
