// Package store persists evaluation batches and their outcomes to SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/engine"
)

// Batch is one persisted swarm evaluation.
type Batch struct {
	ID           string          `json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	Policy       string          `json:"policy"`
	World        string          `json:"world"`
	BaseSeed     uint64          `json:"base_seed"`
	MaxSteps     int             `json:"max_steps"`
	NRequested   int             `json:"n_requested"`
	NCompleted   int             `json:"n_completed"`
	Errored      int             `json:"errored"`
	SoftFailures int64           `json:"soft_failures"`
	Elapsed      time.Duration   `json:"elapsed"`
	Report       json.RawMessage `json:"report,omitempty"`
}

// Store persists batches to .polstress/polstress.db under a project root.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// New creates a store rooted at projectRoot, creating the .polstress
// directory and database as needed.
func New(projectRoot string) (*Store, error) {
	dir := filepath.Join(projectRoot, ".polstress")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating .polstress directory: %w", err)
	}

	dbPath := filepath.Join(dir, "polstress.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &Store{db: db, dbPath: dbPath, enc: enc, dec: dec}, nil
}

// SaveBatch writes the batch row and all its outcomes in one transaction.
// A missing batch ID is filled with a fresh UUID; CreatedAt defaults to
// now. Returns the stored batch ID.
func (s *Store) SaveBatch(ctx context.Context, b *Batch, outcomes []engine.Outcome) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO batches (id, created_at, policy, world, base_seed, max_steps,
			n_requested, n_completed, errored, soft_failures, elapsed_ms, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.CreatedAt.Format(time.RFC3339Nano), b.Policy, b.World,
		int64(b.BaseSeed), b.MaxSteps, b.NRequested, b.NCompleted,
		b.Errored, b.SoftFailures, b.Elapsed.Milliseconds(), nullRaw(b.Report))
	if err != nil {
		return "", fmt.Errorf("inserting batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outcomes (batch_id, seed, reason, steps, score, score_valid,
			event_count, error, final_state, events, trajectory)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		finalState, err := json.Marshal(o.FinalState)
		if err != nil {
			return "", fmt.Errorf("encoding final state for seed %d: %w", o.Seed, err)
		}
		events, err := json.Marshal(o.Events)
		if err != nil {
			return "", fmt.Errorf("encoding events for seed %d: %w", o.Seed, err)
		}

		var trajectory []byte
		if len(o.Trajectory) > 0 {
			raw, err := json.Marshal(o.Trajectory)
			if err != nil {
				return "", fmt.Errorf("encoding trajectory for seed %d: %w", o.Seed, err)
			}
			trajectory = s.enc.EncodeAll(raw, nil)
		}

		var score sql.NullFloat64
		if o.ScoreValid {
			score = sql.NullFloat64{Float64: o.Score, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, b.ID, int64(o.Seed), o.Reason.String(),
			o.Steps, score, o.ScoreValid, o.EventCount,
			nullString(o.Err), string(finalState), string(events), trajectory); err != nil {
			return "", fmt.Errorf("inserting outcome for seed %d: %w", o.Seed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing batch: %w", err)
	}
	return b.ID, nil
}

// ListBatches returns all batches, newest first, without outcomes.
func (s *Store) ListBatches(ctx context.Context) ([]Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, policy, world, base_seed, max_steps,
			n_requested, n_completed, errored, soft_failures, elapsed_ms, report
		FROM batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// GetBatch returns one batch by ID, without outcomes.
func (s *Store) GetBatch(ctx context.Context, id string) (*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, policy, world, base_seed, max_steps,
			n_requested, n_completed, errored, soft_failures, elapsed_ms, report
		FROM batches WHERE id = ?`, id)
	b, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("batch %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// LoadOutcomes returns all outcomes for the batch, decompressing any
// stored trajectories.
func (s *Store) LoadOutcomes(ctx context.Context, batchID string) ([]engine.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT seed, reason, steps, score, score_valid, event_count,
			error, final_state, events, trajectory
		FROM outcomes WHERE batch_id = ?`, batchID)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []engine.Outcome
	for rows.Next() {
		var (
			o          engine.Outcome
			seed       int64
			reason     string
			score      sql.NullFloat64
			errText    sql.NullString
			finalState string
			events     string
			trajectory []byte
		)
		if err := rows.Scan(&seed, &reason, &o.Steps, &score, &o.ScoreValid,
			&o.EventCount, &errText, &finalState, &events, &trajectory); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		o.Seed = uint64(seed)
		if err := o.Reason.UnmarshalText([]byte(reason)); err != nil {
			return nil, fmt.Errorf("decoding reason %q: %w", reason, err)
		}
		if score.Valid {
			o.Score = score.Float64
		}
		o.Err = errText.String
		if err := json.Unmarshal([]byte(finalState), &o.FinalState); err != nil {
			return nil, fmt.Errorf("decoding final state for seed %d: %w", seed, err)
		}
		if events != "" {
			if err := json.Unmarshal([]byte(events), &o.Events); err != nil {
				return nil, fmt.Errorf("decoding events for seed %d: %w", seed, err)
			}
		}
		if len(trajectory) > 0 {
			raw, err := s.dec.DecodeAll(trajectory, nil)
			if err != nil {
				return nil, fmt.Errorf("decompressing trajectory for seed %d: %w", seed, err)
			}
			if err := json.Unmarshal(raw, &o.Trajectory); err != nil {
				return nil, fmt.Errorf("decoding trajectory for seed %d: %w", seed, err)
			}
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// DeleteBatch removes a batch and its outcomes.
func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("batch %s not found", id)
	}
	return nil
}

// Close releases the database and codec resources.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (Batch, error) {
	var (
		b         Batch
		createdAt string
		baseSeed  int64
		elapsedMS int64
		report    sql.NullString
	)
	err := row.Scan(&b.ID, &createdAt, &b.Policy, &b.World, &baseSeed, &b.MaxSteps,
		&b.NRequested, &b.NCompleted, &b.Errored, &b.SoftFailures, &elapsedMS, &report)
	if err != nil {
		return b, err
	}
	b.BaseSeed = uint64(baseSeed)
	b.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		b.CreatedAt = t
	}
	if report.Valid {
		b.Report = json.RawMessage(report.String)
	}
	return b, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullRaw(r json.RawMessage) sql.NullString {
	if len(r) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(r), Valid: true}
}
