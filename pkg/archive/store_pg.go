package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore archives audits in PostgreSQL
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects to databaseURL and creates the schema if needed
func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 4
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *PGStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS diffraction_audits (
		run_id TEXT PRIMARY KEY,
		pole_key TEXT NOT NULL,
		pole_a TEXT NOT NULL,
		pole_b TEXT NOT NULL,
		verdict TEXT NOT NULL,
		confidence TEXT NOT NULL,
		equilibrium TEXT,
		synthesis TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		document JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_diffraction_audits_poles ON diffraction_audits(pole_key, created_at DESC);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Save implements Store. Saving an existing run id replaces it.
func (s *PGStore) Save(ctx context.Context, rec *Record) error {
	doc, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO diffraction_audits (run_id, pole_key, pole_a, pole_b, verdict, confidence, equilibrium, synthesis, created_at, document)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			verdict = EXCLUDED.verdict,
			confidence = EXCLUDED.confidence,
			equilibrium = EXCLUDED.equilibrium,
			synthesis = EXCLUDED.synthesis,
			document = EXCLUDED.document
	`
	_, err = s.pool.Exec(ctx, query,
		rec.RunID,
		poleKey(rec.PoleA, rec.PoleB),
		rec.PoleA,
		rec.PoleB,
		rec.Verdict,
		rec.Confidence,
		rec.Equilibrium,
		rec.Synthesis,
		rec.CreatedAt,
		doc,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit %s: %w", rec.RunID, err)
	}
	return nil
}

const selectColumns = `SELECT run_id, pole_a, pole_b, verdict, confidence, COALESCE(equilibrium, ''), COALESCE(synthesis, ''), created_at, document FROM diffraction_audits`

// Get implements Store.
func (s *PGStore) Get(ctx context.Context, runID string) (*Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, selectColumns+` WHERE run_id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}
	return rec, nil
}

// ListByPoles implements Store, newest first.
func (s *PGStore) ListByPoles(ctx context.Context, a, b string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, selectColumns+` WHERE pole_key = $1 ORDER BY created_at DESC LIMIT $2`, poleKey(a, b), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (*Record, error) {
	rec := &Record{}
	var doc []byte
	err := row.Scan(
		&rec.RunID,
		&rec.PoleA,
		&rec.PoleB,
		&rec.Verdict,
		&rec.Confidence,
		&rec.Equilibrium,
		&rec.Synthesis,
		&rec.CreatedAt,
		&doc,
	)
	if err != nil {
		return nil, err
	}
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &rec.Document); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
	}
	return rec, nil
}

// Ping checks database connectivity
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements Store.
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
