// Package historian implements the Historian (spec.md §4.10): persists
// the Generation Record and produces a version-control checkpoint.
package historian

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"evo/internal/evoerr"
)

// GenerationRecord is the persisted row for one evolution cycle
// (spec.md §3's Data Model, SPEC_FULL.md §3).
type GenerationRecord struct {
	GenerationNumber int
	TargetName       string
	Status           string
	FitnessScore     float64
	ModelTag         string
	TokensIn         int
	TokensOut        int
	Reasoning        string
	OldSource        string
	NewSource        string
	ArtifactHash     string // SHA-256 of the compiled plugin .so (SPEC_FULL.md §10)
	CreatedAt        time.Time
}

// Store is the generation-record persistence layer, backed by SQLite
// via the pure-Go modernc.org/sqlite driver — mirroring the teacher's
// own internal/store/local.go (NewLocalStore/initialize pattern).
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS generations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	generation_number INTEGER NOT NULL,
	target_name TEXT NOT NULL,
	status TEXT NOT NULL,
	fitness_score REAL NOT NULL,
	model_tag TEXT,
	tokens_in INTEGER DEFAULT 0,
	tokens_out INTEGER DEFAULT 0,
	reasoning TEXT,
	old_source TEXT,
	new_source TEXT,
	artifact_hash TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_generations_number ON generations(generation_number);
CREATE INDEX IF NOT EXISTS idx_generations_status ON generations(status);
`

// NewStore opens (creating if necessary) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &evoerr.PersistenceFailed{Why: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &evoerr.PersistenceFailed{Why: err}
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	if _, err := s.db.Exec(schema); err != nil {
		return &evoerr.PersistenceFailed{Why: fmt.Errorf("create schema: %w", err)}
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert persists one Generation Record.
func (s *Store) Insert(ctx context.Context, rec GenerationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generations (
			generation_number, target_name, status, fitness_score,
			model_tag, tokens_in, tokens_out, reasoning, old_source, new_source, artifact_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.GenerationNumber, rec.TargetName, rec.Status, rec.FitnessScore,
		rec.ModelTag, rec.TokensIn, rec.TokensOut, rec.Reasoning, rec.OldSource, rec.NewSource, rec.ArtifactHash,
	)
	if err != nil {
		return &evoerr.PersistenceFailed{Why: err}
	}
	return nil
}

// Recent returns the most recent limit Generation Records, newest
// first — the query path the dashboard's status() proxy uses.
func (s *Store) Recent(ctx context.Context, limit int) ([]GenerationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT generation_number, target_name, status, fitness_score,
		       model_tag, tokens_in, tokens_out, reasoning, old_source, new_source, artifact_hash, created_at
		FROM generations ORDER BY generation_number DESC LIMIT ?`, limit)
	if err != nil {
		return nil, &evoerr.PersistenceFailed{Why: err}
	}
	defer rows.Close()

	var out []GenerationRecord
	for rows.Next() {
		var rec GenerationRecord
		if err := rows.Scan(
			&rec.GenerationNumber, &rec.TargetName, &rec.Status, &rec.FitnessScore,
			&rec.ModelTag, &rec.TokensIn, &rec.TokensOut, &rec.Reasoning,
			&rec.OldSource, &rec.NewSource, &rec.ArtifactHash, &rec.CreatedAt,
		); err != nil {
			return nil, &evoerr.PersistenceFailed{Why: err}
		}
		out = append(out, rec)
	}
	return out, nil
}

// LatestAcceptedHashes returns, per target, the ArtifactHash of that
// target's most recent accepted or accepted_neutral generation — what
// RestoreAll compares against the on-disk plugin artifact to decide
// whether a rebuild is actually needed on boot.
func (s *Store) LatestAcceptedHashes(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target_name, artifact_hash FROM generations g
		WHERE status IN ('accepted', 'accepted_neutral')
		AND artifact_hash != ''
		AND generation_number = (
			SELECT MAX(generation_number) FROM generations g2
			WHERE g2.target_name = g.target_name
			AND g2.status IN ('accepted', 'accepted_neutral')
		)`)
	if err != nil {
		return nil, &evoerr.PersistenceFailed{Why: err}
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, hash string
		if err := rows.Scan(&name, &hash); err != nil {
			return nil, &evoerr.PersistenceFailed{Why: err}
		}
		out[name] = hash
	}
	return out, nil
}

// Latest returns the highest generation_number recorded, or 0 if the
// store is empty — used by the Evolver to resume its counter on boot.
func (s *Store) Latest(ctx context.Context) (int, error) {
	var n sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(generation_number) FROM generations`).Scan(&n)
	if err != nil {
		return 0, &evoerr.PersistenceFailed{Why: err}
	}
	if !n.Valid {
		return 0, nil
	}
	return int(n.Int64), nil
}
