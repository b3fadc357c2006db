package dashboard

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"evo/internal/evoerr"
	"evo/internal/historian"
)

// RecentCache is a read-only query path over the Historian's sqlite
// file, opened with the cgo mattn/go-sqlite3 driver rather than the
// pure-Go modernc.org/sqlite driver the Historian's Store itself
// writes through — mirroring the teacher's own split of two sqlite
// drivers across internal/store/local.go (writer) and tool_store.go
// (mattn-backed reader). Kept as a second connection rather than
// sharing the Historian's *sql.DB so the dashboard's polling never
// blocks behind an in-flight generation write.
type RecentCache struct {
	db *sql.DB
}

// NewRecentCache opens dbPath read-only via the mattn driver.
func NewRecentCache(dbPath string) (*RecentCache, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, &evoerr.PersistenceFailed{Why: err}
	}
	return &RecentCache{db: db}, nil
}

// Close closes the underlying connection.
func (c *RecentCache) Close() error {
	return c.db.Close()
}

// Recent returns the most recent limit generation rows, newest first.
func (c *RecentCache) Recent(ctx context.Context, limit int) ([]historian.GenerationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT generation_number, target_name, status, fitness_score,
		       model_tag, tokens_in, tokens_out, reasoning, old_source, new_source, created_at
		FROM generations ORDER BY generation_number DESC LIMIT ?`, limit)
	if err != nil {
		return nil, &evoerr.PersistenceFailed{Why: err}
	}
	defer rows.Close()

	var out []historian.GenerationRecord
	for rows.Next() {
		var rec historian.GenerationRecord
		if err := rows.Scan(
			&rec.GenerationNumber, &rec.TargetName, &rec.Status, &rec.FitnessScore,
			&rec.ModelTag, &rec.TokensIn, &rec.TokensOut, &rec.Reasoning,
			&rec.OldSource, &rec.NewSource, &rec.CreatedAt,
		); err != nil {
			return nil, &evoerr.PersistenceFailed{Why: err}
		}
		out = append(out, rec)
	}
	return out, nil
}
