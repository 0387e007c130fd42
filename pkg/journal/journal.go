// Package journal persists admission decisions and reported outcomes to
// SQLite for the admin dashboard. It is write-mostly diagnostics: nothing
// here is read back into admission decisions, and losing the file costs
// history, not correctness.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/listingwire/scrapegate/pkg/gate"
)

// Journal manages the SQLite decision log.
type Journal struct {
	db   *sql.DB
	path string
}

// DecisionEntry is one logged admission decision.
type DecisionEntry struct {
	ID       int64     `json:"id"`
	SourceID string    `json:"source_id"`
	Allowed  bool      `json:"allowed"`
	Reason   string    `json:"reason"`
	WaitMs   int64     `json:"wait_ms"`
	At       time.Time `json:"at"`
}

// OutcomeEntry is one reported request outcome.
type OutcomeEntry struct {
	ID       int64     `json:"id"`
	SourceID string    `json:"source_id"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// SourceStats aggregates decisions per source since some instant.
type SourceStats struct {
	SourceID string `json:"source_id"`
	Total    int    `json:"total"`
	Allowed  int    `json:"allowed"`
	Denied   int    `json:"denied"`
}

// Open creates or opens the journal database at the given path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	j := &Journal{db: db, path: path}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL,
		allowed INTEGER NOT NULL,
		reason TEXT NOT NULL,
		wait_ms INTEGER NOT NULL,
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_source ON decisions(source_id);
	CREATE INDEX IF NOT EXISTS idx_decisions_at ON decisions(at);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_source ON outcomes(source_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_at ON outcomes(at);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordDecision logs an admission decision.
func (j *Journal) RecordDecision(sourceID string, d gate.Decision, at time.Time) error {
	_, err := j.db.Exec(
		"INSERT INTO decisions (source_id, allowed, reason, wait_ms, at) VALUES (?, ?, ?, ?, ?)",
		sourceID, boolToInt(d.Allowed), d.Reason.String(), d.WaitMillis(), at.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// RecordOutcome logs a reported request outcome.
func (j *Journal) RecordOutcome(sourceID string, success bool, errMsg string, at time.Time) error {
	_, err := j.db.Exec(
		"INSERT INTO outcomes (source_id, success, error, at) VALUES (?, ?, ?, ?)",
		sourceID, boolToInt(success), errMsg, at.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// RecentDecisions returns the most recent decisions, newest first.
func (j *Journal) RecentDecisions(limit int) ([]DecisionEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.Query(
		"SELECT id, source_id, allowed, reason, wait_ms, at FROM decisions ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var entries []DecisionEntry
	for rows.Next() {
		var e DecisionEntry
		var allowed int
		var at int64
		if err := rows.Scan(&e.ID, &e.SourceID, &allowed, &e.Reason, &e.WaitMs, &at); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		e.Allowed = allowed != 0
		e.At = time.Unix(at, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats aggregates decisions per source since the given instant.
func (j *Journal) Stats(since time.Time) ([]SourceStats, error) {
	rows, err := j.db.Query(
		`SELECT source_id, COUNT(*), SUM(allowed) FROM decisions
		 WHERE at >= ? GROUP BY source_id ORDER BY source_id`,
		since.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var stats []SourceStats
	for rows.Next() {
		var s SourceStats
		if err := rows.Scan(&s.SourceID, &s.Total, &s.Allowed); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		s.Denied = s.Total - s.Allowed
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Prune removes entries recorded before the cutoff and returns how many
// rows were deleted.
func (j *Journal) Prune(before time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"decisions", "outcomes"} {
		res, err := j.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE at < ?", table), before.Unix())
		if err != nil {
			return total, fmt.Errorf("failed to prune %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
