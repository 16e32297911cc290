package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/prototypus/git-ai-reviewer/internal/domain"
	"github.com/prototypus/git-ai-reviewer/internal/usecase/review"
)

// Store persists review run history using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite store at the given path.
// Use ":memory:" for an in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS review_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		remote_url TEXT NOT NULL,
		base_branch TEXT NOT NULL,
		feature_branch TEXT NOT NULL,
		mode TEXT NOT NULL,
		model TEXT NOT NULL,
		success INTEGER NOT NULL,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_review_runs_created_at
		ON review_runs(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun inserts one review run into the history.
func (s *Store) RecordRun(ctx context.Context, record review.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_runs
			(created_at, remote_url, base_branch, feature_branch, mode, model, success, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Timestamp.Unix(),
		record.RemoteURL,
		record.BaseBranch,
		record.FeatureBranch,
		string(record.Mode),
		record.Model,
		boolToInt(record.Success),
		record.Message,
	)
	if err != nil {
		return fmt.Errorf("insert review run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]review.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at, remote_url, base_branch, feature_branch, mode, model, success, message
		FROM review_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query review runs: %w", err)
	}
	defer rows.Close()

	var records []review.RunRecord
	for rows.Next() {
		var record review.RunRecord
		var createdAt int64
		var mode string
		var success int
		if err := rows.Scan(&createdAt, &record.RemoteURL, &record.BaseBranch,
			&record.FeatureBranch, &mode, &record.Model, &success, &record.Message); err != nil {
			return nil, fmt.Errorf("scan review run: %w", err)
		}
		record.Timestamp = time.Unix(createdAt, 0).UTC()
		record.Mode = domain.ReviewMode(mode)
		record.Success = success != 0
		records = append(records, record)
	}
	return records, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
