package leaderboard

import (
	"context"
	"database/sql"
	"fmt"
)

// Entry is one leaderboard row: a user's personal best WPM.
type Entry struct {
	Username string `json:"username"`
	WPM      int    `json:"wpm"`
}

// Source provides read and append access to recorded race scores.
type Source interface {
	// RecordScore appends one score row for username.
	RecordScore(ctx context.Context, username string, wpm int) error
	// GetTop returns up to n users ordered by their best recorded WPM, descending.
	GetTop(ctx context.Context, n int) ([]Entry, error)
}

// Repository implements Source on top of the scores table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new leaderboard repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the scores table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scores (
			id         SERIAL PRIMARY KEY,
			username   TEXT NOT NULL,
			wpm        INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create scores table: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_scores_username ON scores (username)`)
	if err != nil {
		return fmt.Errorf("failed to create scores index: %w", err)
	}
	return nil
}

// RecordScore appends one score row. Rows are append-only; history is never rewritten.
func (r *Repository) RecordScore(ctx context.Context, username string, wpm int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scores (username, wpm) VALUES ($1, $2)`,
		username, wpm,
	)
	if err != nil {
		return fmt.Errorf("failed to record score: %w", err)
	}
	return nil
}

// GetTop aggregates each user's maximum WPM and returns the top n, descending.
func (r *Repository) GetTop(ctx context.Context, n int) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT username, MAX(wpm) AS best_wpm
		FROM scores
		GROUP BY username
		ORDER BY best_wpm DESC
		LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Username, &e.WPM); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard rows: %w", err)
	}
	return entries, nil
}
