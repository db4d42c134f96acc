package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/qepting91/reddit-hot-comments/internal/domain"
	_ "modernc.org/sqlite"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	subreddit       TEXT NOT NULL,
	posts_processed INTEGER NOT NULL,
	comments_total  INTEGER NOT NULL,
	output_path     TEXT NOT NULL,
	started_at      INTEGER NOT NULL,
	duration_ms     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS run_posts (
	run_id        TEXT NOT NULL REFERENCES runs(run_id),
	post_index    INTEGER NOT NULL,
	post_id       TEXT NOT NULL,
	status        TEXT NOT NULL,
	comment_count INTEGER NOT NULL,
	PRIMARY KEY (run_id, post_index)
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);`

// RunSummary is a stored run without its comment data.
type RunSummary struct {
	RunID          string
	Subreddit      string
	PostsProcessed int
	CommentsTotal  int
	OutputPath     string
	StartedAt      time.Time
	Duration       time.Duration
}

// PostOutcome is one post's stored status within a run.
type PostOutcome struct {
	Index        int
	PostID       string
	Status       domain.PostStatus
	CommentCount int
}

// HistoryStore implements domain.RunRecorder using SQLite.
type HistoryStore struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) the database at path and applies the
// schema. The caller should call Close when done.
func OpenHistory(path string) (*HistoryStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

func (h *HistoryStore) Close() error {
	return h.db.Close()
}

// RecordRun stores the run and each post's outcome in one transaction.
func (h *HistoryStore) RecordRun(ctx context.Context, run *domain.RunResult) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, subreddit, posts_processed, comments_total, output_path, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Subreddit, run.PostsProcessed, run.CommentsTotal, run.OutputPath,
		run.StartedAt.UnixMilli(), run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, r := range run.Results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_posts (run_id, post_index, post_id, status, comment_count)
			VALUES (?, ?, ?, ?, ?)`,
			run.RunID, r.Post.IndexInListing, r.Post.ID, string(r.Status), len(r.Comments),
		)
		if err != nil {
			return fmt.Errorf("insert run post %d: %w", r.Post.IndexInListing, err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (h *HistoryStore) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT run_id, subreddit, posts_processed, comments_total, output_path, started_at, duration_ms
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			s                   RunSummary
			startedMS, duration int64
		)
		if err := rows.Scan(&s.RunID, &s.Subreddit, &s.PostsProcessed, &s.CommentsTotal, &s.OutputPath, &startedMS, &duration); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.StartedAt = time.UnixMilli(startedMS)
		s.Duration = time.Duration(duration) * time.Millisecond
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// PostOutcomes returns the per-post statuses of a run in listing order.
func (h *HistoryStore) PostOutcomes(ctx context.Context, runID string) ([]PostOutcome, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT post_index, post_id, status, comment_count
		FROM run_posts
		WHERE run_id = ?
		ORDER BY post_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run posts: %w", err)
	}
	defer rows.Close()

	var outcomes []PostOutcome
	for rows.Next() {
		var (
			o      PostOutcome
			status string
		)
		if err := rows.Scan(&o.Index, &o.PostID, &status, &o.CommentCount); err != nil {
			return nil, fmt.Errorf("scan run post: %w", err)
		}
		o.Status = domain.PostStatus(status)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
