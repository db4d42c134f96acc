// Package pipeline drives a single fetch-flatten-persist run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/qepting91/reddit-hot-comments/internal/domain"
	"github.com/qepting91/reddit-hot-comments/internal/flatten"
)

const (
	noteFirstBatch      = "first batch only; more-comments not expanded"
	noteUnexpectedShape = "unexpected response from comments API"
)

// Runner fetches a subreddit's hot posts and their comments one request at a
// time, then writes everything once at the end.
type Runner struct {
	collector domain.Collector
	writer    domain.ResultWriter
	recorder  domain.RunRecorder
	logger    *slog.Logger

	// Sleep pauses between posts. Tests replace it.
	Sleep func(time.Duration)
	Now   func() time.Time
}

func NewRunner(collector domain.Collector, writer domain.ResultWriter, logger *slog.Logger) *Runner {
	return &Runner{
		collector: collector,
		writer:    writer,
		logger:    logger,
		Sleep:     time.Sleep,
		Now:       time.Now,
	}
}

// WithRecorder enables run history.
func (r *Runner) WithRecorder(rec domain.RunRecorder) *Runner {
	r.recorder = rec
	return r
}

// Run performs one end-to-end run. It fails only if params are invalid, the
// listing cannot be fetched or is empty, or the output cannot be written.
// A failed comment fetch is recorded on that post and the run continues.
func (r *Runner) Run(ctx context.Context, params domain.RunParams) (*domain.RunResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	run := &domain.RunResult{
		RunID:     uuid.NewString(),
		Subreddit: params.Subreddit,
		StartedAt: r.Now(),
	}
	logger := r.logger.With("run_id", run.RunID, "subreddit", params.Subreddit)
	logger.Info("run started", "posts_limit", params.PostsLimit, "comments_limit", params.CommentsLimit,
		"depth", params.Depth, "sort", params.Sort, "polite_delay_ms", params.PoliteDelayMS)

	entries, err := r.collector.FetchHotPosts(ctx, params.Subreddit, params.PostsLimit)
	if err != nil {
		logger.Error("listing fetch failed", "error", err)
		return nil, fmt.Errorf("listing r/%s: %w", params.Subreddit, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("listing r/%s: %w", params.Subreddit, domain.ErrEmptyResult)
	}
	if len(entries) > params.PostsLimit {
		entries = entries[:params.PostsLimit]
	}

	results := make([]domain.PostResult, 0, len(entries))
	for i, entry := range entries {
		post := domain.Post{
			ID:             entry.ID,
			Title:          entry.Title,
			Permalink:      entry.Permalink,
			IndexInListing: i + 1,
		}
		result := r.collectPost(ctx, params, post)
		if result.Status != domain.StatusOK {
			logger.Warn("post skipped", "post_id", post.ID, "index", post.IndexInListing,
				"status", result.Status, "error", result.Error)
		}
		results = append(results, result)

		if d := params.PoliteDelay(); d > 0 {
			r.Sleep(d)
		}
	}

	path, err := r.writer.Write(params.Subreddit, results)
	if err != nil {
		logger.Error("write failed", "error", err)
		return nil, err
	}

	run.OutputPath = path
	run.PostsProcessed = len(results)
	run.Results = results
	for _, res := range results {
		run.CommentsTotal += len(res.Comments)
	}
	run.Duration = r.Now().Sub(run.StartedAt)

	if r.recorder != nil {
		if err := r.recorder.RecordRun(ctx, run); err != nil {
			logger.Warn("recording run history failed", "error", err)
		}
	}

	logger.Info("run complete", "posts_processed", run.PostsProcessed,
		"comments_total", run.CommentsTotal, "output", run.OutputPath, "duration", run.Duration)
	return run, nil
}

// collectPost fetches and flattens a single post. Its status is final.
func (r *Runner) collectPost(ctx context.Context, params domain.RunParams, post domain.Post) domain.PostResult {
	raw, err := r.collector.FetchComments(ctx, params.Subreddit, post.ID, params.CommentQuery())
	if err != nil {
		return domain.PostResult{
			Post:     post,
			Comments: []domain.Comment{},
			Status:   domain.StatusFetchError,
			Error:    fmt.Sprintf("fetching comments: %v", err),
		}
	}

	comments, err := flatten.Comments(raw)
	if err != nil {
		return domain.PostResult{
			Post:     post,
			Comments: []domain.Comment{},
			Status:   domain.StatusUnexpectedShape,
			Note:     noteUnexpectedShape,
		}
	}

	return domain.PostResult{
		Post:     post,
		Comments: comments,
		Status:   domain.StatusOK,
		Note:     noteFirstBatch,
	}
}
