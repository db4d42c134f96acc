package domain

import (
	"context"
	"time"
)

// Post is one entry of the hot listing.
type Post struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Permalink      string `json:"permalink"`
	IndexInListing int    `json:"index_in_hot"`
}

// Comment is a flattened top-level comment. Every field is optional because
// upstream data is not guaranteed complete.
type Comment struct {
	ID          *string  `json:"id"`
	Author      *string  `json:"author"`
	Body        *string  `json:"body"`
	Score       *int64   `json:"score"`
	CreatedUTC  *float64 `json:"created_utc"`
	ParentID    *string  `json:"parent_id"`
	IsSubmitter *bool    `json:"is_submitter"`
}

// PostStatus is the terminal state of a post's comment fetch.
type PostStatus string

const (
	StatusOK              PostStatus = "ok"
	StatusFetchError      PostStatus = "fetch_error"
	StatusUnexpectedShape PostStatus = "unexpected_shape"
)

// PostResult holds one post and whatever comments were collected for it.
type PostResult struct {
	Post     Post       `json:"post"`
	Comments []Comment  `json:"comments"`
	Status   PostStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
	Note     string     `json:"note,omitempty"`
}

// RunResult summarizes one end-to-end run.
type RunResult struct {
	RunID          string        `json:"run_id"`
	Subreddit      string        `json:"subreddit"`
	PostsProcessed int           `json:"posts_processed"`
	CommentsTotal  int           `json:"comments_total_returned"`
	OutputPath     string        `json:"csv_saved_to"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	Results        []PostResult  `json:"-"`
}

// ListingEntry is a raw post as returned by the listing endpoint.
type ListingEntry struct {
	ID        string
	Title     string
	Permalink string
}

// CommentQuery controls one comment-tree request.
type CommentQuery struct {
	Limit int
	Depth int
	Sort  CommentSort
}

// Collector fetches from the upstream content API.
type Collector interface {
	// FetchHotPosts returns at most limit listing entries, or ErrEmptyResult.
	FetchHotPosts(ctx context.Context, subreddit string, limit int) ([]ListingEntry, error)
	// FetchComments returns the decoded, still-nested comment response.
	FetchComments(ctx context.Context, subreddit, postID string, q CommentQuery) (any, error)
}

// ResultWriter persists the collected results for a run.
type ResultWriter interface {
	Write(subreddit string, results []PostResult) (string, error)
}

// RunRecorder keeps a history of completed runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *RunResult) error
}
