package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/qepting91/reddit-hot-comments/internal/domain"
	"github.com/qepting91/reddit-hot-comments/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCollector serves canned listings and per-post comment responses.
type fakeCollector struct {
	listing    []domain.ListingEntry
	listingErr error
	comments   map[string]any
	commentErr map[string]error

	commentCalls []string
}

func (f *fakeCollector) FetchHotPosts(_ context.Context, _ string, _ int) ([]domain.ListingEntry, error) {
	if f.listingErr != nil {
		return nil, f.listingErr
	}
	return f.listing, nil
}

func (f *fakeCollector) FetchComments(_ context.Context, _, postID string, _ domain.CommentQuery) (any, error) {
	f.commentCalls = append(f.commentCalls, postID)
	if err := f.commentErr[postID]; err != nil {
		return nil, err
	}
	return f.comments[postID], nil
}

type fakeRecorder struct {
	runs []*domain.RunResult
	err  error
}

func (f *fakeRecorder) RecordRun(_ context.Context, run *domain.RunResult) error {
	f.runs = append(f.runs, run)
	return f.err
}

type failingWriter struct{}

func (failingWriter) Write(string, []domain.PostResult) (string, error) {
	return "", &domain.WriteError{Path: "x.csv", Err: errors.New("disk full")}
}

func commentTree(ids ...string) any {
	children := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		children = append(children, map[string]any{
			"kind": "t1",
			"data": map[string]any{"id": id, "author": "u_" + id, "body": "text " + id, "score": float64(1)},
		})
	}
	children = append(children, map[string]any{"kind": "more", "data": map[string]any{"count": float64(40)}})
	return []any{
		map[string]any{"kind": "Listing"},
		map[string]any{"kind": "Listing", "data": map[string]any{"children": children}},
	}
}

func entries(ids ...string) []domain.ListingEntry {
	var out []domain.ListingEntry
	for _, id := range ids {
		out = append(out, domain.ListingEntry{ID: id, Title: "Title " + id, Permalink: "https://www.reddit.com/r/golang/comments/" + id + "/"})
	}
	return out
}

type harness struct {
	runner *Runner
	dir    string
	sleeps []time.Duration
}

func newHarness(t *testing.T, c domain.Collector) *harness {
	t.Helper()
	h := &harness{dir: t.TempDir()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.runner = NewRunner(c, storage.NewCSVWriter(h.dir, "reddit"), logger)
	h.runner.Sleep = func(d time.Duration) { h.sleeps = append(h.sleeps, d) }
	return h
}

func params(postsLimit int) domain.RunParams {
	p := domain.DefaultRunParams("golang")
	p.PostsLimit = postsLimit
	return p
}

func csvRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	return records[1:]
}

func outputFiles(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	return files
}

func TestRun_AllPostsSucceed(t *testing.T) {
	c := &fakeCollector{
		listing: entries("a", "b"),
		comments: map[string]any{
			"a": commentTree("a1", "a2"),
			"b": commentTree("b1"),
		},
	}
	h := newHarness(t, c)

	run, err := h.runner.Run(context.Background(), params(5))
	require.NoError(t, err)

	assert.Equal(t, "golang", run.Subreddit)
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, 2, run.PostsProcessed)
	assert.Equal(t, 3, run.CommentsTotal)
	assert.Equal(t, []string{"a", "b"}, c.commentCalls)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, h.sleeps)

	rows := csvRows(t, run.OutputPath)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"a", "a", "b"}, []string{rows[0][1], rows[1][1], rows[2][1]})
	assert.Equal(t, []string{"a1", "a2", "b1"}, []string{rows[0][5], rows[1][5], rows[2][5]})
	assert.Equal(t, []string{"1", "1", "2"}, []string{rows[0][3], rows[1][3], rows[2][3]})

	for i, res := range run.Results {
		assert.Equal(t, i+1, res.Post.IndexInListing)
		assert.Equal(t, domain.StatusOK, res.Status)
		assert.Equal(t, noteFirstBatch, res.Note)
	}
}

func TestRun_ListingFailureIsFatal(t *testing.T) {
	c := &fakeCollector{listingErr: domain.NewUpstreamError(503, errors.New("service unavailable"))}
	h := newHarness(t, c)

	run, err := h.runner.Run(context.Background(), params(5))
	require.Error(t, err)
	assert.Nil(t, run)

	var upErr *domain.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, 503, upErr.StatusCode)
	assert.Empty(t, c.commentCalls)
	assert.Empty(t, h.sleeps)
	assert.Empty(t, outputFiles(t, h.dir))
}

func TestRun_EmptyListing(t *testing.T) {
	for _, c := range []*fakeCollector{
		{listingErr: domain.ErrEmptyResult},
		{listing: nil},
	} {
		h := newHarness(t, c)
		_, err := h.runner.Run(context.Background(), params(5))
		assert.ErrorIs(t, err, domain.ErrEmptyResult)
		assert.Empty(t, outputFiles(t, h.dir))
	}
}

func TestRun_OneCommentFetchFailureDoesNotAbort(t *testing.T) {
	c := &fakeCollector{
		listing: entries("p1", "p2", "p3"),
		comments: map[string]any{
			"p1": commentTree("x1", "x2"),
			"p3": commentTree("z1"),
		},
		commentErr: map[string]error{"p2": domain.NewUpstreamError(0, errors.New("connection reset"))},
	}
	h := newHarness(t, c)

	run, err := h.runner.Run(context.Background(), params(5))
	require.NoError(t, err)
	assert.Equal(t, 3, run.PostsProcessed)
	assert.Equal(t, 3, run.CommentsTotal)
	assert.Equal(t, []string{"p1", "p2", "p3"}, c.commentCalls)
	assert.Len(t, h.sleeps, 3, "delay must elapse after a failed fetch too")

	failed := run.Results[1]
	assert.Equal(t, domain.StatusFetchError, failed.Status)
	assert.Empty(t, failed.Comments)
	assert.Contains(t, failed.Error, "connection reset")

	rows := csvRows(t, run.OutputPath)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.NotEqual(t, "p2", row[1])
	}
	assert.Equal(t, "p3", rows[2][1])
	assert.Equal(t, "3", rows[2][3])
}

func TestRun_UnexpectedShapeIsRecordedAndSkipped(t *testing.T) {
	c := &fakeCollector{
		listing: entries("p1", "p2"),
		comments: map[string]any{
			"p1": []any{map[string]any{"kind": "Listing"}},
			"p2": commentTree("y1"),
		},
	}
	h := newHarness(t, c)

	run, err := h.runner.Run(context.Background(), params(5))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnexpectedShape, run.Results[0].Status)
	assert.Empty(t, run.Results[0].Comments)
	assert.Equal(t, noteUnexpectedShape, run.Results[0].Note)
	assert.Equal(t, domain.StatusOK, run.Results[1].Status)

	rows := csvRows(t, run.OutputPath)
	require.Len(t, rows, 1)
	assert.Equal(t, "p2", rows[0][1])
}

func TestRun_SinglePostWithoutComments(t *testing.T) {
	c := &fakeCollector{
		listing:  entries("only"),
		comments: map[string]any{"only": commentTree()},
	}
	h := newHarness(t, c)

	run, err := h.runner.Run(context.Background(), params(5))
	require.NoError(t, err)
	assert.Equal(t, 1, run.PostsProcessed)
	assert.Equal(t, 0, run.CommentsTotal)
	assert.Empty(t, csvRows(t, run.OutputPath))
}

func TestRun_ZeroDelayDoesNotSleep(t *testing.T) {
	c := &fakeCollector{
		listing:  entries("a", "b", "c"),
		comments: map[string]any{"a": commentTree("a1"), "b": commentTree("b1"), "c": commentTree("c1")},
	}
	h := newHarness(t, c)
	p := params(5)
	p.PoliteDelayMS = 0

	run, err := h.runner.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, h.sleeps)

	rows := csvRows(t, run.OutputPath)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{rows[0][1], rows[1][1], rows[2][1]})
}

func TestRun_ListingCappedAtPostsLimit(t *testing.T) {
	c := &fakeCollector{listing: entries("a", "b", "c", "d"), comments: map[string]any{}}
	for _, id := range []string{"a", "b", "c", "d"} {
		c.comments[id] = commentTree(id + "1")
	}
	h := newHarness(t, c)

	run, err := h.runner.Run(context.Background(), params(2))
	require.NoError(t, err)
	assert.Equal(t, 2, run.PostsProcessed)
	assert.Equal(t, []string{"a", "b"}, c.commentCalls)
}

func TestRun_IndexesAreContiguous(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	c := &fakeCollector{
		listing:    entries(ids...),
		comments:   map[string]any{"a": commentTree("1"), "c": []any{}, "e": commentTree("2", "3")},
		commentErr: map[string]error{"b": errors.New("timeout"), "d": fmt.Errorf("decoding comments: %w", io.ErrUnexpectedEOF)},
	}
	h := newHarness(t, c)

	run, err := h.runner.Run(context.Background(), params(5))
	require.NoError(t, err)

	total := 0
	for i, res := range run.Results {
		assert.Equal(t, i+1, res.Post.IndexInListing)
		if res.Status != domain.StatusOK {
			assert.Empty(t, res.Comments)
		}
		total += len(res.Comments)
	}
	assert.Equal(t, run.CommentsTotal, total)
	assert.Len(t, csvRows(t, run.OutputPath), total)
}

func TestRun_InvalidParamsIssueNoRequests(t *testing.T) {
	c := &fakeCollector{listing: entries("a")}
	h := newHarness(t, c)
	p := params(5)
	p.Depth = 42

	_, err := h.runner.Run(context.Background(), p)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, c.commentCalls)
}

func TestRun_WriteErrorIsFatal(t *testing.T) {
	c := &fakeCollector{listing: entries("a"), comments: map[string]any{"a": commentTree("a1")}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRunner(c, failingWriter{}, logger)
	r.Sleep = func(time.Duration) {}

	_, err := r.Run(context.Background(), params(5))
	var wErr *domain.WriteError
	assert.ErrorAs(t, err, &wErr)
}

func TestRun_RecordsHistory(t *testing.T) {
	c := &fakeCollector{listing: entries("a"), comments: map[string]any{"a": commentTree("a1")}}
	rec := &fakeRecorder{err: errors.New("db locked")}
	h := newHarness(t, c)
	h.runner.WithRecorder(rec)

	run, err := h.runner.Run(context.Background(), params(5))
	require.NoError(t, err, "history failures must not fail the run")
	require.Len(t, rec.runs, 1)
	assert.Equal(t, run.RunID, rec.runs[0].RunID)
	assert.Len(t, rec.runs[0].Results, 1)
}
