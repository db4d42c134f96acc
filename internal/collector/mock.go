package collector

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/qepting91/reddit-hot-comments/internal/domain"
)

// MockClient implements domain.Collector but returns fake data
type MockClient struct {
	Latency time.Duration
}

func NewMockClient() *MockClient {
	return &MockClient{Latency: 50 * time.Millisecond}
}

func (mc *MockClient) FetchHotPosts(ctx context.Context, sub string, limit int) ([]domain.ListingEntry, error) {
	time.Sleep(mc.Latency)

	var entries []domain.ListingEntry
	for i := 0; i < limit; i++ {
		id := fmt.Sprintf("mock%d", i)
		entries = append(entries, domain.ListingEntry{
			ID:        id,
			Title:     fmt.Sprintf("[%s] Simulated hot post #%d", sub, i+1),
			Permalink: fmt.Sprintf("http://localhost/r/%s/comments/%s/", sub, id),
		})
	}
	return entries, nil
}

// FetchComments builds a response in the upstream wire shape, including a
// trailing continuation marker.
func (mc *MockClient) FetchComments(ctx context.Context, sub, postID string, q domain.CommentQuery) (any, error) {
	time.Sleep(mc.Latency)

	n := rand.Intn(q.Limit + 1)
	children := make([]any, 0, n+1)
	for i := 0; i < n; i++ {
		children = append(children, map[string]any{
			"kind": "t1",
			"data": map[string]any{
				"id":           fmt.Sprintf("%s_c%d", postID, i),
				"author":       "simulated_user",
				"body":         fmt.Sprintf("Simulated comment %d on %s", i, postID),
				"score":        float64(rand.Intn(500)),
				"created_utc":  float64(time.Now().Unix()),
				"parent_id":    "t3_" + postID,
				"is_submitter": i == 0,
			},
		})
	}
	children = append(children, map[string]any{"kind": "more", "data": map[string]any{"count": 1}})

	return []any{
		map[string]any{"kind": "Listing", "data": map[string]any{"children": []any{}}},
		map[string]any{"kind": "Listing", "data": map[string]any{"children": children}},
	}, nil
}
