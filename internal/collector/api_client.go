package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"github.com/qepting91/reddit-hot-comments/internal/domain"
)

// APIClient talks to the authenticated OAuth API. Listing goes through the
// typed Subreddit service; comment trees are fetched raw so they flatten the
// same way as public responses.
type APIClient struct {
	client          *reddit.Client
	permalinkBase   string
	listingTimeout  time.Duration
	commentsTimeout time.Duration
}

type Credentials struct {
	ID       string
	Secret   string
	Username string
	Password string
}

// NewAPIClient builds an authenticated client. Each call is bounded by its own
// timeout. Extra opts are applied after the user agent.
func NewAPIClient(creds Credentials, userAgent, permalinkBase string, listingTimeout, commentsTimeout time.Duration, opts ...reddit.Opt) (*APIClient, error) {
	if creds.ID == "" || creds.Secret == "" {
		return nil, fmt.Errorf("api mode requires REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET")
	}
	if listingTimeout <= 0 || commentsTimeout <= 0 {
		return nil, fmt.Errorf("api mode requires positive listing and comments timeouts")
	}
	client, err := reddit.NewClient(reddit.Credentials{
		ID:       creds.ID,
		Secret:   creds.Secret,
		Username: creds.Username,
		Password: creds.Password,
	}, append([]reddit.Opt{reddit.WithUserAgent(userAgent)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &APIClient{
		client:          client,
		permalinkBase:   strings.TrimRight(permalinkBase, "/"),
		listingTimeout:  listingTimeout,
		commentsTimeout: commentsTimeout,
	}, nil
}

func (ac *APIClient) FetchHotPosts(ctx context.Context, sub string, limit int) ([]domain.ListingEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, ac.listingTimeout)
	defer cancel()

	posts, _, err := ac.client.Subreddit.HotPosts(ctx, sub, &reddit.ListOptions{Limit: limit})
	if err != nil {
		return nil, upstreamError(err)
	}

	var entries []domain.ListingEntry
	for _, p := range posts {
		if len(entries) == limit {
			break
		}
		entries = append(entries, domain.ListingEntry{
			ID:        p.ID,
			Title:     p.Title,
			Permalink: ac.permalinkBase + p.Permalink,
		})
	}
	if len(entries) == 0 {
		return nil, domain.ErrEmptyResult
	}
	return entries, nil
}

func (ac *APIClient) FetchComments(ctx context.Context, sub, postID string, q domain.CommentQuery) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, ac.commentsTimeout)
	defer cancel()

	path := fmt.Sprintf("r/%s/comments/%s?%s", url.PathEscape(sub), url.PathEscape(postID), commentValues(q).Encode())
	req, err := ac.client.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var raw any
	if _, err := ac.client.Do(ctx, req, &raw); err != nil {
		return nil, upstreamError(err)
	}
	return raw, nil
}

// upstreamError keeps the HTTP status from any go-reddit error that carries
// a response.
func upstreamError(err error) error {
	var (
		errResp  *reddit.ErrorResponse
		rateErr  *reddit.RateLimitError
		jsonResp *reddit.JSONErrorResponse
		resp     *http.Response
	)
	switch {
	case errors.As(err, &rateErr):
		resp = rateErr.Response
	case errors.As(err, &jsonResp):
		resp = jsonResp.Response
	case errors.As(err, &errResp):
		resp = errResp.Response
	}
	if resp != nil {
		return domain.NewUpstreamError(resp.StatusCode, err)
	}
	return domain.NewUpstreamError(0, err)
}
