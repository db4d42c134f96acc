package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qepting91/reddit-hot-comments/internal/domain"
)

// PublicClient reads the anonymous .json endpoints. It identifies itself only
// through the User-Agent header.
type PublicClient struct {
	httpClient      *http.Client
	baseURL         string
	userAgent       string
	listingTimeout  time.Duration
	commentsTimeout time.Duration
}

type listingResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				ID        string `json:"id"`
				Title     string `json:"title"`
				Permalink string `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func NewPublicClient(baseURL, userAgent string, listingTimeout, commentsTimeout time.Duration) (*PublicClient, error) {
	if userAgent == "" {
		return nil, fmt.Errorf("user agent is required for public mode")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	return &PublicClient{
		httpClient:      &http.Client{},
		baseURL:         strings.TrimRight(baseURL, "/"),
		userAgent:       userAgent,
		listingTimeout:  listingTimeout,
		commentsTimeout: commentsTimeout,
	}, nil
}

func (pc *PublicClient) FetchHotPosts(ctx context.Context, sub string, limit int) ([]domain.ListingEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, pc.listingTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", pc.baseURL, url.PathEscape(sub), limit)
	body, err := pc.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var listing listingResponse
	if err := json.NewDecoder(body).Decode(&listing); err != nil {
		return nil, domain.NewUpstreamError(0, fmt.Errorf("decoding listing: %w", err))
	}

	var entries []domain.ListingEntry
	for _, child := range listing.Data.Children {
		if len(entries) == limit {
			break
		}
		entries = append(entries, domain.ListingEntry{
			ID:        child.Data.ID,
			Title:     child.Data.Title,
			Permalink: pc.baseURL + child.Data.Permalink,
		})
	}
	if len(entries) == 0 {
		return nil, domain.ErrEmptyResult
	}
	return entries, nil
}

func (pc *PublicClient) FetchComments(ctx context.Context, sub, postID string, q domain.CommentQuery) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, pc.commentsTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/r/%s/comments/%s.json?%s",
		pc.baseURL, url.PathEscape(sub), url.PathEscape(postID), commentValues(q).Encode())
	body, err := pc.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding comments: %w", err)
	}
	return raw, nil
}

// get issues a GET and returns the body of a 2xx response. Failures are
// *domain.UpstreamError.
func (pc *PublicClient) get(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.NewUpstreamError(0, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", pc.userAgent)

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewUpstreamError(0, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, domain.NewUpstreamError(resp.StatusCode, fmt.Errorf("GET %s: %s", endpoint, resp.Status))
	}
	return resp.Body, nil
}

func commentValues(q domain.CommentQuery) url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("depth", strconv.Itoa(q.Depth))
	v.Set("sort", string(q.Sort))
	return v
}
