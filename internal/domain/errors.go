package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResult means the listing held no posts.
	ErrEmptyResult = errors.New("no posts found in this subreddit")
	// ErrStatusUnknown marks an upstream failure with no HTTP status, e.g. a
	// dial error or timeout.
	ErrStatusUnknown = errors.New("upstream status unknown")
	// ErrUnexpectedShape means a comment response was not a two-element array.
	ErrUnexpectedShape = errors.New("unexpected response from comments API")
)

// UpstreamError is a failed call to the content API.
type UpstreamError struct {
	StatusCode int // zero when unknown
	Err        error
}

// NewUpstreamError wraps err, tagging it with ErrStatusUnknown when status is zero.
func NewUpstreamError(status int, err error) *UpstreamError {
	if status == 0 {
		err = fmt.Errorf("%w: %w", ErrStatusUnknown, err)
	}
	return &UpstreamError{StatusCode: status, Err: err}
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream returned %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StatusKnown reports whether the upstream status code was observed.
func (e *UpstreamError) StatusKnown() bool { return e.StatusCode != 0 }

// WriteError means the output artifact could not be created or written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
