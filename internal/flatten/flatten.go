// Package flatten turns a nested comment-tree response into flat comment rows.
package flatten

import (
	"encoding/json"
	"math"

	"github.com/qepting91/reddit-hot-comments/internal/domain"
)

// commentKind is the thing-kind prefix of an actual comment node. Anything
// else in a listing ("more" continuation markers, etc.) is skipped.
const commentKind = "t1"

// Comments extracts the top-level comments of the first batch in raw. raw is
// the decoded JSON of a comments request: an array whose first element is the
// post and whose second is the comment listing.
//
// It returns domain.ErrUnexpectedShape if raw is not an array of at least two
// elements. Continuation markers are dropped, never expanded.
func Comments(raw any) ([]domain.Comment, error) {
	arr, ok := raw.([]any)
	if !ok || len(arr) < 2 {
		return nil, domain.ErrUnexpectedShape
	}

	children, _ := lookup(arr[1], "data", "children").([]any)
	comments := make([]domain.Comment, 0, len(children))
	for _, child := range children {
		if kind, _ := lookup(child, "kind").(string); kind != commentKind {
			continue
		}
		comments = append(comments, commentFrom(lookup(child, "data")))
	}
	return comments, nil
}

func commentFrom(data any) domain.Comment {
	return domain.Comment{
		ID:          stringAt(data, "id"),
		Author:      stringAt(data, "author"),
		Body:        stringAt(data, "body"),
		Score:       intAt(data, "score"),
		CreatedUTC:  floatAt(data, "created_utc"),
		ParentID:    stringAt(data, "parent_id"),
		IsSubmitter: boolAt(data, "is_submitter"),
	}
}

// lookup walks nested objects by key, returning nil on the first missing key
// or non-object value.
func lookup(v any, keys ...string) any {
	for _, k := range keys {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[k]
	}
	return v
}

func stringAt(v any, key string) *string {
	s, ok := lookup(v, key).(string)
	if !ok {
		return nil
	}
	return &s
}

func boolAt(v any, key string) *bool {
	b, ok := lookup(v, key).(bool)
	if !ok {
		return nil
	}
	return &b
}

func floatAt(v any, key string) *float64 {
	switch n := lookup(v, key).(type) {
	case float64:
		return &n
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

func intAt(v any, key string) *int64 {
	if n, ok := lookup(v, key).(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return &i
		}
	}
	f := floatAt(v, key)
	if f == nil || math.IsNaN(*f) || *f < math.MinInt64 || *f >= math.MaxInt64 {
		return nil
	}
	i := int64(*f)
	return &i
}
