package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// CommentSort is the ordering requested for a comment tree.
type CommentSort string

const (
	SortConfidence    CommentSort = "confidence"
	SortTop           CommentSort = "top"
	SortNew           CommentSort = "new"
	SortControversial CommentSort = "controversial"
	SortOld           CommentSort = "old"
	SortRandom        CommentSort = "random"
	SortQA            CommentSort = "qa"
	SortLive          CommentSort = "live"
)

// Upstream caps, echoed back to callers in run summaries.
const (
	MaxPostsPerHotRequest     = 100
	MaxCommentsPerPostRequest = 500
)

var subredditName = regexp.MustCompile(`^[A-Za-z0-9_]{2,21}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("subreddit", func(fl validator.FieldLevel) bool {
		return subredditName.MatchString(fl.Field().String())
	})
	return v
}

// RunParams are the caller-supplied knobs for one run.
type RunParams struct {
	Subreddit     string      `json:"subreddit" validate:"required,subreddit"`
	PostsLimit    int         `json:"posts_limit" validate:"min=1,max=100"`
	CommentsLimit int         `json:"comments_limit" validate:"min=1,max=500"`
	Depth         int         `json:"depth" validate:"min=1,max=10"`
	Sort          CommentSort `json:"sort" validate:"oneof=confidence top new controversial old random qa live"`
	PoliteDelayMS int         `json:"polite_delay_ms" validate:"min=0,max=2000"`
}

// DefaultRunParams returns the defaults for a subreddit.
func DefaultRunParams(subreddit string) RunParams {
	return RunParams{
		Subreddit:     subreddit,
		PostsLimit:    5,
		CommentsLimit: 200,
		Depth:         2,
		Sort:          SortConfidence,
		PoliteDelayMS: 250,
	}
}

// PoliteDelay is the pause taken after every comment fetch.
func (p RunParams) PoliteDelay() time.Duration {
	return time.Duration(p.PoliteDelayMS) * time.Millisecond
}

// CommentQuery derives the per-post request options.
func (p RunParams) CommentQuery() CommentQuery {
	return CommentQuery{Limit: p.CommentsLimit, Depth: p.Depth, Sort: p.Sort}
}

// Validate checks every field against its allowed range.
func (p RunParams) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range fieldErrs {
		ve.Fields = append(ve.Fields, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return ve
}

// ValidationError lists the parameters that are out of range.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid run parameters: " + strings.Join(e.Fields, "; ")
}
