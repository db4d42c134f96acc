package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/qepting91/reddit-hot-comments/internal/domain"
)

const timestampLayout = "2006-01-02_15-04-05"

// Columns is the header row of every comments file.
var Columns = []string{
	"subreddit",
	"post_id", "post_title", "post_index_in_hot", "post_permalink",
	"comment_id", "author", "body", "score", "created_utc", "parent_id", "is_submitter",
}

// CSVWriter writes one comments file per run under Dir.
type CSVWriter struct {
	Dir    string
	Prefix string
	Now    func() time.Time
}

func NewCSVWriter(dir, prefix string) *CSVWriter {
	return &CSVWriter{Dir: dir, Prefix: prefix, Now: time.Now}
}

// Write flattens every post's comments into rows and returns the file path.
// Posts without comments contribute no rows. An existing file with the same
// second-granularity name is never overwritten; a numeric suffix is added.
func (w *CSVWriter) Write(subreddit string, results []domain.PostResult) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", &domain.WriteError{Path: w.Dir, Err: err}
	}

	f, err := w.create(subreddit)
	if err != nil {
		return "", err
	}
	path := f.Name()

	if err := writeRows(f, subreddit, results); err != nil {
		f.Close()
		os.Remove(path)
		return "", &domain.WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &domain.WriteError{Path: path, Err: err}
	}
	return path, nil
}

func (w *CSVWriter) create(subreddit string) (*os.File, error) {
	base := fmt.Sprintf("%s_%s_comments_%s", w.Prefix, subreddit, w.Now().Format(timestampLayout))
	for n := 1; ; n++ {
		name := base + ".csv"
		if n > 1 {
			name = fmt.Sprintf("%s_%d.csv", base, n)
		}
		path := filepath.Join(w.Dir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, &domain.WriteError{Path: path, Err: err}
		}
		return f, nil
	}
}

func writeRows(f *os.File, subreddit string, results []domain.PostResult) error {
	cw := csv.NewWriter(f)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range results {
		for _, c := range r.Comments {
			row := []string{
				subreddit,
				r.Post.ID,
				r.Post.Title,
				strconv.Itoa(r.Post.IndexInListing),
				r.Post.Permalink,
				str(c.ID),
				str(c.Author),
				str(c.Body),
				num(c.Score),
				float(c.CreatedUTC),
				str(c.ParentID),
				boolean(c.IsSubmitter),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Absent values are written as empty cells.

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func num(i *int64) string {
	if i == nil {
		return ""
	}
	return strconv.FormatInt(*i, 10)
}

func float(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func boolean(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
