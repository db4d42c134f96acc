package ingest

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"regexp"
	"strings"
)

// Regex for valid subreddit names
var subNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{2,21}$`)

// LoadTargets reads subreddit names from the first column of a CSV file with
// a header row. Invalid names and blank lines are skipped.
func LoadTargets(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTargets(f)
}

func ReadTargets(src io.Reader) ([]string, error) {
	r := csv.NewReader(stripBOM(src))
	r.FieldsPerRecord = -1

	var targets []string
	seen := make(map[string]bool)
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return targets, err
		}
		line++
		if line == 1 {
			continue // Skip header
		}

		// Validation (Fail-Soft)
		sub := strings.TrimPrefix(strings.TrimSpace(record[0]), "r/")
		if !subNameRegex.MatchString(sub) || seen[strings.ToLower(sub)] {
			continue
		}
		seen[strings.ToLower(sub)] = true
		targets = append(targets, sub)
	}
	return targets, nil
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		br.UnreadRune()
	}
	return br
}
