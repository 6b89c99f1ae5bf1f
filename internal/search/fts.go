package search

import (
	"math"
	"strings"
)

// ftsHit is one ranked full-text result with a normalized 0-1 score.
type ftsHit struct {
	FileID int64
	Path   string
	Score  float64
}

// ftsSearch runs the ranked full-text backend. Raw BM25 scores are
// negative with more negative meaning better; they are normalized to 0-1
// by the best score in the result set.
func (s *Service) ftsSearch(query string, limit int) ([]ftsHit, error) {
	match := PreprocessFTS(query)
	if match == "" {
		return nil, nil
	}
	rows, err := s.store.FTSSearch(match, limit)
	if err != nil {
		return nil, err
	}

	var maxAbs float64
	for _, r := range rows {
		if a := math.Abs(r.Score); a > maxAbs {
			maxAbs = a
		}
	}

	hits := make([]ftsHit, 0, len(rows))
	for _, r := range rows {
		score := 0.0
		if maxAbs > 0 {
			score = math.Abs(r.Score) / maxAbs
		}
		hits = append(hits, ftsHit{FileID: r.FileID, Path: r.Path, Score: score})
	}
	return hits, nil
}

// PreprocessFTS turns a raw query into an FTS5 match expression: special
// characters stripped, colons split, and every word given a prefix
// wildcard so partial identifiers still match.
func PreprocessFTS(query string) string {
	cleaned := strings.NewReplacer(
		`"`, "", "'", "", "(", "", ")", "", "*", "", ":", " ",
	).Replace(query)

	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return ""
	}
	for i, w := range words {
		words[i] = w + "*"
	}
	return strings.Join(words, " ")
}
