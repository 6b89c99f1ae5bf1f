package search

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"scout/internal/scouterr"
	"scout/internal/security"
	"scout/internal/store"
)

// snippetLines is how many matching lines one file contributes.
const snippetLines = 3

// grepHit is one scan backend result with a normalized 0-1 score.
type grepHit struct {
	FileID  int64
	Path    string
	Score   float64
	Snippet string
	Count   int
}

// grepSearch scans file contents for pattern. literal patterns are
// quoted before compilation; regex patterns pass the complexity guard
// first. A non-nil candidates bitmap restricts the scan to those ids;
// every candidate is still verified against its actual content.
func (s *Service) grepSearch(ctx context.Context, pattern string, literal bool, candidates *roaring.Bitmap, limit int) ([]grepHit, error) {
	if !literal {
		if err := security.CheckPattern(pattern); err != nil {
			return nil, err
		}
	} else {
		pattern = regexp.QuoteMeta(pattern)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, scouterr.Wrap(scouterr.PatternRejected, err, "invalid pattern")
	}

	var files []store.FileRecord
	if candidates != nil {
		ids := make([]int64, 0, candidates.GetCardinality())
		it := candidates.Iterator()
		for it.HasNext() {
			ids = append(ids, int64(it.Next()))
		}
		files, err = s.store.FilesByIDs(ids)
	} else {
		files, err = s.store.AllFiles()
	}
	if err != nil {
		return nil, err
	}

	hits := s.scanFiles(ctx, re, files)
	if err := ctx.Err(); err != nil {
		return nil, scouterr.Wrap(scouterr.BackendTimeout, err, "scan backend deadline exceeded")
	}

	normalizeGrep(hits)
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Path < hits[j].Path
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// scanFiles fans the files out over the worker pool and collects
// per-file match counts and snippets.
func (s *Service) scanFiles(ctx context.Context, re *regexp.Regexp, files []store.FileRecord) []grepHit {
	workers := s.cfg.Workers
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	fileCh := make(chan store.FileRecord, workers)
	var mu sync.Mutex
	var hits []grepHit

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range fileCh {
				if ctx.Err() != nil {
					continue // drain without scanning
				}
				if h, ok := scanOne(re, f); ok {
					mu.Lock()
					hits = append(hits, h)
					mu.Unlock()
				}
			}
		}()
	}
	for _, f := range files {
		fileCh <- f
	}
	close(fileCh)
	wg.Wait()

	return hits
}

// scanOne counts matching lines in one file and keeps the first few as
// the snippet.
func scanOne(re *regexp.Regexp, f store.FileRecord) (grepHit, bool) {
	lines := strings.Split(f.Content, "\n")
	count := 0
	var snippet []string
	for _, line := range lines {
		if !re.MatchString(line) {
			continue
		}
		count++
		if len(snippet) < snippetLines {
			snippet = append(snippet, strings.TrimSpace(line))
		}
	}
	if count == 0 {
		return grepHit{}, false
	}
	density := float64(count) / float64(len(lines))
	return grepHit{
		FileID:  f.ID,
		Path:    f.Path,
		Score:   density, // raw density; normalized with count later
		Snippet: strings.Join(snippet, "\n"),
		Count:   count,
	}, true
}

// normalizeGrep rescales raw counts and densities across the result set:
// 60% weight on log-damped match count, 40% on match density.
func normalizeGrep(hits []grepHit) {
	var maxCount, maxDensity float64
	for _, h := range hits {
		if c := float64(h.Count); c > maxCount {
			maxCount = c
		}
		if h.Score > maxDensity {
			maxDensity = h.Score
		}
	}
	for i := range hits {
		var normCount, normDensity float64
		if maxCount > 0 {
			normCount = math.Log1p(float64(hits[i].Count)) / math.Log1p(maxCount)
		}
		if maxDensity > 0 {
			normDensity = hits[i].Score / maxDensity
		}
		hits[i].Score = 0.6*normCount + 0.4*normDensity
	}
}

// extractLiteral pulls the longest literal run out of a regex pattern so
// the trigram index can prefilter the scan. Returns "" when the pattern
// has no usable literal.
func extractLiteral(pattern string) string {
	var best, cur strings.Builder
	flush := func() {
		if cur.Len() > best.Len() {
			best.Reset()
			best.WriteString(cur.String())
		}
		cur.Reset()
	}
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\':
			i++ // escaped metachar or class; drop both bytes
			flush()
		case strings.IndexByte(`.+*?()[]{}|^$`, c) >= 0:
			// A trailing ? or * makes the previous literal byte optional.
			if (c == '?' || c == '*') && cur.Len() > 0 {
				trimmed := cur.String()
				cur.Reset()
				cur.WriteString(trimmed[:len(trimmed)-1])
			}
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return best.String()
}
