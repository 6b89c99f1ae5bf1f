// Package search runs hybrid queries: a pure intent classifier routes
// each query to the ranked full-text backend, the literal/regex scan
// backend, or both, with the trigram index prefiltering scans; the
// merger folds the per-backend scores into one deduplicated ranking.
package search

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"scout/internal/scouterr"
	"scout/internal/store"
	"scout/internal/trigram"
)

// DefaultLimit applies when a caller passes limit <= 0.
const DefaultLimit = 50

// Mode restricts which backends a search may use.
type Mode int

const (
	// ModeCombined uses every backend the intent allows.
	ModeCombined Mode = iota
	// ModeRankedOnly uses only the ranked full-text backend.
	ModeRankedOnly
	// ModeScanOnly uses only the literal/regex scan backend.
	ModeScanOnly
)

// ParseMode maps the wire-level mode string.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "combined":
		return ModeCombined, nil
	case "ranked-only":
		return ModeRankedOnly, nil
	case "scan-only":
		return ModeScanOnly, nil
	}
	return ModeCombined, fmt.Errorf("unknown search mode %q", s)
}

// Config holds the tunable search parameters.
type Config struct {
	Weights      Weights
	DefaultLimit int
	Workers      int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	w := runtime.NumCPU()
	if w > 8 {
		w = 8
	}
	return Config{Weights: DefaultWeights(), DefaultLimit: DefaultLimit, Workers: w}
}

// Service executes queries against one workspace's index.
type Service struct {
	store    *store.Store
	trigrams *trigram.Index
	cfg      Config
}

// New creates a search service.
func New(st *store.Store, tg *trigram.Index, cfg Config) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	return &Service{store: st, trigrams: tg, cfg: cfg}
}

// Search classifies the query, runs the selected backends, and returns
// up to limit merged results ordered by score descending, path ascending.
func (s *Service) Search(ctx context.Context, query string, limit int, mode Mode) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	// Overcollect so merging and dedup do not starve the final page.
	overcollect := limit * 5 / 4
	if overcollect < limit+1 {
		overcollect = limit + 1
	}

	intent := Classify(query)
	w := weightsFor(intent, s.cfg.Weights)

	runFTS := mode != ModeScanOnly && intent != IntentRegex
	runScan := mode != ModeRankedOnly && (mode == ModeScanOnly || intent != IntentShortToken)

	// A regex query in ranked-only mode has no backend left, so rank by
	// full-text search over the query's longest literal fragment instead
	// of returning nothing.
	ftsQuery := query
	if mode == ModeRankedOnly && intent == IntentRegex {
		if lit := extractLiteral(query); lit != "" {
			runFTS = true
			ftsQuery = lit
		}
	}

	// Trigram prefilter for the scan backend.
	var candidates *roaring.Bitmap
	var trigramScore float64
	if runScan {
		literal := query
		if intent == IntentRegex {
			literal = extractLiteral(query)
		}
		if c := s.trigrams.Candidates(literal); s.trigrams.Selective(c) {
			candidates = c
			trigramScore = s.trigrams.Score(c)
		}
	}

	var fts []ftsHit
	var grep []grepHit
	var err error

	if runFTS {
		fts, err = s.ftsSearch(ftsQuery, overcollect)
		if err != nil {
			return nil, fmt.Errorf("full-text backend: %w", err)
		}
		if ctx.Err() != nil {
			return nil, scouterr.Wrap(scouterr.BackendTimeout, ctx.Err(), "query deadline exceeded")
		}
	}
	if runScan {
		grep, err = s.grepSearch(ctx, query, intent != IntentRegex, candidates, overcollect)
		if err != nil {
			return nil, err
		}
	}

	if mode == ModeScanOnly {
		w.FTS = 0
	}
	if mode == ModeRankedOnly {
		w.Scan, w.Trigram = 0, 0
		// weightsFor zeroes the full-text weight for regex intent;
		// restore it or the literal-fragment fallback would score 0.
		if w.FTS == 0 {
			w.FTS = s.cfg.Weights.FTS
		}
	}

	results := merge(fts, grep, candidates, trigramScore, w)
	if len(results) > limit {
		results = results[:limit]
	}
	s.fillSnippets(results, query)
	return results, nil
}

// Intent exposes the classification for observability surfaces.
func (s *Service) Intent(query string) Intent { return Classify(query) }

// fillSnippets backfills a first-matching-line snippet for results that
// came only from the ranked backend.
func (s *Service) fillSnippets(results []Result, query string) {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return
	}
	for i := range results {
		if results[i].Snippet != "" {
			continue
		}
		f, err := s.store.GetFileByPath(results[i].Path)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(f.Content, "\n") {
			lower := strings.ToLower(line)
			for _, word := range words {
				if strings.Contains(lower, word) {
					results[i].Snippet = strings.TrimSpace(line)
					break
				}
			}
			if results[i].Snippet != "" {
				break
			}
		}
	}
}
