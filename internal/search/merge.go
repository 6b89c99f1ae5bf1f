package search

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Weights are the per-backend contributions to a merged score.
type Weights struct {
	FTS     float64 `json:"fts"`
	Scan    float64 `json:"scan"`
	Trigram float64 `json:"trigram"`
}

// DefaultWeights balances the addressable backends, with the trigram
// prefilter folded in at a smaller share.
func DefaultWeights() Weights {
	return Weights{FTS: 0.4, Scan: 0.4, Trigram: 0.2}
}

// weightsFor adjusts the defaults per intent: regex queries cannot use
// ranked full-text, natural language barely benefits from scanning.
func weightsFor(intent Intent, w Weights) Weights {
	switch intent {
	case IntentRegex:
		return Weights{FTS: 0, Scan: 0.7, Trigram: 0.3}
	case IntentNaturalLanguage:
		return Weights{FTS: 0.6, Scan: 0.2, Trigram: 0.2}
	default:
		return w
	}
}

// agreementBonus rewards a file confirmed by more than one backend. With
// k contributing sources the base score is multiplied by
// 1 + bonus*(2^(k-1) - 1). The base is floored at the best individual
// backend score, so the merged score is strictly above it for k >= 2.
const agreementBonus = 0.1

// Result is one merged search hit. Sources is a compact attribution
// string: f = full-text, g = scan, t = trigram.
type Result struct {
	FileID  int64   `json:"-"`
	Path    string  `json:"path"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet,omitempty"`
	Sources string  `json:"sources"`
}

type accum struct {
	path    string
	sum     float64
	best    float64 // best unweighted single-backend score
	snippet string
	sources []byte
}

// merge folds per-backend hits into one deduplicated ranked list.
// trigramIDs marks files that passed a selective trigram prefilter;
// they earn the trigram contribution at trigramScore.
func merge(fts []ftsHit, grep []grepHit, trigramIDs *roaring.Bitmap, trigramScore float64, w Weights) []Result {
	byID := make(map[int64]*accum)
	get := func(id int64, path string) *accum {
		a, ok := byID[id]
		if !ok {
			a = &accum{path: path}
			byID[id] = a
		}
		return a
	}

	for _, h := range fts {
		a := get(h.FileID, h.Path)
		a.sum += w.FTS * h.Score
		a.best = math.Max(a.best, h.Score)
		a.sources = append(a.sources, 'f')
	}
	for _, h := range grep {
		a := get(h.FileID, h.Path)
		a.sum += w.Scan * h.Score
		a.best = math.Max(a.best, h.Score)
		a.sources = append(a.sources, 'g')
		if a.snippet == "" {
			a.snippet = h.Snippet
		}
	}
	if trigramIDs != nil && w.Trigram > 0 {
		for id, a := range byID {
			if id >= 0 && id <= math.MaxUint32 && trigramIDs.Contains(uint32(id)) {
				a.sum += w.Trigram * trigramScore
				a.best = math.Max(a.best, trigramScore)
				a.sources = append(a.sources, 't')
			}
		}
	}

	results := make([]Result, 0, len(byID))
	for id, a := range byID {
		score := a.sum
		if n := len(a.sources); n >= 2 {
			score = math.Max(score, a.best) * (1 + agreementBonus*(math.Pow(2, float64(n-1))-1))
		}
		results = append(results, Result{
			FileID:  id,
			Path:    a.path,
			Score:   score,
			Snippet: a.snippet,
			Sources: string(a.sources),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})
	return results
}
