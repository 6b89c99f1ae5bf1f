// Package trigram maintains the in-memory substring prefilter: an
// inverted index from every 3-byte sequence to a compressed bitmap of the
// file ids containing it. Intersecting the bitmaps of a query's trigrams
// yields a candidate set that is sound (no true match is missed) but not
// complete, so candidates are always re-verified against file content.
package trigram

import (
	"math"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"scout/internal/store"
)

// minQueryLen is the shortest literal the prefilter can serve. Anything
// shorter falls back to a full scan.
const minQueryLen = 3

// nonSelectiveRatio: when the candidate set covers this fraction of all
// files or more, the prefilter is useless and the scan runs unfiltered.
const nonSelectiveRatio = 0.8

// Index is the trigram posting index. Many concurrent readers, one
// exclusive writer during a batch apply.
type Index struct {
	mu       sync.RWMutex
	postings map[[3]byte]*roaring.Bitmap
	files    *roaring.Bitmap
}

// New returns an empty index.
func New() *Index {
	return &Index{
		postings: make(map[[3]byte]*roaring.Bitmap),
		files:    roaring.New(),
	}
}

// Add records every distinct trigram of content as containing fileID.
func (ix *Index) Add(fileID uint32, content []byte) {
	grams := extract(content)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.files.Add(fileID)
	for g := range grams {
		bm, ok := ix.postings[g]
		if !ok {
			bm = roaring.New()
			ix.postings[g] = bm
		}
		bm.Add(fileID)
	}
}

// Remove drops fileID from every posting. Empty postings are deleted so
// no orphaned keys remain.
func (ix *Index) Remove(fileID uint32) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.files.Remove(fileID)
	for g, bm := range ix.postings {
		bm.Remove(fileID)
		if bm.IsEmpty() {
			delete(ix.postings, g)
		}
	}
}

// Replace rebuilds the postings for fileID from new content.
func (ix *Index) Replace(fileID uint32, content []byte) {
	ix.Remove(fileID)
	ix.Add(fileID, content)
}

// Candidates intersects the postings of every trigram in literal.
// Returns nil when the literal is too short to decompose, meaning the
// caller cannot prefilter. A non-nil empty bitmap means no file can match.
func (ix *Index) Candidates(literal string) *roaring.Bitmap {
	if len(literal) < minQueryLen {
		return nil
	}
	grams := extract([]byte(literal))

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var result *roaring.Bitmap
	for g := range grams {
		bm, ok := ix.postings[g]
		if !ok {
			return roaring.New()
		}
		if result == nil {
			result = bm.Clone()
		} else {
			result.And(bm)
		}
		if result.IsEmpty() {
			return result
		}
	}
	if result == nil {
		return roaring.New()
	}
	return result
}

// Selective reports whether a candidate set is worth using as a
// prefilter. A set covering most of the corpus only adds overhead.
func (ix *Index) Selective(candidates *roaring.Bitmap) bool {
	if candidates == nil {
		return false
	}
	ix.mu.RLock()
	total := ix.files.GetCardinality()
	ix.mu.RUnlock()
	if total == 0 {
		return false
	}
	return float64(candidates.GetCardinality()) < nonSelectiveRatio*float64(total)
}

// Score rates how discriminating a candidate set is, IDF-style: rare
// trigram combinations score near 1, ubiquitous ones bottom out at 0.1.
func (ix *Index) Score(candidates *roaring.Bitmap) float64 {
	if candidates == nil {
		return 0
	}
	ix.mu.RLock()
	total := ix.files.GetCardinality()
	ix.mu.RUnlock()

	matches := candidates.GetCardinality()
	if total <= 1 || matches == 0 {
		return 0.1
	}
	s := math.Log(float64(total)/float64(matches)) / math.Log(float64(total))
	return math.Min(math.Max(s, 0.1), 1.0)
}

// Len returns the number of distinct trigrams indexed.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings)
}

// FileCount returns the number of files with at least one posting.
func (ix *Index) FileCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return int(ix.files.GetCardinality())
}

// SaveTo flushes every posting to the store, replacing what was there.
func (ix *Index) SaveTo(st *store.Store) error {
	ix.mu.RLock()
	rows := make([]store.TrigramRow, 0, len(ix.postings))
	for g, bm := range ix.postings {
		blob, err := bm.ToBytes()
		if err != nil {
			ix.mu.RUnlock()
			return err
		}
		key := make([]byte, 3)
		copy(key, g[:])
		rows = append(rows, store.TrigramRow{Key: key, Postings: blob})
	}
	ix.mu.RUnlock()

	return st.ReplaceTrigrams(rows)
}

// LoadFrom hydrates the index from persisted postings, replacing any
// in-memory state. Used at workspace attach so restart avoids a re-scan.
func (ix *Index) LoadFrom(st *store.Store) error {
	postings := make(map[[3]byte]*roaring.Bitmap)
	files := roaring.New()

	err := st.LoadTrigrams(func(key, blob []byte) error {
		if len(key) != 3 {
			return nil
		}
		bm := roaring.New()
		if err := bm.UnmarshalBinary(blob); err != nil {
			return err
		}
		var g [3]byte
		copy(g[:], key)
		postings[g] = bm
		files.Or(bm)
		return nil
	})
	if err != nil {
		return err
	}

	ix.mu.Lock()
	ix.postings = postings
	ix.files = files
	ix.mu.Unlock()
	return nil
}

// extract returns the distinct trigrams of content.
func extract(content []byte) map[[3]byte]struct{} {
	if len(content) < minQueryLen {
		return nil
	}
	grams := make(map[[3]byte]struct{})
	for i := 0; i+minQueryLen <= len(content); i++ {
		var g [3]byte
		copy(g[:], content[i:i+minQueryLen])
		grams[g] = struct{}{}
	}
	return grams
}
