// Package indexer walks a workspace root and applies the minimal set of
// deltas to the store and trigram index: new and modified files are
// re-tokenized, unchanged files are skipped by fingerprint, and files
// gone from disk are removed everywhere.
package indexer

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"scout/internal/store"
	"scout/internal/symbols"
	"scout/internal/trigram"
	"scout/internal/walker"
)

// binarySniffLen is how many leading bytes are checked for NUL to reject
// binary files.
const binarySniffLen = 8000

// Config holds the indexer knobs.
type Config struct {
	// MaxFileSize is the largest indexable file in bytes.
	MaxFileSize int64
	// Workers bounds the read/hash and extraction stages.
	Workers int
}

// DefaultConfig returns the standard limits: 1 MiB cap, workers matched
// to CPUs but never more than 8.
func DefaultConfig() Config {
	w := runtime.NumCPU()
	if w > 8 {
		w = 8
	}
	return Config{MaxFileSize: 1 << 20, Workers: w}
}

// Counts reports what one indexing run did.
type Counts struct {
	Scanned   int `json:"scanned"`
	Indexed   int `json:"indexed"`
	Unchanged int `json:"unchanged"`
	Deleted   int `json:"deleted"`
	Skipped   int `json:"skipped"`
}

// Progress is a point-in-time snapshot passed to the progress callback.
type Progress struct {
	Processed int
	Total     int
	Indexed   int
}

// ProgressFunc receives progress snapshots during a run.
type ProgressFunc func(Progress)

// Indexer drives incremental index runs for one workspace root. At most
// one run is in flight at a time.
type Indexer struct {
	root      string
	store     *store.Store
	trigrams  *trigram.Index
	extractor *symbols.Extractor
	cfg       Config

	mu sync.Mutex
}

// New creates an indexer for root.
func New(root string, st *store.Store, tg *trigram.Index, ex *symbols.Extractor, cfg Config) *Indexer {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultConfig().MaxFileSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	return &Indexer{root: root, store: st, trigrams: tg, extractor: ex, cfg: cfg}
}

// fileWork is a file that needs to be (re-)indexed.
type fileWork struct {
	info     walker.FileInfo
	hash     string
	lang     string
	src      []byte
	existing bool
}

// applyWork carries extracted symbols to the store stage.
type applyWork struct {
	work fileWork
	syms []store.Symbol
}

// Index runs one incremental pass. force bypasses fingerprint comparison
// and reprocesses every file. Per-file failures are logged and skipped;
// only store-level failures abort the run.
func (ix *Indexer) Index(force bool, onProgress ProgressFunc) (Counts, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	known, err := ix.store.ListPaths()
	if err != nil {
		return Counts{}, fmt.Errorf("list indexed paths: %w", err)
	}

	var counts Counts
	var scanned, skipped, unchanged atomic.Int64

	var seenMu sync.Mutex
	seen := make(map[string]struct{})

	// Stage 1: walk.
	fileCh, walkErrCh := walker.Walk(ix.root, ix.cfg.MaxFileSize)

	// Stage 2: read + fingerprint + change check (N workers).
	workCh := make(chan fileWork, ix.cfg.Workers)
	var hashWg sync.WaitGroup
	for range ix.cfg.Workers {
		hashWg.Add(1)
		go func() {
			defer hashWg.Done()
			for fi := range fileCh {
				scanned.Add(1)

				// Record the path before any read or check: a skipped
				// file still exists on disk and must not fall into the
				// deletion diff.
				seenMu.Lock()
				seen[fi.RelPath] = struct{}{}
				seenMu.Unlock()

				if fi.Oversize {
					skipped.Add(1)
					continue
				}
				src, err := os.ReadFile(fi.Path)
				if err != nil {
					slog.Warn("read failed, skipping", "path", fi.RelPath, "err", err)
					skipped.Add(1)
					continue
				}
				if isBinary(src) {
					skipped.Add(1)
					continue
				}

				hash := fmt.Sprintf("%016x", xxhash.Sum64(src))
				existing, err := ix.store.GetFileHash(fi.RelPath)
				if err != nil {
					slog.Warn("hash lookup failed, skipping", "path", fi.RelPath, "err", err)
					skipped.Add(1)
					continue
				}
				if existing == hash && !force {
					unchanged.Add(1)
					continue
				}

				workCh <- fileWork{
					info:     fi,
					hash:     hash,
					lang:     ix.extractor.LanguageName(fi.RelPath),
					src:      src,
					existing: existing != "",
				}
			}
		}()
	}
	go func() {
		hashWg.Wait()
		close(workCh)
	}()

	// Stage 3: symbol extraction (N workers).
	applyCh := make(chan applyWork, ix.cfg.Workers)
	var extractWg sync.WaitGroup
	for range ix.cfg.Workers {
		extractWg.Add(1)
		go func() {
			defer extractWg.Done()
			for w := range workCh {
				syms, err := ix.extractor.Extract(w.info.RelPath, w.src)
				if err != nil {
					slog.Warn("symbol extraction failed", "path", w.info.RelPath, "err", err)
					syms = nil // still index the content
				}
				applyCh <- applyWork{work: w, syms: syms}
			}
		}()
	}
	go func() {
		extractWg.Wait()
		close(applyCh)
	}()

	// Stage 4: store + trigram apply (single writer).
	var storeErr error
	for aw := range applyCh {
		w := aw.work
		id, err := ix.store.ApplyFile(store.FileRecord{
			Path:      w.info.RelPath,
			Filename:  filepath.Base(w.info.RelPath),
			Content:   string(w.src),
			Hash:      w.hash,
			Language:  w.lang,
			SizeBytes: w.info.Size,
		}, aw.syms)
		if err != nil {
			slog.Error("store apply failed", "path", w.info.RelPath, "err", err)
			storeErr = err
			continue
		}

		if w.existing {
			ix.trigrams.Replace(uint32(id), w.src)
		} else {
			ix.trigrams.Add(uint32(id), w.src)
		}

		counts.Indexed++
		if onProgress != nil {
			onProgress(Progress{
				Processed: counts.Indexed + int(unchanged.Load()) + int(skipped.Load()),
				Total:     int(scanned.Load()),
				Indexed:   counts.Indexed,
			})
		}
	}

	if err := <-walkErrCh; err != nil {
		return counts, fmt.Errorf("walk %s: %w", ix.root, err)
	}

	// Deletions: anything indexed before but absent from this walk.
	var deletedIDs []int64
	for path, id := range known {
		if _, ok := seen[path]; !ok {
			deletedIDs = append(deletedIDs, id)
		}
	}
	if len(deletedIDs) > 0 {
		if err := ix.store.DeleteFiles(deletedIDs); err != nil {
			return counts, fmt.Errorf("delete removed files: %w", err)
		}
		for _, id := range deletedIDs {
			ix.trigrams.Remove(uint32(id))
		}
		counts.Deleted = len(deletedIDs)
	}

	counts.Scanned = int(scanned.Load())
	counts.Unchanged = int(unchanged.Load())
	counts.Skipped = int(skipped.Load())

	// Persist postings only when something moved, so a no-op run stays
	// write-free.
	if counts.Indexed > 0 || counts.Deleted > 0 {
		if err := ix.trigrams.SaveTo(ix.store); err != nil {
			return counts, fmt.Errorf("persist trigrams: %w", err)
		}
	}

	if storeErr != nil {
		return counts, fmt.Errorf("some files failed to store: %w", storeErr)
	}
	return counts, nil
}

// isBinary sniffs the leading bytes for NUL and checks UTF-8 validity.
func isBinary(src []byte) bool {
	n := len(src)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	if bytes.IndexByte(src[:n], 0) >= 0 {
		return true
	}
	return !utf8.Valid(src)
}
