// Package workspace ties one root directory to its live index state:
// the store pool, the in-memory trigram index, the indexer, and the
// search service. The registry maps absolute roots to workspaces so
// nothing lives in ambient globals.
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"scout/internal/indexer"
	"scout/internal/scouterr"
	"scout/internal/search"
	"scout/internal/store"
	"scout/internal/symbols"
	"scout/internal/symbols/languages"
	"scout/internal/trigram"
)

// Config carries the per-workspace tunables.
type Config struct {
	// DBPath overrides the default cache-dir store location.
	DBPath  string
	Indexer indexer.Config
	Search  search.Config
}

// Workspace is the unit of indexing scope: one root and its index state.
type Workspace struct {
	Root     string
	Store    *store.Store
	Trigrams *trigram.Index
	Indexer  *indexer.Indexer
	Search   *search.Service
}

// Open validates the root, opens (or creates) its store, hydrates the
// trigram index from persisted postings, and wires the services.
func Open(root string, cfg Config) (*Workspace, error) {
	if !filepath.IsAbs(root) {
		return nil, scouterr.New(scouterr.InvalidPath, "workspace root must be absolute: %s", root)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, scouterr.New(scouterr.InvalidPath, "workspace root is not a directory: %s", root)
	}
	root = filepath.Clean(root)

	dbPath := cfg.DBPath
	if dbPath == "" {
		if dbPath, err = DefaultDBPath(root); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, scouterr.Wrap(scouterr.StorageUnavailable, err, "create store directory")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	tg := trigram.New()
	if err := tg.LoadFrom(st); err != nil {
		st.Close()
		return nil, fmt.Errorf("hydrate trigram index: %w", err)
	}

	reg := symbols.NewRegistry()
	languages.RegisterGo(reg)
	languages.RegisterJavaScript(reg)
	languages.RegisterTypeScript(reg)
	languages.RegisterPython(reg)
	ex := symbols.NewExtractor(reg)

	return &Workspace{
		Root:     root,
		Store:    st,
		Trigrams: tg,
		Indexer:  indexer.New(root, st, tg, ex, cfg.Indexer),
		Search:   search.New(st, tg, cfg.Search),
	}, nil
}

// Close releases the workspace's store. The on-disk index survives.
func (w *Workspace) Close() error {
	return w.Store.Close()
}

// DefaultDBPath places the store in the user cache dir, keyed by a hash
// of the absolute root so it never lives inside the indexed tree.
func DefaultDBPath(root string) (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", scouterr.Wrap(scouterr.StorageUnavailable, err, "resolve cache directory")
	}
	sum := sha256.Sum256([]byte(root))
	return filepath.Join(cacheDir, "scout", hex.EncodeToString(sum[:8])+".db"), nil
}
