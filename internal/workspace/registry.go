package workspace

import (
	"path/filepath"
	"sync"

	"scout/internal/scouterr"
)

// Registry maps absolute root paths to live workspaces and tracks which
// one is active. In pinned mode a root is attached at startup; in global
// mode every operation fails with NoActiveWorkspace until an explicit
// attach.
type Registry struct {
	mu     sync.RWMutex
	byRoot map[string]*Workspace
	active *Workspace
	cfg    Config
}

// NewRegistry creates an empty registry using cfg for every attach.
func NewRegistry(cfg Config) *Registry {
	return &Registry{byRoot: make(map[string]*Workspace), cfg: cfg}
}

// Attach opens (or reuses) the workspace for root and makes it active.
// Re-attaching the same root is idempotent and returns the live handle.
func (r *Registry) Attach(root string) (*Workspace, bool, error) {
	// Open stores under the cleaned root, so the lookup must use the
	// same form or a trailing slash would open a second handle on the
	// same database.
	root = filepath.Clean(root)

	r.mu.Lock()
	defer r.mu.Unlock()

	if ws, ok := r.byRoot[root]; ok {
		r.active = ws
		return ws, false, nil
	}

	ws, err := Open(root, r.cfg)
	if err != nil {
		return nil, false, err
	}
	r.byRoot[ws.Root] = ws
	r.active = ws
	return ws, true, nil
}

// Active returns the current workspace, or NoActiveWorkspace.
func (r *Registry) Active() (*Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return nil, scouterr.New(scouterr.NoActiveWorkspace,
			"no active workspace; call 'add_workspace' with an absolute project root first")
	}
	return r.active, nil
}

// Evict closes and forgets the workspace for root, if attached.
func (r *Registry) Evict(root string) error {
	root = filepath.Clean(root)

	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.byRoot[root]
	if !ok {
		return nil
	}
	delete(r.byRoot, root)
	if r.active == ws {
		r.active = nil
	}
	return ws.Close()
}

// CloseAll releases every attached workspace, for shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for root, ws := range r.byRoot {
		ws.Close()
		delete(r.byRoot, root)
	}
	r.active = nil
}
