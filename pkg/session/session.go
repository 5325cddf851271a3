// Package session manages the live, per-user namespace tree instances the
// HTTP router dispatches requests against. One tree is built lazily per
// user on first access, rooted at that user's on-disk home directory under
// remote-fs/<username>, and kept resident behind its own mutex until
// Invalidate drops it.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/marmos91/remotefs/pkg/catalog"
	"github.com/marmos91/remotefs/pkg/nstree"
	"github.com/marmos91/remotefs/pkg/permission"
)

// RootDirName is the subdirectory name under the server's data root that
// each user's files live in, e.g. <dataRoot>/remote-fs/<username>.
const RootDirName = "remote-fs"

// Manager hands out one Tree per user, building it on first use.
type Manager struct {
	dataRoot string
	catalog  *catalog.Catalog
	gate     *permission.Gate

	mu    sync.Mutex
	trees map[uint32]*nstree.Tree
}

// New creates a Manager rooted at dataRoot (e.g. the server's configured
// storage directory).
func New(dataRoot string, cat *catalog.Catalog, gate *permission.Gate) *Manager {
	return &Manager{dataRoot: dataRoot, catalog: cat, gate: gate, trees: make(map[uint32]*nstree.Tree)}
}

// homeDir returns, and creates if absent, the on-disk directory backing
// username's tree.
func (m *Manager) homeDir(username string) (string, error) {
	dir := filepath.Join(m.dataRoot, RootDirName, username)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create user directory %q: %w", dir, err)
	}
	return dir, nil
}

// Tree returns the namespace tree for (username, userID), building and
// populating it from disk on first access and caching it thereafter.
func (m *Manager) Tree(username string, userID uint32) (*nstree.Tree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.trees[userID]; ok {
		return t, nil
	}

	dir, err := m.homeDir(username)
	if err != nil {
		return nil, err
	}

	tree := nstree.New(userID, dir, m.catalog, m.gate)
	if err := tree.FromOnDisk(dir); err != nil {
		return nil, fmt.Errorf("rebuild namespace tree for %q: %w", username, err)
	}

	m.trees[userID] = tree
	return tree, nil
}

// Invalidate drops the cached tree for userID, forcing the next Tree call
// to rebuild it from disk. Used after a Host-FS Mirror failure leaves the
// in-memory shadow out of sync with what's actually on disk.
func (m *Manager) Invalidate(userID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trees, userID)
}
