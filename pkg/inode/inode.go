// Package inode maintains the client-side bijection between kernel inode
// numbers and namespace paths. Two hashmaps keep both directions of the
// mapping constant-time.
package inode

import (
	"sync"

	"github.com/jacobsa/fuse/fuseops"

	"github.com/marmos91/remotefs/pkg/rferrors"
)

// RootPath is the namespace path bound to fuseops.RootInodeID.
const RootPath = ""

// Map is the inode<->path bijection shared across FUSE callbacks.
// Callbacks for unrelated paths run concurrently, so every access goes
// through the RWMutex.
type Map struct {
	mu sync.RWMutex

	pathByInode map[fuseops.InodeID]string
	inodeByPath map[string]fuseops.InodeID

	nextIno fuseops.InodeID
}

// New builds a Map with the root path pre-registered at inode 1.
func New() *Map {
	m := &Map{
		pathByInode: make(map[fuseops.InodeID]string),
		inodeByPath: make(map[string]fuseops.InodeID),
		nextIno:     fuseops.RootInodeID + 1,
	}
	m.pathByInode[fuseops.RootInodeID] = RootPath
	m.inodeByPath[RootPath] = fuseops.RootInodeID
	return m
}

// Register returns the inode bound to path, allocating a new one if path
// has not been seen before. A repeat registration of the same path returns
// the same inode rather than minting a new one.
func (m *Map) Register(path string) fuseops.InodeID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ino, ok := m.inodeByPath[path]; ok {
		return ino
	}

	ino := m.nextIno
	m.nextIno++
	m.pathByInode[ino] = path
	m.inodeByPath[path] = ino
	return ino
}

// Lookup returns the path bound to ino, or rferrors.ErrMissing.
func (m *Map) Lookup(ino fuseops.InodeID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	path, ok := m.pathByInode[ino]
	if !ok {
		return "", rferrors.ErrMissing
	}
	return path, nil
}

// InodeFor returns the inode already bound to path, if any, without
// allocating a new one.
func (m *Map) InodeFor(path string) (fuseops.InodeID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ino, ok := m.inodeByPath[path]
	return ino, ok
}

// Forget drops ino from the map, per ForgetInodeOp's contract that the
// kernel will not reference that ID again (unless reissued later by a
// fresh Register call for the same path).
func (m *Map) Forget(ino fuseops.InodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path, ok := m.pathByInode[ino]
	if !ok {
		return
	}
	delete(m.pathByInode, ino)
	// Only drop the reverse entry if it still points at this inode; a
	// Forget for a stale generation must not clobber a fresher Register.
	if m.inodeByPath[path] == ino {
		delete(m.inodeByPath, path)
	}
}
