package fsmount

import (
	"os"
	"sync"
	"time"

	"github.com/jacobsa/fuse/fuseops"

	"github.com/marmos91/remotefs/pkg/apiclient"
)

// attrTTL bounds how long the kernel may cache an inode's attributes or a
// directory entry before re-asking us. Kept short since a second mount (or
// another server client) can change the backing filesystem at any time.
const attrTTL = time.Second

// expiration returns the cache deadline to stamp on attributes and entries
// returned to the kernel.
func expiration() time.Time {
	return time.Now().Add(attrTTL)
}

// toAttributes converts a server FileInfo into the fuseops.InodeAttributes
// the kernel caches, attributing ownership to the local mount's uid/gid
// rather than the server's owner username: a client instance mounts as a
// single local user, so remote ownership has no local account to map onto.
func (fs *FS) toAttributes(info apiclient.FileInfo) fuseops.InodeAttributes {
	mode := os.FileMode(info.Mode & 0o777)
	nlink := uint32(1)
	if info.IsDir {
		mode |= os.ModeDir
		nlink = uint32(info.Links)
		if nlink == 0 {
			nlink = 1
		}
	}

	mtime := time.Now()
	if info.Modified != "" {
		if t, err := time.Parse(time.RFC3339, info.Modified); err == nil {
			mtime = t
		}
	}

	return fuseops.InodeAttributes{
		Size:   info.Size,
		Nlink:  uint64(nlink),
		Mode:   mode,
		Atime:  mtime,
		Mtime:  mtime,
		Ctime:  mtime,
		Crtime: mtime,
		Uid:    fs.uid,
		Gid:    fs.gid,
	}
}

// rootAttributes synthesizes attributes for the mount root, which has no
// server-side FileInfo of its own (it is the namespace's implicit top).
func (fs *FS) rootAttributes() fuseops.InodeAttributes {
	now := time.Now()
	return fuseops.InodeAttributes{
		Size:   0,
		Nlink:  1,
		Mode:   os.ModeDir | 0o755,
		Atime:  now,
		Mtime:  now,
		Ctime:  now,
		Crtime: now,
		Uid:    fs.uid,
		Gid:    fs.gid,
	}
}

// dirListing is the cached result of an OpenDir's children fetch, indexed by
// the HandleID ReadDir calls are keyed on.
type dirListing struct {
	path    string
	entries []apiclient.FileInfo
}

// dirHandleTable tracks outstanding OpenDir handles so ReadDir's repeated,
// offset-paginated calls don't each re-fetch the children list.
type dirHandleTable struct {
	mu      sync.Mutex
	byHandle map[fuseops.HandleID]*dirListing
}

func newDirHandleTable() *dirHandleTable {
	return &dirHandleTable{byHandle: make(map[fuseops.HandleID]*dirListing)}
}

func (t *dirHandleTable) put(h fuseops.HandleID, d *dirListing) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byHandle[h] = d
}

func (t *dirHandleTable) get(h fuseops.HandleID) (*dirListing, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.byHandle[h]
	return d, ok
}

func (t *dirHandleTable) release(h fuseops.HandleID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byHandle, h)
}
