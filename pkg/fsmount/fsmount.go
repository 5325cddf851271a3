// Package fsmount is the FUSE filesystem the kernel driver dispatches VFS
// callbacks onto: a struct embedding fuseutil.NotImplementedFileSystem, one
// method per op type, op.Respond(err) on every path. Every network-touching
// callback runs on the goroutine the FUSE dispatch loop grants it and goes
// through the one shared, pool-backed *apiclient.Client; a slow request
// never stalls other in-flight callbacks.
package fsmount

import (
	"errors"
	"sync/atomic"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/marmos91/remotefs/internal/logger"
	"github.com/marmos91/remotefs/pkg/apiclient"
	"github.com/marmos91/remotefs/pkg/inode"
)

// errBadHandle is returned when the kernel references a directory or file
// handle this filesystem never allocated (or already released).
var errBadHandle = errors.New("fsmount: unknown handle")

// FS is the client-side filesystem object mounted over FUSE. It holds no
// file content itself: every read, write, and directory listing is
// answered by a round trip through client.
type FS struct {
	fuseutil.NotImplementedFileSystem

	client *apiclient.Client
	inodes *inode.Map

	uid uint32
	gid uint32

	nextHandle atomic.Uint64
	dirs       *dirHandleTable
}

// New builds an FS backed by client, attributing every inode it
// synthesizes to the given local uid/gid (the OS identity resolved for the
// authenticated mount user).
func New(client *apiclient.Client, uid, gid uint32) *FS {
	return &FS{
		client: client,
		inodes: inode.New(),
		uid:    uid,
		gid:    gid,
		dirs:   newDirHandleTable(),
	}
}

func (fs *FS) allocHandle() fuseops.HandleID {
	return fuseops.HandleID(fs.nextHandle.Add(1))
}

// Init handles the initial handshake the kernel requires before any other
// callback is dispatched.
func (fs *FS) Init(op *fuseops.InitOp) {
	op.Respond(nil)
}

// ForgetInode drops the inode from the Inode Map, per fuseops.ForgetInodeOp's
// contract that the kernel will not reference the ID again unless it is
// later reissued by a fresh lookup.
func (fs *FS) ForgetInode(op *fuseops.ForgetInodeOp) {
	fs.inodes.Forget(op.ID)
	op.Respond(nil)
}

// OpenFile allows opening any file; content is fetched fresh on each Read
// and written whole on each Write, so there is no session state to set up.
func (fs *FS) OpenFile(op *fuseops.OpenFileOp) {
	op.Handle = fs.allocHandle()
	op.Respond(nil)
}

// ReleaseFileHandle is a no-op: OpenFile allocated no resource that needs
// releasing.
func (fs *FS) ReleaseFileHandle(op *fuseops.ReleaseFileHandleOp) {
	op.Respond(nil)
}

// SyncFile and FlushFile are no-ops: every Write already went straight to
// the server, so there is nothing buffered to flush.
func (fs *FS) SyncFile(op *fuseops.SyncFileOp) {
	op.Respond(nil)
}

func (fs *FS) FlushFile(op *fuseops.FlushFileOp) {
	op.Respond(nil)
}

func (fs *FS) logErr(op string, path string, err error) {
	if err != nil {
		logger.Debug("fsmount op failed", logger.KeyPath, path, "op", op, logger.Err(err))
	}
}
