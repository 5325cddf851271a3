package fsmount

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/jacobsa/bazilfuse"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"

	"github.com/marmos91/remotefs/pkg/apiclient"
	"github.com/marmos91/remotefs/pkg/rferrors"
)

// Errnos the fuse package doesn't re-export.
var (
	errAccess  = bazilfuse.Errno(syscall.EACCES)
	errInvalid = bazilfuse.Errno(syscall.EINVAL)
)

// joinPath builds the namespace path for a child of parent, matching the
// server's forward-slash, no-leading-slash convention (pkg/nstree.AbsPath).
func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func (fs *FS) toErrno(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, rferrors.ErrMissing) {
		return fuse.ENOENT
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsNotFound():
			return fuse.ENOENT
		case apiErr.IsDenied():
			return errAccess
		case apiErr.IsInvalid():
			return errInvalid
		}
	}
	return fuse.EIO
}

// LookUpInode resolves a (parent, name) pair to a ChildInodeEntry, the
// callback the kernel issues before almost every other operation on a path
// it hasn't yet cached. Spurious shell-artifact names are rejected with
// ENOENT before ever reaching the network.
func (fs *FS) LookUpInode(op *fuseops.LookUpInodeOp) {
	entry, err := fs.lookUpChild(op.Parent, op.Name)
	op.Entry = entry
	op.Respond(fs.toErrno(err))
}

func (fs *FS) lookUpChild(parent fuseops.InodeID, name string) (fuseops.ChildInodeEntry, error) {
	if isSpuriousLookup(name) {
		return fuseops.ChildInodeEntry{}, apiNotFound()
	}

	parentPath, err := fs.inodes.Lookup(parent)
	if err != nil {
		return fuseops.ChildInodeEntry{}, err
	}

	childPath := joinPath(parentPath, name)

	info, err := fs.client.Lookup(childPath)
	if err != nil {
		fs.logErr("lookup", childPath, err)
		return fuseops.ChildInodeEntry{}, err
	}

	ino := fs.inodes.Register(childPath)
	return fuseops.ChildInodeEntry{
		Child:                ino,
		Attributes:           fs.toAttributes(info),
		AttributesExpiration: expiration(),
		EntryExpiration:      expiration(),
	}, nil
}

// GetInodeAttributes answers a stat() on an already-looked-up inode.
func (fs *FS) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) {
	attrs, err := fs.getAttributes(op.Inode)
	op.Attributes = attrs
	op.AttributesExpiration = expiration()
	op.Respond(fs.toErrno(err))
}

func (fs *FS) getAttributes(ino fuseops.InodeID) (fuseops.InodeAttributes, error) {
	path, err := fs.inodes.Lookup(ino)
	if err != nil {
		return fuseops.InodeAttributes{}, err
	}

	if ino == fuseops.RootInodeID {
		return fs.rootAttributes(), nil
	}

	info, err := fs.client.Lookup(path)
	if err != nil {
		fs.logErr("getattr", path, err)
		return fuseops.InodeAttributes{}, err
	}
	return fs.toAttributes(info), nil
}

// SetInodeAttributes handles truncate/chmod/utimes. Only the locally-cached
// attributes are updated: there is no server endpoint to persist a mode or
// mtime change independent of a file write, so a size change here does not
// truncate the remote file.
func (fs *FS) SetInodeAttributes(op *fuseops.SetInodeAttributesOp) {
	attrs, err := fs.setAttributes(op.Inode, op.Size, op.Mode, op.Atime, op.Mtime)
	op.Attributes = attrs
	op.AttributesExpiration = expiration()
	op.Respond(fs.toErrno(err))
}

func (fs *FS) setAttributes(
	ino fuseops.InodeID,
	size *uint64,
	mode *os.FileMode,
	atime, mtime *time.Time,
) (fuseops.InodeAttributes, error) {
	attrs, err := fs.getAttributes(ino)
	if err != nil {
		return fuseops.InodeAttributes{}, err
	}

	if size != nil {
		attrs.Size = *size
	}
	if mode != nil {
		attrs.Mode = *mode
	}
	if atime != nil {
		attrs.Atime = *atime
	}
	if mtime != nil {
		attrs.Mtime = *mtime
	}
	return attrs, nil
}

func apiNotFound() error {
	return &apiclient.APIError{StatusCode: 404, Title: "not found"}
}
