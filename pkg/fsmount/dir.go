package fsmount

import (
	"os"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/marmos91/remotefs/pkg/apiclient"
)

// MkDir creates a directory on the server, then synthesizes its attributes
// locally rather than issuing a second round trip to look them up.
func (fs *FS) MkDir(op *fuseops.MkDirOp) {
	entry, err := fs.mkdir(op.Parent, op.Name, op.Mode)
	op.Entry = entry
	op.Respond(fs.toErrno(err))
}

func (fs *FS) mkdir(parent fuseops.InodeID, name string, mode os.FileMode) (fuseops.ChildInodeEntry, error) {
	parentPath, err := fs.inodes.Lookup(parent)
	if err != nil {
		return fuseops.ChildInodeEntry{}, err
	}

	childPath := joinPath(parentPath, name)
	if err := fs.client.Mkdir(childPath, uint32(mode.Perm())); err != nil {
		fs.logErr("mkdir", childPath, err)
		return fuseops.ChildInodeEntry{}, err
	}

	ino := fs.inodes.Register(childPath)
	info := apiclient.FileInfo{Name: name, IsDir: true, Mode: uint32(mode.Perm()), Links: 1}
	return fuseops.ChildInodeEntry{
		Child:                ino,
		Attributes:           fs.toAttributes(info),
		AttributesExpiration: expiration(),
		EntryExpiration:      expiration(),
	}, nil
}

// RmDir removes an empty directory.
func (fs *FS) RmDir(op *fuseops.RmDirOp) {
	err := fs.removeChild(op.Parent, op.Name, "rmdir")
	op.Respond(fs.toErrno(err))
}

// Unlink removes a file.
func (fs *FS) Unlink(op *fuseops.UnlinkOp) {
	err := fs.removeChild(op.Parent, op.Name, "unlink")
	op.Respond(fs.toErrno(err))
}

func (fs *FS) removeChild(parent fuseops.InodeID, name, opName string) error {
	parentPath, err := fs.inodes.Lookup(parent)
	if err != nil {
		return err
	}

	childPath := joinPath(parentPath, name)
	if err := fs.client.DeleteFile(childPath); err != nil {
		fs.logErr(opName, childPath, err)
		return err
	}

	if ino, ok := fs.inodes.InodeFor(childPath); ok {
		fs.inodes.Forget(ino)
	}
	return nil
}

// OpenDir fetches and caches the directory's children under a fresh handle,
// so the kernel's paginated ReadDir calls that follow don't each re-fetch
// the listing.
func (fs *FS) OpenDir(op *fuseops.OpenDirOp) {
	handle, err := fs.openDir(op.Inode)
	op.Handle = handle
	op.Respond(fs.toErrno(err))
}

func (fs *FS) openDir(ino fuseops.InodeID) (fuseops.HandleID, error) {
	path, err := fs.inodes.Lookup(ino)
	if err != nil {
		return 0, err
	}

	children, err := fs.client.List(path)
	if err != nil {
		fs.logErr("opendir", path, err)
		return 0, err
	}

	handle := fs.allocHandle()
	fs.dirs.put(handle, &dirListing{path: path, entries: children})
	return handle, nil
}

// ReadDir answers a getdents()-style read over an already-open directory
// handle, emitting "." and ".." before the server-listed children and
// packing entries with fuseutil.AppendDirent up to op.Size.
func (fs *FS) ReadDir(op *fuseops.ReadDirOp) {
	data, err := fs.readDir(op.Inode, op.Handle, op.Offset, op.Size)
	op.Data = data
	op.Respond(fs.toErrno(err))
}

func (fs *FS) readDir(dirInode fuseops.InodeID, handle fuseops.HandleID, offset fuseops.DirOffset, size int) ([]byte, error) {
	listing, ok := fs.dirs.get(handle)
	if !ok {
		return nil, errBadHandle
	}

	entries := fs.direntsFor(dirInode, listing)
	if int(offset) > len(entries) {
		return nil, nil
	}
	entries = entries[offset:]

	var data []byte
	for _, e := range entries {
		prevLen := len(data)
		data = fuseutil.AppendDirent(data, e)
		if len(data) > size {
			data = data[:prevLen]
			break
		}
	}
	return data, nil
}

// direntsFor builds the full, offset-addressable entry list for a
// directory: "." at offset 1, ".." at offset 2, then each child starting at
// offset 3. The sequential Offset-equals-array-position-plus-one convention
// lets ReadDir resume with a plain slice.
func (fs *FS) direntsFor(dirInode fuseops.InodeID, listing *dirListing) []fuseutil.Dirent {
	entries := make([]fuseutil.Dirent, 0, len(listing.entries)+2)
	entries = append(entries,
		fuseutil.Dirent{Offset: 1, Inode: dirInode, Name: ".", Type: fuseutil.DT_Directory},
		fuseutil.Dirent{Offset: 2, Inode: dirInode, Name: "..", Type: fuseutil.DT_Directory},
	)

	for i, child := range listing.entries {
		childPath := joinPath(listing.path, child.Name)
		ino := fs.inodes.Register(childPath)
		dtype := fuseutil.DT_File
		if child.IsDir {
			dtype = fuseutil.DT_Directory
		}
		entries = append(entries, fuseutil.Dirent{
			Offset: fuseops.DirOffset(3 + i),
			Inode:  ino,
			Name:   child.Name,
			Type:   dtype,
		})
	}
	return entries
}

// ReleaseDirHandle discards the cached listing for a closed directory.
func (fs *FS) ReleaseDirHandle(op *fuseops.ReleaseDirHandleOp) {
	fs.dirs.release(op.Handle)
	op.Respond(nil)
}
