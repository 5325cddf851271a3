package fsmount

import (
	"bytes"
	"io"
	"os"

	"github.com/jacobsa/fuse/fuseops"

	"github.com/marmos91/remotefs/pkg/apiclient"
)

// CreateFile registers the new path and synthesizes empty-file attributes
// locally; no server call happens until the first Write. A getattr issued
// in between sees a file that doesn't exist on the server yet.
func (fs *FS) CreateFile(op *fuseops.CreateFileOp) {
	handle, entry, err := fs.createFile(op.Parent, op.Name, op.Mode)
	op.Handle = handle
	op.Entry = entry
	op.Respond(fs.toErrno(err))
}

func (fs *FS) createFile(parent fuseops.InodeID, name string, mode os.FileMode) (fuseops.HandleID, fuseops.ChildInodeEntry, error) {
	parentPath, err := fs.inodes.Lookup(parent)
	if err != nil {
		return 0, fuseops.ChildInodeEntry{}, err
	}

	childPath := joinPath(parentPath, name)
	ino := fs.inodes.Register(childPath)
	handle := fs.allocHandle()

	info := apiclient.FileInfo{Name: name, IsDir: false, Mode: uint32(mode.Perm()), Links: 1}
	entry := fuseops.ChildInodeEntry{
		Child:                ino,
		Attributes:           fs.toAttributes(info),
		AttributesExpiration: expiration(),
		EntryExpiration:      expiration(),
	}
	return handle, entry, nil
}

// ReadFile fetches the whole file from the server and serves op.Offset
// onward out of it, converting io.EOF to nil since FUSE treats a short read
// at the end of a file as success, not an error.
func (fs *FS) ReadFile(op *fuseops.ReadFileOp) {
	data, err := fs.readFile(op.Inode, op.Offset, op.Size)
	op.Data = data
	op.Respond(fs.toErrno(err))
}

func (fs *FS) readFile(ino fuseops.InodeID, offset int64, size int) ([]byte, error) {
	path, err := fs.inodes.Lookup(ino)
	if err != nil {
		return nil, err
	}

	content, err := fs.client.GetFile(path)
	if err != nil {
		fs.logErr("read", path, err)
		return nil, err
	}

	reader := bytes.NewReader(content)
	data := make([]byte, size)
	n, readErr := reader.ReadAt(data, offset)
	data = data[:n]

	// FUSE doesn't expect io.EOF back as an error; a short read already
	// signals end-of-file.
	if readErr != nil && readErr != io.EOF {
		return data, readErr
	}
	return data, nil
}

// WriteFile PUTs the entire op.Data buffer as the file's new content,
// ignoring op.Offset: the server's PUT contract is a whole-file rewrite
// like `echo foo > file`, not a partial/random-access write merged with
// existing content.
func (fs *FS) WriteFile(op *fuseops.WriteFileOp) {
	err := fs.writeFile(op.Inode, op.Data)
	op.Respond(fs.toErrno(err))
}

func (fs *FS) writeFile(ino fuseops.InodeID, data []byte) error {
	path, err := fs.inodes.Lookup(ino)
	if err != nil {
		return err
	}

	if err := fs.client.PutFile(path, data, 0); err != nil {
		fs.logErr("write", path, err)
		return err
	}
	return nil
}
