package fsmount

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/remotefs/pkg/apiclient"
	"github.com/marmos91/remotefs/pkg/rferrors"
)

// newTestFS builds an FS against a test server. The exported Op-handling
// methods (LookUpInode, ReadFile, ...) are thin wrappers that call
// op.Respond on a real kernel-issued op; these tests exercise the
// unexported core methods directly, since a test-constructed op literal
// carries none of the internal kernel-connection state Respond needs.
func newTestFS(t *testing.T, handler http.HandlerFunc) (*FS, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	client := apiclient.New(server.URL)
	return New(client, 1000, 1000), server
}

func TestIsSpuriousLookup(t *testing.T) {
	cases := map[string]bool{
		"123":      true,
		"drwxr-xr": true,
		"Echo":     true,
		"ls":       true,
		"mkdir":    true,
		"rmdir":    true,
		"total":    true,
		"readme":   false,
		"file.txt": false,
		"":         false,
	}
	for name, want := range cases {
		assert.Equal(t, want, isSpuriousLookup(name), "name=%q", name)
	}
}

func TestLookUpChildRejectsSpuriousNameWithoutNetworkCall(t *testing.T) {
	called := false
	fs, server := newTestFS(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	_, err := fs.lookUpChild(fuseops.RootInodeID, "42")

	require.Error(t, err)
	assert.False(t, called, "spurious name must not reach the server")
}

func TestLookUpChildRegistersChildInode(t *testing.T) {
	fs, server := newTestFS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lookup/notes.txt", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(apiclient.FileInfo{
			Name: "notes.txt", Mode: 0o644, Size: 5, Links: 1,
		})
	})
	defer server.Close()

	entry, err := fs.lookUpChild(fuseops.RootInodeID, "notes.txt")
	require.NoError(t, err)

	require.NotZero(t, entry.Child)
	assert.Equal(t, uint64(5), entry.Attributes.Size)
	assert.False(t, entry.Attributes.Mode.IsDir())

	ino, ok := fs.inodes.InodeFor("notes.txt")
	require.True(t, ok)
	assert.Equal(t, entry.Child, ino)
}

func TestLookUpChildMissingParentFails(t *testing.T) {
	fs, server := newTestFS(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unknown parent must not reach the server, got %s", r.URL.Path)
	})
	defer server.Close()

	_, err := fs.lookUpChild(fuseops.InodeID(9999), "notes.txt")
	require.Error(t, err)
}

func TestGetAttributesRoot(t *testing.T) {
	fs, server := newTestFS(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("root attributes must not call the server, got %s", r.URL.Path)
	})
	defer server.Close()

	attrs, err := fs.getAttributes(fuseops.RootInodeID)
	require.NoError(t, err)
	assert.True(t, attrs.Mode.IsDir())
}

func TestSetAttributesOverlaysSizeAndMode(t *testing.T) {
	fs, server := newTestFS(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(apiclient.FileInfo{Name: "a.txt", Mode: 0o644, Size: 100})
	})
	defer server.Close()

	ino := fs.inodes.Register("a.txt")

	newSize := uint64(0)
	newMode := os.FileMode(0o600)
	attrs, err := fs.setAttributes(ino, &newSize, &newMode, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), attrs.Size)
	assert.Equal(t, os.FileMode(0o600), attrs.Mode)
}

func TestMkdirRegistersChildAndReturnsDirMode(t *testing.T) {
	fs, server := newTestFS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mkdir/sub", r.URL.Path)
		assert.Equal(t, "755", r.URL.Query().Get("permissions"))
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	entry, err := fs.mkdir(fuseops.RootInodeID, "sub", os.FileMode(0o755))
	require.NoError(t, err)

	assert.True(t, entry.Attributes.Mode.IsDir())
	_, ok := fs.inodes.InodeFor("sub")
	assert.True(t, ok)
}

func TestOpenDirAndReadDirEmitsDotEntriesFirst(t *testing.T) {
	fs, server := newTestFS(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode([]apiclient.FileInfo{
			{Name: "a.txt", IsDir: false},
			{Name: "sub", IsDir: true},
		})
	})
	defer server.Close()

	handle, err := fs.openDir(fuseops.RootInodeID)
	require.NoError(t, err)
	require.NotZero(t, handle)

	data, err := fs.readDir(fuseops.RootInodeID, handle, 0, 4096)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	_, ok := fs.inodes.InodeFor("a.txt")
	assert.True(t, ok)
	_, ok = fs.inodes.InodeFor("sub")
	assert.True(t, ok)
}

func TestReadDirPaginatesPastDotEntries(t *testing.T) {
	fs, server := newTestFS(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode([]apiclient.FileInfo{{Name: "only.txt"}})
	})
	defer server.Close()

	handle, err := fs.openDir(fuseops.RootInodeID)
	require.NoError(t, err)

	// Offset 2 resumes right after "." and "..", at the first real child.
	data, err := fs.readDir(fuseops.RootInodeID, handle, 2, 4096)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	// Offset past every entry yields nothing, not an error.
	data, err = fs.readDir(fuseops.RootInodeID, handle, 10, 4096)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestReadDirUnknownHandleFails(t *testing.T) {
	fs, server := newTestFS(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unknown handle must not reach the server")
	})
	defer server.Close()

	_, err := fs.readDir(fuseops.RootInodeID, fuseops.HandleID(999), 0, 4096)
	assert.Error(t, err)
}

func TestWriteFileThenReadFileRoundTrip(t *testing.T) {
	var stored []byte
	fs, server := newTestFS(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			stored = body
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(stored)
		}
	})
	defer server.Close()

	ino := fs.inodes.Register("greeting.txt")

	require.NoError(t, fs.writeFile(ino, []byte("hello world")))

	data, err := fs.readFile(ino, 0, 32)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestReadFileRespectsOffset(t *testing.T) {
	fs, server := newTestFS(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("0123456789"))
	})
	defer server.Close()

	ino := fs.inodes.Register("numbers.txt")

	data, err := fs.readFile(ino, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, "567", string(data))
}

func TestCreateFileDoesNotCallServer(t *testing.T) {
	fs, server := newTestFS(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("createFile must not call the server, got %s", r.URL.Path)
	})
	defer server.Close()

	handle, entry, err := fs.createFile(fuseops.RootInodeID, "new.txt", os.FileMode(0o644))
	require.NoError(t, err)

	assert.NotZero(t, handle)
	require.NotZero(t, entry.Child)
	assert.Equal(t, uint64(0), entry.Attributes.Size)
}

func TestRemoveChildForgetsInode(t *testing.T) {
	fs, server := newTestFS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	ino := fs.inodes.Register("doomed.txt")

	require.NoError(t, fs.removeChild(fuseops.RootInodeID, "doomed.txt", "unlink"))

	_, ok := fs.inodes.InodeFor("doomed.txt")
	assert.False(t, ok)
	_, lookupErr := fs.inodes.Lookup(ino)
	assert.Error(t, lookupErr)
}

func TestToErrnoMapsStatusCodes(t *testing.T) {
	fs := &FS{}
	assert.Nil(t, fs.toErrno(nil))
	assert.Equal(t, fuse.ENOENT, fs.toErrno(rferrors.ErrMissing))
	assert.Equal(t, fuse.ENOENT, fs.toErrno(&apiclient.APIError{StatusCode: 404}))
	assert.Equal(t, errAccess, fs.toErrno(&apiclient.APIError{StatusCode: 403}))
	assert.Equal(t, errInvalid, fs.toErrno(&apiclient.APIError{StatusCode: 400}))
	assert.Equal(t, fuse.EIO, fs.toErrno(&apiclient.APIError{StatusCode: 500}))
}
