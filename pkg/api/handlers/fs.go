package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/remotefs/pkg/api/middleware"
	"github.com/marmos91/remotefs/pkg/api/response"
	"github.com/marmos91/remotefs/pkg/credential"
	"github.com/marmos91/remotefs/pkg/nstree"
	"github.com/marmos91/remotefs/pkg/rferrors"
	"github.com/marmos91/remotefs/pkg/session"
)

const (
	defaultFileMode = 0o644
	defaultDirMode  = 0o755
)

// FSHandler implements the file-tree endpoints: /list, /files, /mkdir and
// /lookup.
type FSHandler struct {
	sessions *session.Manager
	users    *credential.Store
}

// NewFSHandler builds an FSHandler.
func NewFSHandler(sessions *session.Manager, users *credential.Store) *FSHandler {
	return &FSHandler{sessions: sessions, users: users}
}

func pathParam(r *http.Request) string {
	return strings.Trim(chi.URLParam(r, "*"), "/")
}

func parentOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// parseMode reads the ?permissions=<3 octal digits> query parameter,
// defaulting to def and rejecting malformed input with rferrors.ErrInvalid.
func parseMode(r *http.Request, def uint32) (uint32, error) {
	raw := r.URL.Query().Get("permissions")
	if raw == "" {
		return def, nil
	}
	if len(raw) != 3 {
		return 0, fmt.Errorf("%w: permissions must be 3 octal digits", rferrors.ErrInvalid)
	}
	mode, err := strconv.ParseUint(raw, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: permissions must be 3 octal digits", rferrors.ErrInvalid)
	}
	return uint32(mode), nil
}

// failMutation reports a failed tree mutation. An IO_FAILURE means the
// Host-FS Mirror step failed partway, leaving the cached in-memory tree out
// of sync with the disk and the catalog, so the cache entry is dropped and
// the next request rebuilds the tree from disk.
func (h *FSHandler) failMutation(w http.ResponseWriter, claims *middleware.Claims, err error) {
	if errors.Is(err, rferrors.ErrIOFailure) {
		h.sessions.Invalidate(claims.UserID)
	}
	response.WriteError(w, err)
}

func (h *FSHandler) treeFor(r *http.Request) (*nstree.Tree, *middleware.Claims, error) {
	claims := middleware.FromContext(r.Context())
	if claims == nil {
		return nil, nil, rferrors.ErrUnauthenticated
	}
	tree, err := h.sessions.Tree(claims.Username, claims.UserID)
	return tree, claims, err
}

func (h *FSHandler) toFileInfo(tree *nstree.Tree, n *nstree.Node) (FileInfo, error) {
	path := nstree.AbsPath(n)
	if path == "" {
		return FileInfo{Name: "", IsDir: true, Mode: defaultDirMode, Owner: "", Group: "users", Links: 1}, nil
	}

	row, err := tree.Gate().CatalogRow(path)
	if err != nil && !errors.Is(err, rferrors.ErrMissing) {
		return FileInfo{}, err
	}

	info := FileInfo{
		Name:  n.Name,
		IsDir: n.Kind == nstree.KindDirectory,
		Mode:  n.Mode,
		Group: "users",
		Links: 1,
	}
	if err == nil {
		info.Mode = row.Mode()
		info.Size = row.Size
		info.Modified = row.LastModified
		info.Owner = h.users.Username(row.UserID)
	}
	return info, nil
}

// List handles GET /list, GET /list/ and GET /list/<path>.
func (h *FSHandler) List(w http.ResponseWriter, r *http.Request) {
	tree, claims, err := h.treeFor(r)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	dir := pathParam(r)

	dirNode, err := tree.Find(dir)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	if dirNode.Kind != nstree.KindDirectory {
		response.WriteError(w, fmt.Errorf("%w: %q is not a directory", rferrors.ErrInvalid, dir))
		return
	}

	names, err := tree.ListChildren(dir)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	out := make([]FileInfo, 0, len(names))
	for _, name := range names {
		childPath := name
		if dir != "" {
			childPath = dir + "/" + name
		}

		ok, err := tree.Gate().CanRead(childPath, claims.UserID)
		if err != nil {
			response.WriteError(w, err)
			return
		}
		if !ok {
			continue
		}

		child, err := tree.Find(childPath)
		if err != nil {
			continue
		}
		info, err := h.toFileInfo(tree, child)
		if err != nil {
			response.WriteError(w, err)
			return
		}
		out = append(out, info)
	}

	response.JSON(w, http.StatusOK, out)
}

// Lookup handles GET /lookup/<path>.
func (h *FSHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	tree, claims, err := h.treeFor(r)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	path := pathParam(r)

	n, err := tree.Find(path)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	ok, err := tree.Gate().CanRead(path, claims.UserID)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	if !ok {
		response.WriteError(w, rferrors.ErrDenied)
		return
	}

	info, err := h.toFileInfo(tree, n)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, info)
}

// GetFile handles GET /files/<path>.
func (h *FSHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	tree, claims, err := h.treeFor(r)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	path := pathParam(r)
	if path == "" {
		response.WriteError(w, fmt.Errorf("%w: path required", rferrors.ErrInvalid))
		return
	}

	n, err := tree.Find(path)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	if n.Kind != nstree.KindFile {
		response.WriteError(w, fmt.Errorf("%w: %q is not a file", rferrors.ErrInvalid, path))
		return
	}

	ok, err := tree.Gate().CanRead(path, claims.UserID)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	if !ok {
		response.WriteError(w, rferrors.ErrDenied)
		return
	}

	content, err := tree.ReadFile(path)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// PutFile handles PUT /files/<path>.
func (h *FSHandler) PutFile(w http.ResponseWriter, r *http.Request) {
	tree, claims, err := h.treeFor(r)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	path := pathParam(r)
	if path == "" {
		response.WriteError(w, fmt.Errorf("%w: path required", rferrors.ErrInvalid))
		return
	}

	mode, err := parseMode(r, defaultFileMode)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		response.WriteError(w, fmt.Errorf("%w: reading body: %v", rferrors.ErrInvalid, err))
		return
	}

	_, lookupErr := tree.Find(path)
	exists := lookupErr == nil

	var allowed bool
	if exists {
		allowed, err = tree.Gate().CanWriteNode(path, claims.UserID)
	} else {
		allowed, err = tree.Gate().CanWriteDir(parentOf(path), claims.UserID)
	}
	if err != nil {
		response.WriteError(w, err)
		return
	}
	if !allowed {
		response.WriteError(w, rferrors.ErrDenied)
		return
	}

	if err := tree.WriteFile(path, content, mode); err != nil {
		h.failMutation(w, claims, err)
		return
	}

	response.Text(w, http.StatusOK, "File written successfully")
}

// DeleteFile handles DELETE /files/<path>.
func (h *FSHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	tree, claims, err := h.treeFor(r)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	path := pathParam(r)
	if path == "" {
		response.WriteError(w, fmt.Errorf("%w: path required", rferrors.ErrInvalid))
		return
	}

	if _, err := tree.Find(path); err != nil {
		response.WriteError(w, err)
		return
	}

	allowed, err := tree.Gate().CanWriteDir(parentOf(path), claims.UserID)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	if !allowed {
		response.WriteError(w, rferrors.ErrDenied)
		return
	}

	if err := tree.Delete(path); err != nil {
		h.failMutation(w, claims, err)
		return
	}

	response.Text(w, http.StatusOK, "Deleted successfully")
}

// Mkdir handles POST /mkdir/<path>.
func (h *FSHandler) Mkdir(w http.ResponseWriter, r *http.Request) {
	tree, claims, err := h.treeFor(r)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	path := pathParam(r)
	if path == "" {
		response.WriteError(w, fmt.Errorf("%w: path required", rferrors.ErrInvalid))
		return
	}

	mode, err := parseMode(r, defaultDirMode)
	if err != nil {
		response.WriteError(w, err)
		return
	}

	parent, name := parentOf(path), path[strings.LastIndex(path, "/")+1:]

	allowed, err := tree.Gate().CanWriteDir(parent, claims.UserID)
	if err != nil {
		response.WriteError(w, err)
		return
	}
	if !allowed {
		response.WriteError(w, rferrors.ErrDenied)
		return
	}

	if err := tree.MakeDir(parent, name, mode); err != nil {
		h.failMutation(w, claims, err)
		return
	}

	response.Text(w, http.StatusOK, "Directory created successfully")
}
