// Package nstree holds the in-memory shadow of a user's directory tree,
// with path resolution ("." / ".." / symlink following) and optional
// side-effecting writes mirrored onto a real on-disk directory. Nodes link
// parent and children with plain pointers; all access goes through the
// owning Tree value, which callers serialize.
package nstree

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/marmos91/remotefs/pkg/catalog"
	"github.com/marmos91/remotefs/pkg/permission"
	"github.com/marmos91/remotefs/pkg/rferrors"
)

// Kind tags what a Node represents.
type Kind int

const (
	KindDirectory Kind = iota
	KindFile
	KindSymlink
)

// Node is one entry in the namespace tree. Files hold their content in
// memory; the Host-FS Mirror, when enabled, keeps a same-shaped real
// directory in sync as a side effect of every mutation.
type Node struct {
	Name     string
	Kind     Kind
	Parent   *Node
	Children []*Node // only meaningful for directories

	Content []byte // only meaningful for regular files
	Target  string // only meaningful for symlinks

	Mode uint32 // unix-style permission bits, mirrors the METADATA row
}

// Tree is one user's namespace: an in-memory directory shadow, optionally
// mirrored onto a real directory on disk, with its metadata persisted in the
// shared Metadata Catalog keyed by the path relative to this tree's root (no
// per-user component in the key).
type Tree struct {
	root    *Node
	current *Node

	// realPath is the host directory this tree mirrors writes onto. Empty
	// disables the Host-FS Mirror and keeps the tree purely in-memory.
	realPath string

	catalog *catalog.Catalog
	gate    *permission.Gate
	userID  uint32
}

// New creates an empty tree rooted at "/", optionally backed by realPath on
// disk (pass "" to disable the Host-FS Mirror) and by a shared catalog for
// permission metadata.
func New(userID uint32, realPath string, cat *catalog.Catalog, gate *permission.Gate) *Tree {
	root := &Node{Name: "", Kind: KindDirectory, Mode: 0o755}
	return &Tree{root: root, current: root, realPath: realPath, catalog: cat, gate: gate, userID: userID}
}

// FromOnDisk walks realPath and populates the tree to mirror what's already
// there, creating a directory or file node for every entry it finds. The
// root itself is excluded from the walk.
func (t *Tree) FromOnDisk(realPath string) error {
	t.realPath = realPath

	return filepath.WalkDir(realPath, func(fsPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if fsPath == realPath {
			return nil
		}
		rel, err := filepath.Rel(realPath, fsPath)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		parentPath := path_(filepath.Dir(rel))
		name := filepath.Base(rel)

		parent, err := t.find(parentPath, t.root)
		if err != nil {
			return fmt.Errorf("walk %q: parent %q not yet registered: %w", rel, parentPath, err)
		}

		if d.IsDir() {
			parent.Children = append(parent.Children, &Node{Name: name, Kind: KindDirectory, Parent: parent, Mode: 0o755})
		} else {
			// An unreadable entry (e.g. a dangling symlink) loads as empty.
			content, _ := os.ReadFile(fsPath)
			parent.Children = append(parent.Children, &Node{
				Name: name, Kind: KindFile, Parent: parent, Mode: 0o644, Content: content,
			})
		}
		return nil
	})
}

func path_(dir string) string {
	if dir == "." {
		return ""
	}
	return dir
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Find resolves path against the tree root, following "." / ".." and
// symlinks used as intermediate components; a symlink that is the last
// component is returned as the link node itself. ".." at the root does not
// unwind further up; it reports the path as missing.
func (t *Tree) Find(path string) (*Node, error) {
	return t.find(path, t.root)
}

// FindRelative resolves path against base rather than the root; a nil base
// resolves against the tree's current working directory (see ChangeDir). An
// absolute path (leading "/") still restarts from the root.
func (t *Tree) FindRelative(path string, base *Node) (*Node, error) {
	if base == nil {
		base = t.current
	}
	return t.find(path, base)
}

func (t *Tree) find(path string, base *Node) (*Node, error) {
	current := base
	if strings.HasPrefix(path, "/") {
		current = t.root
	}

	for _, part := range splitPath(path) {
		switch current.Kind {
		case KindDirectory:
			switch part {
			case ".":
				// stay
			case "..":
				if current.Parent == nil {
					return nil, fmt.Errorf("%w: cannot go above root", rferrors.ErrMissing)
				}
				current = current.Parent
			default:
				child := childNamed(current, part)
				if child == nil {
					return nil, fmt.Errorf("%w: %q", rferrors.ErrMissing, path)
				}
				current = child
			}
		case KindSymlink:
			target, err := t.followLink(current)
			if err != nil {
				return nil, err
			}
			current = target
			// Re-consume this part against the resolved target.
			next, err := t.find(part, current)
			if err != nil {
				return nil, err
			}
			current = next
		case KindFile:
			return nil, fmt.Errorf("%w: %q is not a directory", rferrors.ErrInvalid, path)
		}
	}
	return current, nil
}

func childNamed(dir *Node, name string) *Node {
	for _, c := range dir.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// followLink resolves a symlink node to its target node, following chained
// symlinks. Relative targets resolve from the link's own parent directory.
func (t *Tree) followLink(link *Node) (*Node, error) {
	base := AbsPath(link.Parent)
	target, err := t.find(link.Target, mustFind(t, base))
	if err != nil {
		return nil, fmt.Errorf("%w: broken symlink %q -> %q", rferrors.ErrMissing, link.Name, link.Target)
	}
	if target.Kind == KindSymlink {
		return t.followLink(target)
	}
	return target, nil
}

func mustFind(t *Tree, path string) *Node {
	n, err := t.find(path, t.root)
	if err != nil {
		return t.root
	}
	return n
}

// AbsPath returns n's path from the tree root, slash-joined with no leading
// slash (matching the Metadata Catalog's normalized path keys).
func AbsPath(n *Node) string {
	if n == nil || n.Parent == nil {
		return ""
	}
	var parts []string
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		parts = append([]string{cur.Name}, parts...)
	}
	return strings.Join(parts, "/")
}

func (t *Tree) realPathFor(n *Node) string {
	return filepath.Join(t.realPath, filepath.FromSlash(AbsPath(n)))
}

// Gate returns the permission gate bound to this tree, so callers can check
// write access on a parent directory before calling MakeDir/MakeFile/Delete.
func (t *Tree) Gate() *permission.Gate { return t.gate }

// ChangeDir moves the tree's working directory cursor, used by commands
// expressed as relative paths.
func (t *Tree) ChangeDir(path string) error {
	n, err := t.Find(path)
	if err != nil {
		return err
	}
	if n.Kind != KindDirectory {
		return fmt.Errorf("%w: %q is not a directory", rferrors.ErrInvalid, path)
	}
	t.current = n
	return nil
}

// ListChildren returns the names of dirPath's direct children, sorted.
func (t *Tree) ListChildren(dirPath string) ([]string, error) {
	n, err := t.Find(dirPath)
	if err != nil {
		return nil, err
	}
	if n.Kind != KindDirectory {
		return nil, fmt.Errorf("%w: %q is not a directory", rferrors.ErrInvalid, dirPath)
	}
	names := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names, nil
}

// MakeDir creates a directory named name inside dirPath. The caller is
// responsible for having already checked write permission on dirPath
// (pkg/permission.Gate.CanWriteDir); MakeDir only refuses a name collision.
func (t *Tree) MakeDir(dirPath, name string, mode uint32) error {
	parent, err := t.Find(dirPath)
	if err != nil {
		return err
	}
	if parent.Kind != KindDirectory {
		return fmt.Errorf("%w: %q is not a directory", rferrors.ErrInvalid, dirPath)
	}
	if childNamed(parent, name) != nil {
		return fmt.Errorf("%w: %q already exists in %q", rferrors.ErrDuplicate, name, dirPath)
	}

	if t.realPath != "" {
		target := filepath.Join(t.realPathFor(parent), name)
		if err := os.Mkdir(target, os.FileMode(mode)); err != nil {
			return fmt.Errorf("%w: %v", rferrors.ErrIOFailure, err)
		}
	}

	node := &Node{Name: name, Kind: KindDirectory, Parent: parent, Mode: mode}
	parent.Children = append(parent.Children, node)

	fullPath := joinPath(dirPath, name)
	if err := t.catalog.Insert(fullPath, t.userID, mode, catalog.KindDirectory, 0); err != nil {
		return err
	}
	return nil
}

// MakeFile creates an empty regular file named name inside dirPath.
func (t *Tree) MakeFile(dirPath, name string, mode uint32) error {
	parent, err := t.Find(dirPath)
	if err != nil {
		return err
	}
	if parent.Kind != KindDirectory {
		return fmt.Errorf("%w: %q is not a directory", rferrors.ErrInvalid, dirPath)
	}
	if childNamed(parent, name) != nil {
		return fmt.Errorf("%w: %q already exists in %q", rferrors.ErrDuplicate, name, dirPath)
	}

	if t.realPath != "" {
		target := filepath.Join(t.realPathFor(parent), name)
		f, err := os.Create(target)
		if err != nil {
			return fmt.Errorf("%w: %v", rferrors.ErrIOFailure, err)
		}
		f.Close()
	}

	node := &Node{Name: name, Kind: KindFile, Parent: parent, Mode: mode}
	parent.Children = append(parent.Children, node)

	fullPath := joinPath(dirPath, name)
	return t.catalog.Insert(fullPath, t.userID, mode, catalog.KindFile, 0)
}

// MakeLink creates a symlink named name inside dirPath pointing at target.
func (t *Tree) MakeLink(dirPath, name, target string) error {
	parent, err := t.Find(dirPath)
	if err != nil {
		return err
	}
	if parent.Kind != KindDirectory {
		return fmt.Errorf("%w: %q is not a directory", rferrors.ErrInvalid, dirPath)
	}
	if childNamed(parent, name) != nil {
		return fmt.Errorf("%w: %q already exists in %q", rferrors.ErrDuplicate, name, dirPath)
	}

	if t.realPath != "" {
		linkPath := filepath.Join(t.realPathFor(parent), name)
		if err := os.Symlink(target, linkPath); err != nil {
			return fmt.Errorf("%w: %v", rferrors.ErrIOFailure, err)
		}
	}

	node := &Node{Name: name, Kind: KindSymlink, Parent: parent, Target: target, Mode: 0o777}
	parent.Children = append(parent.Children, node)
	return nil
}

// WriteFile overwrites (or, if absent, creates) the file at path with
// content. An existing file is overwritten directly; a missing one is
// created as a child of path's parent. Permission checks (parent write for
// create, node write for overwrite) are the caller's responsibility via
// pkg/permission.
func (t *Tree) WriteFile(path string, content []byte, mode uint32) error {
	n, err := t.Find(path)
	if err == nil {
		if n.Kind != KindFile {
			return fmt.Errorf("%w: %q is not a file", rferrors.ErrInvalid, path)
		}
		n.Content = content

		if t.realPath != "" {
			if err := os.WriteFile(t.realPathFor(n), content, os.FileMode(n.Mode)); err != nil {
				return fmt.Errorf("%w: %v", rferrors.ErrIOFailure, err)
			}
		}
		// A file loaded from disk may have no catalog row; the overwrite
		// above still stands.
		if err := t.catalog.UpdateSizeAndMTime(path, uint64(len(content))); err != nil && !errors.Is(err, rferrors.ErrMissing) {
			return err
		}
		return nil
	}

	dir, name := splitDirName(path)
	if err := t.MakeFile(dir, name, mode); err != nil {
		return err
	}
	return t.WriteFile(path, content, mode)
}

// ReadFile returns the in-memory content of the file at path.
func (t *Tree) ReadFile(path string) ([]byte, error) {
	n, err := t.Find(path)
	if err != nil {
		return nil, err
	}
	if n.Kind != KindFile {
		return nil, fmt.Errorf("%w: %q is not a file", rferrors.ErrInvalid, path)
	}
	return n.Content, nil
}

// Rename changes the last path component of the node at path to newName: a
// name change within the same parent, not a full move across directories.
func (t *Tree) Rename(path, newName string) error {
	n, err := t.Find(path)
	if err != nil {
		return err
	}

	oldFull := AbsPath(n)

	if t.realPath != "" {
		oldReal := t.realPathFor(n)
		newReal := filepath.Join(filepath.Dir(oldReal), newName)
		if err := os.Rename(oldReal, newReal); err != nil {
			return fmt.Errorf("%w: %v", rferrors.ErrIOFailure, err)
		}
	}

	n.Name = newName
	newFull := AbsPath(n)
	return t.catalog.Rename(oldFull, newFull)
}

// Delete removes the node at path from the tree, the real filesystem (if
// mirrored) and the catalog. Files and symlinks are unlinked; directories
// are removed recursively.
func (t *Tree) Delete(path string) error {
	n, err := t.Find(path)
	if err != nil {
		return err
	}
	if n.Parent == nil {
		return fmt.Errorf("%w: cannot delete the root", rferrors.ErrInvalid)
	}

	if t.realPath != "" {
		real := t.realPathFor(n)
		var rmErr error
		if n.Kind == KindDirectory {
			rmErr = os.RemoveAll(real)
		} else {
			rmErr = os.Remove(real)
		}
		if rmErr != nil {
			return fmt.Errorf("%w: %v", rferrors.ErrIOFailure, rmErr)
		}
	}

	if err := t.catalog.DeleteSubtree(AbsPath(n)); err != nil {
		return err
	}

	parent := n.Parent
	for i, c := range parent.Children {
		if c == n {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			break
		}
	}
	return nil
}

func splitDirName(path string) (dir, name string) {
	path = strings.TrimPrefix(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

func joinPath(dir, name string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// Touch stamps the metadata row for path with the current time, used when a
// write happens without a content-size change (e.g. a chmod).
func (t *Tree) Touch(path string) error {
	row, err := t.catalog.Lookup(path)
	if err != nil {
		return err
	}
	return t.catalog.UpdateSizeAndMTime(path, row.Size)
}
