// Package permission implements the owner/others read-write check consulted
// before a mutation lands or a listing entry is shown.
package permission

import (
	"errors"
	"fmt"

	"github.com/marmos91/remotefs/pkg/catalog"
	"github.com/marmos91/remotefs/pkg/rferrors"
)

// Gate consults the metadata catalog to answer read/write questions. Group
// permission bits exist in the schema but are reserved until a group
// membership model exists: every check collapses to "owner" vs "everyone
// else" (others).
type Gate struct {
	catalog *catalog.Catalog
}

// New wraps a catalog for permission checks.
func New(cat *catalog.Catalog) *Gate {
	return &Gate{catalog: cat}
}

// CanRead reports whether userID may read path. A path with no metadata row
// is permitted for compatibility with nodes that predate the catalog: the
// in-memory namespace tree may contain directories rebuilt from an on-disk
// mirror walk that were never given explicit permissions.
func (g *Gate) CanRead(path string, userID uint32) (bool, error) {
	row, err := g.catalog.Lookup(path)
	if errors.Is(err, rferrors.ErrMissing) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return row.CanRead(userID), nil
}

// CanWriteDir reports whether userID may create or remove an entry inside
// the directory at dirPath. Missing metadata permits the write, the same
// legacy-data fallback CanRead applies. Returns
// rferrors.ErrInvalid if dirPath names a file rather than a directory.
func (g *Gate) CanWriteDir(dirPath string, userID uint32) (bool, error) {
	row, err := g.catalog.Lookup(dirPath)
	if errors.Is(err, rferrors.ErrMissing) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if row.Kind != catalog.KindDirectory {
		return false, fmt.Errorf("%w: %q is not a directory", rferrors.ErrInvalid, dirPath)
	}
	return row.CanWrite(userID), nil
}

// CatalogRow exposes the underlying metadata row for path, so handlers can
// build a FileInfo response without a second permission-unaware lookup path.
func (g *Gate) CatalogRow(path string) (catalog.Row, error) {
	return g.catalog.Lookup(path)
}

// CanWriteNode reports whether userID may overwrite the content of the node
// already at path. Creating a brand-new file is gated by CanWriteDir on its
// parent instead; overwriting an existing file is gated by the file's own
// permissions here. Missing metadata permits the write.
func (g *Gate) CanWriteNode(path string, userID uint32) (bool, error) {
	row, err := g.catalog.Lookup(path)
	if errors.Is(err, rferrors.ErrMissing) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return row.CanWrite(userID), nil
}
