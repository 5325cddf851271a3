// Package catalog persists per-node metadata in the path-keyed METADATA
// table: owner, permission bits, size and timestamps.
package catalog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/marmos91/remotefs/pkg/rferrors"
)

// Kind distinguishes a file row from a directory row.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

// Row is a single METADATA entry, keyed by the node's full path from the
// user's root. Stored paths never carry a leading slash.
type Row struct {
	Path string `gorm:"column:path;primaryKey"`

	UserID uint32 `gorm:"column:user_id;index"`

	UserPermissions   uint8 `gorm:"column:user_permissions"`
	GroupPermissions  uint8 `gorm:"column:group_permissions"`
	OthersPermissions uint8 `gorm:"column:others_permissions"`

	Size uint64 `gorm:"column:size"`

	CreatedAt    string `gorm:"column:created_at"`
	LastModified string `gorm:"column:last_modified"`

	Kind Kind `gorm:"column:type"`
}

// TableName pins the GORM table name to METADATA.
func (Row) TableName() string { return "METADATA" }

// Catalog is the in-process handle to the METADATA table. Reads and writes
// go straight to the database; the tree layer (pkg/nstree) holds the
// authoritative in-memory shape and calls here to persist changes.
type Catalog struct {
	db *gorm.DB
	mu sync.Mutex
}

// New migrates the METADATA table and returns a handle.
func New(db *gorm.DB) (*Catalog, error) {
	if err := db.AutoMigrate(&Row{}); err != nil {
		return nil, fmt.Errorf("migrate METADATA table: %w", err)
	}
	return &Catalog{db: db}, nil
}

func normalize(path string) string {
	return strings.Trim(path, "/")
}

// permBits splits a unix-style 0-7 octal triplet into (user, group, others).
func permBits(mode uint32) (user, group, others uint8) {
	return uint8((mode >> 6) & 0o7), uint8((mode >> 3) & 0o7), uint8(mode & 0o7)
}

// Insert creates a METADATA row for path with the given owner and unix mode
// (e.g. 0o755). created_at and last_modified are stamped to now.
func (c *Catalog) Insert(path string, userID uint32, mode uint32, kind Kind, size uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, g, o := permBits(mode)
	now := time.Now().UTC().Format(time.RFC3339)

	row := Row{
		Path:              normalize(path),
		UserID:            userID,
		UserPermissions:   u,
		GroupPermissions:  g,
		OthersPermissions: o,
		Size:              size,
		CreatedAt:         now,
		LastModified:      now,
		Kind:              kind,
	}
	if err := c.db.Create(&row).Error; err != nil {
		return fmt.Errorf("%w: insert metadata for %q: %v", rferrors.ErrIOFailure, path, err)
	}
	return nil
}

// Lookup returns the row for path, or rferrors.ErrMissing.
func (c *Catalog) Lookup(path string) (Row, error) {
	var row Row
	err := c.db.Where("path = ?", normalize(path)).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return Row{}, rferrors.ErrMissing
		}
		return Row{}, fmt.Errorf("%w: lookup metadata for %q: %v", rferrors.ErrIOFailure, path, err)
	}
	return row, nil
}

// UpdateSizeAndMTime bumps size and last_modified for an existing row, used
// after a write_file call changes a file's content.
func (c *Catalog) UpdateSizeAndMTime(path string, size uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	res := c.db.Model(&Row{}).Where("path = ?", normalize(path)).
		Updates(map[string]interface{}{"size": size, "last_modified": now})
	if res.Error != nil {
		return fmt.Errorf("%w: update metadata for %q: %v", rferrors.ErrIOFailure, path, res.Error)
	}
	if res.RowsAffected == 0 {
		return rferrors.ErrMissing
	}
	return nil
}

// Rename moves a row (and, for a directory, every row nested under it) from
// oldPath to newPath by rewriting the path column for the node and for
// every descendant whose path is prefixed by the old one.
func (c *Catalog) Rename(oldPath, newPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	oldPath, newPath = normalize(oldPath), normalize(newPath)

	var rows []Row
	prefix := oldPath + "/"
	if err := c.db.Where("path = ? OR path LIKE ?", oldPath, prefix+"%").Find(&rows).Error; err != nil {
		return fmt.Errorf("%w: find rows under %q: %v", rferrors.ErrIOFailure, oldPath, err)
	}

	for _, r := range rows {
		newRowPath := newPath + strings.TrimPrefix(r.Path, oldPath)
		if err := c.db.Model(&Row{}).Where("path = ?", r.Path).Update("path", newRowPath).Error; err != nil {
			return fmt.Errorf("%w: rename metadata row %q: %v", rferrors.ErrIOFailure, r.Path, err)
		}
	}
	return nil
}

// DeleteSubtree removes path's row and, recursively, every row whose path
// has path + "/" as a prefix.
func (c *Catalog) DeleteSubtree(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path = normalize(path)
	prefix := path + "/%"
	if err := c.db.Where("path = ? OR path LIKE ?", path, prefix).Delete(&Row{}).Error; err != nil {
		return fmt.Errorf("%w: delete metadata under %q: %v", rferrors.ErrIOFailure, path, err)
	}
	return nil
}

// ListUnder returns the rows for entries directly inside dir (not nested
// further): a LIKE-prefix scan over the whole subtree followed by a suffix
// filter that rejects any path with a further slash past the directory
// prefix.
func (c *Catalog) ListUnder(dir string) ([]Row, error) {
	dir = normalize(dir)

	pattern := "%"
	if dir != "" {
		pattern = dir + "%"
	}

	var candidates []Row
	if err := c.db.Where("path LIKE ?", pattern).Order("path").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("%w: list metadata under %q: %v", rferrors.ErrIOFailure, dir, err)
	}

	var out []Row
	for _, row := range candidates {
		var include bool
		if dir == "" {
			include = !strings.Contains(row.Path, "/")
		} else {
			prefix := dir + "/"
			include = strings.HasPrefix(row.Path, prefix) &&
				!strings.Contains(row.Path[len(prefix):], "/")
		}
		if include {
			out = append(out, row)
		}
	}
	return out, nil
}

// CanRead reports whether userID may read a node owned by row.UserID: the
// owner is gated by the user bits, everyone else by the others bits. Group
// bits are reserved and never consulted.
func (row Row) CanRead(userID uint32) bool {
	if row.UserID == userID {
		return row.UserPermissions&4 != 0
	}
	return row.OthersPermissions&4 != 0
}

// CanWrite reports whether userID may write a node owned by row.UserID.
func (row Row) CanWrite(userID uint32) bool {
	if row.UserID == userID {
		return row.UserPermissions&2 != 0
	}
	return row.OthersPermissions&2 != 0
}

// Mode reassembles the unix-style octal mode from the three permission
// triplets, the inverse of permBits.
func (row Row) Mode() uint32 {
	return uint32(row.UserPermissions)<<6 | uint32(row.GroupPermissions)<<3 | uint32(row.OthersPermissions)
}
