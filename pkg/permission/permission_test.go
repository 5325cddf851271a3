package permission

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/marmos91/remotefs/pkg/catalog"
)

func newTestGate(t *testing.T) (*Gate, *catalog.Catalog) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	cat, err := catalog.New(db)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	return New(cat), cat
}

func TestCanReadMissingRowPermits(t *testing.T) {
	g, _ := newTestGate(t)

	ok, err := g.CanRead("nowhere", 1)
	if err != nil {
		t.Fatalf("can read: %v", err)
	}
	if !ok {
		t.Error("missing row should permit read")
	}
}

func TestCanWriteDirOwnerVsOthers(t *testing.T) {
	g, cat := newTestGate(t)

	if err := cat.Insert("private", 1, 0o700, catalog.KindDirectory, 0); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ok, err := g.CanWriteDir("private", 1)
	if err != nil || !ok {
		t.Errorf("owner should be able to write, ok=%v err=%v", ok, err)
	}

	ok, err = g.CanWriteDir("private", 2)
	if err != nil {
		t.Fatalf("can write dir: %v", err)
	}
	if ok {
		t.Error("non-owner should not be able to write into 0700 directory")
	}
}

func TestCanWriteDirRejectsFile(t *testing.T) {
	g, cat := newTestGate(t)

	if err := cat.Insert("a.txt", 1, 0o644, catalog.KindFile, 0); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := g.CanWriteDir("a.txt", 1); err == nil {
		t.Fatal("expected error writing into a file path")
	}
}

func TestCanWriteNodeRespectsOthersBit(t *testing.T) {
	g, cat := newTestGate(t)

	if err := cat.Insert("shared.txt", 1, 0o644, catalog.KindFile, 0); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ok, err := g.CanWriteNode("shared.txt", 2)
	if err != nil {
		t.Fatalf("can write node: %v", err)
	}
	if ok {
		t.Error("others should not be able to write a 0644 file")
	}
}
