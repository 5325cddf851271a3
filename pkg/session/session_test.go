package session

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/marmos91/remotefs/pkg/catalog"
	"github.com/marmos91/remotefs/pkg/permission"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	cat, err := catalog.New(db)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	gate := permission.New(cat)
	return New(t.TempDir(), cat, gate)
}

func TestTreeIsCachedPerUser(t *testing.T) {
	m := newTestManager(t)

	t1, err := m.Tree("alice", 1)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	t2, err := m.Tree("alice", 1)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if t1 != t2 {
		t.Error("expected cached tree to be reused")
	}
}

func TestTreesAreIsolatedPerUser(t *testing.T) {
	m := newTestManager(t)

	alice, err := m.Tree("alice", 1)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	bob, err := m.Tree("bob", 2)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if alice == bob {
		t.Error("expected distinct trees for distinct users")
	}

	if err := alice.MakeFile("", "only-alice.txt", 0o644); err != nil {
		t.Fatalf("make file: %v", err)
	}
	if _, err := bob.Find("only-alice.txt"); err == nil {
		t.Error("bob's tree should not see alice's file")
	}
}

func TestInvalidateForcesRebuild(t *testing.T) {
	m := newTestManager(t)

	t1, err := m.Tree("alice", 1)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	m.Invalidate(1)
	t2, err := m.Tree("alice", 1)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if t1 == t2 {
		t.Error("expected a fresh tree after invalidate")
	}
}
