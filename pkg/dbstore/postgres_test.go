package dbstore

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/marmos91/remotefs/pkg/catalog"
	"github.com/marmos91/remotefs/pkg/credential"
	"github.com/marmos91/remotefs/pkg/rferrors"
)

// openSharedPostgres connects to the shared container through the same
// Open() path the server uses, so the Postgres dialector wiring itself is
// under test, not just the stores.
func openSharedPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if sharedPostgres == nil {
		t.Skip("postgres container not available")
	}

	db, err := Open(Config{
		Type: TypePostgres,
		Postgres: PostgresConfig{
			Host:     sharedPostgres.host,
			Port:     sharedPostgres.port,
			Database: "remotefs_test",
			User:     "remotefs_test",
			Password: "remotefs_test",
			SSLMode:  "disable",
		},
	})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	return db
}

func TestPostgresCatalogRoundTrip(t *testing.T) {
	db := openSharedPostgres(t)

	cat, err := catalog.New(db)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}

	if err := cat.Insert("pg-docs/readme.txt", 1, 0o644, catalog.KindFile, 64); err != nil {
		t.Fatalf("insert: %v", err)
	}

	row, err := cat.Lookup("pg-docs/readme.txt")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if row.Size != 64 || row.Mode() != 0o644 {
		t.Errorf("unexpected row: %+v", row)
	}

	if err := cat.DeleteSubtree("pg-docs"); err != nil {
		t.Fatalf("delete subtree: %v", err)
	}
	if _, err := cat.Lookup("pg-docs/readme.txt"); !errors.Is(err, rferrors.ErrMissing) {
		t.Fatalf("expected row gone after subtree delete, got %v", err)
	}
}

func TestPostgresCatalogListUnder(t *testing.T) {
	db := openSharedPostgres(t)

	cat, err := catalog.New(db)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	must(cat.Insert("pg-list", 1, 0o755, catalog.KindDirectory, 0))
	must(cat.Insert("pg-list/a.txt", 1, 0o644, catalog.KindFile, 1))
	must(cat.Insert("pg-list/sub", 1, 0o755, catalog.KindDirectory, 0))
	must(cat.Insert("pg-list/sub/deep.txt", 1, 0o644, catalog.KindFile, 2))

	under, err := cat.ListUnder("pg-list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(under) != 2 {
		t.Fatalf("expected 2 direct children of pg-list, got %d: %+v", len(under), under)
	}
	for _, row := range under {
		if row.Path == "pg-list/sub/deep.txt" {
			t.Errorf("nested row leaked into direct listing: %+v", row)
		}
	}
}

func TestPostgresCredentialRegisterAndAuthenticate(t *testing.T) {
	db := openSharedPostgres(t)

	users, err := credential.New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	userID, err := users.Register("pg-alice", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if userID == 0 {
		t.Fatal("expected non-zero user id")
	}

	u, err := users.Authenticate("pg-alice", "secret1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.UserID != userID {
		t.Errorf("user id mismatch: got %d want %d", u.UserID, userID)
	}
}

func TestPostgresCredentialDuplicateHitsUniqueIndex(t *testing.T) {
	db := openSharedPostgres(t)

	users, err := credential.New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	// A second store built before the first register has no pg-bob in its
	// in-memory mirror, so its own register attempt must be stopped by the
	// database's UNIQUE constraint, not the mirror check.
	users2, err := credential.New(db)
	if err != nil {
		t.Fatalf("second store: %v", err)
	}

	if _, err := users.Register("pg-bob", "password1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := users2.Register("pg-bob", "password2"); !errors.Is(err, rferrors.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate from unique index, got %v", err)
	}
}
