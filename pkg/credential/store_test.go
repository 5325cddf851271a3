package credential

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/marmos91/remotefs/pkg/rferrors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	s, err := New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestRegisterThenLogin(t *testing.T) {
	s := newTestStore(t)

	userID, err := s.Register("alice", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if userID == 0 {
		t.Fatalf("expected non-zero user id")
	}

	u, err := s.Authenticate("alice", "secret1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.UserID != userID {
		t.Errorf("user id mismatch: got %d want %d", u.UserID, userID)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Register("bob", "password1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := s.Register("bob", "password2")
	if !errors.Is(err, rferrors.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestRegisterPasswordTooShort(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Register("carl", "abc")
	if !errors.Is(err, rferrors.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Register("dana", "correcthorse"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := s.Authenticate("dana", "wrongpassword")
	if !errors.Is(err, rferrors.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestFindMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Find("nobody")
	if !errors.Is(err, rferrors.ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
}
