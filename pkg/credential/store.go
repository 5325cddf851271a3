// Package credential persists registered users in the USER table, hashes
// passwords with bcrypt, and keeps an in-memory mirror for fast lookup.
package credential

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/marmos91/remotefs/pkg/rferrors"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

// BcryptCost is the slow-KDF cost factor for password hashing.
const BcryptCost = bcrypt.DefaultCost

// User is the persisted row backing the USER table.
type User struct {
	UserID       uint32 `gorm:"column:user_id;primaryKey;autoIncrement"`
	Username     string `gorm:"column:username;uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`
}

// TableName pins the GORM table name to USER.
func (User) TableName() string { return "USER" }

// Store is the credential store: USER table persistence plus an in-memory
// mirror for lookup speed, loaded once at startup.
type Store struct {
	db *gorm.DB

	mu     sync.RWMutex
	byName map[string]User
}

// New loads the in-memory mirror from the USER table and returns a Store.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("migrate USER table: %w", err)
	}

	s := &Store{db: db, byName: make(map[string]User)}
	var rows []User
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, u := range rows {
		s.byName[u.Username] = u
	}
	return s, nil
}

// Register hashes password with bcrypt and inserts a new USER row. Returns
// rferrors.ErrDuplicate if the username is already taken, rferrors.ErrInvalid
// if the password is too short.
func (s *Store) Register(username, password string) (uint32, error) {
	if username == "" {
		return 0, fmt.Errorf("%w: username must not be empty", rferrors.ErrInvalid)
	}
	if len(password) < MinPasswordLength {
		return 0, fmt.Errorf("%w: password must be at least %d characters", rferrors.ErrInvalid, MinPasswordLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[username]; exists {
		return 0, fmt.Errorf("%w: username %q already registered", rferrors.ErrDuplicate, username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return 0, fmt.Errorf("%w: hash password: %v", rferrors.ErrInternal, err)
	}

	user := User{Username: username, PasswordHash: string(hash)}
	if err := s.db.Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return 0, fmt.Errorf("%w: username %q already registered", rferrors.ErrDuplicate, username)
		}
		return 0, fmt.Errorf("%w: %v", rferrors.ErrIOFailure, err)
	}

	s.byName[username] = user
	return user.UserID, nil
}

// Find returns the stored tuple for username, or rferrors.ErrMissing.
func (s *Store) Find(username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byName[username]
	if !ok {
		return User{}, rferrors.ErrMissing
	}
	return u, nil
}

// Authenticate verifies password against the stored hash for username.
func (s *Store) Authenticate(username, password string) (User, error) {
	u, err := s.Find(username)
	if err != nil {
		return User{}, fmt.Errorf("%w: invalid username or password", rferrors.ErrUnauthenticated)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, fmt.Errorf("%w: invalid username or password", rferrors.ErrUnauthenticated)
	}

	return u, nil
}

// Username resolves a user id back to a username, used when attributing
// catalog rows ("owner") to a display name. Returns "" if unknown.
func (s *Store) Username(userID uint32) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byName {
		if u.UserID == userID {
			return u.Username
		}
	}
	return ""
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
