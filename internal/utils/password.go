package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

const dummyPassword = "hrms-identity-dummy-password"

// PasswordChecker verifies passwords so that a missing account or a missing
// hash costs one bcrypt comparison, the same as a wrong password.
type PasswordChecker struct {
	dummy   []byte
	compare func(hash, plaintext []byte) error
}

// PasswordCheckerOption configures a PasswordChecker
type PasswordCheckerOption func(*PasswordChecker)

// WithCompareFunc replaces bcrypt.CompareHashAndPassword, mainly for tests
func WithCompareFunc(compare func(hash, plaintext []byte) error) PasswordCheckerOption {
	return func(c *PasswordChecker) {
		c.compare = compare
	}
}

// NewPasswordChecker precomputes a dummy hash at cost so that dummy
// comparisons take as long as real ones.
func NewPasswordChecker(cost int, opts ...PasswordCheckerOption) (*PasswordChecker, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to build dummy password hash: %w", err)
	}

	c := &PasswordChecker{dummy: dummy, compare: bcrypt.CompareHashAndPassword}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Verify reports whether plaintext matches hash. A nil or empty hash is
// compared against the dummy hash and never matches.
func (c *PasswordChecker) Verify(hash *string, plaintext string) bool {
	if hash == nil || *hash == "" {
		c.CompareDummy(plaintext)
		return false
	}
	return c.compare([]byte(*hash), []byte(plaintext)) == nil
}

// CompareDummy burns one comparison against the dummy hash. It never matches.
func (c *PasswordChecker) CompareDummy(plaintext string) {
	// The result is irrelevant; only the time spent matters.
	_ = c.compare(c.dummy, []byte(plaintext))
}
