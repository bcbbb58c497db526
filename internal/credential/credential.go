// Package credential hashes and verifies the optional access passwords of videos.
package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Scheme names accepted by NewHasher.
const (
	SchemeSHA256 = "sha256"
	SchemeBcrypt = "bcrypt"
)

var sha256HexRegex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Hash returns the lowercase hex SHA-256 digest of password. It is unsalted and
// always 64 characters long.
func Hash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Hasher produces the stored form of a password and checks candidates against it.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, stored string) bool
}

// NewHasher returns the hasher for the given scheme name.
func NewHasher(scheme string) (Hasher, error) {
	switch strings.ToLower(scheme) {
	case "", SchemeSHA256:
		return SHA256Hasher{}, nil
	case SchemeBcrypt:
		return BcryptHasher{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme %q", scheme)
	}
}

// SHA256Hasher stores plain SHA-256 hex digests.
type SHA256Hasher struct{}

// Hash implements Hasher.
func (SHA256Hasher) Hash(password string) (string, error) {
	return Hash(password), nil
}

// Verify implements Hasher.
func (SHA256Hasher) Verify(password, stored string) bool {
	return verifySHA256(password, stored)
}

// BcryptHasher stores salted bcrypt hashes. Verify also accepts SHA-256 digests
// written by SHA256Hasher.
type BcryptHasher struct {
	Cost int
}

// Hash implements Hasher.
func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify implements Hasher.
func (BcryptHasher) Verify(password, stored string) bool {
	if sha256HexRegex.MatchString(stored) {
		return verifySHA256(password, stored)
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

func verifySHA256(password, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(password)), []byte(stored)) == 1
}
