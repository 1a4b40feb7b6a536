package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the longest input bcrypt accepts
const maxPasswordBytes = 72

// Hasher hashes and verifies player passwords with bcrypt
type Hasher struct {
	cost int
}

// NewHasher returns a hasher using the given bcrypt cost. Out of range
// costs fall back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// prepare maps passwords longer than bcrypt's limit to their hex SHA-256 digest
func prepare(password string) []byte {
	if len(password) <= maxPasswordBytes {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}

// Hash hashes a password of any length
func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(prepare(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A stored value that is not
// a bcrypt hash never matches.
func (h *Hasher) Verify(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), prepare(password))
	var prefixErr bcrypt.InvalidHashPrefixError
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrHashTooShort),
		errors.As(err, &prefixErr):
		return false, nil
	default:
		return false, fmt.Errorf("verifying password: %w", err)
	}
}
