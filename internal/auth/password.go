package auth

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies secrets.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// BcryptHasher is the production hasher. Zero Cost means bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

// Hash hashes plaintext password using bcrypt.
func (h BcryptHasher) Hash(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify compares plaintext password with stored hash.
func (h BcryptHasher) Verify(hash, password string) error {
	if hash == "" {
		return errors.New("password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// RandomSecret returns an unguessable throwaway password for accounts that must
// define their own before first login.
func RandomSecret() string {
	return uuid.NewString()
}
