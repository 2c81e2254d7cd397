package identity

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sgisi-platform/go-core/internal/store"
)

const (
	// bcryptCost trades roughly 250ms per hash for brute-force resistance
	bcryptCost = 12

	minPasswordLength = 8
)

// ValidatePassword checks a candidate password against the minimum policy
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long",
			store.ErrInvalidInput, minPasswordLength)
	}
	return nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a candidate password against a stored hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
