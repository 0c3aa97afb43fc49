package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier defines the interface for comparing passwords.
type PasswordVerifier interface {
	// Compare compares a hashed password with its possible plaintext equivalent.
	// Returns nil on success, or an error on failure (e.g., mismatch).
	Compare(hashedPassword, password string) error
}

// BcryptVerifier implements PasswordVerifier using bcrypt.
type BcryptVerifier struct{}

// NewBcryptVerifier creates a new BcryptVerifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Compare implements the PasswordVerifier interface using bcrypt.
func (v *BcryptVerifier) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// HashPassword produces a bcrypt hash suitable for auth.admin_password_hash.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// AdminAuthenticator checks the single admin password.
type AdminAuthenticator struct {
	hash     string
	verifier PasswordVerifier
}

// NewAdminAuthenticator creates an authenticator for the configured hash
func NewAdminAuthenticator(hash string, verifier PasswordVerifier) *AdminAuthenticator {
	return &AdminAuthenticator{hash: hash, verifier: verifier}
}

// Authenticate returns ErrInvalidCredentials unless password matches.
func (a *AdminAuthenticator) Authenticate(password string) error {
	if password == "" || a.hash == "" {
		return ErrInvalidCredentials
	}
	if err := a.verifier.Compare(a.hash, password); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
