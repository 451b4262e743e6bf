// Package auth covers the two credential concerns of the system: stateless
// JWT access tokens for sessions, and bcrypt password verification, which is
// also the digital-signature step behind receipt confirmation.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "sipro/pkg/domain-errors"
)

// HashCredential creates a bcrypt hash of the provided password.
func HashCredential(plain string) (string, error) {
	if plain == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyCredential checks a plaintext password against a bcrypt hash. A
// mismatch returns a CodeAuthentication error, which transports must report
// as a failed signature (400), never as an expired session (401).
func VerifyCredential(plain, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeAuthentication, "incorrect password, signature failed")
		}
		return fmt.Errorf("could not verify password: %w", err)
	}
	return nil
}

// CredentialVerifier adapts VerifyCredential for injection into the
// lifecycle engine.
type CredentialVerifier struct{}

func (CredentialVerifier) Verify(plain, hash string) error {
	return VerifyCredential(plain, hash)
}
