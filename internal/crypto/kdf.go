package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// NormalizeEmail canonicalizes an email address for use as a derivation
// salt. Derivation must be repeatable from the login form alone, so the
// salt is the email itself, trimmed and lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DeriveMasterKey derives the master key from a password and email via
// PBKDF2-HMAC-SHA256 with the given iteration count. Deterministic per
// (password, email) pair; no separately stored salt.
func DeriveMasterKey(password, email string, iterations int) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	salt := NormalizeEmail(email)
	if salt == "" {
		return nil, ErrEmptySalt
	}
	if iterations <= 0 {
		iterations = KDFIterations
	}
	return pbkdf2.Key([]byte(password), []byte(salt), iterations, MasterKeySize, sha256.New), nil
}

// StretchKey derives the private-key wrapping key from the master key via
// HKDF-SHA-512. Kept distinct from the master password hash so that a
// leaked verification hash yields no encryption material.
func StretchKey(masterKey []byte) ([]byte, error) {
	return expand(masterKey, hkdfInfoStretch, StretchedKeySize)
}

// RecoveryWrapKey derives the AES wrapping key for the recovery path from
// a raw recovery key.
func RecoveryWrapKey(recoveryKey []byte) ([]byte, error) {
	if len(recoveryKey) != RecoveryKeySize {
		return nil, ErrInvalidRecoveryKey
	}
	return expand(recoveryKey, hkdfInfoRecovery, StretchedKeySize)
}

// HashMasterPassword produces the one-way verification value sent to the
// server for authentication: a single PBKDF2 round over the master key
// with the password as salt. The master key itself costs KDFIterations
// rounds, so the hash is not invertible into either input.
func HashMasterPassword(masterKey []byte, password string) (string, error) {
	if len(masterKey) != MasterKeySize {
		return "", fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(masterKey), MasterKeySize)
	}
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash := pbkdf2.Key(masterKey, []byte(password), 1, MasterKeySize, sha256.New)
	return ToBase64(hash), nil
}

func expand(secret []byte, info string, length int) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidKeySize
	}
	reader := hkdf.New(sha512.New, secret, nil, []byte(info))
	key := make([]byte, length)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}
