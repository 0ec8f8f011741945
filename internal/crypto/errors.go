package crypto

import "errors"

var (
	// ErrEmptyPassword is returned when key derivation is attempted
	// with an empty password.
	ErrEmptyPassword = errors.New("password must not be empty")

	// ErrEmptySalt is returned when key derivation is attempted with
	// an empty email salt.
	ErrEmptySalt = errors.New("email salt must not be empty")

	// ErrInvalidKeySize is returned when a symmetric key has the wrong size.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrMalformedCiphertext is returned when a ciphertext is not valid
	// transport encoding or too short to contain a nonce and tag.
	// Distinct from ErrDecryptionFailed so callers can tell corrupted
	// transport data from an authentication failure.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")

	// ErrDecryptionFailed is returned when AEAD authentication fails.
	// Wrong key, truncated data and tampered data are indistinguishable.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidPublicKey is returned when a transported public key
	// cannot be parsed.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidPrivateKey is returned when a private key cannot be
	// parsed after unwrapping.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrUnwrapFailed is returned when RSA-OAEP unwrapping of an org
	// key fails.
	ErrUnwrapFailed = errors.New("org key unwrap failed")

	// ErrInvalidRecoveryKey is returned when a recovery key string
	// cannot be parsed or has the wrong length.
	ErrInvalidRecoveryKey = errors.New("invalid recovery key")
)
