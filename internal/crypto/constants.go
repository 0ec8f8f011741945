package crypto

const (
	// KDFIterations is the PBKDF2 iteration count for master key
	// derivation. The same value is reported to the server as
	// kdf_iterations so it can validate and record the work factor.
	KDFIterations = 600_000

	// MasterKeySize is the size of the derived master key in bytes.
	MasterKeySize = 32

	// StretchedKeySize is the size of the HKDF-stretched wrapping key in bytes.
	StretchedKeySize = 32

	// OrgKeySize is the size of an organization key in bytes (AES-256).
	OrgKeySize = 32

	// RecoveryKeySize is the size of a recovery key in bytes.
	RecoveryKeySize = 32

	// GCMNonceSize is the size of an AES-GCM nonce in bytes.
	GCMNonceSize = 12

	// GCMTagSize is the size of an AES-GCM authentication tag in bytes.
	GCMTagSize = 16

	// RSAKeyBits is the modulus size for generated identity keypairs.
	RSAKeyBits = 2048
)

// HKDF domain-separation info strings. Stretching and recovery wrapping
// must never produce the same key from the same input material.
const (
	hkdfInfoStretch  = "orgvault:stretch:v2"
	hkdfInfoRecovery = "orgvault:recovery:v2"
)
