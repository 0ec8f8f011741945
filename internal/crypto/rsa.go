package crypto

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
)

// Keypair is a user's RSA-2048 identity keypair. The public key travels
// to the server; the private key only ever leaves the process wrapped.
type Keypair struct {
	Private *rsa.PrivateKey
	// PublicKeyB64 is the PKIX-DER public key encoded as base64, the
	// transport form stored in the user row.
	PublicKeyB64 string
}

// GenerateKeypair creates a new RSA-2048 identity keypair.
func GenerateKeypair() (*Keypair, error) {
	priv, err := rsa.GenerateKey(rng(), RSAKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}

	pub, err := ExportPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}

	return &Keypair{Private: priv, PublicKeyB64: pub}, nil
}

// ExportPublicKey serializes a public key to its base64 PKIX-DER transport form.
func ExportPublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("export public key: %w", err)
	}
	return ToBase64(der), nil
}

// ImportPublicKey parses a base64 PKIX-DER transport string into a public key.
func ImportPublicKey(encoded string) (*rsa.PublicKey, error) {
	der, err := FromBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPublicKey)
	}
	if pub.Size()*8 < RSAKeyBits {
		return nil, fmt.Errorf("%w: modulus below %d bits", ErrInvalidPublicKey, RSAKeyBits)
	}
	return pub, nil
}

// EncryptPrivateKey wraps a private key with AES-256-GCM under the given
// wrapping key (the stretched password key or the recovery wrap key) and
// returns the base64 transport string.
func EncryptPrivateKey(kp *Keypair, wrappingKey []byte) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(kp.Private)
	if err != nil {
		return "", fmt.Errorf("marshal private key: %w", err)
	}
	blob, err := EncryptGCM(wrappingKey, der)
	if err != nil {
		return "", err
	}
	return ToBase64(blob), nil
}

// DecryptPrivateKey unwraps a private key transport string. A wrong
// wrapping key fails authentication and returns ErrDecryptionFailed;
// callers surface that as an authentication failure, never as a
// distinguishable unwrap error.
func DecryptPrivateKey(encoded string, wrappingKey []byte) (*Keypair, error) {
	blob, err := FromBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	der, err := DecryptGCM(wrappingKey, blob)
	if err != nil {
		return nil, err
	}

	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPrivateKey)
	}

	pub, err := ExportPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	return &Keypair{Private: priv, PublicKeyB64: pub}, nil
}

// WrapOrgKey encrypts an org key for one recipient with RSA-OAEP-SHA256
// under that recipient's public key. This is the envelope step of the
// key ceremony: one plaintext secret, one independent ciphertext per member.
func WrapOrgKey(pub *rsa.PublicKey, orgKey []byte) (string, error) {
	if len(orgKey) != OrgKeySize {
		return "", fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(orgKey), OrgKeySize)
	}
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rng(), pub, orgKey, nil)
	if err != nil {
		return "", fmt.Errorf("wrap org key: %w", err)
	}
	return ToBase64(ciphertext), nil
}

// UnwrapOrgKey decrypts a member's org key envelope with their private key.
func UnwrapOrgKey(kp *Keypair, encoded string) ([]byte, error) {
	ciphertext, err := FromBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnwrapFailed, err)
	}
	orgKey, err := rsa.DecryptOAEP(sha256.New(), nil, kp.Private, ciphertext, nil)
	if err != nil {
		return nil, ErrUnwrapFailed
	}
	if len(orgKey) != OrgKeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrUnwrapFailed, len(orgKey))
	}
	return orgKey, nil
}

// GenerateOrgKey creates a new random org key.
func GenerateOrgKey() ([]byte, error) {
	return RandomBytes(OrgKeySize)
}
