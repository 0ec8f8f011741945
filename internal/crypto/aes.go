package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// EncryptGCM encrypts plaintext with AES-256-GCM under key using a fresh
// random nonce. The output framing is nonce (12) || tag (16) || ciphertext,
// matching the service's stored field format.
func EncryptGCM(key, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := RandomBytes(GCMNonceSize)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	// Seal appends ciphertext || tag; reorder to nonce || tag || ciphertext.
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	tagStart := len(sealed) - GCMTagSize

	out := make([]byte, 0, GCMNonceSize+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed[tagStart:]...)
	out = append(out, sealed[:tagStart]...)
	return out, nil
}

// DecryptGCM decrypts a nonce || tag || ciphertext blob produced by
// EncryptGCM. Authentication failure returns ErrDecryptionFailed without
// distinguishing wrong key from corrupted data.
func DecryptGCM(key, blob []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(blob) < GCMNonceSize+GCMTagSize {
		return nil, ErrMalformedCiphertext
	}

	nonce := blob[:GCMNonceSize]
	tag := blob[GCMNonceSize : GCMNonceSize+GCMTagSize]
	ciphertext := blob[GCMNonceSize+GCMTagSize:]

	// Open expects ciphertext || tag.
	sealed := make([]byte, 0, len(ciphertext)+GCMTagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncryptString encrypts a UTF-8 string and returns the base64 transport form.
func EncryptString(key []byte, value string) (string, error) {
	blob, err := EncryptGCM(key, []byte(value))
	if err != nil {
		return "", err
	}
	return ToBase64(blob), nil
}

// DecryptString decrypts a base64 transport string produced by EncryptString.
func DecryptString(key []byte, encoded string) (string, error) {
	blob, err := FromBase64(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	plaintext, err := DecryptGCM(key, blob)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != OrgKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), OrgKeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
