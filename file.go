package orgvault

import (
	"github.com/orgvault/client-go/internal/crypto"
)

// FilePayload is the stored form of a file attachment: raw bytes plus
// the encryption version that tells a reader how to interpret them.
type FilePayload struct {
	Data []byte
	// EncryptionVersion is EncryptionVersionZeroKnowledge when Data is
	// a nonce||tag||ciphertext blob, EncryptionVersionLegacy when Data
	// is the file itself.
	EncryptionVersion int
}

// EncryptFile prepares file content for upload. With the org key held
// the content is sealed under it at version 2; a session without the
// key (pending member, logged out) stores the file unchanged at version
// 1 so uploads never break while waiting for the ceremony.
func (c *Client) EncryptFile(orgID string, content []byte) (*FilePayload, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	key, ok := c.session.orgKey(orgID)
	if !c.session.Initialized() || !ok {
		return &FilePayload{Data: content, EncryptionVersion: EncryptionVersionLegacy}, nil
	}

	blob, err := crypto.EncryptGCM(key, content)
	if err != nil {
		return nil, wrapError(err)
	}
	return &FilePayload{Data: blob, EncryptionVersion: EncryptionVersionZeroKnowledge}, nil
}

// DecryptFile recovers file content from its stored payload. Version 1
// payloads pass through untouched. Version 2 payloads require the org
// key: without it the error is ErrKeyUnavailable, and a payload that
// fails authentication surfaces as a DecryptionError rather than
// leaking partial plaintext.
func (c *Client) DecryptFile(orgID string, payload *FilePayload) ([]byte, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	if payload.EncryptionVersion != EncryptionVersionZeroKnowledge {
		return payload.Data, nil
	}

	key, ok := c.session.orgKey(orgID)
	if !ok {
		return nil, ErrKeyUnavailable
	}

	content, err := crypto.DecryptGCM(key, payload.Data)
	if err != nil {
		return nil, &DecryptionError{Stage: "file", Err: err}
	}
	return content, nil
}
