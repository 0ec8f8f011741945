// Package crypto implements the cryptographic primitives for the
// OrgVault zero-knowledge key hierarchy.
//
// Key hierarchy:
//
//	password + email --PBKDF2-SHA256(600k)--> master key
//	master key --HKDF-SHA-512--> stretched key (wraps the private key)
//	master key + password --PBKDF2(1)--> master password hash (server auth)
//
// Each user holds an RSA-2048 keypair. The private key is wrapped twice
// with AES-256-GCM: once under the stretched key and once under a random
// recovery key shown to the user exactly once. The org key (a random
// 32-byte AES key shared by all members of an organization) is wrapped
// per member with RSA-OAEP under that member's public key.
//
// All transport ciphertext uses the framing iv (12) || tag (16) || data,
// base64-encoded when carried as a string.
package crypto
