package api

// KDFInfo reports the iteration count recorded for an account so the
// client can repeat the derivation before login. Unknown emails get the
// default count to avoid account enumeration.
type KDFInfo struct {
	KDFIterations int `json:"kdf_iterations"`
}

// RegisterRequest creates a new account with a zero-knowledge identity.
// The org creator additionally sends their self-wrapped org key so the
// bootstrap envelope is stored in the same request.
type RegisterRequest struct {
	Email              string `json:"email"`
	FullName           string `json:"full_name"`
	OrgName            string `json:"org_name,omitempty"`
	MasterPasswordHash string `json:"master_password_hash"`

	EncryptedPrivateKey         string `json:"encrypted_private_key"`
	PublicKey                   string `json:"public_key"`
	RecoveryEncryptedPrivateKey string `json:"recovery_encrypted_private_key"`
	KDFIterations               int    `json:"kdf_iterations"`

	// EncryptedOrgKey is only set when the registering user bootstraps
	// a brand-new org (wrapped under their own public key).
	EncryptedOrgKey string `json:"encrypted_org_key,omitempty"`
}

// LoginRequest authenticates with the master password hash. The raw
// password never crosses the boundary.
type LoginRequest struct {
	Email              string `json:"email"`
	MasterPasswordHash string `json:"master_password_hash"`
}

// User is the service's view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	ActiveOrgID string `json:"active_org_id,omitempty"`
}

// SessionResponse is returned by register, login and accept-invite. It
// carries everything needed to resolve the session keys in one round
// trip: the wrapped private key and, when an envelope exists, the
// caller's wrapped org key.
type SessionResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`

	EncryptedPrivateKey string `json:"encrypted_private_key,omitempty"`
	PublicKey           string `json:"public_key,omitempty"`
	KDFIterations       int    `json:"kdf_iterations,omitempty"`
	EncryptedOrgKey     string `json:"encrypted_org_key,omitempty"`
}

// InviteValidation is the context returned for an invite token.
type InviteValidation struct {
	Valid    bool   `json:"valid"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	OrgName  string `json:"org_name,omitempty"`
}

// AcceptInviteRequest accepts an invitation, creating the member's
// zero-knowledge identity. The new member has no org key yet; they
// remain pending until an existing member runs the key ceremony.
type AcceptInviteRequest struct {
	Token              string `json:"token"`
	MasterPasswordHash string `json:"master_password_hash"`

	EncryptedPrivateKey         string `json:"encrypted_private_key"`
	PublicKey                   string `json:"public_key"`
	RecoveryEncryptedPrivateKey string `json:"recovery_encrypted_private_key"`
	KDFIterations               int    `json:"kdf_iterations"`
}

// OrgKeyGrant stores one wrapped org key envelope for a target member.
type OrgKeyGrant struct {
	UserID          string `json:"user_id"`
	EncryptedOrgKey string `json:"encrypted_org_key"`
}

// OrgKeyEnvelope is the caller's own wrapped org key.
type OrgKeyEnvelope struct {
	EncryptedOrgKey string `json:"encrypted_org_key"`
}

// PublicKeyResponse is a user's transport-form public key.
type PublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// PendingMember is an org member with an identity but no org key
// envelope yet. Derived server-side by set difference; never stored.
type PendingMember struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	PublicKey string `json:"public_key"`
}

// ForgotPasswordRequest triggers a reset email. The response is
// intentionally uniform to prevent account enumeration.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetValidation is the context returned for a reset token, including
// the recovery-wrapped private key the client must unwrap.
type ResetValidation struct {
	Valid                       bool   `json:"valid"`
	Email                       string `json:"email,omitempty"`
	RecoveryEncryptedPrivateKey string `json:"recovery_encrypted_private_key,omitempty"`
}

// ResetPasswordRequest completes a reset: new master hash plus the
// private key re-wrapped under the new password-derived secret. The old
// password wrapping is discarded server-side.
type ResetPasswordRequest struct {
	Token              string `json:"token"`
	MasterPasswordHash string `json:"master_password_hash"`

	EncryptedPrivateKey         string `json:"encrypted_private_key"`
	RecoveryEncryptedPrivateKey string `json:"recovery_encrypted_private_key,omitempty"`
	KDFIterations               int    `json:"kdf_iterations,omitempty"`
}

// ChangePasswordRequest rotates the password for a logged-in user. Both
// hashes are required; the private key travels re-wrapped under the new
// stretched key.
type ChangePasswordRequest struct {
	CurrentMasterPasswordHash string `json:"current_master_password_hash"`
	NewMasterPasswordHash     string `json:"new_master_password_hash"`

	NewEncryptedPrivateKey         string `json:"new_encrypted_private_key"`
	NewRecoveryEncryptedPrivateKey string `json:"new_recovery_encrypted_private_key,omitempty"`
	NewKDFIterations               int    `json:"new_kdf_iterations,omitempty"`
}

// Encryption version discriminators for items and files.
const (
	// EncryptionVersionLegacy marks server-visible (plaintext to this
	// subsystem) content.
	EncryptionVersionLegacy = 1
	// EncryptionVersionZeroKnowledge marks content encrypted client-side
	// under the org key.
	EncryptionVersionZeroKnowledge = 2
)

// ItemField is one field value of an item. Value is plaintext at
// encryption version 1 and a transport ciphertext string at version 2.
type ItemField struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

// Item is the wire form of a record. Name is the legacy plaintext name;
// EncryptedName replaces it at encryption version 2.
type Item struct {
	ID            string      `json:"id"`
	OrgID         string      `json:"org_id"`
	CategoryID    string      `json:"category_id,omitempty"`
	Name          string      `json:"name,omitempty"`
	EncryptedName string      `json:"encrypted_name,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	Fields        []ItemField `json:"fields,omitempty"`

	EncryptionVersion int `json:"encryption_version"`
}

// ItemUpdate is the writable subset of an item, used both for ordinary
// writes and for 1→2 migration updates.
type ItemUpdate struct {
	Name          string      `json:"name,omitempty"`
	EncryptedName string      `json:"encrypted_name,omitempty"`
	CategoryID    string      `json:"category_id,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	Fields        []ItemField `json:"fields,omitempty"`

	EncryptionVersion int `json:"encryption_version"`
}
