package orgvault

import (
	"errors"
	"fmt"

	"github.com/orgvault/client-go/internal/api"
	"github.com/orgvault/client-go/internal/crypto"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingBaseURL is returned when no service URL is provided.
	ErrMissingBaseURL = errors.New("base URL is required")

	// ErrClientClosed is returned when operations are attempted on a closed client.
	ErrClientClosed = errors.New("client has been closed")

	// ErrNotAuthenticated is returned when an operation requires a
	// logged-in session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrAuthenticationFailed is returned for a rejected login. A wrong
	// password and a failed private-key unwrap are deliberately
	// indistinguishable.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrPasswordTooShort is returned when a password is below MinPasswordLength.
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

	// ErrOrgKeyPending is returned when the caller has an identity but
	// no org key envelope yet; an existing member must run the key
	// ceremony before v2 content becomes readable.
	ErrOrgKeyPending = errors.New("org key not yet granted; waiting for key ceremony")

	// ErrKeyUnavailable is returned when decrypting v2 content without
	// the org key in the session.
	ErrKeyUnavailable = errors.New("org key unavailable")

	// ErrDecryptionFailed is returned when ciphertext fails authentication.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidRecoveryKey is returned for an unparseable or wrong
	// recovery key.
	ErrInvalidRecoveryKey = errors.New("invalid recovery key")

	// ErrInvalidToken is returned for an invalid or expired invite or
	// reset token.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrUnauthorized is returned when the session token is invalid or expired.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrItemNotFound is returned when an item does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// OrgVaultError is implemented by all SDK errors.
type OrgVaultError interface {
	error
	OrgVaultError() // marker method
}

// APIError represents an HTTP error from the OrgVault service.
type APIError struct {
	StatusCode int
	Detail     string
	RequestID  string // if returned by server
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("API error %d: %s (request_id: %s)", e.StatusCode, e.Detail, e.RequestID)
	}
	if e.Detail != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// OrgVaultError implements the OrgVaultError interface.
func (e *APIError) OrgVaultError() {}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// OrgVaultError implements the OrgVaultError interface.
func (e *NetworkError) OrgVaultError() {}

// DecryptionError represents a failure to decrypt protected content.
type DecryptionError struct {
	Stage string // "private_key", "org_key", "field", "file"
	Err   error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *DecryptionError) Is(target error) bool {
	return target == ErrDecryptionFailed
}

// OrgVaultError implements the OrgVaultError interface.
func (e *DecryptionError) OrgVaultError() {}

// CeremonyMemberError is a single member's failure during a key ceremony.
type CeremonyMemberError struct {
	UserID string
	Email  string
	Err    error
}

func (e *CeremonyMemberError) Error() string {
	return fmt.Sprintf("grant org key to %s: %v", e.UserID, e.Err)
}

// Unwrap returns the underlying error.
func (e *CeremonyMemberError) Unwrap() error {
	return e.Err
}

// OrgVaultError implements the OrgVaultError interface.
func (e *CeremonyMemberError) OrgVaultError() {}

// MigrationError reports a background migration failure for one item.
type MigrationError struct {
	ItemID   string
	Attempts int
	Err      error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migrate item %s after %d attempts: %v", e.ItemID, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *MigrationError) Unwrap() error {
	return e.Err
}

// OrgVaultError implements the OrgVaultError interface.
func (e *MigrationError) OrgVaultError() {}

// wrapError converts internal errors to public errors so that
// errors.Is() checks work with public sentinel errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch {
		case errors.Is(err, api.ErrUnauthorized):
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Detail)
		case errors.Is(err, api.ErrOrgKeyNotFound):
			return ErrOrgKeyPending
		case errors.Is(err, api.ErrItemNotFound):
			return ErrItemNotFound
		case errors.Is(err, api.ErrInvalidToken):
			return ErrInvalidToken
		case errors.Is(err, api.ErrRateLimited):
			return ErrRateLimited
		}
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Detail:     apiErr.Detail,
			RequestID:  apiErr.RequestID,
		}
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return &NetworkError{
			Err:     netErr.Err,
			URL:     netErr.URL,
			Attempt: netErr.Attempt,
		}
	}

	if errors.Is(err, crypto.ErrInvalidRecoveryKey) {
		return ErrInvalidRecoveryKey
	}

	return err
}
