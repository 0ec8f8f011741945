package orgvault

import (
	"context"

	"github.com/orgvault/client-go/internal/api"
	"github.com/orgvault/client-go/internal/crypto"
)

// ResetInfo is the context behind a password reset token.
type ResetInfo struct {
	Valid bool
	Email string
}

// ForgotPassword requests a password reset email. The call succeeds
// whether or not the account exists, so it cannot be used to enumerate
// accounts.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if err := c.apiClient.ForgotPassword(ctx, crypto.NormalizeEmail(email)); err != nil {
		return wrapError(err)
	}
	return nil
}

// ValidateReset returns the context behind a reset token.
func (c *Client) ValidateReset(ctx context.Context, token string) (*ResetInfo, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	resp, err := c.apiClient.ValidateReset(ctx, token)
	if err != nil {
		return nil, wrapError(err)
	}
	return &ResetInfo{Valid: resp.Valid, Email: resp.Email}, nil
}

// ResetPassword completes a password reset using the recovery key: the
// recovery-wrapped private key is unwrapped client-side, re-wrapped
// under the new password's stretched key, and a fresh recovery key is
// issued. The returned display string is shown once; the previous
// recovery key stops working.
//
// The reset proves possession of the recovery key cryptographically —
// a wrong key fails the unwrap and returns ErrInvalidRecoveryKey before
// anything is written.
func (c *Client) ResetPassword(ctx context.Context, token, recoveryKeyDisplay, newPassword string) (string, error) {
	if err := c.checkClosed(); err != nil {
		return "", err
	}
	if len(newPassword) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	recoveryKey, err := crypto.ParseRecoveryKey(recoveryKeyDisplay)
	if err != nil {
		return "", ErrInvalidRecoveryKey
	}

	resp, err := c.apiClient.ValidateReset(ctx, token)
	if err != nil {
		return "", wrapError(err)
	}
	if !resp.Valid || resp.RecoveryEncryptedPrivateKey == "" {
		return "", ErrInvalidToken
	}

	recoveryWrap, err := crypto.RecoveryWrapKey(recoveryKey)
	if err != nil {
		return "", wrapError(err)
	}
	keypair, err := crypto.DecryptPrivateKey(resp.RecoveryEncryptedPrivateKey, recoveryWrap)
	if err != nil {
		return "", ErrInvalidRecoveryKey
	}

	secrets, err := deriveSecrets(newPassword, resp.Email, c.cfg.kdfIterations)
	if err != nil {
		return "", wrapError(err)
	}
	encryptedPrivateKey, err := crypto.EncryptPrivateKey(keypair, secrets.stretchedKey)
	if err != nil {
		return "", wrapError(err)
	}

	nextRecoveryKey, err := crypto.GenerateRecoveryKey()
	if err != nil {
		return "", wrapError(err)
	}
	nextRecoveryWrap, err := crypto.RecoveryWrapKey(nextRecoveryKey)
	if err != nil {
		return "", wrapError(err)
	}
	recoveryEncryptedPrivateKey, err := crypto.EncryptPrivateKey(keypair, nextRecoveryWrap)
	if err != nil {
		return "", wrapError(err)
	}

	err = c.apiClient.ResetPassword(ctx, &api.ResetPasswordRequest{
		Token:                       token,
		MasterPasswordHash:          secrets.masterHash,
		EncryptedPrivateKey:         encryptedPrivateKey,
		RecoveryEncryptedPrivateKey: recoveryEncryptedPrivateKey,
		KDFIterations:               secrets.iterations,
	})
	if err != nil {
		return "", wrapError(err)
	}

	return crypto.FormatRecoveryKey(nextRecoveryKey), nil
}
