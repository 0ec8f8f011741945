package api

import (
	"context"
	"fmt"
	"net/url"
)

// GetKDFInfo returns the KDF iteration count recorded for an email so
// the client can repeat the derivation before login.
func (c *Client) GetKDFInfo(ctx context.Context, email string) (*KDFInfo, error) {
	path := fmt.Sprintf("/auth/kdf-info?email=%s", url.QueryEscape(email))
	var result KDFInfo
	if err := c.Do(ctx, "GET", path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Register creates a new account with a zero-knowledge identity.
func (c *Client) Register(ctx context.Context, req *RegisterRequest) (*SessionResponse, error) {
	var result SessionResponse
	if err := c.Do(ctx, "POST", "/auth/register", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Login authenticates with the master password hash.
func (c *Client) Login(ctx context.Context, req *LoginRequest) (*SessionResponse, error) {
	var result SessionResponse
	if err := c.Do(ctx, "POST", "/auth/login", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var result User
	if err := c.Do(ctx, "GET", "/auth/me", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ValidateInvite validates an invitation token.
func (c *Client) ValidateInvite(ctx context.Context, token string) (*InviteValidation, error) {
	path := fmt.Sprintf("/auth/validate-invite?token=%s", url.QueryEscape(token))
	var result InviteValidation
	if err := c.Do(ctx, "GET", path, nil, &result); err != nil {
		return nil, WithResourceType(err, ResourceToken)
	}
	return &result, nil
}

// AcceptInvite accepts an invitation and creates the member's identity.
func (c *Client) AcceptInvite(ctx context.Context, req *AcceptInviteRequest) (*SessionResponse, error) {
	var result SessionResponse
	if err := c.Do(ctx, "POST", "/auth/accept-invite", req, &result); err != nil {
		return nil, WithResourceType(err, ResourceToken)
	}
	return &result, nil
}

// StoreOrgKey stores a wrapped org key envelope for a target member
// (one step of the key ceremony). The service upserts, so re-running a
// ceremony for an already-granted member is harmless.
func (c *Client) StoreOrgKey(ctx context.Context, orgID string, grant *OrgKeyGrant) error {
	path := fmt.Sprintf("/auth/org/%s/keys", url.PathEscape(orgID))
	err := c.Do(ctx, "POST", path, grant, nil)
	return WithResourceType(err, ResourceUser)
}

// GetMyOrgKey fetches the caller's own wrapped org key for an org.
func (c *Client) GetMyOrgKey(ctx context.Context, orgID string) (*OrgKeyEnvelope, error) {
	path := fmt.Sprintf("/auth/org/%s/my-key", url.PathEscape(orgID))
	var result OrgKeyEnvelope
	if err := c.Do(ctx, "GET", path, nil, &result); err != nil {
		return nil, WithResourceType(err, ResourceOrgKey)
	}
	return &result, nil
}

// GetPublicKey fetches a user's transport-form public key.
func (c *Client) GetPublicKey(ctx context.Context, userID string) (*PublicKeyResponse, error) {
	path := fmt.Sprintf("/auth/user/%s/public-key", url.PathEscape(userID))
	var result PublicKeyResponse
	if err := c.Do(ctx, "GET", path, nil, &result); err != nil {
		return nil, WithResourceType(err, ResourcePublicKey)
	}
	return &result, nil
}

// GetPendingKeyMembers lists org members with an identity but no org
// key envelope yet.
func (c *Client) GetPendingKeyMembers(ctx context.Context, orgID string) ([]PendingMember, error) {
	path := fmt.Sprintf("/auth/org/%s/pending-keys", url.PathEscape(orgID))
	var result []PendingMember
	if err := c.Do(ctx, "GET", path, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ForgotPassword requests a reset email. Uniform response regardless of
// whether the account exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.Do(ctx, "POST", "/auth/forgot-password", &ForgotPasswordRequest{Email: email}, nil)
}

// ValidateReset validates a reset token and returns the recovery-wrapped
// private key the client must unwrap.
func (c *Client) ValidateReset(ctx context.Context, token string) (*ResetValidation, error) {
	path := fmt.Sprintf("/auth/validate-reset?token=%s", url.QueryEscape(token))
	var result ResetValidation
	if err := c.Do(ctx, "GET", path, nil, &result); err != nil {
		return nil, WithResourceType(err, ResourceToken)
	}
	return &result, nil
}

// ResetPassword completes a password reset.
func (c *Client) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	err := c.Do(ctx, "POST", "/auth/reset-password", req, nil)
	return WithResourceType(err, ResourceToken)
}

// ChangePassword rotates the password for the authenticated user.
func (c *Client) ChangePassword(ctx context.Context, req *ChangePasswordRequest) error {
	return c.Do(ctx, "POST", "/auth/change-password", req, nil)
}

// GetItem fetches one item.
func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	path := fmt.Sprintf("/items/%s", url.PathEscape(itemID))
	var result Item
	if err := c.Do(ctx, "GET", path, nil, &result); err != nil {
		return nil, WithResourceType(err, ResourceItem)
	}
	return &result, nil
}

// ListItems lists the active org's items.
func (c *Client) ListItems(ctx context.Context) ([]Item, error) {
	var result []Item
	if err := c.Do(ctx, "GET", "/items", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateItem writes an item, including migration updates that bump the
// encryption version.
func (c *Client) UpdateItem(ctx context.Context, itemID string, update *ItemUpdate) (*Item, error) {
	path := fmt.Sprintf("/items/%s", url.PathEscape(itemID))
	var result Item
	if err := c.Do(ctx, "PUT", path, update, &result); err != nil {
		return nil, WithResourceType(err, ResourceItem)
	}
	return &result, nil
}

// CreateItem creates an item.
func (c *Client) CreateItem(ctx context.Context, item *ItemUpdate) (*Item, error) {
	var result Item
	if err := c.Do(ctx, "POST", "/items", item, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
