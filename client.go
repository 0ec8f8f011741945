package orgvault

import (
	"context"
	"errors"
	"sync"

	"github.com/orgvault/client-go/internal/api"
	"github.com/orgvault/client-go/internal/crypto"
)

// User is an OrgVault account.
type User struct {
	ID          string
	Email       string
	FullName    string
	ActiveOrgID string
}

// InviteInfo is the context behind an invitation token.
type InviteInfo struct {
	Valid    bool
	Email    string
	FullName string
	OrgName  string
}

// Enrollment is the result of creating a zero-knowledge identity. The
// recovery key is displayed exactly once; it is never retrievable again.
type Enrollment struct {
	User User
	// RecoveryKey is the one-time display form of the recovery secret.
	RecoveryKey string
	// OrgKeyPending is true when the new member must wait for an
	// existing member to run the key ceremony before reading v2 content.
	OrgKeyPending bool
}

// Registration describes a new account. Setting OrgName creates a new
// organization whose org key the registrant bootstraps client-side.
type Registration struct {
	Email    string
	FullName string
	Password string
	OrgName  string
}

// Client is the OrgVault SDK client. It owns the API transport, the
// session key store and the background migration worker.
type Client struct {
	apiClient *api.Client
	cfg       *clientConfig
	session   *Session
	migrator  *migrator

	mu     sync.Mutex
	closed bool
}

// New creates a new OrgVault client for the given service URL. The
// client starts without a session; call Login, Register or AcceptInvite.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}

	cfg := &clientConfig{
		kdfIterations:        crypto.KDFIterations,
		migrationQueueSize:   defaultMigrationQueueSize,
		migrationMaxAttempts: defaultMigrationMaxAttempts,
		migrationBaseDelay:   defaultMigrationBaseDelay,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	apiOpts := []api.Option{api.WithRetryPolicy(cfg.buildRetryPolicy())}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(cfg.httpClient))
	}
	if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}

	apiClient, err := api.New(baseURL, apiOpts...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		apiClient: apiClient,
		cfg:       cfg,
		session:   newSession(),
	}
	c.migrator = newMigrator(c, cfg)
	c.migrator.start()

	return c, nil
}

// Session returns the client's session key store. Consumers should
// check Initialized() before relying on zero-knowledge behavior.
func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) checkClosed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// Register creates a new account with a client-side identity. When
// Registration.OrgName is set, a fresh org key is generated and its
// bootstrap envelope (wrapped under the registrant's own public key)
// travels in the same request.
func (c *Client) Register(ctx context.Context, reg Registration) (*Enrollment, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if len(reg.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	enroll, err := newEnrollment(reg.Password, reg.Email, c.cfg.kdfIterations)
	if err != nil {
		return nil, wrapError(err)
	}

	req := &api.RegisterRequest{
		Email:                       crypto.NormalizeEmail(reg.Email),
		FullName:                    reg.FullName,
		OrgName:                     reg.OrgName,
		MasterPasswordHash:          enroll.secrets.masterHash,
		EncryptedPrivateKey:         enroll.encryptedPrivateKey,
		PublicKey:                   enroll.keypair.PublicKeyB64,
		RecoveryEncryptedPrivateKey: enroll.recoveryEncryptedPrivateKey,
		KDFIterations:               enroll.secrets.iterations,
	}

	// Org creator: bootstrap the org key before the account exists so
	// the server never sees a keyless window.
	var orgKey []byte
	if reg.OrgName != "" {
		orgKey, err = crypto.GenerateOrgKey()
		if err != nil {
			return nil, wrapError(err)
		}
		pub, err := crypto.ImportPublicKey(enroll.keypair.PublicKeyB64)
		if err != nil {
			return nil, wrapError(err)
		}
		req.EncryptedOrgKey, err = crypto.WrapOrgKey(pub, orgKey)
		if err != nil {
			return nil, wrapError(err)
		}
	}

	resp, err := c.apiClient.Register(ctx, req)
	if err != nil {
		return nil, wrapError(err)
	}

	c.apiClient.SetSessionToken(resp.Token)
	c.session.populate(resp.User.ID, resp.User.Email, enroll.secrets.masterKey, enroll.secrets.stretchedKey, enroll.keypair)
	if orgKey != nil && resp.User.ActiveOrgID != "" {
		c.session.setOrgKey(resp.User.ActiveOrgID, orgKey)
	}

	return &Enrollment{
		User:          toUser(resp.User),
		RecoveryKey:   crypto.FormatRecoveryKey(enroll.recoveryKey),
		OrgKeyPending: resp.User.ActiveOrgID != "" && !c.session.HasOrgKey(resp.User.ActiveOrgID),
	}, nil
}

// ValidateInvite returns the context behind an invitation token.
func (c *Client) ValidateInvite(ctx context.Context, token string) (*InviteInfo, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	resp, err := c.apiClient.ValidateInvite(ctx, token)
	if err != nil {
		return nil, wrapError(err)
	}
	return &InviteInfo{
		Valid:    resp.Valid,
		Email:    resp.Email,
		FullName: resp.FullName,
		OrgName:  resp.OrgName,
	}, nil
}

// AcceptInvite accepts an invitation, creating the member's identity.
// The new member has no org key: they stay in the pending ("waiting for
// access") state until an existing member runs the key ceremony, and v2
// content reads as undecryptable until then.
func (c *Client) AcceptInvite(ctx context.Context, token, password string) (*Enrollment, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	invite, err := c.apiClient.ValidateInvite(ctx, token)
	if err != nil {
		return nil, wrapError(err)
	}
	if !invite.Valid {
		return nil, ErrInvalidToken
	}

	enroll, err := newEnrollment(password, invite.Email, c.cfg.kdfIterations)
	if err != nil {
		return nil, wrapError(err)
	}

	resp, err := c.apiClient.AcceptInvite(ctx, &api.AcceptInviteRequest{
		Token:                       token,
		MasterPasswordHash:          enroll.secrets.masterHash,
		EncryptedPrivateKey:         enroll.encryptedPrivateKey,
		PublicKey:                   enroll.keypair.PublicKeyB64,
		RecoveryEncryptedPrivateKey: enroll.recoveryEncryptedPrivateKey,
		KDFIterations:               enroll.secrets.iterations,
	})
	if err != nil {
		return nil, wrapError(err)
	}

	c.apiClient.SetSessionToken(resp.Token)
	c.session.populate(resp.User.ID, resp.User.Email, enroll.secrets.masterKey, enroll.secrets.stretchedKey, enroll.keypair)

	return &Enrollment{
		User:          toUser(resp.User),
		RecoveryKey:   crypto.FormatRecoveryKey(enroll.recoveryKey),
		OrgKeyPending: true,
	}, nil
}

// Login authenticates and resolves the session keys: derive the master
// secret from the password, prove it with the verification hash, unwrap
// the private key, then unwrap the org key envelope if one exists.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	// The server records the work factor per account; repeat it exactly.
	iterations := crypto.KDFIterations
	if info, err := c.apiClient.GetKDFInfo(ctx, crypto.NormalizeEmail(email)); err == nil && info.KDFIterations > 0 {
		iterations = info.KDFIterations
	}

	secrets, err := deriveSecrets(password, email, iterations)
	if err != nil {
		return nil, wrapError(err)
	}

	resp, err := c.apiClient.Login(ctx, &api.LoginRequest{
		Email:              crypto.NormalizeEmail(email),
		MasterPasswordHash: secrets.masterHash,
	})
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return nil, ErrAuthenticationFailed
		}
		return nil, wrapError(err)
	}

	keypair, err := crypto.DecryptPrivateKey(resp.EncryptedPrivateKey, secrets.stretchedKey)
	if err != nil {
		// A failed unwrap after a successful hash check still surfaces
		// as an authentication failure: never a separate oracle.
		return nil, ErrAuthenticationFailed
	}

	c.apiClient.SetSessionToken(resp.Token)
	c.session.populate(resp.User.ID, resp.User.Email, secrets.masterKey, secrets.stretchedKey, keypair)

	if resp.User.ActiveOrgID != "" {
		if resp.EncryptedOrgKey != "" {
			orgKey, err := crypto.UnwrapOrgKey(keypair, resp.EncryptedOrgKey)
			if err != nil {
				return nil, &DecryptionError{Stage: "org_key", Err: err}
			}
			c.session.setOrgKey(resp.User.ActiveOrgID, orgKey)
		} else if err := c.ResolveOrgKey(ctx, resp.User.ActiveOrgID); err != nil && !errors.Is(err, ErrOrgKeyPending) {
			return nil, err
		}
		// ErrOrgKeyPending is not a login failure: the member simply
		// waits for the ceremony and v2 content stays undecryptable.
	}

	user := toUser(resp.User)
	return &user, nil
}

// CurrentUser fetches the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	resp, err := c.apiClient.Me(ctx)
	if err != nil {
		return nil, wrapError(err)
	}
	user := toUser(*resp)
	return &user, nil
}

// ChangePassword rotates the password: new derivation chain, new master
// hash, private key re-wrapped under the new stretched key, and a fresh
// recovery key whose display form is returned (shown once).
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) (string, error) {
	if err := c.checkClosed(); err != nil {
		return "", err
	}
	if !c.session.Initialized() {
		return "", ErrNotAuthenticated
	}
	if len(newPassword) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	email := c.session.Email()

	iterations := crypto.KDFIterations
	if info, err := c.apiClient.GetKDFInfo(ctx, email); err == nil && info.KDFIterations > 0 {
		iterations = info.KDFIterations
	}
	current, err := deriveSecrets(currentPassword, email, iterations)
	if err != nil {
		return "", wrapError(err)
	}

	next, err := deriveSecrets(newPassword, email, c.cfg.kdfIterations)
	if err != nil {
		return "", wrapError(err)
	}

	keypair := c.session.identity()
	encryptedPrivateKey, err := crypto.EncryptPrivateKey(keypair, next.stretchedKey)
	if err != nil {
		return "", wrapError(err)
	}

	recoveryKey, err := crypto.GenerateRecoveryKey()
	if err != nil {
		return "", wrapError(err)
	}
	recoveryWrap, err := crypto.RecoveryWrapKey(recoveryKey)
	if err != nil {
		return "", wrapError(err)
	}
	recoveryEncryptedPrivateKey, err := crypto.EncryptPrivateKey(keypair, recoveryWrap)
	if err != nil {
		return "", wrapError(err)
	}

	err = c.apiClient.ChangePassword(ctx, &api.ChangePasswordRequest{
		CurrentMasterPasswordHash:      current.masterHash,
		NewMasterPasswordHash:          next.masterHash,
		NewEncryptedPrivateKey:         encryptedPrivateKey,
		NewRecoveryEncryptedPrivateKey: recoveryEncryptedPrivateKey,
		NewKDFIterations:               next.iterations,
	})
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return "", ErrAuthenticationFailed
		}
		return "", wrapError(err)
	}

	c.session.populate(c.session.UserID(), email, next.masterKey, next.stretchedKey, keypair)
	return crypto.FormatRecoveryKey(recoveryKey), nil
}

// Logout drops the session token and zeroes all key material.
func (c *Client) Logout() {
	c.apiClient.SetSessionToken("")
	c.session.destroy()
}

// Close stops the background migration worker and destroys the session.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.migrator.stop()
	c.Logout()
	return nil
}

func toUser(u api.User) User {
	return User{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		ActiveOrgID: u.ActiveOrgID,
	}
}
