package orgvault

import (
	"context"
	"sync"

	"github.com/orgvault/client-go/internal/api"
	"github.com/orgvault/client-go/internal/crypto"
)

// PendingMember is an org member with an identity but no org key
// envelope yet. It is a read-only projection computed by the server
// (org members minus members holding an envelope), never stored.
type PendingMember = api.PendingMember

// CeremonyResult reports the outcome of one key ceremony run. Grants
// are independent: failed members are listed individually and can be
// retried by re-running the ceremony, which only sees still-pending
// members.
type CeremonyResult struct {
	// Granted lists the user ids whose envelope was stored.
	Granted []string
	// Failed lists per-member failures. Never aborts other members.
	Failed []*CeremonyMemberError
}

// AllGranted reports whether every pending member received an envelope.
func (r *CeremonyResult) AllGranted() bool {
	return len(r.Failed) == 0
}

// BootstrapOrgKey generates a brand-new org key, wraps it under the
// caller's own public key and stores the resulting envelope. Used when
// an org is created after registration; Register handles the creation
// case inline. No-op when the session already holds a key for the org.
func (c *Client) BootstrapOrgKey(ctx context.Context, orgID string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if !c.session.Initialized() {
		return ErrNotAuthenticated
	}
	if c.session.HasOrgKey(orgID) {
		return nil
	}

	orgKey, err := crypto.GenerateOrgKey()
	if err != nil {
		return wrapError(err)
	}

	keypair := c.session.identity()
	pub, err := crypto.ImportPublicKey(keypair.PublicKeyB64)
	if err != nil {
		return wrapError(err)
	}
	envelope, err := crypto.WrapOrgKey(pub, orgKey)
	if err != nil {
		return wrapError(err)
	}

	err = c.apiClient.StoreOrgKey(ctx, orgID, &api.OrgKeyGrant{
		UserID:          c.session.UserID(),
		EncryptedOrgKey: envelope,
	})
	if err != nil {
		return wrapError(err)
	}

	c.session.setOrgKey(orgID, orgKey)
	return nil
}

// PendingMembers lists org members waiting for the key ceremony.
func (c *Client) PendingMembers(ctx context.Context, orgID string) ([]PendingMember, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	members, err := c.apiClient.GetPendingKeyMembers(ctx, orgID)
	if err != nil {
		return nil, wrapError(err)
	}
	return members, nil
}

// RunKeyCeremony grants the org key to every pending member: for each,
// wrap a copy of the org key under that member's public key and store
// the envelope. The fan-out is one wrap+store per member, run
// concurrently; a failure for one member never blocks the others.
// Requires the caller's session to already hold the org key.
func (c *Client) RunKeyCeremony(ctx context.Context, orgID string) (*CeremonyResult, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}
	if !c.session.Initialized() {
		return nil, ErrNotAuthenticated
	}
	orgKey, ok := c.session.orgKey(orgID)
	if !ok {
		return nil, ErrKeyUnavailable
	}

	pending, err := c.apiClient.GetPendingKeyMembers(ctx, orgID)
	if err != nil {
		return nil, wrapError(err)
	}

	result := &CeremonyResult{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, member := range pending {
		wg.Add(1)
		go func(m PendingMember) {
			defer wg.Done()
			err := c.grantOrgKey(ctx, orgID, orgKey, m)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, &CeremonyMemberError{
					UserID: m.UserID,
					Email:  m.Email,
					Err:    err,
				})
				return
			}
			result.Granted = append(result.Granted, m.UserID)
		}(member)
	}
	wg.Wait()

	return result, nil
}

// grantOrgKey performs one envelope grant: resolve the member's public
// key, wrap the org key under it, store the envelope.
func (c *Client) grantOrgKey(ctx context.Context, orgID string, orgKey []byte, member PendingMember) error {
	publicKey := member.PublicKey
	if publicKey == "" {
		resp, err := c.apiClient.GetPublicKey(ctx, member.UserID)
		if err != nil {
			return wrapError(err)
		}
		publicKey = resp.PublicKey
	}

	pub, err := crypto.ImportPublicKey(publicKey)
	if err != nil {
		return wrapError(err)
	}
	envelope, err := crypto.WrapOrgKey(pub, orgKey)
	if err != nil {
		return wrapError(err)
	}

	err = c.apiClient.StoreOrgKey(ctx, orgID, &api.OrgKeyGrant{
		UserID:          member.UserID,
		EncryptedOrgKey: envelope,
	})
	return wrapError(err)
}

// ResolveOrgKey fetches the caller's own envelope, unwraps it with the
// session private key and stores the org key in the session. Returns
// ErrOrgKeyPending when no envelope exists yet.
func (c *Client) ResolveOrgKey(ctx context.Context, orgID string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if !c.session.Initialized() {
		return ErrNotAuthenticated
	}
	if c.session.HasOrgKey(orgID) {
		return nil
	}

	envelope, err := c.apiClient.GetMyOrgKey(ctx, orgID)
	if err != nil {
		return wrapError(err)
	}

	orgKey, err := crypto.UnwrapOrgKey(c.session.identity(), envelope.EncryptedOrgKey)
	if err != nil {
		return &DecryptionError{Stage: "org_key", Err: err}
	}

	c.session.setOrgKey(orgID, orgKey)
	return nil
}
