// Package orgvault provides a Go client SDK for OrgVault, a
// zero-knowledge record vault for multi-member organizations.
//
// The server only ever stores ciphertext, public keys and verification
// hashes. The SDK derives all secrets client-side from the user's
// password, maintains an RSA identity per user, and shares a single
// symmetric org key between members by wrapping it per member under
// their public key (the "key ceremony").
//
// Basic usage:
//
//	client, err := orgvault.New("https://vault.example.com")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Log in; this derives keys, unwraps the private key and resolves
//	// the org key envelope.
//	user, err := client.Login(ctx, "alice@example.com", "CorrectHorse123")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Records decrypt transparently.
//	record, err := client.Item(ctx, itemID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if notes, ok := record.Notes.Value(); ok {
//	    fmt.Println(notes)
//	}
//
// A freshly invited member has an identity but no org key until an
// existing member runs the ceremony:
//
//	result, err := client.RunKeyCeremony(ctx, user.ActiveOrgID)
package orgvault
