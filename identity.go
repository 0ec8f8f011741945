package orgvault

import (
	"fmt"

	"github.com/orgvault/client-go/internal/crypto"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// derivedSecrets is the full output of the password derivation chain.
type derivedSecrets struct {
	masterKey    []byte
	stretchedKey []byte
	masterHash   string
	iterations   int
}

func deriveSecrets(password, email string, iterations int) (*derivedSecrets, error) {
	if iterations <= 0 {
		iterations = crypto.KDFIterations
	}

	masterKey, err := crypto.DeriveMasterKey(password, email, iterations)
	if err != nil {
		return nil, err
	}
	stretchedKey, err := crypto.StretchKey(masterKey)
	if err != nil {
		return nil, err
	}
	masterHash, err := crypto.HashMasterPassword(masterKey, password)
	if err != nil {
		return nil, err
	}

	return &derivedSecrets{
		masterKey:    masterKey,
		stretchedKey: stretchedKey,
		masterHash:   masterHash,
		iterations:   iterations,
	}, nil
}

// enrollment is a freshly generated identity: derived secrets, keypair,
// and the two independent private-key wrappings.
type enrollment struct {
	secrets *derivedSecrets
	keypair *crypto.Keypair

	encryptedPrivateKey         string
	recoveryEncryptedPrivateKey string
	recoveryKey                 []byte
}

func newEnrollment(password, email string, iterations int) (*enrollment, error) {
	secrets, err := deriveSecrets(password, email, iterations)
	if err != nil {
		return nil, err
	}

	keypair, err := crypto.GenerateKeypair()
	if err != nil {
		return nil, err
	}

	encryptedPrivateKey, err := crypto.EncryptPrivateKey(keypair, secrets.stretchedKey)
	if err != nil {
		return nil, fmt.Errorf("wrap private key: %w", err)
	}

	recoveryKey, err := crypto.GenerateRecoveryKey()
	if err != nil {
		return nil, err
	}
	recoveryWrap, err := crypto.RecoveryWrapKey(recoveryKey)
	if err != nil {
		return nil, err
	}
	recoveryEncryptedPrivateKey, err := crypto.EncryptPrivateKey(keypair, recoveryWrap)
	if err != nil {
		return nil, fmt.Errorf("wrap private key for recovery: %w", err)
	}

	return &enrollment{
		secrets:                     secrets,
		keypair:                     keypair,
		encryptedPrivateKey:         encryptedPrivateKey,
		recoveryEncryptedPrivateKey: recoveryEncryptedPrivateKey,
		recoveryKey:                 recoveryKey,
	}, nil
}
