package crypto

import (
	"encoding/base32"
	"strings"
)

// recoveryEncoding is unpadded uppercase base32; 32 bytes encode to 52
// characters, displayed in dash-separated groups of 4.
var recoveryEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

const recoveryGroupSize = 4

// GenerateRecoveryKey creates a new random recovery key. It is
// independent of the password so that either secret alone can recover
// the identity.
func GenerateRecoveryKey() ([]byte, error) {
	return RandomBytes(RecoveryKeySize)
}

// FormatRecoveryKey renders a recovery key in its one-time display form:
// uppercase base32 in dash-separated groups of four characters.
func FormatRecoveryKey(key []byte) string {
	encoded := recoveryEncoding.EncodeToString(key)
	var b strings.Builder
	for i, r := range encoded {
		if i > 0 && i%recoveryGroupSize == 0 {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseRecoveryKey parses a user-entered recovery key. Dashes, spaces and
// case are tolerated; anything else is rejected.
func ParseRecoveryKey(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == ' ':
			return -1
		default:
			return r
		}
	}, strings.ToUpper(strings.TrimSpace(s)))

	key, err := recoveryEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, ErrInvalidRecoveryKey
	}
	if len(key) != RecoveryKeySize {
		return nil, ErrInvalidRecoveryKey
	}
	return key, nil
}
