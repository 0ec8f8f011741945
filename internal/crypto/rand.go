package crypto

import (
	cryptorand "crypto/rand"
	"io"
)

// randReader is the random source used for key and nonce generation.
// It defaults to nil (which uses crypto/rand) but can be overridden for testing.
var randReader io.Reader

func rng() io.Reader {
	if randReader != nil {
		return randReader
	}
	return cryptorand.Reader
}

// RandomBytes returns n bytes from the package random source.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rng(), b); err != nil {
		return nil, err
	}
	return b, nil
}
