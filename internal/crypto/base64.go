package crypto

import "encoding/base64"

// ToBase64 encodes bytes to standard base64 with padding. All transport
// strings (wrapped keys, encrypted fields) use this encoding.
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// FromBase64 decodes standard base64 to bytes. It tolerates missing
// padding, which some intermediaries strip.
func FromBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
