package security

import (
	"crypto/rand"
	"encoding/base64"
)

const opaqueTokenSize = 64

// GenerateOpaqueToken returns a high-entropy random token for server-side
// refresh-token rows. Validity is purely a database lookup, never cryptographic.
func GenerateOpaqueToken() (string, error) {
	b := make([]byte, opaqueTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
