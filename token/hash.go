package token

import (
	"crypto/sha256"
	"encoding/base64"
)

// LeftHalfHash computes the OIDC c_hash/at_hash value for a token string: the
// leftmost half of its SHA-256 digest, base64url-encoded without padding.
func LeftHalfHash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return base64.RawURLEncoding.EncodeToString(sum[:len(sum)/2])
}
