// Package store defines the persistence abstractions for the three kinds of
// server-side token artifacts: authorization codes, refresh tokens and
// reference access tokens. Every record is keyed by an opaque, unguessable
// handle; all implementations must honor the atomicity contracts documented on
// the individual interfaces.
package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// ErrNotFound is returned by any store when no live record exists for the
// handle. Redeem and Rotate return it for already-consumed handles, which is
// what makes their exactly-once guarantees observable.
var ErrNotFound = errors.New("store: handle not found")

// handleBytes is 32 bytes = 256 bits of entropy, double the spec floor.
const handleBytes = 32

// NewHandle generates a fresh opaque handle: 256 bits from crypto/rand,
// hex-encoded. A crypto/rand read failure means the platform cannot supply
// entropy at all, so it panics rather than letting a weak handle exist.
func NewHandle() string {
	b := make([]byte, handleBytes)
	if _, err := rand.Read(b); err != nil {
		panic("store.NewHandle: " + err.Error())
	}
	return hex.EncodeToString(b)
}
