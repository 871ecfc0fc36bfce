// Package tagged implements domain separated commitments: a message is committed under a
// tag baked into the hash pre-image, so commitments computed for different purposes can
// never be confused even if the message encodings coincide.
package tagged

import (
	"crypto/subtle"

	"github.com/iotaledger/seals.go/common"
)

// Tag is a domain separation string. Tags are public, fixed per purpose
type Tag string

// Engine abstracts the hash function behind tagged commitments.
// Implementations must be deterministic and safe for concurrent use
type Engine interface {
	// Commit hashes the concatenation of the message parts under the tag
	Commit(tag Tag, msg ...[]byte) common.Digest
	// Verify recomputes the commitment and compares it with the digest. Mismatch is false, never an error
	Verify(tag Tag, digest common.Digest, msg ...[]byte) bool
	// Description return description of the implementation
	Description() string
	// ShortName short name
	ShortName() string
}

// Default is the BIP-340 tagged SHA-256 engine
var Default Engine = NewSHA256()

// Commit commits to the message with the default engine
func Commit(tag Tag, msg ...[]byte) common.Digest {
	return Default.Commit(tag, msg...)
}

// Verify verifies the commitment with the default engine
func Verify(tag Tag, digest common.Digest, msg ...[]byte) bool {
	return Default.Verify(tag, digest, msg...)
}

// VerifyWith is a helper for engine implementations: recompute and compare in constant time
func VerifyWith(e Engine, tag Tag, digest common.Digest, msg ...[]byte) bool {
	c := e.Commit(tag, msg...)
	return subtle.ConstantTimeCompare(c[:], digest[:]) == 1
}
