// Package dbc defines deterministic Bitcoin commitment containers.
// A container embeds a 32 byte commitment into a public key or an output script, so the result
// is exactly the bytes of a standard key or script. Verifiers recompute the container from the
// original and the revealed commitment, they never parse a custom envelope
package dbc

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/iotaledger/seals.go/common"
)

type Method byte

const (
	// MethodOpret is the commitment in a provably unspendable OP_RETURN output
	MethodOpret = Method(iota)
	// MethodTapret is the commitment in a Taproot script path leaf
	MethodTapret
	// MethodP2C is the pay-to-contract public key tweak
	MethodP2C
)

func (m Method) String() string {
	switch m {
	case MethodOpret:
		return "opret"
	case MethodTapret:
		return "tapret"
	case MethodP2C:
		return "p2c"
	}
	return fmt.Sprintf("Method(%d)", byte(m))
}

// Container is a commitment embedding strategy
type Container interface {
	Method() Method
	// Embed is deterministic: exactly one container per (original, commitment).
	// Malformed original is reported with common.ErrMalformedInput
	Embed(original []byte, c common.Digest) ([]byte, error)
	// VerifyEmbedding recomputes the container and compares. Any failure is false
	VerifyEmbedding(original []byte, c common.Digest, container []byte) bool
}

// TxoContainer is a Container which ends up in a transaction output
type TxoContainer interface {
	Container
	// PkScript is the output script carrying the container
	PkScript(container []byte) ([]byte, error)
	// IsCandidate tells if the output script is of the kind the method commits into
	IsCandidate(pkScript []byte) bool
}

// FirstCandidate returns the index of the first output of the method's kind
func FirstCandidate(c TxoContainer, tx *wire.MsgTx) (int, bool) {
	for i, out := range tx.TxOut {
		if c.IsCandidate(out.PkScript) {
			return i, true
		}
	}
	return 0, false
}

// VerifyTx checks that the first output of the method's kind in the transaction carries the commitment.
// Returns the index of the output or false on any mismatch
func VerifyTx(c TxoContainer, original []byte, commitment common.Digest, tx *wire.MsgTx) (int, bool) {
	if tx == nil {
		return 0, false
	}
	idx, ok := FirstCandidate(c, tx)
	if !ok {
		return 0, false
	}
	container, err := c.Embed(original, commitment)
	if err != nil {
		return 0, false
	}
	pkScript, err := c.PkScript(container)
	if err != nil {
		return 0, false
	}
	return idx, bytes.Equal(pkScript, tx.TxOut[idx].PkScript)
}
