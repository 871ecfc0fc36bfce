// Package tapret implements the Taproot script path container. The commitment is placed into
// an unspendable tapscript leaf
//
//	OP_RESERVED x29 OP_RETURN OP_PUSHBYTES_33 <commitment || nonce>
//
// and the output key is the internal key tweaked with the leaf as the only script tree element.
// The output stays spendable by the key path
package tapret

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/dbc"
	"golang.org/x/xerrors"
)

const (
	numReserved = 29
	// LeafScriptSize is the size of the commitment leaf script
	LeafScriptSize = numReserved + 2 + common.DigestSize + 1
	// ContainerSize is the size of the P2TR output script
	ContainerSize = 34
)

type Container struct {
	// Nonce is the last byte of the pushed data
	Nonce byte
}

var _ dbc.TxoContainer = &Container{}

func New() *Container {
	return &Container{}
}

func (c *Container) Method() dbc.Method {
	return dbc.MethodTapret
}

// LeafScript is the tapscript leaf committing to the commitment
func (c *Container) LeafScript(commitment common.Digest) []byte {
	ret := make([]byte, 0, LeafScriptSize)
	for i := 0; i < numReserved; i++ {
		ret = append(ret, txscript.OP_RESERVED)
	}
	ret = append(ret, txscript.OP_RETURN, txscript.OP_DATA_33)
	ret = append(ret, commitment[:]...)
	ret = append(ret, c.Nonce)
	common.Assert(len(ret) == LeafScriptSize, "tapret: wrong leaf script size")
	return ret
}

// ScriptRoot is the tap tree root: the hash of the single commitment leaf.
// It is the tweak the owner applies to the internal private key for the key path spend
func (c *Container) ScriptRoot(commitment common.Digest) chainhash.Hash {
	return txscript.NewBaseTapLeaf(c.LeafScript(commitment)).TapHash()
}

// OutputKey computes the Taproot output key
func (c *Container) OutputKey(original []byte, commitment common.Digest) (*btcec.PublicKey, error) {
	internal, err := parseInternalKey(original)
	if err != nil {
		return nil, err
	}
	root := c.ScriptRoot(commitment)
	return txscript.ComputeTaprootOutputKey(internal, root[:]), nil
}

// parseInternalKey accepts the 32 byte x-only or the 33 byte compressed key
func parseInternalKey(data []byte) (*btcec.PublicKey, error) {
	var ret *btcec.PublicKey
	var err error
	switch len(data) {
	case schnorr.PubKeyBytesLen:
		ret, err = schnorr.ParsePubKey(data)
	case btcec.PubKeyBytesLenCompressed:
		ret, err = btcec.ParsePubKey(data)
	default:
		return nil, xerrors.Errorf("tapret: internal key must be 32 or 33 bytes, got %d: %w", len(data), common.ErrMalformedInput)
	}
	if err != nil {
		return nil, xerrors.Errorf("tapret: internal key: %v: %w", err, common.ErrMalformedInput)
	}
	return ret, nil
}

// Embed returns the P2TR output script
func (c *Container) Embed(original []byte, commitment common.Digest) ([]byte, error) {
	key, err := c.OutputKey(original, commitment)
	if err != nil {
		return nil, err
	}
	ret, err := txscript.PayToTaprootScript(key)
	if err != nil {
		return nil, xerrors.Errorf("tapret: %v: %w", err, common.ErrMalformedInput)
	}
	return ret, nil
}

func (c *Container) VerifyEmbedding(original []byte, commitment common.Digest, container []byte) bool {
	expected, err := c.Embed(original, commitment)
	if err != nil {
		return false
	}
	return bytes.Equal(expected, container)
}

// PkScript is the container itself
func (c *Container) PkScript(container []byte) ([]byte, error) {
	if !txscript.IsPayToTaproot(container) {
		return nil, xerrors.Errorf("tapret: container is not a P2TR script: %w", common.ErrMalformedInput)
	}
	return container, nil
}

func (c *Container) IsCandidate(pkScript []byte) bool {
	return txscript.IsPayToTaproot(pkScript)
}
