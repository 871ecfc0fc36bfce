package p2c

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	dsecp "github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/curve/secp256k1"
	"github.com/iotaledger/seals.go/dbc"
	"golang.org/x/xerrors"
)

// Bitcoin is the secp256k1 pay-to-contract container committing into a P2WPKH output.
// The original is a 33 byte compressed public key
type Bitcoin struct {
	*Container
}

var _ dbc.TxoContainer = &Bitcoin{}

func NewBitcoin() *Bitcoin {
	return &Bitcoin{Container: New(secp256k1.New())}
}

// PkScript returns the P2WPKH script paying to the tweaked key
func (b *Bitcoin) PkScript(container []byte) ([]byte, error) {
	if len(container) != secp256k1.PointSize {
		return nil, xerrors.Errorf("p2c: container must be %d bytes, got %d: %w", secp256k1.PointSize, len(container), common.ErrMalformedInput)
	}
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(btcutil.Hash160(container)).
		Script()
}

func (b *Bitcoin) IsCandidate(pkScript []byte) bool {
	return txscript.IsPayToWitnessPubKeyHash(pkScript)
}

// TweakPrivKey returns the private key x + t of the tweaked public key, used to spend the output
func (b *Bitcoin) TweakPrivKey(priv *btcec.PrivateKey, commitment common.Digest) (*btcec.PrivateKey, error) {
	original := priv.PubKey().SerializeCompressed()
	t, err := b.Tweak(original, commitment)
	if err != nil {
		return nil, err
	}
	var tBytes [32]byte
	copy(tBytes[:], t.Bytes())
	var k btcec.ModNScalar
	k.SetBytes(&tBytes)
	k.Add(&priv.Key)
	if k.IsZero() {
		return nil, xerrors.Errorf("p2c: tweaked private key is zero: %w", common.ErrMalformedInput)
	}
	return dsecp.NewPrivateKey(&k), nil
}
