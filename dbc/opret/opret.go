// Package opret implements the alternative output container: the commitment is the only push of
// a provably unspendable OP_RETURN output. Nothing is tweaked, so the original must be empty
package opret

import (
	"bytes"

	"github.com/btcsuite/btcd/txscript"
	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/dbc"
	"golang.org/x/xerrors"
)

// ContainerSize is OP_RETURN OP_PUSHBYTES_32 <commitment>
const ContainerSize = 2 + common.DigestSize

type Container struct{}

var _ dbc.TxoContainer = Container{}

func New() Container {
	return Container{}
}

func (Container) Method() dbc.Method {
	return dbc.MethodOpret
}

func (Container) Embed(original []byte, commitment common.Digest) ([]byte, error) {
	if len(original) != 0 {
		return nil, xerrors.Errorf("opret: original must be empty, got %d bytes: %w", len(original), common.ErrMalformedInput)
	}
	ret, err := txscript.NullDataScript(commitment[:])
	common.Assert(err == nil, "opret: %v", err)
	return ret, nil
}

func (c Container) VerifyEmbedding(original []byte, commitment common.Digest, container []byte) bool {
	expected, err := c.Embed(original, commitment)
	if err != nil {
		return false
	}
	return bytes.Equal(expected, container)
}

// Commitment extracts the commitment from the container. Used by explorers, verification always recomputes
func Commitment(container []byte) (common.Digest, bool) {
	if len(container) != ContainerSize || container[0] != txscript.OP_RETURN || container[1] != txscript.OP_DATA_32 {
		return common.Digest{}, false
	}
	ret, _ := common.DigestFromBytes(container[2:])
	return ret, true
}

func (Container) PkScript(container []byte) ([]byte, error) {
	if _, ok := Commitment(container); !ok {
		return nil, xerrors.Errorf("opret: wrong container: %w", common.ErrMalformedInput)
	}
	return container, nil
}

func (Container) IsCandidate(pkScript []byte) bool {
	return txscript.GetScriptClass(pkScript) == txscript.NullDataTy
}
