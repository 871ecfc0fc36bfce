package seal

import (
	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/dbc"
	"github.com/iotaledger/seals.go/dbc/opret"
	"github.com/iotaledger/seals.go/dbc/p2c"
	"github.com/iotaledger/seals.go/dbc/tapret"
	"github.com/iotaledger/seals.go/mpc"
	"golang.org/x/xerrors"
)

// Containers maps close methods to container strategies
type Containers map[CloseMethod]dbc.TxoContainer

func DefaultContainers() Containers {
	return Containers{
		OpretFirst:  opret.New(),
		TapretFirst: tapret.New(),
		P2CFirst:    p2c.NewBitcoin(),
	}
}

func (c Containers) Get(m CloseMethod) (dbc.TxoContainer, error) {
	ret, ok := c[m]
	if !ok {
		return nil, xerrors.Errorf("no container for %s: %w", m, ErrWrongMethod)
	}
	return ret, nil
}

// Closing is what the witness transaction must carry to close a seal over the tree
type Closing struct {
	Method     CloseMethod
	Commitment common.Digest
	Container  []byte
	// PkScript must be the first output of the method's kind in the witness transaction
	PkScript []byte
}

// Close computes the output closing seals over the tree. Building and signing the
// witness transaction is up to the caller
func (c Containers) Close(method CloseMethod, original []byte, tree *mpc.Tree) (*Closing, error) {
	container, err := c.Get(method)
	if err != nil {
		return nil, err
	}
	ret := &Closing{Method: method, Commitment: tree.Root()}
	if ret.Container, err = container.Embed(original, ret.Commitment); err != nil {
		return nil, err
	}
	if ret.PkScript, err = container.PkScript(ret.Container); err != nil {
		return nil, err
	}
	return ret, nil
}
