package seal

import (
	"fmt"
	"io"

	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/mpc"
	"github.com/iotaledger/seals.go/tagged"
	"golang.org/x/xerrors"
)

// Anchor is the off-chain part of the seal closing, revealed by the closing party to a verifier.
// With the witness transaction it proves that the message was committed under the protocol
type Anchor struct {
	Method CloseMethod
	// Original is the untweaked key. Empty for OpretFirst
	Original   []byte
	ProtocolID common.ProtocolID
	Message    common.Message
	Proof      *mpc.Proof
}

var _ common.Serializable = &Anchor{}

// NewAnchor extracts the anchor of one protocol from the tree committed by the closing
func NewAnchor(method CloseMethod, original []byte, tree *mpc.Tree, id common.ProtocolID) (*Anchor, error) {
	proof, err := tree.Proof(id)
	if err != nil {
		return nil, err
	}
	msg, _ := tree.Message(id)
	return &Anchor{
		Method:     method,
		Original:   append([]byte(nil), original...),
		ProtocolID: id,
		Message:    msg,
		Proof:      proof,
	}, nil
}

func AnchorFromBytes(data []byte) (*Anchor, error) {
	ret := &Anchor{}
	if err := common.FromBytes(ret, data); err != nil {
		return nil, err
	}
	return ret, nil
}

// Commitment is the tree root recomputed from the proof, the value the container must carry
func (a *Anchor) Commitment(e tagged.Engine) common.Digest {
	return a.Proof.RootWith(e, a.ProtocolID, a.Message)
}

func (a *Anchor) Bytes() []byte {
	return common.MustBytes(a)
}

func (a *Anchor) Write(w io.Writer) error {
	if !a.Method.IsValid() {
		return xerrors.Errorf("anchor: %s: %w", a.Method, ErrWrongMethod)
	}
	if a.Proof == nil {
		return xerrors.Errorf("anchor: proof is missing: %w", common.ErrMalformedInput)
	}
	if err := common.WriteByte(w, byte(a.Method)); err != nil {
		return err
	}
	if err := common.WriteBytes8(w, a.Original); err != nil {
		return err
	}
	if err := a.ProtocolID.Write(w); err != nil {
		return err
	}
	if err := a.Message.Write(w); err != nil {
		return err
	}
	return a.Proof.Write(w)
}

func (a *Anchor) Read(r io.Reader) error {
	b, err := common.ReadByte(r)
	if err != nil {
		return err
	}
	a.Method = CloseMethod(b)
	if !a.Method.IsValid() {
		return xerrors.Errorf("anchor: %s: %w", a.Method, ErrWrongMethod)
	}
	if a.Original, err = common.ReadBytes8(r); err != nil {
		return err
	}
	if err = a.ProtocolID.Read(r); err != nil {
		return err
	}
	if err = a.Message.Read(r); err != nil {
		return err
	}
	a.Proof = &mpc.Proof{}
	return a.Proof.Read(r)
}

func (a *Anchor) String() string {
	return fmt.Sprintf("anchor %s: protocol %s, message %s, %s", a.Method, a.ProtocolID, a.Message, a.Proof)
}
