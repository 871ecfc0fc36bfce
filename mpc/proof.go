package mpc

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/tagged"
	"golang.org/x/xerrors"
)

// Proof of inclusion of a (protocol id, message) pair into the tree.
// It is sufficient to replay verification independently of any other leaf's content
type Proof struct {
	// Slot of the leaf
	Slot uint32
	// Depth of the tree, equal to the length of the path
	Depth uint8
	// Cofactor used for the placement
	Cofactor uint16
	// Path sibling hashes from the leaf up to the root
	Path []common.Digest
}

var _ common.Serializable = &Proof{}

func ProofFromBytes(data []byte) (*Proof, error) {
	ret := &Proof{}
	if err := common.FromBytes(ret, data); err != nil {
		return nil, err
	}
	return ret, nil
}

// Root recomputes the commitment root from the pair with the default engine
func (p *Proof) Root(id common.ProtocolID, msg common.Message) common.Digest {
	return p.RootWith(tagged.Default, id, msg)
}

// RootWith recomputes the commitment root from the pair
func (p *Proof) RootWith(e tagged.Engine, id common.ProtocolID, msg common.Message) common.Digest {
	h := realLeafHash(e, id, msg)
	idx := p.Slot
	for _, sibling := range p.Path {
		if idx&1 == 0 {
			h = nodeHash(e, h, sibling)
		} else {
			h = nodeHash(e, sibling, h)
		}
		idx >>= 1
	}
	return commitmentRoot(e, p.Depth, p.Cofactor, h)
}

// Verify checks the proof of the pair against the root with the default engine
func (p *Proof) Verify(root common.Digest, id common.ProtocolID, msg common.Message) bool {
	return p.VerifyWith(tagged.Default, root, id, msg)
}

// VerifyWith checks the proof of the pair against the root.
// The slot must be the one the placement function assigns to the protocol,
// so the same protocol can't be proven at two positions under one root
func (p *Proof) VerifyWith(e tagged.Engine, root common.Digest, id common.ProtocolID, msg common.Message) bool {
	if p.checkShape() != nil {
		return false
	}
	if Slot(e, id, p.Cofactor, p.Depth) != p.Slot {
		return false
	}
	return p.RootWith(e, id, msg) == root
}

// Verify is a shortcut for the proof verification with the default engine
func Verify(root common.Digest, id common.ProtocolID, msg common.Message, proof *Proof) bool {
	if proof == nil {
		return false
	}
	return proof.Verify(root, id, msg)
}

func (p *Proof) checkShape() error {
	if p.Depth > HardMaxDepth {
		return xerrors.Errorf("mpc proof: depth %d > %d: %w", p.Depth, HardMaxDepth, common.ErrMalformedInput)
	}
	if len(p.Path) != int(p.Depth) {
		return xerrors.Errorf("mpc proof: path length %d != depth %d: %w", len(p.Path), p.Depth, common.ErrMalformedInput)
	}
	if uint64(p.Slot) >= uint64(1)<<p.Depth {
		return xerrors.Errorf("mpc proof: slot %d out of width: %w", p.Slot, common.ErrMalformedInput)
	}
	return nil
}

func (p *Proof) Bytes() []byte {
	return common.MustBytes(p)
}

// Write serializes the proof: depth, cofactor, slot followed by depth sibling hashes
func (p *Proof) Write(w io.Writer) error {
	if err := p.checkShape(); err != nil {
		return err
	}
	if err := common.WriteByte(w, p.Depth); err != nil {
		return err
	}
	if err := common.WriteUint16(w, p.Cofactor); err != nil {
		return err
	}
	if err := common.WriteUint32(w, p.Slot); err != nil {
		return err
	}
	for i := range p.Path {
		if err := p.Path[i].Write(w); err != nil {
			return err
		}
	}
	return nil
}

func (p *Proof) Read(r io.Reader) error {
	var err error
	if p.Depth, err = common.ReadByte(r); err != nil {
		return err
	}
	if p.Depth > HardMaxDepth {
		return xerrors.Errorf("mpc proof: wrong depth %d: %w", p.Depth, common.ErrMalformedInput)
	}
	if err = common.ReadUint16(r, &p.Cofactor); err != nil {
		return err
	}
	if err = common.ReadUint32(r, &p.Slot); err != nil {
		return err
	}
	p.Path = make([]common.Digest, p.Depth)
	for i := range p.Path {
		if err = p.Path[i].Read(r); err != nil {
			return err
		}
	}
	return p.checkShape()
}

func (p *Proof) String() string {
	path := make([]string, len(p.Path))
	for i := range p.Path {
		path[i] = hex.EncodeToString(p.Path[i][:4])
	}
	return fmt.Sprintf("mpc proof: slot %d, depth %d, cofactor %d, path [%s]",
		p.Slot, p.Depth, p.Cofactor, strings.Join(path, " "))
}
