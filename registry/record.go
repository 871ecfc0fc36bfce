package registry

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/seal"
	"golang.org/x/xerrors"
)

// Record is the persisted state of a seal known to the holder
type Record struct {
	Seal    seal.RevealedSeal
	Status  seal.Status
	Message common.Message
	Witness *chainhash.Hash
	// Kind classifies the invalidity reason
	Kind seal.ReasonKind
	// Reason is the text of the invalidity reason
	Reason string
}

var _ common.Serializable = &Record{}

func RecordFromBytes(data []byte) (*Record, error) {
	ret := &Record{}
	if err := common.FromBytes(ret, data); err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *Record) Bytes() []byte {
	return common.MustBytes(r)
}

func (r *Record) Write(w io.Writer) error {
	if err := r.Seal.Write(w); err != nil {
		return err
	}
	if err := common.WriteByte(w, byte(r.Status)); err != nil {
		return err
	}
	if err := r.Message.Write(w); err != nil {
		return err
	}
	if r.Witness == nil {
		if err := common.WriteByte(w, 0); err != nil {
			return err
		}
	} else {
		if err := common.WriteByte(w, 1); err != nil {
			return err
		}
		if _, err := w.Write(r.Witness[:]); err != nil {
			return err
		}
	}
	if err := common.WriteByte(w, byte(r.Kind)); err != nil {
		return err
	}
	return common.WriteBytes16(w, []byte(r.Reason))
}

func (r *Record) Read(rd io.Reader) error {
	if err := r.Seal.Read(rd); err != nil {
		return err
	}
	b, err := common.ReadByte(rd)
	if err != nil {
		return err
	}
	r.Status = seal.Status(b)
	if r.Status > seal.StatusInvalid {
		return xerrors.Errorf("registry: wrong status %d: %w", b, common.ErrMalformedInput)
	}
	if err = r.Message.Read(rd); err != nil {
		return err
	}
	if b, err = common.ReadByte(rd); err != nil {
		return err
	}
	switch b {
	case 0:
		r.Witness = nil
	case 1:
		r.Witness = new(chainhash.Hash)
		if _, err = io.ReadFull(rd, r.Witness[:]); err != nil {
			return err
		}
	default:
		return xerrors.Errorf("registry: wrong witness flag %d: %w", b, common.ErrMalformedInput)
	}
	if b, err = common.ReadByte(rd); err != nil {
		return err
	}
	r.Kind = seal.ReasonKind(b)
	if !r.Kind.IsValid() {
		return xerrors.Errorf("registry: wrong reason kind %d: %w", b, common.ErrMalformedInput)
	}
	reason, err := common.ReadBytes16(rd)
	if err != nil {
		return err
	}
	r.Reason = string(reason)
	return nil
}

func (r *Record) String() string {
	switch r.Status {
	case seal.StatusClosed:
		return fmt.Sprintf("%s: closed(%s) by %s", r.Seal, r.Message, r.Witness)
	case seal.StatusInvalid:
		return fmt.Sprintf("%s: invalid(%s): %s", r.Seal, r.Kind, r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Seal, r.Status)
}

// IsFinal is the default finality policy: closed seals and verification mismatches
func (r *Record) IsFinal() bool {
	return seal.IsFinal(r.Status, r.Kind)
}

// sameOutcome compares final outcomes
func (r *Record) sameOutcome(res *seal.Result) bool {
	if r.Status != res.Status || r.Kind != res.Kind() {
		return false
	}
	if r.Status != seal.StatusClosed {
		return true
	}
	if r.Message != res.Message {
		return false
	}
	if r.Witness == nil || res.Witness == nil {
		return r.Witness == nil && res.Witness == nil
	}
	return r.Witness.IsEqual(res.Witness)
}
