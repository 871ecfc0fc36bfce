// Package seal implements single-use seals over Bitcoin transaction outputs.
// A seal is defined on an outpoint and closed by a transaction spending it while carrying a
// deterministic commitment to a message. The package validates closings against chain data,
// it never produces them: spending requires a signature, which is the business of the wallet
package seal

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/iotaledger/seals.go/common"
	"golang.org/x/xerrors"
)

// noTxid in the string form stands for the witness transaction
const noTxid = "~"

// ExplicitSeal is the seal definition in the clear
type ExplicitSeal struct {
	Method CloseMethod
	// Txid is nil when the seal is defined on an output of the witness transaction itself,
	// which id is not known at the definition time
	Txid *chainhash.Hash
	Vout uint32
}

var _ common.Serializable = &ExplicitSeal{}

func NewExplicitSeal(method CloseMethod, outpoint wire.OutPoint) ExplicitSeal {
	txid := outpoint.Hash
	return ExplicitSeal{Method: method, Txid: &txid, Vout: outpoint.Index}
}

// NewWitnessVoutSeal defines the seal on the output of the yet unknown witness transaction
func NewWitnessVoutSeal(method CloseMethod, vout uint32) ExplicitSeal {
	return ExplicitSeal{Method: method, Vout: vout}
}

func ExplicitSealFromBytes(data []byte) (ExplicitSeal, error) {
	var ret ExplicitSeal
	err := common.FromBytes(&ret, data)
	return ret, err
}

// Outpoint fails with ErrWitnessVout if the txid is unknown
func (s *ExplicitSeal) Outpoint() (wire.OutPoint, error) {
	if s.Txid == nil {
		return wire.OutPoint{}, xerrors.Errorf("%s: %w", s, ErrWitnessVout)
	}
	return wire.OutPoint{Hash: *s.Txid, Index: s.Vout}, nil
}

func (s *ExplicitSeal) TxidOr(defaultTxid chainhash.Hash) chainhash.Hash {
	if s.Txid == nil {
		return defaultTxid
	}
	return *s.Txid
}

// OutpointOr resolves the witness vout seal with the default txid
func (s *ExplicitSeal) OutpointOr(defaultTxid chainhash.Hash) wire.OutPoint {
	return wire.OutPoint{Hash: s.TxidOr(defaultTxid), Index: s.Vout}
}

func (s *ExplicitSeal) Equal(s1 *ExplicitSeal) bool {
	if s.Method != s1.Method || s.Vout != s1.Vout {
		return false
	}
	if s.Txid == nil || s1.Txid == nil {
		return s.Txid == nil && s1.Txid == nil
	}
	return s.Txid.IsEqual(s1.Txid)
}

// String is 'method:txid:vout', '~' stands for the unknown txid
func (s ExplicitSeal) String() string {
	txid := noTxid
	if s.Txid != nil {
		txid = s.Txid.String()
	}
	return fmt.Sprintf("%s:%s:%d", s.Method, txid, s.Vout)
}

// ParseExplicitSeal parses the string form. Both ':' and '#' are accepted as separators
func ParseExplicitSeal(s string) (ExplicitSeal, error) {
	parts := splitSeal(s)
	switch {
	case len(parts) == 0 || parts[0] == "" || parts[0] == noTxid:
		return ExplicitSeal{}, xerrors.Errorf("'%s': %w", s, ErrMethodRequired)
	case len(parts) >= 2 && parts[1] == "":
		return ExplicitSeal{}, xerrors.Errorf("'%s': %w", s, ErrTxidRequired)
	case len(parts) != 3:
		return ExplicitSeal{}, xerrors.Errorf("'%s': %w", s, ErrWrongStructure)
	}
	var ret ExplicitSeal
	var err error
	if ret.Method, err = ParseCloseMethod(parts[0]); err != nil {
		return ExplicitSeal{}, err
	}
	if parts[1] != noTxid {
		if ret.Txid, err = parseTxid(parts[1]); err != nil {
			return ExplicitSeal{}, err
		}
	}
	if ret.Vout, err = parseVout(parts[2]); err != nil {
		return ExplicitSeal{}, err
	}
	return ret, nil
}

// splitSeal keeps empty fields, they are significant
func splitSeal(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "#", ":"), ":")
}

func parseTxid(s string) (*chainhash.Hash, error) {
	if len(s) != 2*chainhash.HashSize {
		return nil, xerrors.Errorf("'%s': %w", s, ErrWrongTxid)
	}
	ret, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return nil, xerrors.Errorf("'%s': %v: %w", s, err, ErrWrongTxid)
	}
	return ret, nil
}

func parseVout(s string) (uint32, error) {
	ret, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, xerrors.Errorf("'%s': %w", s, ErrWrongVout)
	}
	return uint32(ret), nil
}

func (s *ExplicitSeal) Bytes() []byte {
	return common.MustBytes(s)
}

// Write encodes method, txid presence flag, txid if present and vout
func (s *ExplicitSeal) Write(w io.Writer) error {
	if !s.Method.IsValid() {
		return xerrors.Errorf("%s: %w", s.Method, ErrWrongMethod)
	}
	if err := common.WriteByte(w, byte(s.Method)); err != nil {
		return err
	}
	if s.Txid == nil {
		if err := common.WriteByte(w, 0); err != nil {
			return err
		}
	} else {
		if err := common.WriteByte(w, 1); err != nil {
			return err
		}
		if _, err := w.Write(s.Txid[:]); err != nil {
			return err
		}
	}
	return common.WriteUint32(w, s.Vout)
}

func (s *ExplicitSeal) Read(r io.Reader) error {
	b, err := common.ReadByte(r)
	if err != nil {
		return err
	}
	s.Method = CloseMethod(b)
	if !s.Method.IsValid() {
		return xerrors.Errorf("%s: %w", s.Method, ErrWrongMethod)
	}
	if b, err = common.ReadByte(r); err != nil {
		return err
	}
	switch b {
	case 0:
		s.Txid = nil
	case 1:
		s.Txid = new(chainhash.Hash)
		if _, err = io.ReadFull(r, s.Txid[:]); err != nil {
			return err
		}
	default:
		return xerrors.Errorf("seal: wrong txid flag %d: %w", b, common.ErrMalformedInput)
	}
	return common.ReadUint32(r, &s.Vout)
}
