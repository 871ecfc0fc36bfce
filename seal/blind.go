package seal

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/wire"
	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/tagged"
	"golang.org/x/xerrors"
)

const (
	TagConceal = tagged.Tag("urn:seals.go:seal:conceal#v1")
	// HRP is the Bech32 human readable part of concealed seals
	HRP = "utxob"
)

// RevealedSeal is the seal definition together with the blinding factor.
// The factor is generated locally and kept by the holder: it is never derived from the seal
type RevealedSeal struct {
	ExplicitSeal
	Blinding uint64
}

var _ common.Serializable = &RevealedSeal{}

// NewRevealedSeal defines the seal with a fresh random blinding factor
func NewRevealedSeal(method CloseMethod, outpoint wire.OutPoint) (RevealedSeal, error) {
	blinding, err := randomBlinding()
	if err != nil {
		return RevealedSeal{}, err
	}
	return RevealedSeal{ExplicitSeal: NewExplicitSeal(method, outpoint), Blinding: blinding}, nil
}

// NewRevealedWitnessVoutSeal is NewRevealedSeal for the output of the witness transaction
func NewRevealedWitnessVoutSeal(method CloseMethod, vout uint32) (RevealedSeal, error) {
	blinding, err := randomBlinding()
	if err != nil {
		return RevealedSeal{}, err
	}
	return RevealedSeal{ExplicitSeal: NewWitnessVoutSeal(method, vout), Blinding: blinding}, nil
}

func randomBlinding() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, xerrors.Errorf("seal: blinding: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func RevealedSealFromBytes(data []byte) (RevealedSeal, error) {
	var ret RevealedSeal
	err := common.FromBytes(&ret, data)
	return ret, err
}

// Conceal commits to the seal definition and the blinding factor
func (s *RevealedSeal) Conceal() ConcealedSeal {
	return ConcealedSeal(tagged.Commit(TagConceal, s.Bytes()))
}

func (s *RevealedSeal) Bytes() []byte {
	return common.MustBytes(s)
}

func (s *RevealedSeal) Write(w io.Writer) error {
	if err := s.ExplicitSeal.Write(w); err != nil {
		return err
	}
	return common.WriteUint64(w, s.Blinding)
}

func (s *RevealedSeal) Read(r io.Reader) error {
	if err := s.ExplicitSeal.Read(r); err != nil {
		return err
	}
	return common.ReadUint64(r, &s.Blinding)
}

// String is 'method:txid:vout#blinding'
func (s RevealedSeal) String() string {
	return fmt.Sprintf("%s#%d", s.ExplicitSeal, s.Blinding)
}

func ParseRevealedSeal(s string) (RevealedSeal, error) {
	pos := strings.LastIndexByte(s, '#')
	if pos < 0 {
		return RevealedSeal{}, xerrors.Errorf("'%s': blinding is missing: %w", s, ErrWrongStructure)
	}
	explicit, err := ParseExplicitSeal(s[:pos])
	if err != nil {
		return RevealedSeal{}, err
	}
	blinding, err := strconv.ParseUint(s[pos+1:], 10, 64)
	if err != nil {
		return RevealedSeal{}, xerrors.Errorf("'%s': %w", s, ErrWrongBlinding)
	}
	return RevealedSeal{ExplicitSeal: explicit, Blinding: blinding}, nil
}

// ConcealedSeal is the public reference to a seal, hiding the outpoint until the holder reveals it
type ConcealedSeal common.Digest

var _ common.Serializable = &ConcealedSeal{}

// VerifyDisclosure checks that the revealed seal is the one behind the concealed reference
func VerifyDisclosure(concealed ConcealedSeal, revealed *RevealedSeal) bool {
	return tagged.Verify(TagConceal, common.Digest(concealed), revealed.Bytes())
}

func (c *ConcealedSeal) Read(r io.Reader) error {
	return (*common.Digest)(c).Read(r)
}

func (c *ConcealedSeal) Write(w io.Writer) error {
	return (*common.Digest)(c).Write(w)
}

func (c *ConcealedSeal) Bytes() []byte {
	return (*common.Digest)(c).Bytes()
}

// String is the Bech32 form
func (c ConcealedSeal) String() string {
	data, err := bech32.ConvertBits(c[:], 8, 5, true)
	common.Assert(err == nil, "seal: bech32: %v", err)
	ret, err := bech32.Encode(HRP, data)
	common.Assert(err == nil, "seal: bech32: %v", err)
	return ret
}

func ParseConcealedSeal(s string) (ConcealedSeal, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return ConcealedSeal{}, xerrors.Errorf("'%s': %v: %w", s, err, ErrBech32)
	}
	if hrp != HRP {
		return ConcealedSeal{}, xerrors.Errorf("'%s': wrong prefix '%s': %w", s, hrp, ErrBech32)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return ConcealedSeal{}, xerrors.Errorf("'%s': %v: %w", s, err, ErrBech32)
	}
	d, err := common.DigestFromBytes(raw)
	if err != nil {
		return ConcealedSeal{}, xerrors.Errorf("'%s': %v: %w", s, err, ErrBech32)
	}
	return ConcealedSeal(d), nil
}

func (c ConcealedSeal) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ConcealedSeal) UnmarshalText(text []byte) error {
	ret, err := ParseConcealedSeal(string(text))
	if err != nil {
		return err
	}
	*c = ret
	return nil
}
