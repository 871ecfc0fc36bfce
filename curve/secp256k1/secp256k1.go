// Package secp256k1 implements curve.Group over secp256k1.
// Points are serialized in the 33 byte compressed SEC1 format
package secp256k1

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/curve"
	"golang.org/x/xerrors"
)

const PointSize = secp256k1.PubKeyBytesLenCompressed

type Group struct{}

type point struct {
	jp secp256k1.JacobianPoint
}

type scalar struct {
	s secp256k1.ModNScalar
}

var (
	_ curve.Group  = Group{}
	_ curve.Point  = &point{}
	_ curve.Scalar = &scalar{}
)

func New() Group {
	return Group{}
}

func (Group) Name() string {
	return "secp256k1"
}

func (Group) ParsePoint(data []byte) (curve.Point, error) {
	if len(data) != PointSize {
		return nil, xerrors.Errorf("secp256k1: point must be %d bytes compressed, got %d: %w", PointSize, len(data), common.ErrMalformedInput)
	}
	pub, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return nil, xerrors.Errorf("secp256k1: %v: %w", err, common.ErrMalformedInput)
	}
	ret := &point{}
	pub.AsJacobian(&ret.jp)
	return ret, nil
}

// ScalarFromHash takes the digest as a big endian number. Values >= n and zero are rejected, never reduced
func (Group) ScalarFromHash(h common.Digest) (curve.Scalar, error) {
	ret := &scalar{}
	if overflow := ret.s.SetBytes((*[32]byte)(&h)); overflow != 0 {
		return nil, xerrors.Errorf("secp256k1: %s >= n: %w", h, curve.ErrScalarOutOfRange)
	}
	if ret.s.IsZero() {
		return nil, xerrors.Errorf("secp256k1: zero scalar: %w", curve.ErrScalarOutOfRange)
	}
	return ret, nil
}

func (Group) Add(a, b curve.Point) curve.Point {
	ret := &point{}
	secp256k1.AddNonConst(&mustPoint(a).jp, &mustPoint(b).jp, &ret.jp)
	ret.jp.ToAffine()
	return ret
}

func (Group) BaseMul(s curve.Scalar) curve.Point {
	ret := &point{}
	secp256k1.ScalarBaseMultNonConst(&mustScalar(s).s, &ret.jp)
	ret.jp.ToAffine()
	return ret
}

func (Group) Mul(s curve.Scalar, p curve.Point) curve.Point {
	ret := &point{}
	secp256k1.ScalarMultNonConst(&mustScalar(s).s, &mustPoint(p).jp, &ret.jp)
	ret.jp.ToAffine()
	return ret
}

func mustPoint(p curve.Point) *point {
	ret, ok := p.(*point)
	common.Assert(ok, "secp256k1: foreign point type %T", p)
	return ret
}

func mustScalar(s curve.Scalar) *scalar {
	ret, ok := s.(*scalar)
	common.Assert(ok, "secp256k1: foreign scalar type %T", s)
	return ret
}

// PublicKey converts the point to the decred public key. The point must not be the identity
func PublicKey(p curve.Point) *secp256k1.PublicKey {
	pp := mustPoint(p)
	common.Assert(!pp.IsIdentity(), "secp256k1: identity has no public key")
	return secp256k1.NewPublicKey(&pp.jp.X, &pp.jp.Y)
}

func (p *point) IsIdentity() bool {
	return p.jp.Z.IsZero() || (p.jp.X.IsZero() && p.jp.Y.IsZero())
}

func (p *point) Bytes() []byte {
	if p.IsIdentity() {
		return nil
	}
	return secp256k1.NewPublicKey(&p.jp.X, &p.jp.Y).SerializeCompressed()
}

func (p *point) Equal(p1 curve.Point) bool {
	other, ok := p1.(*point)
	if !ok {
		return false
	}
	if p.IsIdentity() || other.IsIdentity() {
		return p.IsIdentity() == other.IsIdentity()
	}
	return p.jp.X.Equals(&other.jp.X) && p.jp.Y.Equals(&other.jp.Y)
}

func (s *scalar) Bytes() []byte {
	ret := s.s.Bytes()
	return ret[:]
}

func (s *scalar) IsZero() bool {
	return s.s.IsZero()
}
