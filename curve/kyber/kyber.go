// Package kyber adapts any kyber.Group to curve.Group
package kyber

import (
	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/curve"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/group/edwards25519"
	"golang.org/x/xerrors"
)

type Group struct {
	g kyber.Group
}

type point struct {
	p kyber.Point
}

type scalar struct {
	s kyber.Scalar
}

var (
	_ curve.Group  = &Group{}
	_ curve.Point  = &point{}
	_ curve.Scalar = &scalar{}
)

func New(g kyber.Group) *Group {
	return &Group{g: g}
}

// NewEd25519 is the group over the twisted Edwards curve 25519
func NewEd25519() *Group {
	return New(edwards25519.NewBlakeSHA256Ed25519())
}

func (g *Group) Name() string {
	return g.g.String()
}

func (g *Group) ParsePoint(data []byte) (curve.Point, error) {
	if len(data) != g.g.PointLen() {
		return nil, xerrors.Errorf("%s: point must be %d bytes, got %d: %w", g.g, g.g.PointLen(), len(data), common.ErrMalformedInput)
	}
	p := g.g.Point()
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, xerrors.Errorf("%s: %v: %w", g.g, err, common.ErrMalformedInput)
	}
	ret := &point{p: p}
	if ret.IsIdentity() {
		return nil, xerrors.Errorf("%s: identity point: %w", g.g, common.ErrMalformedInput)
	}
	return ret, nil
}

// ScalarFromHash reduces the digest modulo the group order with the group's byte order. Zero is rejected
func (g *Group) ScalarFromHash(h common.Digest) (curve.Scalar, error) {
	s := g.g.Scalar().SetBytes(h[:])
	if s.Equal(g.g.Scalar().Zero()) {
		return nil, xerrors.Errorf("%s: zero scalar: %w", g.g, curve.ErrScalarOutOfRange)
	}
	return &scalar{s: s}, nil
}

func (g *Group) Add(a, b curve.Point) curve.Point {
	return &point{p: g.g.Point().Add(mustPoint(a).p, mustPoint(b).p)}
}

func (g *Group) BaseMul(s curve.Scalar) curve.Point {
	return &point{p: g.g.Point().Mul(mustScalar(s).s, nil)}
}

func (g *Group) Mul(s curve.Scalar, p curve.Point) curve.Point {
	return &point{p: g.g.Point().Mul(mustScalar(s).s, mustPoint(p).p)}
}

func mustPoint(p curve.Point) *point {
	ret, ok := p.(*point)
	common.Assert(ok, "kyber: foreign point type %T", p)
	return ret
}

func mustScalar(s curve.Scalar) *scalar {
	ret, ok := s.(*scalar)
	common.Assert(ok, "kyber: foreign scalar type %T", s)
	return ret
}

func (p *point) Bytes() []byte {
	if p.IsIdentity() {
		return nil
	}
	ret, err := p.p.MarshalBinary()
	common.Assert(err == nil, "kyber: %v", err)
	return ret
}

func (p *point) Equal(p1 curve.Point) bool {
	other, ok := p1.(*point)
	if !ok {
		return false
	}
	return p.p.Equal(other.p)
}

func (p *point) IsIdentity() bool {
	return p.p.Equal(p.p.Clone().Null())
}

func (s *scalar) Bytes() []byte {
	ret, err := s.s.MarshalBinary()
	common.Assert(err == nil, "kyber: %v", err)
	return ret
}

func (s *scalar) IsZero() bool {
	return s.s.Equal(s.s.Clone().Zero())
}
