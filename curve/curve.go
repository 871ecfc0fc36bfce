// Package curve contains the minimal elliptic curve capability needed for public key tweaking.
// Commitment containers are written against the interfaces, so the tweak logic does not depend
// on any particular curve implementation
package curve

import (
	"github.com/iotaledger/seals.go/common"
	"golang.org/x/xerrors"
)

// ErrScalarOutOfRange is returned when a hash does not map to a valid non-zero scalar
var ErrScalarOutOfRange = xerrors.New("hash is not a valid non-zero scalar of the group")

type Point interface {
	// Bytes is the canonical serialization of the point, the one accepted by Group.ParsePoint
	Bytes() []byte
	Equal(p Point) bool
	// IsIdentity is true for the neutral element, which has no valid serialization
	IsIdentity() bool
}

type Scalar interface {
	Bytes() []byte
	IsZero() bool
}

// Group is a prime order group with a fixed generator G.
// Points and scalars of one group must not be mixed with those of another
type Group interface {
	Name() string
	ParsePoint(data []byte) (Point, error)
	// ScalarFromHash interprets the digest as a scalar
	ScalarFromHash(h common.Digest) (Scalar, error)
	Add(a, b Point) Point
	// BaseMul returns s·G
	BaseMul(s Scalar) Point
	// Mul returns s·p
	Mul(s Scalar, p Point) Point
}
