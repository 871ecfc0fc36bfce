// Package p2c implements the pay-to-contract container: the public key P is tweaked into
// P' = P + t·G with t = H(tag, P || C). Knowing P and C anyone can recompute P',
// while P' alone does not reveal C
package p2c

import (
	"bytes"

	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/curve"
	"github.com/iotaledger/seals.go/dbc"
	"github.com/iotaledger/seals.go/tagged"
	"golang.org/x/xerrors"
)

const Tag = tagged.Tag("urn:seals.go:dbc:p2c#v1")

// Container tweaks points of any curve.Group
type Container struct {
	group  curve.Group
	engine tagged.Engine
}

var _ dbc.Container = &Container{}

func New(g curve.Group) *Container {
	return NewWithEngine(g, tagged.Default)
}

func NewWithEngine(g curve.Group, e tagged.Engine) *Container {
	return &Container{group: g, engine: e}
}

func (c *Container) Method() dbc.Method {
	return dbc.MethodP2C
}

func (c *Container) Group() curve.Group {
	return c.group
}

// Tweak derives the scalar t from the serialized original key and the commitment
func (c *Container) Tweak(original []byte, commitment common.Digest) (curve.Scalar, error) {
	t, err := c.group.ScalarFromHash(c.engine.Commit(Tag, original, commitment[:]))
	if err != nil {
		return nil, xerrors.Errorf("p2c tweak: %w", err)
	}
	return t, nil
}

func (c *Container) Embed(original []byte, commitment common.Digest) ([]byte, error) {
	p, err := c.group.ParsePoint(original)
	if err != nil {
		return nil, xerrors.Errorf("p2c: original key: %w", err)
	}
	t, err := c.Tweak(original, commitment)
	if err != nil {
		return nil, err
	}
	ret := c.group.Add(p, c.group.BaseMul(t))
	if ret.IsIdentity() {
		return nil, xerrors.Errorf("p2c: tweaked key is the identity: %w", common.ErrMalformedInput)
	}
	return ret.Bytes(), nil
}

func (c *Container) VerifyEmbedding(original []byte, commitment common.Digest, container []byte) bool {
	expected, err := c.Embed(original, commitment)
	if err != nil {
		return false
	}
	return bytes.Equal(expected, container)
}
