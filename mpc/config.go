package mpc

import (
	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/tagged"
	"golang.org/x/xerrors"
)

// HardMaxDepth caps the tree width. Every slot of the tree is materialized,
// so the width is bounded to keep the memory of one construction bounded
const HardMaxDepth = 20

// Config parameters of the tree construction
type Config struct {
	// RequirePrivacy guarantees at least one entropy leaf in the tree.
	// Without it a single entry produces a depth 0 tree whose root is the leaf itself
	RequirePrivacy bool `json:"require_privacy"`
	// MinCofactor is the first cofactor tried at every depth
	MinCofactor uint16 `json:"min_cofactor"`
	// MaxCofactor is the last cofactor tried at every depth
	MaxCofactor uint16 `json:"max_cofactor"`
	// MaxDepth is the maximum depth the placement search may grow the tree to
	MaxDepth uint8 `json:"max_depth"`
	// Entropy is the public seed of the padding leaves. nil means random
	Entropy *uint64 `json:"entropy,omitempty"`
	// Engine is the tagged hash engine. nil means tagged.Default
	Engine tagged.Engine `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		RequirePrivacy: true,
		MinCofactor:    0,
		MaxCofactor:    500,
		MaxDepth:       16,
	}
}

func (c *Config) Validate() error {
	if c.MaxDepth > HardMaxDepth {
		return xerrors.Errorf("max_depth must be <= %d: %w", HardMaxDepth, common.ErrMalformedInput)
	}
	if c.MinCofactor > c.MaxCofactor {
		return xerrors.Errorf("min_cofactor must be <= max_cofactor: %w", common.ErrMalformedInput)
	}
	return nil
}

func (c *Config) engine() tagged.Engine {
	if c.Engine == nil {
		return tagged.Default
	}
	return c.Engine
}
