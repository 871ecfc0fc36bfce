// Package tagged_blake2b implements tagged.Engine based on blake2b 32-byte hashing.
// The tag is separated by keying blake2b with the hash of the tag
package tagged_blake2b

import (
	"sync"

	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/tagged"
	"golang.org/x/crypto/blake2b"
)

type Engine struct {
	keys sync.Map // tagged.Tag -> [32]byte
}

var _ tagged.Engine = &Engine{}

func New() *Engine {
	return &Engine{}
}

func (e *Engine) key(tag tagged.Tag) []byte {
	if k, ok := e.keys.Load(tag); ok {
		ret := k.([32]byte)
		return ret[:]
	}
	k := blake2b.Sum256([]byte(tag))
	e.keys.Store(tag, k)
	return k[:]
}

func (e *Engine) Commit(tag tagged.Tag, msg ...[]byte) (ret common.Digest) {
	h, err := blake2b.New256(e.key(tag))
	common.Assert(err == nil, "blake2b.New256: %v", err)
	for _, m := range msg {
		h.Write(m)
	}
	copy(ret[:], h.Sum(nil))
	return
}

func (e *Engine) Verify(tag tagged.Tag, digest common.Digest, msg ...[]byte) bool {
	return tagged.VerifyWith(e, tag, digest, msg...)
}

func (e *Engine) Description() string {
	return "tagged commitment engine based on blake2b-256 keyed with the tag hash"
}

func (e *Engine) ShortName() string {
	return "b2b256"
}
