package tagged

import (
	"crypto/sha256"
	"sync"

	"github.com/iotaledger/seals.go/common"
)

// sha256Engine computes SHA256(SHA256(tag) || SHA256(tag) || msg) as in BIP-340.
// Tag hashes are cached
type sha256Engine struct {
	tagHashes sync.Map // Tag -> [32]byte
}

var _ Engine = &sha256Engine{}

func NewSHA256() Engine {
	return &sha256Engine{}
}

func (e *sha256Engine) tagHash(tag Tag) [32]byte {
	if h, ok := e.tagHashes.Load(tag); ok {
		return h.([32]byte)
	}
	h := sha256.Sum256([]byte(tag))
	e.tagHashes.Store(tag, h)
	return h
}

func (e *sha256Engine) Commit(tag Tag, msg ...[]byte) (ret common.Digest) {
	th := e.tagHash(tag)
	h := sha256.New()
	h.Write(th[:])
	h.Write(th[:])
	for _, m := range msg {
		h.Write(m)
	}
	copy(ret[:], h.Sum(nil))
	return
}

func (e *sha256Engine) Verify(tag Tag, digest common.Digest, msg ...[]byte) bool {
	return VerifyWith(e, tag, digest, msg...)
}

func (e *sha256Engine) Description() string {
	return "tagged commitment engine based on BIP-340 tagged SHA-256"
}

func (e *sha256Engine) ShortName() string {
	return "sha256"
}
