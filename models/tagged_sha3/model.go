// Package tagged_sha3 implements tagged.Engine with SHA3-256 using the BIP-340 tag layout
package tagged_sha3

import (
	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/tagged"
	"golang.org/x/crypto/sha3"
)

type Engine struct{}

var _ tagged.Engine = Engine{}

func New() Engine {
	return Engine{}
}

func (Engine) Commit(tag tagged.Tag, msg ...[]byte) (ret common.Digest) {
	th := sha3.Sum256([]byte(tag))
	h := sha3.New256()
	h.Write(th[:])
	h.Write(th[:])
	for _, m := range msg {
		h.Write(m)
	}
	copy(ret[:], h.Sum(nil))
	return
}

func (e Engine) Verify(tag tagged.Tag, digest common.Digest, msg ...[]byte) bool {
	return tagged.VerifyWith(e, tag, digest, msg...)
}

func (Engine) Description() string {
	return "tagged commitment engine based on SHA3-256"
}

func (Engine) ShortName() string {
	return "sha3"
}
