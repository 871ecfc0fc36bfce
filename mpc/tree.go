// Package mpc implements the multi-protocol commitment tree: many independent
// (protocol id, message) pairs are committed into one 32 byte digest.
// Every protocol occupies a slot of a complete binary tree, defined by a hash based
// placement function of the protocol id, the tree depth and a cofactor. Unoccupied slots are
// filled with entropy leaves, so the tree does not reveal the number of committed protocols.
// A holder of one pair proves its inclusion with the sibling path of its slot,
// without learning any other protocol's message.
package mpc

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/tagged"
	"golang.org/x/xerrors"
)

const (
	TagLeaf    = tagged.Tag("urn:seals.go:mpc:leaf#v1")
	TagEntropy = tagged.Tag("urn:seals.go:mpc:entropy#v1")
	TagNode    = tagged.Tag("urn:seals.go:mpc:node#v1")
	TagSlot    = tagged.Tag("urn:seals.go:mpc:slot#v1")
	TagRoot    = tagged.Tag("urn:seals.go:mpc:root#v1")
	TagMessage = tagged.Tag("urn:seals.go:mpc:message#v1")
)

var ErrUnknownProtocol = xerrors.New("protocol is not committed in the tree")

// MessageFromData commits to arbitrary payload bytes with the default engine
func MessageFromData(data []byte) common.Message {
	return common.Message(tagged.Commit(TagMessage, data))
}

type LeafKind byte

const (
	LeafEntropy = LeafKind(iota)
	LeafReal
)

func (k LeafKind) String() string {
	switch k {
	case LeafEntropy:
		return "entropy"
	case LeafReal:
		return "real"
	}
	return "LeafKind(wrong)"
}

// Leaf is a slot of the tree
type Leaf struct {
	Kind       LeafKind
	ProtocolID common.ProtocolID
	Message    common.Message
	Hash       common.Digest
}

// Tree is an immutable commitment tree. Safe for concurrent reads
type Tree struct {
	engine   tagged.Engine
	depth    uint8
	cofactor uint16
	entropy  uint64
	attempts int
	leaves   []Leaf
	// layers[0] are leaf hashes, layers[depth] is the Merkle root
	layers [][]common.Digest
	slots  map[common.ProtocolID]uint32
	root   common.Digest
}

// Build constructs the tree from the entries. The protocol ids are unique by the map semantics
func Build(entries map[common.ProtocolID]common.Message, cfg Config) (*Tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, xerrors.Errorf("mpc: empty entry set: %w", common.ErrMalformedInput)
	}
	e := cfg.engine()
	ids := make([]common.ProtocolID, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })

	depth, cofactor, slots, attempts, err := place(e, ids, &cfg)
	if err != nil {
		return nil, err
	}
	ret := &Tree{
		engine:   e,
		depth:    depth,
		cofactor: cofactor,
		attempts: attempts,
		slots:    slots,
	}
	if cfg.Entropy != nil {
		ret.entropy = *cfg.Entropy
	} else if ret.entropy, err = randomEntropy(); err != nil {
		return nil, err
	}
	ret.build(entries)
	return ret, nil
}

func randomEntropy() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, xerrors.Errorf("mpc: entropy: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// startDepth is the smallest depth able to hold n entries. With privacy it leaves at least one entropy slot
func startDepth(n int, privacy bool) uint8 {
	var d uint8
	for {
		width := 1 << d
		if width > n || (!privacy && width == n) {
			return d
		}
		d++
	}
}

// place searches the depth and cofactor giving a collision free placement of all ids.
// The search is an explicit bounded loop: depth grows only after all cofactors of the current depth collided
func place(e tagged.Engine, ids []common.ProtocolID, cfg *Config) (uint8, uint16, map[common.ProtocolID]uint32, int, error) {
	attempts := 0
	for depth := startDepth(len(ids), cfg.RequirePrivacy); depth <= cfg.MaxDepth; depth++ {
		for cofactor := uint32(cfg.MinCofactor); cofactor <= uint32(cfg.MaxCofactor); cofactor++ {
			attempts++
			if slots, ok := tryPlace(e, ids, uint16(cofactor), depth); ok {
				return depth, uint16(cofactor), slots, attempts, nil
			}
		}
	}
	return 0, 0, nil, attempts, xerrors.Errorf("mpc: %d entries, max depth %d, cofactors %d..%d, %d attempts: %w",
		len(ids), cfg.MaxDepth, cfg.MinCofactor, cfg.MaxCofactor, attempts, common.ErrCollisionExhausted)
}

func tryPlace(e tagged.Engine, ids []common.ProtocolID, cofactor uint16, depth uint8) (map[common.ProtocolID]uint32, bool) {
	ret := make(map[common.ProtocolID]uint32, len(ids))
	occupied := make(map[uint32]struct{}, len(ids))
	for _, id := range ids {
		slot := Slot(e, id, cofactor, depth)
		if _, ok := occupied[slot]; ok {
			return nil, false
		}
		occupied[slot] = struct{}{}
		ret[id] = slot
	}
	return ret, true
}

// Slot is the placement function: the slot of the protocol in the tree of the given depth and cofactor
func Slot(e tagged.Engine, id common.ProtocolID, cofactor uint16, depth uint8) uint32 {
	if depth == 0 {
		return 0
	}
	h := e.Commit(TagSlot, id[:], common.Uint16To2Bytes(cofactor), []byte{depth})
	return uint32(binary.LittleEndian.Uint64(h[:8]) % (uint64(1) << depth))
}

func realLeafHash(e tagged.Engine, id common.ProtocolID, msg common.Message) common.Digest {
	return e.Commit(TagLeaf, id[:], msg[:])
}

func entropyLeafHash(e tagged.Engine, entropy uint64, slot uint32) common.Digest {
	return e.Commit(TagEntropy, common.Uint64To8Bytes(entropy), common.Uint32To4Bytes(slot))
}

func nodeHash(e tagged.Engine, left, right common.Digest) common.Digest {
	return e.Commit(TagNode, left[:], right[:])
}

func commitmentRoot(e tagged.Engine, depth uint8, cofactor uint16, merkleRoot common.Digest) common.Digest {
	return e.Commit(TagRoot, []byte{depth}, common.Uint16To2Bytes(cofactor), merkleRoot[:])
}

func (t *Tree) build(entries map[common.ProtocolID]common.Message) {
	width := uint32(1) << t.depth
	t.leaves = make([]Leaf, width)
	for slot := uint32(0); slot < width; slot++ {
		t.leaves[slot] = Leaf{
			Kind: LeafEntropy,
			Hash: entropyLeafHash(t.engine, t.entropy, slot),
		}
	}
	for id, slot := range t.slots {
		msg := entries[id]
		t.leaves[slot] = Leaf{
			Kind:       LeafReal,
			ProtocolID: id,
			Message:    msg,
			Hash:       realLeafHash(t.engine, id, msg),
		}
	}
	t.layers = make([][]common.Digest, t.depth+1)
	t.layers[0] = make([]common.Digest, width)
	for i := range t.leaves {
		t.layers[0][i] = t.leaves[i].Hash
	}
	for l := 1; l <= int(t.depth); l++ {
		prev := t.layers[l-1]
		cur := make([]common.Digest, len(prev)/2)
		for i := range cur {
			cur[i] = nodeHash(t.engine, prev[2*i], prev[2*i+1])
		}
		t.layers[l] = cur
	}
	common.Assert(len(t.layers[t.depth]) == 1, "mpc: Merkle root layer must contain one node")
	t.root = commitmentRoot(t.engine, t.depth, t.cofactor, t.layers[t.depth][0])
}

// Root is the Bitcoin commitment of the tree: the Merkle root bound to depth and cofactor
func (t *Tree) Root() common.Digest {
	return t.root
}

// MerkleRoot is the root node of the tree before binding it to the placement parameters
func (t *Tree) MerkleRoot() common.Digest {
	return t.layers[t.depth][0]
}

func (t *Tree) Depth() uint8 {
	return t.depth
}

func (t *Tree) Cofactor() uint16 {
	return t.cofactor
}

func (t *Tree) Width() int {
	return len(t.leaves)
}

func (t *Tree) Entropy() uint64 {
	return t.entropy
}

// Attempts returns number of placements tried before a collision free one was found
func (t *Tree) Attempts() int {
	return t.attempts
}

func (t *Tree) Engine() tagged.Engine {
	return t.engine
}

func (t *Tree) NumProtocols() int {
	return len(t.slots)
}

// Protocols returns committed protocol ids in ascending order
func (t *Tree) Protocols() []common.ProtocolID {
	ret := make([]common.ProtocolID, 0, len(t.slots))
	for id := range t.slots {
		ret = append(ret, id)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Less(ret[j]) })
	return ret
}

// Leaf returns the leaf at the slot
func (t *Tree) Leaf(slot uint32) (Leaf, bool) {
	if int(slot) >= len(t.leaves) {
		return Leaf{}, false
	}
	return t.leaves[slot], true
}

// Message returns the message committed under the protocol
func (t *Tree) Message(id common.ProtocolID) (common.Message, bool) {
	slot, ok := t.slots[id]
	if !ok {
		return common.Message{}, false
	}
	return t.leaves[slot].Message, true
}

// Proof returns the inclusion proof of the protocol's message
func (t *Tree) Proof(id common.ProtocolID) (*Proof, error) {
	slot, ok := t.slots[id]
	if !ok {
		return nil, xerrors.Errorf("mpc: protocol %s: %w", id, ErrUnknownProtocol)
	}
	ret := &Proof{
		Slot:     slot,
		Depth:    t.depth,
		Cofactor: t.cofactor,
		Path:     make([]common.Digest, t.depth),
	}
	idx := slot
	for l := 0; l < int(t.depth); l++ {
		ret.Path[l] = t.layers[l][idx^1]
		idx >>= 1
	}
	return ret, nil
}

func (t *Tree) String() string {
	return fmt.Sprintf("mpc tree: root %s, depth %d, cofactor %d, protocols %d, width %d",
		t.root, t.depth, t.cofactor, len(t.slots), len(t.leaves))
}
