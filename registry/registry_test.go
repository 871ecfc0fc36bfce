package registry

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/mpc"
	"github.com/iotaledger/seals.go/resolver"
	"github.com/iotaledger/seals.go/seal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/xerrors"
)

func newSeal(t *testing.T, vout uint32) seal.RevealedSeal {
	ret, err := seal.NewRevealedSeal(seal.OpretFirst, wire.OutPoint{Hash: chainhash.Hash{0x10}, Index: vout})
	require.NoError(t, err)
	return ret
}

func TestRecord(t *testing.T) {
	r := New(common.NewInMemoryKVStore(), WithLogger(zaptest.NewLogger(t)))
	s := newSeal(t, 0)
	id := r.Put(s)
	require.EqualValues(t, s.Conceal(), id)

	rec, err := r.Get(id)
	require.NoError(t, err)
	require.EqualValues(t, seal.StatusDefined, rec.Status)
	require.EqualValues(t, s.Bytes(), rec.Seal.Bytes())

	_, err = r.Get(seal.ConcealedSeal{})
	require.True(t, errors.Is(err, ErrUnknownSeal))
	require.True(t, errors.Is(r.Record(seal.ConcealedSeal{}, &seal.Result{Status: seal.StatusOpen}), ErrUnknownSeal))

	require.NoError(t, r.Record(id, &seal.Result{Status: seal.StatusOpen}))
	rec, err = r.Get(id)
	require.NoError(t, err)
	require.EqualValues(t, seal.StatusOpen, rec.Status)

	witness := chainhash.Hash{0x20}
	closed := &seal.Result{Status: seal.StatusClosed, Message: common.Message{1}, Witness: &witness}
	require.NoError(t, r.Record(id, closed))
	// the same outcome again is fine
	witnessCopy := witness
	require.NoError(t, r.Record(id, &seal.Result{Status: seal.StatusClosed, Message: common.Message{1}, Witness: &witnessCopy}))

	err = r.Record(id, &seal.Result{Status: seal.StatusOpen})
	require.True(t, errors.Is(err, ErrSealFinalized))
	err = r.Record(id, &seal.Result{Status: seal.StatusClosed, Message: common.Message{2}, Witness: &witness})
	require.True(t, errors.Is(err, ErrSealFinalized))
	err = r.Record(id, &seal.Result{Status: seal.StatusInvalid, Reason: common.ErrSealConflict})
	require.True(t, errors.Is(err, ErrSealFinalized))

	rec, err = r.Get(id)
	require.NoError(t, err)
	require.EqualValues(t, seal.StatusClosed, rec.Status)
	require.EqualValues(t, common.Message{1}, rec.Message)
	require.EqualValues(t, witness, *rec.Witness)

	// put does not reset the state
	require.EqualValues(t, id, r.Put(s))
	rec, err = r.Get(id)
	require.NoError(t, err)
	require.EqualValues(t, seal.StatusClosed, rec.Status)
}

func TestInvalidRecord(t *testing.T) {
	r := New(common.NewInMemoryKVStore())
	id := r.Put(newSeal(t, 1))
	require.NoError(t, r.Record(id, &seal.Result{Status: seal.StatusInvalid, Reason: xerrors.Errorf("two spends: %w", common.ErrSealConflict)}))
	rec, err := r.Get(id)
	require.NoError(t, err)
	require.EqualValues(t, seal.StatusInvalid, rec.Status)
	require.Contains(t, rec.Reason, "two spends")
	require.EqualValues(t, seal.ReasonConflict, rec.Kind)
	require.False(t, rec.IsFinal())
	require.Nil(t, rec.Witness)

	// a conflict is not final, the later outcome replaces it
	witness := chainhash.Hash{0x21}
	require.NoError(t, r.Record(id, &seal.Result{Status: seal.StatusClosed, Message: common.Message{7}, Witness: &witness}))
	rec, err = r.Get(id)
	require.NoError(t, err)
	require.EqualValues(t, seal.StatusClosed, rec.Status)
	require.EqualValues(t, seal.ReasonNone, rec.Kind)

	// a mismatch is final
	id = r.Put(newSeal(t, 2))
	mismatch := &seal.Result{Status: seal.StatusInvalid, Witness: &witness, Reason: seal.ErrContainerMismatch}
	require.NoError(t, r.Record(id, mismatch))
	require.NoError(t, r.Record(id, mismatch))
	err = r.Record(id, &seal.Result{Status: seal.StatusClosed, Message: common.Message{7}, Witness: &witness})
	require.True(t, errors.Is(err, ErrSealFinalized))
	err = r.Record(id, &seal.Result{Status: seal.StatusInvalid, Reason: seal.ErrNoAnchor})
	require.True(t, errors.Is(err, ErrSealFinalized))
	rec, err = r.Get(id)
	require.NoError(t, err)
	require.EqualValues(t, seal.ReasonMismatch, rec.Kind)
	require.True(t, rec.IsFinal())
}

// chain is the resolver index with the helpers closing opret seals
type chain struct {
	t    *testing.T
	idx  *resolver.Index
	id   common.ProtocolID
	msg  common.Message
	tree *mpc.Tree
}

func newChain(t *testing.T) *chain {
	id := common.ProtocolID{1}
	msg := mpc.MessageFromData([]byte("state transition"))
	tree, err := mpc.Build(map[common.ProtocolID]common.Message{id: msg}, mpc.DefaultConfig())
	require.NoError(t, err)
	return &chain{t: t, idx: resolver.NewIndex(), id: id, msg: msg, tree: tree}
}

func fundingTx(tag byte) *wire.MsgTx {
	ret := wire.NewMsgTx(2)
	ret.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: chainhash.Hash{tag}}, nil, nil))
	ret.AddTxOut(wire.NewTxOut(1000, []byte{txscript.OP_TRUE}))
	return ret
}

// closeSeal adds the witness spending the outpoint with the opret commitment to the tree
func (c *chain) closeSeal(outpoint wire.OutPoint, confirmed bool) *seal.Anchor {
	closing, err := seal.DefaultContainers().Close(seal.OpretFirst, nil, c.tree)
	require.NoError(c.t, err)
	witness := wire.NewMsgTx(2)
	witness.AddTxIn(wire.NewTxIn(&outpoint, nil, nil))
	witness.AddTxOut(wire.NewTxOut(0, closing.PkScript))
	c.idx.AddTx(witness, 2, confirmed)
	anchor, err := seal.NewAnchor(seal.OpretFirst, nil, c.tree, c.id)
	require.NoError(c.t, err)
	return anchor
}

func (c *chain) validator() *seal.Validator {
	v, err := seal.NewValidator(c.idx, seal.DefaultConfig())
	require.NoError(c.t, err)
	return v
}

func requireRecord(t *testing.T, r *Registry, id seal.ConcealedSeal, status seal.Status, kind seal.ReasonKind) *Record {
	rec, err := r.Get(id)
	require.NoError(t, err)
	require.EqualValues(t, status, rec.Status, rec.String())
	require.EqualValues(t, kind, rec.Kind, rec.String())
	return rec
}

func TestRefreshProvisional(t *testing.T) {
	ctx := context.Background()
	t.Run("outpoint created later", func(t *testing.T) {
		c := newChain(t)
		v := c.validator()
		r := New(common.NewInMemoryKVStore())
		funding := fundingTx(0x31)
		outpoint := wire.OutPoint{Hash: funding.TxHash(), Index: 0}
		s, err := seal.NewRevealedSeal(seal.OpretFirst, outpoint)
		require.NoError(t, err)
		id := r.Put(s)

		var anchor *seal.Anchor
		anchors := func(seal.ConcealedSeal) *seal.Anchor { return anchor }
		n, err := r.Refresh(ctx, v, anchors)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
		requireRecord(t, r, id, seal.StatusInvalid, seal.ReasonOutpointUnknown)

		c.idx.AddTx(funding, 1, true)
		anchor = c.closeSeal(outpoint, true)
		n, err = r.Refresh(ctx, v, anchors)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
		rec := requireRecord(t, r, id, seal.StatusClosed, seal.ReasonNone)
		require.EqualValues(t, c.msg, rec.Message)

		n, err = r.Refresh(ctx, v, anchors)
		require.NoError(t, err)
		require.EqualValues(t, 0, n)
	})
	t.Run("anchor revealed later", func(t *testing.T) {
		c := newChain(t)
		v := c.validator()
		r := New(common.NewInMemoryKVStore())
		funding := fundingTx(0x32)
		c.idx.AddTx(funding, 1, true)
		outpoint := wire.OutPoint{Hash: funding.TxHash(), Index: 0}
		s, err := seal.NewRevealedSeal(seal.OpretFirst, outpoint)
		require.NoError(t, err)
		id := r.Put(s)
		revealed := c.closeSeal(outpoint, true)

		var anchor *seal.Anchor
		anchors := func(seal.ConcealedSeal) *seal.Anchor { return anchor }
		_, err = r.Refresh(ctx, v, anchors)
		require.NoError(t, err)
		requireRecord(t, r, id, seal.StatusInvalid, seal.ReasonNoAnchor)

		anchor = revealed
		n, err := r.Refresh(ctx, v, anchors)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
		requireRecord(t, r, id, seal.StatusClosed, seal.ReasonNone)
	})
	t.Run("conflict", func(t *testing.T) {
		c := newChain(t)
		v := c.validator()
		funding := fundingTx(0x33)
		c.idx.AddTx(funding, 1, true)
		outpoint := wire.OutPoint{Hash: funding.TxHash(), Index: 0}
		s, err := seal.NewRevealedSeal(seal.OpretFirst, outpoint)
		require.NoError(t, err)
		anchor := c.closeSeal(outpoint, false)
		// the double spend with a change output
		double := wire.NewMsgTx(2)
		double.AddTxIn(wire.NewTxIn(&outpoint, nil, nil))
		double.AddTxOut(wire.NewTxOut(900, []byte{txscript.OP_TRUE}))
		c.idx.AddTx(double, 0, false)
		anchors := func(seal.ConcealedSeal) *seal.Anchor { return anchor }

		r := New(common.NewInMemoryKVStore())
		id := r.Put(s)
		_, err = r.Refresh(ctx, v, anchors)
		require.NoError(t, err)
		requireRecord(t, r, id, seal.StatusInvalid, seal.ReasonConflict)
		// still validated by every refresh
		n, err := r.Refresh(ctx, v, anchors)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		// the caller's policy treats conflicts as final
		strict := New(common.NewInMemoryKVStore(), WithFinality(func(rec *Record) bool {
			return rec.IsFinal() || rec.Kind == seal.ReasonConflict
		}))
		id = strict.Put(s)
		_, err = strict.Refresh(ctx, v, anchors)
		require.NoError(t, err)
		requireRecord(t, strict, id, seal.StatusInvalid, seal.ReasonConflict)
		n, err = strict.Refresh(ctx, v, anchors)
		require.NoError(t, err)
		require.EqualValues(t, 0, n)
		witness := chainhash.Hash{0x22}
		err = strict.Record(id, &seal.Result{Status: seal.StatusClosed, Message: c.msg, Witness: &witness})
		require.True(t, errors.Is(err, ErrSealFinalized))
	})
	t.Run("mismatch is final", func(t *testing.T) {
		c := newChain(t)
		v := c.validator()
		r := New(common.NewInMemoryKVStore())
		funding := fundingTx(0x34)
		c.idx.AddTx(funding, 1, true)
		outpoint := wire.OutPoint{Hash: funding.TxHash(), Index: 0}
		s, err := seal.NewRevealedSeal(seal.OpretFirst, outpoint)
		require.NoError(t, err)
		id := r.Put(s)
		c.closeSeal(outpoint, true)

		// the anchor of another tree
		other, err := mpc.Build(map[common.ProtocolID]common.Message{c.id: mpc.MessageFromData([]byte("other"))}, mpc.DefaultConfig())
		require.NoError(t, err)
		wrong, err := seal.NewAnchor(seal.OpretFirst, nil, other, c.id)
		require.NoError(t, err)
		anchors := func(seal.ConcealedSeal) *seal.Anchor { return wrong }
		_, err = r.Refresh(ctx, v, anchors)
		require.NoError(t, err)
		requireRecord(t, r, id, seal.StatusInvalid, seal.ReasonMismatch)
		n, err := r.Refresh(ctx, v, anchors)
		require.NoError(t, err)
		require.EqualValues(t, 0, n)
	})
}

func TestDumpRestore(t *testing.T) {
	store := common.NewInMemoryKVStore()
	// foreign keys outside of the registry partition
	store.Set([]byte("other"), []byte("data"))
	r := New(store)
	ids := make([]seal.ConcealedSeal, 0)
	for i := uint32(0); i < 10; i++ {
		ids = append(ids, r.Put(newSeal(t, i)))
	}
	witness := chainhash.Hash{3}
	require.NoError(t, r.Record(ids[0], &seal.Result{Status: seal.StatusClosed, Witness: &witness}))

	var buf bytes.Buffer
	n, err := r.Dump(&buf)
	require.NoError(t, err)
	require.EqualValues(t, 10, n)

	r1 := New(common.NewInMemoryKVStore())
	n, err = r1.Restore(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.EqualValues(t, 10, n)
	for _, id := range ids {
		rec, err := r.Get(id)
		require.NoError(t, err)
		rec1, err := r1.Get(id)
		require.NoError(t, err)
		require.EqualValues(t, rec.Bytes(), rec1.Bytes())
	}
	n, err = r1.Restore(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.EqualValues(t, 0, n)

	count := 0
	require.NoError(t, r1.Iterate(func(id seal.ConcealedSeal, rec *Record) bool {
		count++
		return true
	}))
	require.EqualValues(t, 10, count)

	t.Run("file", func(t *testing.T) {
		fname := filepath.Join(t.TempDir(), "registry.dump")
		_, err := r.DumpToFile(fname)
		require.NoError(t, err)
		r2 := New(common.NewInMemoryKVStore())
		n, err := r2.RestoreFromFile(fname)
		require.NoError(t, err)
		require.EqualValues(t, 10, n)
		rec, err := r2.Get(ids[0])
		require.NoError(t, err)
		require.EqualValues(t, seal.StatusClosed, rec.Status)
	})
	t.Run("corrupted", func(t *testing.T) {
		var bad bytes.Buffer
		w := common.NewBinaryStreamWriter(&bad)
		require.NoError(t, w.Write(ids[0][:], []byte{1, 2, 3}))
		_, err := New(common.NewInMemoryKVStore()).Restore(&bad)
		require.Error(t, err)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	funding := wire.NewMsgTx(2)
	funding.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: chainhash.Hash{0xee}}, nil, nil))
	funding.AddTxOut(wire.NewTxOut(1000, []byte{txscript.OP_TRUE}))
	funding.AddTxOut(wire.NewTxOut(1000, []byte{txscript.OP_TRUE}))
	idx := resolver.NewIndex()
	fundingID := idx.AddTx(funding, 1, true)

	r := New(common.NewInMemoryKVStore())
	toClose, err := seal.NewRevealedSeal(seal.OpretFirst, wire.OutPoint{Hash: fundingID, Index: 0})
	require.NoError(t, err)
	toKeep, err := seal.NewRevealedSeal(seal.OpretFirst, wire.OutPoint{Hash: fundingID, Index: 1})
	require.NoError(t, err)
	closeID := r.Put(toClose)
	keepID := r.Put(toKeep)

	id := common.ProtocolID{1}
	msg := mpc.MessageFromData([]byte("state transition"))
	tree, err := mpc.Build(map[common.ProtocolID]common.Message{id: msg}, mpc.DefaultConfig())
	require.NoError(t, err)
	closing, err := seal.DefaultContainers().Close(seal.OpretFirst, nil, tree)
	require.NoError(t, err)
	witness := wire.NewMsgTx(2)
	witness.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: fundingID, Index: 0}, nil, nil))
	witness.AddTxOut(wire.NewTxOut(0, closing.PkScript))
	idx.AddTx(witness, 2, true)
	anchor, err := seal.NewAnchor(seal.OpretFirst, nil, tree, id)
	require.NoError(t, err)

	v, err := seal.NewValidator(idx, seal.DefaultConfig())
	require.NoError(t, err)
	anchors := func(sid seal.ConcealedSeal) *seal.Anchor {
		if sid == closeID {
			return anchor
		}
		return nil
	}
	n, err := r.Refresh(ctx, v, anchors)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	rec, err := r.Get(closeID)
	require.NoError(t, err)
	require.EqualValues(t, seal.StatusClosed, rec.Status)
	require.EqualValues(t, msg, rec.Message)
	rec, err = r.Get(keepID)
	require.NoError(t, err)
	require.EqualValues(t, seal.StatusOpen, rec.Status)

	// final seals are not validated again
	n, err = r.Refresh(ctx, v, anchors)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
