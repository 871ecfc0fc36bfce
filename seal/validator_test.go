package seal

import (
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/mpc"
	"github.com/iotaledger/seals.go/resolver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/xerrors"
)

var (
	idA   = common.ProtocolID(mpc.MessageFromData([]byte("A")))
	idB   = common.ProtocolID(mpc.MessageFromData([]byte("B")))
	hello = mpc.MessageFromData([]byte("hello"))
	world = mpc.MessageFromData([]byte("world"))
)

func testKey() *btcec.PrivateKey {
	ret, _ := btcec.PrivKeyFromBytes([]byte("seal test private key 0123456789"))
	return ret
}

func original(method CloseMethod) []byte {
	switch method {
	case TapretFirst:
		return schnorr.SerializePubKey(testKey().PubKey())
	case P2CFirst:
		return testKey().PubKey().SerializeCompressed()
	}
	return nil
}

type env struct {
	t       *testing.T
	idx     *resolver.Index
	funding chainhash.Hash
	tree    *mpc.Tree
}

func newEnv(t *testing.T) *env {
	funding := wire.NewMsgTx(2)
	funding.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: chainhash.Hash{0xee}}, nil, nil))
	funding.AddTxOut(wire.NewTxOut(10000, []byte{txscript.OP_TRUE}))
	funding.AddTxOut(wire.NewTxOut(20000, []byte{txscript.OP_TRUE}))
	idx := resolver.NewIndex()
	fundingID := idx.AddTx(funding, 1, true)

	tree, err := mpc.Build(map[common.ProtocolID]common.Message{idA: hello, idB: world}, mpc.DefaultConfig())
	require.NoError(t, err)
	return &env{t: t, idx: idx, funding: fundingID, tree: tree}
}

func (e *env) seal(method CloseMethod, vout uint32) ExplicitSeal {
	return NewExplicitSeal(method, wire.OutPoint{Hash: e.funding, Index: vout})
}

// spend adds the witness transaction spending the seal, with the closing output if pkScript is not nil
func (e *env) spend(s ExplicitSeal, pkScript []byte, value int64, confirmed bool) chainhash.Hash {
	op, err := s.Outpoint()
	require.NoError(e.t, err)
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&op, nil, nil))
	tx.AddTxOut(wire.NewTxOut(value, []byte{txscript.OP_TRUE}))
	if pkScript != nil {
		tx.AddTxOut(wire.NewTxOut(0, pkScript))
	}
	return e.idx.AddTx(tx, 2, confirmed)
}

func (e *env) close(s ExplicitSeal, confirmed bool) (*Anchor, chainhash.Hash) {
	closing, err := DefaultContainers().Close(s.Method, original(s.Method), e.tree)
	require.NoError(e.t, err)
	txid := e.spend(s, closing.PkScript, 9000, confirmed)
	anchor, err := NewAnchor(s.Method, original(s.Method), e.tree, idA)
	require.NoError(e.t, err)
	return anchor, txid
}

func (e *env) validator(opts ...Option) *Validator {
	v, err := NewValidator(e.idx, DefaultConfig(), append([]Option{WithLogger(zaptest.NewLogger(e.t))}, opts...)...)
	require.NoError(e.t, err)
	return v
}

func requireInvalid(t *testing.T, res *Result, reason error) {
	require.EqualValues(t, StatusInvalid, res.Status)
	require.Truef(t, errors.Is(res.Reason, reason), "reason: %v", res.Reason)
}

func TestStateMachine(t *testing.T) {
	ctx := context.Background()
	for _, method := range []CloseMethod{OpretFirst, TapretFirst, P2CFirst} {
		t.Run(method.String(), func(t *testing.T) {
			e := newEnv(t)
			v := e.validator()

			s := e.seal(method, 0)
			res, err := v.Validate(ctx, s, nil)
			require.NoError(t, err)
			require.EqualValues(t, StatusOpen, res.Status)

			anchor, txid := e.close(s, true)
			res, err = v.Validate(ctx, s, anchor)
			require.NoError(t, err)
			require.EqualValues(t, StatusClosed, res.Status, res.String())
			require.EqualValues(t, hello, res.Message)
			require.EqualValues(t, txid, *res.Witness)
			require.EqualValues(t, 1, res.Vout)

			t.Run("tampered message", func(t *testing.T) {
				tampered := *anchor
				tampered.Message = world
				res, err := v.Validate(ctx, s, &tampered)
				require.NoError(t, err)
				requireInvalid(t, res, common.ErrVerificationMismatch)
			})
			t.Run("proof of other protocol", func(t *testing.T) {
				tampered := *anchor
				tampered.ProtocolID = idB
				tampered.Message = world
				res, err := v.Validate(ctx, s, &tampered)
				require.NoError(t, err)
				requireInvalid(t, res, ErrInclusionMismatch)
			})
			t.Run("no anchor", func(t *testing.T) {
				res, err := v.Validate(ctx, s, nil)
				require.NoError(t, err)
				requireInvalid(t, res, ErrNoAnchor)
			})
			t.Run("anchor of other protocol", func(t *testing.T) {
				anchorB, err := NewAnchor(method, original(method), e.tree, idB)
				require.NoError(t, err)
				res, err := v.Validate(ctx, s, anchorB)
				require.NoError(t, err)
				require.EqualValues(t, StatusClosed, res.Status)
				require.EqualValues(t, world, res.Message)

				res, err = v.ValidateRequest(ctx, &Request{Seal: RevealedSeal{ExplicitSeal: s}, Anchor: anchorB, Protocol: &idA})
				require.NoError(t, err)
				requireInvalid(t, res, ErrWrongProtocol)
			})
			t.Run("double spend", func(t *testing.T) {
				closing, err := DefaultContainers().Close(method, original(method), e.tree)
				require.NoError(t, err)
				e.spend(s, closing.PkScript, 8000, false)
				res, err := v.Validate(ctx, s, anchor)
				require.NoError(t, err)
				requireInvalid(t, res, common.ErrSealConflict)
				require.False(t, errors.Is(res.Reason, common.ErrVerificationMismatch))
			})
		})
	}
}

func TestNoCommitment(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	v := e.validator()
	s := e.seal(TapretFirst, 1)
	e.spend(s, nil, 19000, true)
	anchor, err := NewAnchor(TapretFirst, original(TapretFirst), e.tree, idA)
	require.NoError(t, err)
	res, err := v.Validate(ctx, s, anchor)
	require.NoError(t, err)
	requireInvalid(t, res, ErrContainerMismatch)
}

func TestWrongMethod(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	v := e.validator()
	s := e.seal(OpretFirst, 0)
	anchor, _ := e.close(s, true)

	other := s
	other.Method = TapretFirst
	res, err := v.Validate(ctx, other, anchor)
	require.NoError(t, err)
	requireInvalid(t, res, ErrWrongCloseMethod)
}

func TestUnknownOutpoint(t *testing.T) {
	e := newEnv(t)
	res, err := e.validator().Validate(context.Background(), e.seal(OpretFirst, 5), nil)
	require.NoError(t, err)
	requireInvalid(t, res, ErrOutpointUnknown)
}

func TestRequireConfirmed(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	s := e.seal(OpretFirst, 0)
	anchor, _ := e.close(s, false)

	cfg := DefaultConfig()
	cfg.RequireConfirmed = true
	v, err := NewValidator(e.idx, cfg)
	require.NoError(t, err)
	res, err := v.Validate(ctx, s, anchor)
	require.NoError(t, err)
	require.EqualValues(t, StatusOpen, res.Status)

	res, err = e.validator().Validate(ctx, s, anchor)
	require.NoError(t, err)
	require.EqualValues(t, StatusClosed, res.Status)
}

func TestConcealed(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	v := e.validator()
	revealed, err := NewRevealedSeal(P2CFirst, wire.OutPoint{Hash: e.funding, Index: 0})
	require.NoError(t, err)
	concealed := revealed.Conceal()
	anchor, _ := e.close(revealed.ExplicitSeal, true)

	res, err := v.ValidateConcealed(ctx, concealed, revealed, anchor)
	require.NoError(t, err)
	require.EqualValues(t, StatusClosed, res.Status)

	forged := revealed
	forged.Blinding ^= 1
	res, err = v.ValidateConcealed(ctx, concealed, forged, anchor)
	require.NoError(t, err)
	requireInvalid(t, res, ErrDisclosure)
}

func TestWitnessVout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	s := NewWitnessVoutSeal(OpretFirst, 1)
	_, err := e.validator().Validate(ctx, s, nil)
	require.True(t, errors.Is(err, ErrWitnessVout))
	require.True(t, errors.Is(err, common.ErrMalformedInput))

	v := e.validator()
	funding := e.funding
	res, err := v.ValidateRequest(ctx, &Request{Seal: RevealedSeal{ExplicitSeal: s}, DefaultTxid: &funding})
	require.NoError(t, err)
	require.EqualValues(t, StatusOpen, res.Status)

	// witness vout seals of different transactions in one batch
	other := wire.NewMsgTx(2)
	other.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: chainhash.Hash{0xef}}, nil, nil))
	other.AddTxOut(wire.NewTxOut(5000, []byte{txscript.OP_TRUE}))
	otherID := e.idx.AddTx(other, 1, true)
	closing, err := DefaultContainers().Close(OpretFirst, nil, e.tree)
	require.NoError(t, err)
	spend := wire.NewMsgTx(2)
	spend.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: otherID, Index: 0}, nil, nil))
	spend.AddTxOut(wire.NewTxOut(0, closing.PkScript))
	e.idx.AddTx(spend, 2, true)
	anchor, err := NewAnchor(OpretFirst, nil, e.tree, idA)
	require.NoError(t, err)

	results, err := v.ValidateBatch(ctx, []*Request{
		{Seal: RevealedSeal{ExplicitSeal: s}, DefaultTxid: &funding},
		{Seal: RevealedSeal{ExplicitSeal: NewWitnessVoutSeal(OpretFirst, 0)}, DefaultTxid: &otherID, Anchor: anchor},
	})
	require.NoError(t, err)
	require.EqualValues(t, StatusOpen, results[0].Status)
	require.EqualValues(t, StatusClosed, results[1].Status, results[1].String())
	require.EqualValues(t, hello, results[1].Message)

	// the txid of the seal wins over the default
	res, err = v.ValidateRequest(ctx, &Request{Seal: RevealedSeal{ExplicitSeal: e.seal(OpretFirst, 1)}, DefaultTxid: &otherID})
	require.NoError(t, err)
	require.EqualValues(t, StatusOpen, res.Status)
}

func TestResolverFailure(t *testing.T) {
	ctx := context.Background()
	errNetwork := xerrors.New("connection refused")
	calls := 0
	r := resolver.Func(func(ctx context.Context, outpoint wire.OutPoint) (*resolver.Spends, error) {
		calls++
		return nil, errNetwork
	})
	reg := prometheus.NewRegistry()
	v, err := NewValidator(r, DefaultConfig(), WithRegisterer(reg))
	require.NoError(t, err)

	s := NewExplicitSeal(OpretFirst, wire.OutPoint{Hash: chainhash.Hash{1}})
	_, err = v.Validate(ctx, s, nil)
	require.True(t, errors.Is(err, common.ErrResolverFailure))
	require.EqualValues(t, 1, calls)
	require.EqualValues(t, 1, testutil.ToFloat64(v.metrics.resolverFailures))
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	reg := prometheus.NewRegistry()
	v := e.validator(WithRegisterer(reg))
	s := e.seal(OpretFirst, 0)
	_, err := v.Validate(ctx, s, nil)
	require.NoError(t, err)
	anchor, _ := e.close(s, true)
	_, err = v.Validate(ctx, s, anchor)
	require.NoError(t, err)

	require.EqualValues(t, 1, testutil.ToFloat64(v.metrics.validations.WithLabelValues("opret1st", "open")))
	require.EqualValues(t, 1, testutil.ToFloat64(v.metrics.validations.WithLabelValues("opret1st", "closed")))
}

func TestBatch(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	v := e.validator()
	closed := e.seal(TapretFirst, 0)
	anchor, _ := e.close(closed, true)
	open := e.seal(OpretFirst, 1)
	unknown := e.seal(OpretFirst, 9)

	reqs := make([]*Request, 0)
	for i := 0; i < 30; i++ {
		reqs = append(reqs,
			&Request{Seal: RevealedSeal{ExplicitSeal: closed}, Anchor: anchor},
			&Request{Seal: RevealedSeal{ExplicitSeal: open}},
			&Request{Seal: RevealedSeal{ExplicitSeal: unknown}},
		)
	}
	res, err := v.ValidateBatch(ctx, reqs)
	require.NoError(t, err)
	require.EqualValues(t, len(reqs), len(res))
	for i := 0; i < len(reqs); i += 3 {
		require.EqualValues(t, StatusClosed, res[i].Status)
		require.EqualValues(t, StatusOpen, res[i+1].Status)
		require.EqualValues(t, StatusInvalid, res[i+2].Status)
	}

	reqs = append(reqs, &Request{Seal: RevealedSeal{ExplicitSeal: NewWitnessVoutSeal(OpretFirst, 0)}})
	_, err = v.ValidateBatch(ctx, reqs)
	require.True(t, errors.Is(err, ErrWitnessVout))

	t.Run("nil request", func(t *testing.T) {
		_, err := v.ValidateBatch(ctx, []*Request{{Seal: RevealedSeal{ExplicitSeal: open}}, nil})
		require.True(t, errors.Is(err, common.ErrMalformedInput))
		_, err = v.ValidateRequest(ctx, nil)
		require.True(t, errors.Is(err, common.ErrMalformedInput))
	})
}

func TestAnchorEncoding(t *testing.T) {
	e := newEnv(t)
	v := e.validator()
	for _, method := range []CloseMethod{OpretFirst, TapretFirst, P2CFirst} {
		anchor, err := NewAnchor(method, original(method), e.tree, idA)
		require.NoError(t, err)
		data := anchor.Bytes()
		back, err := AnchorFromBytes(data)
		require.NoError(t, err)
		require.EqualValues(t, data, back.Bytes())
		require.EqualValues(t, anchor.Commitment(v.engine), back.Commitment(v.engine))

		_, err = AnchorFromBytes(append(data, 1))
		require.True(t, errors.Is(err, common.ErrNotAllBytesConsumed))
	}
}

// The scenario: two protocols committed into one tree, the root embedded by a key tweak,
// a seal closed over it and validated
func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	require.EqualValues(t, 4, e.tree.Width())
	numReal := 0
	for slot := 0; slot < e.tree.Width(); slot++ {
		leaf, _ := e.tree.Leaf(uint32(slot))
		if leaf.Kind == mpc.LeafReal {
			numReal++
		}
	}
	require.EqualValues(t, 2, numReal)

	containers := DefaultContainers()
	p2c, err := containers.Get(P2CFirst)
	require.NoError(t, err)
	key := original(P2CFirst)
	tweaked, err := p2c.Embed(key, e.tree.Root())
	require.NoError(t, err)
	require.True(t, p2c.VerifyEmbedding(key, e.tree.Root(), tweaked))
	otherKey, _ := btcec.PrivKeyFromBytes([]byte("another private key 0123456789ab"))
	require.False(t, p2c.VerifyEmbedding(key, e.tree.Root(), otherKey.PubKey().SerializeCompressed()))

	proofA, err := e.tree.Proof(idA)
	require.NoError(t, err)
	require.True(t, proofA.Verify(e.tree.Root(), idA, hello))
	require.False(t, proofA.Verify(e.tree.Root(), idA, world))

	revealed, err := NewRevealedSeal(P2CFirst, wire.OutPoint{Hash: e.funding, Index: 1})
	require.NoError(t, err)
	anchor, _ := e.close(revealed.ExplicitSeal, true)
	res, err := e.validator().ValidateConcealed(ctx, revealed.Conceal(), revealed, anchor)
	require.NoError(t, err)
	require.EqualValues(t, StatusClosed, res.Status)
	require.EqualValues(t, hello, res.Message)
}
