package seal

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/dbc"
	"github.com/iotaledger/seals.go/resolver"
	"github.com/iotaledger/seals.go/tagged"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Validator replays the closing verification of seals against the chain data.
// It keeps no state between calls, so a validation interrupted by a resolver failure
// can be repeated from scratch. Safe for concurrent use
type Validator struct {
	resolver   resolver.Resolver
	config     Config
	containers Containers
	engine     tagged.Engine
	log        *zap.Logger
	metrics    *metrics
}

type Option func(v *Validator)

func WithLogger(log *zap.Logger) Option {
	return func(v *Validator) {
		v.log = log
	}
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(v *Validator) {
		v.metrics = newMetrics(reg)
	}
}

func WithContainers(c Containers) Option {
	return func(v *Validator) {
		v.containers = c
	}
}

// WithEngine sets the tagged hash engine the commitment trees are built with
func WithEngine(e tagged.Engine) Option {
	return func(v *Validator) {
		v.engine = e
	}
}

func NewValidator(r resolver.Resolver, cfg Config, opts ...Option) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ret := &Validator{
		resolver:   r,
		config:     cfg,
		containers: DefaultContainers(),
		engine:     tagged.Default,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.metrics == nil {
		ret.metrics = newMetrics(nil)
	}
	return ret, nil
}

// Request is one seal to validate
type Request struct {
	Seal RevealedSeal
	// Concealed, if not nil, is the public reference the revealed seal must match
	Concealed *ConcealedSeal
	// Anchor is the revealed closing. nil if the holder expects the seal open
	Anchor *Anchor
	// Protocol, if not nil, is the protocol the anchor must commit under
	Protocol *common.ProtocolID
	// DefaultTxid completes the outpoint of a witness vout seal: the transaction the seal was defined in
	DefaultTxid *chainhash.Hash
}

// Validate validates the seal against the closing anchor
func (v *Validator) Validate(ctx context.Context, seal ExplicitSeal, anchor *Anchor) (*Result, error) {
	return v.ValidateRequest(ctx, &Request{Seal: RevealedSeal{ExplicitSeal: seal}, Anchor: anchor})
}

// ValidateConcealed validates the disclosed seal. A disclosure not reproducing the concealed reference is invalid
func (v *Validator) ValidateConcealed(ctx context.Context, concealed ConcealedSeal, revealed RevealedSeal, anchor *Anchor) (*Result, error) {
	return v.ValidateRequest(ctx, &Request{Seal: revealed, Concealed: &concealed, Anchor: anchor})
}

// ValidateBatch validates unrelated seals in parallel. Results are in the order of the requests.
// The first error cancels the batch
func (v *Validator) ValidateBatch(ctx context.Context, reqs []*Request) ([]*Result, error) {
	ret := make([]*Result, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.config.MaxConcurrency)
	for i := range reqs {
		if reqs[i] == nil {
			return nil, xerrors.Errorf("request #%d is nil: %w", i, common.ErrMalformedInput)
		}
	}
	for i := range reqs {
		i := i
		g.Go(func() error {
			res, err := v.ValidateRequest(ctx, reqs[i])
			if err != nil {
				return xerrors.Errorf("request #%d: %w", i, err)
			}
			ret[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ret, nil
}

// ValidateRequest returns an error only if the seal is malformed or the resolver failed.
// Every verification failure is a StatusInvalid result
func (v *Validator) ValidateRequest(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, xerrors.Errorf("nil request: %w", common.ErrMalformedInput)
	}
	log := v.log.With(zap.Stringer("seal", req.Seal.ExplicitSeal))
	res, err := v.validate(ctx, req, log)
	if err != nil {
		if xerrors.Is(err, common.ErrResolverFailure) {
			v.metrics.resolverFailures.Inc()
		}
		log.Warn("seal_validate", zap.Error(err))
		return nil, err
	}
	v.metrics.validations.WithLabelValues(req.Seal.Method.String(), res.Status.String()).Inc()
	log.Debug("seal_validate", zap.Stringer("status", res.Status), zap.NamedError("reason", res.Reason))
	return res, nil
}

func invalid(witness *chainhash.Hash, reason error) *Result {
	return &Result{Status: StatusInvalid, Witness: witness, Reason: reason}
}

func sealOutpoint(req *Request) (wire.OutPoint, error) {
	if req.Seal.Txid == nil && req.DefaultTxid != nil {
		return req.Seal.OutpointOr(*req.DefaultTxid), nil
	}
	return req.Seal.Outpoint()
}

func (v *Validator) validate(ctx context.Context, req *Request, log *zap.Logger) (*Result, error) {
	if !req.Seal.Method.IsValid() {
		return nil, xerrors.Errorf("%s: %w", req.Seal.Method, ErrWrongMethod)
	}
	outpoint, err := sealOutpoint(req)
	if err != nil {
		return nil, err
	}
	if req.Concealed != nil && !VerifyDisclosure(*req.Concealed, &req.Seal) {
		return invalid(nil, ErrDisclosure), nil
	}

	log.Debug("seal_validate", zap.String("stage", "resolve"), zap.Stringer("outpoint", outpoint))
	spends, err := v.resolver.ResolveSpends(ctx, outpoint)
	if err != nil {
		return nil, xerrors.Errorf("seal %s: resolve %s: %v: %w", req.Seal.ExplicitSeal, outpoint, err, common.ErrResolverFailure)
	}
	if spends == nil {
		return nil, xerrors.Errorf("seal %s: resolver returned no answer: %w", req.Seal.ExplicitSeal, common.ErrResolverFailure)
	}
	if !spends.Created {
		return invalid(nil, ErrOutpointUnknown), nil
	}
	txs := spends.Txs
	if v.config.RequireConfirmed {
		txs = confirmedOnly(txs)
	}
	switch {
	case len(txs) == 0:
		return &Result{Status: StatusOpen}, nil
	case len(txs) > 1:
		return invalid(nil, xerrors.Errorf("%d spends of %s: %w", len(txs), outpoint, common.ErrSealConflict)), nil
	}
	witness := txs[0].Tx
	if witness == nil {
		return nil, xerrors.Errorf("seal %s: resolver returned empty transaction: %w", req.Seal.ExplicitSeal, common.ErrResolverFailure)
	}
	txid := witness.TxHash()

	log.Debug("seal_validate", zap.String("stage", "verify"), zap.Stringer("witness", txid))
	if !spendsOutpoint(witness, outpoint) {
		return invalid(&txid, ErrNotSpendingSeal), nil
	}
	if req.Anchor == nil {
		return invalid(&txid, ErrNoAnchor), nil
	}
	if req.Anchor.Method != req.Seal.Method {
		return invalid(&txid, ErrWrongCloseMethod), nil
	}
	if req.Protocol != nil && *req.Protocol != req.Anchor.ProtocolID {
		return invalid(&txid, ErrWrongProtocol), nil
	}
	if req.Anchor.Proof == nil {
		return invalid(&txid, ErrInclusionMismatch), nil
	}
	container, err := v.containers.Get(req.Anchor.Method)
	if err != nil {
		return nil, err
	}
	commitment := req.Anchor.Commitment(v.engine)
	if !req.Anchor.Proof.VerifyWith(v.engine, commitment, req.Anchor.ProtocolID, req.Anchor.Message) {
		return invalid(&txid, ErrInclusionMismatch), nil
	}
	vout, ok := dbc.VerifyTx(container, req.Anchor.Original, commitment, witness)
	if !ok {
		return invalid(&txid, ErrContainerMismatch), nil
	}
	return &Result{
		Status:  StatusClosed,
		Message: req.Anchor.Message,
		Witness: &txid,
		Vout:    vout,
	}, nil
}

func confirmedOnly(txs []resolver.SpendingTx) []resolver.SpendingTx {
	ret := make([]resolver.SpendingTx, 0, len(txs))
	for _, tx := range txs {
		if tx.Confirmed {
			ret = append(ret, tx)
		}
	}
	return ret
}

func spendsOutpoint(tx *wire.MsgTx, outpoint wire.OutPoint) bool {
	for _, in := range tx.TxIn {
		if in.PreviousOutPoint == outpoint {
			return true
		}
	}
	return false
}
