// Package resolver is the narrow interface to chain data consumed by seal validation.
// Fetching the data (node RPC, explorer, indexer) is the business of the implementation:
// it owns timeouts, retries and cancellation
package resolver

import (
	"context"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// SpendingTx is a transaction spending the outpoint
type SpendingTx struct {
	Tx *wire.MsgTx
	// Height of the block including the transaction, 0 for mempool
	Height    int32
	Confirmed bool
}

// Spends is the answer about an outpoint
type Spends struct {
	// Created is false if the outpoint is not known to exist
	Created bool
	// Txs are all known transactions spending the outpoint.
	// More than one is possible only on a non-final view of the chain
	Txs []SpendingTx
}

func (s *Spends) IsUnspent() bool {
	return len(s.Txs) == 0
}

// Resolver answers about spends of an outpoint. The returned error always means the query failed,
// "not created" and "unspent" are answers, not errors
type Resolver interface {
	ResolveSpends(ctx context.Context, outpoint wire.OutPoint) (*Spends, error)
}

// Func adapts a function to Resolver
type Func func(ctx context.Context, outpoint wire.OutPoint) (*Spends, error)

func (f Func) ResolveSpends(ctx context.Context, outpoint wire.OutPoint) (*Spends, error) {
	return f(ctx, outpoint)
}

// Index is an in-memory chain view built from ingested transactions. Conflicting spends are all kept.
// Safe for concurrent use
type Index struct {
	mutex   sync.RWMutex
	created map[wire.OutPoint]struct{}
	spends  map[wire.OutPoint][]*indexedTx
	txs     map[chainhash.Hash]*indexedTx
}

type indexedTx struct {
	tx        *wire.MsgTx
	height    int32
	confirmed bool
}

var _ Resolver = &Index{}

func NewIndex() *Index {
	return &Index{
		created: make(map[wire.OutPoint]struct{}),
		spends:  make(map[wire.OutPoint][]*indexedTx),
		txs:     make(map[chainhash.Hash]*indexedTx),
	}
}

// AddTx ingests the transaction: its outputs become created outpoints, its inputs spends.
// Adding the same transaction again updates its confirmation status
func (idx *Index) AddTx(tx *wire.MsgTx, height int32, confirmed bool) chainhash.Hash {
	txid := tx.TxHash()

	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	if itx, ok := idx.txs[txid]; ok {
		itx.height = height
		itx.confirmed = confirmed
		return txid
	}
	itx := &indexedTx{tx: tx.Copy(), height: height, confirmed: confirmed}
	idx.txs[txid] = itx
	for i := range tx.TxOut {
		idx.created[wire.OutPoint{Hash: txid, Index: uint32(i)}] = struct{}{}
	}
	for _, in := range tx.TxIn {
		idx.spends[in.PreviousOutPoint] = append(idx.spends[in.PreviousOutPoint], itx)
	}
	return txid
}

// AddOutpoint marks the outpoint as created without its transaction, e.g. from a UTXO snapshot
func (idx *Index) AddOutpoint(outpoint wire.OutPoint) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()
	idx.created[outpoint] = struct{}{}
}

// Tx returns an ingested transaction
func (idx *Index) Tx(txid chainhash.Hash) (*wire.MsgTx, bool) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()
	itx, ok := idx.txs[txid]
	if !ok {
		return nil, false
	}
	return itx.tx.Copy(), true
}

func (idx *Index) ResolveSpends(ctx context.Context, outpoint wire.OutPoint) (*Spends, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	ret := &Spends{}
	_, ret.Created = idx.created[outpoint]
	for _, itx := range idx.spends[outpoint] {
		ret.Txs = append(ret.Txs, SpendingTx{
			Tx:        itx.tx.Copy(),
			Height:    itx.height,
			Confirmed: itx.confirmed,
		})
	}
	return ret, nil
}
