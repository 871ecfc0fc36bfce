// Package registry persists the seals of a holder: the revealed definitions with their blinding
// factors, keyed by the concealed reference, and the last validated state of each seal.
// Final seals keep their state. By default closed seals and verification mismatches are final,
// while the seals invalid for an unknown outpoint, a conflict or a missing anchor are validated again
package registry

import (
	"context"
	"io"
	"sync"

	"github.com/iotaledger/seals.go/common"
	"github.com/iotaledger/seals.go/seal"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

var (
	ErrUnknownSeal   = xerrors.New("seal is not in the registry")
	ErrSealFinalized = xerrors.New("seal state is final and differs from the new outcome")
)

const partitionSeals = byte(0x01)

type Registry struct {
	mutex    sync.Mutex
	store    common.KVStore
	log      *zap.Logger
	isFinal  func(rec *Record) bool
	newBatch func() common.KVBatchedWriter
}

type Option func(r *Registry)

func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// WithFinality replaces the finality policy, e.g. to treat conflicts as final
func WithFinality(isFinal func(rec *Record) bool) Option {
	return func(r *Registry) {
		r.isFinal = isFinal
	}
}

// WithBatch makes restores write through a batch of the store the registry is created on.
// A failed restore then leaves the store unchanged
func WithBatch(newBatch func() common.KVBatchedWriter) Option {
	return func(r *Registry) {
		r.newBatch = newBatch
	}
}

// New creates the registry on the store. The registry uses its own partition of the store
func New(store common.KVStore, opts ...Option) *Registry {
	ret := &Registry{
		store:   common.MakePartition(store, partitionSeals),
		log:     zap.NewNop(),
		isFinal: (*Record).IsFinal,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Put stores the seal in the defined state. Putting a known seal keeps its state
func (r *Registry) Put(s seal.RevealedSeal) seal.ConcealedSeal {
	id := s.Conceal()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.store.Has(id[:]) {
		return id
	}
	rec := &Record{Seal: s, Status: seal.StatusDefined}
	r.store.Set(id[:], rec.Bytes())
	r.log.Debug("registry_put", zap.Stringer("id", id), zap.Stringer("seal", s))
	return id
}

func (r *Registry) Get(id seal.ConcealedSeal) (*Record, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.get(id)
}

func (r *Registry) get(id seal.ConcealedSeal) (*Record, error) {
	data := r.store.Get(id[:])
	if data == nil {
		return nil, xerrors.Errorf("%s: %w", id, ErrUnknownSeal)
	}
	ret, err := RecordFromBytes(data)
	if err != nil {
		return nil, xerrors.Errorf("registry: corrupted record %s: %w", id, err)
	}
	return ret, nil
}

// Record updates the state of the seal with the validation result
func (r *Registry) Record(id seal.ConcealedSeal, res *seal.Result) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	rec, err := r.get(id)
	if err != nil {
		return err
	}
	if r.isFinal(rec) {
		if rec.sameOutcome(res) {
			return nil
		}
		r.log.Warn("registry_record", zap.Stringer("id", id), zap.Stringer("status", rec.Status), zap.Stringer("new_status", res.Status))
		return xerrors.Errorf("%s is %s, new outcome %s: %w", id, rec.Status, res.Status, ErrSealFinalized)
	}
	rec.Status = res.Status
	rec.Message = res.Message
	rec.Witness = res.Witness
	rec.Kind = res.Kind()
	rec.Reason = ""
	if res.Reason != nil {
		rec.Reason = res.Reason.Error()
	}
	r.store.Set(id[:], rec.Bytes())
	r.log.Debug("registry_record", zap.Stringer("id", id), zap.Stringer("status", rec.Status))
	return nil
}

// Iterate iterates records in undefined order. Corrupted records stop the iteration with an error
func (r *Registry) Iterate(f func(id seal.ConcealedSeal, rec *Record) bool) error {
	var err error
	r.store.Iterate(func(k, v []byte) bool {
		var id seal.ConcealedSeal
		if len(k) != len(id) {
			err = xerrors.Errorf("registry: wrong key length %d: %w", len(k), common.ErrMalformedInput)
			return false
		}
		copy(id[:], k)
		var rec *Record
		if rec, err = RecordFromBytes(v); err != nil {
			err = xerrors.Errorf("registry: corrupted record %s: %w", id, err)
			return false
		}
		return f(id, rec)
	})
	return err
}

// Refresh validates all seals which are not final and records the outcomes.
// anchors provides the revealed closing of the seal, nil if not known
func (r *Registry) Refresh(ctx context.Context, v *seal.Validator, anchors func(id seal.ConcealedSeal) *seal.Anchor) (int, error) {
	ids := make([]seal.ConcealedSeal, 0)
	reqs := make([]*seal.Request, 0)
	err := r.Iterate(func(id seal.ConcealedSeal, rec *Record) bool {
		if r.isFinal(rec) {
			return true
		}
		concealed := id
		ids = append(ids, id)
		reqs = append(reqs, &seal.Request{
			Seal:      rec.Seal,
			Concealed: &concealed,
			Anchor:    anchors(id),
		})
		return true
	})
	if err != nil {
		return 0, err
	}
	results, err := v.ValidateBatch(ctx, reqs)
	if err != nil {
		return 0, err
	}
	for i, res := range results {
		if err = r.Record(ids[i], res); err != nil {
			return i, err
		}
	}
	r.log.Info("registry_refresh", zap.Int("validated", len(results)))
	return len(results), nil
}

// Dump writes all records to the binary key/value stream
func (r *Registry) Dump(w io.Writer) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	sw := common.NewBinaryStreamWriter(w)
	var err error
	r.store.Iterate(func(k, v []byte) bool {
		if err = sw.Write(k, v); err != nil {
			return false
		}
		return true
	})
	n, _ := sw.Stats()
	return n, err
}

// DumpToFile writes all records to the file in the format of Dump. Returns number of bytes
func (r *Registry) DumpToFile(fname string) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return common.DumpToFile(r.store, fname)
}

// Restore reads records dumped by Dump. Records of known seals are not overwritten.
// Returns number of restored records
func (r *Registry) Restore(rd io.Reader) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	imp := r.newImporter()
	err := common.NewBinaryStreamIterator(rd).Iterate(func(k, v []byte) bool {
		imp.Set(k, v)
		return imp.err == nil
	})
	return imp.finish(err)
}

// RestoreFromFile restores records from the file written by DumpToFile
func (r *Registry) RestoreFromFile(fname string) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	imp := r.newImporter()
	_, err := common.UnDumpFromFile(imp, fname)
	return imp.finish(err)
}

// importer checks dumped records and writes the new ones to the store or to the batch
type importer struct {
	r     *Registry
	w     common.KVWriter
	batch common.KVBatchedWriter
	seen  map[seal.ConcealedSeal]struct{}
	n     int
	err   error
}

func (r *Registry) newImporter() *importer {
	ret := &importer{
		r:    r,
		w:    r.store,
		seen: make(map[seal.ConcealedSeal]struct{}),
	}
	if r.newBatch != nil {
		ret.batch = r.newBatch()
		ret.w = common.MakeWriterPartition(ret.batch, partitionSeals)
	}
	return ret
}

// Set skips everything after the first wrong record
func (imp *importer) Set(k, v []byte) {
	if imp.err != nil {
		return
	}
	var id seal.ConcealedSeal
	if len(k) != len(id) {
		imp.err = xerrors.Errorf("registry: wrong key length %d: %w", len(k), common.ErrMalformedInput)
		return
	}
	copy(id[:], k)
	if _, err := RecordFromBytes(v); err != nil {
		imp.err = xerrors.Errorf("registry: corrupted record %s: %w", id, err)
		return
	}
	if _, ok := imp.seen[id]; ok || imp.r.store.Has(k) {
		return
	}
	imp.seen[id] = struct{}{}
	imp.w.Set(k, v)
	imp.n++
}

func (imp *importer) finish(err error) (int, error) {
	if err == nil {
		err = imp.err
	}
	if imp.batch == nil {
		return imp.n, err
	}
	if err != nil {
		imp.batch.Cancel()
		return 0, err
	}
	if _, err = imp.batch.Commit(); err != nil {
		return 0, err
	}
	imp.r.log.Info("registry_restore", zap.Int("restored", imp.n))
	return imp.n, nil
}
