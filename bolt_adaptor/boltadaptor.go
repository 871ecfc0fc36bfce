// Package bolt_adaptor keeps common.KVStore in a bucket of a bbolt database file
package bolt_adaptor

import (
	"time"

	"github.com/iotaledger/seals.go/common"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

// BoltKVStoreAdaptor maps a bucket of the bbolt database to common.KVStore.
// Every Set is a separate write transaction
type BoltKVStoreAdaptor struct {
	db     *bolt.DB
	bucket []byte
}

var _ common.KVStore = &BoltKVStoreAdaptor{}

// Open opens or creates the database file and the bucket
func Open(path string, bucket []byte) (*BoltKVStoreAdaptor, error) {
	if len(bucket) == 0 {
		return nil, xerrors.Errorf("bolt adaptor: bucket name required: %w", common.ErrMalformedInput)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, xerrors.Errorf("open bbolt %s: %w", path, err)
	}
	ret, err := New(db, bucket)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return ret, nil
}

// New uses the bucket of the open database, creating it if needed
func New(db *bolt.DB, bucket []byte) (*BoltKVStoreAdaptor, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return xerrors.Errorf("create bucket %s: %w", string(bucket), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &BoltKVStoreAdaptor{db: db, bucket: bucket}, nil
}

func (b *BoltKVStoreAdaptor) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func mustNoErr(err error) {
	if err != nil {
		panic(err)
	}
}

// Get returns a copy: bbolt values are valid only inside the transaction
func (b *BoltKVStoreAdaptor) Get(key []byte) []byte {
	var ret []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(b.bucket).Get(key); v != nil {
			ret = append([]byte{}, v...)
		}
		return nil
	})
	mustNoErr(err)
	return ret
}

func (b *BoltKVStoreAdaptor) Has(key []byte) bool {
	return b.Get(key) != nil
}

func (b *BoltKVStoreAdaptor) Set(key, value []byte) {
	err := b.db.Update(func(tx *bolt.Tx) error {
		if len(value) == 0 {
			return tx.Bucket(b.bucket).Delete(key)
		}
		return tx.Bucket(b.bucket).Put(key, value)
	})
	mustNoErr(err)
}

// Iterate runs inside a read transaction in key order. The callback must not write to the store
func (b *BoltKVStoreAdaptor) Iterate(fun func(k []byte, v []byte) bool) {
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(b.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !fun(append([]byte{}, k...), append([]byte{}, v...)) {
				return nil
			}
		}
		return nil
	})
	mustNoErr(err)
}

// Bucket returns the adaptor of another bucket of the same database
func (b *BoltKVStoreAdaptor) Bucket(name []byte) (*BoltKVStoreAdaptor, error) {
	return New(b.db, name)
}

// SetBatch writes all pairs in one transaction
func (b *BoltKVStoreAdaptor) SetBatch(src common.KVIterator) (int, error) {
	n := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		var err error
		src.Iterate(func(k, v []byte) bool {
			if len(v) == 0 {
				err = bucket.Delete(k)
			} else {
				err = bucket.Put(k, v)
			}
			n++
			return err == nil
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// BoltBatchedWriter buffers writes in memory and applies them in one write transaction on Commit
type BoltBatchedWriter struct {
	b     *BoltKVStoreAdaptor
	pairs kvPairs
}

var _ common.KVBatchedWriter = &BoltBatchedWriter{}

func (b *BoltKVStoreAdaptor) NewBatchedWriter() common.KVBatchedWriter {
	return &BoltBatchedWriter{b: b}
}

func (w *BoltBatchedWriter) Set(key, value []byte) {
	w.pairs = append(w.pairs, [2][]byte{append([]byte{}, key...), append([]byte{}, value...)})
}

func (w *BoltBatchedWriter) Commit() (int, error) {
	if len(w.pairs) == 0 {
		return 0, nil
	}
	n, err := w.b.SetBatch(w.pairs)
	w.pairs = nil
	return n, err
}

func (w *BoltBatchedWriter) Cancel() {
	w.pairs = nil
}

// kvPairs iterates pairs in the order of writes, deletions included
type kvPairs [][2][]byte

func (p kvPairs) Iterate(fun func(k, v []byte) bool) {
	for _, kv := range p {
		if !fun(kv[0], kv[1]) {
			return
		}
	}
}
