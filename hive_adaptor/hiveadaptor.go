// Package hive_adaptor maps the key/value stores of the `hive.go` repository to common.KVStore,
// so the seal registry can be kept in any hive.go backed database
package hive_adaptor

import (
	"errors"

	"github.com/iotaledger/hive.go/core/kvstore"
	"github.com/iotaledger/seals.go/common"
)

// HiveKVStoreAdaptor maps a partition of the Hive KVStore to common.KVStore
type HiveKVStoreAdaptor struct {
	kvs    kvstore.KVStore
	prefix []byte
}

var _ common.KVStore = &HiveKVStoreAdaptor{}

// NewHiveKVStoreAdaptor creates a new KVStore as a partition of hive.go KVStore
func NewHiveKVStoreAdaptor(kvs kvstore.KVStore, prefix []byte) *HiveKVStoreAdaptor {
	return &HiveKVStoreAdaptor{kvs: kvs, prefix: prefix}
}

func mustNoErr(err error) {
	if err != nil {
		panic(err)
	}
}

func makeKey(prefix, k []byte) []byte {
	if len(prefix) == 0 {
		return k
	}
	return common.Concat(prefix, k)
}

func (kvs *HiveKVStoreAdaptor) Get(key []byte) []byte {
	v, err := kvs.kvs.Get(makeKey(kvs.prefix, key))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil
	}
	mustNoErr(err)
	return v
}

func (kvs *HiveKVStoreAdaptor) Has(key []byte) bool {
	v, err := kvs.kvs.Has(makeKey(kvs.prefix, key))
	mustNoErr(err)
	return v
}

func (kvs *HiveKVStoreAdaptor) Set(key, value []byte) {
	var err error
	if len(value) == 0 {
		err = kvs.kvs.Delete(makeKey(kvs.prefix, key))
	} else {
		err = kvs.kvs.Set(makeKey(kvs.prefix, key), value)
	}
	mustNoErr(err)
}

// Iterate must not write to the same store from the callback
func (kvs *HiveKVStoreAdaptor) Iterate(fun func(k []byte, v []byte) bool) {
	err := kvs.kvs.Iterate(kvs.prefix, func(key kvstore.Key, value kvstore.Value) bool {
		return fun(key[len(kvs.prefix):], value)
	})
	mustNoErr(err)
}

// HiveBatchedWriter buffers writes into the hive.go batch and applies them atomically on Commit.
// Used for bulk imports, e.g. restoring a dumped registry
type HiveBatchedWriter struct {
	kvs    kvstore.KVStore
	prefix []byte
	batch  kvstore.BatchedMutations
	count  int
}

var _ common.KVBatchedWriter = &HiveBatchedWriter{}

func NewHiveBatchedWriter(kvs kvstore.KVStore, prefix []byte) *HiveBatchedWriter {
	return &HiveBatchedWriter{kvs: kvs, prefix: prefix}
}

// NewBatchedWriter returns the batched writer to the same partition
func (kvs *HiveKVStoreAdaptor) NewBatchedWriter() common.KVBatchedWriter {
	return NewHiveBatchedWriter(kvs.kvs, kvs.prefix)
}

func (b *HiveBatchedWriter) Set(key, value []byte) {
	var err error
	if b.batch == nil {
		b.batch, err = b.kvs.Batched()
		mustNoErr(err)
	}
	if len(value) > 0 {
		err = b.batch.Set(makeKey(b.prefix, key), value)
	} else {
		err = b.batch.Delete(makeKey(b.prefix, key))
	}
	mustNoErr(err)
	b.count++
}

// Commit persists the batch as an atomic update to the underlying kvstore. Returns number of mutations
func (b *HiveBatchedWriter) Commit() (int, error) {
	if b.batch == nil {
		return 0, nil
	}
	if err := b.batch.Commit(); err != nil {
		return 0, err
	}
	if err := b.kvs.Flush(); err != nil {
		return 0, err
	}
	ret := b.count
	b.batch = nil
	b.count = 0
	return ret, nil
}

// Cancel drops the buffered mutations
func (b *HiveBatchedWriter) Cancel() {
	if b.batch != nil {
		b.batch.Cancel()
	}
	b.batch = nil
	b.count = 0
}
