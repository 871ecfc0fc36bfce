package common

import "sync"

//----------------------------------------------------------------------------
// generic abstraction interfaces of key/value storage

// KVReader is a key/value reader
type KVReader interface {
	// Get retrieves value by key. Returned nil means absence of the key
	Get(key []byte) []byte
	// Has checks presence of the key in the key/value store
	Has(key []byte) bool // for performance
}

// KVWriter is a key/value writer
type KVWriter interface {
	// Set writes new or updates existing key with the value.
	// value == nil means deletion of the key from the store
	Set(key, value []byte)
}

// KVIterator is an interface to iterate through a set of key/value pairs.
// Order of iteration is NON-DETERMINISTIC in general
type KVIterator interface {
	Iterate(func(k, v []byte) bool)
}

// KVStore is a compound interface
type KVStore interface {
	KVReader
	KVWriter
	KVIterator
}

// KVBatchedWriter buffers writes and applies them to the store at once on Commit
type KVBatchedWriter interface {
	KVWriter
	// Commit applies buffered mutations, returns their number
	Commit() (int, error)
	// Cancel drops buffered mutations
	Cancel()
}

// CopyAll flushes KVIterator to KVWriter. It is up to the iterator correctly stop iterating
func CopyAll(dst KVWriter, src KVIterator) {
	src.Iterate(func(k, v []byte) bool {
		dst.Set(k, v)
		return true
	})
}

// NumEntries calculates number of key/value pair in the iterator
func NumEntries(s KVIterator) int {
	ret := 0
	s.Iterate(func(_, _ []byte) bool {
		ret++
		return true
	})
	return ret
}

// inMemoryKVStore is a KVStore implementation. Mostly used for testing.
// Safe for concurrent use
type inMemoryKVStore struct {
	mutex sync.RWMutex
	m     map[string][]byte
}

var _ KVStore = &inMemoryKVStore{}

func NewInMemoryKVStore() KVStore {
	return &inMemoryKVStore{m: make(map[string][]byte)}
}

func (im *inMemoryKVStore) Get(k []byte) []byte {
	im.mutex.RLock()
	defer im.mutex.RUnlock()
	return im.m[string(k)]
}

func (im *inMemoryKVStore) Has(k []byte) bool {
	im.mutex.RLock()
	defer im.mutex.RUnlock()
	_, ok := im.m[string(k)]
	return ok
}

// Iterate iterates over a snapshot, so the callback may write to the store
func (im *inMemoryKVStore) Iterate(f func(k []byte, v []byte) bool) {
	im.mutex.RLock()
	snapshot := make(map[string][]byte, len(im.m))
	for k, v := range im.m {
		snapshot[k] = v
	}
	im.mutex.RUnlock()

	for k, v := range snapshot {
		if !f([]byte(k), v) {
			return
		}
	}
}

func (im *inMemoryKVStore) Set(k, v []byte) {
	im.mutex.Lock()
	defer im.mutex.Unlock()
	if len(v) != 0 {
		vCopy := make([]byte, len(v))
		copy(vCopy, v)
		im.m[string(k)] = vCopy
	} else {
		delete(im.m, string(k))
	}
}

// partition maps a prefixed sub-space of the KVStore to a KVStore
type partition struct {
	prefix []byte
	s      KVStore
}

// MakePartition returns a view of the store where every key is prefixed with prefix
func MakePartition(s KVStore, prefix ...byte) KVStore {
	return &partition{prefix: prefix, s: s}
}

func (p *partition) Get(key []byte) []byte {
	return p.s.Get(Concat(p.prefix, key))
}

func (p *partition) Has(key []byte) bool {
	return p.s.Has(Concat(p.prefix, key))
}

func (p *partition) Set(key, value []byte) {
	p.s.Set(Concat(p.prefix, key), value)
}

func (p *partition) Iterate(f func(k, v []byte) bool) {
	p.s.Iterate(func(k, v []byte) bool {
		if len(k) < len(p.prefix) || string(k[:len(p.prefix)]) != string(p.prefix) {
			return true
		}
		return f(k[len(p.prefix):], v)
	})
}

type writerPartition struct {
	prefix []byte
	w      KVWriter
}

// MakeWriterPartition returns the writer prefixing every key with prefix
func MakeWriterPartition(w KVWriter, prefix ...byte) KVWriter {
	return &writerPartition{prefix: prefix, w: w}
}

func (p *writerPartition) Set(key, value []byte) {
	p.w.Set(Concat(p.prefix, key), value)
}
