package common

import (
	"errors"
	"io"
)

//----------------------------------------------------------------------------
// interfaces for writing/reading persistent streams of key/value pairs

// KVStreamWriter represents an interface to write a sequence of key/value pairs
type KVStreamWriter interface {
	// Write writes key/value pair
	Write(key, value []byte) error
	// Stats return num k/v pairs and num bytes so far
	Stats() (int, int)
}

// KVStreamIterator is an interface to iterate stream
// In general, order is non-deterministic
type KVStreamIterator interface {
	Iterate(func(k, v []byte) bool) error
}

//----------------------------------------------------------------------------
// implementations of writing/reading persistent streams of key/value pairs

// BinaryStreamWriter writes stream of k/v pairs in binary format
// Each key is prefixed with 2 bytes (little-endian uint16) of size,
// each value with 4 bytes of size (little-endian uint32)
var _ KVStreamWriter = &BinaryStreamWriter{}

type BinaryStreamWriter struct {
	w         io.Writer
	kvCount   int
	byteCount int
}

func NewBinaryStreamWriter(w io.Writer) *BinaryStreamWriter {
	return &BinaryStreamWriter{w: w}
}

func (b *BinaryStreamWriter) Write(key, value []byte) error {
	if err := WriteBytes16(b.w, key); err != nil {
		return err
	}
	b.byteCount += len(key) + 2
	if err := WriteBytes32(b.w, value); err != nil {
		return err
	}
	b.byteCount += len(value) + 4
	b.kvCount++
	return nil
}

func (b *BinaryStreamWriter) Stats() (int, int) {
	return b.kvCount, b.byteCount
}

// BinaryStreamIterator deserializes stream of key/value pairs from io.Reader
var _ KVStreamIterator = &BinaryStreamIterator{}

type BinaryStreamIterator struct {
	r io.Reader
}

func NewBinaryStreamIterator(r io.Reader) *BinaryStreamIterator {
	return &BinaryStreamIterator{r: r}
}

func (b BinaryStreamIterator) Iterate(fun func(k []byte, v []byte) bool) error {
	for {
		k, err := ReadBytes16(b.r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		v, err := ReadBytes32(b.r)
		if err != nil {
			return err
		}
		if !fun(k, v) {
			return nil
		}
	}
}
