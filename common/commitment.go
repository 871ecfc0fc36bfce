package common

import (
	"bytes"
	"encoding/hex"
	"io"

	"golang.org/x/xerrors"
)

// Serializable is a common interface for serialization of commitment data
type Serializable interface {
	Read(r io.Reader) error
	Write(w io.Writer) error
	Bytes() []byte
	String() string
}

const DigestSize = 32

// Digest is a 32 byte commitment value: tagged hash, tree node, tree root or the
// Bitcoin commitment embedded into a container
type Digest [DigestSize]byte

// ProtocolID distinguishes independent commitment namespaces sharing one tree.
// It is a public sort/slot key, never secret material
type ProtocolID Digest

// Message is the 32 byte digest of the payload committed under a protocol
type Message Digest

var (
	_ Serializable = &Digest{}
	_ Serializable = &ProtocolID{}
	_ Serializable = &Message{}
)

func DigestFromBytes(data []byte) (ret Digest, err error) {
	if len(data) != DigestSize {
		return ret, xerrors.Errorf("digest must be %d bytes, got %d: %w", DigestSize, len(data), ErrMalformedInput)
	}
	copy(ret[:], data)
	return ret, nil
}

func DigestFromHex(s string) (Digest, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, xerrors.Errorf("digest hex: %v: %w", err, ErrMalformedInput)
	}
	return DigestFromBytes(data)
}

func (d *Digest) Read(r io.Reader) error {
	_, err := io.ReadFull(r, d[:])
	return err
}

func (d *Digest) Write(w io.Writer) error {
	_, err := w.Write(d[:])
	return err
}

func (d *Digest) Bytes() []byte {
	ret := make([]byte, DigestSize)
	copy(ret, d[:])
	return ret
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) Equal(d1 Digest) bool {
	return bytes.Equal(d[:], d1[:])
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

func ProtocolIDFromBytes(data []byte) (ProtocolID, error) {
	d, err := DigestFromBytes(data)
	return ProtocolID(d), err
}

func (id *ProtocolID) Read(r io.Reader) error {
	return (*Digest)(id).Read(r)
}

func (id *ProtocolID) Write(w io.Writer) error {
	return (*Digest)(id).Write(w)
}

func (id *ProtocolID) Bytes() []byte {
	return (*Digest)(id).Bytes()
}

func (id ProtocolID) String() string {
	return Digest(id).String()
}

// Less orders protocol ids lexicographically
func (id ProtocolID) Less(id1 ProtocolID) bool {
	return bytes.Compare(id[:], id1[:]) < 0
}

func MessageFromBytes(data []byte) (Message, error) {
	d, err := DigestFromBytes(data)
	return Message(d), err
}

func (m *Message) Read(r io.Reader) error {
	return (*Digest)(m).Read(r)
}

func (m *Message) Write(w io.Writer) error {
	return (*Digest)(m).Write(w)
}

func (m *Message) Bytes() []byte {
	return (*Digest)(m).Bytes()
}

func (m Message) String() string {
	return Digest(m).String()
}
