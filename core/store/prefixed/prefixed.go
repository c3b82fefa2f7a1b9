// Package prefixed implements a store that isolates the keys of a namespace by
// hashing every key together with the namespace.
package prefixed

import (
	"encoding/binary"

	"go.dedis.ch/jellybean/core/store"
	"go.dedis.ch/jellybean/crypto"
)

type readable struct {
	store.Readable
	prefix []byte
}

type writable struct {
	store.Writable
	prefix []byte
}

type snapshot struct {
	*writable
	*readable
}

// NewSnapshot creates a new prefixed Snapshot.
func NewSnapshot(prefix string, snap store.Snapshot) store.Snapshot {
	p := []byte(prefix)
	return &snapshot{
		&writable{snap, p},
		&readable{snap, p},
	}
}

// NewReadable creates a new prefixed Readable.
func NewReadable(prefix string, r store.Readable) store.Readable {
	p := []byte(prefix)
	return &readable{r, p}
}

// Get implements store.Readable.
func (s *readable) Get(key []byte) ([]byte, error) {
	return s.Readable.Get(NewPrefixedKey(s.prefix, key))
}

// Set implements store.Writable.
func (s *writable) Set(key []byte, value []byte) error {
	return s.Writable.Set(NewPrefixedKey(s.prefix, key), value)
}

// Delete implements store.Writable.
func (s *writable) Delete(key []byte) error {
	return s.Writable.Delete(NewPrefixedKey(s.prefix, key))
}

// NewPrefixedKey creates a 256bit (hashed) key from a prefix and a base key.
// Both parts are length-prefixed so that two different pairs never produce the
// same input.
func NewPrefixedKey(prefix, key []byte) []byte {
	prefixLen := make([]byte, 2)
	binary.LittleEndian.PutUint16(prefixLen, uint16(len(prefix)))

	keyLen := make([]byte, 2)
	binary.LittleEndian.PutUint16(keyLen, uint16(len(key)))

	return crypto.Digest(crypto.NewSha256Factory(), prefixLen, prefix, keyLen, key)
}
