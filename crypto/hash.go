package crypto

import (
	"crypto/sha256"
	"hash"
)

// HashAlgorithm is the identifier of a hash function.
type HashAlgorithm int

const (
	// Sha256 is the SHA-256 hash function.
	Sha256 HashAlgorithm = iota
)

// hashFactory is a hash factory that is using SHA algorithms.
//
// - implements crypto.HashFactory
type hashFactory struct {
	hashType HashAlgorithm
}

// NewSha256Factory returns a new instance of the factory using SHA-256.
func NewSha256Factory() HashFactory {
	return hashFactory{Sha256}
}

// NewHashFactory returns a new instance of the factory.
func NewHashFactory(a HashAlgorithm) HashFactory {
	return hashFactory{a}
}

// New implements crypto.HashFactory. It returns a new Hash instance.
func (f hashFactory) New() hash.Hash {
	switch f.hashType {
	case Sha256:
		return sha256.New()
	default:
		panic("unknown hash type")
	}
}

// Digest is a shortcut that hashes the concatenation of the chunks.
func Digest(f HashFactory, chunks ...[]byte) []byte {
	h := f.New()

	for _, chunk := range chunks {
		h.Write(chunk)
	}

	return h.Sum(nil)
}
