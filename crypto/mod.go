// Package crypto defines the cryptographic primitives used to sign and verify
// the transactions of the ledger.
package crypto

import (
	"encoding"
	"hash"
)

// HashFactory is an interface to produce a hash digest.
type HashFactory interface {
	New() hash.Hash
}

// PublicKey is a public identity that can be used to verify a signature.
type PublicKey interface {
	encoding.BinaryMarshaler
	encoding.TextMarshaler

	// Verify returns nil if the signature matches the message, otherwise an
	// error.
	Verify(msg []byte, sig Signature) error

	// Equal returns true when the other object is the same public key.
	Equal(other interface{}) bool
}

// PublicKeyFactory is a factory to create public keys.
type PublicKeyFactory interface {
	FromBytes(data []byte) (PublicKey, error)
}

// Signature is a verifiable element for a unique message.
type Signature interface {
	encoding.BinaryMarshaler

	Equal(other Signature) bool
}

// SignatureFactory is a factory to create signatures.
type SignatureFactory interface {
	FromBytes(data []byte) (Signature, error)
}

// Signer provides the primitives to sign and verify signatures.
type Signer interface {
	encoding.BinaryMarshaler

	GetPublicKeyFactory() PublicKeyFactory
	GetSignatureFactory() SignatureFactory
	GetPublicKey() PublicKey
	Sign(msg []byte) (Signature, error)
}
