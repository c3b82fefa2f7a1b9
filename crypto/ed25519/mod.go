// Package ed25519 implements the cryptographic primitives for the Edwards 25519
// elliptic curve.
//
// The signatures are created using the Schnorr algorithm. A public key of the
// curve is 32 bytes long and is used as is as the address of an account on the
// ledger.
package ed25519

import (
	"bytes"

	"github.com/mr-tron/base58"
	"go.dedis.ch/jellybean/crypto"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/kyber/v3/util/key"
	"golang.org/x/xerrors"
)

// Algorithm is the prefix of the text form of a public key.
const Algorithm = "ed25519"

var suite = suites.MustFind("Ed25519")

// PublicKey is a point of the curve. Its 32 bytes form is the address of the
// account of the key.
//
// - implements crypto.PublicKey
type PublicKey struct {
	point kyber.Point
}

// NewPublicKey returns a new public key from the data.
func NewPublicKey(data []byte) (PublicKey, error) {
	point := suite.Point()
	err := point.UnmarshalBinary(data)
	if err != nil {
		return PublicKey{}, xerrors.Errorf("couldn't unmarshal point: %v", err)
	}

	pk := PublicKey{
		point: point,
	}

	return pk, nil
}

// MarshalBinary implements encoding.BinaryMarshaler. It produces a slice of
// bytes representing the public key.
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	return pk.point.MarshalBinary()
}

// Verify implements crypto.PublicKey. It returns nil if the signature matches
// the message for this public key.
func (pk PublicKey) Verify(msg []byte, sig crypto.Signature) error {
	signature, ok := sig.(Signature)
	if !ok {
		return xerrors.Errorf("invalid signature type '%T'", sig)
	}

	err := schnorr.Verify(suite, pk.point, msg, signature.data)
	if err != nil {
		return xerrors.Errorf("schnorr verify failed: %v", err)
	}

	return nil
}

// Equal implements crypto.PublicKey. It returns true if the other public key
// is the same.
func (pk PublicKey) Equal(other interface{}) bool {
	pubkey, ok := other.(PublicKey)
	if !ok {
		return false
	}

	return pubkey.point.Equal(pk.point)
}

// MarshalText implements encoding.TextMarshaler. It returns the algorithm
// followed by the base58 form of the key, which is also the address of its
// account.
func (pk PublicKey) MarshalText() ([]byte, error) {
	buffer, err := pk.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("couldn't marshal: %v", err)
	}

	return []byte(Algorithm + ":" + base58.Encode(buffer)), nil
}

// String implements fmt.Stringer. It returns the base58 form of the key.
func (pk PublicKey) String() string {
	buffer, err := pk.MarshalBinary()
	if err != nil {
		return "malformed_point"
	}

	return base58.Encode(buffer)
}

// Signature is a Schnorr signature of 64 bytes.
//
// - implements crypto.Signature
type Signature struct {
	data []byte
}

// NewSignature returns a new signature from the data.
func NewSignature(data []byte) Signature {
	return Signature{
		data: data,
	}
}

// MarshalBinary implements encoding.BinaryMarshaler. It returns a slice of
// bytes representing the signature.
func (sig Signature) MarshalBinary() ([]byte, error) {
	return sig.data, nil
}

// Equal implements crypto.Signature. It returns true if both signatures are the
// same.
func (sig Signature) Equal(other crypto.Signature) bool {
	otherSig, ok := other.(Signature)
	if !ok {
		return false
	}

	return bytes.Equal(sig.data, otherSig.data)
}

// publicKeyFactory is a factory to create public keys for the Ed25519 curve.
//
// - implements crypto.PublicKeyFactory
type publicKeyFactory struct{}

// NewPublicKeyFactory returns a new instance of the factory.
func NewPublicKeyFactory() crypto.PublicKeyFactory {
	return publicKeyFactory{}
}

// FromBytes implements crypto.PublicKeyFactory. It returns the public key
// unmarshaled from the bytes.
func (f publicKeyFactory) FromBytes(data []byte) (crypto.PublicKey, error) {
	pubkey, err := NewPublicKey(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal the key: %v", err)
	}

	return pubkey, nil
}

// signatureFactory is a factory to create signatures of the Ed25519 elliptic
// curve.
//
// - implements crypto.SignatureFactory
type signatureFactory struct{}

// NewSignatureFactory returns a new instance of the factory.
func NewSignatureFactory() crypto.SignatureFactory {
	return signatureFactory{}
}

// FromBytes implements crypto.SignatureFactory. Schnorr signatures on this
// curve are always 64 bytes long.
func (f signatureFactory) FromBytes(data []byte) (crypto.Signature, error) {
	if len(data) != 64 {
		return nil, xerrors.Errorf("invalid signature length %d", len(data))
	}

	return Signature{data: data}, nil
}

// Signer implements a signer that is creating Schnorr signatures using the
// private key of the Ed25519 elliptic curve.
//
// - implements crypto.Signer
type Signer struct {
	keyPair *key.Pair
}

// NewSigner returns a new random schnorr signer.
func NewSigner() crypto.Signer {
	kp := key.NewKeyPair(suite)
	return Signer{
		keyPair: kp,
	}
}

// NewSignerFromBytes restores a signer from the marshaled private key.
func NewSignerFromBytes(data []byte) (crypto.Signer, error) {
	scalar := suite.Scalar()

	err := scalar.UnmarshalBinary(data)
	if err != nil {
		return nil, xerrors.Errorf("couldn't unmarshal scalar: %v", err)
	}

	signer := Signer{
		keyPair: &key.Pair{
			Private: scalar,
			Public:  suite.Point().Mul(scalar, nil),
		},
	}

	return signer, nil
}

// GetPublicKeyFactory implements crypto.Signer. It returns the public key
// factory for schnorr signatures.
func (s Signer) GetPublicKeyFactory() crypto.PublicKeyFactory {
	return publicKeyFactory{}
}

// GetSignatureFactory implements crypto.Signer. It returns the signature
// factory for schnorr signatures.
func (s Signer) GetSignatureFactory() crypto.SignatureFactory {
	return signatureFactory{}
}

// GetPublicKey implements crypto.Signer. It returns the public key of the
// signer that can be used to verify signatures.
func (s Signer) GetPublicKey() crypto.PublicKey {
	return PublicKey{point: s.keyPair.Public}
}

// MarshalBinary implements encoding.BinaryMarshaler. It returns the private
// key so that the signer can be stored and loaded later.
func (s Signer) MarshalBinary() ([]byte, error) {
	return s.keyPair.Private.MarshalBinary()
}

// Sign implements crypto.Signer. It signs the message in parameter and returns
// the signature, or an error if it cannot sign.
func (s Signer) Sign(msg []byte) (crypto.Signature, error) {
	sig, err := schnorr.Sign(suite, s.keyPair.Private, msg)
	if err != nil {
		return nil, xerrors.Errorf("couldn't make schnorr signature: %v", err)
	}

	return Signature{data: sig}, nil
}
