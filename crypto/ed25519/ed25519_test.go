package ed25519

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/jellybean/crypto"
)

func TestPublicKey_New(t *testing.T) {
	point := suite.Point().Pick(suite.RandomStream())
	pointBuf, err := point.MarshalBinary()
	require.NoError(t, err)

	pubKey, err := NewPublicKey(pointBuf)
	require.NoError(t, err)

	require.True(t, pubKey.point.Equal(point))

	_, err = NewPublicKey([]byte{})
	require.EqualError(t, err, "couldn't unmarshal point: invalid Ed25519 curve point")
}

func TestPublicKey_MarshalBinary(t *testing.T) {
	signer := NewSigner()

	buffer, err := signer.GetPublicKey().MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buffer, 32)
}

func TestPublicKey_Verify(t *testing.T) {
	signer := NewSigner()

	sig, err := signer.Sign([]byte("deadbeef"))
	require.NoError(t, err)

	err = signer.GetPublicKey().Verify([]byte("deadbeef"), sig)
	require.NoError(t, err)

	err = signer.GetPublicKey().Verify([]byte("abc"), sig)
	require.Error(t, err)
	require.Contains(t, err.Error(), "schnorr verify failed: ")

	err = signer.GetPublicKey().Verify(nil, fakeSignature{})
	require.EqualError(t, err, "invalid signature type 'ed25519.fakeSignature'")
}

func TestPublicKey_Equal(t *testing.T) {
	signer := NewSigner()

	pk := signer.GetPublicKey()
	require.True(t, pk.Equal(pk))
	require.False(t, pk.Equal(NewSigner().GetPublicKey()))
	require.False(t, pk.Equal(fakeSignature{}))
}

func TestPublicKey_MarshalText(t *testing.T) {
	pk := NewSigner().GetPublicKey()

	buffer, err := pk.MarshalBinary()
	require.NoError(t, err)

	text, err := pk.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "ed25519:"+base58.Encode(buffer), string(text))

	require.Equal(t, base58.Encode(buffer), pk.(PublicKey).String())
}

func TestSignature_Equal(t *testing.T) {
	sig := NewSignature([]byte{1, 2, 3})

	require.True(t, sig.Equal(NewSignature([]byte{1, 2, 3})))
	require.False(t, sig.Equal(NewSignature([]byte{1, 2})))
	require.False(t, sig.Equal(fakeSignature{}))
}

func TestSignatureFactory_FromBytes(t *testing.T) {
	fac := NewSignatureFactory()

	sig, err := fac.FromBytes(make([]byte, 64))
	require.NoError(t, err)
	require.NotNil(t, sig)

	_, err = fac.FromBytes([]byte{1})
	require.EqualError(t, err, "invalid signature length 1")
}

func TestPublicKeyFactory_FromBytes(t *testing.T) {
	pk := NewSigner().GetPublicKey()
	buffer, err := pk.MarshalBinary()
	require.NoError(t, err)

	fac := NewPublicKeyFactory()

	pk2, err := fac.FromBytes(buffer)
	require.NoError(t, err)
	require.True(t, pk.Equal(pk2))

	_, err = fac.FromBytes(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to unmarshal the key: ")
}

func TestSigner_MarshalAndRestore(t *testing.T) {
	signer := NewSigner()

	data, err := signer.MarshalBinary()
	require.NoError(t, err)

	restored, err := NewSignerFromBytes(data)
	require.NoError(t, err)
	require.True(t, signer.GetPublicKey().Equal(restored.GetPublicKey()))

	sig, err := restored.Sign([]byte("ping"))
	require.NoError(t, err)
	require.NoError(t, signer.GetPublicKey().Verify([]byte("ping"), sig))

	_, err = NewSignerFromBytes([]byte{1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "couldn't unmarshal scalar: ")
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeSignature struct {
	crypto.Signature
}
