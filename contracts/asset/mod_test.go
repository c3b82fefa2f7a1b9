package asset

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestAsset_Encode(t *testing.T) {
	a := Asset{Kind: KindEdition, Number: 3}

	data, err := a.Encode()
	require.NoError(t, err)
	require.Len(t, data, EditionSize)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, a, decoded)

	a.Uri = string(make([]byte, MaxUriLength+1))
	_, err = a.Encode()
	require.EqualError(t, err, "uri of 201 bytes exceeds 200")

	_, err = Decode([]byte{9})
	require.Error(t, err)

	_, err = Decode(make([]byte, EditionSize))
	require.EqualError(t, err, "invalid kind 0")
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "asset", KindAsset.String())
	require.Equal(t, "collection", KindCollection.String())
	require.Equal(t, "edition", KindEdition.String())
	require.Equal(t, "unknown", Kind(0).String())
}

func TestRegistry_Create_Get(t *testing.T) {
	accounts := account.NewStore(fake.NewSnapshot(), account.DefaultRent)
	registry := NewRegistry(accounts)

	owner := newAddress(1)
	addr := newAddress(2)

	require.NoError(t, accounts.Credit(owner, 10_000_000))

	a := Asset{Kind: KindAsset, Owner: owner, UpdateAuthority: owner, Uri: "https://example.com/a.json"}
	require.NoError(t, registry.Create(addr, a, owner))

	stored, err := registry.Get(addr)
	require.NoError(t, err)
	require.Equal(t, a, stored)

	_, err = registry.Get(newAddress(3))
	require.True(t, xerrors.Is(err, ErrNotFound))

	// The owner account is a plain account and not an asset.
	_, err = registry.Get(owner)
	require.True(t, xerrors.Is(err, ErrNotFound))

	err = registry.Create(addr, a, owner)
	require.True(t, xerrors.Is(err, account.ErrAccountInUse))

	err = registry.Create(newAddress(4), a, newAddress(5))
	require.True(t, xerrors.Is(err, account.ErrInsufficientFunds))
	// A funded wallet cannot become an asset.
	require.NoError(t, accounts.Credit(newAddress(6), 1))

	err = registry.Create(newAddress(6), a, owner)
	require.True(t, xerrors.Is(err, account.ErrAccountInUse))
}

func TestRegistry_Transfer(t *testing.T) {
	registry, owner := makeRegistry(t)

	addr := newAddress(2)
	require.NoError(t, registry.Create(addr, Asset{Kind: KindAsset, Owner: owner}, owner))

	other := newAddress(3)

	err := registry.Transfer(addr, other, owner)
	require.True(t, xerrors.Is(err, ErrNotOwner))

	require.NoError(t, registry.Transfer(addr, owner, other))

	a, err := registry.Get(addr)
	require.NoError(t, err)
	require.Equal(t, other, a.Owner)

	coll := newAddress(4)
	require.NoError(t, registry.Create(coll, Asset{Kind: KindCollection, Owner: owner}, owner))

	err = registry.Transfer(coll, owner, other)
	require.True(t, xerrors.Is(err, ErrWrongKind))
}

func TestRegistry_SetUpdateAuthority(t *testing.T) {
	registry, owner := makeRegistry(t)

	coll := newAddress(2)
	require.NoError(t, registry.Create(coll, Asset{Kind: KindCollection, UpdateAuthority: owner}, owner))

	vault := newAddress(3)

	err := registry.SetUpdateAuthority(coll, vault, owner)
	require.True(t, xerrors.Is(err, ErrNotAuthority))

	require.NoError(t, registry.SetUpdateAuthority(coll, owner, vault))

	a, err := registry.Get(coll)
	require.NoError(t, err)
	require.Equal(t, vault, a.UpdateAuthority)
}

func TestRegistry_Print(t *testing.T) {
	registry, owner := makeRegistry(t)

	coll := newAddress(2)
	require.NoError(t, registry.Create(coll, Asset{
		Kind:            KindCollection,
		UpdateAuthority: owner,
		MasterEdition:   true,
		MaxSupply:       2,
	}, owner))

	buyer := newAddress(3)

	edition, err := registry.Print(coll, owner, newAddress(10), buyer, 1, owner)
	require.NoError(t, err)
	require.Equal(t, KindEdition, edition.Kind)
	require.Equal(t, buyer, edition.Owner)
	require.Equal(t, coll, edition.Parent)
	require.Equal(t, uint32(1), edition.Number)

	stored, err := registry.Get(newAddress(10))
	require.NoError(t, err)
	require.Equal(t, edition, stored)

	_, err = registry.Print(coll, buyer, newAddress(11), buyer, 2, owner)
	require.True(t, xerrors.Is(err, ErrNotAuthority))

	_, err = registry.Print(coll, owner, newAddress(11), buyer, 3, owner)
	require.True(t, xerrors.Is(err, ErrInvalidNumber))

	_, err = registry.Print(coll, owner, newAddress(10), buyer, 2, owner)
	require.True(t, xerrors.Is(err, account.ErrAccountInUse))

	_, err = registry.Print(coll, owner, newAddress(11), buyer, 2, owner)
	require.NoError(t, err)

	_, err = registry.Print(coll, owner, newAddress(12), buyer, 2, owner)
	require.True(t, xerrors.Is(err, ErrSupplyExhausted))

	plain := newAddress(4)
	require.NoError(t, registry.Create(plain, Asset{Kind: KindCollection, UpdateAuthority: owner}, owner))

	_, err = registry.Print(plain, owner, newAddress(13), buyer, 1, owner)
	require.True(t, xerrors.Is(err, ErrNoMasterEdition))

	one := newAddress(5)
	require.NoError(t, registry.Create(one, Asset{Kind: KindAsset, Owner: owner}, owner))

	_, err = registry.Print(one, owner, newAddress(13), buyer, 1, owner)
	require.True(t, xerrors.Is(err, ErrWrongKind))
}

func TestEditionRent(t *testing.T) {
	require.Equal(t, uint64(128+EditionSize)*6960, EditionRent(account.DefaultRent))
}

// -----------------------------------------------------------------------------
// Utility functions

func newAddress(seed byte) solana.PublicKey {
	var addr solana.PublicKey
	addr[0] = seed
	addr[31] = 0xaa

	return addr
}

func makeRegistry(t *testing.T) (Registry, solana.PublicKey) {
	accounts := account.NewStore(fake.NewSnapshot(), account.DefaultRent)
	owner := newAddress(1)

	require.NoError(t, accounts.Credit(owner, 100_000_000))

	return NewRegistry(accounts), owner
}
