package account

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/jellybean/crypto/ed25519"
	"go.dedis.ch/jellybean/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestRent_MinimumBalance(t *testing.T) {
	rent := Rent{LamportsPerByte: 10}

	require.Equal(t, uint64(StorageOverhead*10), rent.MinimumBalance(0))
	require.Equal(t, uint64((StorageOverhead+5)*10), rent.MinimumBalance(5))
}

func TestAddressOf(t *testing.T) {
	signer := ed25519.NewSigner()

	addr, err := AddressOf(signer.GetPublicKey())
	require.NoError(t, err)

	buffer, err := signer.GetPublicKey().MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, buffer, addr[:])
}

func TestParseAddress(t *testing.T) {
	addr := newAddress(1)

	parsed, err := ParseAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr, parsed)

	_, err = ParseAddress("0OIl")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid base58: ")

	_, err = ParseAddress(base58.Encode([]byte{1, 2}))
	require.EqualError(t, err, "invalid address length 2")
}

func TestProgramID(t *testing.T) {
	require.Equal(t, ProgramID("a"), ProgramID("a"))
	require.NotEqual(t, ProgramID("a"), ProgramID("b"))
}

func TestStore_CreditDebit(t *testing.T) {
	s := NewStore(fake.NewSnapshot(), Rent{LamportsPerByte: 1})
	addr := newAddress(1)

	balance, err := s.Balance(addr)
	require.NoError(t, err)
	require.Zero(t, balance)

	require.NoError(t, s.Credit(addr, 100))

	balance, err = s.Balance(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(100), balance)

	err = s.Credit(addr, ^uint64(0))
	require.True(t, xerrors.Is(err, ErrOverflow))

	err = s.Debit(addr, 101)
	require.True(t, xerrors.Is(err, ErrInsufficientFunds))

	require.NoError(t, s.Debit(addr, 100))

	_, found, err := s.Get(addr)
	require.NoError(t, err)
	require.False(t, found)
}

func TestStore_Transfer(t *testing.T) {
	s := NewStore(fake.NewSnapshot(), Rent{LamportsPerByte: 1})
	alice, bob := newAddress(1), newAddress(2)

	require.NoError(t, s.Credit(alice, 50))
	require.NoError(t, s.Transfer(alice, bob, 20))

	requireBalance(t, s, alice, 30)
	requireBalance(t, s, bob, 20)

	err := s.Transfer(alice, bob, 31)
	require.True(t, xerrors.Is(err, ErrInsufficientFunds))

	require.NoError(t, s.Transfer(alice, alice, 1000))
	require.NoError(t, s.Transfer(alice, bob, 0))

	s = NewStore(fake.NewBadSnapshot(), Rent{})
	err = s.Transfer(alice, bob, 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to debit: ")
}

func TestStore_Allocate(t *testing.T) {
	rent := Rent{LamportsPerByte: 1}
	s := NewStore(fake.NewSnapshot(), rent)
	payer, addr, owner := newAddress(1), newAddress(2), newAddress(3)

	require.NoError(t, s.Credit(payer, 1000))
	require.NoError(t, s.Credit(addr, 10))

	require.NoError(t, s.Allocate(addr, owner, 8, payer))

	acc, found, err := s.Get(addr)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, owner, acc.Owner)
	require.Len(t, acc.Data, 8)
	require.Equal(t, rent.MinimumBalance(8), acc.Lamports)

	requireBalance(t, s, payer, 1000-(rent.MinimumBalance(8)-10))

	err = s.Allocate(addr, owner, 8, payer)
	require.True(t, xerrors.Is(err, ErrAccountInUse))

	err = s.Allocate(newAddress(4), owner, 8, newAddress(5))
	require.True(t, xerrors.Is(err, ErrInsufficientFunds))

	err = s.Allocate(payer, owner, 8, payer)
	require.True(t, xerrors.Is(err, ErrSelfFunding))

	err = s.Allocate(newAddress(4), owner, MaxDataSize+1, payer)
	require.True(t, xerrors.Is(err, ErrDataTooLarge))
}

func TestStore_Create(t *testing.T) {
	rent := Rent{LamportsPerByte: 1}
	s := NewStore(fake.NewSnapshot(), rent)
	payer, addr, owner := newAddress(1), newAddress(2), newAddress(3)

	require.NoError(t, s.Credit(payer, 1000))

	require.NoError(t, s.Create(addr, owner, 8, payer))

	acc, _, err := s.Get(addr)
	require.NoError(t, err)
	require.Equal(t, owner, acc.Owner)
	require.Equal(t, rent.MinimumBalance(8), acc.Lamports)

	err = s.Create(addr, owner, 8, payer)
	require.True(t, xerrors.Is(err, ErrAccountInUse))

	// A wallet with a balance and no data is in use as well.
	wallet := newAddress(4)
	require.NoError(t, s.Credit(wallet, 1))

	err = s.Create(wallet, owner, 8, payer)
	require.True(t, xerrors.Is(err, ErrAccountInUse))
	requireBalance(t, s, wallet, 1)

	s = NewStore(fake.NewBadSnapshot(), rent)
	err = s.Create(addr, owner, 8, payer)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read account")
}

func TestStore_Resize(t *testing.T) {
	rent := Rent{LamportsPerByte: 1}
	s := NewStore(fake.NewSnapshot(), rent)
	payer, addr, owner := newAddress(1), newAddress(2), newAddress(3)

	require.NoError(t, s.Credit(payer, 10000))
	require.NoError(t, s.Allocate(addr, owner, 8, payer))
	require.NoError(t, s.SetData(addr, []byte{1, 2, 3, 4, 5, 6, 7, 8}))

	acc, err := s.Resize(addr, 16, payer)
	require.NoError(t, err)
	require.Equal(t, rent.MinimumBalance(16), acc.Lamports)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 0, 0, 0, 0, 0, 0, 0, 0}, acc.Data)
	requireBalance(t, s, payer, 10000-rent.MinimumBalance(16))

	other := newAddress(4)

	acc, err = s.Resize(addr, 4, other)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, acc.Data)
	require.Equal(t, rent.MinimumBalance(4), acc.Lamports)
	requireBalance(t, s, other, 12)

	_, err = s.Resize(newAddress(5), 4, payer)
	require.True(t, xerrors.Is(err, ErrAccountNotFound))

	_, err = s.Resize(addr, 1000000, other)
	require.True(t, xerrors.Is(err, ErrInsufficientFunds))

	_, err = s.Resize(addr, 10, addr)
	require.True(t, xerrors.Is(err, ErrSelfFunding))
}

func TestStore_Close(t *testing.T) {
	s := NewStore(fake.NewSnapshot(), Rent{LamportsPerByte: 1})
	payer, addr, dest := newAddress(1), newAddress(2), newAddress(3)

	require.NoError(t, s.Credit(payer, 10000))
	require.NoError(t, s.Allocate(addr, newAddress(9), 8, payer))

	amount, err := s.Close(addr, dest)
	require.NoError(t, err)
	require.Equal(t, uint64(StorageOverhead+8), amount)
	requireBalance(t, s, dest, amount)

	_, found, err := s.Get(addr)
	require.NoError(t, err)
	require.False(t, found)

	_, err = s.Close(addr, dest)
	require.True(t, xerrors.Is(err, ErrAccountNotFound))
}

func TestStore_SetData(t *testing.T) {
	s := NewStore(fake.NewSnapshot(), Rent{LamportsPerByte: 1})
	payer, addr := newAddress(1), newAddress(2)

	require.NoError(t, s.Credit(payer, 10000))
	require.NoError(t, s.Allocate(addr, newAddress(9), 2, payer))

	require.NoError(t, s.SetData(addr, []byte{1, 2}))

	err := s.SetData(addr, []byte{1})
	require.EqualError(t, err, "data of 1 bytes for an account of 2 bytes")

	err = s.SetData(newAddress(3), nil)
	require.True(t, xerrors.Is(err, ErrAccountNotFound))
}

func TestNewReader(t *testing.T) {
	snap := fake.NewSnapshot()
	require.NoError(t, NewStore(snap, DefaultRent).Credit(newAddress(1), 10))

	r := NewReader(snap)
	requireBalance(t, r, newAddress(1), 10)

	require.NoError(t, r.Credit(newAddress(1), 5))
	requireBalance(t, r, newAddress(1), 15)
	requireBalance(t, NewStore(snap, DefaultRent), newAddress(1), 10)
}

func TestStore_BadSnapshot(t *testing.T) {
	s := NewStore(fake.NewBadSnapshot(), Rent{})

	_, _, err := s.Get(newAddress(1))
	require.Error(t, err)
	require.Contains(t, err.Error(), fake.GetError().Error())

	err = s.Put(newAddress(1), Account{Lamports: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to write account")
}

// -----------------------------------------------------------------------------
// Utility functions

func newAddress(seed byte) solana.PublicKey {
	var addr solana.PublicKey
	for i := range addr {
		addr[i] = seed
	}

	return addr
}

func requireBalance(t *testing.T, s Store, addr solana.PublicKey, expected uint64) {
	balance, err := s.Balance(addr)
	require.NoError(t, err)
	require.Equal(t, expected, balance)
}
