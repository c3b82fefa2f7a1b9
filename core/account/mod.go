// Package account implements the accounts of the ledger and the primitives of
// the system program: lamport transfers, allocation of data funded by a payer,
// resizing and closing.
//
// An account holds a balance, an owner program and the data of that program.
// Any account holding data must keep a balance of at least the minimum given
// by the rent for its size. The payer of an allocation funds that minimum and
// receives the excess back when the data shrinks.
package account

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"go.dedis.ch/jellybean/core/access"
	"go.dedis.ch/jellybean/core/store"
	"go.dedis.ch/jellybean/core/store/mem"
	"go.dedis.ch/jellybean/core/store/prefixed"
	"go.dedis.ch/jellybean/crypto"
	"golang.org/x/xerrors"
)

const prefix = "accounts"

// MaxDataSize is the maximum size of the data of an account.
const MaxDataSize = 10 * 1024 * 1024

var (
	// ErrSelfFunding is returned when an account is its own payer.
	ErrSelfFunding = xerrors.New("account cannot fund itself")

	// ErrInsufficientFunds is returned when an account cannot pay an amount.
	ErrInsufficientFunds = xerrors.New("insufficient funds")

	// ErrAccountInUse is returned when allocating an account that already
	// holds data.
	ErrAccountInUse = xerrors.New("account already in use")

	// ErrAccountNotFound is returned when an account does not exist.
	ErrAccountNotFound = xerrors.New("account not found")

	// ErrOverflow is returned when a balance would overflow.
	ErrOverflow = xerrors.New("balance overflow")

	// ErrDataTooLarge is returned when the data exceeds MaxDataSize.
	ErrDataTooLarge = xerrors.New("account data too large")
)

// SystemProgram is the owner of the accounts that are not held by a contract.
var SystemProgram = solana.PublicKey{}

// Account is the record stored at an address.
type Account struct {
	Lamports uint64
	Owner    solana.PublicKey
	Data     []byte
}

// IsEmpty returns true when the account could be allocated.
func (a Account) IsEmpty() bool {
	return a.Owner.Equals(SystemProgram) && len(a.Data) == 0
}

// ProgramID returns the address of the program with the given name.
func ProgramID(name string) solana.PublicKey {
	return solana.PublicKeyFromBytes(crypto.Digest(crypto.NewSha256Factory(), []byte(name)))
}

// AddressOf returns the address of an identity, which is its public key.
func AddressOf(ident access.Identity) (solana.PublicKey, error) {
	data, err := ident.MarshalBinary()
	if err != nil {
		return solana.PublicKey{}, xerrors.Errorf("failed to marshal identity: %v", err)
	}

	if len(data) != solana.PublicKeyLength {
		return solana.PublicKey{}, xerrors.Errorf("invalid identity length %d", len(data))
	}

	return solana.PublicKeyFromBytes(data), nil
}

// ParseAddress decodes a base58 address.
func ParseAddress(text string) (solana.PublicKey, error) {
	data, err := base58.Decode(text)
	if err != nil {
		return solana.PublicKey{}, xerrors.Errorf("invalid base58: %v", err)
	}

	if len(data) != solana.PublicKeyLength {
		return solana.PublicKey{}, xerrors.Errorf("invalid address length %d", len(data))
	}

	return solana.PublicKeyFromBytes(data), nil
}

// Rent defines the minimum balance an account must hold for its size.
type Rent struct {
	LamportsPerByte uint64 `yaml:"lamports_per_byte"`
}

// StorageOverhead is the number of bytes charged for any account on top of
// its data.
const StorageOverhead = 128

// DefaultRent is the rent applied when none is configured.
var DefaultRent = Rent{LamportsPerByte: 6960}

// MinimumBalance returns the minimum balance of an account with the given data
// size.
func (r Rent) MinimumBalance(size int) uint64 {
	return (StorageOverhead + uint64(size)) * r.LamportsPerByte
}

// Store provides the system primitives over a snapshot.
type Store struct {
	snap store.Snapshot
	rent Rent
}

// NewStore returns a store of accounts using the snapshot.
func NewStore(snap store.Snapshot, rent Rent) Store {
	return Store{
		snap: prefixed.NewSnapshot(prefix, snap),
		rent: rent,
	}
}

// NewReader returns a store of accounts over a readable state. The writes are
// staged in memory and never reach the state.
func NewReader(r store.Readable) Store {
	return NewStore(mem.NewTrieOver(r), DefaultRent)
}

// Rent returns the rent applied by the store.
func (s Store) Rent() Rent {
	return s.rent
}

// Get returns the account at the address and whether it exists.
func (s Store) Get(addr solana.PublicKey) (Account, bool, error) {
	var acc Account

	data, err := s.snap.Get(addr[:])
	if err != nil {
		return acc, false, xerrors.Errorf("failed to read account %s: %v", addr, err)
	}

	if len(data) == 0 {
		return acc, false, nil
	}

	err = bin.NewBorshDecoder(data).Decode(&acc)
	if err != nil {
		return acc, false, xerrors.Errorf("failed to decode account %s: %v", addr, err)
	}

	return acc, true, nil
}

// Put stores the account at the address. An account without balance nor data
// is removed.
func (s Store) Put(addr solana.PublicKey, acc Account) error {
	if acc.Lamports == 0 && acc.IsEmpty() {
		err := s.snap.Delete(addr[:])
		if err != nil {
			return xerrors.Errorf("failed to delete account %s: %v", addr, err)
		}

		return nil
	}

	buf := new(bytes.Buffer)

	err := bin.NewBorshEncoder(buf).Encode(acc)
	if err != nil {
		return xerrors.Errorf("failed to encode account %s: %v", addr, err)
	}

	err = s.snap.Set(addr[:], buf.Bytes())
	if err != nil {
		return xerrors.Errorf("failed to write account %s: %v", addr, err)
	}

	return nil
}

// Balance returns the balance of the address, which is zero for an unknown
// account.
func (s Store) Balance(addr solana.PublicKey) (uint64, error) {
	acc, _, err := s.Get(addr)
	if err != nil {
		return 0, err
	}

	return acc.Lamports, nil
}

// Credit adds lamports to the address and creates the account if needed.
func (s Store) Credit(addr solana.PublicKey, amount uint64) error {
	acc, _, err := s.Get(addr)
	if err != nil {
		return err
	}

	if acc.Lamports+amount < acc.Lamports {
		return xerrors.Errorf("%s: %w", addr, ErrOverflow)
	}

	acc.Lamports += amount

	return s.Put(addr, acc)
}

// Debit removes lamports from the address. An account holding data cannot go
// below its minimum balance.
func (s Store) Debit(addr solana.PublicKey, amount uint64) error {
	acc, _, err := s.Get(addr)
	if err != nil {
		return err
	}

	floor := uint64(0)
	if len(acc.Data) > 0 {
		floor = s.rent.MinimumBalance(len(acc.Data))
	}

	if acc.Lamports < amount || acc.Lamports-amount < floor {
		return xerrors.Errorf("%s has %d, needs %d: %w",
			addr, acc.Lamports, amount+floor, ErrInsufficientFunds)
	}

	acc.Lamports -= amount

	return s.Put(addr, acc)
}

// Transfer moves lamports from one address to another.
func (s Store) Transfer(from, to solana.PublicKey, amount uint64) error {
	if amount == 0 || from.Equals(to) {
		return nil
	}

	err := s.Debit(from, amount)
	if err != nil {
		return xerrors.Errorf("failed to debit: %w", err)
	}

	err = s.Credit(to, amount)
	if err != nil {
		return xerrors.Errorf("failed to credit: %w", err)
	}

	return nil
}

// Create creates the data of an account owned by the program at an address
// chosen by the caller. The address must not hold anything, not even
// lamports, so that a funded wallet cannot be taken over by a program. The
// payer funds the minimum balance for the size.
func (s Store) Create(addr, owner solana.PublicKey, size int, payer solana.PublicKey) error {
	acc, found, err := s.Get(addr)
	if err != nil {
		return err
	}

	if found && (acc.Lamports > 0 || !acc.IsEmpty()) {
		return xerrors.Errorf("%s: %w", addr, ErrAccountInUse)
	}

	return s.Allocate(addr, owner, size, payer)
}

// Allocate creates the data of an account owned by the program. The payer
// funds the minimum balance for the size, minus what the address already
// holds. It is meant for addresses derived from the program, which anyone
// can fund beforehand, and Create must be used for any other address.
func (s Store) Allocate(addr, owner solana.PublicKey, size int, payer solana.PublicKey) error {
	if size > MaxDataSize {
		return xerrors.Errorf("%d bytes: %w", size, ErrDataTooLarge)
	}

	if payer.Equals(addr) {
		return xerrors.Errorf("%s: %w", addr, ErrSelfFunding)
	}

	acc, _, err := s.Get(addr)
	if err != nil {
		return err
	}

	if !acc.IsEmpty() {
		return xerrors.Errorf("%s: %w", addr, ErrAccountInUse)
	}

	minimum := s.rent.MinimumBalance(size)
	if acc.Lamports < minimum {
		err = s.Transfer(payer, addr, minimum-acc.Lamports)
		if err != nil {
			return xerrors.Errorf("payer cannot fund allocation: %w", err)
		}

		acc.Lamports = minimum
	}

	acc.Owner = owner
	acc.Data = make([]byte, size)

	return s.Put(addr, acc)
}

// Resize changes the size of the data of the account. A growth is funded by
// the payer and the excess of a shrink is refunded to the payer. It returns
// the resized account.
func (s Store) Resize(addr solana.PublicKey, size int, payer solana.PublicKey) (Account, error) {
	if size > MaxDataSize {
		return Account{}, xerrors.Errorf("%d bytes: %w", size, ErrDataTooLarge)
	}

	if payer.Equals(addr) {
		return Account{}, xerrors.Errorf("%s: %w", addr, ErrSelfFunding)
	}

	acc, found, err := s.Get(addr)
	if err != nil {
		return acc, err
	}

	if !found {
		return acc, xerrors.Errorf("%s: %w", addr, ErrAccountNotFound)
	}

	minimum := s.rent.MinimumBalance(size)

	switch {
	case acc.Lamports < minimum:
		err = s.Transfer(payer, addr, minimum-acc.Lamports)
		if err != nil {
			return acc, xerrors.Errorf("payer cannot fund resize: %w", err)
		}

		acc.Lamports = minimum
	case acc.Lamports > minimum && size < len(acc.Data):
		err = s.Credit(payer, acc.Lamports-minimum)
		if err != nil {
			return acc, xerrors.Errorf("failed to refund: %w", err)
		}

		acc.Lamports = minimum
	}

	data := make([]byte, size)
	copy(data, acc.Data)
	acc.Data = data

	err = s.Put(addr, acc)
	if err != nil {
		return acc, err
	}

	return acc, nil
}

// Close deletes the account and moves its whole balance to the destination.
// It returns the amount moved.
func (s Store) Close(addr, dest solana.PublicKey) (uint64, error) {
	acc, found, err := s.Get(addr)
	if err != nil {
		return 0, err
	}

	if !found {
		return 0, xerrors.Errorf("%s: %w", addr, ErrAccountNotFound)
	}

	err = s.Put(addr, Account{})
	if err != nil {
		return 0, err
	}

	err = s.Credit(dest, acc.Lamports)
	if err != nil {
		return 0, xerrors.Errorf("failed to credit: %w", err)
	}

	return acc.Lamports, nil
}

// SetData replaces the data of an existing account. The size must not change.
func (s Store) SetData(addr solana.PublicKey, data []byte) error {
	acc, found, err := s.Get(addr)
	if err != nil {
		return err
	}

	if !found {
		return xerrors.Errorf("%s: %w", addr, ErrAccountNotFound)
	}

	if len(data) != len(acc.Data) {
		return xerrors.Errorf("data of %d bytes for an account of %d bytes",
			len(data), len(acc.Data))
	}

	acc.Data = data

	return s.Put(addr, acc)
}
