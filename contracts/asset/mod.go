// Package asset implements the assets that a machine can hold: one-of-one
// assets, collections and the editions printed from a collection.
//
// Each asset is stored as the data of an account owned by the asset program.
// The registry is the primitive used by the other contracts, while the native
// contract lets the users create and transfer assets.
package asset

import (
	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean/core/account"
	"golang.org/x/xerrors"
)

// ContractName is the name of the contract.
const ContractName = "go.dedis.ch/jellybean.Asset"

// ProgramID is the owner of the asset accounts.
var ProgramID = account.ProgramID(ContractName)

// Registry provides the operations on the assets of a snapshot.
type Registry struct {
	accounts account.Store
}

// NewRegistry returns a registry using the accounts.
func NewRegistry(accounts account.Store) Registry {
	return Registry{
		accounts: accounts,
	}
}

// Get returns the asset at the address.
func (r Registry) Get(addr solana.PublicKey) (Asset, error) {
	acc, found, err := r.accounts.Get(addr)
	if err != nil {
		return Asset{}, err
	}

	if !found || !acc.Owner.Equals(ProgramID) {
		return Asset{}, xerrors.Errorf("%s: %w", addr, ErrNotFound)
	}

	a, err := Decode(acc.Data)
	if err != nil {
		return Asset{}, xerrors.Errorf("asset %s: %v", addr, err)
	}

	return a, nil
}

// Create stores a new asset at the address, which must be unused. The payer
// funds the storage.
func (r Registry) Create(addr solana.PublicKey, a Asset, payer solana.PublicKey) error {
	data, err := a.Encode()
	if err != nil {
		return err
	}

	err = r.accounts.Create(addr, ProgramID, len(data), payer)
	if err != nil {
		return xerrors.Errorf("failed to allocate: %w", err)
	}

	err = r.accounts.SetData(addr, data)
	if err != nil {
		return xerrors.Errorf("failed to write: %v", err)
	}

	return nil
}

// Transfer changes the owner of an asset or an edition.
func (r Registry) Transfer(addr, from, to solana.PublicKey) error {
	a, err := r.Get(addr)
	if err != nil {
		return err
	}

	if a.Kind == KindCollection {
		return xerrors.Errorf("cannot transfer a %s: %w", a.Kind, ErrWrongKind)
	}

	if !a.Owner.Equals(from) {
		return xerrors.Errorf("%s does not own %s: %w", from, addr, ErrNotOwner)
	}

	a.Owner = to

	return r.save(addr, a)
}

// SetUpdateAuthority hands the authority of an asset to another address.
func (r Registry) SetUpdateAuthority(addr, current, next solana.PublicKey) error {
	a, err := r.Get(addr)
	if err != nil {
		return err
	}

	if !a.UpdateAuthority.Equals(current) {
		return xerrors.Errorf("%s is not the authority of %s: %w", current, addr, ErrNotAuthority)
	}

	a.UpdateAuthority = next

	return r.save(addr, a)
}

// Print creates the edition with the given number of the collection at the
// target address, owned by the owner. The authority must be the update
// authority of the collection and the payer funds the edition storage.
func (r Registry) Print(collection, authority, target, owner solana.PublicKey,
	number uint32, payer solana.PublicKey) (Asset, error) {

	master, err := r.Get(collection)
	if err != nil {
		return Asset{}, err
	}

	if master.Kind != KindCollection {
		return Asset{}, xerrors.Errorf("cannot print a %s: %w", master.Kind, ErrWrongKind)
	}

	if !master.MasterEdition {
		return Asset{}, xerrors.Errorf("%s: %w", collection, ErrNoMasterEdition)
	}

	if !master.UpdateAuthority.Equals(authority) {
		return Asset{}, xerrors.Errorf("%s: %w", authority, ErrNotAuthority)
	}

	if master.MaxSupply > 0 && master.CurrentSize >= master.MaxSupply {
		return Asset{}, xerrors.Errorf("%d/%d: %w", master.CurrentSize, master.MaxSupply, ErrSupplyExhausted)
	}

	if number == 0 || (master.MaxSupply > 0 && uint64(number) > master.MaxSupply) {
		return Asset{}, xerrors.Errorf("%d: %w", number, ErrInvalidNumber)
	}

	edition := Asset{
		Kind:            KindEdition,
		Owner:           owner,
		UpdateAuthority: authority,
		Parent:          collection,
		Number:          number,
	}

	err = r.Create(target, edition, payer)
	if err != nil {
		return Asset{}, xerrors.Errorf("edition: %w", err)
	}

	master.CurrentSize++

	err = r.save(collection, master)
	if err != nil {
		return Asset{}, err
	}

	return edition, nil
}

func (r Registry) save(addr solana.PublicKey, a Asset) error {
	data, err := a.Encode()
	if err != nil {
		return err
	}

	acc, _, err := r.accounts.Get(addr)
	if err != nil {
		return err
	}

	if len(data) != len(acc.Data) {
		return xerrors.Errorf("asset %s changed size", addr)
	}

	return r.accounts.SetData(addr, data)
}
