package machine

import (
	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean/contracts/machine/types"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/core/store"
	"golang.org/x/xerrors"
)

// View is a read-only access to the records of the machines of a state.
type View struct {
	accounts account.Store
}

// NewView returns a view of the state.
func NewView(r store.Readable) View {
	return View{
		accounts: account.NewReader(r),
	}
}

// Machine returns the machine at the address.
func (v View) Machine(addr solana.PublicKey) (*types.Machine, error) {
	return readMachine(v.accounts, addr)
}

// Prizes returns the unclaimed prizes of the buyer for the machine. A buyer
// without record has an empty list of prizes.
func (v View) Prizes(machine, buyer solana.PublicKey) (*types.UnclaimedPrizes, error) {
	p, _, _, err := readPrizes(v.accounts, machine, buyer)

	return p, err
}

func readMachine(accounts account.Store, addr solana.PublicKey) (*types.Machine, error) {
	acc, found, err := accounts.Get(addr)
	if err != nil {
		return nil, err
	}

	if !found || len(acc.Data) == 0 {
		return nil, xerrors.Errorf("machine %s: %w", addr, types.UninitializedAccount)
	}

	if !acc.Owner.Equals(types.ProgramID) {
		return nil, xerrors.Errorf("machine owned by %s: %w", acc.Owner, types.InvalidOwner)
	}

	m, err := types.DecodeMachine(acc.Data)
	if err != nil {
		return nil, xerrors.Errorf("machine %s: %w", addr, err)
	}

	return m, nil
}

func readPrizes(accounts account.Store, machine, buyer solana.PublicKey) (*types.UnclaimedPrizes, solana.PublicKey, bool, error) {
	addr, err := types.PrizesAddress(machine, buyer)
	if err != nil {
		return nil, addr, false, err
	}

	acc, found, err := accounts.Get(addr)
	if err != nil {
		return nil, addr, false, err
	}

	if !found || len(acc.Data) == 0 {
		p := &types.UnclaimedPrizes{
			Version: types.CurrentVersion,
			Machine: machine,
			Buyer:   buyer,
		}

		return p, addr, false, nil
	}

	if !acc.Owner.Equals(types.ProgramID) {
		return nil, addr, false, xerrors.Errorf("prizes owned by %s: %w", acc.Owner, types.InvalidOwner)
	}

	p, err := types.DecodeUnclaimedPrizes(acc.Data)
	if err != nil {
		return nil, addr, false, xerrors.Errorf("prizes %s: %w", addr, err)
	}

	if !p.Machine.Equals(machine) {
		return nil, addr, false, xerrors.Errorf("prizes of %s: %w", p.Machine, types.InvalidJellybeanMachine)
	}

	if !p.Buyer.Equals(buyer) {
		return nil, addr, false, xerrors.Errorf("prizes of %s: %w", p.Buyer, types.InvalidBuyer)
	}

	return p, addr, true, nil
}
