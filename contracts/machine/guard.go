package machine

import (
	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean/contracts/machine/types"
	"go.dedis.ch/jellybean/core/account"
	"golang.org/x/xerrors"
)

// DrawRequest is the context of a draw given to the guard. The fee
// configuration of the machine is read-only.
type DrawRequest struct {
	Machine     solana.PublicKey
	Buyer       solana.PublicKey
	Payer       solana.PublicKey
	FeeAccounts []types.FeeAccount
	PrintFee    *types.PrintFee
}

// Guard is the interface of the authorization layer invoked before a draw
// mutates the machine. A guard can charge the payer with the accounts store
// and refuses the draw by returning an error.
type Guard interface {
	Authorize(accounts account.Store, req DrawRequest) error
}

// openGuard authorizes every draw.
type openGuard struct{}

func (openGuard) Authorize(account.Store, DrawRequest) error {
	return nil
}

// FeeGuard is a guard that charges a fixed price for every draw. The price is
// split between the fee accounts of the machine according to their basis
// points.
//
// - implements machine.Guard
type FeeGuard struct {
	price uint64
}

// NewFeeGuard returns a guard charging the given price.
func NewFeeGuard(price uint64) FeeGuard {
	return FeeGuard{
		price: price,
	}
}

// Authorize implements machine.Guard. It transfers the shares of the price
// from the payer to the fee accounts.
func (g FeeGuard) Authorize(accounts account.Store, req DrawRequest) error {
	shares := types.SplitFee(g.price, req.FeeAccounts)

	for i, share := range shares {
		err := accounts.Transfer(req.Payer, req.FeeAccounts[i].Address, share)
		if err != nil {
			return xerrors.Errorf("failed to pay fee account %d: %w", i, err)
		}
	}

	return nil
}
