// Package machine implements the native contract of the jellybean machines.
//
// A machine holds a pool of items, either one-of-one assets or collections
// printing a limited number of editions. Once the sale is live, the mint
// authority draws items at random for the buyers, weighted by the remaining
// supply of each item. A drawn item is recorded as a prize of the buyer until
// it is claimed, which transfers the asset or prints the edition.
//
// The records are stored in accounts owned by the program:
//   - the machine, at an address chosen at initialization;
//   - the prizes of a buyer, at an address derived from the machine and the
//     buyer;
//   - the vault, derived from the machine, holds the assets, the authority of
//     the collections and the escrow funding the prints.
//
// The signer of a transaction is the payer of any storage it allocates and
// receives any storage it frees.
package machine

import (
	"encoding/binary"

	"github.com/rs/zerolog"
	"go.dedis.ch/jellybean"
	"go.dedis.ch/jellybean/contracts/machine/types"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/core/execution"
	"go.dedis.ch/jellybean/core/execution/native"
	"go.dedis.ch/jellybean/core/store"
	"golang.org/x/xerrors"
)

const (
	// ContractName is the name of the contract.
	ContractName = types.ProgramName

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "machine:command"

	// AddressArg is the argument's name for the address of the machine.
	AddressArg = "machine:address"

	// SettingsArg is the argument's name for the encoded settings of the
	// machine.
	SettingsArg = "machine:settings"

	// MintAuthorityArg is the argument's name for the mint authority.
	MintAuthorityArg = "machine:mint_authority"

	// AssetArg is the argument's name for the asset or the collection of an
	// item.
	AssetArg = "machine:asset"

	// IndexArg is the argument's name for the index of an item, encoded as a
	// little-endian uint16.
	IndexArg = "machine:index"

	// BuyerArg is the argument's name for the buyer of a draw or a claim.
	BuyerArg = "machine:buyer"

	// PrintTargetArg is the argument's name for the address of the edition
	// printed by a claim.
	PrintTargetArg = "machine:print_target"
)

// Command defines a type of command for the machine contract.
type Command string

const (
	// CmdInitialize creates a machine.
	CmdInitialize Command = "INITIALIZE"

	// CmdAddItem adds an asset or a collection to the pool.
	CmdAddItem Command = "ADD_ITEM"

	// CmdRemoveItem removes an item from the pool.
	CmdRemoveItem Command = "REMOVE_ITEM"

	// CmdStartSale opens the draws.
	CmdStartSale Command = "START_SALE"

	// CmdEndSale closes the draws.
	CmdEndSale Command = "END_SALE"

	// CmdDraw draws an item for a buyer.
	CmdDraw Command = "DRAW"

	// CmdClaim claims a prize of a buyer.
	CmdClaim Command = "CLAIM"

	// CmdUpdateSettings replaces the settings of the machine.
	CmdUpdateSettings Command = "UPDATE_SETTINGS"

	// CmdSetMintAuthority replaces the mint authority.
	CmdSetMintAuthority Command = "SET_MINT_AUTHORITY"

	// CmdWithdraw closes the machine.
	CmdWithdraw Command = "WITHDRAW"
)

// Contract is the native contract of the machines.
//
// - implements native.Contract
type Contract struct {
	rent   account.Rent
	guard  Guard
	logger zerolog.Logger
}

// Option is the type of option to create a contract.
type Option func(*Contract)

// WithGuard sets the guard that authorizes the draws. By default every draw
// of the mint authority is authorized.
func WithGuard(g Guard) Option {
	return func(c *Contract) {
		c.guard = g
	}
}

// WithRent sets the rent of the accounts.
func WithRent(rent account.Rent) Option {
	return func(c *Contract) {
		c.rent = rent
	}
}

// NewContract creates a new machine contract.
func NewContract(opts ...Option) Contract {
	c := Contract{
		rent:   account.DefaultRent,
		guard:  openGuard{},
		logger: jellybean.Logger.With().Str("contract", "machine").Logger(),
	}

	for _, opt := range opts {
		opt(&c)
	}

	return c
}

// RegisterContract registers the machine contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Execute implements native.Contract. It runs the appropriate command on the
// machine of the transaction. The error of a failed command wraps its code.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	call, err := c.newCall(snap, step)
	if err != nil {
		return err
	}

	var fn func() error

	switch Command(cmd) {
	case CmdInitialize:
		fn = call.initialize
	case CmdAddItem:
		fn = call.addItem
	case CmdRemoveItem:
		fn = call.removeItem
	case CmdStartSale:
		fn = call.startSale
	case CmdEndSale:
		fn = call.endSale
	case CmdDraw:
		fn = call.draw
	case CmdClaim:
		fn = call.claim
	case CmdUpdateSettings:
		fn = call.updateSettings
	case CmdSetMintAuthority:
		fn = call.setMintAuthority
	case CmdWithdraw:
		fn = call.withdraw
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	err = fn()
	if err != nil {
		return xerrors.Errorf("failed to %s: %w", cmd, err)
	}

	return nil
}

// EncodeIndex returns the argument of an item index.
func EncodeIndex(index uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, index)

	return buf
}
