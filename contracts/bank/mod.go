// Package bank implements a native contract that moves lamports between
// accounts. A faucet identity can airdrop new lamports so that the users can
// pay for the storage and the fees of the other contracts.
package bank

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/core/execution"
	"go.dedis.ch/jellybean/core/execution/native"
	"go.dedis.ch/jellybean/core/store"
	"golang.org/x/xerrors"
)

// commands defines the commands of the bank contract. This interface helps in
// testing the contract.
type commands interface {
	airdrop(accounts account.Store, step execution.Step) error
	transfer(accounts account.Store, step execution.Step) error
	balance(accounts account.Store, step execution.Step) error
}

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/jellybean.Bank"

	// ToArg is the argument's name in the transaction that contains the
	// address receiving the lamports.
	ToArg = "bank:to"

	// AmountArg is the argument's name in the transaction that contains the
	// decimal amount of lamports.
	AmountArg = "bank:amount"

	// AddressArg is the argument's name of the account to display.
	AddressArg = "bank:address"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "bank:command"
)

// Command defines a type of command for the bank contract
type Command string

const (
	// CmdAirdrop creates lamports out of thin air. Only the faucet can use it.
	CmdAirdrop Command = "AIRDROP"

	// CmdTransfer moves lamports of the signer.
	CmdTransfer Command = "TRANSFER"

	// CmdBalance displays the balance of an account.
	CmdBalance Command = "BALANCE"
)

// RegisterContract registers the bank contract to the given execution service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is a native contract to move lamports.
//
// - implements native.Contract
type Contract struct {
	// faucet is the only address allowed to airdrop.
	faucet solana.PublicKey

	rent account.Rent

	cmd commands

	// printer is the output used by the BALANCE command
	printer io.Writer
}

// NewContract creates a new bank contract.
func NewContract(faucet solana.PublicKey, rent account.Rent) Contract {
	contract := Contract{
		faucet:  faucet,
		rent:    rent,
		printer: infoLog{},
	}

	contract.cmd = bankCommand{Contract: &contract}

	return contract
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	accounts := account.NewStore(snap, c.rent)

	switch Command(cmd) {
	case CmdAirdrop:
		err := c.cmd.airdrop(accounts, step)
		if err != nil {
			return xerrors.Errorf("failed to AIRDROP: %w", err)
		}
	case CmdTransfer:
		err := c.cmd.transfer(accounts, step)
		if err != nil {
			return xerrors.Errorf("failed to TRANSFER: %w", err)
		}
	case CmdBalance:
		err := c.cmd.balance(accounts, step)
		if err != nil {
			return xerrors.Errorf("failed to BALANCE: %w", err)
		}
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	return nil
}

// bankCommand implements the commands of the bank contract
//
// - implements commands
type bankCommand struct {
	*Contract
}

// airdrop implements commands. It performs the AIRDROP command
func (c bankCommand) airdrop(accounts account.Store, step execution.Step) error {
	signer, err := account.AddressOf(step.Current.GetIdentity())
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	if !signer.Equals(c.faucet) {
		return xerrors.Errorf("%s is not the faucet", signer)
	}

	to, amount, err := parseTransfer(step)
	if err != nil {
		return err
	}

	err = accounts.Credit(to, amount)
	if err != nil {
		return err
	}

	jellybean.Logger.Info().
		Str("contract", "bank").
		Stringer("to", to).
		Uint64("amount", amount).
		Msg("airdrop")

	return nil
}

// transfer implements commands. It performs the TRANSFER command
func (c bankCommand) transfer(accounts account.Store, step execution.Step) error {
	signer, err := account.AddressOf(step.Current.GetIdentity())
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	to, amount, err := parseTransfer(step)
	if err != nil {
		return err
	}

	return accounts.Transfer(signer, to, amount)
}

// balance implements commands. It performs the BALANCE command
func (c bankCommand) balance(accounts account.Store, step execution.Step) error {
	addr, err := addressArg(step, AddressArg)
	if err != nil {
		return err
	}

	lamports, err := accounts.Balance(addr)
	if err != nil {
		return xerrors.Errorf("failed to read balance: %v", err)
	}

	fmt.Fprintf(c.printer, "%s=%d", addr, lamports)

	return nil
}

func parseTransfer(step execution.Step) (solana.PublicKey, uint64, error) {
	to, err := addressArg(step, ToArg)
	if err != nil {
		return to, 0, err
	}

	value := step.Current.GetArg(AmountArg)
	if len(value) == 0 {
		return to, 0, xerrors.Errorf("'%s' not found in tx arg", AmountArg)
	}

	amount, err := strconv.ParseUint(string(value), 10, 64)
	if err != nil {
		return to, 0, xerrors.Errorf("invalid amount: %v", err)
	}

	return to, amount, nil
}

func addressArg(step execution.Step, key string) (solana.PublicKey, error) {
	value := step.Current.GetArg(key)
	if len(value) != solana.PublicKeyLength {
		return solana.PublicKey{}, xerrors.Errorf("'%s' not found in tx arg", key)
	}

	return solana.PublicKeyFromBytes(value), nil
}

// infoLog defines an output using zerolog
//
// - implements io.writer
type infoLog struct{}

func (h infoLog) Write(p []byte) (int, error) {
	jellybean.Logger.Info().Str("contract", "bank").Msg(string(p))

	return len(p), nil
}
