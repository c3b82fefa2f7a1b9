package controller

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean/cli/node"
	"go.dedis.ch/jellybean/contracts/bank"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/core/execution/native"
	"go.dedis.ch/jellybean/core/ordering"
	ledger "go.dedis.ch/jellybean/core/ordering/serial/controller"
	"go.dedis.ch/jellybean/core/store"
	"go.dedis.ch/jellybean/core/txn"
	"golang.org/x/xerrors"
)

// transferAction submits an airdrop or a transfer.
//
// - implements node.ActionTemplate
type transferAction struct {
	command bank.Command
}

// Execute implements node.ActionTemplate.
func (a transferAction) Execute(ctx node.Context) error {
	to, err := account.ParseAddress(ctx.Flags.String(toFlag))
	if err != nil {
		return xerrors.Errorf("invalid recipient: %v", err)
	}

	amount := ctx.Flags.String(amountFlag)

	_, err = strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return xerrors.Errorf("invalid amount: %v", err)
	}

	return ledger.Submit(ctx,
		txn.Arg{Key: native.ContractArg, Value: []byte(bank.ContractName)},
		txn.Arg{Key: bank.CmdArg, Value: []byte(a.command)},
		txn.Arg{Key: bank.ToArg, Value: to[:]},
		txn.Arg{Key: bank.AmountArg, Value: []byte(amount)},
	)
}

// balanceAction prints the balance of an account from the last state.
//
// - implements node.ActionTemplate
type balanceAction struct{}

// Execute implements node.ActionTemplate.
func (balanceAction) Execute(ctx node.Context) error {
	addr, err := getAddress(ctx)
	if err != nil {
		return err
	}

	var srvc ordering.Service
	err = ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var lamports uint64

	err = srvc.View(func(r store.Readable) error {
		lamports, err = account.NewReader(r).Balance(addr)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read balance: %v", err)
	}

	fmt.Fprintf(ctx.Out, "%s %d\n", addr, lamports)

	return nil
}

func getAddress(ctx node.Context) (solana.PublicKey, error) {
	text := ctx.Flags.String(addressFlag)
	if text != "" {
		addr, err := account.ParseAddress(text)
		if err != nil {
			return addr, xerrors.Errorf("invalid address: %v", err)
		}

		return addr, nil
	}

	signer, err := ledger.GetSigner(ctx)
	if err != nil {
		return solana.PublicKey{}, xerrors.Errorf("failed to get signer: %v", err)
	}

	return account.AddressOf(signer.GetPublicKey())
}
