package controller

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean/cli/node"
	"go.dedis.ch/jellybean/contracts/asset"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/core/execution/native"
	"go.dedis.ch/jellybean/core/ordering"
	ledger "go.dedis.ch/jellybean/core/ordering/serial/controller"
	"go.dedis.ch/jellybean/core/store"
	"go.dedis.ch/jellybean/core/txn"
	"golang.org/x/xerrors"
)

// createAction submits the creation of an asset or a collection.
//
// - implements node.ActionTemplate
type createAction struct {
	command asset.Command
}

// Execute implements node.ActionTemplate. It prints the address of the new
// asset.
func (a createAction) Execute(ctx node.Context) error {
	addr := solana.NewWallet().PublicKey()

	if ctx.Flags.String(addressFlag) != "" {
		var err error
		addr, err = account.ParseAddress(ctx.Flags.String(addressFlag))
		if err != nil {
			return xerrors.Errorf("invalid address: %v", err)
		}
	}

	args := []txn.Arg{
		{Key: native.ContractArg, Value: []byte(asset.ContractName)},
		{Key: asset.CmdArg, Value: []byte(a.command)},
		{Key: asset.AddressArg, Value: addr[:]},
		{Key: asset.UriArg, Value: []byte(ctx.Flags.String(uriFlag))},
	}

	supply := ctx.Flags.String(maxSupplyFlag)
	if a.command == asset.CmdCreateCollection && supply != "" {
		_, err := strconv.ParseUint(supply, 10, 64)
		if err != nil {
			return xerrors.Errorf("invalid max supply: %v", err)
		}

		args = append(args, txn.Arg{Key: asset.MaxSupplyArg, Value: []byte(supply)})
	}

	err := ledger.Submit(ctx, args...)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "asset %s\n", addr)

	return nil
}

// transferAction submits the transfer of an asset.
//
// - implements node.ActionTemplate
type transferAction struct{}

// Execute implements node.ActionTemplate.
func (transferAction) Execute(ctx node.Context) error {
	addr, err := account.ParseAddress(ctx.Flags.String(addressFlag))
	if err != nil {
		return xerrors.Errorf("invalid address: %v", err)
	}

	to, err := account.ParseAddress(ctx.Flags.String(toFlag))
	if err != nil {
		return xerrors.Errorf("invalid recipient: %v", err)
	}

	return ledger.Submit(ctx,
		txn.Arg{Key: native.ContractArg, Value: []byte(asset.ContractName)},
		txn.Arg{Key: asset.CmdArg, Value: []byte(asset.CmdTransfer)},
		txn.Arg{Key: asset.AddressArg, Value: addr[:]},
		txn.Arg{Key: asset.ToArg, Value: to[:]},
	)
}

// showAction prints an asset from the last state.
//
// - implements node.ActionTemplate
type showAction struct{}

// Execute implements node.ActionTemplate.
func (showAction) Execute(ctx node.Context) error {
	addr, err := account.ParseAddress(ctx.Flags.String(addressFlag))
	if err != nil {
		return xerrors.Errorf("invalid address: %v", err)
	}

	var srvc ordering.Service
	err = ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var a asset.Asset

	err = srvc.View(func(r store.Readable) error {
		a, err = asset.NewRegistry(account.NewReader(r)).Get(addr)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read asset: %v", err)
	}

	fmt.Fprintf(ctx.Out, "kind: %s\nowner: %s\nupdate authority: %s\nuri: %s\n",
		a.Kind, a.Owner, a.UpdateAuthority, a.Uri)

	switch a.Kind {
	case asset.KindCollection:
		if a.MasterEdition {
			fmt.Fprintf(ctx.Out, "editions: %d/%d\n", a.CurrentSize, a.MaxSupply)
		}
	case asset.KindEdition:
		fmt.Fprintf(ctx.Out, "edition: %d of %s\n", a.Number, a.Parent)
	}

	return nil
}
