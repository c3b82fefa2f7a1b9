package controller

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean/cli/node"
	"go.dedis.ch/jellybean/contracts/asset"
	"go.dedis.ch/jellybean/contracts/machine"
	"go.dedis.ch/jellybean/contracts/machine/types"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/core/execution/native"
	"go.dedis.ch/jellybean/core/ordering"
	ledger "go.dedis.ch/jellybean/core/ordering/serial/controller"
	"go.dedis.ch/jellybean/core/store"
	"go.dedis.ch/jellybean/core/txn"
	"golang.org/x/xerrors"
)

// initializeAction submits the creation of a machine.
//
// - implements node.ActionTemplate
type initializeAction struct{}

// Execute implements node.ActionTemplate. It prints the address of the new
// machine.
func (initializeAction) Execute(ctx node.Context) error {
	addr := solana.NewWallet().PublicKey()

	if ctx.Flags.String(addressFlag) != "" {
		var err error
		addr, err = account.ParseAddress(ctx.Flags.String(addressFlag))
		if err != nil {
			return xerrors.Errorf("invalid address: %v", err)
		}
	}

	args, err := settingsArgs(ctx, machine.CmdInitialize, addr)
	if err != nil {
		return err
	}

	if ctx.Flags.String(mintAuthorityFlag) != "" {
		authority, err := mintAuthority(ctx)
		if err != nil {
			return err
		}

		args = append(args, txn.Arg{Key: machine.MintAuthorityArg, Value: authority[:]})
	}

	err = ledger.Submit(ctx, args...)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "machine %s\n", addr)

	return nil
}

// updateSettingsAction submits the new settings of a machine.
//
// - implements node.ActionTemplate
type updateSettingsAction struct{}

// Execute implements node.ActionTemplate.
func (updateSettingsAction) Execute(ctx node.Context) error {
	addr, err := machineAddress(ctx)
	if err != nil {
		return err
	}

	args, err := settingsArgs(ctx, machine.CmdUpdateSettings, addr)
	if err != nil {
		return err
	}

	return ledger.Submit(ctx, args...)
}

// commandAction submits a command that only needs the address of the
// machine.
//
// - implements node.ActionTemplate
type commandAction struct {
	command machine.Command
}

// Execute implements node.ActionTemplate.
func (a commandAction) Execute(ctx node.Context) error {
	addr, err := machineAddress(ctx)
	if err != nil {
		return err
	}

	return ledger.Submit(ctx, machineArgs(a.command, addr)...)
}

// addItemAction submits an asset or a collection to the pool of a machine.
//
// - implements node.ActionTemplate
type addItemAction struct{}

// Execute implements node.ActionTemplate.
func (addItemAction) Execute(ctx node.Context) error {
	addr, err := machineAddress(ctx)
	if err != nil {
		return err
	}

	mint, err := account.ParseAddress(ctx.Flags.String(assetFlag))
	if err != nil {
		return xerrors.Errorf("invalid asset: %v", err)
	}

	args := append(machineArgs(machine.CmdAddItem, addr),
		txn.Arg{Key: machine.AssetArg, Value: mint[:]})

	return ledger.Submit(ctx, args...)
}

// removeItemAction submits the removal of an item. The asset of the item is
// read from the machine.
//
// - implements node.ActionTemplate
type removeItemAction struct{}

// Execute implements node.ActionTemplate.
func (removeItemAction) Execute(ctx node.Context) error {
	addr, err := machineAddress(ctx)
	if err != nil {
		return err
	}

	index, err := itemIndex(ctx)
	if err != nil {
		return err
	}

	var item types.Item

	err = view(ctx, func(v machine.View, _ account.Store) error {
		item, err = readItem(v, addr, index)
		return err
	})
	if err != nil {
		return err
	}

	args := append(machineArgs(machine.CmdRemoveItem, addr),
		txn.Arg{Key: machine.IndexArg, Value: machine.EncodeIndex(index)},
		txn.Arg{Key: machine.AssetArg, Value: item.Mint[:]},
	)

	return ledger.Submit(ctx, args...)
}

// setMintAuthorityAction submits the new mint authority of a machine.
//
// - implements node.ActionTemplate
type setMintAuthorityAction struct{}

// Execute implements node.ActionTemplate.
func (setMintAuthorityAction) Execute(ctx node.Context) error {
	addr, err := machineAddress(ctx)
	if err != nil {
		return err
	}

	authority, err := mintAuthority(ctx)
	if err != nil {
		return err
	}

	args := append(machineArgs(machine.CmdSetMintAuthority, addr),
		txn.Arg{Key: machine.MintAuthorityArg, Value: authority[:]})

	return ledger.Submit(ctx, args...)
}

// drawAction submits a draw for a buyer.
//
// - implements node.ActionTemplate
type drawAction struct{}

// Execute implements node.ActionTemplate. It prints the prize that has been
// drawn.
func (drawAction) Execute(ctx node.Context) error {
	addr, err := machineAddress(ctx)
	if err != nil {
		return err
	}

	buyer, err := buyerAddress(ctx)
	if err != nil {
		return err
	}

	args := append(machineArgs(machine.CmdDraw, addr),
		txn.Arg{Key: machine.BuyerArg, Value: buyer[:]})

	err = ledger.Submit(ctx, args...)
	if err != nil {
		return err
	}

	var prizes *types.UnclaimedPrizes

	err = view(ctx, func(v machine.View, _ account.Store) error {
		prizes, err = v.Prizes(addr, buyer)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read prizes: %v", err)
	}

	if len(prizes.Prizes) > 0 {
		prize := prizes.Prizes[len(prizes.Prizes)-1]

		fmt.Fprintf(ctx.Out, "prize: item %d edition %d\n", prize.ItemIndex, prize.EditionNumber)
	}

	return nil
}

// claimAction submits the claim of a prize. The asset of the item is read
// from the machine, and a collection prints the edition at the print target.
//
// - implements node.ActionTemplate
type claimAction struct{}

// Execute implements node.ActionTemplate. It prints the address of the
// claimed asset.
func (claimAction) Execute(ctx node.Context) error {
	addr, err := machineAddress(ctx)
	if err != nil {
		return err
	}

	buyer, err := buyerAddress(ctx)
	if err != nil {
		return err
	}

	index, err := itemIndex(ctx)
	if err != nil {
		return err
	}

	var item types.Item
	var kind asset.Kind

	err = view(ctx, func(v machine.View, accounts account.Store) error {
		item, err = readItem(v, addr, index)
		if err != nil {
			return err
		}

		a, err := asset.NewRegistry(accounts).Get(item.Mint)
		if err != nil {
			return xerrors.Errorf("failed to read asset: %v", err)
		}

		kind = a.Kind

		return nil
	})
	if err != nil {
		return err
	}

	args := append(machineArgs(machine.CmdClaim, addr),
		txn.Arg{Key: machine.BuyerArg, Value: buyer[:]},
		txn.Arg{Key: machine.IndexArg, Value: machine.EncodeIndex(index)},
		txn.Arg{Key: machine.AssetArg, Value: item.Mint[:]},
	)

	claimed := item.Mint

	if kind == asset.KindCollection {
		claimed = solana.NewWallet().PublicKey()

		if ctx.Flags.String(printTargetFlag) != "" {
			claimed, err = account.ParseAddress(ctx.Flags.String(printTargetFlag))
			if err != nil {
				return xerrors.Errorf("invalid print target: %v", err)
			}
		}

		args = append(args, txn.Arg{Key: machine.PrintTargetArg, Value: claimed[:]})
	}

	err = ledger.Submit(ctx, args...)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "asset %s\n", claimed)

	return nil
}

// showAction prints a machine, or the prizes of a buyer, as JSON.
//
// - implements node.ActionTemplate
type showAction struct{}

// Execute implements node.ActionTemplate.
func (showAction) Execute(ctx node.Context) error {
	addr, err := machineAddress(ctx)
	if err != nil {
		return err
	}

	var buyer *solana.PublicKey

	if ctx.Flags.String(buyerFlag) != "" {
		b, err := account.ParseAddress(ctx.Flags.String(buyerFlag))
		if err != nil {
			return xerrors.Errorf("invalid buyer: %v", err)
		}

		buyer = &b
	}

	var record interface{}

	err = view(ctx, func(v machine.View, _ account.Store) error {
		if buyer != nil {
			record, err = v.Prizes(addr, *buyer)
		} else {
			record, err = v.Machine(addr)
		}

		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read machine: %v", err)
	}

	enc := json.NewEncoder(ctx.Out)
	enc.SetIndent("", "  ")

	err = enc.Encode(record)
	if err != nil {
		return xerrors.Errorf("failed to encode: %v", err)
	}

	return nil
}

func machineArgs(cmd machine.Command, addr solana.PublicKey) []txn.Arg {
	return []txn.Arg{
		{Key: native.ContractArg, Value: []byte(machine.ContractName)},
		{Key: machine.CmdArg, Value: []byte(cmd)},
		{Key: machine.AddressArg, Value: addr[:]},
	}
}

func settingsArgs(ctx node.Context, cmd machine.Command, addr solana.PublicKey) ([]txn.Arg, error) {
	settings, err := parseSettings(ctx.Flags)
	if err != nil {
		return nil, xerrors.Errorf("invalid settings: %v", err)
	}

	data, err := settings.Encode()
	if err != nil {
		return nil, xerrors.Errorf("failed to encode settings: %v", err)
	}

	args := append(machineArgs(cmd, addr), txn.Arg{Key: machine.SettingsArg, Value: data})

	return args, nil
}

// mintAuthority reads the mint authority flag, where the keyword "guard" hands
// the draws over to the guard of the node.
func mintAuthority(ctx node.Context) (solana.PublicKey, error) {
	value := ctx.Flags.String(mintAuthorityFlag)
	if value == guardKeyword {
		return types.GuardAuthority, nil
	}

	authority, err := account.ParseAddress(value)
	if err != nil {
		return solana.PublicKey{}, xerrors.Errorf("invalid mint authority: %v", err)
	}

	return authority, nil
}

func machineAddress(ctx node.Context) (solana.PublicKey, error) {
	addr, err := account.ParseAddress(ctx.Flags.String(addressFlag))
	if err != nil {
		return addr, xerrors.Errorf("invalid address: %v", err)
	}

	return addr, nil
}

// buyerAddress returns the buyer of the flags, or the address of the signer.
func buyerAddress(ctx node.Context) (solana.PublicKey, error) {
	text := ctx.Flags.String(buyerFlag)
	if text != "" {
		addr, err := account.ParseAddress(text)
		if err != nil {
			return addr, xerrors.Errorf("invalid buyer: %v", err)
		}

		return addr, nil
	}

	signer, err := ledger.GetSigner(ctx)
	if err != nil {
		return solana.PublicKey{}, xerrors.Errorf("failed to get signer: %v", err)
	}

	return account.AddressOf(signer.GetPublicKey())
}

func itemIndex(ctx node.Context) (uint16, error) {
	index := ctx.Flags.Int(indexFlag)
	if index < 0 || index > math.MaxUint16 {
		return 0, xerrors.Errorf("invalid index %d", index)
	}

	return uint16(index), nil
}

func readItem(v machine.View, addr solana.PublicKey, index uint16) (types.Item, error) {
	m, err := v.Machine(addr)
	if err != nil {
		return types.Item{}, xerrors.Errorf("failed to read machine: %v", err)
	}

	if int(index) >= len(m.Items) {
		return types.Item{}, xerrors.Errorf("no item at index %d", index)
	}

	return m.Items[index], nil
}

// view runs the function over the last state of the ledger.
func view(ctx node.Context, fn func(machine.View, account.Store) error) error {
	var srvc ordering.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	return srvc.View(func(r store.Readable) error {
		return fn(machine.NewView(r), account.NewReader(r))
	})
}
