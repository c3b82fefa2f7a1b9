// Package controller implements the initializer of the machine contract and
// the commands to operate the machines.
package controller

import (
	"go.dedis.ch/jellybean/cli"
	"go.dedis.ch/jellybean/cli/config"
	"go.dedis.ch/jellybean/cli/node"
	"go.dedis.ch/jellybean/contracts/machine"
	"go.dedis.ch/jellybean/core/execution/native"
	ledger "go.dedis.ch/jellybean/core/ordering/serial/controller"
	"golang.org/x/xerrors"
)

const (
	addressFlag       = "address"
	uriFlag           = "uri"
	feeAccountFlag    = "fee-account"
	printFeeFlag      = "print-fee"
	mintAuthorityFlag = "mint-authority"
	guardKeyword      = "guard"
	assetFlag         = "asset"
	indexFlag         = "index"
	buyerFlag         = "buyer"
	printTargetFlag   = "print-target"
)

// miniController is the initializer of the machine contract.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new controller for the machine contract.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It sets the commands of the
// lifecycle of a machine.
func (miniController) SetCommands(builder node.Builder) {
	machineAddr := cli.StringFlag{
		Name:     addressFlag,
		Usage:    "base58 address of the machine",
		Required: true,
	}

	settings := []cli.Flag{
		cli.StringFlag{
			Name:  uriFlag,
			Usage: "uri of the metadata of the machine",
		},
		cli.StringSliceFlag{
			Name:  feeAccountFlag,
			Usage: "fee account as <address>:<basis points>, the shares must sum to 10000",
		},
		cli.StringFlag{
			Name:  printFeeFlag,
			Usage: "fee charged for every printed edition as <address>:<lamports>",
		},
	}

	mintAuthority := cli.StringFlag{
		Name:  mintAuthorityFlag,
		Usage: "base58 address of the mint authority, or \"guard\" to let anyone draw",
	}

	asset := cli.StringFlag{
		Name:  assetFlag,
		Usage: "base58 address of the asset or the collection",
	}

	index := cli.IntFlag{
		Name:     indexFlag,
		Usage:    "index of the item",
		Required: true,
	}

	buyer := cli.StringFlag{
		Name:  buyerFlag,
		Usage: "base58 address of the buyer, the signer by default",
	}

	cmd := builder.SetCommand("machine")
	cmd.SetDescription("operate the jellybean machines")

	sub := cmd.SetSubCommand("initialize")
	sub.SetDescription("create a machine whose authority is the signer")
	flags := append([]cli.Flag{
		cli.StringFlag{
			Name:  addressFlag,
			Usage: "base58 address of the new machine, a random one by default",
		},
		mintAuthority,
	}, settings...)
	sub.SetFlags(append(flags, ledger.KeySetting)...)
	sub.SetAction(builder.MakeAction(initializeAction{}))

	sub = cmd.SetSubCommand("update-settings")
	sub.SetDescription("replace the settings of a machine")
	flags = append([]cli.Flag{machineAddr}, settings...)
	sub.SetFlags(append(flags, ledger.KeySetting)...)
	sub.SetAction(builder.MakeAction(updateSettingsAction{}))

	sub = cmd.SetSubCommand("add-item")
	sub.SetDescription("add an asset or a collection of the signer to the pool")
	asset.Required = true
	sub.SetFlags(machineAddr, asset, ledger.KeySetting)
	sub.SetAction(builder.MakeAction(addItemAction{}))

	sub = cmd.SetSubCommand("remove-item")
	sub.SetDescription("remove an item from the pool before the sale")
	sub.SetFlags(machineAddr, index, ledger.KeySetting)
	sub.SetAction(builder.MakeAction(removeItemAction{}))

	sub = cmd.SetSubCommand("start-sale")
	sub.SetDescription("open the draws of a machine")
	sub.SetFlags(machineAddr, ledger.KeySetting)
	sub.SetAction(builder.MakeAction(commandAction{command: machine.CmdStartSale}))

	sub = cmd.SetSubCommand("end-sale")
	sub.SetDescription("close the draws of a machine")
	sub.SetFlags(machineAddr, ledger.KeySetting)
	sub.SetAction(builder.MakeAction(commandAction{command: machine.CmdEndSale}))

	sub = cmd.SetSubCommand("draw")
	sub.SetDescription("draw an item for a buyer")
	sub.SetFlags(machineAddr, buyer, ledger.KeySetting)
	sub.SetAction(builder.MakeAction(drawAction{}))

	sub = cmd.SetSubCommand("claim")
	sub.SetDescription("claim a prize of a buyer")
	sub.SetFlags(machineAddr, buyer, index, cli.StringFlag{
		Name:  printTargetFlag,
		Usage: "base58 address of the printed edition, a random one by default",
	}, ledger.KeySetting)
	sub.SetAction(builder.MakeAction(claimAction{}))

	sub = cmd.SetSubCommand("set-mint-authority")
	sub.SetDescription("replace the mint authority of a machine")
	mintAuthority.Required = true
	sub.SetFlags(machineAddr, mintAuthority, ledger.KeySetting)
	sub.SetAction(builder.MakeAction(setMintAuthorityAction{}))

	sub = cmd.SetSubCommand("withdraw")
	sub.SetDescription("close an empty machine and refund its storage")
	sub.SetFlags(machineAddr, ledger.KeySetting)
	sub.SetAction(builder.MakeAction(commandAction{command: machine.CmdWithdraw}))

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("show a machine, or the prizes of a buyer with --buyer")
	sub.SetFlags(machineAddr, cli.StringFlag{
		Name:  buyerFlag,
		Usage: "base58 address of the buyer",
	})
	sub.SetAction(builder.MakeAction(showAction{}))
}

// OnStart implements node.Initializer. It registers the machine contract. The
// draws are charged when the configuration sets a draw price.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	var cfg config.Config
	err := inj.Resolve(&cfg)
	if err != nil {
		return xerrors.Errorf("failed to resolve config: %v", err)
	}

	var exec *native.Service
	err = inj.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("failed to resolve native service: %v", err)
	}

	opts := []machine.Option{machine.WithRent(cfg.Rent)}
	if cfg.DrawPrice > 0 {
		opts = append(opts, machine.WithGuard(machine.NewFeeGuard(cfg.DrawPrice)))
	}

	machine.RegisterContract(exec, machine.NewContract(opts...))

	return nil
}

// OnStop implements node.Initializer.
func (miniController) OnStop(node.Injector) error {
	return nil
}
