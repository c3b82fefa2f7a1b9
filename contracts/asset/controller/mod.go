// Package controller implements the initializer of the asset contract and its
// commands.
package controller

import (
	"go.dedis.ch/jellybean/cli"
	"go.dedis.ch/jellybean/cli/config"
	"go.dedis.ch/jellybean/cli/node"
	"go.dedis.ch/jellybean/contracts/asset"
	"go.dedis.ch/jellybean/core/execution/native"
	ledger "go.dedis.ch/jellybean/core/ordering/serial/controller"
	"golang.org/x/xerrors"
)

const (
	addressFlag   = "address"
	uriFlag       = "uri"
	maxSupplyFlag = "max-supply"
	toFlag        = "to"
)

// miniController is the initializer of the asset contract.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new controller for the asset contract.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It sets the commands to create and
// transfer assets.
func (miniController) SetCommands(builder node.Builder) {
	newAddress := cli.StringFlag{
		Name:  addressFlag,
		Usage: "base58 address of the new asset, a random one by default",
	}

	uri := cli.StringFlag{
		Name:  uriFlag,
		Usage: "uri of the metadata",
	}

	cmd := builder.SetCommand("asset")
	cmd.SetDescription("manage the assets")

	sub := cmd.SetSubCommand("create")
	sub.SetDescription("create a one-of-one asset owned by the signer")
	sub.SetFlags(newAddress, uri, ledger.KeySetting)
	sub.SetAction(builder.MakeAction(createAction{command: asset.CmdCreateAsset}))

	sub = cmd.SetSubCommand("collection")
	sub.SetDescription("create a collection whose authority is the signer")
	sub.SetFlags(newAddress, uri, cli.StringFlag{
		Name:  maxSupplyFlag,
		Usage: "maximum number of editions, no master edition when empty",
	}, ledger.KeySetting)
	sub.SetAction(builder.MakeAction(createAction{command: asset.CmdCreateCollection}))

	sub = cmd.SetSubCommand("transfer")
	sub.SetDescription("transfer an asset of the signer")
	sub.SetFlags(cli.StringFlag{
		Name:     addressFlag,
		Usage:    "base58 address of the asset",
		Required: true,
	}, cli.StringFlag{
		Name:     toFlag,
		Usage:    "base58 address of the new owner",
		Required: true,
	}, ledger.KeySetting)
	sub.SetAction(builder.MakeAction(transferAction{}))

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("show an asset")
	sub.SetFlags(cli.StringFlag{
		Name:     addressFlag,
		Usage:    "base58 address of the asset",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(showAction{}))
}

// OnStart implements node.Initializer. It registers the asset contract.
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

	asset.RegisterContract(exec, asset.NewContract(cfg.Rent))

	return nil
}

// OnStop implements node.Initializer.
func (miniController) OnStop(node.Injector) error {
	return nil
}
