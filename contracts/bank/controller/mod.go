// Package controller implements the initializer of the bank contract and its
// commands.
package controller

import (
	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean"
	"go.dedis.ch/jellybean/cli"
	"go.dedis.ch/jellybean/cli/config"
	"go.dedis.ch/jellybean/cli/node"
	"go.dedis.ch/jellybean/contracts/bank"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/core/execution/native"
	ledger "go.dedis.ch/jellybean/core/ordering/serial/controller"
	"go.dedis.ch/jellybean/crypto"
	"golang.org/x/xerrors"
)

const (
	toFlag      = "to"
	amountFlag  = "amount"
	addressFlag = "address"
)

// miniController is the initializer of the bank contract.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new controller for the bank contract.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It sets the commands to move
// lamports.
func (miniController) SetCommands(builder node.Builder) {
	transferFlags := []cli.Flag{
		cli.StringFlag{
			Name:     toFlag,
			Usage:    "base58 address of the recipient",
			Required: true,
		},
		cli.StringFlag{
			Name:     amountFlag,
			Usage:    "amount of lamports",
			Required: true,
		},
		ledger.KeySetting,
	}

	cmd := builder.SetCommand("bank")
	cmd.SetDescription("move lamports between accounts")

	sub := cmd.SetSubCommand("airdrop")
	sub.SetDescription("credit new lamports, reserved to the faucet")
	sub.SetFlags(transferFlags...)
	sub.SetAction(builder.MakeAction(transferAction{command: bank.CmdAirdrop}))

	sub = cmd.SetSubCommand("transfer")
	sub.SetDescription("transfer lamports of the signer")
	sub.SetFlags(transferFlags...)
	sub.SetAction(builder.MakeAction(transferAction{command: bank.CmdTransfer}))

	sub = cmd.SetSubCommand("balance")
	sub.SetDescription("show the balance of an account")
	sub.SetFlags(cli.StringFlag{
		Name:  addressFlag,
		Usage: "base58 address of the account, the signer by default",
	}, ledger.KeySetting)
	sub.SetAction(builder.MakeAction(balanceAction{}))
}

// OnStart implements node.Initializer. It registers the bank contract with the
// faucet of the configuration, or the node key when none is configured.
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

	faucet, err := getFaucet(cfg, inj)
	if err != nil {
		return xerrors.Errorf("faucet: %v", err)
	}

	bank.RegisterContract(exec, bank.NewContract(faucet, cfg.Rent))

	jellybean.Logger.Info().Stringer("faucet", faucet).Msg("bank registered")

	return nil
}

// OnStop implements node.Initializer.
func (miniController) OnStop(node.Injector) error {
	return nil
}

func getFaucet(cfg config.Config, inj node.Injector) (solana.PublicKey, error) {
	if cfg.Faucet != "" {
		return account.ParseAddress(cfg.Faucet)
	}

	var signer crypto.Signer
	err := inj.Resolve(&signer)
	if err != nil {
		return solana.PublicKey{}, xerrors.Errorf("injector: %v", err)
	}

	return account.AddressOf(signer.GetPublicKey())
}
