// Package command defines the cli commands to manage the keys that sign the
// transactions of the ledger.
package command

import (
	"os"

	"go.dedis.ch/jellybean/cli"
	"go.dedis.ch/jellybean/crypto/ed25519"
)

// Initializer implements the key commands.
//
// - implements cli.Initializer
type Initializer struct{}

// SetCommands implements cli.Initializer.
func (i Initializer) SetCommands(provider cli.Provider) {
	action := action{
		printer: os.Stdout,

		genSigner: newSigner,
		getSigner: ed25519.NewSignerFromBytes,
		readFile:  os.ReadFile,
		saveFile:  saveToFile,
	}

	cmd := provider.SetCommand("key")
	cmd.SetDescription("manage the signing keys")

	sub := cmd.SetSubCommand("new")
	sub.SetDescription("create a new key")
	sub.SetFlags(cli.StringFlag{
		Name:  "save",
		Usage: "if provided, save the key to that file",
	}, cli.BoolFlag{
		Name:  "force",
		Usage: "overwrite the file if it exists",
	})
	sub.SetAction(action.newSignerAction)

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("show a key")
	sub.SetFlags(cli.PathFlag{
		Name:     "path",
		Usage:    "path to the key file",
		Required: true,
	}, cli.StringFlag{
		Name:  "format",
		Usage: "output format: [ADDRESS | PUBKEY | BASE58]",
		Value: Address,
	})
	sub.SetAction(action.showSignerAction)
}
