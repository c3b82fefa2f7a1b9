package command

import (
	"fmt"
	"io"
	"os"

	"github.com/mr-tron/base58"
	"go.dedis.ch/jellybean/cli"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/crypto"
	"go.dedis.ch/jellybean/crypto/ed25519"
	"golang.org/x/xerrors"
)

// Output formats of a key.
const (
	Address = "ADDRESS"
	Pubkey  = "PUBKEY"
	Base58  = "BASE58"
)

// action defines the cli actions of the key commands. The functions are
// fields so that the tests can replace them.
type action struct {
	printer io.Writer

	genSigner func() ([]byte, error)
	getSigner func([]byte) (crypto.Signer, error)

	readFile func(filename string) ([]byte, error)
	saveFile func(path string, force bool, data []byte) error
}

func (a action) newSignerAction(flags cli.Flags) error {
	data, err := a.genSigner()
	if err != nil {
		return xerrors.Errorf("failed to marshal signer: %v", err)
	}

	switch flags.String("save") {
	case "":
		fmt.Fprintln(a.printer, base58.Encode(data))
	default:
		err := a.saveFile(flags.String("save"), flags.Bool("force"), data)
		if err != nil {
			return xerrors.Errorf("failed to save file: %v", err)
		}
	}

	return nil
}

func (a action) showSignerAction(flags cli.Flags) error {
	data, err := a.readFile(flags.Path("path"))
	if err != nil {
		return xerrors.Errorf("failed to read data: %v", err)
	}

	var out string

	switch flags.String("format") {
	case Address:
		signer, err := a.getSigner(data)
		if err != nil {
			return xerrors.Errorf("failed to get signer: %v", err)
		}

		addr, err := account.AddressOf(signer.GetPublicKey())
		if err != nil {
			return xerrors.Errorf("failed to get address: %v", err)
		}

		out = addr.String()
	case Pubkey:
		signer, err := a.getSigner(data)
		if err != nil {
			return xerrors.Errorf("failed to get signer: %v", err)
		}

		text, err := signer.GetPublicKey().MarshalText()
		if err != nil {
			return xerrors.Errorf("failed to marshal pubkey: %v", err)
		}

		out = string(text)
	case Base58:
		out = base58.Encode(data)
	default:
		return xerrors.Errorf("unknown format '%s'", flags.String("format"))
	}

	fmt.Fprintln(a.printer, out)

	return nil
}

func saveToFile(path string, force bool, data []byte) error {
	if !force && fileExist(path) {
		return xerrors.Errorf("file '%s' already exist, use --force if you "+
			"want to overwrite", path)
	}

	err := os.WriteFile(path, data, 0600)
	if err != nil {
		return xerrors.Errorf("failed to write file: %v", err)
	}

	return nil
}

func fileExist(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

func newSigner() ([]byte, error) {
	return ed25519.NewSigner().MarshalBinary()
}
