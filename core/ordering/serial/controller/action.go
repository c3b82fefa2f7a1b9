package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mr-tron/base58"
	"go.dedis.ch/jellybean/cli/config"
	"go.dedis.ch/jellybean/cli/node"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/core/ordering"
	"go.dedis.ch/jellybean/core/ordering/serial"
	"go.dedis.ch/jellybean/core/txn"
	"go.dedis.ch/jellybean/core/txn/signed"
	"go.dedis.ch/jellybean/crypto"
	"go.dedis.ch/jellybean/crypto/ed25519"
	"go.dedis.ch/jellybean/crypto/loader"
	"golang.org/x/xerrors"
)

// base58Prefix marks an argument value given in base58.
const base58Prefix = "base58:"

// getManager is the function called when we need a transaction manager. It
// allows us to use a different manager for the tests.
var getManager = func(signer crypto.Signer, c signed.Client) txn.Manager {
	return signed.NewManager(signer, c)
}

// submitLock serializes the submissions so that two actions signed by the same
// key never use the same nonce.
var submitLock sync.Mutex

// Submit signs a transaction populated with the arguments and adds it to the
// ledger. The signer is the key of the flag when set, otherwise the key of the
// node. It returns an error when the transaction is refused.
func Submit(ctx node.Context, args ...txn.Arg) error {
	submitLock.Lock()
	defer submitLock.Unlock()

	var srvc ordering.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	signer, err := GetSigner(ctx)
	if err != nil {
		return xerrors.Errorf("failed to get signer: %v", err)
	}

	manager := getManager(signer, srvc)

	err = manager.Sync()
	if err != nil {
		return xerrors.Errorf("failed to sync manager: %v", err)
	}

	tx, err := manager.Make(args...)
	if err != nil {
		return xerrors.Errorf("creating transaction: %v", err)
	}

	res, err := srvc.Add(context.Background(), tx)
	if err != nil {
		return xerrors.Errorf("failed to add tx: %v", err)
	}

	accepted, reason := res.GetStatus()
	if !accepted {
		return xerrors.Errorf("transaction refused: %s", reason)
	}

	fmt.Fprintf(ctx.Out, "transaction %x accepted\n", tx.GetID())

	return nil
}

// GetSigner returns the signer of the key flag, or the signer of the node when
// the flag is not set.
func GetSigner(ctx node.Context) (crypto.Signer, error) {
	path := ctx.Flags.String(KeyFlag)
	if path == "" {
		var signer crypto.Signer
		err := ctx.Injector.Resolve(&signer)
		if err != nil {
			return nil, xerrors.Errorf("injector: %v", err)
		}

		return signer, nil
	}

	path = config.Path(ctx.Flags.Path(node.ConfigFlag), path)

	data, err := loader.NewFileLoader(path).Load()
	if err != nil {
		return nil, xerrors.Errorf("failed to load signer: %v", err)
	}

	signer, err := ed25519.NewSignerFromBytes(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal signer: %v", err)
	}

	return signer, nil
}

// addAction describes an action to submit a transaction built from raw
// arguments.
//
// - implements node.ActionTemplate
type addAction struct{}

// Execute implements node.ActionTemplate.
func (addAction) Execute(ctx node.Context) error {
	args, err := getArgs(ctx)
	if err != nil {
		return xerrors.Errorf("failed to get args: %v", err)
	}

	return Submit(ctx, args...)
}

// historyAction describes an action to print the ordered transactions.
//
// - implements node.ActionTemplate
type historyAction struct{}

// Execute implements node.ActionTemplate.
func (historyAction) Execute(ctx node.Context) error {
	var srvc *serial.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	fac := signed.NewTransactionFactory()

	return srvc.History(func(entry serial.Entry) error {
		status := "accepted"
		if !entry.Accepted {
			status = "refused"
		}

		tx, err := fac.TransactionOf(entry.Transaction)
		if err != nil {
			return xerrors.Errorf("entry %d: %v", entry.Index, err)
		}

		signer, err := account.AddressOf(tx.GetIdentity())
		if err != nil {
			return xerrors.Errorf("entry %d: %v", entry.Index, err)
		}

		fmt.Fprintf(ctx.Out, "%d\t%s\t%s\tnonce=%d\t%s",
			entry.Index, status, signer, tx.GetNonce(), strings.Join(tx.GetArgs(), ","))

		if entry.Reason != "" {
			fmt.Fprintf(ctx.Out, "\t%s", entry.Reason)
		}

		fmt.Fprintln(ctx.Out)

		return nil
	})
}

// getArgs extracts and parses arguments from the context. A value starting
// with the base58 prefix is decoded.
func getArgs(ctx node.Context) ([]txn.Arg, error) {
	inArgs := ctx.Flags.StringSlice(argsFlag)
	if len(inArgs)%2 != 0 {
		return nil, xerrors.New("number of args should be even")
	}

	args := make([]txn.Arg, len(inArgs)/2)
	for i := range args {
		value := []byte(inArgs[i*2+1])

		if strings.HasPrefix(inArgs[i*2+1], base58Prefix) {
			var err error
			value, err = base58.Decode(strings.TrimPrefix(inArgs[i*2+1], base58Prefix))
			if err != nil {
				return nil, xerrors.Errorf("arg '%s': %v", inArgs[i*2], err)
			}
		}

		args[i] = txn.Arg{
			Key:   inArgs[i*2],
			Value: value,
		}
	}

	return args, nil
}
