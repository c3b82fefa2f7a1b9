// Package nodetest provides the tools to run the initializers of a node in the
// unit tests.
package nodetest

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/jellybean/cli/config"
	"go.dedis.ch/jellybean/cli/node"
	"go.dedis.ch/jellybean/contracts/bank"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/core/execution/native"
	ledger "go.dedis.ch/jellybean/core/ordering/serial/controller"
	"go.dedis.ch/jellybean/core/txn"
	"go.dedis.ch/jellybean/crypto"
	"go.dedis.ch/jellybean/crypto/ed25519"
)

// Start runs the ledger of a node in a temporary directory, then the
// initializers. The bank contract is registered with the node key as the
// faucet and the HTTP server, if any, listens on a free port. The node is
// stopped at the end of the test.
func Start(t *testing.T, inits ...node.Initializer) node.Context {
	dir := t.TempDir()
	inj := node.NewInjector()
	flags := node.FlagSet{
		node.ConfigFlag:     dir,
		config.HTTPAddrFlag: "127.0.0.1:0",
	}

	require.NoError(t, ledger.NewController().OnStart(flags, inj))
	t.Cleanup(func() { ledger.NewController().OnStop(inj) })

	var cfg config.Config
	require.NoError(t, inj.Resolve(&cfg))

	var exec *native.Service
	require.NoError(t, inj.Resolve(&exec))

	bank.RegisterContract(exec, bank.NewContract(NodeAddress(t, inj), cfg.Rent))

	for _, init := range inits {
		require.NoError(t, init.OnStart(flags, inj))

		stop := init
		t.Cleanup(func() { stop.OnStop(inj) })
	}

	return node.Context{
		Injector: inj,
		Flags:    node.FlagSet{node.ConfigFlag: dir},
		Out:      new(bytes.Buffer),
	}
}

// NodeAddress returns the address of the node key.
func NodeAddress(t *testing.T, inj node.Injector) solana.PublicKey {
	var signer crypto.Signer
	require.NoError(t, inj.Resolve(&signer))

	addr, err := account.AddressOf(signer.GetPublicKey())
	require.NoError(t, err)

	return addr
}

// Airdrop credits the lamports to the address.
func Airdrop(t *testing.T, ctx node.Context, addr solana.PublicKey, amount uint64) {
	ctx.Out = io.Discard
	ctx.Flags = node.FlagSet{node.ConfigFlag: ctx.Flags.Path(node.ConfigFlag)}

	err := ledger.Submit(ctx,
		txn.Arg{Key: native.ContractArg, Value: []byte(bank.ContractName)},
		txn.Arg{Key: bank.CmdArg, Value: []byte(bank.CmdAirdrop)},
		txn.Arg{Key: bank.ToArg, Value: addr[:]},
		txn.Arg{Key: bank.AmountArg, Value: []byte(strconv.FormatUint(amount, 10))},
	)
	require.NoError(t, err)
}

// WriteKey creates a key file in the node directory and returns the address
// of its signer.
func WriteKey(t *testing.T, ctx node.Context, name string) solana.PublicKey {
	signer := ed25519.NewSigner()

	data, err := signer.MarshalBinary()
	require.NoError(t, err)

	err = os.WriteFile(filepath.Join(ctx.Flags.Path(node.ConfigFlag), name), data, 0600)
	require.NoError(t, err)

	addr, err := account.AddressOf(signer.GetPublicKey())
	require.NoError(t, err)

	return addr
}
