package controller

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/jellybean/cli/node"
	"go.dedis.ch/jellybean/core/execution"
	"go.dedis.ch/jellybean/core/execution/native"
	"go.dedis.ch/jellybean/core/store"
	"go.dedis.ch/jellybean/core/txn"
	"go.dedis.ch/jellybean/core/txn/signed"
	"go.dedis.ch/jellybean/crypto"
	"go.dedis.ch/jellybean/crypto/ed25519"
	"go.dedis.ch/jellybean/internal/testing/fake"
)

const contractName = "fake"

func TestSubmit(t *testing.T) {
	ctx, contract := makeContext(t)
	out := ctx.Out.(*bytes.Buffer)

	err := Submit(ctx, contractArg())
	require.NoError(t, err)
	require.Regexp(t, "^transaction [0-9a-f]{64} accepted\n$", out.String())

	err = Submit(ctx, contractArg())
	require.NoError(t, err)
	require.Len(t, contract.steps, 2)
	require.Equal(t, uint64(1), contract.steps[1].Current.GetNonce())

	err = Submit(ctx, contractArg(), txn.Arg{Key: "fail", Value: []byte{1}})
	require.EqualError(t, err, "transaction refused: fake error")

	err = Submit(ctx, txn.Arg{Key: native.ContractArg, Value: []byte("unknown")})
	require.Error(t, err)
	require.Regexp(t, "^failed to add tx: ", err.Error())
}

func TestSubmit_Failures(t *testing.T) {
	ctx := node.Context{
		Injector: node.NewInjector(),
		Flags:    node.FlagSet{},
		Out:      new(bytes.Buffer),
	}

	err := Submit(ctx)
	require.EqualError(t, err, "injector: couldn't find dependency for 'ordering.Service'")

	ctx, _ = makeContext(t)
	ctx.Flags.(node.FlagSet)[KeyFlag] = "unknown.key"

	err = Submit(ctx)
	require.Error(t, err)
	require.Regexp(t, "^failed to get signer: failed to load signer:", err.Error())

	delete(ctx.Flags.(node.FlagSet), KeyFlag)

	defer func() {
		getManager = func(signer crypto.Signer, c signed.Client) txn.Manager {
			return signed.NewManager(signer, c)
		}
	}()

	getManager = func(crypto.Signer, signed.Client) txn.Manager {
		return badManager{failSync: true}
	}

	err = Submit(ctx)
	require.EqualError(t, err, fake.Err("failed to sync manager"))

	getManager = func(crypto.Signer, signed.Client) txn.Manager {
		return badManager{}
	}

	err = Submit(ctx)
	require.EqualError(t, err, fake.Err("creating transaction"))
}

func TestGetSigner(t *testing.T) {
	ctx, _ := makeContext(t)
	dir := ctx.Flags.Path(node.ConfigFlag)

	var nodeSigner crypto.Signer
	require.NoError(t, ctx.Injector.Resolve(&nodeSigner))

	signer, err := GetSigner(ctx)
	require.NoError(t, err)
	require.Equal(t, nodeSigner, signer)

	alice := ed25519.NewSigner()
	data, err := alice.MarshalBinary()
	require.NoError(t, err)

	err = os.WriteFile(filepath.Join(dir, "alice.key"), data, 0600)
	require.NoError(t, err)

	ctx.Flags.(node.FlagSet)[KeyFlag] = "alice.key"

	signer, err = GetSigner(ctx)
	require.NoError(t, err)
	require.True(t, alice.GetPublicKey().Equal(signer.GetPublicKey()))

	err = os.WriteFile(filepath.Join(dir, "bad.key"), []byte("bad"), 0600)
	require.NoError(t, err)

	ctx.Flags.(node.FlagSet)[KeyFlag] = "bad.key"

	_, err = GetSigner(ctx)
	require.Error(t, err)
	require.Regexp(t, "^failed to unmarshal signer:", err.Error())

	ctx.Injector = node.NewInjector()
	delete(ctx.Flags.(node.FlagSet), KeyFlag)

	_, err = GetSigner(ctx)
	require.EqualError(t, err, "injector: couldn't find dependency for 'crypto.Signer'")
}

func TestAddAction_Execute(t *testing.T) {
	ctx, contract := makeContext(t)

	ctx.Flags.(node.FlagSet)[argsFlag] = []interface{}{
		native.ContractArg, contractName,
		"value", "base58:" + base58.Encode([]byte{1, 2}),
		"text", "abc",
	}

	err := addAction{}.Execute(ctx)
	require.NoError(t, err)
	require.Len(t, contract.steps, 1)
	require.Equal(t, []byte{1, 2}, contract.steps[0].Current.GetArg("value"))
	require.Equal(t, []byte("abc"), contract.steps[0].Current.GetArg("text"))

	ctx.Flags.(node.FlagSet)[argsFlag] = []interface{}{"value"}

	err = addAction{}.Execute(ctx)
	require.EqualError(t, err, "failed to get args: number of args should be even")

	ctx.Flags.(node.FlagSet)[argsFlag] = []interface{}{"value", "base58:0OIl"}

	err = addAction{}.Execute(ctx)
	require.Error(t, err)
	require.Regexp(t, "^failed to get args: arg 'value':", err.Error())
}

func TestHistoryAction_Execute(t *testing.T) {
	ctx, _ := makeContext(t)

	require.NoError(t, Submit(ctx, contractArg()))
	require.Error(t, Submit(ctx, contractArg(), txn.Arg{Key: "fail", Value: []byte{1}}))

	out := new(bytes.Buffer)
	ctx.Out = out

	err := historyAction{}.Execute(ctx)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.Regexp(t, "^0\taccepted\t\\w+\tnonce=0\t", lines[0])
	require.Regexp(t, "^1\trefused\t\\w+\tnonce=1\t.*\tfake error$", lines[1])

	ctx.Injector = node.NewInjector()

	err = historyAction{}.Execute(ctx)
	require.EqualError(t, err, "injector: couldn't find dependency for '*serial.Service'")
}

// -----------------------------------------------------------------------------
// Utility functions

func makeContext(t *testing.T) (node.Context, *fakeContract) {
	dir := t.TempDir()

	inj := startNode(t, dir)
	t.Cleanup(func() { NewController().OnStop(inj) })

	var exec *native.Service
	require.NoError(t, inj.Resolve(&exec))

	contract := &fakeContract{}
	exec.Set(contractName, contract)

	ctx := node.Context{
		Injector: inj,
		Flags:    node.FlagSet{node.ConfigFlag: dir},
		Out:      new(bytes.Buffer),
	}

	return ctx, contract
}

func contractArg() txn.Arg {
	return txn.Arg{Key: native.ContractArg, Value: []byte(contractName)}
}

type fakeContract struct {
	steps []execution.Step
}

func (c *fakeContract) Execute(snap store.Snapshot, step execution.Step) error {
	c.steps = append(c.steps, step)

	if len(step.Current.GetArg("fail")) > 0 {
		return fake.GetError()
	}

	return nil
}

type badManager struct {
	txn.Manager
	failSync bool
}

func (m badManager) Sync() error {
	if m.failSync {
		return fake.GetError()
	}

	return nil
}

func (m badManager) Make(args ...txn.Arg) (txn.Transaction, error) {
	return nil, fake.GetError()
}
