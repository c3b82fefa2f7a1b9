package serial

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/jellybean/core/execution"
	"go.dedis.ch/jellybean/core/execution/native"
	"go.dedis.ch/jellybean/core/store"
	"go.dedis.ch/jellybean/core/store/kv"
	"go.dedis.ch/jellybean/core/txn"
	"go.dedis.ch/jellybean/core/txn/signed"
	"go.dedis.ch/jellybean/core/validation"
	"go.dedis.ch/jellybean/core/validation/simple"
	"go.dedis.ch/jellybean/crypto"
	"go.dedis.ch/jellybean/crypto/ed25519"
	"go.dedis.ch/jellybean/internal/testing/fake"
	"golang.org/x/xerrors"
)

const testContract = "counter"

func TestService_Add(t *testing.T) {
	srvc := makeService(t)
	signer := ed25519.NewSigner()

	res, err := srvc.Add(context.Background(), makeTx(t, signer, 0, "1"))
	require.NoError(t, err)

	accepted, _ := res.GetStatus()
	require.True(t, accepted)

	res, err = srvc.Add(context.Background(), makeTx(t, signer, 1, "oops"))
	require.NoError(t, err)

	accepted, reason := res.GetStatus()
	require.False(t, accepted)
	require.Equal(t, "bad value", reason)

	res, err = srvc.Add(context.Background(), makeTx(t, signer, 1, "1"))
	require.NoError(t, err)

	accepted, reason = res.GetStatus()
	require.False(t, accepted)
	require.Equal(t, "nonce '1' != '2'", reason)

	nonce, err := srvc.GetNonce(signer.GetPublicKey())
	require.NoError(t, err)
	require.Equal(t, uint64(3), nonce)

	err = srvc.View(func(snap store.Readable) error {
		value, err := snap.Get([]byte("counter"))
		require.NoError(t, err)
		require.Equal(t, []byte("1"), value)

		return nil
	})
	require.NoError(t, err)

	var entries []Entry
	err = srvc.History(func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for i, e := range entries {
		require.Equal(t, uint64(i), e.Index)
		require.NotEmpty(t, e.Transaction)
	}

	require.True(t, entries[0].Accepted)
	require.False(t, entries[1].Accepted)
	require.Equal(t, "bad value", entries[1].Reason)

	tx, err := signed.NewTransactionFactory().TransactionOf(entries[0].Transaction)
	require.NoError(t, err)
	require.Equal(t, uint64(0), tx.GetNonce())
}

func TestService_Add_Failures(t *testing.T) {
	srvc := makeService(t)
	signer := ed25519.NewSigner()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := srvc.Add(ctx, makeTx(t, signer, 0, "1"))
	require.EqualError(t, err, "context: context canceled")

	tx, err := signed.NewTransaction(0, signer.GetPublicKey())
	require.NoError(t, err)

	_, err = srvc.Add(context.Background(), tx)
	require.EqualError(t, err, "invalid transaction: missing signature")

	other := ed25519.NewSigner()
	tx, err = signed.NewTransaction(0, signer.GetPublicKey())
	require.NoError(t, err)
	require.NoError(t, tx.Sign(other))

	_, err = srvc.Add(context.Background(), tx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid transaction: signature: ")

	srvc.validation = badValidation{}

	_, err = srvc.Add(context.Background(), makeTx(t, signer, 0, "1"))
	require.EqualError(t, err, fake.Err("failed to validate"))
}

func TestService_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := kv.New(path)
	require.NoError(t, err)

	srvc, err := NewService(db, simple.NewService(makeExecution()))
	require.NoError(t, err)

	signer := ed25519.NewSigner()

	_, err = srvc.Add(context.Background(), makeTx(t, signer, 0, "7"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = kv.New(path)
	require.NoError(t, err)

	defer db.Close()

	srvc, err = NewService(db, simple.NewService(makeExecution()))
	require.NoError(t, err)

	nonce, err := srvc.GetNonce(signer.GetPublicKey())
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)
}

// -----------------------------------------------------------------------------
// Utility functions

type counterContract struct{}

func (counterContract) Execute(snap store.Snapshot, step execution.Step) error {
	value := step.Current.GetArg("value")
	if string(value) == "oops" {
		return xerrors.New("bad value")
	}

	return snap.Set([]byte("counter"), value)
}

type badValidation struct {
	simple.Service
}

func (badValidation) Validate(store.Snapshot, []txn.Transaction) (validation.Data, error) {
	return nil, fake.GetError()
}

func makeExecution() *native.Service {
	exec := native.NewExecution()
	exec.Set(testContract, counterContract{})

	return exec
}

func makeService(t *testing.T) *Service {
	db, err := kv.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	srvc, err := NewService(db, simple.NewService(makeExecution()))
	require.NoError(t, err)

	return srvc
}

func makeTx(t *testing.T, signer crypto.Signer, nonce uint64, value string) txn.Transaction {
	tx, err := signed.NewTransaction(nonce, signer.GetPublicKey(),
		signed.WithArg(native.ContractArg, []byte(testContract)),
		signed.WithArg("value", []byte(value)))
	require.NoError(t, err)

	require.NoError(t, tx.Sign(signer))

	return tx
}
