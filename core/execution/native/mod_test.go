package native

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/jellybean/core/execution"
	"go.dedis.ch/jellybean/core/store"
	"go.dedis.ch/jellybean/core/txn"
	"go.dedis.ch/jellybean/internal/testing/fake"
)

func TestService_Execute(t *testing.T) {
	srvc := NewExecution()
	srvc.Set("abc", fakeExec{})
	srvc.Set("bad", fakeExec{err: fake.GetError()})

	step := execution.Step{}
	step.Current = fakeTx{contract: "abc"}

	res, err := srvc.Execute(nil, step)
	require.NoError(t, err)
	require.Equal(t, execution.Result{Accepted: true}, res)

	step.Current = fakeTx{contract: "bad"}
	res, err = srvc.Execute(nil, step)
	require.NoError(t, err)
	require.Equal(t, execution.Result{Message: fake.GetError().Error()}, res)

	step.Current = fakeTx{contract: "none"}
	_, err = srvc.Execute(nil, step)
	require.EqualError(t, err, "unknown contract 'none'")
}

func TestService_Set(t *testing.T) {
	srvc := NewExecution()
	srvc.Set("abc", fakeExec{})

	require.Panics(t, func() { srvc.Set("abc", fakeExec{}) })
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeExec struct {
	err error
}

func (e fakeExec) Execute(store.Snapshot, execution.Step) error {
	return e.err
}

type fakeTx struct {
	txn.Transaction
	contract string
}

func (tx fakeTx) GetArg(key string) []byte {
	return []byte(tx.contract)
}
