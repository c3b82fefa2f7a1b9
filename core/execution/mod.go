// Package execution defines the service that applies a transaction to a
// snapshot of the ledger state.
package execution

import (
	"go.dedis.ch/jellybean/core/store"
	"go.dedis.ch/jellybean/core/txn"
)

// Step is the context of a transaction execution. It contains the transaction
// to execute and the ones that have been executed before it in the same batch.
type Step struct {
	Previous []txn.Transaction
	Current  txn.Transaction
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message gives a change to the execution to explain why a transaction has
	// failed.
	Message string
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the result
	// of it. An error is returned only when the execution could not happen.
	Execute(snap store.Snapshot, step Step) (Result, error)
}
