// Package validation defines the validator of a batch of transactions created
// by an ordering service.
package validation

import (
	"go.dedis.ch/jellybean/core/access"
	"go.dedis.ch/jellybean/core/store"
	"go.dedis.ch/jellybean/core/txn"
)

// TransactionResult is the outcome of one transaction.
type TransactionResult interface {
	GetTransaction() txn.Transaction

	// GetStatus returns true when the transaction has been accepted, or false
	// with the reason of the refusal.
	GetStatus() (bool, string)
}

// Data is the result of a validation.
type Data interface {
	GetTransactionResults() []TransactionResult
}

// Service is the validation service that will process a batch of transactions
// into a validated data.
type Service interface {
	// GetNonce returns the nonce expected for the next transaction of the
	// identity.
	GetNonce(store.Readable, access.Identity) (uint64, error)

	// Validate applies the transactions to the snapshot. A refused
	// transaction leaves the snapshot untouched except for the nonce of its
	// identity.
	Validate(store.Snapshot, []txn.Transaction) (Data, error)
}
