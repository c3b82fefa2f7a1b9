// Package ordering defines the interface of the ordering service. The
// high-level purpose of this service is to give a total order to the
// transactions and to apply them to the ledger state in that order.
package ordering

import (
	"context"

	"go.dedis.ch/jellybean/core/access"
	"go.dedis.ch/jellybean/core/store"
	"go.dedis.ch/jellybean/core/txn"
	"go.dedis.ch/jellybean/core/validation"
)

// Service is the interface of an ordering service.
type Service interface {
	// Add orders the transaction after every transaction previously added and
	// applies it. It returns the result of the transaction once it is
	// persisted.
	Add(ctx context.Context, tx txn.Transaction) (validation.TransactionResult, error)

	// GetNonce returns the nonce expected for the next transaction of the
	// identity.
	GetNonce(ident access.Identity) (uint64, error)

	// View executes the callback with a read-only snapshot of the last state.
	View(fn func(store.Readable) error) error
}
