package simple

import (
	"go.dedis.ch/jellybean/core/txn"
	"go.dedis.ch/jellybean/core/validation"
)

// TransactionResult is the result of a transaction processing. It contains the
// transaction and its state of success.
//
// - implements validation.TransactionResult
type TransactionResult struct {
	tx       txn.Transaction
	accepted bool
	reason   string
}

// NewTransactionResult creates a new transaction result for the provided
// transaction.
func NewTransactionResult(tx txn.Transaction, accepted bool, reason string) TransactionResult {
	return TransactionResult{
		tx:       tx,
		accepted: accepted,
		reason:   reason,
	}
}

// GetTransaction implements validation.TransactionResult. It returns the
// transaction associated to the result.
func (res TransactionResult) GetTransaction() txn.Transaction {
	return res.tx
}

// GetStatus implements validation.TransactionResult. It returns true if the
// transaction has been accepted, otherwise false with the reason.
func (res TransactionResult) GetStatus() (bool, string) {
	return res.accepted, res.reason
}

// Data is the result of the validation of a batch.
//
// - implements validation.Data
type Data struct {
	txs []TransactionResult
}

// NewData creates new validated data from the results.
func NewData(results []TransactionResult) Data {
	return Data{txs: results}
}

// GetTransactionResults implements validation.Data. It returns the results in
// the order of the batch.
func (d Data) GetTransactionResults() []validation.TransactionResult {
	res := make([]validation.TransactionResult, len(d.txs))
	for i, r := range d.txs {
		res[i] = r
	}

	return res
}
