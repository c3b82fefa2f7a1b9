// Package simple implements a simple validation service.
//
// Every transaction is executed on a staged copy of the snapshot. The changes
// are applied only when the execution accepts the transaction, so a refused
// transaction has no effect other than consuming the nonce of its identity.
// After each transaction the system variables are advanced.
package simple

import (
	"encoding/binary"
	"fmt"
	"time"

	"go.dedis.ch/jellybean/core/access"
	"go.dedis.ch/jellybean/core/execution"
	"go.dedis.ch/jellybean/core/store"
	"go.dedis.ch/jellybean/core/store/mem"
	"go.dedis.ch/jellybean/core/store/prefixed"
	"go.dedis.ch/jellybean/core/sysvar"
	"go.dedis.ch/jellybean/core/txn"
	"go.dedis.ch/jellybean/core/validation"
	"golang.org/x/xerrors"
)

const noncePrefix = "nonces"

// Service is a standard validation service that will process the batch and
// update the snapshot accordingly.
//
// - implements validation.Service
type Service struct {
	execution execution.Service
	clock     func() time.Time
}

// NewService creates a new validation service.
func NewService(exec execution.Service) Service {
	return Service{
		execution: exec,
		clock:     time.Now,
	}
}

// GetNonce implements validation.Service. It returns the nonce expected for
// the next transaction of the identity.
func (s Service) GetNonce(snap store.Readable, ident access.Identity) (uint64, error) {
	key, err := ident.MarshalBinary()
	if err != nil {
		return 0, xerrors.Errorf("key: failed to marshal identity: %v", err)
	}

	value, err := prefixed.NewReadable(noncePrefix, snap).Get(key)
	if err != nil {
		return 0, xerrors.Errorf("store: %v", err)
	}

	if len(value) != 8 {
		return 0, nil
	}

	return binary.LittleEndian.Uint64(value), nil
}

// Validate implements validation.Service. It processes the list of transactions
// while updating the snapshot then returns a bundle of the transaction results.
func (s Service) Validate(snap store.Snapshot, txs []txn.Transaction) (validation.Data, error) {
	results := make([]TransactionResult, len(txs))

	for i, tx := range txs {
		res, err := s.validateTx(snap, tx, txs[:i])
		if err != nil {
			return nil, xerrors.Errorf("tx %#x: %v", tx.GetID(), err)
		}

		results[i] = res
	}

	return NewData(results), nil
}

func (s Service) validateTx(snap store.Snapshot, tx txn.Transaction, prev []txn.Transaction) (TransactionResult, error) {
	if tx.GetIdentity() == nil {
		return TransactionResult{}, xerrors.New("nonce: missing identity in transaction")
	}

	expected, err := s.GetNonce(snap, tx.GetIdentity())
	if err != nil {
		return TransactionResult{}, xerrors.Errorf("nonce: %v", err)
	}

	if tx.GetNonce() != expected {
		reason := fmt.Sprintf("nonce '%d' != '%d'", tx.GetNonce(), expected)
		return NewTransactionResult(tx, false, reason), nil
	}

	state, err := sysvar.Read(snap)
	if err != nil {
		return TransactionResult{}, xerrors.Errorf("sysvar: %v", err)
	}

	staged := mem.NewTrieOver(snap)

	step := execution.Step{
		Previous: prev,
		Current:  tx,
	}

	res, err := s.execution.Execute(staged, step)
	if err != nil {
		return TransactionResult{}, xerrors.Errorf("failed to execute tx: %v", err)
	}

	if res.Accepted {
		err = staged.Commit(snap)
		if err != nil {
			return TransactionResult{}, xerrors.Errorf("failed to commit: %v", err)
		}
	}

	err = s.setNonce(snap, tx.GetIdentity(), expected+1)
	if err != nil {
		return TransactionResult{}, xerrors.Errorf("failed to set nonce: %v", err)
	}

	err = sysvar.Write(snap, state.Advance(tx.GetID(), s.clock()))
	if err != nil {
		return TransactionResult{}, xerrors.Errorf("sysvar: %v", err)
	}

	return NewTransactionResult(tx, res.Accepted, res.Message), nil
}

func (s Service) setNonce(snap store.Snapshot, ident access.Identity, nonce uint64) error {
	key, err := ident.MarshalBinary()
	if err != nil {
		return xerrors.Errorf("key: failed to marshal identity: %v", err)
	}

	value := make([]byte, 8)
	binary.LittleEndian.PutUint64(value, nonce)

	err = prefixed.NewSnapshot(noncePrefix, snap).Set(key, value)
	if err != nil {
		return xerrors.Errorf("store: %v", err)
	}

	return nil
}
