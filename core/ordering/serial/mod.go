// Package serial implements an ordering service for a single process. The
// transactions are applied one at a time, each of them in its own database
// transaction, which gives a strict total order over every state update.
package serial

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"

	bin "github.com/gagliardetto/binary"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.dedis.ch/jellybean"
	"go.dedis.ch/jellybean/core/access"
	"go.dedis.ch/jellybean/core/store"
	"go.dedis.ch/jellybean/core/store/kv"
	"go.dedis.ch/jellybean/core/txn"
	"go.dedis.ch/jellybean/core/validation"
	"go.dedis.ch/jellybean/crypto"
	"golang.org/x/xerrors"
)

var (
	stateBucket = []byte("state")

	historyPrefix = []byte("history:")
	headKey       = []byte("history-head")
)

var (
	promTxs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jellybean_ordering_transactions_total",
		Help: "total number of ordered transactions",
	}, []string{"status"})

	promHead = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jellybean_ordering_head",
		Help: "index of the last ordered transaction",
	})
)

func init() {
	jellybean.PromCollectors = append(jellybean.PromCollectors, promTxs, promHead)
}

// Entry is a transaction of the history with its result.
type Entry struct {
	Index       uint64
	Transaction []byte
	Accepted    bool
	Reason      string
}

// Serializer is the interface of a transaction that can be stored in the
// history.
type Serializer interface {
	Serialize() ([]byte, error)
}

type signedTx interface {
	GetSignature() crypto.Signature
}

type verifier interface {
	Verify(msg []byte, sig crypto.Signature) error
}

// Service is an ordering service backed by a key/value database.
//
// - implements ordering.Service
type Service struct {
	sync.Mutex

	db         kv.DB
	validation validation.Service
	logger     zerolog.Logger
}

// NewService creates a new service that persists the state in the database.
func NewService(db kv.DB, val validation.Service) (*Service, error) {
	err := db.Update(stateBucket, func(kv.Bucket) error { return nil })
	if err != nil {
		return nil, xerrors.Errorf("failed to create bucket: %v", err)
	}

	srvc := &Service{
		db:         db,
		validation: val,
		logger:     jellybean.Logger.With().Str("service", "ordering").Logger(),
	}

	return srvc, nil
}

// Add implements ordering.Service. The signature of the transaction is checked
// before it is ordered. The context is only checked before the transaction
// starts because a started transaction is never interrupted.
func (s *Service) Add(ctx context.Context, tx txn.Transaction) (validation.TransactionResult, error) {
	err := ctx.Err()
	if err != nil {
		return nil, xerrors.Errorf("context: %v", err)
	}

	err = verify(tx)
	if err != nil {
		return nil, xerrors.Errorf("invalid transaction: %v", err)
	}

	s.Lock()
	defer s.Unlock()

	var result validation.TransactionResult

	err = s.db.Update(stateBucket, func(b kv.Bucket) error {
		snap := kv.NewSnapshot(b)

		data, err := s.validation.Validate(snap, []txn.Transaction{tx})
		if err != nil {
			return xerrors.Errorf("failed to validate: %v", err)
		}

		result = data.GetTransactionResults()[0]

		index, err := s.appendHistory(b, result)
		if err != nil {
			return xerrors.Errorf("failed to store history: %v", err)
		}

		promHead.Set(float64(index))

		return nil
	})

	if err != nil {
		return nil, err
	}

	accepted, reason := result.GetStatus()
	if accepted {
		promTxs.WithLabelValues("accepted").Inc()
	} else {
		promTxs.WithLabelValues("refused").Inc()
	}

	s.logger.Debug().
		Hex("id", tx.GetID()).
		Uint64("nonce", tx.GetNonce()).
		Bool("accepted", accepted).
		Str("reason", reason).
		Msg("transaction ordered")

	return result, nil
}

// GetNonce implements ordering.Service and signed.Client.
func (s *Service) GetNonce(ident access.Identity) (uint64, error) {
	var nonce uint64

	err := s.View(func(snap store.Readable) error {
		var err error
		nonce, err = s.validation.GetNonce(snap, ident)

		return err
	})

	if err != nil {
		return 0, xerrors.Errorf("failed to read nonce: %v", err)
	}

	return nonce, nil
}

// View implements ordering.Service.
func (s *Service) View(fn func(store.Readable) error) error {
	return s.db.View(stateBucket, func(b kv.Bucket) error {
		return fn(kv.NewSnapshot(b))
	})
}

// History executes the callback for every entry of the history in order. The
// iteration stops when the callback returns an error.
func (s *Service) History(fn func(Entry) error) error {
	return s.db.View(stateBucket, func(b kv.Bucket) error {
		return b.Scan(historyPrefix, func(k, v []byte) error {
			var entry Entry

			err := bin.NewBorshDecoder(v).Decode(&entry)
			if err != nil {
				return xerrors.Errorf("failed to decode entry %x: %v", k, err)
			}

			return fn(entry)
		})
	})
}

func (s *Service) appendHistory(b kv.Bucket, res validation.TransactionResult) (uint64, error) {
	var index uint64

	head := b.Get(headKey)
	if len(head) == 8 {
		index = binary.BigEndian.Uint64(head) + 1
	}

	entry := Entry{Index: index}
	entry.Accepted, entry.Reason = res.GetStatus()

	serializer, ok := res.GetTransaction().(Serializer)
	if ok {
		data, err := serializer.Serialize()
		if err != nil {
			return 0, xerrors.Errorf("failed to serialize tx: %v", err)
		}

		entry.Transaction = data
	}

	buf := new(bytes.Buffer)

	err := bin.NewBorshEncoder(buf).Encode(entry)
	if err != nil {
		return 0, xerrors.Errorf("failed to encode: %v", err)
	}

	key := make([]byte, len(historyPrefix)+8)
	copy(key, historyPrefix)
	binary.BigEndian.PutUint64(key[len(historyPrefix):], index)

	err = b.Set(key, buf.Bytes())
	if err != nil {
		return 0, xerrors.Errorf("failed to write entry: %v", err)
	}

	err = b.Set(headKey, key[len(historyPrefix):])
	if err != nil {
		return 0, xerrors.Errorf("failed to write head: %v", err)
	}

	return index, nil
}

// verify checks the signature of the transaction when it carries one. A
// transaction without a signature is refused.
func verify(tx txn.Transaction) error {
	stx, ok := tx.(signedTx)
	if !ok || stx.GetSignature() == nil {
		return xerrors.New("missing signature")
	}

	pubkey, ok := tx.GetIdentity().(verifier)
	if !ok {
		return xerrors.Errorf("identity of type '%T' cannot verify", tx.GetIdentity())
	}

	err := pubkey.Verify(tx.GetID(), stx.GetSignature())
	if err != nil {
		return xerrors.Errorf("signature: %v", err)
	}

	return nil
}
