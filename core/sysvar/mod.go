// Package sysvar maintains the ledger variables that contracts can read but
// never write: a running hash of the executed transactions, a slot counter and
// the time of the last transaction.
//
// The recent hash is the entropy source of the ledger. It is mixed with the
// identifier of the current transaction through a blake2xb XOF so that two
// transactions never read the same random stream.
package sysvar

import (
	"bytes"
	"encoding/binary"
	"time"

	bin "github.com/gagliardetto/binary"
	"go.dedis.ch/jellybean/core/store"
	"go.dedis.ch/jellybean/core/store/prefixed"
	"go.dedis.ch/jellybean/crypto"
	"go.dedis.ch/kyber/v3/xof/blake2xb"
	"golang.org/x/xerrors"
)

const prefix = "sysvar"

var stateKey = []byte("state")

// State is the set of system variables.
type State struct {
	RecentHash    [32]byte
	Slot          uint64
	UnixTimestamp int64
}

// Read returns the current state, or the zero state if no transaction has been
// executed yet.
func Read(snap store.Readable) (State, error) {
	var state State

	data, err := prefixed.NewReadable(prefix, snap).Get(stateKey)
	if err != nil {
		return state, xerrors.Errorf("failed to read: %v", err)
	}

	if len(data) == 0 {
		return state, nil
	}

	err = bin.NewBorshDecoder(data).Decode(&state)
	if err != nil {
		return state, xerrors.Errorf("failed to decode: %v", err)
	}

	return state, nil
}

// Write stores the state.
func Write(snap store.Snapshot, state State) error {
	buf := new(bytes.Buffer)

	err := bin.NewBorshEncoder(buf).Encode(state)
	if err != nil {
		return xerrors.Errorf("failed to encode: %v", err)
	}

	err = prefixed.NewSnapshot(prefix, snap).Set(stateKey, buf.Bytes())
	if err != nil {
		return xerrors.Errorf("failed to write: %v", err)
	}

	return nil
}

// Advance returns the state that follows the execution of the transaction.
func (s State) Advance(txID []byte, now time.Time) State {
	next := State{
		Slot:          s.Slot + 1,
		UnixTimestamp: now.Unix(),
	}

	copy(next.RecentHash[:], crypto.Digest(crypto.NewSha256Factory(), s.RecentHash[:], txID))

	return next
}

// Seed derives a 64-bit pseudo-random number from the state and the
// transaction identifier.
func (s State) Seed(txID []byte) uint64 {
	slot := make([]byte, 8)
	binary.LittleEndian.PutUint64(slot, s.Slot)

	seed := make([]byte, 0, len(s.RecentHash)+len(slot)+len(txID))
	seed = append(seed, s.RecentHash[:]...)
	seed = append(seed, slot...)
	seed = append(seed, txID...)

	out := make([]byte, 8)
	blake2xb.New(seed).XORKeyStream(out, out)

	return binary.LittleEndian.Uint64(out)
}
