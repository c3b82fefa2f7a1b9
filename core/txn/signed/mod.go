// Package signed is an implementation of the transaction abstraction.
//
// It uses a signature to make sure the identity owns the transaction. The nonce
// is a monotonically increasing number that is used to prevent a replay attack
// of an existing transaction.
package signed

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"

	bin "github.com/gagliardetto/binary"
	"go.dedis.ch/jellybean"
	"go.dedis.ch/jellybean/core/access"
	"go.dedis.ch/jellybean/core/txn"
	"go.dedis.ch/jellybean/crypto"
	"go.dedis.ch/jellybean/crypto/ed25519"
	"golang.org/x/xerrors"
)

// Transaction is a signed transaction using a nonce to protect itself against
// replay attack.
//
// - implements txn.Transaction
type Transaction struct {
	nonce  uint64
	args   map[string][]byte
	pubkey crypto.PublicKey
	sig    crypto.Signature
	hash   []byte
}

type template struct {
	Transaction

	hashFactory crypto.HashFactory
}

// TransactionOption is the type of options to create a transaction.
type TransactionOption func(*template)

// WithArg is an option to set an argument with the key and the value.
func WithArg(key string, value []byte) TransactionOption {
	return func(tmpl *template) {
		tmpl.args[key] = value
	}
}

// WithSignature is an option to set a valid signature. The signature will be
// verified against the identity.
func WithSignature(sig crypto.Signature) TransactionOption {
	return func(tmpl *template) {
		tmpl.sig = sig
	}
}

// WithHashFactory is an option to set a different hash factory when creating a
// transaction.
func WithHashFactory(f crypto.HashFactory) TransactionOption {
	return func(tmpl *template) {
		tmpl.hashFactory = f
	}
}

// NewTransaction creates a new transaction with the provided nonce.
func NewTransaction(nonce uint64, pk crypto.PublicKey, opts ...TransactionOption) (*Transaction, error) {
	tmpl := template{
		Transaction: Transaction{
			nonce:  nonce,
			pubkey: pk,
			args:   make(map[string][]byte),
		},
		hashFactory: crypto.NewSha256Factory(),
	}

	for _, opt := range opts {
		opt(&tmpl)
	}

	h := tmpl.hashFactory.New()
	err := tmpl.Fingerprint(h)
	if err != nil {
		return nil, xerrors.Errorf("couldn't fingerprint tx: %v", err)
	}

	tmpl.hash = h.Sum(nil)

	if tmpl.sig != nil {
		err := tmpl.pubkey.Verify(tmpl.hash, tmpl.sig)
		if err != nil {
			return nil, xerrors.Errorf("invalid signature: %v", err)
		}
	}

	return &tmpl.Transaction, nil
}

// GetID implements txn.Transaction. It returns the ID of the transaction.
func (t *Transaction) GetID() []byte {
	return t.hash
}

// GetNonce implements txn.Transaction. It returns the nonce of the transaction.
func (t *Transaction) GetNonce() uint64 {
	return t.nonce
}

// GetIdentity implements txn.Transaction. It returns the public key of the
// signer.
func (t *Transaction) GetIdentity() access.Identity {
	return t.pubkey
}

// GetSignature returns the signature of the transaction.
func (t *Transaction) GetSignature() crypto.Signature {
	return t.sig
}

// GetArgs returns the sorted list of arguments available.
func (t *Transaction) GetArgs() []string {
	args := make([]string, 0, len(t.args))
	for key := range t.args {
		args = append(args, key)
	}

	sort.Strings(args)

	return args
}

// GetArg implements txn.Transaction. It returns the value of the argument if it
// is set, otherwise nil.
func (t *Transaction) GetArg(key string) []byte {
	return t.args[key]
}

// Sign signs the transaction and stores the signature.
func (t *Transaction) Sign(signer crypto.Signer) error {
	if len(t.hash) == 0 {
		return xerrors.New("missing digest in transaction")
	}

	if !signer.GetPublicKey().Equal(t.pubkey) {
		return xerrors.New("mismatch signer and identity")
	}

	sig, err := signer.Sign(t.hash)
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	t.sig = sig

	return nil
}

// Fingerprint writes a deterministic binary representation of the
// transaction. Every argument is length-prefixed.
func (t *Transaction) Fingerprint(w io.Writer) error {
	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, t.nonce)

	_, err := w.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write nonce: %v", err)
	}

	for _, key := range t.GetArgs() {
		value := t.args[key]

		chunk := make([]byte, 2+len(key)+4+len(value))
		binary.LittleEndian.PutUint16(chunk, uint16(len(key)))
		copy(chunk[2:], key)
		binary.LittleEndian.PutUint32(chunk[2+len(key):], uint32(len(value)))
		copy(chunk[2+len(key)+4:], value)

		_, err = w.Write(chunk)
		if err != nil {
			return xerrors.Errorf("couldn't write arg: %v", err)
		}
	}

	buffer, err = t.pubkey.MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal public key: %v", err)
	}

	_, err = w.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write public key: %v", err)
	}

	return nil
}

type wireArg struct {
	Key   string
	Value []byte
}

type wireTransaction struct {
	Nonce     uint64
	Args      []wireArg
	PublicKey []byte
	Signature []byte
}

// Serialize returns the Borsh encoding of the transaction, which is how the
// transactions are stored in the history of the ledger.
func (t *Transaction) Serialize() ([]byte, error) {
	wire := wireTransaction{
		Nonce: t.nonce,
		Args:  make([]wireArg, 0, len(t.args)),
	}

	for _, key := range t.GetArgs() {
		wire.Args = append(wire.Args, wireArg{Key: key, Value: t.args[key]})
	}

	pubkey, err := t.pubkey.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal public key: %v", err)
	}

	wire.PublicKey = pubkey

	if t.sig != nil {
		sig, err := t.sig.MarshalBinary()
		if err != nil {
			return nil, xerrors.Errorf("failed to marshal signature: %v", err)
		}

		wire.Signature = sig
	}

	buf := new(bytes.Buffer)

	err = bin.NewBorshEncoder(buf).Encode(wire)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode: %v", err)
	}

	return buf.Bytes(), nil
}

// TransactionFactory is a factory to deserialize transactions.
type TransactionFactory struct {
	pubkeyFac crypto.PublicKeyFactory
	sigFac    crypto.SignatureFactory
}

// NewTransactionFactory returns a new factory for transactions signed with
// the Ed25519 curve.
func NewTransactionFactory() TransactionFactory {
	return TransactionFactory{
		pubkeyFac: ed25519.NewPublicKeyFactory(),
		sigFac:    ed25519.NewSignatureFactory(),
	}
}

// TransactionOf populates the transaction from the data if appropriate,
// otherwise it returns an error. The signature is verified when present.
func (f TransactionFactory) TransactionOf(data []byte) (*Transaction, error) {
	var wire wireTransaction

	err := bin.NewBorshDecoder(data).Decode(&wire)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode: %v", err)
	}

	pubkey, err := f.pubkeyFac.FromBytes(wire.PublicKey)
	if err != nil {
		return nil, xerrors.Errorf("public key: %v", err)
	}

	opts := make([]TransactionOption, 0, len(wire.Args)+1)
	for _, arg := range wire.Args {
		opts = append(opts, WithArg(arg.Key, arg.Value))
	}

	if len(wire.Signature) > 0 {
		sig, err := f.sigFac.FromBytes(wire.Signature)
		if err != nil {
			return nil, xerrors.Errorf("signature: %v", err)
		}

		opts = append(opts, WithSignature(sig))
	}

	tx, err := NewTransaction(wire.Nonce, pubkey, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create tx: %v", err)
	}

	return tx, nil
}

// Client is the interface the manager is using to get the nonce of an identity.
// It allows a local implementation, or through a network client.
type Client interface {
	GetNonce(access.Identity) (uint64, error)
}

// TransactionManager is a manager to create signed transactions. It manages the
// nonce by itself, except if the transaction is refused by the ledger. In that
// case the manager should be synchronized before creating a new one.
//
// - implements txn.Manager
type TransactionManager struct {
	client  Client
	signer  crypto.Signer
	nonce   uint64
	hashFac crypto.HashFactory
}

// NewManager creates a new transaction manager.
func NewManager(signer crypto.Signer, client Client) *TransactionManager {
	return &TransactionManager{
		client:  client,
		signer:  signer,
		nonce:   0,
		hashFac: crypto.NewSha256Factory(),
	}
}

// Make implements txn.Manager. It creates a transaction populated with the
// arguments.
func (mgr *TransactionManager) Make(args ...txn.Arg) (txn.Transaction, error) {
	opts := make([]TransactionOption, len(args), len(args)+1)
	for i, arg := range args {
		opts[i] = WithArg(arg.Key, arg.Value)
	}

	opts = append(opts, WithHashFactory(mgr.hashFac))

	tx, err := NewTransaction(mgr.nonce, mgr.signer.GetPublicKey(), opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create tx: %v", err)
	}

	err = tx.Sign(mgr.signer)
	if err != nil {
		return nil, xerrors.Errorf("failed to sign: %v", err)
	}

	mgr.nonce++

	return tx, nil
}

// Sync implements txn.Manager. It fetches the latest nonce of the signer to
// create valid transactions.
func (mgr *TransactionManager) Sync() error {
	nonce, err := mgr.client.GetNonce(mgr.signer.GetPublicKey())
	if err != nil {
		return xerrors.Errorf("client: %v", err)
	}

	mgr.nonce = nonce

	jellybean.Logger.Debug().Uint64("nonce", nonce).Msg("manager synchronized")

	return nil
}
