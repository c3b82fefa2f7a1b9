package asset

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean/core/account"
	"golang.org/x/xerrors"
)

// Kind is the kind of an asset record.
type Kind uint8

const (
	// KindAsset is a one-of-one asset.
	KindAsset Kind = iota + 1

	// KindCollection is a collection, which can print editions when it has a
	// master edition.
	KindCollection

	// KindEdition is a numbered print of a collection.
	KindEdition
)

func (k Kind) String() string {
	switch k {
	case KindAsset:
		return "asset"
	case KindCollection:
		return "collection"
	case KindEdition:
		return "edition"
	default:
		return "unknown"
	}
}

// MaxUriLength is the maximum length of the uri of an asset.
const MaxUriLength = 200

// EditionSize is the size of the record of a printed edition.
const EditionSize = 1 + 32 + 32 + 4 + 1 + 8 + 8 + 32 + 4

var (
	// ErrNotFound is returned when the address does not hold an asset.
	ErrNotFound = xerrors.New("asset not found")

	// ErrNotOwner is returned when the asset is not held by the expected
	// owner.
	ErrNotOwner = xerrors.New("not the owner")

	// ErrNotAuthority is returned when the update authority does not match.
	ErrNotAuthority = xerrors.New("not the update authority")

	// ErrWrongKind is returned when the operation does not apply to the kind
	// of the asset.
	ErrWrongKind = xerrors.New("wrong kind of asset")

	// ErrNoMasterEdition is returned when printing from a collection without
	// a master edition.
	ErrNoMasterEdition = xerrors.New("collection has no master edition")

	// ErrSupplyExhausted is returned when the master edition cannot print
	// any more edition.
	ErrSupplyExhausted = xerrors.New("master edition supply exhausted")

	// ErrInvalidNumber is returned for an edition number outside of the
	// supply.
	ErrInvalidNumber = xerrors.New("invalid edition number")
)

// Asset is the record of a one-of-one asset, a collection or an edition.
//
// A collection with a master edition can print up to MaxSupply editions. A
// MaxSupply of zero means the supply is unlimited.
type Asset struct {
	Kind            Kind
	Owner           solana.PublicKey
	UpdateAuthority solana.PublicKey
	Uri             string

	MasterEdition bool
	MaxSupply     uint64
	CurrentSize   uint64

	Parent solana.PublicKey
	Number uint32
}

// Encode returns the binary form of the asset.
func (a Asset) Encode() ([]byte, error) {
	if len(a.Uri) > MaxUriLength {
		return nil, xerrors.Errorf("uri of %d bytes exceeds %d", len(a.Uri), MaxUriLength)
	}

	buf := new(bytes.Buffer)

	err := bin.NewBorshEncoder(buf).Encode(a)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode: %v", err)
	}

	return buf.Bytes(), nil
}

// Decode returns the asset from its binary form.
func Decode(data []byte) (Asset, error) {
	var a Asset

	err := bin.NewBorshDecoder(data).Decode(&a)
	if err != nil {
		return a, xerrors.Errorf("failed to decode: %v", err)
	}

	if a.Kind < KindAsset || a.Kind > KindEdition {
		return a, xerrors.Errorf("invalid kind %d", a.Kind)
	}

	return a, nil
}

// EditionRent returns the balance needed to store a printed edition.
func EditionRent(rent account.Rent) uint64 {
	return rent.MinimumBalance(EditionSize)
}
