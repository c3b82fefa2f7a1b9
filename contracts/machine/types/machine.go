// Package types defines the records of the machine program and their binary
// layout, the derivation of the program addresses and the error codes.
//
// A machine record is made of a header that reserves the maximum width of
// every field, followed by a table of items. The table starts right after the
// header and its length is given by the count of items loaded, which is part
// of the header. Decoding therefore happens in two phases: the header first,
// then the table sliced at the derived offset.
package types

import (
	"bytes"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean/crypto"
	"golang.org/x/xerrors"
)

const (
	// CurrentVersion is the version of the records written by the program.
	CurrentVersion uint8 = 1

	// MaxFeeAccounts is the maximum number of fee accounts of a machine.
	MaxFeeAccounts = 6

	// MaxUriLength is the maximum length in bytes of the uri of a machine.
	MaxUriLength = 196

	// MaxItems is the maximum number of items a machine can hold.
	MaxItems = math.MaxUint16

	// FeeAccountSize is the width of one fee account entry.
	FeeAccountSize = 32 + 2

	// ItemSize is the width of one item entry.
	ItemSize = 32 + 4 + 4 + 4 + 8

	// paddingSize is reserved at the end of the header.
	paddingSize = 320

	// BaseSize is the size of the header of a machine without any fee
	// account.
	BaseSize = 8 + // discriminator
		1 + // version
		32 + // authority
		32 + // mint authority
		4 + // fee accounts length
		1 + 32 + 8 + // print fee config
		2 + // items loaded
		8 + 8 + 8 + // supply loaded, redeemed and settled
		1 + // state
		4 + MaxUriLength +
		paddingSize
)

// MachineDiscriminator prefixes the data of every machine account.
var MachineDiscriminator = discriminator("JellybeanMachine")

// State is the lifecycle state of a machine.
type State uint8

const (
	// StateNone is the state before the sale starts. The items can be added
	// and removed.
	StateNone State = iota

	// StateSaleLive is the state where the buyers can draw.
	StateSaleLive

	// StateSaleEnded is the terminal state. The prizes can still be claimed.
	StateSaleEnded
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "None"
	case StateSaleLive:
		return "SaleLive"
	case StateSaleEnded:
		return "SaleEnded"
	default:
		return "Unknown"
	}
}

// FeeAccount is a recipient of a share of the sales.
type FeeAccount struct {
	Address     solana.PublicKey `json:"address"`
	BasisPoints uint16           `json:"basisPoints"`
}

// PrintFee is the fee charged for every edition printed by a claim.
type PrintFee struct {
	Address solana.PublicKey `json:"address"`
	Amount  uint64           `json:"amount"`
}

// Item is one entry of the pool. The mint is either a one-of-one asset with
// a supply of 1 or a collection printing up to its supply of editions.
type Item struct {
	Mint           solana.PublicKey `json:"mint"`
	SupplyLoaded   uint32           `json:"supplyLoaded"`
	SupplyRedeemed uint32           `json:"supplyRedeemed"`
	SupplyClaimed  uint32           `json:"supplyClaimed"`
	EscrowAmount   uint64           `json:"escrowAmount"`
}

// Remaining returns the supply that can still be drawn.
func (i Item) Remaining() uint32 {
	return i.SupplyLoaded - i.SupplyRedeemed
}

// Machine is the record of a pool of items.
type Machine struct {
	Version        uint8            `json:"version"`
	Authority      solana.PublicKey `json:"authority"`
	MintAuthority  solana.PublicKey `json:"mintAuthority"`
	FeeAccounts    []FeeAccount     `json:"feeAccounts"`
	PrintFee       *PrintFee        `json:"printFeeConfig,omitempty"`
	ItemsLoaded    uint16           `json:"itemsLoaded"`
	SupplyLoaded   uint64           `json:"supplyLoaded"`
	SupplyRedeemed uint64           `json:"supplyRedeemed"`
	SupplySettled  uint64           `json:"supplySettled"`
	State          State            `json:"state"`
	Uri            string           `json:"uri"`
	Items          []Item           `json:"items"`
}

// MachineSize returns the size of a machine account with the given number of
// fee accounts and items.
func MachineSize(feeAccounts, items int) int {
	return TableOffset(feeAccounts) + items*ItemSize
}

// TableOffset returns the offset of the item table in a machine account with
// the given number of fee accounts.
func TableOffset(feeAccounts int) int {
	return BaseSize + feeAccounts*FeeAccountSize
}

// Size returns the size of the account needed by the machine.
func (m *Machine) Size() int {
	return MachineSize(len(m.FeeAccounts), len(m.Items))
}

// Remaining returns the supply that can still be drawn.
func (m *Machine) Remaining() uint64 {
	return m.SupplyLoaded - m.SupplyRedeemed
}

// Encode returns the binary form of the machine for an account of the given
// capacity.
func (m *Machine) Encode(capacity int) ([]byte, error) {
	if len(m.FeeAccounts) > MaxFeeAccounts {
		return nil, xerrors.Errorf("%d fee accounts: %w", len(m.FeeAccounts), TooManyFeeAccounts)
	}

	if len(m.Uri) > MaxUriLength {
		return nil, xerrors.Errorf("uri of %d bytes: %w", len(m.Uri), UriTooLong)
	}

	if len(m.Items) > MaxItems {
		return nil, xerrors.Errorf("%d items: %w", len(m.Items), TooManyItems)
	}

	if int(m.ItemsLoaded) != len(m.Items) {
		return nil, xerrors.Errorf("%d items loaded for a table of %d: %w",
			m.ItemsLoaded, len(m.Items), InvalidInputLength)
	}

	size := m.Size()
	if size != capacity {
		return nil, xerrors.Errorf("size %d != capacity %d: %w", size, capacity, SizeMismatch)
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	enc := bin.NewBorshEncoder(buf)

	fields := []interface{}{
		MachineDiscriminator,
		m.Version,
		m.Authority,
		m.MintAuthority,
		m.FeeAccounts,
	}

	if m.PrintFee != nil {
		fields = append(fields, uint8(1), m.PrintFee.Address, m.PrintFee.Amount)
	} else {
		fields = append(fields, uint8(0))
	}

	fields = append(fields,
		m.ItemsLoaded,
		m.SupplyLoaded,
		m.SupplyRedeemed,
		m.SupplySettled,
		m.State,
		m.Uri,
	)

	for _, field := range fields {
		err := enc.Encode(field)
		if err != nil {
			return nil, xerrors.Errorf("failed to encode header: %v", err)
		}
	}

	buf.Write(make([]byte, TableOffset(len(m.FeeAccounts))-buf.Len()))

	for i, item := range m.Items {
		err := enc.Encode(item)
		if err != nil {
			return nil, xerrors.Errorf("failed to encode item %d: %v", i, err)
		}
	}

	return buf.Bytes(), nil
}

// DecodeMachine returns the machine from the data of its account.
func DecodeMachine(data []byte) (*Machine, error) {
	if len(data) < BaseSize {
		return nil, xerrors.Errorf("%d bytes for a header of %d: %w", len(data), BaseSize, SizeMismatch)
	}

	dec := bin.NewBorshDecoder(data)

	var disc [8]byte

	err := dec.Decode(&disc)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode discriminator: %v", err)
	}

	if disc != MachineDiscriminator {
		return nil, xerrors.Errorf("discriminator %x: %w", disc, InvalidJellybeanMachine)
	}

	m := &Machine{}

	err = decodeFields(dec, &m.Version, &m.Authority, &m.MintAuthority)
	if err != nil {
		return nil, err
	}

	var count uint32

	err = dec.Decode(&count)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode fee accounts: %v", err)
	}

	if count > MaxFeeAccounts {
		return nil, xerrors.Errorf("%d fee accounts: %w", count, TooManyFeeAccounts)
	}

	m.FeeAccounts = make([]FeeAccount, count)
	for i := range m.FeeAccounts {
		err = decodeFields(dec, &m.FeeAccounts[i].Address, &m.FeeAccounts[i].BasisPoints)
		if err != nil {
			return nil, err
		}
	}

	var tag uint8

	err = dec.Decode(&tag)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode print fee: %v", err)
	}

	switch tag {
	case 0:
	case 1:
		m.PrintFee = &PrintFee{}

		err = decodeFields(dec, &m.PrintFee.Address, &m.PrintFee.Amount)
		if err != nil {
			return nil, err
		}
	default:
		return nil, xerrors.Errorf("print fee tag %d: %w", tag, InvalidInputLength)
	}

	err = decodeFields(dec, &m.ItemsLoaded, &m.SupplyLoaded, &m.SupplyRedeemed,
		&m.SupplySettled, &m.State, &m.Uri)
	if err != nil {
		return nil, err
	}

	if len(m.Uri) > MaxUriLength {
		return nil, xerrors.Errorf("uri of %d bytes: %w", len(m.Uri), UriTooLong)
	}

	// The table is sliced at the derived offset with the count of the header.
	offset := TableOffset(len(m.FeeAccounts))
	end := MachineSize(len(m.FeeAccounts), int(m.ItemsLoaded))

	if len(data) < end {
		return nil, xerrors.Errorf("%d bytes for %d items: %w", len(data), m.ItemsLoaded, SizeMismatch)
	}

	table := bin.NewBorshDecoder(data[offset:end])

	m.Items = make([]Item, m.ItemsLoaded)
	for i := range m.Items {
		err = table.Decode(&m.Items[i])
		if err != nil {
			return nil, xerrors.Errorf("failed to decode item %d: %v", i, err)
		}
	}

	return m, nil
}

func decodeFields(dec *bin.Decoder, fields ...interface{}) error {
	for _, field := range fields {
		err := dec.Decode(field)
		if err != nil {
			return xerrors.Errorf("failed to decode %T: %v", field, err)
		}
	}

	return nil
}

func discriminator(name string) [8]byte {
	var disc [8]byte
	copy(disc[:], crypto.Digest(crypto.NewSha256Factory(), []byte("account:"+name)))

	return disc
}
