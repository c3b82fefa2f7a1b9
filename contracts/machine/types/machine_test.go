package types

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/jellybean/crypto"
	"golang.org/x/xerrors"
)

func TestSizes(t *testing.T) {
	require.Equal(t, 665, BaseSize)
	require.Equal(t, 34, FeeAccountSize)
	require.Equal(t, 52, ItemSize)
	require.Equal(t, 665, MachineSize(0, 0))
	require.Equal(t, 665+2*34+3*52, MachineSize(2, 3))
	require.Equal(t, 665+34, TableOffset(1))
}

func TestDiscriminator(t *testing.T) {
	digest := crypto.Digest(crypto.NewSha256Factory(), []byte("account:JellybeanMachine"))
	require.Equal(t, digest[:8], MachineDiscriminator[:])
	require.NotEqual(t, MachineDiscriminator, PrizesDiscriminator)
}

func TestState_String(t *testing.T) {
	require.Equal(t, "None", StateNone.String())
	require.Equal(t, "SaleLive", StateSaleLive.String())
	require.Equal(t, "SaleEnded", StateSaleEnded.String())
	require.Equal(t, "Unknown", State(9).String())
}

func TestMachine_Encode_Decode(t *testing.T) {
	m := makeMachine()

	data, err := m.Encode(m.Size())
	require.NoError(t, err)
	require.Len(t, data, MachineSize(2, 2))

	decoded, err := DecodeMachine(data)
	require.NoError(t, err)
	require.Equal(t, m, decoded)

	// The items start at the derived offset.
	offset := TableOffset(2)
	require.Equal(t, m.Items[0].Mint[:], data[offset:offset+32])
	require.Equal(t, m.Items[1].Mint[:], data[offset+ItemSize:offset+ItemSize+32])

	m.PrintFee = nil
	m.Uri = string(make([]byte, MaxUriLength))

	data, err = m.Encode(m.Size())
	require.NoError(t, err)

	decoded, err = DecodeMachine(data)
	require.NoError(t, err)
	require.Equal(t, m, decoded)
}

func TestMachine_Encode_Maximum(t *testing.T) {
	m := &Machine{
		FeeAccounts: make([]FeeAccount, MaxFeeAccounts),
		PrintFee:    &PrintFee{Amount: 1},
		Uri:         string(make([]byte, MaxUriLength)),
	}

	data, err := m.Encode(MachineSize(MaxFeeAccounts, 0))
	require.NoError(t, err)

	decoded, err := DecodeMachine(data)
	require.NoError(t, err)
	require.Equal(t, m.Uri, decoded.Uri)
	require.Len(t, decoded.FeeAccounts, MaxFeeAccounts)
}

func TestMachine_Encode_Failures(t *testing.T) {
	m := makeMachine()

	_, err := m.Encode(m.Size() + 1)
	require.True(t, xerrors.Is(err, SizeMismatch))

	m.Uri = string(make([]byte, MaxUriLength+1))
	_, err = m.Encode(m.Size())
	require.True(t, xerrors.Is(err, UriTooLong))

	m = makeMachine()
	m.FeeAccounts = make([]FeeAccount, MaxFeeAccounts+1)
	_, err = m.Encode(m.Size())
	require.True(t, xerrors.Is(err, TooManyFeeAccounts))

	m = makeMachine()
	m.Items = make([]Item, MaxItems+1)
	_, err = m.Encode(m.Size())
	require.True(t, xerrors.Is(err, TooManyItems))

	m = makeMachine()
	m.ItemsLoaded = 5
	_, err = m.Encode(m.Size())
	require.True(t, xerrors.Is(err, InvalidInputLength))
}

func TestDecodeMachine_Failures(t *testing.T) {
	_, err := DecodeMachine(make([]byte, BaseSize-1))
	require.True(t, xerrors.Is(err, SizeMismatch))

	_, err = DecodeMachine(make([]byte, BaseSize))
	require.True(t, xerrors.Is(err, InvalidJellybeanMachine))

	m := makeMachine()

	data, err := m.Encode(m.Size())
	require.NoError(t, err)

	// The table is cut in the middle of the last item.
	_, err = DecodeMachine(data[:len(data)-1])
	require.True(t, xerrors.Is(err, SizeMismatch))

	// The header claims more fee accounts than allowed.
	bad := append([]byte{}, data...)
	bad[8+1+32+32] = MaxFeeAccounts + 1
	_, err = DecodeMachine(bad)
	require.True(t, xerrors.Is(err, TooManyFeeAccounts))

	// The option of the print fee is neither none nor some.
	bad = append([]byte{}, data...)
	bad[8+1+32+32+4+2*FeeAccountSize] = 2
	_, err = DecodeMachine(bad)
	require.True(t, xerrors.Is(err, InvalidInputLength))
}

func TestMachine_Remaining(t *testing.T) {
	m := makeMachine()
	require.Equal(t, uint64(5), m.Remaining())
	require.Equal(t, uint32(0), m.Items[0].Remaining())
	require.Equal(t, uint32(5), m.Items[1].Remaining())
}

// -----------------------------------------------------------------------------
// Utility functions

func makeMachine() *Machine {
	return &Machine{
		Version:       CurrentVersion,
		Authority:     solana.PublicKey{1},
		MintAuthority: solana.PublicKey{2},
		FeeAccounts: []FeeAccount{
			{Address: solana.PublicKey{3}, BasisPoints: 4000},
			{Address: solana.PublicKey{4}, BasisPoints: 6000},
		},
		PrintFee:       &PrintFee{Address: solana.PublicKey{5}, Amount: 1000},
		ItemsLoaded:    2,
		SupplyLoaded:   11,
		SupplyRedeemed: 6,
		SupplySettled:  3,
		State:          StateSaleLive,
		Uri:            "https://example.com/m.json",
		Items: []Item{
			{Mint: solana.PublicKey{6}, SupplyLoaded: 1, SupplyRedeemed: 1, SupplyClaimed: 1},
			{Mint: solana.PublicKey{7}, SupplyLoaded: 10, SupplyRedeemed: 5, SupplyClaimed: 2, EscrowAmount: 99},
		},
	}
}
