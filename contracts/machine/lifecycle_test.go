package machine

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/jellybean/contracts/machine/types"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/core/txn/signed"
	"go.dedis.ch/jellybean/crypto/ed25519"
	"golang.org/x/xerrors"
)

func TestInitialize(t *testing.T) {
	h := newHarness(t)

	h.mustInitialize()

	m := h.load()
	require.Equal(t, types.CurrentVersion, m.Version)
	require.Equal(t, h.authAddr, m.Authority)
	require.Equal(t, h.authAddr, m.MintAuthority)
	require.Equal(t, []types.FeeAccount{{Address: h.authAddr, BasisPoints: 10000}}, m.FeeAccounts)
	require.Nil(t, m.PrintFee)
	require.Equal(t, uint16(0), m.ItemsLoaded)
	require.Equal(t, uint64(0), m.SupplyLoaded)
	require.Equal(t, uint64(0), m.SupplyRedeemed)
	require.Equal(t, types.StateNone, m.State)
	require.Equal(t, "https://example.com/m.json", m.Uri)

	rent := account.DefaultRent.MinimumBalance(types.MachineSize(1, 0))
	require.Equal(t, uint64(initialFunds)-rent, h.balance(h.authAddr))

	h.checkInvariants()

	err := h.initialize(types.Settings{})
	require.True(t, xerrors.Is(err, types.AccountAlreadyInUse))
}

func TestInitialize_FundedAddress(t *testing.T) {
	h := newHarness(t)

	h.machine = h.fund(ed25519.NewSigner())

	err := h.initialize(types.Settings{})
	require.True(t, xerrors.Is(err, types.AccountAlreadyInUse))

	acc, found, err := h.accounts.Get(h.machine)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, account.SystemProgram, acc.Owner)
	require.Empty(t, acc.Data)
	require.Equal(t, uint64(initialFunds), acc.Lamports)

	// The authority cannot withdraw what it never owned.
	err = h.exec(h.authority, CmdWithdraw)
	require.True(t, xerrors.Is(err, types.UninitializedAccount))
	require.Equal(t, uint64(initialFunds), h.balance(h.machine))
	require.Equal(t, uint64(initialFunds), h.balance(h.authAddr))
}

func TestInitialize_MintAuthority(t *testing.T) {
	h := newHarness(t)

	delegate := newAddress()

	err := h.initialize(types.Settings{}, signed.WithArg(MintAuthorityArg, delegate[:]))
	require.NoError(t, err)

	m := h.load()
	require.Equal(t, delegate, m.MintAuthority)
	require.Empty(t, m.FeeAccounts)
	require.Len(t, h.snapshotData(), types.MachineSize(0, 0))
}

func TestInitialize_Failures(t *testing.T) {
	h := newHarness(t)

	err := h.initialize(types.Settings{
		FeeAccounts: []types.FeeAccount{{BasisPoints: 5000}, {BasisPoints: 4000}},
	})
	require.True(t, xerrors.Is(err, types.InvalidFeeAccountBasisPoints))

	err = h.initialize(types.Settings{Uri: string(make([]byte, types.MaxUriLength+1))})
	require.True(t, xerrors.Is(err, types.UriTooLong))

	err = h.initialize(types.Settings{FeeAccounts: make([]types.FeeAccount, 7)})
	require.True(t, xerrors.Is(err, types.TooManyFeeAccounts))

	err = h.exec(h.authority, CmdInitialize, signed.WithArg(SettingsArg, []byte{1}))
	require.True(t, xerrors.Is(err, types.InvalidInputLength))

	poor := ed25519.NewSigner()

	err = h.exec(poor, CmdInitialize, signed.WithArg(SettingsArg, encodeSettings(t, types.Settings{})))
	require.True(t, xerrors.Is(err, account.ErrInsufficientFunds))

	// Nothing has been written by the failures.
	_, found, err := h.accounts.Get(h.machine)
	require.NoError(t, err)
	require.False(t, found)
}

func TestStartSale(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()

	err := h.exec(h.authority, CmdStartSale)
	require.True(t, xerrors.Is(err, types.JellybeanMachineEmpty))

	require.NoError(t, h.addItem(h.createAsset()))

	other := ed25519.NewSigner()
	h.fund(other)

	err = h.exec(other, CmdStartSale)
	require.True(t, xerrors.Is(err, types.InvalidAuthority))

	require.NoError(t, h.exec(h.authority, CmdStartSale))
	require.Equal(t, types.StateSaleLive, h.load().State)

	err = h.exec(h.authority, CmdStartSale)
	require.True(t, xerrors.Is(err, types.InvalidState))
}

func TestStartSale_MintAuthority(t *testing.T) {
	h := newHarness(t)

	delegate := ed25519.NewSigner()
	delegateAddr := h.fund(delegate)

	err := h.initialize(types.Settings{}, signed.WithArg(MintAuthorityArg, delegateAddr[:]))
	require.NoError(t, err)

	require.NoError(t, h.addItem(h.createAsset()))
	require.NoError(t, h.exec(delegate, CmdStartSale))
	require.Equal(t, types.StateSaleLive, h.load().State)

	// The mint authority cannot end the sale.
	err = h.exec(delegate, CmdEndSale)
	require.True(t, xerrors.Is(err, types.InvalidAuthority))
}

func TestEndSale(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()

	// A machine can be cancelled before the sale starts.
	require.NoError(t, h.exec(h.authority, CmdEndSale))
	require.Equal(t, types.StateSaleEnded, h.load().State)

	err := h.exec(h.authority, CmdEndSale)
	require.True(t, xerrors.Is(err, types.InvalidState))

	err = h.exec(h.authority, CmdStartSale)
	require.True(t, xerrors.Is(err, types.InvalidState))

	h = newHarness(t)
	h.mustInitialize()

	require.NoError(t, h.addItem(h.createCollection(10)))
	require.NoError(t, h.exec(h.authority, CmdStartSale))
	require.NoError(t, h.exec(h.authority, CmdEndSale))
	require.Equal(t, types.StateSaleEnded, h.load().State)

	err = h.draw(newAddress())
	require.True(t, xerrors.Is(err, types.InvalidState))
}

func TestUpdateSettings(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()

	require.NoError(t, h.addItem(h.createCollection(5)))

	feeAddr := newAddress()

	settings := types.Settings{
		Uri:         "https://example.com/updated.json",
		FeeAccounts: []types.FeeAccount{{Address: feeAddr, BasisPoints: 10000}},
		PrintFee:    &types.PrintFee{Address: feeAddr, Amount: 10},
	}

	require.NoError(t, h.exec(h.authority, CmdUpdateSettings,
		signed.WithArg(SettingsArg, encodeSettings(t, settings))))

	m := h.load()
	require.Equal(t, settings.Uri, m.Uri)
	require.Equal(t, settings.FeeAccounts, m.FeeAccounts)
	require.Equal(t, settings.PrintFee, m.PrintFee)
	require.Len(t, m.Items, 1)

	h.checkInvariants()

	// Settings can be updated in any state.
	require.NoError(t, h.exec(h.authority, CmdStartSale))
	require.NoError(t, h.draw(newAddress()))

	settings.Uri = "https://example.com/live.json"
	require.NoError(t, h.exec(h.authority, CmdUpdateSettings,
		signed.WithArg(SettingsArg, encodeSettings(t, settings))))
	require.Equal(t, settings.Uri, h.load().Uri)

	h.checkInvariants()
}

func TestUpdateSettings_Failures(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()

	settings := types.Settings{
		FeeAccounts: []types.FeeAccount{{BasisPoints: 5000}, {BasisPoints: 5000}},
	}

	err := h.exec(h.authority, CmdUpdateSettings, signed.WithArg(SettingsArg, encodeSettings(t, settings)))
	require.True(t, xerrors.Is(err, types.InvalidFeeAccountsLength))

	settings.FeeAccounts = []types.FeeAccount{{BasisPoints: 9999}}

	err = h.exec(h.authority, CmdUpdateSettings, signed.WithArg(SettingsArg, encodeSettings(t, settings)))
	require.True(t, xerrors.Is(err, types.InvalidFeeAccountBasisPoints))

	settings.FeeAccounts = []types.FeeAccount{{BasisPoints: 10000}}

	other := ed25519.NewSigner()
	h.fund(other)

	err = h.exec(other, CmdUpdateSettings, signed.WithArg(SettingsArg, encodeSettings(t, settings)))
	require.True(t, xerrors.Is(err, types.InvalidAuthority))
}

func TestSetMintAuthority(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()

	delegate := ed25519.NewSigner()
	delegateAddr := h.fund(delegate)

	err := h.exec(delegate, CmdSetMintAuthority, signed.WithArg(MintAuthorityArg, delegateAddr[:]))
	require.True(t, xerrors.Is(err, types.InvalidAuthority))

	err = h.exec(h.authority, CmdSetMintAuthority)
	require.EqualError(t, err, "failed to SET_MINT_AUTHORITY: 'machine:mint_authority' not found in tx arg")

	require.NoError(t, h.exec(h.authority, CmdSetMintAuthority,
		signed.WithArg(MintAuthorityArg, delegateAddr[:])))
	require.Equal(t, delegateAddr, h.load().MintAuthority)

	require.NoError(t, h.addItem(h.createCollection(3)))
	require.NoError(t, h.exec(h.authority, CmdStartSale))

	// Only the mint authority can draw.
	err = h.draw(newAddress())
	require.True(t, xerrors.Is(err, types.InvalidMintAuthority))

	buyer := newAddress()
	require.NoError(t, h.exec(delegate, CmdDraw, signed.WithArg(BuyerArg, buyer[:])))

	_, found := h.prizes(buyer)
	require.True(t, found)
}

func TestWithdraw(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()

	mint := h.createAsset()
	require.NoError(t, h.addItem(mint))

	err := h.exec(h.authority, CmdWithdraw)
	require.True(t, xerrors.Is(err, types.ItemsStillLoaded))

	require.NoError(t, h.removeItem(0, mint))

	other := ed25519.NewSigner()
	h.fund(other)

	err = h.exec(other, CmdWithdraw)
	require.True(t, xerrors.Is(err, types.InvalidAuthority))

	before := h.balance(h.authAddr)
	lamports := h.balance(h.machine)

	require.NoError(t, h.exec(h.authority, CmdWithdraw))

	_, found, err := h.accounts.Get(h.machine)
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, before+lamports, h.balance(h.authAddr))

	err = h.exec(h.authority, CmdStartSale)
	require.True(t, xerrors.Is(err, types.UninitializedAccount))
}

func TestWithdraw_Unsettled(t *testing.T) {
	h := newHarness(t)
	h.mustInitialize()

	require.NoError(t, h.addItem(h.createCollection(2)))
	require.NoError(t, h.exec(h.authority, CmdStartSale))
	require.NoError(t, h.draw(newAddress()))

	err := h.exec(h.authority, CmdWithdraw)
	require.True(t, xerrors.Is(err, types.ItemsStillLoaded))
}

// -----------------------------------------------------------------------------
// Utility functions

func encodeSettings(t *testing.T, s types.Settings) []byte {
	data, err := s.Encode()
	require.NoError(t, err)

	return data
}

func (h *harness) snapshotData() []byte {
	acc, _, err := h.accounts.Get(h.machine)
	require.NoError(h.t, err)

	return acc.Data
}
