package machine

import (
	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean/contracts/asset"
	"go.dedis.ch/jellybean/contracts/machine/types"
	"go.dedis.ch/jellybean/core/sysvar"
	"golang.org/x/xerrors"
)

// draw selects an item at random for the buyer and records the prize. The
// probability of an item is proportional to its remaining supply, computed
// again for every draw.
//
// The signer must be the mint authority, unless the mint authority is the
// guard of the ledger in which case anyone can draw. The signer is the payer
// of the guard, the escrow and the prize record.
func (c *call) draw() error {
	m, err := c.loadMachine()
	if err != nil {
		return err
	}

	gated := m.MintAuthority.Equals(types.GuardAuthority)

	if !gated && !c.signer.Equals(m.MintAuthority) {
		return xerrors.Errorf("%s: %w", c.signer, types.InvalidMintAuthority)
	}

	if m.State != types.StateSaleLive || m.SupplyRedeemed >= m.SupplyLoaded {
		return xerrors.Errorf("cannot draw in state %v with %d/%d redeemed: %w",
			m.State, m.SupplyRedeemed, m.SupplyLoaded, types.InvalidState)
	}

	buyer, err := c.addressArg(BuyerArg)
	if err != nil {
		return err
	}

	req := DrawRequest{
		Machine:     c.address,
		Buyer:       buyer,
		Payer:       c.signer,
		FeeAccounts: m.FeeAccounts,
		PrintFee:    m.PrintFee,
	}

	err = c.guard.Authorize(c.accounts, req)
	if err != nil {
		return xerrors.Errorf("guard: %w", err)
	}

	state, err := sysvar.Read(c.snap)
	if err != nil {
		return xerrors.Errorf("sysvar: %v", err)
	}

	seed := state.Seed(c.step.Current.GetID())

	index, err := pick(m.Items, seed%m.Remaining())
	if err != nil {
		return err
	}

	item := &m.Items[index]
	item.SupplyRedeemed++
	m.SupplyRedeemed++

	prize := types.Prize{
		ItemIndex:     index,
		EditionNumber: item.SupplyRedeemed,
	}

	if m.SupplyRedeemed == m.SupplyLoaded {
		m.State = types.StateSaleEnded
	}

	err = c.escrow(item)
	if err != nil {
		return err
	}

	prizes, addr, exists, err := c.loadPrizes(buyer)
	if err != nil {
		return err
	}

	prizes.Prizes = append(prizes.Prizes, prize)

	err = c.savePrizes(addr, prizes, exists)
	if err != nil {
		return err
	}

	err = c.saveMachine(m)
	if err != nil {
		return err
	}

	c.emitDraw(DrawItemEvent{
		Machine:       c.address,
		Authority:     m.Authority,
		Buyer:         buyer,
		Mint:          item.Mint,
		Index:         prize.ItemIndex,
		EditionNumber: prize.EditionNumber,
	})

	if m.State == types.StateSaleEnded {
		c.logger.Info().Stringer("machine", c.address).Msg("supply exhausted")
	}

	return nil
}

// escrow moves to the vault the balance needed later to print the edition of
// a collection item.
func (c *call) escrow(item *types.Item) error {
	a, err := c.assets.Get(item.Mint)
	if err != nil {
		return xerrors.Errorf("%v: %w", err, types.InvalidAsset)
	}

	if a.Kind != asset.KindCollection {
		return nil
	}

	vault, err := c.vault()
	if err != nil {
		return err
	}

	amount := asset.EditionRent(c.accounts.Rent())

	err = c.accounts.Transfer(c.signer, vault, amount)
	if err != nil {
		return xerrors.Errorf("failed to escrow: %w", err)
	}

	if item.EscrowAmount+amount < item.EscrowAmount {
		return types.NumericalOverflowError
	}

	item.EscrowAmount += amount

	return nil
}

// pick returns the index of the item that covers the target when the
// remaining supplies are laid end to end.
func pick(items []types.Item, target uint64) (uint16, error) {
	var covered uint64

	for i, item := range items {
		remaining := uint64(item.Remaining())
		if remaining == 0 {
			continue
		}

		if target < covered+remaining {
			return uint16(i), nil
		}

		covered += remaining
	}

	return 0, xerrors.Errorf("target %d beyond %d: %w", target, covered, types.IndexGreaterThanLength)
}

// DrawItemEvent is emitted for every successful draw.
type DrawItemEvent struct {
	Machine       solana.PublicKey
	Authority     solana.PublicKey
	Buyer         solana.PublicKey
	Mint          solana.PublicKey
	Index         uint16
	EditionNumber uint32
}

func (c *call) emitDraw(e DrawItemEvent) {
	promDraws.Inc()

	c.logger.Info().
		Str("event", "DrawItem").
		Stringer("machine", e.Machine).
		Stringer("buyer", e.Buyer).
		Stringer("mint", e.Mint).
		Uint16("index", e.Index).
		Uint32("edition", e.EditionNumber).
		Msg("item drawn")
}
