package machine

import (
	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean/contracts/asset"
	"go.dedis.ch/jellybean/contracts/machine/types"
	"golang.org/x/xerrors"
)

// claim settles the first prize of the buyer for the item at the index. The
// asset is transferred from the vault to the buyer, or the edition is printed
// for the buyer at the print target. The signer pays the print and receives
// the escrow of the edition, plus any storage freed in the prize record.
func (c *call) claim() error {
	m, err := c.loadMachine()
	if err != nil {
		return err
	}

	if m.State != types.StateSaleLive && m.State != types.StateSaleEnded {
		return xerrors.Errorf("cannot claim in state %v: %w", m.State, types.InvalidState)
	}

	buyer, err := c.addressArg(BuyerArg)
	if err != nil {
		return err
	}

	index, err := c.indexArg()
	if err != nil {
		return err
	}

	prizes, addr, exists, err := c.loadPrizes(buyer)
	if err != nil {
		return err
	}

	if !exists {
		return xerrors.Errorf("no prize for %s: %w", buyer, types.AccountNotInitialized)
	}

	prize, found := prizes.Take(index)
	if !found || int(index) >= len(m.Items) {
		return xerrors.Errorf("no prize for item %d: %w", index, types.InvalidItemIndex)
	}

	item := &m.Items[index]

	mint, found, err := c.optionalAddressArg(AssetArg)
	if err != nil {
		return err
	}

	if !found || !mint.Equals(item.Mint) {
		return xerrors.Errorf("item %d is %s: %w", index, item.Mint, types.InvalidAsset)
	}

	a, err := c.assets.Get(mint)
	if err != nil {
		return xerrors.Errorf("%v: %w", err, types.InvalidAsset)
	}

	vault, err := c.vault()
	if err != nil {
		return err
	}

	switch a.Kind {
	case asset.KindAsset:
		err = c.assets.Transfer(mint, vault, buyer)
		if err != nil {
			return xerrors.Errorf("failed to transfer: %w", err)
		}
	case asset.KindCollection:
		err = c.print(m, item, vault, buyer, prize)
		if err != nil {
			return err
		}
	default:
		return xerrors.Errorf("cannot claim a %v: %w", a.Kind, types.InvalidAsset)
	}

	item.SupplyClaimed++
	m.SupplySettled++

	err = c.savePrizes(addr, prizes, exists)
	if err != nil {
		return err
	}

	err = c.saveMachine(m)
	if err != nil {
		return err
	}

	c.emitClaim(ClaimItemEvent{
		Machine:       c.address,
		Authority:     m.Authority,
		Buyer:         buyer,
		Mint:          mint,
		EditionNumber: prize.EditionNumber,
	})

	return nil
}

// print releases the escrow share of the edition to the signer, charges the
// print fee and prints the edition owned by the buyer.
func (c *call) print(m *types.Machine, item *types.Item, vault, buyer solana.PublicKey, prize types.Prize) error {
	target, found, err := c.optionalAddressArg(PrintTargetArg)
	if err != nil {
		return err
	}

	if !found {
		return types.MissingPrintAsset
	}

	pending := uint64(item.SupplyRedeemed - item.SupplyClaimed)
	if pending > 0 && item.EscrowAmount > 0 {
		share := item.EscrowAmount / pending

		err = c.accounts.Transfer(vault, c.signer, share)
		if err != nil {
			return xerrors.Errorf("failed to release escrow: %w", err)
		}

		item.EscrowAmount -= share
	}

	if m.PrintFee != nil && m.PrintFee.Amount > 0 {
		err = c.accounts.Transfer(c.signer, m.PrintFee.Address, m.PrintFee.Amount)
		if err != nil {
			return xerrors.Errorf("failed to pay print fee: %w", err)
		}
	}

	_, err = c.assets.Print(item.Mint, vault, target, buyer, prize.EditionNumber, c.signer)
	if err != nil {
		return xerrors.Errorf("failed to print: %w", err)
	}

	return nil
}

// ClaimItemEvent is emitted for every successful claim.
type ClaimItemEvent struct {
	Machine       solana.PublicKey
	Authority     solana.PublicKey
	Buyer         solana.PublicKey
	Mint          solana.PublicKey
	EditionNumber uint32
}

func (c *call) emitClaim(e ClaimItemEvent) {
	promClaims.Inc()

	c.logger.Info().
		Str("event", "ClaimItem").
		Stringer("machine", e.Machine).
		Stringer("buyer", e.Buyer).
		Stringer("mint", e.Mint).
		Uint32("edition", e.EditionNumber).
		Msg("item claimed")
}
