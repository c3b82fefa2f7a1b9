package machine

import (
	"math"

	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean/contracts/asset"
	"go.dedis.ch/jellybean/contracts/machine/types"
	"golang.org/x/xerrors"
)

// addItem appends an asset or a collection to the pool. A one-of-one asset is
// moved to the vault, while a collection hands its update authority to the
// vault so that the claims can print the editions.
func (c *call) addItem() error {
	m, err := c.loadMachine()
	if err != nil {
		return err
	}

	err = c.requireAuthority(m)
	if err != nil {
		return err
	}

	if m.State != types.StateNone || m.SupplyRedeemed > 0 {
		return xerrors.Errorf("cannot add an item in state %v: %w", m.State, types.InvalidState)
	}

	if len(m.Items) >= types.MaxItems {
		return xerrors.Errorf("%d items: %w", len(m.Items), types.TooManyItems)
	}

	mint, a, err := c.assetArg()
	if err != nil {
		return err
	}

	vault, err := c.vault()
	if err != nil {
		return err
	}

	var supply uint32

	switch a.Kind {
	case asset.KindAsset:
		err = c.assets.Transfer(mint, c.signer, vault)
		if err != nil {
			return xerrors.Errorf("%v: %w", err, types.InvalidAsset)
		}

		supply = 1
	case asset.KindCollection:
		supply, err = editionSupply(a)
		if err != nil {
			return err
		}

		err = c.assets.SetUpdateAuthority(mint, c.signer, vault)
		if err != nil {
			return xerrors.Errorf("%v: %w", err, types.InvalidAuthority)
		}
	default:
		return xerrors.Errorf("cannot load a %v: %w", a.Kind, types.InvalidAsset)
	}

	if m.SupplyLoaded+uint64(supply) < m.SupplyLoaded {
		return types.NumericalOverflowError
	}

	m.Items = append(m.Items, types.Item{
		Mint:         mint,
		SupplyLoaded: supply,
	})

	m.ItemsLoaded++
	m.SupplyLoaded += uint64(supply)

	err = c.saveMachine(m)
	if err != nil {
		return err
	}

	c.logger.Info().
		Stringer("machine", c.address).
		Stringer("mint", mint).
		Uint32("supply", supply).
		Int("index", len(m.Items)-1).
		Msg("item added")

	return nil
}

// removeItem returns the item at the index to the authority and compacts the
// table. The indices of the items after it are shifted, which is safe because
// no prize can exist before the sale.
func (c *call) removeItem() error {
	m, err := c.loadMachine()
	if err != nil {
		return err
	}

	err = c.requireAuthority(m)
	if err != nil {
		return err
	}

	if m.State != types.StateNone {
		return xerrors.Errorf("cannot remove an item in state %v: %w", m.State, types.InvalidState)
	}

	index, err := c.indexArg()
	if err != nil {
		return err
	}

	if int(index) >= len(m.Items) {
		return xerrors.Errorf("index %d for %d items: %w", index, len(m.Items), types.IndexGreaterThanLength)
	}

	item := m.Items[index]

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
		err = c.assets.Transfer(mint, vault, m.Authority)
	default:
		err = c.assets.SetUpdateAuthority(mint, vault, m.Authority)
	}

	if err != nil {
		return xerrors.Errorf("failed to return the item: %w", err)
	}

	err = c.accounts.Transfer(vault, m.Authority, item.EscrowAmount)
	if err != nil {
		return xerrors.Errorf("failed to return the escrow: %w", err)
	}

	m.Items = append(m.Items[:index], m.Items[index+1:]...)
	m.ItemsLoaded--
	m.SupplyLoaded -= uint64(item.SupplyLoaded)

	err = c.saveMachine(m)
	if err != nil {
		return err
	}

	c.logger.Info().
		Stringer("machine", c.address).
		Stringer("mint", mint).
		Uint16("index", index).
		Msg("item removed")

	return nil
}

// assetArg reads the asset of the transaction.
func (c *call) assetArg() (solana.PublicKey, asset.Asset, error) {
	mint, found, err := c.optionalAddressArg(AssetArg)
	if err != nil {
		return mint, asset.Asset{}, err
	}

	if !found {
		return mint, asset.Asset{}, xerrors.Errorf("'%s' not found in tx arg: %w", AssetArg, types.InvalidAsset)
	}

	a, err := c.assets.Get(mint)
	if err != nil {
		return mint, a, xerrors.Errorf("%v: %w", err, types.InvalidAsset)
	}

	return mint, a, nil
}

// editionSupply returns the number of editions a collection can print for the
// machine. The master edition must be bounded and nothing printed yet.
func editionSupply(a asset.Asset) (uint32, error) {
	if !a.MasterEdition {
		return 0, types.MissingMasterEdition
	}

	if a.MaxSupply == 0 {
		return 0, xerrors.Errorf("unlimited supply: %w", types.InvalidMasterEditionSupply)
	}

	if a.CurrentSize > 0 {
		return 0, xerrors.Errorf("%d editions printed: %w", a.CurrentSize, types.MasterEditionNotEmpty)
	}

	if a.MaxSupply > math.MaxUint32 {
		return 0, xerrors.Errorf("supply %d: %w", a.MaxSupply, types.NumericalOverflowError)
	}

	return uint32(a.MaxSupply), nil
}
