package machine

import (
	"go.dedis.ch/jellybean/contracts/machine/types"
	"go.dedis.ch/jellybean/core/account"
	"golang.org/x/xerrors"
)

// initialize creates the machine at the address of the call, which must not
// hold any lamports or data. The signer becomes the authority and pays for
// the account.
func (c *call) initialize() error {
	settings, err := c.settingsArg()
	if err != nil {
		return err
	}

	mintAuthority, found, err := c.optionalAddressArg(MintAuthorityArg)
	if err != nil {
		return err
	}

	if !found {
		mintAuthority = c.signer
	}

	m := &types.Machine{
		Version:       types.CurrentVersion,
		Authority:     c.signer,
		MintAuthority: mintAuthority,
		State:         types.StateNone,
	}

	settings.Apply(m)

	err = c.accounts.Create(c.address, types.ProgramID, m.Size(), c.signer)
	if err != nil {
		if xerrors.Is(err, account.ErrAccountInUse) {
			return xerrors.Errorf("%v: %w", err, types.AccountAlreadyInUse)
		}

		return xerrors.Errorf("failed to allocate: %w", err)
	}

	err = c.saveMachine(m)
	if err != nil {
		return err
	}

	c.logger.Info().
		Stringer("machine", c.address).
		Stringer("authority", m.Authority).
		Msg("machine initialized")

	return nil
}

// startSale opens the draws of a machine with at least one item.
func (c *call) startSale() error {
	m, err := c.loadMachine()
	if err != nil {
		return err
	}

	if !c.signer.Equals(m.Authority) && !c.signer.Equals(m.MintAuthority) {
		return xerrors.Errorf("%s: %w", c.signer, types.InvalidAuthority)
	}

	if m.State != types.StateNone {
		return xerrors.Errorf("sale in state %v: %w", m.State, types.InvalidState)
	}

	if m.ItemsLoaded == 0 {
		return types.JellybeanMachineEmpty
	}

	m.State = types.StateSaleLive

	return c.transition(m)
}

// endSale closes the draws. A machine that never started can be ended.
func (c *call) endSale() error {
	m, err := c.loadMachine()
	if err != nil {
		return err
	}

	err = c.requireAuthority(m)
	if err != nil {
		return err
	}

	if m.State == types.StateSaleEnded {
		return xerrors.Errorf("sale already ended: %w", types.InvalidState)
	}

	m.State = types.StateSaleEnded

	return c.transition(m)
}

func (c *call) transition(m *types.Machine) error {
	err := c.saveMachine(m)
	if err != nil {
		return err
	}

	c.logger.Info().
		Stringer("machine", c.address).
		Stringer("state", m.State).
		Msg("machine state changed")

	return nil
}

// updateSettings replaces the settings in any state. The number of fee
// accounts cannot change because the item table is located after them.
func (c *call) updateSettings() error {
	m, err := c.loadMachine()
	if err != nil {
		return err
	}

	err = c.requireAuthority(m)
	if err != nil {
		return err
	}

	settings, err := c.settingsArg()
	if err != nil {
		return err
	}

	if len(settings.FeeAccounts) != len(m.FeeAccounts) {
		return xerrors.Errorf("%d fee accounts instead of %d: %w",
			len(settings.FeeAccounts), len(m.FeeAccounts), types.InvalidFeeAccountsLength)
	}

	settings.Apply(m)

	return c.saveMachine(m)
}

// setMintAuthority delegates the draws to another address.
func (c *call) setMintAuthority() error {
	m, err := c.loadMachine()
	if err != nil {
		return err
	}

	err = c.requireAuthority(m)
	if err != nil {
		return err
	}

	m.MintAuthority, err = c.addressArg(MintAuthorityArg)
	if err != nil {
		return err
	}

	return c.saveMachine(m)
}

// withdraw closes the machine when it holds no item and every drawn prize has
// been claimed. The whole balance of the machine and of its vault returns to
// the authority.
func (c *call) withdraw() error {
	m, err := c.loadMachine()
	if err != nil {
		return err
	}

	err = c.requireAuthority(m)
	if err != nil {
		return err
	}

	if m.ItemsLoaded != 0 || m.SupplySettled != m.SupplyRedeemed {
		return xerrors.Errorf("%d items, %d/%d settled: %w",
			m.ItemsLoaded, m.SupplySettled, m.SupplyRedeemed, types.ItemsStillLoaded)
	}

	vault, err := c.vault()
	if err != nil {
		return err
	}

	remainder, err := c.accounts.Balance(vault)
	if err != nil {
		return err
	}

	err = c.accounts.Transfer(vault, m.Authority, remainder)
	if err != nil {
		return xerrors.Errorf("failed to empty vault: %w", err)
	}

	amount, err := c.accounts.Close(c.address, m.Authority)
	if err != nil {
		return xerrors.Errorf("failed to close: %w", err)
	}

	c.logger.Info().
		Stringer("machine", c.address).
		Uint64("lamports", amount+remainder).
		Msg("machine withdrawn")

	return nil
}
