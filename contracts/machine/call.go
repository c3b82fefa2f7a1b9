package machine

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"go.dedis.ch/jellybean/contracts/asset"
	"go.dedis.ch/jellybean/contracts/machine/types"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/core/execution"
	"go.dedis.ch/jellybean/core/store"
	"golang.org/x/xerrors"
)

// call is the context of the execution of one command.
type call struct {
	snap   store.Snapshot
	step   execution.Step
	guard  Guard
	logger zerolog.Logger

	accounts account.Store
	assets   asset.Registry

	// signer is the payer of the transaction.
	signer solana.PublicKey

	// address is the address of the machine.
	address solana.PublicKey
}

func (c Contract) newCall(snap store.Snapshot, step execution.Step) (*call, error) {
	signer, err := account.AddressOf(step.Current.GetIdentity())
	if err != nil {
		return nil, xerrors.Errorf("signer: %v", err)
	}

	accounts := account.NewStore(snap, c.rent)

	cl := &call{
		snap:     snap,
		step:     step,
		guard:    c.guard,
		logger:   c.logger,
		accounts: accounts,
		assets:   asset.NewRegistry(accounts),
		signer:   signer,
	}

	cl.address, err = cl.addressArg(AddressArg)
	if err != nil {
		return nil, err
	}

	return cl, nil
}

func (c *call) addressArg(key string) (solana.PublicKey, error) {
	addr, found, err := c.optionalAddressArg(key)
	if err != nil {
		return addr, err
	}

	if !found {
		return addr, xerrors.Errorf("'%s' not found in tx arg", key)
	}

	return addr, nil
}

func (c *call) optionalAddressArg(key string) (solana.PublicKey, bool, error) {
	value := c.step.Current.GetArg(key)
	if len(value) == 0 {
		return solana.PublicKey{}, false, nil
	}

	if len(value) != solana.PublicKeyLength {
		return solana.PublicKey{}, false, xerrors.Errorf("'%s' of %d bytes: %w", key, len(value), types.InvalidInputLength)
	}

	return solana.PublicKeyFromBytes(value), true, nil
}

func (c *call) indexArg() (uint16, error) {
	value := c.step.Current.GetArg(IndexArg)
	if len(value) != 2 {
		return 0, xerrors.Errorf("'%s' of %d bytes: %w", IndexArg, len(value), types.InvalidInputLength)
	}

	return binary.LittleEndian.Uint16(value), nil
}

func (c *call) settingsArg() (types.Settings, error) {
	s, err := types.DecodeSettings(c.step.Current.GetArg(SettingsArg))
	if err != nil {
		return s, xerrors.Errorf("settings: %w", err)
	}

	err = s.Validate()
	if err != nil {
		return s, err
	}

	return s, nil
}

func (c *call) vault() (solana.PublicKey, error) {
	return types.VaultAddress(c.address)
}

// loadMachine reads the machine of the call.
func (c *call) loadMachine() (*types.Machine, error) {
	return readMachine(c.accounts, c.address)
}

// saveMachine writes the machine and resizes its account when the table has
// changed.
func (c *call) saveMachine(m *types.Machine) error {
	return c.save(c.address, m.Size(), m.Encode)
}

// loadPrizes reads the prizes of the buyer for the machine of the call. It
// returns the address of the record and a fresh record if it does not exist.
func (c *call) loadPrizes(buyer solana.PublicKey) (*types.UnclaimedPrizes, solana.PublicKey, bool, error) {
	return readPrizes(c.accounts, c.address, buyer)
}

// savePrizes writes the record of prizes. The account is created when needed
// and closed once the record is empty.
func (c *call) savePrizes(addr solana.PublicKey, p *types.UnclaimedPrizes, exists bool) error {
	if len(p.Prizes) == 0 {
		if !exists {
			return nil
		}

		_, err := c.accounts.Close(addr, c.signer)
		if err != nil {
			return xerrors.Errorf("failed to close prizes: %w", err)
		}

		return nil
	}

	if !exists {
		err := c.accounts.Allocate(addr, types.ProgramID, p.Size(), c.signer)
		if err != nil {
			return xerrors.Errorf("failed to allocate prizes: %w", err)
		}
	}

	return c.save(addr, p.Size(), p.Encode)
}

// save writes the encoding of a record in the account at the address, after
// resizing the account to the size. The encoder checks that the record fills
// the account exactly.
func (c *call) save(addr solana.PublicKey, size int, encode func(int) ([]byte, error)) error {
	acc, _, err := c.accounts.Get(addr)
	if err != nil {
		return err
	}

	if len(acc.Data) != size {
		acc, err = c.accounts.Resize(addr, size, c.signer)
		if err != nil {
			return xerrors.Errorf("failed to resize %s: %w", addr, err)
		}
	}

	data, err := encode(len(acc.Data))
	if err != nil {
		return xerrors.Errorf("failed to encode %s: %w", addr, err)
	}

	err = c.accounts.SetData(addr, data)
	if err != nil {
		return xerrors.Errorf("failed to write %s: %w", addr, err)
	}

	return nil
}

func (c *call) requireAuthority(m *types.Machine) error {
	if !c.signer.Equals(m.Authority) {
		return xerrors.Errorf("%s: %w", c.signer, types.InvalidAuthority)
	}

	return nil
}
