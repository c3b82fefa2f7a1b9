package asset

import (
	"strconv"

	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean"
	"go.dedis.ch/jellybean/core/account"
	"go.dedis.ch/jellybean/core/execution"
	"go.dedis.ch/jellybean/core/execution/native"
	"go.dedis.ch/jellybean/core/store"
	"golang.org/x/xerrors"
)

const (
	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "asset:command"

	// AddressArg is the argument's name for the address of the asset.
	AddressArg = "asset:address"

	// UriArg is the argument's name for the uri of a new asset.
	UriArg = "asset:uri"

	// MaxSupplyArg is the argument's name for the maximum supply of a
	// collection. A collection created without it has no master edition.
	MaxSupplyArg = "asset:max_supply"

	// ToArg is the argument's name for the new owner of a transfer.
	ToArg = "asset:to"
)

// Command defines a type of command for the asset contract.
type Command string

const (
	// CmdCreateAsset creates a one-of-one asset owned by the signer.
	CmdCreateAsset Command = "CREATE_ASSET"

	// CmdCreateCollection creates a collection whose update authority is the
	// signer.
	CmdCreateCollection Command = "CREATE_COLLECTION"

	// CmdTransfer transfers an asset of the signer.
	CmdTransfer Command = "TRANSFER"
)

// Contract is the native contract to manage assets.
//
// - implements native.Contract
type Contract struct {
	rent account.Rent
}

// NewContract creates a new asset contract.
func NewContract(rent account.Rent) Contract {
	return Contract{
		rent: rent,
	}
}

// RegisterContract registers the asset contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	signer, err := account.AddressOf(step.Current.GetIdentity())
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	addr, err := addressArg(step, AddressArg)
	if err != nil {
		return err
	}

	registry := NewRegistry(account.NewStore(snap, c.rent))

	cmd := step.Current.GetArg(CmdArg)

	switch Command(cmd) {
	case CmdCreateAsset:
		a := Asset{
			Kind:            KindAsset,
			Owner:           signer,
			UpdateAuthority: signer,
			Uri:             string(step.Current.GetArg(UriArg)),
		}

		err = registry.Create(addr, a, signer)
		if err != nil {
			return xerrors.Errorf("failed to CREATE_ASSET: %w", err)
		}
	case CmdCreateCollection:
		a := Asset{
			Kind:            KindCollection,
			Owner:           signer,
			UpdateAuthority: signer,
			Uri:             string(step.Current.GetArg(UriArg)),
		}

		supply := step.Current.GetArg(MaxSupplyArg)
		if len(supply) > 0 {
			a.MasterEdition = true

			a.MaxSupply, err = strconv.ParseUint(string(supply), 10, 64)
			if err != nil {
				return xerrors.Errorf("invalid max supply: %v", err)
			}
		}

		err = registry.Create(addr, a, signer)
		if err != nil {
			return xerrors.Errorf("failed to CREATE_COLLECTION: %w", err)
		}
	case CmdTransfer:
		to, err := addressArg(step, ToArg)
		if err != nil {
			return err
		}

		err = registry.Transfer(addr, signer, to)
		if err != nil {
			return xerrors.Errorf("failed to TRANSFER: %w", err)
		}
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	jellybean.Logger.Info().
		Str("contract", "asset").
		Str("command", string(cmd)).
		Stringer("address", addr).
		Msg("asset updated")

	return nil
}

func addressArg(step execution.Step, key string) (solana.PublicKey, error) {
	value := step.Current.GetArg(key)
	if len(value) == 0 {
		return solana.PublicKey{}, xerrors.Errorf("'%s' not found in tx arg", key)
	}

	if len(value) != solana.PublicKeyLength {
		return solana.PublicKey{}, xerrors.Errorf("'%s' has invalid length %d", key, len(value))
	}

	return solana.PublicKeyFromBytes(value), nil
}
