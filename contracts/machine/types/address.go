package types

import (
	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean/core/account"
	"golang.org/x/xerrors"
)

// ProgramName is the name of the machine program.
const ProgramName = "go.dedis.ch/jellybean.Machine"

const (
	prizesSeed = "unclaimed_prizes"
	vaultSeed  = "authority"
)

// GuardName is the name of the draw guard of the ledger.
const GuardName = "go.dedis.ch/jellybean.MachineGuard"

var (
	// ProgramID is the owner of the machine and prize accounts.
	ProgramID = account.ProgramID(ProgramName)

	// GuardAuthority is the mint authority that hands the draws over to the
	// guard of the ledger: any signer can draw and pays for the draw, as long
	// as the guard authorizes it.
	GuardAuthority = account.ProgramID(GuardName)
)

// PrizesAddress returns the address of the prize record of the buyer for the
// machine.
func PrizesAddress(machine, buyer solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte(prizesSeed),
		machine[:],
		buyer[:],
	}, ProgramID)

	if err != nil {
		return solana.PublicKey{}, xerrors.Errorf("failed to derive prizes address: %v", err)
	}

	return addr, nil
}

// VaultAddress returns the address that holds the assets, the collection
// authorities and the escrow of the machine.
func VaultAddress(machine solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte(vaultSeed),
		machine[:],
	}, ProgramID)

	if err != nil {
		return solana.PublicKey{}, xerrors.Errorf("failed to derive vault address: %v", err)
	}

	return addr, nil
}
