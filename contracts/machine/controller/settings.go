package controller

import (
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"go.dedis.ch/jellybean/cli"
	"go.dedis.ch/jellybean/contracts/machine/types"
	"go.dedis.ch/jellybean/core/account"
	"golang.org/x/xerrors"
)

// parseSettings reads the settings of a machine from the flags.
func parseSettings(flags cli.Flags) (types.Settings, error) {
	s := types.Settings{
		Uri: flags.String(uriFlag),
	}

	for _, text := range flags.StringSlice(feeAccountFlag) {
		addr, value, err := splitPair(text)
		if err != nil {
			return s, xerrors.Errorf("fee account '%s': %v", text, err)
		}

		bps, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return s, xerrors.Errorf("fee account '%s': invalid basis points: %v", text, err)
		}

		s.FeeAccounts = append(s.FeeAccounts, types.FeeAccount{
			Address:     addr,
			BasisPoints: uint16(bps),
		})
	}

	text := flags.String(printFeeFlag)
	if text != "" {
		addr, value, err := splitPair(text)
		if err != nil {
			return s, xerrors.Errorf("print fee '%s': %v", text, err)
		}

		amount, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return s, xerrors.Errorf("print fee '%s': invalid amount: %v", text, err)
		}

		s.PrintFee = &types.PrintFee{
			Address: addr,
			Amount:  amount,
		}
	}

	return s, nil
}

func splitPair(text string) (solana.PublicKey, string, error) {
	left, right, found := strings.Cut(text, ":")
	if !found {
		return solana.PublicKey{}, "", xerrors.New("expected <address>:<value>")
	}

	addr, err := account.ParseAddress(left)
	if err != nil {
		return addr, "", err
	}

	return addr, right, nil
}
