package types

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"golang.org/x/xerrors"
)

// TotalBasisPoints is the sum of the basis points of the fee accounts.
const TotalBasisPoints = 10000

// Settings are the parameters of a machine chosen by the authority.
type Settings struct {
	Uri         string
	FeeAccounts []FeeAccount
	PrintFee    *PrintFee
}

// Validate checks the bounds of the settings and that the fee accounts share
// exactly the total of the basis points.
func (s Settings) Validate() error {
	if len(s.Uri) > MaxUriLength {
		return xerrors.Errorf("uri of %d bytes: %w", len(s.Uri), UriTooLong)
	}

	if len(s.FeeAccounts) > MaxFeeAccounts {
		return xerrors.Errorf("%d fee accounts: %w", len(s.FeeAccounts), TooManyFeeAccounts)
	}

	if len(s.FeeAccounts) == 0 {
		return nil
	}

	total := 0
	for _, fee := range s.FeeAccounts {
		total += int(fee.BasisPoints)
	}

	if total != TotalBasisPoints {
		return xerrors.Errorf("sum of %d basis points: %w", total, InvalidFeeAccountBasisPoints)
	}

	return nil
}

// Apply copies the settings to the machine.
func (s Settings) Apply(m *Machine) {
	m.Uri = s.Uri
	m.FeeAccounts = append([]FeeAccount{}, s.FeeAccounts...)
	m.PrintFee = nil

	if s.PrintFee != nil {
		fee := *s.PrintFee
		m.PrintFee = &fee
	}
}

// Encode returns the binary form of the settings.
func (s Settings) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	fields := []interface{}{s.Uri, s.FeeAccounts}
	if s.PrintFee != nil {
		fields = append(fields, uint8(1), s.PrintFee.Address, s.PrintFee.Amount)
	} else {
		fields = append(fields, uint8(0))
	}

	for _, field := range fields {
		err := enc.Encode(field)
		if err != nil {
			return nil, xerrors.Errorf("failed to encode: %v", err)
		}
	}

	return buf.Bytes(), nil
}

// DecodeSettings returns the settings from their binary form.
func DecodeSettings(data []byte) (Settings, error) {
	var s Settings

	dec := bin.NewBorshDecoder(data)

	var count uint32

	err := decodeFields(dec, &s.Uri, &count)
	if err != nil {
		return s, xerrors.Errorf("%v: %w", err, InvalidInputLength)
	}

	if count > MaxFeeAccounts {
		return s, xerrors.Errorf("%d fee accounts: %w", count, TooManyFeeAccounts)
	}

	s.FeeAccounts = make([]FeeAccount, count)
	for i := range s.FeeAccounts {
		err = decodeFields(dec, &s.FeeAccounts[i].Address, &s.FeeAccounts[i].BasisPoints)
		if err != nil {
			return s, xerrors.Errorf("%v: %w", err, InvalidInputLength)
		}
	}

	var tag uint8

	err = dec.Decode(&tag)
	if err != nil {
		return s, xerrors.Errorf("failed to decode print fee: %v: %w", err, InvalidInputLength)
	}

	switch tag {
	case 0:
	case 1:
		s.PrintFee = &PrintFee{}

		err = decodeFields(dec, &s.PrintFee.Address, &s.PrintFee.Amount)
		if err != nil {
			return s, xerrors.Errorf("%v: %w", err, InvalidInputLength)
		}
	default:
		return s, xerrors.Errorf("print fee tag %d: %w", tag, InvalidInputLength)
	}

	return s, nil
}

// SplitFee divides the amount between the fee accounts according to their
// basis points. The remainder of the integer division goes to the last
// account.
func SplitFee(amount uint64, fees []FeeAccount) []uint64 {
	shares := make([]uint64, len(fees))

	var total uint64
	for i, fee := range fees {
		// amount * basis points can overflow.
		shares[i] = amount/TotalBasisPoints*uint64(fee.BasisPoints) +
			amount%TotalBasisPoints*uint64(fee.BasisPoints)/TotalBasisPoints

		total += shares[i]
	}

	if len(shares) > 0 {
		shares[len(shares)-1] += amount - total
	}

	return shares
}
