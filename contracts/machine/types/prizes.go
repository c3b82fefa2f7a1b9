package types

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"golang.org/x/xerrors"
)

const (
	// PrizeSize is the width of one prize entry.
	PrizeSize = 2 + 4

	// PrizesBaseSize is the size of a prize record without any prize.
	PrizesBaseSize = 8 + 1 + 32 + 32 + 4
)

// PrizesDiscriminator prefixes the data of every prize record.
var PrizesDiscriminator = discriminator("UnclaimedPrizes")

// Prize is a drawn unit that has not been claimed yet. The edition number is
// the number of the edition to print for a collection item.
type Prize struct {
	ItemIndex     uint16 `json:"itemIndex"`
	EditionNumber uint32 `json:"editionNumber"`
}

// UnclaimedPrizes is the record of the pending prizes of a buyer for a
// machine.
type UnclaimedPrizes struct {
	Version uint8            `json:"version"`
	Machine solana.PublicKey `json:"jellybeanMachine"`
	Buyer   solana.PublicKey `json:"buyer"`
	Prizes  []Prize          `json:"prizes"`
}

// PrizesSize returns the size of a prize record holding n prizes.
func PrizesSize(n int) int {
	return PrizesBaseSize + n*PrizeSize
}

// Size returns the size of the account needed by the record.
func (p *UnclaimedPrizes) Size() int {
	return PrizesSize(len(p.Prizes))
}

// Take removes the first prize of the item and returns it. The order of the
// other prizes is preserved.
func (p *UnclaimedPrizes) Take(index uint16) (Prize, bool) {
	for i, prize := range p.Prizes {
		if prize.ItemIndex == index {
			p.Prizes = append(p.Prizes[:i], p.Prizes[i+1:]...)
			return prize, true
		}
	}

	return Prize{}, false
}

// Encode returns the binary form of the record for an account of the given
// capacity.
func (p *UnclaimedPrizes) Encode(capacity int) ([]byte, error) {
	size := p.Size()
	if size != capacity {
		return nil, xerrors.Errorf("size %d != capacity %d: %w", size, capacity, SizeMismatch)
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	enc := bin.NewBorshEncoder(buf)

	for _, field := range []interface{}{PrizesDiscriminator, p.Version, p.Machine, p.Buyer, p.Prizes} {
		err := enc.Encode(field)
		if err != nil {
			return nil, xerrors.Errorf("failed to encode: %v", err)
		}
	}

	return buf.Bytes(), nil
}

// DecodeUnclaimedPrizes returns the record from the data of its account.
func DecodeUnclaimedPrizes(data []byte) (*UnclaimedPrizes, error) {
	if len(data) < PrizesBaseSize {
		return nil, xerrors.Errorf("%d bytes for a header of %d: %w", len(data), PrizesBaseSize, SizeMismatch)
	}

	dec := bin.NewBorshDecoder(data)

	var disc [8]byte

	err := dec.Decode(&disc)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode discriminator: %v", err)
	}

	if disc != PrizesDiscriminator {
		return nil, xerrors.Errorf("discriminator %x: %w", disc, AccountNotInitialized)
	}

	p := &UnclaimedPrizes{}

	var count uint32

	err = decodeFields(dec, &p.Version, &p.Machine, &p.Buyer, &count)
	if err != nil {
		return nil, err
	}

	if len(data) < PrizesSize(int(count)) {
		return nil, xerrors.Errorf("%d bytes for %d prizes: %w", len(data), count, SizeMismatch)
	}

	p.Prizes = make([]Prize, count)
	for i := range p.Prizes {
		err = dec.Decode(&p.Prizes[i])
		if err != nil {
			return nil, xerrors.Errorf("failed to decode prize %d: %v", i, err)
		}
	}

	return p, nil
}
