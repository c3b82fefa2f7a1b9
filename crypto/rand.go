package crypto

import (
	"crypto/rand"

	"golang.org/x/xerrors"
)

// CryptographicRandomGenerator is cryptographically secure random generator.
type CryptographicRandomGenerator struct{}

// Read fills the given buffer at its capacity as long as no error occurred.
func (crg CryptographicRandomGenerator) Read(buffer []byte) (int, error) {
	return rand.Read(buffer)
}

// RandomBytes returns a buffer of the given size filled with random bytes.
func RandomBytes(size int) ([]byte, error) {
	buffer := make([]byte, size)

	_, err := CryptographicRandomGenerator{}.Read(buffer)
	if err != nil {
		return nil, xerrors.Errorf("failed to read random: %v", err)
	}

	return buffer, nil
}
