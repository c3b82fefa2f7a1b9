// Package access defines the identity of the signer of a transaction.
//
// The contracts of the ledger do not rely on access rules. They compare the
// address derived from the identity with the authorities stored in their
// records.
package access

import "encoding"

// Identity is an abstraction to uniquely identify a signer.
type Identity interface {
	encoding.BinaryMarshaler
	encoding.TextMarshaler

	// Equal returns true when the other object is the same identity.
	Equal(other interface{}) bool
}
