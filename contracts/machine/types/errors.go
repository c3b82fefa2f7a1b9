package types

import "fmt"

// Code is an error code of the machine program. Each failure of a command
// carries exactly one code, which can be matched with xerrors.Is.
type Code uint32

// The error codes of the machine program. The numbering is part of the
// interface and must not change.
//
// PublicKeyMismatch, NotAllSettled and ItemNotFullyClaimed are reserved and
// never returned: a mismatch of the asset of an item is an InvalidAsset, and
// a withdrawal with unsettled prizes is an ItemsStillLoaded.
const (
	PublicKeyMismatch Code = iota + 6000
	InvalidOwner
	UninitializedAccount
	IndexGreaterThanLength
	NumericalOverflowError
	JellybeanMachineEmpty
	InvalidState
	InvalidAuthority
	InvalidMintAuthority
	InvalidBuyer
	UriTooLong
	NotAllSettled
	InvalidJellybeanMachine
	InvalidAsset
	MasterEditionNotEmpty
	InvalidMasterEditionSupply
	MissingMasterEdition
	MissingPrintAsset
	InvalidInputLength
	InvalidItemIndex
	InvalidFeeAccountBasisPoints
	ItemNotFullyClaimed
	ItemsStillLoaded
	TooManyFeeAccounts
	TooManyItems
	InvalidFeeAccountsLength
	SizeMismatch
	AccountNotInitialized
	AccountAlreadyInUse
)

var codeNames = map[Code]string{
	PublicKeyMismatch:            "PublicKeyMismatch",
	InvalidOwner:                 "InvalidOwner",
	UninitializedAccount:         "UninitializedAccount",
	IndexGreaterThanLength:       "IndexGreaterThanLength",
	NumericalOverflowError:       "NumericalOverflowError",
	JellybeanMachineEmpty:        "JellybeanMachineEmpty",
	InvalidState:                 "InvalidState",
	InvalidAuthority:             "InvalidAuthority",
	InvalidMintAuthority:         "InvalidMintAuthority",
	InvalidBuyer:                 "InvalidBuyer",
	UriTooLong:                   "UriTooLong",
	NotAllSettled:                "NotAllSettled",
	InvalidJellybeanMachine:      "InvalidJellybeanMachine",
	InvalidAsset:                 "InvalidAsset",
	MasterEditionNotEmpty:        "MasterEditionNotEmpty",
	InvalidMasterEditionSupply:   "InvalidMasterEditionSupply",
	MissingMasterEdition:         "MissingMasterEdition",
	MissingPrintAsset:            "MissingPrintAsset",
	InvalidInputLength:           "InvalidInputLength",
	InvalidItemIndex:             "InvalidItemIndex",
	InvalidFeeAccountBasisPoints: "InvalidFeeAccountBasisPoints",
	ItemNotFullyClaimed:          "ItemNotFullyClaimed",
	ItemsStillLoaded:             "ItemsStillLoaded",
	TooManyFeeAccounts:           "TooManyFeeAccounts",
	TooManyItems:                 "TooManyItems",
	InvalidFeeAccountsLength:     "InvalidFeeAccountsLength",
	SizeMismatch:                 "SizeMismatch",
	AccountNotInitialized:        "AccountNotInitialized",
	AccountAlreadyInUse:          "AccountAlreadyInUse",
}

// Name returns the name of the code.
func (c Code) Name() string {
	name, found := codeNames[c]
	if !found {
		return "Unknown"
	}

	return name
}

// Error implements error.
func (c Code) Error() string {
	return fmt.Sprintf("%s (%d)", c.Name(), uint32(c))
}
