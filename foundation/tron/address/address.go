// Package address decodes and validates TRON base58check addresses.
package address

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/crypto"
)

// Leading bytes of the decoded 21 byte address.
const (
	PrefixAccount  byte = 0x41
	PrefixContract byte = 0x5A
)

// Length is the length of an address in its text form.
const Length = 34

// Marker is the first character of every account address.
const Marker = 'T'

// Size is the length of an address in its binary form.
const Size = 21

// Set of errors returned by the codec.
var (
	ErrEmpty    = errors.New("address: empty")
	ErrLength   = errors.New("address: must be 34 characters")
	ErrMarker   = errors.New("address: wrong network marker")
	ErrChecksum = errors.New("address: checksum mismatch")
	ErrPrefix   = errors.New("address: unknown leading byte")
	ErrContract = errors.New("address: contract address not allowed as destination")
)

// Kind distinguishes account addresses from contract addresses.
type Kind int

// Set of address kinds.
const (
	KindUnknown Kind = iota
	KindAccount
	KindContract
)

func (k Kind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindContract:
		return "contract"
	}
	return "unknown"
}

// Address is a validated address in its base58check text form.
type Address string

// Parse validates the text form of an address.
func Parse(text string) (Address, error) {
	if text == "" {
		return "", ErrEmpty
	}
	if len(text) != Length {
		return "", ErrLength
	}

	payload, version, err := base58.CheckDecode(text)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrChecksum, err)
	}
	if len(payload) != Size-1 {
		return "", ErrLength
	}

	switch version {
	case PrefixAccount:
		if text[0] != Marker {
			return "", ErrMarker
		}
	case PrefixContract:
	default:
		return "", ErrPrefix
	}

	return Address(text), nil
}

// ParseDestination validates the text form of an address that will receive
// funds. Contract addresses are always rejected.
func ParseDestination(text string) (Address, error) {
	a, err := Parse(text)
	if err != nil {
		return "", err
	}
	if a.Kind() != KindAccount {
		return "", ErrContract
	}

	return a, nil
}

// FromBytes converts the 21 byte binary form into an address.
func FromBytes(b []byte) (Address, error) {
	if len(b) != Size {
		return "", ErrLength
	}
	if b[0] != PrefixAccount && b[0] != PrefixContract {
		return "", ErrPrefix
	}

	return Address(base58.CheckEncode(b[1:], b[0])), nil
}

// FromPublicKey derives the account address owned by the public key.
func FromPublicKey(pk ecdsa.PublicKey) Address {
	eth := crypto.PubkeyToAddress(pk)

	return Address(base58.CheckEncode(eth.Bytes(), PrefixAccount))
}

// Bytes returns the 21 byte binary form. An invalid address returns nil.
func (a Address) Bytes() []byte {
	payload, version, err := base58.CheckDecode(string(a))
	if err != nil {
		return nil
	}

	return append([]byte{version}, payload...)
}

// Kind reports whether the address is an account or a contract.
func (a Address) Kind() Kind {
	b := a.Bytes()
	if len(b) != Size {
		return KindUnknown
	}

	switch b[0] {
	case PrefixAccount:
		return KindAccount
	case PrefixContract:
		return KindContract
	}
	return KindUnknown
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == ""
}

// String implements the fmt.Stringer interface.
func (a Address) String() string {
	return string(a)
}
