package crypto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable part of a bech32 account address.
type AddressPrefix string

const (
	TerraPrefix AddressPrefix = "terra"
)

var (
	ErrInvalidAddress = errors.New("address: invalid bech32 address")
	ErrWrongPrefix    = errors.New("address: unexpected prefix")
)

// Address is a decoded bech32 account or contract address. Account
// addresses carry 20 bytes, contract addresses 32.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != 20 && len(b) != 32 {
		return Address{}, fmt.Errorf("%w: %d byte payload", ErrInvalidAddress, len(b))
	}
	return Address{prefix: prefix, bytes: append([]byte(nil), b...)}, nil
}

func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return append([]byte(nil), a.bytes...)
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("%w: converting bits: %v", ErrInvalidAddress, err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// DeriveAddress deterministically maps a label to an account address. It is
// used by simulations and tests to mint stable, valid addresses.
func DeriveAddress(prefix AddressPrefix, label string) Address {
	sum := crypto.Keccak256([]byte(label))
	return MustNewAddress(prefix, sum[12:])
}

// DeriveContractAddress is the 32-byte counterpart of DeriveAddress.
func DeriveContractAddress(prefix AddressPrefix, label string) Address {
	return MustNewAddress(prefix, crypto.Keccak256([]byte("contract/"+label)))
}

// AddressValidator checks and normalises user-supplied addresses.
type AddressValidator interface {
	ValidateAddress(addr string) (string, error)
}

// Bech32Validator accepts canonical lower-case bech32 addresses. When Prefix is
// empty any human-readable part is accepted.
type Bech32Validator struct {
	Prefix AddressPrefix
}

// ValidateAddress implements AddressValidator.
func (v Bech32Validator) ValidateAddress(addr string) (string, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if trimmed != addr || strings.ToLower(addr) != addr {
		return "", fmt.Errorf("%w: %q is not normalized", ErrInvalidAddress, addr)
	}
	decoded, err := DecodeAddress(addr)
	if err != nil {
		return "", err
	}
	if v.Prefix != "" && decoded.Prefix() != v.Prefix {
		return "", fmt.Errorf("%w: want %s, got %s", ErrWrongPrefix, v.Prefix, decoded.Prefix())
	}
	return addr, nil
}
